package goAccount

import "time"

// SecurityReport summarises the active security posture of an Engine.
type SecurityReport struct {
	PasswordAlgorithm   string
	Argon2              PasswordConfigReport
	MinPasswordLength   int
	PasswordlessAllowed bool
	UpgradeOnLogin      bool

	LoginMaxAttempts    int
	LoginWindow         time.Duration
	RecoveryEnabled     bool
	RecoveryMaxAttempts int
	RecoveryWindow      time.Duration
	RecoveryCodeTTL     time.Duration
	MaxCodeAttempts     int

	SharedBackend  bool
	AuditEnabled   bool
	MetricsEnabled bool
	FallbackHandle string
}

type PasswordConfigReport struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	KeyLength   uint32
}

func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}

	c := e.config

	return SecurityReport{
		PasswordAlgorithm: string(e.passwords.Algorithm()),
		Argon2: PasswordConfigReport{
			Memory:      c.Password.Memory,
			Time:        c.Password.Time,
			Parallelism: c.Password.Parallelism,
			KeyLength:   c.Password.KeyLength,
		},
		MinPasswordLength:   c.Password.MinLength,
		PasswordlessAllowed: c.Account.AllowPasswordless,
		UpgradeOnLogin:      c.Password.UpgradeOnLogin,
		LoginMaxAttempts:    c.Login.MaxAttempts,
		LoginWindow:         c.Login.Window,
		RecoveryEnabled:     c.Recovery.Enabled,
		RecoveryMaxAttempts: c.Recovery.MaxAttempts,
		RecoveryWindow:      c.Recovery.Window,
		RecoveryCodeTTL:     c.Recovery.CodeTTL,
		MaxCodeAttempts:     c.Recovery.MaxCodeAttempts,
		SharedBackend:       e.sharedBackend,
		AuditEnabled:        c.Audit.Enabled,
		MetricsEnabled:      c.Metrics.Enabled,
		FallbackHandle:      c.Account.FallbackHandle,
	}
}
