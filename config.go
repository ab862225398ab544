package goAccount

import (
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goAccount/internal"
	"github.com/MrEthical07/goAccount/password"
)

// Config defines the engine configuration.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	Password PasswordConfig
	Login    LoginConfig
	Recovery RecoveryConfig
	Account  AccountConfig
	Admin    AdminConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
	Redis    RedisConfig
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig selects the hashing algorithm and its cost parameters.
type PasswordConfig struct {
	Algorithm        password.Algorithm // argon2id (default) or scrypt
	Memory           uint32             // in KB
	Time             uint32
	Parallelism      uint8
	KeyLength        uint32
	MaxPasswordBytes int
	MinLength        int
	UpgradeOnLogin   bool
}

/*
====================================
LIMITER CONFIG
====================================
*/

// LoginConfig bounds login attempts per source address.
type LoginConfig struct {
	MaxAttempts int
	Window      time.Duration
}

// RecoveryConfig controls the two-step recovery-code protocol.
type RecoveryConfig struct {
	Enabled         bool
	MaxAttempts     int
	Window          time.Duration
	CodeTTL         time.Duration
	MaxCodeAttempts int
	SweepInterval   time.Duration
}

/*
====================================
ACCOUNT CONFIG
====================================
*/

// AccountConfig controls account creation and the fallback account.
type AccountConfig struct {
	AllowPasswordless bool
	DefaultName       string
	FallbackHandle    string
	CreateFallback    bool
}

// AdminConfig controls administrative listing.
type AdminConfig struct {
	DefaultPageSize int
	MaxPageSize     int
}

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// RedisConfig sets key prefixes used when a Redis client is configured.
type RedisConfig struct {
	Prefix string
}

// DefaultConfig returns the baseline configuration.
func DefaultConfig() Config {
	return Config{
		Password: PasswordConfig{
			Algorithm:        password.AlgorithmArgon2id,
			Memory:           64 * 1024,
			Time:             3,
			Parallelism:      2,
			KeyLength:        32,
			MaxPasswordBytes: password.DefaultMaxPasswordBytes,
			MinLength:        0,
			UpgradeOnLogin:   true,
		},
		Login: LoginConfig{
			MaxAttempts: 5,
			Window:      60 * time.Second,
		},
		Recovery: RecoveryConfig{
			Enabled:         true,
			MaxAttempts:     5,
			Window:          300 * time.Second,
			CodeTTL:         5 * time.Minute,
			MaxCodeAttempts: 5,
			SweepInterval:   time.Minute,
		},
		Account: AccountConfig{
			AllowPasswordless: true,
			DefaultName:       "Anonymous",
			FallbackHandle:    "default-user",
			CreateFallback:    false,
		},
		Admin: AdminConfig{
			DefaultPageSize: 20,
			MaxPageSize:     100,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: false,
		},
		Redis: RedisConfig{
			Prefix: "goaccount",
		},
	}
}

// HighSecurityConfig returns a configuration that requires passwords,
// shortens recovery and enables auditing.
func HighSecurityConfig() Config {
	cfg := DefaultConfig()
	cfg.Password.MinLength = 12
	cfg.Account.AllowPasswordless = false
	cfg.Login.MaxAttempts = 5
	cfg.Login.Window = 5 * time.Minute
	cfg.Recovery.MaxAttempts = 3
	cfg.Recovery.CodeTTL = 2 * time.Minute
	cfg.Recovery.MaxCodeAttempts = 3
	cfg.Audit.Enabled = true
	cfg.Audit.DropIfFull = false
	return cfg
}

func (c Config) passwordOptions() password.Options {
	return password.Options{
		Algorithm: c.Password.Algorithm,
		Argon2: password.Config{
			Memory:      c.Password.Memory,
			Time:        c.Password.Time,
			Parallelism: c.Password.Parallelism,
			KeyLength:   c.Password.KeyLength,
		},
		MaxPasswordBytes: c.Password.MaxPasswordBytes,
	}
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	// Password
	switch c.Password.Algorithm {
	case password.AlgorithmArgon2id:
		if c.Password.Memory < 8*1024 {
			return errors.New("Password Memory must be >= 8192 KB")
		}
		if c.Password.Time < 1 {
			return errors.New("Password Time must be >= 1")
		}
		if c.Password.Parallelism < 1 {
			return errors.New("Password Parallelism must be >= 1")
		}
		if c.Password.KeyLength < 16 {
			return errors.New("Password KeyLength must be >= 16")
		}
	case password.AlgorithmScrypt:
	default:
		return errors.New("Password Algorithm must be 'argon2id' or 'scrypt'")
	}
	if c.Password.MaxPasswordBytes <= 0 {
		return errors.New("Password MaxPasswordBytes must be > 0")
	}
	if c.Password.MinLength < 0 || c.Password.MinLength > c.Password.MaxPasswordBytes {
		return errors.New("Password MinLength must be between 0 and MaxPasswordBytes")
	}

	// Login
	if c.Login.MaxAttempts <= 0 {
		return errors.New("Login MaxAttempts must be > 0")
	}
	if c.Login.Window <= 0 {
		return errors.New("Login Window must be > 0")
	}

	// Recovery
	if c.Recovery.Enabled {
		if c.Recovery.MaxAttempts <= 0 {
			return errors.New("Recovery MaxAttempts must be > 0")
		}
		if c.Recovery.Window <= 0 {
			return errors.New("Recovery Window must be > 0")
		}
		if c.Recovery.CodeTTL <= 0 {
			return errors.New("Recovery CodeTTL must be > 0")
		}
		if c.Recovery.MaxCodeAttempts <= 0 || c.Recovery.MaxCodeAttempts > 65535 {
			return errors.New("Recovery MaxCodeAttempts must be between 1 and 65535")
		}
		if c.Recovery.SweepInterval < 0 {
			return errors.New("Recovery SweepInterval must be >= 0")
		}
	}

	// Account
	if c.Account.CreateFallback && c.Account.FallbackHandle == "" {
		return errors.New("Account FallbackHandle is required when CreateFallback is true")
	}
	// Every entry point normalizes its handle; any other form is unreachable.
	if h := c.Account.FallbackHandle; h != "" && internal.NormalizeHandle(h) != h {
		return fmt.Errorf("Account FallbackHandle %q must be in normalized form %q", h, internal.NormalizeHandle(h))
	}

	// Admin
	if c.Admin.DefaultPageSize <= 0 || c.Admin.MaxPageSize <= 0 {
		return errors.New("Admin page sizes must be > 0")
	}
	if c.Admin.DefaultPageSize > c.Admin.MaxPageSize {
		return errors.New("Admin DefaultPageSize must be <= MaxPageSize")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when Audit is enabled")
	}

	return nil
}
