package goAccount

import (
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/goAccount/password"
)

// LintSeverity ranks a configuration warning.
type LintSeverity int

const (
	LintInfo LintSeverity = iota
	LintWarn
	LintHigh
)

func (s LintSeverity) String() string {
	switch s {
	case LintInfo:
		return "INFO"
	case LintWarn:
		return "WARN"
	case LintHigh:
		return "HIGH"
	default:
		return fmt.Sprintf("LintSeverity(%d)", int(s))
	}
}

// LintWarning is one finding from Config.Lint. Code is stable and safe to
// match on; Message is for humans.
type LintWarning struct {
	Code     string
	Severity LintSeverity
	Message  string
}

// LintResult is the ordered list of findings.
type LintResult []LintWarning

func (r LintResult) Codes() []string {
	codes := make([]string, 0, len(r))
	for _, w := range r {
		codes = append(codes, w.Code)
	}
	return codes
}

// BySeverity returns the findings at or above min.
func (r LintResult) BySeverity(min LintSeverity) LintResult {
	var out LintResult
	for _, w := range r {
		if w.Severity >= min {
			out = append(out, w)
		}
	}
	return out
}

// AsError folds the findings at or above min into one error, or returns nil.
func (r LintResult) AsError(min LintSeverity) error {
	hits := r.BySeverity(min)
	if len(hits) == 0 {
		return nil
	}
	parts := make([]string, 0, len(hits))
	for _, w := range hits {
		parts = append(parts, fmt.Sprintf("[%s] %s: %s", w.Severity, w.Code, w.Message))
	}
	return fmt.Errorf("config lint: %s", strings.Join(parts, "; "))
}

// Lint reports settings that are valid but risky. It never fails; use
// Validate for hard errors.
func (c Config) Lint() LintResult {
	var ws LintResult
	add := func(code string, sev LintSeverity, msg string) {
		ws = append(ws, LintWarning{Code: code, Severity: sev, Message: msg})
	}

	// Passwords
	if c.Password.Algorithm == password.AlgorithmArgon2id && c.Password.Memory < 64*1024 {
		add("argon2_memory_low", LintWarn, "argon2id memory below 64 MiB")
	}
	if c.Password.Algorithm == password.AlgorithmScrypt {
		add("scrypt_selected", LintInfo, "scrypt hashes verify but argon2id is preferred for new hashes")
	}
	if !c.Account.AllowPasswordless && c.Password.MinLength < 8 {
		add("password_min_length_low", LintInfo, "minimum password length below 8")
	}
	if c.Account.AllowPasswordless {
		add("passwordless_allowed", LintWarn, "accounts without a password accept any password")
	}

	// Limiters
	if c.Login.MaxAttempts > 20 {
		add("login_limit_loose", LintWarn, "more than 20 login attempts per window")
	}
	if !c.Recovery.Enabled {
		add("recovery_disabled", LintInfo, "recovery codes are disabled")
	} else {
		if c.Recovery.CodeTTL > 15*time.Minute {
			add("recovery_code_ttl_long", LintWarn, "recovery codes live longer than 15 minutes")
		}
		if c.Recovery.MaxCodeAttempts > 10 {
			add("recovery_code_attempts_high", LintWarn, "more than 10 guesses per recovery code")
		}
		if c.Recovery.SweepInterval == 0 {
			add("recovery_sweep_disabled", LintInfo, "expired in-memory limiter and challenge entries are never swept")
		}
	}

	// Fallback account
	if c.Account.CreateFallback {
		if c.Account.AllowPasswordless {
			add("fallback_admin_open", LintWarn, "the passwordless fallback administrator accepts any password")
		} else {
			add("fallback_admin_unreachable", LintHigh, "the fallback administrator has no password and passwordless login is disabled")
		}
	}

	// Audit
	if !c.Audit.Enabled {
		add("audit_disabled", LintInfo, "audit events are not recorded")
	} else if c.Audit.DropIfFull {
		add("audit_drop_if_full", LintInfo, "audit events are dropped under backpressure")
	}

	return ws
}
