package goAccount

import "errors"

var (
	// ErrUnauthorized is returned when an operation needs a caller identity and none is attached.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden is returned when the caller may not act on the target account.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidInput is returned for missing or malformed request fields.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidHandle is returned when a handle normalises to nothing usable.
	ErrInvalidHandle = errors.New("invalid account handle")
	// ErrInvalidCredentials is returned when a password does not verify.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountNotFound is returned when no account exists for a handle.
	ErrAccountNotFound = errors.New("account not found")
	// ErrAccountDisabled is returned when the target account is disabled.
	ErrAccountDisabled = errors.New("account disabled")
	// ErrAccountExists is returned when creating a handle that is taken.
	ErrAccountExists = errors.New("account already exists")
	// ErrLoginRateLimited is returned when the login budget for an address is spent.
	ErrLoginRateLimited = errors.New("login rate limited")
	// ErrRecoveryRateLimited is returned when the recovery budget for an address is spent.
	ErrRecoveryRateLimited = errors.New("recovery rate limited")
	// ErrRecoveryCodeInvalid is returned for a wrong, expired or missing recovery code.
	ErrRecoveryCodeInvalid = errors.New("recovery code invalid")
	// ErrRecoveryDisabled is returned when account recovery is switched off.
	ErrRecoveryDisabled = errors.New("account recovery disabled")
	// ErrRecoveryUnavailable wraps recovery challenge backend failures.
	ErrRecoveryUnavailable = errors.New("recovery backend unavailable")
	// ErrLimiterUnavailable wraps rate limiter backend failures.
	ErrLimiterUnavailable = errors.New("rate limiter unavailable")
	// ErrStoreUnavailable wraps credential store failures.
	ErrStoreUnavailable = errors.New("account store unavailable")
	// ErrPasswordPolicy is returned when a new password violates the policy.
	ErrPasswordPolicy = errors.New("password policy violation")
	// ErrSelfAction is returned when an administrator disables, demotes or deletes themselves.
	ErrSelfAction = errors.New("cannot perform this action on your own account")
	// ErrFallbackAccount is returned when deleting the fallback account.
	ErrFallbackAccount = errors.New("the fallback account cannot be deleted")
	// ErrPurgeFailed is returned when owned data could not be removed after delete.
	ErrPurgeFailed = errors.New("account data purge failed")
	// ErrEngineNotReady is returned by a zero or partially built Engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)
