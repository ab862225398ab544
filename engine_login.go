package goAccount

import (
	"context"

	"github.com/MrEthical07/goAccount/internal"
)

// Login authenticates handle with password. One login point is spent for the
// caller's address (see [WithClientIP]) before the account is read.
//
// Login returns ErrLoginRateLimited once the budget is spent, and
// ErrAccountNotFound, ErrAccountDisabled or ErrInvalidCredentials otherwise.
// The HTTP layer collapses the last three into one response.
func (e *Engine) Login(ctx context.Context, handle, password string) (*LoginResult, error) {
	if e == nil || !e.flow.Initialized() {
		return nil, ErrEngineNotReady
	}
	return e.flow.Login(ctx, internal.NormalizeHandle(handle), password)
}

// RequestRecovery issues a recovery code for handle and hands it to the
// configured RecoveryNotifier. Any outstanding code for handle is replaced.
func (e *Engine) RequestRecovery(ctx context.Context, handle string) error {
	if e == nil || !e.flow.Initialized() {
		return ErrEngineNotReady
	}
	return e.flow.RequestRecovery(ctx, internal.NormalizeHandle(handle))
}

// ConfirmRecovery checks code for handle and, on a match, sets newPassword.
// An empty newPassword makes the account passwordless when the configuration
// allows it. A wrong code spends one recovery point.
func (e *Engine) ConfirmRecovery(ctx context.Context, handle, code, newPassword string) error {
	if e == nil || !e.flow.Initialized() {
		return ErrEngineNotReady
	}
	return e.flow.ConfirmRecovery(ctx, internal.NormalizeHandle(handle), code, newPassword)
}
