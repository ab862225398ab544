package goAccount

import (
	"context"

	"github.com/MrEthical07/goAccount/internal"
)

// CreateAccount adds an account. The first account in an empty store is
// always an administrator and needs no caller; afterwards the caller must be
// an administrator.
func (e *Engine) CreateAccount(ctx context.Context, req CreateAccountRequest) (*CreateAccountResult, error) {
	if e == nil || !e.flow.Initialized() {
		return nil, ErrEngineNotReady
	}
	return e.flow.CreateAccount(ctx, req)
}

// ChangePassword sets or clears a password. Callers change their own;
// administrators change anyone's without the old password.
func (e *Engine) ChangePassword(ctx context.Context, req ChangePasswordRequest) error {
	if e == nil || !e.flow.Initialized() {
		return ErrEngineNotReady
	}
	req.Handle = internal.NormalizeHandle(req.Handle)
	return e.flow.ChangePassword(ctx, req)
}

func (e *Engine) ChangeName(ctx context.Context, handle, name string) error {
	if e == nil || !e.flow.Initialized() {
		return ErrEngineNotReady
	}
	return e.flow.ChangeName(ctx, internal.NormalizeHandle(handle), name)
}

// ChangeAvatar is self-only, even for administrators.
func (e *Engine) ChangeAvatar(ctx context.Context, handle, avatar string) error {
	if e == nil || !e.flow.Initialized() {
		return ErrEngineNotReady
	}
	return e.flow.ChangeAvatar(ctx, internal.NormalizeHandle(handle), avatar)
}

// CurrentAccount returns the caller's own account.
func (e *Engine) CurrentAccount(ctx context.Context) (*AccountView, error) {
	if e == nil || !e.flow.Initialized() {
		return nil, ErrEngineNotReady
	}
	return e.flow.CurrentAccount(ctx)
}

// EnsureFallbackAccount creates the passwordless fallback administrator when
// Account.CreateFallback is set and the store is empty. It reports whether an
// account was created.
func (e *Engine) EnsureFallbackAccount(ctx context.Context) (bool, error) {
	if e == nil || !e.flow.Initialized() {
		return false, ErrEngineNotReady
	}
	if !e.config.Account.CreateFallback {
		return false, nil
	}

	unlock := e.lockCreate()
	defer unlock()

	existing, err := e.store.List(ctx, nil)
	if err != nil {
		return false, e.mapStoreError(err)
	}
	if len(existing) > 0 {
		return false, nil
	}

	fallback := Account{
		Handle:  e.config.Account.FallbackHandle,
		Name:    e.config.Account.DefaultName,
		Admin:   true,
		Enabled: true,
		Created: e.now().UnixMilli(),
	}
	if err := e.store.Set(ctx, fallback); err != nil {
		return false, e.mapStoreError(err)
	}

	e.logger.Info(ctx, "fallback account created", "handle", fallback.Handle)
	e.emitAudit(ctx, auditEventAccountCreated, true, fallback.Handle, nil, func() map[string]string {
		return map[string]string{"fallback": "true"}
	})
	return true, nil
}
