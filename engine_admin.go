package goAccount

import (
	"context"

	"github.com/MrEthical07/goAccount/internal"
)

// ListAccounts returns one page of accounts ordered by creation time. The
// search filter matches name and handle case-insensitively and is applied
// before paging. Administrator only.
func (e *Engine) ListAccounts(ctx context.Context, q ListQuery) (*AccountPage, error) {
	if e == nil || !e.flow.Initialized() {
		return nil, ErrEngineNotReady
	}
	return e.flow.ListAccounts(ctx, q)
}

// ListPublic returns every enabled account for the public login picker.
func (e *Engine) ListPublic(ctx context.Context) ([]AccountView, error) {
	if e == nil || !e.flow.Initialized() {
		return nil, ErrEngineNotReady
	}
	return e.flow.ListPublic(ctx)
}

func (e *Engine) EnableAccount(ctx context.Context, handle string) error {
	return e.setEnabled(ctx, handle, true)
}

// DisableAccount fails with ErrSelfAction for the caller's own account.
func (e *Engine) DisableAccount(ctx context.Context, handle string) error {
	return e.setEnabled(ctx, handle, false)
}

func (e *Engine) PromoteAccount(ctx context.Context, handle string) error {
	return e.setAdmin(ctx, handle, true)
}

// DemoteAccount fails with ErrSelfAction for the caller's own account.
func (e *Engine) DemoteAccount(ctx context.Context, handle string) error {
	return e.setAdmin(ctx, handle, false)
}

// DeleteAccount removes handle. With purge set the configured DataPurger
// removes the account's data after the record is gone. The fallback account
// and the caller's own account cannot be deleted.
func (e *Engine) DeleteAccount(ctx context.Context, handle string, purge bool) error {
	if e == nil || !e.flow.Initialized() {
		return ErrEngineNotReady
	}
	return e.flow.DeleteAccount(ctx, internal.NormalizeHandle(handle), purge)
}

func (e *Engine) setEnabled(ctx context.Context, handle string, enabled bool) error {
	if e == nil || !e.flow.Initialized() {
		return ErrEngineNotReady
	}
	return e.flow.SetEnabled(ctx, internal.NormalizeHandle(handle), enabled)
}

func (e *Engine) setAdmin(ctx context.Context, handle string, admin bool) error {
	if e == nil || !e.flow.Initialized() {
		return ErrEngineNotReady
	}
	return e.flow.SetAdmin(ctx, internal.NormalizeHandle(handle), admin)
}
