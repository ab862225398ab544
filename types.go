package goAccount

import (
	"context"

	"github.com/MrEthical07/goAccount/internal/flows"
	"github.com/MrEthical07/goAccount/internal/logging"
	"github.com/MrEthical07/goAccount/store"
)

// Account is the persisted credential record.
type Account = store.Account

// AccountView is the caller-safe projection of an Account. It reports
// whether a password is set but never carries the hash or salt.
type AccountView = flows.AccountView

// LoginResult is returned by a successful [Engine.Login]. The HTTP layer turns
// it into a session.
type LoginResult = flows.LoginResult

// CreateAccountRequest is the input of [Engine.CreateAccount]. Handle is
// normalised before use; an empty Name becomes the configured default.
type CreateAccountRequest = flows.CreateAccountRequest

// CreateAccountResult reports the stored handle and whether the account was
// the bootstrap administrator.
type CreateAccountResult = flows.CreateAccountResult

// ChangePasswordRequest is the input of [Engine.ChangePassword]. An empty
// NewPassword makes the account passwordless.
type ChangePasswordRequest = flows.ChangePasswordRequest

// ListQuery selects one page of the administrative account list.
type ListQuery = flows.ListQuery

// AccountPage is one page of the administrative account list.
type AccountPage = flows.AccountPage

// RecoveryNotifier delivers a freshly issued recovery code out-of-band. The
// code is never returned to the requesting client.
type RecoveryNotifier interface {
	NotifyRecoveryCode(ctx context.Context, handle, code string) error
}

// RecoveryNotifierFunc adapts a function to RecoveryNotifier.
type RecoveryNotifierFunc func(ctx context.Context, handle, code string) error

func (f RecoveryNotifierFunc) NotifyRecoveryCode(ctx context.Context, handle, code string) error {
	return f(ctx, handle, code)
}

// LogNotifier prints recovery codes to the operator console through the
// structured logger. It is the default RecoveryNotifier.
type LogNotifier struct {
	Logger logging.Logger
}

func (n LogNotifier) NotifyRecoveryCode(ctx context.Context, handle, code string) error {
	log := n.Logger
	if log == nil {
		log = logging.Nop()
	}
	log.Info(ctx, "account recovery code issued", "handle", handle, "code", code)
	return nil
}

// DataPurger removes data owned by an account after the record is deleted.
type DataPurger interface {
	Purge(ctx context.Context, handle string) error
}
