package flows

import (
	"context"

	"github.com/MrEthical07/goAccount/store"
)

// Deps groups flow dependency sets. The root engine builds this once and
// delegates request methods to the matching flow implementation.
type Deps struct {
	Login    LoginDeps
	Recovery RecoveryDeps
	Account  AccountDeps
	Admin    AdminDeps
}

// Actor is the authenticated caller of a privileged operation. Operator marks
// a trusted local caller (the admin CLI) that has no account of its own.
type Actor struct {
	Handle   string
	Admin    bool
	Operator bool
}

// AccountView is the projection of an account that is safe to return to
// callers. The hash and salt are reduced to HasPassword.
type AccountView struct {
	Handle      string `json:"handle"`
	Name        string `json:"name"`
	Avatar      string `json:"avatar,omitempty"`
	HasPassword bool   `json:"password"`
	Admin       bool   `json:"admin"`
	Enabled     bool   `json:"enabled"`
	Created     int64  `json:"created"`
}

// ViewOf projects a stored account.
func ViewOf(a store.Account) AccountView {
	return AccountView{
		Handle:      a.Handle,
		Name:        a.Name,
		Avatar:      a.Avatar,
		HasPassword: a.HasPassword(),
		Admin:       a.Admin,
		Enabled:     a.Enabled,
		Created:     a.Created,
	}
}

// AuditFunc emits one audit event. handle is the subject account; meta is
// evaluated only when auditing is enabled.
type AuditFunc func(ctx context.Context, event string, success bool, handle string, err error, meta func() map[string]string)

func noopAudit(context.Context, string, bool, string, error, func() map[string]string) {}

func noopMetric(int) {}

func reasonMeta(reason string) func() map[string]string {
	return func() map[string]string {
		return map[string]string{"reason": reason}
	}
}
