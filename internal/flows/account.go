package flows

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/MrEthical07/goAccount/store"
)

const maxAvatarBytes = 512 << 10

type CreateAccountRequest struct {
	Handle   string
	Name     string
	Password string
	Avatar   string
	Admin    bool
}

type CreateAccountResult struct {
	Handle    string
	Admin     bool
	Bootstrap bool
}

type ChangePasswordRequest struct {
	Handle      string
	OldPassword string
	NewPassword string
}

type AccountMetrics struct {
	AccountCreated        int
	AccountDuplicate      int
	PasswordChangeSuccess int
	PasswordChangeInvalid int
}

type AccountEvents struct {
	AccountCreated           string
	AccountCreationFailure   string
	AccountCreationDuplicate string
	PasswordChange           string
	ProfileChange            string
}

type AccountErrors struct {
	EngineNotReady     error
	InvalidInput       error
	InvalidHandle      error
	AccountExists      error
	AccountNotFound    error
	AccountDisabled    error
	InvalidCredentials error
	PasswordPolicy     error
	Forbidden          error
	Unauthorized       error
}

type AccountDeps struct {
	DefaultName       string
	AllowPasswordless bool

	Now             func() time.Time
	ResolveActor    func(context.Context) (Actor, error)
	NormalizeHandle func(string) string
	ValidHandle     func(string) bool

	// LockCreate serialises account creation so the bootstrap and duplicate
	// checks see every committed account.
	LockCreate    func() func()
	ListAccounts  func(context.Context, store.Predicate) ([]store.Account, error)
	GetAccount    func(context.Context, string) (store.Account, error)
	PutAccount    func(context.Context, store.Account) error
	UpdateAccount func(context.Context, string, func(*store.Account) error) error
	IsNotFound    func(error) bool
	MapStoreError func(error) error

	ValidatePassword func(string) error
	NewSalt          func() (string, error)
	HashPassword     func(password, salt string) (string, error)
	VerifyPassword   func(password, salt, hash string) (bool, error)

	MetricInc func(int)
	EmitAudit AuditFunc

	Metrics AccountMetrics
	Events  AccountEvents
	Errors  AccountErrors
}

// RunCreateAccount adds a new account. While the store is empty anyone may
// create the first account and it is always an administrator; afterwards only
// administrators may create accounts or grant the admin flag.
func RunCreateAccount(ctx context.Context, req CreateAccountRequest, deps AccountDeps) (*CreateAccountResult, error) {
	normalizeAccountDeps(&deps)

	if deps.ListAccounts == nil || deps.PutAccount == nil || deps.HashPassword == nil || deps.NewSalt == nil {
		return nil, deps.Errors.EngineNotReady
	}

	handle := deps.NormalizeHandle(req.Handle)
	if handle == "" || !deps.ValidHandle(handle) {
		deps.EmitAudit(ctx, deps.Events.AccountCreationFailure, false, req.Handle, deps.Errors.InvalidHandle, reasonMeta("invalid_handle"))
		return nil, deps.Errors.InvalidHandle
	}
	if err := checkNewPassword(req.Password, &deps); err != nil {
		deps.EmitAudit(ctx, deps.Events.AccountCreationFailure, false, handle, err, reasonMeta("password_policy"))
		return nil, err
	}
	if len(req.Avatar) > maxAvatarBytes {
		return nil, deps.Errors.InvalidInput
	}

	unlock := deps.LockCreate()
	defer unlock()

	existing, err := deps.ListAccounts(ctx, nil)
	if err != nil {
		return nil, deps.MapStoreError(err)
	}

	bootstrap := len(existing) == 0
	var actor Actor
	if !bootstrap {
		actor, err = deps.ResolveActor(ctx)
		if err != nil || !actor.Admin {
			deps.EmitAudit(ctx, deps.Events.AccountCreationFailure, false, handle, deps.Errors.Forbidden, reasonMeta("not_admin"))
			return nil, deps.Errors.Forbidden
		}
	}

	for _, a := range existing {
		if a.Handle == handle {
			deps.MetricInc(deps.Metrics.AccountDuplicate)
			deps.EmitAudit(ctx, deps.Events.AccountCreationDuplicate, false, handle, deps.Errors.AccountExists, nil)
			return nil, deps.Errors.AccountExists
		}
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = deps.DefaultName
	}

	account := store.Account{
		Handle:  handle,
		Name:    name,
		Avatar:  req.Avatar,
		Admin:   bootstrap || (req.Admin && actor.Admin),
		Enabled: true,
		Created: deps.Now().UnixMilli(),
	}
	if req.Password != "" {
		if err := setPassword(&account, req.Password, &deps); err != nil {
			return nil, err
		}
	}

	if err := deps.PutAccount(ctx, account); err != nil {
		mapped := deps.MapStoreError(err)
		deps.EmitAudit(ctx, deps.Events.AccountCreationFailure, false, handle, mapped, reasonMeta("store_error"))
		return nil, mapped
	}

	deps.MetricInc(deps.Metrics.AccountCreated)
	deps.EmitAudit(ctx, deps.Events.AccountCreated, true, handle, nil, func() map[string]string {
		return map[string]string{
			"admin":     boolString(account.Admin),
			"bootstrap": boolString(bootstrap),
		}
	})

	return &CreateAccountResult{
		Handle:    handle,
		Admin:     account.Admin,
		Bootstrap: bootstrap,
	}, nil
}

// RunChangePassword sets or clears the password of req.Handle. Callers may
// change their own password; administrators may change anyone's. A
// non-administrator must present the current password when one is set.
func RunChangePassword(ctx context.Context, req ChangePasswordRequest, deps AccountDeps) error {
	normalizeAccountDeps(&deps)

	if deps.UpdateAccount == nil || deps.HashPassword == nil || deps.VerifyPassword == nil || deps.NewSalt == nil {
		return deps.Errors.EngineNotReady
	}

	actor, err := deps.ResolveActor(ctx)
	if err != nil {
		return err
	}
	if req.Handle == "" {
		return deps.Errors.InvalidInput
	}
	if actor.Handle != req.Handle && !actor.Admin {
		deps.EmitAudit(ctx, deps.Events.PasswordChange, false, req.Handle, deps.Errors.Forbidden, reasonMeta("not_owner"))
		return deps.Errors.Forbidden
	}
	if err := checkNewPassword(req.NewPassword, &deps); err != nil {
		deps.EmitAudit(ctx, deps.Events.PasswordChange, false, req.Handle, err, reasonMeta("password_policy"))
		return err
	}

	err = deps.UpdateAccount(ctx, req.Handle, func(a *store.Account) error {
		if !a.Enabled {
			return deps.Errors.AccountDisabled
		}
		if !actor.Admin && a.HasPassword() {
			ok, verr := deps.VerifyPassword(req.OldPassword, a.PasswordSalt, a.PasswordHash)
			if verr != nil || !ok {
				return deps.Errors.InvalidCredentials
			}
		}
		if req.NewPassword == "" {
			a.PasswordHash, a.PasswordSalt = "", ""
			return nil
		}
		return setPassword(a, req.NewPassword, &deps)
	})
	if err != nil {
		mapped := mapMutationError(err, &deps)
		if errors.Is(mapped, deps.Errors.InvalidCredentials) {
			deps.MetricInc(deps.Metrics.PasswordChangeInvalid)
		}
		deps.EmitAudit(ctx, deps.Events.PasswordChange, false, req.Handle, mapped, nil)
		return mapped
	}

	deps.MetricInc(deps.Metrics.PasswordChangeSuccess)
	deps.EmitAudit(ctx, deps.Events.PasswordChange, true, req.Handle, nil, func() map[string]string {
		return map[string]string{"passwordless": boolString(req.NewPassword == "")}
	})
	return nil
}

// RunChangeName sets the display name of handle (self or administrator).
func RunChangeName(ctx context.Context, handle, name string, deps AccountDeps) error {
	normalizeAccountDeps(&deps)

	if deps.UpdateAccount == nil {
		return deps.Errors.EngineNotReady
	}

	actor, err := deps.ResolveActor(ctx)
	if err != nil {
		return err
	}
	name = strings.TrimSpace(name)
	if handle == "" || name == "" {
		return deps.Errors.InvalidInput
	}
	if actor.Handle != handle && !actor.Admin {
		return deps.Errors.Forbidden
	}

	err = deps.UpdateAccount(ctx, handle, func(a *store.Account) error {
		a.Name = name
		return nil
	})
	if err != nil {
		return mapMutationError(err, &deps)
	}

	deps.EmitAudit(ctx, deps.Events.ProfileChange, true, handle, nil, func() map[string]string {
		return map[string]string{"field": "name"}
	})
	return nil
}

// RunChangeAvatar sets the caller's own avatar. Nobody may change another
// account's avatar.
func RunChangeAvatar(ctx context.Context, handle, avatar string, deps AccountDeps) error {
	normalizeAccountDeps(&deps)

	if deps.UpdateAccount == nil {
		return deps.Errors.EngineNotReady
	}

	actor, err := deps.ResolveActor(ctx)
	if err != nil {
		return err
	}
	if handle == "" || len(avatar) > maxAvatarBytes {
		return deps.Errors.InvalidInput
	}
	if actor.Handle != handle {
		return deps.Errors.Forbidden
	}

	err = deps.UpdateAccount(ctx, handle, func(a *store.Account) error {
		a.Avatar = avatar
		return nil
	})
	if err != nil {
		return mapMutationError(err, &deps)
	}

	deps.EmitAudit(ctx, deps.Events.ProfileChange, true, handle, nil, func() map[string]string {
		return map[string]string{"field": "avatar"}
	})
	return nil
}

// RunCurrentAccount returns the caller's own account view.
func RunCurrentAccount(ctx context.Context, deps AccountDeps) (*AccountView, error) {
	normalizeAccountDeps(&deps)

	if deps.GetAccount == nil {
		return nil, deps.Errors.EngineNotReady
	}

	actor, err := deps.ResolveActor(ctx)
	if err != nil {
		return nil, err
	}
	if actor.Operator {
		return nil, deps.Errors.Unauthorized
	}

	account, err := deps.GetAccount(ctx, actor.Handle)
	if err != nil {
		if deps.IsNotFound(err) {
			return nil, deps.Errors.Unauthorized
		}
		return nil, deps.MapStoreError(err)
	}
	view := ViewOf(account)
	return &view, nil
}

func checkNewPassword(password string, deps *AccountDeps) error {
	if password == "" {
		if !deps.AllowPasswordless {
			return deps.Errors.PasswordPolicy
		}
		return nil
	}
	if err := deps.ValidatePassword(password); err != nil {
		return deps.Errors.PasswordPolicy
	}
	return nil
}

func setPassword(a *store.Account, password string, deps *AccountDeps) error {
	salt, err := deps.NewSalt()
	if err != nil {
		return err
	}
	hash, err := deps.HashPassword(password, salt)
	if err != nil {
		return deps.Errors.PasswordPolicy
	}
	a.PasswordSalt = salt
	a.PasswordHash = hash
	return nil
}

func mapMutationError(err error, deps *AccountDeps) error {
	switch {
	case deps.IsNotFound(err):
		return deps.Errors.AccountNotFound
	case errors.Is(err, deps.Errors.AccountDisabled),
		errors.Is(err, deps.Errors.InvalidCredentials),
		errors.Is(err, deps.Errors.PasswordPolicy):
		return err
	default:
		return deps.MapStoreError(err)
	}
}

func normalizeAccountDeps(deps *AccountDeps) {
	if deps.DefaultName == "" {
		deps.DefaultName = "Anonymous"
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.ResolveActor == nil {
		deps.ResolveActor = func(context.Context) (Actor, error) { return Actor{}, deps.Errors.Unauthorized }
	}
	if deps.NormalizeHandle == nil {
		deps.NormalizeHandle = strings.TrimSpace
	}
	if deps.ValidHandle == nil {
		deps.ValidHandle = store.ValidKey
	}
	if deps.LockCreate == nil {
		deps.LockCreate = func() func() { return func() {} }
	}
	if deps.IsNotFound == nil {
		deps.IsNotFound = func(err error) bool { return errors.Is(err, store.ErrNotFound) }
	}
	if deps.MapStoreError == nil {
		deps.MapStoreError = func(err error) error { return err }
	}
	if deps.ValidatePassword == nil {
		deps.ValidatePassword = func(string) error { return nil }
	}
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetric
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = noopAudit
	}
}
