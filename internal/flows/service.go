package flows

import "context"

// Service is the centralized flow runner built once by the root engine.
type Service struct {
	deps Deps
}

// New returns a flow service with immutable dependency wiring.
func New(deps Deps) Service {
	return Service{deps: deps}
}

// Initialized reports whether the service has been wired with flow deps.
func (s Service) Initialized() bool {
	return s.deps.Login.GetAccount != nil
}

func (s Service) Login(ctx context.Context, handle, password string) (*LoginResult, error) {
	return RunLogin(ctx, handle, password, s.deps.Login)
}

func (s Service) RequestRecovery(ctx context.Context, handle string) error {
	return RunRequestRecovery(ctx, handle, s.deps.Recovery)
}

func (s Service) ConfirmRecovery(ctx context.Context, handle, code, newPassword string) error {
	return RunConfirmRecovery(ctx, handle, code, newPassword, s.deps.Recovery)
}

func (s Service) CreateAccount(ctx context.Context, req CreateAccountRequest) (*CreateAccountResult, error) {
	return RunCreateAccount(ctx, req, s.deps.Account)
}

func (s Service) ChangePassword(ctx context.Context, req ChangePasswordRequest) error {
	return RunChangePassword(ctx, req, s.deps.Account)
}

func (s Service) ChangeName(ctx context.Context, handle, name string) error {
	return RunChangeName(ctx, handle, name, s.deps.Account)
}

func (s Service) ChangeAvatar(ctx context.Context, handle, avatar string) error {
	return RunChangeAvatar(ctx, handle, avatar, s.deps.Account)
}

func (s Service) CurrentAccount(ctx context.Context) (*AccountView, error) {
	return RunCurrentAccount(ctx, s.deps.Account)
}

func (s Service) ListAccounts(ctx context.Context, q ListQuery) (*AccountPage, error) {
	return RunListAccounts(ctx, q, s.deps.Admin)
}

func (s Service) ListPublic(ctx context.Context) ([]AccountView, error) {
	return RunListPublic(ctx, s.deps.Admin)
}

func (s Service) SetEnabled(ctx context.Context, handle string, enabled bool) error {
	return RunSetEnabled(ctx, handle, enabled, s.deps.Admin)
}

func (s Service) SetAdmin(ctx context.Context, handle string, admin bool) error {
	return RunSetAdmin(ctx, handle, admin, s.deps.Admin)
}

func (s Service) DeleteAccount(ctx context.Context, handle string, purge bool) error {
	return RunDeleteAccount(ctx, handle, purge, s.deps.Admin)
}
