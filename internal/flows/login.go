package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/goAccount/store"
)

type LoginResult struct {
	Handle string
	Admin  bool
}

type LoginMetrics struct {
	LoginSuccess     int
	LoginFailure     int
	LoginRateLimited int
	PasswordRehashed int
}

type LoginEvents struct {
	LoginSuccess     string
	LoginFailure     string
	LoginRateLimited string
}

type LoginErrors struct {
	EngineNotReady     error
	InvalidInput       error
	RateLimited        error
	AccountNotFound    error
	AccountDisabled    error
	InvalidCredentials error
}

type LoginDeps struct {
	AllowPasswordless bool
	UpgradeOnLogin    bool

	ClientIPFromContext func(context.Context) string
	Now                 func() time.Time

	ConsumeLimiter  func(context.Context, string) error
	ResetLimiter    func(context.Context, string) error
	MapLimiterError func(error) error

	GetAccount    func(context.Context, string) (store.Account, error)
	IsNotFound    func(error) bool
	MapStoreError func(error) error

	VerifyPassword func(password, salt, hash string) (bool, error)
	NeedsRehash    func(hash string) bool
	RehashPassword func(ctx context.Context, handle, password string) error

	MetricInc      func(int)
	ObserveLatency func(time.Duration)
	EmitAudit      AuditFunc

	Metrics LoginMetrics
	Events  LoginEvents
	Errors  LoginErrors
}

// RunLogin authenticates handle with password. One login point is spent for
// the caller's address before the account is read, and it is not refunded on
// failure.
func RunLogin(ctx context.Context, handle, password string, deps LoginDeps) (*LoginResult, error) {
	normalizeLoginDeps(&deps)

	if deps.GetAccount == nil || deps.VerifyPassword == nil || deps.ConsumeLimiter == nil {
		return nil, deps.Errors.EngineNotReady
	}

	start := deps.Now()
	defer func() { deps.ObserveLatency(deps.Now().Sub(start)) }()

	if handle == "" {
		deps.EmitAudit(ctx, deps.Events.LoginFailure, false, "", deps.Errors.InvalidInput, reasonMeta("empty_handle"))
		return nil, deps.Errors.InvalidInput
	}

	ip := deps.ClientIPFromContext(ctx)
	if err := deps.ConsumeLimiter(ctx, ip); err != nil {
		mapped := deps.MapLimiterError(err)
		if errors.Is(mapped, deps.Errors.RateLimited) {
			deps.MetricInc(deps.Metrics.LoginRateLimited)
			deps.EmitAudit(ctx, deps.Events.LoginRateLimited, false, handle, mapped, nil)
		} else {
			deps.EmitAudit(ctx, deps.Events.LoginFailure, false, handle, mapped, reasonMeta("limiter_unavailable"))
		}
		return nil, mapped
	}

	fail := func(err error, reason string) (*LoginResult, error) {
		deps.MetricInc(deps.Metrics.LoginFailure)
		deps.EmitAudit(ctx, deps.Events.LoginFailure, false, handle, err, reasonMeta(reason))
		return nil, err
	}

	account, err := deps.GetAccount(ctx, handle)
	if err != nil {
		if deps.IsNotFound(err) {
			return fail(deps.Errors.AccountNotFound, "not_found")
		}
		return fail(deps.MapStoreError(err), "store_error")
	}
	if !account.Enabled {
		return fail(deps.Errors.AccountDisabled, "disabled")
	}

	if account.HasPassword() {
		ok, err := deps.VerifyPassword(password, account.PasswordSalt, account.PasswordHash)
		if err != nil {
			return fail(deps.Errors.InvalidCredentials, "verify_error")
		}
		if !ok {
			return fail(deps.Errors.InvalidCredentials, "bad_password")
		}
	} else if !deps.AllowPasswordless {
		return fail(deps.Errors.InvalidCredentials, "passwordless_disabled")
	}

	_ = deps.ResetLimiter(ctx, ip)

	rehashed := false
	if deps.UpgradeOnLogin && account.HasPassword() && deps.RehashPassword != nil && deps.NeedsRehash(account.PasswordHash) {
		if err := deps.RehashPassword(ctx, handle, password); err == nil {
			rehashed = true
			deps.MetricInc(deps.Metrics.PasswordRehashed)
		}
	}

	deps.MetricInc(deps.Metrics.LoginSuccess)
	deps.EmitAudit(ctx, deps.Events.LoginSuccess, true, handle, nil, func() map[string]string {
		if !rehashed {
			return nil
		}
		return map[string]string{"rehashed": "true"}
	})

	return &LoginResult{
		Handle: account.Handle,
		Admin:  account.Admin,
	}, nil
}

func normalizeLoginDeps(deps *LoginDeps) {
	if deps.ClientIPFromContext == nil {
		deps.ClientIPFromContext = func(context.Context) string { return "" }
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.ResetLimiter == nil {
		deps.ResetLimiter = func(context.Context, string) error { return nil }
	}
	if deps.MapLimiterError == nil {
		deps.MapLimiterError = func(err error) error { return err }
	}
	if deps.IsNotFound == nil {
		deps.IsNotFound = func(err error) bool { return errors.Is(err, store.ErrNotFound) }
	}
	if deps.MapStoreError == nil {
		deps.MapStoreError = func(err error) error { return err }
	}
	if deps.NeedsRehash == nil {
		deps.NeedsRehash = func(string) bool { return false }
	}
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetric
	}
	if deps.ObserveLatency == nil {
		deps.ObserveLatency = func(time.Duration) {}
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = noopAudit
	}
}
