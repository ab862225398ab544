package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/goAccount/store"
)

type RecoveryMetrics struct {
	RecoveryRequest          int
	RecoveryConfirmSuccess   int
	RecoveryConfirmFailure   int
	RecoveryRateLimited      int
	RecoveryAttemptsExceeded int
}

type RecoveryEvents struct {
	RecoveryRequest      string
	RecoveryConfirm      string
	RecoveryCodeRejected string
	RecoveryRateLimited  string
}

type RecoveryErrors struct {
	EngineNotReady       error
	RecoveryDisabled     error
	InvalidInput         error
	RateLimited          error
	AccountNotFound      error
	AccountDisabled      error
	CodeInvalid          error
	PasswordPolicy       error
	ChallengeUnavailable error
}

type RecoveryDeps struct {
	Enabled           bool
	AllowPasswordless bool
	MaxCodeAttempts   int

	ClientIPFromContext func(context.Context) string

	ConsumeLimiter  func(context.Context, string) error
	CheckLimiter    func(context.Context, string) error
	ResetLimiter    func(context.Context, string) error
	MapLimiterError func(error) error

	GetAccount    func(context.Context, string) (store.Account, error)
	UpdateAccount func(context.Context, string, func(*store.Account) error) error
	IsNotFound    func(error) bool
	MapStoreError func(error) error

	GenerateCode     func() (string, error)
	SaveChallenge    func(ctx context.Context, handle, code string) error
	ConsumeChallenge func(ctx context.Context, handle, code string, maxAttempts int) error
	// ClassifyChallenge reports whether err means the code was rejected and,
	// if so, whether the challenge was dropped for too many attempts.
	ClassifyChallenge func(err error) (rejected, exhausted bool)
	DeliverCode       func(ctx context.Context, handle, code string) error

	ValidatePassword func(string) error
	NewSalt          func() (string, error)
	HashPassword     func(password, salt string) (string, error)

	MetricInc func(int)
	EmitAudit AuditFunc

	Metrics RecoveryMetrics
	Events  RecoveryEvents
	Errors  RecoveryErrors
}

// RunRequestRecovery issues a fresh recovery code for handle, replacing any
// outstanding one, and hands it to the out-of-band delivery channel. The code
// is never returned to the caller.
func RunRequestRecovery(ctx context.Context, handle string, deps RecoveryDeps) error {
	normalizeRecoveryDeps(&deps)

	if !deps.Enabled {
		deps.EmitAudit(ctx, deps.Events.RecoveryRequest, false, handle, deps.Errors.RecoveryDisabled, reasonMeta("feature_disabled"))
		return deps.Errors.RecoveryDisabled
	}
	if deps.GetAccount == nil || deps.SaveChallenge == nil || deps.GenerateCode == nil || deps.DeliverCode == nil {
		return deps.Errors.EngineNotReady
	}
	if handle == "" {
		deps.EmitAudit(ctx, deps.Events.RecoveryRequest, false, "", deps.Errors.InvalidInput, reasonMeta("empty_handle"))
		return deps.Errors.InvalidInput
	}

	ip := deps.ClientIPFromContext(ctx)
	if err := deps.ConsumeLimiter(ctx, ip); err != nil {
		return rejectLimited(ctx, handle, err, &deps)
	}

	account, err := deps.GetAccount(ctx, handle)
	if err != nil {
		if deps.IsNotFound(err) {
			deps.EmitAudit(ctx, deps.Events.RecoveryRequest, false, handle, deps.Errors.AccountNotFound, reasonMeta("not_found"))
			return deps.Errors.AccountNotFound
		}
		mapped := deps.MapStoreError(err)
		deps.EmitAudit(ctx, deps.Events.RecoveryRequest, false, handle, mapped, reasonMeta("store_error"))
		return mapped
	}
	if !account.Enabled {
		deps.EmitAudit(ctx, deps.Events.RecoveryRequest, false, handle, deps.Errors.AccountDisabled, reasonMeta("disabled"))
		return deps.Errors.AccountDisabled
	}

	code, err := deps.GenerateCode()
	if err != nil {
		return deps.Errors.ChallengeUnavailable
	}
	if err := deps.SaveChallenge(ctx, account.Handle, code); err != nil {
		deps.EmitAudit(ctx, deps.Events.RecoveryRequest, false, handle, deps.Errors.ChallengeUnavailable, reasonMeta("challenge_store_error"))
		return deps.Errors.ChallengeUnavailable
	}
	if err := deps.DeliverCode(ctx, account.Handle, code); err != nil {
		deps.EmitAudit(ctx, deps.Events.RecoveryRequest, false, handle, err, reasonMeta("delivery_failed"))
		return err
	}

	deps.MetricInc(deps.Metrics.RecoveryRequest)
	deps.EmitAudit(ctx, deps.Events.RecoveryRequest, true, handle, nil, nil)
	return nil
}

// RunConfirmRecovery verifies code for handle and, on a match, sets the new
// password (or clears it when newPassword is empty). A wrong code spends one
// recovery point. The record is mutated only after the code matched.
func RunConfirmRecovery(ctx context.Context, handle, code, newPassword string, deps RecoveryDeps) error {
	normalizeRecoveryDeps(&deps)

	if !deps.Enabled {
		deps.EmitAudit(ctx, deps.Events.RecoveryConfirm, false, handle, deps.Errors.RecoveryDisabled, reasonMeta("feature_disabled"))
		return deps.Errors.RecoveryDisabled
	}
	if deps.GetAccount == nil || deps.UpdateAccount == nil || deps.ConsumeChallenge == nil || deps.HashPassword == nil || deps.NewSalt == nil {
		return deps.Errors.EngineNotReady
	}
	if handle == "" || code == "" {
		deps.EmitAudit(ctx, deps.Events.RecoveryConfirm, false, handle, deps.Errors.InvalidInput, reasonMeta("missing_field"))
		return deps.Errors.InvalidInput
	}

	account, err := deps.GetAccount(ctx, handle)
	if err != nil {
		if deps.IsNotFound(err) {
			deps.EmitAudit(ctx, deps.Events.RecoveryConfirm, false, handle, deps.Errors.AccountNotFound, reasonMeta("not_found"))
			return deps.Errors.AccountNotFound
		}
		mapped := deps.MapStoreError(err)
		deps.EmitAudit(ctx, deps.Events.RecoveryConfirm, false, handle, mapped, reasonMeta("store_error"))
		return mapped
	}
	if !account.Enabled {
		deps.EmitAudit(ctx, deps.Events.RecoveryConfirm, false, handle, deps.Errors.AccountDisabled, reasonMeta("disabled"))
		return deps.Errors.AccountDisabled
	}

	if newPassword == "" {
		if !deps.AllowPasswordless {
			deps.EmitAudit(ctx, deps.Events.RecoveryConfirm, false, handle, deps.Errors.PasswordPolicy, reasonMeta("password_required"))
			return deps.Errors.PasswordPolicy
		}
	} else if err := deps.ValidatePassword(newPassword); err != nil {
		deps.EmitAudit(ctx, deps.Events.RecoveryConfirm, false, handle, deps.Errors.PasswordPolicy, reasonMeta("password_policy"))
		return deps.Errors.PasswordPolicy
	}

	ip := deps.ClientIPFromContext(ctx)
	if err := deps.CheckLimiter(ctx, ip); err != nil {
		return rejectLimited(ctx, handle, err, &deps)
	}

	if err := deps.ConsumeChallenge(ctx, account.Handle, code, deps.MaxCodeAttempts); err != nil {
		rejected, exhausted := deps.ClassifyChallenge(err)
		if !rejected {
			deps.EmitAudit(ctx, deps.Events.RecoveryConfirm, false, handle, deps.Errors.ChallengeUnavailable, reasonMeta("challenge_store_error"))
			return deps.Errors.ChallengeUnavailable
		}
		if exhausted {
			deps.MetricInc(deps.Metrics.RecoveryAttemptsExceeded)
		}
		if limErr := deps.ConsumeLimiter(ctx, ip); limErr != nil {
			return rejectLimited(ctx, handle, limErr, &deps)
		}
		deps.MetricInc(deps.Metrics.RecoveryConfirmFailure)
		deps.EmitAudit(ctx, deps.Events.RecoveryCodeRejected, false, handle, deps.Errors.CodeInvalid, func() map[string]string {
			if exhausted {
				return map[string]string{"challenge": "discarded"}
			}
			return nil
		})
		return deps.Errors.CodeInvalid
	}

	var salt, hash string
	if newPassword != "" {
		salt, err = deps.NewSalt()
		if err != nil {
			return err
		}
		hash, err = deps.HashPassword(newPassword, salt)
		if err != nil {
			deps.EmitAudit(ctx, deps.Events.RecoveryConfirm, false, handle, deps.Errors.PasswordPolicy, reasonMeta("hash_failed"))
			return deps.Errors.PasswordPolicy
		}
	}

	err = deps.UpdateAccount(ctx, account.Handle, func(a *store.Account) error {
		a.PasswordSalt = salt
		a.PasswordHash = hash
		return nil
	})
	if err != nil {
		if deps.IsNotFound(err) {
			deps.EmitAudit(ctx, deps.Events.RecoveryConfirm, false, handle, deps.Errors.AccountNotFound, reasonMeta("removed_concurrently"))
			return deps.Errors.AccountNotFound
		}
		mapped := deps.MapStoreError(err)
		deps.EmitAudit(ctx, deps.Events.RecoveryConfirm, false, handle, mapped, reasonMeta("store_error"))
		return mapped
	}

	_ = deps.ResetLimiter(ctx, ip)

	deps.MetricInc(deps.Metrics.RecoveryConfirmSuccess)
	deps.EmitAudit(ctx, deps.Events.RecoveryConfirm, true, handle, nil, func() map[string]string {
		return map[string]string{"passwordless": boolString(hash == "")}
	})
	return nil
}

func rejectLimited(ctx context.Context, handle string, err error, deps *RecoveryDeps) error {
	mapped := deps.MapLimiterError(err)
	if errors.Is(mapped, deps.Errors.RateLimited) {
		deps.MetricInc(deps.Metrics.RecoveryRateLimited)
		deps.EmitAudit(ctx, deps.Events.RecoveryRateLimited, false, handle, mapped, nil)
	} else {
		deps.EmitAudit(ctx, deps.Events.RecoveryRateLimited, false, handle, mapped, reasonMeta("limiter_unavailable"))
	}
	return mapped
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func normalizeRecoveryDeps(deps *RecoveryDeps) {
	if deps.ClientIPFromContext == nil {
		deps.ClientIPFromContext = func(context.Context) string { return "" }
	}
	if deps.CheckLimiter == nil {
		deps.CheckLimiter = func(context.Context, string) error { return nil }
	}
	if deps.ConsumeLimiter == nil {
		deps.ConsumeLimiter = func(context.Context, string) error { return nil }
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
	if deps.ClassifyChallenge == nil {
		deps.ClassifyChallenge = func(error) (bool, bool) { return true, false }
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
