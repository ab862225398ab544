package goAccount

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/MrEthical07/goAccount/internal"
	"github.com/MrEthical07/goAccount/internal/audit"
	"github.com/MrEthical07/goAccount/internal/flows"
	"github.com/MrEthical07/goAccount/internal/keylock"
	"github.com/MrEthical07/goAccount/internal/limiters"
	"github.com/MrEthical07/goAccount/internal/logging"
	"github.com/MrEthical07/goAccount/internal/stores"
	"github.com/MrEthical07/goAccount/password"
	"github.com/MrEthical07/goAccount/store"
)

// Engine authenticates account holders, runs the recovery-code protocol and
// serves the administrative surface over one credential store.
//
// Engine instances are built by [Builder] and safe for concurrent use.
type Engine struct {
	config Config
	store  store.Store

	loginLimiter    *limiters.LoginLimiter
	recoveryLimiter *limiters.RecoveryLimiter
	challenges      stores.ChallengeStore
	passwords       *password.Manager
	sharedBackend   bool

	notifier RecoveryNotifier
	purger   DataPurger
	logger   logging.Logger
	audit    *audit.Dispatcher
	metrics  *Metrics
	now      func() time.Time

	// locks serialises read-modify-write cycles per handle; createMu
	// serialises creation so the bootstrap check sees every account.
	locks    keylock.Map
	createMu sync.Mutex

	flow flows.Service

	stopSweep context.CancelFunc
	sweepDone chan struct{}
	closeOnce sync.Once
}

// Close stops background sweeping and drains the audit dispatcher.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.closeOnce.Do(func() {
		if e.stopSweep != nil {
			e.stopSweep()
			<-e.sweepDone
		}
		e.audit.Close()
	})
}

// AuditDropped reports audit events lost to dispatcher backpressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() Config {
	if e == nil {
		return Config{}
	}
	return e.config
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) sweep(ctx context.Context, interval time.Duration, fn func()) {
	defer close(e.sweepDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}

/*
====================================
STORE DISCIPLINE
====================================
*/

// updateAccount reads handle, applies mutate and writes the full record back
// while holding the per-handle lock. mutate errors abort without a write.
func (e *Engine) updateAccount(ctx context.Context, handle string, mutate func(*store.Account) error) error {
	unlock := e.locks.Lock(handle)
	defer unlock()

	account, err := e.store.Get(ctx, handle)
	if err != nil {
		return err
	}
	if err := mutate(&account); err != nil {
		return err
	}
	return e.store.Set(ctx, account)
}

func (e *Engine) removeAccount(ctx context.Context, handle string) error {
	unlock := e.locks.Lock(handle)
	defer unlock()

	return e.store.Remove(ctx, handle)
}

func (e *Engine) lockCreate() func() {
	e.createMu.Lock()
	return e.createMu.Unlock
}

func (e *Engine) mapStoreError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrInvalidHandle):
		return ErrInvalidHandle
	case errors.Is(err, store.ErrNotFound):
		return ErrAccountNotFound
	default:
		e.logger.Error(context.Background(), "account store failure", "error", err)
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}

func mapLimiterError(limited error) func(error) error {
	return func(err error) error {
		switch {
		case err == nil:
			return nil
		case errors.Is(err, limiters.ErrLoginRateLimited),
			errors.Is(err, limiters.ErrRecoveryRateLimited):
			return limited
		default:
			return fmt.Errorf("%w: %v", ErrLimiterUnavailable, err)
		}
	}
}

func classifyChallenge(err error) (rejected, exhausted bool) {
	switch {
	case errors.Is(err, stores.ErrChallengeAttemptsExceeded):
		return true, true
	case errors.Is(err, stores.ErrChallengeMismatch),
		errors.Is(err, stores.ErrChallengeNotFound):
		return true, false
	default:
		return false, false
	}
}

/*
====================================
CALLER IDENTITY
====================================
*/

// resolveActor loads the caller's account on every call so a disabled or
// demoted session loses its rights immediately.
func (e *Engine) resolveActor(ctx context.Context) (flows.Actor, error) {
	a, ok := actorFromContext(ctx)
	if !ok {
		return flows.Actor{}, ErrUnauthorized
	}
	if a.operator {
		return flows.Actor{Admin: true, Operator: true}, nil
	}

	account, err := e.store.Get(ctx, a.handle)
	if err != nil {
		if isNotFound(err) {
			return flows.Actor{}, ErrUnauthorized
		}
		return flows.Actor{}, e.mapStoreError(err)
	}
	if !account.Enabled {
		return flows.Actor{}, ErrUnauthorized
	}
	return flows.Actor{Handle: account.Handle, Admin: account.Admin}, nil
}

/*
====================================
PASSWORDS
====================================
*/

func (e *Engine) validatePassword(pw string) error {
	if len(pw) > e.config.Password.MaxPasswordBytes {
		return ErrPasswordPolicy
	}
	if utf8.RuneCountInString(pw) < e.config.Password.MinLength {
		return ErrPasswordPolicy
	}
	return nil
}

func (e *Engine) needsRehash(hash string) bool {
	upgrade, err := e.passwords.NeedsUpgrade(hash)
	return err == nil && upgrade
}

func (e *Engine) rehashPassword(ctx context.Context, handle, pw string) error {
	return e.updateAccount(ctx, handle, func(a *store.Account) error {
		salt, err := password.GenerateSalt()
		if err != nil {
			return err
		}
		hash, err := e.passwords.Hash(pw, salt)
		if err != nil {
			return err
		}
		a.PasswordSalt, a.PasswordHash = salt, hash
		return nil
	})
}

/*
====================================
FLOW WIRING
====================================
*/

func (e *Engine) initFlows() {
	cfg := e.config

	e.flow = flows.New(flows.Deps{
		Login: flows.LoginDeps{
			AllowPasswordless:   cfg.Account.AllowPasswordless,
			UpgradeOnLogin:      cfg.Password.UpgradeOnLogin,
			ClientIPFromContext: clientIPFromContext,
			Now:                 e.now,
			ConsumeLimiter:      e.loginLimiter.Consume,
			ResetLimiter:        e.loginLimiter.Reset,
			MapLimiterError:     mapLimiterError(ErrLoginRateLimited),
			GetAccount:          e.store.Get,
			IsNotFound:          isNotFound,
			MapStoreError:       e.mapStoreError,
			VerifyPassword:      e.passwords.Verify,
			NeedsRehash:         e.needsRehash,
			RehashPassword:      e.rehashPassword,
			MetricInc:           func(id int) { e.metricInc(MetricID(id)) },
			ObserveLatency:      func(d time.Duration) { e.metrics.Observe(MetricLoginLatency, d) },
			EmitAudit:           e.emitAudit,
			Metrics: flows.LoginMetrics{
				LoginSuccess:     int(MetricLoginSuccess),
				LoginFailure:     int(MetricLoginFailure),
				LoginRateLimited: int(MetricLoginRateLimited),
				PasswordRehashed: int(MetricPasswordRehashed),
			},
			Events: flows.LoginEvents{
				LoginSuccess:     auditEventLoginSuccess,
				LoginFailure:     auditEventLoginFailure,
				LoginRateLimited: auditEventLoginRateLimited,
			},
			Errors: flows.LoginErrors{
				EngineNotReady:     ErrEngineNotReady,
				InvalidInput:       ErrInvalidInput,
				RateLimited:        ErrLoginRateLimited,
				AccountNotFound:    ErrAccountNotFound,
				AccountDisabled:    ErrAccountDisabled,
				InvalidCredentials: ErrInvalidCredentials,
			},
		},
		Recovery: flows.RecoveryDeps{
			Enabled:             cfg.Recovery.Enabled,
			AllowPasswordless:   cfg.Account.AllowPasswordless,
			MaxCodeAttempts:     cfg.Recovery.MaxCodeAttempts,
			ClientIPFromContext: clientIPFromContext,
			ConsumeLimiter:      e.recoveryLimiter.Consume,
			CheckLimiter:        e.recoveryLimiter.Check,
			ResetLimiter:        e.recoveryLimiter.Reset,
			MapLimiterError:     mapLimiterError(ErrRecoveryRateLimited),
			GetAccount:          e.store.Get,
			UpdateAccount:       e.updateAccount,
			IsNotFound:          isNotFound,
			MapStoreError:       e.mapStoreError,
			GenerateCode:        internal.NewRecoveryCode,
			SaveChallenge:       e.challenges.Save,
			ConsumeChallenge:    e.challenges.Consume,
			ClassifyChallenge:   classifyChallenge,
			DeliverCode:         e.notifier.NotifyRecoveryCode,
			ValidatePassword:    e.validatePassword,
			NewSalt:             password.GenerateSalt,
			HashPassword:        e.passwords.Hash,
			MetricInc:           func(id int) { e.metricInc(MetricID(id)) },
			EmitAudit:           e.emitAudit,
			Metrics: flows.RecoveryMetrics{
				RecoveryRequest:          int(MetricRecoveryRequest),
				RecoveryConfirmSuccess:   int(MetricRecoveryConfirmSuccess),
				RecoveryConfirmFailure:   int(MetricRecoveryConfirmFailure),
				RecoveryRateLimited:      int(MetricRecoveryRateLimited),
				RecoveryAttemptsExceeded: int(MetricRecoveryAttemptsExceeded),
			},
			Events: flows.RecoveryEvents{
				RecoveryRequest:      auditEventRecoveryRequest,
				RecoveryConfirm:      auditEventRecoveryConfirm,
				RecoveryCodeRejected: auditEventRecoveryCodeRejected,
				RecoveryRateLimited:  auditEventRecoveryRateLimited,
			},
			Errors: flows.RecoveryErrors{
				EngineNotReady:       ErrEngineNotReady,
				RecoveryDisabled:     ErrRecoveryDisabled,
				InvalidInput:         ErrInvalidInput,
				RateLimited:          ErrRecoveryRateLimited,
				AccountNotFound:      ErrAccountNotFound,
				AccountDisabled:      ErrAccountDisabled,
				CodeInvalid:          ErrRecoveryCodeInvalid,
				PasswordPolicy:       ErrPasswordPolicy,
				ChallengeUnavailable: ErrRecoveryUnavailable,
			},
		},
		Account: flows.AccountDeps{
			DefaultName:       cfg.Account.DefaultName,
			AllowPasswordless: cfg.Account.AllowPasswordless,
			Now:               e.now,
			ResolveActor:      e.resolveActor,
			NormalizeHandle:   internal.NormalizeHandle,
			ValidHandle:       store.ValidKey,
			LockCreate:        e.lockCreate,
			ListAccounts:      e.store.List,
			GetAccount:        e.store.Get,
			PutAccount:        e.store.Set,
			UpdateAccount:     e.updateAccount,
			IsNotFound:        isNotFound,
			MapStoreError:     e.mapStoreError,
			ValidatePassword:  e.validatePassword,
			NewSalt:           password.GenerateSalt,
			HashPassword:      e.passwords.Hash,
			VerifyPassword:    e.passwords.Verify,
			MetricInc:         func(id int) { e.metricInc(MetricID(id)) },
			EmitAudit:         e.emitAudit,
			Metrics: flows.AccountMetrics{
				AccountCreated:        int(MetricAccountCreated),
				AccountDuplicate:      int(MetricAccountDuplicate),
				PasswordChangeSuccess: int(MetricPasswordChangeSuccess),
				PasswordChangeInvalid: int(MetricPasswordChangeInvalidOld),
			},
			Events: flows.AccountEvents{
				AccountCreated:           auditEventAccountCreated,
				AccountCreationFailure:   auditEventAccountCreationFailure,
				AccountCreationDuplicate: auditEventAccountCreationDuplicate,
				PasswordChange:           auditEventPasswordChange,
				ProfileChange:            auditEventProfileChange,
			},
			Errors: flows.AccountErrors{
				EngineNotReady:     ErrEngineNotReady,
				InvalidInput:       ErrInvalidInput,
				InvalidHandle:      ErrInvalidHandle,
				AccountExists:      ErrAccountExists,
				AccountNotFound:    ErrAccountNotFound,
				AccountDisabled:    ErrAccountDisabled,
				InvalidCredentials: ErrInvalidCredentials,
				PasswordPolicy:     ErrPasswordPolicy,
				Forbidden:          ErrForbidden,
				Unauthorized:       ErrUnauthorized,
			},
		},
		Admin: flows.AdminDeps{
			FallbackHandle:  cfg.Account.FallbackHandle,
			DefaultPageSize: cfg.Admin.DefaultPageSize,
			MaxPageSize:     cfg.Admin.MaxPageSize,
			ResolveActor:    e.resolveActor,
			ListAccounts:    e.store.List,
			GetAccount:      e.store.Get,
			UpdateAccount:   e.updateAccount,
			RemoveAccount:   e.removeAccount,
			IsNotFound:      isNotFound,
			MapStoreError:   e.mapStoreError,
			PurgeData:       e.purgeData(),
			MetricInc:       func(id int) { e.metricInc(MetricID(id)) },
			EmitAudit:       e.emitAudit,
			Metrics: flows.AdminMetrics{
				AccountDeleted:  int(MetricAccountDeleted),
				AccountDisabled: int(MetricAccountDisabled),
				AdminList:       int(MetricAdminList),
			},
			Events: flows.AdminEvents{
				AccountStatusChange: auditEventAccountStatusChange,
				AccountRoleChange:   auditEventAccountRoleChange,
				AccountDeleted:      auditEventAccountDeleted,
			},
			Errors: flows.AdminErrors{
				EngineNotReady:   ErrEngineNotReady,
				InvalidInput:     ErrInvalidInput,
				AccountNotFound:  ErrAccountNotFound,
				SelfAction:       ErrSelfAction,
				FallbackAccount:  ErrFallbackAccount,
				Forbidden:        ErrForbidden,
				Unauthorized:     ErrUnauthorized,
				PurgeUnavailable: ErrPurgeFailed,
			},
		},
	})
}

func (e *Engine) purgeData() func(context.Context, string) error {
	if e.purger == nil {
		return nil
	}
	return func(ctx context.Context, handle string) error {
		if err := e.purger.Purge(ctx, handle); err != nil {
			e.logger.Error(ctx, "account data purge failed", "handle", handle, "error", err)
			return err
		}
		return nil
	}
}
