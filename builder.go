package goAccount

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/goAccount/internal/audit"
	"github.com/MrEthical07/goAccount/internal/limiters"
	"github.com/MrEthical07/goAccount/internal/logging"
	"github.com/MrEthical07/goAccount/internal/rate"
	"github.com/MrEthical07/goAccount/internal/stores"
	"github.com/MrEthical07/goAccount/password"
	"github.com/MrEthical07/goAccount/store"
	"github.com/MrEthical07/goAccount/store/memory"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an Engine. A Builder can be used once.
type Builder struct {
	config Config
	store  store.Store
	redis  redis.UniversalClient

	logger    logging.Logger
	auditSink AuditSink
	notifier  RecoveryNotifier
	purger    DataPurger
	now       func() time.Time

	built bool
}

// New returns a Builder with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithStore sets the credential store. Without one the engine keeps accounts
// in memory only.
func (b *Builder) WithStore(s store.Store) *Builder {
	b.store = s
	return b
}

// WithRedis moves the login and recovery limiters and the recovery challenge
// store to Redis, so that budgets and codes are shared between processes.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

func (b *Builder) WithLogger(l logging.Logger) *Builder {
	b.logger = l
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithRecoveryNotifier sets the out-of-band channel for recovery codes. The
// default logs codes to the operator console.
func (b *Builder) WithRecoveryNotifier(n RecoveryNotifier) *Builder {
	b.notifier = n
	return b
}

func (b *Builder) WithDataPurger(p DataPurger) *Builder {
	b.purger = p
	return b
}

// WithClock injects the time source used for expiry, windows and Created.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires every component.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := b.config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	pm, err := password.NewManager(cfg.passwordOptions())
	if err != nil {
		return nil, err
	}

	now := b.now
	if now == nil {
		now = time.Now
	}
	logger := b.logger
	if logger == nil {
		logger = logging.Nop()
	}
	accounts := b.store
	if accounts == nil {
		accounts = memory.New(nil, nil)
	}
	notifier := b.notifier
	if notifier == nil {
		notifier = LogNotifier{Logger: logger}
	}

	engine := &Engine{
		config:    cfg,
		store:     accounts,
		passwords: pm,
		notifier:  notifier,
		purger:    b.purger,
		logger:    logger,
		now:       now,
		metrics:   NewMetrics(cfg.Metrics),
	}

	// -------- LIMITERS + CHALLENGES --------
	loginPolicy := rate.Policy{Points: cfg.Login.MaxAttempts, Duration: cfg.Login.Window}
	recoveryPolicy := rate.Policy{Points: cfg.Recovery.MaxAttempts, Duration: cfg.Recovery.Window}

	if b.redis != nil {
		engine.sharedBackend = true
		engine.loginLimiter = limiters.NewLoginLimiter(rate.NewRedis(b.redis, cfg.Redis.Prefix+":rl", loginPolicy))
		engine.recoveryLimiter = limiters.NewRecoveryLimiter(rate.NewRedis(b.redis, cfg.Redis.Prefix+":rl", recoveryPolicy))
		engine.challenges = stores.NewRedisChallengeStore(b.redis, cfg.Redis.Prefix+":recovery", cfg.Recovery.CodeTTL, now)
	} else {
		loginMem := rate.NewMemory(loginPolicy, now)
		recoveryMem := rate.NewMemory(recoveryPolicy, now)
		challengeMem := stores.NewMemoryChallengeStore(cfg.Recovery.CodeTTL, now)

		engine.loginLimiter = limiters.NewLoginLimiter(loginMem)
		engine.recoveryLimiter = limiters.NewRecoveryLimiter(recoveryMem)
		engine.challenges = challengeMem

		if cfg.Recovery.SweepInterval > 0 {
			ctx, cancel := context.WithCancel(context.Background())
			engine.stopSweep = cancel
			engine.sweepDone = make(chan struct{})
			go engine.sweep(ctx, cfg.Recovery.SweepInterval, func() {
				loginMem.Sweep()
				recoveryMem.Sweep()
				challengeMem.Cache().Sweep()
			})
		}
	}

	engine.audit = audit.NewDispatcher(audit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink, now)

	engine.initFlows()

	b.built = true

	return engine, nil
}
