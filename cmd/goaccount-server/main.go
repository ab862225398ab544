package main

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goAccount "github.com/MrEthical07/goAccount"
	"github.com/MrEthical07/goAccount/httpapi"
	"github.com/MrEthical07/goAccount/internal/backend"
	"github.com/MrEthical07/goAccount/internal/logging"
	"github.com/MrEthical07/goAccount/internal/serverconfig"
	"github.com/MrEthical07/goAccount/jwt"
	"github.com/MrEthical07/goAccount/metrics/export/prometheus"
	"github.com/gin-gonic/gin"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Getenv); err != nil {
		fmt.Fprintf(os.Stderr, "goaccount-server: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, getenv func(string) string) error {
	cfg, err := serverconfig.Load(args, getenv)
	if err != nil {
		return err
	}

	slogger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}))
	logger := logging.NewSlogLogger(slogger)

	be, err := backend.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer be.Close()

	engineCfg := cfg.EngineConfig()
	for _, w := range engineCfg.Lint() {
		logger.Warn(ctx, "config lint", "code", w.Code, "severity", w.Severity.String(), "message", w.Message)
	}

	b := be.Builder(engineCfg).WithLogger(logger)
	if engineCfg.Audit.Enabled {
		b.WithAuditSink(goAccount.NewLoggerSink(slogger.With("component", "audit")))
	}

	engine, err := b.Build()
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}
	defer engine.Close()

	created, err := engine.EnsureFallbackAccount(ctx)
	if err != nil {
		return fmt.Errorf("fallback account: %w", err)
	}
	if created {
		logger.Warn(ctx, "created passwordless fallback administrator", "handle", engineCfg.Account.FallbackHandle)
	}

	secret := []byte(cfg.SessionSecret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return fmt.Errorf("generate session secret: %w", err)
		}
		logger.Warn(ctx, "no session secret configured; sessions end when the process restarts")
	}
	sessions, err := jwt.NewManager(jwt.Config{
		TTL:           cfg.SessionTTL,
		SigningMethod: jwt.MethodHS256,
		PrivateKey:    secret,
		Issuer:        "goaccount",
		Leeway:        30 * time.Second,
	})
	if err != nil {
		return fmt.Errorf("session manager: %w", err)
	}

	opts := httpapi.Options{
		Discreet:          cfg.Discreet,
		SecureCookie:      cfg.SecureCookie,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Burst:             cfg.Burst,
	}
	if engineCfg.Metrics.Enabled {
		opts.Metrics = prometheus.New(engine).Handler()
	}

	gin.SetMode(gin.ReleaseMode)
	handler, err := httpapi.New(engine, sessions, logger, opts).Handler()
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "listening", "addr", cfg.Listen, "store", cfg.Store, "purge", cfg.Purge)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info(context.Background(), "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}
