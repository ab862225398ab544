package goAccount

import (
	"context"
	"testing"

	"github.com/MrEthical07/goAccount/store/memory"
)

func TestSecurityReportReflectsConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Password.MinLength = 9
	cfg.Account.AllowPasswordless = false
	e := newTestEngine(t, cfg)

	r := e.SecurityReport()
	if r.PasswordAlgorithm != "argon2id" || r.Argon2.Memory != 8*1024 {
		t.Fatalf("unexpected password report: %+v", r)
	}
	if r.MinPasswordLength != 9 || r.PasswordlessAllowed || r.SharedBackend {
		t.Fatalf("unexpected posture: %+v", r)
	}
	if r.LoginMaxAttempts != 5 || r.RecoveryCodeTTL != cfg.Recovery.CodeTTL || r.FallbackHandle != "default-user" {
		t.Fatalf("unexpected limits: %+v", r)
	}
}

func TestLoginUpgradesOutdatedHash(t *testing.T) {
	accounts := memory.New(nil, nil)

	weak := newTestEngine(t, testConfig(), func(b *Builder) { b.WithStore(accounts) })
	seed(t, weak, map[string]string{"root": "pw"})
	before, err := accounts.Get(context.Background(), "root")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	cfg := testConfig()
	cfg.Password.Time = 2
	strong := newTestEngine(t, cfg, func(b *Builder) { b.WithStore(accounts) })
	if _, err := strong.Login(fromAddr("10.5.0.1"), "root", "pw"); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	after, err := accounts.Get(context.Background(), "root")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if after.PasswordHash == before.PasswordHash {
		t.Fatal("expected hash to be upgraded")
	}
	if got := strong.MetricsSnapshot().Counters[MetricPasswordRehashed]; got != 1 {
		t.Fatalf("expected 1 rehash, got %d", got)
	}
	if _, err := strong.Login(fromAddr("10.5.0.1"), "root", "pw"); err != nil {
		t.Fatalf("login with upgraded hash failed: %v", err)
	}
}
