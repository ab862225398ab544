package goAccount

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestRecoveryReissueInvalidatesFirstCode(t *testing.T) {
	e := newTestEngine(t, testConfig())
	seed(t, e, map[string]string{"root": "old-password"})
	ctx := fromAddr("10.1.0.1")

	if err := e.RequestRecovery(ctx, "root"); err != nil {
		t.Fatalf("first request failed: %v", err)
	}
	first := e.codes.last(t, "root")

	if err := e.RequestRecovery(ctx, "root"); err != nil {
		t.Fatalf("second request failed: %v", err)
	}
	second := e.codes.last(t, "root")
	if first == second {
		t.Skip("codes collided; re-issue cannot be distinguished")
	}

	if err := e.ConfirmRecovery(ctx, "root", first, "new-password"); !errors.Is(err, ErrRecoveryCodeInvalid) {
		t.Fatalf("expected first code to be rejected, got %v", err)
	}
	if err := e.ConfirmRecovery(ctx, "root", second, "new-password"); err != nil {
		t.Fatalf("second code should work: %v", err)
	}
	if _, err := e.Login(ctx, "root", "new-password"); err != nil {
		t.Fatalf("login with recovered password failed: %v", err)
	}
}

func TestRecoveryCodeIsSingleUse(t *testing.T) {
	e := newTestEngine(t, testConfig())
	seed(t, e, map[string]string{"root": "pw"})
	ctx := fromAddr("10.1.0.2")

	if err := e.RequestRecovery(ctx, "root"); err != nil {
		t.Fatalf("request failed: %v", err)
	}
	code := e.codes.last(t, "root")

	if err := e.ConfirmRecovery(ctx, "root", code, "first"); err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	if err := e.ConfirmRecovery(ctx, "root", code, "second"); !errors.Is(err, ErrRecoveryCodeInvalid) {
		t.Fatalf("expected replay to be rejected, got %v", err)
	}
	if _, err := e.Login(ctx, "root", "first"); err != nil {
		t.Fatalf("replay must not change the password: %v", err)
	}
}

func TestRecoveryExpiredCodeRejected(t *testing.T) {
	e := newTestEngine(t, testConfig())
	seed(t, e, map[string]string{"root": "pw"})
	ctx := fromAddr("10.1.0.3")

	if err := e.RequestRecovery(ctx, "root"); err != nil {
		t.Fatalf("request failed: %v", err)
	}
	code := e.codes.last(t, "root")

	e.clock.Advance(5*time.Minute + time.Second)
	if err := e.ConfirmRecovery(ctx, "root", code, "new"); !errors.Is(err, ErrRecoveryCodeInvalid) {
		t.Fatalf("expected expired code to be rejected, got %v", err)
	}
	if _, err := e.Login(ctx, "root", "pw"); err != nil {
		t.Fatalf("old password must survive: %v", err)
	}
}

func TestRecoveryWrongCodeLeavesRecordUntouched(t *testing.T) {
	e := newTestEngine(t, testConfig())
	seed(t, e, map[string]string{"root": "pw"})
	ctx := fromAddr("10.1.0.4")

	if err := e.RequestRecovery(ctx, "root"); err != nil {
		t.Fatalf("request failed: %v", err)
	}
	code := e.codes.last(t, "root")
	wrong := "0000"
	if code == wrong {
		wrong = "1111"
	}

	if err := e.ConfirmRecovery(ctx, "root", wrong, "new"); !errors.Is(err, ErrRecoveryCodeInvalid) {
		t.Fatalf("expected ErrRecoveryCodeInvalid, got %v", err)
	}
	if err := e.ConfirmRecovery(ctx, "root", code, "new"); err != nil {
		t.Fatalf("correct code after a miss should still work: %v", err)
	}
}

func TestRecoveryBudgetSpentByWrongCodes(t *testing.T) {
	e := newTestEngine(t, testConfig())
	seed(t, e, map[string]string{"root": "pw"})
	ctx := fromAddr("10.1.0.5")

	if err := e.RequestRecovery(ctx, "root"); err != nil {
		t.Fatalf("request failed: %v", err)
	}
	code := e.codes.last(t, "root")
	wrong := "0000"
	if code == wrong {
		wrong = "1111"
	}

	for i := 0; i < 4; i++ {
		if err := e.ConfirmRecovery(ctx, "root", wrong, ""); !errors.Is(err, ErrRecoveryCodeInvalid) {
			t.Fatalf("miss %d: expected ErrRecoveryCodeInvalid, got %v", i+1, err)
		}
	}
	if err := e.ConfirmRecovery(ctx, "root", code, ""); !errors.Is(err, ErrRecoveryRateLimited) {
		t.Fatalf("expected exhausted budget to reject before the code check, got %v", err)
	}
}

func TestRecoveryUnknownAndDisabledAccounts(t *testing.T) {
	e := newTestEngine(t, testConfig())
	seed(t, e, map[string]string{"root": "pw", "bob": "pw"})
	if err := e.DisableAccount(WithActor(context.Background(), "root"), "bob"); err != nil {
		t.Fatalf("disable failed: %v", err)
	}

	if err := e.RequestRecovery(fromAddr("10.1.0.6"), "ghost"); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
	if err := e.RequestRecovery(fromAddr("10.1.0.6"), "bob"); !errors.Is(err, ErrAccountDisabled) {
		t.Fatalf("expected ErrAccountDisabled, got %v", err)
	}
	if err := e.RequestRecovery(fromAddr("10.1.0.6"), ""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestRecoveryDisabledByConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Recovery.Enabled = false
	e := newTestEngine(t, cfg)
	seed(t, e, map[string]string{"root": "pw"})

	if err := e.RequestRecovery(fromAddr("10.1.0.7"), "root"); !errors.Is(err, ErrRecoveryDisabled) {
		t.Fatalf("expected ErrRecoveryDisabled, got %v", err)
	}
}

func TestRecoveryPolicyCheckedBeforeCodeIsSpent(t *testing.T) {
	cfg := testConfig()
	cfg.Password.MinLength = 10
	e := newTestEngine(t, cfg)
	seed(t, e, map[string]string{"root": "long-enough-pw"})
	ctx := fromAddr("10.1.0.8")

	if err := e.RequestRecovery(ctx, "root"); err != nil {
		t.Fatalf("request failed: %v", err)
	}
	code := e.codes.last(t, "root")

	if err := e.ConfirmRecovery(ctx, "root", code, "short"); !errors.Is(err, ErrPasswordPolicy) {
		t.Fatalf("expected ErrPasswordPolicy, got %v", err)
	}
	if err := e.ConfirmRecovery(ctx, "root", code, "another-long-password"); err != nil {
		t.Fatalf("code should survive a policy rejection: %v", err)
	}
}

func TestRecoveryWithRedisChallengeStore(t *testing.T) {
	mr, client := newTestRedis(t)
	e := newTestEngine(t, testConfig(), func(b *Builder) { b.WithRedis(client) })
	seed(t, e, map[string]string{"root": "pw"})
	ctx := fromAddr("10.1.0.9")

	if err := e.RequestRecovery(ctx, "root"); err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if !mr.Exists("goaccount:recovery:root") {
		t.Fatal("expected challenge key in redis")
	}
	code := e.codes.last(t, "root")

	if err := e.ConfirmRecovery(ctx, "root", code, ""); err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	if mr.Exists("goaccount:recovery:root") {
		t.Fatal("challenge must be deleted after use")
	}
	if _, err := e.Login(ctx, "root", "anything"); err != nil {
		t.Fatalf("cleared password should allow passwordless login: %v", err)
	}
}

func TestRecoveryCodeNeverInAuditEvents(t *testing.T) {
	cfg := testConfig()
	cfg.Audit.Enabled = true
	sink := NewChannelSink(64)
	e := newTestEngine(t, cfg, func(b *Builder) { b.WithAuditSink(sink) })
	seed(t, e, map[string]string{"root": "pw"})
	ctx := fromAddr("10.1.0.10")

	if err := e.RequestRecovery(ctx, "root"); err != nil {
		t.Fatalf("request failed: %v", err)
	}
	code := e.codes.last(t, "root")
	if err := e.ConfirmRecovery(ctx, "root", code, "next"); err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	e.Close()

	seen := 0
	for {
		select {
		case ev := <-sink.Events():
			seen++
			for k, v := range ev.Metadata {
				if strings.Contains(v, code) || strings.Contains(k, code) {
					t.Fatalf("recovery code leaked in %s metadata", ev.EventType)
				}
			}
		default:
			if seen == 0 {
				t.Fatal("expected audit events")
			}
			return
		}
	}
}
