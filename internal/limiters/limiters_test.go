package limiters

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrEthical07/goAccount/internal/rate"
)

type brokenBackend struct{}

func (brokenBackend) Consume(context.Context, string) (int, error) {
	return 0, errors.New("boom")
}
func (brokenBackend) Exhausted(context.Context, string) (bool, error) {
	return false, errors.New("boom")
}
func (brokenBackend) Delete(context.Context, string) error { return errors.New("boom") }

func TestLoginLimiterSixthAttemptLimited(t *testing.T) {
	l := NewLoginLimiter(rate.NewMemory(rate.Policy{Points: 5, Duration: time.Minute}, nil))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := l.Consume(ctx, "10.0.0.1"); err != nil {
			t.Fatalf("attempt %d: %v", i+1, err)
		}
	}
	if err := l.Consume(ctx, "10.0.0.1"); !errors.Is(err, ErrLoginRateLimited) {
		t.Fatalf("expected ErrLoginRateLimited, got %v", err)
	}

	if err := l.Reset(ctx, "10.0.0.1"); err != nil {
		t.Fatalf("Reset error: %v", err)
	}
	if err := l.Consume(ctx, "10.0.0.1"); err != nil {
		t.Fatalf("expected budget restored after Reset, got %v", err)
	}
}

func TestLoginAndRecoveryBudgetsIndependent(t *testing.T) {
	backend := rate.NewMemory(rate.Policy{Points: 1, Duration: time.Minute}, nil)
	login := NewLoginLimiter(backend)
	recovery := NewRecoveryLimiter(backend)
	ctx := context.Background()

	if err := login.Consume(ctx, "ip"); err != nil {
		t.Fatalf("login Consume: %v", err)
	}
	if err := recovery.Consume(ctx, "ip"); err != nil {
		t.Fatalf("recovery budget must not share login points: %v", err)
	}
}

func TestRecoveryCheckDoesNotSpend(t *testing.T) {
	l := NewRecoveryLimiter(rate.NewMemory(rate.Policy{Points: 1, Duration: time.Minute}, nil))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := l.Check(ctx, "ip"); err != nil {
			t.Fatalf("Check must not spend points: %v", err)
		}
	}
	if err := l.Consume(ctx, "ip"); err != nil {
		t.Fatalf("Consume: %v", err)
	}
	if err := l.Check(ctx, "ip"); !errors.Is(err, ErrRecoveryRateLimited) {
		t.Fatalf("expected ErrRecoveryRateLimited, got %v", err)
	}
}

func TestEmptyIPSharesUnknownBucket(t *testing.T) {
	l := NewLoginLimiter(rate.NewMemory(rate.Policy{Points: 1, Duration: time.Minute}, nil))
	ctx := context.Background()

	if err := l.Consume(ctx, ""); err != nil {
		t.Fatalf("Consume: %v", err)
	}
	if err := l.Consume(ctx, ""); !errors.Is(err, ErrLoginRateLimited) {
		t.Fatalf("expected empty ips to share a bucket, got %v", err)
	}
}

func TestBackendFailureWrapped(t *testing.T) {
	l := NewRecoveryLimiter(brokenBackend{})
	ctx := context.Background()

	if err := l.Consume(ctx, "ip"); !errors.Is(err, ErrLimiterUnavailable) {
		t.Fatalf("expected ErrLimiterUnavailable, got %v", err)
	}
	if err := l.Check(ctx, "ip"); !errors.Is(err, ErrLimiterUnavailable) {
		t.Fatalf("expected ErrLimiterUnavailable, got %v", err)
	}
}

func TestNilLimitersAreNoOps(t *testing.T) {
	var login *LoginLimiter
	var recovery *RecoveryLimiter
	ctx := context.Background()

	if login.Consume(ctx, "ip") != nil || login.Reset(ctx, "ip") != nil {
		t.Fatal("nil login limiter must be a no-op")
	}
	if recovery.Consume(ctx, "ip") != nil || recovery.Check(ctx, "ip") != nil || recovery.Reset(ctx, "ip") != nil {
		t.Fatal("nil recovery limiter must be a no-op")
	}
}
