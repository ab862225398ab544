package limiters

import (
	"context"
	"errors"
	"fmt"
)

var ErrRecoveryRateLimited = errors.New("recovery rate limited")

// RecoveryLimiter throttles recovery-code issuance and wrong-code guesses per
// source address. It is a separate budget from LoginLimiter.
type RecoveryLimiter struct {
	backend Backend
}

func NewRecoveryLimiter(backend Backend) *RecoveryLimiter {
	return &RecoveryLimiter{backend: backend}
}

// Consume spends one recovery point for ip.
func (l *RecoveryLimiter) Consume(ctx context.Context, ip string) error {
	if l == nil || l.backend == nil {
		return nil
	}
	_, err := l.backend.Consume(ctx, recoveryKey(ip))
	return mapErr(err, ErrRecoveryRateLimited)
}

// Check fails with ErrRecoveryRateLimited when ip has no points left, without
// spending one.
func (l *RecoveryLimiter) Check(ctx context.Context, ip string) error {
	if l == nil || l.backend == nil {
		return nil
	}
	exhausted, err := l.backend.Exhausted(ctx, recoveryKey(ip))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLimiterUnavailable, err)
	}
	if exhausted {
		return ErrRecoveryRateLimited
	}
	return nil
}

// Reset restores the full recovery budget for ip.
func (l *RecoveryLimiter) Reset(ctx context.Context, ip string) error {
	if l == nil || l.backend == nil {
		return nil
	}
	return mapErr(l.backend.Delete(ctx, recoveryKey(ip)), ErrRecoveryRateLimited)
}

func recoveryKey(ip string) string {
	return "recovery:" + normalizeIP(ip)
}
