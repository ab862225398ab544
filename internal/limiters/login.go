package limiters

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/goAccount/internal/rate"
)

var (
	ErrLoginRateLimited   = errors.New("login rate limited")
	ErrLimiterUnavailable = errors.New("limiter backend unavailable")
)

// Backend is the point-budget primitive a policy limiter spends from.
type Backend interface {
	Consume(ctx context.Context, key string) (int, error)
	Exhausted(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
}

// LoginLimiter throttles login attempts per source address.
type LoginLimiter struct {
	backend Backend
}

func NewLoginLimiter(backend Backend) *LoginLimiter {
	return &LoginLimiter{backend: backend}
}

// Consume spends one login point for ip.
func (l *LoginLimiter) Consume(ctx context.Context, ip string) error {
	if l == nil || l.backend == nil {
		return nil
	}
	_, err := l.backend.Consume(ctx, loginKey(ip))
	return mapErr(err, ErrLoginRateLimited)
}

// Reset restores the full login budget for ip after a successful login.
func (l *LoginLimiter) Reset(ctx context.Context, ip string) error {
	if l == nil || l.backend == nil {
		return nil
	}
	return mapErr(l.backend.Delete(ctx, loginKey(ip)), ErrLoginRateLimited)
}

func loginKey(ip string) string {
	return "login:" + normalizeIP(ip)
}

func normalizeIP(ip string) string {
	if ip == "" {
		return "unknown"
	}
	return ip
}

func mapErr(err, limited error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, rate.ErrRateLimited):
		return limited
	default:
		return fmt.Errorf("%w: %v", ErrLimiterUnavailable, err)
	}
}
