package rate

import (
	"context"
	"time"
)

// Policy is the budget of a single bucket: Points consumptions per Duration.
type Policy struct {
	Points   int
	Duration time.Duration
}

// Limiter is implemented by every backend.
type Limiter interface {
	// Consume spends one point for key and returns the points left. When the
	// bucket is already empty it returns ErrRateLimited and spends nothing.
	Consume(ctx context.Context, key string) (remaining int, err error)
	// Exhausted reports whether the next Consume for key would fail.
	Exhausted(ctx context.Context, key string) (bool, error)
	// Delete restores the full budget for key.
	Delete(ctx context.Context, key string) error
}

var (
	_ Limiter = (*MemoryLimiter)(nil)
	_ Limiter = (*RedisLimiter)(nil)
)
