package rate

import (
	"context"
	"sync"
	"time"
)

type bucket struct {
	used    int
	resetAt time.Time
}

// MemoryLimiter keeps buckets in a process-local map.
type MemoryLimiter struct {
	mu      sync.Mutex
	policy  Policy
	now     func() time.Time
	buckets map[string]*bucket
}

// NewMemory returns an in-memory limiter. A nil now uses time.Now.
func NewMemory(policy Policy, now func() time.Time) *MemoryLimiter {
	if now == nil {
		now = time.Now
	}
	return &MemoryLimiter{
		policy:  policy,
		now:     now,
		buckets: make(map[string]*bucket),
	}
}

// live returns the bucket for key, dropping it if its window has elapsed.
// Callers hold l.mu.
func (l *MemoryLimiter) live(key string, now time.Time) *bucket {
	b, ok := l.buckets[key]
	if !ok {
		return nil
	}
	if !now.Before(b.resetAt) {
		delete(l.buckets, key)
		return nil
	}
	return b
}

func (l *MemoryLimiter) Consume(_ context.Context, key string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b := l.live(key, now)
	if b == nil {
		b = &bucket{resetAt: now.Add(l.policy.Duration)}
		l.buckets[key] = b
	}
	if b.used >= l.policy.Points {
		return 0, ErrRateLimited
	}
	b.used++
	return l.policy.Points - b.used, nil
}

func (l *MemoryLimiter) Exhausted(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.live(key, l.now())
	if b == nil {
		return l.policy.Points <= 0, nil
	}
	return b.used >= l.policy.Points, nil
}

func (l *MemoryLimiter) Delete(_ context.Context, key string) error {
	l.mu.Lock()
	delete(l.buckets, key)
	l.mu.Unlock()
	return nil
}

// Sweep drops buckets whose window has elapsed and returns how many were
// removed.
func (l *MemoryLimiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for k, b := range l.buckets {
		if !now.Before(b.resetAt) {
			delete(l.buckets, k)
			removed++
		}
	}
	return removed
}
