package stores

import (
	"context"
	"time"

	"github.com/MrEthical07/goAccount/internal/ttlcache"
)

// MemoryChallengeStore keeps challenges in a process-local TTL cache.
type MemoryChallengeStore struct {
	cache *ttlcache.Cache[string, Challenge]
	ttl   time.Duration
	now   func() time.Time
}

// NewMemoryChallengeStore returns a store whose challenges live for ttl.
func NewMemoryChallengeStore(ttl time.Duration, now func() time.Time) *MemoryChallengeStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryChallengeStore{
		cache: ttlcache.New[string, Challenge](ttl, now),
		ttl:   ttl,
		now:   now,
	}
}

func (s *MemoryChallengeStore) Save(_ context.Context, handle, code string) error {
	s.cache.Set(handle, newChallenge(code, s.now(), s.ttl))
	return nil
}

func (s *MemoryChallengeStore) Consume(_ context.Context, handle, code string, maxAttempts int) error {
	result := ErrChallengeNotFound

	s.cache.Update(handle, func(c Challenge) (Challenge, bool) {
		if codeMatches(c, code) {
			result = nil
			return c, false
		}
		c.Attempts++
		if maxAttempts > 0 && int(c.Attempts) >= maxAttempts {
			result = ErrChallengeAttemptsExceeded
			return c, false
		}
		result = ErrChallengeMismatch
		return c, true
	})

	return result
}

func (s *MemoryChallengeStore) Remove(_ context.Context, handle string) error {
	s.cache.Remove(handle)
	return nil
}

// Cache exposes the underlying cache so the owner can run its sweeper.
func (s *MemoryChallengeStore) Cache() *ttlcache.Cache[string, Challenge] {
	return s.cache
}
