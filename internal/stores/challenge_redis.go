package stores

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisChallengeStore keeps one binary-encoded challenge per key
// "<prefix>:<handle>" with a Redis TTL matching the challenge expiry.
type RedisChallengeStore struct {
	redis  redis.UniversalClient
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

func NewRedisChallengeStore(client redis.UniversalClient, prefix string, ttl time.Duration, now func() time.Time) *RedisChallengeStore {
	if prefix == "" {
		prefix = "goaccount:recovery"
	}
	if now == nil {
		now = time.Now
	}
	return &RedisChallengeStore{
		redis:  client,
		prefix: prefix,
		ttl:    ttl,
		now:    now,
	}
}

func (s *RedisChallengeStore) key(handle string) string {
	return s.prefix + ":" + handle
}

func (s *RedisChallengeStore) Save(ctx context.Context, handle, code string) error {
	encoded, err := encodeChallenge(newChallenge(code, s.now(), s.ttl))
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, s.key(handle), encoded, s.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrChallengeUnavailable, err)
	}
	return nil
}

func (s *RedisChallengeStore) Consume(ctx context.Context, handle, code string, maxAttempts int) error {
	const maxRetries = 4
	key := s.key(handle)

	for i := 0; i < maxRetries; i++ {
		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				if errors.Is(err, redis.Nil) {
					return ErrChallengeNotFound
				}
				return err
			}

			c, err := decodeChallenge(data)
			if err != nil {
				return deleteIn(ctx, tx, key, ErrChallengeNotFound)
			}

			now := s.now()
			if now.UnixMilli() >= c.ExpiresAt {
				return deleteIn(ctx, tx, key, ErrChallengeNotFound)
			}

			if codeMatches(c, code) {
				return deleteIn(ctx, tx, key, nil)
			}

			c.Attempts++
			if maxAttempts > 0 && int(c.Attempts) >= maxAttempts {
				return deleteIn(ctx, tx, key, ErrChallengeAttemptsExceeded)
			}

			updated, err := encodeChallenge(c)
			if err != nil {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.SetArgs(ctx, key, updated, redis.SetArgs{KeepTTL: true})
				return nil
			})
			if err != nil {
				return err
			}
			return ErrChallengeMismatch
		}, key)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		switch {
		case err == nil:
			return nil
		case errors.Is(err, ErrChallengeNotFound),
			errors.Is(err, ErrChallengeMismatch),
			errors.Is(err, ErrChallengeAttemptsExceeded):
			return err
		default:
			return fmt.Errorf("%w: %v", ErrChallengeUnavailable, err)
		}
	}

	return fmt.Errorf("%w: too much contention", ErrChallengeUnavailable)
}

func (s *RedisChallengeStore) Remove(ctx context.Context, handle string) error {
	if err := s.redis.Del(ctx, s.key(handle)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrChallengeUnavailable, err)
	}
	return nil
}

func deleteIn(ctx context.Context, tx *redis.Tx, key string, result error) error {
	_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		return nil
	})
	if err != nil {
		return err
	}
	return result
}
