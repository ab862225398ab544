package rate

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// consumeScript spends one point if any are left. It returns the remaining
// points, or -1 when the bucket was already empty. The window TTL is set on
// the first hit only (fixed window).
var consumeScript = redis.NewScript(`
local limit = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local used = tonumber(redis.call("GET", KEYS[1]) or "0")
if used >= limit then
  return -1
end
used = redis.call("INCR", KEYS[1])
if used == 1 then
  redis.call("PEXPIRE", KEYS[1], window)
end
return limit - used
`)

// RedisLimiter keeps one counter key per bucket: "<prefix>:<key>".
type RedisLimiter struct {
	redis  redis.UniversalClient
	prefix string
	policy Policy
}

// NewRedis creates a limiter backed by the given Redis client.
func NewRedis(client redis.UniversalClient, prefix string, policy Policy) *RedisLimiter {
	return &RedisLimiter{
		redis:  client,
		prefix: prefix,
		policy: policy,
	}
}

func (l *RedisLimiter) key(key string) string {
	return l.prefix + ":" + key
}

func (l *RedisLimiter) Consume(ctx context.Context, key string) (int, error) {
	remaining, err := consumeScript.Run(ctx, l.redis,
		[]string{l.key(key)},
		l.policy.Points,
		l.policy.Duration.Milliseconds(),
	).Int()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if remaining < 0 {
		return 0, ErrRateLimited
	}
	return remaining, nil
}

func (l *RedisLimiter) Exhausted(ctx context.Context, key string) (bool, error) {
	used, err := l.redis.Get(ctx, l.key(key)).Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return l.policy.Points <= 0, nil
		}
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return used >= l.policy.Points, nil
}

func (l *RedisLimiter) Delete(ctx context.Context, key string) error {
	if err := l.redis.Del(ctx, l.key(key)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
