// Package redisstore keeps one JSON-encoded account per Redis key under a
// common prefix. List walks the prefix with SCAN and fetches values with MGET.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/MrEthical07/goAccount/store"
	"github.com/redis/go-redis/v9"
)

const (
	defaultPrefix = "goaccount:user"
	scanCount     = 256
)

// Store is a Redis-backed credential store.
type Store struct {
	redis  redis.UniversalClient
	prefix string
}

var _ store.Store = (*Store)(nil)

// New returns a store writing keys "<prefix>:<handle>".
func New(client redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Store{redis: client, prefix: prefix}
}

func (s *Store) key(handle string) string {
	return s.prefix + ":" + handle
}

func (s *Store) Get(ctx context.Context, handle string) (store.Account, error) {
	data, err := s.redis.Get(ctx, s.key(handle)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return store.Account{}, store.ErrNotFound
		}
		return store.Account{}, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}

	var account store.Account
	if err := json.Unmarshal(data, &account); err != nil {
		return store.Account{}, fmt.Errorf("%w: decode %s: %v", store.ErrUnavailable, handle, err)
	}
	return account, nil
}

func (s *Store) Set(ctx context.Context, account store.Account) error {
	if !store.ValidKey(account.Handle) {
		return store.ErrInvalidHandle
	}
	data, err := json.Marshal(account)
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, s.key(account.Handle), data, 0).Err(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return nil
}

func (s *Store) Remove(ctx context.Context, handle string) error {
	if err := s.redis.Del(ctx, s.key(handle)).Err(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return nil
}

// List returns matching records ordered by handle. Keys that vanish between
// SCAN and MGET are skipped.
func (s *Store) List(ctx context.Context, match store.Predicate) ([]store.Account, error) {
	var keys []string
	iter := s.redis.Scan(ctx, 0, s.prefix+":*", scanCount).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}

	out := make([]store.Account, 0, len(keys))
	for start := 0; start < len(keys); start += scanCount {
		end := min(start+scanCount, len(keys))
		values, err := s.redis.MGet(ctx, keys[start:end]...).Result()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
		}
		for i, v := range values {
			raw, ok := v.(string)
			if !ok {
				continue
			}
			var account store.Account
			if err := json.Unmarshal([]byte(raw), &account); err != nil {
				return nil, fmt.Errorf("%w: decode %s: %v", store.ErrUnavailable, keys[start+i], err)
			}
			if match == nil || match(account) {
				out = append(out, account)
			}
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Handle < out[j].Handle })
	return out, nil
}
