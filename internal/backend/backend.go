// Package backend opens the credential store, the optional shared Redis
// client and the data purger selected by a server configuration. The server
// and the admin CLI share it so both see the same accounts.
package backend

import (
	"context"
	"database/sql"
	"fmt"

	goAccount "github.com/MrEthical07/goAccount"
	"github.com/MrEthical07/goAccount/internal/serverconfig"
	"github.com/MrEthical07/goAccount/purge"
	"github.com/MrEthical07/goAccount/store"
	"github.com/MrEthical07/goAccount/store/memory"
	"github.com/MrEthical07/goAccount/store/postgres"
	"github.com/MrEthical07/goAccount/store/redisstore"
	"github.com/redis/go-redis/v9"
)

// Backend holds the storage and purge components selected by the config.
// Redis is set only for the redis store; the engine then keeps limiters and
// recovery codes there too.
type Backend struct {
	Store  store.Store
	Redis  redis.UniversalClient
	Purger goAccount.DataPurger

	db *sql.DB
}

func Open(ctx context.Context, cfg *serverconfig.Config) (*Backend, error) {
	be := &Backend{}

	switch cfg.Store {
	case serverconfig.StoreMemory:
		be.Store = memory.New(nil, nil)
	case serverconfig.StoreFile:
		s, err := memory.Open(cfg.DataDir)
		if err != nil {
			return nil, fmt.Errorf("open file store: %w", err)
		}
		be.Store = s
	case serverconfig.StoreRedis:
		client := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:    []string{cfg.RedisAddr},
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		be.Redis = client
		be.Store = redisstore.New(client, "goaccount:accounts")
	case serverconfig.StorePostgres:
		db, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		if err := postgres.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
		be.db = db
		be.Store = postgres.New(db)
	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}

	purger, err := newPurger(ctx, cfg)
	if err != nil {
		be.Close()
		return nil, err
	}
	be.Purger = purger
	return be, nil
}

// Builder returns an engine builder wired to the backend.
func (b *Backend) Builder(cfg goAccount.Config) *goAccount.Builder {
	builder := goAccount.New().WithConfig(cfg).WithStore(b.Store)
	if b.Redis != nil {
		builder.WithRedis(b.Redis)
	}
	if b.Purger != nil {
		builder.WithDataPurger(b.Purger)
	}
	return builder
}

func newPurger(ctx context.Context, cfg *serverconfig.Config) (goAccount.DataPurger, error) {
	switch cfg.Purge {
	case serverconfig.PurgeDir:
		return purge.Dir{Root: cfg.PurgeDir}, nil
	case serverconfig.PurgeS3:
		p, err := purge.NewS3(ctx, purge.S3Config{
			Bucket:    cfg.S3Bucket,
			Prefix:    cfg.S3Prefix,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		})
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, nil
	}
}

func (b *Backend) Close() {
	if b.Redis != nil {
		_ = b.Redis.Close()
	}
	if b.db != nil {
		_ = b.db.Close()
	}
}
