package backend

import (
	"context"
	"testing"

	"github.com/MrEthical07/goAccount/internal/serverconfig"
	"github.com/MrEthical07/goAccount/purge"
	"github.com/MrEthical07/goAccount/store"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func TestOpenBackendFileStorePersists(t *testing.T) {
	cfg := serverconfig.Defaults()
	cfg.Store = serverconfig.StoreFile
	cfg.DataDir = t.TempDir()
	cfg.Purge = serverconfig.PurgeDir
	cfg.PurgeDir = t.TempDir()

	be, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	defer be.Close()

	require.NoError(t, be.Store.Set(context.Background(), store.Account{Handle: "alice", Enabled: true}))
	require.IsType(t, purge.Dir{}, be.Purger)

	reopened, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Store.Get(context.Background(), "alice")
	require.NoError(t, err)
	require.True(t, got.Enabled)
}

func TestOpenBackendRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := serverconfig.Defaults()
	cfg.Store = serverconfig.StoreRedis
	cfg.RedisAddr = mr.Addr()

	be, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	defer be.Close()

	require.NotNil(t, be.Redis)
	require.Nil(t, be.Purger)

	engine, err := be.Builder(cfg.EngineConfig()).Build()
	require.NoError(t, err)
	defer engine.Close()
	require.True(t, engine.SecurityReport().SharedBackend)
}

func TestOpenBackendRedisUnreachable(t *testing.T) {
	cfg := serverconfig.Defaults()
	cfg.Store = serverconfig.StoreRedis
	cfg.RedisAddr = "127.0.0.1:1"

	_, err := Open(context.Background(), cfg)
	require.Error(t, err)
}
