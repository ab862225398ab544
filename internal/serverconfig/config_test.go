package serverconfig

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(vars map[string]string) func(string) string {
	return func(key string) string { return vars[key] }
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(nil, nil)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Listen)
	assert.Equal(t, StoreMemory, cfg.Store)
	assert.Equal(t, PurgeNone, cfg.Purge)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.True(t, cfg.Metrics)
	assert.False(t, cfg.Discreet)
	assert.False(t, cfg.SharedBackend())
}

func TestLoadJSONFile(t *testing.T) {
	path := writeFile(t, "server.json", `{
		"listen": ":9000",
		"store": "postgres",
		"postgres_dsn": "postgres://u:p@db/goaccount",
		"session_ttl": "2h",
		"discreet": true,
		"burst": 7
	}`)

	cfg, err := Load([]string{"-c", path}, nil)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Listen)
	assert.Equal(t, StorePostgres, cfg.Store)
	assert.Equal(t, "postgres://u:p@db/goaccount", cfg.PostgresDSN)
	assert.Equal(t, 2*time.Hour, cfg.SessionTTL)
	assert.True(t, cfg.Discreet)
	assert.Equal(t, 7, cfg.Burst)
	assert.Equal(t, "./data", cfg.DataDir, "absent keys keep defaults")
}

func TestLoadJSONIntegerDuration(t *testing.T) {
	path := writeFile(t, "server.json", `{"session_ttl": 60000000000}`)

	cfg, err := Load(nil, env(map[string]string{"GOACCOUNT_CONFIG": path}))
	require.NoError(t, err)
	assert.Equal(t, time.Minute, cfg.SessionTTL)
}

func TestLoadTOMLFile(t *testing.T) {
	path := writeFile(t, "server.toml", `
listen = "127.0.0.1:7000"
store = "redis"
redis_addr = "cache:6379"
redis_db = 2
session_ttl = "30m"
purge = "s3"
s3_bucket = "avatars"
s3_prefix = "users/"
`)

	cfg, err := Load([]string{"-c", path}, nil)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:7000", cfg.Listen)
	assert.Equal(t, StoreRedis, cfg.Store)
	assert.Equal(t, "cache:6379", cfg.RedisAddr)
	assert.Equal(t, 2, cfg.RedisDB)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
	assert.Equal(t, PurgeS3, cfg.Purge)
	assert.Equal(t, "avatars", cfg.S3Bucket)
	assert.Equal(t, "users/", cfg.S3Prefix)
	assert.True(t, cfg.SharedBackend())
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	jsonPath := writeFile(t, "server.json", `{"listne": ":1"}`)
	_, err := Load([]string{"-c", jsonPath}, nil)
	require.Error(t, err)

	tomlPath := writeFile(t, "server.toml", `listne = ":1"`)
	_, err = Load([]string{"-c", tomlPath}, nil)
	require.ErrorContains(t, err, "unknown key")
}

func TestPrecedence(t *testing.T) {
	path := writeFile(t, "server.json", `{"listen": ":1000", "store": "file", "audit": false}`)

	cfg, err := Load(
		[]string{"-c", path, "-a", ":3000"},
		env(map[string]string{
			"GOACCOUNT_LISTEN": ":2000",
			"GOACCOUNT_STORE":  "MEMORY",
			"GOACCOUNT_AUDIT":  "true",
		}),
	)
	require.NoError(t, err)

	assert.Equal(t, ":3000", cfg.Listen, "flags beat env and file")
	assert.Equal(t, StoreMemory, cfg.Store, "env beats file")
	assert.True(t, cfg.Audit)
}

func TestFlagsOnlyOverrideWhenSet(t *testing.T) {
	cfg, err := Load(
		[]string{"-discreet", "-session-ttl", "15m", "-rate", "50"},
		env(map[string]string{"GOACCOUNT_LISTEN": ":2000"}),
	)
	require.NoError(t, err)

	assert.Equal(t, ":2000", cfg.Listen)
	assert.True(t, cfg.Discreet)
	assert.Equal(t, 15*time.Minute, cfg.SessionTTL)
	assert.Equal(t, 50.0, cfg.RequestsPerSecond)
}

func TestLoadArgsReturnsPositional(t *testing.T) {
	cfg, rest, err := LoadArgs([]string{"-store", "file", "create", "alice"}, nil)
	require.NoError(t, err)
	assert.Equal(t, StoreFile, cfg.Store)
	assert.Equal(t, []string{"create", "alice"}, rest)

	_, err = Load([]string{"extra"}, nil)
	require.Error(t, err)
}

func TestLoadErrors(t *testing.T) {
	cases := []struct {
		name string
		args []string
		env  map[string]string
	}{
		{name: "unknown store", env: map[string]string{"GOACCOUNT_STORE": "mongo"}},
		{name: "postgres without dsn", args: []string{"-store", "postgres"}},
		{name: "s3 without bucket", args: []string{"-purge", "s3"}},
		{name: "dir without root", args: []string{"-purge", "dir"}},
		{name: "short secret", env: map[string]string{"GOACCOUNT_SESSION_SECRET": "short"}},
		{name: "bad bool", env: map[string]string{"GOACCOUNT_DISCREET": "maybe"}},
		{name: "bad duration", env: map[string]string{"GOACCOUNT_SESSION_TTL": "soon"}},
		{name: "unknown profile", args: []string{"-profile", "paranoid"}},
		{name: "unknown flag", args: []string{"-nope"}},
		{name: "missing file", args: []string{"-c", "/does/not/exist.json"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(tc.args, env(tc.env))
			require.Error(t, err)
		})
	}
}

func TestEngineConfig(t *testing.T) {
	cfg := Defaults()
	cfg.CreateFallback = true
	cfg.Metrics = false

	ec := cfg.EngineConfig()
	assert.True(t, ec.Account.CreateFallback)
	assert.False(t, ec.Metrics.Enabled)
	assert.True(t, ec.Account.AllowPasswordless)
	require.NoError(t, ec.Validate())

	cfg.Profile = ProfileHigh
	ec = cfg.EngineConfig()
	assert.False(t, ec.Account.AllowPasswordless)
	assert.True(t, ec.Audit.Enabled)
}
