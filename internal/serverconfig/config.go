// Package serverconfig loads goaccount-server settings: defaults, then an
// optional JSON or TOML file, then GOACCOUNT_* environment variables, then
// command-line flags.
package serverconfig

import (
	"errors"
	"fmt"
	"strings"
	"time"

	goAccount "github.com/MrEthical07/goAccount"
)

const (
	StoreMemory   = "memory"
	StoreFile     = "file"
	StoreRedis    = "redis"
	StorePostgres = "postgres"

	PurgeNone = "none"
	PurgeDir  = "dir"
	PurgeS3   = "s3"

	ProfileDefault = "default"
	ProfileHigh    = "high"
)

// Config holds runtime settings for goaccount-server.
type Config struct {
	Listen   string
	LogLevel string
	Profile  string

	Store         string
	DataDir       string
	PostgresDSN   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// SessionSecret signs session tokens. Empty means a random secret per
	// process, so sessions do not survive a restart.
	SessionSecret string
	SessionTTL    time.Duration
	SecureCookie  bool

	Discreet          bool
	CreateFallback    bool
	Audit             bool
	Metrics           bool
	RequestsPerSecond float64
	Burst             int

	Purge       string
	PurgeDir    string
	S3Bucket    string
	S3Prefix    string
	S3Region    string
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
}

// Defaults returns development settings: in-memory store, no purging.
func Defaults() *Config {
	return &Config{
		Listen:            ":8080",
		LogLevel:          "info",
		Profile:           ProfileDefault,
		Store:             StoreMemory,
		DataDir:           "./data",
		RedisAddr:         "127.0.0.1:6379",
		SessionTTL:        24 * time.Hour,
		Metrics:           true,
		RequestsPerSecond: 0,
		Burst:             0,
		Purge:             PurgeNone,
		S3Region:          "us-east-1",
	}
}

// Validate reports the first inconsistent setting.
func (c *Config) Validate() error {
	switch c.Store {
	case StoreMemory:
	case StoreFile:
		if c.DataDir == "" {
			return errors.New("data dir is required for the file store")
		}
	case StoreRedis:
		if c.RedisAddr == "" {
			return errors.New("redis address is required for the redis store")
		}
	case StorePostgres:
		if c.PostgresDSN == "" {
			return errors.New("postgres DSN is required for the postgres store")
		}
	default:
		return fmt.Errorf("unknown store %q (want memory, file, redis or postgres)", c.Store)
	}

	switch c.Purge {
	case PurgeNone:
	case PurgeDir:
		if c.PurgeDir == "" {
			return errors.New("purge dir is required for the dir purger")
		}
	case PurgeS3:
		if c.S3Bucket == "" {
			return errors.New("s3 bucket is required for the s3 purger")
		}
	default:
		return fmt.Errorf("unknown purge backend %q (want none, dir or s3)", c.Purge)
	}

	switch c.Profile {
	case ProfileDefault, ProfileHigh:
	default:
		return fmt.Errorf("unknown profile %q (want default or high)", c.Profile)
	}

	if c.SessionSecret != "" && len(c.SessionSecret) < 32 {
		return errors.New("session secret must be at least 32 bytes")
	}
	if c.SessionTTL <= 0 {
		return errors.New("session TTL must be > 0")
	}
	if c.RequestsPerSecond < 0 || c.Burst < 0 {
		return errors.New("request rate and burst must be >= 0")
	}
	return nil
}

// EngineConfig derives the engine configuration from the server settings.
func (c *Config) EngineConfig() goAccount.Config {
	cfg := goAccount.DefaultConfig()
	if c.Profile == ProfileHigh {
		cfg = goAccount.HighSecurityConfig()
	}
	cfg.Account.CreateFallback = c.CreateFallback
	cfg.Audit.Enabled = c.Audit || cfg.Audit.Enabled
	cfg.Metrics.Enabled = c.Metrics
	cfg.Metrics.EnableLatencyHistograms = c.Metrics
	return cfg
}

// SharedBackend reports whether limiters and recovery codes should live in
// Redis so that several server processes share them.
func (c *Config) SharedBackend() bool {
	return c.Store == StoreRedis
}

func normalize(c *Config) {
	c.Store = strings.ToLower(strings.TrimSpace(c.Store))
	c.Purge = strings.ToLower(strings.TrimSpace(c.Purge))
	c.Profile = strings.ToLower(strings.TrimSpace(c.Profile))
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
}
