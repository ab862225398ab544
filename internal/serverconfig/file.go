package serverconfig

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Duration accepts "90s"-style strings in JSON and TOML, and integer
// nanoseconds in JSON.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(b)))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		s, err := strconv.Unquote(string(b))
		if err != nil {
			return err
		}
		return d.UnmarshalText([]byte(s))
	}
	n, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return fmt.Errorf("duration must be a string or integer nanoseconds: %w", err)
	}
	d.Duration = time.Duration(n)
	return nil
}

// fileConfig mirrors Config for files. Absent keys keep the current value.
type fileConfig struct {
	Listen   *string `json:"listen" toml:"listen"`
	LogLevel *string `json:"log_level" toml:"log_level"`
	Profile  *string `json:"profile" toml:"profile"`

	Store         *string `json:"store" toml:"store"`
	DataDir       *string `json:"data_dir" toml:"data_dir"`
	PostgresDSN   *string `json:"postgres_dsn" toml:"postgres_dsn"`
	RedisAddr     *string `json:"redis_addr" toml:"redis_addr"`
	RedisPassword *string `json:"redis_password" toml:"redis_password"`
	RedisDB       *int    `json:"redis_db" toml:"redis_db"`

	SessionSecret *string   `json:"session_secret" toml:"session_secret"`
	SessionTTL    *Duration `json:"session_ttl" toml:"session_ttl"`
	SecureCookie  *bool     `json:"secure_cookie" toml:"secure_cookie"`

	Discreet          *bool    `json:"discreet" toml:"discreet"`
	CreateFallback    *bool    `json:"create_fallback" toml:"create_fallback"`
	Audit             *bool    `json:"audit" toml:"audit"`
	Metrics           *bool    `json:"metrics" toml:"metrics"`
	RequestsPerSecond *float64 `json:"requests_per_second" toml:"requests_per_second"`
	Burst             *int     `json:"burst" toml:"burst"`

	Purge       *string `json:"purge" toml:"purge"`
	PurgeDir    *string `json:"purge_dir" toml:"purge_dir"`
	S3Bucket    *string `json:"s3_bucket" toml:"s3_bucket"`
	S3Prefix    *string `json:"s3_prefix" toml:"s3_prefix"`
	S3Region    *string `json:"s3_region" toml:"s3_region"`
	S3Endpoint  *string `json:"s3_endpoint" toml:"s3_endpoint"`
	S3AccessKey *string `json:"s3_access_key" toml:"s3_access_key"`
	S3SecretKey *string `json:"s3_secret_key" toml:"s3_secret_key"`
}

// loadFile overlays path onto cfg. The format follows the extension:
// .toml is TOML, anything else is JSON.
func loadFile(path string, cfg *Config) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	var fc fileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		md, err := toml.Decode(string(raw), &fc)
		if err != nil {
			return fmt.Errorf("parse config %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return fmt.Errorf("parse config %s: unknown key %q", path, undecoded[0].String())
		}
	default:
		dec := json.NewDecoder(strings.NewReader(string(raw)))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&fc); err != nil {
			return fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	fc.apply(cfg)
	return nil
}

func (fc *fileConfig) apply(cfg *Config) {
	setString(&cfg.Listen, fc.Listen)
	setString(&cfg.LogLevel, fc.LogLevel)
	setString(&cfg.Profile, fc.Profile)
	setString(&cfg.Store, fc.Store)
	setString(&cfg.DataDir, fc.DataDir)
	setString(&cfg.PostgresDSN, fc.PostgresDSN)
	setString(&cfg.RedisAddr, fc.RedisAddr)
	setString(&cfg.RedisPassword, fc.RedisPassword)
	if fc.RedisDB != nil {
		cfg.RedisDB = *fc.RedisDB
	}
	setString(&cfg.SessionSecret, fc.SessionSecret)
	if fc.SessionTTL != nil {
		cfg.SessionTTL = fc.SessionTTL.Duration
	}
	setBool(&cfg.SecureCookie, fc.SecureCookie)
	setBool(&cfg.Discreet, fc.Discreet)
	setBool(&cfg.CreateFallback, fc.CreateFallback)
	setBool(&cfg.Audit, fc.Audit)
	setBool(&cfg.Metrics, fc.Metrics)
	if fc.RequestsPerSecond != nil {
		cfg.RequestsPerSecond = *fc.RequestsPerSecond
	}
	if fc.Burst != nil {
		cfg.Burst = *fc.Burst
	}
	setString(&cfg.Purge, fc.Purge)
	setString(&cfg.PurgeDir, fc.PurgeDir)
	setString(&cfg.S3Bucket, fc.S3Bucket)
	setString(&cfg.S3Prefix, fc.S3Prefix)
	setString(&cfg.S3Region, fc.S3Region)
	setString(&cfg.S3Endpoint, fc.S3Endpoint)
	setString(&cfg.S3AccessKey, fc.S3AccessKey)
	setString(&cfg.S3SecretKey, fc.S3SecretKey)
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}
