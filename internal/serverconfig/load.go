package serverconfig

import (
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

const envPrefix = "GOACCOUNT_"

// Load builds a Config from args (without the program name) and the
// environment read through getenv. Later sources override earlier ones:
// defaults, config file, environment, flags. Positional arguments are an
// error.
func Load(args []string, getenv func(string) string) (*Config, error) {
	cfg, rest, err := LoadArgs(args, getenv)
	if err != nil {
		return nil, err
	}
	if len(rest) > 0 {
		return nil, fmt.Errorf("unexpected argument %q", rest[0])
	}
	return cfg, nil
}

// LoadArgs is Load for commands that take positional arguments after the
// flags. It returns the arguments left after flag parsing.
func LoadArgs(args []string, getenv func(string) string) (*Config, []string, error) {
	if getenv == nil {
		getenv = func(string) string { return "" }
	}

	fs, fv := newFlagSet()
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}

	cfg := Defaults()

	path := fv.configFile
	if path == "" {
		path = getenv(envPrefix + "CONFIG")
	}
	if path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, nil, err
		}
	}

	if err := applyEnv(cfg, getenv); err != nil {
		return nil, nil, err
	}

	fs.Visit(func(f *flag.Flag) {
		if set, ok := fv.setters[f.Name]; ok {
			set(cfg)
		}
	})

	normalize(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return cfg, fs.Args(), nil
}

type flagValues struct {
	configFile string
	setters    map[string]func(*Config)
}

func newFlagSet() (*flag.FlagSet, *flagValues) {
	fs := flag.NewFlagSet("goaccount-server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fv := &flagValues{setters: map[string]func(*Config){}}

	fs.StringVar(&fv.configFile, "c", "", "path to a .json or .toml config file")

	str := func(name, usage string, dst func(*Config) *string) {
		v := fs.String(name, "", usage)
		fv.setters[name] = func(c *Config) { *dst(c) = *v }
	}
	boolean := func(name, usage string, dst func(*Config) *bool) {
		v := fs.Bool(name, false, usage)
		fv.setters[name] = func(c *Config) { *dst(c) = *v }
	}

	str("a", "listen address", func(c *Config) *string { return &c.Listen })
	str("store", "credential store: memory, file, redis or postgres", func(c *Config) *string { return &c.Store })
	str("data", "data directory for the file store", func(c *Config) *string { return &c.DataDir })
	str("d", "postgres DSN", func(c *Config) *string { return &c.PostgresDSN })
	str("redis", "redis address", func(c *Config) *string { return &c.RedisAddr })
	str("purge", "purge backend: none, dir or s3", func(c *Config) *string { return &c.Purge })
	str("purge-dir", "root directory for the dir purger", func(c *Config) *string { return &c.PurgeDir })
	str("profile", "engine profile: default or high", func(c *Config) *string { return &c.Profile })
	str("log-level", "debug, info, warn or error", func(c *Config) *string { return &c.LogLevel })
	boolean("discreet", "hide the public account list", func(c *Config) *bool { return &c.Discreet })
	boolean("fallback", "create the fallback account in an empty store", func(c *Config) *bool { return &c.CreateFallback })
	boolean("audit", "log audit events", func(c *Config) *bool { return &c.Audit })

	ttl := fs.Duration("session-ttl", 0, "session lifetime")
	fv.setters["session-ttl"] = func(c *Config) { c.SessionTTL = *ttl }
	rps := fs.Float64("rate", 0, "global requests per second, 0 disables")
	fv.setters["rate"] = func(c *Config) { c.RequestsPerSecond = *rps }

	return fs, fv
}

func applyEnv(cfg *Config, getenv func(string) string) error {
	strs := map[string]*string{
		"LISTEN":         &cfg.Listen,
		"LOG_LEVEL":      &cfg.LogLevel,
		"PROFILE":        &cfg.Profile,
		"STORE":          &cfg.Store,
		"DATA_DIR":       &cfg.DataDir,
		"POSTGRES_DSN":   &cfg.PostgresDSN,
		"REDIS_ADDR":     &cfg.RedisAddr,
		"REDIS_PASSWORD": &cfg.RedisPassword,
		"SESSION_SECRET": &cfg.SessionSecret,
		"PURGE":          &cfg.Purge,
		"PURGE_DIR":      &cfg.PurgeDir,
		"S3_BUCKET":      &cfg.S3Bucket,
		"S3_PREFIX":      &cfg.S3Prefix,
		"S3_REGION":      &cfg.S3Region,
		"S3_ENDPOINT":    &cfg.S3Endpoint,
		"S3_ACCESS_KEY":  &cfg.S3AccessKey,
		"S3_SECRET_KEY":  &cfg.S3SecretKey,
	}
	for key, dst := range strs {
		if v := getenv(envPrefix + key); v != "" {
			*dst = v
		}
	}

	bools := map[string]*bool{
		"SECURE_COOKIE":   &cfg.SecureCookie,
		"DISCREET":        &cfg.Discreet,
		"CREATE_FALLBACK": &cfg.CreateFallback,
		"AUDIT":           &cfg.Audit,
		"METRICS":         &cfg.Metrics,
	}
	for key, dst := range bools {
		v := getenv(envPrefix + key)
		if v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", envPrefix, key, err)
		}
		*dst = b
	}

	ints := map[string]*int{
		"REDIS_DB": &cfg.RedisDB,
		"BURST":    &cfg.Burst,
	}
	for key, dst := range ints {
		v := getenv(envPrefix + key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s%s: %w", envPrefix, key, err)
		}
		*dst = n
	}

	if v := getenv(envPrefix + "SESSION_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%sSESSION_TTL: %w", envPrefix, err)
		}
		cfg.SessionTTL = d
	}
	if v := getenv(envPrefix + "RATE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%sRATE: %w", envPrefix, err)
		}
		cfg.RequestsPerSecond = f
	}
	return nil
}
