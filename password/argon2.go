package password

import (
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	minMemoryKB    uint32 = 8 * 1024
	minTimeCost    uint32 = 1
	minParallelism uint8  = 1
	minKeyLength   uint32 = 16
	algorithmID           = "argon2id"
	argon2Prefix          = "$" + algorithmID + "$"
)

// Config holds the Argon2id cost parameters. The salt is supplied by the
// caller and stored next to the hash on the account record.
type Config struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	KeyLength   uint32
}

// DefaultConfig returns Argon2id parameters suitable for interactive logins.
func DefaultConfig() Config {
	return Config{
		Memory:      64 * 1024,
		Time:        3,
		Parallelism: 2,
		KeyLength:   32,
	}
}

// Argon2 hashes passwords with Argon2id.
//
// Argon2 instances are immutable after construction and safe for concurrent use.
type Argon2 struct {
	config Config
}

type parsedArgon2 struct {
	memory      uint32
	time        uint32
	parallelism uint8
	hash        []byte
}

// NewArgon2 validates cfg and returns a hasher.
func NewArgon2(cfg Config) (*Argon2, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return &Argon2{config: cfg}, nil
}

// Hash derives the encoded hash for password under salt. The result is
// deterministic for a given (password, salt, config).
//
// Format: $argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<base64 hash>
func (a *Argon2) Hash(password, salt string) (string, error) {
	if salt == "" {
		return "", ErrEmptySalt
	}

	hash := argon2.IDKey(
		[]byte(password),
		[]byte(salt),
		a.config.Time,
		a.config.Memory,
		a.config.Parallelism,
		a.config.KeyLength,
	)

	return fmt.Sprintf(
		"$%s$v=%d$m=%d,t=%d,p=%d$%s",
		algorithmID,
		argon2.Version,
		a.config.Memory,
		a.config.Time,
		a.config.Parallelism,
		base64.StdEncoding.EncodeToString(hash),
	), nil
}

// Verify recomputes the hash with the parameters recorded in encodedHash, so
// hashes produced under older settings keep verifying.
func (a *Argon2) Verify(password, salt, encodedHash string) (bool, error) {
	parsed, err := parseArgon2(encodedHash)
	if err != nil {
		return false, err
	}

	computed := argon2.IDKey(
		[]byte(password),
		[]byte(salt),
		parsed.time,
		parsed.memory,
		parsed.parallelism,
		uint32(len(parsed.hash)),
	)

	return subtle.ConstantTimeCompare(computed, parsed.hash) == 1, nil
}

// NeedsUpgrade reports whether encodedHash was produced with weaker
// parameters than the current configuration.
func (a *Argon2) NeedsUpgrade(encodedHash string) (bool, error) {
	parsed, err := parseArgon2(encodedHash)
	if err != nil {
		return false, err
	}

	if a.config.Memory > parsed.memory {
		return true, nil
	}
	if a.config.Time > parsed.time {
		return true, nil
	}
	if a.config.Parallelism > parsed.parallelism {
		return true, nil
	}
	if a.config.KeyLength != uint32(len(parsed.hash)) {
		return true, nil
	}

	return false, nil
}

func parseArgon2(encodedHash string) (*parsedArgon2, error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 5 || parts[0] != "" {
		return nil, fmt.Errorf("%w: argon2 format", ErrInvalidHash)
	}

	if parts[1] != algorithmID {
		return nil, fmt.Errorf("%w: unsupported algorithm", ErrInvalidHash)
	}

	versionPart := parts[2]
	if !strings.HasPrefix(versionPart, "v=") {
		return nil, fmt.Errorf("%w: missing argon2 version", ErrInvalidHash)
	}
	version, err := strconv.Atoi(strings.TrimPrefix(versionPart, "v="))
	if err != nil || version != argon2.Version {
		return nil, fmt.Errorf("%w: unsupported argon2 version", ErrInvalidHash)
	}

	memory, time, parallelism, err := parseParams(parts[3])
	if err != nil {
		return nil, err
	}

	hash, err := base64.StdEncoding.DecodeString(parts[4])
	if err != nil || len(hash) < int(minKeyLength) {
		return nil, fmt.Errorf("%w: hash encoding", ErrInvalidHash)
	}

	return &parsedArgon2{
		memory:      memory,
		time:        time,
		parallelism: parallelism,
		hash:        hash,
	}, nil
}

func parseParams(part string) (memory, time uint32, parallelism uint8, err error) {
	pairs := strings.Split(part, ",")
	if len(pairs) != 3 {
		return 0, 0, 0, fmt.Errorf("%w: parameter format", ErrInvalidHash)
	}

	var seen int
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return 0, 0, 0, fmt.Errorf("%w: parameter entry", ErrInvalidHash)
		}

		switch key {
		case "m":
			v, perr := strconv.ParseUint(value, 10, 32)
			if perr != nil || v < uint64(minMemoryKB) {
				return 0, 0, 0, fmt.Errorf("%w: memory parameter", ErrInvalidHash)
			}
			memory = uint32(v)
		case "t":
			v, perr := strconv.ParseUint(value, 10, 32)
			if perr != nil || v < uint64(minTimeCost) {
				return 0, 0, 0, fmt.Errorf("%w: time parameter", ErrInvalidHash)
			}
			time = uint32(v)
		case "p":
			v, perr := strconv.ParseUint(value, 10, 8)
			if perr != nil || v < uint64(minParallelism) {
				return 0, 0, 0, fmt.Errorf("%w: parallelism parameter", ErrInvalidHash)
			}
			parallelism = uint8(v)
		default:
			return 0, 0, 0, fmt.Errorf("%w: unsupported parameter %q", ErrInvalidHash, key)
		}
		seen++
	}

	if seen != 3 || memory == 0 || time == 0 || parallelism == 0 {
		return 0, 0, 0, fmt.Errorf("%w: missing parameters", ErrInvalidHash)
	}
	return memory, time, parallelism, nil
}

func validateConfig(cfg Config) error {
	if cfg.Memory < minMemoryKB {
		return errors.New("password memory must be >= 8192 KB")
	}
	if cfg.Time < minTimeCost {
		return errors.New("password time must be >= 1")
	}
	if cfg.Parallelism < minParallelism {
		return errors.New("password parallelism must be >= 1")
	}
	if cfg.KeyLength < minKeyLength {
		return errors.New("password key length must be >= 16")
	}

	return nil
}
