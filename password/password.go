package password

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Algorithm names a supported hashing scheme.
type Algorithm string

const (
	AlgorithmArgon2id Algorithm = "argon2id"
	AlgorithmScrypt   Algorithm = "scrypt"
)

const (
	saltBytes = 16

	// DefaultMaxPasswordBytes bounds the work a single Hash call can do.
	DefaultMaxPasswordBytes = 1024
)

var (
	ErrPasswordTooLong = errors.New("password exceeds maximum length")
	ErrEmptySalt       = errors.New("password salt must not be empty")
	ErrInvalidHash     = errors.New("invalid password hash")
)

// Hasher is a one-way function of (password, salt).
type Hasher interface {
	Hash(password, salt string) (string, error)
	Verify(password, salt, encodedHash string) (bool, error)
	NeedsUpgrade(encodedHash string) (bool, error)
}

var (
	_ Hasher = (*Argon2)(nil)
	_ Hasher = Scrypt{}
)

// Options configures a Manager.
type Options struct {
	Algorithm        Algorithm
	Argon2           Config
	MaxPasswordBytes int
}

// Manager hashes new passwords with the primary algorithm and verifies stored
// hashes with whichever algorithm produced them.
type Manager struct {
	primary  Algorithm
	argon2   *Argon2
	scrypt   Scrypt
	maxBytes int
}

// NewManager validates opts. A zero Algorithm selects argon2id and a zero
// MaxPasswordBytes selects DefaultMaxPasswordBytes.
func NewManager(opts Options) (*Manager, error) {
	if opts.Algorithm == "" {
		opts.Algorithm = AlgorithmArgon2id
	}
	if opts.Algorithm != AlgorithmArgon2id && opts.Algorithm != AlgorithmScrypt {
		return nil, fmt.Errorf("unsupported password algorithm %q", opts.Algorithm)
	}
	if opts.MaxPasswordBytes <= 0 {
		opts.MaxPasswordBytes = DefaultMaxPasswordBytes
	}
	if opts.Argon2 == (Config{}) {
		opts.Argon2 = DefaultConfig()
	}

	a, err := NewArgon2(opts.Argon2)
	if err != nil {
		return nil, err
	}

	return &Manager{
		primary:  opts.Algorithm,
		argon2:   a,
		maxBytes: opts.MaxPasswordBytes,
	}, nil
}

// GenerateSalt returns base64 of 16 fresh random bytes.
func GenerateSalt() (string, error) {
	buf := make([]byte, saltBytes)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf), nil
}

// Algorithm returns the algorithm used for new hashes.
func (m *Manager) Algorithm() Algorithm {
	return m.primary
}

// Hash normalises password to NFC and hashes it with the primary algorithm.
func (m *Manager) Hash(password, salt string) (string, error) {
	normalized, err := m.normalize(password)
	if err != nil {
		return "", err
	}
	if m.primary == AlgorithmScrypt {
		return m.scrypt.Hash(normalized, salt)
	}
	return m.argon2.Hash(normalized, salt)
}

// Verify reports whether password matches encodedHash under salt.
func (m *Manager) Verify(password, salt, encodedHash string) (bool, error) {
	if encodedHash == "" {
		return false, ErrInvalidHash
	}
	normalized, err := m.normalize(password)
	if err != nil {
		return false, err
	}
	return m.hasherFor(encodedHash).Verify(normalized, salt, encodedHash)
}

// NeedsUpgrade reports whether encodedHash should be replaced on the next
// successful login: it was produced by a non-primary algorithm or with weaker
// parameters.
func (m *Manager) NeedsUpgrade(encodedHash string) (bool, error) {
	if encodedHash == "" {
		return false, nil
	}
	isArgon := strings.HasPrefix(encodedHash, argon2Prefix)
	switch {
	case m.primary == AlgorithmArgon2id && !isArgon:
		return true, nil
	case m.primary == AlgorithmScrypt && isArgon:
		return true, nil
	}
	return m.hasherFor(encodedHash).NeedsUpgrade(encodedHash)
}

func (m *Manager) hasherFor(encodedHash string) Hasher {
	if strings.HasPrefix(encodedHash, argon2Prefix) {
		return m.argon2
	}
	return m.scrypt
}

func (m *Manager) normalize(password string) (string, error) {
	if len(password) > m.maxBytes {
		return "", ErrPasswordTooLong
	}
	return norm.NFC.String(password), nil
}
