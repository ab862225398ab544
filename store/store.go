package store

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrNotFound is returned when no record exists for a handle.
	ErrNotFound = errors.New("account not found")
	// ErrUnavailable wraps backend failures (I/O, network, decoding).
	ErrUnavailable = errors.New("account store unavailable")
	// ErrInvalidHandle is returned when a handle cannot be used as a storage key.
	ErrInvalidHandle = errors.New("invalid account handle")
)

// Account is the persisted credential record. Handle is the primary key and
// never changes after creation. An empty PasswordHash together with an empty
// PasswordSalt marks a passwordless account.
type Account struct {
	Handle       string `json:"handle"`
	Name         string `json:"name"`
	Avatar       string `json:"avatar,omitempty"`
	PasswordHash string `json:"password"`
	PasswordSalt string `json:"salt"`
	Admin        bool   `json:"admin"`
	Enabled      bool   `json:"enabled"`
	Created      int64  `json:"created"`
}

// HasPassword reports whether a password hash is set.
func (a Account) HasPassword() bool {
	return a.PasswordHash != ""
}

// Predicate selects records during List. A nil Predicate matches everything.
type Predicate func(Account) bool

// Store is the durable handle -> record mapping. Set always overwrites the
// full record; callers read, modify and write back.
type Store interface {
	Get(ctx context.Context, handle string) (Account, error)
	Set(ctx context.Context, account Account) error
	Remove(ctx context.Context, handle string) error
	List(ctx context.Context, match Predicate) ([]Account, error)
}

// HandlePrefix matches records whose handle starts with prefix.
func HandlePrefix(prefix string) Predicate {
	return func(a Account) bool {
		return strings.HasPrefix(a.Handle, prefix)
	}
}

// ValidKey reports whether handle is safe to use as a key, file name or
// object prefix in any backend.
func ValidKey(handle string) bool {
	if handle == "" || len(handle) > 255 {
		return false
	}
	if handle == "." || handle == ".." {
		return false
	}
	return !strings.ContainsAny(handle, "/\\:*?\x00")
}

// Filter applies match to accounts, returning a new slice.
func Filter(accounts []Account, match Predicate) []Account {
	out := make([]Account, 0, len(accounts))
	for _, a := range accounts {
		if match == nil || match(a) {
			out = append(out, a)
		}
	}
	return out
}
