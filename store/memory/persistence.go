package memory

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/MrEthical07/goAccount/store"
)

// Persistence writes one JSON file per account into DataDir.
type Persistence struct {
	DataDir string
	mu      sync.Mutex
}

// NewPersistence creates dir if needed and returns a handler for it.
func NewPersistence(dir string) (*Persistence, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	return &Persistence{DataDir: dir}, nil
}

func (p *Persistence) path(handle string) (string, error) {
	if !store.ValidKey(handle) {
		return "", store.ErrInvalidHandle
	}
	return filepath.Join(p.DataDir, handle+".json"), nil
}

// Save writes the record to a temp file and renames it over the previous one,
// so a crash leaves either the old or the new record on disk.
func (p *Persistence) Save(account store.Account) error {
	filePath, err := p.path(account.Handle)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	data, err := json.MarshalIndent(account, "", "  ")
	if err != nil {
		return err
	}

	tempPath := filePath + ".tmp"
	if err := os.WriteFile(tempPath, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tempPath, filePath)
}

// Delete removes the record file. A missing file is not an error.
func (p *Persistence) Delete(handle string) error {
	filePath, err := p.path(handle)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := os.Remove(filePath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// LoadAll reads every record in DataDir. Unreadable or malformed files are
// skipped with a warning.
func (p *Persistence) LoadAll() (map[string]store.Account, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	entries, err := os.ReadDir(p.DataDir)
	if err != nil {
		return nil, err
	}

	out := make(map[string]store.Account, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".json" {
			continue
		}

		content, err := os.ReadFile(filepath.Join(p.DataDir, name))
		if err != nil {
			slog.Warn("skipping unreadable account file", "file", name, "error", err)
			continue
		}

		var account store.Account
		if err := json.Unmarshal(content, &account); err != nil {
			slog.Warn("skipping malformed account file", "file", name, "error", err)
			continue
		}
		if account.Handle != strings.TrimSuffix(name, ".json") {
			slog.Warn("skipping account file with mismatched handle", "file", name, "handle", account.Handle)
			continue
		}
		out[account.Handle] = account
	}
	return out, nil
}

func wrapIO(err error) error {
	if err == nil || errors.Is(err, store.ErrInvalidHandle) {
		return err
	}
	return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
}
