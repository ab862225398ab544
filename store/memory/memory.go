// Package memory is an in-process credential store. With a Persistence
// attached every mutation is written through to disk before it becomes
// visible, which makes it a small file-backed store.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/MrEthical07/goAccount/store"
)

// Store keeps accounts in a map guarded by a RWMutex.
type Store struct {
	mu        sync.RWMutex
	accounts  map[string]store.Account
	persister *Persistence
}

var _ store.Store = (*Store)(nil)

// New returns a store seeded with initial. persister may be nil.
func New(initial map[string]store.Account, persister *Persistence) *Store {
	accounts := make(map[string]store.Account, len(initial))
	for k, v := range initial {
		accounts[k] = v
	}
	return &Store{accounts: accounts, persister: persister}
}

// Open loads every record from dir and returns a write-through store.
func Open(dir string) (*Store, error) {
	p, err := NewPersistence(dir)
	if err != nil {
		return nil, wrapIO(err)
	}
	initial, err := p.LoadAll()
	if err != nil {
		return nil, wrapIO(err)
	}
	return New(initial, p), nil
}

func (s *Store) Get(_ context.Context, handle string) (store.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	account, ok := s.accounts[handle]
	if !ok {
		return store.Account{}, store.ErrNotFound
	}
	return account, nil
}

func (s *Store) Set(_ context.Context, account store.Account) error {
	if !store.ValidKey(account.Handle) {
		return store.ErrInvalidHandle
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.persister != nil {
		if err := s.persister.Save(account); err != nil {
			return wrapIO(err)
		}
	}
	s.accounts[account.Handle] = account
	return nil
}

func (s *Store) Remove(_ context.Context, handle string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[handle]; !ok {
		return nil
	}
	if s.persister != nil {
		if err := s.persister.Delete(handle); err != nil {
			return wrapIO(err)
		}
	}
	delete(s.accounts, handle)
	return nil
}

// List returns matching records ordered by handle.
func (s *Store) List(_ context.Context, match store.Predicate) ([]store.Account, error) {
	s.mu.RLock()
	out := make([]store.Account, 0, len(s.accounts))
	for _, account := range s.accounts {
		if match == nil || match(account) {
			out = append(out, account)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Handle < out[j].Handle })
	return out, nil
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.accounts)
}
