package memory

import (
	"context"
	"sync"

	"staking-vault-lab/internal/domain"
	"staking-vault-lab/internal/storage"
)

// CooldownLockStore is an in-memory implementation of storage.CooldownLockStore.
type CooldownLockStore struct {
	mu   sync.RWMutex
	data map[string]*domain.CooldownLock
}

// NewCooldownLockStore creates a new in-memory cool-down lock store.
func NewCooldownLockStore() *CooldownLockStore {
	return &CooldownLockStore{data: make(map[string]*domain.CooldownLock)}
}

// Compile-time interface check.
var _ storage.CooldownLockStore = (*CooldownLockStore)(nil)

// Upsert saves or replaces the lock for a holder.
func (s *CooldownLockStore) Upsert(_ context.Context, holder string, lock *domain.CooldownLock) error {
	if holder == "" || lock == nil {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[holder] = lock.Copy()
	return nil
}

// Get retrieves a holder's lock. Returns ErrNotFound if none exists.
func (s *CooldownLockStore) Get(_ context.Context, holder string) (*domain.CooldownLock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lock, exists := s.data[holder]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return lock.Copy(), nil
}

// Delete removes a holder's lock.
func (s *CooldownLockStore) Delete(_ context.Context, holder string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, holder)
	return nil
}

// GetAll retrieves every live lock keyed by holder.
func (s *CooldownLockStore) GetAll(_ context.Context) (map[string]*domain.CooldownLock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]*domain.CooldownLock, len(s.data))
	for holder, lock := range s.data {
		out[holder] = lock.Copy()
	}
	return out, nil
}
