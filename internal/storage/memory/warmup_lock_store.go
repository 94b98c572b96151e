// Package memory provides in-memory store implementations used by the
// simulator, the dev-mode daemon and unit tests.
package memory

import (
	"context"
	"sync"

	"staking-vault-lab/internal/domain"
	"staking-vault-lab/internal/storage"
)

// WarmupLockStore is an in-memory implementation of storage.WarmupLockStore.
type WarmupLockStore struct {
	mu   sync.RWMutex
	data map[string]*domain.WarmupLock
}

// NewWarmupLockStore creates a new in-memory warm-up lock store.
func NewWarmupLockStore() *WarmupLockStore {
	return &WarmupLockStore{data: make(map[string]*domain.WarmupLock)}
}

// Compile-time interface check.
var _ storage.WarmupLockStore = (*WarmupLockStore)(nil)

// Upsert saves or replaces the lock for a holder.
func (s *WarmupLockStore) Upsert(_ context.Context, holder string, lock *domain.WarmupLock) error {
	if holder == "" || lock == nil {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[holder] = lock.Copy()
	return nil
}

// Get retrieves a holder's lock. Returns ErrNotFound if none exists.
func (s *WarmupLockStore) Get(_ context.Context, holder string) (*domain.WarmupLock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lock, exists := s.data[holder]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return lock.Copy(), nil
}

// Delete removes a holder's lock.
func (s *WarmupLockStore) Delete(_ context.Context, holder string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, holder)
	return nil
}

// GetAll retrieves every live lock keyed by holder.
func (s *WarmupLockStore) GetAll(_ context.Context) (map[string]*domain.WarmupLock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]*domain.WarmupLock, len(s.data))
	for holder, lock := range s.data {
		out[holder] = lock.Copy()
	}
	return out, nil
}
