package memory

import (
	"context"
	"sync"

	"staking-vault-lab/internal/domain"
	"staking-vault-lab/internal/storage"
)

// EpochStateStore is an in-memory implementation of storage.EpochStateStore.
type EpochStateStore struct {
	mu    sync.RWMutex
	state *domain.EpochState
}

// NewEpochStateStore creates a new in-memory epoch state store.
func NewEpochStateStore() *EpochStateStore {
	return &EpochStateStore{}
}

// Compile-time interface check.
var _ storage.EpochStateStore = (*EpochStateStore)(nil)

// Save replaces the stored state.
func (s *EpochStateStore) Save(_ context.Context, state *domain.EpochState) error {
	if state == nil {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state.Copy()
	return nil
}

// Load returns the stored state. Returns ErrNotFound before the first Save.
func (s *EpochStateStore) Load(_ context.Context) (*domain.EpochState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.state == nil {
		return nil, storage.ErrNotFound
	}
	return s.state.Copy(), nil
}
