package memory

import (
	"context"
	"sort"
	"sync"

	"staking-vault-lab/internal/domain"
	"staking-vault-lab/internal/storage"
)

// ReservePositionStore is an in-memory implementation of
// storage.ReservePositionStore.
type ReservePositionStore struct {
	mu   sync.RWMutex
	data map[string]*domain.ReservePosition
}

// NewReservePositionStore creates a new in-memory reserve position store.
func NewReservePositionStore() *ReservePositionStore {
	return &ReservePositionStore{data: make(map[string]*domain.ReservePosition)}
}

// Compile-time interface check.
var _ storage.ReservePositionStore = (*ReservePositionStore)(nil)

// Upsert saves or replaces a provider's position. A zero-share position is
// removed instead.
func (s *ReservePositionStore) Upsert(_ context.Context, p *domain.ReservePosition) error {
	if p == nil || p.Provider == "" || p.Shares == nil {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if p.Shares.Sign() == 0 {
		delete(s.data, p.Provider)
		return nil
	}
	s.data[p.Provider] = p.Copy()
	return nil
}

// GetByProvider retrieves one position. Returns ErrNotFound if not exists.
func (s *ReservePositionStore) GetByProvider(_ context.Context, provider string) (*domain.ReservePosition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, exists := s.data[provider]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return p.Copy(), nil
}

// GetAll retrieves all positions ordered by provider.
func (s *ReservePositionStore) GetAll(_ context.Context) ([]*domain.ReservePosition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.ReservePosition, 0, len(s.data))
	for _, p := range s.data {
		out = append(out, p.Copy())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Provider < out[j].Provider
	})
	return out, nil
}
