package memory

import (
	"context"
	"sort"
	"sync"

	"staking-vault-lab/internal/domain"
	"staking-vault-lab/internal/storage"
)

// RebaseHistoryStore is an in-memory implementation of
// storage.RebaseHistoryStore.
type RebaseHistoryStore struct {
	mu   sync.RWMutex
	data map[string]*domain.RebaseEvent // keyed by event_id
}

// NewRebaseHistoryStore creates a new in-memory rebase history store.
func NewRebaseHistoryStore() *RebaseHistoryStore {
	return &RebaseHistoryStore{data: make(map[string]*domain.RebaseEvent)}
}

// Compile-time interface check.
var _ storage.RebaseHistoryStore = (*RebaseHistoryStore)(nil)

// Insert adds a new event. Returns ErrDuplicateKey if event_id exists.
func (s *RebaseHistoryStore) Insert(_ context.Context, e *domain.RebaseEvent) error {
	if e == nil || e.EventID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[e.EventID]; exists {
		return storage.ErrDuplicateKey
	}
	s.data[e.EventID] = e.Copy()
	return nil
}

// GetByEpochRange retrieves events with epoch in [start, end], ordered by
// epoch ASC.
func (s *RebaseHistoryStore) GetByEpochRange(_ context.Context, start, end uint64) ([]*domain.RebaseEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.RebaseEvent
	for _, e := range s.data {
		if e.Epoch >= start && e.Epoch <= end {
			result = append(result, e.Copy())
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Epoch < result[j].Epoch
	})
	return result, nil
}

// GetLatest returns the most recent event by epoch.
func (s *RebaseHistoryStore) GetLatest(_ context.Context) (*domain.RebaseEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *domain.RebaseEvent
	for _, e := range s.data {
		if latest == nil || e.Epoch > latest.Epoch {
			latest = e
		}
	}
	if latest == nil {
		return nil, storage.ErrNotFound
	}
	return latest.Copy(), nil
}
