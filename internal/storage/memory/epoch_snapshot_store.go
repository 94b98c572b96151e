package memory

import (
	"context"
	"sort"
	"sync"

	"staking-vault-lab/internal/domain"
	"staking-vault-lab/internal/storage"
)

// EpochSnapshotStore is an in-memory implementation of
// storage.EpochSnapshotStore.
type EpochSnapshotStore struct {
	mu   sync.RWMutex
	data map[uint64]*domain.EpochSnapshot // keyed by epoch
}

// NewEpochSnapshotStore creates a new in-memory epoch snapshot store.
func NewEpochSnapshotStore() *EpochSnapshotStore {
	return &EpochSnapshotStore{data: make(map[uint64]*domain.EpochSnapshot)}
}

// Compile-time interface check.
var _ storage.EpochSnapshotStore = (*EpochSnapshotStore)(nil)

// Insert adds a new snapshot. Returns ErrDuplicateKey if the epoch already
// has one.
func (s *EpochSnapshotStore) Insert(_ context.Context, snap *domain.EpochSnapshot) error {
	if snap == nil {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[snap.Epoch]; exists {
		return storage.ErrDuplicateKey
	}
	s.data[snap.Epoch] = snap.Copy()
	return nil
}

// GetByEpochRange retrieves snapshots with epoch in [start, end], ordered
// by epoch ASC.
func (s *EpochSnapshotStore) GetByEpochRange(_ context.Context, start, end uint64) ([]*domain.EpochSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.EpochSnapshot
	for _, snap := range s.data {
		if snap.Epoch >= start && snap.Epoch <= end {
			result = append(result, snap.Copy())
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Epoch < result[j].Epoch
	})
	return result, nil
}

// GetLatest returns the most recent snapshot by epoch.
func (s *EpochSnapshotStore) GetLatest(_ context.Context) (*domain.EpochSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *domain.EpochSnapshot
	for _, snap := range s.data {
		if latest == nil || snap.Epoch > latest.Epoch {
			latest = snap
		}
	}
	if latest == nil {
		return nil, storage.ErrNotFound
	}
	return latest.Copy(), nil
}
