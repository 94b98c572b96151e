package memory

import (
	"context"
	"sync"

	"staking-vault-lab/internal/domain"
	"staking-vault-lab/internal/storage"
)

// LedgerSnapshotStore is an in-memory implementation of
// storage.LedgerSnapshotStore.
type LedgerSnapshotStore struct {
	mu    sync.RWMutex
	snaps []*domain.LedgerSnapshot
}

// NewLedgerSnapshotStore creates a new in-memory ledger snapshot store.
func NewLedgerSnapshotStore() *LedgerSnapshotStore {
	return &LedgerSnapshotStore{}
}

// Compile-time interface check.
var _ storage.LedgerSnapshotStore = (*LedgerSnapshotStore)(nil)

// Save appends a new snapshot.
func (s *LedgerSnapshotStore) Save(_ context.Context, snap *domain.LedgerSnapshot) error {
	if snap == nil {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.snaps = append(s.snaps, snap.Copy())
	return nil
}

// LoadLatest returns the most recent snapshot.
func (s *LedgerSnapshotStore) LoadLatest(_ context.Context) (*domain.LedgerSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.snaps) == 0 {
		return nil, storage.ErrNotFound
	}
	return s.snaps[len(s.snaps)-1].Copy(), nil
}
