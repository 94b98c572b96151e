package storage

import (
	"context"

	"staking-vault-lab/internal/domain"
)

// WarmupLockStore persists warm-up locks keyed by holder.
type WarmupLockStore interface {
	// Upsert saves or replaces the lock for a holder.
	Upsert(ctx context.Context, holder string, lock *domain.WarmupLock) error

	// Get retrieves a holder's lock. Returns ErrNotFound if none exists.
	Get(ctx context.Context, holder string) (*domain.WarmupLock, error)

	// Delete removes a holder's lock. Deleting a missing lock is not an error.
	Delete(ctx context.Context, holder string) error

	// GetAll retrieves every live lock keyed by holder.
	GetAll(ctx context.Context) (map[string]*domain.WarmupLock, error)
}

// CooldownLockStore persists cool-down locks keyed by holder.
type CooldownLockStore interface {
	// Upsert saves or replaces the lock for a holder.
	Upsert(ctx context.Context, holder string, lock *domain.CooldownLock) error

	// Get retrieves a holder's lock. Returns ErrNotFound if none exists.
	Get(ctx context.Context, holder string) (*domain.CooldownLock, error)

	// Delete removes a holder's lock. Deleting a missing lock is not an error.
	Delete(ctx context.Context, holder string) error

	// GetAll retrieves every live lock keyed by holder.
	GetAll(ctx context.Context) (map[string]*domain.CooldownLock, error)
}

// EpochStateStore persists the coordinator's single-row restart state:
// current epoch, queued rewards and the external-pool cycle cursor.
type EpochStateStore interface {
	// Save replaces the stored state.
	Save(ctx context.Context, state *domain.EpochState) error

	// Load returns the stored state. Returns ErrNotFound before the first Save.
	Load(ctx context.Context) (*domain.EpochState, error)
}

// LedgerSnapshotStore persists full dumps of the rebasing ledger.
type LedgerSnapshotStore interface {
	// Save appends a new snapshot.
	Save(ctx context.Context, snap *domain.LedgerSnapshot) error

	// LoadLatest returns the most recent snapshot. Returns ErrNotFound if
	// none has been saved.
	LoadLatest(ctx context.Context) (*domain.LedgerSnapshot, error)
}

// ReservePositionStore persists liquidity-provider share positions.
type ReservePositionStore interface {
	// Upsert saves or replaces a provider's position. A zero-share position
	// is removed instead.
	Upsert(ctx context.Context, p *domain.ReservePosition) error

	// GetByProvider retrieves one position. Returns ErrNotFound if not exists.
	GetByProvider(ctx context.Context, provider string) (*domain.ReservePosition, error)

	// GetAll retrieves all positions.
	GetAll(ctx context.Context) ([]*domain.ReservePosition, error)
}

// RebaseHistoryStore provides access to the append-only rebase history.
type RebaseHistoryStore interface {
	// Insert adds a new event. Returns ErrDuplicateKey if event_id exists.
	Insert(ctx context.Context, e *domain.RebaseEvent) error

	// GetByEpochRange retrieves events with epoch in [start, end] (inclusive),
	// ordered by epoch ASC.
	GetByEpochRange(ctx context.Context, start, end uint64) ([]*domain.RebaseEvent, error)

	// GetLatest returns the most recent event. Returns ErrNotFound if the
	// history is empty.
	GetLatest(ctx context.Context) (*domain.RebaseEvent, error)
}

// EpochSnapshotStore provides access to per-epoch vault snapshots.
type EpochSnapshotStore interface {
	// Insert adds a new snapshot. Returns ErrDuplicateKey if the epoch
	// already has one.
	Insert(ctx context.Context, s *domain.EpochSnapshot) error

	// GetByEpochRange retrieves snapshots with epoch in [start, end]
	// (inclusive), ordered by epoch ASC.
	GetByEpochRange(ctx context.Context, start, end uint64) ([]*domain.EpochSnapshot, error)

	// GetLatest returns the most recent snapshot. Returns ErrNotFound if
	// none exists.
	GetLatest(ctx context.Context) (*domain.EpochSnapshot, error)
}
