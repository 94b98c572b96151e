package clickhouse

import (
	"context"
	"fmt"
	"time"

	"staking-vault-lab/internal/domain"
	"staking-vault-lab/internal/storage"
)

// EpochSnapshotStore implements storage.EpochSnapshotStore using ClickHouse.
type EpochSnapshotStore struct {
	conn *Conn
}

// NewEpochSnapshotStore creates a new EpochSnapshotStore.
func NewEpochSnapshotStore(conn *Conn) *EpochSnapshotStore {
	return &EpochSnapshotStore{conn: conn}
}

// Compile-time interface check.
var _ storage.EpochSnapshotStore = (*EpochSnapshotStore)(nil)

// Insert adds a new snapshot. Returns ErrDuplicateKey if the epoch already
// has one. MergeTree does not enforce uniqueness, so existence is checked
// first.
func (s *EpochSnapshotStore) Insert(ctx context.Context, snap *domain.EpochSnapshot) error {
	if snap == nil {
		return storage.ErrInvalidInput
	}

	exists, err := s.exists(ctx, snap.Epoch)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	err = s.conn.Exec(ctx, `
		INSERT INTO epoch_snapshots (
			epoch, taken_at, index_value, total_supply, total_credits,
			pending_withdrawal, reserve_liquid, pool_cycle_index
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		snap.Epoch, snap.TakenAt, bigString(snap.Index), bigString(snap.TotalSupply),
		bigString(snap.TotalCredits), bigString(snap.PendingWithdrawal),
		bigString(snap.ReserveLiquid), snap.PoolCycleIndex,
	)
	if err != nil {
		return fmt.Errorf("insert epoch snapshot: %w", err)
	}
	return nil
}

// GetByEpochRange retrieves snapshots with epoch in [start, end], ordered
// by epoch ASC.
func (s *EpochSnapshotStore) GetByEpochRange(ctx context.Context, start, end uint64) ([]*domain.EpochSnapshot, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT epoch, taken_at, index_value, total_supply, total_credits,
		       pending_withdrawal, reserve_liquid, pool_cycle_index
		FROM epoch_snapshots
		WHERE epoch >= ? AND epoch <= ?
		ORDER BY epoch ASC
	`, start, end)
	if err != nil {
		return nil, fmt.Errorf("query epoch snapshots: %w", err)
	}
	defer rows.Close()

	var out []*domain.EpochSnapshot
	for rows.Next() {
		var snap domain.EpochSnapshot
		var takenAt time.Time
		var index, supply, credits, pending, reserveLiquid string
		err := rows.Scan(
			&snap.Epoch, &takenAt, &index, &supply, &credits,
			&pending, &reserveLiquid, &snap.PoolCycleIndex,
		)
		if err != nil {
			return nil, fmt.Errorf("scan epoch snapshot row: %w", err)
		}
		snap.TakenAt = takenAt
		if snap.Index, err = parseBigString(index); err != nil {
			return nil, err
		}
		if snap.TotalSupply, err = parseBigString(supply); err != nil {
			return nil, err
		}
		if snap.TotalCredits, err = parseBigString(credits); err != nil {
			return nil, err
		}
		if snap.PendingWithdrawal, err = parseBigString(pending); err != nil {
			return nil, err
		}
		if snap.ReserveLiquid, err = parseBigString(reserveLiquid); err != nil {
			return nil, err
		}
		out = append(out, &snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate epoch snapshot rows: %w", err)
	}
	return out, nil
}

// GetLatest returns the most recent snapshot by epoch.
func (s *EpochSnapshotStore) GetLatest(ctx context.Context) (*domain.EpochSnapshot, error) {
	snaps, err := s.GetByEpochRange(ctx, 0, ^uint64(0))
	if err != nil {
		return nil, err
	}
	if len(snaps) == 0 {
		return nil, storage.ErrNotFound
	}
	return snaps[len(snaps)-1], nil
}

// exists checks if a snapshot for the given epoch exists.
func (s *EpochSnapshotStore) exists(ctx context.Context, epoch uint64) (bool, error) {
	var count uint64
	err := s.conn.QueryRow(ctx, `
		SELECT count(*) FROM epoch_snapshots WHERE epoch = ?
	`, epoch).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
