package postgres

import (
	"context"
	"fmt"

	"staking-vault-lab/internal/domain"
	"staking-vault-lab/internal/storage"
)

// RebaseHistoryStore implements storage.RebaseHistoryStore using
// PostgreSQL. Used when the daemon runs without a ClickHouse backend.
type RebaseHistoryStore struct {
	pool *Pool
}

// NewRebaseHistoryStore creates a new RebaseHistoryStore.
func NewRebaseHistoryStore(pool *Pool) *RebaseHistoryStore {
	return &RebaseHistoryStore{pool: pool}
}

// Compile-time interface check.
var _ storage.RebaseHistoryStore = (*RebaseHistoryStore)(nil)

// Insert adds a new event. Returns ErrDuplicateKey if event_id exists.
func (s *RebaseHistoryStore) Insert(ctx context.Context, e *domain.RebaseEvent) error {
	if e == nil || e.EventID == "" {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO rebase_history (
			event_id, epoch, occurred_at, profit, index_before, index_after, supply_after
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		e.EventID, e.Epoch, e.At, bigArg(e.Profit),
		bigArg(e.IndexBefore), bigArg(e.IndexAfter), bigArg(e.SupplyAfter),
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert rebase event: %w", err)
	}
	return nil
}

// GetByEpochRange retrieves events with epoch in [start, end], ordered by
// epoch ASC.
func (s *RebaseHistoryStore) GetByEpochRange(ctx context.Context, start, end uint64) ([]*domain.RebaseEvent, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT event_id, epoch, occurred_at, profit::text,
		       index_before::text, index_after::text, supply_after::text
		FROM rebase_history
		WHERE epoch >= $1 AND epoch <= $2
		ORDER BY epoch ASC
	`, start, end)
	if err != nil {
		return nil, fmt.Errorf("query rebase history: %w", err)
	}
	defer rows.Close()

	var out []*domain.RebaseEvent
	for rows.Next() {
		e, err := scanRebaseEvent(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// GetLatest returns the most recent event by epoch.
func (s *RebaseHistoryStore) GetLatest(ctx context.Context) (*domain.RebaseEvent, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT event_id, epoch, occurred_at, profit::text,
		       index_before::text, index_after::text, supply_after::text
		FROM rebase_history
		ORDER BY epoch DESC
		LIMIT 1
	`)

	e, err := scanRebaseEvent(row.Scan)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

// scanRebaseEvent scans one row through the given Scan func.
func scanRebaseEvent(scan func(dest ...any) error) (*domain.RebaseEvent, error) {
	var e domain.RebaseEvent
	var profit, indexBefore, indexAfter, supplyAfter string
	if err := scan(&e.EventID, &e.Epoch, &e.At, &profit, &indexBefore, &indexAfter, &supplyAfter); err != nil {
		return nil, err
	}

	var err error
	if e.Profit, err = parseBig(profit); err != nil {
		return nil, err
	}
	if e.IndexBefore, err = parseBig(indexBefore); err != nil {
		return nil, err
	}
	if e.IndexAfter, err = parseBig(indexAfter); err != nil {
		return nil, err
	}
	if e.SupplyAfter, err = parseBig(supplyAfter); err != nil {
		return nil, err
	}
	return &e, nil
}
