package clickhouse

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"staking-vault-lab/internal/domain"
	"staking-vault-lab/internal/storage"
)

// RebaseHistoryStore implements storage.RebaseHistoryStore using ClickHouse.
type RebaseHistoryStore struct {
	conn *Conn
}

// NewRebaseHistoryStore creates a new RebaseHistoryStore.
func NewRebaseHistoryStore(conn *Conn) *RebaseHistoryStore {
	return &RebaseHistoryStore{conn: conn}
}

// Compile-time interface check.
var _ storage.RebaseHistoryStore = (*RebaseHistoryStore)(nil)

// Insert adds a new event. Returns ErrDuplicateKey if event_id exists.
// MergeTree does not enforce uniqueness, so existence is checked first.
func (s *RebaseHistoryStore) Insert(ctx context.Context, e *domain.RebaseEvent) error {
	if e == nil || e.EventID == "" {
		return storage.ErrInvalidInput
	}

	exists, err := s.exists(ctx, e.EventID)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	err = s.conn.Exec(ctx, `
		INSERT INTO rebase_history (
			event_id, epoch, occurred_at, profit, index_before, index_after, supply_after
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		e.EventID, e.Epoch, e.At, bigString(e.Profit),
		bigString(e.IndexBefore), bigString(e.IndexAfter), bigString(e.SupplyAfter),
	)
	if err != nil {
		return fmt.Errorf("insert rebase event: %w", err)
	}
	return nil
}

// GetByEpochRange retrieves events with epoch in [start, end], ordered by
// epoch ASC.
func (s *RebaseHistoryStore) GetByEpochRange(ctx context.Context, start, end uint64) ([]*domain.RebaseEvent, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT event_id, epoch, occurred_at, profit, index_before, index_after, supply_after
		FROM rebase_history
		WHERE epoch >= ? AND epoch <= ?
		ORDER BY epoch ASC
	`, start, end)
	if err != nil {
		return nil, fmt.Errorf("query rebase history: %w", err)
	}
	defer rows.Close()

	var out []*domain.RebaseEvent
	for rows.Next() {
		var e domain.RebaseEvent
		var at time.Time
		var profit, indexBefore, indexAfter, supplyAfter string
		if err := rows.Scan(&e.EventID, &e.Epoch, &at, &profit, &indexBefore, &indexAfter, &supplyAfter); err != nil {
			return nil, fmt.Errorf("scan rebase history row: %w", err)
		}
		e.At = at
		if e.Profit, err = parseBigString(profit); err != nil {
			return nil, err
		}
		if e.IndexBefore, err = parseBigString(indexBefore); err != nil {
			return nil, err
		}
		if e.IndexAfter, err = parseBigString(indexAfter); err != nil {
			return nil, err
		}
		if e.SupplyAfter, err = parseBigString(supplyAfter); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rebase history rows: %w", err)
	}
	return out, nil
}

// GetLatest returns the most recent event by epoch.
func (s *RebaseHistoryStore) GetLatest(ctx context.Context) (*domain.RebaseEvent, error) {
	events, err := s.GetByEpochRange(ctx, 0, ^uint64(0))
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, storage.ErrNotFound
	}
	return events[len(events)-1], nil
}

// exists checks if an event with the given id exists.
func (s *RebaseHistoryStore) exists(ctx context.Context, eventID string) (bool, error) {
	var count uint64
	err := s.conn.QueryRow(ctx, `
		SELECT count(*) FROM rebase_history WHERE event_id = ?
	`, eventID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// bigString renders an amount as its decimal string, mapping nil to "0".
func bigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

// parseBigString converts a stored decimal string back into a big.Int.
func parseBigString(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("parse amount %q", s)
	}
	return v, nil
}
