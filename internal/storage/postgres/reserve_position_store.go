package postgres

import (
	"context"
	"fmt"

	"staking-vault-lab/internal/domain"
	"staking-vault-lab/internal/storage"
)

// ReservePositionStore implements storage.ReservePositionStore using
// PostgreSQL.
type ReservePositionStore struct {
	pool *Pool
}

// NewReservePositionStore creates a new ReservePositionStore.
func NewReservePositionStore(pool *Pool) *ReservePositionStore {
	return &ReservePositionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ReservePositionStore = (*ReservePositionStore)(nil)

// Upsert saves or replaces a provider's position. A zero-share position is
// removed instead.
func (s *ReservePositionStore) Upsert(ctx context.Context, p *domain.ReservePosition) error {
	if p == nil || p.Provider == "" || p.Shares == nil {
		return storage.ErrInvalidInput
	}

	if p.Shares.Sign() == 0 {
		_, err := s.pool.Exec(ctx, `DELETE FROM reserve_positions WHERE provider = $1`, p.Provider)
		if err != nil {
			return fmt.Errorf("delete reserve position: %w", err)
		}
		return nil
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO reserve_positions (provider, shares, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (provider) DO UPDATE
		SET shares = EXCLUDED.shares,
		    updated_at = EXCLUDED.updated_at
	`, p.Provider, bigArg(p.Shares), p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert reserve position: %w", err)
	}
	return nil
}

// GetByProvider retrieves one position. Returns ErrNotFound if not exists.
func (s *ReservePositionStore) GetByProvider(ctx context.Context, provider string) (*domain.ReservePosition, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT provider, shares::text, updated_at
		FROM reserve_positions
		WHERE provider = $1
	`, provider)

	var p domain.ReservePosition
	var shares string
	if err := row.Scan(&p.Provider, &shares, &p.UpdatedAt); err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get reserve position: %w", err)
	}

	var err error
	if p.Shares, err = parseBig(shares); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetAll retrieves all positions ordered by provider.
func (s *ReservePositionStore) GetAll(ctx context.Context) ([]*domain.ReservePosition, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT provider, shares::text, updated_at
		FROM reserve_positions
		ORDER BY provider
	`)
	if err != nil {
		return nil, fmt.Errorf("query reserve positions: %w", err)
	}
	defer rows.Close()

	var out []*domain.ReservePosition
	for rows.Next() {
		var p domain.ReservePosition
		var shares string
		if err := rows.Scan(&p.Provider, &shares, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan reserve position row: %w", err)
		}
		if p.Shares, err = parseBig(shares); err != nil {
			return nil, err
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}
