package postgres

import (
	"context"
	"fmt"

	"staking-vault-lab/internal/domain"
	"staking-vault-lab/internal/storage"
)

// CooldownLockStore implements storage.CooldownLockStore using PostgreSQL.
type CooldownLockStore struct {
	pool *Pool
}

// NewCooldownLockStore creates a new CooldownLockStore.
func NewCooldownLockStore(pool *Pool) *CooldownLockStore {
	return &CooldownLockStore{pool: pool}
}

// Compile-time interface check.
var _ storage.CooldownLockStore = (*CooldownLockStore)(nil)

// Upsert saves or replaces the lock for a holder.
func (s *CooldownLockStore) Upsert(ctx context.Context, holder string, lock *domain.CooldownLock) error {
	if holder == "" || lock == nil {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO cooldown_locks (holder, amount, credits, expiry_epoch, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (holder) DO UPDATE
		SET amount = EXCLUDED.amount,
		    credits = EXCLUDED.credits,
		    expiry_epoch = EXCLUDED.expiry_epoch,
		    updated_at = NOW()
	`, holder, bigArg(lock.Amount), bigArg(lock.Credits), lock.ExpiryEpoch)
	if err != nil {
		return fmt.Errorf("upsert cooldown lock: %w", err)
	}
	return nil
}

// Get retrieves a holder's lock. Returns ErrNotFound if none exists.
func (s *CooldownLockStore) Get(ctx context.Context, holder string) (*domain.CooldownLock, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT amount::text, credits::text, expiry_epoch
		FROM cooldown_locks
		WHERE holder = $1
	`, holder)

	var amount, credits string
	var lock domain.CooldownLock
	if err := row.Scan(&amount, &credits, &lock.ExpiryEpoch); err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get cooldown lock: %w", err)
	}

	var err error
	if lock.Amount, err = parseBig(amount); err != nil {
		return nil, err
	}
	if lock.Credits, err = parseBig(credits); err != nil {
		return nil, err
	}
	return &lock, nil
}

// Delete removes a holder's lock.
func (s *CooldownLockStore) Delete(ctx context.Context, holder string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM cooldown_locks WHERE holder = $1`, holder)
	if err != nil {
		return fmt.Errorf("delete cooldown lock: %w", err)
	}
	return nil
}

// GetAll retrieves every live lock keyed by holder.
func (s *CooldownLockStore) GetAll(ctx context.Context) (map[string]*domain.CooldownLock, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT holder, amount::text, credits::text, expiry_epoch
		FROM cooldown_locks
	`)
	if err != nil {
		return nil, fmt.Errorf("query cooldown locks: %w", err)
	}
	defer rows.Close()

	out := make(map[string]*domain.CooldownLock)
	for rows.Next() {
		var holder, amount, credits string
		var lock domain.CooldownLock
		if err := rows.Scan(&holder, &amount, &credits, &lock.ExpiryEpoch); err != nil {
			return nil, fmt.Errorf("scan cooldown lock row: %w", err)
		}
		if lock.Amount, err = parseBig(amount); err != nil {
			return nil, err
		}
		if lock.Credits, err = parseBig(credits); err != nil {
			return nil, err
		}
		out[holder] = &lock
	}
	return out, rows.Err()
}
