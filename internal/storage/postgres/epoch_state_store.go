package postgres

import (
	"context"
	"fmt"
	"time"

	"staking-vault-lab/internal/domain"
	"staking-vault-lab/internal/storage"
)

// EpochStateStore implements storage.EpochStateStore using PostgreSQL.
// Single-row table: the coordinator's restart state is always row id=1.
type EpochStateStore struct {
	pool *Pool
}

// NewEpochStateStore creates a new EpochStateStore.
func NewEpochStateStore(pool *Pool) *EpochStateStore {
	return &EpochStateStore{pool: pool}
}

// Compile-time interface check.
var _ storage.EpochStateStore = (*EpochStateStore)(nil)

// Save replaces the stored state.
func (s *EpochStateStore) Save(ctx context.Context, state *domain.EpochState) error {
	if state == nil {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO epoch_state (
			id, epoch_number, epoch_length_ms, epoch_end_time, distribute,
			pending_rewards, request_withdrawal, last_pool_cycle_index, saved_at
		) VALUES (1, $1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE
		SET epoch_number = EXCLUDED.epoch_number,
		    epoch_length_ms = EXCLUDED.epoch_length_ms,
		    epoch_end_time = EXCLUDED.epoch_end_time,
		    distribute = EXCLUDED.distribute,
		    pending_rewards = EXCLUDED.pending_rewards,
		    request_withdrawal = EXCLUDED.request_withdrawal,
		    last_pool_cycle_index = EXCLUDED.last_pool_cycle_index,
		    saved_at = EXCLUDED.saved_at
	`,
		state.Epoch.Number, state.Epoch.Length.Milliseconds(), state.Epoch.EndTime,
		bigArg(state.Epoch.Distribute), bigArg(state.PendingRewards),
		bigArg(state.RequestWithdrawal), state.LastPoolCycleIndex, state.SavedAt,
	)
	if err != nil {
		return fmt.Errorf("save epoch state: %w", err)
	}
	return nil
}

// Load returns the stored state. Returns ErrNotFound before the first Save.
func (s *EpochStateStore) Load(ctx context.Context) (*domain.EpochState, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT epoch_number, epoch_length_ms, epoch_end_time, distribute::text,
		       pending_rewards::text, request_withdrawal::text,
		       last_pool_cycle_index, saved_at
		FROM epoch_state
		WHERE id = 1
	`)

	var state domain.EpochState
	var lengthMs int64
	var distribute, pending, request string
	err := row.Scan(
		&state.Epoch.Number, &lengthMs, &state.Epoch.EndTime, &distribute,
		&pending, &request, &state.LastPoolCycleIndex, &state.SavedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("load epoch state: %w", err)
	}

	state.Epoch.Length = time.Duration(lengthMs) * time.Millisecond
	if state.Epoch.Distribute, err = parseBig(distribute); err != nil {
		return nil, err
	}
	if state.PendingRewards, err = parseBig(pending); err != nil {
		return nil, err
	}
	if state.RequestWithdrawal, err = parseBig(request); err != nil {
		return nil, err
	}
	return &state, nil
}
