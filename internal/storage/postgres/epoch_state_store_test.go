package postgres_test

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staking-vault-lab/internal/domain"
	"staking-vault-lab/internal/storage"
	"staking-vault-lab/internal/storage/postgres"
)

func TestEpochStateStore_SaveAndLoad(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := postgres.NewEpochStateStore(pool)
	ctx := context.Background()

	_, err := store.Load(ctx)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	state := &domain.EpochState{
		Epoch: domain.Epoch{
			Length:     time.Hour,
			Number:     4,
			EndTime:    time.Date(2025, 6, 1, 4, 0, 0, 0, time.UTC),
			Distribute: big.NewInt(1_000),
		},
		PendingRewards:     big.NewInt(500),
		RequestWithdrawal:  big.NewInt(2_000),
		LastPoolCycleIndex: 3,
		SavedAt:            time.Date(2025, 6, 1, 3, 30, 0, 0, time.UTC),
	}
	require.NoError(t, store.Save(ctx, state))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), got.Epoch.Number)
	assert.Equal(t, time.Hour, got.Epoch.Length)
	assert.True(t, got.Epoch.EndTime.Equal(state.Epoch.EndTime))
	assert.Equal(t, 0, got.Epoch.Distribute.Cmp(big.NewInt(1_000)))
	assert.Equal(t, 0, got.PendingRewards.Cmp(big.NewInt(500)))
	assert.Equal(t, 0, got.RequestWithdrawal.Cmp(big.NewInt(2_000)))
	assert.Equal(t, uint64(3), got.LastPoolCycleIndex)

	// later save replaces the single row
	state.Epoch.Number = 5
	require.NoError(t, store.Save(ctx, state))
	got, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), got.Epoch.Number)
}
