package clickhouse_test

import (
	"context"
	"fmt"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staking-vault-lab/internal/domain"
	"staking-vault-lab/internal/storage"
	chstore "staking-vault-lab/internal/storage/clickhouse"
)

func testRebaseEvent(id string, epoch uint64) *domain.RebaseEvent {
	return &domain.RebaseEvent{
		EventID:     id,
		Epoch:       epoch,
		At:          time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(epoch) * time.Hour),
		Profit:      big.NewInt(1_000),
		IndexBefore: big.NewInt(1_000_000_000_000_000_000),
		IndexAfter:  big.NewInt(1_100_000_000_000_000_000),
		SupplyAfter: big.NewInt(11_000),
	}
}

func TestRebaseHistoryStore_InsertAndQuery(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := chstore.NewRebaseHistoryStore(conn)
	ctx := context.Background()

	for epoch := uint64(1); epoch <= 4; epoch++ {
		require.NoError(t, store.Insert(ctx, testRebaseEvent(fmt.Sprintf("ev-%d", epoch), epoch)))
	}

	got, err := store.GetByEpochRange(ctx, 2, 3)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, uint64(2), got[0].Epoch)
	assert.Equal(t, uint64(3), got[1].Epoch)
	assert.Equal(t, 0, got[0].Profit.Cmp(big.NewInt(1_000)))
	assert.Equal(t, 0, got[0].IndexAfter.Cmp(big.NewInt(1_100_000_000_000_000_000)))

	latest, err := store.GetLatest(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), latest.Epoch)
}

func TestRebaseHistoryStore_DuplicateKey(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := chstore.NewRebaseHistoryStore(conn)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, testRebaseEvent("ev-1", 1)))
	err := store.Insert(ctx, testRebaseEvent("ev-1", 2))
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestRebaseHistoryStore_EmptyHistory(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := chstore.NewRebaseHistoryStore(conn)

	_, err := store.GetLatest(context.Background())
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
