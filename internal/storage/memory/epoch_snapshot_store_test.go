package memory

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"staking-vault-lab/internal/domain"
	"staking-vault-lab/internal/storage"
)

func epochSnapshot(epoch uint64) *domain.EpochSnapshot {
	return &domain.EpochSnapshot{
		Epoch:             epoch,
		TakenAt:           time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(epoch) * time.Hour),
		Index:             big.NewInt(1_000_000_000_000_000_000),
		TotalSupply:       big.NewInt(10_000),
		TotalCredits:      big.NewInt(10_000),
		PendingWithdrawal: big.NewInt(0),
		ReserveLiquid:     big.NewInt(5_000),
		PoolCycleIndex:    1,
	}
}

func TestEpochSnapshotStore_InsertAndQuery(t *testing.T) {
	store := NewEpochSnapshotStore()
	ctx := context.Background()

	for epoch := uint64(1); epoch <= 4; epoch++ {
		if err := store.Insert(ctx, epochSnapshot(epoch)); err != nil {
			t.Fatalf("Insert epoch %d failed: %v", epoch, err)
		}
	}

	got, err := store.GetByEpochRange(ctx, 2, 3)
	if err != nil {
		t.Fatalf("GetByEpochRange failed: %v", err)
	}
	if len(got) != 2 || got[0].Epoch != 2 || got[1].Epoch != 3 {
		t.Errorf("range query returned wrong snapshots: %+v", got)
	}

	latest, err := store.GetLatest(ctx)
	if err != nil {
		t.Fatalf("GetLatest failed: %v", err)
	}
	if latest.Epoch != 4 {
		t.Errorf("Expected latest epoch 4, got %d", latest.Epoch)
	}
}

func TestEpochSnapshotStore_DuplicateEpoch(t *testing.T) {
	store := NewEpochSnapshotStore()
	ctx := context.Background()

	if err := store.Insert(ctx, epochSnapshot(1)); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}
	if err := store.Insert(ctx, epochSnapshot(1)); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}
