package memory

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"staking-vault-lab/internal/domain"
	"staking-vault-lab/internal/storage"
)

func TestWarmupLockStore_UpsertAndGet(t *testing.T) {
	store := NewWarmupLockStore()
	ctx := context.Background()

	lock := &domain.WarmupLock{
		Amount:      big.NewInt(10_000),
		Credits:     big.NewInt(10_000),
		ExpiryEpoch: 3,
	}

	if err := store.Upsert(ctx, "alice", lock); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	got, err := store.Get(ctx, "alice")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Amount.Cmp(lock.Amount) != 0 || got.ExpiryEpoch != 3 {
		t.Errorf("lock mismatch: got %+v", got)
	}

	// upsert replaces
	lock.ExpiryEpoch = 5
	if err := store.Upsert(ctx, "alice", lock); err != nil {
		t.Fatalf("second Upsert failed: %v", err)
	}
	got, err = store.Get(ctx, "alice")
	if err != nil {
		t.Fatalf("Get after replace failed: %v", err)
	}
	if got.ExpiryEpoch != 5 {
		t.Errorf("ExpiryEpoch not replaced: got %d", got.ExpiryEpoch)
	}
}

func TestWarmupLockStore_GetMissing(t *testing.T) {
	store := NewWarmupLockStore()

	_, err := store.Get(context.Background(), "nobody")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestWarmupLockStore_Delete(t *testing.T) {
	store := NewWarmupLockStore()
	ctx := context.Background()

	lock := &domain.WarmupLock{Amount: big.NewInt(1), Credits: big.NewInt(1), ExpiryEpoch: 2}
	if err := store.Upsert(ctx, "alice", lock); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if err := store.Delete(ctx, "alice"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Get(ctx, "alice"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}

	// deleting a missing lock is fine
	if err := store.Delete(ctx, "alice"); err != nil {
		t.Errorf("Delete of missing lock failed: %v", err)
	}
}

func TestWarmupLockStore_GetAllCopies(t *testing.T) {
	store := NewWarmupLockStore()
	ctx := context.Background()

	lock := &domain.WarmupLock{Amount: big.NewInt(100), Credits: big.NewInt(100), ExpiryEpoch: 2}
	if err := store.Upsert(ctx, "alice", lock); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	all, err := store.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("Expected 1 lock, got %d", len(all))
	}

	// mutating the returned copy must not touch stored state
	all["alice"].Amount.SetInt64(999)
	got, err := store.Get(ctx, "alice")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Amount.Int64() != 100 {
		t.Errorf("stored lock mutated through GetAll result: %v", got.Amount)
	}
}

func TestWarmupLockStore_InvalidInput(t *testing.T) {
	store := NewWarmupLockStore()
	ctx := context.Background()

	if err := store.Upsert(ctx, "", &domain.WarmupLock{}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for empty holder, got %v", err)
	}
	if err := store.Upsert(ctx, "alice", nil); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for nil lock, got %v", err)
	}
}
