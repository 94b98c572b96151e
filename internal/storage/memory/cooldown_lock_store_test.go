package memory

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"staking-vault-lab/internal/domain"
	"staking-vault-lab/internal/storage"
)

func TestCooldownLockStore_Lifecycle(t *testing.T) {
	store := NewCooldownLockStore()
	ctx := context.Background()

	lock := &domain.CooldownLock{
		Amount:      big.NewInt(4_000),
		Credits:     big.NewInt(4_000),
		ExpiryEpoch: 7,
	}

	if err := store.Upsert(ctx, "bob", lock); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	got, err := store.Get(ctx, "bob")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Amount.Cmp(lock.Amount) != 0 || got.ExpiryEpoch != 7 {
		t.Errorf("lock mismatch: got %+v", got)
	}

	all, err := store.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("Expected 1 lock, got %d", len(all))
	}

	if err := store.Delete(ctx, "bob"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Get(ctx, "bob"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
}

func TestCooldownLockStore_InvalidInput(t *testing.T) {
	store := NewCooldownLockStore()
	ctx := context.Background()

	if err := store.Upsert(ctx, "", &domain.CooldownLock{}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for empty holder, got %v", err)
	}
	if err := store.Upsert(ctx, "bob", nil); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for nil lock, got %v", err)
	}
}
