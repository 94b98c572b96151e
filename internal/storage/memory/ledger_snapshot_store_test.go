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

func TestLedgerSnapshotStore_SaveAndLoadLatest(t *testing.T) {
	store := NewLedgerSnapshotStore()
	ctx := context.Background()

	if _, err := store.LoadLatest(ctx); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound on empty store, got %v", err)
	}

	first := &domain.LedgerSnapshot{
		TakenAt:      time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		Index:        big.NewInt(1_000_000_000_000_000_000),
		TotalSupply:  big.NewInt(10_000),
		TotalCredits: big.NewInt(10_000),
		Credits:      map[string]*big.Int{"alice": big.NewInt(10_000)},
	}
	if err := store.Save(ctx, first); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	second := first.Copy()
	second.TakenAt = first.TakenAt.Add(time.Hour)
	second.TotalSupply = big.NewInt(11_000)
	if err := store.Save(ctx, second); err != nil {
		t.Fatalf("second Save failed: %v", err)
	}

	got, err := store.LoadLatest(ctx)
	if err != nil {
		t.Fatalf("LoadLatest failed: %v", err)
	}
	if got.TotalSupply.Cmp(big.NewInt(11_000)) != 0 {
		t.Errorf("LoadLatest returned stale snapshot: %v", got.TotalSupply)
	}
	if got.Credits["alice"].Cmp(big.NewInt(10_000)) != 0 {
		t.Errorf("Credits mismatch: %v", got.Credits)
	}

	// returned snapshot is a copy
	got.Credits["alice"].SetInt64(1)
	again, err := store.LoadLatest(ctx)
	if err != nil {
		t.Fatalf("LoadLatest after mutation failed: %v", err)
	}
	if again.Credits["alice"].Cmp(big.NewInt(10_000)) != 0 {
		t.Errorf("stored snapshot mutated through returned copy")
	}
}
