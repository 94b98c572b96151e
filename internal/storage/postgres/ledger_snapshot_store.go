package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"

	"staking-vault-lab/internal/domain"
	"staking-vault-lab/internal/storage"
)

// LedgerSnapshotStore implements storage.LedgerSnapshotStore using
// PostgreSQL. The per-holder credit map is stored as JSONB of decimal
// strings.
type LedgerSnapshotStore struct {
	pool *Pool
}

// NewLedgerSnapshotStore creates a new LedgerSnapshotStore.
func NewLedgerSnapshotStore(pool *Pool) *LedgerSnapshotStore {
	return &LedgerSnapshotStore{pool: pool}
}

// Compile-time interface check.
var _ storage.LedgerSnapshotStore = (*LedgerSnapshotStore)(nil)

// Save appends a new snapshot.
func (s *LedgerSnapshotStore) Save(ctx context.Context, snap *domain.LedgerSnapshot) error {
	if snap == nil {
		return storage.ErrInvalidInput
	}

	credits := make(map[string]string, len(snap.Credits))
	for holder, c := range snap.Credits {
		credits[holder] = bigArg(c)
	}
	creditsJSON, err := json.Marshal(credits)
	if err != nil {
		return fmt.Errorf("marshal credits: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO ledger_snapshots (taken_at, index_value, total_supply, total_credits, credits)
		VALUES ($1, $2, $3, $4, $5)
	`, snap.TakenAt, bigArg(snap.Index), bigArg(snap.TotalSupply), bigArg(snap.TotalCredits), creditsJSON)
	if err != nil {
		return fmt.Errorf("save ledger snapshot: %w", err)
	}
	return nil
}

// LoadLatest returns the most recent snapshot.
func (s *LedgerSnapshotStore) LoadLatest(ctx context.Context) (*domain.LedgerSnapshot, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT taken_at, index_value::text, total_supply::text, total_credits::text, credits
		FROM ledger_snapshots
		ORDER BY id DESC
		LIMIT 1
	`)

	var snap domain.LedgerSnapshot
	var index, supply, credits string
	var creditsJSON []byte
	err := row.Scan(&snap.TakenAt, &index, &supply, &credits, &creditsJSON)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("load ledger snapshot: %w", err)
	}

	if snap.Index, err = parseBig(index); err != nil {
		return nil, err
	}
	if snap.TotalSupply, err = parseBig(supply); err != nil {
		return nil, err
	}
	if snap.TotalCredits, err = parseBig(credits); err != nil {
		return nil, err
	}

	var raw map[string]string
	if err := json.Unmarshal(creditsJSON, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal credits: %w", err)
	}
	snap.Credits = make(map[string]*big.Int, len(raw))
	for holder, c := range raw {
		if snap.Credits[holder], err = parseBig(c); err != nil {
			return nil, err
		}
	}
	return &snap, nil
}
