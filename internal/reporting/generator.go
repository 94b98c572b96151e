package reporting

import (
	"context"
	"errors"
	"sort"
	"time"

	"staking-vault-lab/internal/metrics"
	"staking-vault-lab/internal/storage"
)

// Generator produces reports from stored history.
type Generator struct {
	snapshotStore storage.EpochSnapshotStore
	rebaseStore   storage.RebaseHistoryStore
	ledgerStore   storage.LedgerSnapshotStore // optional, enables the health section
	epochLength   time.Duration
	now           func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(
	snapshotStore storage.EpochSnapshotStore,
	rebaseStore storage.RebaseHistoryStore,
	ledgerStore storage.LedgerSnapshotStore,
	epochLength time.Duration,
) *Generator {
	return &Generator{
		snapshotStore: snapshotStore,
		rebaseStore:   rebaseStore,
		ledgerStore:   ledgerStore,
		epochLength:   epochLength,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate produces a complete report over the stored history.
func (g *Generator) Generate(ctx context.Context) (*Report, error) {
	snaps, err := g.snapshotStore.GetByEpochRange(ctx, 0, ^uint64(0))
	if err != nil {
		return nil, err
	}
	sort.Slice(snaps, func(i, j int) bool { return snaps[i].Epoch < snaps[j].Epoch })

	r := &Report{GeneratedAt: g.now()}
	for _, s := range snaps {
		r.Epochs = append(r.Epochs, EpochRow{
			Epoch:             s.Epoch,
			TakenAt:           s.TakenAt,
			Index:             s.Index.String(),
			TotalSupply:       s.TotalSupply.String(),
			TotalCredits:      s.TotalCredits.String(),
			PendingWithdrawal: s.PendingWithdrawal.String(),
			PoolCycleIndex:    s.PoolCycleIndex,
		})
	}
	if len(r.Epochs) > 0 {
		r.FromEpoch = r.Epochs[0].Epoch
		r.ToEpoch = r.Epochs[len(r.Epochs)-1].Epoch
	}

	events, err := g.rebaseStore.GetByEpochRange(ctx, 0, ^uint64(0))
	if err != nil {
		return nil, err
	}
	r.Yield = metrics.ComputeSummary(events, g.epochLength)

	if g.ledgerStore != nil {
		snap, err := g.ledgerStore.LoadLatest(ctx)
		switch {
		case err == nil:
			r.Health = HealthSection{
				Checked:         true,
				Holders:         len(snap.Credits),
				Drift:           metrics.ConservationDrift(snap).String(),
				WithinTolerance: metrics.DriftWithinTolerance(snap),
			}
		case !errors.Is(err, storage.ErrNotFound):
			return nil, err
		}
	}

	return r, nil
}
