package metrics

import (
	"context"
	"fmt"
	"time"

	"staking-vault-lab/internal/storage"
)

// Aggregator computes yield summaries from stored rebase history.
type Aggregator struct {
	rebaseStore storage.RebaseHistoryStore
	epochLength time.Duration
}

// NewAggregator creates an aggregator over a rebase history store.
func NewAggregator(rebaseStore storage.RebaseHistoryStore, epochLength time.Duration) *Aggregator {
	return &Aggregator{rebaseStore: rebaseStore, epochLength: epochLength}
}

// Summarize computes the yield summary for epochs in [start, end]
// inclusive. Returns nil with no error when the range holds no rebases.
func (a *Aggregator) Summarize(ctx context.Context, start, end uint64) (*Summary, error) {
	events, err := a.rebaseStore.GetByEpochRange(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("load rebase history: %w", err)
	}
	return ComputeSummary(events, a.epochLength), nil
}

// SummarizeAll computes the yield summary over the entire stored history.
func (a *Aggregator) SummarizeAll(ctx context.Context) (*Summary, error) {
	return a.Summarize(ctx, 0, ^uint64(0))
}
