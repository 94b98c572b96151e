// Package metrics computes yield analytics over the vault's rebase and
// epoch history: per-epoch rates, aggregate growth and annualized yield.
// Everything here is pure computation over history records.
package metrics

import (
	"math"
	"math/big"
	"sort"
	"time"

	"staking-vault-lab/internal/domain"
	"staking-vault-lab/internal/ledger"
)

// EpochYield is one epoch's realized yield, derived from a rebase event.
type EpochYield struct {
	Epoch       uint64
	At          time.Time
	Profit      *big.Int
	IndexBefore *big.Int
	IndexAfter  *big.Int
	Rate        float64 // indexAfter/indexBefore - 1
}

// Summary aggregates yield over a contiguous run of rebases.
type Summary struct {
	FromEpoch   uint64
	ToEpoch     uint64
	Rebases     int
	TotalProfit *big.Int
	Growth      float64 // index at end / index at start
	MeanRate    float64 // geometric mean per-epoch rate
	MaxRate     float64
	MinRate     float64
	APY         float64 // Growth annualized over the covered wall time
}

// ComputeEpochYields derives per-epoch rates from rebase events. Events
// are sorted by epoch; zero-profit epochs simply do not appear because no
// rebase event exists for them.
func ComputeEpochYields(events []*domain.RebaseEvent) []EpochYield {
	sorted := make([]*domain.RebaseEvent, len(events))
	copy(sorted, events)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Epoch < sorted[j].Epoch })

	yields := make([]EpochYield, 0, len(sorted))
	for _, e := range sorted {
		yields = append(yields, EpochYield{
			Epoch:       e.Epoch,
			At:          e.At,
			Profit:      domain.CloneBig(e.Profit),
			IndexBefore: domain.CloneBig(e.IndexBefore),
			IndexAfter:  domain.CloneBig(e.IndexAfter),
			Rate:        rate(e.IndexBefore, e.IndexAfter),
		})
	}
	return yields
}

// ComputeSummary aggregates a run of rebase events. epochLength is used to
// annualize; a non-positive length leaves APY at zero. Returns nil for an
// empty history.
func ComputeSummary(events []*domain.RebaseEvent, epochLength time.Duration) *Summary {
	yields := ComputeEpochYields(events)
	if len(yields) == 0 {
		return nil
	}

	first, last := yields[0], yields[len(yields)-1]
	s := &Summary{
		FromEpoch:   first.Epoch,
		ToEpoch:     last.Epoch,
		Rebases:     len(yields),
		TotalProfit: new(big.Int),
		Growth:      rate(first.IndexBefore, last.IndexAfter) + 1,
		MaxRate:     math.Inf(-1),
		MinRate:     math.Inf(1),
	}
	for _, y := range yields {
		s.TotalProfit.Add(s.TotalProfit, y.Profit)
		if y.Rate > s.MaxRate {
			s.MaxRate = y.Rate
		}
		if y.Rate < s.MinRate {
			s.MinRate = y.Rate
		}
	}

	// geometric mean over the epochs the run spans, including silent ones
	spanned := float64(last.Epoch-first.Epoch) + 1
	s.MeanRate = math.Pow(s.Growth, 1/spanned) - 1

	if epochLength > 0 {
		perYear := float64(365*24*time.Hour) / float64(epochLength)
		s.APY = math.Pow(1+s.MeanRate, perYear) - 1
	}
	return s
}

// ConservationDrift reports totalSupply minus the sum of per-holder
// balances in a ledger snapshot. Floor-division conversion guarantees
// 0 <= drift <= holders-1 wei; anything outside that range signals
// corruption.
func ConservationDrift(snap *domain.LedgerSnapshot) *big.Int {
	paid := new(big.Int)
	for _, credits := range snap.Credits {
		bal := new(big.Int).Mul(credits, snap.Index)
		bal.Quo(bal, ledger.IndexScale)
		paid.Add(paid, bal)
	}
	return new(big.Int).Sub(snap.TotalSupply, paid)
}

// DriftWithinTolerance reports whether the snapshot's conservation drift
// sits inside the rounding bound of one wei per holder.
func DriftWithinTolerance(snap *domain.LedgerSnapshot) bool {
	drift := ConservationDrift(snap)
	if drift.Sign() < 0 {
		return false
	}
	holders := int64(len(snap.Credits))
	if holders == 0 {
		return drift.Sign() == 0
	}
	return drift.Cmp(big.NewInt(holders-1)) <= 0
}

func rate(before, after *big.Int) float64 {
	if before == nil || before.Sign() == 0 || after == nil {
		return 0
	}
	num, _ := new(big.Float).SetInt(after).Float64()
	den, _ := new(big.Float).SetInt(before).Float64()
	return num/den - 1
}
