// Package reporting renders vault history into human-readable reports:
// a Markdown summary and a CSV of per-epoch snapshots.
package reporting

import (
	"time"

	"staking-vault-lab/internal/metrics"
)

// Report is a point-in-time view of the vault's history.
type Report struct {
	GeneratedAt time.Time
	FromEpoch   uint64
	ToEpoch     uint64

	// Per-epoch snapshot rows, sorted by epoch.
	Epochs []EpochRow

	// Yield summary over the covered rebases; nil when none occurred.
	Yield *metrics.Summary

	// Health checks on the latest ledger snapshot.
	Health HealthSection
}

// EpochRow is one epoch snapshot in report form. Amounts are decimal
// strings, matching the wire format everywhere else.
type EpochRow struct {
	Epoch             uint64
	TakenAt           time.Time
	Index             string
	TotalSupply       string
	TotalCredits      string
	PendingWithdrawal string
	PoolCycleIndex    uint64
}

// HealthSection reports ledger conservation against the rounding bound.
type HealthSection struct {
	Checked         bool // a ledger snapshot was available
	Holders         int
	Drift           string // totalSupply - sum of balances, in wei
	WithinTolerance bool
}
