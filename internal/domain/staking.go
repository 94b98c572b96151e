// Package domain holds the pure data model shared across the vault:
// epochs, locks, reserve positions and history records. No behavior
// beyond copying lives here.
package domain

import (
	"math/big"
	"time"
)

// Epoch is the process-wide reward period. Distribute is the yield applied
// at the next boundary rebase, not the current one: rewards queued during
// epoch N only reach balances at a rebase executed in epoch N+1 or later.
type Epoch struct {
	Length     time.Duration
	Number     uint64
	EndTime    time.Time
	Distribute *big.Int
}

// Copy returns a deep copy.
func (e *Epoch) Copy() *Epoch {
	c := *e
	c.Distribute = CloneBig(e.Distribute)
	return &c
}

// WarmupLock holds a stake between deposit and claimability. Credits are
// held by the coordinator until claimed, so they keep earning rebases
// while warming up. At most one lock exists per holder; repeat stakes
// merge into it.
type WarmupLock struct {
	Amount      *big.Int // nominal amount at stake time
	Credits     *big.Int // receipt credits parked with the coordinator
	ExpiryEpoch uint64
}

// Copy returns a deep copy.
func (l *WarmupLock) Copy() *WarmupLock {
	return &WarmupLock{
		Amount:      CloneBig(l.Amount),
		Credits:     CloneBig(l.Credits),
		ExpiryEpoch: l.ExpiryEpoch,
	}
}

// CooldownLock holds an unstake between request and payout. The credits
// behind it are burned at unstake time, which removes them from the rebase
// denominator: funds in cool-down earn no further rebases.
type CooldownLock struct {
	Amount      *big.Int // underlying owed at claim-withdraw
	Credits     *big.Int // credits burned when the lock was created
	ExpiryEpoch uint64
}

// Copy returns a deep copy.
func (l *CooldownLock) Copy() *CooldownLock {
	return &CooldownLock{
		Amount:      CloneBig(l.Amount),
		Credits:     CloneBig(l.Credits),
		ExpiryEpoch: l.ExpiryEpoch,
	}
}

// ReservePosition is one liquidity provider's share holding.
type ReservePosition struct {
	Provider  string
	Shares    *big.Int
	UpdatedAt time.Time
}

// Copy returns a deep copy.
func (p *ReservePosition) Copy() *ReservePosition {
	return &ReservePosition{
		Provider:  p.Provider,
		Shares:    CloneBig(p.Shares),
		UpdatedAt: p.UpdatedAt,
	}
}

// CloneBig copies a big.Int, mapping nil to zero.
func CloneBig(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(v)
}
