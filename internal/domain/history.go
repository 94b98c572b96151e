package domain

import (
	"math/big"
	"time"
)

// RebaseEvent records one executed rebase. Append-only history.
type RebaseEvent struct {
	EventID     string // deterministic, see idhash
	Epoch       uint64
	At          time.Time
	Profit      *big.Int
	IndexBefore *big.Int
	IndexAfter  *big.Int
	SupplyAfter *big.Int
}

// Copy returns a deep copy.
func (e *RebaseEvent) Copy() *RebaseEvent {
	return &RebaseEvent{
		EventID:     e.EventID,
		Epoch:       e.Epoch,
		At:          e.At,
		Profit:      CloneBig(e.Profit),
		IndexBefore: CloneBig(e.IndexBefore),
		IndexAfter:  CloneBig(e.IndexAfter),
		SupplyAfter: CloneBig(e.SupplyAfter),
	}
}

// EpochSnapshot is a point-in-time view of the vault taken once per epoch
// (or on demand) for history and monitoring.
type EpochSnapshot struct {
	Epoch             uint64
	TakenAt           time.Time
	Index             *big.Int
	TotalSupply       *big.Int
	TotalCredits      *big.Int
	PendingWithdrawal *big.Int // outstanding cool-down obligation
	ReserveLiquid     *big.Int // reserve's non-deployed underlying
	PoolCycleIndex    uint64
}

// Copy returns a deep copy.
func (s *EpochSnapshot) Copy() *EpochSnapshot {
	c := *s
	c.Index = CloneBig(s.Index)
	c.TotalSupply = CloneBig(s.TotalSupply)
	c.TotalCredits = CloneBig(s.TotalCredits)
	c.PendingWithdrawal = CloneBig(s.PendingWithdrawal)
	c.ReserveLiquid = CloneBig(s.ReserveLiquid)
	return &c
}

// LedgerSnapshot is a full dump of the rebasing ledger used for durable
// persistence between restarts.
type LedgerSnapshot struct {
	TakenAt      time.Time
	Index        *big.Int
	TotalSupply  *big.Int
	TotalCredits *big.Int
	Credits      map[string]*big.Int
}

// Copy returns a deep copy.
func (s *LedgerSnapshot) Copy() *LedgerSnapshot {
	c := &LedgerSnapshot{
		TakenAt:      s.TakenAt,
		Index:        CloneBig(s.Index),
		TotalSupply:  CloneBig(s.TotalSupply),
		TotalCredits: CloneBig(s.TotalCredits),
		Credits:      make(map[string]*big.Int, len(s.Credits)),
	}
	for holder, credits := range s.Credits {
		c.Credits[holder] = CloneBig(credits)
	}
	return c
}

// EpochState bundles the coordinator state that must survive restarts:
// the current epoch, queued rewards and the external-pool cursor.
type EpochState struct {
	Epoch              Epoch
	PendingRewards     *big.Int
	RequestWithdrawal  *big.Int
	LastPoolCycleIndex uint64
	SavedAt            time.Time
}

// Copy returns a deep copy.
func (s *EpochState) Copy() *EpochState {
	return &EpochState{
		Epoch:              *s.Epoch.Copy(),
		PendingRewards:     CloneBig(s.PendingRewards),
		RequestWithdrawal:  CloneBig(s.RequestWithdrawal),
		LastPoolCycleIndex: s.LastPoolCycleIndex,
		SavedAt:            s.SavedAt,
	}
}
