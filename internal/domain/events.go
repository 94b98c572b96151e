package domain

import "time"

// Event types broadcast on the websocket feed.
const (
	EventStake             = "STAKE"
	EventClaim             = "CLAIM"
	EventUnstake           = "UNSTAKE"
	EventClaimWithdraw     = "CLAIM_WITHDRAW"
	EventInstantUnstake    = "INSTANT_UNSTAKE"
	EventRebase            = "REBASE"
	EventWithdrawalRequest = "WITHDRAWAL_REQUEST"
)

// Event is a notification emitted by the coordinator after a state change.
// Amounts are decimal strings so subscribers never lose precision.
type Event struct {
	ID     string    `json:"id"`
	Type   string    `json:"type"`
	Holder string    `json:"holder,omitempty"`
	Amount string    `json:"amount,omitempty"`
	Epoch  uint64    `json:"epoch"`
	At     time.Time `json:"at"`
}
