// Package pool defines the boundary to the external yield pool. The pool
// batches withdrawals per cycle: a request filed in cycle N is paid out only
// after the pool operator rolls the cycle over. The pool is a liveness
// dependency, never a safety one: the coordinator must tolerate it
// returning stale state indefinitely.
package pool

import (
	"context"
	"math/big"
	"time"
)

// YieldPool is the external pool the coordinator routes principal through.
type YieldPool interface {
	// Deposit moves amount of underlying from owner into the pool.
	Deposit(ctx context.Context, owner string, amount *big.Int) error

	// RequestWithdrawal files a withdrawal request for owner. A later
	// request replaces the earlier one; fulfillment happens at the next
	// cycle rollover.
	RequestWithdrawal(ctx context.Context, owner string, amount *big.Int) error

	// Withdraw pays out owner's fulfilled requests. Returns the amount
	// paid, zero when nothing is available. Not an error to have nothing.
	Withdraw(ctx context.Context, owner string) (*big.Int, error)

	// Balance returns owner's deposited principal still in the pool.
	Balance(owner string) *big.Int

	// RequestedWithdrawal returns owner's currently pending request.
	RequestedWithdrawal(owner string) *big.Int

	// CurrentCycleIndex returns the pool's monotonically increasing cycle
	// counter.
	CurrentCycleIndex() uint64

	// CycleDuration returns the length of one pool cycle.
	CycleDuration() time.Duration

	// NextCycleStart returns when the current cycle is scheduled to end.
	NextCycleStart() time.Time
}
