// Package mock provides in-memory collaborators for tests, the simulator
// and the dev-mode daemon: a cycle-batched yield pool and a stableswap.
package mock

import (
	"context"
	"math/big"
	"sync"
	"time"

	"staking-vault-lab/internal/domain"
	"staking-vault-lab/internal/pool"
	"staking-vault-lab/internal/token"
)

// request tracks one owner's withdrawal pipeline through the pool.
type request struct {
	pending   *big.Int // requested, waiting for a rollover
	fulfilled *big.Int // paid out on the next Withdraw call
}

// Pool is an in-memory cycle-batched yield pool. Cycle index advances only
// on CompleteRollover, which also fulfills all pending requests, mirroring
// an operator-driven rollover.
type Pool struct {
	mu sync.Mutex

	addr          string
	underlying    token.Token
	cycle         uint64
	cycleDuration time.Duration
	cycleStart    time.Time
	now           func() time.Time

	deposits map[string]*big.Int
	requests map[string]*request
}

// Compile-time interface check.
var _ pool.YieldPool = (*Pool)(nil)

// Options configures a mock pool.
type Options struct {
	Address       string
	Underlying    token.Token
	CycleDuration time.Duration
	Now           func() time.Time
}

// NewPool creates a mock pool starting at cycle 1.
func NewPool(opts Options) *Pool {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Pool{
		addr:          opts.Address,
		underlying:    opts.Underlying,
		cycle:         1,
		cycleDuration: opts.CycleDuration,
		cycleStart:    now(),
		now:           now,
		deposits:      make(map[string]*big.Int),
		requests:      make(map[string]*request),
	}
}

// Deposit moves amount of underlying from owner into the pool.
func (p *Pool) Deposit(_ context.Context, owner string, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return domain.ErrInvalidAmount
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.underlying.Transfer(owner, p.addr, amount); err != nil {
		return err
	}
	cur := p.deposits[owner]
	if cur == nil {
		cur = new(big.Int)
		p.deposits[owner] = cur
	}
	cur.Add(cur, amount)
	return nil
}

// RequestWithdrawal files a request for owner, replacing any earlier one.
// The request may not exceed the owner's deposited principal.
func (p *Pool) RequestWithdrawal(_ context.Context, owner string, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return domain.ErrInvalidAmount
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	deposited := p.deposits[owner]
	if deposited == nil || deposited.Cmp(amount) < 0 {
		return domain.ErrInsufficientBalance
	}
	r := p.requests[owner]
	if r == nil {
		r = &request{pending: new(big.Int), fulfilled: new(big.Int)}
		p.requests[owner] = r
	}
	r.pending.Set(amount)
	return nil
}

// CompleteRollover advances the cycle and fulfills every pending request,
// deducting the fulfilled principal from deposits.
func (p *Pool) CompleteRollover() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for owner, r := range p.requests {
		if r.pending.Sign() == 0 {
			continue
		}
		deposited := p.deposits[owner]
		if deposited != nil {
			deposited.Sub(deposited, r.pending)
		}
		r.fulfilled.Add(r.fulfilled, r.pending)
		r.pending.SetInt64(0)
	}
	p.cycle++
	p.cycleStart = p.now()
}

// Withdraw pays out owner's fulfilled amount in underlying.
func (p *Pool) Withdraw(_ context.Context, owner string) (*big.Int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	r := p.requests[owner]
	if r == nil || r.fulfilled.Sign() == 0 {
		return new(big.Int), nil
	}
	paid := new(big.Int).Set(r.fulfilled)
	if err := p.underlying.Transfer(p.addr, owner, paid); err != nil {
		return nil, err
	}
	r.fulfilled.SetInt64(0)
	return paid, nil
}

// Balance returns owner's deposited principal still in the pool.
func (p *Pool) Balance(owner string) *big.Int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return domain.CloneBig(p.deposits[owner])
}

// RequestedWithdrawal returns owner's currently pending request.
func (p *Pool) RequestedWithdrawal(owner string) *big.Int {
	p.mu.Lock()
	defer p.mu.Unlock()
	r := p.requests[owner]
	if r == nil {
		return new(big.Int)
	}
	return domain.CloneBig(r.pending)
}

// FulfilledWithdrawal returns owner's fulfilled-but-unclaimed amount.
func (p *Pool) FulfilledWithdrawal(owner string) *big.Int {
	p.mu.Lock()
	defer p.mu.Unlock()
	r := p.requests[owner]
	if r == nil {
		return new(big.Int)
	}
	return domain.CloneBig(r.fulfilled)
}

// CurrentCycleIndex returns the cycle counter.
func (p *Pool) CurrentCycleIndex() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cycle
}

// CycleDuration returns the configured cycle length.
func (p *Pool) CycleDuration() time.Duration { return p.cycleDuration }

// NextCycleStart returns when the current cycle is scheduled to end.
func (p *Pool) NextCycleStart() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cycleStart.Add(p.cycleDuration)
}
