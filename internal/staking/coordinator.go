// Package staking implements the coordinator that orchestrates the vault:
// it accepts deposits, runs the warm-up/cool-down lock pipeline, mints and
// burns receipt credits, forwards principal to the external yield pool,
// batches withdrawal requests against the pool's cycle boundary and
// triggers epoch rebases.
//
// Per-holder state machine: Idle → WarmingUp → Active → CoolingDown → Idle.
// Credits behind a cool-down lock are burned at unstake time, so supply in
// cool-down earns no further rebases.
package staking

import (
	"context"
	"fmt"
	"log"
	"math/big"
	"sync"
	"time"

	"staking-vault-lab/internal/domain"
	"staking-vault-lab/internal/idhash"
	"staking-vault-lab/internal/ledger"
	"staking-vault-lab/internal/pool"
	"staking-vault-lab/internal/reserve"
	"staking-vault-lab/internal/token"
)

// the reserve sweeps its accrued receipt through the regular unstake path
var _ reserve.Unstaker = (*Coordinator)(nil)

// StableSwap is the alternate instant-exit venue: a receipt/underlying swap
// pool with a caller-supplied slippage floor.
type StableSwap interface {
	// SwapExactIn trades amountIn receipt from from, paying underlying to
	// recipient. Fails with domain.ErrSlippage below minOut.
	SwapExactIn(ctx context.Context, from, recipient string, amountIn, minOut *big.Int) (*big.Int, error)
}

// Coordinator orchestrates ledger, reserve and external pool.
type Coordinator struct {
	mu sync.Mutex

	addr       string
	underlying token.Token
	receipt    *ledger.Ledger
	yieldPool  pool.YieldPool
	reserve    *reserve.Reserve
	swap       StableSwap // optional

	epoch          domain.Epoch
	pendingRewards *big.Int

	warmups   map[string]*domain.WarmupLock
	cooldowns map[string]*domain.CooldownLock

	warmupPeriod   uint64 // epochs
	cooldownPeriod uint64 // epochs

	// withdrawal batching against the pool cycle
	lastPoolCycleIndex      uint64
	requestWithdrawalAmount *big.Int // outstanding cool-down obligation
	withdrawalWindow        time.Duration

	stakingPaused        bool
	unstakingPaused      bool
	instantUnstakePaused bool

	lastRebase *domain.RebaseEvent

	now      func() time.Time
	onEvent  func(domain.Event)
	eventSeq uint64
	logger   *log.Logger
}

// Options configures a Coordinator.
type Options struct {
	Address    string
	Underlying token.Token
	Receipt    *ledger.Ledger
	YieldPool  pool.YieldPool
	Reserve    *reserve.Reserve
	StableSwap StableSwap // optional

	EpochLength   time.Duration
	FirstEpochEnd time.Time

	WarmupPeriod   uint64
	CooldownPeriod uint64

	// WithdrawalWindow is how long before the next pool cycle start a
	// batched request may still be filed.
	WithdrawalWindow time.Duration

	Now     func() time.Time
	OnEvent func(domain.Event)
	Logger  *log.Logger
}

// New creates a Coordinator and takes mint/burn authority on the receipt
// ledger. The withdrawal cursor starts at the pool's current cycle so no
// request is filed until the cycle advances.
func New(opts Options) (*Coordinator, error) {
	if opts.Address == "" {
		return nil, domain.ErrInvalidAddress
	}
	if opts.Underlying == nil || opts.Receipt == nil || opts.YieldPool == nil {
		return nil, domain.ErrInvalidAddress
	}
	if opts.EpochLength <= 0 {
		return nil, domain.ErrOutOfRange
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(logDiscard{}, "", 0)
	}
	firstEnd := opts.FirstEpochEnd
	if firstEnd.IsZero() {
		firstEnd = now().Add(opts.EpochLength)
	}

	c := &Coordinator{
		addr:       opts.Address,
		underlying: opts.Underlying,
		receipt:    opts.Receipt,
		yieldPool:  opts.YieldPool,
		reserve:    opts.Reserve,
		swap:       opts.StableSwap,
		epoch: domain.Epoch{
			Length:     opts.EpochLength,
			Number:     1,
			EndTime:    firstEnd,
			Distribute: new(big.Int),
		},
		pendingRewards:          new(big.Int),
		warmups:                 make(map[string]*domain.WarmupLock),
		cooldowns:               make(map[string]*domain.CooldownLock),
		warmupPeriod:            opts.WarmupPeriod,
		cooldownPeriod:          opts.CooldownPeriod,
		lastPoolCycleIndex:      opts.YieldPool.CurrentCycleIndex(),
		requestWithdrawalAmount: new(big.Int),
		withdrawalWindow:        opts.WithdrawalWindow,
		now:                     now,
		onEvent:                 opts.OnEvent,
		logger:                  logger,
	}
	if err := opts.Receipt.InitializeAuthority(opts.Address); err != nil {
		return nil, fmt.Errorf("wire receipt authority: %w", err)
	}
	return c, nil
}

type logDiscard struct{}

func (logDiscard) Write(p []byte) (int, error) { return len(p), nil }

// Address returns the account the coordinator holds funds under.
func (c *Coordinator) Address() string { return c.addr }

// Stake deposits amount of underlying for holder. Principal is forwarded
// into the yield pool; receipt credits either mint directly (zero warm-up)
// or park in a warm-up lock. A matured prior lock is auto-claimed before
// the new amount is merged in.
func (c *Coordinator) Stake(ctx context.Context, holder string, amount *big.Int) error {
	if holder == "" {
		return domain.ErrInvalidAddress
	}
	if amount == nil || amount.Sign() <= 0 {
		return domain.ErrInvalidAmount
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stakingPaused {
		return domain.ErrStakingPaused
	}

	if err := c.underlying.Transfer(holder, c.addr, amount); err != nil {
		return fmt.Errorf("pull stake: %w", err)
	}
	if err := c.yieldPool.Deposit(ctx, c.addr, amount); err != nil {
		// pool unavailable: refund and fail the whole call
		if refundErr := c.underlying.Transfer(c.addr, holder, amount); refundErr != nil {
			c.logger.Printf("stake refund for %s failed: %v", holder, refundErr)
		}
		return fmt.Errorf("deposit to pool: %w", err)
	}

	if c.warmupPeriod == 0 {
		if err := c.receipt.Mint(c.addr, holder, amount); err != nil {
			return fmt.Errorf("mint receipt: %w", err)
		}
	} else {
		c.claimMaturedWarmup(holder)
		credits := c.receipt.CreditsForAmount(amount)
		if err := c.receipt.Mint(c.addr, c.addr, amount); err != nil {
			return fmt.Errorf("mint warmup receipt: %w", err)
		}
		lock := c.warmups[holder]
		if lock == nil {
			lock = &domain.WarmupLock{Amount: new(big.Int), Credits: new(big.Int)}
			c.warmups[holder] = lock
		}
		lock.Amount.Add(lock.Amount, amount)
		lock.Credits.Add(lock.Credits, credits)
		expiry := c.epoch.Number + c.warmupPeriod
		if expiry > lock.ExpiryEpoch {
			lock.ExpiryEpoch = expiry
		}
	}

	c.emit(domain.EventStake, holder, amount)
	return nil
}

// Claim releases holder's warm-up lock once matured. Safe to invoke
// speculatively: a no-op before maturity.
func (c *Coordinator) Claim(holder string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.claimMaturedWarmup(holder) {
		c.emit(domain.EventClaim, holder, nil)
	}
	return nil
}

// claimMaturedWarmup assumes the lock is held. Returns whether a lock was
// released.
func (c *Coordinator) claimMaturedWarmup(holder string) bool {
	lock := c.warmups[holder]
	if lock == nil || c.epoch.Number < lock.ExpiryEpoch {
		return false
	}
	if err := c.receipt.TransferCredits(c.addr, holder, lock.Credits); err != nil {
		c.logger.Printf("warmup claim for %s failed: %v", holder, err)
		return false
	}
	delete(c.warmups, holder)
	return true
}

// Unstake debits amount of receipt value from holder, free balance first
// and then warm-up, burns the credits and opens (or extends) a cool-down
// lock.
// A matured, fulfilled prior cool-down is auto-drained first. With a zero
// cool-down period the payout is attempted immediately against liquid
// underlying.
func (c *Coordinator) Unstake(ctx context.Context, holder string, amount *big.Int) error {
	if holder == "" {
		return domain.ErrInvalidAddress
	}
	if amount == nil || amount.Sign() <= 0 {
		return domain.ErrInvalidAmount
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.unstakingPaused {
		return domain.ErrUnstakingPaused
	}

	// drain a matured prior cool-down before stacking a new one on top
	c.claimMaturedCooldown(ctx, holder)

	free := c.receipt.BalanceOf(holder)
	warmupValue := new(big.Int)
	warmupLock := c.warmups[holder]
	if warmupLock != nil {
		warmupValue = c.receipt.AmountForCredits(warmupLock.Credits)
	}
	available := new(big.Int).Add(free, warmupValue)
	if available.Cmp(amount) < 0 {
		return domain.ErrInsufficientBalance
	}

	burnedCredits := new(big.Int)

	// free balance first
	fromFree := new(big.Int).Set(amount)
	if fromFree.Cmp(free) > 0 {
		fromFree.Set(free)
	}
	if fromFree.Sign() > 0 {
		creditsBefore := c.receipt.CreditBalanceOf(holder)
		if err := c.receipt.Burn(c.addr, holder, fromFree); err != nil {
			return fmt.Errorf("burn free balance: %w", err)
		}
		creditsAfter := c.receipt.CreditBalanceOf(holder)
		burnedCredits.Add(burnedCredits, creditsBefore.Sub(creditsBefore, creditsAfter))
	}

	// remainder comes out of the warm-up lock
	remainder := new(big.Int).Sub(amount, fromFree)
	if remainder.Sign() > 0 {
		if remainder.Cmp(warmupValue) == 0 {
			// full drain: burn the exact credits so no dust stays locked
			burned, err := c.receipt.BurnCredits(c.addr, c.addr, warmupLock.Credits)
			if err != nil {
				return fmt.Errorf("burn warmup credits: %w", err)
			}
			remainder.Set(burned)
			burnedCredits.Add(burnedCredits, warmupLock.Credits)
			delete(c.warmups, holder)
		} else {
			credits := c.receipt.CreditsForAmount(remainder)
			if err := c.receipt.Burn(c.addr, c.addr, remainder); err != nil {
				return fmt.Errorf("burn warmup balance: %w", err)
			}
			warmupLock.Credits.Sub(warmupLock.Credits, credits)
			if warmupLock.Amount.Cmp(remainder) <= 0 {
				warmupLock.Amount.SetInt64(0)
			} else {
				warmupLock.Amount.Sub(warmupLock.Amount, remainder)
			}
			burnedCredits.Add(burnedCredits, credits)
		}
	}

	total := new(big.Int).Add(fromFree, remainder)

	cd := c.cooldowns[holder]
	if cd == nil {
		cd = &domain.CooldownLock{Amount: new(big.Int), Credits: new(big.Int)}
		c.cooldowns[holder] = cd
	}
	cd.Amount.Add(cd.Amount, total)
	cd.Credits.Add(cd.Credits, burnedCredits)
	expiry := c.epoch.Number + c.cooldownPeriod
	if expiry > cd.ExpiryEpoch {
		cd.ExpiryEpoch = expiry
	}
	c.requestWithdrawalAmount.Add(c.requestWithdrawalAmount, total)

	if c.cooldownPeriod == 0 {
		// immediate payout when liquid underlying is already on hand
		c.claimMaturedCooldown(ctx, holder)
	}

	c.emit(domain.EventUnstake, holder, total)
	return nil
}

// ClaimWithdraw pays out holder's cool-down lock once it has matured and
// the pool has fulfilled the batch behind it. A no-op otherwise.
func (c *Coordinator) ClaimWithdraw(ctx context.Context, holder string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.claimMaturedCooldown(ctx, holder) {
		c.emit(domain.EventClaimWithdraw, holder, nil)
	}
	return nil
}

// claimMaturedCooldown assumes the lock is held. Returns whether a payout
// happened. Pulls fulfilled funds from the pool when the liquid balance is
// short; gives up silently when the batch has not been fulfilled yet.
func (c *Coordinator) claimMaturedCooldown(ctx context.Context, holder string) bool {
	lock := c.cooldowns[holder]
	if lock == nil || c.epoch.Number < lock.ExpiryEpoch {
		return false
	}
	liquid := c.underlying.BalanceOf(c.addr)
	if liquid.Cmp(lock.Amount) < 0 {
		if _, err := c.yieldPool.Withdraw(ctx, c.addr); err != nil {
			c.logger.Printf("pool withdraw failed: %v", err)
			return false
		}
		liquid = c.underlying.BalanceOf(c.addr)
		if liquid.Cmp(lock.Amount) < 0 {
			return false
		}
	}
	if err := c.underlying.Transfer(c.addr, holder, lock.Amount); err != nil {
		c.logger.Printf("cooldown payout for %s failed: %v", holder, err)
		return false
	}
	if c.requestWithdrawalAmount.Cmp(lock.Amount) <= 0 {
		c.requestWithdrawalAmount.SetInt64(0)
	} else {
		c.requestWithdrawalAmount.Sub(c.requestWithdrawalAmount, lock.Amount)
	}
	delete(c.cooldowns, holder)
	return true
}

// SendWithdrawalRequests files one batched withdrawal request with the pool
// covering the total outstanding cool-down obligation. Only fires when the
// pool's cycle index has advanced past the cursor and the pre-cycle
// submission window is open, with a catch-up: a missed window still sends
// once the cycle has advanced by more than one. Otherwise a silent no-op,
// retried on the next invocation; requests are deferred, never lost.
func (c *Coordinator) SendWithdrawalRequests(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	cycle := c.yieldPool.CurrentCycleIndex()
	if cycle <= c.lastPoolCycleIndex {
		return nil // stale cycle
	}
	windowOpen := !c.now().Add(c.withdrawalWindow).Before(c.yieldPool.NextCycleStart())
	missedWindow := cycle > c.lastPoolCycleIndex+1
	if !windowOpen && !missedWindow {
		return nil
	}

	// pull any already-fulfilled batch first so the new request only covers
	// what the pool still owes
	if _, err := c.yieldPool.Withdraw(ctx, c.addr); err != nil {
		return fmt.Errorf("withdraw fulfilled: %w", err)
	}
	shortfall := new(big.Int).Sub(c.requestWithdrawalAmount, c.underlying.BalanceOf(c.addr))
	if shortfall.Sign() > 0 {
		if err := c.yieldPool.RequestWithdrawal(ctx, c.addr, shortfall); err != nil {
			// cursor stays put so the request is retried next call
			return fmt.Errorf("request withdrawal: %w", err)
		}
		c.logger.Printf("filed withdrawal batch %s for %s at cycle %d",
			idhash.ComputeBatchID(cycle, shortfall), shortfall, cycle)
		c.emit(domain.EventWithdrawalRequest, "", shortfall)
	}
	c.lastPoolCycleIndex = cycle
	return nil
}

// Rebase advances the epoch once its end time has passed, applying the
// yield queued at the previous boundary. Queued rewards always lag one full
// epoch so a deposit can never profit from its own reward in the same
// breath. A no-op before the boundary.
func (c *Coordinator) Rebase(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rebaseLocked(ctx)
}

// rebaseLocked assumes the lock is held.
func (c *Coordinator) rebaseLocked(_ context.Context) error {
	nowT := c.now()
	if nowT.Before(c.epoch.EndTime) {
		return nil
	}

	profit := c.epoch.Distribute
	if profit.Sign() > 0 {
		if c.receipt.TotalSupply().Sign() > 0 {
			ev, err := c.receipt.Rebase(c.addr, profit, c.epoch.Number, nowT)
			if err != nil {
				return fmt.Errorf("rebase ledger: %w", err)
			}
			c.lastRebase = ev
			c.emit(domain.EventRebase, "", profit)
		} else {
			// nobody to distribute to: roll the yield forward
			c.pendingRewards.Add(c.pendingRewards, profit)
		}
	}

	c.epoch.Number++
	c.epoch.EndTime = c.epoch.EndTime.Add(c.epoch.Length)
	c.epoch.Distribute = c.pendingRewards
	c.pendingRewards = new(big.Int)
	return nil
}

// AddRewardsForStakers queues amount of yield for distribution. When
// fromSender is set the underlying is pulled from from's balance. Queued
// rewards become the next epoch's distribute at the following boundary.
// With alsoRebase set an elapsed epoch is rolled immediately.
func (c *Coordinator) AddRewardsForStakers(ctx context.Context, from string, amount *big.Int, fromSender, alsoRebase bool) error {
	if amount == nil || amount.Sign() <= 0 {
		return domain.ErrInvalidAmount
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if fromSender {
		if err := c.underlying.Transfer(from, c.addr, amount); err != nil {
			return fmt.Errorf("pull rewards: %w", err)
		}
	}
	c.pendingRewards.Add(c.pendingRewards, amount)

	if alsoRebase {
		return c.rebaseLocked(ctx)
	}
	return nil
}

// InstantUnstakeReserve exits amount of holder's receipt value immediately
// through the liquidity reserve, at the reserve's fee. Draw order matches
// Unstake: free balance first, then warm-up.
func (c *Coordinator) InstantUnstakeReserve(ctx context.Context, holder string, amount *big.Int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.reserve == nil {
		return domain.ErrInvalidAddress
	}
	draw, err := c.collectForInstant(holder, amount)
	if err != nil {
		return err
	}
	if err := c.reserve.InstantUnstake(c.addr, amount, holder); err != nil {
		// hand the receipt value back before failing
		c.refundInstant(holder, draw)
		return err
	}
	c.emit(domain.EventInstantUnstake, holder, amount)
	return nil
}

// InstantUnstakeCurve exits through the external stableswap pool instead,
// honoring the same draw order and the caller's slippage floor.
func (c *Coordinator) InstantUnstakeCurve(ctx context.Context, holder string, amount, minOut *big.Int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.swap == nil {
		return domain.ErrInvalidAddress
	}
	draw, err := c.collectForInstant(holder, amount)
	if err != nil {
		return err
	}
	if _, err := c.swap.SwapExactIn(ctx, c.addr, holder, amount, minOut); err != nil {
		c.refundInstant(holder, draw)
		return err
	}
	c.emit(domain.EventInstantUnstake, holder, amount)
	return nil
}

// instantDraw records what collectForInstant took from the holder, so a
// failed exit can be undone exactly: the free-balance portion goes back as
// free balance, the warm-up portion goes back into the lock.
type instantDraw struct {
	fromFree *big.Int
	prevLock *domain.WarmupLock // lock state before the draw, nil if untouched
}

// collectForInstant moves amount of receipt value from holder (free first,
// then warm-up) to the coordinator's own account, ready to hand to the
// reserve or swap. Assumes the lock is held.
func (c *Coordinator) collectForInstant(holder string, amount *big.Int) (*instantDraw, error) {
	if holder == "" {
		return nil, domain.ErrInvalidAddress
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	if c.instantUnstakePaused {
		return nil, domain.ErrInstantUnstakePaused
	}

	free := c.receipt.BalanceOf(holder)
	warmupValue := new(big.Int)
	lock := c.warmups[holder]
	if lock != nil {
		warmupValue = c.receipt.AmountForCredits(lock.Credits)
	}
	if new(big.Int).Add(free, warmupValue).Cmp(amount) < 0 {
		return nil, domain.ErrInsufficientBalance
	}

	fromFree := new(big.Int).Set(amount)
	if fromFree.Cmp(free) > 0 {
		fromFree.Set(free)
	}
	if fromFree.Sign() > 0 {
		if err := c.receipt.Transfer(holder, c.addr, fromFree); err != nil {
			return nil, fmt.Errorf("collect receipt: %w", err)
		}
	}
	draw := &instantDraw{fromFree: fromFree}
	remainder := new(big.Int).Sub(amount, fromFree)
	if remainder.Sign() > 0 {
		// warm-up credits already sit with the coordinator; just shrink the lock
		draw.prevLock = lock.Copy()
		if remainder.Cmp(warmupValue) == 0 {
			delete(c.warmups, holder)
		} else {
			credits := c.receipt.CreditsForAmount(remainder)
			lock.Credits.Sub(lock.Credits, credits)
			if lock.Amount.Cmp(remainder) <= 0 {
				lock.Amount.SetInt64(0)
			} else {
				lock.Amount.Sub(lock.Amount, remainder)
			}
		}
	}
	return draw, nil
}

// refundInstant undoes a collectForInstant after a failed instant exit:
// free balance back to the holder, warm-up back into the lock at its state
// before the draw. Assumes the lock is held.
func (c *Coordinator) refundInstant(holder string, draw *instantDraw) {
	if draw.fromFree.Sign() > 0 {
		if err := c.receipt.Transfer(c.addr, holder, draw.fromFree); err != nil {
			c.logger.Printf("instant unstake refund for %s failed: %v", holder, err)
		}
	}
	if draw.prevLock != nil {
		c.warmups[holder] = draw.prevLock
	}
}

// UnstakeAllFromPool is the emergency exit: it files one request for the
// coordinator's entire remaining pool position, regardless of the
// submission window. Payouts still wait on the pool's rollover.
func (c *Coordinator) UnstakeAllFromPool(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	position := c.yieldPool.Balance(c.addr)
	if position.Sign() == 0 {
		return nil
	}
	if err := c.yieldPool.RequestWithdrawal(ctx, c.addr, position); err != nil {
		return fmt.Errorf("emergency withdrawal request: %w", err)
	}
	c.lastPoolCycleIndex = c.yieldPool.CurrentCycleIndex()
	c.emit(domain.EventWithdrawalRequest, "", position)
	return nil
}

// emit assumes the lock is held.
func (c *Coordinator) emit(eventType, holder string, amount *big.Int) {
	if c.onEvent == nil {
		return
	}
	c.eventSeq++
	ev := domain.Event{
		ID:    idhash.ComputeEventID(eventType, holder, c.epoch.Number, c.eventSeq),
		Type:  eventType,
		Epoch: c.epoch.Number,
		At:    c.now(),
	}
	ev.Holder = holder
	if amount != nil {
		ev.Amount = amount.String()
	}
	c.onEvent(ev)
}
