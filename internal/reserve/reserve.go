// Package reserve implements the instant-liquidity pool. Providers deposit
// underlying for proportional-ownership shares; instant unstakes trade the
// reserve's liquid underlying for receipt-token claims at a fee, which
// accrues to all providers through share-price appreciation.
package reserve

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"staking-vault-lab/internal/domain"
	"staking-vault-lab/internal/ledger"
	"staking-vault-lab/internal/token"
)

// BasisPoints is the fee denominator; a fee of BasisPoints is 100%.
const BasisPoints = 10000

// Unstaker is the slice of the coordinator the reserve needs to convert its
// accumulated receipt tokens back to underlying.
type Unstaker interface {
	Unstake(ctx context.Context, holder string, amount *big.Int) error
}

// Reserve is the instant-liquidity pool.
type Reserve struct {
	mu sync.Mutex

	name   string
	symbol string
	addr   string

	underlying token.Token
	receipt    *ledger.Ledger

	shares      map[string]*big.Int
	totalShares *big.Int
	feeBps      int64
	minSeed     *big.Int

	enabled         bool
	coordinatorAddr string
	coordinator     Unstaker

	now func() time.Time
}

// Options configures a Reserve.
type Options struct {
	Name        string
	Symbol      string
	Address     string
	Underlying  token.Token
	Receipt     *ledger.Ledger
	MinimumSeed *big.Int // initial liquidity required before enabling
	Now         func() time.Time
}

// New creates a disabled reserve. EnableLiquidityReserve wires it to the
// coordinator and seeds the permanently locked initial liquidity.
func New(opts Options) (*Reserve, error) {
	if opts.Address == "" {
		return nil, domain.ErrInvalidAddress
	}
	if opts.Underlying == nil || opts.Receipt == nil {
		return nil, domain.ErrInvalidAddress
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Reserve{
		name:        opts.Name,
		symbol:      opts.Symbol,
		addr:        opts.Address,
		underlying:  opts.Underlying,
		receipt:     opts.Receipt,
		shares:      make(map[string]*big.Int),
		totalShares: new(big.Int),
		minSeed:     domain.CloneBig(opts.MinimumSeed),
		now:         now,
	}, nil
}

// Address returns the account the reserve holds funds under.
func (r *Reserve) Address() string { return r.addr }

// EnableLiquidityReserve wires the coordinator and pulls the minimum seed
// liquidity from seeder. The seed shares are held by the reserve itself and
// never redeemable, which pins the share price against manipulation of a
// near-empty pool. One-time.
func (r *Reserve) EnableLiquidityReserve(seeder, coordinatorAddr string, coordinator Unstaker) error {
	if coordinatorAddr == "" || coordinator == nil || seeder == "" {
		return domain.ErrInvalidAddress
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.enabled {
		return domain.ErrAlreadyEnabled
	}
	if r.minSeed.Sign() > 0 {
		if r.underlying.BalanceOf(seeder).Cmp(r.minSeed) < 0 {
			return domain.ErrNotEnoughStakingTokens
		}
		if err := r.underlying.Transfer(seeder, r.addr, r.minSeed); err != nil {
			return fmt.Errorf("seed reserve: %w", err)
		}
		r.mintShares(r.addr, r.minSeed)
	}
	r.coordinatorAddr = coordinatorAddr
	r.coordinator = coordinator
	r.enabled = true
	return nil
}

// AddLiquidity pulls amount underlying from provider and mints shares
// preserving pro-rata value.
func (r *Reserve) AddLiquidity(provider string, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return domain.ErrInvalidAmount
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.enabled {
		return domain.ErrNotEnabled
	}

	// share math uses the balance before this deposit lands
	backing := r.backingValue()
	if err := r.underlying.Transfer(provider, r.addr, amount); err != nil {
		return fmt.Errorf("pull liquidity: %w", err)
	}

	var minted *big.Int
	if r.totalShares.Sign() == 0 {
		minted = domain.CloneBig(amount)
	} else {
		minted = new(big.Int).Mul(amount, r.totalShares)
		minted.Quo(minted, backing)
	}
	r.mintShares(provider, minted)
	return nil
}

// RemoveLiquidity burns shareAmount of provider's shares for the pro-rata
// underlying payout. The payout must be covered by the liquid balance;
// value deployed in the external pool is not instantly available.
func (r *Reserve) RemoveLiquidity(provider string, shareAmount *big.Int) error {
	if shareAmount == nil || shareAmount.Sign() <= 0 {
		return domain.ErrInvalidAmount
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	held := r.shares[provider]
	if held == nil || held.Cmp(shareAmount) < 0 {
		return domain.ErrInsufficientShares
	}

	payout := new(big.Int).Mul(shareAmount, r.backingValue())
	payout.Quo(payout, r.totalShares)

	if r.underlying.BalanceOf(r.addr).Cmp(payout) < 0 {
		return domain.ErrNotEnoughFunds
	}

	r.burnShares(provider, shareAmount)
	if err := r.underlying.Transfer(r.addr, provider, payout); err != nil {
		// transfer cannot fail after the liquid check; restore on the off chance
		r.mintShares(provider, shareAmount)
		return fmt.Errorf("pay liquidity: %w", err)
	}
	return nil
}

// InstantUnstake trades receiptAmount (already collected from the holder by
// the coordinator) for underlying, minus the fee. Coordinator only. The
// receipt tokens stay in the reserve, so providers absorb both the claim
// and the fee pro rata.
func (r *Reserve) InstantUnstake(caller string, receiptAmount *big.Int, recipient string) error {
	if receiptAmount == nil || receiptAmount.Sign() <= 0 {
		return domain.ErrInvalidAmount
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.enabled {
		return domain.ErrNotEnabled
	}
	if caller != r.coordinatorAddr {
		return domain.ErrNotAuthorized
	}

	fee := new(big.Int).Mul(receiptAmount, big.NewInt(r.feeBps))
	fee.Quo(fee, big.NewInt(BasisPoints))
	payout := new(big.Int).Sub(receiptAmount, fee)

	if r.underlying.BalanceOf(r.addr).Cmp(payout) < 0 {
		return domain.ErrInsufficientBalance
	}
	if err := r.receipt.Transfer(r.coordinatorAddr, r.addr, receiptAmount); err != nil {
		return fmt.Errorf("pull receipt: %w", err)
	}
	if err := r.underlying.Transfer(r.addr, recipient, payout); err != nil {
		_ = r.receipt.Transfer(r.addr, r.coordinatorAddr, receiptAmount)
		return fmt.Errorf("pay instant unstake: %w", err)
	}
	return nil
}

// UnstakeAllRewardTokens sweeps the reserve's accumulated receipt balance
// back through the coordinator's unstake path, converting it to underlying
// over the usual cool-down/cycle pipeline. A no-op when the balance is zero.
func (r *Reserve) UnstakeAllRewardTokens(ctx context.Context) error {
	r.mu.Lock()
	if !r.enabled {
		r.mu.Unlock()
		return domain.ErrNotEnabled
	}
	coordinator := r.coordinator
	balance := r.receipt.BalanceOf(r.addr)
	r.mu.Unlock()

	if balance.Sign() == 0 {
		return nil
	}
	// coordinator calls back into token/ledger state, so run unlocked
	return coordinator.Unstake(ctx, r.addr, balance)
}

// SetFee sets the instant-unstake fee in basis points.
func (r *Reserve) SetFee(bps int64) error {
	if bps < 0 || bps > BasisPoints {
		return domain.ErrOutOfRange
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.feeBps = bps
	return nil
}

// Fee returns the current fee in basis points.
func (r *Reserve) Fee() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.feeBps
}

// SharesOf returns provider's share balance.
func (r *Reserve) SharesOf(provider string) *big.Int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return domain.CloneBig(r.shares[provider])
}

// TotalShares returns total shares outstanding.
func (r *Reserve) TotalShares() *big.Int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return domain.CloneBig(r.totalShares)
}

// LiquidBalance returns the reserve's immediately available underlying.
func (r *Reserve) LiquidBalance() *big.Int {
	return r.underlying.BalanceOf(r.addr)
}

// BackingValue returns the reserve's total backing: liquid underlying plus
// the nominal value of held receipt tokens.
func (r *Reserve) BackingValue() *big.Int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.backingValue()
}

// Positions returns every provider's share holding, including the locked
// seed position held by the reserve itself.
func (r *Reserve) Positions() []*domain.ReservePosition {
	r.mu.Lock()
	defer r.mu.Unlock()
	at := r.now()
	out := make([]*domain.ReservePosition, 0, len(r.shares))
	for provider, shares := range r.shares {
		out = append(out, &domain.ReservePosition{
			Provider:  provider,
			Shares:    domain.CloneBig(shares),
			UpdatedAt: at,
		})
	}
	return out
}

// backingValue assumes the lock is held.
func (r *Reserve) backingValue() *big.Int {
	v := r.underlying.BalanceOf(r.addr)
	return v.Add(v, r.receipt.BalanceOf(r.addr))
}

// mintShares assumes the lock is held.
func (r *Reserve) mintShares(provider string, amount *big.Int) {
	cur := r.shares[provider]
	if cur == nil {
		cur = new(big.Int)
		r.shares[provider] = cur
	}
	cur.Add(cur, amount)
	r.totalShares.Add(r.totalShares, amount)
}

// burnShares assumes the lock is held.
func (r *Reserve) burnShares(provider string, amount *big.Int) {
	cur := r.shares[provider]
	cur.Sub(cur, amount)
	if cur.Sign() == 0 {
		delete(r.shares, provider)
	}
	r.totalShares.Sub(r.totalShares, amount)
}
