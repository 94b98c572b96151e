package token

import (
	"math/big"
	"sync"

	"staking-vault-lab/internal/domain"
)

// Bank is an in-memory Token. Balances are copied on read so callers can
// not mutate internal state.
type Bank struct {
	mu       sync.RWMutex
	balances map[string]*big.Int
}

// Compile-time interface check.
var _ Token = (*Bank)(nil)

// NewBank creates an empty in-memory token.
func NewBank() *Bank {
	return &Bank{balances: make(map[string]*big.Int)}
}

// Mint credits amount to an account. Test and simulation seeding only.
func (b *Bank) Mint(account string, amount *big.Int) {
	if amount == nil || amount.Sign() <= 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.add(account, amount)
}

// BalanceOf returns the current balance of an account.
func (b *Bank) BalanceOf(account string) *big.Int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return domain.CloneBig(b.balances[account])
}

// Transfer moves amount between accounts atomically.
func (b *Bank) Transfer(from, to string, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return domain.ErrInvalidAmount
	}
	if from == "" || to == "" {
		return domain.ErrInvalidAddress
	}
	if amount.Sign() == 0 {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	src := b.balances[from]
	if src == nil || src.Cmp(amount) < 0 {
		return domain.ErrNotEnoughFunds
	}
	src.Sub(src, amount)
	if src.Sign() == 0 {
		delete(b.balances, from)
	}
	b.add(to, amount)
	return nil
}

// add assumes the lock is held.
func (b *Bank) add(account string, amount *big.Int) {
	cur := b.balances[account]
	if cur == nil {
		cur = new(big.Int)
		b.balances[account] = cur
	}
	cur.Add(cur, amount)
}
