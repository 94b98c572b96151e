// Package ledger implements the rebasing receipt token. Balances are stored
// as credits; nominal balance = credits * index / IndexScale. A rebase
// scales the index by (supply + profit) / supply so every credit holder
// gains proportionally without per-account writes.
//
// All conversions floor, so no sequence of mint/burn/convert calls can mint
// value out of rounding. The tolerance is bounded by one wei per holder.
package ledger

import (
	"fmt"
	"math/big"
	"sync"
	"time"

	"staking-vault-lab/internal/domain"
	"staking-vault-lab/internal/idhash"
)

// IndexScale is the fixed-point scale of the exchange index (1e18).
var IndexScale = big.NewInt(1_000_000_000_000_000_000)

// Ledger is the rebasing receipt token. Mint, burn and rebase are restricted
// to the authority wired once via InitializeAuthority (the coordinator).
type Ledger struct {
	mu sync.RWMutex

	name      string
	symbol    string
	authority string

	credits      map[string]*big.Int
	allowances   map[string]map[string]*big.Int
	totalSupply  *big.Int // nominal
	totalCredits *big.Int
	index        *big.Int // IndexScale-scaled
	rebaseCount  uint64
}

// New creates a ledger with index 1.0 and no supply.
func New(name, symbol string) *Ledger {
	return &Ledger{
		name:         name,
		symbol:       symbol,
		credits:      make(map[string]*big.Int),
		allowances:   make(map[string]map[string]*big.Int),
		totalSupply:  new(big.Int),
		totalCredits: new(big.Int),
		index:        new(big.Int).Set(IndexScale),
	}
}

// Name returns the token name.
func (l *Ledger) Name() string { return l.name }

// Symbol returns the token symbol.
func (l *Ledger) Symbol() string { return l.symbol }

// InitializeAuthority wires the mint/burn/rebase authority. One-time.
func (l *Ledger) InitializeAuthority(addr string) error {
	if addr == "" {
		return domain.ErrInvalidAddress
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.authority != "" {
		return domain.ErrAlreadyInitialized
	}
	l.authority = addr
	return nil
}

// requireAuthority assumes no lock ordering issue: call with mu held.
func (l *Ledger) requireAuthority(caller string) error {
	if l.authority == "" || caller != l.authority {
		return domain.ErrNotAuthorized
	}
	return nil
}

// CreditsForAmount converts a nominal amount to credits at the current
// index, flooring.
func (l *Ledger) CreditsForAmount(amount *big.Int) *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.creditsForAmount(amount)
}

func (l *Ledger) creditsForAmount(amount *big.Int) *big.Int {
	c := new(big.Int).Mul(amount, IndexScale)
	return c.Quo(c, l.index)
}

// AmountForCredits converts credits to a nominal amount at the current
// index, flooring.
func (l *Ledger) AmountForCredits(credits *big.Int) *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.amountForCredits(credits)
}

func (l *Ledger) amountForCredits(credits *big.Int) *big.Int {
	a := new(big.Int).Mul(credits, l.index)
	return a.Quo(a, IndexScale)
}

// BalanceOf returns the nominal balance of a holder.
func (l *Ledger) BalanceOf(holder string) *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	c := l.credits[holder]
	if c == nil {
		return new(big.Int)
	}
	return l.amountForCredits(c)
}

// CreditBalanceOf returns the raw credit balance of a holder.
func (l *Ledger) CreditBalanceOf(holder string) *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return domain.CloneBig(l.credits[holder])
}

// TotalSupply returns the nominal total supply.
func (l *Ledger) TotalSupply() *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return domain.CloneBig(l.totalSupply)
}

// TotalCredits returns the total credits outstanding.
func (l *Ledger) TotalCredits() *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return domain.CloneBig(l.totalCredits)
}

// Index returns the current exchange index (IndexScale-scaled).
func (l *Ledger) Index() *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return domain.CloneBig(l.index)
}

// Mint creates amount for to. Authority only.
func (l *Ledger) Mint(caller, to string, amount *big.Int) error {
	if to == "" {
		return domain.ErrInvalidAddress
	}
	if amount == nil || amount.Sign() <= 0 {
		return domain.ErrInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.requireAuthority(caller); err != nil {
		return err
	}
	credits := l.creditsForAmount(amount)
	l.addCredits(to, credits)
	l.totalCredits.Add(l.totalCredits, credits)
	l.totalSupply.Add(l.totalSupply, amount)
	return nil
}

// Burn destroys amount from from. Authority only. Burning a holder's full
// balance clears the residual credits so accounts zero out cleanly.
func (l *Ledger) Burn(caller, from string, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return domain.ErrInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.requireAuthority(caller); err != nil {
		return err
	}
	held := l.credits[from]
	if held == nil {
		return domain.ErrInsufficientBalance
	}
	balance := l.amountForCredits(held)
	if balance.Cmp(amount) < 0 {
		return domain.ErrInsufficientBalance
	}

	var credits *big.Int
	if balance.Cmp(amount) == 0 {
		credits = new(big.Int).Set(held)
	} else {
		credits = l.creditsForAmount(amount)
	}
	l.subCredits(from, credits)
	l.totalCredits.Sub(l.totalCredits, credits)
	l.totalSupply.Sub(l.totalSupply, amount)
	return nil
}

// BurnCredits destroys an exact credit quantity from from and returns the
// nominal amount removed from supply. Authority only. Used by the
// coordinator when draining locks so no dust credits are left behind.
func (l *Ledger) BurnCredits(caller, from string, credits *big.Int) (*big.Int, error) {
	if credits == nil || credits.Sign() <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.requireAuthority(caller); err != nil {
		return nil, err
	}
	held := l.credits[from]
	if held == nil || held.Cmp(credits) < 0 {
		return nil, domain.ErrInsufficientBalance
	}
	amount := l.amountForCredits(credits)
	l.subCredits(from, credits)
	l.totalCredits.Sub(l.totalCredits, credits)
	l.totalSupply.Sub(l.totalSupply, amount)
	return amount, nil
}

// Rebase distributes profit across all credit holders by scaling the index.
// Zero profit is a legal no-op. Fails with ErrSupplyZero when there is no
// circulating supply to distribute over.
func (l *Ledger) Rebase(caller string, profit *big.Int, epoch uint64, at time.Time) (*domain.RebaseEvent, error) {
	if profit == nil || profit.Sign() < 0 {
		return nil, domain.ErrInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.requireAuthority(caller); err != nil {
		return nil, err
	}
	if l.totalSupply.Sign() == 0 {
		return nil, domain.ErrSupplyZero
	}

	before := new(big.Int).Set(l.index)
	if profit.Sign() > 0 {
		// index *= (supply + profit) / supply, floored
		grown := new(big.Int).Add(l.totalSupply, profit)
		next := new(big.Int).Mul(l.index, grown)
		next.Quo(next, l.totalSupply)
		l.index = next
		l.totalSupply = grown
	}
	l.rebaseCount++

	ev := &domain.RebaseEvent{
		EventID:     idhash.ComputeRebaseID(epoch, l.rebaseCount, profit),
		Epoch:       epoch,
		At:          at,
		Profit:      domain.CloneBig(profit),
		IndexBefore: before,
		IndexAfter:  domain.CloneBig(l.index),
		SupplyAfter: domain.CloneBig(l.totalSupply),
	}
	return ev, nil
}

// Transfer moves a nominal amount between holders via credits.
func (l *Ledger) Transfer(from, to string, amount *big.Int) error {
	if from == "" || to == "" {
		return domain.ErrInvalidAddress
	}
	if amount == nil || amount.Sign() < 0 {
		return domain.ErrInvalidAmount
	}
	if amount.Sign() == 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.transferCredits(from, to, l.creditsForAmount(amount))
}

// TransferCredits moves an exact credit quantity between holders. Used by
// the coordinator when releasing warm-up locks so the holder receives the
// rebase gains accrued while warming.
func (l *Ledger) TransferCredits(from, to string, credits *big.Int) error {
	if from == "" || to == "" {
		return domain.ErrInvalidAddress
	}
	if credits == nil || credits.Sign() < 0 {
		return domain.ErrInvalidAmount
	}
	if credits.Sign() == 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.transferCredits(from, to, credits)
}

func (l *Ledger) transferCredits(from, to string, credits *big.Int) error {
	held := l.credits[from]
	if held == nil || held.Cmp(credits) < 0 {
		return domain.ErrInsufficientBalance
	}
	l.subCredits(from, credits)
	l.addCredits(to, credits)
	return nil
}

// Approve sets spender's allowance over owner's balance (nominal units).
func (l *Ledger) Approve(owner, spender string, amount *big.Int) error {
	if owner == "" || spender == "" {
		return domain.ErrInvalidAddress
	}
	if amount == nil || amount.Sign() < 0 {
		return domain.ErrInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	m := l.allowances[owner]
	if m == nil {
		m = make(map[string]*big.Int)
		l.allowances[owner] = m
	}
	m[spender] = domain.CloneBig(amount)
	return nil
}

// Allowance returns spender's remaining allowance over owner's balance.
func (l *Ledger) Allowance(owner, spender string) *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return domain.CloneBig(l.allowances[owner][spender])
}

// TransferFrom moves amount from from to to, spending spender's allowance.
func (l *Ledger) TransferFrom(spender, from, to string, amount *big.Int) error {
	if spender == "" || from == "" || to == "" {
		return domain.ErrInvalidAddress
	}
	if amount == nil || amount.Sign() < 0 {
		return domain.ErrInvalidAmount
	}
	if amount.Sign() == 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	allowed := l.allowances[from][spender]
	if allowed == nil || allowed.Cmp(amount) < 0 {
		return fmt.Errorf("allowance: %w", domain.ErrInsufficientBalance)
	}
	if err := l.transferCredits(from, to, l.creditsForAmount(amount)); err != nil {
		return err
	}
	allowed.Sub(allowed, amount)
	return nil
}

// Snapshot dumps the full ledger state for persistence.
func (l *Ledger) Snapshot(at time.Time) *domain.LedgerSnapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	snap := &domain.LedgerSnapshot{
		TakenAt:      at,
		Index:        domain.CloneBig(l.index),
		TotalSupply:  domain.CloneBig(l.totalSupply),
		TotalCredits: domain.CloneBig(l.totalCredits),
		Credits:      make(map[string]*big.Int, len(l.credits)),
	}
	for holder, credits := range l.credits {
		snap.Credits[holder] = domain.CloneBig(credits)
	}
	return snap
}

// Restore loads a snapshot into an empty ledger. One-time, before use.
func (l *Ledger) Restore(snap *domain.LedgerSnapshot) error {
	if snap == nil {
		return domain.ErrInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.credits) != 0 || l.totalSupply.Sign() != 0 {
		return domain.ErrAlreadyInitialized
	}
	l.index = domain.CloneBig(snap.Index)
	l.totalSupply = domain.CloneBig(snap.TotalSupply)
	l.totalCredits = domain.CloneBig(snap.TotalCredits)
	for holder, credits := range snap.Credits {
		l.credits[holder] = domain.CloneBig(credits)
	}
	return nil
}

// Holders returns all addresses with a non-zero credit balance.
func (l *Ledger) Holders() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]string, 0, len(l.credits))
	for holder := range l.credits {
		out = append(out, holder)
	}
	return out
}

// addCredits assumes the lock is held.
func (l *Ledger) addCredits(holder string, credits *big.Int) {
	cur := l.credits[holder]
	if cur == nil {
		cur = new(big.Int)
		l.credits[holder] = cur
	}
	cur.Add(cur, credits)
}

// subCredits assumes the lock is held.
func (l *Ledger) subCredits(holder string, credits *big.Int) {
	cur := l.credits[holder]
	cur.Sub(cur, credits)
	if cur.Sign() == 0 {
		delete(l.credits, holder)
	}
}
