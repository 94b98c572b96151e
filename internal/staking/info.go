package staking

import (
	"math/big"
	"time"

	"staking-vault-lab/internal/domain"
)

// EpochInfo returns a copy of the current epoch.
func (c *Coordinator) EpochInfo() domain.Epoch {
	c.mu.Lock()
	defer c.mu.Unlock()
	return *c.epoch.Copy()
}

// PendingRewards returns yield queued for the boundary after next.
func (c *Coordinator) PendingRewards() *big.Int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return new(big.Int).Set(c.pendingRewards)
}

// WarmUpInfo returns a copy of holder's warm-up lock, or nil.
func (c *Coordinator) WarmUpInfo(holder string) *domain.WarmupLock {
	c.mu.Lock()
	defer c.mu.Unlock()
	if lock := c.warmups[holder]; lock != nil {
		return lock.Copy()
	}
	return nil
}

// CoolDownInfo returns a copy of holder's cool-down lock, or nil.
func (c *Coordinator) CoolDownInfo(holder string) *domain.CooldownLock {
	c.mu.Lock()
	defer c.mu.Unlock()
	if lock := c.cooldowns[holder]; lock != nil {
		return lock.Copy()
	}
	return nil
}

// RequestWithdrawalAmount returns the total outstanding cool-down
// obligation not yet paid out.
func (c *Coordinator) RequestWithdrawalAmount() *big.Int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return new(big.Int).Set(c.requestWithdrawalAmount)
}

// LastPoolCycleIndex returns the withdrawal batching cursor.
func (c *Coordinator) LastPoolCycleIndex() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastPoolCycleIndex
}

// LastRebase returns the most recent rebase event, or nil before the first.
func (c *Coordinator) LastRebase() *domain.RebaseEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastRebase == nil {
		return nil
	}
	return c.lastRebase.Copy()
}

// TotalVaultBalance is everything the vault controls: liquid underlying,
// the pool position and whatever the pool has fulfilled but not yet paid.
func (c *Coordinator) TotalVaultBalance() *big.Int {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := new(big.Int).Set(c.underlying.BalanceOf(c.addr))
	total.Add(total, c.yieldPool.Balance(c.addr))
	return total
}

// SetWarmupPeriod sets the warm-up length in epochs for future stakes.
func (c *Coordinator) SetWarmupPeriod(epochs uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.warmupPeriod = epochs
}

// SetCooldownPeriod sets the cool-down length in epochs for future
// unstakes.
func (c *Coordinator) SetCooldownPeriod(epochs uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cooldownPeriod = epochs
}

// SetWithdrawalWindow sets how long before the next pool cycle start a
// batch may still be filed.
func (c *Coordinator) SetWithdrawalWindow(window time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.withdrawalWindow = window
}

// SetPauses flips the three operation gates.
func (c *Coordinator) SetPauses(staking, unstaking, instant bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stakingPaused = staking
	c.unstakingPaused = unstaking
	c.instantUnstakePaused = instant
}

// Pauses reports the current gate states.
func (c *Coordinator) Pauses() (staking, unstaking, instant bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stakingPaused, c.unstakingPaused, c.instantUnstakePaused
}

// Snapshot captures batching and epoch state for persistence.
func (c *Coordinator) Snapshot() *domain.EpochState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return &domain.EpochState{
		Epoch:              *c.epoch.Copy(),
		PendingRewards:     new(big.Int).Set(c.pendingRewards),
		RequestWithdrawal:  new(big.Int).Set(c.requestWithdrawalAmount),
		LastPoolCycleIndex: c.lastPoolCycleIndex,
		SavedAt:            c.now(),
	}
}

// Restore loads previously persisted state. Intended for startup, before
// the coordinator serves any operation.
func (c *Coordinator) Restore(state *domain.EpochState, warmups map[string]*domain.WarmupLock, cooldowns map[string]*domain.CooldownLock) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if state != nil {
		c.epoch = *state.Epoch.Copy()
		c.pendingRewards = domain.CloneBig(state.PendingRewards)
		c.requestWithdrawalAmount = domain.CloneBig(state.RequestWithdrawal)
		c.lastPoolCycleIndex = state.LastPoolCycleIndex
	}
	c.warmups = make(map[string]*domain.WarmupLock, len(warmups))
	for holder, lock := range warmups {
		c.warmups[holder] = lock.Copy()
	}
	c.cooldowns = make(map[string]*domain.CooldownLock, len(cooldowns))
	for holder, lock := range cooldowns {
		c.cooldowns[holder] = lock.Copy()
	}
}

// WarmupLocks returns copies of all live warm-up locks keyed by holder.
func (c *Coordinator) WarmupLocks() map[string]*domain.WarmupLock {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]*domain.WarmupLock, len(c.warmups))
	for holder, lock := range c.warmups {
		out[holder] = lock.Copy()
	}
	return out
}

// CooldownLocks returns copies of all live cool-down locks keyed by holder.
func (c *Coordinator) CooldownLocks() map[string]*domain.CooldownLock {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]*domain.CooldownLock, len(c.cooldowns))
	for holder, lock := range c.cooldowns {
		out[holder] = lock.Copy()
	}
	return out
}

// SecondsToNextEpoch reports time left in the current epoch; zero once the
// boundary has passed.
func (c *Coordinator) SecondsToNextEpoch() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	left := c.epoch.EndTime.Sub(c.now())
	if left < 0 {
		return 0
	}
	return left
}
