// Package simulation runs deterministic multi-epoch vault scenarios over
// in-memory components: a scripted schedule of stakes, unstakes, rewards
// and pool rollovers produces per-epoch snapshots for analysis. Two runs
// of the same scenario always produce identical snapshots.
package simulation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math/big"
	"sync"
	"time"

	"github.com/google/uuid"

	"staking-vault-lab/internal/domain"
	"staking-vault-lab/internal/ledger"
	"staking-vault-lab/internal/pool/mock"
	"staking-vault-lab/internal/staking"
	"staking-vault-lab/internal/storage"
	"staking-vault-lab/internal/token"
)

// Runner errors
var (
	ErrBadAmount   = errors.New("scenario amount is not a positive decimal integer")
	ErrBadScenario = errors.New("scenario is malformed")
)

// ActionKind names one scripted operation.
type ActionKind string

// Action kinds executable in a scenario schedule.
const (
	ActionStake          ActionKind = "STAKE"
	ActionUnstake        ActionKind = "UNSTAKE"
	ActionClaim          ActionKind = "CLAIM"
	ActionClaimWithdraw  ActionKind = "CLAIM_WITHDRAW"
	ActionReward         ActionKind = "REWARD"
	ActionRollover       ActionKind = "ROLLOVER"
	ActionInstantUnstake ActionKind = "INSTANT_UNSTAKE"
)

// Action is one scheduled operation. Epoch is when it executes; actions
// within an epoch run in schedule order, before the boundary rebase.
type Action struct {
	Epoch  uint64     `yaml:"epoch" json:"epoch"`
	Kind   ActionKind `yaml:"kind" json:"kind"`
	Holder string     `yaml:"holder,omitempty" json:"holder,omitempty"`
	Amount string     `yaml:"amount,omitempty" json:"amount,omitempty"`
}

// Scenario scripts a full run. Amounts are decimal strings so scenario
// files stay exact at any magnitude.
type Scenario struct {
	Name            string            `yaml:"name" json:"name"`
	Epochs          uint64            `yaml:"epochs" json:"epochs"`
	WarmupEpochs    uint64            `yaml:"warmup_epochs" json:"warmup_epochs"`
	CooldownEpochs  uint64            `yaml:"cooldown_epochs" json:"cooldown_epochs"`
	PoolCycleEpochs uint64            `yaml:"pool_cycle_epochs" json:"pool_cycle_epochs"`
	InitialBalances map[string]string `yaml:"initial_balances" json:"initial_balances"`
	Actions         []Action          `yaml:"actions" json:"actions"`
}

// Result is one completed run.
type Result struct {
	RunID     string
	Scenario  string
	Snapshots []*domain.EpochSnapshot
	Rebases   []*domain.RebaseEvent
	Events    []domain.Event
}

// Runner executes scenarios, optionally persisting history through stores.
type Runner struct {
	snapshotStore storage.EpochSnapshotStore // optional
	rebaseStore   storage.RebaseHistoryStore // optional
	logger        *log.Logger
}

// RunnerOptions contains configuration for creating a Runner.
type RunnerOptions struct {
	SnapshotStore storage.EpochSnapshotStore
	RebaseStore   storage.RebaseHistoryStore
	Logger        *log.Logger
}

// NewRunner creates a scenario runner.
func NewRunner(opts RunnerOptions) *Runner {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Runner{
		snapshotStore: opts.SnapshotStore,
		rebaseStore:   opts.RebaseStore,
		logger:        logger,
	}
}

// epochLength is fixed for simulations: wall time is synthetic anyway, only
// the epoch grid matters.
const epochLength = time.Hour

// simStart anchors the synthetic clock so runs are reproducible.
var simStart = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// Run executes a scenario start to finish and returns per-epoch snapshots.
func (r *Runner) Run(ctx context.Context, sc Scenario) (*Result, error) {
	if sc.Epochs == 0 {
		return nil, fmt.Errorf("%w: epochs must be positive", ErrBadScenario)
	}
	cycleEpochs := sc.PoolCycleEpochs
	if cycleEpochs == 0 {
		cycleEpochs = 1
	}

	clock := &simClock{t: simStart}
	bank := token.NewBank()
	for holder, amount := range sc.InitialBalances {
		n, err := parseAmount(amount)
		if err != nil {
			return nil, fmt.Errorf("initial balance for %s: %w", holder, err)
		}
		bank.Mint(holder, n)
	}

	pool := mock.NewPool(mock.Options{
		Address:       "sim-pool",
		Underlying:    bank,
		CycleDuration: time.Duration(cycleEpochs) * epochLength,
		Now:           clock.Now,
	})
	receipt := ledger.New("Vault Receipt", "vRCT")

	result := &Result{
		RunID:    uuid.NewString(),
		Scenario: sc.Name,
	}
	coord, err := staking.New(staking.Options{
		Address:          "sim-coordinator",
		Underlying:       bank,
		Receipt:          receipt,
		YieldPool:        pool,
		EpochLength:      epochLength,
		FirstEpochEnd:    simStart.Add(epochLength),
		WarmupPeriod:     sc.WarmupEpochs,
		CooldownPeriod:   sc.CooldownEpochs,
		WithdrawalWindow: time.Duration(cycleEpochs) * epochLength,
		Now:              clock.Now,
		OnEvent:          func(e domain.Event) { result.Events = append(result.Events, e) },
		Logger:           r.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("wire coordinator: %w", err)
	}

	byEpoch := make(map[uint64][]Action)
	for i, a := range sc.Actions {
		if a.Epoch == 0 || a.Epoch > sc.Epochs {
			return nil, fmt.Errorf("%w: action %d epoch %d outside [1, %d]", ErrBadScenario, i, a.Epoch, sc.Epochs)
		}
		byEpoch[a.Epoch] = append(byEpoch[a.Epoch], a)
	}

	for epoch := uint64(1); epoch <= sc.Epochs; epoch++ {
		for _, a := range byEpoch[epoch] {
			if err := r.apply(ctx, coord, pool, bank, a); err != nil {
				return nil, fmt.Errorf("scenario %q epoch %d %s: %w", sc.Name, epoch, a.Kind, err)
			}
		}

		clock.Advance(epochLength)
		before := coord.LastRebase()
		if err := coord.Rebase(ctx); err != nil {
			return nil, fmt.Errorf("scenario %q epoch %d rebase: %w", sc.Name, epoch, err)
		}
		if last := coord.LastRebase(); last != nil && (before == nil || last.EventID != before.EventID) {
			result.Rebases = append(result.Rebases, last)
			if r.rebaseStore != nil {
				if err := r.rebaseStore.Insert(ctx, last); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
					return nil, fmt.Errorf("persist rebase: %w", err)
				}
			}
		}
		if err := coord.SendWithdrawalRequests(ctx); err != nil {
			return nil, fmt.Errorf("scenario %q epoch %d withdrawal tick: %w", sc.Name, epoch, err)
		}

		snap := r.snapshot(epoch, clock.Now(), coord, receipt)
		result.Snapshots = append(result.Snapshots, snap)
		if r.snapshotStore != nil {
			if err := r.snapshotStore.Insert(ctx, snap); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
				return nil, fmt.Errorf("persist snapshot: %w", err)
			}
		}
	}

	r.logger.Printf("scenario %q run %s: %d epochs, %d rebases, %d events",
		sc.Name, result.RunID, sc.Epochs, len(result.Rebases), len(result.Events))
	return result, nil
}

func (r *Runner) apply(ctx context.Context, coord *staking.Coordinator, pool *mock.Pool, bank *token.Bank, a Action) error {
	switch a.Kind {
	case ActionStake:
		amount, err := parseAmount(a.Amount)
		if err != nil {
			return err
		}
		return coord.Stake(ctx, a.Holder, amount)
	case ActionUnstake:
		amount, err := parseAmount(a.Amount)
		if err != nil {
			return err
		}
		return coord.Unstake(ctx, a.Holder, amount)
	case ActionClaim:
		return coord.Claim(a.Holder)
	case ActionClaimWithdraw:
		return coord.ClaimWithdraw(ctx, a.Holder)
	case ActionReward:
		amount, err := parseAmount(a.Amount)
		if err != nil {
			return err
		}
		bank.Mint("sim-treasury", amount)
		return coord.AddRewardsForStakers(ctx, "sim-treasury", amount, true, false)
	case ActionRollover:
		pool.CompleteRollover()
		return nil
	case ActionInstantUnstake:
		amount, err := parseAmount(a.Amount)
		if err != nil {
			return err
		}
		return coord.InstantUnstakeReserve(ctx, a.Holder, amount)
	default:
		return fmt.Errorf("%w: unknown action kind %q", ErrBadScenario, a.Kind)
	}
}

func (r *Runner) snapshot(epoch uint64, at time.Time, coord *staking.Coordinator, receipt *ledger.Ledger) *domain.EpochSnapshot {
	return &domain.EpochSnapshot{
		Epoch:             epoch,
		TakenAt:           at,
		Index:             receipt.Index(),
		TotalSupply:       receipt.TotalSupply(),
		TotalCredits:      receipt.TotalCredits(),
		PendingWithdrawal: coord.RequestWithdrawalAmount(),
		ReserveLiquid:     new(big.Int),
		PoolCycleIndex:    coord.LastPoolCycleIndex(),
	}
}

func parseAmount(s string) (*big.Int, error) {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok || n.Sign() <= 0 {
		return nil, fmt.Errorf("%w: %q", ErrBadAmount, s)
	}
	return n, nil
}

type simClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *simClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *simClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}
