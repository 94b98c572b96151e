// Package scheduler runs the vault's periodic jobs on cron schedules:
// epoch rebase ticks, withdrawal batch submission and write-behind state
// snapshots.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/big"
	"time"

	"github.com/robfig/cron/v3"

	"staking-vault-lab/internal/domain"
	"staking-vault-lab/internal/ledger"
	"staking-vault-lab/internal/observability"
	"staking-vault-lab/internal/reserve"
	"staking-vault-lab/internal/staking"
	"staking-vault-lab/internal/storage"
)

// Stores bundles the persistence targets for the snapshot job. Any nil
// store skips its part of the snapshot; history stores may also be nil.
type Stores struct {
	WarmupLocks     storage.WarmupLockStore
	CooldownLocks   storage.CooldownLockStore
	EpochState      storage.EpochStateStore
	LedgerSnapshots  storage.LedgerSnapshotStore
	ReservePositions storage.ReservePositionStore
	RebaseHistory    storage.RebaseHistoryStore
	EpochSnapshots   storage.EpochSnapshotStore
}

// Scheduler manages all cron tasks.
type Scheduler struct {
	Cron        *cron.Cron
	Coordinator *staking.Coordinator
	Receipt     *ledger.Ledger
	Reserve     *reserve.Reserve // optional
	Stores      Stores
	Ctx         context.Context
	Logger      *log.Logger
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, coord *staking.Coordinator, receipt *ledger.Ledger, res *reserve.Reserve, stores Stores, logger *log.Logger) *Scheduler {
	return &Scheduler{
		Cron:        cron.New(cron.WithSeconds()),
		Coordinator: coord,
		Receipt:     receipt,
		Reserve:     res,
		Stores:      stores,
		Ctx:         ctx,
		Logger:      logger,
	}
}

// RegisterAll registers the rebase, withdrawal and snapshot tasks.
func (s *Scheduler) RegisterAll(rebaseCron, withdrawalCron, snapshotCron string) error {
	if _, err := s.Cron.AddFunc(rebaseCron, s.rebaseTask); err != nil {
		return fmt.Errorf("register rebase task: %w", err)
	}
	if _, err := s.Cron.AddFunc(withdrawalCron, s.withdrawalTask); err != nil {
		return fmt.Errorf("register withdrawal task: %w", err)
	}
	if _, err := s.Cron.AddFunc(snapshotCron, s.snapshotTask); err != nil {
		return fmt.Errorf("register snapshot task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.Logger.Println("scheduler started")
}

// Stop stops the cron scheduler gracefully.
func (s *Scheduler) Stop() {
	s.Cron.Stop()
	s.Logger.Println("scheduler stopped")
}

// RunSnapshotNow executes the snapshot task immediately. Used at shutdown
// so the latest state lands in the stores.
func (s *Scheduler) RunSnapshotNow() {
	s.snapshotTask()
}

func (s *Scheduler) rebaseTask() {
	start := time.Now()
	before := s.Coordinator.EpochInfo().Number

	if err := s.Coordinator.Rebase(s.Ctx); err != nil {
		s.Logger.Printf("rebase tick: %v", err)
		observability.RecordJobRun("rebase", "error", time.Since(start).Seconds())
		return
	}

	epoch := s.Coordinator.EpochInfo()
	if epoch.Number > before {
		if last := s.Coordinator.LastRebase(); last != nil && last.Epoch == before {
			profit, _ := new(big.Float).SetInt(last.Profit).Float64()
			observability.RecordRebase(epoch.Number, profit)
			observability.DefaultMetrics.LastSuccessfulRebase.Set(float64(last.At.Unix()))
			s.recordRebaseHistory(last)
		}
		s.Logger.Printf("epoch advanced to %d", epoch.Number)
	}
	observability.RecordJobRun("rebase", "success", time.Since(start).Seconds())
}

func (s *Scheduler) withdrawalTask() {
	start := time.Now()
	cursorBefore := s.Coordinator.LastPoolCycleIndex()

	if err := s.Coordinator.SendWithdrawalRequests(s.Ctx); err != nil {
		s.Logger.Printf("withdrawal tick: %v", err)
		observability.DefaultMetrics.WithdrawalRequestErrors.Inc()
		observability.RecordJobRun("withdrawal", "error", time.Since(start).Seconds())
		return
	}

	if cursor := s.Coordinator.LastPoolCycleIndex(); cursor > cursorBefore {
		observability.RecordWithdrawalBatch(cursor)
		s.Logger.Printf("withdrawal batch sent for cycle %d", cursor)
	}
	observability.RecordJobRun("withdrawal", "success", time.Since(start).Seconds())
}

func (s *Scheduler) snapshotTask() {
	start := time.Now()
	status := "success"

	if err := s.persistState(); err != nil {
		s.Logger.Printf("snapshot: %v", err)
		status = "error"
	} else {
		observability.DefaultMetrics.LastSuccessfulSnapshot.Set(float64(time.Now().Unix()))
	}
	observability.RecordJobRun("snapshot", status, time.Since(start).Seconds())
}

func (s *Scheduler) persistState() error {
	now := time.Now()

	if s.Stores.EpochState != nil {
		if err := s.Stores.EpochState.Save(s.Ctx, s.Coordinator.Snapshot()); err != nil {
			return fmt.Errorf("save epoch state: %w", err)
		}
	}
	if s.Stores.LedgerSnapshots != nil {
		if err := s.Stores.LedgerSnapshots.Save(s.Ctx, s.Receipt.Snapshot(now)); err != nil {
			return fmt.Errorf("save ledger snapshot: %w", err)
		}
	}
	if s.Stores.WarmupLocks != nil {
		if err := syncLocks(s.Ctx, s.Stores.WarmupLocks, s.Coordinator.WarmupLocks()); err != nil {
			return fmt.Errorf("sync warmup locks: %w", err)
		}
	}
	if s.Stores.CooldownLocks != nil {
		if err := syncCooldowns(s.Ctx, s.Stores.CooldownLocks, s.Coordinator.CooldownLocks()); err != nil {
			return fmt.Errorf("sync cooldown locks: %w", err)
		}
	}
	if s.Stores.ReservePositions != nil && s.Reserve != nil {
		for _, p := range s.Reserve.Positions() {
			if err := s.Stores.ReservePositions.Upsert(s.Ctx, p); err != nil {
				return fmt.Errorf("save reserve position: %w", err)
			}
		}
	}
	if s.Stores.EpochSnapshots != nil {
		if err := s.recordEpochSnapshot(now); err != nil {
			return err
		}
	}

	warmups := s.Coordinator.WarmupLocks()
	cooldowns := s.Coordinator.CooldownLocks()
	observability.UpdateLockCounts(len(warmups), len(cooldowns))
	return nil
}

func (s *Scheduler) recordRebaseHistory(e *domain.RebaseEvent) {
	if s.Stores.RebaseHistory == nil {
		return
	}
	err := s.Stores.RebaseHistory.Insert(s.Ctx, e)
	if err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
		s.Logger.Printf("record rebase history: %v", err)
	}
}

func (s *Scheduler) recordEpochSnapshot(now time.Time) error {
	state := s.Coordinator.Snapshot()
	snap := &domain.EpochSnapshot{
		Epoch:             state.Epoch.Number,
		TakenAt:           now,
		Index:             s.Receipt.Index(),
		TotalSupply:       s.Receipt.TotalSupply(),
		TotalCredits:      s.Receipt.TotalCredits(),
		PendingWithdrawal: state.RequestWithdrawal,
		ReserveLiquid:     new(big.Int),
		PoolCycleIndex:    state.LastPoolCycleIndex,
	}
	if s.Reserve != nil {
		snap.ReserveLiquid = s.Reserve.LiquidBalance()
	}
	err := s.Stores.EpochSnapshots.Insert(s.Ctx, snap)
	if err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
		return fmt.Errorf("record epoch snapshot: %w", err)
	}
	return nil
}

// syncLocks makes the store match the live lock set: upsert every live
// lock and drop stored locks for holders that no longer have one.
func syncLocks(ctx context.Context, store storage.WarmupLockStore, live map[string]*domain.WarmupLock) error {
	stored, err := store.GetAll(ctx)
	if err != nil {
		return err
	}
	for holder := range stored {
		if _, ok := live[holder]; !ok {
			if err := store.Delete(ctx, holder); err != nil {
				return err
			}
		}
	}
	for holder, lock := range live {
		if err := store.Upsert(ctx, holder, lock); err != nil {
			return err
		}
	}
	return nil
}

func syncCooldowns(ctx context.Context, store storage.CooldownLockStore, live map[string]*domain.CooldownLock) error {
	stored, err := store.GetAll(ctx)
	if err != nil {
		return err
	}
	for holder := range stored {
		if _, ok := live[holder]; !ok {
			if err := store.Delete(ctx, holder); err != nil {
				return err
			}
		}
	}
	for holder, lock := range live {
		if err := store.Upsert(ctx, holder, lock); err != nil {
			return err
		}
	}
	return nil
}
