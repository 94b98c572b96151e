// Package main provides the unified vault daemon:
// - HTTP JSON API + websocket event feed (continuous)
// - Rebase and withdrawal-request ticks (scheduled)
// - Write-behind state snapshots to PostgreSQL + ClickHouse history
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"staking-vault-lab/internal/config"
	"staking-vault-lab/internal/domain"
	"staking-vault-lab/internal/ledger"
	"staking-vault-lab/internal/observability"
	"staking-vault-lab/internal/pool/mock"
	"staking-vault-lab/internal/reserve"
	"staking-vault-lab/internal/scheduler"
	"staking-vault-lab/internal/server"
	"staking-vault-lab/internal/staking"
	"staking-vault-lab/internal/storage"
	chstore "staking-vault-lab/internal/storage/clickhouse"
	"staking-vault-lab/internal/storage/memory"
	"staking-vault-lab/internal/storage/migrations"
	pgstore "staking-vault-lab/internal/storage/postgres"
	"staking-vault-lab/internal/token"
)

// devSeedAccounts get an underlying balance at boot so the API is usable
// out of the box. The daemon runs against the in-memory token and the mock
// cycle pool; a production deployment swaps those for chain adapters.
var devSeedAccounts = []string{"alice", "bob", "treasury"}

const devSeedAmount = 1_000_000_000

func main() {
	// Load .env file if exists
	loadEnvFile()

	configPath := flag.String("config", "config.yaml", "Path to YAML configuration")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage regardless of config")
	flag.Parse()

	logger := log.New(os.Stdout, "[vaultd] ", log.LstdFlags|log.Lshortfile)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	if *useMemory {
		cfg.Database.UseMemory = true
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("Invalid config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stores, cleanup, err := createStores(ctx, cfg)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	// Components. Token and pool are in-memory; everything downstream of
	// them is the real vault logic.
	bank := token.NewBank()
	for _, account := range devSeedAccounts {
		bank.Mint(account, big.NewInt(devSeedAmount))
	}
	receipt := ledger.New("Vault Receipt", "vRCT")
	pool := mock.NewPool(mock.Options{
		Address:       cfg.Pool.Address,
		Underlying:    bank,
		CycleDuration: cfg.PoolCycleLength(),
	})

	var res *reserve.Reserve
	if cfg.Reserve.Enabled {
		res, err = reserve.New(reserve.Options{
			Name:        "Vault Liquidity Reserve",
			Symbol:      "lrVLT",
			Address:     cfg.Reserve.Address,
			Underlying:  bank,
			Receipt:     receipt,
			MinimumSeed: cfg.ReserveMinimumLiquidity(),
		})
		if err != nil {
			logger.Fatalf("Failed to create reserve: %v", err)
		}
		if err := res.SetFee(int64(cfg.Reserve.FeeBasisPoints)); err != nil {
			logger.Fatalf("Failed to set reserve fee: %v", err)
		}
	}

	var srv *server.Server
	coord, err := staking.New(staking.Options{
		Address:          cfg.Staking.CoordinatorAddress,
		Underlying:       bank,
		Receipt:          receipt,
		YieldPool:        pool,
		Reserve:          res,
		EpochLength:      cfg.EpochLength(),
		WarmupPeriod:     cfg.Staking.WarmupEpochs,
		CooldownPeriod:   cfg.Staking.CooldownEpochs,
		WithdrawalWindow: cfg.WithdrawalWindow(),
		OnEvent:          func(e domain.Event) { srv.Publish(e) },
		Logger:           logger,
	})
	if err != nil {
		logger.Fatalf("Failed to create coordinator: %v", err)
	}

	if res != nil {
		if err := res.EnableLiquidityReserve("treasury", coord.Address(), coord); err != nil {
			logger.Fatalf("Failed to enable reserve: %v", err)
		}
		logger.Printf("Liquidity reserve enabled, fee %d bps, seed %s", res.Fee(), cfg.Reserve.MinimumLiquidity)
	}

	restoreState(ctx, coord, receipt, stores, logger)

	srv = server.New(server.Options{
		Coordinator: coord,
		Receipt:     receipt,
		Reserve:     res,
		Logger:      logger,
	})

	sched := scheduler.NewScheduler(ctx, coord, receipt, res, scheduler.Stores{
		WarmupLocks:      stores.warmupLocks,
		CooldownLocks:    stores.cooldownLocks,
		EpochState:       stores.epochState,
		LedgerSnapshots:  stores.ledgerSnapshots,
		ReservePositions: stores.reservePos,
		RebaseHistory:    stores.rebaseHistory,
		EpochSnapshots:   stores.epochSnapshots,
	}, logger)
	if err := sched.RegisterAll(cfg.Schedule.RebaseCron, cfg.Schedule.WithdrawalCron, cfg.Schedule.SnapshotCron); err != nil {
		logger.Fatalf("Failed to register schedules: %v", err)
	}
	sched.Start()
	defer sched.Stop()

	httpServer := &http.Server{Addr: cfg.Server.HTTPAddr, Handler: srv.Handler()}
	go func() {
		logger.Printf("Starting HTTP server on %s", cfg.Server.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Printf("HTTP server error: %v", err)
			cancel()
		}
	}()

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", observability.Handler())
	metricsServer := &http.Server{Addr: cfg.Server.MetricsAddr, Handler: metricsMux}
	go func() {
		logger.Printf("Starting metrics server on %s", cfg.Server.MetricsAddr)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Printf("Metrics server error: %v", err)
		}
	}()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Printf("HTTP shutdown error: %v", err)
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Printf("Metrics shutdown error: %v", err)
	}
	srv.Hub().Close()
	sched.RunSnapshotNow()
	logger.Println("Shutdown complete")
}

// allStores holds all storage implementations.
type allStores struct {
	warmupLocks     storage.WarmupLockStore
	cooldownLocks   storage.CooldownLockStore
	epochState      storage.EpochStateStore
	ledgerSnapshots storage.LedgerSnapshotStore
	reservePos      storage.ReservePositionStore
	rebaseHistory   storage.RebaseHistoryStore
	epochSnapshots  storage.EpochSnapshotStore
}

// createStores creates all required stores, running migrations first.
func createStores(ctx context.Context, cfg *config.Config) (*allStores, func(), error) {
	if cfg.Database.UseMemory {
		return &allStores{
			warmupLocks:     memory.NewWarmupLockStore(),
			cooldownLocks:   memory.NewCooldownLockStore(),
			epochState:      memory.NewEpochStateStore(),
			ledgerSnapshots: memory.NewLedgerSnapshotStore(),
			reservePos:      memory.NewReservePositionStore(),
			rebaseHistory:   memory.NewRebaseHistoryStore(),
			epochSnapshots:  memory.NewEpochSnapshotStore(),
		}, func() {}, nil
	}

	pgPool, err := pgstore.NewPool(ctx, cfg.Database.PostgresDSN)
	if err != nil {
		return nil, nil, err
	}
	if err := migrations.RunPostgresMigrations(ctx, pgPool); err != nil {
		pgPool.Close()
		return nil, nil, err
	}

	chConn, err := migrations.RunClickhouseMigrations(ctx, cfg.Database.ClickhouseDSN)
	if err != nil {
		pgPool.Close()
		return nil, nil, err
	}

	stores := &allStores{
		warmupLocks:     pgstore.NewWarmupLockStore(pgPool),
		cooldownLocks:   pgstore.NewCooldownLockStore(pgPool),
		epochState:      pgstore.NewEpochStateStore(pgPool),
		ledgerSnapshots: pgstore.NewLedgerSnapshotStore(pgPool),
		reservePos:      pgstore.NewReservePositionStore(pgPool),
		rebaseHistory:   chstore.NewRebaseHistoryStore(chConn),
		epochSnapshots:  chstore.NewEpochSnapshotStore(chConn),
	}
	cleanup := func() {
		pgPool.Close()
		chConn.Close()
	}
	return stores, cleanup, nil
}

// restoreState reloads persisted coordinator and ledger state. A fresh
// database is not an error: the vault just starts empty.
func restoreState(ctx context.Context, coord *staking.Coordinator, receipt *ledger.Ledger, stores *allStores, logger *log.Logger) {
	snap, err := stores.ledgerSnapshots.LoadLatest(ctx)
	switch {
	case err == nil:
		if err := receipt.Restore(snap); err != nil {
			logger.Printf("Restore ledger snapshot: %v", err)
		} else {
			logger.Printf("Restored ledger snapshot from %s (supply %s)", snap.TakenAt.Format(time.RFC3339), snap.TotalSupply)
		}
	case !errors.Is(err, storage.ErrNotFound):
		logger.Printf("Load ledger snapshot: %v", err)
	}

	state, err := stores.epochState.Load(ctx)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			logger.Printf("Load epoch state: %v", err)
		}
		return
	}
	warmups, err := stores.warmupLocks.GetAll(ctx)
	if err != nil {
		logger.Printf("Load warmup locks: %v", err)
		return
	}
	cooldowns, err := stores.cooldownLocks.GetAll(ctx)
	if err != nil {
		logger.Printf("Load cooldown locks: %v", err)
		return
	}
	coord.Restore(state, warmups, cooldowns)
	logger.Printf("Restored epoch %d with %d warmup and %d cooldown locks",
		state.Epoch.Number, len(warmups), len(cooldowns))
}

// loadEnvFile loads environment variables from .env file if it exists.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"`)
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
