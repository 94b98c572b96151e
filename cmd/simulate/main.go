// Package main runs deterministic vault scenarios from YAML files and
// prints the per-epoch results. With no scenario file a built-in
// demonstration scenario is used.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"staking-vault-lab/internal/reporting"
	"staking-vault-lab/internal/simulation"
	"staking-vault-lab/internal/storage/memory"
)

func main() {
	scenarioPath := flag.String("scenario", "", "Path to a YAML scenario file (empty runs the built-in demo)")
	jsonOut := flag.Bool("json", false, "Emit the full result as JSON instead of a table")
	verbose := flag.Bool("verbose", false, "Log runner progress")
	outputDir := flag.String("output-dir", "", "Write a Markdown report and epoch CSV to this directory")
	flag.Parse()

	logger := log.New(os.Stderr, "[simulate] ", log.LstdFlags)

	sc, err := loadScenario(*scenarioPath)
	if err != nil {
		logger.Fatalf("Failed to load scenario: %v", err)
	}

	opts := simulation.RunnerOptions{
		SnapshotStore: memory.NewEpochSnapshotStore(),
		RebaseStore:   memory.NewRebaseHistoryStore(),
	}
	if *verbose {
		opts.Logger = logger
	}

	result, err := simulation.NewRunner(opts).Run(context.Background(), sc)
	if err != nil {
		logger.Fatalf("Scenario failed: %v", err)
	}

	if *outputDir != "" {
		if err := writeReport(*outputDir, opts); err != nil {
			logger.Fatalf("Write report: %v", err)
		}
		logger.Printf("Report written to %s", *outputDir)
	}

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			logger.Fatalf("Encode result: %v", err)
		}
		return
	}
	printResult(result)
}

// writeReport renders the run's persisted history as a Markdown summary
// plus an epoch CSV, both under dir.
func writeReport(dir string, opts simulation.RunnerOptions) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	gen := reporting.NewGenerator(opts.SnapshotStore, opts.RebaseStore, nil, time.Hour)
	report, err := gen.Generate(context.Background())
	if err != nil {
		return err
	}

	mdPath := filepath.Join(dir, "report.md")
	if err := os.WriteFile(mdPath, []byte(reporting.RenderMarkdown(report)), 0o644); err != nil {
		return err
	}
	csvPath := filepath.Join(dir, "epochs.csv")
	return os.WriteFile(csvPath, []byte(reporting.RenderCSV(report)), 0o644)
}

func loadScenario(path string) (simulation.Scenario, error) {
	if path == "" {
		return demoScenario(), nil
	}
	var sc simulation.Scenario
	data, err := os.ReadFile(path)
	if err != nil {
		return sc, err
	}
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return sc, fmt.Errorf("parse scenario: %w", err)
	}
	return sc, nil
}

// demoScenario exercises the full lifecycle: growth through rewards, a
// batched withdrawal and its payout.
func demoScenario() simulation.Scenario {
	return simulation.Scenario{
		Name:           "demo",
		Epochs:         8,
		CooldownEpochs: 1,
		InitialBalances: map[string]string{
			"alice": "1000000",
			"bob":   "1000000",
		},
		Actions: []simulation.Action{
			{Epoch: 1, Kind: simulation.ActionStake, Holder: "alice", Amount: "100000"},
			{Epoch: 1, Kind: simulation.ActionStake, Holder: "bob", Amount: "50000"},
			{Epoch: 1, Kind: simulation.ActionReward, Amount: "15000"},
			{Epoch: 3, Kind: simulation.ActionReward, Amount: "15000"},
			{Epoch: 4, Kind: simulation.ActionUnstake, Holder: "bob", Amount: "30000"},
			{Epoch: 5, Kind: simulation.ActionRollover},
			{Epoch: 6, Kind: simulation.ActionRollover},
			{Epoch: 7, Kind: simulation.ActionClaimWithdraw, Holder: "bob"},
		},
	}
}

func printResult(result *simulation.Result) {
	fmt.Printf("scenario %s  run %s\n\n", result.Scenario, result.RunID)
	fmt.Printf("%-6s  %-22s  %-14s  %-14s  %-10s\n",
		"epoch", "index", "supply", "pending w/d", "pool cycle")
	for _, s := range result.Snapshots {
		fmt.Printf("%-6d  %-22s  %-14s  %-14s  %-10d\n",
			s.Epoch, s.Index, s.TotalSupply, s.PendingWithdrawal, s.PoolCycleIndex)
	}

	if len(result.Rebases) > 0 {
		fmt.Printf("\nrebases:\n")
		for _, r := range result.Rebases {
			fmt.Printf("  epoch %-4d profit %-12s index %s -> %s\n",
				r.Epoch, r.Profit, r.IndexBefore, r.IndexAfter)
		}
	}
	fmt.Printf("\n%d events emitted\n", len(result.Events))
}
