package simulation

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staking-vault-lab/internal/domain"
	"staking-vault-lab/internal/storage/memory"
)

func baseScenario() Scenario {
	return Scenario{
		Name:            "base",
		Epochs:          4,
		InitialBalances: map[string]string{"alice": "1000000", "bob": "1000000"},
		Actions: []Action{
			{Epoch: 1, Kind: ActionStake, Holder: "alice", Amount: "10000"},
			{Epoch: 1, Kind: ActionReward, Amount: "1000"},
			{Epoch: 3, Kind: ActionStake, Holder: "bob", Amount: "5000"},
		},
	}
}

func TestRun_RewardLagsOneFullEpoch(t *testing.T) {
	runner := NewRunner(RunnerOptions{})
	result, err := runner.Run(context.Background(), baseScenario())
	require.NoError(t, err)
	require.Len(t, result.Snapshots, 4)

	// reward queued in epoch 1 is distributed at the second boundary
	assert.Zero(t, result.Snapshots[0].TotalSupply.Cmp(big.NewInt(10_000)))
	assert.Zero(t, result.Snapshots[1].TotalSupply.Cmp(big.NewInt(11_000)))
	assert.Zero(t, result.Snapshots[3].TotalSupply.Cmp(big.NewInt(16_000)))

	require.Len(t, result.Rebases, 1)
	assert.Equal(t, uint64(2), result.Rebases[0].Epoch)
	assert.Zero(t, result.Rebases[0].Profit.Cmp(big.NewInt(1_000)))
}

func TestRun_Deterministic(t *testing.T) {
	ctx := context.Background()
	first, err := NewRunner(RunnerOptions{}).Run(ctx, baseScenario())
	require.NoError(t, err)
	second, err := NewRunner(RunnerOptions{}).Run(ctx, baseScenario())
	require.NoError(t, err)

	assert.NotEqual(t, first.RunID, second.RunID)
	require.Equal(t, len(first.Snapshots), len(second.Snapshots))
	for i := range first.Snapshots {
		a, b := first.Snapshots[i], second.Snapshots[i]
		assert.Equal(t, a.Epoch, b.Epoch)
		assert.Equal(t, a.TakenAt, b.TakenAt)
		assert.Zero(t, a.Index.Cmp(b.Index))
		assert.Zero(t, a.TotalSupply.Cmp(b.TotalSupply))
		assert.Zero(t, a.TotalCredits.Cmp(b.TotalCredits))
		assert.Zero(t, a.PendingWithdrawal.Cmp(b.PendingWithdrawal))
		assert.Equal(t, a.PoolCycleIndex, b.PoolCycleIndex)
	}
	require.Equal(t, len(first.Events), len(second.Events))
	for i := range first.Events {
		assert.Equal(t, first.Events[i].ID, second.Events[i].ID)
	}
}

func TestRun_WithdrawalLifecycle(t *testing.T) {
	sc := Scenario{
		Name:            "withdrawal",
		Epochs:          4,
		CooldownEpochs:  1,
		InitialBalances: map[string]string{"alice": "1000000"},
		Actions: []Action{
			{Epoch: 1, Kind: ActionStake, Holder: "alice", Amount: "10000"},
			{Epoch: 1, Kind: ActionUnstake, Holder: "alice", Amount: "10000"},
			{Epoch: 2, Kind: ActionRollover},
			{Epoch: 3, Kind: ActionRollover},
			{Epoch: 4, Kind: ActionClaimWithdraw, Holder: "alice"},
		},
	}

	result, err := NewRunner(RunnerOptions{}).Run(context.Background(), sc)
	require.NoError(t, err)

	// obligation opens at epoch 1 and clears once the claim pays out
	assert.Zero(t, result.Snapshots[0].PendingWithdrawal.Cmp(big.NewInt(10_000)))
	assert.Zero(t, result.Snapshots[3].PendingWithdrawal.Sign())

	var sawRequest, sawClaim bool
	for _, e := range result.Events {
		switch e.Type {
		case domain.EventWithdrawalRequest:
			sawRequest = true
		case domain.EventClaimWithdraw:
			sawClaim = true
		}
	}
	assert.True(t, sawRequest)
	assert.True(t, sawClaim)
}

func TestRun_PersistsThroughStores(t *testing.T) {
	ctx := context.Background()
	snapshots := memory.NewEpochSnapshotStore()
	rebases := memory.NewRebaseHistoryStore()

	_, err := NewRunner(RunnerOptions{SnapshotStore: snapshots, RebaseStore: rebases}).
		Run(ctx, baseScenario())
	require.NoError(t, err)

	stored, err := snapshots.GetByEpochRange(ctx, 0, ^uint64(0))
	require.NoError(t, err)
	assert.Len(t, stored, 4)

	latest, err := rebases.GetLatest(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), latest.Epoch)
}

func TestRun_RejectsMalformedScenarios(t *testing.T) {
	ctx := context.Background()
	runner := NewRunner(RunnerOptions{})

	_, err := runner.Run(ctx, Scenario{Name: "empty"})
	assert.ErrorIs(t, err, ErrBadScenario)

	_, err = runner.Run(ctx, Scenario{
		Name:   "out of range",
		Epochs: 2,
		Actions: []Action{
			{Epoch: 3, Kind: ActionStake, Holder: "alice", Amount: "1"},
		},
	})
	assert.ErrorIs(t, err, ErrBadScenario)

	_, err = runner.Run(ctx, Scenario{
		Name:            "bad amount",
		Epochs:          1,
		InitialBalances: map[string]string{"alice": "100"},
		Actions: []Action{
			{Epoch: 1, Kind: ActionStake, Holder: "alice", Amount: "ten"},
		},
	})
	assert.ErrorIs(t, err, ErrBadAmount)

	_, err = runner.Run(ctx, Scenario{
		Name:   "unknown kind",
		Epochs: 1,
		Actions: []Action{
			{Epoch: 1, Kind: "TELEPORT"},
		},
	})
	assert.ErrorIs(t, err, ErrBadScenario)
}
