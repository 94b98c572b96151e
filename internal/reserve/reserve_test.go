package reserve

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staking-vault-lab/internal/domain"
	"staking-vault-lab/internal/ledger"
	"staking-vault-lab/internal/token"
)

const (
	coordinatorAddr = "staking-coordinator"
	reserveAddr     = "liquidity-reserve"
	seeder          = "admin"
)

// recordingUnstaker captures the coordinator call from UnstakeAllRewardTokens.
type recordingUnstaker struct {
	holder string
	amount *big.Int
}

func (u *recordingUnstaker) Unstake(_ context.Context, holder string, amount *big.Int) error {
	u.holder = holder
	u.amount = amount
	return nil
}

type fixture struct {
	bank     *token.Bank
	receipt  *ledger.Ledger
	reserve  *Reserve
	unstaker *recordingUnstaker
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	bank := token.NewBank()
	rcpt := ledger.New("Vault Receipt", "vRCT")
	require.NoError(t, rcpt.InitializeAuthority(coordinatorAddr))

	r, err := New(Options{
		Name:        "Reserve Vault",
		Symbol:      "rVLT",
		Address:     reserveAddr,
		Underlying:  bank,
		Receipt:     rcpt,
		MinimumSeed: big.NewInt(10_000),
	})
	require.NoError(t, err)

	bank.Mint(seeder, big.NewInt(1_000_000))
	unstaker := &recordingUnstaker{}
	require.NoError(t, r.EnableLiquidityReserve(seeder, coordinatorAddr, unstaker))

	return &fixture{bank: bank, receipt: rcpt, reserve: r, unstaker: unstaker}
}

func TestEnable_Guards(t *testing.T) {
	bank := token.NewBank()
	rcpt := ledger.New("Vault Receipt", "vRCT")
	require.NoError(t, rcpt.InitializeAuthority(coordinatorAddr))

	r, err := New(Options{
		Address:     reserveAddr,
		Underlying:  bank,
		Receipt:     rcpt,
		MinimumSeed: big.NewInt(10_000),
	})
	require.NoError(t, err)
	unstaker := &recordingUnstaker{}

	// zero address
	assert.ErrorIs(t, r.EnableLiquidityReserve(seeder, "", unstaker), domain.ErrInvalidAddress)

	// seeder cannot cover the minimum seed
	bank.Mint(seeder, big.NewInt(9_999))
	assert.ErrorIs(t,
		r.EnableLiquidityReserve(seeder, coordinatorAddr, unstaker),
		domain.ErrNotEnoughStakingTokens)

	// enough now
	bank.Mint(seeder, big.NewInt(1))
	require.NoError(t, r.EnableLiquidityReserve(seeder, coordinatorAddr, unstaker))

	// twice
	assert.ErrorIs(t,
		r.EnableLiquidityReserve(seeder, coordinatorAddr, unstaker),
		domain.ErrAlreadyEnabled)

	// seed shares stay locked with the reserve itself
	assert.Equal(t, int64(10_000), r.SharesOf(reserveAddr).Int64())
}

func TestAddLiquidity_FirstAndSubsequent(t *testing.T) {
	f := newFixture(t)
	f.bank.Mint("lp1", big.NewInt(50_000))

	require.NoError(t, f.reserve.AddLiquidity("lp1", big.NewInt(50_000)))
	// no fees accrued yet, shares mint 1:1 against the seed price
	assert.Equal(t, int64(50_000), f.reserve.SharesOf("lp1").Int64())
	assert.Equal(t, int64(60_000), f.reserve.TotalShares().Int64())

	// accrue 6000 underlying of fees: backing 66_000 over 60_000 shares
	f.bank.Mint(reserveAddr, big.NewInt(6_000))

	f.bank.Mint("lp2", big.NewInt(11_000))
	require.NoError(t, f.reserve.AddLiquidity("lp2", big.NewInt(11_000)))
	// 11_000 * 60_000 / 66_000 = 10_000 shares
	assert.Equal(t, int64(10_000), f.reserve.SharesOf("lp2").Int64())
}

func TestAddLiquidity_RequiresEnabledAndFunds(t *testing.T) {
	bank := token.NewBank()
	rcpt := ledger.New("Vault Receipt", "vRCT")
	require.NoError(t, rcpt.InitializeAuthority(coordinatorAddr))
	r, err := New(Options{Address: reserveAddr, Underlying: bank, Receipt: rcpt})
	require.NoError(t, err)

	assert.ErrorIs(t, r.AddLiquidity("lp1", big.NewInt(100)), domain.ErrNotEnabled)

	f := newFixture(t)
	err = f.reserve.AddLiquidity("pauper", big.NewInt(100))
	assert.ErrorIs(t, err, domain.ErrNotEnoughFunds)
}

func TestRemoveLiquidity_PaysProRata(t *testing.T) {
	f := newFixture(t)
	f.bank.Mint("lp1", big.NewInt(40_000))
	require.NoError(t, f.reserve.AddLiquidity("lp1", big.NewInt(40_000)))

	require.NoError(t, f.reserve.RemoveLiquidity("lp1", big.NewInt(40_000)))
	assert.Equal(t, int64(40_000), f.bank.BalanceOf("lp1").Int64())
	assert.Equal(t, int64(0), f.reserve.SharesOf("lp1").Int64())
}

func TestRemoveLiquidity_InsufficientShares(t *testing.T) {
	f := newFixture(t)
	f.bank.Mint("lp1", big.NewInt(1000))
	require.NoError(t, f.reserve.AddLiquidity("lp1", big.NewInt(1000)))

	err := f.reserve.RemoveLiquidity("lp1", big.NewInt(1001))
	assert.ErrorIs(t, err, domain.ErrInsufficientShares)
}

func TestRemoveLiquidity_LiquidShortfall(t *testing.T) {
	f := newFixture(t)
	f.bank.Mint("lp1", big.NewInt(40_000))
	require.NoError(t, f.reserve.AddLiquidity("lp1", big.NewInt(40_000)))
	require.NoError(t, f.reserve.SetFee(2000))

	// swap most of the liquid underlying for receipt claims
	require.NoError(t, f.receipt.Mint(coordinatorAddr, coordinatorAddr, big.NewInt(60_000)))
	require.NoError(t, f.reserve.InstantUnstake(coordinatorAddr, big.NewInt(60_000), "exiter"))

	// lp1's pro-rata value now exceeds the remaining liquid balance
	err := f.reserve.RemoveLiquidity("lp1", big.NewInt(40_000))
	assert.ErrorIs(t, err, domain.ErrNotEnoughFunds)

	// shares untouched by the failed call
	assert.Equal(t, int64(40_000), f.reserve.SharesOf("lp1").Int64())
}

func TestInstantUnstake_FeeMath(t *testing.T) {
	// 20% fee: 100 receipt in, 80 underlying out, reserve keeps 100 of
	// receipt value and gave up 80 liquid, so backing grows by 20.
	f := newFixture(t)
	require.NoError(t, f.reserve.SetFee(2000))

	require.NoError(t, f.receipt.Mint(coordinatorAddr, coordinatorAddr, big.NewInt(100)))
	backingBefore := f.reserve.BackingValue()

	require.NoError(t, f.reserve.InstantUnstake(coordinatorAddr, big.NewInt(100), "staker"))

	assert.Equal(t, int64(80), f.bank.BalanceOf("staker").Int64())
	assert.Equal(t, int64(100), f.receipt.BalanceOf(reserveAddr).Int64())

	gain := new(big.Int).Sub(f.reserve.BackingValue(), backingBefore)
	assert.Equal(t, int64(20), gain.Int64())
}

func TestInstantUnstake_Guards(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.reserve.SetFee(2000))

	// only the coordinator may call
	err := f.reserve.InstantUnstake("intruder", big.NewInt(100), "staker")
	assert.ErrorIs(t, err, domain.ErrNotAuthorized)

	// liquid balance too small for the payout
	require.NoError(t, f.receipt.Mint(coordinatorAddr, coordinatorAddr, big.NewInt(100_000)))
	err = f.reserve.InstantUnstake(coordinatorAddr, big.NewInt(100_000), "staker")
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)

	assert.ErrorIs(t, f.reserve.InstantUnstake(coordinatorAddr, nil, "staker"), domain.ErrInvalidAmount)
}

func TestSetFee_Bounds(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.reserve.SetFee(0))
	require.NoError(t, f.reserve.SetFee(BasisPoints))
	assert.ErrorIs(t, f.reserve.SetFee(BasisPoints+1), domain.ErrOutOfRange)
	assert.ErrorIs(t, f.reserve.SetFee(-1), domain.ErrOutOfRange)
}

func TestUnstakeAllRewardTokens(t *testing.T) {
	f := newFixture(t)

	// zero balance: silent no-op
	require.NoError(t, f.reserve.UnstakeAllRewardTokens(context.Background()))
	assert.Nil(t, f.unstaker.amount)

	require.NoError(t, f.receipt.Mint(coordinatorAddr, reserveAddr, big.NewInt(500)))
	require.NoError(t, f.reserve.UnstakeAllRewardTokens(context.Background()))

	assert.Equal(t, reserveAddr, f.unstaker.holder)
	assert.Equal(t, int64(500), f.unstaker.amount.Int64())
}
