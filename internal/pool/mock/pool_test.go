package mock

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staking-vault-lab/internal/domain"
	"staking-vault-lab/internal/token"
)

func newTestPool(t *testing.T) (*Pool, *token.Bank) {
	t.Helper()
	bank := token.NewBank()
	p := NewPool(Options{
		Address:       "yield-pool",
		Underlying:    bank,
		CycleDuration: time.Hour,
	})
	return p, bank
}

func TestPool_DepositTracksPrincipal(t *testing.T) {
	p, bank := newTestPool(t)
	bank.Mint("vault", big.NewInt(1000))

	require.NoError(t, p.Deposit(context.Background(), "vault", big.NewInt(600)))

	assert.Equal(t, int64(600), p.Balance("vault").Int64())
	assert.Equal(t, int64(400), bank.BalanceOf("vault").Int64())
	assert.Equal(t, int64(600), bank.BalanceOf("yield-pool").Int64())
}

func TestPool_RequestReplacesPrior(t *testing.T) {
	p, bank := newTestPool(t)
	ctx := context.Background()
	bank.Mint("vault", big.NewInt(1000))
	require.NoError(t, p.Deposit(ctx, "vault", big.NewInt(1000)))

	require.NoError(t, p.RequestWithdrawal(ctx, "vault", big.NewInt(200)))
	require.NoError(t, p.RequestWithdrawal(ctx, "vault", big.NewInt(500)))

	// later request replaces, never accumulates
	assert.Equal(t, int64(500), p.RequestedWithdrawal("vault").Int64())
}

func TestPool_RequestBoundedByDeposit(t *testing.T) {
	p, bank := newTestPool(t)
	ctx := context.Background()
	bank.Mint("vault", big.NewInt(100))
	require.NoError(t, p.Deposit(ctx, "vault", big.NewInt(100)))

	err := p.RequestWithdrawal(ctx, "vault", big.NewInt(101))
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)
}

func TestPool_WithdrawOnlyAfterRollover(t *testing.T) {
	p, bank := newTestPool(t)
	ctx := context.Background()
	bank.Mint("vault", big.NewInt(1000))
	require.NoError(t, p.Deposit(ctx, "vault", big.NewInt(1000)))
	require.NoError(t, p.RequestWithdrawal(ctx, "vault", big.NewInt(700)))

	// nothing fulfilled yet
	paid, err := p.Withdraw(ctx, "vault")
	require.NoError(t, err)
	assert.Equal(t, int64(0), paid.Int64())

	cycleBefore := p.CurrentCycleIndex()
	p.CompleteRollover()
	assert.Equal(t, cycleBefore+1, p.CurrentCycleIndex())

	paid, err = p.Withdraw(ctx, "vault")
	require.NoError(t, err)
	assert.Equal(t, int64(700), paid.Int64())
	assert.Equal(t, int64(700), bank.BalanceOf("vault").Int64())
	assert.Equal(t, int64(300), p.Balance("vault").Int64())

	// second withdraw pays nothing
	paid, err = p.Withdraw(ctx, "vault")
	require.NoError(t, err)
	assert.Equal(t, int64(0), paid.Int64())
}

func TestStableSwap_HonorsSlippageFloor(t *testing.T) {
	bank := token.NewBank()
	// a tiny receipt ledger so the swap has something to pull
	rcpt := newReceiptLedger(t, bank)

	swap := NewStableSwap("swap-pool", bank, rcpt, 9500)
	bank.Mint("swap-pool", big.NewInt(1_000_000))

	out, err := swap.SwapExactIn(context.Background(), "holder", "holder", big.NewInt(1000), big.NewInt(950))
	require.NoError(t, err)
	assert.Equal(t, int64(950), out.Int64())
	assert.Equal(t, int64(950), bank.BalanceOf("holder").Int64())

	_, err = swap.SwapExactIn(context.Background(), "holder", "holder", big.NewInt(1000), big.NewInt(951))
	assert.ErrorIs(t, err, domain.ErrSlippage)
}
