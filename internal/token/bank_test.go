package token

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staking-vault-lab/internal/domain"
)

func TestBank_TransferMovesFunds(t *testing.T) {
	b := NewBank()
	b.Mint("alice", big.NewInt(1000))

	require.NoError(t, b.Transfer("alice", "bob", big.NewInt(400)))

	assert.Equal(t, int64(600), b.BalanceOf("alice").Int64())
	assert.Equal(t, int64(400), b.BalanceOf("bob").Int64())
}

func TestBank_TransferInsufficient(t *testing.T) {
	b := NewBank()
	b.Mint("alice", big.NewInt(100))

	err := b.Transfer("alice", "bob", big.NewInt(101))
	require.ErrorIs(t, err, domain.ErrNotEnoughFunds)

	// nothing moved
	assert.Equal(t, int64(100), b.BalanceOf("alice").Int64())
	assert.Equal(t, int64(0), b.BalanceOf("bob").Int64())
}

func TestBank_TransferValidation(t *testing.T) {
	b := NewBank()
	b.Mint("alice", big.NewInt(100))

	assert.ErrorIs(t, b.Transfer("alice", "bob", nil), domain.ErrInvalidAmount)
	assert.ErrorIs(t, b.Transfer("alice", "bob", big.NewInt(-1)), domain.ErrInvalidAmount)
	assert.ErrorIs(t, b.Transfer("", "bob", big.NewInt(1)), domain.ErrInvalidAddress)

	// zero-amount transfer is a no-op, not an error
	assert.NoError(t, b.Transfer("alice", "bob", big.NewInt(0)))
}

func TestBank_BalanceOfReturnsCopy(t *testing.T) {
	b := NewBank()
	b.Mint("alice", big.NewInt(50))

	bal := b.BalanceOf("alice")
	bal.SetInt64(999999)

	assert.Equal(t, int64(50), b.BalanceOf("alice").Int64())
}
