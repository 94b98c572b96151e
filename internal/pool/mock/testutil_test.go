package mock

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"staking-vault-lab/internal/ledger"
	"staking-vault-lab/internal/token"
)

// newReceiptLedger creates a receipt ledger with 2000 units minted to
// "holder", authority held by a throwaway coordinator address.
func newReceiptLedger(t *testing.T, _ *token.Bank) *ledger.Ledger {
	t.Helper()
	l := ledger.New("Vault Receipt", "vRCT")
	require.NoError(t, l.InitializeAuthority("coordinator"))
	require.NoError(t, l.Mint("coordinator", "holder", big.NewInt(2000)))
	return l
}
