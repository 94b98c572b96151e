// Package token defines the fungible underlying-asset interface the vault
// moves principal through, plus an in-memory implementation used by tests,
// the simulator and the dev-mode daemon.
package token

import "math/big"

// Token is the minimal fungible-asset surface the vault needs. Transfers
// either fully succeed or leave both balances untouched.
type Token interface {
	// BalanceOf returns the current balance of an account.
	BalanceOf(account string) *big.Int

	// Transfer moves amount from one account to another. Returns
	// domain.ErrNotEnoughFunds if the source cannot cover it.
	Transfer(from, to string, amount *big.Int) error
}
