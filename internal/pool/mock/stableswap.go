package mock

import (
	"context"
	"math/big"
	"sync"

	"staking-vault-lab/internal/domain"
	"staking-vault-lab/internal/ledger"
	"staking-vault-lab/internal/token"
)

// StableSwap is an in-memory stand-in for the external receipt/underlying
// swap pool. It quotes a flat rate in basis points of the input, so tests
// can exercise the slippage floor deterministically.
type StableSwap struct {
	mu sync.Mutex

	addr       string
	underlying token.Token
	receipt    *ledger.Ledger
	rateBps    int64
}

// NewStableSwap creates a swap pool paying out rateBps/10000 underlying per
// receipt unit. The pool address must be seeded with underlying liquidity.
func NewStableSwap(addr string, underlying token.Token, receipt *ledger.Ledger, rateBps int64) *StableSwap {
	return &StableSwap{addr: addr, underlying: underlying, receipt: receipt, rateBps: rateBps}
}

// SwapExactIn trades amountIn receipt tokens from from, paying underlying
// to recipient. Fails with ErrSlippage when the quote is below minOut.
func (s *StableSwap) SwapExactIn(_ context.Context, from, recipient string, amountIn, minOut *big.Int) (*big.Int, error) {
	if amountIn == nil || amountIn.Sign() <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	out := new(big.Int).Mul(amountIn, big.NewInt(s.rateBps))
	out.Quo(out, big.NewInt(10000))
	if minOut != nil && out.Cmp(minOut) < 0 {
		return nil, domain.ErrSlippage
	}
	if err := s.receipt.Transfer(from, s.addr, amountIn); err != nil {
		return nil, err
	}
	if err := s.underlying.Transfer(s.addr, recipient, out); err != nil {
		// unwind the receipt leg so the swap stays atomic
		_ = s.receipt.Transfer(s.addr, from, amountIn)
		return nil, err
	}
	return out, nil
}
