package postgres

import (
	"fmt"
	"math/big"
)

// parseBig converts a NUMERIC value read back as text into a big.Int.
func parseBig(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("parse numeric %q", s)
	}
	return v, nil
}

// bigArg converts a big.Int into its NUMERIC text form, mapping nil to "0".
func bigArg(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
