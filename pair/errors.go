package pair

import "errors"

var (
	// ErrIdenticalTokens is returned when both tokens of a pair are the same address.
	ErrIdenticalTokens = errors.New("identical token addresses")

	// ErrZeroToken is returned when the canonical token0 is the zero address.
	ErrZeroToken = errors.New("zero token address")
)
