package router

import "errors"

var (
	// ErrInvalidPath is returned when a path holds fewer than two tokens.
	ErrInvalidPath = errors.New("path must contain at least two tokens")

	// ErrNilOracle is returned by New when no reserve oracle is provided.
	ErrNilOracle = errors.New("reserve oracle cannot be nil")
)
