// Package domain provides core domain types shared across modules.
package domain

import "errors"

// Sentinel errors for the trading core. Callers classify failures with
// errors.Is; the HTTP layer maps them to status codes.
var (
	// ErrInvalidArgument marks malformed or missing input: empty user/symbol,
	// non-positive quantity or price, unknown symbol, unavailable price,
	// ownership mismatch on cancel.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInsufficientHoldings marks a sell that exceeds the owned quantity.
	ErrInsufficientHoldings = errors.New("insufficient holdings")

	// ErrNotFound marks a lookup for an entity that does not exist.
	ErrNotFound = errors.New("not found")
)
