package model

import "errors"

var (
	// ErrInvalidSymbol is a caller error: the symbol is empty or malformed.
	ErrInvalidSymbol = errors.New("invalid symbol")
	// ErrNotConfigured means no upstream credential is configured.
	ErrNotConfigured = errors.New("market data not configured")
)
