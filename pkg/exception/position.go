package exception

import "errors"

var (
	ErrPositionEmptyHistory   = errors.New("position: empty fill history")
	ErrPositionSymbolMismatch = errors.New("position: fill symbol mismatch")
	ErrPositionBrokerMismatch = errors.New("position: fill broker position id mismatch")
	ErrPositionInvalidFill    = errors.New("position: invalid fill")
)

var (
	ErrAccountEmptyHistory = errors.New("account: empty state history")
	ErrAccountIDMismatch   = errors.New("account: event account id mismatch")
)
