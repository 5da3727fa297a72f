package exception

import "errors"

var (
	ErrOrderInvalidSpec       = errors.New("order: invalid spec")
	ErrOrderIDMismatch        = errors.New("order: event order id mismatch")
	ErrOrderInvalidTransition = errors.New("order: invalid state transition")
	ErrOrderUnhandledEvent    = errors.New("order: unhandled event")
	ErrOrderInvalidFill       = errors.New("order: invalid fill quantity")
	ErrOrderInvalidBracket    = errors.New("order: invalid bracket")
)
