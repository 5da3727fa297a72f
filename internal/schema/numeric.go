package schema

import "github.com/shopspring/decimal"

// Price is a decimal instrument price.
type Price = decimal.Decimal

// Quantity is a decimal, unsigned order or position quantity.
type Quantity = decimal.Decimal

// Money is a decimal amount in an account or quote currency.
type Money = decimal.Decimal

// PricePtr returns a pointer to a copy of p, for optional price fields.
func PricePtr(p Price) *Price {
	return &p
}
