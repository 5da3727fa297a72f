package og

import (
	"execution/internal/schema"
	"execution/pkg/exception"

	"github.com/yanun0323/errors"
)

// BracketOrder is an entry order with a protective stop-loss and an optional
// take-profit. The ledger adds its legs as one unit.
type BracketOrder struct {
	Entry      *Order
	StopLoss   *Order
	TakeProfit *Order
}

// NewBracketOrder validates the legs. The take-profit may be nil.
func NewBracketOrder(entry, stopLoss, takeProfit *Order) (*BracketOrder, error) {
	if entry == nil || stopLoss == nil {
		return nil, errors.Wrap(exception.ErrOrderInvalidBracket, "entry and stop-loss are required")
	}
	legs := []*Order{stopLoss}
	if takeProfit != nil {
		legs = append(legs, takeProfit)
	}
	seen := map[schema.OrderID]struct{}{entry.ID(): {}}
	for _, leg := range legs {
		if _, dup := seen[leg.ID()]; dup {
			return nil, errors.Wrapf(exception.ErrOrderInvalidBracket, "duplicate leg id %s", leg.ID())
		}
		seen[leg.ID()] = struct{}{}
		if leg.Symbol() != entry.Symbol() {
			return nil, errors.Wrapf(exception.ErrOrderInvalidBracket, "leg %s symbol %s, entry %s", leg.ID(), leg.Symbol(), entry.Symbol())
		}
		if leg.Side() != entry.Side().Opposite() {
			return nil, errors.Wrapf(exception.ErrOrderInvalidBracket, "leg %s must be on the %s side", leg.ID(), entry.Side().Opposite())
		}
		if !leg.Quantity().Equal(entry.Quantity()) {
			return nil, errors.Wrapf(exception.ErrOrderInvalidBracket, "leg %s quantity %s, entry %s", leg.ID(), leg.Quantity(), entry.Quantity())
		}
	}
	return &BracketOrder{Entry: entry, StopLoss: stopLoss, TakeProfit: takeProfit}, nil
}

// ID derives the bracket id from the entry order.
func (b *BracketOrder) ID() string {
	return "B" + b.Entry.ID().String()
}

// HasTakeProfit reports whether the optional take-profit leg is present.
func (b *BracketOrder) HasTakeProfit() bool {
	return b.TakeProfit != nil
}

// Orders returns the legs in entry, stop-loss, take-profit order.
func (b *BracketOrder) Orders() []*Order {
	out := []*Order{b.Entry, b.StopLoss}
	if b.TakeProfit != nil {
		out = append(out, b.TakeProfit)
	}
	return out
}
