package state

import (
	"slices"
	"time"

	"execution/internal/schema"
	"execution/pkg/exception"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"
)

// Position nets the fills of one or more orders into a directional exposure.
// A position only exists once its first fill arrived.
type Position struct {
	id              schema.PositionID
	idBroker        *schema.PositionIDBroker
	accountID       schema.AccountID
	symbol          schema.Symbol
	currency        string
	fromOrderID     schema.OrderID
	lastOrderID     schema.OrderID
	lastExecutionID schema.ExecutionID
	entryDirection  schema.OrderSide
	openedTime      time.Time
	closedTime      *time.Time
	lastUpdated     time.Time

	relativeQuantity  decimal.Decimal
	peakQuantity      schema.Quantity
	averageOpenPrice  schema.Price
	averageClosePrice *schema.Price
	closedQuantity    schema.Quantity
	realizedPoints    decimal.Decimal
	realizedReturn    decimal.Decimal
	realizedPnL       schema.Money

	orderIDs     map[schema.OrderID]struct{}
	executionIDs map[schema.ExecutionID]struct{}
	fills        []schema.FillEvent
}

// NewPosition opens a position from its first fill.
func NewPosition(id schema.PositionID, fill schema.FillEvent) (*Position, error) {
	if fill == nil {
		return nil, errors.Wrap(exception.ErrNilInstance, "new position")
	}
	d := fill.Detail()
	target := fill.Target()
	p := &Position{
		id:             id,
		accountID:      target.AccountID,
		symbol:         d.Symbol,
		currency:       d.Currency,
		fromOrderID:    target.OrderID,
		entryDirection: d.Side,
		openedTime:     d.ExecutionTime,
		orderIDs:       make(map[schema.OrderID]struct{}),
		executionIDs:   make(map[schema.ExecutionID]struct{}),
	}
	if err := p.Apply(fill); err != nil {
		return nil, err
	}
	return p, nil
}

// RestorePosition rebuilds a position by replaying its fills in order.
func RestorePosition(id schema.PositionID, fills []schema.FillEvent) (*Position, error) {
	if len(fills) == 0 {
		return nil, errors.Wrapf(exception.ErrPositionEmptyHistory, "position: %s", id)
	}
	p, err := NewPosition(id, fills[0])
	if err != nil {
		return nil, err
	}
	for i, f := range fills[1:] {
		if err := p.Apply(f); err != nil {
			return nil, errors.Wrapf(err, "replay fill %d", i+1)
		}
	}
	return p, nil
}

// Apply nets a fill into the position. Fills in the position direction average
// into the open price; opposite fills realize P&L against it and any remainder
// flips the position through flat.
func (p *Position) Apply(fill schema.FillEvent) error {
	if fill == nil {
		return errors.Wrap(exception.ErrNilInstance, "apply position fill")
	}
	d := fill.Detail()
	if d.Symbol != p.symbol {
		return errors.Wrapf(exception.ErrPositionSymbolMismatch, "position: %s (%s), fill: %s", p.id, p.symbol, d.Symbol)
	}
	if p.idBroker != nil && d.PositionIDBroker != nil && *p.idBroker != *d.PositionIDBroker {
		return errors.Wrapf(exception.ErrPositionBrokerMismatch, "position: %s (%s), fill: %s", p.id, *p.idBroker, *d.PositionIDBroker)
	}
	if !d.FilledQuantity.IsPositive() || !d.AveragePrice.IsPositive() {
		return errors.Wrapf(exception.ErrPositionInvalidFill, "position: %s, qty: %s, price: %s", p.id, d.FilledQuantity, d.AveragePrice)
	}
	if d.Side != schema.OrderSideBuy && d.Side != schema.OrderSideSell {
		return errors.Wrapf(exception.ErrPositionInvalidFill, "position: %s, side: %s", p.id, d.Side)
	}

	if p.idBroker == nil && d.PositionIDBroker != nil {
		id := *d.PositionIDBroker
		p.idBroker = &id
	}
	target := fill.Target()
	p.orderIDs[target.OrderID] = struct{}{}
	p.executionIDs[d.ExecutionID] = struct{}{}
	p.lastOrderID = target.OrderID
	p.lastExecutionID = d.ExecutionID
	p.lastUpdated = d.ExecutionTime
	p.fills = append(p.fills, fill)

	p.net(d)
	return nil
}

func (p *Position) net(d schema.FillDetail) {
	signed := d.FilledQuantity
	if d.Side == schema.OrderSideSell {
		signed = signed.Neg()
	}

	if p.relativeQuantity.IsZero() || p.relativeQuantity.Sign() == signed.Sign() {
		if p.relativeQuantity.IsZero() {
			p.openLeg(d)
		} else {
			open := p.relativeQuantity.Abs()
			p.averageOpenPrice = p.averageOpenPrice.Mul(open).Add(d.AveragePrice.Mul(d.FilledQuantity)).Div(open.Add(d.FilledQuantity))
		}
		p.relativeQuantity = p.relativeQuantity.Add(signed)
	} else {
		open := p.relativeQuantity.Abs()
		closing := decimal.Min(d.FilledQuantity, open)
		direction := decimal.NewFromInt(int64(p.relativeQuantity.Sign()))

		p.realizedPnL = p.realizedPnL.Add(d.AveragePrice.Sub(p.averageOpenPrice).Mul(direction).Mul(closing))
		if p.averageClosePrice == nil {
			p.averageClosePrice = schema.PricePtr(d.AveragePrice)
			p.closedQuantity = closing
		} else {
			total := p.closedQuantity.Add(closing)
			avg := p.averageClosePrice.Mul(p.closedQuantity).Add(d.AveragePrice.Mul(closing)).Div(total)
			p.averageClosePrice = &avg
			p.closedQuantity = total
		}
		p.realizedPoints = p.averageClosePrice.Sub(p.averageOpenPrice).Mul(direction)
		p.realizedReturn = p.realizedPoints.Div(p.averageOpenPrice)

		remainder := d.FilledQuantity.Sub(closing)
		if remainder.IsPositive() {
			p.openLeg(d)
			if d.Side == schema.OrderSideSell {
				remainder = remainder.Neg()
			}
			p.relativeQuantity = remainder
		} else {
			p.relativeQuantity = p.relativeQuantity.Add(signed)
		}
	}

	if qty := p.relativeQuantity.Abs(); qty.GreaterThan(p.peakQuantity) {
		p.peakQuantity = qty
	}
	if p.relativeQuantity.IsZero() {
		closed := d.ExecutionTime
		p.closedTime = &closed
	} else {
		p.closedTime = nil
	}
}

// openLeg starts a new directional leg at the fill price. Closing statistics
// of a previous leg are reset, realized P&L is kept.
func (p *Position) openLeg(d schema.FillDetail) {
	p.averageOpenPrice = d.AveragePrice
	p.entryDirection = d.Side
	if len(p.fills) > 1 {
		p.openedTime = d.ExecutionTime
		p.averageClosePrice = nil
		p.closedQuantity = decimal.Zero
	}
}

func (p *Position) ID() schema.PositionID                { return p.id }
func (p *Position) AccountID() schema.AccountID          { return p.accountID }
func (p *Position) Symbol() schema.Symbol                { return p.symbol }
func (p *Position) Currency() string                     { return p.currency }
func (p *Position) FromOrderID() schema.OrderID          { return p.fromOrderID }
func (p *Position) LastOrderID() schema.OrderID          { return p.lastOrderID }
func (p *Position) LastExecutionID() schema.ExecutionID  { return p.lastExecutionID }
func (p *Position) EntryDirection() schema.OrderSide     { return p.entryDirection }
func (p *Position) OpenedTime() time.Time                { return p.openedTime }
func (p *Position) LastUpdated() time.Time               { return p.lastUpdated }
func (p *Position) RelativeQuantity() decimal.Decimal    { return p.relativeQuantity }
func (p *Position) Quantity() schema.Quantity            { return p.relativeQuantity.Abs() }
func (p *Position) PeakQuantity() schema.Quantity        { return p.peakQuantity }
func (p *Position) AverageOpenPrice() schema.Price       { return p.averageOpenPrice }
func (p *Position) RealizedPoints() decimal.Decimal      { return p.realizedPoints }
func (p *Position) RealizedReturn() decimal.Decimal      { return p.realizedReturn }
func (p *Position) RealizedPnL() schema.Money            { return p.realizedPnL }
func (p *Position) FillCount() int                       { return len(p.fills) }
func (p *Position) IsClosed() bool                       { return len(p.fills) > 0 && p.relativeQuantity.IsZero() }
func (p *Position) IsOpen() bool                         { return !p.IsClosed() }
func (p *Position) IsLong() bool                         { return p.relativeQuantity.IsPositive() }
func (p *Position) IsShort() bool                        { return p.relativeQuantity.IsNegative() }

// IDBroker returns the venue position id, or nil until a fill carried one.
func (p *Position) IDBroker() *schema.PositionIDBroker {
	if p.idBroker == nil {
		return nil
	}
	id := *p.idBroker
	return &id
}

// ClosedTime returns when the position last went flat, or nil while open.
func (p *Position) ClosedTime() *time.Time {
	if p.closedTime == nil {
		return nil
	}
	t := *p.closedTime
	return &t
}

// Duration is the time from opening to closing, zero while open.
func (p *Position) Duration() time.Duration {
	if p.closedTime == nil {
		return 0
	}
	return p.closedTime.Sub(p.openedTime)
}

// AverageClosePrice returns the quantity weighted closing price of the current
// leg, or nil before any reducing fill.
func (p *Position) AverageClosePrice() *schema.Price {
	if p.averageClosePrice == nil {
		return nil
	}
	return schema.PricePtr(*p.averageClosePrice)
}

func (p *Position) MarketPosition() schema.MarketPosition {
	switch p.relativeQuantity.Sign() {
	case 1:
		return schema.MarketPositionLong
	case -1:
		return schema.MarketPositionShort
	default:
		return schema.MarketPositionFlat
	}
}

// UnrealizedPnL marks the open quantity to the given price.
func (p *Position) UnrealizedPnL(last schema.Price) schema.Money {
	if p.relativeQuantity.IsZero() {
		return decimal.Zero
	}
	return last.Sub(p.averageOpenPrice).Mul(p.relativeQuantity)
}

// OrderIDs returns the sorted ids of every order that filled into the position.
func (p *Position) OrderIDs() []schema.OrderID {
	out := make([]schema.OrderID, 0, len(p.orderIDs))
	for id := range p.orderIDs {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// ExecutionIDs returns the sorted execution ids applied to the position.
func (p *Position) ExecutionIDs() []schema.ExecutionID {
	out := make([]schema.ExecutionID, 0, len(p.executionIDs))
	for id := range p.executionIDs {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// Fills returns a copy of the applied fills.
func (p *Position) Fills() []schema.FillEvent {
	out := make([]schema.FillEvent, len(p.fills))
	copy(out, p.fills)
	return out
}
