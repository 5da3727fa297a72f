package og

import (
	"time"

	"execution/internal/schema"
	"execution/pkg/exception"

	"github.com/google/uuid"
	"github.com/yanun0323/errors"
)

// Spec describes an order before any event has been applied to it.
type Spec struct {
	ID          schema.OrderID      `json:"id"`
	Symbol      schema.Symbol       `json:"symbol"`
	Label       string              `json:"label"`
	Side        schema.OrderSide    `json:"side"`
	Type        schema.OrderType    `json:"type"`
	Purpose     schema.OrderPurpose `json:"purpose"`
	Quantity    schema.Quantity     `json:"quantity"`
	Price       *schema.Price       `json:"price,omitempty"`
	TimeInForce schema.TimeInForce  `json:"timeInForce"`
	ExpireTime  *time.Time          `json:"expireTime,omitempty"`
	InitID      uuid.UUID           `json:"initId"`
	Timestamp   time.Time           `json:"timestamp"`
}

func (s Spec) validate() error {
	switch {
	case s.ID == "":
		return errors.Wrap(exception.ErrOrderInvalidSpec, "empty order id")
	case s.Symbol == "":
		return errors.Wrapf(exception.ErrOrderInvalidSpec, "order %s: empty symbol", s.ID)
	case s.Side == schema.OrderSideUnknown:
		return errors.Wrapf(exception.ErrOrderInvalidSpec, "order %s: unknown side", s.ID)
	case s.Type == schema.OrderTypeUnknown:
		return errors.Wrapf(exception.ErrOrderInvalidSpec, "order %s: unknown type", s.ID)
	case s.TimeInForce == schema.TimeInForceUnknown:
		return errors.Wrapf(exception.ErrOrderInvalidSpec, "order %s: unknown time in force", s.ID)
	case !s.Quantity.IsPositive():
		return errors.Wrapf(exception.ErrOrderInvalidSpec, "order %s: quantity must be > 0", s.ID)
	case s.Type.Priced() && s.Price == nil:
		return errors.Wrapf(exception.ErrOrderInvalidSpec, "order %s: %s order requires a price", s.ID, s.Type)
	case !s.Type.Priced() && s.Price != nil:
		return errors.Wrapf(exception.ErrOrderInvalidSpec, "order %s: %s order cannot have a price", s.ID, s.Type)
	case s.Price != nil && !s.Price.IsPositive():
		return errors.Wrapf(exception.ErrOrderInvalidSpec, "order %s: price must be > 0", s.ID)
	case s.ExpireTime != nil && s.TimeInForce != schema.TimeInForceGTD:
		return errors.Wrapf(exception.ErrOrderInvalidSpec, "order %s: expire time requires GTD", s.ID)
	}
	return nil
}

// Order is an order whose state is derived from its applied event history.
type Order struct {
	spec Spec

	quantity         schema.Quantity
	price            *schema.Price
	filledQuantity   schema.Quantity
	averagePrice     *schema.Price
	slippage         schema.Price
	idBroker         schema.OrderIDBroker
	accountID        schema.AccountID
	positionIDBroker *schema.PositionIDBroker
	executionID      schema.ExecutionID
	label            string
	lastUpdated      time.Time

	state  schema.OrderState
	events []schema.OrderEvent
}

// NewOrder creates an Initialized order.
func NewOrder(spec Spec) (*Order, error) {
	if err := spec.validate(); err != nil {
		return nil, err
	}
	if spec.InitID == uuid.Nil {
		spec.InitID = uuid.New()
	}
	if spec.Price != nil {
		spec.Price = schema.PricePtr(*spec.Price)
	}
	o := &Order{
		spec:        spec,
		quantity:    spec.Quantity,
		label:       spec.Label,
		lastUpdated: spec.Timestamp,
		state:       schema.OrderStateInitialized,
	}
	if spec.Price != nil {
		o.price = schema.PricePtr(*spec.Price)
	}
	return o, nil
}

// Restore rebuilds an order by replaying its event history in order.
// Replaying the same history always yields the same order.
func Restore(spec Spec, events []schema.OrderEvent) (*Order, error) {
	o, err := NewOrder(spec)
	if err != nil {
		return nil, err
	}
	for i, e := range events {
		if err := o.Apply(e); err != nil {
			return nil, errors.Wrapf(err, "replay event %d", i)
		}
	}
	return o, nil
}

func (o *Order) Spec() Spec                       { return o.spec }
func (o *Order) ID() schema.OrderID               { return o.spec.ID }
func (o *Order) Symbol() schema.Symbol            { return o.spec.Symbol }
func (o *Order) Side() schema.OrderSide           { return o.spec.Side }
func (o *Order) Type() schema.OrderType           { return o.spec.Type }
func (o *Order) Purpose() schema.OrderPurpose     { return o.spec.Purpose }
func (o *Order) TimeInForce() schema.TimeInForce  { return o.spec.TimeInForce }
func (o *Order) Timestamp() time.Time             { return o.spec.Timestamp }
func (o *Order) Label() string                    { return o.label }
func (o *Order) Quantity() schema.Quantity        { return o.quantity }
func (o *Order) FilledQuantity() schema.Quantity  { return o.filledQuantity }
func (o *Order) Slippage() schema.Price           { return o.slippage }
func (o *Order) IDBroker() schema.OrderIDBroker   { return o.idBroker }
func (o *Order) AccountID() schema.AccountID      { return o.accountID }
func (o *Order) ExecutionID() schema.ExecutionID  { return o.executionID }
func (o *Order) LastUpdated() time.Time           { return o.lastUpdated }
func (o *Order) State() schema.OrderState         { return o.state }
func (o *Order) IsWorking() bool                  { return o.state.IsWorking() }
func (o *Order) IsCompleted() bool                { return o.state.IsCompleted() }
func (o *Order) EventCount() int                  { return len(o.events) }

// Price returns the current limit/stop price, or nil for market orders.
func (o *Order) Price() *schema.Price {
	if o.price == nil {
		return nil
	}
	return schema.PricePtr(*o.price)
}

// AveragePrice returns the quantity weighted fill price, or nil before any fill.
func (o *Order) AveragePrice() *schema.Price {
	if o.averagePrice == nil {
		return nil
	}
	return schema.PricePtr(*o.averagePrice)
}

// ExpireTime returns the GTD expiry, or nil when none is set.
func (o *Order) ExpireTime() *time.Time {
	if o.spec.ExpireTime == nil {
		return nil
	}
	t := *o.spec.ExpireTime
	return &t
}

// PositionIDBroker returns the venue position id reported by the latest fill.
func (o *Order) PositionIDBroker() *schema.PositionIDBroker {
	if o.positionIDBroker == nil {
		return nil
	}
	id := *o.positionIDBroker
	return &id
}

// Events returns a copy of the applied event history.
func (o *Order) Events() []schema.OrderEvent {
	out := make([]schema.OrderEvent, len(o.events))
	copy(out, o.events)
	return out
}

// LastEvent returns the most recently applied event.
func (o *Order) LastEvent() (schema.OrderEvent, bool) {
	if len(o.events) == 0 {
		return nil, false
	}
	return o.events[len(o.events)-1], true
}

// Apply validates the event against the order's id and state machine, then
// appends it to the history and updates the derived state.
func (o *Order) Apply(e schema.OrderEvent) error {
	if e == nil {
		return errors.Wrap(exception.ErrNilInstance, "apply order event")
	}
	target := e.Target()
	if target.OrderID != o.spec.ID {
		return errors.Wrapf(exception.ErrOrderIDMismatch, "order: %s, event: %s (%s)", o.spec.ID, target.OrderID, e.Kind())
	}
	next, err := nextState(o.state, e.Kind())
	if err != nil {
		return errors.Wrapf(err, "order: %s", o.spec.ID)
	}

	switch ev := e.(type) {
	case schema.OrderSubmitted, schema.OrderRejected, schema.OrderCancelled,
		schema.OrderExpired, schema.OrderCancelReject:
	case schema.OrderAccepted:
		o.idBroker = ev.OrderIDBroker
		if ev.Label != "" {
			o.label = ev.Label
		}
	case schema.OrderWorking:
		if ev.OrderIDBroker != "" {
			o.idBroker = ev.OrderIDBroker
		}
	case schema.OrderModified:
		if !ev.ModifiedQuantity.IsPositive() {
			return errors.Wrapf(exception.ErrOrderInvalidFill, "order: %s, modified quantity: %s", o.spec.ID, ev.ModifiedQuantity)
		}
		o.idBroker = ev.OrderIDBroker
		o.quantity = ev.ModifiedQuantity
		o.price = schema.PricePtr(ev.ModifiedPrice)
	case schema.OrderPartiallyFilled:
		if err := o.fill(ev.Detail()); err != nil {
			return err
		}
	case schema.OrderFilled:
		if err := o.fill(ev.Detail()); err != nil {
			return err
		}
	default:
		return errors.Wrapf(exception.ErrOrderUnhandledEvent, "order: %s, event: %T", o.spec.ID, e)
	}

	if o.accountID == "" {
		o.accountID = target.AccountID
	}
	o.state = next
	o.lastUpdated = target.Timestamp
	o.events = append(o.events, e)
	return nil
}

func (o *Order) fill(d schema.FillDetail) error {
	if !d.FilledQuantity.IsPositive() {
		return errors.Wrapf(exception.ErrOrderInvalidFill, "order: %s, filled quantity: %s", o.spec.ID, d.FilledQuantity)
	}
	filled := o.filledQuantity.Add(d.FilledQuantity)
	if filled.GreaterThan(o.quantity) {
		return errors.Wrapf(exception.ErrOrderInvalidFill, "order: %s, filled %s exceeds quantity %s", o.spec.ID, filled, o.quantity)
	}

	avg := d.AveragePrice
	if o.averagePrice != nil && o.filledQuantity.IsPositive() {
		avg = o.averagePrice.Mul(o.filledQuantity).Add(d.AveragePrice.Mul(d.FilledQuantity)).Div(filled)
	}
	o.averagePrice = schema.PricePtr(avg)
	o.filledQuantity = filled
	o.executionID = d.ExecutionID
	if d.PositionIDBroker != nil {
		id := *d.PositionIDBroker
		o.positionIDBroker = &id
	}
	if o.price != nil {
		switch o.spec.Side {
		case schema.OrderSideBuy:
			o.slippage = avg.Sub(*o.price)
		case schema.OrderSideSell:
			o.slippage = o.price.Sub(avg)
		}
	}
	return nil
}
