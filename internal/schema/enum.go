package schema

// OrderSide describes order direction.
type OrderSide uint16

const (
	OrderSideUnknown OrderSide = iota
	OrderSideBuy
	OrderSideSell
)

func (s OrderSide) String() string {
	switch s {
	case OrderSideBuy:
		return "BUY"
	case OrderSideSell:
		return "SELL"
	default:
		return "UNKNOWN"
	}
}

// Opposite returns the other side. Unknown stays unknown.
func (s OrderSide) Opposite() OrderSide {
	switch s {
	case OrderSideBuy:
		return OrderSideSell
	case OrderSideSell:
		return OrderSideBuy
	default:
		return OrderSideUnknown
	}
}

// OrderType describes order type.
type OrderType uint16

const (
	OrderTypeUnknown OrderType = iota
	OrderTypeMarket
	OrderTypeLimit
	OrderTypeStopMarket
	OrderTypeStopLimit
)

func (t OrderType) String() string {
	switch t {
	case OrderTypeMarket:
		return "MARKET"
	case OrderTypeLimit:
		return "LIMIT"
	case OrderTypeStopMarket:
		return "STOP_MARKET"
	case OrderTypeStopLimit:
		return "STOP_LIMIT"
	default:
		return "UNKNOWN"
	}
}

// Priced reports whether orders of this type carry a limit or stop price.
func (t OrderType) Priced() bool {
	return t == OrderTypeLimit || t == OrderTypeStopMarket || t == OrderTypeStopLimit
}

// OrderPurpose describes why an order exists.
type OrderPurpose uint16

const (
	OrderPurposeNone OrderPurpose = iota
	OrderPurposeEntry
	OrderPurposeExit
	OrderPurposeStopLoss
	OrderPurposeTakeProfit
)

func (p OrderPurpose) String() string {
	switch p {
	case OrderPurposeEntry:
		return "ENTRY"
	case OrderPurposeExit:
		return "EXIT"
	case OrderPurposeStopLoss:
		return "STOP_LOSS"
	case OrderPurposeTakeProfit:
		return "TAKE_PROFIT"
	default:
		return "NONE"
	}
}

// TimeInForce describes order time-in-force.
type TimeInForce uint16

const (
	TimeInForceUnknown TimeInForce = iota
	TimeInForceDAY
	TimeInForceGTC
	TimeInForceIOC
	TimeInForceFOK
	TimeInForceGTD
)

func (t TimeInForce) String() string {
	switch t {
	case TimeInForceDAY:
		return "DAY"
	case TimeInForceGTC:
		return "GTC"
	case TimeInForceIOC:
		return "IOC"
	case TimeInForceFOK:
		return "FOK"
	case TimeInForceGTD:
		return "GTD"
	default:
		return "UNKNOWN"
	}
}

// OrderState is the lifecycle state derived from an order's event history.
type OrderState uint16

const (
	OrderStateUnknown OrderState = iota
	OrderStateInitialized
	OrderStateSubmitted
	OrderStateRejected
	OrderStateAccepted
	OrderStateWorking
	OrderStateCancelled
	OrderStateExpired
	OrderStateModified
	OrderStatePartiallyFilled
	OrderStateFilled
)

func (s OrderState) String() string {
	switch s {
	case OrderStateInitialized:
		return "INITIALIZED"
	case OrderStateSubmitted:
		return "SUBMITTED"
	case OrderStateRejected:
		return "REJECTED"
	case OrderStateAccepted:
		return "ACCEPTED"
	case OrderStateWorking:
		return "WORKING"
	case OrderStateCancelled:
		return "CANCELLED"
	case OrderStateExpired:
		return "EXPIRED"
	case OrderStateModified:
		return "MODIFIED"
	case OrderStatePartiallyFilled:
		return "PARTIALLY_FILLED"
	case OrderStateFilled:
		return "FILLED"
	default:
		return "UNKNOWN"
	}
}

// IsWorking reports whether an order in this state is live at the venue.
func (s OrderState) IsWorking() bool {
	switch s {
	case OrderStateWorking, OrderStateModified, OrderStatePartiallyFilled:
		return true
	default:
		return false
	}
}

// IsCompleted reports whether the state is terminal.
func (s OrderState) IsCompleted() bool {
	switch s {
	case OrderStateFilled, OrderStateCancelled, OrderStateExpired, OrderStateRejected:
		return true
	default:
		return false
	}
}

// MarketPosition is the direction of a position's net quantity.
type MarketPosition uint16

const (
	MarketPositionFlat MarketPosition = iota
	MarketPositionLong
	MarketPositionShort
)

func (m MarketPosition) String() string {
	switch m {
	case MarketPositionLong:
		return "LONG"
	case MarketPositionShort:
		return "SHORT"
	default:
		return "FLAT"
	}
}
