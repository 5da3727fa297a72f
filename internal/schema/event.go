package schema

import "time"

// EventKind enumerates the concrete event types.
type EventKind uint16

const (
	EventUnknown EventKind = iota
	EventOrderSubmitted
	EventOrderRejected
	EventOrderAccepted
	EventOrderWorking
	EventOrderModified
	EventOrderCancelled
	EventOrderCancelReject
	EventOrderExpired
	EventOrderPartiallyFilled
	EventOrderFilled
	EventAccountState
)

var eventKindNames = [...]string{
	EventUnknown:              "Unknown",
	EventOrderSubmitted:       "OrderSubmitted",
	EventOrderRejected:        "OrderRejected",
	EventOrderAccepted:        "OrderAccepted",
	EventOrderWorking:         "OrderWorking",
	EventOrderModified:        "OrderModified",
	EventOrderCancelled:       "OrderCancelled",
	EventOrderCancelReject:    "OrderCancelReject",
	EventOrderExpired:         "OrderExpired",
	EventOrderPartiallyFilled: "OrderPartiallyFilled",
	EventOrderFilled:          "OrderFilled",
	EventAccountState:         "AccountStateEvent",
}

func (k EventKind) String() string {
	if int(k) < len(eventKindNames) {
		return eventKindNames[k]
	}
	return eventKindNames[EventUnknown]
}

// MaxEventKind is the highest defined EventKind.
const MaxEventKind = EventAccountState

// Event is the tagged union of everything the venue reports back.
type Event interface {
	Message
	Kind() EventKind
}

// OrderHeader identifies the order (and account) an order event targets.
type OrderHeader struct {
	Header
	OrderID   OrderID   `json:"orderId"`
	AccountID AccountID `json:"accountId"`
}

// Target returns the order routing header.
func (h OrderHeader) Target() OrderHeader {
	return h
}

// OrderEvent is an Event addressed to a single order.
type OrderEvent interface {
	Event
	Target() OrderHeader
}

type OrderSubmitted struct {
	OrderHeader
	SubmittedTime time.Time `json:"submittedTime"`
}

type OrderRejected struct {
	OrderHeader
	RejectedTime time.Time `json:"rejectedTime"`
	Reason       string    `json:"reason"`
}

type OrderAccepted struct {
	OrderHeader
	OrderIDBroker OrderIDBroker `json:"orderIdBroker"`
	Label         string        `json:"label"`
	AcceptedTime  time.Time     `json:"acceptedTime"`
}

// OrderWorking reports the order is live at the venue with the given terms.
type OrderWorking struct {
	OrderHeader
	OrderIDBroker OrderIDBroker `json:"orderIdBroker"`
	Symbol        Symbol        `json:"symbol"`
	Label         string        `json:"label"`
	Side          OrderSide     `json:"side"`
	Type          OrderType     `json:"type"`
	Quantity      Quantity      `json:"quantity"`
	Price         Price         `json:"price"`
	TimeInForce   TimeInForce   `json:"timeInForce"`
	ExpireTime    *time.Time    `json:"expireTime,omitempty"`
	WorkingTime   time.Time     `json:"workingTime"`
}

type OrderModified struct {
	OrderHeader
	OrderIDBroker    OrderIDBroker `json:"orderIdBroker"`
	ModifiedQuantity Quantity      `json:"modifiedQuantity"`
	ModifiedPrice    Price         `json:"modifiedPrice"`
	ModifiedTime     time.Time     `json:"modifiedTime"`
}

type OrderCancelled struct {
	OrderHeader
	CancelledTime time.Time `json:"cancelledTime"`
}

// OrderCancelReject reports the venue refused a cancel or modify request.
// It is kept in the order history without changing the order state.
type OrderCancelReject struct {
	OrderHeader
	RejectedTime     time.Time `json:"rejectedTime"`
	RejectResponseTo string    `json:"rejectResponseTo"`
	RejectReason     string    `json:"rejectReason"`
}

type OrderExpired struct {
	OrderHeader
	ExpiredTime time.Time `json:"expiredTime"`
}

// FillDetail is the execution report shared by partial and full fills.
// FilledQuantity is the quantity of this execution only.
type FillDetail struct {
	ExecutionID      ExecutionID       `json:"executionId"`
	PositionIDBroker *PositionIDBroker `json:"positionIdBroker,omitempty"`
	Symbol           Symbol            `json:"symbol"`
	Side             OrderSide         `json:"side"`
	FilledQuantity   Quantity          `json:"filledQuantity"`
	AveragePrice     Price             `json:"averagePrice"`
	Currency         string            `json:"currency"`
	ExecutionTime    time.Time         `json:"executionTime"`
}

// Detail returns the execution report.
func (f FillDetail) Detail() FillDetail {
	return f
}

// FillEvent is an OrderEvent carrying an execution.
type FillEvent interface {
	OrderEvent
	Detail() FillDetail
}

type OrderPartiallyFilled struct {
	OrderHeader
	FillDetail
	LeavesQuantity Quantity `json:"leavesQuantity"`
}

type OrderFilled struct {
	OrderHeader
	FillDetail
}

// AccountStateEvent carries the full account state. It replaces, rather than
// patches, the stored account.
type AccountStateEvent struct {
	Header
	AccountID             AccountID `json:"accountId"`
	Currency              string    `json:"currency"`
	CashBalance           Money     `json:"cashBalance"`
	CashStartDay          Money     `json:"cashStartDay"`
	CashActivityDay       Money     `json:"cashActivityDay"`
	MarginUsedLiquidation Money     `json:"marginUsedLiquidation"`
	MarginUsedMaintenance Money     `json:"marginUsedMaintenance"`
	MarginRatio           Money     `json:"marginRatio"`
	MarginCallStatus      string    `json:"marginCallStatus"`
}

func (OrderSubmitted) Kind() EventKind       { return EventOrderSubmitted }
func (OrderRejected) Kind() EventKind        { return EventOrderRejected }
func (OrderAccepted) Kind() EventKind        { return EventOrderAccepted }
func (OrderWorking) Kind() EventKind         { return EventOrderWorking }
func (OrderModified) Kind() EventKind        { return EventOrderModified }
func (OrderCancelled) Kind() EventKind       { return EventOrderCancelled }
func (OrderCancelReject) Kind() EventKind    { return EventOrderCancelReject }
func (OrderExpired) Kind() EventKind         { return EventOrderExpired }
func (OrderPartiallyFilled) Kind() EventKind { return EventOrderPartiallyFilled }
func (OrderFilled) Kind() EventKind          { return EventOrderFilled }
func (AccountStateEvent) Kind() EventKind    { return EventAccountState }

var (
	_ FillEvent  = OrderPartiallyFilled{}
	_ FillEvent  = OrderFilled{}
	_ OrderEvent = OrderCancelReject{}
	_ Event      = AccountStateEvent{}
)
