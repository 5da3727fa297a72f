package og

import "execution/internal/schema"

// SubmitOrder asks the engine to record an order and send it to the venue.
type SubmitOrder struct {
	schema.Header
	TraderID   schema.TraderID
	StrategyID schema.StrategyID
	AccountID  schema.AccountID
	PositionID schema.PositionID
	Order      *Order
}

// SubmitBracketOrder asks the engine to record and send all bracket legs.
type SubmitBracketOrder struct {
	schema.Header
	TraderID   schema.TraderID
	StrategyID schema.StrategyID
	AccountID  schema.AccountID
	PositionID schema.PositionID
	Bracket    *BracketOrder
}

type CancelOrder struct {
	schema.Header
	TraderID  schema.TraderID
	AccountID schema.AccountID
	OrderID   schema.OrderID
	Reason    string
	// JobKey is set when the command was scheduled as a job.
	JobKey schema.JobKey
}

// ModifyOrder requests new terms for a working order. Only the latest request
// per order matters to the venue.
type ModifyOrder struct {
	schema.Header
	TraderID         schema.TraderID
	AccountID        schema.AccountID
	OrderID          schema.OrderID
	ModifiedQuantity schema.Quantity
	ModifiedPrice    schema.Price
}

type AccountInquiry struct {
	schema.Header
	TraderID  schema.TraderID
	AccountID schema.AccountID
}

func (SubmitOrder) Kind() schema.CommandKind        { return schema.CommandSubmitOrder }
func (SubmitBracketOrder) Kind() schema.CommandKind { return schema.CommandSubmitBracketOrder }
func (CancelOrder) Kind() schema.CommandKind        { return schema.CommandCancelOrder }
func (ModifyOrder) Kind() schema.CommandKind        { return schema.CommandModifyOrder }
func (AccountInquiry) Kind() schema.CommandKind     { return schema.CommandAccountInquiry }

var (
	_ schema.Command = SubmitOrder{}
	_ schema.Command = SubmitBracketOrder{}
	_ schema.Command = CancelOrder{}
	_ schema.Command = ModifyOrder{}
	_ schema.Command = AccountInquiry{}
)
