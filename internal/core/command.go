package core

import (
	"execution/internal/og"
	"execution/internal/schema"

	"github.com/yanun0323/logs"
)

func (e *Engine) handleCommand(cmd schema.Command) {
	switch c := cmd.(type) {
	case og.SubmitOrder:
		e.submitOrder(c)
	case og.SubmitBracketOrder:
		e.submitBracketOrder(c)
	case og.CancelOrder:
		e.cancelOrder(c)
	case og.ModifyOrder:
		e.modifyOrder(c)
	case og.AccountInquiry:
		e.gateway.AccountInquiry(c)
	default:
		e.integrationError("unhandled command %s (%T)", cmd.Kind(), cmd)
	}
}

func (e *Engine) submitOrder(c og.SubmitOrder) {
	if c.Order == nil {
		e.integrationError("submit order without order, trader: %s", c.TraderID)
		return
	}
	if err := e.db.AddOrder(c.Order, c.TraderID, c.AccountID, c.StrategyID, c.PositionID); err != nil {
		logs.Errorf("submit order %s, err: %+v", c.Order.ID(), err)
		return
	}
	submitted, ok := e.markSubmitted(c.Order, c.AccountID)
	if !ok {
		return
	}
	e.gateway.SubmitOrder(c.Order, e.positionIDBroker(c.PositionID))
	e.publish(c.TraderID, submitted)
}

func (e *Engine) submitBracketOrder(c og.SubmitBracketOrder) {
	if c.Bracket == nil {
		e.integrationError("submit bracket without bracket, trader: %s", c.TraderID)
		return
	}
	if err := e.db.AddBracketOrder(c.Bracket, c.TraderID, c.AccountID, c.StrategyID, c.PositionID); err != nil {
		logs.Errorf("submit bracket %s, err: %+v", c.Bracket.ID(), err)
		return
	}
	events := make([]schema.Event, 0, 3)
	for _, o := range c.Bracket.Orders() {
		submitted, ok := e.markSubmitted(o, c.AccountID)
		if !ok {
			return
		}
		events = append(events, submitted)
	}
	e.gateway.SubmitBracketOrder(c.Bracket)
	for _, ev := range events {
		e.publish(c.TraderID, ev)
	}
}

func (e *Engine) markSubmitted(o *og.Order, accountID schema.AccountID) (schema.OrderSubmitted, bool) {
	now := e.cfg.Now()
	submitted := schema.OrderSubmitted{
		OrderHeader: schema.OrderHeader{
			Header:    schema.NewHeader(now),
			OrderID:   o.ID(),
			AccountID: accountID,
		},
		SubmittedTime: now,
	}
	if err := o.Apply(submitted); err != nil {
		e.integrationError("apply submitted to order %s, err: %+v", o.ID(), err)
		return submitted, false
	}
	if err := e.db.UpdateOrder(o); err != nil {
		e.integrationError("update order %s, err: %+v", o.ID(), err)
		return submitted, false
	}
	return submitted, true
}

func (e *Engine) positionIDBroker(positionID schema.PositionID) *schema.PositionIDBroker {
	if positionID == "" {
		return nil
	}
	broker, ok := e.db.PositionIDBroker(positionID)
	if !ok {
		return nil
	}
	return &broker
}

func (e *Engine) cancelOrder(c og.CancelOrder) {
	// a fired backup job has already left the scheduler
	if key, ok := e.expiryJobs[c.OrderID]; ok && c.JobKey != "" && c.JobKey == key {
		delete(e.expiryJobs, c.OrderID)
	}
	o, ok := e.db.Order(c.OrderID)
	if !ok {
		e.integrationError("cannot cancel unknown order %s", c.OrderID)
		return
	}
	if o.IsCompleted() {
		logs.Warnf("cancel order %s ignored, already %s, reason: %s", o.ID(), o.State(), c.Reason)
		return
	}
	logs.Debugf("cancel order %s, reason: %s", o.ID(), c.Reason)
	e.gateway.CancelOrder(o)
}

// modifyOrder forwards the request when the venue can take it. Otherwise it
// keeps only the latest request per order until the order is working and no
// modify is outstanding.
func (e *Engine) modifyOrder(c og.ModifyOrder) {
	o, ok := e.db.Order(c.OrderID)
	if !ok {
		e.integrationError("cannot modify unknown order %s", c.OrderID)
		return
	}
	if o.IsCompleted() {
		logs.Warnf("modify order %s ignored, already %s", o.ID(), o.State())
		return
	}
	_, inFlight := e.modifyInFlight[o.ID()]
	if !o.IsWorking() || inFlight {
		e.modifyBuffer[o.ID()] = c
		logs.Debugf("buffered modify for order %s, state: %s, in flight: %t", o.ID(), o.State(), inFlight)
		return
	}
	e.forwardModify(o, c)
}

func (e *Engine) forwardModify(o *og.Order, c og.ModifyOrder) {
	e.modifyInFlight[o.ID()] = struct{}{}
	e.gateway.ModifyOrder(o, c.ModifiedQuantity, c.ModifiedPrice)
}

// flushModify forwards the buffered request once the order can take it,
// unless it matches what the order already has.
func (e *Engine) flushModify(o *og.Order) {
	id := o.ID()
	c, ok := e.modifyBuffer[id]
	if !ok {
		return
	}
	if _, inFlight := e.modifyInFlight[id]; inFlight || !o.IsWorking() {
		return
	}
	delete(e.modifyBuffer, id)

	price := o.Price()
	if c.ModifiedQuantity.Equal(o.Quantity()) && price != nil && c.ModifiedPrice.Equal(*price) {
		logs.Debugf("discard buffered modify for order %s, unchanged", id)
		return
	}
	e.forwardModify(o, c)
}

func (e *Engine) clearModify(id schema.OrderID) {
	delete(e.modifyBuffer, id)
	delete(e.modifyInFlight, id)
}
