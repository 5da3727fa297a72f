package core

import (
	"execution/internal/og"
	"execution/internal/schema"
	"execution/internal/state"

	"github.com/yanun0323/logs"
)

func (e *Engine) handleEvent(ev schema.Event) {
	switch x := ev.(type) {
	case schema.AccountStateEvent:
		e.handleAccountState(x)
	case schema.OrderEvent:
		e.handleOrderEvent(x)
	default:
		e.integrationError("unhandled event %s (%T)", ev.Kind(), ev)
	}
}

func (e *Engine) handleOrderEvent(ev schema.OrderEvent) {
	id := ev.Target().OrderID
	o, ok := e.db.Order(id)
	if !ok {
		e.integrationError("%s for unknown order %s", ev.Kind(), id)
		return
	}
	if err := o.Apply(ev); err != nil {
		e.integrationError("apply %s to order %s, err: %+v", ev.Kind(), id, err)
		return
	}
	if err := e.db.UpdateOrder(o); err != nil {
		e.integrationError("update order %s, err: %+v", id, err)
		return
	}

	switch x := ev.(type) {
	case schema.OrderWorking:
		e.flushModify(o)
		e.scheduleExpiryBackup(o)
	case schema.OrderModified:
		delete(e.modifyInFlight, id)
		e.flushModify(o)
	case schema.OrderCancelReject:
		// only a reject answering the in-flight modify releases the buffer
		if x.RejectResponseTo == schema.CommandModifyOrder.String() {
			delete(e.modifyInFlight, id)
			e.flushModify(o)
		}
	case schema.OrderPartiallyFilled:
		e.handleFill(o, x)
	case schema.OrderFilled:
		e.handleFill(o, x)
	}
	if o.IsCompleted() {
		e.clearModify(id)
		e.cancelExpiryBackup(id)
	}

	traderID, ok := e.db.TraderID(id)
	if !ok {
		e.integrationError("cannot publish %s, no trader for order %s", ev.Kind(), id)
		return
	}
	e.publish(traderID, ev)
}

// handleFill resolves the position by the order first, then by the venue
// position id within the account.
func (e *Engine) handleFill(o *og.Order, fill schema.FillEvent) {
	positionID, ok := e.db.PositionID(o.ID())
	if !ok || positionID == "" {
		ok = false
		if broker := fill.Detail().PositionIDBroker; broker != nil {
			positionID, ok = e.db.PositionIDByBroker(fill.Target().AccountID, *broker)
		}
	}
	if !ok {
		e.integrationError("no position for fill %s of order %s", fill.Detail().ExecutionID, o.ID())
		return
	}

	p, exists := e.db.Position(positionID)
	if !exists {
		opened, err := state.NewPosition(positionID, fill)
		if err != nil {
			e.integrationError("open position %s, err: %+v", positionID, err)
			return
		}
		if err := e.db.AddPosition(opened); err != nil {
			logs.Errorf("add position %s, err: %+v", positionID, err)
		}
		return
	}
	if err := p.Apply(fill); err != nil {
		e.integrationError("apply fill %s to position %s, err: %+v", fill.Detail().ExecutionID, positionID, err)
		return
	}
	if err := e.db.UpdatePosition(p); err != nil {
		e.integrationError("update position %s, err: %+v", positionID, err)
	}
}

func (e *Engine) handleAccountState(ev schema.AccountStateEvent) {
	a, ok := e.db.Account(ev.AccountID)
	if !ok {
		created, err := state.NewAccount(ev)
		if err != nil {
			e.integrationError("open account %s, err: %+v", ev.AccountID, err)
			return
		}
		if err := e.db.AddAccount(created); err != nil {
			logs.Errorf("add account %s, err: %+v", ev.AccountID, err)
			return
		}
	} else {
		if err := a.Apply(ev); err != nil {
			e.integrationError("apply account state %s, err: %+v", ev.AccountID, err)
			return
		}
		if err := e.db.UpdateAccount(a); err != nil {
			e.integrationError("update account %s, err: %+v", ev.AccountID, err)
			return
		}
	}
	e.send(schema.TraderEvent{Event: ev})
}

// scheduleExpiryBackup asks the scheduler to cancel a GTD order at its expire
// time in case the venue does not expire it.
func (e *Engine) scheduleExpiryBackup(o *og.Order) {
	if !e.cfg.ExpiryBackup || o.TimeInForce() != schema.TimeInForceGTD {
		return
	}
	expire := o.ExpireTime()
	if expire == nil || !expire.After(e.cfg.Now()) {
		return
	}
	id := o.ID()
	if _, ok := e.expiryJobs[id]; ok {
		return
	}
	traderID, _ := e.db.TraderID(id)
	accountID, _ := e.db.AccountID(id)
	key := schema.JobKey(string(id) + expiryBackupSuffix)
	cmd := og.CancelOrder{
		Header:    schema.NewHeader(*expire),
		TraderID:  traderID,
		AccountID: accountID,
		OrderID:   id,
		Reason:    ExpiryBackupReason,
		JobKey:    key,
	}
	if err := e.scheduler.CreateJob(Address, cmd, key, *expire); err != nil {
		logs.Errorf("schedule expiry backup for order %s, err: %+v", id, err)
		return
	}
	e.expiryJobs[id] = key
	e.metrics.IncExpiryScheduled()
	logs.Debugf("scheduled expiry backup %s at %s", key, expire)
}

func (e *Engine) cancelExpiryBackup(id schema.OrderID) {
	key, ok := e.expiryJobs[id]
	if !ok {
		return
	}
	e.scheduler.RemoveJob(key)
	delete(e.expiryJobs, id)
	e.metrics.IncExpiryRemoved()
}
