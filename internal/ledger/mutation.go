package ledger

import (
	"context"

	"execution/internal/og"
	"execution/internal/schema"
	"execution/internal/state"
	"execution/pkg/exception"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
)

// Residuals lists what was still live when the ledger was inspected.
type Residuals struct {
	WorkingOrders []schema.OrderID
	OpenPositions []schema.PositionID
}

// Empty reports whether nothing was left working or open.
func (r Residuals) Empty() bool {
	return len(r.WorkingOrders) == 0 && len(r.OpenPositions) == 0
}

func (d *Database) AddAccount(account *state.Account) error {
	if account == nil {
		return errors.Wrap(exception.ErrNilInstance, "add account")
	}
	id := account.ID()
	if _, ok := d.accounts[id]; ok {
		d.metrics.IncDuplicate()
		return errors.Wrapf(exception.ErrLedgerDuplicateAccount, "account: %s", id)
	}
	d.accounts[id] = account
	d.accountIDs.add(id)
	d.saveAccount(account)
	logs.Debugf("ledger added account %s", id)
	return nil
}

// AddOrder stores a new order and indexes it under its trader, account,
// strategy and position.
func (d *Database) AddOrder(order *og.Order, traderID schema.TraderID, accountID schema.AccountID, strategyID schema.StrategyID, positionID schema.PositionID) error {
	if order == nil {
		return errors.Wrap(exception.ErrNilInstance, "add order")
	}
	if _, ok := d.orders[order.ID()]; ok {
		d.metrics.IncDuplicate()
		return errors.Wrapf(exception.ErrLedgerDuplicateOrder, "order: %s", order.ID())
	}
	d.insertOrder(OrderRecord{
		Order:      order,
		TraderID:   traderID,
		AccountID:  accountID,
		StrategyID: strategyID,
		PositionID: positionID,
	})
	d.saveOrder(order)
	return nil
}

// AddBracketOrder stores every leg of the bracket or none of them.
func (d *Database) AddBracketOrder(bracket *og.BracketOrder, traderID schema.TraderID, accountID schema.AccountID, strategyID schema.StrategyID, positionID schema.PositionID) error {
	if bracket == nil {
		return errors.Wrap(exception.ErrNilInstance, "add bracket order")
	}
	legs := bracket.Orders()
	for _, o := range legs {
		if o == nil {
			return errors.Wrapf(exception.ErrNilInstance, "bracket %s leg", bracket.ID())
		}
		if _, ok := d.orders[o.ID()]; ok {
			d.metrics.IncDuplicate()
			return errors.Wrapf(exception.ErrLedgerDuplicateOrder, "bracket: %s, order: %s", bracket.ID(), o.ID())
		}
	}
	for _, o := range legs {
		if err := d.AddOrder(o, traderID, accountID, strategyID, positionID); err != nil {
			return err
		}
	}
	return nil
}

// AddPosition stores a position opened by its first fill.
func (d *Database) AddPosition(position *state.Position) error {
	if position == nil {
		return errors.Wrap(exception.ErrNilInstance, "add position")
	}
	id := position.ID()
	if _, ok := d.positions[id]; ok {
		d.metrics.IncDuplicate()
		return errors.Wrapf(exception.ErrLedgerDuplicatePosition, "position: %s", id)
	}
	d.insertPosition(position, "")
	d.savePosition(position)
	return nil
}

func (d *Database) UpdateAccount(account *state.Account) error {
	if account == nil {
		return errors.Wrap(exception.ErrNilInstance, "update account")
	}
	if _, ok := d.accounts[account.ID()]; !ok {
		return errors.Wrapf(exception.ErrLedgerUnknownAccount, "account: %s", account.ID())
	}
	d.accounts[account.ID()] = account
	d.saveAccount(account)
	return nil
}

// UpdateOrder reclassifies the order as working or completed after a mutation.
func (d *Database) UpdateOrder(order *og.Order) error {
	if order == nil {
		return errors.Wrap(exception.ErrNilInstance, "update order")
	}
	if _, ok := d.orders[order.ID()]; !ok {
		return errors.Wrapf(exception.ErrLedgerUnknownOrder, "order: %s", order.ID())
	}
	d.orders[order.ID()] = order
	d.classifyOrder(order)
	d.saveOrder(order)
	return nil
}

// UpdatePosition reclassifies the position as open or closed after a fill.
func (d *Database) UpdatePosition(position *state.Position) error {
	if position == nil {
		return errors.Wrap(exception.ErrNilInstance, "update position")
	}
	if _, ok := d.positions[position.ID()]; !ok {
		return errors.Wrapf(exception.ErrLedgerUnknownPosition, "position: %s", position.ID())
	}
	d.positions[position.ID()] = position
	d.indexBroker(position)
	d.classifyPosition(position)
	d.savePosition(position)
	return nil
}

// Flush drops every entity and index, including the backing rows.
func (d *Database) Flush() {
	d.reset()
	d.persist("flush", func(ctx context.Context, b Backing) error {
		return b.Flush(ctx)
	})
	logs.Info("ledger flushed")
}

// ClearCaches drops the primary entity maps and keeps every index.
func (d *Database) ClearCaches() {
	d.accounts = make(map[schema.AccountID]*state.Account)
	d.orders = make(map[schema.OrderID]*og.Order)
	d.positions = make(map[schema.PositionID]*state.Position)
}

// LoadCaches reloads the primary entity maps from the backing. Entities the
// indices do not know yet are indexed as they load.
func (d *Database) LoadCaches(ctx context.Context) error {
	if d.backing == nil {
		return nil
	}
	accounts, err := d.backing.LoadAccounts(ctx)
	if err != nil {
		d.metrics.IncBackingError()
		return errors.Wrap(err, "load accounts")
	}
	orders, err := d.backing.LoadOrders(ctx)
	if err != nil {
		d.metrics.IncBackingError()
		return errors.Wrap(err, "load orders")
	}
	positions, err := d.backing.LoadPositions(ctx)
	if err != nil {
		d.metrics.IncBackingError()
		return errors.Wrap(err, "load positions")
	}

	for _, a := range accounts {
		d.accounts[a.ID()] = a
		d.accountIDs.add(a.ID())
	}
	for _, rec := range orders {
		if d.orderIDs.has(rec.Order.ID()) {
			d.orders[rec.Order.ID()] = rec.Order
			d.classifyOrder(rec.Order)
			continue
		}
		d.insertOrder(rec)
	}
	for _, rec := range positions {
		if d.positionIDs.has(rec.Position.ID()) {
			d.positions[rec.Position.ID()] = rec.Position
			d.indexBroker(rec.Position)
			d.classifyPosition(rec.Position)
			continue
		}
		d.insertPosition(rec.Position, rec.TraderID)
	}
	logs.Infof("ledger caches loaded, accounts: %d, orders: %d, positions: %d", len(accounts), len(orders), len(positions))
	return nil
}

// CheckResiduals logs every order still working and every position still open.
func (d *Database) CheckResiduals() Residuals {
	r := Residuals{
		WorkingOrders: d.OrderWorkingIDs(Scope{}),
		OpenPositions: d.PositionOpenIDs(Scope{}),
	}
	for _, id := range r.WorkingOrders {
		logs.Warnf("residual working order %s", id)
	}
	for _, id := range r.OpenPositions {
		logs.Warnf("residual open position %s", id)
	}
	return r
}

func (d *Database) insertOrder(rec OrderRecord) {
	id := rec.Order.ID()
	d.orders[id] = rec.Order
	d.orderIDs.add(id)
	d.orderTrader[id] = rec.TraderID
	d.orderAccount[id] = rec.AccountID
	d.orderStrategy[id] = rec.StrategyID
	d.orderPosition[id] = rec.PositionID

	if rec.PositionID != "" {
		if _, ok := d.positionTrader[rec.PositionID]; !ok {
			d.positionTrader[rec.PositionID] = rec.TraderID
		}
		orders, ok := d.positionOrders[rec.PositionID]
		if !ok {
			orders = newSet[schema.OrderID]()
			d.positionOrders[rec.PositionID] = orders
		}
		orders.add(id)
	}

	byAccount, ok := d.accountOrders[rec.AccountID]
	if !ok {
		byAccount = newSet[schema.OrderID]()
		d.accountOrders[rec.AccountID] = byAccount
	}
	byAccount.add(id)

	x, ok := d.traders[rec.TraderID]
	if !ok {
		x = NewTraderIndex(rec.TraderID)
		d.traders[rec.TraderID] = x
	}
	x.AddIdentifiers(id, rec.PositionID, rec.StrategyID)

	d.classifyOrder(rec.Order)
}

func (d *Database) insertPosition(p *state.Position, traderID schema.TraderID) {
	id := p.ID()
	d.positions[id] = p
	d.positionIDs.add(id)
	if _, ok := d.positionTrader[id]; !ok && !traderID.IsEmpty() {
		d.positionTrader[id] = traderID
	}
	d.positionAccount[id] = p.AccountID()

	byAccount, ok := d.accountPositions[p.AccountID()]
	if !ok {
		byAccount = newSet[schema.PositionID]()
		d.accountPositions[p.AccountID()] = byAccount
	}
	byAccount.add(id)

	d.indexBroker(p)
	d.classifyPosition(p)
}

func (d *Database) indexBroker(p *state.Position) {
	broker := p.IDBroker()
	if broker == nil {
		return
	}
	key := brokerKey{accountID: p.AccountID(), broker: *broker}
	if owner, ok := d.brokerPosition[key]; ok && owner != p.ID() {
		d.drift("broker position", broker.String(), "already mapped to "+owner.String())
		return
	}
	d.brokerPosition[key] = p.ID()
	d.positionBroker[p.ID()] = *broker
}

func (d *Database) classifyOrder(o *og.Order) {
	id := o.ID()
	switch {
	case o.IsWorking():
		d.orderWorkingIDs.add(id)
		d.orderCompletedIDs.remove(id)
	case o.IsCompleted():
		d.orderCompletedIDs.add(id)
		d.orderWorkingIDs.remove(id)
	default:
		d.orderWorkingIDs.remove(id)
		d.orderCompletedIDs.remove(id)
	}
}

func (d *Database) classifyPosition(p *state.Position) {
	id := p.ID()
	if p.IsClosed() {
		d.positionClosedIDs.add(id)
		d.positionOpenIDs.remove(id)
		return
	}
	d.positionOpenIDs.add(id)
	d.positionClosedIDs.remove(id)
}
