// Package ledger holds the execution database: accounts, orders and
// positions plus the indices relating them to traders, strategies and
// broker identifiers.
//
// A Database is owned by a single writer. It does no locking of its own.
package ledger

import (
	"time"

	"execution/internal/obs"
	"execution/internal/og"
	"execution/internal/schema"
	"execution/internal/state"

	"github.com/yanun0323/logs"
)

const defaultBackingTimeout = 3 * time.Second

// Scope narrows a bulk query to a trader and optionally one of its strategies.
// The zero value is unfiltered.
type Scope struct {
	TraderID   schema.TraderID
	StrategyID schema.StrategyID
}

type Option struct {
	Metrics        *obs.Metrics
	Backing        Backing
	BackingTimeout time.Duration
}

type brokerKey struct {
	accountID schema.AccountID
	broker    schema.PositionIDBroker
}

// Database is the in-memory execution ledger.
type Database struct {
	metrics        *obs.Metrics
	backing        Backing
	backingTimeout time.Duration

	accounts  map[schema.AccountID]*state.Account
	orders    map[schema.OrderID]*og.Order
	positions map[schema.PositionID]*state.Position

	orderTrader      map[schema.OrderID]schema.TraderID
	orderAccount     map[schema.OrderID]schema.AccountID
	orderStrategy    map[schema.OrderID]schema.StrategyID
	orderPosition    map[schema.OrderID]schema.PositionID
	positionTrader   map[schema.PositionID]schema.TraderID
	positionAccount  map[schema.PositionID]schema.AccountID
	positionBroker   map[schema.PositionID]schema.PositionIDBroker
	brokerPosition   map[brokerKey]schema.PositionID
	positionOrders   map[schema.PositionID]set[schema.OrderID]
	accountOrders    map[schema.AccountID]set[schema.OrderID]
	accountPositions map[schema.AccountID]set[schema.PositionID]
	traders          map[schema.TraderID]*TraderIndex

	accountIDs        set[schema.AccountID]
	orderIDs          set[schema.OrderID]
	orderWorkingIDs   set[schema.OrderID]
	orderCompletedIDs set[schema.OrderID]
	positionIDs       set[schema.PositionID]
	positionOpenIDs   set[schema.PositionID]
	positionClosedIDs set[schema.PositionID]
}

func NewDatabase(opt Option) *Database {
	if opt.BackingTimeout <= 0 {
		opt.BackingTimeout = defaultBackingTimeout
	}
	d := &Database{
		metrics:        opt.Metrics,
		backing:        opt.Backing,
		backingTimeout: opt.BackingTimeout,
	}
	d.reset()
	return d
}

func (d *Database) reset() {
	d.accounts = make(map[schema.AccountID]*state.Account)
	d.orders = make(map[schema.OrderID]*og.Order)
	d.positions = make(map[schema.PositionID]*state.Position)

	d.orderTrader = make(map[schema.OrderID]schema.TraderID)
	d.orderAccount = make(map[schema.OrderID]schema.AccountID)
	d.orderStrategy = make(map[schema.OrderID]schema.StrategyID)
	d.orderPosition = make(map[schema.OrderID]schema.PositionID)
	d.positionTrader = make(map[schema.PositionID]schema.TraderID)
	d.positionAccount = make(map[schema.PositionID]schema.AccountID)
	d.positionBroker = make(map[schema.PositionID]schema.PositionIDBroker)
	d.brokerPosition = make(map[brokerKey]schema.PositionID)
	d.positionOrders = make(map[schema.PositionID]set[schema.OrderID])
	d.accountOrders = make(map[schema.AccountID]set[schema.OrderID])
	d.accountPositions = make(map[schema.AccountID]set[schema.PositionID])
	d.traders = make(map[schema.TraderID]*TraderIndex)

	d.accountIDs = newSet[schema.AccountID]()
	d.orderIDs = newSet[schema.OrderID]()
	d.orderWorkingIDs = newSet[schema.OrderID]()
	d.orderCompletedIDs = newSet[schema.OrderID]()
	d.positionIDs = newSet[schema.PositionID]()
	d.positionOpenIDs = newSet[schema.PositionID]()
	d.positionClosedIDs = newSet[schema.PositionID]()
}

func (d *Database) Account(id schema.AccountID) (*state.Account, bool) {
	a, ok := d.accounts[id]
	return a, ok
}

func (d *Database) Order(id schema.OrderID) (*og.Order, bool) {
	o, ok := d.orders[id]
	return o, ok
}

func (d *Database) Position(id schema.PositionID) (*state.Position, bool) {
	p, ok := d.positions[id]
	return p, ok
}

// TraderID returns the trader that submitted the order.
func (d *Database) TraderID(orderID schema.OrderID) (schema.TraderID, bool) {
	id, ok := d.orderTrader[orderID]
	return id, ok
}

// PositionTraderID returns the trader owning the position.
func (d *Database) PositionTraderID(positionID schema.PositionID) (schema.TraderID, bool) {
	id, ok := d.positionTrader[positionID]
	return id, ok
}

// AccountID returns the account the order was submitted to.
func (d *Database) AccountID(orderID schema.OrderID) (schema.AccountID, bool) {
	id, ok := d.orderAccount[orderID]
	return id, ok
}

// StrategyID returns the strategy that submitted the order.
func (d *Database) StrategyID(orderID schema.OrderID) (schema.StrategyID, bool) {
	id, ok := d.orderStrategy[orderID]
	return id, ok
}

// PositionID returns the position the order fills into.
func (d *Database) PositionID(orderID schema.OrderID) (schema.PositionID, bool) {
	id, ok := d.orderPosition[orderID]
	return id, ok
}

// PositionIDByBroker resolves a venue position id within an account.
func (d *Database) PositionIDByBroker(accountID schema.AccountID, broker schema.PositionIDBroker) (schema.PositionID, bool) {
	id, ok := d.brokerPosition[brokerKey{accountID: accountID, broker: broker}]
	return id, ok
}

// PositionIDBroker returns the venue id of the position.
func (d *Database) PositionIDBroker(positionID schema.PositionID) (schema.PositionIDBroker, bool) {
	id, ok := d.positionBroker[positionID]
	return id, ok
}

// OrderIDsForPosition returns the orders that were submitted against the position.
func (d *Database) OrderIDsForPosition(positionID schema.PositionID) []schema.OrderID {
	return d.positionOrders[positionID].sorted()
}

// OrderIDsForAccount returns the orders submitted to the account.
func (d *Database) OrderIDsForAccount(accountID schema.AccountID) []schema.OrderID {
	return d.accountOrders[accountID].sorted()
}

// PositionIDsForAccount returns the positions held in the account.
func (d *Database) PositionIDsForAccount(accountID schema.AccountID) []schema.PositionID {
	return d.accountPositions[accountID].sorted()
}

func (d *Database) TraderIDs() []schema.TraderID {
	out := newSet[schema.TraderID]()
	for id := range d.traders {
		out.add(id)
	}
	return out.sorted()
}

func (d *Database) AccountIDs() []schema.AccountID {
	return d.accountIDs.sorted()
}

// StrategyIDs returns the strategies of a trader, empty when the trader is unknown.
func (d *Database) StrategyIDs(traderID schema.TraderID) []schema.StrategyID {
	x, ok := d.traders[traderID]
	if !ok {
		return []schema.StrategyID{}
	}
	return x.StrategyIDs()
}

func (d *Database) OrderIDs(scope Scope) []schema.OrderID {
	return d.scopeOrders(d.orderIDs, scope)
}

func (d *Database) OrderWorkingIDs(scope Scope) []schema.OrderID {
	return d.scopeOrders(d.orderWorkingIDs, scope)
}

func (d *Database) OrderCompletedIDs(scope Scope) []schema.OrderID {
	return d.scopeOrders(d.orderCompletedIDs, scope)
}

func (d *Database) PositionIDs(scope Scope) []schema.PositionID {
	return d.scopePositions(d.positionIDs, scope)
}

func (d *Database) PositionOpenIDs(scope Scope) []schema.PositionID {
	return d.scopePositions(d.positionOpenIDs, scope)
}

func (d *Database) PositionClosedIDs(scope Scope) []schema.PositionID {
	return d.scopePositions(d.positionClosedIDs, scope)
}

func (d *Database) scopeOrders(global set[schema.OrderID], scope Scope) []schema.OrderID {
	if scope.TraderID.IsEmpty() {
		return global.sorted()
	}
	x, ok := d.traders[scope.TraderID]
	if !ok {
		return []schema.OrderID{}
	}
	return intersect(global, x.orderSet(scope.StrategyID))
}

func (d *Database) scopePositions(global set[schema.PositionID], scope Scope) []schema.PositionID {
	if scope.TraderID.IsEmpty() {
		return global.sorted()
	}
	x, ok := d.traders[scope.TraderID]
	if !ok {
		return []schema.PositionID{}
	}
	return intersect(global, x.positionSet(scope.StrategyID))
}

func (d *Database) Accounts() map[schema.AccountID]*state.Account {
	out := make(map[schema.AccountID]*state.Account, len(d.accountIDs))
	for _, id := range d.accountIDs.sorted() {
		a, ok := d.accounts[id]
		if !ok {
			d.drift("account", string(id), "indexed but not stored")
			continue
		}
		out[id] = a
	}
	return out
}

func (d *Database) Orders(scope Scope) map[schema.OrderID]*og.Order {
	return d.resolveOrders(d.OrderIDs(scope), "order", nil)
}

func (d *Database) OrdersWorking(scope Scope) map[schema.OrderID]*og.Order {
	return d.resolveOrders(d.OrderWorkingIDs(scope), "working order", (*og.Order).IsWorking)
}

func (d *Database) OrdersCompleted(scope Scope) map[schema.OrderID]*og.Order {
	return d.resolveOrders(d.OrderCompletedIDs(scope), "completed order", (*og.Order).IsCompleted)
}

func (d *Database) Positions(scope Scope) map[schema.PositionID]*state.Position {
	return d.resolvePositions(d.PositionIDs(scope), "position", nil)
}

func (d *Database) PositionsOpen(scope Scope) map[schema.PositionID]*state.Position {
	return d.resolvePositions(d.PositionOpenIDs(scope), "open position", (*state.Position).IsOpen)
}

func (d *Database) PositionsClosed(scope Scope) map[schema.PositionID]*state.Position {
	return d.resolvePositions(d.PositionClosedIDs(scope), "closed position", (*state.Position).IsClosed)
}

func (d *Database) resolveOrders(ids []schema.OrderID, label string, keep func(*og.Order) bool) map[schema.OrderID]*og.Order {
	out := make(map[schema.OrderID]*og.Order, len(ids))
	for _, id := range ids {
		o, ok := d.orders[id]
		if !ok {
			d.drift(label, string(id), "indexed but not stored")
			continue
		}
		if keep != nil && !keep(o) {
			d.drift(label, string(id), "misclassified as "+o.State().String())
			continue
		}
		out[id] = o
	}
	return out
}

func (d *Database) resolvePositions(ids []schema.PositionID, label string, keep func(*state.Position) bool) map[schema.PositionID]*state.Position {
	out := make(map[schema.PositionID]*state.Position, len(ids))
	for _, id := range ids {
		p, ok := d.positions[id]
		if !ok {
			d.drift(label, string(id), "indexed but not stored")
			continue
		}
		if keep != nil && !keep(p) {
			d.drift(label, string(id), "misclassified as "+p.MarketPosition().String())
			continue
		}
		out[id] = p
	}
	return out
}

func (d *Database) drift(label, id, reason string) {
	d.metrics.IncIndexDrift()
	logs.Errorf("ledger index drift, %s %s %s", label, id, reason)
}
