package ledger

import (
	"context"
	"testing"
	"time"

	"execution/internal/obs"
	"execution/internal/og"
	"execution/internal/schema"
	"execution/internal/state"
	"execution/pkg/exception"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yanun0323/errors"
)

const testAccount schema.AccountID = "FXCM-02851908-DEMO"

var testTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newOrder(t *testing.T, id schema.OrderID, side schema.OrderSide) *og.Order {
	t.Helper()
	o, err := og.NewOrder(og.Spec{
		ID:          id,
		Symbol:      "AUDUSD.FXCM",
		Side:        side,
		Type:        schema.OrderTypeLimit,
		Quantity:    dec("100000"),
		Price:       schema.PricePtr(dec("0.75")),
		TimeInForce: schema.TimeInForceGTC,
		Timestamp:   testTime,
	})
	require.NoError(t, err)
	return o
}

func orderHeader(id schema.OrderID) schema.OrderHeader {
	return schema.OrderHeader{Header: schema.NewHeader(testTime), OrderID: id, AccountID: testAccount}
}

func toWorking(t *testing.T, o *og.Order) {
	t.Helper()
	require.NoError(t, o.Apply(schema.OrderSubmitted{OrderHeader: orderHeader(o.ID()), SubmittedTime: testTime}))
	require.NoError(t, o.Apply(schema.OrderAccepted{OrderHeader: orderHeader(o.ID()), OrderIDBroker: "B-1", AcceptedTime: testTime}))
	require.NoError(t, o.Apply(schema.OrderWorking{
		OrderHeader:   orderHeader(o.ID()),
		OrderIDBroker: "B-1",
		Symbol:        o.Symbol(),
		Side:          o.Side(),
		Type:          o.Type(),
		Quantity:      o.Quantity(),
		Price:         *o.Price(),
		TimeInForce:   o.TimeInForce(),
		WorkingTime:   testTime,
	}))
}

func filled(order schema.OrderID, side schema.OrderSide, qty string, broker schema.PositionIDBroker) schema.OrderFilled {
	return schema.OrderFilled{
		OrderHeader: orderHeader(order),
		FillDetail: schema.FillDetail{
			ExecutionID:      schema.ExecutionID("E-" + string(order)),
			PositionIDBroker: &broker,
			Symbol:           "AUDUSD.FXCM",
			Side:             side,
			FilledQuantity:   dec(qty),
			AveragePrice:     dec("0.75"),
			Currency:         "USD",
			ExecutionTime:    testTime,
		},
	}
}

func newPosition(t *testing.T, id schema.PositionID, order schema.OrderID, broker schema.PositionIDBroker) *state.Position {
	t.Helper()
	p, err := state.NewPosition(id, filled(order, schema.OrderSideBuy, "100000", broker))
	require.NoError(t, err)
	return p
}

func newAccount(t *testing.T, id schema.AccountID) *state.Account {
	t.Helper()
	a, err := state.NewAccount(schema.AccountStateEvent{Header: schema.NewHeader(testTime), AccountID: id, Currency: "USD", CashBalance: dec("100000")})
	require.NoError(t, err)
	return a
}

func TestDatabaseIndexBijection(t *testing.T) {
	db := NewDatabase(Option{})
	require.NoError(t, db.AddAccount(newAccount(t, testAccount)))
	for _, id := range []schema.OrderID{"O-3", "O-1", "O-2"} {
		require.NoError(t, db.AddOrder(newOrder(t, id, schema.OrderSideBuy), "T-1", testAccount, "S-1", "P-1"))
	}
	require.NoError(t, db.AddPosition(newPosition(t, "P-1", "O-1", "PB-1")))

	ids := db.OrderIDs(Scope{})
	assert.Equal(t, []schema.OrderID{"O-1", "O-2", "O-3"}, ids)
	for _, id := range ids {
		_, ok := db.Order(id)
		assert.True(t, ok, id)
	}
	assert.Len(t, db.Orders(Scope{}), len(ids))
	assert.Equal(t, []schema.PositionID{"P-1"}, db.PositionIDs(Scope{}))
	assert.Len(t, db.Positions(Scope{}), 1)
	assert.Equal(t, []schema.AccountID{testAccount}, db.AccountIDs())
	assert.Len(t, db.Accounts(), 1)

	trader, ok := db.TraderID("O-2")
	require.True(t, ok)
	assert.Equal(t, schema.TraderID("T-1"), trader)
	account, ok := db.AccountID("O-2")
	require.True(t, ok)
	assert.Equal(t, testAccount, account)
	position, ok := db.PositionID("O-3")
	require.True(t, ok)
	assert.Equal(t, schema.PositionID("P-1"), position)
	positionTrader, ok := db.PositionTraderID("P-1")
	require.True(t, ok)
	assert.Equal(t, schema.TraderID("T-1"), positionTrader)
	assert.Equal(t, []schema.OrderID{"O-1", "O-2", "O-3"}, db.OrderIDsForPosition("P-1"))
	assert.Equal(t, []schema.OrderID{"O-1", "O-2", "O-3"}, db.OrderIDsForAccount(testAccount))
	assert.Equal(t, []schema.PositionID{"P-1"}, db.PositionIDsForAccount(testAccount))

	_, ok = db.Order("O-404")
	assert.False(t, ok)
	_, ok = db.TraderID("O-404")
	assert.False(t, ok)
}

func TestDatabaseRejectsDuplicates(t *testing.T) {
	metrics := obs.NewMetrics()
	db := NewDatabase(Option{Metrics: metrics})
	require.NoError(t, db.AddOrder(newOrder(t, "O-1", schema.OrderSideBuy), "T-1", testAccount, "S-1", "P-1"))

	err := db.AddOrder(newOrder(t, "O-1", schema.OrderSideBuy), "T-2", testAccount, "S-2", "P-2")
	require.ErrorIs(t, err, exception.ErrLedgerDuplicateOrder)
	trader, _ := db.TraderID("O-1")
	assert.Equal(t, schema.TraderID("T-1"), trader)

	require.NoError(t, db.AddAccount(newAccount(t, testAccount)))
	require.ErrorIs(t, db.AddAccount(newAccount(t, testAccount)), exception.ErrLedgerDuplicateAccount)

	require.NoError(t, db.AddPosition(newPosition(t, "P-1", "O-1", "PB-1")))
	require.ErrorIs(t, db.AddPosition(newPosition(t, "P-1", "O-1", "PB-1")), exception.ErrLedgerDuplicatePosition)

	assert.Equal(t, uint64(3), metrics.Snapshot().Duplicates)
}

func TestDatabaseAddBracketOrderIsAtomic(t *testing.T) {
	db := NewDatabase(Option{})
	entry := newOrder(t, "O-1", schema.OrderSideBuy)
	stop := newOrder(t, "O-2", schema.OrderSideSell)
	take := newOrder(t, "O-3", schema.OrderSideSell)
	bracket, err := og.NewBracketOrder(entry, stop, take)
	require.NoError(t, err)

	require.NoError(t, db.AddOrder(newOrder(t, "O-3", schema.OrderSideSell), "T-1", testAccount, "S-1", "P-9"))
	err = db.AddBracketOrder(bracket, "T-1", testAccount, "S-1", "P-1")
	require.ErrorIs(t, err, exception.ErrLedgerDuplicateOrder)
	assert.Equal(t, []schema.OrderID{"O-3"}, db.OrderIDs(Scope{}))

	db.Flush()
	require.NoError(t, db.AddBracketOrder(bracket, "T-1", testAccount, "S-1", "P-1"))
	assert.Equal(t, []schema.OrderID{"O-1", "O-2", "O-3"}, db.OrderIDs(Scope{TraderID: "T-1", StrategyID: "S-1"}))
}

func TestDatabaseScopedQueries(t *testing.T) {
	db := NewDatabase(Option{})
	require.NoError(t, db.AddOrder(newOrder(t, "O-1", schema.OrderSideBuy), "T-1", testAccount, "S-1", "P-1"))
	require.NoError(t, db.AddOrder(newOrder(t, "O-2", schema.OrderSideBuy), "T-1", testAccount, "S-1", "P-1"))
	require.NoError(t, db.AddOrder(newOrder(t, "O-3", schema.OrderSideBuy), "T-1", testAccount, "S-2", "P-2"))
	require.NoError(t, db.AddOrder(newOrder(t, "O-4", schema.OrderSideBuy), "T-2", testAccount, "S-1", "P-3"))
	require.NoError(t, db.AddPosition(newPosition(t, "P-2", "O-3", "PB-2")))
	require.NoError(t, db.AddPosition(newPosition(t, "P-3", "O-4", "PB-3")))

	assert.Equal(t, []schema.OrderID{"O-1", "O-2", "O-3"}, db.OrderIDs(Scope{TraderID: "T-1"}))
	assert.Equal(t, []schema.OrderID{"O-3"}, db.OrderIDs(Scope{TraderID: "T-1", StrategyID: "S-2"}))
	assert.Equal(t, []schema.OrderID{"O-4"}, db.OrderIDs(Scope{TraderID: "T-2", StrategyID: "S-1"}))
	assert.Empty(t, db.OrderIDs(Scope{TraderID: "T-1", StrategyID: "S-9"}))
	assert.Empty(t, db.OrderIDs(Scope{TraderID: "T-9"}))

	assert.Equal(t, []schema.PositionID{"P-2"}, db.PositionIDs(Scope{TraderID: "T-1"}))
	assert.Equal(t, []schema.PositionID{"P-2"}, db.PositionOpenIDs(Scope{TraderID: "T-1", StrategyID: "S-2"}))
	assert.Empty(t, db.PositionIDs(Scope{TraderID: "T-1", StrategyID: "S-1"}))

	assert.Equal(t, []schema.TraderID{"T-1", "T-2"}, db.TraderIDs())
	assert.Equal(t, []schema.StrategyID{"S-1", "S-2"}, db.StrategyIDs("T-1"))
	assert.Empty(t, db.StrategyIDs("T-9"))
}

func TestDatabaseWorkingCompletedPartition(t *testing.T) {
	db := NewDatabase(Option{})
	o := newOrder(t, "O-1", schema.OrderSideBuy)
	require.NoError(t, db.AddOrder(o, "T-1", testAccount, "S-1", "P-1"))
	assert.Empty(t, db.OrderWorkingIDs(Scope{}))
	assert.Empty(t, db.OrderCompletedIDs(Scope{}))

	toWorking(t, o)
	require.NoError(t, db.UpdateOrder(o))
	assert.Equal(t, []schema.OrderID{"O-1"}, db.OrderWorkingIDs(Scope{}))
	assert.Empty(t, db.OrderCompletedIDs(Scope{}))

	require.NoError(t, o.Apply(schema.OrderCancelled{OrderHeader: orderHeader("O-1"), CancelledTime: testTime}))
	require.NoError(t, db.UpdateOrder(o))
	assert.Empty(t, db.OrderWorkingIDs(Scope{}))
	assert.Equal(t, []schema.OrderID{"O-1"}, db.OrderCompletedIDs(Scope{TraderID: "T-1"}))
	assert.Len(t, db.OrdersCompleted(Scope{}), 1)

	require.ErrorIs(t, db.UpdateOrder(newOrder(t, "O-404", schema.OrderSideBuy)), exception.ErrLedgerUnknownOrder)
}

func TestDatabasePositionOpenClosed(t *testing.T) {
	db := NewDatabase(Option{})
	require.NoError(t, db.AddOrder(newOrder(t, "O-1", schema.OrderSideBuy), "T-1", testAccount, "S-1", "P-1"))
	require.NoError(t, db.AddOrder(newOrder(t, "O-2", schema.OrderSideSell), "T-1", testAccount, "S-1", "P-1"))
	p := newPosition(t, "P-1", "O-1", "PB-1")
	require.NoError(t, db.AddPosition(p))

	id, ok := db.PositionIDByBroker(testAccount, "PB-1")
	require.True(t, ok)
	assert.Equal(t, schema.PositionID("P-1"), id)
	broker, ok := db.PositionIDBroker("P-1")
	require.True(t, ok)
	assert.Equal(t, schema.PositionIDBroker("PB-1"), broker)
	_, ok = db.PositionIDByBroker("OTHER", "PB-1")
	assert.False(t, ok)
	assert.Equal(t, []schema.PositionID{"P-1"}, db.PositionOpenIDs(Scope{}))

	require.NoError(t, p.Apply(filled("O-2", schema.OrderSideSell, "100000", "PB-1")))
	require.NoError(t, db.UpdatePosition(p))
	assert.Empty(t, db.PositionOpenIDs(Scope{}))
	assert.Equal(t, []schema.PositionID{"P-1"}, db.PositionClosedIDs(Scope{}))
	assert.Len(t, db.PositionsClosed(Scope{}), 1)
	assert.Empty(t, db.PositionsOpen(Scope{}))
}

func TestDatabaseFlushCompleteness(t *testing.T) {
	db := NewDatabase(Option{})
	o := newOrder(t, "O-1", schema.OrderSideBuy)
	require.NoError(t, db.AddAccount(newAccount(t, testAccount)))
	require.NoError(t, db.AddOrder(o, "T-1", testAccount, "S-1", "P-1"))
	toWorking(t, o)
	require.NoError(t, db.UpdateOrder(o))
	require.NoError(t, db.AddPosition(newPosition(t, "P-1", "O-1", "PB-1")))

	db.Flush()

	assert.Empty(t, db.OrderIDs(Scope{}))
	assert.Empty(t, db.OrderWorkingIDs(Scope{}))
	assert.Empty(t, db.OrderCompletedIDs(Scope{}))
	assert.Empty(t, db.PositionIDs(Scope{}))
	assert.Empty(t, db.PositionOpenIDs(Scope{}))
	assert.Empty(t, db.PositionClosedIDs(Scope{}))
	assert.Empty(t, db.TraderIDs())
	assert.Empty(t, db.AccountIDs())
	assert.Empty(t, db.StrategyIDs("T-1"))
	_, ok := db.Order("O-1")
	assert.False(t, ok)
	_, ok = db.Position("P-1")
	assert.False(t, ok)
	_, ok = db.Account(testAccount)
	assert.False(t, ok)
	_, ok = db.PositionIDByBroker(testAccount, "PB-1")
	assert.False(t, ok)
	assert.True(t, db.CheckResiduals().Empty())
}

func TestDatabaseDriftIsLoggedAndSkipped(t *testing.T) {
	metrics := obs.NewMetrics()
	db := NewDatabase(Option{Metrics: metrics})
	o := newOrder(t, "O-1", schema.OrderSideBuy)
	require.NoError(t, db.AddOrder(o, "T-1", testAccount, "S-1", "P-1"))
	toWorking(t, o)
	require.NoError(t, db.UpdateOrder(o))

	require.NoError(t, o.Apply(schema.OrderCancelled{OrderHeader: orderHeader("O-1"), CancelledTime: testTime}))
	assert.Equal(t, []schema.OrderID{"O-1"}, db.OrderWorkingIDs(Scope{}))
	assert.Empty(t, db.OrdersWorking(Scope{}))
	assert.Equal(t, uint64(1), metrics.Snapshot().IndexDrift)

	db.ClearCaches()
	assert.Equal(t, []schema.OrderID{"O-1"}, db.OrderIDs(Scope{}))
	assert.Empty(t, db.Orders(Scope{}))
	assert.Equal(t, uint64(2), metrics.Snapshot().IndexDrift)
}

func TestDatabaseCheckResiduals(t *testing.T) {
	db := NewDatabase(Option{})
	o := newOrder(t, "O-1", schema.OrderSideBuy)
	require.NoError(t, db.AddOrder(o, "T-1", testAccount, "S-1", "P-1"))
	toWorking(t, o)
	require.NoError(t, db.UpdateOrder(o))
	require.NoError(t, db.AddPosition(newPosition(t, "P-1", "O-1", "PB-1")))

	r := db.CheckResiduals()
	assert.False(t, r.Empty())
	assert.Equal(t, []schema.OrderID{"O-1"}, r.WorkingOrders)
	assert.Equal(t, []schema.PositionID{"P-1"}, r.OpenPositions)
}

type memBacking struct {
	accounts  map[schema.AccountID]*state.Account
	orders    map[schema.OrderID]OrderRecord
	positions map[schema.PositionID]PositionRecord
	fail      error
	flushed   int
}

func newMemBacking() *memBacking {
	return &memBacking{
		accounts:  make(map[schema.AccountID]*state.Account),
		orders:    make(map[schema.OrderID]OrderRecord),
		positions: make(map[schema.PositionID]PositionRecord),
	}
}

func (m *memBacking) SaveAccount(_ context.Context, a *state.Account) error {
	if m.fail != nil {
		return m.fail
	}
	m.accounts[a.ID()] = a
	return nil
}

func (m *memBacking) SaveOrder(_ context.Context, rec OrderRecord) error {
	if m.fail != nil {
		return m.fail
	}
	m.orders[rec.Order.ID()] = rec
	return nil
}

func (m *memBacking) SavePosition(_ context.Context, rec PositionRecord) error {
	if m.fail != nil {
		return m.fail
	}
	m.positions[rec.Position.ID()] = rec
	return nil
}

func (m *memBacking) LoadAccounts(context.Context) ([]*state.Account, error) {
	out := make([]*state.Account, 0, len(m.accounts))
	for _, a := range m.accounts {
		out = append(out, a)
	}
	return out, m.fail
}

func (m *memBacking) LoadOrders(context.Context) ([]OrderRecord, error) {
	out := make([]OrderRecord, 0, len(m.orders))
	for _, rec := range m.orders {
		out = append(out, rec)
	}
	return out, m.fail
}

func (m *memBacking) LoadPositions(context.Context) ([]PositionRecord, error) {
	out := make([]PositionRecord, 0, len(m.positions))
	for _, rec := range m.positions {
		out = append(out, rec)
	}
	return out, m.fail
}

func (m *memBacking) Flush(context.Context) error {
	m.flushed++
	m.accounts = make(map[schema.AccountID]*state.Account)
	m.orders = make(map[schema.OrderID]OrderRecord)
	m.positions = make(map[schema.PositionID]PositionRecord)
	return nil
}

func TestDatabaseBackingReload(t *testing.T) {
	backing := newMemBacking()
	db := NewDatabase(Option{Backing: backing})
	o := newOrder(t, "O-1", schema.OrderSideBuy)
	require.NoError(t, db.AddAccount(newAccount(t, testAccount)))
	require.NoError(t, db.AddOrder(o, "T-1", testAccount, "S-1", "P-1"))
	toWorking(t, o)
	require.NoError(t, db.UpdateOrder(o))
	require.NoError(t, db.AddPosition(newPosition(t, "P-1", "O-1", "PB-1")))

	rec, ok := backing.orders["O-1"]
	require.True(t, ok)
	assert.Equal(t, schema.TraderID("T-1"), rec.TraderID)
	assert.Equal(t, schema.StrategyID("S-1"), rec.StrategyID)
	assert.Equal(t, schema.TraderID("T-1"), backing.positions["P-1"].TraderID)

	db.ClearCaches()
	require.NoError(t, db.LoadCaches(context.Background()))
	assert.Len(t, db.Orders(Scope{}), 1)
	assert.Len(t, db.OrdersWorking(Scope{}), 1)
	assert.Len(t, db.Positions(Scope{}), 1)
	assert.Len(t, db.Accounts(), 1)

	cold := NewDatabase(Option{Backing: backing})
	require.NoError(t, cold.LoadCaches(context.Background()))
	assert.Equal(t, []schema.OrderID{"O-1"}, cold.OrderWorkingIDs(Scope{TraderID: "T-1", StrategyID: "S-1"}))
	assert.Equal(t, []schema.PositionID{"P-1"}, cold.PositionOpenIDs(Scope{TraderID: "T-1"}))
	id, ok := cold.PositionIDByBroker(testAccount, "PB-1")
	require.True(t, ok)
	assert.Equal(t, schema.PositionID("P-1"), id)

	cold.Flush()
	assert.Equal(t, 1, backing.flushed)
	assert.Empty(t, backing.orders)
}

func TestDatabaseBackingFailureIsNotPropagated(t *testing.T) {
	backing := newMemBacking()
	backing.fail = errors.New("disk full")
	metrics := obs.NewMetrics()
	db := NewDatabase(Option{Backing: backing, Metrics: metrics})

	require.NoError(t, db.AddOrder(newOrder(t, "O-1", schema.OrderSideBuy), "T-1", testAccount, "S-1", "P-1"))
	_, ok := db.Order("O-1")
	assert.True(t, ok)
	assert.Equal(t, uint64(1), metrics.Snapshot().BackingErrors)

	require.Error(t, db.LoadCaches(context.Background()))
}
