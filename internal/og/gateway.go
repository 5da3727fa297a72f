package og

import (
	"strconv"
	"sync"
	"time"

	"execution/internal/schema"
	"execution/pkg/exception"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
)

// GatewayConfig controls the simulated venue behavior.
type GatewayConfig struct {
	Session           string
	ResendOnReconnect bool
	FillMarketOrders  bool
	MarkPrices        map[schema.Symbol]schema.Price
	Currency          string
	CashBalance       schema.Money
	Now               func() time.Time
}

// Deliver hands a venue report back to the execution engine.
type Deliver func(schema.Message) error

type simOrder struct {
	id               schema.OrderID
	accountID        schema.AccountID
	idBroker         schema.OrderIDBroker
	positionIDBroker schema.PositionIDBroker
	symbol           schema.Symbol
	side             schema.OrderSide
	leaves           schema.Quantity
}

// SimGateway is an in-process venue. It answers every request with the venue
// events a real adapter would eventually report, through Deliver.
type SimGateway struct {
	cfg     GatewayConfig
	deliver Deliver

	mu        sync.Mutex
	orders    map[schema.OrderID]*simOrder
	pending   []func() []schema.Message
	connected bool
	seq       uint64
}

// NewSimGateway creates a connected simulated venue.
func NewSimGateway(cfg GatewayConfig, deliver Deliver) *SimGateway {
	if cfg.Session == "" {
		cfg.Session = "SIM"
	}
	if cfg.Currency == "" {
		cfg.Currency = "USD"
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	return &SimGateway{
		cfg:       cfg,
		deliver:   deliver,
		orders:    make(map[schema.OrderID]*simOrder),
		connected: true,
	}
}

// SubmitOrder accepts the order and reports it working, or filled for market
// orders when FillMarketOrders is set.
func (g *SimGateway) SubmitOrder(order *Order, positionIDBroker *schema.PositionIDBroker) {
	spec := order.Spec()
	accountID := order.AccountID()
	g.do(func() []schema.Message {
		return g.accept(spec, accountID, positionIDBroker)
	})
}

// SubmitBracketOrder accepts every leg of the bracket.
func (g *SimGateway) SubmitBracketOrder(bracket *BracketOrder) {
	type leg struct {
		spec      Spec
		accountID schema.AccountID
	}
	legs := make([]leg, 0, 3)
	for _, o := range bracket.Orders() {
		legs = append(legs, leg{spec: o.Spec(), accountID: o.AccountID()})
	}
	g.do(func() []schema.Message {
		var out []schema.Message
		for _, l := range legs {
			out = append(out, g.accept(l.spec, l.accountID, nil)...)
		}
		return out
	})
}

// CancelOrder cancels a known order, or reports a cancel reject.
func (g *SimGateway) CancelOrder(order *Order) {
	id := order.ID()
	accountID := order.AccountID()
	g.do(func() []schema.Message {
		now := g.cfg.Now()
		o, ok := g.orders[id]
		if !ok {
			return []schema.Message{g.cancelReject(id, accountID, schema.CommandCancelOrder.String(), "order not found")}
		}
		delete(g.orders, id)
		return []schema.Message{schema.OrderCancelled{
			OrderHeader:   g.orderHeader(o.id, o.accountID),
			CancelledTime: now,
		}}
	})
}

// ModifyOrder amends a known order, or reports a cancel reject.
func (g *SimGateway) ModifyOrder(order *Order, quantity schema.Quantity, price schema.Price) {
	id := order.ID()
	accountID := order.AccountID()
	filled := order.FilledQuantity()
	g.do(func() []schema.Message {
		o, ok := g.orders[id]
		if !ok {
			return []schema.Message{g.cancelReject(id, accountID, schema.CommandModifyOrder.String(), "order not found")}
		}
		if !quantity.GreaterThan(filled) {
			return []schema.Message{g.cancelReject(id, accountID, schema.CommandModifyOrder.String(), "quantity not above filled quantity")}
		}
		o.leaves = quantity.Sub(filled)
		return []schema.Message{schema.OrderModified{
			OrderHeader:      g.orderHeader(o.id, o.accountID),
			OrderIDBroker:    o.idBroker,
			ModifiedQuantity: quantity,
			ModifiedPrice:    price,
			ModifiedTime:     g.cfg.Now(),
		}}
	})
}

// AccountInquiry reports the configured account state.
func (g *SimGateway) AccountInquiry(cmd AccountInquiry) {
	g.do(func() []schema.Message {
		return []schema.Message{schema.AccountStateEvent{
			Header:                schema.NewHeader(g.cfg.Now()),
			AccountID:             cmd.AccountID,
			Currency:              g.cfg.Currency,
			CashBalance:           g.cfg.CashBalance,
			CashStartDay:          g.cfg.CashBalance,
			CashActivityDay:       schema.Money{},
			MarginUsedLiquidation: schema.Money{},
			MarginUsedMaintenance: schema.Money{},
			MarginRatio:           schema.Money{},
			MarginCallStatus:      "N",
		}}
	})
}

// Fill reports an execution of quantity at price against a live order.
func (g *SimGateway) Fill(id schema.OrderID, quantity schema.Quantity, price schema.Price) error {
	g.mu.Lock()
	o, ok := g.orders[id]
	if !ok {
		g.mu.Unlock()
		return errors.Wrapf(exception.ErrGatewayUnknownOrder, "fill %s", id)
	}
	msg := g.execute(o, quantity, price)
	g.mu.Unlock()
	return g.deliver(msg)
}

// Expire reports a live order as expired by the venue.
func (g *SimGateway) Expire(id schema.OrderID) error {
	g.mu.Lock()
	o, ok := g.orders[id]
	if !ok {
		g.mu.Unlock()
		return errors.Wrapf(exception.ErrGatewayUnknownOrder, "expire %s", id)
	}
	delete(g.orders, id)
	msg := schema.OrderExpired{OrderHeader: g.orderHeader(o.id, o.accountID), ExpiredTime: g.cfg.Now()}
	g.mu.Unlock()
	return g.deliver(msg)
}

// Disconnect makes the venue queue requests instead of answering them.
func (g *SimGateway) Disconnect() {
	g.mu.Lock()
	g.connected = false
	g.mu.Unlock()
}

// Reconnect marks the venue as connected and, when ResendOnReconnect is set,
// answers the queued requests. It returns the number of requests replayed.
func (g *SimGateway) Reconnect() int {
	g.mu.Lock()
	g.connected = true
	pending := g.pending
	g.pending = nil
	if !g.cfg.ResendOnReconnect {
		g.mu.Unlock()
		if len(pending) != 0 {
			logs.Warnf("gateway %s dropped %d queued requests on reconnect", g.cfg.Session, len(pending))
		}
		return 0
	}
	var out []schema.Message
	for _, action := range pending {
		out = append(out, action()...)
	}
	g.mu.Unlock()
	g.send(out)
	return len(pending)
}

func (g *SimGateway) do(action func() []schema.Message) {
	g.mu.Lock()
	if !g.connected {
		g.pending = append(g.pending, action)
		g.mu.Unlock()
		return
	}
	out := action()
	g.mu.Unlock()
	g.send(out)
}

func (g *SimGateway) send(msgs []schema.Message) {
	for _, msg := range msgs {
		if err := g.deliver(msg); err != nil {
			logs.Errorf("gateway %s deliver %T, err: %+v", g.cfg.Session, msg, err)
		}
	}
}

func (g *SimGateway) accept(spec Spec, accountID schema.AccountID, positionIDBroker *schema.PositionIDBroker) []schema.Message {
	now := g.cfg.Now()
	if _, dup := g.orders[spec.ID]; dup {
		return []schema.Message{schema.OrderRejected{
			OrderHeader:  g.orderHeader(spec.ID, accountID),
			RejectedTime: now,
			Reason:       "duplicate order id",
		}}
	}
	g.seq++
	o := &simOrder{
		id:               spec.ID,
		accountID:        accountID,
		idBroker:         schema.OrderIDBroker(g.cfg.Session + "-" + strconv.FormatUint(g.seq, 10)),
		positionIDBroker: schema.PositionIDBroker(g.cfg.Session + "-" + spec.Symbol.String()),
		symbol:           spec.Symbol,
		side:             spec.Side,
		leaves:           spec.Quantity,
	}
	if positionIDBroker != nil {
		o.positionIDBroker = *positionIDBroker
	}

	if spec.Type == schema.OrderTypeMarket && g.cfg.FillMarketOrders {
		mark, ok := g.cfg.MarkPrices[spec.Symbol]
		if !ok {
			return []schema.Message{schema.OrderRejected{
				OrderHeader:  g.orderHeader(spec.ID, accountID),
				RejectedTime: now,
				Reason:       "no mark price for " + spec.Symbol.String(),
			}}
		}
		g.orders[spec.ID] = o
		return []schema.Message{
			schema.OrderAccepted{OrderHeader: g.orderHeader(spec.ID, accountID), OrderIDBroker: o.idBroker, Label: spec.Label, AcceptedTime: now},
			g.execute(o, spec.Quantity, mark),
		}
	}

	g.orders[spec.ID] = o
	working := schema.OrderWorking{
		OrderHeader:   g.orderHeader(spec.ID, accountID),
		OrderIDBroker: o.idBroker,
		Symbol:        spec.Symbol,
		Label:         spec.Label,
		Side:          spec.Side,
		Type:          spec.Type,
		Quantity:      spec.Quantity,
		TimeInForce:   spec.TimeInForce,
		ExpireTime:    spec.ExpireTime,
		WorkingTime:   now,
	}
	if spec.Price != nil {
		working.Price = *spec.Price
	}
	return []schema.Message{
		schema.OrderAccepted{OrderHeader: g.orderHeader(spec.ID, accountID), OrderIDBroker: o.idBroker, Label: spec.Label, AcceptedTime: now},
		working,
	}
}

// execute must be called with g.mu held.
func (g *SimGateway) execute(o *simOrder, quantity schema.Quantity, price schema.Price) schema.Message {
	g.seq++
	if quantity.GreaterThan(o.leaves) {
		quantity = o.leaves
	}
	o.leaves = o.leaves.Sub(quantity)
	positionIDBroker := o.positionIDBroker
	detail := schema.FillDetail{
		ExecutionID:      schema.ExecutionID("E-" + g.cfg.Session + "-" + strconv.FormatUint(g.seq, 10)),
		PositionIDBroker: &positionIDBroker,
		Symbol:           o.symbol,
		Side:             o.side,
		FilledQuantity:   quantity,
		AveragePrice:     price,
		Currency:         g.cfg.Currency,
		ExecutionTime:    g.cfg.Now(),
	}
	if o.leaves.IsPositive() {
		return schema.OrderPartiallyFilled{
			OrderHeader:    g.orderHeader(o.id, o.accountID),
			FillDetail:     detail,
			LeavesQuantity: o.leaves,
		}
	}
	delete(g.orders, o.id)
	return schema.OrderFilled{OrderHeader: g.orderHeader(o.id, o.accountID), FillDetail: detail}
}

func (g *SimGateway) cancelReject(id schema.OrderID, accountID schema.AccountID, responseTo, reason string) schema.Message {
	return schema.OrderCancelReject{
		OrderHeader:      g.orderHeader(id, accountID),
		RejectedTime:     g.cfg.Now(),
		RejectResponseTo: responseTo,
		RejectReason:     reason,
	}
}

func (g *SimGateway) orderHeader(id schema.OrderID, accountID schema.AccountID) schema.OrderHeader {
	return schema.OrderHeader{
		Header:    schema.NewHeader(g.cfg.Now()),
		OrderID:   id,
		AccountID: accountID,
	}
}
