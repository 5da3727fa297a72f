package ledger

import (
	"context"

	"execution/internal/og"
	"execution/internal/schema"
	"execution/internal/state"

	"github.com/yanun0323/logs"
)

// OrderRecord is an order together with the identifiers it was submitted under.
type OrderRecord struct {
	Order      *og.Order
	TraderID   schema.TraderID
	AccountID  schema.AccountID
	StrategyID schema.StrategyID
	PositionID schema.PositionID
}

// PositionRecord is a position together with its owning trader.
type PositionRecord struct {
	Position *state.Position
	TraderID schema.TraderID
}

// Backing persists the primary entities behind the in-memory ledger.
type Backing interface {
	SaveAccount(ctx context.Context, account *state.Account) error
	SaveOrder(ctx context.Context, record OrderRecord) error
	SavePosition(ctx context.Context, record PositionRecord) error
	LoadAccounts(ctx context.Context) ([]*state.Account, error)
	LoadOrders(ctx context.Context) ([]OrderRecord, error)
	LoadPositions(ctx context.Context) ([]PositionRecord, error)
	Flush(ctx context.Context) error
}

func (d *Database) orderRecord(o *og.Order) OrderRecord {
	id := o.ID()
	return OrderRecord{
		Order:      o,
		TraderID:   d.orderTrader[id],
		AccountID:  d.orderAccount[id],
		StrategyID: d.orderStrategy[id],
		PositionID: d.orderPosition[id],
	}
}

func (d *Database) persist(what string, fn func(ctx context.Context, b Backing) error) {
	if d.backing == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), d.backingTimeout)
	defer cancel()
	if err := fn(ctx, d.backing); err != nil {
		d.metrics.IncBackingError()
		logs.Errorf("ledger backing, persist %s, err: %+v", what, err)
	}
}

func (d *Database) saveAccount(a *state.Account) {
	d.persist("account "+a.ID().String(), func(ctx context.Context, b Backing) error {
		return b.SaveAccount(ctx, a)
	})
}

func (d *Database) saveOrder(o *og.Order) {
	rec := d.orderRecord(o)
	d.persist("order "+o.ID().String(), func(ctx context.Context, b Backing) error {
		return b.SaveOrder(ctx, rec)
	})
}

func (d *Database) savePosition(p *state.Position) {
	rec := PositionRecord{Position: p, TraderID: d.positionTrader[p.ID()]}
	d.persist("position "+p.ID().String(), func(ctx context.Context, b Backing) error {
		return b.SavePosition(ctx, rec)
	})
}
