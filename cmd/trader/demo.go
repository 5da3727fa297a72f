package main

import (
	"context"
	"time"

	"execution/internal/core"
	"execution/internal/og"
	"execution/internal/schema"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
)

const (
	demoTrader   schema.TraderID   = "TRADER-001"
	demoStrategy schema.StrategyID = "SCALPER-01"
	demoAccount  schema.AccountID  = "SIM-001"
	demoSymbol   schema.Symbol     = "AUDUSD.FXCM"
	demoStep                       = 100 * time.Millisecond
)

type demoRunner struct {
	ctx     context.Context
	engine  *core.Engine
	gateway *og.SimGateway
}

// runDemo drives a bracket, a GTD limit and a modified limit order through
// the engine and the simulated venue.
func runDemo(ctx context.Context, engine *core.Engine, gateway *og.SimGateway) error {
	d := demoRunner{ctx: ctx, engine: engine, gateway: gateway}
	steps := []struct {
		name string
		run  func() error
	}{
		{"account inquiry", d.inquire},
		{"bracket", d.bracket},
		{"gtd expiry", d.gtd},
		{"modify", d.modify},
	}
	for _, step := range steps {
		logs.Infof("demo step %s", step.name)
		if err := step.run(); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return errors.Wrapf(err, "demo step %s", step.name)
		}
	}
	logs.Info("demo scenario complete")
	return nil
}

func (d demoRunner) inquire() error {
	if err := d.engine.Send(og.AccountInquiry{
		Header:    schema.NewHeader(time.Now().UTC()),
		TraderID:  demoTrader,
		AccountID: demoAccount,
	}); err != nil {
		return err
	}
	return d.pause(1)
}

func (d demoRunner) bracket() error {
	entry, err := demoOrder("O-ENTRY-1", schema.OrderSideBuy, schema.OrderTypeLimit, schema.OrderPurposeEntry, "100000", "0.7500", nil)
	if err != nil {
		return err
	}
	stop, err := demoOrder("O-SL-1", schema.OrderSideSell, schema.OrderTypeStopMarket, schema.OrderPurposeStopLoss, "100000", "0.7450", nil)
	if err != nil {
		return err
	}
	take, err := demoOrder("O-TP-1", schema.OrderSideSell, schema.OrderTypeLimit, schema.OrderPurposeTakeProfit, "100000", "0.7600", nil)
	if err != nil {
		return err
	}
	bracket, err := og.NewBracketOrder(entry, stop, take)
	if err != nil {
		return err
	}
	if err := d.engine.Send(og.SubmitBracketOrder{
		Header:     schema.NewHeader(time.Now().UTC()),
		TraderID:   demoTrader,
		StrategyID: demoStrategy,
		AccountID:  demoAccount,
		PositionID: "P-1",
		Bracket:    bracket,
	}); err != nil {
		return err
	}
	if err := d.pause(1); err != nil {
		return err
	}

	for _, qty := range []string{"40000", "60000"} {
		if err := d.gateway.Fill(entry.ID(), decimal.RequireFromString(qty), decimal.RequireFromString("0.7500")); err != nil {
			return err
		}
	}
	if err := d.pause(1); err != nil {
		return err
	}
	if err := d.gateway.Fill(take.ID(), decimal.RequireFromString("100000"), decimal.RequireFromString("0.7600")); err != nil {
		return err
	}
	if err := d.pause(1); err != nil {
		return err
	}
	return d.cancel(stop.ID(), "bracket closed by take-profit")
}

func (d demoRunner) gtd() error {
	expire := time.Now().UTC().Add(3 * demoStep)
	o, err := demoOrder("O-GTD-1", schema.OrderSideBuy, schema.OrderTypeLimit, schema.OrderPurposeEntry, "50000", "0.7400", &expire)
	if err != nil {
		return err
	}
	if err := d.submit(o, "P-2"); err != nil {
		return err
	}
	return d.pause(6)
}

func (d demoRunner) modify() error {
	o, err := demoOrder("O-MOD-1", schema.OrderSideSell, schema.OrderTypeLimit, schema.OrderPurposeEntry, "20000", "0.7700", nil)
	if err != nil {
		return err
	}
	if err := d.submit(o, "P-3"); err != nil {
		return err
	}
	for _, price := range []string{"0.7710", "0.7720", "0.7730"} {
		if err := d.engine.Send(og.ModifyOrder{
			Header:           schema.NewHeader(time.Now().UTC()),
			TraderID:         demoTrader,
			AccountID:        demoAccount,
			OrderID:          o.ID(),
			ModifiedQuantity: decimal.RequireFromString("20000"),
			ModifiedPrice:    decimal.RequireFromString(price),
		}); err != nil {
			return err
		}
	}
	if err := d.pause(2); err != nil {
		return err
	}
	if err := d.gateway.Fill(o.ID(), decimal.RequireFromString("5000"), decimal.RequireFromString("0.7730")); err != nil {
		return err
	}
	if err := d.pause(1); err != nil {
		return err
	}
	return d.cancel(o.ID(), "demo done")
}

func (d demoRunner) submit(o *og.Order, position schema.PositionID) error {
	if err := d.engine.Send(og.SubmitOrder{
		Header:     schema.NewHeader(time.Now().UTC()),
		TraderID:   demoTrader,
		StrategyID: demoStrategy,
		AccountID:  demoAccount,
		PositionID: position,
		Order:      o,
	}); err != nil {
		return err
	}
	return d.pause(1)
}

func (d demoRunner) cancel(id schema.OrderID, reason string) error {
	if err := d.engine.Send(og.CancelOrder{
		Header:    schema.NewHeader(time.Now().UTC()),
		TraderID:  demoTrader,
		AccountID: demoAccount,
		OrderID:   id,
		Reason:    reason,
	}); err != nil {
		return err
	}
	return d.pause(1)
}

func (d demoRunner) pause(steps int) error {
	t := time.NewTimer(time.Duration(steps) * demoStep)
	defer t.Stop()
	select {
	case <-d.ctx.Done():
		return d.ctx.Err()
	case <-t.C:
		return nil
	}
}

func demoOrder(id schema.OrderID, side schema.OrderSide, typ schema.OrderType, purpose schema.OrderPurpose, qty, price string, expire *time.Time) (*og.Order, error) {
	tif := schema.TimeInForceGTC
	if expire != nil {
		tif = schema.TimeInForceGTD
	}
	return og.NewOrder(og.Spec{
		ID:          id,
		Symbol:      demoSymbol,
		Label:       purpose.String(),
		Side:        side,
		Type:        typ,
		Purpose:     purpose,
		Quantity:    decimal.RequireFromString(qty),
		Price:       schema.PricePtr(decimal.RequireFromString(price)),
		TimeInForce: tif,
		ExpireTime:  expire,
		Timestamp:   time.Now().UTC(),
	})
}
