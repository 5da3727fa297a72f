package state

import (
	"time"

	"execution/internal/schema"
	"execution/pkg/exception"

	"github.com/yanun0323/errors"
)

// Account holds the latest broker reported balances of one account.
type Account struct {
	id                    schema.AccountID
	currency              string
	cashBalance           schema.Money
	cashStartDay          schema.Money
	cashActivityDay       schema.Money
	marginUsedLiquidation schema.Money
	marginUsedMaintenance schema.Money
	marginRatio           schema.Money
	marginCallStatus      string
	lastUpdated           time.Time
	events                []schema.AccountStateEvent
}

func NewAccount(e schema.AccountStateEvent) (*Account, error) {
	if e.AccountID == "" {
		return nil, errors.Wrap(exception.ErrInvalidArgument, "account state without account id")
	}
	a := &Account{id: e.AccountID}
	if err := a.Apply(e); err != nil {
		return nil, err
	}
	return a, nil
}

// RestoreAccount replays account state events in order.
func RestoreAccount(events []schema.AccountStateEvent) (*Account, error) {
	if len(events) == 0 {
		return nil, errors.Wrap(exception.ErrAccountEmptyHistory, "restore account")
	}
	a, err := NewAccount(events[0])
	if err != nil {
		return nil, err
	}
	for _, e := range events[1:] {
		if err := a.Apply(e); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// Apply replaces the balances with the reported state.
func (a *Account) Apply(e schema.AccountStateEvent) error {
	if e.AccountID != a.id {
		return errors.Wrapf(exception.ErrAccountIDMismatch, "account: %s, event: %s", a.id, e.AccountID)
	}
	a.currency = e.Currency
	a.cashBalance = e.CashBalance
	a.cashStartDay = e.CashStartDay
	a.cashActivityDay = e.CashActivityDay
	a.marginUsedLiquidation = e.MarginUsedLiquidation
	a.marginUsedMaintenance = e.MarginUsedMaintenance
	a.marginRatio = e.MarginRatio
	a.marginCallStatus = e.MarginCallStatus
	a.lastUpdated = e.Timestamp
	a.events = append(a.events, e)
	return nil
}

func (a *Account) ID() schema.AccountID                  { return a.id }
func (a *Account) Currency() string                      { return a.currency }
func (a *Account) CashBalance() schema.Money             { return a.cashBalance }
func (a *Account) CashStartDay() schema.Money            { return a.cashStartDay }
func (a *Account) CashActivityDay() schema.Money         { return a.cashActivityDay }
func (a *Account) MarginUsedLiquidation() schema.Money   { return a.marginUsedLiquidation }
func (a *Account) MarginUsedMaintenance() schema.Money   { return a.marginUsedMaintenance }
func (a *Account) MarginRatio() schema.Money             { return a.marginRatio }
func (a *Account) MarginCallStatus() string              { return a.marginCallStatus }
func (a *Account) LastUpdated() time.Time                { return a.lastUpdated }
func (a *Account) EventCount() int                       { return len(a.events) }

// FreeEquity is the cash balance not tied up by maintenance margin.
func (a *Account) FreeEquity() schema.Money {
	return a.cashBalance.Sub(a.marginUsedMaintenance)
}

// Events returns a copy of the applied state events.
func (a *Account) Events() []schema.AccountStateEvent {
	out := make([]schema.AccountStateEvent, len(a.events))
	copy(out, a.events)
	return out
}
