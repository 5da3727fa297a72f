// Package store persists the execution ledger with gorm. Entities are saved
// with their full event history and rebuilt by replaying it.
package store

import (
	"context"

	"execution/internal/ledger"
	"execution/internal/og"
	"execution/internal/schema"
	"execution/internal/state"
	"execution/pkg/exception"

	"github.com/bytedance/sonic"
	"github.com/yanun0323/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var _ ledger.Backing = (*Store)(nil)

type Store struct {
	db *gorm.DB
}

// New migrates the ledger tables and returns a store on db.
func New(db *gorm.DB) (*Store, error) {
	if db == nil {
		return nil, exception.ErrStoreNilDB
	}
	if err := db.AutoMigrate(&accountRow{}, &orderRow{}, &positionRow{}); err != nil {
		return nil, errors.Wrap(err, "migrate ledger tables")
	}
	return &Store{db: db}, nil
}

func (s *Store) SaveAccount(ctx context.Context, a *state.Account) error {
	events, err := schema.EncodeEvents(a.Events())
	if err != nil {
		return errors.Wrapf(err, "encode account %s", a.ID())
	}
	row := accountRow{
		ID:          a.ID().String(),
		Currency:    a.Currency(),
		CashBalance: a.CashBalance().String(),
		Events:      string(events),
	}
	return s.upsert(ctx, &row)
}

func (s *Store) SaveOrder(ctx context.Context, rec ledger.OrderRecord) error {
	o := rec.Order
	spec, err := sonic.ConfigStd.Marshal(o.Spec())
	if err != nil {
		return errors.Wrapf(err, "marshal order spec %s", o.ID())
	}
	events, err := schema.EncodeEvents(o.Events())
	if err != nil {
		return errors.Wrapf(err, "encode order %s", o.ID())
	}
	row := orderRow{
		ID:         o.ID().String(),
		TraderID:   rec.TraderID.String(),
		AccountID:  rec.AccountID.String(),
		StrategyID: rec.StrategyID.String(),
		PositionID: rec.PositionID.String(),
		Symbol:     o.Symbol().String(),
		State:      o.State().String(),
		Spec:       string(spec),
		Events:     string(events),
	}
	return s.upsert(ctx, &row)
}

func (s *Store) SavePosition(ctx context.Context, rec ledger.PositionRecord) error {
	p := rec.Position
	fills, err := schema.EncodeEvents(p.Fills())
	if err != nil {
		return errors.Wrapf(err, "encode position %s", p.ID())
	}
	row := positionRow{
		ID:             p.ID().String(),
		TraderID:       rec.TraderID.String(),
		AccountID:      p.AccountID().String(),
		Symbol:         p.Symbol().String(),
		MarketPosition: p.MarketPosition().String(),
		Quantity:       p.Quantity().String(),
		Fills:          string(fills),
	}
	return s.upsert(ctx, &row)
}

func (s *Store) LoadAccounts(ctx context.Context) ([]*state.Account, error) {
	var rows []accountRow
	if err := s.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "find accounts")
	}
	out := make([]*state.Account, 0, len(rows))
	for _, row := range rows {
		events, err := decodeHistory[schema.AccountStateEvent](row.Events)
		if err != nil {
			return nil, errors.Wrapf(err, "account %s", row.ID)
		}
		a, err := state.RestoreAccount(events)
		if err != nil {
			return nil, errors.Wrapf(err, "restore account %s", row.ID)
		}
		out = append(out, a)
	}
	return out, nil
}

func (s *Store) LoadOrders(ctx context.Context) ([]ledger.OrderRecord, error) {
	var rows []orderRow
	if err := s.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "find orders")
	}
	out := make([]ledger.OrderRecord, 0, len(rows))
	for _, row := range rows {
		var spec og.Spec
		if err := sonic.ConfigStd.Unmarshal([]byte(row.Spec), &spec); err != nil {
			return nil, errors.Wrapf(exception.ErrStoreCorruptRecord, "order %s spec: %+v", row.ID, err)
		}
		events, err := decodeHistory[schema.OrderEvent](row.Events)
		if err != nil {
			return nil, errors.Wrapf(err, "order %s", row.ID)
		}
		o, err := og.Restore(spec, events)
		if err != nil {
			return nil, errors.Wrapf(err, "restore order %s", row.ID)
		}
		out = append(out, ledger.OrderRecord{
			Order:      o,
			TraderID:   schema.TraderID(row.TraderID),
			AccountID:  schema.AccountID(row.AccountID),
			StrategyID: schema.StrategyID(row.StrategyID),
			PositionID: schema.PositionID(row.PositionID),
		})
	}
	return out, nil
}

func (s *Store) LoadPositions(ctx context.Context) ([]ledger.PositionRecord, error) {
	var rows []positionRow
	if err := s.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "find positions")
	}
	out := make([]ledger.PositionRecord, 0, len(rows))
	for _, row := range rows {
		fills, err := decodeHistory[schema.FillEvent](row.Fills)
		if err != nil {
			return nil, errors.Wrapf(err, "position %s", row.ID)
		}
		p, err := state.RestorePosition(schema.PositionID(row.ID), fills)
		if err != nil {
			return nil, errors.Wrapf(err, "restore position %s", row.ID)
		}
		out = append(out, ledger.PositionRecord{Position: p, TraderID: schema.TraderID(row.TraderID)})
	}
	return out, nil
}

// Flush deletes every ledger row.
func (s *Store) Flush(ctx context.Context) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range []any{&accountRow{}, &orderRow{}, &positionRow{}} {
			if err := tx.Where("1 = 1").Delete(model).Error; err != nil {
				return errors.Wrapf(err, "delete %T", model)
			}
		}
		return nil
	})
}

func (s *Store) upsert(ctx context.Context, row any) error {
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(row).Error; err != nil {
		return errors.Wrapf(err, "upsert %T", row)
	}
	return nil
}

func decodeHistory[T schema.Event](data string) ([]T, error) {
	events, err := schema.DecodeEvents([]byte(data))
	if err != nil {
		return nil, errors.Wrapf(exception.ErrStoreCorruptRecord, "decode history: %+v", err)
	}
	out := make([]T, 0, len(events))
	for i, e := range events {
		v, ok := e.(T)
		if !ok {
			return nil, errors.Wrapf(exception.ErrStoreCorruptRecord, "event %d is %T", i, e)
		}
		out = append(out, v)
	}
	return out, nil
}
