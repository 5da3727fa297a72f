// Package publish delivers applied execution events to downstream subscribers.
package publish

import (
	"execution/internal/schema"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
)

// Publisher accepts trader attributed events.
type Publisher interface {
	Publish(e schema.TraderEvent) error
}

// LogPublisher writes every event to the log.
type LogPublisher struct{}

func (LogPublisher) Publish(e schema.TraderEvent) error {
	if e.Event == nil {
		return errors.New("publish: nil event")
	}
	trader := e.TraderID.String()
	if e.TraderID.IsEmpty() {
		trader = "-"
	}
	if oe, ok := e.Event.(schema.OrderEvent); ok {
		logs.Infof("event %s, trader: %s, order: %s", e.Event.Kind(), trader, oe.Target().OrderID)
		return nil
	}
	logs.Infof("event %s, trader: %s", e.Event.Kind(), trader)
	return nil
}

// Fanout publishes each event to every publisher, in order.
type Fanout []Publisher

func (f Fanout) Publish(e schema.TraderEvent) error {
	var (
		first  error
		failed int
	)
	for _, p := range f {
		if err := p.Publish(e); err != nil {
			failed++
			if first == nil {
				first = err
			}
		}
	}
	if first != nil {
		return errors.Wrapf(first, "%d of %d publishers failed", failed, len(f))
	}
	return nil
}
