/*
Core implements the execution engine.

# Module
  - mailbox: single consumer queue receiving commands from traders and events from the gateway
  - ledger: accounts, orders and positions owned exclusively by the engine goroutine
  - modify buffer: coalesces modify requests per order until the venue can take them
  - expiry backup: schedules a cancel for GTD orders in case the venue misses the expiry

# Source
 1. commands from traders (submit, cancel, modify, account inquiry)
 2. venue events from the trading gateway
 3. scheduled expiry backup cancels from the scheduler

# Produce
  - venue requests to the trading gateway
  - applied events, attributed to their trader, to the publisher
*/
package core

import (
	"context"
	"errors"
	"time"

	"execution/internal/bus"
	"execution/internal/ledger"
	"execution/internal/obs"
	"execution/internal/og"
	"execution/internal/schema"
	"execution/pkg/exception"

	"github.com/yanun0323/logs"
)

const (
	// Address is the scheduler destination of the engine mailbox.
	Address = "ExecutionEngine"

	// ExpiryBackupReason marks cancels issued by the GTD expiry backup.
	ExpiryBackupReason = "GTD expiry backup"

	expiryBackupSuffix   = "-EXPIRY-BACKUP"
	defaultQueueCapacity = 4096
)

// Gateway sends requests to the trading venue. Results arrive later as events.
type Gateway interface {
	SubmitOrder(order *og.Order, positionIDBroker *schema.PositionIDBroker)
	SubmitBracketOrder(bracket *og.BracketOrder)
	CancelOrder(order *og.Order)
	ModifyOrder(order *og.Order, quantity schema.Quantity, price schema.Price)
	AccountInquiry(cmd og.AccountInquiry)
}

// Publisher forwards applied events to downstream subscribers.
type Publisher interface {
	Publish(e schema.TraderEvent) error
}

// Scheduler delivers a message to a destination at a future time.
type Scheduler interface {
	CreateJob(destination string, msg schema.Message, key schema.JobKey, at time.Time) error
	RemoveJob(key schema.JobKey)
}

type Config struct {
	ExpiryBackup  bool
	QueueCapacity int
	Now           func() time.Time
}

// Engine applies commands and venue events to the ledger one message at a time.
type Engine struct {
	cfg       Config
	db        *ledger.Database
	gateway   Gateway
	publisher Publisher
	scheduler Scheduler
	metrics   *obs.Metrics
	queue     *bus.Queue

	modifyBuffer   map[schema.OrderID]og.ModifyOrder
	modifyInFlight map[schema.OrderID]struct{}
	expiryJobs     map[schema.OrderID]schema.JobKey
}

func NewEngine(cfg Config, db *ledger.Database, gateway Gateway, publisher Publisher, scheduler Scheduler, metrics *obs.Metrics) (*Engine, error) {
	switch {
	case db == nil:
		return nil, exception.ErrNilInstance
	case gateway == nil:
		return nil, exception.ErrEngineNilGateway
	case publisher == nil:
		return nil, exception.ErrEngineNilPublisher
	case scheduler == nil && cfg.ExpiryBackup:
		return nil, exception.ErrEngineNilScheduler
	}
	if cfg.QueueCapacity <= 0 {
		cfg.QueueCapacity = defaultQueueCapacity
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	return &Engine{
		cfg:            cfg,
		db:             db,
		gateway:        gateway,
		publisher:      publisher,
		scheduler:      scheduler,
		metrics:        metrics,
		queue:          bus.NewQueue(cfg.QueueCapacity),
		modifyBuffer:   make(map[schema.OrderID]og.ModifyOrder),
		modifyInFlight: make(map[schema.OrderID]struct{}),
		expiryJobs:     make(map[schema.OrderID]schema.JobKey),
	}, nil
}

// Database returns the ledger owned by the engine. Only read it from the
// goroutine running the engine, or after Run returned.
func (e *Engine) Database() *ledger.Database {
	return e.db
}

// Send enqueues a command or event for the engine goroutine.
func (e *Engine) Send(msg schema.Message) error {
	err := e.queue.TryPublish(msg)
	switch {
	case errors.Is(err, bus.ErrQueueFull):
		e.metrics.IncQueueDrop()
		logs.Errorf("engine mailbox full, drop %T", msg)
	case errors.Is(err, bus.ErrQueueClosed):
		e.metrics.IncQueueClosed()
	}
	return err
}

// Run handles queued messages until ctx is done or Close was called and the
// mailbox drained.
func (e *Engine) Run(ctx context.Context) {
	logs.Infof("execution engine started, queue capacity: %d, expiry backup: %t", e.cfg.QueueCapacity, e.cfg.ExpiryBackup)
	e.queue.Run(ctx, e.Handle)
	logs.Info("execution engine stopped")
}

// Close stops accepting messages.
func (e *Engine) Close() {
	e.queue.Close()
}

// Handle processes one message synchronously. Callers other than Run must
// guarantee a single goroutine calls it.
func (e *Engine) Handle(msg schema.Message) {
	start := time.Now()
	defer func() { e.metrics.ObserveHandle(time.Since(start)) }()

	switch m := msg.(type) {
	case schema.Command:
		e.metrics.ObserveCommand(m)
		e.handleCommand(m)
	case schema.Event:
		e.metrics.ObserveEvent(m, e.cfg.Now())
		e.handleEvent(m)
	default:
		e.integrationError("unhandled message %T", msg)
	}
}

func (e *Engine) integrationError(format string, args ...any) {
	e.metrics.IncIntegrationError()
	logs.Errorf(format, args...)
}

func (e *Engine) publish(traderID schema.TraderID, ev schema.Event) {
	if traderID.IsEmpty() {
		e.integrationError("cannot publish %s, no trader", ev.Kind())
		return
	}
	e.send(schema.TraderEvent{TraderID: traderID, Event: ev})
}

func (e *Engine) send(te schema.TraderEvent) {
	if err := e.publisher.Publish(te); err != nil {
		e.metrics.IncPublishError()
		logs.Errorf("publish %s for trader %s, err: %+v", te.Event.Kind(), te.TraderID, err)
	}
}
