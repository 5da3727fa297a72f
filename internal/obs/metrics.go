package obs

import (
	"sync/atomic"
	"time"

	"execution/internal/schema"
)

// Metrics collects lightweight counters and latency stats.
type Metrics struct {
	eventCounts       [schema.MaxEventKind + 1]uint64
	commandCounts     [schema.MaxCommandKind + 1]uint64
	integrationErrors uint64
	indexDrift        uint64
	duplicates        uint64
	backingErrors     uint64
	gatewayErrors     uint64
	publishErrors     uint64
	expiryScheduled   uint64
	expiryRemoved     uint64
	queueDrops        uint64
	queueClosed       uint64

	handleLatency LatencyStats
	eventLatency  LatencyStats
}

// LatencyStats aggregates duration samples in nanoseconds.
type LatencyStats struct {
	count uint64
	sum   uint64
	min   uint64
	max   uint64
}

// LatencySnapshot is a point-in-time view of latency stats.
type LatencySnapshot struct {
	Count uint64
	Min   time.Duration
	Max   time.Duration
	Avg   time.Duration
}

// Snapshot captures the current metrics values.
type Snapshot struct {
	EventCounts       map[schema.EventKind]uint64
	CommandCounts     map[schema.CommandKind]uint64
	IntegrationErrors uint64
	IndexDrift        uint64
	Duplicates        uint64
	BackingErrors     uint64
	GatewayErrors     uint64
	PublishErrors     uint64
	ExpiryScheduled   uint64
	ExpiryRemoved     uint64
	QueueDrops        uint64
	QueueClosed       uint64
	HandleLatency     LatencySnapshot
	EventLatency      LatencySnapshot
}

// NewMetrics allocates a metrics container.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// ObserveEvent counts the event and tracks the delay between its timestamp and now.
func (m *Metrics) ObserveEvent(e schema.Event, now time.Time) {
	if m == nil || e == nil {
		return
	}
	idx := int(e.Kind())
	if idx >= 0 && idx < len(m.eventCounts) {
		atomic.AddUint64(&m.eventCounts[idx], 1)
	}
	if ts := e.Meta().Timestamp; !ts.IsZero() {
		if delta := now.Sub(ts); delta >= 0 {
			m.eventLatency.Observe(delta)
		}
	}
}

// ObserveCommand counts the command.
func (m *Metrics) ObserveCommand(c schema.Command) {
	if m == nil || c == nil {
		return
	}
	idx := int(c.Kind())
	if idx >= 0 && idx < len(m.commandCounts) {
		atomic.AddUint64(&m.commandCounts[idx], 1)
	}
}

// ObserveHandle measures how long the engine spent on one message.
func (m *Metrics) ObserveHandle(d time.Duration) {
	if m == nil {
		return
	}
	m.handleLatency.Observe(d)
}

// IncIntegrationError records an unknown id or rejected state transition.
func (m *Metrics) IncIntegrationError() {
	if m != nil {
		atomic.AddUint64(&m.integrationErrors, 1)
	}
}

// IncIndexDrift records an index entry without a matching primary entry.
func (m *Metrics) IncIndexDrift() {
	if m != nil {
		atomic.AddUint64(&m.indexDrift, 1)
	}
}

// IncDuplicate records a rejected insert of an existing id.
func (m *Metrics) IncDuplicate() {
	if m != nil {
		atomic.AddUint64(&m.duplicates, 1)
	}
}

// IncBackingError records a failed write-through or reload.
func (m *Metrics) IncBackingError() {
	if m != nil {
		atomic.AddUint64(&m.backingErrors, 1)
	}
}

func (m *Metrics) IncGatewayError() {
	if m != nil {
		atomic.AddUint64(&m.gatewayErrors, 1)
	}
}

func (m *Metrics) IncPublishError() {
	if m != nil {
		atomic.AddUint64(&m.publishErrors, 1)
	}
}

func (m *Metrics) IncExpiryScheduled() {
	if m != nil {
		atomic.AddUint64(&m.expiryScheduled, 1)
	}
}

func (m *Metrics) IncExpiryRemoved() {
	if m != nil {
		atomic.AddUint64(&m.expiryRemoved, 1)
	}
}

// IncQueueDrop records a queue drop.
func (m *Metrics) IncQueueDrop() {
	if m != nil {
		atomic.AddUint64(&m.queueDrops, 1)
	}
}

// IncQueueClosed records a closed-queue publish attempt.
func (m *Metrics) IncQueueClosed() {
	if m != nil {
		atomic.AddUint64(&m.queueClosed, 1)
	}
}

// Snapshot returns a copy of the current metrics values.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	eventCounts := make(map[schema.EventKind]uint64)
	for i := range m.eventCounts {
		if v := atomic.LoadUint64(&m.eventCounts[i]); v > 0 {
			eventCounts[schema.EventKind(i)] = v
		}
	}
	commandCounts := make(map[schema.CommandKind]uint64)
	for i := range m.commandCounts {
		if v := atomic.LoadUint64(&m.commandCounts[i]); v > 0 {
			commandCounts[schema.CommandKind(i)] = v
		}
	}
	return Snapshot{
		EventCounts:       eventCounts,
		CommandCounts:     commandCounts,
		IntegrationErrors: atomic.LoadUint64(&m.integrationErrors),
		IndexDrift:        atomic.LoadUint64(&m.indexDrift),
		Duplicates:        atomic.LoadUint64(&m.duplicates),
		BackingErrors:     atomic.LoadUint64(&m.backingErrors),
		GatewayErrors:     atomic.LoadUint64(&m.gatewayErrors),
		PublishErrors:     atomic.LoadUint64(&m.publishErrors),
		ExpiryScheduled:   atomic.LoadUint64(&m.expiryScheduled),
		ExpiryRemoved:     atomic.LoadUint64(&m.expiryRemoved),
		QueueDrops:        atomic.LoadUint64(&m.queueDrops),
		QueueClosed:       atomic.LoadUint64(&m.queueClosed),
		HandleLatency:     m.handleLatency.Snapshot(),
		EventLatency:      m.eventLatency.Snapshot(),
	}
}

// Observe records a duration sample.
func (l *LatencyStats) Observe(d time.Duration) {
	if d < 0 {
		return
	}
	nanos := uint64(d)
	atomic.AddUint64(&l.count, 1)
	atomic.AddUint64(&l.sum, nanos)

	for {
		low := atomic.LoadUint64(&l.min)
		if low != 0 && nanos >= low {
			break
		}
		if atomic.CompareAndSwapUint64(&l.min, low, nanos) {
			break
		}
	}

	for {
		high := atomic.LoadUint64(&l.max)
		if nanos <= high {
			break
		}
		if atomic.CompareAndSwapUint64(&l.max, high, nanos) {
			break
		}
	}
}

// Snapshot returns the aggregated latency stats.
func (l *LatencyStats) Snapshot() LatencySnapshot {
	count := atomic.LoadUint64(&l.count)
	if count == 0 {
		return LatencySnapshot{}
	}
	sum := atomic.LoadUint64(&l.sum)
	return LatencySnapshot{
		Count: count,
		Min:   time.Duration(atomic.LoadUint64(&l.min)),
		Max:   time.Duration(atomic.LoadUint64(&l.max)),
		Avg:   time.Duration(sum / count),
	}
}
