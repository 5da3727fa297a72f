package obs

import (
	"testing"
	"time"

	"execution/internal/schema"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type inquiry struct {
	schema.Header
}

func (inquiry) Kind() schema.CommandKind { return schema.CommandAccountInquiry }

func TestMetricsSnapshot(t *testing.T) {
	m := NewMetrics()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	m.ObserveEvent(schema.OrderSubmitted{OrderHeader: schema.OrderHeader{Header: schema.NewHeader(now.Add(-time.Millisecond))}}, now)
	m.ObserveEvent(schema.OrderSubmitted{OrderHeader: schema.OrderHeader{Header: schema.NewHeader(now)}}, now)
	m.ObserveEvent(schema.AccountStateEvent{Header: schema.NewHeader(now)}, now)
	m.ObserveCommand(inquiry{Header: schema.NewHeader(now)})
	m.IncIntegrationError()
	m.IncIndexDrift()
	m.IncIndexDrift()
	m.ObserveHandle(2 * time.Millisecond)
	m.ObserveHandle(4 * time.Millisecond)

	snap := m.Snapshot()
	assert.Equal(t, uint64(2), snap.EventCounts[schema.EventOrderSubmitted])
	assert.Equal(t, uint64(1), snap.EventCounts[schema.EventAccountState])
	assert.Equal(t, uint64(1), snap.CommandCounts[schema.CommandAccountInquiry])
	assert.Equal(t, uint64(1), snap.IntegrationErrors)
	assert.Equal(t, uint64(2), snap.IndexDrift)
	require.Equal(t, uint64(2), snap.HandleLatency.Count)
	assert.Equal(t, 2*time.Millisecond, snap.HandleLatency.Min)
	assert.Equal(t, 4*time.Millisecond, snap.HandleLatency.Max)
	assert.Equal(t, 3*time.Millisecond, snap.HandleLatency.Avg)
	assert.Equal(t, uint64(3), snap.EventLatency.Count)
	assert.Equal(t, time.Millisecond, snap.EventLatency.Max)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.IncIntegrationError()
	m.IncQueueDrop()
	m.ObserveHandle(time.Second)
	m.ObserveEvent(schema.OrderSubmitted{}, time.Now())
	assert.Equal(t, Snapshot{}, m.Snapshot())
}
