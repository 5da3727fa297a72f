package schedule

import (
	"sync"
	"testing"
	"time"

	"execution/internal/schema"
	"execution/pkg/exception"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sink struct {
	mu  sync.Mutex
	got []schema.Message
}

func (s *sink) deliver(m schema.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, m)
	return nil
}

func (s *sink) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.got)
}

func msg() schema.Message {
	return schema.OrderExpired{OrderHeader: schema.OrderHeader{Header: schema.NewHeader(time.Now()), OrderID: "O-1"}}
}

func TestSchedulerFiresDueJob(t *testing.T) {
	s := New(nil)
	out := &sink{}
	s.Register("engine", out.deliver)

	require.NoError(t, s.CreateJob("engine", msg(), "O-1-EXPIRY-BACKUP", time.Now().Add(10*time.Millisecond)))
	require.Len(t, s.Pending(), 1)

	require.Eventually(t, func() bool { return out.len() == 1 }, time.Second, 5*time.Millisecond)
	assert.Empty(t, s.Pending())
}

func TestSchedulerRemoveJob(t *testing.T) {
	s := New(nil)
	out := &sink{}
	s.Register("engine", out.deliver)

	require.NoError(t, s.CreateJob("engine", msg(), "K-1", time.Now().Add(20*time.Millisecond)))
	s.RemoveJob("K-1")
	s.RemoveJob("K-404")
	assert.Empty(t, s.Pending())

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, out.len())
}

func TestSchedulerReplacesSameKey(t *testing.T) {
	s := New(nil)
	out := &sink{}
	s.Register("engine", out.deliver)
	later := time.Now().Add(time.Hour)

	require.NoError(t, s.CreateJob("engine", msg(), "K-1", time.Now().Add(time.Minute)))
	require.NoError(t, s.CreateJob("engine", msg(), "K-1", later))
	require.NoError(t, s.CreateJob("engine", msg(), "K-0", later))

	pending := s.Pending()
	require.Len(t, pending, 2)
	assert.Equal(t, schema.JobKey("K-0"), pending[0].Key)
	assert.Equal(t, later, pending[1].TriggerAt)
	s.Stop()
}

func TestSchedulerRejects(t *testing.T) {
	s := New(nil)
	require.ErrorIs(t, s.CreateJob("nowhere", msg(), "K-1", time.Now()), exception.ErrScheduleUnknownAddress)

	s.Register("engine", (&sink{}).deliver)
	require.NoError(t, s.CreateJob("engine", msg(), "K-1", time.Now().Add(time.Hour)))
	s.Stop()
	assert.Empty(t, s.Pending())
	require.ErrorIs(t, s.CreateJob("engine", msg(), "K-2", time.Now()), exception.ErrScheduleStopped)
}
