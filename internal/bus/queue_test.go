package bus

import (
	"context"
	"testing"
	"time"

	"execution/internal/schema"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func message(id schema.OrderID) schema.Message {
	return schema.OrderSubmitted{OrderHeader: schema.OrderHeader{Header: schema.NewHeader(time.Now()), OrderID: id}}
}

func TestQueueDeliversInOrder(t *testing.T) {
	q := NewQueue(4)
	require.NoError(t, q.TryPublish(message("O-1")))
	require.NoError(t, q.TryPublish(message("O-2")))
	require.NoError(t, q.TryPublish(message("O-3")))
	assert.Equal(t, 3, q.Len())
	q.Close()

	var got []schema.OrderID
	q.Run(context.Background(), func(m schema.Message) {
		got = append(got, m.(schema.OrderSubmitted).OrderID)
	})
	assert.Equal(t, []schema.OrderID{"O-1", "O-2", "O-3"}, got)
}

func TestQueueFullAndClosed(t *testing.T) {
	q := NewQueue(1)
	require.NoError(t, q.TryPublish(message("O-1")))
	require.ErrorIs(t, q.TryPublish(message("O-2")), ErrQueueFull)

	q.Close()
	q.Close()
	require.ErrorIs(t, q.TryPublish(message("O-3")), ErrQueueClosed)
}

func TestQueueRunStopsOnContext(t *testing.T) {
	q := NewQueue(1)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		q.Run(ctx, func(schema.Message) {})
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("run did not stop")
	}
}
