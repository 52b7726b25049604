package queue

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rodrgost/cronicas-carmesim/pkg/chat"
)

func newTestQueue(t *testing.T) *TurnQueue {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewTurnQueue(client)
}

func TestTurnQueue_FIFO(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	chronicleID := uuid.New()
	first := NewJob(&chat.TurnRequest{ChronicleID: chronicleID, Action: "first"})
	second := NewJob(&chat.TurnRequest{ChronicleID: chronicleID, Action: "second"})

	require.NoError(t, q.Enqueue(ctx, first))
	require.NoError(t, q.Enqueue(ctx, second))

	depth, err := q.Depth(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, depth)

	got, err := q.Dequeue(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "first", got.Action)
	assert.Equal(t, chronicleID, got.ChronicleID)

	got, err = q.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, "second", got.Action)
}

func TestTurnQueue_DequeueEmpty(t *testing.T) {
	q := newTestQueue(t)

	job, err := q.Dequeue(context.Background())
	require.NoError(t, err)
	assert.Nil(t, job)
}

func TestTurnQueue_BlockingDequeue(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	job := NewJob(&chat.TurnRequest{ChronicleID: uuid.New(), Action: "move", Language: "pt-BR"})
	require.NoError(t, q.Enqueue(ctx, job))

	got, err := q.BlockingDequeue(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, job.ID, got.ID)
	assert.Equal(t, "pt-BR", got.Language)
}
