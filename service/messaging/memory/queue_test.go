package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type dispatch struct {
	Command string
	Attempt int
}

func TestQueue(t *testing.T) {
	queue := NewQueue[dispatch](DefaultConfig())
	ctx := context.Background()
	payload := dispatch{Command: "convert:onnx", Attempt: 1}

	require.NoError(t, queue.Publish(ctx, &payload))
	assert.Equal(t, 1, queue.Size())

	message, err := queue.Consume(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, queue.Size())
	assert.NotEmpty(t, message.ID())
	assert.Equal(t, payload, *message.T())

	assert.NoError(t, message.Ack())
	assert.Error(t, message.Ack())
	assert.Error(t, message.Nack(errors.New("late")))
	assert.Equal(t, 0, queue.DLQSize())
}

func TestQueue_Nack(t *testing.T) {
	queue := NewQueue[dispatch](DefaultConfig())
	ctx := context.Background()
	require.NoError(t, queue.Publish(ctx, &dispatch{Command: "verify:onnx"}))
	message, err := queue.Consume(ctx)
	require.NoError(t, err)
	assert.NoError(t, message.Nack(errors.New("mismatch")))
	assert.Equal(t, 1, queue.DLQSize())
	assert.Equal(t, "verify:onnx", queue.DeadLetters()[0].Command)
	assert.EqualError(t, message.(*Message[dispatch]).Err(), "mismatch")
}

func TestQueue_Concurrent(t *testing.T) {
	queue := NewQueue[dispatch](Config{QueueBuffer: 4})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	const count = 50
	var consumed sync.WaitGroup
	consumed.Add(count)
	for i := 0; i < 3; i++ {
		go func() {
			for {
				msg, err := queue.Consume(ctx)
				if err != nil {
					return
				}
				_ = msg.Ack()
				consumed.Done()
			}
		}()
	}
	for i := 0; i < count; i++ {
		require.NoError(t, queue.Publish(ctx, &dispatch{Attempt: i}))
	}
	consumed.Wait()
}

func TestQueue_Cancelled(t *testing.T) {
	queue := NewQueue[dispatch](Config{QueueBuffer: 1})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := queue.Consume(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, queue.Publish(ctx, &dispatch{}), context.Canceled)
}
