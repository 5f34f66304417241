package engine_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perbu/artifacts/internal/engine"
)

func TestQueueFIFO(t *testing.T) {
	var q engine.Queue
	require.True(t, q.IsEmpty())

	q.Enqueue(task("move"))
	q.Enqueue(task("gathering"))
	q.Enqueue(task("fight"))
	assert.Equal(t, 3, q.Len())
	assert.Equal(t, []string{"move", "gathering", "fight"}, q.Pending())

	for _, want := range []string{"move", "gathering", "fight"} {
		got, err := q.Dequeue()
		require.NoError(t, err)
		assert.Equal(t, want, got.ActionID())
	}
	assert.True(t, q.IsEmpty())
}

func TestQueueDequeueEmpty(t *testing.T) {
	var q engine.Queue

	_, err := q.Dequeue()
	require.ErrorIs(t, err, engine.ErrEmptyQueue)
	assert.True(t, q.IsEmpty())
	assert.Equal(t, 0, q.Len())

	q.Enqueue(task("rest"))
	_, err = q.Dequeue()
	require.NoError(t, err)

	_, err = q.Dequeue()
	require.ErrorIs(t, err, engine.ErrEmptyQueue)
	assert.Equal(t, 0, q.Len())
}

func TestQueueInterleavedKeepsOrder(t *testing.T) {
	var q engine.Queue
	next := 0
	var got []string

	// Dequeue one for every two enqueued so the head keeps advancing past
	// the compaction threshold.
	for i := 0; i < 200; i++ {
		q.Enqueue(task(fmt.Sprintf("a%03d", i)))
		if i%2 == 1 {
			tk, err := q.Dequeue()
			require.NoError(t, err)
			got = append(got, tk.ActionID())
		}
	}
	for !q.IsEmpty() {
		tk, err := q.Dequeue()
		require.NoError(t, err)
		got = append(got, tk.ActionID())
	}

	require.Len(t, got, 200)
	for _, id := range got {
		assert.Equal(t, fmt.Sprintf("a%03d", next), id)
		next++
	}
}

func TestQueueClear(t *testing.T) {
	var q engine.Queue
	q.Enqueue(task("a"))
	q.Enqueue(task("b"))
	q.Clear()
	assert.True(t, q.IsEmpty())
	assert.Empty(t, q.Pending())
}
