package resource

import (
	"testing"

	"github.com/cuemby/hdfsim/pkg/scheduler"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounterGetImmediateWhenAvailable(t *testing.T) {
	env := scheduler.New(zerolog.Nop())
	c := NewCounter(env, 100)

	ev := c.Get(40)
	assert.True(t, ev.Triggered())
	assert.Equal(t, float64(60), c.Level())
}

func TestCounterGetQueuesWhenUnavailable(t *testing.T) {
	tests := []struct {
		name     string
		capacity float64
		first    float64
		second   float64
	}{
		{name: "exact exhaustion", capacity: 100, first: 100, second: 1},
		{name: "partial remainder insufficient", capacity: 80, first: 50, second: 40},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := scheduler.New(zerolog.Nop())
			c := NewCounter(env, tt.capacity)

			first := c.Get(tt.first)
			require.True(t, first.Triggered())

			second := c.Get(tt.second)
			assert.False(t, second.Triggered(), "second Get should queue behind exhausted capacity")
		})
	}
}

func TestCounterPutGrantsFIFOOrder(t *testing.T) {
	env := scheduler.New(zerolog.Nop())
	c := NewCounter(env, 10)

	// Drain it, then queue two waiters in order.
	c.Get(10)
	first := c.Get(6)
	second := c.Get(4)
	assert.False(t, first.Triggered())
	assert.False(t, second.Triggered())

	c.Put(6)
	assert.True(t, first.Triggered(), "first queued request should be granted before the second")
	assert.False(t, second.Triggered())

	c.Put(4)
	assert.True(t, second.Triggered())
}

func TestCounterPutStopsAtFirstUnsatisfiableWaiter(t *testing.T) {
	env := scheduler.New(zerolog.Nop())
	c := NewCounter(env, 10)

	c.Get(10)
	big := c.Get(8)
	small := c.Get(2)

	c.Put(2)
	assert.False(t, big.Triggered(), "front of queue not satisfiable yet")
	assert.False(t, small.Triggered(), "FIFO queue never skips ahead of an unsatisfied head")
}

func TestCounterPutClampsToCapacity(t *testing.T) {
	env := scheduler.New(zerolog.Nop())
	c := NewCounter(env, 10)

	c.Put(5)
	assert.Equal(t, float64(10), c.Level())
}

func TestCounterTryGetRespectsQueue(t *testing.T) {
	env := scheduler.New(zerolog.Nop())
	c := NewCounter(env, 10)

	c.Get(10)
	c.Get(5) // queues

	assert.False(t, c.TryGet(1), "TryGet must not jump ahead of a queued blocking Get")
}

func TestCounterCancelWithdrawsQueuedGet(t *testing.T) {
	env := scheduler.New(zerolog.Nop())
	c := NewCounter(env, 10)

	c.Get(10)
	ev := c.Get(5)
	ev.Cancel()

	c.Put(5)
	assert.Equal(t, float64(5), c.Level(), "cancelled request should not consume the returned units")
}
