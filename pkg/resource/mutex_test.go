package resource

import (
	"testing"

	"github.com/cuemby/hdfsim/pkg/scheduler"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMutexAcquireImmediateWhenFree(t *testing.T) {
	env := scheduler.New(zerolog.Nop())
	m := NewMutex(env)

	ev := m.Acquire()
	assert.True(t, ev.Triggered())
}

func TestMutexSecondAcquireQueuesUntilRelease(t *testing.T) {
	env := scheduler.New(zerolog.Nop())
	m := NewMutex(env)

	first := m.Acquire()
	require.True(t, first.Triggered())

	second := m.Acquire()
	assert.False(t, second.Triggered())

	m.Release()
	assert.True(t, second.Triggered())
}

func TestMutexReleaseWithNoWaitersFreesTheLock(t *testing.T) {
	env := scheduler.New(zerolog.Nop())
	m := NewMutex(env)

	m.Acquire()
	m.Release()

	ev := m.Acquire()
	assert.True(t, ev.Triggered(), "lock should be free again after a release with no waiters")
}

func TestMutexCancelSkipsWithdrawnWaiter(t *testing.T) {
	env := scheduler.New(zerolog.Nop())
	m := NewMutex(env)

	m.Acquire()
	second := m.Acquire()
	second.Cancel()
	third := m.Acquire()

	m.Release()
	assert.False(t, second.Triggered())
	assert.True(t, third.Triggered(), "release should skip the cancelled waiter and grant the next one")
}
