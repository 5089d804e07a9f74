package resource

import (
	"testing"

	"github.com/cuemby/hdfsim/pkg/scheduler"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestLatchInitialStateTriggersImmediately(t *testing.T) {
	env := scheduler.New(zerolog.Nop())

	alive := NewLatch(env, true)
	assert.True(t, alive.Wait().Triggered())

	notYetFull := NewLatch(env, false)
	assert.False(t, notYetFull.Wait().Triggered())
}

func TestLatchSetTrueTriggersPendingWaiters(t *testing.T) {
	env := scheduler.New(zerolog.Nop())
	full := NewLatch(env, false)

	ev := full.Wait()
	assert.False(t, ev.Triggered())

	full.Set(true)
	assert.True(t, ev.Triggered())
	assert.True(t, full.State())
}

func TestLatchSetFalseMintsFreshEvent(t *testing.T) {
	env := scheduler.New(zerolog.Nop())
	alive := NewLatch(env, true)

	first := alive.Wait()
	require := assert.New(t)
	require.True(first.Triggered())

	alive.Set(false)
	second := alive.Wait()
	require.False(second.Triggered())
	require.NotSame(first, second, "a transition to false must mint a new waitable event")
}

func TestLatchSetToCurrentStateIsNoop(t *testing.T) {
	env := scheduler.New(zerolog.Nop())
	alive := NewLatch(env, true)
	before := alive.Wait()

	alive.Set(true)
	assert.Same(t, before, alive.Wait())
}
