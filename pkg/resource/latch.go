package resource

import (
	"sync"

	"github.com/cuemby/hdfsim/pkg/scheduler"
)

// Latch is a boolean state whose true/false transitions are exposed
// as waitable events: disk-alive (true until BreakDisk, false until
// RepairDisk) and buffer-full (false until the write-back buffer
// fills, true until the flush loop drains it) both follow this shape.
// Unlike a plain scheduler.Event, a Latch can be waited on across
// multiple state cycles: each transition to false mints a fresh
// pending event so a process can wait for the next transition back to
// true, while waiters that captured the previous event keep it.
type Latch struct {
	env   *scheduler.Environment
	mu    sync.Mutex
	state bool
	ev    *scheduler.Event
}

// NewLatch creates a Latch in the given initial state.
func NewLatch(env *scheduler.Environment, initial bool) *Latch {
	l := &Latch{env: env, state: initial, ev: env.NewEvent()}
	if initial {
		env.Trigger(l.ev, scheduler.Outcome{OK: true})
	}
	return l
}

// State returns the latch's current value.
func (l *Latch) State() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Wait returns the event for the latch's current true state: already
// triggered if the latch is currently true, pending until the next
// transition to true otherwise.
func (l *Latch) Wait() *scheduler.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ev
}

// Set transitions the latch. Setting it to the value it already holds
// is a no-op. Setting it true fires whatever event waiters are
// holding; setting it false replaces that event with a fresh, pending
// one so the next transition to true can be waited on independently.
func (l *Latch) Set(state bool) {
	l.mu.Lock()
	if l.state == state {
		l.mu.Unlock()
		return
	}
	l.state = state
	if state {
		ev := l.ev
		l.mu.Unlock()
		l.env.Trigger(ev, scheduler.Outcome{OK: true})
		return
	}
	l.ev = l.env.NewEvent()
	l.mu.Unlock()
}
