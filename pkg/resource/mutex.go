package resource

import (
	"sync"

	"github.com/cuemby/hdfsim/pkg/scheduler"
)

// Mutex is a single-holder FIFO lock, used for the memory controller
// a write path claims while it copies a block into the buffer.
type Mutex struct {
	env    *scheduler.Environment
	mu     sync.Mutex
	held   bool
	queue  []*pendingAcquire
}

type pendingAcquire struct {
	ev       *scheduler.Event
	resolved bool
}

// NewMutex creates an unheld Mutex.
func NewMutex(env *scheduler.Environment) *Mutex {
	return &Mutex{env: env}
}

// Acquire returns an event that fires once the lock is held by the
// caller. It fires already-triggered if the lock is free and nothing
// is queued ahead of this request.
func (m *Mutex) Acquire() *scheduler.Event {
	ev := m.env.NewEvent()
	m.mu.Lock()
	if !m.held && len(m.queue) == 0 {
		m.held = true
		m.mu.Unlock()
		m.env.Trigger(ev, scheduler.Outcome{OK: true})
		return ev
	}
	pa := &pendingAcquire{ev: ev}
	m.queue = append(m.queue, pa)
	m.mu.Unlock()
	ev.SetCancel(func() { m.cancelAcquire(pa) })
	return ev
}

// Release hands the lock to the next queued acquirer, or marks it
// free if none is waiting.
func (m *Mutex) Release() {
	m.mu.Lock()
	if len(m.queue) == 0 {
		m.held = false
		m.mu.Unlock()
		return
	}
	next := m.queue[0]
	m.queue = m.queue[1:]
	next.resolved = true
	m.mu.Unlock()
	m.env.Trigger(next.ev, scheduler.Outcome{OK: true})
}

func (m *Mutex) cancelAcquire(pa *pendingAcquire) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if pa.resolved {
		return
	}
	for i, q := range m.queue {
		if q == pa {
			m.queue = append(m.queue[:i], m.queue[i+1:]...)
			return
		}
	}
}
