// Package resource implements the three shared-resource primitives
// hdfsim's nodes contend over: bounded throughput counters (disk
// speed, NIC bandwidth), a FIFO mutual-exclusion hold (the memory
// controller), and a replaceable latched event (disk-alive,
// buffer-full). All three are built on scheduler.Event and
// scheduler.Context.Block rather than inventing their own suspension
// mechanism, so they compose with WaitAny/WaitAll like any other
// event.
package resource

import (
	"sync"

	"github.com/cuemby/hdfsim/pkg/scheduler"
)

// Counter models a quantity that is handed out in bounded chunks and
// returned later — disk write throughput and NIC bandwidth in
// spec.md's terms. Level is the amount currently available; Get
// reduces it, Put restores it. Pending Gets are granted strictly in
// FIFO order: a later, smaller request never jumps ahead of an
// earlier one that is still waiting, matching the fairness the disk
// arbiter's share recomputation depends on.
type Counter struct {
	env      *scheduler.Environment
	mu       sync.Mutex
	capacity float64
	level    float64
	queue    []*pendingGet
}

type pendingGet struct {
	amount   float64
	ev       *scheduler.Event
	resolved bool
}

// NewCounter creates a Counter at full capacity (every unit
// available), mirroring simpy's Container(capacity, init=capacity)
// usage in the reference disk/NIC model.
func NewCounter(env *scheduler.Environment, capacity float64) *Counter {
	return &Counter{env: env, capacity: capacity, level: capacity}
}

// Capacity returns the counter's maximum level.
func (c *Counter) Capacity() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.capacity
}

// Level returns the amount currently available.
func (c *Counter) Level() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.level
}

// Get returns an event that fires once amount units have been
// deducted from the counter. If amount is immediately available and
// nothing is already queued ahead of this request, the event fires
// already-triggered; otherwise it is appended to the FIFO queue and
// fires (and deducts) once earlier requests have drained and its turn
// comes up. Cancelling the returned event before it fires withdraws
// the request without granting it.
func (c *Counter) Get(amount float64) *scheduler.Event {
	ev := c.env.NewEvent()
	c.mu.Lock()
	if len(c.queue) == 0 && c.level >= amount {
		c.level -= amount
		c.mu.Unlock()
		c.env.Trigger(ev, scheduler.Outcome{OK: true})
		return ev
	}
	pg := &pendingGet{amount: amount, ev: ev}
	c.queue = append(c.queue, pg)
	c.mu.Unlock()
	ev.SetCancel(func() { c.cancelGet(pg) })
	return ev
}

// TryGet attempts a non-blocking deduction, succeeding only when the
// FIFO queue is empty and amount is immediately available. This is
// the primitive pkg/network's per-hop ping uses for its atomic
// conjunctive check against two counters within a single turn: no
// other process can have queued a Get between the caller's rate
// computation and this call, so FIFO fairness is not at stake here.
func (c *Counter) TryGet(amount float64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.queue) > 0 || c.level < amount {
		return false
	}
	c.level -= amount
	return true
}

// Put returns amount units to the counter, then grants queued
// requests from the front of the FIFO queue for as long as the front
// request can be satisfied.
func (c *Counter) Put(amount float64) {
	c.mu.Lock()
	c.level += amount
	if c.level > c.capacity {
		c.level = c.capacity
	}
	var grants []*pendingGet
	for len(c.queue) > 0 {
		front := c.queue[0]
		if front.amount > c.level {
			break
		}
		c.level -= front.amount
		front.resolved = true
		grants = append(grants, front)
		c.queue = c.queue[1:]
	}
	c.mu.Unlock()
	for _, pg := range grants {
		c.env.Trigger(pg.ev, scheduler.Outcome{OK: true})
	}
}

func (c *Counter) cancelGet(pg *pendingGet) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if pg.resolved {
		return
	}
	for i, q := range c.queue {
		if q == pg {
			c.queue = append(c.queue[:i], c.queue[i+1:]...)
			return
		}
	}
}
