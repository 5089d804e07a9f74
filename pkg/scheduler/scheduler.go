// Package scheduler implements hdfsim's virtual-time discrete-event
// scheduler: a monotonic clock, a priority queue of pending wake-ups,
// and cooperative processes that suspend on timeouts, resource waits,
// and conjunctions/disjunctions of events, with cross-process
// interrupts. See spec.md §4.1 and §5 for the contract this package
// implements.
//
// Processes are ordinary goroutines, but the package hands a single
// logical "turn token" from one to the next over unbuffered channels,
// so that exactly one of them ever runs at a time — real OS threads
// execute the code, but the observable event order is the same
// single-threaded schedule spec.md §5 requires.
package scheduler

import (
	"container/heap"
	"math"
	"sync"

	"github.com/cuemby/hdfsim/pkg/metrics"
	"github.com/cuemby/hdfsim/pkg/types"
	"github.com/rs/zerolog"
)

// Outcome is what a suspension point resolves to: either the natural
// result of the thing that was waited on, or an interrupt that cut it
// short.
type Outcome struct {
	OK          bool
	Interrupted bool
	Cause       types.Cause
	Err         error
}

// Event is a one-shot trigger that processes suspend on. Timeouts,
// process completions, and resource grants all produce *Event values.
// resource.Latch builds its replace-without-untriggering semantics on
// top of a fresh Event per generation rather than reusing this type's
// single-fire contract.
type Event struct {
	env       *Environment
	mu        sync.Mutex
	triggered bool
	outcome   Outcome
	callbacks []func(Outcome)
	cancelFn  func()
}

func newEvent(env *Environment) *Event {
	return &Event{env: env}
}

// Triggered reports whether the event has already fired.
func (ev *Event) Triggered() bool {
	ev.mu.Lock()
	defer ev.mu.Unlock()
	return ev.triggered
}

func (ev *Event) trigger(o Outcome) {
	ev.mu.Lock()
	if ev.triggered {
		ev.mu.Unlock()
		ev.env.fail(violation("double-trigger of a non-latched event"))
		return
	}
	ev.triggered = true
	ev.outcome = o
	cbs := ev.callbacks
	ev.callbacks = nil
	ev.mu.Unlock()
	for _, cb := range cbs {
		cb(o)
	}
}

// onTrigger registers cb to run when ev fires, or immediately if ev
// has already fired.
func (ev *Event) onTrigger(cb func(Outcome)) {
	ev.mu.Lock()
	if ev.triggered {
		o := ev.outcome
		ev.mu.Unlock()
		cb(o)
		return
	}
	ev.callbacks = append(ev.callbacks, cb)
	ev.mu.Unlock()
}

// Cancel abandons a not-yet-triggered event, removing it from whatever
// resource queue produced it (a no-op once the event has fired, or for
// events with no cancel function). WaitAny uses this to dequeue a
// losing branch instead of letting it be silently granted later.
func (ev *Event) Cancel() {
	ev.mu.Lock()
	if ev.triggered {
		ev.mu.Unlock()
		return
	}
	cancel := ev.cancelFn
	ev.cancelFn = nil
	ev.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// SetCancel attaches the cleanup a resource registers alongside a
// pending event (e.g. "remove me from the counter's FIFO queue").
// Exported so pkg/resource can build its own pending-request events.
func (ev *Event) SetCancel(cancel func()) {
	ev.mu.Lock()
	ev.cancelFn = cancel
	ev.mu.Unlock()
}

// NewEvent lets other packages (pkg/resource) mint events tied to this
// environment's clock and failure channel.
func (env *Environment) NewEvent() *Event { return newEvent(env) }

// Trigger fires ev with outcome o. Exported for pkg/resource, which
// owns the FIFO queues that decide when a pending Get/Acquire is
// granted.
func (env *Environment) Trigger(ev *Event, o Outcome) { ev.trigger(o) }

// heapItem is a single scheduled action, ordered by (time, seq) per
// spec.md §3's deterministic tie-break.
type heapItem struct {
	time   float64
	seq    uint64
	action func()
	index  int
}

type eventHeap []*heapItem

func (h eventHeap) Len() int { return len(h) }
func (h eventHeap) Less(i, j int) bool {
	if h[i].time != h[j].time {
		return h[i].time < h[j].time
	}
	return h[i].seq < h[j].seq
}
func (h eventHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index, h[j].index = i, j
}
func (h *eventHeap) Push(x any) {
	item := x.(*heapItem)
	item.index = len(*h)
	*h = append(*h, item)
}
func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

// Environment owns the virtual clock and the pending wake-up queue.
type Environment struct {
	mu     sync.Mutex
	now    float64
	seq    uint64
	heap   eventHeap
	procs  map[*Process]struct{}
	yield  chan struct{}
	fatal  error
	logger zerolog.Logger
}

// New creates an Environment with the virtual clock at zero.
func New(logger zerolog.Logger) *Environment {
	return &Environment{
		procs:  make(map[*Process]struct{}),
		yield:  make(chan struct{}),
		logger: logger,
	}
}

// Now returns the current virtual time.
func (env *Environment) Now() float64 {
	env.mu.Lock()
	defer env.mu.Unlock()
	return env.now
}

// QueueDepth reports the number of pending wake-ups, used by
// pkg/metrics to expose scheduler backlog.
func (env *Environment) QueueDepth() int {
	env.mu.Lock()
	defer env.mu.Unlock()
	return env.heap.Len()
}

func (env *Environment) nextSeq() uint64 {
	env.seq++
	return env.seq
}

func (env *Environment) schedule(delay float64, action func()) {
	if delay < 0 {
		env.fail(violation("negative-time delay %v", delay))
		return
	}
	env.mu.Lock()
	item := &heapItem{time: env.now + delay, seq: env.nextSeq(), action: action}
	heap.Push(&env.heap, item)
	env.mu.Unlock()
}

func (env *Environment) fail(err error) {
	env.mu.Lock()
	if env.fatal == nil {
		env.fatal = err
	}
	env.mu.Unlock()
}

// Schedule exposes the raw scheduling primitive for callers outside a
// process (e.g. the disk arbiter's break/repair timers, which fire
// independent of any single writer's wait).
func (env *Environment) Schedule(delay float64, fn func()) {
	env.schedule(delay, fn)
}

// resumeProcess is the sole path by which a parked process goroutine is
// handed the turn token back. gen must match the process's current
// wait generation or the resumption is stale (already resolved via a
// different branch of a WaitAny, or already interrupted) and is
// silently dropped — "a processed event never fires again" (spec.md
// §3). The actual channel handoff happens from inside the scheduler's
// Run loop (via the zero-delay schedule below), never inline from
// whichever process triggered the resumption, so the single-token
// invariant holds even when a Put() or Interrupt() call wakes a peer.
func (env *Environment) resumeProcess(p *Process, gen uint64, o Outcome) {
	p.mu.Lock()
	if p.waitGen != gen {
		p.mu.Unlock()
		return
	}
	p.waitGen++
	p.mu.Unlock()
	env.mu.Lock()
	_, owned := env.procs[p]
	env.mu.Unlock()
	if !owned {
		env.fail(violation("wake-up for a process the scheduler does not own"))
		return
	}
	env.schedule(0, func() {
		p.wake <- o
		<-env.yield
	})
}

// Process is a suspendable computation driven by the scheduler. It
// exposes exactly one operation to peers: Interrupt.
type Process struct {
	env        *Environment
	wake       chan Outcome
	done       *Event
	mu         sync.Mutex
	waitGen    uint64
	resumeFn   func(Outcome)
	cancelFn   func()
	interrupts []types.Cause
	inFlight   bool
	terminated bool
	err        error
}

// Done returns an event that fires when the process returns.
func (p *Process) Done() *Event { return p.done }

// Err returns the error the process function returned; valid once
// Done() has fired.
func (p *Process) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Interrupt schedules cause for delivery on the process's current (or
// next) suspension, per spec.md §4.1. Interrupts queue rather than
// coalesce: a process resumes with exactly one interrupt per
// suspension, and interrupts raised while the process is not currently
// suspended wait for its next one. Interrupting a terminated process
// is a no-op.
func (p *Process) Interrupt(cause types.Cause) {
	p.mu.Lock()
	if p.terminated {
		p.mu.Unlock()
		return
	}
	p.interrupts = append(p.interrupts, cause)
	deliverable := p.resumeFn != nil && !p.inFlight
	var resume func(Outcome)
	var cancel func()
	if deliverable {
		p.inFlight = true
		resume, cancel = p.resumeFn, p.cancelFn
		p.resumeFn, p.cancelFn = nil, nil
	}
	p.mu.Unlock()
	if !deliverable {
		return
	}
	if cancel != nil {
		cancel()
	}
	metrics.InterruptsDelivered.WithLabelValues(string(cause.Reason)).Inc()
	resume(Outcome{Interrupted: true, Cause: cause})
}

// ProcessFunc is the body of a cooperative process. It suspends by
// calling methods on ctx; returning ends the process.
type ProcessFunc func(ctx *Context) error

// Context is the handle a running process uses to suspend itself.
type Context struct {
	env  *Environment
	proc *Process
}

func (c *Context) Env() *Environment { return c.env }
func (c *Context) Process() *Process { return c.proc }
func (c *Context) Now() float64      { return c.env.Now() }

// Block is the single place a process gives up the turn token.
// register is handed a resume function and must return the cancel
// function for whatever it registered (nil if none). Block returns
// once the scheduler calls resume — possibly with an interrupt outcome
// instead of the thing actually being waited on. Exported so
// pkg/resource can build FIFO-queued primitives without this package
// needing to know about counters or mutexes.
func (c *Context) Block(register func(resume func(Outcome)) (cancel func())) Outcome {
	p := c.proc
	p.mu.Lock()
	if len(p.interrupts) > 0 {
		cause := p.interrupts[0]
		p.interrupts = p.interrupts[1:]
		p.mu.Unlock()
		return Outcome{Interrupted: true, Cause: cause}
	}
	p.waitGen++
	gen := p.waitGen
	p.mu.Unlock()

	resume := func(o Outcome) { c.env.resumeProcess(p, gen, o) }
	cancel := register(resume)

	p.mu.Lock()
	p.resumeFn, p.cancelFn = resume, cancel
	p.mu.Unlock()

	c.env.yield <- struct{}{}
	o := <-p.wake

	p.mu.Lock()
	p.resumeFn, p.cancelFn = nil, nil
	if p.inFlight {
		if len(p.interrupts) > 0 {
			p.interrupts = p.interrupts[1:]
		}
		p.inFlight = false
	}
	p.mu.Unlock()
	return o
}

// Timeout returns an event that fires after delay virtual seconds.
func (c *Context) Timeout(delay float64) *Event {
	ev := newEvent(c.env)
	c.env.schedule(delay, func() { ev.trigger(Outcome{OK: true}) })
	return ev
}

// Wait suspends until ev fires.
func (c *Context) Wait(ev *Event) Outcome {
	return c.Block(func(resume func(Outcome)) func() {
		ev.onTrigger(resume)
		return ev.Cancel
	})
}

// Sleep suspends for delay virtual seconds; equivalent to
// Wait(Timeout(delay)) but reads better at call sites.
func (c *Context) Sleep(delay float64) Outcome {
	return c.Wait(c.Timeout(delay))
}

// WaitAll suspends until every event in evs has fired (spec.md §4.1's
// conjunction).
func (c *Context) WaitAll(evs ...*Event) Outcome {
	if len(evs) == 0 {
		return Outcome{OK: true}
	}
	return c.Block(func(resume func(Outcome)) func() {
		remaining := len(evs)
		var mu sync.Mutex
		for _, ev := range evs {
			ev := ev
			ev.onTrigger(func(o Outcome) {
				mu.Lock()
				remaining--
				done := remaining == 0
				mu.Unlock()
				if done {
					resume(Outcome{OK: true})
				}
			})
		}
		return func() {
			for _, ev := range evs {
				ev.Cancel()
			}
		}
	})
}

// AnyResult is the outcome of a WaitAny: which child won, and its
// outcome.
type AnyResult struct {
	Index   int
	Outcome Outcome
}

// WaitAny suspends until the first event in evs fires (spec.md §4.1's
// disjunction). Every other child is then cancelled: a cancellable
// source (a pending counter/mutex request) is dequeued rather than
// silently granted into nothing, matching spec.md §4.3 step 4a's
// "abandon this attempt" requirement. Partial progress on the loser is
// not rolled back (spec.md §5) — only the registration is removed.
func (c *Context) WaitAny(evs ...*Event) AnyResult {
	type tagged struct {
		o   Outcome
		idx int
	}
	result := make(chan tagged, 1)
	o := c.Block(func(resume func(Outcome)) func() {
		var once sync.Once
		for i, ev := range evs {
			i, ev := i, ev
			ev.onTrigger(func(o Outcome) {
				once.Do(func() {
					select {
					case result <- tagged{o, i}:
					default:
					}
					resume(o)
				})
			})
		}
		return func() {
			for _, ev := range evs {
				ev.Cancel()
			}
		}
	})
	for _, ev := range evs {
		ev.Cancel() // no-op for the winner and any other already-fired child
	}
	select {
	case t := <-result:
		return AnyResult{Index: t.idx, Outcome: o}
	default:
		return AnyResult{Index: -1, Outcome: o}
	}
}

// Spawn registers fn as a new process, running it immediately until
// its first suspension (spec.md §4.1).
func (env *Environment) Spawn(fn ProcessFunc) *Process {
	p := &Process{env: env, wake: make(chan Outcome), done: newEvent(env)}
	env.mu.Lock()
	env.procs[p] = struct{}{}
	env.mu.Unlock()

	go func() {
		ctx := &Context{env: env, proc: p}
		err := fn(ctx)
		p.mu.Lock()
		p.terminated = true
		p.err = err
		p.mu.Unlock()
		env.mu.Lock()
		delete(env.procs, p)
		env.mu.Unlock()
		p.done.trigger(Outcome{OK: err == nil, Err: err})
		env.yield <- struct{}{}
	}()
	<-env.yield
	return p
}

// Run drains the wake-up queue in (time, sequence) order until the
// queue is empty, the next wake-up's time exceeds until, or sentinel
// (if non-nil) has fired. It returns the first InvariantViolation
// encountered, if any.
func (env *Environment) Run(until float64, sentinel *Event) error {
	for {
		env.mu.Lock()
		if env.fatal != nil {
			err := env.fatal
			env.mu.Unlock()
			return err
		}
		if env.heap.Len() == 0 {
			env.mu.Unlock()
			break
		}
		top := env.heap[0]
		if top.time > until {
			env.mu.Unlock()
			break
		}
		heap.Pop(&env.heap)
		if top.time < env.now {
			env.fatal = violation("wake-up scheduled in the past: %v < %v", top.time, env.now)
			err := env.fatal
			env.mu.Unlock()
			return err
		}
		env.now = top.time
		env.mu.Unlock()

		top.action()

		if sentinel != nil && sentinel.Triggered() {
			break
		}
	}
	env.mu.Lock()
	err := env.fatal
	env.mu.Unlock()
	return err
}

// RunForever runs until the queue drains completely.
func (env *Environment) RunForever() error {
	return env.Run(math.Inf(1), nil)
}

// RunUntilEvent runs until sentinel fires. If the queue drains first,
// the caller is responsible for treating that as incomplete (callers
// in pkg/cluster check sentinel.Triggered() afterwards).
func (env *Environment) RunUntilEvent(sentinel *Event) error {
	return env.Run(math.Inf(1), sentinel)
}
