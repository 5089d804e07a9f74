/*
Package scheduler provides hdfsim's virtual-time discrete-event core.

Every other package in this module (disk arbitration, network pings,
replication pipelines, namenode bookkeeping) is built as a set of
Processes driven by a single Environment. The scheduler owns the clock;
nothing else is allowed to advance it.

# Architecture

An Environment holds a monotonic virtual clock and a priority queue of
pending wake-ups, ordered by (time, sequence):

	┌────────────────────────────────────────────────────────────┐
	│                      Environment                           │
	│   now: float64        heap: []*heapItem (time, seq)        │
	└────────────────┬─────────────────────────────────────────┬─┘
	                 │                                         │
	                 ▼                                         ▼
	          Spawn(fn) -> *Process                    Run(until, sentinel)
	                 │                                   pops earliest item,
	                 ▼                                   advances now, runs
	          runs fn on its own                         its action, repeats
	          goroutine until the
	          first suspension

Processes never run concurrently with each other or with the Run loop
that drives them, even though each one is a real goroutine. A single
"turn token" is passed hand-to-hand over unbuffered channels
(Environment.yield and Process.wake): a process blocks on Context.Block
until the scheduler's Run loop explicitly hands it the token back, and
it hands the token to Run before doing anything else. This gives every
other package in this module an implicit single-threaded execution
model to write against, while still letting Spawn use goroutines and
real stacks instead of a hand-written continuation/coroutine scheme.

# Suspension

Context.Block is the only place a process gives up the turn. Timeout,
Wait, WaitAll, and WaitAny are all built on it:

  - Timeout(d) returns an *Event that fires d virtual seconds from now.
  - Wait(ev) suspends until ev fires.
  - WaitAll(evs...) suspends until every event in evs has fired — the
    conjunction used by a replicated write's packet pipelines.
  - WaitAny(evs...) suspends until the first event fires, then cancels
    every other branch — the disjunction a disk write uses to race a
    capacity grant against a contention timeout.

pkg/resource builds Counter, Mutex, and Latch on top of Event rather
than this package knowing anything about bytes, locks, or disks.

# Interrupts

A process can be interrupted by a peer at any time via Process.Interrupt.
If the process is currently suspended, the interrupt is delivered in
place of whatever it was waiting for; if not, it is queued and
delivered at the process's next suspension. A process never receives
more than one interrupt per suspension, and interrupts never coalesce
— queued interrupts are delivered one per Block call, oldest first.

# Failure

A small set of conditions are fatal to the whole simulation rather
than local to one process: a wake-up scheduled in the past, a
double-trigger of a non-latched event, or a negative-delay schedule.
These surface as *InvariantViolation from Run, which every caller in
pkg/cluster treats as unrecoverable.

# See Also

  - pkg/resource - Counter, Mutex, and Latch built on Event
  - pkg/node - the disk arbiter and buffered write path
  - pkg/cluster - Run/RunUntil entry points used by the simulated CLI
*/
package scheduler
