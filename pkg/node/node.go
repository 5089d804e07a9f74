// Package node implements one storage peer: its disk, write-back
// buffer, and NIC as resource.Counters, and the fair-share disk
// arbiter that dynamically re-partitions the disk's throughput across
// however many writers are currently active. Ported from the
// reference simulator's Node.create_disk_write_event, generalized from
// a single hardcoded disk-write driver into a reusable per-node API
// any number of callers (the replication pipeline, direct tests, the
// CLI) can drive concurrently.
package node

import (
	"math"
	"sync"

	"github.com/cuemby/hdfsim/pkg/resource"
	"github.com/cuemby/hdfsim/pkg/scheduler"
	"github.com/cuemby/hdfsim/pkg/types"
	"github.com/rs/zerolog"
)

// diskContentionDeadline is the short race window (Δ) a writer gives
// a disk Get before treating it as contention and backing off.
const diskContentionDeadline = 0.01

// Config bundles the per-node resource capacities and timing
// constants a Node is built from.
type Config struct {
	DiskSpeed     float64
	Buffer        float64
	NIC           float64
	FlushInterval float64
	MemorySpeed   float64
}

type writer struct {
	id   int
	proc *scheduler.Process
}

// Write is a handle to an in-flight disk or buffered write on a Node.
type Write struct {
	proc *scheduler.Process
}

// Done returns an event that fires when the write completes.
func (w *Write) Done() *scheduler.Event { return w.proc.Done() }

// Err returns the error the write's process returned, valid once
// Done() has fired.
func (w *Write) Err() error { return w.proc.Err() }

// Node is one HDFS-like storage peer. Its disk, buffer, and NIC are
// resource.Counters; writes compete for the disk through the
// fair-share arbiter implemented by NewDiskWrite.
type Node struct {
	ID types.NodeID

	DiskSpeed  *resource.Counter
	Buffer     *resource.Counter
	NIC        *resource.Counter
	MemCtl     *resource.Mutex
	DiskAlive  *resource.Latch
	BufferFull *resource.Latch

	FlushInterval float64
	MemorySpeed   float64

	env     *scheduler.Environment
	logger  zerolog.Logger
	backoff func() float64

	nextEventID int
	writersMu   sync.Mutex
	writers     map[int]*writer
	order       []int
}

// New creates a Node with its disk alive and its buffer empty (free
// space at capacity). backoff supplies the arbiter's randomized
// back-off draw; pass nil for the default uniform[0,1) generator, or
// a fixed-sequence stub in tests that need deterministic settling.
func New(env *scheduler.Environment, id types.NodeID, cfg Config, logger zerolog.Logger, backoff func() float64) *Node {
	if backoff == nil {
		backoff = defaultBackoff()
	}
	return &Node{
		ID:            id,
		DiskSpeed:     resource.NewCounter(env, cfg.DiskSpeed),
		Buffer:        resource.NewCounter(env, cfg.Buffer),
		NIC:           resource.NewCounter(env, cfg.NIC),
		MemCtl:        resource.NewMutex(env),
		DiskAlive:     resource.NewLatch(env, true),
		BufferFull:    resource.NewLatch(env, false),
		FlushInterval: cfg.FlushInterval,
		MemorySpeed:   cfg.MemorySpeed,
		env:           env,
		logger:        logger.With().Str("node", string(id)).Logger(),
		backoff:       backoff,
		writers:       make(map[int]*writer),
	}
}

// NewDiskWrite spawns the fair-share arbiter protocol for a direct
// (unbuffered) write of totalBytes to this node's disk.
func (n *Node) NewDiskWrite(totalBytes float64) *Write {
	proc := n.env.Spawn(func(ctx *scheduler.Context) error {
		return n.runDiskWrite(ctx, totalBytes)
	})
	return &Write{proc: proc}
}

func (n *Node) addWriter(id int, proc *scheduler.Process) {
	n.writersMu.Lock()
	defer n.writersMu.Unlock()
	n.writers[id] = &writer{id: id, proc: proc}
	n.order = append(n.order, id)
}

func (n *Node) removeWriter(id int) {
	n.writersMu.Lock()
	defer n.writersMu.Unlock()
	delete(n.writers, id)
	for i, wid := range n.order {
		if wid == id {
			n.order = append(n.order[:i], n.order[i+1:]...)
			break
		}
	}
}

func (n *Node) activeWriterCount() int {
	n.writersMu.Lock()
	defer n.writersMu.Unlock()
	return len(n.writers)
}

// ActiveWriters reports the number of writers currently contending for
// this node's disk, for pkg/metrics' gauge exporter.
func (n *Node) ActiveWriters() int { return n.activeWriterCount() }

// interruptActiveWriters delivers cause to every active writer except
// exceptID (pass 0, never a real writer id, to except none — used by
// the disk-wide break/repair calls which have no "self" to exclude),
// in insertion order, matching spec's "iteration order when
// interrupting peers is insertion order."
func (n *Node) interruptActiveWriters(exceptID int, cause types.Cause) {
	n.writersMu.Lock()
	order := make([]int, len(n.order))
	copy(order, n.order)
	writers := make(map[int]*writer, len(n.writers))
	for k, v := range n.writers {
		writers[k] = v
	}
	n.writersMu.Unlock()

	for _, wid := range order {
		if wid == exceptID {
			continue
		}
		if w, ok := writers[wid]; ok && w.proc != nil {
			w.proc.Interrupt(cause)
		}
	}
}

func (n *Node) runDiskWrite(ctx *scheduler.Context, totalBytes float64) error {
	n.nextEventID++
	id := n.nextEventID
	n.addWriter(id, ctx.Process())

	written := 0.0
	speed := 0.0

	defer func() {
		n.removeWriter(id)
		if speed > 0 {
			n.DiskSpeed.Put(speed)
		}
		n.interruptActiveWriters(id, types.Cause{Reason: types.ReasonRelease, Time: ctx.Now()})
	}()

	for written < totalBytes {
		if o := ctx.Wait(n.DiskAlive.Wait()); o.Interrupted {
			continue
		}

		if speed > 0 {
			idle := n.DiskSpeed.Level()
			capacity := n.DiskSpeed.Capacity()
			if idle < capacity {
				released := math.Min(speed, capacity-idle)
				n.DiskSpeed.Put(released)
				speed -= released
			}
		}

		active := n.activeWriterCount()
		ideal := math.Floor(n.DiskSpeed.Capacity() / float64(active))
		idle := n.DiskSpeed.Level()

		if ideal <= idle {
			getEv := n.DiskSpeed.Get(ideal)
			deadline := ctx.Timeout(diskContentionDeadline)
			res := ctx.WaitAny(getEv, deadline)
			if res.Outcome.Interrupted {
				continue
			}
			if res.Index != 0 {
				// deadline fired first: contention, abandon this attempt
				continue
			}

			speed = ideal
			start := ctx.Now()
			eta := (totalBytes - written) / speed
			o := ctx.Sleep(eta)
			if o.Interrupted {
				written += speed * (o.Cause.Time - start)
				continue
			}
			written = totalBytes
			break
		}

		ctx.Sleep(n.backoff()) // interrupts during back-off are swallowed
		n.interruptActiveWriters(id, types.Cause{Reason: types.ReasonNeedsDisk, Time: ctx.Now()})
	}

	return nil
}

// BreakDisk schedules the disk to fail after delay virtual seconds:
// DiskAlive is un-latched and every active writer is interrupted with
// a "broken" cause, looping them back to waiting on the latch.
func (n *Node) BreakDisk(delay float64) {
	n.env.Schedule(delay, func() {
		n.DiskAlive.Set(false)
		n.interruptActiveWriters(0, types.Cause{Reason: types.ReasonBroken, Time: n.env.Now()})
	})
}

// RepairDisk re-triggers DiskAlive after delay virtual seconds.
// Writers parked on the latch resume and re-enter the arbiter loop,
// keeping whatever bytes they had already written.
func (n *Node) RepairDisk(delay float64) {
	n.env.Schedule(delay, func() {
		n.DiskAlive.Set(true)
	})
}

// NewBufferedWrite spawns a write-back writer: it copies totalBytes
// into the node's buffer, one memory-controller-held chunk at a time,
// and returns (its Done() event fires) once every byte has been
// copied — well before the bytes are actually flushed to disk by
// FlushLoop. This is what pkg/pipeline spawns on a datanode when the
// cluster's datanode cache is enabled.
func (n *Node) NewBufferedWrite(totalBytes float64) *Write {
	proc := n.env.Spawn(func(ctx *scheduler.Context) error {
		return n.runBufferedWrite(ctx, totalBytes)
	})
	return &Write{proc: proc}
}

func (n *Node) runBufferedWrite(ctx *scheduler.Context, totalBytes float64) error {
	written := 0.0
	for written < totalBytes {
		if o := ctx.Wait(n.MemCtl.Acquire()); o.Interrupted {
			continue
		}

		level := n.Buffer.Level()
		if level == 0 {
			n.MemCtl.Release()
			ctx.Sleep(n.backoff())
			continue
		}

		chunk := math.Min(totalBytes-written, level)
		ctx.Wait(n.Buffer.Get(chunk)) // immediate: chunk <= level by construction
		ctx.Sleep(chunk / n.MemorySpeed)
		written += chunk
		if n.Buffer.Level() == 0 {
			n.BufferFull.Set(true)
		}
		n.MemCtl.Release()
	}
	return nil
}

// StartFlushLoop spawns the background process that drains the
// buffer to disk whenever it fills or the flush interval elapses,
// whichever comes first. The flush assumes exclusive disk use — a
// known simplification carried over from the reference simulator
// (see spec's design notes): the flush does not compete through
// NewDiskWrite's arbiter. The returned process runs until the
// environment itself stops draining events; there is no explicit
// stop call, matching the reference's unbounded background loop.
func (n *Node) StartFlushLoop() *scheduler.Process {
	return n.env.Spawn(func(ctx *scheduler.Context) error {
		return n.flushLoop(ctx)
	})
}

func (n *Node) flushLoop(ctx *scheduler.Context) error {
	for {
		res := ctx.WaitAny(n.BufferFull.Wait(), ctx.Timeout(n.FlushInterval))
		if res.Outcome.Interrupted {
			continue
		}

		used := n.Buffer.Capacity() - n.Buffer.Level()
		if used > 0 {
			ctx.Sleep(used / n.DiskSpeed.Capacity())
			n.Buffer.Put(used)
		}
		n.BufferFull.Set(false)
	}
}
