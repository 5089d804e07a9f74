// Package network implements the per-hop bandwidth transfer every
// pipeline hop and heartbeat rides on: a Switch holding a routing
// table of nodes, and a ping algorithm that claims a matched rate from
// both endpoints' NIC counters, atomically, then holds it for the
// transfer's duration. Ported from the reference simulator's
// Switch._ping and Switch.heartbeat_ping.
package network

import (
	"fmt"
	"math"

	"github.com/cuemby/hdfsim/pkg/node"
	"github.com/cuemby/hdfsim/pkg/scheduler"
	"github.com/cuemby/hdfsim/pkg/types"
	"github.com/rs/zerolog"
)

// heartbeatKey identifies a registered heartbeat loop by its
// (source, destination) pair, per spec's "registry of active
// heartbeat jobs keyed by (source, destination)."
type heartbeatKey struct {
	src, dst types.NodeID
}

// Switch is the routing table every node transfer goes through.
type Switch struct {
	env     *scheduler.Environment
	logger  zerolog.Logger
	latency float64
	backoff func() float64

	nodes      map[types.NodeID]*node.Node
	heartbeats map[heartbeatKey]struct{}
}

// New creates a Switch with the given fixed per-hop latency.
func New(env *scheduler.Environment, latency float64, logger zerolog.Logger, backoff func() float64) *Switch {
	if backoff == nil {
		backoff = func() float64 { return 0.5 }
	}
	return &Switch{
		env:        env,
		logger:     logger.With().Str("component", "network").Logger(),
		latency:    latency,
		backoff:    backoff,
		nodes:      make(map[types.NodeID]*node.Node),
		heartbeats: make(map[heartbeatKey]struct{}),
	}
}

// AddNode registers n with the switch's routing table.
func (s *Switch) AddNode(n *node.Node) {
	s.nodes[n.ID] = n
}

// Node looks up a registered node, or nil if unknown.
func (s *Switch) Node(id types.NodeID) *node.Node {
	return s.nodes[id]
}

// Transfer is a handle to an in-flight ping.
type Transfer struct {
	proc *scheduler.Process
}

// Done returns an event that fires when the transfer completes.
func (t *Transfer) Done() *scheduler.Event { return t.proc.Done() }

// Err returns the error the transfer's process returned, valid once
// Done() has fired.
func (t *Transfer) Err() error { return t.proc.Err() }

// Ping spawns a transfer of size bytes from src to dst. throttle, if
// >= 0, caps the rate claimed on every retry — the knob
// pkg/pipeline's regeneration traffic uses; pass a negative value for
// an unthrottled transfer.
func (s *Switch) Ping(src, dst types.NodeID, size, throttle float64) *Transfer {
	proc := s.env.Spawn(func(ctx *scheduler.Context) error {
		return s.runPing(ctx, src, dst, size, throttle)
	})
	return &Transfer{proc: proc}
}

func (s *Switch) runPing(ctx *scheduler.Context, src, dst types.NodeID, size, throttle float64) error {
	from, ok := s.nodes[src]
	if !ok {
		return &ConfigurationError{Reason: fmt.Sprintf("ping: unknown source node %q", src)}
	}
	to, ok := s.nodes[dst]
	if !ok {
		return &ConfigurationError{Reason: fmt.Sprintf("ping: unknown destination node %q", dst)}
	}

	sent := 0.0
	for sent < size {
		rate := math.Min(from.NIC.Level(), to.NIC.Level())
		if throttle >= 0 {
			rate = math.Min(rate, throttle)
		}

		if rate == 0 {
			ctx.Sleep(s.backoff())
			continue
		}

		// Atomic two-counter get: within a single cooperative turn no
		// other process can have changed either level between the
		// rate computation above and these two TryGets, so a plain
		// check-and-decrement pair is equivalent to a true joint
		// acquisition (spec §4.2's "either both decrements occur at
		// the same instant or neither does").
		if !from.NIC.TryGet(rate) {
			continue
		}
		if !to.NIC.TryGet(rate) {
			from.NIC.Put(rate)
			continue
		}

		ctx.Sleep(s.latency)
		waitTime := (size - sent) / rate
		ctx.Sleep(waitTime)
		ctx.Sleep(s.latency)

		from.NIC.Put(rate)
		to.NIC.Put(rate)
		sent += waitTime * rate
	}
	return nil
}

// StartHeartbeat registers a (src, dst) keyed loop that pings size
// bytes every interval virtual seconds. StopHeartbeat removes the
// registry entry, which the loop checks before each iteration.
func (s *Switch) StartHeartbeat(src, dst types.NodeID, size, interval float64) *scheduler.Process {
	key := heartbeatKey{src: src, dst: dst}
	s.heartbeats[key] = struct{}{}
	return s.env.Spawn(func(ctx *scheduler.Context) error {
		for {
			if _, active := s.heartbeats[key]; !active {
				return nil
			}
			s.Ping(src, dst, size, -1)
			ctx.Sleep(interval)
		}
	})
}

// StopHeartbeat removes a (src, dst) heartbeat's registry entry; the
// loop observes this at its next iteration and exits.
func (s *Switch) StopHeartbeat(src, dst types.NodeID) {
	delete(s.heartbeats, heartbeatKey{src: src, dst: dst})
}

// ConfigurationError marks a misconfiguration a transfer hit (an
// unknown node id): the transfer ends without sending anything and
// reports it through Transfer.Err, while the rest of the simulation
// keeps running.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("network: configuration error: %s", e.Reason)
}
