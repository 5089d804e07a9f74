// Package cluster is the thin façade spec.md §6 names: it owns the
// scheduler environment, the switch, the namenode, and every datanode,
// and exposes the four operations a driver (cmd/hdfsim, or a test)
// actually calls — PutFiles, RegenerateBlocks, RunUntil/RunForever,
// and StartServices. Ported from the reference simulator's HDFS
// façade (create_hdfs, _put_file, start_services), generalized so a
// caller never touches pkg/scheduler, pkg/node, pkg/network,
// pkg/namenode, or pkg/pipeline directly.
package cluster

import (
	"fmt"
	"math/rand"

	"github.com/cuemby/hdfsim/pkg/config"
	"github.com/cuemby/hdfsim/pkg/metrics"
	"github.com/cuemby/hdfsim/pkg/namenode"
	"github.com/cuemby/hdfsim/pkg/network"
	"github.com/cuemby/hdfsim/pkg/node"
	"github.com/cuemby/hdfsim/pkg/pipeline"
	"github.com/cuemby/hdfsim/pkg/scheduler"
	"github.com/cuemby/hdfsim/pkg/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// clientID is the pseudo-node every pipeline write originates from,
// mirroring the reference's single shared "client" node.
const clientID = types.NodeID("client")

// namenodeID is the pseudo-node every datanode heartbeat and block
// report targets, mirroring the reference's namenode network
// presence (node.NameNode(env, "namenode", hdfs), added to the switch
// alongside the client).
const namenodeID = types.NodeID("namenode")

// Cluster owns every simulated component for one run: the scheduler
// environment, the switch, the namenode registry, and the datanodes
// themselves.
type Cluster struct {
	cfg    config.Config
	env    *scheduler.Environment
	sw     *network.Switch
	nn     *namenode.NameNode
	logger zerolog.Logger

	datanodeIDs []types.NodeID
	datanodes   map[types.NodeID]*node.Node

	fileCounter int

	// rng is the single random source this cluster shares between the
	// arbiter/ping back-off draw, regenerate_blocks' pair selection,
	// and the namenode's placement shuffle, seeded from cfg.Seed so a
	// run is reproducible end to end (spec.md §5).
	rng *rand.Rand
}

// NewCluster builds cfg.NumberOfDatanodes datanodes plus a client
// pseudo-node, wires them into one switch, and registers them with a
// fresh NameNode — spec.md §6's cluster-builder.
func NewCluster(cfg config.Config, logger zerolog.Logger) *Cluster {
	env := scheduler.New(logger)
	rng := rand.New(rand.NewSource(cfg.Seed))
	backoff := func() float64 { return rng.Float64() * cfg.ArbiterBackoffMax }
	sw := network.New(env, cfg.SwitchLatency, logger, backoff)

	client := node.New(env, clientID, node.Config{
		DiskSpeed:     cfg.DefaultDiskSpeed,
		Buffer:        cfg.DiskBuffer,
		NIC:           cfg.DefaultBandwidth,
		FlushInterval: cfg.BlockReportInterval,
		MemorySpeed:   cfg.MemorySpeed,
	}, logger, backoff)
	sw.AddNode(client)

	namenodeHost := node.New(env, namenodeID, node.Config{
		DiskSpeed:     cfg.DefaultDiskSpeed,
		Buffer:        cfg.DiskBuffer,
		NIC:           cfg.DefaultBandwidth,
		FlushInterval: cfg.BlockReportInterval,
		MemorySpeed:   cfg.MemorySpeed,
	}, logger, backoff)
	sw.AddNode(namenodeHost)

	datanodeIDs := make([]types.NodeID, 0, cfg.NumberOfDatanodes)
	datanodes := make(map[types.NodeID]*node.Node, cfg.NumberOfDatanodes)
	for i := 0; i < cfg.NumberOfDatanodes; i++ {
		id := types.NodeID(fmt.Sprintf("datanode-%s", uuid.New().String()))
		dn := node.New(env, id, node.Config{
			DiskSpeed:     cfg.DefaultDiskSpeed,
			Buffer:        cfg.DiskBuffer,
			NIC:           cfg.DefaultBandwidth,
			FlushInterval: cfg.BlockReportInterval,
			MemorySpeed:   cfg.MemorySpeed,
		}, logger, backoff)
		sw.AddNode(dn)
		dn.StartFlushLoop()
		datanodeIDs = append(datanodeIDs, id)
		datanodes[id] = dn
	}

	nn := namenode.New(datanodeIDs, rng)

	return &Cluster{
		cfg:         cfg,
		env:         env,
		sw:          sw,
		nn:          nn,
		logger:      logger.With().Str("component", "cluster").Logger(),
		datanodeIDs: datanodeIDs,
		datanodes:   datanodes,
		rng:         rng,
	}
}

// NameNode exposes the cluster's registry, for callers that want to
// inspect placement/registration directly (tests, reporting).
func (c *Cluster) NameNode() *namenode.NameNode { return c.nn }

// ConfigurationError marks a misconfigured cluster-level operation:
// starting services with no datanodes, matching spec.md §7's
// taxonomy.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("cluster: configuration error: %s", e.Reason)
}

// StartServices spawns heartbeat and block-report loops on every
// datanode, subject to cfg.EnableHeartbeats/cfg.EnableBlockReport. A
// cluster with no datanodes logs a ConfigurationError and skips both,
// rather than aborting — spec.md §7's "service skipped, rest of the
// simulation continues" policy.
func (c *Cluster) StartServices() {
	if len(c.datanodeIDs) == 0 {
		c.logger.Error().Err(&ConfigurationError{Reason: "no datanodes registered"}).Msg("cannot start services")
		return
	}
	if c.cfg.EnableHeartbeats {
		for _, id := range c.datanodeIDs {
			c.sw.StartHeartbeat(id, namenodeID, c.cfg.HeartbeatSize, c.cfg.HeartbeatInterval)
		}
		c.logger.Info().Msg("heartbeats started")
	}
	if c.cfg.EnableBlockReport {
		for _, id := range c.datanodeIDs {
			c.sw.StartHeartbeat(id, namenodeID, c.cfg.BlockSize, c.cfg.BlockReportInterval)
		}
		c.logger.Info().Msg("block reports started")
	}
}

// PutFiles drives count file writes of size bytes each from the
// client through the full replicated pipeline, runs the simulation
// until every one completes, and returns the virtual completion time.
func (c *Cluster) PutFiles(count int, size float64) (float64, error) {
	writes := make([]*pipeline.Write, 0, count)
	for i := 0; i < count; i++ {
		c.fileCounter++
		name := types.FileName(fmt.Sprintf("file-%d", c.fileCounter))
		sequence := c.nodeSequenceForNewFile(name, size)
		writes = append(writes, pipeline.Run(c.env, c.sw, c.nn, name, sequence, size, c.cfg.ClientWritePacketSize, pipeline.Options{
			DatanodeCache: c.cfg.EnableDatanodeCache,
			Throttle:      -1,
		}))
	}

	events := make([]*scheduler.Event, len(writes))
	for i, w := range writes {
		events[i] = w.Done()
	}
	allDone := c.env.Spawn(func(ctx *scheduler.Context) error {
		ctx.WaitAll(events...)
		return nil
	}).Done()
	if err := c.env.RunUntilEvent(allDone); err != nil {
		return 0, err
	}
	if !allDone.Triggered() {
		return 0, fmt.Errorf("cluster: put_files: event queue drained before every write completed")
	}
	for _, w := range writes {
		if err := w.Err(); err != nil {
			return 0, fmt.Errorf("cluster: put_files: %w", err)
		}
	}
	return c.env.Now(), nil
}

func (c *Cluster) nodeSequenceForNewFile(name types.FileName, size float64) []types.NodeID {
	replicas := c.nn.FindDatanodesForNewFile(name, int64(size), c.cfg.ReplicaNumber)
	sequence := make([]types.NodeID, 0, len(replicas)+1)
	sequence = append(sequence, clientID)
	sequence = append(sequence, replicas...)
	return sequence
}

// RegenerateBlocks generates count pairs of distinct datanodes
// uniformly at random without replacement per pair, replicates one
// block-sized transfer per pair capped at the balance bandwidth, runs
// the simulation until every transfer completes, and returns the
// virtual completion time. Block-placement randomness: each pair is
// drawn independently of actual block placement (spec.md §9 "preserves
// this as-is").
func (c *Cluster) RegenerateBlocks(count int) (float64, error) {
	if len(c.datanodeIDs) < 2 {
		return 0, &ConfigurationError{Reason: "regenerate_blocks needs at least two datanodes"}
	}

	writes := make([]*pipeline.Write, 0, count)
	for i := 0; i < count; i++ {
		src, dst := c.randomDistinctPair()
		name := types.FileName(fmt.Sprintf("block-%s", uuid.New().String()))
		writes = append(writes, pipeline.Run(c.env, c.sw, c.nn, name, []types.NodeID{src, dst}, c.cfg.BlockSize, c.cfg.BlockSize, pipeline.Options{
			DatanodeCache: c.cfg.EnableDatanodeCache,
			Throttle:      c.cfg.BalanceBandwidth,
		}))
	}

	events := make([]*scheduler.Event, len(writes))
	for i, w := range writes {
		events[i] = w.Done()
	}
	allDone := c.env.Spawn(func(ctx *scheduler.Context) error {
		ctx.WaitAll(events...)
		return nil
	}).Done()
	if err := c.env.RunUntilEvent(allDone); err != nil {
		return 0, err
	}
	if !allDone.Triggered() {
		return 0, fmt.Errorf("cluster: regenerate_blocks: event queue drained before every transfer completed")
	}
	for _, w := range writes {
		if err := w.Err(); err != nil {
			return 0, fmt.Errorf("cluster: regenerate_blocks: %w", err)
		}
	}
	return c.env.Now(), nil
}

func (c *Cluster) randomDistinctPair() (types.NodeID, types.NodeID) {
	i := c.rng.Intn(len(c.datanodeIDs))
	j := c.rng.Intn(len(c.datanodeIDs) - 1)
	if j >= i {
		j++
	}
	return c.datanodeIDs[i], c.datanodeIDs[j]
}

// RunUntil starts services and advances the clock to virtual time t.
func (c *Cluster) RunUntil(t float64) error {
	c.StartServices()
	return c.env.Run(t, nil)
}

// RunForever starts services and runs until the event queue drains
// completely.
func (c *Cluster) RunForever() error {
	c.StartServices()
	return c.env.RunForever()
}

// Now returns the cluster's current virtual time.
func (c *Cluster) Now() float64 { return c.env.Now() }

// Schedule runs fn once delay virtual seconds from now, for callers
// that need to stagger an operation below the PutFiles/RegenerateBlocks
// level (spec.md §8 scenario 6's staggered direct writes).
func (c *Cluster) Schedule(delay float64, fn func()) { c.env.Schedule(delay, fn) }

// Datanode looks up a registered datanode by ID, or nil if unknown.
func (c *Cluster) Datanode(id types.NodeID) *node.Node { return c.datanodes[id] }

// Datanodes returns every registered datanode ID.
func (c *Cluster) Datanodes() []types.NodeID {
	cp := make([]types.NodeID, len(c.datanodeIDs))
	copy(cp, c.datanodeIDs)
	return cp
}

// ExportMetrics snapshots the cluster's point-in-time gauges —
// virtual clock, scheduler queue depth, and every datanode's disk/NIC
// occupancy — into pkg/metrics. Safe to call from a real (non-
// scheduler) goroutine polling cmd/hdfsim's --metrics-addr server
// concurrently with a running simulation: every value it reads
// (Environment.Now/QueueDepth, Counter.Level/Capacity,
// Node.ActiveWriters) is mutex-guarded independently of the
// scheduler's cooperative turn model.
func (c *Cluster) ExportMetrics() {
	metrics.VirtualClock.Set(c.env.Now())
	metrics.SchedulerQueueDepth.Set(float64(c.env.QueueDepth()))

	for _, id := range c.datanodeIDs {
		dn := c.datanodes[id]
		label := string(id)

		metrics.ActiveDiskWriters.WithLabelValues(label).Set(float64(dn.ActiveWriters()))

		if capacity := dn.DiskSpeed.Capacity(); capacity > 0 {
			metrics.DiskUtilization.WithLabelValues(label).Set(1 - dn.DiskSpeed.Level()/capacity)
		}
		if capacity := dn.NIC.Capacity(); capacity > 0 {
			metrics.NICUtilization.WithLabelValues(label).Set(1 - dn.NIC.Level()/capacity)
		}
	}
}
