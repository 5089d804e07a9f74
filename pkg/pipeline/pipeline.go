// Package pipeline implements the replicated-write pipeline: a file is
// partitioned into client packets, each packet walks a node sequence
// hop by hop (ping then disk write), and the write as a whole
// completes when every packet's pipeline has acknowledged. Ported from
// the reference simulator's HDFS._put_file/_replicate_file, split out
// of the monolithic HDFS façade into a standalone function over
// pkg/network and pkg/node so pkg/cluster can drive it directly.
package pipeline

import (
	"fmt"
	"math"

	"github.com/cuemby/hdfsim/pkg/metrics"
	"github.com/cuemby/hdfsim/pkg/namenode"
	"github.com/cuemby/hdfsim/pkg/network"
	"github.com/cuemby/hdfsim/pkg/node"
	"github.com/cuemby/hdfsim/pkg/scheduler"
	"github.com/cuemby/hdfsim/pkg/types"
)

// Options bundles the per-write knobs spec.md §4.6 names.
type Options struct {
	// DatanodeCache selects a buffered (write-back) write on every
	// datanode hop when true, a direct disk write otherwise.
	DatanodeCache bool

	// Throttle caps every hop's network rate when >= 0; pass a
	// negative value for an unthrottled transfer. Only regeneration
	// traffic (balance_bandwidth) ever sets this — the plain write
	// path is always unthrottled.
	Throttle float64
}

// Write is a handle to an in-flight replicated write: the conjunction
// of every packet-pipeline process.
type Write struct {
	proc *scheduler.Process
}

// Done returns an event that fires once every packet has been
// acknowledged by its final replica hop.
func (w *Write) Done() *scheduler.Event { return w.proc.Done() }

// Err returns the first packet-pipeline error encountered, if any,
// valid once Done() has fired.
func (w *Write) Err() error { return w.proc.Err() }

// Run spawns the replicated-write pipeline for a file of size bytes
// along nodeSequence = [n0, n1, ..., nR] (n0 the sender, n1..nR the R
// replica datanodes), partitioned into packets of at most packetSize
// bytes each. On completion it registers fileName in nn with the
// datanode subsequence (n1..nR, excluding the sender).
func Run(env *scheduler.Environment, sw *network.Switch, nn *namenode.NameNode, fileName types.FileName, nodeSequence []types.NodeID, size, packetSize float64, opts Options) *Write {
	proc := env.Spawn(func(ctx *scheduler.Context) error {
		return runPipeline(ctx, sw, nn, fileName, nodeSequence, size, packetSize, opts)
	})
	return &Write{proc: proc}
}

func runPipeline(ctx *scheduler.Context, sw *network.Switch, nn *namenode.NameNode, fileName types.FileName, nodeSequence []types.NodeID, size, packetSize float64, opts Options) (err error) {
	startedAt := ctx.Env().Now()
	defer func() {
		outcome := "success"
		if err != nil {
			outcome = "failure"
		}
		metrics.PipelineWritesCompleted.WithLabelValues(outcome).Inc()
		metrics.PipelineWriteDuration.Observe(ctx.Env().Now() - startedAt)
	}()

	if len(nodeSequence) < 2 {
		return fmt.Errorf("pipeline: node sequence must have at least a sender and one replica, got %d", len(nodeSequence))
	}

	numPackets := int(math.Ceil(size / packetSize))
	packets := make([]*scheduler.Process, 0, numPackets)

	sent := 0.0
	for i := 0; i < numPackets; i++ {
		packetBytes := math.Min(packetSize, size-sent)
		sent += packetBytes

		proc := ctx.Env().Spawn(func(pctx *scheduler.Context) error {
			return runPacket(pctx, sw, nodeSequence, packetBytes, opts)
		})
		packets = append(packets, proc)
	}

	events := make([]*scheduler.Event, len(packets))
	for i, p := range packets {
		events[i] = p.Done()
	}
	ctx.WaitAll(events...)

	for _, p := range packets {
		if err := p.Err(); err != nil {
			return fmt.Errorf("pipeline: packet failed: %w", err)
		}
	}

	nn.RegisterFile(fileName, nodeSequence[1:])
	return nil
}

func runPacket(ctx *scheduler.Context, sw *network.Switch, nodeSequence []types.NodeID, size float64, opts Options) error {
	for j := 0; j < len(nodeSequence)-1; j++ {
		from, to := nodeSequence[j], nodeSequence[j+1]

		xfer := sw.Ping(from, to, size, opts.Throttle)
		ctx.Wait(xfer.Done())
		if err := xfer.Err(); err != nil {
			return err
		}

		dst := sw.Node(to)
		if dst == nil {
			return &network.ConfigurationError{Reason: fmt.Sprintf("pipeline: unknown destination node %q", to)}
		}

		var write *node.Write
		if opts.DatanodeCache {
			write = dst.NewBufferedWrite(size)
		} else {
			write = dst.NewDiskWrite(size)
		}
		ctx.Wait(write.Done())
		if err := write.Err(); err != nil {
			return err
		}
	}
	return nil
}
