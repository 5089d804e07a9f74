// Package types holds the small shared vocabulary used across hdfsim's
// simulation packages: node/file identifiers and the interrupt-cause
// reasons exchanged between the scheduler and the disk arbiter / switch.
//
// Keeping these in one leaf package (instead of letting every package
// invent its own string-typed ID) avoids an import cycle between
// pkg/scheduler, pkg/node, pkg/network and pkg/namenode, which all need
// to refer to a node or a cause reason without depending on each other.
package types

// NodeID identifies a node (client, datanode, or namenode) within a
// cluster. Nodes are looked up by this value in a Switch's routing
// table and a NameNode's datanode registry.
type NodeID string

// FileName identifies a file tracked by the NameNode.
type FileName string

// Reason names why a process interrupted a peer. The disk arbiter and
// the break/repair protocol only ever use the three values below; the
// type stays a plain string (not an enum) because interrupt causes are
// opaque payloads as far as the scheduler is concerned (spec.md §4.1).
type Reason string

const (
	// ReasonNeedsDisk is raised by a writer that could not acquire its
	// ideal share and is asking every other active writer on the disk
	// to release and re-request (fair-share arbiter step 5).
	ReasonNeedsDisk Reason = "needs disk"

	// ReasonRelease is raised by a writer leaving the active set so
	// the remaining writers recompute their share (arbiter step 6).
	ReasonRelease Reason = "release"

	// ReasonBroken is raised against every active writer on a disk
	// that just transitioned to the not-alive state.
	ReasonBroken Reason = "broken"
)

// Cause is the payload carried by a scheduler interrupt. Time is the
// virtual instant the interrupt was raised, which disk-write
// descriptors use to compute exactly how many bytes were written
// before the interruption (spec.md §4.3 step 4d).
type Cause struct {
	Reason Reason
	Time   float64
}
