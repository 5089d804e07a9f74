// Package node ports the reference simulator's per-node disk/buffer/NIC
// model and its fair-share arbiter onto pkg/scheduler and pkg/resource.
//
// A writer's life cycle (NewDiskWrite):
//
//	wait disk-alive -> release held share -> compute ideal share ->
//	race a short Get against a contention deadline -> sleep to ETA ->
//	on interrupt, credit partial bytes and loop -> on completion, clean
//	up and release peers to recompute
//
// Two writers never observe the disk counter's level as exceeding its
// capacity or going negative; interrupting peers on arrival/departure
// is what reallocates share without a central controller.
package node
