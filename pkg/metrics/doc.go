// Package metrics exposes hdfsim's Prometheus instrumentation: a
// handful of gauges tracking the simulator's point-in-time state
// (virtual clock, scheduler backlog, per-node disk/NIC occupancy) and
// counters/histograms tracking cumulative activity (files registered,
// interrupts delivered, pipeline writes completed and their virtual
// duration).
//
// These metrics are observability only — nothing in pkg/scheduler,
// pkg/node, pkg/network, pkg/namenode, or pkg/pipeline reads them
// back, and they never influence simulated time. The gauges are
// snapshotted by pkg/cluster's ExportMetrics, intended to be polled on
// a real-time ticker from a goroutine separate from the scheduler
// (cmd/hdfsim's optional --metrics-addr server); the counters and
// histogram are updated inline at the point each event occurs.
//
// Handler returns the standard promhttp handler for mounting at
// /metrics.
package metrics
