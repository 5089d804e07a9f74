/*
Package network implements the per-hop bandwidth transfer every pipeline
write and heartbeat rides on.

A Switch holds a routing table of nodes by ID and runs every transfer
as its own scheduler process, ported from the reference simulator's
Switch._ping:

	┌──────────────────────── Switch.Ping ───────────────────────┐
	│                                                              │
	│   loop while sent < size:                                   │
	│     rate := min(src.NIC.Level(), dst.NIC.Level(), throttle) │
	│     rate == 0?  sleep(backoff()); retry                     │
	│                                                              │
	│     TryGet(rate) on src.NIC                                 │
	│     TryGet(rate) on dst.NIC   (roll back src on failure)    │
	│                                                              │
	│     sleep(latency)                                          │
	│     sleep((size-sent)/rate)                                 │
	│     sleep(latency)                                          │
	│                                                              │
	│     Put(rate) back on both NICs                             │
	│     sent += (size-sent)                                     │
	└──────────────────────────────────────────────────────────────┘

Because both TryGets happen within a single cooperative turn (no other
process runs between the rate computation and the second TryGet), the
pair behaves as a true joint acquisition: either both counters are
decremented or neither is, with no process ever observing a rate
committed on only one end.

StartHeartbeat/StopHeartbeat keep a registry of active (source,
destination) pairs; each registered pair runs its own loop that issues
a fire-and-forget Ping every interval and checks the registry before
each iteration, so StopHeartbeat's effect is observed at the loop's
next wake-up rather than by cancelling anything mid-flight.
*/
package network
