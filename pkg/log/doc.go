/*
Package log provides structured logging for hdfsim using zerolog.

The log package wraps the zerolog library to provide JSON-structured
logging with component-specific loggers, configurable log levels, and
helper functions for common logging patterns. All logs include
timestamps and support filtering by severity for interactive runs and
batch scenario sweeps alike.

# Architecture

	┌──────────────────── LOGGING SYSTEM ──────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │            Global Logger                    │          │
	│  │  - Zerolog instance                         │          │
	│  │  - Initialized via log.Init()               │          │
	│  │  - Thread-safe for concurrent use           │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │           Configuration                     │          │
	│  │  - Level: debug/info/warn/error             │          │
	│  │  - Format: JSON or console (human)          │          │
	│  │  - Output: stdout, file, or custom writer   │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │         Component Loggers                   │          │
	│  │  - WithComponent("scheduler")               │          │
	│  │  - WithComponent("node")                    │          │
	│  │  - WithComponent("network")                 │          │
	│  │  - WithComponent("pipeline")                │          │
	│  │  - WithComponent("namenode")                │          │
	│  │  - WithComponent("cluster")                 │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │            Log Output                       │          │
	│  │  - Console (human-readable, dev runs)       │          │
	│  │  - JSON (batch sweeps, scrapeable by tools) │          │
	│  └────────────────────────────────────────────┘           │
	└────────────────────────────────────────────────────────────┘

# Usage

Initializing at program start, in cmd/hdfsim:

	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: false})

Component-scoped loggers, one per package that logs anything:

	logger := log.WithComponent("node")
	logger.Debug().Str("node", string(n.ID)).Float64("ideal_speed", ideal).Msg("disk share recomputed")

The core packages that take a logger (pkg/scheduler, pkg/node,
pkg/network, pkg/cluster) are constructed with a zerolog.Logger passed
in by their caller — never the global Logger directly — so tests can
pass zerolog.Nop() and production code can pass a
log.WithComponent(...) child logger. This mirrors the reference
simulator's debugprint/self.info/self.critical calls, replacing ad hoc
stdout prints with structured, filterable, component-scoped log lines.

Virtual time, not wall-clock time, is what makes these logs useful for
debugging a run: every log line's meaning is tied to env.Now(), not to
when the process actually executed it, so include the virtual instant
explicitly in any log call that matters for tracing a scenario:

	logger.Info().Float64("t", ctx.Now()).Msg("writer interrupted: needs disk")

# Levels

Debug: per-iteration arbiter/ping decisions (share recomputation, rate
      retries) — verbose, off by default.
Info: write/ping/pipeline completions, service start/stop.
Warn: recoverable oddities worth a look.
Error: ConfigurationError conditions (StartServices with no datanodes).

# See Also

  - pkg/scheduler for the Environment every component logger traces
    against.
  - pkg/cluster for where loggers are wired from config into every
    owned component.
*/
package log
