/*
Package log provides structured logging for edgesim using zerolog.

It wraps zerolog to give every package in the simulator a global logger,
JSON or console output, and context-logger helpers for the identifiers
that recur throughout a run: node, service, and flow.

# Usage

Initializing the logger:

	import "github.com/cuemby/edgesim/pkg/log"

	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: true,
		Output:     os.Stdout,
	})

Simple logging:

	log.Info("simulation starting")
	log.Debug("replacement pass evaluated")
	log.Warn("task missed its deadline after dispatch")

Context loggers:

	nodeLog := log.WithNode(7)
	nodeLog.Info().Msg("compute spot initialized")

	flowLog := log.WithFlow("f-0001")
	flowLog.Debug().Int("node", 3).Msg("task admitted")

# Log Levels

Debug is for per-event tracing (admission decisions, replacement scoring);
Info for session lifecycle and replacement-pass summaries; Warn for
post-hoc deadline misses and probabilistic eviction; Error for invariant
violations surfaced as errors rather than panics.
*/
package log
