// Package simconfig loads the YAML configuration that parameterizes a
// Strategy: which strategy to run, its replacement interval, and the
// handful of per-strategy knobs (LRU's eviction probability, the bounded
// strategies' per-pass replacement count, debug tracing).
package simconfig
