// Package simmetrics exposes Prometheus metrics for the placement core:
// admission outcomes by strategy and reason, replacement-pass duration,
// per-ComputeSpot idle time, and VM reassignment counts.
package simmetrics
