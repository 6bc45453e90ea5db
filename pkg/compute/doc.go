// Package compute implements ComputeSpot, a node's compute capacity: a
// fixed VM pool, a per-service instance-count vector, a TaskScheduler,
// and the admit_task policy that gates access to it. Cloud spots are a
// ComputeSpot with unbounded capacity that accept every task
// unconditionally.
package compute
