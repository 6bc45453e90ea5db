// Package taskqueue implements the per-ComputeSpot admission and
// dispatch contract: Task, the mutable record of a unit of work in
// flight, and TaskScheduler, which sequences Tasks across a fixed number
// of cores and reports projected and actual completion times.
//
// TaskScheduler keeps a single time-ordered pending list rather than the
// separate task_queue/upcoming_task_queue pair the distilled spec
// describes (see DESIGN.md) — both are views over the same admitted,
// not-yet-dispatched tasks, and collapsing them avoids re-sorting on
// every insertion.
package taskqueue
