// Package simcontrol defines Controller, the mutating sink every
// Strategy emits session lifecycle, follow-up events, VM reassignments,
// and LRU cache installs through. It also ships Recorder, an in-memory
// reference implementation adapted from the teacher's event-broker
// pattern: a deterministic event log instead of a live goroutine/channel
// broadcaster, since the simulator is single-threaded and cooperative.
package simcontrol
