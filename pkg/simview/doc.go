// Package simview defines View, the read-only topology and catalog
// oracle every Strategy consults: shortest paths, path/link delays,
// the service catalog, and which nodes host a ComputeSpot. It also
// ships StaticView, an in-memory reference implementation used by the
// seed tests and the demo CLI — a fixture, not a production topology
// engine.
package simview
