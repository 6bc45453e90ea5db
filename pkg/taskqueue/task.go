package taskqueue

import "github.com/cuemby/edgesim/pkg/simtypes"

// Task is a unit of work admitted onto a ComputeSpot. It is mutated only
// by the owning TaskScheduler: Schedule assigns CompletionTime and
// CoreID, AdmitTask (and ComputeCompletionTimes) refresh the projection
// ahead of actual dispatch.
type Task struct {
	CreationTime   float64
	Expiry         float64 // absolute deadline
	RTTDelay       float64
	Node           simtypes.NodeID
	ServiceID      simtypes.ServiceID
	ServiceTime    float64
	FlowID         simtypes.FlowID
	Receiver       simtypes.NodeID
	ArrivalTime    float64
	CompletionTime float64
	CoreID         int // -1 until dispatched onto a core

	// EffectiveDeadline is Expiry minus the path delay from this task's
	// Node back to its Receiver, snapshotted at admission/probe time.
	// A task whose projected CompletionTime exceeds this is infeasible.
	EffectiveDeadline float64
}

// NoCore marks a Task that has not yet been dispatched onto a core.
const NoCore = -1
