package compute

import (
	"github.com/cuemby/edgesim/pkg/simcore"
	"github.com/cuemby/edgesim/pkg/simtypes"
	"github.com/cuemby/edgesim/pkg/taskqueue"
)

// VMRecorder is the narrow slice of Controller a ComputeSpot needs to
// record a VM reassignment. Defined here, not imported from simcontrol,
// so compute never depends on simcontrol (simcontrol depends on compute
// instead, to expose CompSpot lookups).
type VMRecorder interface {
	RecordVMReassignment(node simtypes.NodeID, from, to simtypes.ServiceID)
}

// ComputeSpot is a node's compute capacity: a fixed VM pool distributed
// across services, a TaskScheduler sequencing admitted tasks across a
// fixed number of cores, and the running/missed request counters the
// HYBRID, MFU, and SDF replacement passes score against.
//
// Invariant: sum(ServiceInstances) == NumVMs at all times outside an
// in-progress replacement pass, for every non-cloud spot.
type ComputeSpot struct {
	Node                  simtypes.NodeID
	IsCloud               bool
	NumVMs                int
	ServicePopulationSize int

	ServiceInstances map[simtypes.ServiceID]int
	Scheduler        *taskqueue.TaskScheduler

	RunningRequests map[simtypes.ServiceID]int
	MissedRequests  map[simtypes.ServiceID]int
}

// New allocates a ComputeSpot and distributes numVMs round-robin across
// servicePopulationSize services by vm_index mod servicePopulationSize.
// Cloud spots are constructed with numVMs=0 and numCores=0; they bypass
// both the instance vector and the scheduler entirely.
func New(node simtypes.NodeID, isCloud bool, numCores, numVMs, servicePopulationSize int) *ComputeSpot {
	cs := &ComputeSpot{
		Node:                  node,
		IsCloud:               isCloud,
		NumVMs:                numVMs,
		ServicePopulationSize: servicePopulationSize,
		ServiceInstances:      make(map[simtypes.ServiceID]int),
		Scheduler:             taskqueue.NewTaskScheduler(numCores),
		RunningRequests:       make(map[simtypes.ServiceID]int),
		MissedRequests:        make(map[simtypes.ServiceID]int),
	}
	if isCloud || servicePopulationSize == 0 {
		return cs
	}
	for i := 0; i < numVMs; i++ {
		svc := simtypes.ServiceID(i % servicePopulationSize)
		cs.ServiceInstances[svc]++
	}
	return cs
}

// HasService reports whether this spot currently hosts at least one VM
// instance of the given service.
func (cs *ComputeSpot) HasService(service simtypes.ServiceID) bool {
	return cs.ServiceInstances[service] > 0
}

// AdmitTask forwards to the TaskScheduler after verifying this spot
// holds a resident instance of the service, unless this is a cloud spot,
// which has unbounded capacity and zero queueing delay: every task
// completes at time+service_time and is never queued or dispatched
// through the scheduler.
func (cs *ComputeSpot) AdmitTask(svc simtypes.Service, time float64, flowID simtypes.FlowID, expiry float64, receiver simtypes.NodeID, rttDelay, pathDelay float64) (bool, simtypes.AdmissionReason, *taskqueue.Task) {
	if cs.IsCloud {
		return true, simtypes.ReasonCloud, &taskqueue.Task{
			CreationTime:      time,
			Expiry:            expiry,
			RTTDelay:          rttDelay,
			Node:              cs.Node,
			ServiceID:         svc.ID,
			ServiceTime:       svc.ServiceTime,
			FlowID:            flowID,
			Receiver:          receiver,
			ArrivalTime:       time,
			CompletionTime:    time + svc.ServiceTime,
			CoreID:            taskqueue.NoCore,
			EffectiveDeadline: expiry - pathDelay,
		}
	}
	if !cs.HasService(svc.ID) {
		return false, simtypes.ReasonNoInstances, nil
	}
	return cs.Scheduler.AdmitTask(svc, time, flowID, expiry, cs.Node, receiver, rttDelay, pathDelay)
}

// ReassignVM decrements from's instance count and increments to's,
// preserving the total, and records the change via recorder. Returns an
// InvariantViolation if from has no instance to give up (a replacement
// pass scored a service it doesn't actually host) or if called on a
// cloud spot (cloud capacity is unbounded and has nothing to reassign).
func (cs *ComputeSpot) ReassignVM(recorder VMRecorder, from, to simtypes.ServiceID) error {
	if cs.IsCloud {
		return simcore.NewInvariantViolation("reassign_vm_on_cloud", "node=%d from=%d to=%d", cs.Node, from, to)
	}
	if cs.ServiceInstances[from] <= 0 {
		return simcore.NewInvariantViolation("reassign_vm_empty_source", "node=%d from=%d", cs.Node, from)
	}
	cs.ServiceInstances[from]--
	cs.ServiceInstances[to]++
	if cs.ServiceInstances[from] == 0 {
		delete(cs.ServiceInstances, from)
	}
	if recorder != nil {
		recorder.RecordVMReassignment(cs.Node, from, to)
	}
	return nil
}

// TotalInstances sums ServiceInstances, used by tests and replacement
// passes to assert the conservation invariant.
func (cs *ComputeSpot) TotalInstances() int {
	total := 0
	for _, n := range cs.ServiceInstances {
		total += n
	}
	return total
}

// RecordRunning increments the running-request counter for a service
// admitted successfully at this spot.
func (cs *ComputeSpot) RecordRunning(service simtypes.ServiceID) {
	cs.RunningRequests[service]++
}

// RecordMissed increments the missed-request counter for a service this
// spot could not (or chose not to) admit.
func (cs *ComputeSpot) RecordMissed(service simtypes.ServiceID) {
	cs.MissedRequests[service]++
}

// ResetReplacementCounters zeroes the running/missed counters at the
// start of a new replacement interval, matching the Python source's
// per-interval reset of these accumulators.
func (cs *ComputeSpot) ResetReplacementCounters() {
	for k := range cs.RunningRequests {
		delete(cs.RunningRequests, k)
	}
	for k := range cs.MissedRequests {
		delete(cs.MissedRequests, k)
	}
}
