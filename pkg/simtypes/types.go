package simtypes

import "github.com/google/uuid"

// NodeID identifies a node in the simulator's topology. Receivers, edge
// nodes, and the cloud origin all share this id space.
type NodeID int

// ServiceID identifies a service in the catalog exposed by the View.
type ServiceID int

// FlowID identifies the lifecycle of a single request from issuance to
// response delivery.
type FlowID string

// NewFlowID mints a fresh, random flow identifier. Used by callers that
// originate a flow themselves (the demo harness, tests); flows handed in
// from an outer event stream keep whatever id that stream assigned.
func NewFlowID() FlowID {
	return FlowID(uuid.NewString())
}

// EventStatus is the status code carried on every event the harness
// delivers to a Strategy. Values are observable by tests and tooling and
// must be preserved.
type EventStatus int

const (
	StatusRequest      EventStatus = 0
	StatusResponse     EventStatus = 1
	StatusTaskComplete EventStatus = 2
)

func (s EventStatus) String() string {
	switch s {
	case StatusRequest:
		return "REQUEST"
	case StatusResponse:
		return "RESPONSE"
	case StatusTaskComplete:
		return "TASK_COMPLETE"
	default:
		return "UNKNOWN_STATUS"
	}
}

// AdmissionReason explains the outcome of a TaskScheduler.AdmitTask call.
// Values are observable by tests and tooling and must be preserved.
type AdmissionReason int

const (
	ReasonDeadlineMissed AdmissionReason = 0
	ReasonCongestion     AdmissionReason = 1
	ReasonSuccess        AdmissionReason = 2
	ReasonCloud          AdmissionReason = 3
	ReasonNoInstances    AdmissionReason = 4
)

func (r AdmissionReason) String() string {
	switch r {
	case ReasonDeadlineMissed:
		return "DEADLINE_MISSED"
	case ReasonCongestion:
		return "CONGESTION"
	case ReasonSuccess:
		return "SUCCESS"
	case ReasonCloud:
		return "CLOUD"
	case ReasonNoInstances:
		return "NO_INSTANCES"
	default:
		return "UNKNOWN_REASON"
	}
}

// Service is an immutable catalog record read via the View: the per
// invocation compute cost and the maximum end-to-end latency permitted
// from request arrival at the client to response delivery.
type Service struct {
	ID          ServiceID
	ServiceTime float64
	Deadline    float64
}
