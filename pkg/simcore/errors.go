package simcore

import "fmt"

// InvariantViolation signals a programming fault: state the algorithm
// assumed could never occur (a request's origin not being a cloud spot,
// a cloud spot rejecting admission, a TASK_COMPLETE at a node without a
// ComputeSpot, a VM reassignment on a cloud spot or from a service with
// no instance, an unrecognized EventStatus). COORDINATED's probe does
// not report a probe task that RemoveTask fails to find. It is never an
// expected admission outcome —
// those are returned as tagged (bool, AdmissionReason) values instead.
type InvariantViolation struct {
	Invariant string
	State     string
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("invariant violated: %s (%s)", e.Invariant, e.State)
}

// NewInvariantViolation builds an InvariantViolation, formatting state
// with fmt.Sprintf the way the rest of the codebase formats log fields.
func NewInvariantViolation(invariant, format string, args ...any) *InvariantViolation {
	return &InvariantViolation{Invariant: invariant, State: fmt.Sprintf(format, args...)}
}
