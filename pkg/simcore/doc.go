// Package simcore holds the one type shared by every layer of the
// placement core that isn't a value type: InvariantViolation, the error
// used to signal a programming fault rather than an expected outcome.
package simcore
