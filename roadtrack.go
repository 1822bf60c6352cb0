// Package roadtrack defines the shared vocabulary for the map-matched
// vehicle tracking core: the error taxonomy used to distinguish
// particle-recoverable failures from implementation bugs.
package roadtrack

import (
	"fmt"
)

// Kind classifies an Error by how the caller should react to it.
type Kind int

const (
	// NumericError marks a non-PSD covariance, a failed SVD, or a NaN in a
	// state vector. Recoverable at the particle level.
	NumericError Kind = iota
	// GeometryError marks a snap or extraction that yielded no valid
	// location or unexpectedly empty geometry. Recoverable at the particle
	// level.
	GeometryError
	// TopologyError marks state_diff finding none of the five canonical
	// cases, or a required path-merge overlap that does not exist. Fatal.
	TopologyError
	// ContractViolation marks a caller passing a non-positive Δt, a state
	// of the wrong dimensionality, or a required value that is nil. Fatal.
	ContractViolation
)

func (k Kind) String() string {
	switch k {
	case NumericError:
		return "NumericError"
	case GeometryError:
		return "GeometryError"
	case TopologyError:
		return "TopologyError"
	case ContractViolation:
		return "ContractViolation"
	default:
		return "UnknownError"
	}
}

// Error is the error type returned by every package in this module.
// Op names the failing operation ("kalman.RoadFilter.Measure",
// "pathstate.StateDiff", ...); Err is the underlying cause, if any.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

// Unwrap allows errors.Is/errors.As to see through to the cause.
func (e *Error) Unwrap() error { return e.Err }

// Recoverable reports whether the outer filter may drop the owning
// particle and continue, as opposed to treating the error as fatal.
func (e *Error) Recoverable() bool {
	return e.Kind == NumericError || e.Kind == GeometryError
}

// Numericf builds a NumericError wrapping err.
func Numericf(op string, err error) *Error {
	return &Error{Kind: NumericError, Op: op, Err: err}
}

// Geometryf builds a GeometryError wrapping err.
func Geometryf(op string, err error) *Error {
	return &Error{Kind: GeometryError, Op: op, Err: err}
}

// Topologyf builds a TopologyError wrapping err.
func Topologyf(op string, err error) *Error {
	return &Error{Kind: TopologyError, Op: op, Err: err}
}

// Contractf builds a ContractViolation wrapping err.
func Contractf(op string, err error) *Error {
	return &Error{Kind: ContractViolation, Op: op, Err: err}
}
