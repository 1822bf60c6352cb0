package vehicle

import (
	"gonum.org/v1/gonum/mat"

	"github.com/trailmark/roadtrack/linalg"
	"github.com/trailmark/roadtrack/pathstate"
	"github.com/trailmark/roadtrack/transition"
)

// Cloneable is the constraint BayesianParam's type argument must satisfy:
// a value type able to produce a fully independent copy of itself.
type Cloneable[T any] interface {
	Clone() T
}

// BayesianParam bundles a current value with the prior it was updated
// from, the deep-copy-on-clone pair every sub-parameter of a VehicleState
// shares, per spec.md §3.
type BayesianParam[T Cloneable[T]] struct {
	Value T
	Prior T
}

// Clone deep-copies both Value and Prior.
func (p BayesianParam[T]) Clone() BayesianParam[T] {
	return BayesianParam[T]{Value: p.Value.Clone(), Prior: p.Prior.Clone()}
}

// SvdBelief is a (mean, SvdMatrix-covariance) belief, the representation
// the Kalman filters and path-state projections operate on directly.
type SvdBelief struct {
	Mean *mat.VecDense
	Cov  *linalg.SvdMatrix
}

// Clone deep-copies both fields.
func (b SvdBelief) Clone() SvdBelief {
	mean := mat.NewVecDense(b.Mean.Len(), nil)
	mean.CopyVec(b.Mean)
	return SvdBelief{Mean: mean, Cov: b.Cov.Clone()}
}

// PathStateValue bundles the current path-state with its road-frame
// covariance, spec.md §3's path_state_param value.
type PathStateValue struct {
	State pathstate.PathState
	Cov   *linalg.SvdMatrix
}

// Clone deep-copies the motion vector and the covariance; the path itself
// is shared, treated as an immutable value once constructed via
// pathstate.New.
func (p PathStateValue) Clone() PathStateValue {
	motion := mat.NewVecDense(p.State.Motion.Len(), nil)
	motion.CopyVec(p.State.Motion)
	clonedState := pathstate.PathState{Path: p.State.Path, Motion: motion, RawS: p.State.RawS}
	var clonedCov *linalg.SvdMatrix
	if p.Cov != nil {
		clonedCov = p.Cov.Clone()
	}
	return PathStateValue{State: clonedState, Cov: clonedCov}
}

// TransitionValue wraps the learned edge-transition distribution.
type TransitionValue struct {
	Dist transition.OnOffEdgeTransition
}

// Clone returns an independent copy; OnOffEdgeTransition holds only
// value-typed [2]float64 fields, so a plain copy already suffices.
func (t TransitionValue) Clone() TransitionValue {
	return TransitionValue{Dist: t.Dist}
}
