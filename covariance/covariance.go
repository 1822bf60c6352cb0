// Package covariance implements the two Bayesian conjugate covariance
// learners of spec.md §4.7: a scaled-inverse-gamma posterior for
// observation covariance, and an inverse-Wishart posterior for the
// ground/road process covariances. It is grounded on spec.md §4.7's
// explicit update formulas, cross-checked against
// MotionStateEstimatorPredictor.java's covariance-factor bookkeeping.
package covariance

import (
	"fmt"

	"github.com/milosgajdos/matrix"
	"gonum.org/v1/gonum/mat"

	"github.com/trailmark/roadtrack"
)

// ScaledInverseGamma is the conjugate prior/posterior for a scalar
// observation-covariance scale, updated from per-step error vectors.
type ScaledInverseGamma struct {
	Shape float64
	Scale float64
}

// DefaultObservationCovariancePrior is the ScaledInverseGamma prior spec.md
// §6 names for bitwise-compatible reimplementation: shape=2, scale=1
// (mean=1).
func DefaultObservationCovariancePrior() ScaledInverseGamma {
	return ScaledInverseGamma{Shape: 2, Scale: 1}
}

// Update folds a new observation-error vector e into the posterior, per
// spec.md §4.7: shape' = shape + 0.5, scale' = scale + 0.5·‖e‖².
func (s ScaledInverseGamma) Update(e *mat.VecDense) ScaledInverseGamma {
	normSq := mat.Dot(e, e)
	return ScaledInverseGamma{
		Shape: s.Shape + 0.5,
		Scale: s.Scale + 0.5*normSq,
	}
}

// Clone returns an independent copy. ScaledInverseGamma holds only
// value-typed float64 fields, so a plain copy already suffices; the
// method exists so it satisfies vehicle.Cloneable.
func (s ScaledInverseGamma) Clone() ScaledInverseGamma { return s }

// Mean returns the posterior mean scale/(shape-1), the inverse-gamma mean,
// falling back to Scale/Shape when shape <= 1 (undefined mean) to avoid a
// division that would otherwise blow up.
func (s ScaledInverseGamma) Mean() float64 {
	if s.Shape <= 1 {
		return s.Scale / s.Shape
	}
	return s.Scale / (s.Shape - 1)
}

// InverseWishart is the conjugate prior/posterior for a process-noise
// covariance, accumulated from per-step state-transition residuals.
type InverseWishart struct {
	DegreesOfFreedom float64
	ScaleMatrix      *mat.SymDense
}

// NewInverseWishart builds a prior with the given degrees of freedom and
// scale matrix (a copy is retained).
func NewInverseWishart(dof float64, scale *mat.SymDense) InverseWishart {
	n := scale.SymmetricDim()
	cp := mat.NewSymDense(n, nil)
	cp.CopySym(scale)
	return InverseWishart{DegreesOfFreedom: dof, ScaleMatrix: cp}
}

// Clone deep-copies ScaleMatrix so a clone never shares storage with the
// posterior it was copied from.
func (iw InverseWishart) Clone() InverseWishart {
	return NewInverseWishart(iw.DegreesOfFreedom, iw.ScaleMatrix)
}

// Update accumulates the sample scatter matrix of residuals (one residual
// vector per column) into the posterior, via github.com/milosgajdos/matrix's
// Cov helper — the same sample-covariance routine particle/bf/bf.go uses
// to estimate particle-cloud covariance before a perturbation draw.
func (iw InverseWishart) Update(residuals *mat.Dense) (InverseWishart, error) {
	_, cols := residuals.Dims()
	if cols == 0 {
		return InverseWishart{}, roadtrack.Contractf("covariance.InverseWishart.Update", fmt.Errorf("no residual columns to accumulate"))
	}

	scatter, err := matrix.Cov(residuals, "cols")
	if err != nil {
		return InverseWishart{}, roadtrack.Numericf("covariance.InverseWishart.Update", err)
	}

	n := iw.ScaleMatrix.SymmetricDim()
	sum := mat.NewSymDense(n, nil)
	sum.AddSym(iw.ScaleMatrix, scaleBy(scatter, float64(cols)))

	return InverseWishart{
		DegreesOfFreedom: iw.DegreesOfFreedom + float64(cols),
		ScaleMatrix:      sum,
	}, nil
}

func scaleBy(m mat.Symmetric, factor float64) *mat.SymDense {
	n := m.SymmetricDim()
	out := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			out.SetSym(i, j, m.At(i, j)*factor)
		}
	}
	return out
}

// Mean returns the inverse-Wishart posterior mean scale/(dof-n-1),
// guarding against a degenerate dof the same way ScaledInverseGamma.Mean
// does.
func (iw InverseWishart) Mean() *mat.SymDense {
	n := iw.ScaleMatrix.SymmetricDim()
	denom := iw.DegreesOfFreedom - float64(n) - 1
	if denom <= 0 {
		denom = iw.DegreesOfFreedom
	}
	return scaleBy(iw.ScaleMatrix, 1/denom)
}

// ObservationErrorVector computes e = obs - sampledObs, per spec.md §4.7.
func ObservationErrorVector(obs, sampledObs *mat.VecDense) *mat.VecDense {
	e := mat.NewVecDense(obs.Len(), nil)
	e.SubVec(obs, sampledObs)
	return e
}
