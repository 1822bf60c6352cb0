// Package kalman implements the dual linear-Gaussian Kalman filter of the
// tracking core: a 4-D ground model in planar coordinates and a 2-D road
// model in arc-length coordinates, both built fresh every step from the
// current Δt, following the Predict/Update structure of the teacher's
// kalman/kf package generalized to two concrete models instead of one.
package kalman

import "gonum.org/v1/gonum/mat"

// LinearModel is an immutable transition/observation matrix pair for a
// fixed Δt. Building a new LinearModel per step (rather than mutating
// static matrices) replaces the "mutable static matrices" pattern of the
// source with plain, GC'd values.
type LinearModel struct {
	A *mat.Dense
	H *mat.Dense
}

// GroundModel builds the 4-D ground transition/observation pair for dt:
// A_g = I with A[0,1] = A[2,3] = dt; O_g = [[1,0,0,0],[0,0,1,0]].
func GroundModel(dt float64) LinearModel {
	a := mat.NewDense(4, 4, []float64{
		1, dt, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, dt,
		0, 0, 0, 1,
	})
	h := mat.NewDense(2, 4, []float64{
		1, 0, 0, 0,
		0, 0, 1, 0,
	})
	return LinearModel{A: a, H: h}
}

// RoadModel builds the 2-D road transition/observation pair for dt:
// A_r = I with A[0,1] = dt; O_r = [[1, 0]].
func RoadModel(dt float64) LinearModel {
	a := mat.NewDense(2, 2, []float64{
		1, dt,
		0, 1,
	})
	h := mat.NewDense(1, 2, []float64{1, 0})
	return LinearModel{A: a, H: h}
}

// GroundCovarianceFactor returns F_g(dt), the 4x2 matrix mapping a 2-D
// (x,y) process noise vector onto the 4-D ground state.
func GroundCovarianceFactor(dt float64) *mat.Dense {
	return mat.NewDense(4, 2, []float64{
		dt * dt / 2, 0,
		dt, 0,
		0, dt * dt / 2,
		0, dt,
	})
}

// RoadCovarianceFactor returns F_r(dt), the 2x1 matrix mapping a scalar
// process noise onto the 2-D road state.
func RoadCovarianceFactor(dt float64) *mat.Dense {
	return mat.NewDense(2, 1, []float64{
		dt * dt / 2,
		dt,
	})
}

// RoadMeasurementError is the fixed road-measurement covariance
// diag(50, 0): the second component is zero because velocity is not
// measured directly on-road.
var RoadMeasurementError = mat.NewSymDense(2, []float64{50, 0, 0, 0})
