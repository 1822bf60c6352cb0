package linalg

import (
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// TruncatedGaussian1D is a scalar Normal(Mean, Var) restricted to
// [Lower, +Inf). It backs the road filter's arc-length dimension, which
// must never predict a negative distance travelled along the path.
type TruncatedGaussian1D struct {
	Mean  float64
	Var   float64
	Lower float64
}

// alpha is the standardized lower bound (x-mean)/std.
func (t TruncatedGaussian1D) alpha() float64 {
	std := math.Sqrt(t.Var)
	if std == 0 {
		return math.Inf(1)
	}
	return (t.Lower - t.Mean) / std
}

// Sample draws a value via inverse-CDF sampling of the truncated normal,
// using golang.org/x/exp/rand for the uniform draw the way the teacher's
// noise package seeds all of its samplers.
func (t TruncatedGaussian1D) Sample(rng *rand.Rand) float64 {
	std := math.Sqrt(t.Var)
	if std == 0 {
		return t.Lower
	}
	a := t.alpha()
	// Φ(a)
	phiA := distuv.UnitNormal.CDF(a)
	u := rng.Float64()
	p := phiA + u*(1-phiA)
	if p >= 1 {
		p = 1 - 1e-15
	}
	z := distuv.UnitNormal.Quantile(p)
	return t.Mean + std*z
}

// PredictMoments returns the mean and variance of the truncated
// distribution itself (as opposed to the parent Normal), using the
// standard inverse-Mills-ratio formulas. Used to keep the belief's stored
// covariance consistent with truncation rather than only truncating point
// samples.
func (t TruncatedGaussian1D) PredictMoments() (mean, variance float64) {
	std := math.Sqrt(t.Var)
	if std == 0 {
		return t.Lower, 0
	}
	a := t.alpha()
	phi := distuv.UnitNormal.Prob(a)
	Z := 1 - distuv.UnitNormal.CDF(a)
	if Z < 1e-300 {
		return t.Lower, 0
	}
	lambda := phi / Z
	mean = t.Mean + std*lambda
	variance = t.Var * (1 - lambda*(lambda-a))
	if variance < 0 {
		variance = 0
	}
	return mean, variance
}
