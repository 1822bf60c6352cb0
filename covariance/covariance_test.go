package covariance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestScaledInverseGammaDefaultPrior(t *testing.T) {
	prior := DefaultObservationCovariancePrior()
	assert.Equal(t, 2.0, prior.Shape)
	assert.Equal(t, 1.0, prior.Scale)
	assert.InDelta(t, 1.0, prior.Mean(), 1e-9)
}

func TestScaledInverseGammaUpdate(t *testing.T) {
	prior := DefaultObservationCovariancePrior()
	e := mat.NewVecDense(2, []float64{3, 4})
	post := prior.Update(e)
	assert.InDelta(t, 2.5, post.Shape, 1e-9)
	assert.InDelta(t, 1+0.5*25, post.Scale, 1e-9)
}

func TestInverseWishartUpdate(t *testing.T) {
	prior := NewInverseWishart(4, mat.NewSymDense(2, []float64{1, 0, 0, 1}))
	residuals := mat.NewDense(2, 5, []float64{
		1, -1, 0.5, -0.5, 0,
		0.2, -0.2, 0.1, -0.1, 0,
	})

	post, err := prior.Update(residuals)
	require.NoError(t, err)
	assert.InDelta(t, 9, post.DegreesOfFreedom, 1e-9)

	mean := post.Mean()
	assert.Equal(t, 2, mean.SymmetricDim())
}

func TestObservationErrorVector(t *testing.T) {
	obs := mat.NewVecDense(2, []float64{5, 5})
	sampled := mat.NewVecDense(2, []float64{3, 1})
	e := ObservationErrorVector(obs, sampled)
	assert.InDelta(t, 2, e.AtVec(0), 1e-9)
	assert.InDelta(t, 4, e.AtVec(1), 1e-9)
}
