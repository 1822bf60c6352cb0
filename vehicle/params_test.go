package vehicle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"

	"github.com/trailmark/roadtrack/covariance"
	"github.com/trailmark/roadtrack/linalg"
)

func TestSvdBeliefCloneIndependence(t *testing.T) {
	mean := mat.NewVecDense(2, []float64{1, 2})
	cov := linalg.NewSvdMatrixDiag([]float64{1, 1})
	b := SvdBelief{Mean: mean, Cov: cov}

	clone := b.Clone()
	clone.Mean.SetVec(0, 99)
	clone.Cov.S.SetDiag(0, 99)

	assert.Equal(t, 1.0, b.Mean.AtVec(0))
	assert.Equal(t, 1.0, b.Cov.S.At(0, 0))
}

func TestBayesianParamCloneIndependence(t *testing.T) {
	prior := covariance.DefaultObservationCovariancePrior()
	p := BayesianParam[covariance.ScaledInverseGamma]{Value: prior, Prior: prior}

	clone := p.Clone()
	clone.Value = clone.Value.Update(mat.NewVecDense(2, []float64{1, 1}))

	assert.Equal(t, prior.Shape, p.Value.Shape)
}

func TestInverseWishartParamCloneIndependence(t *testing.T) {
	scale := mat.NewSymDense(2, []float64{1, 0, 0, 1})
	iw := covariance.NewInverseWishart(4, scale)
	p := BayesianParam[covariance.InverseWishart]{Value: iw, Prior: iw}

	clone := p.Clone()
	clone.Value.ScaleMatrix.SetSym(0, 0, 999)

	assert.Equal(t, 1.0, p.Value.ScaleMatrix.At(0, 0))
}
