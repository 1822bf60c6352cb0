package linalg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestNewSvdMatrixFromSym(t *testing.T) {
	cov := mat.NewSymDense(2, []float64{2, 0, 0, 3})

	m, err := NewSvdMatrixFromSym(cov)
	require.NoError(t, err)
	require.NotNil(t, m)

	dense := m.Dense()
	assert.InDelta(t, 2, dense.At(0, 0), 1e-9)
	assert.InDelta(t, 3, dense.At(1, 1), 1e-9)
	assert.InDelta(t, 0, dense.At(0, 1), 1e-9)
}

func TestSvdMatrixTransformPreservesPSD(t *testing.T) {
	cov := mat.NewSymDense(2, []float64{4, 1, 1, 3})
	m, err := NewSvdMatrixFromSym(cov)
	require.NoError(t, err)

	proj := mat.NewDense(4, 2, []float64{1, 0, 0, 0, 0, 1, 0, 0})

	out, err := m.Transform(proj)
	require.NoError(t, err)
	assert.True(t, out.IsPSD(1e-9))
	assert.Equal(t, 4, out.Dim())
}

func TestBlockDiag2x2(t *testing.T) {
	cov := mat.NewSymDense(2, []float64{1, 0, 0, 2})
	m, err := NewSvdMatrixFromSym(cov)
	require.NoError(t, err)

	blocked := BlockDiag2x2(m)
	dense := blocked.Dense()

	assert.InDelta(t, 1, dense.At(0, 0), 1e-9)
	assert.InDelta(t, 2, dense.At(1, 1), 1e-9)
	assert.InDelta(t, 1, dense.At(2, 2), 1e-9)
	assert.InDelta(t, 2, dense.At(3, 3), 1e-9)
	assert.InDelta(t, 0, dense.At(0, 2), 1e-9)
}

func TestDiagSqrtFloor(t *testing.T) {
	d := mat.NewDiagDense(2, []float64{1e-12, 4})
	out := DiagSqrt(d, SvdFloor)
	assert.InDelta(t, out.At(0, 0)*out.At(0, 0), SvdFloor, 1e-12)
	assert.InDelta(t, 2, out.At(1, 1), 1e-9)
}
