// Package linalg provides the numerical kernel shared by the rest of the
// module: an SVD-backed covariance type that preserves PSD-ness across
// linear transforms, and the truncated-Gaussian sampler the road filter
// needs for its nonnegative arc-length dimension.
package linalg

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/trailmark/roadtrack"
)

// SvdFloor is the default clip applied to singular values before taking a
// square root, keeping near-singular factors numerically meaningful.
const SvdFloor = 1e-7

// SvdMatrix is a covariance stored as the triple (U, S, Vᵀ) with S diagonal
// and nonnegative. Every operation on it preserves that shape instead of
// reconstructing and re-factorizing a dense symmetric matrix, so a chain of
// linear transforms never drifts off the PSD cone the way naive dense
// arithmetic can.
type SvdMatrix struct {
	U  *mat.Dense
	S  *mat.DiagDense
	Vt *mat.Dense
}

// NewSvdMatrixFromSym factorizes a symmetric matrix into its SVD triple.
func NewSvdMatrixFromSym(m mat.Symmetric) (*SvdMatrix, error) {
	var svd mat.SVD
	if ok := svd.Factorize(m, mat.SVDFull); !ok {
		return nil, roadtrack.Numericf("linalg.NewSvdMatrixFromSym", fmt.Errorf("SVD factorization failed"))
	}

	u := new(mat.Dense)
	svd.UTo(u)
	vt := new(mat.Dense)
	v := new(mat.Dense)
	svd.VTo(v)
	vt.CloneFrom(v.T())

	vals := svd.Values(nil)
	s := mat.NewDiagDense(len(vals), vals)

	return &SvdMatrix{U: u, S: s, Vt: vt}, nil
}

// NewSvdMatrixDiag builds an SvdMatrix for a diagonal covariance directly,
// without going through a factorization (U = Vt = I for a diagonal input).
func NewSvdMatrixDiag(diag []float64) *SvdMatrix {
	n := len(diag)
	eye := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		eye.Set(i, i, 1)
	}
	s := mat.NewDiagDense(n, append([]float64(nil), diag...))
	vt := mat.NewDense(n, n, nil)
	vt.CloneFrom(eye)
	return &SvdMatrix{U: eye, S: s, Vt: vt}
}

// Dim returns the matrix dimension.
func (m *SvdMatrix) Dim() int {
	r, _ := m.U.Dims()
	return r
}

// Dense reconstructs U·S·Vᵀ as a dense symmetric matrix.
func (m *SvdMatrix) Dense() *mat.SymDense {
	n := m.Dim()
	us := new(mat.Dense)
	us.Mul(m.U, m.S)
	full := new(mat.Dense)
	full.Mul(us, m.Vt)

	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			sym.SetSym(i, j, 0.5*(full.At(i, j)+full.At(j, i)))
		}
	}
	return sym
}

// Transform applies the linear map A → M·A·Mᵀ while keeping the result in
// SVD form: M' = diag(√S)·Vᵀ·Mᵀ, SVD(M') = (U₁, S₁, V₁ᵀ), result is
// (V₁, S₁², V₁ᵀ). This is the rule spec.md §4.1 requires so that a chain of
// projections never produces a covariance with negative eigenvalues.
func (m *SvdMatrix) Transform(mMat mat.Matrix) (*SvdMatrix, error) {
	sqrtS := DiagSqrt(m.S, SvdFloor)

	sv := new(mat.Dense)
	sv.Mul(sqrtS, m.Vt)

	mPrime := new(mat.Dense)
	mPrime.Mul(sv, mMat.T())

	var svd mat.SVD
	if ok := svd.Factorize(mPrime, mat.SVDThin); !ok {
		return nil, roadtrack.Numericf("linalg.SvdMatrix.Transform", fmt.Errorf("SVD factorization failed"))
	}

	v1 := new(mat.Dense)
	svd.VTo(v1)
	v1t := new(mat.Dense)
	v1t.CloneFrom(v1.T())

	vals := svd.Values(nil)
	sq := make([]float64, len(vals))
	for i, v := range vals {
		sq[i] = v * v
	}
	s1 := mat.NewDiagDense(len(sq), sq)

	return &SvdMatrix{U: v1, S: s1, Vt: v1t}, nil
}

// BlockDiag2x2 stacks c (2x2) into a 4x4 matrix occupying blocks (0..1,0..1)
// and (2..3,2..3), preserving the SVD triple. No ground-lift in this module
// calls it; they embed or transform covariances by other means.
func BlockDiag2x2(c *SvdMatrix) *SvdMatrix {
	u4 := mat.NewDense(4, 4, nil)
	vt4 := mat.NewDense(4, 4, nil)
	s4 := make([]float64, 4)

	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			u4.Set(i, j, c.U.At(i, j))
			u4.Set(i+2, j+2, c.U.At(i, j))
			vt4.Set(i, j, c.Vt.At(i, j))
			vt4.Set(i+2, j+2, c.Vt.At(i, j))
		}
	}
	s4[0], s4[1] = c.S.At(0, 0), c.S.At(1, 1)
	s4[2], s4[3] = c.S.At(0, 0), c.S.At(1, 1)

	return &SvdMatrix{U: u4, S: mat.NewDiagDense(4, s4), Vt: vt4}
}

// DiagSqrt takes the elementwise square root of a diagonal matrix, clipping
// each entry to floor first.
func DiagSqrt(d *mat.DiagDense, floor float64) *mat.DiagDense {
	n, _ := d.Dims()
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		v := d.At(i, i)
		if v < floor {
			v = floor
		}
		out[i] = math.Sqrt(v)
	}
	return mat.NewDiagDense(n, out)
}

// Clone returns a deep copy, so a caller holding a *SvdMatrix across a
// particle clone never shares storage with the parent.
func (m *SvdMatrix) Clone() *SvdMatrix {
	u := new(mat.Dense)
	u.CloneFrom(m.U)
	vt := new(mat.Dense)
	vt.CloneFrom(m.Vt)
	n, _ := m.S.Dims()
	diag := make([]float64, n)
	for i := 0; i < n; i++ {
		diag[i] = m.S.At(i, i)
	}
	return &SvdMatrix{U: u, S: mat.NewDiagDense(n, diag), Vt: vt}
}

// SampleN draws n zero-mean samples from the distribution this SvdMatrix
// represents, returned as the columns of an n-wide matrix, using the
// already-factored U·√S as the whitening transform instead of
// refactorizing a dense covariance. Adapted from rand.WithCovN to draw
// from the per-particle RNG rather than the package-global math/rand
// source, so draws replay deterministically per spec.md §5.
func (m *SvdMatrix) SampleN(src *rand.Rand, n int) (*mat.Dense, error) {
	if n <= 0 {
		return nil, roadtrack.Contractf("linalg.SvdMatrix.SampleN", fmt.Errorf("invalid number of samples requested: %d", n))
	}

	sqrtS := DiagSqrt(m.S, SvdFloor)
	scaled := new(mat.Dense)
	scaled.Mul(m.U, sqrtS)

	rows := m.Dim()
	normal := distuv.Normal{Mu: 0, Sigma: 1, Src: src}
	data := make([]float64, rows*n)
	for i := range data {
		data[i] = normal.Rand()
	}
	draws := mat.NewDense(rows, n, data)

	samples := new(mat.Dense)
	samples.Mul(scaled, draws)
	return samples, nil
}

// IsPSD reports whether the matrix is symmetric positive semidefinite
// within tolerance, i.e. every singular value already stored is
// non-negative down to -tol (S is nonnegative by construction, so this
// mainly guards against NaN entries introduced upstream).
func (m *SvdMatrix) IsPSD(tol float64) bool {
	n, _ := m.S.Dims()
	for i := 0; i < n; i++ {
		v := m.S.At(i, i)
		if math.IsNaN(v) || v < -tol {
			return false
		}
	}
	return true
}
