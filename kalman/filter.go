package kalman

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	xrand "golang.org/x/exp/rand"

	"github.com/trailmark/roadtrack"
	"github.com/trailmark/roadtrack/linalg"
)

// Filter is the collapsed interface replacing the source's
// StandardRoadTrackingFilter / MotionStateEstimatorPredictor duplication:
// one Predict/Measure/Clone surface, implemented once per model.
type Filter interface {
	Predict(mean *mat.VecDense, cov *linalg.SvdMatrix) (*mat.VecDense, *linalg.SvdMatrix, error)
	Measure(mean *mat.VecDense, cov *linalg.SvdMatrix, obs *mat.VecDense, obsCov *linalg.SvdMatrix) (*mat.VecDense, *linalg.SvdMatrix, error)
	Clone() Filter
}

// GroundFilter is the 4-D ground-plane linear-Gaussian filter.
type GroundFilter struct {
	Model   LinearModel
	Process *linalg.SvdMatrix // process noise covariance for this Δt, 4x4
}

// NewGroundFilter builds a ground filter for the given Δt and 2x2 diagonal
// process-noise covariance Q (independent x/y).
func NewGroundFilter(dt float64, q *mat.SymDense) (*GroundFilter, error) {
	model := GroundModel(dt)
	f := GroundCovarianceFactor(dt)

	qSvd, err := linalg.NewSvdMatrixFromSym(q)
	if err != nil {
		return nil, roadtrack.Numericf("kalman.NewGroundFilter", err)
	}
	process, err := qSvd.Transform(f)
	if err != nil {
		return nil, roadtrack.Numericf("kalman.NewGroundFilter", err)
	}
	return &GroundFilter{Model: model, Process: process}, nil
}

func (f *GroundFilter) Clone() Filter {
	return &GroundFilter{Model: f.Model, Process: f.Process}
}

// Predict propagates mean and cov one step: mean' = A·mean, cov' = A·cov·Aᵀ + Q.
func (f *GroundFilter) Predict(mean *mat.VecDense, cov *linalg.SvdMatrix) (*mat.VecDense, *linalg.SvdMatrix, error) {
	return predictLinear(f.Model.A, f.Process, mean, cov, "kalman.GroundFilter.Predict")
}

// Measure runs the Joseph-form Kalman update against a 2-D planar
// observation with covariance obsCov.
func (f *GroundFilter) Measure(mean *mat.VecDense, cov *linalg.SvdMatrix, obs *mat.VecDense, obsCov *linalg.SvdMatrix) (*mat.VecDense, *linalg.SvdMatrix, error) {
	return measureLinear(f.Model.H, mean, cov, obs, obsCov, "kalman.GroundFilter.Measure")
}

// RoadFilter is the 2-D arc-length linear-Gaussian filter, with the
// nonnegative-arc-length truncation of spec.md §4.4.
type RoadFilter struct {
	Model             LinearModel
	Process           *linalg.SvdMatrix // process noise covariance for this Δt, 2x2
	TotalPathDistance float64           // signed; bounds truncation
	RNG               *xrand.Rand
}

// NewRoadFilter builds a road filter for the given Δt and scalar
// process-noise variance qr, bounded by the path's signed total distance.
func NewRoadFilter(dt float64, qr float64, totalPathDistance float64, rng *xrand.Rand) (*RoadFilter, error) {
	model := RoadModel(dt)
	f := RoadCovarianceFactor(dt)

	qSvd := linalg.NewSvdMatrixDiag([]float64{qr})
	process, err := qSvd.Transform(f)
	if err != nil {
		return nil, roadtrack.Numericf("kalman.NewRoadFilter", err)
	}
	return &RoadFilter{Model: model, Process: process, TotalPathDistance: totalPathDistance, RNG: rng}, nil
}

func (f *RoadFilter) Clone() Filter {
	return &RoadFilter{Model: f.Model, Process: f.Process, TotalPathDistance: f.TotalPathDistance, RNG: f.RNG}
}

// Predict propagates the road state, then reflects the arc-length
// dimension at 0 via the truncated-Gaussian moments and hard-clamps the
// resulting mean at the path's total length, per spec.md §4.4.
func (f *RoadFilter) Predict(mean *mat.VecDense, cov *linalg.SvdMatrix) (*mat.VecDense, *linalg.SvdMatrix, error) {
	newMean, newCov, err := predictLinear(f.Model.A, f.Process, mean, cov, "kalman.RoadFilter.Predict")
	if err != nil {
		return nil, nil, err
	}

	dense := newCov.Dense()
	tg := linalg.TruncatedGaussian1D{Mean: newMean.AtVec(0), Var: dense.At(0, 0), Lower: 0}
	truncMean, truncVar := tg.PredictMoments()

	newMean.SetVec(0, truncMean)
	sym := mat.NewSymDense(2, nil)
	sym.CopySym(dense)
	sym.SetSym(0, 0, truncVar)
	fixed, err := linalg.NewSvdMatrixFromSym(sym)
	if err != nil {
		return nil, nil, roadtrack.Numericf("kalman.RoadFilter.Predict", err)
	}

	if upper := absf(f.TotalPathDistance); newMean.AtVec(0) > upper {
		newMean.SetVec(0, upper)
	}
	if newMean.AtVec(0) < 0 {
		newMean.SetVec(0, 0)
	}

	return newMean, fixed, nil
}

// Measure runs the Joseph-form Kalman update against a 1-D arc-length
// observation.
func (f *RoadFilter) Measure(mean *mat.VecDense, cov *linalg.SvdMatrix, obs *mat.VecDense, obsCov *linalg.SvdMatrix) (*mat.VecDense, *linalg.SvdMatrix, error) {
	return measureLinear(f.Model.H, mean, cov, obs, obsCov, "kalman.RoadFilter.Measure")
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func predictLinear(a *mat.Dense, process *linalg.SvdMatrix, mean *mat.VecDense, cov *linalg.SvdMatrix, op string) (*mat.VecDense, *linalg.SvdMatrix, error) {
	newMean := mat.NewVecDense(mean.Len(), nil)
	newMean.MulVec(a, mean)

	transformed, err := cov.Transform(a)
	if err != nil {
		return nil, nil, roadtrack.Numericf(op, err)
	}

	sum := transformed.Dense()
	sum.AddSym(sum, process.Dense())

	newCov, err := linalg.NewSvdMatrixFromSym(sum)
	if err != nil {
		return nil, nil, roadtrack.Numericf(op, err)
	}
	return newMean, newCov, nil
}

func measureLinear(h *mat.Dense, mean *mat.VecDense, cov *linalg.SvdMatrix, obs *mat.VecDense, obsCov *linalg.SvdMatrix, op string) (*mat.VecDense, *linalg.SvdMatrix, error) {
	nx := mean.Len()
	ny := obs.Len()

	pDense := cov.Dense()

	pxy := mat.NewDense(nx, ny, nil)
	pxy.Mul(pDense, h.T())

	pyy := mat.NewDense(ny, ny, nil)
	pyy.Mul(h, pxy)
	pyy.Add(pyy, obsCov.Dense())

	pyyInv := mat.NewDense(ny, ny, nil)
	if err := pyyInv.Inverse(pyy); err != nil {
		return nil, nil, roadtrack.Numericf(op, fmt.Errorf("innovation covariance is singular: %v", err))
	}

	gain := mat.NewDense(nx, ny, nil)
	gain.Mul(pxy, pyyInv)

	predObs := mat.NewVecDense(ny, nil)
	predObs.MulVec(h, mean)

	innovation := mat.NewVecDense(ny, nil)
	innovation.SubVec(obs, predObs)

	corr := mat.NewVecDense(nx, nil)
	corr.MulVec(gain, innovation)

	newMean := mat.NewVecDense(nx, nil)
	newMean.AddVec(mean, corr)

	eye := mat.NewDense(nx, nx, nil)
	for i := 0; i < nx; i++ {
		eye.Set(i, i, 1)
	}
	kh := mat.NewDense(nx, nx, nil)
	kh.Mul(gain, h)
	a := mat.NewDense(nx, nx, nil)
	a.Sub(eye, kh)

	apat := mat.NewDense(nx, nx, nil)
	apat.Mul(a, pDense)
	apat.Mul(apat, a.T())

	kr := mat.NewDense(nx, ny, nil)
	kr.Mul(gain, obsCov.Dense())
	krkt := mat.NewDense(nx, nx, nil)
	krkt.Mul(kr, gain.T())

	pCorrDense := mat.NewDense(nx, nx, nil)
	pCorrDense.Add(apat, krkt)

	pCorrSym := mat.NewSymDense(nx, nil)
	for i := 0; i < nx; i++ {
		for j := i; j < nx; j++ {
			pCorrSym.SetSym(i, j, 0.5*(pCorrDense.At(i, j)+pCorrDense.At(j, i)))
		}
	}

	var eig mat.EigenSym
	if ok := eig.Factorize(pCorrSym, false); ok {
		for _, v := range eig.Values(nil) {
			if v < -1e-6 {
				return nil, nil, roadtrack.Numericf(op, fmt.Errorf("posterior covariance is not PSD: min eigenvalue %g", v))
			}
		}
	}

	newCov, err := linalg.NewSvdMatrixFromSym(pCorrSym)
	if err != nil {
		return nil, nil, roadtrack.Numericf(op, err)
	}
	// The eig check above screens the pre-SVD symmetric matrix; this
	// catches NaNs the SVD factorization itself could introduce.
	if !newCov.IsPSD(1e-6) {
		return nil, nil, roadtrack.Numericf(op, fmt.Errorf("posterior covariance failed post-factorization PSD check"))
	}

	return newMean, newCov, nil
}
