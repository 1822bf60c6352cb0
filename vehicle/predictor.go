package vehicle

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"

	"github.com/trailmark/roadtrack"
	"github.com/trailmark/roadtrack/covariance"
	"github.com/trailmark/roadtrack/graph"
	"github.com/trailmark/roadtrack/kalman"
	"github.com/trailmark/roadtrack/linalg"
	"github.com/trailmark/roadtrack/pathstate"
	"github.com/trailmark/roadtrack/transition"
)

// Predictor sequences a single particle-step against the shared,
// read-only road graph, per spec.md §4.8.
type Predictor struct {
	Graph  graph.RoadGraph
	Logger *slog.Logger
}

func (p *Predictor) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

// Step advances prior by one observation and returns the particle's
// posterior state. prior is never mutated; the returned state is built on
// a fresh Clone. Step 1's "skip the step" instruction is left to the
// caller: a non-positive Δt is returned as a ContractViolation rather than
// silently producing an unchanged state, since only the outer filter knows
// its retry/drop policy.
func (p *Predictor) Step(ctx context.Context, prior *VehicleState, obs *Observation) (*VehicleState, error) {
	const op = "vehicle.Predictor.Step"

	if prior.LastObservation == nil {
		return nil, roadtrack.Contractf(op, fmt.Errorf("prior particle has no previous observation to measure Δt against"))
	}
	dt := obs.Timestamp.Sub(prior.LastObservation.Timestamp).Seconds()
	if dt <= 0 {
		return nil, roadtrack.Contractf(op, fmt.Errorf("non-positive Δt: %g", dt))
	}

	next := prior.Clone()
	priorPathValue := next.PathStateParam.Value
	priorGround := next.MotionStateParam.Value
	onRoad := priorPathValue.State.IsOnRoad()

	// Step 2: rebuild filters for this Δt from the current process-
	// covariance posteriors.
	groundQ := next.OffRoadModelCovariance.Value.Mean()
	groundFilter, err := kalman.NewGroundFilter(dt, groundQ)
	if err != nil {
		return nil, err
	}

	// Step 3: predict.
	var predRoadMean *mat.VecDense
	var predRoadCov *linalg.SvdMatrix
	var predGroundMean *mat.VecDense
	var predGroundCov *linalg.SvdMatrix

	if onRoad {
		roadQ := next.OnRoadModelCovariance.Value.Mean().At(0, 0)
		roadFilter, rferr := kalman.NewRoadFilter(dt, roadQ, priorPathValue.State.Path.TotalPathDistance(), next.RNG())
		if rferr != nil {
			return nil, rferr
		}
		predRoadMean, predRoadCov, err = roadFilter.Predict(priorPathValue.State.Motion, priorPathValue.Cov)
		if err != nil {
			return nil, err
		}
	} else {
		predGroundMean, predGroundCov, err = groundFilter.Predict(priorGround.Mean, priorGround.Cov)
		if err != nil {
			return nil, err
		}
	}

	// Step 4: project between road and ground as required by step 5's
	// measurement, which always operates in ground coordinates.
	var measureMean *mat.VecDense
	var measureCov *linalg.SvdMatrix
	if onRoad {
		predPathState, perr := pathstate.New(priorPathValue.State.Path, predRoadMean)
		if perr != nil {
			return nil, perr
		}
		measureMean, measureCov, err = pathstate.GroundFromRoad(predPathState, predRoadCov, true)
		if err != nil {
			return nil, err
		}
	} else {
		measureMean, measureCov = predGroundMean, predGroundCov
	}

	// Step 5: measure the ground belief against obs.ProjectedXY.
	obsScale := next.ObservationCovariance.Value.Mean()
	obsCov := linalg.NewSvdMatrixDiag([]float64{obsScale, obsScale})
	postGroundMean, postGroundCov, err := groundFilter.Measure(measureMean, measureCov, obs.ProjectedXY, obsCov)
	if err != nil {
		return nil, err
	}

	// Step 6: sample the next edge via the learned transition
	// distribution, then re-project the posterior onto whatever path (or
	// off-road ground state) the sample landed on. On-road candidates are
	// weighted by how tightly the raw observation reprojects onto each one
	// (pathstate.RoadObservation), rather than drawn uniformly.
	currentEdge := priorPathValue.State.Path.LastEdge()
	domainQuery := transition.DomainQuery{
		Graph:        p.Graph,
		OnRoad:       onRoad,
		MeanLocation: [2]float64{postGroundMean.AtVec(0), postGroundMean.AtVec(2)},
		ObsCov:       postGroundCov,
		CurrentEdge:  currentEdge,
		DistanceToGo: distanceToGo(onRoad, predRoadMean),
	}
	if onRoad {
		domainQuery.RoadObservationScore = func(edge graph.Edge) (float64, float64, error) {
			var candidatePath graph.Path
			var perr error
			if currentEdge.Equal(edge) {
				// Staying on the current edge: score against the already
				// walked path narrowed down to it, rather than a bare
				// single-edge path built from scratch.
				truncated, terr := pathstate.GetTruncatedPathState(priorPathValue.State)
				if terr != nil {
					return 0, 0, terr
				}
				candidatePath = truncated.Path
			} else {
				candidatePath, perr = pathstate.SingleEdgePath(edge)
				if perr != nil {
					return 0, 0, perr
				}
			}
			return pathstate.RoadObservation(obs.ProjectedXY, obsCov, candidatePath)
		}
	}
	nextEdge, err := next.EdgeTransitionParam.Value.Dist.Sample(next.RNG(), domainQuery)
	if err != nil {
		return nil, err
	}

	next.MotionStateParam.Value = SvdBelief{Mean: postGroundMean, Cov: postGroundCov}

	var newPathValue PathStateValue
	if nextEdge.IsNull() {
		newPathValue = PathStateValue{
			State: pathstate.PathState{Path: graph.NullPath, Motion: postGroundMean},
			Cov:   postGroundCov,
		}
	} else {
		landingPath := priorPathValue.State.Path
		if !onRoad || !currentEdge.Equal(nextEdge) {
			landingPath, err = pathstate.SingleEdgePath(nextEdge)
			if err != nil {
				return nil, err
			}
		}
		roadState, roadCov, perr := pathstate.RoadFromGround(postGroundMean, postGroundCov, landingPath, pathstate.ProjectionOptions{})
		if perr != nil {
			return nil, perr
		}
		newPathValue = PathStateValue{State: roadState, Cov: roadCov}
	}
	next.PathStateParam.Value = newPathValue

	// Step 7: update covariance posteriors from this step's realized
	// residuals and observation error.
	sampledObs, err := sampleObservation(next.RNG(), groundFilter, postGroundMean, postGroundCov)
	if err != nil {
		return nil, err
	}
	errVec := covariance.ObservationErrorVector(obs.ProjectedXY, sampledObs)
	next.ObservationCovariance.Value = next.ObservationCovariance.Value.Update(errVec)

	// The residuals matrix mirrors a single realized noise sample as [r, -r]: a
	// zero-mean two-column set whose sample scatter is exactly 2·r·rᵀ
	// regardless of whether the scatter routine behind Update centers its
	// input, so a lone per-step residual still drives a nonzero update.
	if onRoad {
		wResidual := (predRoadMean.AtVec(1) - priorPathValue.State.Motion.AtVec(1)) / dt
		residuals := mat.NewDense(1, 2, []float64{wResidual, -wResidual})
		updated, uerr := next.OnRoadModelCovariance.Value.Update(residuals)
		if uerr != nil {
			return nil, uerr
		}
		next.OnRoadModelCovariance.Value = updated
	} else {
		wx := (predGroundMean.AtVec(1) - priorGround.Mean.AtVec(1)) / dt
		wy := (predGroundMean.AtVec(3) - priorGround.Mean.AtVec(3)) / dt
		residuals := mat.NewDense(2, 2, []float64{wx, -wx, wy, -wy})
		updated, uerr := next.OffRoadModelCovariance.Value.Update(residuals)
		if uerr != nil {
			return nil, uerr
		}
		next.OffRoadModelCovariance.Value = updated
	}

	p.logger().Debug("particle step", "dt", dt, "on_road", onRoad, "next_on_road", !nextEdge.IsNull())

	return next, nil
}

// distanceToGo is the on-road domain's search budget: the predicted
// arc-length position itself, matching getEdgesForLength's call with
// currentMotionState.getElement(0) (the position along the path, not the
// step's arc-length delta). Off-road steps don't use it.
func distanceToGo(onRoad bool, predRoadMean *mat.VecDense) float64 {
	if !onRoad {
		return 0
	}
	return predRoadMean.AtVec(0)
}

// sampleObservation draws spec.md §4.7's sampled_new_state_obs: a draw
// from the ground belief projected into observation space through the
// filter's own H, perturbed by the belief's own projected covariance via
// linalg.SvdMatrix.SampleN rather than a second ad hoc sampler.
func sampleObservation(rng *rand.Rand, gf *kalman.GroundFilter, mean *mat.VecDense, cov *linalg.SvdMatrix) (*mat.VecDense, error) {
	obsMean := mat.NewVecDense(2, nil)
	obsMean.MulVec(gf.Model.H, mean)

	obsCov, err := cov.Transform(gf.Model.H)
	if err != nil {
		return nil, err
	}
	draws, err := obsCov.SampleN(rng, 1)
	if err != nil {
		return nil, err
	}

	sampled := mat.NewVecDense(2, nil)
	sampled.AddVec(obsMean, draws.ColView(0))
	return sampled, nil
}
