package pathstate

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"gonum.org/v1/gonum/mat"

	"github.com/trailmark/roadtrack"
	"github.com/trailmark/roadtrack/geom"
	"github.com/trailmark/roadtrack/graph"
	"github.com/trailmark/roadtrack/kalman"
	"github.com/trailmark/roadtrack/linalg"
)

func orbPoint(x, y float64) orb.Point {
	return orb.Point{x, y}
}

// projectionPair builds the per-segment projection matrix P (4x2), its
// transpose Pt (2x4), and the offset vector a (4), per spec.md §4.5:
// P = U·[[P1,0],[0,P1]], a = U·stack(p0 - P1·|d|, 0, 0), where U is the
// (x,y,vx,vy) → (x,vx,y,vy) coordinate swap. Because P bakes U in already,
// downstream arithmetic works directly against ground vectors in
// (x,vx,y,vy) order.
func projectionPair(edge graph.PathEdge) (p, pt *mat.Dense, a *mat.VecDense, err error) {
	line := edge.Segment.Line
	if len(line) < 2 {
		return nil, nil, nil, roadtrack.Geometryf("pathstate.projectionPair", fmt.Errorf("segment has fewer than 2 points"))
	}
	p0 := line[0]
	p1pt := line[len(line)-1]
	dx, dy := p1pt[0]-p0[0], p1pt[1]-p0[1]
	length := math.Hypot(dx, dy)
	if length == 0 {
		return nil, nil, nil, roadtrack.Geometryf("pathstate.projectionPair", fmt.Errorf("degenerate zero-length segment"))
	}
	p1x, p1y := dx/length, dy/length

	p = mat.NewDense(4, 2, []float64{
		p1x, 0,
		0, p1x,
		p1y, 0,
		0, p1y,
	})
	pt = mat.NewDense(2, 4, nil)
	pt.CloneFrom(p.T())

	d := math.Abs(edge.DistToStartOfEdge)
	ax := p0[0] - p1x*d
	ay := p0[1] - p1y*d
	a = mat.NewVecDense(4, []float64{ax, 0, ay, 0})

	return p, pt, a, nil
}

// GroundFromRoad lifts an on-road PathState and its covariance to ground,
// following spec.md §4.5's "Ground ← Road" rule. useAbsVelocity replaces
// the signed scalar velocity with its magnitude when building the
// velocity sub-vector, so the lifted heading always points along the
// segment's forward direction.
func GroundFromRoad(ps PathState, cov *linalg.SvdMatrix, useAbsVelocity bool) (*mat.VecDense, *linalg.SvdMatrix, error) {
	if !ps.IsOnRoad() {
		return nil, nil, roadtrack.Contractf("pathstate.GroundFromRoad", fmt.Errorf("state is already off-road"))
	}

	s := ps.Motion.AtVec(0)
	vs := ps.Motion.AtVec(1)
	sPositive := s
	if ps.Path.IsBackward() {
		sPositive = -s
	}

	edge, _, err := ps.Path.EdgeForDistance(s)
	if err != nil {
		return nil, nil, err
	}

	p, _, a, err := projectionPair(edge)
	if err != nil {
		return nil, nil, err
	}

	vUse := vs
	if useAbsVelocity {
		vUse = math.Abs(vs)
	}
	road := mat.NewVecDense(2, []float64{sPositive, vUse})

	mean := mat.NewVecDense(4, nil)
	mean.MulVec(p, road)
	mean.AddVec(mean, a)

	groundCov, err := cov.Transform(p)
	if err != nil {
		return nil, nil, err
	}
	return mean, groundCov, nil
}

// ProjectionOptions carries the optional inputs to RoadFromGround.
type ProjectionOptions struct {
	// Segment, if non-nil, is used instead of snapping.
	Segment *graph.PathEdge
	// PreviousLocation and Dt, if both set (Dt > 0), overwrite the
	// projected scalar velocity with the snap-to-snap displacement rate.
	PreviousLocation *[2]float64
	Dt               float64
}

// RoadFromGround projects a ground (mean, covariance) onto path, following
// spec.md §4.5's "Road ← Ground" rule: snap, build the projection pair,
// invert it, negate for a backward path, and optionally override the
// velocity magnitude from consecutive snapped positions.
func RoadFromGround(mean *mat.VecDense, cov *linalg.SvdMatrix, path graph.Path, opts ProjectionOptions) (PathState, *linalg.SvdMatrix, error) {
	if path.IsNull() {
		return PathState{}, nil, roadtrack.Contractf("pathstate.RoadFromGround", fmt.Errorf("cannot project onto a null path"))
	}

	var edge graph.PathEdge
	var snapPt [2]float64

	if opts.Segment != nil {
		edge = *opts.Segment
		loc, pt, err := geom.Snap(geom.MultiPolyline{edge.Segment.Line}, orbPoint(mean.AtVec(0), mean.AtVec(2)))
		if err != nil {
			return PathState{}, nil, err
		}
		_ = loc
		snapPt = [2]float64{pt[0], pt[1]}
	} else {
		multi := pathPolyline(path)
		loc, pt, err := geom.Snap(multi, orbPoint(mean.AtVec(0), mean.AtVec(2)))
		if err != nil {
			return PathState{}, nil, err
		}
		d, err := geom.LocationToLength(multi, loc)
		if err != nil {
			return PathState{}, nil, err
		}
		signedD := d
		if path.IsBackward() {
			signedD = -d
		}
		e, _, err := path.EdgeForDistance(signedD)
		if err != nil {
			return PathState{}, nil, err
		}
		edge = e
		snapPt = [2]float64{pt[0], pt[1]}
	}

	_, pt, a, err := projectionPair(edge)
	if err != nil {
		return PathState{}, nil, err
	}

	adjusted := mat.NewVecDense(4, nil)
	adjusted.CopyVec(mean)
	adjusted.SetVec(0, snapPt[0])
	adjusted.SetVec(2, snapPt[1])

	diff := mat.NewVecDense(4, nil)
	diff.SubVec(adjusted, a)

	road := mat.NewVecDense(2, nil)
	road.MulVec(pt, diff)

	if path.IsBackward() {
		road.SetVec(0, -road.AtVec(0))
	}

	if opts.PreviousLocation != nil && opts.Dt > 0 {
		dx := snapPt[0] - opts.PreviousLocation[0]
		dy := snapPt[1] - opts.PreviousLocation[1]
		speed := math.Hypot(dx, dy) / opts.Dt
		if road.AtVec(1) < 0 {
			speed = -speed
		}
		road.SetVec(1, speed)
	}

	ps, err := New(path, road)
	if err != nil {
		return PathState{}, nil, err
	}

	roadCov, err := cov.Transform(pt)
	if err != nil {
		return PathState{}, nil, err
	}

	roadCov, err = addGeometryError(roadCov)
	if err != nil {
		return PathState{}, nil, err
	}

	return ps, roadCov, nil
}

// RoadObservation projects a raw 2-D ground observation (not a belief mean)
// onto a candidate path for likelihood scoring, per
// PathUtils.getRoadObservation: the observation is lifted to ground space
// with zero velocity and its covariance expanded to the position block
// only, then run through the same snap-and-project pipeline RoadFromGround
// uses. Returns the resulting road-position mean and variance.
func RoadObservation(obs *mat.VecDense, obsCov *linalg.SvdMatrix, path graph.Path) (mean, variance float64, err error) {
	groundMean := mat.NewVecDense(4, []float64{obs.AtVec(0), 0, obs.AtVec(1), 0})

	groundCov, err := expandPositionCov(obsCov)
	if err != nil {
		return 0, 0, err
	}

	roadState, roadCov, err := RoadFromGround(groundMean, groundCov, path, ProjectionOptions{})
	if err != nil {
		return 0, 0, err
	}
	return roadState.Motion.AtVec(0), roadCov.Dense().At(0, 0), nil
}

// expandPositionCov embeds a 2x2 (x,y) observation covariance into the
// (x,vx,y,vy) ground layout at the position indices, leaving the velocity
// block zero, mirroring MotionStateEstimatorPredictor.getOg()'s transpose.
func expandPositionCov(c *linalg.SvdMatrix) (*linalg.SvdMatrix, error) {
	dense := c.Dense()
	full := mat.NewSymDense(4, nil)
	full.SetSym(0, 0, dense.At(0, 0))
	full.SetSym(0, 2, dense.At(0, 1))
	full.SetSym(2, 2, dense.At(1, 1))
	return linalg.NewSvdMatrixFromSym(full)
}

// addGeometryError inflates a projected road covariance by
// kalman.RoadMeasurementError to account for approximating curved road
// geometry with straight segments, per spec.md §6's road-measurement-error
// constant.
func addGeometryError(cov *linalg.SvdMatrix) (*linalg.SvdMatrix, error) {
	dense := cov.Dense()
	sum := mat.NewSymDense(2, nil)
	sum.AddSym(dense, kalman.RoadMeasurementError)
	return linalg.NewSvdMatrixFromSym(sum)
}

func pathPolyline(path graph.Path) geom.MultiPolyline {
	mp := make(geom.MultiPolyline, 0, len(path.Edges()))
	for _, e := range path.Edges() {
		mp = append(mp, e.Segment.Line)
	}
	return mp
}
