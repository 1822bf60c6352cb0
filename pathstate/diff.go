package pathstate

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/trailmark/roadtrack"
	"github.com/trailmark/roadtrack/geom"
	"github.com/trailmark/roadtrack/graph"
)

// StateDiff computes to.motion - from.motion in a common coordinate frame,
// resolving the five canonical topological cases of spec.md §4.5. Both
// states must be on-road; the off-road case delegates to plain ground
// vector subtraction. useRaw selects the unclamped path-relative arc
// length over the path-clamped one where the two differ.
func StateDiff(from, to PathState, useRaw bool) (*mat.VecDense, error) {
	if !from.IsOnRoad() || !to.IsOnRoad() {
		if from.IsOnRoad() || to.IsOnRoad() {
			return nil, roadtrack.Topologyf("pathstate.StateDiff", fmt.Errorf("cannot diff an on-road state against an off-road state"))
		}
		out := mat.NewVecDense(4, nil)
		out.SubVec(to.Motion, from.Motion)
		return out, nil
	}

	fromFirst, fromLast := from.Path.FirstEdge(), from.Path.LastEdge()
	toFirst, toLast := to.Path.FirstEdge(), to.Path.LastEdge()

	fromS, toS := motionComponent(from, useRaw, 0), motionComponent(to, useRaw, 0)
	fromV, toV := from.Motion.AtVec(1), to.Motion.AtVec(1)
	fromSign, toSign := pathSign(from.Path), pathSign(to.Path)

	switch {
	// Head-to-tail: from's path ends where to's path begins, both
	// traversing the shared edge the same way, so the two paths' signed
	// arc-length frames already agree; no direction flip is needed.
	case fromLast.Equal(toFirst) && !fromLast.Equal(toLast):
		dFrom, _, err := edgeOffsetAndLength(from.Path, fromLast)
		if err != nil {
			return nil, err
		}
		return mat.NewVecDense(2, []float64{
			toS + dFrom - fromS,
			toV - fromV,
		}), nil

	// Same start: both paths begin at the same directed edge, so again
	// the frames already agree.
	case fromFirst.Equal(toFirst):
		return mat.NewVecDense(2, []float64{toS - fromS, toV - fromV}), nil

	// Head-to-tail, reversed geometry: from's path ends where to's path
	// begins, but the shared edge is traversed in opposite directions.
	case topoEqual(fromLast, toFirst):
		fromTotalAbs := math.Abs(from.Path.TotalPathDistance())
		otherDist := toSign * (fromTotalAbs - math.Abs(fromS))
		otherVelRev := -1 * fromSign * fromV
		thisVel := toSign * toV
		return mat.NewVecDense(2, []float64{
			toS - otherDist,
			toSign * (thisVel - otherVelRev),
		}), nil

	// Same start, opposite path directions: both paths begin at the same
	// location but diverge along the shared edge in opposite directions.
	case topoEqual(fromFirst, toFirst):
		adjustedLocation := -1 * (math.Abs(fromS) - fromFirst.Length())
		distDiff := toSign * (math.Abs(toS) - adjustedLocation)
		velSign := -1.0
		if fromSign != toSign {
			velSign = 1.0
		}
		return mat.NewVecDense(2, []float64{
			distDiff,
			toV - velSign*fromV,
		}), nil

	// Tail-to-head: from's path begins where to's path ends.
	case fromFirst.Equal(toLast):
		dTo, _, err := edgeOffsetAndLength(to.Path, toLast)
		if err != nil {
			return nil, err
		}
		sign := 1.0
		if fromSign != toSign {
			sign = -1.0
		}
		fromVecS := sign*fromS + dTo
		fromVecV := sign * fromV
		return mat.NewVecDense(2, []float64{
			toS - fromVecS,
			toV - fromVecV,
		}), nil

	default:
		return nil, roadtrack.Topologyf("pathstate.StateDiff", fmt.Errorf("no canonical topological case matches from/to paths"))
	}
}

// pathSign is +1 for a forward-traversed path and -1 for a backward one,
// mirroring PathUtils' isBackward()-conditioned scale(-1d) flips.
func pathSign(p graph.Path) float64 {
	if p.IsBackward() {
		return -1
	}
	return 1
}

func motionComponent(ps PathState, useRaw bool, idx int) float64 {
	if idx == 0 && useRaw {
		return ps.RawS
	}
	return ps.Motion.AtVec(idx)
}

func edgeOffsetAndLength(path graph.Path, edge graph.Edge) (offset, length float64, err error) {
	for _, e := range path.Edges() {
		if e.Segment.Edge.Equal(edge) {
			return e.DistToStartOfEdge, e.Segment.Edge.Length(), nil
		}
	}
	return 0, 0, roadtrack.Topologyf("pathstate.edgeOffsetAndLength", fmt.Errorf("edge not found in path"))
}

// topoEqual reports whether a and b are the same edge geometry, allowing
// for one being the reverse-direction traversal of the other.
func topoEqual(a, b graph.Edge) bool {
	if a.Equal(b) {
		return true
	}
	return a.Equal(reverseEdge(b))
}

func reverseEdge(e graph.Edge) graph.Edge {
	if e.IsNull() {
		return e
	}
	g := e.Geometry()
	rev := make(geom.Polyline, len(g))
	for i, pt := range g {
		rev[len(rev)-1-i] = pt
	}
	out, err := graph.NewEdge(e.ID(), rev)
	if err != nil {
		return e
	}
	return out
}

// DistanceMax returns the bound |result[0]| is checked against: the sum of
// both paths' total lengths. It is the same for every topological case and
// over-approximates each case's own tighter bound.
func DistanceMax(from, to PathState) float64 {
	return math.Abs(from.Path.TotalPathDistance()) + math.Abs(to.Path.TotalPathDistance())
}
