// Package pathstate implements the path-state algebra: PathState values,
// bidirectional ground/road projection, state differencing across the
// five canonical topological cases, and path merging. It is grounded on
// original_source/.../util/PathUtils.java and
// .../graph/paths/states/impl/SimplePathState.java.
package pathstate

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/trailmark/roadtrack"
	"github.com/trailmark/roadtrack/graph"
	"github.com/trailmark/roadtrack/linalg"
)

// PathState is a (path, motion_state) pair. motion_state has dimension 4
// (ground: x, vx, y, vy) iff Path is the null path, and dimension 2 (road:
// s, v_s) otherwise. RawS retains the unclamped arc-length New computed
// motion[0] from, before ClampToPath pinned it to the path's valid range;
// it is meaningless off-road. StateDiff's useRaw selects it in place of
// the clamped Motion[0], per spec.md §4.5 and SimplePathState's distinct
// rawState/globalState pair.
type PathState struct {
	Path   graph.Path
	Motion *mat.VecDense
	RawS   float64
}

// New validates spec.md §3's dimensionality invariant and, for on-road
// states, clamps motion[0] to the path's valid arc-length range while
// retaining the unclamped value in RawS.
func New(path graph.Path, motion *mat.VecDense) (PathState, error) {
	if path.IsNull() {
		if motion.Len() != 4 {
			return PathState{}, roadtrack.Contractf("pathstate.New", fmt.Errorf("off-road motion state must have dimension 4, got %d", motion.Len()))
		}
		return PathState{Path: path, Motion: motion}, nil
	}
	if motion.Len() != 2 {
		return PathState{}, roadtrack.Contractf("pathstate.New", fmt.Errorf("on-road motion state must have dimension 2, got %d", motion.Len()))
	}
	rawS := motion.AtVec(0)
	clamped := mat.NewVecDense(2, []float64{path.ClampToPath(rawS), motion.AtVec(1)})
	return PathState{Path: path, Motion: clamped, RawS: rawS}, nil
}

// SingleEdgePath wraps edge in a one-edge Path traversed forward from its
// native geometry start, the path a particle lands on when it transitions
// from off-road (or from a different edge) onto edge for the first time.
func SingleEdgePath(edge graph.Edge) (graph.Path, error) {
	seg := graph.Segment{Edge: edge, StartOffset: 0, Line: edge.Geometry()}
	return graph.NewPath([]graph.PathEdge{{Segment: seg, DistToStartOfEdge: 0, IsBackward: false}})
}

// GetTruncatedPathState truncates ps's path to end at the edge containing
// ps's current position, dropping any trailing edges a candidate-scoring
// walk added beyond it, per SimplePathState.getTruncatedPathStateBelief.
// Off-road states are returned unchanged.
func GetTruncatedPathState(ps PathState) (PathState, error) {
	if !ps.IsOnRoad() {
		return ps, nil
	}

	currentEdge, _, err := ps.Path.EdgeForDistance(ps.Motion.AtVec(0))
	if err != nil {
		return PathState{}, err
	}

	var truncated []graph.PathEdge
	for _, e := range ps.Path.Edges() {
		truncated = append(truncated, e)
		if e.Segment.Edge.Equal(currentEdge.Segment.Edge) {
			break
		}
	}

	newPath, err := graph.NewPath(truncated)
	if err != nil {
		return PathState{}, err
	}
	return New(newPath, ps.Motion)
}

// IsOnRoad reports whether ps represents an on-road state.
func (ps PathState) IsOnRoad() bool { return !ps.Path.IsNull() }

// GroundLocation returns the (x, y) position implied by ps: the ground
// mean's position components directly for off-road states, or the
// projected position for on-road states given its covariance cov.
func (ps PathState) GroundLocation(cov *linalg.SvdMatrix) ([2]float64, error) {
	if !ps.IsOnRoad() {
		return [2]float64{ps.Motion.AtVec(0), ps.Motion.AtVec(2)}, nil
	}
	mean, _, err := GroundFromRoad(ps, cov, false)
	if err != nil {
		return [2]float64{}, err
	}
	return [2]float64{mean.AtVec(0), mean.AtVec(2)}, nil
}
