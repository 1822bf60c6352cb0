package pathstate

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/trailmark/roadtrack/geom"
	"github.com/trailmark/roadtrack/graph"
)

func twoEdgePath(t *testing.T) (graph.Path, graph.Edge, graph.Edge) {
	t.Helper()
	e1 := straightEdge(t, "e1", 0, 0, 10, 0)
	e2 := straightEdge(t, "e2", 10, 0, 10, 10)
	seg1 := graph.Segment{Edge: e1, StartOffset: 0, Line: e1.Geometry()}
	seg2 := graph.Segment{Edge: e2, StartOffset: 0, Line: e2.Geometry()}
	path, err := graph.NewPath([]graph.PathEdge{
		{Segment: seg1, DistToStartOfEdge: 0},
		{Segment: seg2, DistToStartOfEdge: 10},
	})
	require.NoError(t, err)
	return path, e1, e2
}

func TestStateDiffOffRoad(t *testing.T) {
	from, err := New(graph.NullPath, mat.NewVecDense(4, []float64{0, 1, 0, 1}))
	require.NoError(t, err)
	to, err := New(graph.NullPath, mat.NewVecDense(4, []float64{3, 1, 4, 1}))
	require.NoError(t, err)

	diff, err := StateDiff(from, to, false)
	require.NoError(t, err)
	assert.InDelta(t, 3, diff.AtVec(0), 1e-9)
	assert.InDelta(t, 4, diff.AtVec(2), 1e-9)
}

func TestStateDiffMixedIsError(t *testing.T) {
	off, err := New(graph.NullPath, mat.NewVecDense(4, []float64{0, 0, 0, 0}))
	require.NoError(t, err)

	e := straightEdge(t, "e1", 0, 0, 10, 0)
	on, err := New(singleEdgePath(t, e), mat.NewVecDense(2, []float64{1, 0}))
	require.NoError(t, err)

	_, err = StateDiff(off, on, false)
	assert.Error(t, err)
}

func TestStateDiffSameStartSameDirection(t *testing.T) {
	e := straightEdge(t, "e1", 0, 0, 10, 0)
	path := singleEdgePath(t, e)

	from, err := New(path, mat.NewVecDense(2, []float64{2, 1}))
	require.NoError(t, err)
	to, err := New(path, mat.NewVecDense(2, []float64{6, 1}))
	require.NoError(t, err)

	diff, err := StateDiff(from, to, false)
	require.NoError(t, err)
	assert.InDelta(t, 4, diff.AtVec(0), 1e-9)
	assert.InDelta(t, 0, diff.AtVec(1), 1e-9)
}

func TestStateDiffHeadToTailSameDirection(t *testing.T) {
	path, e1, _ := twoEdgePath(t)

	fromPath := singleEdgePath(t, e1)
	from, err := New(fromPath, mat.NewVecDense(2, []float64{8, 1}))
	require.NoError(t, err)

	to, err := New(path, mat.NewVecDense(2, []float64{12, 1}))
	require.NoError(t, err)

	diff, err := StateDiff(from, to, false)
	require.NoError(t, err)
	assert.InDelta(t, 4, diff.AtVec(0), 1e-9)
}

func TestStateDiffUseRawSelectsUnclampedArcLength(t *testing.T) {
	e := straightEdge(t, "e1", 0, 0, 10, 0)
	path := singleEdgePath(t, e)

	from, err := New(path, mat.NewVecDense(2, []float64{2, 1}))
	require.NoError(t, err)
	to, err := New(path, mat.NewVecDense(2, []float64{15, 1}))
	require.NoError(t, err)

	assert.InDelta(t, 10, to.Motion.AtVec(0), 1e-9)
	assert.InDelta(t, 15, to.RawS, 1e-9)

	clamped, err := StateDiff(from, to, false)
	require.NoError(t, err)
	raw, err := StateDiff(from, to, true)
	require.NoError(t, err)

	assert.InDelta(t, 8, clamped.AtVec(0), 1e-9)
	assert.InDelta(t, 13, raw.AtVec(0), 1e-9)
}

func reversedEdge(t *testing.T, e graph.Edge, newID string) graph.Edge {
	t.Helper()
	g := e.Geometry()
	rev := make(geom.Polyline, len(g))
	for i, pt := range g {
		rev[len(rev)-1-i] = pt
	}
	out, err := graph.NewEdge(newID, rev)
	require.NoError(t, err)
	return out
}

func backwardSingleEdgePath(t *testing.T, e graph.Edge) graph.Path {
	t.Helper()
	seg := graph.Segment{Edge: e, StartOffset: 0, Line: e.Geometry()}
	p, err := graph.NewPath([]graph.PathEdge{{Segment: seg, DistToStartOfEdge: 0, IsBackward: true}})
	require.NoError(t, err)
	return p
}

func TestStateDiffHeadToTailReversedGeometryRespectsBackwardFlag(t *testing.T) {
	e1 := straightEdge(t, "e1", 0, 0, 10, 0)
	e2 := reversedEdge(t, e1, "e1rev")

	fromPath := singleEdgePath(t, e1)
	from, err := New(fromPath, mat.NewVecDense(2, []float64{8, 1}))
	require.NoError(t, err)

	toPath := backwardSingleEdgePath(t, e2)
	to, err := New(toPath, mat.NewVecDense(2, []float64{-3, 0.5}))
	require.NoError(t, err)

	diff, err := StateDiff(from, to, false)
	require.NoError(t, err)
	assert.InDelta(t, -1, diff.AtVec(0), 1e-9)
	assert.LessOrEqual(t, math.Abs(diff.AtVec(0)), DistanceMax(from, to)+1e-9)
}

func TestStateDiffSameStartOppositeDirectionRespectsBackwardFlag(t *testing.T) {
	ea := straightEdge(t, "ea", 0, 0, 10, 0)
	eb := straightEdge(t, "eb", 10, 0, 20, 0)
	segA := graph.Segment{Edge: ea, StartOffset: 0, Line: ea.Geometry()}
	segB := graph.Segment{Edge: eb, StartOffset: 0, Line: eb.Geometry()}
	fromPath, err := graph.NewPath([]graph.PathEdge{
		{Segment: segA, DistToStartOfEdge: 0},
		{Segment: segB, DistToStartOfEdge: 10},
	})
	require.NoError(t, err)
	from, err := New(fromPath, mat.NewVecDense(2, []float64{3, 1}))
	require.NoError(t, err)

	eaRev := reversedEdge(t, ea, "earev")
	toPath := backwardSingleEdgePath(t, eaRev)
	to, err := New(toPath, mat.NewVecDense(2, []float64{-4, 0.2}))
	require.NoError(t, err)

	diff, err := StateDiff(from, to, false)
	require.NoError(t, err)
	assert.InDelta(t, 3, diff.AtVec(0), 1e-9)
	assert.LessOrEqual(t, math.Abs(diff.AtVec(0)), DistanceMax(from, to)+1e-9)
}

func TestStateDiffTailToHeadRespectsBackwardFlag(t *testing.T) {
	ea := straightEdge(t, "ea", 0, 0, 10, 0)
	eb := straightEdge(t, "eb", 10, 0, 20, 0)
	segA := graph.Segment{Edge: ea, StartOffset: 0, Line: ea.Geometry()}
	segB := graph.Segment{Edge: eb, StartOffset: 0, Line: eb.Geometry()}
	toPath, err := graph.NewPath([]graph.PathEdge{
		{Segment: segA, DistToStartOfEdge: 0},
		{Segment: segB, DistToStartOfEdge: 10},
	})
	require.NoError(t, err)
	to, err := New(toPath, mat.NewVecDense(2, []float64{13, 1.5}))
	require.NoError(t, err)

	fromPath := backwardSingleEdgePath(t, eb)
	from, err := New(fromPath, mat.NewVecDense(2, []float64{-3, 2}))
	require.NoError(t, err)

	diff, err := StateDiff(from, to, false)
	require.NoError(t, err)
	assert.InDelta(t, 0, diff.AtVec(0), 1e-9)
	assert.InDelta(t, 3.5, diff.AtVec(1), 1e-9)
	assert.LessOrEqual(t, math.Abs(diff.AtVec(0)), DistanceMax(from, to)+1e-9)
}

func TestDistanceMaxIsNonNegative(t *testing.T) {
	path, _, _ := twoEdgePath(t)
	ps, err := New(path, mat.NewVecDense(2, []float64{5, 0}))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, DistanceMax(ps, ps), 0.0)
}
