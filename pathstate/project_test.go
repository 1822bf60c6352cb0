package pathstate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/mat"

	"github.com/trailmark/roadtrack/geom"
	"github.com/trailmark/roadtrack/graph"
	"github.com/trailmark/roadtrack/linalg"
)

func identityCov(t *testing.T, n int) *linalg.SvdMatrix {
	t.Helper()
	data := make([]float64, n*n)
	for i := 0; i < n; i++ {
		data[i*n+i] = 1
	}
	cov, err := linalg.NewSvdMatrixFromSym(mat.NewSymDense(n, data))
	require.NoError(t, err)
	return cov
}

func TestRoundTripGroundToRoadToGround(t *testing.T) {
	e := straightEdge(t, "e1", 0, 0, 10, 0)
	path := singleEdgePath(t, e)

	mean := mat.NewVecDense(4, []float64{3, 2, 0, 0})
	cov := identityCov(t, 4)

	ps, roadCov, err := RoadFromGround(mean, cov, path, ProjectionOptions{})
	require.NoError(t, err)
	require.NotNil(t, roadCov)
	assert.InDelta(t, 3, ps.Motion.AtVec(0), 1e-6)
	assert.InDelta(t, 2, ps.Motion.AtVec(1), 1e-6)

	backMean, _, err := GroundFromRoad(ps, roadCov, false)
	require.NoError(t, err)
	assert.True(t, scalar.EqualWithinAbs(3, backMean.AtVec(0), 1e-6))
	assert.True(t, scalar.EqualWithinAbs(0, backMean.AtVec(2), 1e-6))
}

func TestRoadFromGroundNegatesForBackwardPath(t *testing.T) {
	e := straightEdge(t, "e1", 0, 0, 10, 0)
	reversed := geom.Reverse(geom.MultiPolyline{e.Geometry()})[0]
	seg := graph.Segment{Edge: e, StartOffset: 0, Line: reversed}
	path, err := graph.NewPath([]graph.PathEdge{{Segment: seg, DistToStartOfEdge: 0, IsBackward: true}})
	require.NoError(t, err)

	mean := mat.NewVecDense(4, []float64{7, 1, 0, 0})
	cov := identityCov(t, 4)

	ps, _, err := RoadFromGround(mean, cov, path, ProjectionOptions{})
	require.NoError(t, err)
	assert.LessOrEqual(t, ps.Motion.AtVec(0), 0.0)
}

func TestRoadObservationProjectsRawObservation(t *testing.T) {
	e := straightEdge(t, "e1", 0, 0, 10, 0)
	path := singleEdgePath(t, e)

	obs := mat.NewVecDense(2, []float64{4, 0})
	obsCov := identityCov(t, 2)

	mean, variance, err := RoadObservation(obs, obsCov, path)
	require.NoError(t, err)
	assert.InDelta(t, 4, mean, 1e-6)
	assert.Greater(t, variance, 0.0)
}

func TestRoadObservationNearEdgeVarianceNotAboveFarEdge(t *testing.T) {
	near := singleEdgePath(t, straightEdge(t, "near", 0, 0, 10, 0))
	far := singleEdgePath(t, straightEdge(t, "far", 0, 5, 10, 5))

	obs := mat.NewVecDense(2, []float64{5, 0})
	obsCov := identityCov(t, 2)

	_, nearVariance, err := RoadObservation(obs, obsCov, near)
	require.NoError(t, err)
	_, farVariance, err := RoadObservation(obs, obsCov, far)
	require.NoError(t, err)

	assert.LessOrEqual(t, nearVariance, farVariance+1e-6)
}

func TestGetTruncatedPathStateStopsAtCurrentEdge(t *testing.T) {
	e1 := straightEdge(t, "e1", 0, 0, 10, 0)
	e2 := straightEdge(t, "e2", 10, 0, 20, 0)
	seg1 := graph.Segment{Edge: e1, StartOffset: 0, Line: e1.Geometry()}
	seg2 := graph.Segment{Edge: e2, StartOffset: 0, Line: e2.Geometry()}
	path, err := graph.NewPath([]graph.PathEdge{
		{Segment: seg1, DistToStartOfEdge: 0},
		{Segment: seg2, DistToStartOfEdge: 10},
	})
	require.NoError(t, err)

	ps, err := New(path, mat.NewVecDense(2, []float64{5, 1}))
	require.NoError(t, err)

	truncated, err := GetTruncatedPathState(ps)
	require.NoError(t, err)
	assert.Len(t, truncated.Path.Edges(), 1)
	assert.True(t, truncated.Path.LastEdge().Equal(e1))
	assert.InDelta(t, 5, truncated.Motion.AtVec(0), 1e-9)
}

func TestGetTruncatedPathStateOffRoadIsNoop(t *testing.T) {
	ps, err := New(graph.NullPath, mat.NewVecDense(4, []float64{1, 2, 3, 4}))
	require.NoError(t, err)

	truncated, err := GetTruncatedPathState(ps)
	require.NoError(t, err)
	assert.True(t, truncated.Path.IsNull())
}

func TestRoadFromGroundAppliesGeometryError(t *testing.T) {
	e := straightEdge(t, "e1", 0, 0, 10, 0)
	path := singleEdgePath(t, e)

	mean := mat.NewVecDense(4, []float64{3, 0, 0, 0})
	cov := identityCov(t, 4)

	_, roadCov, err := RoadFromGround(mean, cov, path, ProjectionOptions{})
	require.NoError(t, err)
	assert.Greater(t, roadCov.Dense().At(0, 0), 0.0)
}
