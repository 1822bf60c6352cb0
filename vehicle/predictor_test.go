package vehicle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/trailmark/roadtrack/config"
	"github.com/trailmark/roadtrack/geom"
	"github.com/trailmark/roadtrack/graph"
	"github.com/trailmark/roadtrack/linalg"
	"github.com/trailmark/roadtrack/pathstate"
	"github.com/trailmark/roadtrack/transition"
)

func newTestPredictor() *Predictor {
	return &Predictor{Graph: graph.NewMemGraph()}
}

func TestStepRejectsNonPositiveDt(t *testing.T) {
	dist, err := transition.New([2]float64{0.9, 0.1}, [2]float64{0.95, 0.05})
	require.NoError(t, err)
	v, err := NewInitialVehicleState(0, 1, config.Default(), dist)
	require.NoError(t, err)

	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	v.LastObservation = NewObservation("src", t0, mat.NewVecDense(2, []float64{0, 0}), nil)

	obs := NewObservation("src", t0, mat.NewVecDense(2, []float64{1, 1}), v.LastObservation)

	p := newTestPredictor()
	_, err = p.Step(context.Background(), v, obs)
	assert.Error(t, err)
}

func TestStepOffRoadStaysOffRoadWithNoNearbyEdges(t *testing.T) {
	dist, err := transition.New([2]float64{0.9, 0.1}, [2]float64{0.95, 0.05})
	require.NoError(t, err)
	v, err := NewInitialVehicleState(0, 1, config.Default(), dist)
	require.NoError(t, err)

	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	v.LastObservation = NewObservation("src", t0, mat.NewVecDense(2, []float64{0, 0}), nil)

	obs := NewObservation("src", t0.Add(time.Second), mat.NewVecDense(2, []float64{10, 0}), v.LastObservation)

	p := newTestPredictor()
	next, err := p.Step(context.Background(), v, obs)
	require.NoError(t, err)

	assert.False(t, next.PathStateParam.Value.State.IsOnRoad())
	assert.NotSame(t, v, next)
	assert.Same(t, v, next.ParentState)

	loc, err := next.PathStateParam.Value.State.GroundLocation(next.PathStateParam.Value.Cov)
	require.NoError(t, err)
	assert.Greater(t, loc[0], 0.0)
}

func TestStepOnRoadFollowsEdge(t *testing.T) {
	g := graph.NewMemGraph()
	edge, err := g.AddEdge(geom.Polyline{{0, 0}, {100, 0}})
	require.NoError(t, err)

	dist, err := transition.New([2]float64{0.9, 0.1}, [2]float64{0.999999, 0.000001})
	require.NoError(t, err)
	v, err := NewInitialVehicleState(0, 1, config.Default(), dist)
	require.NoError(t, err)

	path, err := pathstate.SingleEdgePath(edge)
	require.NoError(t, err)
	motion := mat.NewVecDense(2, []float64{10, 5})
	roadState, err := pathstate.New(path, motion)
	require.NoError(t, err)
	v.PathStateParam.Value.State = roadState
	v.PathStateParam.Value.Cov = linalg.NewSvdMatrixDiag([]float64{1, 1})

	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	v.LastObservation = NewObservation("src", t0, mat.NewVecDense(2, []float64{10, 0}), nil)

	obs := NewObservation("src", t0.Add(time.Second), mat.NewVecDense(2, []float64{15, 0}), v.LastObservation)

	p := &Predictor{Graph: g}
	next, err := p.Step(context.Background(), v, obs)
	require.NoError(t, err)

	assert.True(t, next.PathStateParam.Value.State.IsOnRoad())
}
