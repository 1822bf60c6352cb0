package vehicle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trailmark/roadtrack/config"
	"github.com/trailmark/roadtrack/transition"
)

func TestHash64IsDeterministicAndSeparatesParticles(t *testing.T) {
	a1 := hash64(42, 0)
	a2 := hash64(42, 0)
	b := hash64(42, 1)

	assert.Equal(t, a1, a2)
	assert.NotEqual(t, a1, b)
}

func defaultTransitionPrior(t *testing.T) transition.OnOffEdgeTransition {
	t.Helper()
	dist, err := transition.New([2]float64{0.9, 0.1}, [2]float64{0.95, 0.05})
	require.NoError(t, err)
	return dist
}

func TestNewInitialVehicleStateIsOffRoad(t *testing.T) {
	dist := defaultTransitionPrior(t)
	v, err := NewInitialVehicleState(0, 7, config.Default(), dist)
	require.NoError(t, err)

	assert.False(t, v.PathStateParam.Value.State.IsOnRoad())
	assert.Equal(t, 4, v.MotionStateParam.Value.Mean.Len())
}

func TestVehicleStateCloneIndependence(t *testing.T) {
	dist := defaultTransitionPrior(t)
	v, err := NewInitialVehicleState(0, 7, config.Default(), dist)
	require.NoError(t, err)

	clone := v.Clone()
	clone.MotionStateParam.Value.Mean.SetVec(0, 123)

	assert.NotEqual(t, 123.0, v.MotionStateParam.Value.Mean.AtVec(0))
	assert.Same(t, v, clone.ParentState)
	assert.Same(t, v.RNG(), clone.RNG())
}
