package geom

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLineMergeColinear(t *testing.T) {
	a := MultiPolyline{Polyline{orb.Point{0, 0}, orb.Point{50, 0}}}
	b := MultiPolyline{Polyline{orb.Point{50, 0}, orb.Point{100, 0}}}

	merged, err := LineMerge(a, b)
	require.NoError(t, err)
	assert.InDelta(t, 100, merged.Length(), 1e-9)
}

func TestLineMergeMismatchedEndpoints(t *testing.T) {
	a := MultiPolyline{Polyline{orb.Point{0, 0}, orb.Point{50, 0}}}
	b := MultiPolyline{Polyline{orb.Point{60, 0}, orb.Point{100, 0}}}

	_, err := LineMerge(a, b)
	assert.Error(t, err)
}
