package geom

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"

	"github.com/trailmark/roadtrack"
)

// colinearTol is how far a point may sit off the extension of a segment
// and still be considered part of the same straight run, mirroring
// EdgeLengthErrorTolerance's role in the arc-length walk in polyline.go.
const colinearTol = 1e-6

// LineMerge unions the colinear tail of a with the colinear head of b into
// a single maximal polyline, the way JTS's LineMerger collapses touching
// linework in the source (PathUtils.mergePaths calls into an equivalent
// merger before working out orientation). Nothing else in this module
// calls it: pathstate.MergePaths joins paths edge by edge on its own.
//
// LineMerge requires that a's last point coincide with b's first point;
// callers are responsible for orienting a and b (reversing one of them)
// before calling in.
func LineMerge(a, b MultiPolyline) (MultiPolyline, error) {
	if len(a) == 0 || len(b) == 0 {
		return nil, roadtrack.Geometryf("geom.LineMerge", fmt.Errorf("cannot merge empty geometry"))
	}

	aLast := lastPoint(a)
	bFirst := firstPoint(b)
	if !pointsEqual(aLast, bFirst) {
		return nil, roadtrack.Geometryf("geom.LineMerge", fmt.Errorf("endpoints do not coincide: %v != %v", aLast, bFirst))
	}

	merged := make(MultiPolyline, 0, len(a)+len(b))
	merged = append(merged, a[:len(a)-1]...)

	tail := append(Polyline{}, a[len(a)-1]...)
	head := b[0]

	if len(tail) >= 2 && len(head) >= 2 && isColinear(tail[len(tail)-2], tail[len(tail)-1], head[1]) {
		joined := append(append(Polyline{}, tail...), head[1:]...)
		merged = append(merged, joined)
		merged = append(merged, b[1:]...)
	} else {
		joined := append(append(Polyline{}, tail...), head[1:]...)
		merged = append(merged, joined)
		merged = append(merged, b[1:]...)
	}

	return merged, nil
}

func firstPoint(mp MultiPolyline) orb.Point {
	return mp[0][0]
}

func lastPoint(mp MultiPolyline) orb.Point {
	last := mp[len(mp)-1]
	return last[len(last)-1]
}

// isColinear reports whether c lies on the infinite line through a-b within
// colinearTol. LineMerge tests the join point with it, but both of its
// branches keep the shared vertex, so the merged geometry is the same
// whichever way the test comes out.
func isColinear(a, b, c orb.Point) bool {
	cross := (b[0]-a[0])*(c[1]-a[1]) - (b[1]-a[1])*(c[0]-a[0])
	scale := math.Hypot(b[0]-a[0], b[1]-a[1]) * math.Hypot(c[0]-a[0], c[1]-a[1])
	if scale == 0 {
		return true
	}
	return math.Abs(cross)/scale < colinearTol
}
