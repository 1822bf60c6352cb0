// Package geom implements arc-length indexing over polylines: locating a
// point at a given distance, snapping a 2-D point to the nearest segment,
// extracting sublines, reversing, and merging colinear geometry. It uses
// github.com/paulmach/orb as its coordinate vocabulary.
package geom

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"

	"github.com/trailmark/roadtrack"
)

// EdgeLengthErrorTolerance is the numerical tolerance, in meters, within
// which an arc-length value is still considered on-path.
const EdgeLengthErrorTolerance = 1.0

// Polyline is a single connected component: an ordered list of points.
type Polyline []orb.Point

// MultiPolyline is geometry with possibly several disconnected components,
// e.g. the result of a line-merge that could not fully join two paths.
type MultiPolyline []Polyline

// Location identifies a point on a MultiPolyline by component, segment and
// fraction along that segment.
type Location struct {
	Component int
	Segment   int
	Fraction  float64
}

// Length returns the total length of a single component.
func (p Polyline) Length() float64 {
	total := 0.0
	for i := 1; i < len(p); i++ {
		total += planarDistance(p[i-1], p[i])
	}
	return total
}

// Length returns the total length across every component.
func (mp MultiPolyline) Length() float64 {
	total := 0.0
	for _, p := range mp {
		total += p.Length()
	}
	return total
}

func planarDistance(a, b orb.Point) float64 {
	dx := a[0] - b[0]
	dy := a[1] - b[1]
	return math.Hypot(dx, dy)
}

// LengthToLocation maps a nonnegative distance d, measured from the start
// of the first component, to a Location. At an exact component boundary it
// prefers the next component (Segment 0, Fraction 0) over the tail of the
// previous one, matching the source's segment walk which always advances
// past a zero-length remainder onto the next segment.
func LengthToLocation(mp MultiPolyline, d float64) (Location, error) {
	if d < -EdgeLengthErrorTolerance {
		return Location{}, roadtrack.Geometryf("geom.LengthToLocation", fmt.Errorf("negative distance: %f", d))
	}
	if d < 0 {
		d = 0
	}

	remaining := d
	for ci, comp := range mp {
		compLen := comp.Length()
		if remaining > compLen+EdgeLengthErrorTolerance {
			remaining -= compLen
			continue
		}
		if remaining >= compLen {
			// Exactly at (or within tolerance of) this component's end.
			if ci+1 < len(mp) {
				remaining -= compLen
				continue // prefer the next component
			}
			return lastLocation(mp, ci), nil
		}
		return locationWithinComponent(ci, comp, remaining)
	}
	return Location{}, roadtrack.Geometryf("geom.LengthToLocation", fmt.Errorf("distance %f exceeds polyline length %f", d, mp.Length()))
}

func lastLocation(mp MultiPolyline, ci int) Location {
	comp := mp[ci]
	return Location{Component: ci, Segment: len(comp) - 2, Fraction: 1}
}

func locationWithinComponent(ci int, comp Polyline, remaining float64) (Location, error) {
	for si := 0; si+1 < len(comp); si++ {
		segLen := planarDistance(comp[si], comp[si+1])
		if remaining > segLen+EdgeLengthErrorTolerance {
			remaining -= segLen
			continue
		}
		if segLen == 0 {
			return Location{Component: ci, Segment: si, Fraction: 0}, nil
		}
		frac := remaining / segLen
		if frac > 1 {
			frac = 1
		}
		return Location{Component: ci, Segment: si, Fraction: frac}, nil
	}
	return Location{}, roadtrack.Geometryf("geom.locationWithinComponent", fmt.Errorf("remaining distance %f not resolved within component", remaining))
}

// LocationToLength is the inverse of LengthToLocation: the distance from
// the start of the first component to loc.
func LocationToLength(mp MultiPolyline, loc Location) (float64, error) {
	if loc.Component < 0 || loc.Component >= len(mp) {
		return 0, roadtrack.Geometryf("geom.LocationToLength", fmt.Errorf("component index out of range: %d", loc.Component))
	}
	total := 0.0
	for ci := 0; ci < loc.Component; ci++ {
		total += mp[ci].Length()
	}
	comp := mp[loc.Component]
	if loc.Segment < 0 || loc.Segment+1 >= len(comp) {
		return 0, roadtrack.Geometryf("geom.LocationToLength", fmt.Errorf("segment index out of range: %d", loc.Segment))
	}
	for si := 0; si < loc.Segment; si++ {
		total += planarDistance(comp[si], comp[si+1])
	}
	total += loc.Fraction * planarDistance(comp[loc.Segment], comp[loc.Segment+1])
	return total, nil
}

// ClampToLength clamps d into [0, mp.Length()].
func ClampToLength(mp MultiPolyline, d float64) float64 {
	total := mp.Length()
	if d < 0 {
		return 0
	}
	if d > total {
		return total
	}
	return d
}

// PointAt returns the 2-D coordinate at loc.
func PointAt(mp MultiPolyline, loc Location) (orb.Point, error) {
	if loc.Component < 0 || loc.Component >= len(mp) {
		return orb.Point{}, roadtrack.Geometryf("geom.PointAt", fmt.Errorf("component index out of range: %d", loc.Component))
	}
	comp := mp[loc.Component]
	if loc.Segment < 0 || loc.Segment+1 >= len(comp) {
		return orb.Point{}, roadtrack.Geometryf("geom.PointAt", fmt.Errorf("segment index out of range: %d", loc.Segment))
	}
	a, b := comp[loc.Segment], comp[loc.Segment+1]
	return orb.Point{
		a[0] + loc.Fraction*(b[0]-a[0]),
		a[1] + loc.Fraction*(b[1]-a[1]),
	}, nil
}

// Snap finds the orthogonal projection of p onto the nearest segment of mp
// and returns its Location together with the projected point.
func Snap(mp MultiPolyline, p orb.Point) (Location, orb.Point, error) {
	best := math.Inf(1)
	var bestLoc Location
	var bestPt orb.Point
	found := false

	for ci, comp := range mp {
		for si := 0; si+1 < len(comp); si++ {
			a, b := comp[si], comp[si+1]
			proj, frac := projectOntoSegment(p, a, b)
			d := planarDistance(p, proj)
			if d < best {
				best = d
				bestLoc = Location{Component: ci, Segment: si, Fraction: frac}
				bestPt = proj
				found = true
			}
		}
	}
	if !found {
		return Location{}, orb.Point{}, roadtrack.Geometryf("geom.Snap", fmt.Errorf("no segments to snap onto"))
	}
	return bestLoc, bestPt, nil
}

func projectOntoSegment(p, a, b orb.Point) (orb.Point, float64) {
	dx, dy := b[0]-a[0], b[1]-a[1]
	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return a, 0
	}
	t := ((p[0]-a[0])*dx + (p[1]-a[1])*dy) / lenSq
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	return orb.Point{a[0] + t*dx, a[1] + t*dy}, t
}

// ExtractSubline returns the portion of mp between from and to, both
// expressed as arc-lengths from the start of mp. from must be <= to.
func ExtractSubline(mp MultiPolyline, from, to float64) (MultiPolyline, error) {
	if to < from {
		return nil, roadtrack.Contractf("geom.ExtractSubline", fmt.Errorf("from %f > to %f", from, to))
	}
	fromLoc, err := LengthToLocation(mp, from)
	if err != nil {
		return nil, err
	}
	toLoc, err := LengthToLocation(mp, to)
	if err != nil {
		return nil, err
	}

	var out MultiPolyline
	for ci := fromLoc.Component; ci <= toLoc.Component && ci < len(mp); ci++ {
		comp := mp[ci]
		var pts Polyline

		startSeg, startFrac := 0, 0.0
		if ci == fromLoc.Component {
			startSeg, startFrac = fromLoc.Segment, fromLoc.Fraction
		}
		endSeg, endFrac := len(comp) - 2, 1.0
		if ci == toLoc.Component {
			endSeg, endFrac = toLoc.Segment, toLoc.Fraction
		}

		startPt, err := PointAt(MultiPolyline{comp}, Location{Segment: startSeg, Fraction: startFrac})
		if err != nil {
			return nil, err
		}
		pts = append(pts, startPt)

		for si := startSeg + 1; si <= endSeg; si++ {
			pts = append(pts, comp[si])
		}

		endPt, err := PointAt(MultiPolyline{comp}, Location{Segment: endSeg, Fraction: endFrac})
		if err != nil {
			return nil, err
		}
		if !pointsEqual(pts[len(pts)-1], endPt) {
			pts = append(pts, endPt)
		}

		if len(pts) >= 2 {
			out = append(out, pts)
		}
	}
	if len(out) == 0 {
		return nil, roadtrack.Geometryf("geom.ExtractSubline", fmt.Errorf("empty subline extracted"))
	}
	return out, nil
}

func pointsEqual(a, b orb.Point) bool {
	return a[0] == b[0] && a[1] == b[1]
}

// Reverse reverses both component order and point order within components,
// so that arc-length along the result runs the opposite way.
func Reverse(mp MultiPolyline) MultiPolyline {
	out := make(MultiPolyline, len(mp))
	for i, comp := range mp {
		rev := make(Polyline, len(comp))
		for j, pt := range comp {
			rev[len(comp)-1-j] = pt
		}
		out[len(mp)-1-i] = rev
	}
	return out
}
