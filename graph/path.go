package graph

import (
	"fmt"
	"math"

	"github.com/trailmark/roadtrack"
	"github.com/trailmark/roadtrack/geom"
)

// PathEdge is one edge of a Path, carrying its signed offset from the
// start of the path and the direction the path traverses it in.
type PathEdge struct {
	Segment           Segment
	DistToStartOfEdge float64
	IsBackward        bool
}

// Path is an ordered, directed concatenation of PathEdges. The zero value
// is not a valid Path; use NullPath for the off-road sentinel.
type Path struct {
	edges  []PathEdge
	isNull bool
}

// NullPath is the sentinel path representing off-road motion.
var NullPath = Path{isNull: true}

// NewPath builds a Path from its edges, validating spec.md's invariants:
// shared is_backward, monotonically growing cumulative signed length, and
// the first edge's DistToStartOfEdge == 0.
func NewPath(edges []PathEdge) (Path, error) {
	if len(edges) == 0 {
		return Path{}, roadtrack.Contractf("graph.NewPath", fmt.Errorf("path must have at least one edge; use NullPath for off-road"))
	}
	if edges[0].DistToStartOfEdge != 0 {
		return Path{}, roadtrack.Contractf("graph.NewPath", fmt.Errorf("first edge must have DistToStartOfEdge == 0, got %f", edges[0].DistToStartOfEdge))
	}
	backward := edges[0].IsBackward
	for i, e := range edges {
		if e.IsBackward != backward {
			return Path{}, roadtrack.Contractf("graph.NewPath", fmt.Errorf("edge %d has inconsistent is_backward", i))
		}
	}
	prev := math.Inf(-1)
	if backward {
		prev = math.Inf(1)
	}
	for i, e := range edges {
		if backward {
			if e.DistToStartOfEdge > prev+geom.EdgeLengthErrorTolerance {
				return Path{}, roadtrack.Contractf("graph.NewPath", fmt.Errorf("edge %d breaks monotonic decreasing offset", i))
			}
		} else {
			if e.DistToStartOfEdge < prev-geom.EdgeLengthErrorTolerance {
				return Path{}, roadtrack.Contractf("graph.NewPath", fmt.Errorf("edge %d breaks monotonic increasing offset", i))
			}
		}
		prev = e.DistToStartOfEdge
	}
	return Path{edges: append([]PathEdge(nil), edges...)}, nil
}

// IsNull reports whether p is the off-road sentinel.
func (p Path) IsNull() bool { return p.isNull }

// Edges returns the path's edges. Never call on a null path.
func (p Path) Edges() []PathEdge { return p.edges }

// IsBackward reports the path's traversal direction relative to its
// edges' native geometry direction.
func (p Path) IsBackward() bool {
	if len(p.edges) == 0 {
		return false
	}
	return p.edges[0].IsBackward
}

// FirstEdge and LastEdge return the path's boundary edges.
func (p Path) FirstEdge() Edge {
	if len(p.edges) == 0 {
		return NullEdge
	}
	return p.edges[0].Segment.Edge
}

func (p Path) LastEdge() Edge {
	if len(p.edges) == 0 {
		return NullEdge
	}
	return p.edges[len(p.edges)-1].Segment.Edge
}

// TotalPathDistance returns the signed total length of the path: magnitude
// equal to the concatenated polyline length, sign equal to the path
// direction.
func (p Path) TotalPathDistance() float64 {
	total := 0.0
	for _, e := range p.edges {
		total += e.Segment.Edge.Length()
	}
	if p.IsBackward() {
		return -total
	}
	return total
}

// EdgeForDistance returns the PathEdge whose span contains the signed
// distance d along the path, and the offset of d within that edge.
func (p Path) EdgeForDistance(d float64) (PathEdge, float64, error) {
	if p.isNull {
		return PathEdge{}, 0, roadtrack.Contractf("graph.Path.EdgeForDistance", fmt.Errorf("null path has no edges"))
	}
	for i, e := range p.edges {
		var edgeStart, edgeEnd float64
		if p.IsBackward() {
			edgeStart = e.DistToStartOfEdge
			edgeEnd = e.DistToStartOfEdge - e.Segment.Edge.Length()
			if d <= edgeStart+geom.EdgeLengthErrorTolerance && d >= edgeEnd-geom.EdgeLengthErrorTolerance {
				return e, edgeStart - d, nil
			}
		} else {
			edgeStart = e.DistToStartOfEdge
			edgeEnd = e.DistToStartOfEdge + e.Segment.Edge.Length()
			if d >= edgeStart-geom.EdgeLengthErrorTolerance && d <= edgeEnd+geom.EdgeLengthErrorTolerance {
				return e, d - edgeStart, nil
			}
		}
		_ = i
	}
	return PathEdge{}, 0, roadtrack.Geometryf("graph.Path.EdgeForDistance", fmt.Errorf("distance %f outside path", d))
}

// ClampToPath clamps a signed arc-length to [0, |total|] expressed with the
// path's sign, per spec.md §3's path-state clamping rule.
func (p Path) ClampToPath(d float64) float64 {
	total := p.TotalPathDistance()
	if total >= 0 {
		if d < 0 {
			return 0
		}
		if d > total {
			return total
		}
		return d
	}
	if d > 0 {
		return 0
	}
	if d < total {
		return total
	}
	return d
}
