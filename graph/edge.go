// Package graph defines the road-graph data model — edges, segments,
// paths and path-edges — and the read-only RoadGraph query interface an
// external graph loader implements. MemGraph is a small in-memory
// RoadGraph used by tests and by callers wiring in their own shortest-path
// oracle before a real graph store is available.
package graph

import (
	"fmt"
	"strings"

	"github.com/trailmark/roadtrack"
	"github.com/trailmark/roadtrack/geom"
)

// Edge is a directed road-graph edge. The zero value is not a valid edge;
// use NullEdge for the off-road sentinel.
type Edge struct {
	id       string
	geometry geom.Polyline
	isNull   bool
}

// NullEdge is the sentinel edge representing free (off-road) motion. It has
// no geometry and is equal only to itself.
var NullEdge = Edge{isNull: true}

// NewEdge builds a real edge from an id and its geometry.
func NewEdge(id string, geometry geom.Polyline) (Edge, error) {
	if len(geometry) < 2 {
		return Edge{}, roadtrack.Geometryf("graph.NewEdge", fmt.Errorf("edge %q geometry has fewer than 2 points", id))
	}
	return Edge{id: id, geometry: geometry}, nil
}

// IsNull reports whether e is the off-road sentinel.
func (e Edge) IsNull() bool { return e.isNull }

// ID returns the edge identifier. Meaningless for the null edge.
func (e Edge) ID() string { return e.id }

// Geometry returns the edge's polyline.
func (e Edge) Geometry() geom.Polyline { return e.geometry }

// Length returns the polyline length, 0 for the null edge.
func (e Edge) Length() float64 {
	if e.isNull {
		return 0
	}
	return e.geometry.Length()
}

// Equal reports geometry equality: exact coordinate equality, matching
// spec.md's "equality by geometry" rule. Two null edges are equal to each
// other; a null edge is equal to nothing else.
func (e Edge) Equal(other Edge) bool {
	if e.isNull != other.isNull {
		return false
	}
	if e.isNull {
		return true
	}
	if len(e.geometry) != len(other.geometry) {
		return false
	}
	for i := range e.geometry {
		if e.geometry[i] != other.geometry[i] {
			return false
		}
	}
	return true
}

// Key returns a stable string key suitable for map lookups, derived from
// geometry rather than id (two edges with different ids but identical
// geometry are the same edge under spec.md's equality rule).
func (e Edge) Key() string {
	if e.isNull {
		return "\x00null"
	}
	var b strings.Builder
	for _, pt := range e.geometry {
		fmt.Fprintf(&b, "%.9f,%.9f;", pt[0], pt[1])
	}
	return b.String()
}

// Segment is a single straight run of an edge's polyline together with its
// offset from the start of the edge.
type Segment struct {
	Edge        Edge
	StartOffset float64
	Line        geom.Polyline
}

// Length returns the segment's own length.
func (s Segment) Length() float64 {
	return geom.Polyline(s.Line).Length()
}
