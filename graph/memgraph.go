package graph

import (
	"math"

	"github.com/google/uuid"
	"github.com/paulmach/orb"

	"github.com/trailmark/roadtrack/geom"
)

// MemGraph is a small in-memory RoadGraph, useful for tests and for
// exercising pathstate/transition/vehicle against a concrete graph before
// a real graph store is wired in. Edges are added with AddEdge, which
// assigns each a stable synthetic id via github.com/google/uuid.
type MemGraph struct {
	edges []Edge
	// outgoing/incoming record explicit adjacency by edge key; a pair that
	// was never registered via Connect is not adjacent, and an edge never
	// passed to MarkReverse has no reverse. Endpoint coincidence is not
	// consulted.
	outgoing map[string][]Edge
	incoming map[string][]Edge
	reverse  map[string]bool
}

// NewMemGraph returns an empty MemGraph.
func NewMemGraph() *MemGraph {
	return &MemGraph{
		outgoing: make(map[string][]Edge),
		incoming: make(map[string][]Edge),
		reverse:  make(map[string]bool),
	}
}

// AddEdge registers a new edge with geometry line and returns it.
func (g *MemGraph) AddEdge(line geom.Polyline) (Edge, error) {
	e, err := NewEdge(uuid.NewString(), line)
	if err != nil {
		return Edge{}, err
	}
	g.edges = append(g.edges, e)
	return e, nil
}

// Connect declares that traffic may legally flow from -> to, populating
// both outgoing_transferable(from) and incoming_transferable(to).
func (g *MemGraph) Connect(from, to Edge) {
	g.outgoing[from.Key()] = append(g.outgoing[from.Key()], to)
	g.incoming[to.Key()] = append(g.incoming[to.Key()], from)
}

// MarkReverse declares that the edge with this geometry has a distinct
// reverse-direction counterpart in the graph.
func (g *MemGraph) MarkReverse(e Edge) {
	g.reverse[e.Key()] = true
}

// NearbyEdges returns edges whose geometry passes within radius of point.
func (g *MemGraph) NearbyEdges(point orb.Point, radius float64) []Edge {
	var out []Edge
	for _, e := range g.edges {
		if distanceToPolyline(point, e.Geometry()) <= radius {
			out = append(out, e)
		}
	}
	return out
}

// OutgoingTransferable returns the edges registered via Connect(edge, _).
func (g *MemGraph) OutgoingTransferable(edge Edge) []Edge {
	return g.outgoing[edge.Key()]
}

// IncomingTransferable returns the edges registered via Connect(_, edge).
func (g *MemGraph) IncomingTransferable(edge Edge) []Edge {
	return g.incoming[edge.Key()]
}

// EdgeHasReverse reports whether the edge with this geometry was marked
// via MarkReverse.
func (g *MemGraph) EdgeHasReverse(geometry []orb.Point) bool {
	line := make(geom.Polyline, len(geometry))
	copy(line, geometry)
	e, err := NewEdge("", line)
	if err != nil {
		return false
	}
	return g.reverse[e.Key()]
}

func distanceToPolyline(p orb.Point, line geom.Polyline) float64 {
	best := math.Inf(1)
	for i := 0; i+1 < len(line); i++ {
		a, b := line[i], line[i+1]
		d := distanceToSegment(p, a, b)
		if d < best {
			best = d
		}
	}
	return best
}

func distanceToSegment(p, a, b orb.Point) float64 {
	dx, dy := b[0]-a[0], b[1]-a[1]
	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return math.Hypot(p[0]-a[0], p[1]-a[1])
	}
	t := ((p[0]-a[0])*dx + (p[1]-a[1])*dy) / lenSq
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	projX, projY := a[0]+t*dx, a[1]+t*dy
	return math.Hypot(p[0]-projX, p[1]-projY)
}
