package graph

import "github.com/paulmach/orb"

// RoadGraph is the pure, read-only query surface an external graph loader
// implements. It has no mutating methods so that a single instance can
// safely be shared by every particle without synchronization, per
// spec.md §5.
type RoadGraph interface {
	// NearbyEdges returns the edges within radius meters of point.
	NearbyEdges(point orb.Point, radius float64) []Edge
	// OutgoingTransferable returns the edges reachable by continuing
	// forward past edge, already filtered for legal transfers.
	OutgoingTransferable(edge Edge) []Edge
	// IncomingTransferable returns the edges that can transfer into edge
	// when travelling against its native direction.
	IncomingTransferable(edge Edge) []Edge
	// EdgeHasReverse reports whether geometry has a distinct reverse-
	// direction edge in the graph.
	EdgeHasReverse(geometry []orb.Point) bool
}
