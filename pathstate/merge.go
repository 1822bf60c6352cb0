package pathstate

import (
	"math"

	"github.com/trailmark/roadtrack/geom"
	"github.com/trailmark/roadtrack/graph"
)

const mergeEndpointTol = 1e-6

// MergePaths concatenates the tail of from (from distFrom to its end) with
// the head of to (from its start to distTo), reversing to if needed so the
// geometries join continuously. It returns the merged path and whether to
// was reversed to achieve the join, per spec.md §4.5's path-merge
// operation, grounded on PathUtils.mergePaths.
//
// Two Open Questions from spec.md §9 are preserved rather than resolved:
// when either side's extracted portion is empty, the other path is
// returned wholesale (the source handles both directions of this case);
// and when neither orientation joins continuously, to is reversed
// unconditionally anyway — an empirical workaround, not a derivation.
func MergePaths(from graph.Path, distFrom float64, to graph.Path, distTo float64) (graph.Path, bool, error) {
	fromTail := edgesFromOffset(from, distFrom)
	toHead := edgesUpToOffset(to, distTo)

	if len(fromTail) == 0 {
		return to, false, nil
	}
	if len(toHead) == 0 {
		return from, false, nil
	}

	if geometryContinuous(fromTail, toHead) {
		merged, err := buildMergedPath(fromTail, toHead)
		return merged, false, err
	}

	toRev := reversePathEdges(toHead)
	merged, err := buildMergedPath(fromTail, toRev)
	return merged, true, err
}

func edgesFromOffset(path graph.Path, dist float64) []graph.PathEdge {
	var out []graph.PathEdge
	for _, e := range path.Edges() {
		if withinOrPast(path, e, dist) {
			out = append(out, e)
		}
	}
	return out
}

func edgesUpToOffset(path graph.Path, dist float64) []graph.PathEdge {
	var out []graph.PathEdge
	for _, e := range path.Edges() {
		out = append(out, e)
		start := e.DistToStartOfEdge
		end := start + signedLen(e)
		if boundaryReached(path.IsBackward(), dist, start, end) {
			break
		}
	}
	return out
}

func withinOrPast(path graph.Path, e graph.PathEdge, dist float64) bool {
	start := e.DistToStartOfEdge
	end := start + signedLen(e)
	if path.IsBackward() {
		return start <= dist+mergeEndpointTol || end <= dist+mergeEndpointTol
	}
	return end >= dist-mergeEndpointTol
}

func boundaryReached(backward bool, dist, start, end float64) bool {
	if backward {
		return end <= dist
	}
	return end >= dist
}

func signedLen(e graph.PathEdge) float64 {
	l := e.Segment.Edge.Length()
	if e.IsBackward {
		return -l
	}
	return l
}

func geometryContinuous(tail, head []graph.PathEdge) bool {
	last := tail[len(tail)-1].Segment.Line
	first := head[0].Segment.Line
	if len(last) == 0 || len(first) == 0 {
		return false
	}
	a := last[len(last)-1]
	b := first[0]
	return math.Hypot(a[0]-b[0], a[1]-b[1]) <= mergeEndpointTol
}

func reversePathEdges(edges []graph.PathEdge) []graph.PathEdge {
	out := make([]graph.PathEdge, len(edges))
	for i, e := range edges {
		rev := e
		rev.IsBackward = !e.IsBackward
		rev.Segment.Line = geom.Reverse(geom.MultiPolyline{e.Segment.Line})[0]
		out[len(edges)-1-i] = rev
	}
	return out
}

func buildMergedPath(tail, head []graph.PathEdge) (graph.Path, error) {
	all := make([]graph.PathEdge, 0, len(tail)+len(head))
	all = append(all, tail...)

	offset := tail[0].DistToStartOfEdge
	backward := tail[0].IsBackward
	for _, e := range tail {
		l := e.Segment.Edge.Length()
		if backward {
			offset = e.DistToStartOfEdge - l
		} else {
			offset = e.DistToStartOfEdge + l
		}
	}

	for i, e := range head {
		adjusted := e
		adjusted.IsBackward = backward
		if i == 0 {
			adjusted.DistToStartOfEdge = 0
		}
		if backward {
			adjusted.DistToStartOfEdge = offset
			offset -= e.Segment.Edge.Length()
		} else {
			adjusted.DistToStartOfEdge = offset
			offset += e.Segment.Edge.Length()
		}
		all = append(all, adjusted)
	}
	all[0].DistToStartOfEdge = tail[0].DistToStartOfEdge

	return graph.NewPath(all)
}
