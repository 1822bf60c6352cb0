// Package transition implements the on/off-edge transition distribution:
// classification of transition types, domain construction (nearby-radius
// off-road, DFS-reachable on-road), categorical sampling with a
// deterministic zero-tolerance collapse, and mean selection. It is
// grounded on original_source/.../OnOffEdgeTransDistribution.java.
package transition

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/trailmark/roadtrack"
	"github.com/trailmark/roadtrack/graph"
	"github.com/trailmark/roadtrack/linalg"
)

func orbPoint(x, y float64) orb.Point {
	return orb.Point{x, y}
}

// ZeroTolerance is the probability-mass threshold below which a
// transition-probability vector is treated as having deterministically
// collapsed onto a single outcome, per spec.md §4.6/§6.
const ZeroTolerance = 1e-6

// DomainRadiusMultiplier scales the observation-covariance Frobenius norm
// into an off-road search radius, per spec.md §6 ("≈ 95% normal quantile").
const DomainRadiusMultiplier = 1.98

// TransitionType classifies a transition by whether its endpoints are
// on-road or off-road.
type TransitionType int

const (
	OffToOff TransitionType = iota
	OffToOn
	OnToOn
	OnToOff
)

func (t TransitionType) String() string {
	switch t {
	case OffToOff:
		return "off->off"
	case OffToOn:
		return "off->on"
	case OnToOn:
		return "on->on"
	case OnToOff:
		return "on->off"
	default:
		return "unknown"
	}
}

// GetTransitionType classifies the transition from edge from to edge to,
// treating graph.NullEdge as the off-road endpoint, per spec.md §8's truth
// table.
func GetTransitionType(from, to graph.Edge) TransitionType {
	switch {
	case from.IsNull() && to.IsNull():
		return OffToOff
	case from.IsNull():
		return OffToOn
	case to.IsNull():
		return OnToOff
	default:
		return OnToOn
	}
}

// DomainQuery bundles the inputs Domain/Sample/Mean need to operate
// without importing the pathstate package; anything path-state specific
// reaches this package through the caller-supplied fields below.
type DomainQuery struct {
	Graph graph.RoadGraph
	// OnRoad selects the on-road (DFS-reachable) domain when true, the
	// off-road (nearby-radius) domain otherwise.
	OnRoad bool

	// Off-road inputs.
	MeanLocation [2]float64
	ObsCov       *linalg.SvdMatrix

	// On-road inputs.
	CurrentEdge  graph.Edge
	DistanceToGo float64 // predicted arc-length position along the path (motion_state[0]), signed

	// RoadObservationScore, if set, scores a non-null on-road candidate
	// edge by projecting the raw observation onto it (mean, variance);
	// Sample weights candidate selection by the precision (1/variance) of
	// that projection instead of choosing uniformly; the projected mean is
	// not used. Left nil to keep the
	// off-road domain and any caller without an observation to project
	// on the plain uniform draw. Injected by the caller so this package
	// never has to import pathstate.
	RoadObservationScore func(graph.Edge) (mean, variance float64, err error)
}

// OnOffEdgeTransition holds the two Dirichlet-mean probability vectors
// spec.md §4.6 describes: free-motion transition probabilities (index 0 =
// off->off, index 1 = off->on) and edge-motion transition probabilities
// (index 0 = on->on, index 1 = on->off).
type OnOffEdgeTransition struct {
	FreeMotionProbs [2]float64
	EdgeMotionProbs [2]float64
}

// New builds an OnOffEdgeTransition from two 2-simplex mean vectors,
// validating they sum to 1 within tolerance.
func New(freeMotion, edgeMotion [2]float64) (OnOffEdgeTransition, error) {
	if err := checkSimplex(freeMotion); err != nil {
		return OnOffEdgeTransition{}, roadtrack.Contractf("transition.New", err)
	}
	if err := checkSimplex(edgeMotion); err != nil {
		return OnOffEdgeTransition{}, roadtrack.Contractf("transition.New", err)
	}
	return OnOffEdgeTransition{FreeMotionProbs: freeMotion, EdgeMotionProbs: edgeMotion}, nil
}

func checkSimplex(p [2]float64) error {
	if p[0] < 0 || p[1] < 0 {
		return fmt.Errorf("probabilities must be nonnegative, got %v", p)
	}
	if math.Abs(p[0]+p[1]-1) > 1e-6 {
		return fmt.Errorf("probabilities must sum to 1, got %v", p)
	}
	return nil
}

// Domain builds the candidate-edge set for q, per spec.md §4.6.
func (t OnOffEdgeTransition) Domain(q DomainQuery) ([]graph.Edge, error) {
	if q.Graph == nil {
		return nil, roadtrack.Contractf("transition.Domain", fmt.Errorf("graph is nil"))
	}
	if !q.OnRoad {
		return t.offRoadDomain(q), nil
	}
	return t.onRoadDomain(q), nil
}

func (t OnOffEdgeTransition) offRoadDomain(q DomainQuery) []graph.Edge {
	radius := LargeNormalCovRadius(q.ObsCov)
	center := orbPoint(q.MeanLocation[0], q.MeanLocation[1])
	nearby := q.Graph.NearbyEdges(center, radius)
	out := make([]graph.Edge, 0, len(nearby)+1)
	out = append(out, nearby...)
	out = append(out, graph.NullEdge)
	return out
}

func (t OnOffEdgeTransition) onRoadDomain(q DomainQuery) []graph.Edge {
	visited := map[string]bool{q.CurrentEdge.Key(): true}
	out := getEdgesForLength(q.Graph, q.CurrentEdge, q.DistanceToGo, visited)
	out = append(out, graph.NullEdge)
	return out
}

// getEdgesForLength recursively follows outgoing adjacency (positive
// remaining distance) or incoming adjacency (negative, an overshoot in
// reverse) until the distance budget is exhausted, per
// OnOffEdgeTransDistribution.getEdgesForLength.
func getEdgesForLength(g graph.RoadGraph, edge graph.Edge, remaining float64, visited map[string]bool) []graph.Edge {
	if remaining == 0 {
		return nil
	}
	var next []graph.Edge
	if remaining > 0 {
		next = g.OutgoingTransferable(edge)
	} else {
		next = g.IncomingTransferable(edge)
	}

	var out []graph.Edge
	for _, e := range next {
		if visited[e.Key()] {
			continue
		}
		visited[e.Key()] = true
		out = append(out, e)
		leftover := remaining
		if remaining > 0 {
			leftover -= e.Length()
		} else {
			leftover += e.Length()
		}
		if (remaining > 0 && leftover > 0) || (remaining < 0 && leftover < 0) {
			out = append(out, getEdgesForLength(g, e, leftover, visited)...)
		}
	}
	return out
}

// Sample draws the next edge for q using rng, per spec.md §4.6's
// off-road/on-road branches. It bypasses the Gamma-based categorical
// sampler entirely when a probability vector has collapsed within
// ZeroTolerance onto a single outcome.
func (t OnOffEdgeTransition) Sample(rng *rand.Rand, q DomainQuery) (graph.Edge, error) {
	domain, err := t.Domain(q)
	if err != nil {
		return graph.Edge{}, err
	}

	if !q.OnRoad {
		return t.sampleOffRoad(rng, domain, t.FreeMotionProbs)
	}
	return t.sampleOnRoad(rng, domain, q)
}

func (t OnOffEdgeTransition) sampleOffRoad(rng *rand.Rand, domain []graph.Edge, probs [2]float64) (graph.Edge, error) {
	tt := checkedSample(rng, probs, OffToOff, OffToOn)
	if tt == OffToOn {
		nonNull := filterNonNull(domain)
		if len(nonNull) > 0 {
			return nonNull[rng.Intn(len(nonNull))], nil
		}
	}
	return graph.NullEdge, nil
}

func (t OnOffEdgeTransition) sampleOnRoad(rng *rand.Rand, domain []graph.Edge, q DomainQuery) (graph.Edge, error) {
	hasNull := false
	for _, e := range domain {
		if e.IsNull() {
			hasNull = true
			break
		}
	}

	var tt TransitionType
	if hasNull {
		tt = checkedSample(rng, t.EdgeMotionProbs, OnToOn, OnToOff)
	} else {
		tt = OnToOn
	}

	if tt == OnToOff {
		return graph.NullEdge, nil
	}

	nonNull := filterNonNull(domain)
	if len(nonNull) == 0 {
		// No edge is reachable within the travelled distance: the vehicle
		// stayed on its current edge this step.
		return q.CurrentEdge, nil
	}
	if q.RoadObservationScore != nil {
		return sampleByRoadObservation(rng, nonNull, q.RoadObservationScore)
	}
	return nonNull[rng.Intn(len(nonNull))], nil
}

// sampleByRoadObservation draws among candidates weighted by the precision
// (inverse variance) of the observation re-projected onto each candidate,
// per PathUtils.getRoadObservation: an edge the observation snaps onto
// tightly is preferred over one whose projection is uncertain. Falls back
// to a uniform draw if scoring fails for every candidate.
func sampleByRoadObservation(rng *rand.Rand, candidates []graph.Edge, score func(graph.Edge) (float64, float64, error)) (graph.Edge, error) {
	weights := make([]float64, len(candidates))
	total := 0.0
	anyScored := false
	for i, e := range candidates {
		_, variance, err := score(e)
		if err != nil || variance <= 0 {
			continue
		}
		w := 1 / variance
		weights[i] = w
		total += w
		anyScored = true
	}
	if !anyScored {
		return candidates[rng.Intn(len(candidates))], nil
	}

	draw := rng.Float64() * total
	cum := 0.0
	for i, w := range weights {
		cum += w
		if draw <= cum {
			return candidates[i], nil
		}
	}
	return candidates[len(candidates)-1], nil
}

// checkedSample draws from a 2-outcome probability vector, returning
// outcomeA deterministically if probs has collapsed onto it within
// ZeroTolerance, outcomeB deterministically if collapsed the other way,
// and otherwise a Gamma-variate categorical draw (the Go analogue of the
// source's Dirichlet/Multinomial sampler).
func checkedSample(rng *rand.Rand, probs [2]float64, outcomeA, outcomeB TransitionType) TransitionType {
	if probs[0] >= 1-ZeroTolerance {
		return outcomeA
	}
	if probs[1] >= 1-ZeroTolerance {
		return outcomeB
	}

	ga := distuv.Gamma{Alpha: math.Max(probs[0], 1e-12) * 100, Beta: 1, Src: rng}
	gb := distuv.Gamma{Alpha: math.Max(probs[1], 1e-12) * 100, Beta: 1, Src: rng}
	a, b := ga.Rand(), gb.Rand()
	if a >= b {
		return outcomeA
	}
	return outcomeB
}

func filterNonNull(edges []graph.Edge) []graph.Edge {
	out := make([]graph.Edge, 0, len(edges))
	for _, e := range edges {
		if !e.IsNull() {
			out = append(out, e)
		}
	}
	return out
}

// Mean returns the argmax edge implied by q's relevant transition vector,
// per spec.md §4.6. For the off-road case, an off->on mass larger than the
// off->off mass resolves to the domain's first non-null edge; otherwise
// the null edge. For the on-road case, an on->off mass larger than the
// on->on mass resolves to the null edge; otherwise q.CurrentEdge (staying on the same edge is the on->on
// mean outcome when no domain is walked for the mean computation).
func (t OnOffEdgeTransition) Mean(q DomainQuery) (graph.Edge, error) {
	if !q.OnRoad {
		if t.FreeMotionProbs[1] > t.FreeMotionProbs[0] {
			domain, err := t.Domain(q)
			if err != nil {
				return graph.Edge{}, err
			}
			nonNull := filterNonNull(domain)
			if len(nonNull) > 0 {
				return nonNull[0], nil
			}
		}
		return graph.NullEdge, nil
	}

	if t.EdgeMotionProbs[1] > t.EdgeMotionProbs[0] {
		return graph.NullEdge, nil
	}
	return q.CurrentEdge, nil
}

// LargeNormalCovRadius returns the Mahalanobis-inflated search radius
// DomainRadiusMultiplier·√‖Q_obs‖_F, per spec.md §6.
func LargeNormalCovRadius(obsCov *linalg.SvdMatrix) float64 {
	if obsCov == nil {
		return 0
	}
	dense := obsCov.Dense()
	r, c := dense.Dims()
	sumSq := 0.0
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v := dense.At(i, j)
			sumSq += v * v
		}
	}
	return DomainRadiusMultiplier * math.Sqrt(math.Sqrt(sumSq))
}
