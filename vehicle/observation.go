package vehicle

import (
	"time"

	"gonum.org/v1/gonum/mat"
)

// Observation is an immutable GPS fix together with a weak back-reference
// to the observation that preceded it, per spec.md §3.
type Observation struct {
	SourceID    string
	Timestamp   time.Time
	ProjectedXY *mat.VecDense
	previous    *Observation
}

// NewObservation builds an Observation, optionally chained to previous.
func NewObservation(sourceID string, ts time.Time, xy *mat.VecDense, previous *Observation) *Observation {
	return &Observation{SourceID: sourceID, Timestamp: ts, ProjectedXY: xy, previous: previous}
}

// Previous returns the back-referenced observation, or nil once severed.
func (o *Observation) Previous() *Observation { return o.previous }

// Reset severs the back-reference to the previous observation, per
// spec.md §3 ("it may be severed (reset()) when no longer needed").
func (o *Observation) Reset() { o.previous = nil }
