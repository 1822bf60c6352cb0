package vehicle

import (
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"

	"github.com/trailmark/roadtrack/config"
	"github.com/trailmark/roadtrack/covariance"
	"github.com/trailmark/roadtrack/graph"
	"github.com/trailmark/roadtrack/linalg"
	"github.com/trailmark/roadtrack/pathstate"
	"github.com/trailmark/roadtrack/transition"
)

// VehicleState is one particle's full belief: motion state, path state,
// and the Bayesian parameters tracking the covariances and transition
// probabilities that govern it, per spec.md §3.
type VehicleState struct {
	MotionStateParam       BayesianParam[SvdBelief]
	PathStateParam         BayesianParam[PathStateValue]
	ObservationCovariance  BayesianParam[covariance.ScaledInverseGamma]
	OnRoadModelCovariance  BayesianParam[covariance.InverseWishart]
	OffRoadModelCovariance BayesianParam[covariance.InverseWishart]
	EdgeTransitionParam    BayesianParam[TransitionValue]
	ParentState            *VehicleState
	LastObservation        *Observation

	rng *rand.Rand
}

// NewVehicleState seeds a particle's RNG deterministically from its
// identity and a global seed, per spec.md §5 ("seeded deterministically
// from particle identity and a global seed").
func NewVehicleState(particleIndex int, globalSeed uint64) *VehicleState {
	return &VehicleState{rng: rand.New(rand.NewSource(hash64(globalSeed, uint64(particleIndex))))}
}

// hash64 mixes a global seed with a particle index into a single
// deterministic 64-bit seed, using the splitmix64 finalizer so distinct
// particle indices land on well-separated seeds.
func hash64(globalSeed, particleIndex uint64) uint64 {
	z := globalSeed + particleIndex*0x9E3779B97F4A7C15
	z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
	z = (z ^ (z >> 27)) * 0x94D049BB133111EB
	return z ^ (z >> 31)
}

// RNG returns the particle's deterministic random source.
func (v *VehicleState) RNG() *rand.Rand { return v.rng }

// NewInitialVehicleState builds a particle's starting state: off-road,
// zero-mean ground belief, and the covariance/transition priors from cfg,
// per spec.md §6's bitwise-compatible constants. edgeTransitionPrior is
// the particle's starting edge-transition distribution (typically shared
// across the initial particle population before any learning occurs).
func NewInitialVehicleState(particleIndex int, globalSeed uint64, cfg *config.Config, edgeTransitionPrior transition.OnOffEdgeTransition) (*VehicleState, error) {
	v := NewVehicleState(particleIndex, globalSeed)

	ground, err := initialGroundBelief()
	if err != nil {
		return nil, err
	}
	v.MotionStateParam = BayesianParam[SvdBelief]{Value: ground, Prior: ground.Clone()}

	motion := mat.NewVecDense(4, nil)
	motion.CopyVec(ground.Mean)
	initialPathState, err := pathstate.New(graph.NullPath, motion)
	if err != nil {
		return nil, err
	}
	pathValue := PathStateValue{State: initialPathState, Cov: ground.Cov}
	v.PathStateParam = BayesianParam[PathStateValue]{Value: pathValue, Prior: pathValue.Clone()}

	obsPrior := covariance.ScaledInverseGamma{Shape: cfg.InitialObservationPrior.Shape, Scale: cfg.InitialObservationPrior.Scale}
	v.ObservationCovariance = BayesianParam[covariance.ScaledInverseGamma]{Value: obsPrior, Prior: obsPrior}

	offRoadScale := mat.NewSymDense(2, []float64{1, 0, 0, 1})
	offRoadPrior := covariance.NewInverseWishart(4, offRoadScale)
	v.OffRoadModelCovariance = BayesianParam[covariance.InverseWishart]{Value: offRoadPrior, Prior: offRoadPrior.Clone()}

	onRoadScale := mat.NewSymDense(1, []float64{1})
	onRoadPrior := covariance.NewInverseWishart(4, onRoadScale)
	v.OnRoadModelCovariance = BayesianParam[covariance.InverseWishart]{Value: onRoadPrior, Prior: onRoadPrior.Clone()}

	transitionValue := TransitionValue{Dist: edgeTransitionPrior}
	v.EdgeTransitionParam = BayesianParam[TransitionValue]{Value: transitionValue, Prior: transitionValue.Clone()}

	return v, nil
}

// initialGroundBelief is the zero-mean, zero-covariance ground belief a
// particle starts from before its first observation arrives. The first
// Predictor.Step's measurement immediately replaces both moments.
func initialGroundBelief() (SvdBelief, error) {
	mean := mat.NewVecDense(4, nil)
	cov, err := linalg.NewSvdMatrixFromSym(mat.NewSymDense(4, nil))
	if err != nil {
		return SvdBelief{}, err
	}
	return SvdBelief{Mean: mean, Cov: cov}, nil
}

// Clone deep-copies every sub-parameter so the clone shares no mutable
// state with its parent, per spec.md §3's ownership rule, and records the
// parent for lineage tracking. The RNG is reused by reference: restarting
// it would replay the parent's draw history, contradicting spec.md §5's
// identity-only determinism.
func (v *VehicleState) Clone() *VehicleState {
	return &VehicleState{
		MotionStateParam:       v.MotionStateParam.Clone(),
		PathStateParam:         v.PathStateParam.Clone(),
		ObservationCovariance:  v.ObservationCovariance.Clone(),
		OnRoadModelCovariance:  v.OnRoadModelCovariance.Clone(),
		OffRoadModelCovariance: v.OffRoadModelCovariance.Clone(),
		EdgeTransitionParam:    v.EdgeTransitionParam.Clone(),
		ParentState:            v,
		LastObservation:        v.LastObservation,
		rng:                    v.rng,
	}
}
