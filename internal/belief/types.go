// Package belief estimates the user's discrete arousal/rest mode from
// noisy sensor snapshots as a probability distribution with hysteresis.
package belief

// #region basis

// Basis labels the five discrete modes the estimator distributes
// probability over. The cardinality is fixed; the labels are local to
// this package and nothing downstream depends on their semantics.
type Basis int32

const (
	BasisCalm Basis = iota
	BasisFocus
	BasisStress
	BasisSleepy
	BasisAroused
)

// NumModes is the size of the belief distribution.
const NumModes = 5

// String returns the lowercase label for a basis mode.
func (b Basis) String() string {
	switch b {
	case BasisCalm:
		return "calm"
	case BasisFocus:
		return "focus"
	case BasisStress:
		return "stress"
	case BasisSleepy:
		return "sleepy"
	case BasisAroused:
		return "aroused"
	}
	return "unknown"
}

// #endregion basis

// #region sensor-features

// SensorFeatures is one raw per-tick observation. Nil pointers model
// sensor dropout; Quality and Motion are scores in [0, 1].
type SensorFeatures struct {
	HRBpm   *float32
	RMSSD   *float32
	RRBpm   *float32
	Quality float32
	Motion  float32
}

// #endregion sensor-features

// #region physio-state

// PhysioState is the externally produced smoothed physiological
// estimate, consumed read-only. Confidence is in [0, 1].
type PhysioState struct {
	HRBpm      *float32
	RRBpm      *float32
	RMSSD      *float32
	Confidence float32
}

// #endregion physio-state

// #region context

// Context is an immutable environment snapshot for one tick.
type Context struct {
	LocalHour      int
	IsCharging     bool
	RecentSessions int
}

// #endregion context

// #region belief-state

// BeliefState is a probability distribution over the five modes, a
// scalar confidence in [0, 1], and the committed arg-max mode. Callers
// own a value; it is never shared or mutated in place.
type BeliefState struct {
	P    [NumModes]float32
	Conf float32
	Mode Basis
}

// InitialBelief returns the uniform starting state.
func InitialBelief() BeliefState {
	var s BeliefState
	for i := range s.P {
		s.P[i] = 1.0 / NumModes
	}
	s.Conf = 0.5
	s.Mode = BasisCalm
	return s
}

// #endregion belief-state

// #region diagnostics

// Diagnostics carries the per-update telemetry recorded alongside a
// belief transition in the event log.
type Diagnostics struct {
	FreeEnergy     float32 // surprise of the observation under the prior
	LearningRate   float32 // effective blend factor applied this update
	ResonanceScore float32 // closeness of RR to the resonant 6 bpm band
	EvidenceWeight float32 // combined quality/availability weight in [0, 1]
}

// #endregion diagnostics
