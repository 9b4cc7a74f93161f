package belief

import "math"

// #region config

// EngineConfig holds the smoothing and hysteresis parameters.
type EngineConfig struct {
	BaseLearningRate float32 // blend rate per second of dt
	EnterThreshold   float32 // posterior a candidate mode must exceed to take over
	HysteresisMargin float32 // lead over the incumbent required on top of the threshold
	ConfidenceDecay  float32 // per-update confidence retention when evidence is absent
}

// DefaultEngineConfig returns the tuning used by the session pipeline.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		BaseLearningRate: 0.5,
		EnterThreshold:   0.55,
		HysteresisMargin: 0.08,
		ConfidenceDecay:  0.98,
	}
}

// #endregion config

// #region prototypes

// prototype is the expected (hr, rmssd, rr) signature of one mode.
// Deviations are normalized by the scale vector below before scoring.
type prototype struct {
	hr, rmssd, rr float32
}

var prototypes = [NumModes]prototype{
	BasisCalm:    {hr: 62, rmssd: 45, rr: 7},
	BasisFocus:   {hr: 72, rmssd: 35, rr: 12},
	BasisStress:  {hr: 88, rmssd: 18, rr: 17},
	BasisSleepy:  {hr: 55, rmssd: 55, rr: 13},
	BasisAroused: {hr: 96, rmssd: 14, rr: 19},
}

var protoScale = prototype{hr: 10, rmssd: 15, rr: 3}

// #endregion prototypes

// #region engine

// Engine turns sensor snapshots into belief transitions. It holds only
// configuration; Update is a pure function of its explicit inputs so
// the surrounding loop stays replay-deterministic.
type Engine struct {
	cfg EngineConfig
}

// NewEngine creates a belief engine with the given configuration.
func NewEngine(cfg EngineConfig) *Engine {
	return &Engine{cfg: cfg}
}

// Update blends the previous distribution toward the observation-
// implied distribution at a rate bounded by dt (seconds), commits a
// mode switch only past the hysteresis threshold, and returns the new
// state plus diagnostics. Absent features reduce evidence weight; a
// fully absent observation degrades confidence and leaves the
// distribution untouched, never resetting it.
func (e *Engine) Update(prev BeliefState, x SensorFeatures, phys PhysioState, ctx Context, dt float32) (BeliefState, Diagnostics) {
	target, avail := observationTarget(x, phys)

	resonance := float32(0)
	if rr := pick(x.RRBpm, phys.RRBpm); rr != nil {
		d := (*rr - 6.0) / 2.0
		resonance = expf(-d * d)
	}

	if avail == 0 {
		next := prev
		next.Conf = clamp01(prev.Conf * e.cfg.ConfidenceDecay)
		return next, Diagnostics{ResonanceScore: resonance}
	}

	weight := evidenceWeight(x, phys, avail)
	alpha := clamp01(e.cfg.BaseLearningRate*maxf(dt, 0)) * weight

	var next BeliefState
	var sum float32
	for i := range next.P {
		next.P[i] = (1-alpha)*prev.P[i] + alpha*target[i]
		if next.P[i] < 0 {
			next.P[i] = 0
		}
		sum += next.P[i]
	}
	if sum <= 0 {
		next.P = prev.P
		sum = 1
	}
	for i := range next.P {
		next.P[i] /= sum
	}

	// Surprise of the observation under the prior: -ln(target . prev).
	var agreement float32
	for i := range target {
		agreement += target[i] * prev.P[i]
	}
	freeEnergy := float32(0)
	if agreement > 1e-9 {
		freeEnergy = -lnf(agreement)
	} else {
		freeEnergy = 20 // disjoint support; cap rather than Inf
	}

	// Hysteresis: the arg-max only becomes the committed mode once it
	// clears the enter threshold and leads the incumbent by the margin.
	next.Mode = prev.Mode
	cand := argmax(next.P)
	if cand != next.Mode &&
		next.P[cand] > e.cfg.EnterThreshold &&
		next.P[cand]-next.P[next.Mode] > e.cfg.HysteresisMargin {
		next.Mode = cand
	}

	// Confidence blends distribution peakedness with evidence weight.
	peak := (next.P[cand] - 1.0/NumModes) / (1 - 1.0/NumModes)
	next.Conf = clamp01(0.5*clamp01(peak) + 0.5*weight)

	return next, Diagnostics{
		FreeEnergy:     freeEnergy,
		LearningRate:   alpha,
		ResonanceScore: resonance,
		EvidenceWeight: weight,
	}
}

// #endregion engine

// #region observation

// observationTarget scores each mode against the available channels
// and returns the softmax-normalized target distribution plus the
// number of channels that contributed.
func observationTarget(x SensorFeatures, phys PhysioState) ([NumModes]float32, int) {
	var target [NumModes]float32

	hr := pick(x.HRBpm, phys.HRBpm)
	rmssd := pick(x.RMSSD, phys.RMSSD)
	rr := pick(x.RRBpm, phys.RRBpm)

	avail := 0
	for _, v := range []*float32{hr, rmssd, rr} {
		if v != nil {
			avail++
		}
	}
	if avail == 0 {
		return target, 0
	}

	var sum float32
	for i, proto := range prototypes {
		var d2 float32
		if hr != nil {
			d := (*hr - proto.hr) / protoScale.hr
			d2 += d * d
		}
		if rmssd != nil {
			d := (*rmssd - proto.rmssd) / protoScale.rmssd
			d2 += d * d
		}
		if rr != nil {
			d := (*rr - proto.rr) / protoScale.rr
			d2 += d * d
		}
		target[i] = expf(-d2 / float32(avail))
		sum += target[i]
	}

	if sum <= 1e-12 {
		// All modes maximally surprised; fall back to uniform evidence.
		for i := range target {
			target[i] = 1.0 / NumModes
		}
		return target, avail
	}
	for i := range target {
		target[i] /= sum
	}
	return target, avail
}

// evidenceWeight combines signal quality, motion corruption, physio
// confidence, and channel availability into one blend weight.
func evidenceWeight(x SensorFeatures, phys PhysioState, avail int) float32 {
	w := clamp01(x.Quality)
	w *= 1 - 0.5*clamp01(x.Motion)
	w *= 0.5 + 0.5*clamp01(phys.Confidence)
	w *= float32(avail) / 3.0
	return clamp01(w)
}

// #endregion observation

// #region helpers

// pick returns the first non-nil reading.
func pick(primary, fallback *float32) *float32 {
	if primary != nil {
		return primary
	}
	return fallback
}

func argmax(p [NumModes]float32) Basis {
	best := 0
	for i := 1; i < len(p); i++ {
		if p[i] > p[best] {
			best = i
		}
	}
	return Basis(best)
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func maxf(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}

func expf(v float32) float32 { return float32(math.Exp(float64(v))) }
func lnf(v float32) float32  { return float32(math.Log(float64(v))) }

// #endregion helpers
