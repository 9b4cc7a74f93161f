package belief

import (
	"math"
	"testing"
)

func f32(v float32) *float32 { return &v }

func stressFeatures() (SensorFeatures, PhysioState) {
	x := SensorFeatures{
		HRBpm:   f32(88),
		RMSSD:   f32(18),
		RRBpm:   f32(17),
		Quality: 1.0,
		Motion:  0,
	}
	phys := PhysioState{Confidence: 1.0}
	return x, phys
}

func calmFeatures() (SensorFeatures, PhysioState) {
	x := SensorFeatures{
		HRBpm:   f32(62),
		RMSSD:   f32(45),
		RRBpm:   f32(7),
		Quality: 1.0,
		Motion:  0,
	}
	phys := PhysioState{Confidence: 1.0}
	return x, phys
}

func checkDistribution(t *testing.T, s BeliefState) {
	t.Helper()
	var sum float32
	for i, p := range s.P {
		if p < 0 {
			t.Fatalf("negative probability at %d: %f", i, p)
		}
		sum += p
	}
	if math.Abs(float64(sum)-1) > 1e-3 {
		t.Fatalf("probabilities sum to %f, expected 1 within 1e-3", sum)
	}
	if s.Conf < 0 || s.Conf > 1 {
		t.Fatalf("confidence %f outside [0, 1]", s.Conf)
	}
}

func TestUpdateKeepsDistributionValid(t *testing.T) {
	e := NewEngine(DefaultEngineConfig())
	state := InitialBelief()
	checkDistribution(t, state)

	x, phys := stressFeatures()
	for i := 0; i < 30; i++ {
		state, _ = e.Update(state, x, phys, Context{}, 1.0)
		checkDistribution(t, state)
	}
}

func TestSustainedEvidenceSwitchesMode(t *testing.T) {
	e := NewEngine(DefaultEngineConfig())
	state := InitialBelief()

	x, phys := stressFeatures()
	for i := 0; i < 10; i++ {
		state, _ = e.Update(state, x, phys, Context{}, 1.0)
	}
	if state.Mode != BasisStress {
		t.Fatalf("expected stress mode after sustained evidence, got %s (p=%v)", state.Mode, state.P)
	}
}

func TestHysteresisHoldsModeOnLowDt(t *testing.T) {
	e := NewEngine(DefaultEngineConfig())

	// Incumbent calm belief, then one tiny-dt update of stress evidence.
	state := BeliefState{
		P:    [NumModes]float32{0.6, 0.1, 0.1, 0.1, 0.1},
		Conf: 0.7,
		Mode: BasisCalm,
	}

	x, phys := stressFeatures()
	next, _ := e.Update(state, x, phys, Context{}, 0.01)
	if next.Mode != BasisCalm {
		t.Fatalf("single low-dt update flipped mode to %s (p=%v)", next.Mode, next.P)
	}
}

func TestMarginalLeadDoesNotSwitch(t *testing.T) {
	e := NewEngine(DefaultEngineConfig())

	// Marginal stress evidence against a close incumbent must not
	// flip the committed mode in one small step.
	state := BeliefState{
		P:    [NumModes]float32{0.5, 0.05, 0.4, 0.025, 0.025},
		Conf: 0.7,
		Mode: BasisCalm,
	}

	x, phys := stressFeatures()
	next, _ := e.Update(state, x, phys, Context{}, 0.05)
	if next.Mode != BasisCalm {
		t.Fatalf("mode switched without clearing the margin: %s (p=%v)", next.Mode, next.P)
	}
}

func TestAbsentEvidenceDegradesConfidence(t *testing.T) {
	e := NewEngine(DefaultEngineConfig())
	state := BeliefState{
		P:    [NumModes]float32{0.6, 0.1, 0.1, 0.1, 0.1},
		Conf: 0.8,
		Mode: BasisCalm,
	}

	next, _ := e.Update(state, SensorFeatures{Quality: 0.9}, PhysioState{}, Context{}, 1.0)

	if next.P != state.P {
		t.Fatalf("dropout mutated distribution: %v vs %v", next.P, state.P)
	}
	if next.Mode != state.Mode {
		t.Fatalf("dropout switched mode to %s", next.Mode)
	}
	want := state.Conf * DefaultEngineConfig().ConfidenceDecay
	if math.Abs(float64(next.Conf-want)) > 1e-6 {
		t.Fatalf("expected confidence %f after decay, got %f", want, next.Conf)
	}
}

func TestRepeatedDropoutNeverResets(t *testing.T) {
	e := NewEngine(DefaultEngineConfig())
	state := BeliefState{
		P:    [NumModes]float32{0.6, 0.1, 0.1, 0.1, 0.1},
		Conf: 0.8,
		Mode: BasisCalm,
	}

	for i := 0; i < 100; i++ {
		state, _ = e.Update(state, SensorFeatures{}, PhysioState{}, Context{}, 1.0)
	}
	if state.P[BasisCalm] != 0.6 {
		t.Fatalf("distribution drifted under pure dropout: %v", state.P)
	}
	if state.Conf < 0 {
		t.Fatalf("confidence went negative: %f", state.Conf)
	}
}

func TestResonancePeaksAtSixBpm(t *testing.T) {
	e := NewEngine(DefaultEngineConfig())
	state := InitialBelief()

	x, phys := calmFeatures()
	x.RRBpm = f32(6.0)
	_, diag := e.Update(state, x, phys, Context{}, 1.0)
	if diag.ResonanceScore < 0.99 {
		t.Fatalf("expected resonance near 1 at 6 bpm, got %f", diag.ResonanceScore)
	}

	x.RRBpm = f32(12.0)
	_, diag = e.Update(state, x, phys, Context{}, 1.0)
	if diag.ResonanceScore > 0.1 {
		t.Fatalf("expected low resonance at 12 bpm, got %f", diag.ResonanceScore)
	}
}

func TestPartialDropoutReducesLearningRate(t *testing.T) {
	e := NewEngine(DefaultEngineConfig())
	state := InitialBelief()

	full, fullPhys := stressFeatures()
	_, fullDiag := e.Update(state, full, fullPhys, Context{}, 1.0)

	partial := SensorFeatures{HRBpm: f32(88), Quality: 1.0}
	_, partialDiag := e.Update(state, partial, PhysioState{Confidence: 1.0}, Context{}, 1.0)

	if partialDiag.LearningRate >= fullDiag.LearningRate {
		t.Fatalf("partial evidence should blend slower: %f vs %f",
			partialDiag.LearningRate, fullDiag.LearningRate)
	}
}

func TestPhysioFallbackFillsMissingChannels(t *testing.T) {
	e := NewEngine(DefaultEngineConfig())
	state := InitialBelief()

	x := SensorFeatures{Quality: 1.0}
	phys := PhysioState{HRBpm: f32(88), RMSSD: f32(18), RRBpm: f32(17), Confidence: 1.0}

	next, diag := e.Update(state, x, phys, Context{}, 1.0)
	if diag.EvidenceWeight == 0 {
		t.Fatal("physio channels should count as available evidence")
	}
	if next.P[BasisStress] <= state.P[BasisStress] {
		t.Fatalf("stress evidence via physio fallback had no effect: %v", next.P)
	}
}

func TestBasisStrings(t *testing.T) {
	cases := map[Basis]string{
		BasisCalm:    "calm",
		BasisFocus:   "focus",
		BasisStress:  "stress",
		BasisSleepy:  "sleepy",
		BasisAroused: "aroused",
		Basis(99):    "unknown",
	}
	for b, want := range cases {
		if b.String() != want {
			t.Fatalf("Basis(%d).String() = %s, want %s", b, b.String(), want)
		}
	}
}
