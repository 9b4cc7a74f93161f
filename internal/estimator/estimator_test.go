package estimator

import (
	"math"
	"testing"
)

func TestEstimateNilUntilPrimed(t *testing.T) {
	e := NewEWMA(0.4)

	est := e.Ingest([]float32{66, 40, 0}, 1_000_000)
	if est.RRBpm != nil {
		t.Fatalf("expected nil estimate before a usable sample, got %f", *est.RRBpm)
	}
	if est.TsUs != 1_000_000 {
		t.Fatalf("timestamp lost: %d", est.TsUs)
	}
}

func TestFirstSamplePrimes(t *testing.T) {
	e := NewEWMA(0.4)

	est := e.Ingest([]float32{66, 40, 7.0}, 0)
	if est.RRBpm == nil || *est.RRBpm != 7.0 {
		t.Fatalf("expected primed estimate 7.0, got %v", est.RRBpm)
	}
}

func TestSmoothingBlendsTowardSamples(t *testing.T) {
	e := NewEWMA(0.4)
	e.Ingest([]float32{66, 40, 7.0}, 0)

	est := e.Ingest([]float32{66, 40, 9.0}, 1_000_000)
	// 7 + 0.4*(9-7) = 7.8
	if est.RRBpm == nil || math.Abs(float64(*est.RRBpm)-7.8) > 1e-5 {
		t.Fatalf("expected smoothed 7.8, got %v", est.RRBpm)
	}
}

func TestBadSamplesHoldEstimate(t *testing.T) {
	e := NewEWMA(0.4)
	e.Ingest([]float32{66, 40, 7.0}, 0)

	for _, samples := range [][]float32{{66, 40, 0}, {66, 40, -3}, {66}, nil} {
		est := e.Ingest(samples, 1_000_000)
		if est.RRBpm == nil || *est.RRBpm != 7.0 {
			t.Fatalf("estimate drifted on unusable sample %v: %v", samples, est.RRBpm)
		}
	}
}

func TestInvalidAlphaFallsBack(t *testing.T) {
	for _, alpha := range []float32{0, -1, 1.5} {
		e := NewEWMA(alpha)
		e.Ingest([]float32{0, 0, 10.0}, 0)
		est := e.Ingest([]float32{0, 0, 5.0}, 1)
		// Fallback alpha 0.4: 10 + 0.4*(5-10) = 8.
		if est.RRBpm == nil || math.Abs(float64(*est.RRBpm)-8.0) > 1e-5 {
			t.Fatalf("alpha %f: expected fallback smoothing to 8.0, got %v", alpha, est.RRBpm)
		}
	}
}

func TestReturnedPointerIsStable(t *testing.T) {
	e := NewEWMA(0.4)
	first := e.Ingest([]float32{0, 0, 7.0}, 0)
	second := e.Ingest([]float32{0, 0, 9.0}, 1)

	// Each estimate owns its value; later ingests must not mutate
	// earlier results through the pointer.
	if *first.RRBpm != 7.0 {
		t.Fatalf("earlier estimate mutated to %f", *first.RRBpm)
	}
	if *second.RRBpm == *first.RRBpm {
		t.Fatal("estimates unexpectedly aliased")
	}
}
