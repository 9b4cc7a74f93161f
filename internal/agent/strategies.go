package agent

import (
	"context"

	"github.com/zenb-io/zenb/go-core/internal/belief"
)

// #region strategy-ids

// StrategyID selects a built-in strategy at deployment time.
type StrategyID string

const (
	StrategyHeuristic    StrategyID = "heuristic"
	StrategyConservative StrategyID = "conservative"
)

// NewStrategy builds the named strategy; unknown IDs fall back to the
// heuristic default.
func NewStrategy(id StrategyID) Strategy {
	switch id {
	case StrategyConservative:
		return &ConservativeStrategy{inner: NewHeuristicStrategy()}
	default:
		return NewHeuristicStrategy()
	}
}

// #endregion strategy-ids

// #region heuristic

// HeuristicStrategy scores how trustworthy the current observation is
// from signal quality, motion corruption, and the physio estimator's
// own confidence, smoothed across calls. The smoothing state is why
// the container's exclusive lock matters.
type HeuristicStrategy struct {
	smoothed float32
	primed   bool
}

// NewHeuristicStrategy creates the default strategy.
func NewHeuristicStrategy() *HeuristicStrategy {
	return &HeuristicStrategy{}
}

// Eval combines the per-tick trust signals and folds them into the
// running smooth. The work is bounded and never blocks, so the
// cancellation context needs no checkpoints here.
func (s *HeuristicStrategy) Eval(_ context.Context, x belief.SensorFeatures, phys belief.PhysioState, ctx belief.Context) StrategyOutput {
	raw := clamp01(x.Quality) * (1 - 0.5*clamp01(x.Motion))
	raw *= 0.5 + 0.5*clamp01(phys.Confidence)

	// Late-night sessions on battery get a small haircut: sensors drift
	// and the user is likelier to be moving in and out of contact.
	if !ctx.IsCharging && (ctx.LocalHour >= 23 || ctx.LocalHour < 5) {
		raw *= 0.9
	}

	if !s.primed {
		s.smoothed = raw
		s.primed = true
	} else {
		s.smoothed += 0.3 * (raw - s.smoothed)
	}
	return StrategyOutput{Confidence: clamp01(s.smoothed)}
}

// #endregion heuristic

// #region conservative

// ConservativeStrategy caps the inner strategy's confidence so the
// safety envelope sees humbler inputs. Meant for fresh deployments of
// an unproven strategy version.
type ConservativeStrategy struct {
	inner Strategy
}

// Eval delegates and clamps the result to [0, 0.7].
func (s *ConservativeStrategy) Eval(ctx context.Context, x belief.SensorFeatures, phys belief.PhysioState, bctx belief.Context) StrategyOutput {
	out := s.inner.Eval(ctx, x, phys, bctx)
	if out.Confidence > 0.7 {
		out.Confidence = 0.7
	}
	if out.Confidence < 0 {
		out.Confidence = 0
	}
	return out
}

// #endregion conservative

// #region helpers

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// #endregion helpers
