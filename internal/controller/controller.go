// Package controller turns rate estimates into debounced pacing
// decisions and schedules the adaptive poll interval.
package controller

import (
	"github.com/zenb-io/zenb/go-core/internal/estimator"
)

// #region config

// Config holds the controller debounce parameters and the absolute
// rate band the base rate is clamped into before debouncing.
type Config struct {
	DecisionEpsilonBPM    float32
	MinDecisionIntervalUs int64
	RRMinBPM              float32
	RRMaxBPM              float32
	DefaultRateBPM        float32
}

// DefaultConfig returns the stock debounce tuning.
func DefaultConfig() Config {
	return Config{
		DecisionEpsilonBPM:    0.1,
		MinDecisionIntervalUs: 250_000,
		RRMinBPM:              4.0,
		RRMaxBPM:              12.0,
		DefaultRateBPM:        6.0,
	}
}

// #endregion config

// #region adaptive-controller

// AdaptiveController debounces target pacing rates. It remembers only
// the last accepted decision; calls that report no change leave it
// untouched so rejected proposals are side-effect-free.
type AdaptiveController struct {
	cfg            Config
	lastDecisionUs int64
	lastRateBPM    float32
	hasDecision    bool
}

// New creates a controller with the given configuration.
func New(cfg Config) *AdaptiveController {
	return &AdaptiveController{cfg: cfg}
}

// Decide resolves the base rate (estimate, else last decision, else
// the default), clamps it to the safe band, and reports a change only
// when the amplitude exceeds epsilon AND the elapsed time exceeds the
// minimum interval. The very first decision is always a change.
// Amplitude-only debounce would allow rapid small-step drift and
// time-only debounce would allow large jumps once the window opens,
// so both conditions are required.
func (c *AdaptiveController) Decide(est estimator.Estimate, nowUs int64) (float32, bool) {
	base := c.cfg.DefaultRateBPM
	switch {
	case est.RRBpm != nil:
		base = *est.RRBpm
	case c.hasDecision:
		base = c.lastRateBPM
	}
	target := clampf(base, c.cfg.RRMinBPM, c.cfg.RRMaxBPM)

	changed := true
	if c.hasDecision {
		amplitude := absf(c.lastRateBPM-target) > c.cfg.DecisionEpsilonBPM
		elapsed := nowUs-c.lastDecisionUs >= c.cfg.MinDecisionIntervalUs
		changed = amplitude && elapsed
	}

	if changed {
		c.lastRateBPM = target
		c.lastDecisionUs = nowUs
		c.hasDecision = true
	}
	return target, changed
}

// LastRate returns the last accepted rate and whether one exists.
func (c *AdaptiveController) LastRate() (float32, bool) {
	return c.lastRateBPM, c.hasDecision
}

// #endregion adaptive-controller

// #region helpers

func clampf(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func absf(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

// #endregion helpers
