package controller

import (
	"math"

	"github.com/zenb-io/zenb/go-core/internal/belief"
)

// #region poll-config

// PollConfig bounds the adaptive poll interval.
type PollConfig struct {
	ActionIntervalMs int64   // fixed tight interval right after a control action
	BaseIntervalMs   float32 // relaxed interval at zero urgency
	UrgencyGain      float32 // how aggressively urgency shrinks the interval
	MinIntervalMs    float32
	MaxIntervalMs    float32
	ChargingFactor   float32 // interval multiplier while on external power
}

// DefaultPollConfig returns the stock scheduling band.
func DefaultPollConfig() PollConfig {
	return PollConfig{
		ActionIntervalMs: 200,
		BaseIntervalMs:   5000,
		UrgencyGain:      10,
		MinIntervalMs:    200,
		MaxIntervalMs:    30000,
		ChargingFactor:   0.8,
	}
}

// #endregion poll-config

// #region compute-poll-interval

// ComputePollInterval maps uncertainty into the next polling delay in
// milliseconds. High free energy with low belief confidence contracts
// the interval; settled belief dilates it. The interval is clamped to
// the absolute band both before and after the context discount so
// context can never push it outside the band.
func ComputePollInterval(cfg PollConfig, freeEnergyEMA, beliefConfidence float32, actionTaken bool, ctx belief.Context) int64 {
	if actionTaken {
		return cfg.ActionIntervalMs
	}

	fe := freeEnergyEMA
	if fe < 0 {
		fe = 0
	}
	urgency := fe * (1 - clampf(beliefConfidence, 0, 1))

	target := cfg.BaseIntervalMs / (1 + urgency*cfg.UrgencyGain)
	clamped := clampf(target, cfg.MinIntervalMs, cfg.MaxIntervalMs)

	if ctx.IsCharging {
		clamped *= cfg.ChargingFactor
	}
	clamped = clampf(clamped, cfg.MinIntervalMs, cfg.MaxIntervalMs)

	return int64(math.Round(float64(clamped)))
}

// #endregion compute-poll-interval
