// Package config loads the pipeline configuration surface from the
// environment. Every knob carries the stock default and can be
// overridden per deployment.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"

	"github.com/zenb-io/zenb/go-core/internal/agent"
	"github.com/zenb-io/zenb/go-core/internal/breaker"
	"github.com/zenb-io/zenb/go-core/internal/controller"
	"github.com/zenb-io/zenb/go-core/internal/engine"
	"github.com/zenb-io/zenb/go-core/internal/safety"
)

// #region config

// Config is the full environment-backed configuration surface.
type Config struct {
	JournalPath     string     `env:"ZENB_JOURNAL" envDefault:"zenb_journal.db"`
	SessionMode     string     `env:"ZENB_SESSION_MODE" envDefault:"coherent"`
	StrategyID      string     `env:"ZENB_STRATEGY" envDefault:"heuristic"`
	StrategyVersion string     `env:"ZENB_STRATEGY_VERSION" envDefault:"dev"`
	Safety          Safety     `envPrefix:"ZENB_SAFETY_"`
	Controller      Controller `envPrefix:"ZENB_CTRL_"`
	Poll            Poll       `envPrefix:"ZENB_POLL_"`
	Quota           Quota      `envPrefix:"ZENB_QUOTA_"`
	Breaker         Breaker    `envPrefix:"ZENB_BREAKER_"`
}

// Safety mirrors safety.Config.
type Safety struct {
	RRMinBPM            float32 `env:"RR_MIN" envDefault:"4.0"`
	RRMaxBPM            float32 `env:"RR_MAX" envDefault:"12.0"`
	MaxRRDeltaPerMin    float32 `env:"MAX_DELTA_PER_MIN" envDefault:"2.0"`
	MaxHoldUs           int64   `env:"MAX_HOLD_US" envDefault:"300000000"`
	MinConfidence       float32 `env:"MIN_CONFIDENCE" envDefault:"0.3"`
	MinUpdateIntervalUs int64   `env:"MIN_UPDATE_INTERVAL_US" envDefault:"250000"`
}

// Controller mirrors controller.Config.
type Controller struct {
	DecisionEpsilonBPM    float32 `env:"DECISION_EPSILON" envDefault:"0.1"`
	MinDecisionIntervalUs int64   `env:"MIN_DECISION_INTERVAL_US" envDefault:"250000"`
	DefaultRateBPM        float32 `env:"DEFAULT_RATE" envDefault:"6.0"`
}

// Poll mirrors controller.PollConfig.
type Poll struct {
	ActionIntervalMs int64   `env:"ACTION_MS" envDefault:"200"`
	BaseIntervalMs   float32 `env:"BASE_MS" envDefault:"5000"`
	UrgencyGain      float32 `env:"URGENCY_GAIN" envDefault:"10"`
	MinIntervalMs    float32 `env:"MIN_MS" envDefault:"200"`
	MaxIntervalMs    float32 `env:"MAX_MS" envDefault:"30000"`
	ChargingFactor   float32 `env:"CHARGING_FACTOR" envDefault:"0.8"`
}

// Quota mirrors agent.ResourceQuota.
type Quota struct {
	MaxCPUMsPerTick int64 `env:"MAX_CPU_MS" envDefault:"5"`
	MaxMemoryMB     int   `env:"MAX_MEMORY_MB" envDefault:"10"`
}

// Breaker mirrors breaker.Config.
type Breaker struct {
	Threshold  uint32 `env:"THRESHOLD" envDefault:"5"`
	CooldownUs int64  `env:"COOLDOWN_US" envDefault:"60000000"`
}

// #endregion config

// #region load

// Load parses the configuration from the environment.
func Load() (Config, error) {
	var c Config
	if err := env.Parse(&c); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return c, nil
}

// #endregion load

// #region converters

// EngineConfig assembles the pipeline configuration. Rate bounds are
// shared between the controller clamp and the safety envelope so the
// two stages can never disagree about the safe band.
func (c Config) EngineConfig() engine.Config {
	cfg := engine.DefaultConfig()

	cfg.Safety = safety.Config{
		RRMinBPM:            c.Safety.RRMinBPM,
		RRMaxBPM:            c.Safety.RRMaxBPM,
		MaxRRDeltaPerMin:    c.Safety.MaxRRDeltaPerMin,
		MaxHoldUs:           c.Safety.MaxHoldUs,
		MinConfidence:       c.Safety.MinConfidence,
		MinUpdateIntervalUs: c.Safety.MinUpdateIntervalUs,
	}
	cfg.Controller = controller.Config{
		DecisionEpsilonBPM:    c.Controller.DecisionEpsilonBPM,
		MinDecisionIntervalUs: c.Controller.MinDecisionIntervalUs,
		RRMinBPM:              c.Safety.RRMinBPM,
		RRMaxBPM:              c.Safety.RRMaxBPM,
		DefaultRateBPM:        c.Controller.DefaultRateBPM,
	}
	cfg.Poll = controller.PollConfig{
		ActionIntervalMs: c.Poll.ActionIntervalMs,
		BaseIntervalMs:   c.Poll.BaseIntervalMs,
		UrgencyGain:      c.Poll.UrgencyGain,
		MinIntervalMs:    c.Poll.MinIntervalMs,
		MaxIntervalMs:    c.Poll.MaxIntervalMs,
		ChargingFactor:   c.Poll.ChargingFactor,
	}
	cfg.Breaker = breaker.Config{
		Threshold:  c.Breaker.Threshold,
		CooldownUs: c.Breaker.CooldownUs,
	}
	return cfg
}

// ResourceQuota assembles the agent container quota.
func (c Config) ResourceQuota() agent.ResourceQuota {
	return agent.ResourceQuota{
		MaxCPUMsPerTick: c.Quota.MaxCPUMsPerTick,
		MaxMemoryMB:     c.Quota.MaxMemoryMB,
	}
}

// #endregion converters
