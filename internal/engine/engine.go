// Package engine wires the per-tick pipeline: belief update, debounced
// control decision, safety gate, event append, aggregate projection,
// and the next poll interval. One engine owns one session and is
// driven from a single goroutine; every stage is a pure or exclusively
// owned transition with no internal suspension point.
package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/zenb-io/zenb/go-core/internal/agent"
	"github.com/zenb-io/zenb/go-core/internal/belief"
	"github.com/zenb-io/zenb/go-core/internal/breaker"
	"github.com/zenb-io/zenb/go-core/internal/controller"
	"github.com/zenb-io/zenb/go-core/internal/domain"
	"github.com/zenb-io/zenb/go-core/internal/estimator"
	"github.com/zenb-io/zenb/go-core/internal/safety"
	"github.com/zenb-io/zenb/go-core/internal/validation"
)

// #region collaborators

// EventSink receives envelopes for durable append. The journal
// satisfies it; tests may capture in memory. Envelopes handed to the
// sink must come back in the same order for replay.
type EventSink interface {
	Append(domain.Envelope) error
}

// Estimator is the external rate-estimation collaborator.
type Estimator interface {
	Ingest(samples []float32, tsUs int64) estimator.Estimate
}

// Monitor observes emitted envelopes out-of-band (safety/ethics
// monitors). The engine never blocks on a monitor and ignores its
// conclusions; violations are raised through the monitor's own channel.
type Monitor interface {
	Observe(domain.Envelope)
}

// #endregion collaborators

// #region config

// Config bundles the pipeline stage configurations.
type Config struct {
	Belief             belief.EngineConfig
	Controller         controller.Config
	Poll               controller.PollConfig
	Safety             safety.Config
	Breaker            breaker.Config
	FreeEnergyEMAAlpha float32
	BurstFloorUs       int64
	DefaultDtSec       float32 // dt assumed for the very first tick
}

// DefaultConfig returns the stock pipeline tuning.
func DefaultConfig() Config {
	return Config{
		Belief:             belief.DefaultEngineConfig(),
		Controller:         controller.DefaultConfig(),
		Poll:               controller.DefaultPollConfig(),
		Safety:             safety.DefaultConfig(),
		Breaker:            breaker.DefaultConfig(),
		FreeEnergyEMAAlpha: 0.2,
		BurstFloorUs:       10_000,
		DefaultDtSec:       1.0,
	}
}

// #endregion config

// #region errors

// ErrCircuitOpen reports a strategy call denied by the breaker during
// its cooldown window.
var ErrCircuitOpen = errors.New("strategy circuit open")

// ErrNoSession reports a tick against an engine whose session has not
// been started.
var ErrNoSession = errors.New("session not started")

// #endregion errors

// #region tick-result

// TickResult is the outcome of one pipeline pass.
type TickResult struct {
	Decision       *domain.ControlDecision // nil unless applied this tick
	Applied        bool
	Verdict        safety.Verdict
	Belief         belief.BeliefState
	Diagnostics    belief.Diagnostics
	PollIntervalMs int64
}

// #endregion tick-result

// #region engine

// Engine holds the session-local, single-owner pipeline state.
type Engine struct {
	cfg Config

	sessionID domain.SessionID
	started   bool

	beliefEngine *belief.Engine
	beliefState  belief.BeliefState
	ctrl         *controller.AdaptiveController
	gate         *safety.Envelope
	burst        *validation.BurstGuard

	container       *agent.Container
	strategyBreaker *breaker.CircuitBreaker

	sink     EventSink
	monitors []Monitor

	aggregate  domain.BreathState
	nextSeq    uint64
	lastTsUs   int64
	lastTickUs int64
	feEMA      float32
}

// New creates an engine. sink may be nil (in-memory only); container
// may be nil if the strategy path is unused.
func New(cfg Config, sink EventSink, container *agent.Container) *Engine {
	return &Engine{
		cfg:             cfg,
		beliefEngine:    belief.NewEngine(cfg.Belief),
		beliefState:     belief.InitialBelief(),
		ctrl:            controller.New(cfg.Controller),
		gate:            safety.New(cfg.Safety),
		burst:           validation.NewBurstGuard(cfg.BurstFloorUs),
		container:       container,
		strategyBreaker: breaker.New(cfg.Breaker),
		sink:            sink,
		nextSeq:         1,
	}
}

// AddMonitor registers an out-of-band event observer.
func (e *Engine) AddMonitor(m Monitor) {
	e.monitors = append(e.monitors, m)
}

// SessionID returns the bound session identity.
func (e *Engine) SessionID() domain.SessionID { return e.sessionID }

// Aggregate returns a copy of the current projection.
func (e *Engine) Aggregate() domain.BreathState { return e.aggregate }

// Hash returns the current aggregate content hash.
func (e *Engine) Hash() (string, error) { return e.aggregate.Hash() }

// Belief returns the current belief state.
func (e *Engine) Belief() belief.BeliefState { return e.beliefState }

// #endregion engine

// #region session-lifecycle

// StartSession mints the session identity and appends SessionStarted.
func (e *Engine) StartSession(nowUs int64, mode string) (domain.SessionID, error) {
	if e.started {
		return e.sessionID, fmt.Errorf("session %s already started", e.sessionID)
	}
	e.sessionID = domain.NewSessionID()
	e.started = true
	if err := e.append(nowUs, domain.SessionStarted{Mode: mode}, nil); err != nil {
		e.started = false
		return "", err
	}
	return e.sessionID, nil
}

// CompleteCycle appends finished breath cycles reported by the
// external breath engine.
func (e *Engine) CompleteCycle(nowUs int64, cycles int32) error {
	if !e.started {
		return ErrNoSession
	}
	return e.append(nowUs, domain.CycleCompleted{Cycles: cycles}, nil)
}

// #endregion session-lifecycle

// #region tick

// Tick runs one full pipeline pass. The safety envelope is evaluated
// every tick, even when the controller reports no change, because a
// controller no-op does not imply the last externally applied rate is
// still inside current bounds. Events are appended only for accepted
// changes; the belief snapshot travels with the decision it produced.
func (e *Engine) Tick(nowUs int64, x belief.SensorFeatures, phys belief.PhysioState, ctx belief.Context, est estimator.Estimate) (TickResult, error) {
	if !e.started {
		return TickResult{}, ErrNoSession
	}
	// Features are validated before the burst guard records anything,
	// so a rejected tick leaves no trace in the burst watermark.
	if err := validation.ValidateFeatures(x); err != nil {
		return TickResult{}, err
	}
	if err := e.burst.Observe(nowUs); err != nil {
		return TickResult{}, err
	}

	dt := e.cfg.DefaultDtSec
	if e.lastTickUs > 0 {
		dt = float32(nowUs-e.lastTickUs) / 1e6
	}
	e.lastTickUs = nowUs

	nextBelief, diag := e.beliefEngine.Update(e.beliefState, x, phys, ctx, dt)
	e.beliefState = nextBelief
	e.feEMA += e.cfg.FreeEnergyEMAAlpha * (diag.FreeEnergy - e.feEMA)

	target, changed := e.ctrl.Decide(est, nowUs)
	verdict := e.gate.Evaluate(nowUs, target, nextBelief.Conf)
	applied := changed && verdict.Allowed

	pollMs := controller.ComputePollInterval(e.cfg.Poll, e.feEMA, nextBelief.Conf, applied, ctx)

	result := TickResult{
		Applied:        applied,
		Verdict:        verdict,
		Belief:         nextBelief,
		Diagnostics:    diag,
		PollIntervalMs: pollMs,
	}

	if applied {
		if err := e.append(nowUs, domain.BeliefUpdatedV2{
			P:              nextBelief.P,
			Conf:           nextBelief.Conf,
			Mode:           int32(nextBelief.Mode),
			FreeEnergyEMA:  e.feEMA,
			LR:             diag.LearningRate,
			ResonanceScore: diag.ResonanceScore,
		}, nil); err != nil {
			return result, err
		}

		decision := domain.ControlDecision{
			TargetRateBPM:             target,
			Confidence:                nextBelief.Conf,
			RecommendedPollIntervalMS: pollMs,
		}
		if err := e.append(nowUs, domain.ControlDecisionMade{Decision: decision}, nil); err != nil {
			return result, err
		}
		e.gate.RecordPatch(nowUs, target)
		result.Decision = &decision
	}

	return result, nil
}

// #endregion tick

// #region strategy-path

// EvaluateStrategy runs the agent container behind the circuit
// breaker: a quota overrun or a busy denial from a still-running
// worker trips the breaker, and while the breaker is open the call
// fails fast with ErrCircuitOpen instead of paying for another
// overrun.
func (e *Engine) EvaluateStrategy(ctx context.Context, nowUs int64, x belief.SensorFeatures, phys belief.PhysioState, bctx belief.Context) (float32, error) {
	if e.container == nil {
		return 0, errors.New("no agent container deployed")
	}
	if !e.strategyBreaker.Allow(nowUs) {
		return 0, fmt.Errorf("strategy %s: %w", e.container.Version(), ErrCircuitOpen)
	}
	conf, err := e.container.Evaluate(ctx, x, phys, bctx)
	if err != nil {
		if errors.Is(err, agent.ErrQuotaExceeded) || errors.Is(err, agent.ErrStrategyBusy) {
			e.strategyBreaker.Trip(nowUs)
		}
		return 0, err
	}
	return conf, nil
}

// StrategyBreaker exposes the breaker for explicit operator reset.
func (e *Engine) StrategyBreaker() *breaker.CircuitBreaker {
	return e.strategyBreaker
}

// #endregion strategy-path

// #region append

// append stamps, applies, persists, and fans out one event. The
// aggregate transition is computed first so a protocol fault never
// reaches the sink, and committed only after the sink accepts the
// envelope so memory never runs ahead of the durable log.
func (e *Engine) append(nowUs int64, ev domain.Event, meta map[string]any) error {
	tsUs := nowUs
	if tsUs < e.lastTsUs {
		tsUs = e.lastTsUs // envelope timestamps never regress within a session
	}

	env := domain.Envelope{
		SessionID: e.sessionID,
		Seq:       e.nextSeq,
		TsUs:      tsUs,
		Event:     ev,
		Meta:      meta,
	}

	next, err := e.aggregate.Apply(env)
	if err != nil {
		return fmt.Errorf("apply event: %w", err)
	}
	if e.sink != nil {
		if err := e.sink.Append(env); err != nil {
			return fmt.Errorf("persist envelope: %w", err)
		}
	}

	e.aggregate = next
	e.nextSeq++
	e.lastTsUs = tsUs

	for _, m := range e.monitors {
		m.Observe(env)
	}
	return nil
}

// #endregion append
