// Package domain holds the event-sourced breath session aggregate:
// the envelope/event log shape and the deterministic BreathState
// projection with its content hash.
package domain

import "github.com/google/uuid"

// #region session-id

// SessionID is the opaque identity of one breathing session. Created
// once at session start and immutable thereafter.
type SessionID string

// NewSessionID mints a fresh session identifier.
func NewSessionID() SessionID {
	return SessionID(uuid.New().String())
}

// #endregion session-id

// #region control-decision

// ControlDecision is the accepted, safety-gated output of one tick:
// the pacing rate handed to the actuation loop plus the confidence it
// was made at and the poll interval recommended alongside it.
type ControlDecision struct {
	TargetRateBPM             float32 `json:"target_rate_bpm"`
	Confidence                float32 `json:"confidence"`
	RecommendedPollIntervalMS int64   `json:"recommended_poll_interval_ms"`
}

// #endregion control-decision

// #region envelope

// Envelope wraps a domain event with its per-session ordering data.
// Seq starts at 1 and is strictly increasing; TsUs is monotonically
// non-decreasing within a session. Meta is a free-form diagnostic bag
// that is persisted with the envelope but never read by Apply or Hash.
type Envelope struct {
	SessionID SessionID
	Seq       uint64
	TsUs      int64
	Event     Event
	Meta      map[string]any
}

// #endregion envelope

// #region event-union

// EventKind discriminates event payloads in the serialized envelope.
type EventKind string

const (
	KindSessionStarted      EventKind = "session_started"
	KindControlDecisionMade EventKind = "control_decision_made"
	KindBeliefUpdatedV2     EventKind = "belief_updated_v2"
	KindCycleCompleted      EventKind = "cycle_completed"
)

// Event is the closed union of domain facts. The unexported marker
// keeps implementations confined to this package so the fold in Apply
// stays exhaustive; a new event kind cannot exist without extending
// the switch there.
type Event interface {
	Kind() EventKind
	isEvent()
}

// SessionStarted opens a session in the named program mode.
type SessionStarted struct {
	Mode string `json:"mode"`
}

// ControlDecisionMade records an accepted, safety-gated pacing change.
type ControlDecisionMade struct {
	Decision ControlDecision `json:"decision"`
}

// BeliefUpdatedV2 records one belief estimator transition: the
// posterior over the five modes plus the estimator diagnostics.
type BeliefUpdatedV2 struct {
	P              [5]float32 `json:"p"`
	Conf           float32    `json:"conf"`
	Mode           int32      `json:"mode"`
	FreeEnergyEMA  float32    `json:"free_energy_ema"`
	LR             float32    `json:"lr"`
	ResonanceScore float32    `json:"resonance_score"`
}

// CycleCompleted records finished breath cycles reported by the
// external breath engine.
type CycleCompleted struct {
	Cycles int32 `json:"cycles"`
}

func (SessionStarted) Kind() EventKind      { return KindSessionStarted }
func (ControlDecisionMade) Kind() EventKind { return KindControlDecisionMade }
func (BeliefUpdatedV2) Kind() EventKind     { return KindBeliefUpdatedV2 }
func (CycleCompleted) Kind() EventKind      { return KindCycleCompleted }

func (SessionStarted) isEvent()      {}
func (ControlDecisionMade) isEvent() {}
func (BeliefUpdatedV2) isEvent()     {}
func (CycleCompleted) isEvent()      {}

// #endregion event-union
