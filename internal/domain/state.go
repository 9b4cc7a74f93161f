package domain

import (
	"fmt"

	"github.com/zenb-io/zenb/go-core/internal/encoding"
)

// #region breath-state

// BreathState is the aggregate projection of one session, built by
// folding its envelopes in seq order from the zero value. Every field
// here is visible state and participates in Hash; transient
// diagnostics belong in Envelope.Meta, which never reaches this type.
type BreathState struct {
	SessionID       SessionID        `json:"session_id"`
	Mode            string           `json:"mode"`
	LastDecision    *ControlDecision `json:"last_decision,omitempty"`
	BeliefP         [5]float32       `json:"belief_p"`
	BeliefConf      float32          `json:"belief_conf"`
	BeliefMode      int32            `json:"belief_mode"`
	FreeEnergyEMA   float32          `json:"free_energy_ema"`
	LearningRate    float32          `json:"lr"`
	ResonanceScore  float32          `json:"resonance_score"`
	CyclesCompleted int64            `json:"cycles_completed"`
	LastSeq         uint64           `json:"last_seq"`
	LastTsUs        int64            `json:"last_ts_us"`
	EventCount      int64            `json:"event_count"`
}

// #endregion breath-state

// #region apply

// Apply folds one envelope into the aggregate, returning the next
// state. It is a pure function of (s, env): no clock, no randomness.
// Envelopes must arrive in strictly increasing Seq order starting at
// 1; any gap, duplicate, regression, session mix-up, or unknown event
// kind is a protocol fault and the input state is returned unchanged.
func (s BreathState) Apply(env Envelope) (BreathState, error) {
	switch {
	case env.Seq == s.LastSeq+1:
		// in order
	case env.Seq <= s.LastSeq:
		return s, fmt.Errorf("apply seq %d at watermark %d: %w", env.Seq, s.LastSeq, ErrDuplicateSeq)
	default:
		return s, fmt.Errorf("apply seq %d at watermark %d: %w", env.Seq, s.LastSeq, ErrSequenceGap)
	}

	if s.LastSeq == 0 {
		s.SessionID = env.SessionID
	} else if env.SessionID != s.SessionID {
		return s, fmt.Errorf("apply envelope for %s to aggregate %s: %w", env.SessionID, s.SessionID, ErrSessionMismatch)
	}

	if s.LastSeq > 0 && env.TsUs < s.LastTsUs {
		return s, fmt.Errorf("apply ts %dus after %dus: %w", env.TsUs, s.LastTsUs, ErrTimestampRegression)
	}

	switch e := env.Event.(type) {
	case SessionStarted:
		s.Mode = e.Mode
	case ControlDecisionMade:
		d := e.Decision
		s.LastDecision = &d
	case BeliefUpdatedV2:
		s.BeliefP = e.P
		s.BeliefConf = e.Conf
		s.BeliefMode = e.Mode
		s.FreeEnergyEMA = e.FreeEnergyEMA
		s.LearningRate = e.LR
		s.ResonanceScore = e.ResonanceScore
	case CycleCompleted:
		s.CyclesCompleted += int64(e.Cycles)
	default:
		return s, fmt.Errorf("apply seq %d: %w", env.Seq, ErrUnknownEvent)
	}

	s.LastSeq = env.Seq
	s.LastTsUs = env.TsUs
	s.EventCount++
	return s, nil
}

// #endregion apply

// #region hash

// Hash returns the 128-bit content hash of the aggregate's visible
// fields. Two replays of value-equal envelope sequences hash equal on
// any host at any time.
func (s BreathState) Hash() (string, error) {
	return encoding.ContentHash(s)
}

// #endregion hash
