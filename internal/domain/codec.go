package domain

import (
	"encoding/json"
	"fmt"
)

// #region wire-shape

// envelopeJSON is the logical wire shape handed to persistence. The
// event payload is kept as a raw message next to its kind tag so the
// union survives the round trip without a default branch.
type envelopeJSON struct {
	SessionID string          `json:"session_id"`
	Seq       uint64          `json:"seq"`
	TsUs      int64           `json:"ts_us"`
	Kind      EventKind       `json:"kind"`
	Event     json.RawMessage `json:"event"`
	Meta      map[string]any  `json:"meta,omitempty"`
}

// #endregion wire-shape

// #region marshal

// MarshalEnvelope serializes an envelope for persistence or fixtures.
func MarshalEnvelope(env Envelope) ([]byte, error) {
	if env.Event == nil {
		return nil, fmt.Errorf("marshal seq %d: nil event: %w", env.Seq, ErrUnknownEvent)
	}
	payload, err := json.Marshal(env.Event)
	if err != nil {
		return nil, fmt.Errorf("marshal event payload: %w", err)
	}
	data, err := json.Marshal(envelopeJSON{
		SessionID: string(env.SessionID),
		Seq:       env.Seq,
		TsUs:      env.TsUs,
		Kind:      env.Event.Kind(),
		Event:     payload,
		Meta:      env.Meta,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal envelope: %w", err)
	}
	return data, nil
}

// #endregion marshal

// #region unmarshal

// UnmarshalEnvelope parses an envelope produced by MarshalEnvelope.
// A kind outside the closed union is a protocol fault, not a no-op.
func UnmarshalEnvelope(data []byte) (Envelope, error) {
	var wire envelopeJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return Envelope{}, fmt.Errorf("parse envelope: %w", err)
	}

	var event Event
	switch wire.Kind {
	case KindSessionStarted:
		var e SessionStarted
		if err := json.Unmarshal(wire.Event, &e); err != nil {
			return Envelope{}, fmt.Errorf("parse %s payload: %w", wire.Kind, err)
		}
		event = e
	case KindControlDecisionMade:
		var e ControlDecisionMade
		if err := json.Unmarshal(wire.Event, &e); err != nil {
			return Envelope{}, fmt.Errorf("parse %s payload: %w", wire.Kind, err)
		}
		event = e
	case KindBeliefUpdatedV2:
		var e BeliefUpdatedV2
		if err := json.Unmarshal(wire.Event, &e); err != nil {
			return Envelope{}, fmt.Errorf("parse %s payload: %w", wire.Kind, err)
		}
		event = e
	case KindCycleCompleted:
		var e CycleCompleted
		if err := json.Unmarshal(wire.Event, &e); err != nil {
			return Envelope{}, fmt.Errorf("parse %s payload: %w", wire.Kind, err)
		}
		event = e
	default:
		return Envelope{}, fmt.Errorf("kind %q: %w", wire.Kind, ErrUnknownEvent)
	}

	return Envelope{
		SessionID: SessionID(wire.SessionID),
		Seq:       wire.Seq,
		TsUs:      wire.TsUs,
		Event:     event,
		Meta:      wire.Meta,
	}, nil
}

// #endregion unmarshal
