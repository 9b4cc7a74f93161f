// Package safety is the hard gate in front of any accepted pacing
// change: absolute bounds, minimum confidence, minimum spacing, and a
// maximum rate of change per minute.
package safety

import "fmt"

// #region config

// Config holds the envelope's hard limits.
type Config struct {
	RRMinBPM            float32
	RRMaxBPM            float32
	MaxRRDeltaPerMin    float32
	MaxHoldUs           int64 // hold-phase cap consumed by the external breath engine
	MinConfidence       float32
	MinUpdateIntervalUs int64
}

// DefaultConfig returns the clinical defaults: 4-12 breaths/min, at
// most 2 bpm of drift per minute, 250ms between accepted patches.
func DefaultConfig() Config {
	return Config{
		RRMinBPM:            4.0,
		RRMaxBPM:            12.0,
		MaxRRDeltaPerMin:    2.0,
		MaxHoldUs:           5 * 60_000_000,
		MinConfidence:       0.3,
		MinUpdateIntervalUs: 250_000,
	}
}

// #endregion config

// #region verdict

// DenialCode attributes a rejection to exactly one envelope rule so
// diagnostics can tell them apart.
type DenialCode string

const (
	DenialNone       DenialCode = ""
	DenialConfidence DenialCode = "confidence"
	DenialRange      DenialCode = "range"
	DenialInterval   DenialCode = "interval"
	DenialDelta      DenialCode = "delta"
)

// Verdict is the envelope's decision on one proposal.
type Verdict struct {
	Allowed bool
	Denial  DenialCode
	Reason  string
}

// #endregion verdict

// #region envelope

// deltaTolerance absorbs float32 rounding at exact rate-of-change
// boundaries so legitimate proposals are not rejected by epsilon.
const deltaTolerance = 1.2e-7

// Envelope rate-limits accepted pacing changes. It holds only the
// single last accepted patch; the audit trail lives in the event log,
// not here.
type Envelope struct {
	cfg         Config
	lastPatchUs int64
	lastRateBPM float32
	hasPatch    bool
}

// New creates an envelope with the given limits.
func New(cfg Config) *Envelope {
	return &Envelope{cfg: cfg}
}

// Evaluate checks a proposed rate against the envelope rules in order:
// confidence, absolute range, update spacing, then rate of change
// scaled linearly by elapsed time. Each rule is independently
// sufficient to reject. Band boundaries are inclusive.
func (e *Envelope) Evaluate(nowUs int64, proposedBPM, confidence float32) Verdict {
	if confidence < e.cfg.MinConfidence {
		return Verdict{
			Denial: DenialConfidence,
			Reason: fmt.Sprintf("confidence %.2f below minimum %.2f", confidence, e.cfg.MinConfidence),
		}
	}
	if proposedBPM < e.cfg.RRMinBPM || proposedBPM > e.cfg.RRMaxBPM {
		return Verdict{
			Denial: DenialRange,
			Reason: fmt.Sprintf("rate %.2f outside [%.1f, %.1f]", proposedBPM, e.cfg.RRMinBPM, e.cfg.RRMaxBPM),
		}
	}
	if e.hasPatch {
		elapsedUs := nowUs - e.lastPatchUs
		if elapsedUs < e.cfg.MinUpdateIntervalUs {
			return Verdict{
				Denial: DenialInterval,
				Reason: fmt.Sprintf("only %dus since last patch, minimum %dus", elapsedUs, e.cfg.MinUpdateIntervalUs),
			}
		}
		delta := absf(proposedBPM - e.lastRateBPM)
		allowed := e.cfg.MaxRRDeltaPerMin * (float32(elapsedUs) / 60_000_000)
		if delta > allowed+deltaTolerance {
			return Verdict{
				Denial: DenialDelta,
				Reason: fmt.Sprintf("delta %.2f bpm exceeds %.2f allowed over %dus", delta, allowed, elapsedUs),
			}
		}
	}
	return Verdict{Allowed: true}
}

// AllowPatch is the boolean form of Evaluate.
func (e *Envelope) AllowPatch(nowUs int64, proposedBPM, confidence float32) bool {
	return e.Evaluate(nowUs, proposedBPM, confidence).Allowed
}

// RecordPatch stores the accepted patch. Call only after acceptance.
func (e *Envelope) RecordPatch(nowUs int64, rateBPM float32) {
	e.lastPatchUs = nowUs
	e.lastRateBPM = rateBPM
	e.hasPatch = true
}

// #endregion envelope

// #region helpers

func absf(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

// #endregion helpers
