// Package validation screens raw sensor input before it reaches the
// pipeline, surfacing data faults and burst faults as distinct typed
// errors rather than substituting values silently.
package validation

import (
	"fmt"
	"math"

	"github.com/zenb-io/zenb/go-core/internal/belief"
)

// #region sensor-error

// ErrorKind separates the two input fault classes.
type ErrorKind string

const (
	KindInvalidData ErrorKind = "invalid_data"
	KindBurst       ErrorKind = "burst"
)

// SensorError is a typed validation fault.
type SensorError struct {
	Kind ErrorKind
	Msg  string
}

func (e *SensorError) Error() string {
	return fmt.Sprintf("sensor %s: %s", e.Kind, e.Msg)
}

// #endregion sensor-error

// #region validate-features

// ValidateFeatures rejects non-finite or out-of-domain readings.
// Absent (nil) channels are legitimate dropout, not faults.
func ValidateFeatures(x belief.SensorFeatures) error {
	for _, c := range []struct {
		name string
		v    *float32
	}{
		{"hr_bpm", x.HRBpm},
		{"rmssd", x.RMSSD},
		{"rr_bpm", x.RRBpm},
	} {
		if c.v == nil {
			continue
		}
		if !finite(*c.v) {
			return &SensorError{Kind: KindInvalidData, Msg: fmt.Sprintf("%s is NaN/Inf", c.name)}
		}
		if *c.v < 0 {
			return &SensorError{Kind: KindInvalidData, Msg: fmt.Sprintf("%s %.2f is negative", c.name, *c.v)}
		}
	}

	if !finite(x.Quality) || x.Quality < 0 || x.Quality > 1 {
		return &SensorError{Kind: KindInvalidData, Msg: fmt.Sprintf("quality %.4f outside [0, 1]", x.Quality)}
	}
	if !finite(x.Motion) || x.Motion < 0 {
		return &SensorError{Kind: KindInvalidData, Msg: fmt.Sprintf("motion %.4f invalid", x.Motion)}
	}
	return nil
}

// #endregion validate-features

// #region burst-guard

// BurstGuard flags excessive input rate: ticks spaced closer than the
// floor are an overload fault, signaled distinctly from bad data.
type BurstGuard struct {
	minGapUs int64
	lastUs   int64
	seen     bool
}

// NewBurstGuard creates a guard with the given minimum tick gap.
func NewBurstGuard(minGapUs int64) *BurstGuard {
	return &BurstGuard{minGapUs: minGapUs}
}

// Observe records a tick at nowUs and errors if it arrived too soon
// after the previous one. The offending tick is not recorded so a
// burst does not push the watermark forward.
func (g *BurstGuard) Observe(nowUs int64) error {
	if g.seen && nowUs-g.lastUs < g.minGapUs {
		return &SensorError{
			Kind: KindBurst,
			Msg:  fmt.Sprintf("tick %dus after previous, floor %dus", nowUs-g.lastUs, g.minGapUs),
		}
	}
	g.lastUs = nowUs
	g.seen = true
	return nil
}

// #endregion burst-guard

// #region helpers

func finite(v float32) bool {
	f := float64(v)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// #endregion helpers
