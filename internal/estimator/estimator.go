// Package estimator ships the default rate estimator behind the
// pipeline's external-collaborator interface: an exponentially
// weighted smoother over per-tick raw samples.
package estimator

// #region estimate

// Estimate is the externally produced scalar signal consumed by the
// adaptive controller. RRBpm is nil until the smoother has seen a
// usable respiration sample.
type Estimate struct {
	RRBpm *float32
	TsUs  int64
}

// #endregion estimate

// #region ewma

// EWMA smooths respiration-rate samples. Samples are the raw feature
// triple (hr, rmssd, rr); only the respiration channel feeds the
// estimate here.
type EWMA struct {
	alpha  float32
	rrBPM  float32
	primed bool
}

// NewEWMA creates a smoother with the given blend factor in (0, 1].
func NewEWMA(alpha float32) *EWMA {
	if alpha <= 0 || alpha > 1 {
		alpha = 0.4
	}
	return &EWMA{alpha: alpha}
}

// Ingest folds one raw sample vector [hr, rmssd, rr] observed at tsUs
// into the smoother and returns the current estimate. Short or
// non-positive respiration samples leave the previous estimate
// standing.
func (e *EWMA) Ingest(samples []float32, tsUs int64) Estimate {
	if len(samples) >= 3 && samples[2] > 0 {
		if !e.primed {
			e.rrBPM = samples[2]
			e.primed = true
		} else {
			e.rrBPM += e.alpha * (samples[2] - e.rrBPM)
		}
	}

	est := Estimate{TsUs: tsUs}
	if e.primed {
		rr := e.rrBPM
		est.RRBpm = &rr
	}
	return est
}

// #endregion ewma
