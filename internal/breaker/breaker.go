// Package breaker provides a payload-agnostic circuit breaker for
// guarding any fallible downstream call in the pipeline.
package breaker

import "sync"

// #region config

// Config holds the trip threshold and cooldown window.
type Config struct {
	Threshold  uint32
	CooldownUs int64
}

// DefaultConfig returns 5 failures with a one-minute cooldown.
func DefaultConfig() Config {
	return Config{
		Threshold:  5,
		CooldownUs: 60_000_000,
	}
}

// #endregion config

// #region circuit-breaker

// CircuitBreaker records failures of a protected resource it does not
// own. Once the failure count reaches the threshold, calls are denied
// until the cooldown elapses since the last failure; expiry restores
// full allowance with no half-open probe (a gradual-trust probe is a
// possible extension, not current behavior). Safe to share across
// goroutines.
type CircuitBreaker struct {
	mu            sync.Mutex
	cfg           Config
	failureCount  uint32
	lastFailureUs int64
	hasFailure    bool
}

// New creates a breaker with the given configuration.
func New(cfg Config) *CircuitBreaker {
	return &CircuitBreaker{cfg: cfg}
}

// Trip records one failure at nowUs.
func (b *CircuitBreaker) Trip(nowUs int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failureCount++
	b.lastFailureUs = nowUs
	b.hasFailure = true
}

// Allow reports whether a call may proceed at nowUs. It never mutates
// breaker state.
func (b *CircuitBreaker) Allow(nowUs int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.hasFailure && b.failureCount >= b.cfg.Threshold && nowUs-b.lastFailureUs < b.cfg.CooldownUs {
		return false
	}
	return true
}

// Reset clears all accumulated failure state, immediately restoring
// allowance.
func (b *CircuitBreaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failureCount = 0
	b.lastFailureUs = 0
	b.hasFailure = false
}

// Failures returns the current failure count.
func (b *CircuitBreaker) Failures() uint32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failureCount
}

// #endregion circuit-breaker
