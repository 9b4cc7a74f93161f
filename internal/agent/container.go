// Package agent wraps a pluggable decision strategy in a versioned,
// resource-quota-enforced container with exclusive access.
package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/zenb-io/zenb/go-core/internal/belief"
)

// #region strategy

// StrategyOutput is what a strategy hands back for one evaluation.
type StrategyOutput struct {
	Confidence float32
}

// Strategy is the pluggable decision capability. Implementations may
// keep mutable internal state; the container guarantees no two
// evaluations run concurrently against it. Eval must observe ctx and
// return promptly once it is cancelled.
type Strategy interface {
	Eval(ctx context.Context, x belief.SensorFeatures, phys belief.PhysioState, bctx belief.Context) StrategyOutput
}

// #endregion strategy

// #region quota

// ResourceQuota declares the bounds on a single Evaluate call. The
// CPU budget is enforced by the container as a wall-clock deadline;
// the memory ceiling is a deployment-level bound (cgroup or
// equivalent) declared here for audit.
type ResourceQuota struct {
	MaxCPUMsPerTick int64
	MaxMemoryMB     int
}

// DefaultQuota returns 5ms of compute and 10MB per tick.
func DefaultQuota() ResourceQuota {
	return ResourceQuota{
		MaxCPUMsPerTick: 5,
		MaxMemoryMB:     10,
	}
}

// #endregion quota

// #region container

// ErrQuotaExceeded reports a strategy call that overran its compute
// budget. Callers feed it to the circuit breaker rather than crashing
// the pipeline.
var ErrQuotaExceeded = errors.New("strategy quota exceeded")

// ErrStrategyBusy reports an evaluation denied because the worker from
// a previous overrun is still running. Admitting a second evaluation
// would run the strategy concurrently with the abandoned call.
var ErrStrategyBusy = errors.New("strategy still running past quota")

// Container owns a strategy instance behind an exclusive lock and tags
// it with an immutable version (build/commit id) so every decision in
// the event log can be attributed to the strategy that produced it.
// Swapping strategies means deploying a new container, never mutating
// a live one.
type Container struct {
	mu       sync.Mutex
	strategy Strategy
	version  string
	quota    ResourceQuota

	// inflight is the done channel of an overrun worker that has not
	// yet finished; non-nil means the strategy must not be re-entered.
	inflight chan StrategyOutput
}

// NewContainer wraps a strategy under the given version tag and quota.
func NewContainer(s Strategy, version string, quota ResourceQuota) *Container {
	return &Container{strategy: s, version: version, quota: quota}
}

// Version returns the immutable strategy version tag.
func (c *Container) Version() string { return c.version }

// Quota returns the declared resource bounds.
func (c *Container) Quota() ResourceQuota { return c.quota }

// Evaluate runs the strategy under exclusive access and the container
// deadline. The lock is released on every exit path. On overrun the
// call cancels the worker's context and returns ErrQuotaExceeded, but
// the worker is remembered: until it actually finishes, further
// evaluations fail fast with ErrStrategyBusy instead of running the
// strategy concurrently with the abandoned call.
func (c *Container) Evaluate(ctx context.Context, x belief.SensorFeatures, phys belief.PhysioState, bctx belief.Context) (float32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.inflight != nil {
		select {
		case <-c.inflight:
			c.inflight = nil
		default:
			return 0, fmt.Errorf("strategy %s: %w", c.version, ErrStrategyBusy)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(c.quota.MaxCPUMsPerTick)*time.Millisecond)
	defer cancel()

	done := make(chan StrategyOutput, 1)
	go func() {
		done <- c.strategy.Eval(ctx, x, phys, bctx)
	}()

	select {
	case out := <-done:
		return out.Confidence, nil
	case <-ctx.Done():
		c.inflight = done
		return 0, fmt.Errorf("strategy %s after %dms: %w", c.version, c.quota.MaxCPUMsPerTick, ErrQuotaExceeded)
	}
}

// #endregion container
