package agent

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/zenb-io/zenb/go-core/internal/belief"
)

// sleepyStrategy burns wall-clock time before answering but yields
// promptly when its context is cancelled.
type sleepyStrategy struct {
	delay time.Duration
}

func (s *sleepyStrategy) Eval(ctx context.Context, _ belief.SensorFeatures, _ belief.PhysioState, _ belief.Context) StrategyOutput {
	select {
	case <-ctx.Done():
	case <-time.After(s.delay):
	}
	return StrategyOutput{Confidence: 0.9}
}

// stubbornStrategy ignores cancellation and tracks whether two calls
// ever ran concurrently.
type stubbornStrategy struct {
	delay   time.Duration
	active  int32
	overlap int32
}

func (s *stubbornStrategy) Eval(context.Context, belief.SensorFeatures, belief.PhysioState, belief.Context) StrategyOutput {
	if atomic.AddInt32(&s.active, 1) > 1 {
		atomic.StoreInt32(&s.overlap, 1)
	}
	defer atomic.AddInt32(&s.active, -1)
	time.Sleep(s.delay)
	return StrategyOutput{Confidence: 0.9}
}

func TestEvaluateWithinQuota(t *testing.T) {
	c := NewContainer(NewHeuristicStrategy(), "v1.0.0", DefaultQuota())

	x := belief.SensorFeatures{Quality: 1.0}
	conf, err := c.Evaluate(context.Background(), x, belief.PhysioState{Confidence: 1.0}, belief.Context{})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if conf < 0 || conf > 1 {
		t.Fatalf("confidence %f outside [0, 1]", conf)
	}
}

func TestQuotaOverrunReturnsTypedError(t *testing.T) {
	c := NewContainer(&sleepyStrategy{delay: 100 * time.Millisecond}, "v1.0.0",
		ResourceQuota{MaxCPUMsPerTick: 5, MaxMemoryMB: 10})

	_, err := c.Evaluate(context.Background(), belief.SensorFeatures{}, belief.PhysioState{}, belief.Context{})
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}
}

func TestOverrunWorkerIsNeverReentered(t *testing.T) {
	s := &stubbornStrategy{delay: 80 * time.Millisecond}
	c := NewContainer(s, "v1.0.0", ResourceQuota{MaxCPUMsPerTick: 5, MaxMemoryMB: 10})
	ctx := context.Background()

	_, err := c.Evaluate(ctx, belief.SensorFeatures{}, belief.PhysioState{}, belief.Context{})
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}

	// The abandoned worker is still sleeping: re-entry must be denied
	// rather than run the strategy concurrently with it.
	_, err = c.Evaluate(ctx, belief.SensorFeatures{}, belief.PhysioState{}, belief.Context{})
	if !errors.Is(err, ErrStrategyBusy) {
		t.Fatalf("expected ErrStrategyBusy while worker is in flight, got %v", err)
	}

	// Once the stale worker has finished, evaluation is admitted again.
	time.Sleep(120 * time.Millisecond)
	_, err = c.Evaluate(ctx, belief.SensorFeatures{}, belief.PhysioState{}, belief.Context{})
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded after drain, got %v", err)
	}

	time.Sleep(120 * time.Millisecond)
	if atomic.LoadInt32(&s.overlap) != 0 {
		t.Fatal("two evaluations ran concurrently against the strategy")
	}
}

func TestCooperativeCancellationDrainsQuickly(t *testing.T) {
	c := NewContainer(&sleepyStrategy{delay: 10 * time.Second}, "v1.0.0",
		ResourceQuota{MaxCPUMsPerTick: 5, MaxMemoryMB: 10})
	ctx := context.Background()

	_, err := c.Evaluate(ctx, belief.SensorFeatures{}, belief.PhysioState{}, belief.Context{})
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}

	// The worker observes cancellation and exits, so the container is
	// usable again well before the nominal 10s sleep.
	deadline := time.Now().Add(2 * time.Second)
	for {
		_, err = c.Evaluate(ctx, belief.SensorFeatures{}, belief.PhysioState{}, belief.Context{})
		if !errors.Is(err, ErrStrategyBusy) {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("cancelled worker never drained")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded once drained, got %v", err)
	}
}

func TestLockReleasedAfterOverrun(t *testing.T) {
	c := NewContainer(&sleepyStrategy{delay: 100 * time.Millisecond}, "v1.0.0",
		ResourceQuota{MaxCPUMsPerTick: 5, MaxMemoryMB: 10})

	ctx := context.Background()
	c.Evaluate(ctx, belief.SensorFeatures{}, belief.PhysioState{}, belief.Context{})

	// A second call must acquire the lock and return a typed denial
	// rather than deadlock behind the first overrun.
	done := make(chan error, 1)
	go func() {
		_, err := c.Evaluate(ctx, belief.SensorFeatures{}, belief.PhysioState{}, belief.Context{})
		done <- err
	}()

	select {
	case err := <-done:
		if !errors.Is(err, ErrQuotaExceeded) && !errors.Is(err, ErrStrategyBusy) {
			t.Fatalf("expected quota or busy denial, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("second Evaluate blocked; lock not released after overrun")
	}
}

func TestCallerCancellationAborts(t *testing.T) {
	c := NewContainer(&sleepyStrategy{delay: 10 * time.Second}, "v1.0.0",
		ResourceQuota{MaxCPUMsPerTick: 60_000, MaxMemoryMB: 10})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := c.Evaluate(ctx, belief.SensorFeatures{}, belief.PhysioState{}, belief.Context{})
	if err == nil {
		t.Fatal("expected error after caller cancellation")
	}
	if time.Since(start) > time.Second {
		t.Fatal("cancellation did not abort the call promptly")
	}
}

func TestVersionImmutable(t *testing.T) {
	c := NewContainer(NewHeuristicStrategy(), "v2.3.1", DefaultQuota())
	if c.Version() != "v2.3.1" {
		t.Fatalf("expected v2.3.1, got %s", c.Version())
	}
	if c.Quota().MaxCPUMsPerTick != 5 {
		t.Fatalf("expected default quota, got %+v", c.Quota())
	}
}
