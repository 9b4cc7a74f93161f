package breaker

import (
	"sync"
	"testing"
)

func TestAllowsBelowThreshold(t *testing.T) {
	b := New(DefaultConfig())

	for i := 0; i < 4; i++ {
		b.Trip(int64(i))
	}
	if !b.Allow(10) {
		t.Fatal("4 failures below threshold 5 must still allow")
	}
}

func TestDeniesAtThresholdWithinCooldown(t *testing.T) {
	b := New(DefaultConfig())

	for i := 0; i < 5; i++ {
		b.Trip(int64(i))
	}
	if b.Allow(1_000_000) {
		t.Fatal("5 failures within cooldown must deny")
	}
	if b.Failures() != 5 {
		t.Fatalf("expected 5 failures recorded, got %d", b.Failures())
	}
}

func TestAllowsAfterCooldownElapsed(t *testing.T) {
	cfg := DefaultConfig()
	b := New(cfg)

	lastTripUs := int64(500_000)
	for i := 0; i < 5; i++ {
		b.Trip(lastTripUs)
	}

	if b.Allow(lastTripUs + cfg.CooldownUs - 1) {
		t.Fatal("denied window ends only once cooldown elapses")
	}
	if !b.Allow(lastTripUs + cfg.CooldownUs) {
		t.Fatal("cooldown elapsed, expected full allowance")
	}
}

func TestAllowNeverMutatesState(t *testing.T) {
	b := New(DefaultConfig())
	for i := 0; i < 5; i++ {
		b.Trip(int64(i))
	}

	for i := 0; i < 10; i++ {
		b.Allow(1000)
	}
	if b.Failures() != 5 {
		t.Fatalf("Allow mutated failure count: %d", b.Failures())
	}
	if b.Allow(1000) {
		t.Fatal("still within cooldown after repeated Allow calls")
	}
}

func TestResetRestoresAllowance(t *testing.T) {
	b := New(DefaultConfig())
	for i := 0; i < 5; i++ {
		b.Trip(int64(i))
	}
	if b.Allow(1000) {
		t.Fatal("expected denial before reset")
	}

	b.Reset()
	if !b.Allow(1000) {
		t.Fatal("reset must immediately restore allowance")
	}
	if b.Failures() != 0 {
		t.Fatalf("expected zero failures after reset, got %d", b.Failures())
	}
}

func TestConcurrentTrips(t *testing.T) {
	b := New(Config{Threshold: 100, CooldownUs: 1_000_000})

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(n int64) {
			defer wg.Done()
			b.Trip(n)
		}(int64(i))
	}
	wg.Wait()

	if b.Failures() != 100 {
		t.Fatalf("expected 100 failures, got %d", b.Failures())
	}
}
