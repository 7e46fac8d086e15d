package breaker

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"
)

// fakeClock is a manually advanced clock for deterministic breaker tests.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func testConfig(clk *fakeClock) Config {
	return Config{
		FailureThreshold:         3,
		CallTimeout:              time.Second,
		ResetTimeout:             60 * time.Second,
		ResetJitter:              10 * time.Second,
		HalfOpenMaxProbes:        1,
		HalfOpenSuccessThreshold: 2,
		Now:                      clk.Now,
		Rand:                     rand.New(rand.NewSource(42)),
	}
}

var errRemote = errors.New("remote failure")

func failingCall() (any, error) { return nil, errRemote }
func okCall() (any, error)      { return "ok", nil }

func tripBreaker(t *testing.T, b *Breaker, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if _, err := b.Call(context.Background(), failingCall); !errors.Is(err, errRemote) {
			t.Fatalf("call %d: expected remote error, got %v", i, err)
		}
	}
}

func TestBreakerTripsAfterThreshold(t *testing.T) {
	clk := newFakeClock()
	b := New("test", testConfig(clk))

	tripBreaker(t, b, 2)
	if b.State() != StateClosed {
		t.Fatalf("state = %v after 2 failures, want CLOSED", b.State())
	}

	tripBreaker(t, b, 1)
	if b.State() != StateOpen {
		t.Fatalf("state = %v after 3 failures, want OPEN", b.State())
	}

	// Rejected without invoking the wrapped function.
	invoked := false
	_, err := b.Call(context.Background(), func() (any, error) {
		invoked = true
		return nil, nil
	})
	if !errors.Is(err, ErrOpen) {
		t.Errorf("expected ErrOpen, got %v", err)
	}
	if invoked {
		t.Error("wrapped function invoked while OPEN")
	}
}

func TestBreakerNextAttemptTimeJittered(t *testing.T) {
	clk := newFakeClock()
	cfg := testConfig(clk)
	b := New("test", cfg)

	tripBreaker(t, b, 3)

	snap := b.Snapshot()
	wait := snap.NextAttemptTime.Sub(clk.Now())
	if wait < cfg.ResetTimeout || wait > cfg.ResetTimeout+cfg.ResetJitter {
		t.Errorf("next attempt in %v, want within [%v, %v]", wait, cfg.ResetTimeout, cfg.ResetTimeout+cfg.ResetJitter)
	}
	if snap.RetryAfter <= 0 {
		t.Error("Snapshot.RetryAfter should be positive while OPEN")
	}
}

func TestBreakerHalfOpenProbeAfterTimeout(t *testing.T) {
	clk := newFakeClock()
	b := New("test", testConfig(clk))

	tripBreaker(t, b, 3)

	// Before nextAttemptTime: still rejected.
	clk.Advance(30 * time.Second)
	if _, err := b.Call(context.Background(), okCall); !errors.Is(err, ErrOpen) {
		t.Fatalf("expected ErrOpen before next attempt time, got %v", err)
	}

	// At/after nextAttemptTime: probe is attempted.
	clk.Advance(41 * time.Second) // past ResetTimeout + max jitter
	result, err := b.Call(context.Background(), okCall)
	if err != nil {
		t.Fatalf("probe call failed: %v", err)
	}
	if result != "ok" {
		t.Errorf("probe result = %v, want ok", result)
	}
	if b.State() != StateHalfOpen {
		t.Errorf("state = %v after one probe success, want HALF_OPEN", b.State())
	}
}

func TestBreakerRecovery(t *testing.T) {
	clk := newFakeClock()
	b := New("test", testConfig(clk))

	tripBreaker(t, b, 3)
	clk.Advance(71 * time.Second)

	// Two consecutive probe successes close the breaker.
	for i := 0; i < 2; i++ {
		if _, err := b.Call(context.Background(), okCall); err != nil {
			t.Fatalf("probe %d failed: %v", i, err)
		}
	}

	if b.State() != StateClosed {
		t.Fatalf("state = %v after recovery, want CLOSED", b.State())
	}
	if snap := b.Snapshot(); snap.FailureCount != 0 {
		t.Errorf("failureCount = %d after recovery, want 0", snap.FailureCount)
	}
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	clk := newFakeClock()
	b := New("test", testConfig(clk))

	tripBreaker(t, b, 3)
	firstAttempt := b.Snapshot().NextAttemptTime

	clk.Advance(71 * time.Second)
	if _, err := b.Call(context.Background(), failingCall); !errors.Is(err, errRemote) {
		t.Fatalf("expected remote error from probe, got %v", err)
	}

	if b.State() != StateOpen {
		t.Fatalf("state = %v after failed probe, want OPEN", b.State())
	}
	if !b.Snapshot().NextAttemptTime.After(firstAttempt) {
		t.Error("nextAttemptTime should be freshly computed on reopen")
	}
}

func TestBreakerTimeoutCountsAsFailure(t *testing.T) {
	clk := newFakeClock()
	cfg := testConfig(clk)
	cfg.FailureThreshold = 1
	cfg.CallTimeout = 20 * time.Millisecond
	b := New("test", cfg)

	_, err := b.Call(context.Background(), func() (any, error) {
		time.Sleep(200 * time.Millisecond)
		return "late", nil
	})
	if err == nil {
		t.Fatal("expected timeout error")
	}

	if b.State() != StateOpen {
		t.Errorf("state = %v after timeout with threshold 1, want OPEN", b.State())
	}
}

func TestBreakerReset(t *testing.T) {
	clk := newFakeClock()
	b := New("test", testConfig(clk))

	tripBreaker(t, b, 3)
	b.Reset()

	if b.State() != StateClosed {
		t.Errorf("state = %v after Reset, want CLOSED", b.State())
	}
	if _, err := b.Call(context.Background(), okCall); err != nil {
		t.Errorf("call after Reset failed: %v", err)
	}
}
