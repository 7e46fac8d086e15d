// Package breaker implements a circuit breaker for a single unreliable
// remote dependency. It tracks consecutive failures and opens the circuit
// when a threshold is reached, letting a limited number of half-open probes
// test recovery before traffic fully resumes.
package breaker

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"aura/internal/logging"
)

// State is the circuit breaker state.
type State int

const (
	// StateClosed - calls pass through normally
	StateClosed State = iota
	// StateOpen - calls are rejected until the reset timeout elapses
	StateOpen
	// StateHalfOpen - a limited number of probe calls test recovery
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// Errors returned without invoking the wrapped function.
var (
	ErrOpen          = errors.New("circuit breaker is open")
	ErrTooManyProbes = errors.New("too many half-open probe calls")
)

// Config holds circuit breaker tunables.
type Config struct {
	// FailureThreshold is the consecutive-failure count that trips the breaker.
	FailureThreshold int

	// CallTimeout is the hard per-call timeout; a timeout counts as a failure.
	CallTimeout time.Duration

	// ResetTimeout is the base wait before an OPEN breaker permits a probe.
	ResetTimeout time.Duration

	// ResetJitter is the maximum random addition to ResetTimeout on every
	// transition into OPEN. Spreads out retry storms across callers.
	ResetJitter time.Duration

	// HalfOpenMaxProbes limits concurrent-ish probe calls in HALF_OPEN.
	HalfOpenMaxProbes int

	// HalfOpenSuccessThreshold is the consecutive probe successes needed
	// to close the breaker again.
	HalfOpenSuccessThreshold int

	// OnStateChange is an optional transition callback.
	OnStateChange func(from, to State)

	// Now is the clock; defaults to time.Now. Injectable for tests.
	Now func() time.Time

	// Rand is the jitter source; defaults to a time-seeded source.
	// Injectable so tests can use a fixed seed.
	Rand *rand.Rand
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		FailureThreshold:         5,
		CallTimeout:              30 * time.Second,
		ResetTimeout:             60 * time.Second,
		ResetJitter:              10 * time.Second,
		HalfOpenMaxProbes:        1,
		HalfOpenSuccessThreshold: 2,
	}
}

// Snapshot is an observability view of the breaker.
type Snapshot struct {
	State           State
	FailureCount    int
	NextAttemptTime time.Time
	RetryAfter      time.Duration
}

// Breaker wraps a single remote call with failure isolation.
// It never retries internally; the half-open probe is the only time-gated
// retry mechanism.
type Breaker struct {
	cfg  Config
	name string

	mu                sync.Mutex
	rng               *rand.Rand
	state             State
	failureCount      int
	lastFailureTime   time.Time
	nextAttemptTime   time.Time
	halfOpenProbes    int
	halfOpenSuccesses int
}

// New creates a circuit breaker. name labels log lines only.
func New(name string, cfg Config) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 30 * time.Second
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 60 * time.Second
	}
	if cfg.HalfOpenMaxProbes <= 0 {
		cfg.HalfOpenMaxProbes = 1
	}
	if cfg.HalfOpenSuccessThreshold <= 0 {
		cfg.HalfOpenSuccessThreshold = 1
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	rng := cfg.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	return &Breaker{
		cfg:   cfg,
		name:  name,
		rng:   rng,
		state: StateClosed,
	}
}

type callResult struct {
	result any
	err    error
}

// Call executes fn under the breaker with the configured hard timeout.
// A timeout counts as a failure. Returns ErrOpen (wrapped with the
// remaining wait) when the breaker rejects the call outright.
func (b *Breaker) Call(ctx context.Context, fn func() (any, error)) (any, error) {
	if err := b.beforeCall(); err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, b.cfg.CallTimeout)
	defer cancel()

	resultCh := make(chan callResult, 1)
	go func() {
		result, err := fn()
		resultCh <- callResult{result: result, err: err}
	}()

	select {
	case <-callCtx.Done():
		b.afterCall(false)
		return nil, fmt.Errorf("call timed out: %w", callCtx.Err())

	case res := <-resultCh:
		b.afterCall(res.err == nil)
		if res.err != nil {
			return nil, res.err
		}
		return res.result, nil
	}
}

// beforeCall checks whether a call may proceed and accounts for probes.
func (b *Breaker) beforeCall() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return nil

	case StateOpen:
		// nextAttemptTime is the sole authority for when a probe is
		// permitted; it is computed once per transition into OPEN.
		now := b.cfg.Now()
		if !now.Before(b.nextAttemptTime) {
			b.setState(StateHalfOpen)
			b.halfOpenProbes = 1
			b.halfOpenSuccesses = 0
			logging.Breaker("%s: entering HALF_OPEN, probing", b.name)
			return nil
		}
		return fmt.Errorf("%w: retry in %s", ErrOpen, b.nextAttemptTime.Sub(now).Round(time.Millisecond))

	case StateHalfOpen:
		if b.halfOpenProbes >= b.cfg.HalfOpenMaxProbes {
			return ErrTooManyProbes
		}
		b.halfOpenProbes++
		return nil

	default:
		return fmt.Errorf("unknown breaker state: %v", b.state)
	}
}

// afterCall records the outcome of a permitted call.
func (b *Breaker) afterCall(success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if success {
		b.onSuccess()
	} else {
		b.onFailure()
	}
}

// onSuccess must be called with b.mu held.
func (b *Breaker) onSuccess() {
	switch b.state {
	case StateClosed:
		b.failureCount = 0

	case StateHalfOpen:
		b.halfOpenSuccesses++
		if b.halfOpenSuccesses >= b.cfg.HalfOpenSuccessThreshold {
			logging.Breaker("%s: recovered, closing after %d probe successes", b.name, b.halfOpenSuccesses)
			b.setState(StateClosed)
			b.failureCount = 0
			b.halfOpenProbes = 0
			b.halfOpenSuccesses = 0
		} else {
			// More successful probes needed; allow the next one.
			b.halfOpenProbes = 0
		}

	case StateOpen:
		logging.Get(logging.CategoryBreaker).Warn("%s: success recorded while OPEN", b.name)
	}
}

// onFailure must be called with b.mu held.
func (b *Breaker) onFailure() {
	b.failureCount++
	b.lastFailureTime = b.cfg.Now()

	switch b.state {
	case StateClosed:
		if b.failureCount >= b.cfg.FailureThreshold {
			logging.Get(logging.CategoryBreaker).Warn("%s: opening after %d consecutive failures", b.name, b.failureCount)
			b.trip()
		}

	case StateHalfOpen:
		logging.Get(logging.CategoryBreaker).Warn("%s: probe failed, reopening", b.name)
		b.halfOpenProbes = 0
		b.halfOpenSuccesses = 0
		b.trip()

	case StateOpen:
		logging.Get(logging.CategoryBreaker).Warn("%s: failure recorded while OPEN", b.name)
	}
}

// trip transitions into OPEN and computes the jittered next attempt time.
// Must be called with b.mu held.
func (b *Breaker) trip() {
	wait := b.cfg.ResetTimeout
	if b.cfg.ResetJitter > 0 {
		wait += time.Duration(b.rng.Int63n(int64(b.cfg.ResetJitter)))
	}
	b.nextAttemptTime = b.cfg.Now().Add(wait)
	b.setState(StateOpen)
}

// setState updates state and fires the transition callback.
// Must be called with b.mu held.
func (b *Breaker) setState(newState State) {
	oldState := b.state
	if oldState == newState {
		return
	}
	b.state = newState

	if b.cfg.OnStateChange != nil {
		go b.cfg.OnStateChange(oldState, newState)
	}
}

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Snapshot returns an observability view of the breaker.
func (b *Breaker) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	snap := Snapshot{
		State:           b.state,
		FailureCount:    b.failureCount,
		NextAttemptTime: b.nextAttemptTime,
	}
	if b.state == StateOpen {
		if wait := b.nextAttemptTime.Sub(b.cfg.Now()); wait > 0 {
			snap.RetryAfter = wait
		}
	}
	return snap
}

// Reset manually closes the breaker and clears all counters.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	logging.Breaker("%s: manual reset from %s", b.name, b.state)
	b.setState(StateClosed)
	b.failureCount = 0
	b.halfOpenProbes = 0
	b.halfOpenSuccesses = 0
}
