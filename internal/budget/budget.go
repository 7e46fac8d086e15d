// Package budget tracks rolling call budgets for remote providers.
// Two independent counters (daily, per-minute) roll over on calendar
// boundaries; a request whose estimated cost would exceed either budget is
// refused before the call is attempted. Callers are expected to fall back
// to a free local computation instead of erroring.
package budget

import (
	"fmt"
	"sync"
	"time"

	"aura/internal/logging"
)

// Decision is the result of a budget check.
type Decision struct {
	Allowed bool
	Reason  string
}

// Usage is an observability snapshot of both counters.
type Usage struct {
	DailyUsed   int
	DailyLimit  int
	MinuteUsed  int
	MinuteLimit int
}

// Limiter tracks daily and per-minute provider call budgets.
// Process-scoped; counters reset on restart.
type Limiter struct {
	mu          sync.Mutex
	dailyLimit  int
	minuteLimit int
	dailyUsed   int
	minuteUsed  int
	day         time.Time // midnight of the current accounting day
	minute      time.Time // start of the current accounting minute
	now         func() time.Time
}

// New creates a limiter with the given limits.
func New(dailyLimit, perMinuteLimit int) *Limiter {
	return &Limiter{
		dailyLimit:  dailyLimit,
		minuteLimit: perMinuteLimit,
		now:         time.Now,
	}
}

// SetLimits retunes the budgets; used by config hot-reload. Counters are
// preserved so lowering a limit mid-window takes effect immediately.
func (l *Limiter) SetLimits(dailyLimit, perMinuteLimit int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.dailyLimit = dailyLimit
	l.minuteLimit = perMinuteLimit
	logging.Budget("limits retuned: daily=%d, per-minute=%d", dailyLimit, perMinuteLimit)
}

// CanProceed reports whether a call of the given estimated cost fits both
// budgets. Pure check: no side effects on the counters.
func (l *Limiter) CanProceed(estimatedCost int) Decision {
	if estimatedCost <= 0 {
		estimatedCost = 1
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.rollover()

	if l.dailyUsed+estimatedCost > l.dailyLimit {
		return Decision{
			Allowed: false,
			Reason:  fmt.Sprintf("daily budget exhausted (%d/%d)", l.dailyUsed, l.dailyLimit),
		}
	}
	if l.minuteUsed+estimatedCost > l.minuteLimit {
		return Decision{
			Allowed: false,
			Reason:  fmt.Sprintf("per-minute budget exhausted (%d/%d)", l.minuteUsed, l.minuteLimit),
		}
	}

	return Decision{Allowed: true}
}

// Record charges a completed call against both budgets. Only call this
// after a remote call was actually attempted, never speculatively.
// Counters are clamped at their limits.
func (l *Limiter) Record(cost int) {
	if cost <= 0 {
		cost = 1
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.rollover()

	l.dailyUsed += cost
	if l.dailyUsed > l.dailyLimit {
		l.dailyUsed = l.dailyLimit
	}
	l.minuteUsed += cost
	if l.minuteUsed > l.minuteLimit {
		l.minuteUsed = l.minuteLimit
	}

	logging.Get(logging.CategoryBudget).Debug("recorded cost %d: daily=%d/%d, minute=%d/%d",
		cost, l.dailyUsed, l.dailyLimit, l.minuteUsed, l.minuteLimit)
}

// Snapshot returns the current usage after lazy rollover.
func (l *Limiter) Snapshot() Usage {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rollover()

	return Usage{
		DailyUsed:   l.dailyUsed,
		DailyLimit:  l.dailyLimit,
		MinuteUsed:  l.minuteUsed,
		MinuteLimit: l.minuteLimit,
	}
}

// rollover resets counters whose calendar window has passed.
// Must be called with l.mu held.
func (l *Limiter) rollover() {
	now := l.now()

	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if !day.Equal(l.day) {
		l.day = day
		l.dailyUsed = 0
	}

	minute := now.Truncate(time.Minute)
	if !minute.Equal(l.minute) {
		l.minute = minute
		l.minuteUsed = 0
	}
}
