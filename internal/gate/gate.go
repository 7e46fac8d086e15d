// Package gate enforces at-most-one-in-flight pipeline execution and
// suppresses duplicate or near-duplicate request submissions.
// All state is process-scoped and resets on restart.
package gate

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"aura/internal/logging"
)

// Origin tags where a request came from.
type Origin string

const (
	OriginText  Origin = "text"
	OriginVoice Origin = "voice"
)

// Admission is the structured result of an Admit call.
// Rejections are silent: no error, just a reason for logging.
type Admission struct {
	Admitted bool
	Reason   string
}

// Config holds gate tunables.
type Config struct {
	// DebounceWindow is the minimum time between accepted identical
	// submissions. Fingerprints live for twice this window.
	DebounceWindow time.Duration

	// VoiceEchoWindow suppresses repeated voice-origin commands
	// (acoustic echo, duplicate wake-word triggers).
	VoiceEchoWindow time.Duration

	// ProcessingTTL is the failsafe expiry of the processing flag: even if
	// Release is never called (crash mid-pipeline), admissions resume
	// after this long.
	ProcessingTTL time.Duration

	// Now is the clock; defaults to time.Now. Injectable for tests.
	Now func() time.Time
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		DebounceWindow:  300 * time.Millisecond,
		VoiceEchoWindow: 3 * time.Second,
		ProcessingTTL:   30 * time.Second,
	}
}

// Gate is the request admission gate.
type Gate struct {
	cfg Config

	mu              sync.Mutex
	inflight        map[string]time.Time // fingerprint -> expiry
	lastAdmitted    map[string]time.Time // normalized text -> admit time
	voiceSeen       map[string]time.Time // normalized text -> last voice admit
	processing      bool
	processingSince time.Time
}

// New creates a gate.
func New(cfg Config) *Gate {
	if cfg.DebounceWindow <= 0 {
		cfg.DebounceWindow = 300 * time.Millisecond
	}
	if cfg.VoiceEchoWindow <= 0 {
		cfg.VoiceEchoWindow = 3 * time.Second
	}
	if cfg.ProcessingTTL <= 0 {
		cfg.ProcessingTTL = 30 * time.Second
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Gate{
		cfg:          cfg,
		inflight:     make(map[string]time.Time),
		lastAdmitted: make(map[string]time.Time),
		voiceSeen:    make(map[string]time.Time),
	}
}

// Normalize canonicalizes input text for dedup: trimmed, lower-cased,
// inner whitespace collapsed.
func Normalize(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

// Admit decides whether a submission may start a pipeline execution.
// On admit the global processing flag is set; it stays set until Release
// (or the ProcessingTTL failsafe). Rejections never error.
func (g *Gate) Admit(text string, origin Origin) Admission {
	norm := Normalize(text)
	if norm == "" {
		return Admission{Reason: "empty input"}
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.cfg.Now()
	g.prune(now)

	if g.processing {
		return Admission{Reason: "pipeline busy"}
	}

	if last, ok := g.lastAdmitted[norm]; ok && now.Sub(last) < g.cfg.DebounceWindow {
		logging.GateDebug("debounced duplicate: %q", norm)
		return Admission{Reason: "duplicate within debounce window"}
	}

	fp := fingerprint(norm, now, g.cfg.DebounceWindow)
	if expiry, ok := g.inflight[fp]; ok && now.Before(expiry) {
		logging.GateDebug("fingerprint already in flight: %q", fp)
		return Admission{Reason: "identical request in flight"}
	}

	if origin == OriginVoice {
		if seen, ok := g.voiceSeen[norm]; ok && now.Sub(seen) < g.cfg.VoiceEchoWindow {
			logging.GateDebug("voice echo suppressed: %q", norm)
			return Admission{Reason: "voice echo suppressed"}
		}
		g.voiceSeen[norm] = now
	}

	g.inflight[fp] = now.Add(2 * g.cfg.DebounceWindow)
	g.lastAdmitted[norm] = now
	g.processing = true
	g.processingSince = now

	// Scheduled removal backs up the lazy pruning so the maps stay small
	// even when the gate goes idle.
	time.AfterFunc(2*g.cfg.DebounceWindow, func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		g.prune(g.cfg.Now())
	})

	logging.GateDebug("admitted %q (origin=%s)", norm, origin)
	return Admission{Admitted: true}
}

// Release clears the processing flag. The orchestrator must call this from
// every exit path, success or failure.
func (g *Gate) Release() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.processing = false
}

// Busy reports whether a pipeline is currently executing.
func (g *Gate) Busy() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prune(g.cfg.Now())
	return g.processing
}

// fingerprint derives the in-flight set key from the normalized text and
// the submission time bucket.
func fingerprint(norm string, now time.Time, window time.Duration) string {
	bucket := now.UnixMilli() / window.Milliseconds()
	return norm + "#" + strconv.FormatInt(bucket, 10)
}

// prune drops expired fingerprints, stale debounce records, old voice
// entries, and applies the processing-flag failsafe.
// Must be called with g.mu held.
func (g *Gate) prune(now time.Time) {
	for fp, expiry := range g.inflight {
		if !now.Before(expiry) {
			delete(g.inflight, fp)
		}
	}
	for norm, admitted := range g.lastAdmitted {
		if now.Sub(admitted) >= 2*g.cfg.DebounceWindow {
			delete(g.lastAdmitted, norm)
		}
	}
	for norm, seen := range g.voiceSeen {
		if now.Sub(seen) >= g.cfg.VoiceEchoWindow {
			delete(g.voiceSeen, norm)
		}
	}
	if g.processing && now.Sub(g.processingSince) >= g.cfg.ProcessingTTL {
		logging.Get(logging.CategoryGate).Warn("processing flag expired after %v without release", g.cfg.ProcessingTTL)
		g.processing = false
	}
}
