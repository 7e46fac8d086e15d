// Package kernel orchestrates one request through the full pipeline:
// admission, classification, routing to a capability handler, and guaranteed
// gate release.
package kernel

import (
	"context"
	"fmt"
	"strings"

	"aura/internal/budget"
	"aura/internal/gate"
	"aura/internal/intent"
	"aura/internal/llm"
	"aura/internal/logging"
	"aura/internal/memory"
)

// Stage labels the pipeline phase, for logging and debugging only.
type Stage string

const (
	StageValidating  Stage = "VALIDATING"
	StageGating      Stage = "GATING"
	StageClassifying Stage = "CLASSIFYING"
	StageRouting     Stage = "ROUTING"
	StageExecuting   Stage = "EXECUTING"
	StageFinalizing  Stage = "FINALIZING"
)

// Narrow views of the collaborators, so tests can stub each one.

type classifier interface {
	Classify(ctx context.Context, text string) intent.ParsedIntent
}

type consolidator interface {
	StoreWithConsolidation(ctx context.Context, node *memory.Node) (memory.Result, error)
}

type searcher interface {
	Search(ctx context.Context, query string, maxResults int, minScore float64) ([]memory.SearchResult, error)
	TouchAccess(id string) error
}

type provider interface {
	Complete(ctx context.Context, req llm.Request) (llm.Response, error)
	HasRemote() bool
}

// Config holds orchestrator tunables.
type Config struct {
	// SearchLimit caps memory-read results.
	SearchLimit int

	// SearchMinScore filters weak memory-read hits.
	SearchMinScore float64
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{SearchLimit: 5, SearchMinScore: 0.4}
}

// Orchestrator runs the request state machine. One pipeline executes at a
// time; the gate rejects concurrent submissions rather than queueing them.
type Orchestrator struct {
	gate       *gate.Gate
	classifier classifier
	memory     consolidator
	search     searcher
	router     provider
	limiter    *budget.Limiter
	cfg        Config
}

// New wires an orchestrator.
func New(g *gate.Gate, c classifier, m consolidator, s searcher, r provider, l *budget.Limiter, cfg Config) *Orchestrator {
	if cfg.SearchLimit <= 0 {
		cfg.SearchLimit = 5
	}
	return &Orchestrator{
		gate:       g,
		classifier: c,
		memory:     m,
		search:     s,
		router:     r,
		limiter:    l,
		cfg:        cfg,
	}
}

// Process runs one utterance through the pipeline and returns the reply.
// Gate rejections return the empty string: they are silent by contract.
// Handler failures surface as an "ERROR: ..." reply, never as a panic, and
// the gate is released on every exit path.
func (o *Orchestrator) Process(ctx context.Context, text string, origin gate.Origin) (out string) {
	// VALIDATING
	if strings.TrimSpace(text) == "" {
		return ""
	}

	// GATING
	admission := o.gate.Admit(text, origin)
	if !admission.Admitted {
		logging.Kernel("request rejected at gate: %s", admission.Reason)
		return ""
	}

	// FINALIZING runs unconditionally: the gate must never stay held.
	defer func() {
		if r := recover(); r != nil {
			logging.Get(logging.CategoryKernel).Error("handler panicked: %v", r)
			out = fmt.Sprintf("ERROR: %v", r)
		}
		o.gate.Release()
		logging.KernelDebug("pipeline finalized")
	}()

	// CLASSIFYING
	parsed := o.classifier.Classify(ctx, text)
	logging.Kernel("classified %q as %s (confidence=%.2f, source=%s)",
		text, parsed.Type, parsed.Confidence, parsed.Source)

	// ROUTING + EXECUTING
	reply, err := o.execute(ctx, text, parsed)
	if err != nil {
		logging.Get(logging.CategoryKernel).Error("handler failed: %v", err)
		return fmt.Sprintf("ERROR: %v", err)
	}
	return reply
}

// execute dispatches to the capability handler for the intent kind.
func (o *Orchestrator) execute(ctx context.Context, text string, parsed intent.ParsedIntent) (string, error) {
	switch parsed.Type {
	case intent.TypeGreeting:
		return o.handleGreeting(), nil
	case intent.TypeMemoryWrite:
		return o.handleMemoryWrite(ctx, text, parsed)
	case intent.TypeMemoryRead:
		return o.handleMemoryRead(ctx, text, parsed)
	case intent.TypeCommand, intent.TypeQuery:
		return o.handleRouted(ctx, text, parsed)
	default:
		return "", fmt.Errorf("no handler for intent %q", parsed.Type)
	}
}
