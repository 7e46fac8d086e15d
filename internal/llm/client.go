// Package llm provides HTTP clients for the remote and local LLM providers
// plus the provider router used by the orchestration kernel.
// Clients only expose the call contract; prompt construction lives with the
// callers.
package llm

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Client defines the interface for LLM providers.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
	CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	Name() string
}

// newPacer builds a limiter enforcing a minimum interval between outbound
// requests to one provider. Returns nil (no pacing) for zero intervals.
func newPacer(minInterval time.Duration) *rate.Limiter {
	if minInterval <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Every(minInterval), 1)
}

// waitPacer blocks until the pacer permits a request.
func waitPacer(ctx context.Context, p *rate.Limiter) error {
	if p == nil {
		return nil
	}
	return p.Wait(ctx)
}
