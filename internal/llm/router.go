package llm

import (
	"context"
	"fmt"
	"time"

	"aura/internal/config"
	"aura/internal/logging"
)

// =============================================================================
// PROVIDER ROUTER
// =============================================================================

// Request is a routed completion request.
type Request struct {
	Prompt string
	System string

	// ProviderHint forces a specific provider for this request: "remote",
	// "local", or "" for the default policy.
	ProviderHint string
}

// Response carries the completion and which provider produced it.
type Response struct {
	Text     string
	Provider string
}

// Router selects between the remote provider and the local fallback.
// Policy: force-local wins, then the per-request hint, then remote with
// local fallback on failure.
type Router struct {
	remote     Client
	local      Client
	forceLocal bool
}

// NewRouter builds a router from config. The remote client is nil when no
// API key is configured; the router then degrades to local-only.
func NewRouter(cfg config.LLMConfig) *Router {
	timeout, err := time.ParseDuration(cfg.Timeout)
	if err != nil || timeout <= 0 {
		timeout = 30 * time.Second
	}
	minInterval, err := time.ParseDuration(cfg.MinRequestInterval)
	if err != nil {
		minInterval = 500 * time.Millisecond
	}

	r := &Router{
		local:      NewOllamaClient(cfg.LocalEndpoint, cfg.LocalModel, timeout),
		forceLocal: cfg.ForceLocal,
	}
	if cfg.APIKey != "" {
		r.remote = NewGeminiClient(GeminiConfig{
			APIKey:             cfg.APIKey,
			BaseURL:            cfg.BaseURL,
			Model:              cfg.Model,
			Timeout:            timeout,
			MinRequestInterval: minInterval,
		})
	}
	return r
}

// NewRouterWithClients builds a router from explicit clients.
func NewRouterWithClients(remote, local Client, forceLocal bool) *Router {
	return &Router{remote: remote, local: local, forceLocal: forceLocal}
}

// HasRemote reports whether a remote provider is configured.
func (r *Router) HasRemote() bool {
	return r.remote != nil && !r.forceLocal
}

// Complete routes the request to a provider and returns its completion.
func (r *Router) Complete(ctx context.Context, req Request) (Response, error) {
	if r.forceLocal || req.ProviderHint == "local" {
		return r.callLocal(ctx, req)
	}
	if req.ProviderHint == "remote" {
		if r.remote == nil {
			return Response{}, fmt.Errorf("remote provider not configured")
		}
		return r.callRemote(ctx, req)
	}

	if r.remote == nil {
		return r.callLocal(ctx, req)
	}

	resp, err := r.callRemote(ctx, req)
	if err == nil {
		return resp, nil
	}
	logging.API("remote provider failed, falling back to local: %v", err)
	return r.callLocal(ctx, req)
}

func (r *Router) callRemote(ctx context.Context, req Request) (Response, error) {
	text, err := r.remote.CompleteWithSystem(ctx, req.System, req.Prompt)
	if err != nil {
		return Response{}, err
	}
	return Response{Text: text, Provider: r.remote.Name()}, nil
}

func (r *Router) callLocal(ctx context.Context, req Request) (Response, error) {
	if r.local == nil {
		return Response{}, fmt.Errorf("local provider not configured")
	}
	text, err := r.local.CompleteWithSystem(ctx, req.System, req.Prompt)
	if err != nil {
		return Response{}, fmt.Errorf("local provider failed: %w", err)
	}
	return Response{Text: text, Provider: r.local.Name()}, nil
}
