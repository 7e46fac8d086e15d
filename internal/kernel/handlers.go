package kernel

import (
	"context"
	"fmt"
	"strings"

	"aura/internal/intent"
	"aura/internal/llm"
	"aura/internal/logging"
	"aura/internal/memory"
)

// =============================================================================
// CAPABILITY HANDLERS
// =============================================================================

func (o *Orchestrator) handleGreeting() string {
	return "Hey! How can I help?"
}

// handleMemoryWrite stores the utterance through the consolidation engine.
func (o *Orchestrator) handleMemoryWrite(ctx context.Context, text string, parsed intent.ParsedIntent) (string, error) {
	content := text
	if len(parsed.Entities) > 0 && strings.TrimSpace(parsed.Entities[0]) != "" {
		content = parsed.Entities[0]
	}

	node := memory.NewNode(content, inferNodeType(content), []string{"auto"})
	result, err := o.memory.StoreWithConsolidation(ctx, node)
	if err != nil {
		return "", fmt.Errorf("failed to store memory: %w", err)
	}

	switch result.Action {
	case memory.ActionDeduplicated:
		return "I already have that noted.", nil
	case memory.ActionMerged:
		return "Got it, I've updated what I knew.", nil
	default:
		return "Got it, I'll remember that.", nil
	}
}

// handleMemoryRead answers from the store via similarity search.
func (o *Orchestrator) handleMemoryRead(ctx context.Context, text string, parsed intent.ParsedIntent) (string, error) {
	query := text
	if len(parsed.Entities) > 0 && strings.TrimSpace(parsed.Entities[0]) != "" {
		query = parsed.Entities[0]
	}

	results, err := o.search.Search(ctx, query, o.cfg.SearchLimit, o.cfg.SearchMinScore)
	if err != nil {
		return "", fmt.Errorf("memory search failed: %w", err)
	}
	if len(results) == 0 {
		return "I don't have anything stored about that.", nil
	}

	var b strings.Builder
	b.WriteString("Here's what I remember:\n")
	for _, r := range results {
		fmt.Fprintf(&b, "- %s\n", r.Node.Content)
		if err := o.search.TouchAccess(r.Node.ID); err != nil {
			logging.Get(logging.CategoryKernel).Warn("failed to record access on %s: %v", r.Node.ID, err)
		}
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

const assistantSystemPrompt = `You are a concise personal assistant.
Answer directly. If asked to perform a device action you cannot perform,
say what you would do instead of pretending it happened.`

// handleRouted sends commands and queries to a model provider. When the
// call budget is exhausted the request is pinned to the free local
// provider; the router itself falls back to local if the remote fails.
func (o *Orchestrator) handleRouted(ctx context.Context, text string, parsed intent.ParsedIntent) (string, error) {
	hint := ""
	if o.router.HasRemote() {
		if d := o.limiter.CanProceed(1); !d.Allowed {
			logging.Kernel("routing pinned to local provider: %s", d.Reason)
			hint = "local"
		} else {
			o.limiter.Record(1)
		}
	}

	resp, err := o.router.Complete(ctx, llm.Request{
		Prompt:       text,
		System:       assistantSystemPrompt,
		ProviderHint: hint,
	})
	if err != nil {
		return "", fmt.Errorf("no provider could answer: %w", err)
	}

	logging.KernelDebug("routed %s to %s", parsed.Type, resp.Provider)
	return strings.TrimSpace(resp.Text), nil
}

// inferNodeType guesses the node type from the content being remembered.
func inferNodeType(content string) memory.NodeType {
	lower := strings.ToLower(content)
	switch {
	case strings.Contains(lower, "my name is") || strings.Contains(lower, "name is"):
		return memory.NodeIdentity
	case strings.Contains(lower, "i prefer") || strings.Contains(lower, "i like") ||
		strings.Contains(lower, "favorite"):
		return memory.NodePreference
	default:
		return memory.NodeFact
	}
}
