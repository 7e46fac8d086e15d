package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"aura/internal/breaker"
	"aura/internal/budget"
	"aura/internal/llm"
	"aura/internal/logging"
)

// =============================================================================
// CLASSIFIER COMPOSITION
// =============================================================================

// Router is the slice of the provider router the classifier needs.
type Router interface {
	Complete(ctx context.Context, req llm.Request) (llm.Response, error)
	HasRemote() bool
}

// Classifier composes the cache, the heuristic pass, the call budget, and
// the breaker-guarded remote model into one classification pipeline.
type Classifier struct {
	cache   *Cache
	limiter *budget.Limiter
	breaker *breaker.Breaker
	router  Router

	// highConfidence short-circuits any heuristic result; cheapConfidence
	// short-circuits the cheap intent kinds (greetings, memory ops) that a
	// remote model rarely improves on.
	highConfidence  float64
	cheapConfidence float64
}

// NewClassifier wires the classification pipeline.
func NewClassifier(cache *Cache, limiter *budget.Limiter, brk *breaker.Breaker, router Router) *Classifier {
	return &Classifier{
		cache:           cache,
		limiter:         limiter,
		breaker:         brk,
		router:          router,
		highConfidence:  0.8,
		cheapConfidence: 0.6,
	}
}

const classifySystemPrompt = `You are an intent classifier for a personal assistant.
Classify the user utterance into exactly one of:
MEMORY_WRITE (user wants something remembered),
MEMORY_READ (user asks about stored information),
COMMAND (user wants an action performed),
QUERY (general question),
GREETING (salutation).

Respond with ONLY a JSON object, no prose:
{"type": "...", "confidence": 0.0-1.0, "complexity": 0.0-1.0, "entities": ["..."], "reasoning": "one sentence"}`

// Classify resolves text to a ParsedIntent. It never returns an error:
// every failure mode degrades to the local heuristic result. The final
// result is cached, heuristic fallbacks included, so repeated remote
// failures do not repeatedly hit the provider.
func (c *Classifier) Classify(ctx context.Context, text string) ParsedIntent {
	if cached, ok := c.cache.Get(text); ok {
		logging.IntentDebug("cache hit: %q -> %s", text, cached.Type)
		cached.Source = "cache"
		return cached
	}

	result := c.classify(ctx, text)
	c.cache.Set(text, result)
	return result
}

func (c *Classifier) classify(ctx context.Context, text string) ParsedIntent {
	h := Heuristic(text)
	if h.Confidence >= c.highConfidence || (isCheapKind(h.Type) && h.Confidence >= c.cheapConfidence) {
		logging.IntentDebug("heuristic short-circuit: %q -> %s (%.2f)", text, h.Type, h.Confidence)
		return h
	}

	// No remote credential (or forced local): try a structured
	// classification against the local model, keyword fallback on failure.
	if !c.router.HasRemote() {
		resp, err := c.router.Complete(ctx, llm.Request{
			Prompt:       text,
			System:       classifySystemPrompt,
			ProviderHint: "local",
		})
		if err != nil {
			logging.Intent("local model classification failed, using heuristic: %v", err)
			return h
		}
		parsed, err := parseModelResponse(resp.Text)
		if err != nil {
			logging.Intent("local model returned unparseable classification: %v", err)
			return h
		}
		parsed.Source = "local-model"
		return parsed
	}

	if d := c.limiter.CanProceed(1); !d.Allowed {
		logging.Intent("remote classification skipped: %s", d.Reason)
		h.Reasoning = h.Reasoning + " (remote skipped: " + d.Reason + ")"
		h.Source = "heuristic:rate-limited"
		return h
	}

	raw, err := c.breaker.Call(ctx, func() (any, error) {
		c.limiter.Record(1)
		return c.router.Complete(ctx, llm.Request{
			Prompt:       text,
			System:       classifySystemPrompt,
			ProviderHint: "remote",
		})
	})
	if err != nil {
		logging.Intent("remote classification failed, using heuristic: %v", err)
		h.Source = "heuristic:fallback"
		return h
	}

	resp := raw.(llm.Response)
	parsed, err := parseModelResponse(resp.Text)
	if err != nil {
		logging.Intent("remote classification unparseable, using heuristic: %v", err)
		h.Source = "heuristic:fallback"
		return h
	}
	parsed.Source = "remote"
	logging.IntentDebug("remote classified %q -> %s (%.2f)", text, parsed.Type, parsed.Confidence)
	return parsed
}

// isCheapKind reports whether a kind is simple enough that a moderately
// confident heuristic beats paying for a remote call.
func isCheapKind(t Type) bool {
	return t == TypeGreeting || t == TypeMemoryWrite || t == TypeMemoryRead
}

// modelIntent is the wire shape a model is prompted to emit.
type modelIntent struct {
	Type       string   `json:"type"`
	Confidence float64  `json:"confidence"`
	Complexity float64  `json:"complexity"`
	Entities   []string `json:"entities"`
	Reasoning  string   `json:"reasoning"`
}

// parseModelResponse extracts and validates the JSON classification from
// raw model output, which may be wrapped in prose or markdown fences.
func parseModelResponse(raw string) (ParsedIntent, error) {
	blob := extractJSON(raw)
	if blob == "" {
		return ParsedIntent{}, fmt.Errorf("no JSON object in model output")
	}

	var wire modelIntent
	if err := json.Unmarshal([]byte(blob), &wire); err != nil {
		return ParsedIntent{}, fmt.Errorf("failed to parse classification: %w", err)
	}

	t, err := ParseType(wire.Type)
	if err != nil {
		return ParsedIntent{}, err
	}

	parsed := ParsedIntent{
		Type:       t,
		Confidence: wire.Confidence,
		Complexity: wire.Complexity,
		Entities:   wire.Entities,
		Reasoning:  wire.Reasoning,
	}
	if err := parsed.Validate(); err != nil {
		return ParsedIntent{}, err
	}
	return parsed, nil
}

// extractJSON returns the first balanced top-level JSON object in s.
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch ch {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return s[start : i+1]
				}
			}
		}
	}
	return ""
}
