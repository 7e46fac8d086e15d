package intent

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"aura/internal/breaker"
	"aura/internal/budget"
	"aura/internal/llm"
)

type stubRouter struct {
	hasRemote bool
	text      string
	err       error
	calls     int
}

func (s *stubRouter) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	s.calls++
	if s.err != nil {
		return llm.Response{}, s.err
	}
	return llm.Response{Text: s.text, Provider: "stub"}, nil
}

func (s *stubRouter) HasRemote() bool { return s.hasRemote }

func testClassifier(router Router) *Classifier {
	brk := breaker.New("test", breaker.Config{
		FailureThreshold: 1,
		CallTimeout:      5 * time.Second,
		ResetTimeout:     time.Minute,
	})
	return NewClassifier(NewCache(100, 5*time.Minute), budget.New(100, 10), brk, router)
}

func TestClassifyHeuristicShortCircuit(t *testing.T) {
	router := &stubRouter{hasRemote: true}
	c := testClassifier(router)

	got := c.Classify(context.Background(), "hello")
	if got.Type != TypeGreeting {
		t.Errorf("Type = %s, want GREETING", got.Type)
	}
	if router.calls != 0 {
		t.Errorf("confident heuristic result should not reach the router, calls = %d", router.calls)
	}
}

func TestClassifyRemoteThenCache(t *testing.T) {
	router := &stubRouter{
		hasRemote: true,
		text:      `{"type": "QUERY", "confidence": 0.92, "complexity": 0.3, "entities": ["sky"], "reasoning": "general knowledge question"}`,
	}
	c := testClassifier(router)

	got := c.Classify(context.Background(), "why is the sky blue")
	if got.Type != TypeQuery || got.Source != "remote" {
		t.Errorf("got type=%s source=%s, want QUERY/remote", got.Type, got.Source)
	}
	if got.Confidence != 0.92 {
		t.Errorf("Confidence = %v, want 0.92", got.Confidence)
	}
	if router.calls != 1 {
		t.Fatalf("calls = %d, want 1", router.calls)
	}

	again := c.Classify(context.Background(), "why is the sky blue")
	if again.Source != "cache" {
		t.Errorf("second classification source = %s, want cache", again.Source)
	}
	if router.calls != 1 {
		t.Errorf("cached classification should not call the router, calls = %d", router.calls)
	}
}

func TestClassifyRemoteMalformedFallsBack(t *testing.T) {
	router := &stubRouter{hasRemote: true, text: "I think this is probably a question?"}
	c := testClassifier(router)

	got := c.Classify(context.Background(), "why is the sky blue")
	if got.Type != TypeQuery {
		t.Errorf("Type = %s, want QUERY from heuristic fallback", got.Type)
	}
	if got.Source != "heuristic:fallback" {
		t.Errorf("Source = %s, want heuristic:fallback", got.Source)
	}

	// Fallbacks are cached too, so the failing provider is not re-hit.
	c.Classify(context.Background(), "why is the sky blue")
	if router.calls != 1 {
		t.Errorf("calls = %d, want 1", router.calls)
	}
}

func TestClassifyInvalidShapeFallsBack(t *testing.T) {
	router := &stubRouter{
		hasRemote: true,
		text:      `{"type": "QUERY", "confidence": 1.7, "complexity": 0.3, "entities": [], "reasoning": "x"}`,
	}
	c := testClassifier(router)

	got := c.Classify(context.Background(), "why is the sky blue")
	if got.Source != "heuristic:fallback" {
		t.Errorf("out-of-range confidence should be rejected, source = %s", got.Source)
	}
}

func TestClassifyBudgetExhausted(t *testing.T) {
	router := &stubRouter{hasRemote: true}
	brk := breaker.New("test", breaker.DefaultConfig())
	c := NewClassifier(NewCache(100, 5*time.Minute), budget.New(0, 0), brk, router)

	got := c.Classify(context.Background(), "why is the sky blue")
	if got.Source != "heuristic:rate-limited" {
		t.Errorf("Source = %s, want heuristic:rate-limited", got.Source)
	}
	if !strings.Contains(got.Reasoning, "budget exhausted") {
		t.Errorf("reasoning should carry the budget reason, got %q", got.Reasoning)
	}
	if router.calls != 0 {
		t.Errorf("exhausted budget must not call the router, calls = %d", router.calls)
	}
}

func TestClassifyLocalOnly(t *testing.T) {
	router := &stubRouter{
		hasRemote: false,
		text:      "```json\n{\"type\": \"command\", \"confidence\": 0.8, \"complexity\": 0.2, \"entities\": [\"lights\"], \"reasoning\": \"device action\"}\n```",
	}
	c := testClassifier(router)

	got := c.Classify(context.Background(), "could you maybe do the thing with the lights")
	if got.Type != TypeCommand || got.Source != "local-model" {
		t.Errorf("got type=%s source=%s, want COMMAND/local-model", got.Type, got.Source)
	}
}

func TestClassifyLocalOnlyUnparseable(t *testing.T) {
	router := &stubRouter{hasRemote: false, text: "no json here"}
	c := testClassifier(router)

	got := c.Classify(context.Background(), "why is the sky blue")
	if got.Type != TypeQuery || got.Source != "heuristic" {
		t.Errorf("got type=%s source=%s, want QUERY/heuristic", got.Type, got.Source)
	}
}

func TestClassifyBreakerOpenFallsBack(t *testing.T) {
	router := &stubRouter{hasRemote: true, err: errors.New("provider down")}
	c := testClassifier(router) // failure threshold 1

	first := c.Classify(context.Background(), "why is the sky blue")
	if first.Source != "heuristic:fallback" {
		t.Fatalf("first source = %s, want heuristic:fallback", first.Source)
	}
	if router.calls != 1 {
		t.Fatalf("calls = %d, want 1", router.calls)
	}

	// Breaker is now OPEN: a different utterance degrades without touching
	// the provider at all.
	second := c.Classify(context.Background(), "how deep is the ocean")
	if second.Source != "heuristic:fallback" {
		t.Errorf("second source = %s, want heuristic:fallback", second.Source)
	}
	if router.calls != 1 {
		t.Errorf("open breaker must not invoke the router, calls = %d", router.calls)
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`{"a": 1}`, `{"a": 1}`},
		{"prose before {\"a\": {\"b\": 2}} prose after", `{"a": {"b": 2}}`},
		{"```json\n{\"a\": \"brace } in string\"}\n```", `{"a": "brace } in string"}`},
		{"no json", ""},
		{"{unterminated", ""},
	}
	for _, tt := range tests {
		if got := extractJSON(tt.in); got != tt.want {
			t.Errorf("extractJSON(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
