package kernel

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"aura/internal/budget"
	"aura/internal/gate"
	"aura/internal/intent"
	"aura/internal/llm"
	"aura/internal/memory"
)

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

type stubClassifier struct {
	result intent.ParsedIntent
	panics bool
}

func (s *stubClassifier) Classify(ctx context.Context, text string) intent.ParsedIntent {
	if s.panics {
		panic("classifier exploded")
	}
	return s.result
}

type stubConsolidator struct {
	result   memory.Result
	err      error
	calls    int
	lastNode *memory.Node
}

func (s *stubConsolidator) StoreWithConsolidation(ctx context.Context, node *memory.Node) (memory.Result, error) {
	s.calls++
	s.lastNode = node
	return s.result, s.err
}

type stubSearcher struct {
	results []memory.SearchResult
	err     error
	touched []string
}

func (s *stubSearcher) Search(ctx context.Context, query string, maxResults int, minScore float64) ([]memory.SearchResult, error) {
	return s.results, s.err
}

func (s *stubSearcher) TouchAccess(id string) error {
	s.touched = append(s.touched, id)
	return nil
}

type stubProvider struct {
	resp      llm.Response
	err       error
	hasRemote bool
	lastHint  string
}

func (s *stubProvider) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	s.lastHint = req.ProviderHint
	return s.resp, s.err
}

func (s *stubProvider) HasRemote() bool { return s.hasRemote }

type fixture struct {
	clk      *fakeClock
	gate     *gate.Gate
	classify *stubClassifier
	cons     *stubConsolidator
	search   *stubSearcher
	router   *stubProvider
	orch     *Orchestrator
}

func newFixture(parsed intent.ParsedIntent) *fixture {
	f := &fixture{
		clk:      newFakeClock(),
		classify: &stubClassifier{result: parsed},
		cons:     &stubConsolidator{result: memory.Result{Action: memory.ActionStored, NodeID: "n1"}},
		search:   &stubSearcher{},
		router:   &stubProvider{hasRemote: true, resp: llm.Response{Text: "answer", Provider: "stub"}},
	}
	f.gate = gate.New(gate.Config{
		DebounceWindow:  300 * time.Millisecond,
		VoiceEchoWindow: 3 * time.Second,
		ProcessingTTL:   30 * time.Second,
		Now:             f.clk.Now,
	})
	f.orch = New(f.gate, f.classify, f.cons, f.search, f.router, budget.New(100, 10), DefaultConfig())
	return f
}

func TestProcessGreeting(t *testing.T) {
	f := newFixture(intent.ParsedIntent{Type: intent.TypeGreeting, Confidence: 0.95})

	out := f.orch.Process(context.Background(), "hello", gate.OriginText)
	if out != "Hey! How can I help?" {
		t.Errorf("out = %q", out)
	}
	if f.gate.Busy() {
		t.Error("gate should be released after the pipeline")
	}
}

func TestProcessEmptyInput(t *testing.T) {
	f := newFixture(intent.ParsedIntent{Type: intent.TypeQuery})
	if out := f.orch.Process(context.Background(), "   ", gate.OriginText); out != "" {
		t.Errorf("blank input should yield empty reply, got %q", out)
	}
}

func TestProcessDedupIdempotence(t *testing.T) {
	f := newFixture(intent.ParsedIntent{Type: intent.TypeGreeting})
	ctx := context.Background()

	first := f.orch.Process(ctx, "hello", gate.OriginText)
	if first == "" {
		t.Fatal("first submission should be processed")
	}

	// Same normalized text inside the debounce window: silently dropped.
	f.clk.Advance(100 * time.Millisecond)
	second := f.orch.Process(ctx, "  HELLO ", gate.OriginText)
	if second != "" {
		t.Errorf("duplicate should be silent, got %q", second)
	}
}

func TestProcessMemoryWrite(t *testing.T) {
	f := newFixture(intent.ParsedIntent{
		Type:     intent.TypeMemoryWrite,
		Entities: []string{"the door code is 4821"},
	})

	out := f.orch.Process(context.Background(), "remember that the door code is 4821", gate.OriginText)
	if out != "Got it, I'll remember that." {
		t.Errorf("out = %q", out)
	}
	if f.cons.calls != 1 {
		t.Fatalf("consolidator calls = %d, want 1", f.cons.calls)
	}
	if f.cons.lastNode.Content != "the door code is 4821" {
		t.Errorf("node content = %q", f.cons.lastNode.Content)
	}
	if len(f.cons.lastNode.Tags) != 1 || f.cons.lastNode.Tags[0] != "auto" {
		t.Errorf("node tags = %v", f.cons.lastNode.Tags)
	}
}

func TestProcessMemoryWriteOutcomeReplies(t *testing.T) {
	tests := []struct {
		action memory.Action
		want   string
	}{
		{memory.ActionStored, "Got it, I'll remember that."},
		{memory.ActionMerged, "Got it, I've updated what I knew."},
		{memory.ActionDeduplicated, "I already have that noted."},
	}
	for _, tt := range tests {
		f := newFixture(intent.ParsedIntent{Type: intent.TypeMemoryWrite})
		f.cons.result = memory.Result{Action: tt.action, NodeID: "n1"}
		out := f.orch.Process(context.Background(), "remember that i moved desks", gate.OriginText)
		if out != tt.want {
			t.Errorf("%s: out = %q, want %q", tt.action, out, tt.want)
		}
	}
}

func TestProcessMemoryRead(t *testing.T) {
	f := newFixture(intent.ParsedIntent{Type: intent.TypeMemoryRead})
	f.search.results = []memory.SearchResult{
		{Node: &memory.Node{ID: "a", Content: "User's name is Alex"}, Similarity: 0.9},
		{Node: &memory.Node{ID: "b", Content: "Alex prefers tea"}, Similarity: 0.7},
	}

	out := f.orch.Process(context.Background(), "what do you know about me", gate.OriginText)
	if !strings.Contains(out, "User's name is Alex") || !strings.Contains(out, "Alex prefers tea") {
		t.Errorf("out = %q", out)
	}
	if len(f.search.touched) != 2 {
		t.Errorf("touched = %v, want both hit ids", f.search.touched)
	}
}

func TestProcessMemoryReadEmpty(t *testing.T) {
	f := newFixture(intent.ParsedIntent{Type: intent.TypeMemoryRead})
	out := f.orch.Process(context.Background(), "what's my blood type", gate.OriginText)
	if out != "I don't have anything stored about that." {
		t.Errorf("out = %q", out)
	}
}

func TestProcessRoutedQuery(t *testing.T) {
	f := newFixture(intent.ParsedIntent{Type: intent.TypeQuery})

	out := f.orch.Process(context.Background(), "why is the sky blue", gate.OriginText)
	if out != "answer" {
		t.Errorf("out = %q", out)
	}
	if f.router.lastHint != "" {
		t.Errorf("hint = %q, want default routing", f.router.lastHint)
	}
}

func TestProcessRoutedPinsLocalWhenBudgetExhausted(t *testing.T) {
	f := newFixture(intent.ParsedIntent{Type: intent.TypeQuery})
	f.orch.limiter = budget.New(0, 0)

	out := f.orch.Process(context.Background(), "why is the sky blue", gate.OriginText)
	if out != "answer" {
		t.Errorf("out = %q", out)
	}
	if f.router.lastHint != "local" {
		t.Errorf("hint = %q, want local", f.router.lastHint)
	}
}

func TestProcessHandlerErrorStillReleasesGate(t *testing.T) {
	f := newFixture(intent.ParsedIntent{Type: intent.TypeMemoryWrite})
	f.cons.err = errors.New("disk full")

	out := f.orch.Process(context.Background(), "remember that thing", gate.OriginText)
	if !strings.HasPrefix(out, "ERROR:") {
		t.Errorf("out = %q, want ERROR prefix", out)
	}
	if f.gate.Busy() {
		t.Error("gate must be released after a handler error")
	}

	// Pipeline is usable again.
	f.clk.Advance(time.Second)
	f.cons.err = nil
	if out := f.orch.Process(context.Background(), "remember another thing", gate.OriginText); strings.HasPrefix(out, "ERROR") {
		t.Errorf("pipeline wedged after error: %q", out)
	}
}

func TestProcessPanicRecoveredAndGateReleased(t *testing.T) {
	f := newFixture(intent.ParsedIntent{})
	f.classify.panics = true

	out := f.orch.Process(context.Background(), "hello", gate.OriginText)
	if !strings.HasPrefix(out, "ERROR:") || !strings.Contains(out, "classifier exploded") {
		t.Errorf("out = %q", out)
	}
	if f.gate.Busy() {
		t.Error("gate must be released after a panic")
	}
}

func TestProcessRejectedWhileBusy(t *testing.T) {
	f := newFixture(intent.ParsedIntent{Type: intent.TypeQuery})

	// Hold the gate as if another pipeline were mid-flight.
	if a := f.gate.Admit("other request", gate.OriginText); !a.Admitted {
		t.Fatal("setup admission failed")
	}

	out := f.orch.Process(context.Background(), "why is the sky blue", gate.OriginText)
	if out != "" {
		t.Errorf("busy gate should silently reject, got %q", out)
	}
}
