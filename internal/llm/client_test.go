package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestGeminiComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, ":generateContent") {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if r.URL.Query().Get("key") != "test-key" {
			t.Errorf("missing API key in query")
		}

		var req geminiRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if len(req.Contents) != 1 || req.Contents[0].Parts[0].Text != "hello" {
			t.Errorf("unexpected contents: %+v", req.Contents)
		}
		if req.SystemInstruction == nil || req.SystemInstruction.Parts[0].Text != "be brief" {
			t.Errorf("system instruction not forwarded")
		}

		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]string{{"text": "hi there"}}}},
			},
		})
	}))
	defer srv.Close()

	c := NewGeminiClient(GeminiConfig{APIKey: "test-key", BaseURL: srv.URL, Model: "gemini-2.0-flash"})
	got, err := c.CompleteWithSystem(context.Background(), "be brief", "hello")
	if err != nil {
		t.Fatalf("CompleteWithSystem failed: %v", err)
	}
	if got != "hi there" {
		t.Errorf("got %q, want %q", got, "hi there")
	}
}

func TestGeminiAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"code": 429, "status": "RESOURCE_EXHAUSTED", "message": "quota exceeded"},
		})
	}))
	defer srv.Close()

	c := NewGeminiClient(GeminiConfig{APIKey: "test-key", BaseURL: srv.URL})
	_, err := c.Complete(context.Background(), "hello")
	if err == nil {
		t.Fatal("expected error for 429 response")
	}
	if !strings.Contains(err.Error(), "quota exceeded") {
		t.Errorf("error should surface the API message, got: %v", err)
	}
}

func TestGeminiMissingKey(t *testing.T) {
	c := NewGeminiClient(GeminiConfig{})
	if _, err := c.Complete(context.Background(), "hello"); err == nil {
		t.Fatal("expected error when API key is missing")
	}
}

func TestOllamaComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		var req ollamaGenerateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if req.Stream {
			t.Error("stream should be disabled")
		}
		if req.Model != "llama3.2" {
			t.Errorf("model = %q", req.Model)
		}
		json.NewEncoder(w).Encode(ollamaGenerateResponse{Response: "local answer", Done: true})
	}))
	defer srv.Close()

	c := NewOllamaClient(srv.URL, "llama3.2", 5*time.Second)
	got, err := c.Complete(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if got != "local answer" {
		t.Errorf("got %q, want %q", got, "local answer")
	}
}

func TestOllamaServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewOllamaClient(srv.URL, "missing", 5*time.Second)
	if _, err := c.Complete(context.Background(), "hello"); err == nil {
		t.Fatal("expected error for 404 response")
	}
}

// stubClient is a canned Client for router tests.
type stubClient struct {
	name string
	text string
	err  error
}

func (s *stubClient) Complete(ctx context.Context, prompt string) (string, error) {
	return s.text, s.err
}

func (s *stubClient) CompleteWithSystem(ctx context.Context, system, user string) (string, error) {
	return s.text, s.err
}

func (s *stubClient) Name() string { return s.name }

func TestRouterPrefersRemote(t *testing.T) {
	r := NewRouterWithClients(
		&stubClient{name: "remote", text: "from remote"},
		&stubClient{name: "local", text: "from local"},
		false,
	)
	resp, err := r.Complete(context.Background(), Request{Prompt: "hi"})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if resp.Provider != "remote" {
		t.Errorf("provider = %q, want remote", resp.Provider)
	}
}

func TestRouterFallsBackToLocal(t *testing.T) {
	r := NewRouterWithClients(
		&stubClient{name: "remote", err: errors.New("boom")},
		&stubClient{name: "local", text: "from local"},
		false,
	)
	resp, err := r.Complete(context.Background(), Request{Prompt: "hi"})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if resp.Provider != "local" || resp.Text != "from local" {
		t.Errorf("expected local fallback, got %+v", resp)
	}
}

func TestRouterForceLocal(t *testing.T) {
	r := NewRouterWithClients(
		&stubClient{name: "remote", text: "from remote"},
		&stubClient{name: "local", text: "from local"},
		true,
	)
	resp, err := r.Complete(context.Background(), Request{Prompt: "hi"})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if resp.Provider != "local" {
		t.Errorf("force-local should route to local, got %q", resp.Provider)
	}
	if r.HasRemote() {
		t.Error("HasRemote should report false under force-local")
	}
}

func TestRouterHint(t *testing.T) {
	r := NewRouterWithClients(
		&stubClient{name: "remote", text: "from remote"},
		&stubClient{name: "local", text: "from local"},
		false,
	)
	resp, err := r.Complete(context.Background(), Request{Prompt: "hi", ProviderHint: "local"})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if resp.Provider != "local" {
		t.Errorf("local hint should route to local, got %q", resp.Provider)
	}
}

func TestRouterLocalOnly(t *testing.T) {
	r := NewRouterWithClients(nil, &stubClient{name: "local", text: "from local"}, false)
	resp, err := r.Complete(context.Background(), Request{Prompt: "hi"})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if resp.Provider != "local" {
		t.Errorf("nil remote should route to local, got %q", resp.Provider)
	}
}
