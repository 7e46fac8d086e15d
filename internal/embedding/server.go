package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// =============================================================================
// SIDECAR EMBEDDING SERVER ENGINE
// =============================================================================

// serverBatchSize is the maximum number of texts per request to the sidecar.
const serverBatchSize = 32

// ServerEngine generates embeddings via the local GPU sidecar server
// (sentence-transformers MiniLM, 384-dimensional, L2-normalized).
type ServerEngine struct {
	endpoint string
	client   *http.Client
}

// NewServerEngine creates a sidecar server engine.
func NewServerEngine(endpoint string) (*ServerEngine, error) {
	if endpoint == "" {
		endpoint = "http://localhost:5002"
	}

	return &ServerEngine{
		endpoint: endpoint,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

// Embed generates an embedding for a single text.
func (e *ServerEngine) Embed(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := e.post(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("embedding server returned no embeddings")
	}
	return embeddings[0], nil
}

// EmbedBatch generates embeddings for multiple texts, chunked to the
// server's batch size.
func (e *ServerEngine) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += serverBatchSize {
		end := start + serverBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		embeddings, err := e.post(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("failed to embed batch starting at %d: %w", start, err)
		}
		out = append(out, embeddings...)
	}

	return out, nil
}

func (e *ServerEngine) post(ctx context.Context, texts []string) ([][]float32, error) {
	req := serverEmbedRequest{Texts: texts, UseCache: true}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", e.endpoint+"/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("embedding server request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("embedding server returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var result serverEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if result.Error != "" {
		return nil, fmt.Errorf("embedding server error: %s", result.Error)
	}

	return result.Embeddings, nil
}

// HealthCheck verifies the sidecar is reachable.
func (e *ServerEngine) HealthCheck(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, "GET", e.endpoint+"/health", nil)
	if err != nil {
		return err
	}

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("embedding server unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("embedding server unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

// Dimensions returns the dimensionality of embeddings.
// The sidecar runs all-MiniLM-L6-v2: 384 dimensions.
func (e *ServerEngine) Dimensions() int {
	return 384
}

// Name returns the engine name.
func (e *ServerEngine) Name() string {
	return "server:minilm"
}

// =============================================================================
// SIDECAR API TYPES
// =============================================================================

type serverEmbedRequest struct {
	Texts    []string `json:"texts"`
	UseCache bool     `json:"use_cache"`
}

type serverEmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
	Dimension  int         `json:"dimension"`
	Count      int         `json:"count"`
	Error      string      `json:"error,omitempty"`
}
