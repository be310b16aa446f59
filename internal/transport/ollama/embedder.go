// Package ollama is the local embedding tier backed by an Ollama server.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/helix-labs/docqa/internal/domain"
	"github.com/helix-labs/docqa/internal/metrics"
)

// TierLocal is the metric and log label for the local embedding tier.
const TierLocal = "local"

// Default configuration values.
const (
	DefaultBaseURL = "http://localhost:11434"
	DefaultModel   = "nomic-embed-text"
	DefaultTimeout = 30 * time.Second
)

// Config holds the local embedding provider settings.
type Config struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Embedder generates embeddings via the Ollama HTTP API.
type Embedder struct {
	client  *http.Client
	baseURL string
	model   string
}

type embedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embedResponse struct {
	Embedding []float64 `json:"embedding"`
}

// NewEmbedder creates a local embedding provider.
func NewEmbedder(cfg Config) *Embedder {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Embedder{
		client:  &http.Client{Timeout: cfg.Timeout},
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
	}
}

// Name identifies the tier in logs and metrics.
func (e *Embedder) Name() string { return TierLocal }

// Embed generates a vector embedding for the given text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	jsonBody, err := json.Marshal(embedRequest{Model: e.model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, e.baseURL+"/api/embeddings", bytes.NewReader(jsonBody),
	)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := e.client.Do(req)
	if err != nil {
		metrics.EmbeddingRequestsTotal.WithLabelValues(TierLocal, e.model, "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues(TierLocal, e.model, "network").Inc()
		return nil, &domain.ProviderError{
			Kind: domain.ProviderTransient,
			Err:  fmt.Errorf("ollama request: %w", err),
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.EmbeddingRequestsTotal.WithLabelValues(TierLocal, e.model, "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues(TierLocal, e.model, "api_error").Inc()
		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			body = []byte("failed to read response")
		}
		srvErr := fmt.Errorf("ollama error (status %d): %s", resp.StatusCode, string(body))
		return nil, &domain.ProviderError{Kind: domain.Classify(srvErr), Err: srvErr}
	}

	var embedResp embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&embedResp); err != nil {
		metrics.EmbeddingRequestsTotal.WithLabelValues(TierLocal, e.model, "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues(TierLocal, e.model, "bad_response").Inc()
		return nil, fmt.Errorf("decode response: %w", err)
	}

	metrics.EmbeddingRequestsTotal.WithLabelValues(TierLocal, e.model, "success").Inc()
	metrics.EmbeddingRequestDuration.WithLabelValues(TierLocal, e.model).Observe(time.Since(start).Seconds())

	embedding := make([]float32, len(embedResp.Embedding))
	for i, v := range embedResp.Embedding {
		embedding[i] = float32(v)
	}
	return embedding, nil
}

// Ping checks connectivity via the /api/tags endpoint without running inference.
func (e *Embedder) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"/api/tags", http.NoBody)
	if err != nil {
		return fmt.Errorf("create ping request: %w", err)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("ollama ping: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama ping: status %d", resp.StatusCode)
	}
	return nil
}
