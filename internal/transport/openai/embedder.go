// Package openai holds provider adapters for OpenAI-compatible APIs: the
// remote embedding tier and the chat-based answer generator.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/helix-labs/docqa/internal/domain"
	"github.com/helix-labs/docqa/internal/metrics"
)

// TierRemote is the metric and log label for the remote embedding tier.
const TierRemote = "remote"

// Embedder is the remote embedding tier backed by an OpenAI-compatible API.
type Embedder struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	dimensions int
	logger     *zap.Logger
}

// EmbedderConfig holds the remote embedding provider settings.
type EmbedderConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
	Logger     *zap.Logger
}

// NewEmbedder creates a remote embedding provider.
func NewEmbedder(cfg *EmbedderConfig) *Embedder {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Embedder{
		client:     openai.NewClientWithConfig(clientCfg),
		model:      openai.EmbeddingModel(cfg.Model),
		dimensions: cfg.Dimensions,
		logger:     cfg.Logger,
	}
}

// Name identifies the tier in logs and metrics.
func (e *Embedder) Name() string { return TierRemote }

// Embed returns the vector for a single text with transport-level metrics.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	req := openai.EmbeddingRequest{
		Input:          []string{text},
		Model:          e.model,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
	}
	if e.dimensions > 0 {
		req.Dimensions = e.dimensions
	}

	start := time.Now()
	resp, err := e.client.CreateEmbeddings(ctx, req)
	duration := time.Since(start)

	if err != nil {
		metrics.EmbeddingRequestsTotal.WithLabelValues(TierRemote, string(e.model), "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues(TierRemote, string(e.model), "api_error").Inc()
		return nil, parseAPIError("embedding", err)
	}

	if len(resp.Data) == 0 {
		metrics.EmbeddingRequestsTotal.WithLabelValues(TierRemote, string(e.model), "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues(TierRemote, string(e.model), "empty_response").Inc()
		return nil, fmt.Errorf("empty embedding response: %w", domain.ErrProviderFailure)
	}

	metrics.EmbeddingRequestsTotal.WithLabelValues(TierRemote, string(e.model), "success").Inc()
	metrics.EmbeddingRequestDuration.WithLabelValues(TierRemote, string(e.model)).Observe(duration.Seconds())

	return resp.Data[0].Embedding, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (e *Embedder) HealthCheck(ctx context.Context) error {
	if _, err := e.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// parseAPIError extracts a human-readable error from the API response and
// pre-classifies it by HTTP status so downstream fallback logic does not
// depend on provider message wording.
func parseAPIError(op string, err error) error {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		detail := extractDetail(reqErr.Body)
		if detail == "" {
			detail = string(reqErr.Body)
		}
		return &domain.ProviderError{
			Kind: kindFromStatus(reqErr.HTTPStatusCode),
			Err:  fmt.Errorf("%s API error %d: %s", op, reqErr.HTTPStatusCode, detail),
		}
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &domain.ProviderError{
			Kind: kindFromStatus(apiErr.HTTPStatusCode),
			Err:  fmt.Errorf("%s API error %d: %s", op, apiErr.HTTPStatusCode, apiErr.Message),
		}
	}

	return &domain.ProviderError{
		Kind: domain.Classify(err),
		Err:  fmt.Errorf("%s request failed: %w", op, err),
	}
}

func kindFromStatus(status int) domain.ProviderKind {
	switch {
	case status == 401 || status == 403:
		return domain.ProviderAuth
	case status == 429:
		return domain.ProviderQuota
	case status == 404 || status == 408 || status >= 500:
		return domain.ProviderTransient
	default:
		return domain.ProviderUnknown
	}
}

// extractDetail extracts the "detail" field from a JSON error body.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}
