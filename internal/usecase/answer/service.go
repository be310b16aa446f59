// Package answer orchestrates the query pipeline: retrieve, assemble context,
// generate, and degrade through fallbacks instead of failing the request.
package answer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/helix-labs/docqa/internal/domain"
	"github.com/helix-labs/docqa/internal/logger"
	"github.com/helix-labs/docqa/internal/metrics"
)

// User-facing messages for terminal provider failures. The underlying error
// is logged, never surfaced.
const (
	msgAuthFailure      = "I'm sorry, but there's an issue with the AI service configuration. Please check the API key."
	msgQuotaExceeded    = "I'm having trouble processing your request right now. Please try again shortly."
	msgTransientFailure = "I'm experiencing a temporary service issue. Please try again in a few moments."
	msgUnknownFailure   = "I encountered an unexpected error. Please try again."
)

// Service answers user queries against their ingested documents.
type Service struct {
	retriever    Retriever
	generator    Generator
	topK         int
	maxContext   int
	maxAttempts  int
	retryBackoff time.Duration
}

// Config holds the orchestration knobs.
type Config struct {
	TopK             int
	MaxContextLength int
	MaxAttempts      int
	RetryBackoff     time.Duration
}

// New creates an answer service.
func New(retriever Retriever, generator Generator, cfg Config) *Service {
	if cfg.TopK <= 0 {
		cfg.TopK = 3
	}
	if cfg.MaxContextLength <= 0 {
		cfg.MaxContextLength = 2000
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 500 * time.Millisecond
	}
	return &Service{
		retriever:    retriever,
		generator:    generator,
		topK:         cfg.TopK,
		maxContext:   cfg.MaxContextLength,
		maxAttempts:  cfg.MaxAttempts,
		retryBackoff: cfg.RetryBackoff,
	}
}

// Answer runs the full pipeline. It always returns an answer: when documents
// can't serve the query the response degrades to a general completion, and
// when the provider is down it degrades further to a fixed message tagged
// with the error source.
func (s *Service) Answer(ctx context.Context, userID, query string) (domain.Answer, error) {
	if strings.TrimSpace(userID) == "" {
		return domain.Answer{}, fmt.Errorf("user id is required: %w", domain.ErrValidation)
	}
	if strings.TrimSpace(query) == "" {
		return domain.Answer{}, fmt.Errorf("query is required: %w", domain.ErrValidation)
	}

	log := logger.FromContext(ctx).With(zap.String("user_id", userID))

	results, err := s.retriever.Retrieve(ctx, userID, query, s.topK)
	if err != nil {
		// A user with no documents, or an index hiccup, still deserves an
		// answer; fall through to the general path.
		log.Info("retrieval unavailable, answering without documents", zap.Error(err))
		return s.answerGeneral(ctx, log, query)
	}
	if len(results) == 0 {
		return s.answerGeneral(ctx, log, query)
	}

	contextText, sources := AssembleContext(results, s.maxContext)
	if contextText == "" {
		return s.answerGeneral(ctx, log, query)
	}

	text, err := s.generateWithRetry(ctx, log, "grounded", func() (string, error) {
		return s.generator.GenerateGrounded(ctx, contextText, query)
	})
	if err != nil {
		log.Warn("grounded generation failed, falling back to general", zap.Error(err))
		return s.answerGeneral(ctx, log, query)
	}

	metrics.AnswersTotal.WithLabelValues(string(domain.SourceDocuments)).Inc()
	return domain.Answer{Text: text, Source: domain.SourceDocuments, Sources: sources}, nil
}

// answerGeneral produces an ungrounded completion, or a fixed message for a
// terminal provider failure.
func (s *Service) answerGeneral(ctx context.Context, log *zap.Logger, query string) (domain.Answer, error) {
	text, err := s.generateWithRetry(ctx, log, "general", func() (string, error) {
		return s.generator.Generate(ctx, query)
	})
	if err != nil {
		kind := domain.Classify(err)
		log.Error("generation failed",
			zap.String("kind", kind.String()),
			zap.Error(err),
		)
		metrics.AnswersTotal.WithLabelValues(string(domain.SourceError)).Inc()
		return domain.Answer{Text: messageForKind(kind), Source: domain.SourceError}, nil
	}

	metrics.AnswersTotal.WithLabelValues(string(domain.SourceGeneral)).Inc()
	return domain.Answer{Text: text, Source: domain.SourceGeneral}, nil
}

// generateWithRetry retries only transient failures, with a fixed backoff
// between attempts. Auth and quota failures are terminal immediately.
func (s *Service) generateWithRetry(
	ctx context.Context, log *zap.Logger, mode string, generate func() (string, error),
) (string, error) {
	var lastErr error

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		text, err := generate()
		if err == nil {
			return text, nil
		}
		lastErr = err

		if domain.Classify(err) != domain.ProviderTransient || attempt == s.maxAttempts {
			return "", err
		}

		metrics.GenerationRetriesTotal.WithLabelValues(mode).Inc()
		log.Warn("transient generation failure, retrying",
			zap.String("mode", mode),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(s.retryBackoff):
		}
	}

	return "", lastErr
}

func messageForKind(kind domain.ProviderKind) string {
	switch kind {
	case domain.ProviderAuth:
		return msgAuthFailure
	case domain.ProviderQuota:
		return msgQuotaExceeded
	case domain.ProviderTransient:
		return msgTransientFailure
	default:
		return msgUnknownFailure
	}
}
