// Package retrieve finds the chunks most relevant to a query.
package retrieve

import (
	"context"
	"fmt"
	"strings"

	"github.com/helix-labs/docqa/internal/domain"
)

const defaultTopK = 3

// Service embeds a query and searches the user's collection.
type Service struct {
	index    Index
	embedder Embedder
	topK     int
}

// New creates a retrieval service. topK is the default result count when the
// caller does not request one.
func New(index Index, embedder Embedder, topK int) *Service {
	if topK <= 0 {
		topK = defaultTopK
	}
	return &Service{index: index, embedder: embedder, topK: topK}
}

// Retrieve returns up to k chunks nearest to the query, closest first.
// A user without a collection fails with ErrCollectionNotFound.
func (s *Service) Retrieve(ctx context.Context, userID, query string, k int) ([]domain.RetrievalResult, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("user id is required: %w", domain.ErrValidation)
	}
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query is required: %w", domain.ErrValidation)
	}
	if k <= 0 {
		k = s.topK
	}

	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	results, err := s.index.Query(ctx, userID, vector, k)
	if err != nil {
		return nil, fmt.Errorf("query collection: %w", err)
	}
	return results, nil
}
