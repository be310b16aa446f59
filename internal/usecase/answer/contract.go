package answer

import (
	"context"

	"github.com/helix-labs/docqa/internal/domain"
)

// Retriever finds chunks relevant to a query.
type Retriever interface {
	Retrieve(ctx context.Context, userID, query string, k int) ([]domain.RetrievalResult, error)
}

// Generator produces completions from a language model.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	GenerateGrounded(ctx context.Context, contextText, query string) (string, error)
}
