package retrieve

import (
	"context"

	"github.com/helix-labs/docqa/internal/domain"
)

// Index queries the user's chunk collection.
type Index interface {
	Query(ctx context.Context, userID string, vector []float32, k int) ([]domain.RetrievalResult, error)
}

// Embedder vectorizes a single query through the tier chain.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
