package ingest

import (
	"context"

	"github.com/helix-labs/docqa/internal/domain"
)

// Index defines the storage contract for chunk collections.
type Index interface {
	CreateCollection(ctx context.Context, userID string) error
	Add(ctx context.Context, userID string, chunks []domain.Chunk) error
	DeleteByContentID(ctx context.Context, userID, contentID string) error
	Count(ctx context.Context, userID string) (int, error)
	Stats(ctx context.Context, userID string) (domain.CollectionStats, error)
}

// Chunker splits text into overlapping pieces.
type Chunker interface {
	Chunk(text string) []string
}

// Embedder vectorizes a batch of texts through the tier chain.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) (domain.BatchEmbedding, error)
}
