package domain

import "context"

// Embedder vectorizes a single text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// BatchEmbedder vectorizes a batch of texts, one vector per input in order.
type BatchEmbedder interface {
	EmbedBatch(ctx context.Context, texts []string) (BatchEmbedding, error)
}

// BatchEmbedding carries the vectors for one batch. Degraded is set when any
// vector was produced by a lower tier than the primary one, so callers can
// surface reduced retrieval quality instead of hiding it.
type BatchEmbedding struct {
	Vectors  [][]float32
	Degraded bool
}
