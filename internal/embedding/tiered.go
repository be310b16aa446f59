package embedding

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/helix-labs/docqa/internal/domain"
	"github.com/helix-labs/docqa/internal/metrics"
)

// Tier is one embedding strategy in the fallback order.
type Tier interface {
	Name() string
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Tiered tries each tier in order for a whole batch. Within the primary tier
// a quota-limited item is substituted with its hash vector instead of
// aborting the batch; any other failure demotes the entire batch to the next
// tier. The final hash tier cannot fail, so EmbedBatch never returns an
// error for non-empty input.
type Tiered struct {
	tiers  []Tier
	logger *zap.Logger
}

// NewTiered builds the tier chain. A hash tier is always appended as the
// terminal strategy if the caller did not include one.
func NewTiered(tiers []Tier, logger *zap.Logger) *Tiered {
	hasHash := false
	for _, t := range tiers {
		if _, ok := t.(Hash); ok {
			hasHash = true
		}
	}
	if !hasHash {
		tiers = append(tiers, NewHash())
	}
	return &Tiered{tiers: tiers, logger: logger}
}

// EmbedBatch implements domain.BatchEmbedder. Vectors come back one per
// input, in order. Degraded is set when any vector was not produced by the
// primary tier.
func (t *Tiered) EmbedBatch(ctx context.Context, texts []string) (domain.BatchEmbedding, error) {
	if len(texts) == 0 {
		return domain.BatchEmbedding{}, fmt.Errorf("%w: no texts to embed", domain.ErrValidation)
	}

	for i, tier := range t.tiers {
		vectors, ok, degraded := t.tryTier(ctx, tier, i == 0, texts)
		if !ok {
			if i+1 < len(t.tiers) {
				metrics.EmbeddingTierFallbackTotal.WithLabelValues(tier.Name(), t.tiers[i+1].Name()).Inc()
			}
			continue
		}
		return domain.BatchEmbedding{
			Vectors:  vectors,
			Degraded: degraded || i > 0,
		}, nil
	}

	// Unreachable: the hash tier never fails.
	return domain.BatchEmbedding{}, fmt.Errorf("all embedding tiers failed: %w", domain.ErrProviderFailure)
}

// Embed implements domain.Embedder for single-item callers (query path).
func (t *Tiered) Embed(ctx context.Context, text string) ([]float32, error) {
	batch, err := t.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return batch.Vectors[0], nil
}

// tryTier runs one tier over the batch. For the primary tier a quota error
// on a single item substitutes that item's hash vector and continues; any
// other error abandons the tier.
func (t *Tiered) tryTier(ctx context.Context, tier Tier, primary bool, texts []string) (
	vectors [][]float32, ok bool, degraded bool,
) {
	vectors = make([][]float32, len(texts))

	for i, text := range texts {
		vec, err := tier.Embed(ctx, text)
		if err == nil {
			vectors[i] = vec
			continue
		}

		if primary && domain.Classify(err) == domain.ProviderQuota {
			t.logger.Warn("Embedding quota exceeded, substituting hash vector",
				zap.String("tier", tier.Name()),
				zap.Int("item", i),
				zap.Error(err),
			)
			metrics.EmbeddingTierFallbackTotal.WithLabelValues(tier.Name(), "hash").Inc()
			vectors[i] = HashVector(text)
			degraded = true
			continue
		}

		t.logger.Warn("Embedding tier failed, demoting batch",
			zap.String("tier", tier.Name()),
			zap.Int("item", i),
			zap.Error(err),
		)
		return nil, false, false
	}

	return vectors, true, degraded
}
