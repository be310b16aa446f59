// Package embedding provides the tiered text vectorization strategy:
// a remote provider, a local model, and a deterministic hash fallback.
package embedding

import (
	"context"
	"crypto/md5" //nolint:gosec // content fingerprint, not a security boundary
	"encoding/hex"
	"strconv"
)

// HashDimensions is the fixed vector length of the hash fallback tier.
const HashDimensions = 384

// Hash is the deterministic fallback embedder. It is a pure function with no
// failure mode: identical text always yields a bit-identical vector, so the
// system can always produce some index-able representation.
type Hash struct{}

// NewHash creates the hash fallback embedder.
func NewHash() Hash { return Hash{} }

// Name implements Tier.
func (Hash) Name() string { return "hash" }

// Embed implements Tier. It never fails.
func (Hash) Embed(_ context.Context, text string) ([]float32, error) {
	return HashVector(text), nil
}

// HashVector maps the MD5 hex digest of text to a vector: each hex byte pair
// becomes a float in [0,1], zero-padded to HashDimensions.
func HashVector(text string) []float32 {
	sum := md5.Sum([]byte(text)) //nolint:gosec
	digest := hex.EncodeToString(sum[:])

	vec := make([]float32, HashDimensions)
	for i := 0; i < HashDimensions && i*2+1 < len(digest); i++ {
		b, err := strconv.ParseUint(digest[i*2:i*2+2], 16, 16)
		if err != nil {
			continue
		}
		vec[i] = float32(b) / 255.0
	}
	return vec
}
