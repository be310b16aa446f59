// Package memory is an in-process vector index using brute-force cosine
// distance, partitioned into per-user collections.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/helix-labs/docqa/internal/domain"
)

// Index holds all collections. Safe for concurrent use; collections are
// addressed by user id and never cross-written by requests for other users.
type Index struct {
	mu          sync.RWMutex
	collections map[string]*collection
}

// collection keeps chunks in insertion order, which also defines the stable
// tie-break for equal distances.
type collection struct {
	chunks []domain.Chunk
}

// New creates an empty index.
func New() *Index {
	return &Index{collections: make(map[string]*collection)}
}

// CreateCollection creates the user's collection if absent. Idempotent, so a
// race between two first-ingestion requests for the same user is harmless.
func (ix *Index) CreateCollection(_ context.Context, userID string) error {
	name := domain.CollectionName(userID)

	ix.mu.Lock()
	defer ix.mu.Unlock()
	if _, ok := ix.collections[name]; !ok {
		ix.collections[name] = &collection{}
	}
	return nil
}

// Add appends chunks to the user's collection.
func (ix *Index) Add(_ context.Context, userID string, chunks []domain.Chunk) error {
	name := domain.CollectionName(userID)

	ix.mu.Lock()
	defer ix.mu.Unlock()
	col, ok := ix.collections[name]
	if !ok {
		return fmt.Errorf("add to %s: %w", name, domain.ErrCollectionNotFound)
	}
	col.chunks = append(col.chunks, chunks...)
	return nil
}

// Query returns up to k nearest chunks by cosine distance, ascending.
// Ties keep insertion order. Fails with ErrCollectionNotFound if the user
// has no collection; an empty collection returns an empty result.
func (ix *Index) Query(_ context.Context, userID string, vector []float32, k int) ([]domain.RetrievalResult, error) {
	name := domain.CollectionName(userID)

	ix.mu.RLock()
	defer ix.mu.RUnlock()
	col, ok := ix.collections[name]
	if !ok {
		return nil, fmt.Errorf("query %s: %w", name, domain.ErrCollectionNotFound)
	}
	if k <= 0 || len(col.chunks) == 0 {
		return nil, nil
	}

	type scored struct {
		pos      int
		distance float64
	}
	scores := make([]scored, len(col.chunks))
	for i, chunk := range col.chunks {
		scores[i] = scored{pos: i, distance: cosineDistance(vector, chunk.Vector)}
	}
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].distance < scores[j].distance
	})

	if k > len(scores) {
		k = len(scores)
	}
	results := make([]domain.RetrievalResult, 0, k)
	for _, s := range scores[:k] {
		chunk := col.chunks[s.pos]
		results = append(results, domain.RetrievalResult{
			Content:  chunk.Text,
			Meta:     chunk.Meta,
			Distance: s.distance,
		})
	}
	return results, nil
}

// DeleteByContentID removes exactly the chunks of one content group.
// A no-op (not an error) when nothing matches. Removing the last group
// also discards the emptied collection.
func (ix *Index) DeleteByContentID(_ context.Context, userID, contentID string) error {
	name := domain.CollectionName(userID)

	ix.mu.Lock()
	defer ix.mu.Unlock()
	col, ok := ix.collections[name]
	if !ok {
		return fmt.Errorf("delete from %s: %w", name, domain.ErrCollectionNotFound)
	}

	had := len(col.chunks)
	kept := col.chunks[:0]
	for _, chunk := range col.chunks {
		if chunk.Meta.ContentID != contentID {
			kept = append(kept, chunk)
		}
	}
	if len(kept) == 0 && had > 0 {
		delete(ix.collections, name)
		return nil
	}
	col.chunks = kept
	return nil
}

// Count returns the number of chunks in the user's collection.
func (ix *Index) Count(_ context.Context, userID string) (int, error) {
	name := domain.CollectionName(userID)

	ix.mu.RLock()
	defer ix.mu.RUnlock()
	col, ok := ix.collections[name]
	if !ok {
		return 0, fmt.Errorf("count %s: %w", name, domain.ErrCollectionNotFound)
	}
	return len(col.chunks), nil
}

// Stats returns chunk and unique-document counts for the user's collection.
func (ix *Index) Stats(_ context.Context, userID string) (domain.CollectionStats, error) {
	name := domain.CollectionName(userID)

	ix.mu.RLock()
	defer ix.mu.RUnlock()
	col, ok := ix.collections[name]
	if !ok {
		return domain.CollectionStats{}, fmt.Errorf("stats %s: %w", name, domain.ErrCollectionNotFound)
	}

	contentIDs := make(map[string]struct{})
	for _, chunk := range col.chunks {
		contentIDs[chunk.Meta.ContentID] = struct{}{}
	}
	return domain.CollectionStats{
		TotalChunks:     len(col.chunks),
		UniqueDocuments: len(contentIDs),
	}, nil
}

// cosineDistance is 1 - cosine similarity. Vectors of different length are
// compared over the shared prefix; mixed-tier collections degrade gracefully
// instead of failing.
func cosineDistance(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
	}
	for _, v := range a {
		normA += float64(v) * float64(v)
	}
	for _, v := range b {
		normB += float64(v) * float64(v)
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}
