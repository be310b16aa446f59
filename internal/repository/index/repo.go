// Package index is the Redis-backed chunk index. Each user gets an FT index
// over hash documents under a per-user key prefix, mirroring the contract of
// the in-memory index.
package index

import (
	"context"
	"errors"
	"fmt"

	"github.com/helix-labs/docqa/internal/db"
	"github.com/helix-labs/docqa/internal/domain"
)

// Worst-case chunks per content group when collecting keys for deletion.
const deleteKeyLimit = 10000

// store is the consumer interface for the chunk index (ISP).
type store interface {
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Del(ctx context.Context, keys ...string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	DropIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchKeys(ctx context.Context, index, query string, limit int) ([]string, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
}

// Repo implements the chunk index contract over Redis.
type Repo struct {
	store     store
	prefix    string
	vectorDim int
}

// New creates a Redis chunk index repository.
func New(s store, prefix string, vectorDim int) *Repo {
	return &Repo{store: s, prefix: prefix, vectorDim: vectorDim}
}

// CreateCollection creates the user's FT index if absent. Idempotent; a
// concurrent create racing past the existence probe is absorbed via
// ErrIndexExists.
func (r *Repo) CreateCollection(ctx context.Context, userID string) error {
	name := r.indexName(userID)

	exists, err := r.store.IndexExists(ctx, name)
	if err != nil {
		return fmt.Errorf("probe index %s: %w", name, err)
	}
	if exists {
		return nil
	}

	def := &db.IndexDefinition{
		Name:   name,
		Prefix: r.keyPrefix(userID),
		Fields: []db.IndexField{
			{Name: "content_id", Type: db.IndexFieldTag},
			{Name: "source", Type: db.IndexFieldTag},
			{Name: "content_type", Type: db.IndexFieldTag},
			{Name: "chunk_index", Type: db.IndexFieldNumeric},
			{Name: "total_chunks", Type: db.IndexFieldNumeric},
			{Name: "chunk_length", Type: db.IndexFieldNumeric},
			{Name: "vector", Type: db.IndexFieldVector, VectorDim: r.vectorDim},
		},
	}

	if err := r.store.CreateIndex(ctx, def); err != nil {
		if errors.Is(err, db.ErrIndexExists) {
			return nil
		}
		return fmt.Errorf("create index %s: %w", name, err)
	}
	return nil
}

// Add stores chunks as hashes under the user's key prefix in one pipelined call.
func (r *Repo) Add(ctx context.Context, userID string, chunks []domain.Chunk) error {
	if err := r.requireCollection(ctx, userID, "add"); err != nil {
		return err
	}
	if len(chunks) == 0 {
		return nil
	}

	items := make([]db.HashSetItem, len(chunks))
	for i, chunk := range chunks {
		items[i] = db.HashSetItem{
			Key:    r.chunkKey(userID, chunk.ID),
			Fields: buildHashFields(&chunk),
		}
	}

	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("store chunks for %s: %w", userID, err)
	}
	return nil
}

// Query returns up to k nearest chunks by cosine distance, ascending.
func (r *Repo) Query(ctx context.Context, userID string, vector []float32, k int) ([]domain.RetrievalResult, error) {
	if err := r.requireCollection(ctx, userID, "query"); err != nil {
		return nil, err
	}
	if k <= 0 {
		return nil, nil
	}

	result, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName: r.indexName(userID),
		Vector:    vector,
		K:         k,
		ReturnFields: []string{
			"text", "content_id", "source", "content_type",
			"chunk_index", "total_chunks", "chunk_length", "__vector_score",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("knn search for %s: %w", userID, err)
	}

	results := make([]domain.RetrievalResult, 0, len(result.Entries))
	for _, entry := range result.Entries {
		results = append(results, resultFromFields(entry.Fields, entry.Distance))
	}
	return results, nil
}

// DeleteByContentID removes all chunks of one content group. A no-op when
// nothing matches. Removing the last group also drops the user's index,
// so an emptied collection does not linger in Redis.
func (r *Repo) DeleteByContentID(ctx context.Context, userID, contentID string) error {
	if err := r.requireCollection(ctx, userID, "delete"); err != nil {
		return err
	}

	query := fmt.Sprintf("@content_id:{%s}", tagEscaper.Replace(contentID))
	keys, err := r.store.SearchKeys(ctx, r.indexName(userID), query, deleteKeyLimit)
	if err != nil {
		return fmt.Errorf("find chunks of %s: %w", contentID, err)
	}
	if len(keys) == 0 {
		return nil
	}

	if err := r.store.Del(ctx, keys...); err != nil {
		return fmt.Errorf("delete chunks of %s: %w", contentID, err)
	}

	remaining, err := r.store.SearchCount(ctx, r.indexName(userID), "*")
	if err != nil {
		return fmt.Errorf("count remaining chunks for %s: %w", userID, err)
	}
	if remaining == 0 {
		if err := r.store.DropIndex(ctx, r.indexName(userID)); err != nil {
			return fmt.Errorf("drop empty index for %s: %w", userID, err)
		}
	}
	return nil
}

// Count returns the number of chunks in the user's collection.
func (r *Repo) Count(ctx context.Context, userID string) (int, error) {
	if err := r.requireCollection(ctx, userID, "count"); err != nil {
		return 0, err
	}

	n, err := r.store.SearchCount(ctx, r.indexName(userID), "*")
	if err != nil {
		return 0, fmt.Errorf("count chunks for %s: %w", userID, err)
	}
	return n, nil
}

// Stats returns chunk and unique-document counts by scanning the user's hashes.
func (r *Repo) Stats(ctx context.Context, userID string) (domain.CollectionStats, error) {
	if err := r.requireCollection(ctx, userID, "stats"); err != nil {
		return domain.CollectionStats{}, err
	}

	keys, err := r.store.Scan(ctx, r.keyPrefix(userID)+"*")
	if err != nil {
		return domain.CollectionStats{}, fmt.Errorf("scan chunks for %s: %w", userID, err)
	}
	if len(keys) == 0 {
		return domain.CollectionStats{}, nil
	}

	hashes, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return domain.CollectionStats{}, fmt.Errorf("load chunks for %s: %w", userID, err)
	}

	contentIDs := make(map[string]struct{})
	for _, fields := range hashes {
		if id := fields["content_id"]; id != "" {
			contentIDs[id] = struct{}{}
		}
	}
	return domain.CollectionStats{
		TotalChunks:     len(keys),
		UniqueDocuments: len(contentIDs),
	}, nil
}

func (r *Repo) requireCollection(ctx context.Context, userID, op string) error {
	name := r.indexName(userID)
	exists, err := r.store.IndexExists(ctx, name)
	if err != nil {
		return fmt.Errorf("probe index %s: %w", name, err)
	}
	if !exists {
		return fmt.Errorf("%s %s: %w", op, name, domain.ErrCollectionNotFound)
	}
	return nil
}

func (r *Repo) indexName(userID string) string {
	return r.keyPrefix(userID) + "idx"
}

func (r *Repo) keyPrefix(userID string) string {
	return r.prefix + domain.CollectionName(userID) + ":"
}

func (r *Repo) chunkKey(userID, chunkID string) string {
	return r.keyPrefix(userID) + chunkID
}
