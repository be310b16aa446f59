package index

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/helix-labs/docqa/internal/db"
	"github.com/helix-labs/docqa/internal/domain"
)

func TestCreateCollection_SkipsExisting(t *testing.T) {
	created := false
	store := &mockStore{
		indexExistsFn: func(_ context.Context, _ string) (bool, error) { return true, nil },
		createIndexFn: func(_ context.Context, _ *db.IndexDefinition) error {
			created = true
			return nil
		},
	}
	repo := New(store, "docqa:", 384)

	if err := repo.CreateCollection(context.Background(), "u1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created {
		t.Error("expected no FT.CREATE for an existing index")
	}
}

func TestCreateCollection_BuildsDefinition(t *testing.T) {
	var got *db.IndexDefinition
	store := &mockStore{
		indexExistsFn: func(_ context.Context, _ string) (bool, error) { return false, nil },
		createIndexFn: func(_ context.Context, def *db.IndexDefinition) error {
			got = def
			return nil
		},
	}
	repo := New(store, "docqa:", 384)

	if err := repo.CreateCollection(context.Background(), "u1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil {
		t.Fatal("expected FT.CREATE")
	}
	if got.Name != "docqa:user_u1:idx" {
		t.Errorf("index name = %q", got.Name)
	}
	if got.Prefix != "docqa:user_u1:" {
		t.Errorf("prefix = %q", got.Prefix)
	}

	var vectorDim int
	for _, f := range got.Fields {
		if f.Type == db.IndexFieldVector {
			vectorDim = f.VectorDim
		}
	}
	if vectorDim != 384 {
		t.Errorf("vector dim = %d, want 384", vectorDim)
	}
}

func TestCreateCollection_AbsorbsCreateRace(t *testing.T) {
	store := &mockStore{
		indexExistsFn: func(_ context.Context, _ string) (bool, error) { return false, nil },
		createIndexFn: func(_ context.Context, _ *db.IndexDefinition) error {
			return db.ErrIndexExists
		},
	}
	repo := New(store, "docqa:", 384)

	if err := repo.CreateCollection(context.Background(), "u1"); err != nil {
		t.Fatalf("concurrent create should be absorbed, got %v", err)
	}
}

func TestAdd_StoresChunksUnderUserPrefix(t *testing.T) {
	var got []db.HashSetItem
	store := &mockStore{
		hsetMultiFn: func(_ context.Context, items []db.HashSetItem) error {
			got = items
			return nil
		},
	}
	repo := New(store, "docqa:", 384)

	chunks := []domain.Chunk{
		{
			ID:     "c1_chunk_0",
			Text:   "hello world",
			Vector: []float32{0.5, 0.25},
			Meta: domain.ChunkMeta{
				ContentID: "c1", Source: "notes.txt", ContentType: "document",
				ChunkIndex: 0, TotalChunks: 2, ChunkLength: 11,
			},
		},
		{ID: "c1_chunk_1", Text: "again", Meta: domain.ChunkMeta{ContentID: "c1", ChunkIndex: 1}},
	}
	if err := repo.Add(context.Background(), "u1", chunks); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("expected 2 pipelined items, got %d", len(got))
	}
	if got[0].Key != "docqa:user_u1:c1_chunk_0" {
		t.Errorf("key = %q", got[0].Key)
	}
	fields := got[0].Fields
	if fields["text"] != "hello world" || fields["content_id"] != "c1" {
		t.Errorf("fields = %v", fields)
	}
	if fields["chunk_index"] != "0" || fields["total_chunks"] != "2" || fields["chunk_length"] != "11" {
		t.Errorf("numeric fields = %v", fields)
	}
	if len(fields["vector"]) != 8 {
		t.Errorf("vector blob length = %d, want 8", len(fields["vector"]))
	}
}

func TestAdd_MissingCollection(t *testing.T) {
	store := &mockStore{
		indexExistsFn: func(_ context.Context, _ string) (bool, error) { return false, nil },
	}
	repo := New(store, "docqa:", 384)

	err := repo.Add(context.Background(), "u1", []domain.Chunk{{ID: "x"}})
	if !errors.Is(err, domain.ErrCollectionNotFound) {
		t.Fatalf("expected ErrCollectionNotFound, got %v", err)
	}
}

func TestQuery_MapsSearchHits(t *testing.T) {
	store := &mockStore{
		searchKNNFn: func(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
			if q.IndexName != "docqa:user_u1:idx" {
				t.Errorf("index name = %q", q.IndexName)
			}
			if q.K != 3 {
				t.Errorf("k = %d", q.K)
			}
			return &db.SearchResult{
				Total: 1,
				Entries: []db.SearchEntry{
					{
						Key:      "docqa:user_u1:c1_chunk_0",
						Distance: 0.25,
						Fields: map[string]string{
							"text": "hello", "content_id": "c1", "source": "notes.txt",
							"content_type": "document", "chunk_index": "0",
							"total_chunks": "2", "chunk_length": "5",
						},
					},
				},
			}, nil
		},
	}
	repo := New(store, "docqa:", 384)

	results, err := repo.Query(context.Background(), "u1", []float32{1, 0}, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	r := results[0]
	if r.Content != "hello" || r.Meta.ContentID != "c1" || r.Meta.TotalChunks != 2 {
		t.Errorf("result = %+v", r)
	}
	if r.Distance != 0.25 {
		t.Errorf("distance = %v", r.Distance)
	}
	if rel := r.Relevance(); rel != 0.75 {
		t.Errorf("relevance = %v, want 0.75", rel)
	}
}

func TestQuery_MissingCollection(t *testing.T) {
	store := &mockStore{
		indexExistsFn: func(_ context.Context, _ string) (bool, error) { return false, nil },
	}
	repo := New(store, "docqa:", 384)

	_, err := repo.Query(context.Background(), "u1", []float32{1}, 3)
	if !errors.Is(err, domain.ErrCollectionNotFound) {
		t.Fatalf("expected ErrCollectionNotFound, got %v", err)
	}
}

func TestDeleteByContentID_EscapesTagAndDeletesKeys(t *testing.T) {
	var gotQuery string
	var deleted []string
	store := &mockStore{
		searchKeysFn: func(_ context.Context, _, query string, _ int) ([]string, error) {
			gotQuery = query
			return []string{"docqa:user_u1:a_chunk_0", "docqa:user_u1:a_chunk_1"}, nil
		},
		delFn: func(_ context.Context, keys ...string) error {
			deleted = keys
			return nil
		},
	}
	repo := New(store, "docqa:", 384)

	err := repo.DeleteByContentID(context.Background(), "u1", "3f2c-77ab")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(gotQuery, `\-`) {
		t.Errorf("uuid hyphens must be escaped in tag query, got %q", gotQuery)
	}
	if len(deleted) != 2 {
		t.Errorf("deleted = %v", deleted)
	}
}

func TestDeleteByContentID_NoMatchIsNoop(t *testing.T) {
	delCalled := false
	store := &mockStore{
		searchKeysFn: func(_ context.Context, _, _ string, _ int) ([]string, error) {
			return nil, nil
		},
		delFn: func(_ context.Context, _ ...string) error {
			delCalled = true
			return nil
		},
	}
	repo := New(store, "docqa:", 384)

	if err := repo.DeleteByContentID(context.Background(), "u1", "missing"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if delCalled {
		t.Error("expected no DEL when nothing matches")
	}
}

func TestDeleteByContentID_DropsIndexWhenCollectionEmpties(t *testing.T) {
	var dropped string
	store := &mockStore{
		searchKeysFn: func(_ context.Context, _, _ string, _ int) ([]string, error) {
			return []string{"docqa:user_u1:only_chunk_0"}, nil
		},
		searchCountFn: func(_ context.Context, _, _ string) (int, error) {
			return 0, nil
		},
		dropIndexFn: func(_ context.Context, name string) error {
			dropped = name
			return nil
		},
	}
	repo := New(store, "docqa:", 384)

	if err := repo.DeleteByContentID(context.Background(), "u1", "only"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dropped != "docqa:user_u1:idx" {
		t.Errorf("dropped index = %q, want docqa:user_u1:idx", dropped)
	}
}

func TestDeleteByContentID_KeepsIndexWhileChunksRemain(t *testing.T) {
	dropCalled := false
	store := &mockStore{
		searchKeysFn: func(_ context.Context, _, _ string, _ int) ([]string, error) {
			return []string{"docqa:user_u1:a_chunk_0"}, nil
		},
		searchCountFn: func(_ context.Context, _, _ string) (int, error) {
			return 5, nil
		},
		dropIndexFn: func(_ context.Context, _ string) error {
			dropCalled = true
			return nil
		},
	}
	repo := New(store, "docqa:", 384)

	if err := repo.DeleteByContentID(context.Background(), "u1", "a"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dropCalled {
		t.Error("index must survive while other content groups remain")
	}
}

func TestStats_CountsUniqueDocuments(t *testing.T) {
	store := &mockStore{
		scanFn: func(_ context.Context, pattern string) ([]string, error) {
			if pattern != "docqa:user_u1:*" {
				t.Errorf("scan pattern = %q", pattern)
			}
			return []string{"k1", "k2", "k3"}, nil
		},
		hgetAllMultiFn: func(_ context.Context, _ []string) ([]map[string]string, error) {
			return []map[string]string{
				{"content_id": "a"},
				{"content_id": "a"},
				{"content_id": "b"},
			}, nil
		},
	}
	repo := New(store, "docqa:", 384)

	stats, err := repo.Stats(context.Background(), "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.TotalChunks != 3 || stats.UniqueDocuments != 2 {
		t.Errorf("stats = %+v", stats)
	}
}
