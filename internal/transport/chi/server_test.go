package chi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	chirouter "github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/helix-labs/docqa/internal/chunker"
	"github.com/helix-labs/docqa/internal/embedding"
	"github.com/helix-labs/docqa/internal/index/memory"
	"github.com/helix-labs/docqa/internal/metrics"
	answeruc "github.com/helix-labs/docqa/internal/usecase/answer"
	ingestuc "github.com/helix-labs/docqa/internal/usecase/ingest"
	retrieveuc "github.com/helix-labs/docqa/internal/usecase/retrieve"
)

func TestMain(m *testing.M) {
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterGenerationMetrics()
	os.Exit(m.Run())
}

// fakeGenerator answers deterministically so HTTP tests exercise the full
// pipeline without a model provider.
type fakeGenerator struct {
	generateFn func(ctx context.Context, prompt string) (string, error)
	groundedFn func(ctx context.Context, contextText, query string) (string, error)
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if f.generateFn != nil {
		return f.generateFn(ctx, prompt)
	}
	return "general answer", nil
}

func (f *fakeGenerator) GenerateGrounded(ctx context.Context, contextText, query string) (string, error) {
	if f.groundedFn != nil {
		return f.groundedFn(ctx, contextText, query)
	}
	return "grounded answer", nil
}

// newTestRouter wires a full stack: in-memory index, hash embeddings, real
// chunker and services, fake generator.
func newTestRouter(t *testing.T, gen answeruc.Generator) http.Handler {
	t.Helper()

	index := memory.New()
	embedder := embedding.NewTiered(nil, zap.NewNop())
	ingest := ingestuc.New(index, chunker.New(1000, 200), embedder, 10)
	retriever := retrieveuc.New(index, embedder, 3)
	answer := answeruc.New(retriever, gen, answeruc.Config{
		TopK:             3,
		MaxContextLength: 2000,
		MaxAttempts:      3,
		RetryBackoff:     time.Millisecond,
	})

	server := NewServer(ingest, answer, nil, zap.NewNop())
	r := chirouter.NewRouter()
	server.Routes(r)
	return r
}

func doJSON(t *testing.T, handler http.Handler, method, path, userID string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	if userID != "" {
		req.Header.Set(userIDHeader, userID)
	}
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func TestIngestThenQuery(t *testing.T) {
	router := newTestRouter(t, &fakeGenerator{
		groundedFn: func(_ context.Context, contextText, _ string) (string, error) {
			if contextText == "" {
				return "", errors.New("empty context")
			}
			return "answer from documents", nil
		},
	})

	rr := doJSON(t, router, "POST", "/api/content", "u1", ingestRequest{
		Text:   "Go is a statically typed language designed at Google. It compiles fast.",
		Source: "notes.txt",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("ingest status = %d, body %s", rr.Code, rr.Body.String())
	}

	var ingested ingestResponse
	if err := json.NewDecoder(rr.Body).Decode(&ingested); err != nil {
		t.Fatalf("decode ingest response: %v", err)
	}
	if ingested.ContentID == "" || ingested.Chunks == 0 {
		t.Errorf("ingest response = %+v", ingested)
	}
	// The hash tier is the primary in this wiring, so nothing degraded.
	if ingested.Degraded {
		t.Error("primary-tier embedding must not report degraded")
	}

	rr = doJSON(t, router, "POST", "/api/query", "u1", queryRequest{Query: "what is go?"})
	if rr.Code != http.StatusOK {
		t.Fatalf("query status = %d, body %s", rr.Code, rr.Body.String())
	}

	var answer queryResponse
	if err := json.NewDecoder(rr.Body).Decode(&answer); err != nil {
		t.Fatalf("decode query response: %v", err)
	}
	if answer.Source != "documents" {
		t.Errorf("source = %q, want documents", answer.Source)
	}
	if answer.Response != "answer from documents" {
		t.Errorf("response = %q", answer.Response)
	}
	if len(answer.Sources) == 0 || answer.Sources[0].Source != "notes.txt" {
		t.Errorf("sources = %+v", answer.Sources)
	}
}

func TestQueryWithoutDocumentsIsGeneral(t *testing.T) {
	router := newTestRouter(t, &fakeGenerator{})

	rr := doJSON(t, router, "POST", "/api/query", "fresh-user", queryRequest{Query: "hello"})
	if rr.Code != http.StatusOK {
		t.Fatalf("query status = %d", rr.Code)
	}

	var answer queryResponse
	if err := json.NewDecoder(rr.Body).Decode(&answer); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if answer.Source != "general" {
		t.Errorf("source = %q, want general", answer.Source)
	}
	if len(answer.Sources) != 0 {
		t.Errorf("sources = %+v, want none", answer.Sources)
	}
}

func TestQueryProviderDownYieldsErrorSource(t *testing.T) {
	router := newTestRouter(t, &fakeGenerator{
		generateFn: func(_ context.Context, _ string) (string, error) {
			return "", errors.New("invalid api key")
		},
	})

	rr := doJSON(t, router, "POST", "/api/query", "fresh-user", queryRequest{Query: "hello"})
	if rr.Code != http.StatusOK {
		t.Fatalf("degraded answers must still be 200, got %d", rr.Code)
	}

	var answer queryResponse
	if err := json.NewDecoder(rr.Body).Decode(&answer); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if answer.Source != "error" {
		t.Errorf("source = %q, want error", answer.Source)
	}
	if answer.Response == "" {
		t.Error("expected a user-facing message")
	}
}

func TestDeleteContent(t *testing.T) {
	router := newTestRouter(t, &fakeGenerator{})

	text := "First document about cooking pasta. It has enough length for chunking."
	rr := doJSON(t, router, "POST", "/api/content", "u1", ingestRequest{Text: text, Source: "a.txt"})
	if rr.Code != http.StatusCreated {
		t.Fatalf("ingest status = %d", rr.Code)
	}
	var first ingestResponse
	if err := json.NewDecoder(rr.Body).Decode(&first); err != nil {
		t.Fatal(err)
	}

	rr = doJSON(t, router, "POST", "/api/content", "u1", ingestRequest{
		Text:   "Second document about gardening tips. Also long enough to keep.",
		Source: "b.txt",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("second ingest status = %d", rr.Code)
	}

	rr = doJSON(t, router, "DELETE", fmt.Sprintf("/api/content/%s", first.ContentID), "u1", nil)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d, body %s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, router, "GET", "/api/content/stats", "u1", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("stats status = %d", rr.Code)
	}
	var stats statsResponse
	if err := json.NewDecoder(rr.Body).Decode(&stats); err != nil {
		t.Fatal(err)
	}
	if stats.UniqueDocuments != 1 {
		t.Errorf("unique documents = %d, want 1 after delete", stats.UniqueDocuments)
	}
}

func TestDeleteWithoutCollectionIs404(t *testing.T) {
	router := newTestRouter(t, &fakeGenerator{})

	rr := doJSON(t, router, "DELETE", "/api/content/some-id", "no-such-user", nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rr.Code)
	}
}

func TestIngestValidation(t *testing.T) {
	router := newTestRouter(t, &fakeGenerator{})

	rr := doJSON(t, router, "POST", "/api/content", "u1", ingestRequest{Text: "short"})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("short content: status = %d, want 400", rr.Code)
	}

	rr = doJSON(t, router, "POST", "/api/content", "", ingestRequest{Text: "long enough content here"})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("missing user header: status = %d, want 400", rr.Code)
	}
}

func TestStatsForNewUserIsZero(t *testing.T) {
	router := newTestRouter(t, &fakeGenerator{})

	rr := doJSON(t, router, "GET", "/api/content/stats", "brand-new", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("stats status = %d", rr.Code)
	}
	var stats statsResponse
	if err := json.NewDecoder(rr.Body).Decode(&stats); err != nil {
		t.Fatal(err)
	}
	if stats.TotalChunks != 0 || stats.UniqueDocuments != 0 {
		t.Errorf("stats = %+v, want zeros", stats)
	}
}

func TestHealth(t *testing.T) {
	router := newTestRouter(t, &fakeGenerator{})

	rr := doJSON(t, router, "GET", "/health", "", nil)
	if rr.Code != http.StatusOK {
		t.Errorf("health status = %d", rr.Code)
	}
}
