// Package chi is the HTTP API surface over the ingestion and query services.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/helix-labs/docqa/internal/domain"
	answeruc "github.com/helix-labs/docqa/internal/usecase/answer"
	ingestuc "github.com/helix-labs/docqa/internal/usecase/ingest"
)

// userIDHeader carries the caller's user identity. Identity management lives
// upstream; the API trusts this header behind the gateway.
const userIDHeader = "X-User-ID"

// Pinger reports backing store health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server routes HTTP requests to the ingestion and answer services.
type Server struct {
	ingest *ingestuc.Service
	answer *answeruc.Service
	pinger Pinger
	logger *zap.Logger
}

// NewServer creates an HTTP API server. pinger may be nil when the index has
// no external backing store.
func NewServer(ingest *ingestuc.Service, answer *answeruc.Service, pinger Pinger, logger *zap.Logger) *Server {
	return &Server{ingest: ingest, answer: answer, pinger: pinger, logger: logger}
}

// Routes mounts all API routes on a chi router.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Post("/content", s.handleIngest)
		r.Delete("/content/{contentID}", s.handleDelete)
		r.Get("/content/stats", s.handleStats)
		r.Post("/query", s.handleQuery)
	})
}

type ingestRequest struct {
	Text        string `json:"text"`
	Source      string `json:"source"`
	ContentType string `json:"content_type"`
}

type ingestResponse struct {
	ContentID string `json:"content_id"`
	Chunks    int    `json:"chunks"`
	Degraded  bool   `json:"degraded"`
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	result, err := s.ingest.Ingest(r.Context(), userID, req.Text, req.Source, req.ContentType)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, ingestResponse{
		ContentID: result.ContentID,
		Chunks:    result.Chunks,
		Degraded:  result.Degraded,
	})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	contentID := chi.URLParam(r, "contentID")
	if err := s.ingest.Delete(r.Context(), userID, contentID); err != nil {
		s.handleDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type statsResponse struct {
	TotalChunks     int `json:"total_chunks"`
	UniqueDocuments int `json:"unique_documents"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	stats, err := s.ingest.Stats(r.Context(), userID)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, statsResponse{
		TotalChunks:     stats.TotalChunks,
		UniqueDocuments: stats.UniqueDocuments,
	})
}

type queryRequest struct {
	Query string `json:"query"`
}

type queryResponse struct {
	Response string             `json:"response"`
	Source   string             `json:"source"`
	Sources  []domain.SourceRef `json:"sources,omitempty"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	answer, err := s.answer.Answer(r.Context(), userID, req.Query)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, queryResponse{
		Response: answer.Text,
		Source:   string(answer.Source),
		Sources:  answer.Sources,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.pinger != nil {
		if err := s.pinger.Ping(r.Context()); err != nil {
			s.logger.Warn("health check failed", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := r.Header.Get(userIDHeader)
	if userID == "" {
		writeError(w, http.StatusBadRequest, "missing "+userIDHeader+" header")
		return "", false
	}
	return userID, true
}

// handleDomainError maps domain sentinels to HTTP statuses; everything else
// is an opaque 500 with the cause logged.
func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrCollectionNotFound):
		writeError(w, http.StatusNotFound, "no content found for this user")
	case errors.Is(err, domain.ErrProviderFailure):
		s.logger.Error("provider failure", zap.Error(err))
		writeError(w, http.StatusBadGateway, "embedding provider unavailable")
	default:
		s.logger.Error("internal error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
