// Package ingest stores user content as embedded chunks.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/helix-labs/docqa/internal/domain"
	"github.com/helix-labs/docqa/internal/logger"
)

// Result describes a completed ingestion.
type Result struct {
	ContentID string
	Chunks    int
	Degraded  bool
}

// Service handles the ingestion pipeline: chunk, embed, store.
type Service struct {
	index            Index
	chunker          Chunker
	embedder         Embedder
	minContentLength int
}

// New creates an ingestion service.
func New(index Index, chunker Chunker, embedder Embedder, minContentLength int) *Service {
	if minContentLength <= 0 {
		minContentLength = 10
	}
	return &Service{
		index:            index,
		chunker:          chunker,
		embedder:         embedder,
		minContentLength: minContentLength,
	}
}

// Ingest chunks and embeds content, then stores it in the user's collection
// under a fresh content id. Degraded reports that at least one vector came
// from a lower tier than the primary provider.
func (s *Service) Ingest(ctx context.Context, userID, text, source, contentType string) (Result, error) {
	if strings.TrimSpace(userID) == "" {
		return Result{}, fmt.Errorf("user id is required: %w", domain.ErrValidation)
	}
	trimmed := strings.TrimSpace(text)
	if len(trimmed) < s.minContentLength {
		return Result{}, fmt.Errorf(
			"content must be at least %d characters: %w", s.minContentLength, domain.ErrValidation,
		)
	}
	if contentType == "" {
		contentType = "document"
	}

	if err := s.index.CreateCollection(ctx, userID); err != nil {
		return Result{}, fmt.Errorf("create collection: %w: %w", domain.ErrIndexFailure, err)
	}

	pieces := s.chunker.Chunk(trimmed)
	if len(pieces) == 0 {
		return Result{}, fmt.Errorf("content produced no chunks: %w", domain.ErrValidation)
	}

	batch, err := s.embedder.EmbedBatch(ctx, pieces)
	if err != nil {
		return Result{}, fmt.Errorf("embed content: %w", err)
	}

	contentID := uuid.NewString()
	chunks := make([]domain.Chunk, len(pieces))
	for i, piece := range pieces {
		chunks[i] = domain.Chunk{
			ID:     domain.ChunkID(contentID, i),
			Text:   piece,
			Vector: batch.Vectors[i],
			Meta: domain.ChunkMeta{
				ContentID:   contentID,
				Source:      source,
				ContentType: contentType,
				ChunkIndex:  i,
				TotalChunks: len(pieces),
				ChunkLength: len(piece),
			},
		}
	}

	if err := s.index.Add(ctx, userID, chunks); err != nil {
		return Result{}, fmt.Errorf("store chunks: %w: %w", domain.ErrIndexFailure, err)
	}

	logger.FromContext(ctx).Info("content ingested",
		zap.String("user_id", userID),
		zap.String("content_id", contentID),
		zap.Int("chunks", len(chunks)),
		zap.Bool("degraded", batch.Degraded),
	)

	return Result{ContentID: contentID, Chunks: len(chunks), Degraded: batch.Degraded}, nil
}

// Delete removes all chunks of one content group from the user's collection.
func (s *Service) Delete(ctx context.Context, userID, contentID string) error {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(contentID) == "" {
		return fmt.Errorf("user id and content id are required: %w", domain.ErrValidation)
	}

	if err := s.index.DeleteByContentID(ctx, userID, contentID); err != nil {
		if errors.Is(err, domain.ErrCollectionNotFound) {
			return err
		}
		return fmt.Errorf("delete content: %w: %w", domain.ErrIndexFailure, err)
	}

	logger.FromContext(ctx).Info("content deleted",
		zap.String("user_id", userID),
		zap.String("content_id", contentID),
	)
	return nil
}

// Stats returns collection statistics. A user with no collection yet gets
// zero counts, not an error.
func (s *Service) Stats(ctx context.Context, userID string) (domain.CollectionStats, error) {
	if strings.TrimSpace(userID) == "" {
		return domain.CollectionStats{}, fmt.Errorf("user id is required: %w", domain.ErrValidation)
	}

	stats, err := s.index.Stats(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrCollectionNotFound) {
			return domain.CollectionStats{}, nil
		}
		return domain.CollectionStats{}, fmt.Errorf("collection stats: %w", err)
	}
	return stats, nil
}
