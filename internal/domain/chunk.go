package domain

import "fmt"

// Chunk is a bounded substring of a source document, the unit of embedding
// and retrieval. Chunks are immutable once stored; the only mutation is
// deletion of an entire group by content id.
type Chunk struct {
	ID     string
	Text   string
	Vector []float32
	Meta   ChunkMeta
}

// ChunkMeta is stored alongside every chunk vector.
type ChunkMeta struct {
	ContentID   string
	Source      string
	ContentType string
	ChunkIndex  int
	TotalChunks int
	ChunkLength int
}

// ChunkID builds the deterministic chunk identifier for a content group.
func ChunkID(contentID string, index int) string {
	return fmt.Sprintf("%s_chunk_%d", contentID, index)
}

// CollectionName derives the per-user collection name. Collections are never
// shared across users and are always addressed through this mapping.
func CollectionName(userID string) string {
	return "user_" + userID
}

// RetrievalResult is one ranked hit from the vector index. Ephemeral, never
// persisted. Smaller distance means closer.
type RetrievalResult struct {
	Content  string
	Meta     ChunkMeta
	Distance float64
}

// Relevance converts distance into a monotonically-inverted similarity score.
func (r RetrievalResult) Relevance() float64 {
	return 1 - r.Distance
}

// SourceRef attributes one included context chunk in an answer.
type SourceRef struct {
	Source         string  `json:"source"`
	ContentType    string  `json:"content_type"`
	RelevanceScore float64 `json:"relevance_score"`
}

// AnswerSource tags how an answer was produced.
type AnswerSource string

const (
	// SourceDocuments marks an answer grounded in retrieved user content.
	SourceDocuments AnswerSource = "documents"
	// SourceGeneral marks an ungrounded model answer.
	SourceGeneral AnswerSource = "general"
	// SourceError marks a classified terminal failure message.
	SourceError AnswerSource = "error"
)

// Answer is the result of one query request. The orchestrator always
// produces an Answer; failures become classified messages, never errors.
type Answer struct {
	Text    string
	Source  AnswerSource
	Sources []SourceRef
}

// CollectionStats summarizes a user's collection.
type CollectionStats struct {
	TotalChunks     int
	UniqueDocuments int
}
