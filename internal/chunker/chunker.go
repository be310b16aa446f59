// Package chunker splits raw text into overlapping windows that prefer
// sentence and word boundaries.
package chunker

import (
	"strings"
	"unicode/utf8"
)

// Default window parameters.
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// Chunker splits text into overlapping character windows. At each window
// boundary it cuts at the last sentence terminator past the window midpoint,
// then at the last word boundary past the midpoint, then at the raw edge.
type Chunker struct {
	chunkSize    int
	chunkOverlap int
}

// New creates a chunker. Non-positive parameters fall back to defaults, and
// the overlap is clamped below the chunk size so every iteration makes
// strictly positive progress.
func New(chunkSize, chunkOverlap int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if chunkOverlap < 0 {
		chunkOverlap = DefaultChunkOverlap
	}
	if chunkOverlap >= chunkSize {
		chunkOverlap = chunkSize / 2
	}
	return &Chunker{chunkSize: chunkSize, chunkOverlap: chunkOverlap}
}

// Chunk splits text into trimmed, non-empty chunk texts. Text at or under
// the chunk size is returned as a single chunk. Chunk count is deterministic
// for identical input and parameters.
func (c *Chunker) Chunk(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if len(text) <= c.chunkSize {
		return []string{strings.TrimSpace(text)}
	}

	var chunks []string
	start := 0

	for start < len(text) {
		end := start + c.chunkSize
		if end < len(text) {
			end = c.cutPoint(text, start, end)
		} else {
			end = len(text)
		}

		if chunk := strings.TrimSpace(text[start:end]); chunk != "" {
			chunks = append(chunks, chunk)
		}

		if end == len(text) {
			break
		}

		next := backToRuneStart(text, end-c.chunkOverlap)
		// The boundary search never retreats past the midpoint, so next
		// always advances; the guard covers degenerate parameters.
		if next <= start {
			next = start + 1
			for next < len(text) && !utf8.RuneStart(text[next]) {
				next++
			}
		}
		start = next
	}

	return chunks
}

// cutPoint picks the window end: last '.' past the midpoint wins, then the
// last space past the midpoint, then the raw window edge backed off to a
// rune boundary so multi-byte text is never split mid-rune.
func (c *Chunker) cutPoint(text string, start, end int) int {
	mid := start + c.chunkSize/2

	if i := strings.LastIndexByte(text[start:end], '.'); i >= 0 {
		if abs := start + i; abs > mid {
			return abs + 1 // keep the terminator with the chunk
		}
	}
	if i := strings.LastIndexByte(text[start:end], ' '); i >= 0 {
		if abs := start + i; abs > mid {
			return abs
		}
	}
	return backToRuneStart(text, end)
}

// backToRuneStart moves i left to the nearest rune boundary.
func backToRuneStart(text string, i int) int {
	for i > 0 && !utf8.RuneStart(text[i]) {
		i--
	}
	return i
}
