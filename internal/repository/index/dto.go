package index

import (
	"encoding/binary"
	"math"
	"strconv"
	"strings"

	"github.com/helix-labs/docqa/internal/domain"
)

// buildHashFields converts a chunk into a flat map[string]string for HSET.
func buildHashFields(chunk *domain.Chunk) map[string]string {
	return map[string]string{
		"text":         chunk.Text,
		"vector":       vectorToBytes(chunk.Vector),
		"content_id":   chunk.Meta.ContentID,
		"source":       chunk.Meta.Source,
		"content_type": chunk.Meta.ContentType,
		"chunk_index":  strconv.Itoa(chunk.Meta.ChunkIndex),
		"total_chunks": strconv.Itoa(chunk.Meta.TotalChunks),
		"chunk_length": strconv.Itoa(chunk.Meta.ChunkLength),
	}
}

// resultFromFields converts a search hit back into a retrieval result.
func resultFromFields(fields map[string]string, distance float64) domain.RetrievalResult {
	return domain.RetrievalResult{
		Content: fields["text"],
		Meta: domain.ChunkMeta{
			ContentID:   fields["content_id"],
			Source:      fields["source"],
			ContentType: fields["content_type"],
			ChunkIndex:  atoi(fields["chunk_index"]),
			TotalChunks: atoi(fields["total_chunks"]),
			ChunkLength: atoi(fields["chunk_length"]),
		},
		Distance: distance,
	}
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

// vectorToBytes serializes []float32 to a binary string (4 bytes per float, little-endian).
func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}

// tagEscaper escapes FT tag query syntax; content ids are UUIDs, so hyphens
// are the common case.
var tagEscaper = strings.NewReplacer(
	",", "\\,",
	".", "\\.",
	"<", "\\<",
	">", "\\>",
	"{", "\\{",
	"}", "\\}",
	"\"", "\\\"",
	"'", "\\'",
	":", "\\:",
	";", "\\;",
	"!", "\\!",
	"@", "\\@",
	"#", "\\#",
	"$", "\\$",
	"%", "\\%",
	"^", "\\^",
	"&", "\\&",
	"*", "\\*",
	"(", "\\(",
	")", "\\)",
	"-", "\\-",
	"+", "\\+",
	"=", "\\=",
	"~", "\\~",
	" ", "\\ ",
)
