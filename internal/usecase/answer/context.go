package answer

import (
	"strings"

	"github.com/helix-labs/docqa/internal/domain"
)

// AssembleContext joins retrieved chunks into a single context string under
// maxLen characters. Chunks are taken in retrieval order (closest first) and
// a chunk that would cross the limit stops assembly, so the budget is a
// greedy prefix, not a best fit. Sources are reported for the included
// chunks only, in inclusion order.
func AssembleContext(results []domain.RetrievalResult, maxLen int) (string, []domain.SourceRef) {
	if maxLen <= 0 || len(results) == 0 {
		return "", nil
	}

	var parts []string
	var sources []domain.SourceRef
	current := 0

	for _, r := range results {
		if current+len(r.Content) > maxLen {
			break
		}
		parts = append(parts, r.Content)
		current += len(r.Content)
		sources = append(sources, domain.SourceRef{
			Source:         r.Meta.Source,
			ContentType:    r.Meta.ContentType,
			RelevanceScore: r.Relevance(),
		})
	}

	return strings.Join(parts, "\n\n"), sources
}
