package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ProviderKind
	}{
		{"nil", nil, ProviderUnknown},
		{"api key", errors.New("API key not valid. Please pass a valid API key."), ProviderAuth},
		{"401 status", errors.New("generation API error 401: invalid credentials"), ProviderAuth},
		{"quota word", errors.New("Quota exceeded for quota metric"), ProviderQuota},
		{"429 status", errors.New("embedding API error 429: slow down"), ProviderQuota},
		{"rate limit", errors.New("rate limit reached for requests"), ProviderQuota},
		{"timeout", errors.New("request timeout after 30s"), ProviderTransient},
		{"deadline", errors.New("context deadline exceeded"), ProviderTransient},
		{"404", errors.New("generation API error 404: model not found"), ProviderTransient},
		{"503", errors.New("embedding API error 503: overloaded"), ProviderTransient},
		{"unknown", errors.New("something odd happened"), ProviderUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify(%v) = %s, want %s", tt.err, got, tt.want)
			}
		})
	}
}

func TestClassify_PreClassifiedKeepsKind(t *testing.T) {
	// The message alone would classify as quota; the explicit kind wins.
	pe := &ProviderError{Kind: ProviderAuth, Err: errors.New("quota something")}
	wrapped := fmt.Errorf("generate: %w", pe)

	if got := Classify(wrapped); got != ProviderAuth {
		t.Errorf("Classify = %s, want auth", got)
	}
}

func TestProviderError_IsProviderFailure(t *testing.T) {
	pe := &ProviderError{Kind: ProviderQuota, Err: errors.New("429")}
	if !errors.Is(pe, ErrProviderFailure) {
		t.Error("expected ProviderError to match ErrProviderFailure")
	}
}

func TestChunkID(t *testing.T) {
	if got := ChunkID("abc", 2); got != "abc_chunk_2" {
		t.Errorf("ChunkID = %q", got)
	}
}

func TestCollectionName(t *testing.T) {
	if got := CollectionName("u1"); got != "user_u1" {
		t.Errorf("CollectionName = %q", got)
	}
}

func TestRetrievalResult_Relevance(t *testing.T) {
	r := RetrievalResult{Distance: 0.25}
	if got := r.Relevance(); got != 0.75 {
		t.Errorf("Relevance = %v, want 0.75", got)
	}
}
