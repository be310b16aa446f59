package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrCollectionNotFound signals that a user has no collection yet.
	// This is expected control flow on the query path, not a failure.
	ErrCollectionNotFound = errors.New("collection not found")
	// ErrValidation signals rejected input (empty text, missing user id).
	ErrValidation = errors.New("invalid input")
	// ErrIndexFailure signals a vector store write or query failure.
	ErrIndexFailure = errors.New("vector index failure")
	// ErrProviderFailure signals an external embedding/generation provider failure.
	ErrProviderFailure = errors.New("provider failure")
)

// ProviderKind classifies external provider failures for the fallback chain.
type ProviderKind int

const (
	// ProviderUnknown is an unclassified provider failure.
	ProviderUnknown ProviderKind = iota
	// ProviderAuth is a credentials failure. Terminal, never retried.
	ProviderAuth
	// ProviderQuota is a rate/usage limit. Not retried within a request.
	ProviderQuota
	// ProviderTransient is a timeout or 5xx. Eligible for bounded retry.
	ProviderTransient
)

func (k ProviderKind) String() string {
	switch k {
	case ProviderAuth:
		return "auth"
	case ProviderQuota:
		return "quota"
	case ProviderTransient:
		return "transient"
	default:
		return "unknown"
	}
}

// ProviderError wraps a provider failure with its classified kind.
type ProviderError struct {
	Kind ProviderKind
	Err  error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s provider error: %s", e.Kind, e.Err.Error())
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrProviderFailure) match classified errors.
func (e *ProviderError) Is(target error) bool { return target == ErrProviderFailure }

// Known substrings emitted by the embedding/generation backends for each
// failure class. Transport adapters include the HTTP status code in wrapped
// error text, so status-code markers match regardless of message wording.
var (
	authMarkers      = []string{"api key", "unauthorized", "401", "403", "permission denied"}
	quotaMarkers     = []string{"quota", "429", "rate limit", "resource_exhausted", "too many requests"}
	transientMarkers = []string{
		"timeout", "deadline", "404", "500", "502", "503", "504",
		"unavailable", "connection refused", "connection reset",
	}
)

// Classify maps a provider error to its kind by inspecting the error text
// for known markers. A pre-classified *ProviderError keeps its kind.
func Classify(err error) ProviderKind {
	if err == nil {
		return ProviderUnknown
	}

	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind
	}

	msg := strings.ToLower(err.Error())
	for _, m := range authMarkers {
		if strings.Contains(msg, m) {
			return ProviderAuth
		}
	}
	for _, m := range quotaMarkers {
		if strings.Contains(msg, m) {
			return ProviderQuota
		}
	}
	for _, m := range transientMarkers {
		if strings.Contains(msg, m) {
			return ProviderTransient
		}
	}
	return ProviderUnknown
}
