package domain

import (
	"errors"
	"fmt"
	"time"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidConfig indicates configuration that cannot be acted on
	// (missing credentials, mismatched embedding models). Fatal for the
	// operation; never retried.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrNoPersonaLoaded indicates generate was called on a session with
	// no persona loaded. A usage error, reported distinctly.
	ErrNoPersonaLoaded = errors.New("no persona loaded")

	// ErrPersonaNotFound indicates the requested persona does not exist.
	ErrPersonaNotFound = errors.New("persona not found")

	// ErrEmptyIdea indicates a blank story idea.
	ErrEmptyIdea = errors.New("story idea is empty")

	// ErrEmbeddingUnavailable indicates the embedding service is not
	// configured or unreachable. Indexing and retrieval need embeddings.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrRerankUnavailable indicates the reranker is not configured or
	// unreachable. Retrieval degrades to unreranked ordering.
	ErrRerankUnavailable = errors.New("reranker unavailable")

	// ErrModelUnavailable indicates a generative model is not configured.
	ErrModelUnavailable = errors.New("generation model unavailable")

	// ErrGenerationUnavailable is the generic failure surfaced after all
	// retries and the fallback model are exhausted. Deliberately carries
	// no provider or model names.
	ErrGenerationUnavailable = errors.New("generation unavailable")

	// ErrAllProvidersFailed indicates every configured image provider
	// failed for a request.
	ErrAllProvidersFailed = errors.New("all image providers failed")

	// ErrIndexClosed indicates a lookup against a retired index.
	ErrIndexClosed = errors.New("index closed")

	// ErrIndexBuildInProgress indicates a rebuild is already running for
	// the persona.
	ErrIndexBuildInProgress = errors.New("index build in progress")

	// ErrRateLimited indicates an API rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")

	// ErrSourceClosed indicates the persona source has been closed.
	ErrSourceClosed = errors.New("persona source closed")

	// ErrWatchUnsupported indicates the persona source cannot push change
	// events. Check SourceCapabilities.SupportsWatch before calling Watch.
	ErrWatchUnsupported = errors.New("watch not supported by this source")
)

// ContentPolicyError reports a content-policy rejection: the story idea
// matched a blocked safety category, or the model itself refused the
// prompt. It is never retried and never falls back; callers present it
// distinctly from generic failures.
type ContentPolicyError struct {
	// Category is the blocked category that matched. Empty when the
	// rejection came from the model's own safety filter rather than the
	// keyword screen.
	Category SafetyCategory

	// Term is the keyword or phrase that triggered the rejection, or the
	// model's block reason.
	Term string
}

// Error implements the error interface.
func (e *ContentPolicyError) Error() string {
	if e.Category == "" {
		return fmt.Sprintf("content policy: rejected by the model's safety filter (%s)", e.Term)
	}
	return fmt.Sprintf("content policy: idea rejected by blocked category %q (matched %q)", e.Category, e.Term)
}

// IsContentPolicy reports whether err is (or wraps) a content-policy
// rejection.
func IsContentPolicy(err error) bool {
	var cpe *ContentPolicyError
	return errors.As(err, &cpe)
}

// RateLimitError reports a provider rate limit with an optional reset hint.
// It unwraps to ErrRateLimited and is treated as transient.
type RateLimitError struct {
	// Provider is the service that limited the call.
	Provider string

	// RetryAfter is the suggested wait, zero when the provider gave none.
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s: rate limited, retry after %s", e.Provider, e.RetryAfter)
	}
	return fmt.Sprintf("%s: rate limited", e.Provider)
}

// Unwrap lets errors.Is(err, ErrRateLimited) match.
func (e *RateLimitError) Unwrap() error {
	return ErrRateLimited
}
