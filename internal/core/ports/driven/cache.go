package driven

import (
	"context"

	"github.com/custodia-labs/fabula/internal/core/domain"
)

// ResponseCache stores generation results keyed by persona, normalised
// idea, and parameter fingerprint (see domain.CacheKey). This is an
// optional service - when nil, every request runs the full pipeline.
//
// Entry lifetime and capacity policy (TTL, LRU) belong to the
// implementation and are fixed at construction.
type ResponseCache interface {
	// Get retrieves a cached result. The boolean is false on a miss or
	// an expired entry. Returned results are safe to mutate.
	Get(ctx context.Context, key string) (*domain.GenerationResult, bool, error)

	// Set stores a result under the key.
	Set(ctx context.Context, key string, result *domain.GenerationResult) error

	// InvalidatePersona drops every entry for the persona. Called when a
	// persona's document or parameters change.
	InvalidatePersona(ctx context.Context, personaID string) error

	// Close releases resources.
	Close() error
}
