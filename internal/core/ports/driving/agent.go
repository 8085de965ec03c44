package driving

import (
	"context"

	"github.com/custodia-labs/fabula/internal/core/domain"
)

// StoryAgent coordinates the full generation pipeline for external actors.
// Sessions hold conversation state; all other state (indexes, cache,
// usage counters) is shared across sessions and managed by the agent.
type StoryAgent interface {
	// NewSession opens an empty session with no persona loaded.
	NewSession() *domain.Session

	// LoadPersona binds a persona to the session, building its index if
	// no index for the current document version exists yet. Loading over
	// an already-loaded persona replaces it.
	LoadPersona(ctx context.Context, session *domain.Session, personaID string) error

	// Generate runs retrieve -> rerank -> assemble -> generate for the
	// idea and returns the finished result. Identical concurrent requests
	// are coalesced into one model call; repeated requests inside the
	// cache window are served from cache with no model calls at all.
	Generate(ctx context.Context, session *domain.Session, idea string, opts GenerateOptions) (*domain.GenerationResult, error)

	// GenerateImage renders an image for a prompt, walking the provider
	// chain in priority order.
	GenerateImage(ctx context.Context, prompt string, opts domain.ImageOptions) (*domain.Image, error)

	// PersonaChanged discards the persona's index and cached responses.
	// Called when a persona's document or parameters change.
	PersonaChanged(ctx context.Context, personaID string) error

	// Close releases the agent's indexes and backends.
	Close() error
}

// GenerateOptions adjusts a single generation request.
type GenerateOptions struct {
	// Params overrides the persona's generation parameters when non-nil.
	Params *domain.GenerationParams

	// SkipCache forces a fresh pipeline run even on a cache hit.
	SkipCache bool
}
