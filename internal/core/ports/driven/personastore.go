package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/fabula/internal/core/domain"
)

// PersonaStore persists personas, their chunk sets, and usage counters.
// Backed by SQLite.
type PersonaStore interface {
	// SavePersona stores or updates a persona. Usage fields are managed
	// exclusively by RecordUsage; updates leave existing counters intact.
	SavePersona(ctx context.Context, persona *domain.Persona) error

	// GetPersona retrieves a persona by ID, document included.
	// Returns ErrPersonaNotFound when the persona does not exist.
	GetPersona(ctx context.Context, id string) (*domain.Persona, error)

	// ListPersonas returns all personas without document bodies.
	ListPersonas(ctx context.Context) ([]domain.Persona, error)

	// DeletePersona removes a persona and its chunks.
	DeletePersona(ctx context.Context, id string) error

	// SaveChunks replaces the stored chunk set for a document version.
	// Chunk sets are written wholesale; there is no partial update.
	SaveChunks(ctx context.Context, personaID, docVersion string, chunks []domain.Chunk) error

	// GetChunks retrieves the chunk set for a document version, embeddings
	// included. An empty slice means no chunks are stored for the version.
	GetChunks(ctx context.Context, personaID, docVersion string) ([]domain.Chunk, error)

	// RecordUsage increments the persona's usage counter and stamps the
	// last-used time. The write is durable before the call returns.
	RecordUsage(ctx context.Context, personaID string, at time.Time) error

	// Close releases resources.
	Close() error
}
