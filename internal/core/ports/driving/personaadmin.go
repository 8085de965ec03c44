package driving

import (
	"context"

	"github.com/custodia-labs/fabula/internal/core/domain"
)

// PersonaService manages stored personas.
type PersonaService interface {
	// List returns all stored personas without document bodies.
	List(ctx context.Context) ([]domain.Persona, error)

	// Get retrieves a persona by ID, document included.
	Get(ctx context.Context, id string) (*domain.Persona, error)

	// Import scans the configured sources and stores new or changed
	// persona definitions. Changed personas have their indexes and
	// cached responses invalidated.
	Import(ctx context.Context) (*ImportReport, error)

	// Remove deletes a persona, its chunks, its index, and its cached
	// responses.
	Remove(ctx context.Context, id string) error

	// Watch runs the source watch loop, importing definition changes as
	// they happen. Blocks until ctx is cancelled.
	Watch(ctx context.Context) error
}

// ImportReport summarises one import run.
type ImportReport struct {
	// Created is the number of new personas stored.
	Created int

	// Updated is the number of personas whose definition changed.
	Updated int

	// Unchanged is the number of personas already up to date.
	Unchanged int

	// Failed lists persona IDs that could not be imported.
	Failed []string
}
