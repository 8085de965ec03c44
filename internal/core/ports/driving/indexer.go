package driving

import "context"

// IndexOrchestrator coordinates persona index builds.
type IndexOrchestrator interface {
	// Index builds (or reuses) the index for one persona and returns a
	// report of what was done.
	Index(ctx context.Context, personaID string) (*IndexReport, error)

	// IndexAll indexes every stored persona.
	IndexAll(ctx context.Context) ([]IndexReport, error)

	// Status returns the indexing status for a persona.
	Status(ctx context.Context, personaID string) (*IndexStatus, error)
}

// IndexReport summarises one index build.
type IndexReport struct {
	// PersonaID identifies the persona.
	PersonaID string

	// Version is the document version the index covers.
	Version string

	// Chunks is the number of chunks in the published index.
	Chunks int

	// Dropped is the number of chunks skipped after embedding failures.
	Dropped int

	// Reused is true when a current index already existed and no build ran.
	Reused bool

	// EmbeddingModel is the model the vectors were produced with.
	EmbeddingModel string
}

// IndexStatus represents the current indexing state of a persona.
type IndexStatus struct {
	// PersonaID identifies the persona.
	PersonaID string

	// Running indicates if a build is currently in progress.
	Running bool

	// Indexed indicates an index is published for the current document
	// version.
	Indexed bool

	// Version is the published index's document version, empty when
	// nothing is published.
	Version string

	// Chunks is the size of the published index.
	Chunks int
}
