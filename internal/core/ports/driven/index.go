package driven

import (
	"context"

	"github.com/custodia-labs/fabula/internal/core/domain"
)

// IndexBuilder constructs persona indexes. Build receives the complete,
// already-embedded chunk set and returns a finished index: a build either
// produces a whole index or fails, there is no partial publication.
type IndexBuilder interface {
	// Build creates an index over the given chunks. Chunks without an
	// embedding are rejected. An empty chunk slice is valid and yields
	// an index that returns no results.
	Build(ctx context.Context, personaID, version, modelName string, chunks []domain.Chunk) (PersonaIndex, error)
}

// PersonaIndex is an immutable similarity index over one persona's
// reference document. Indexes are replaced wholesale when a document
// changes; they are never mutated in place.
type PersonaIndex interface {
	// PersonaID returns the persona the index was built for.
	PersonaID() string

	// Version returns the document version the index covers.
	Version() string

	// ModelName returns the embedding model that produced the vectors.
	// Queries must be embedded with the same model.
	ModelName() string

	// Size returns the number of indexed chunks.
	Size() int

	// Search finds the k most similar chunks to the query vector,
	// ordered by descending similarity with ties broken by ascending
	// chunk offset. Searching an empty index returns an empty slice.
	Search(ctx context.Context, query []float32, k int) ([]IndexHit, error)

	// Close retires the index. Searches after Close fail with
	// ErrIndexClosed.
	Close() error
}

// IndexHit is a similarity search result.
type IndexHit struct {
	// Chunk is the matched chunk, embedding included.
	Chunk domain.Chunk

	// Similarity is the cosine similarity score.
	Similarity float64
}
