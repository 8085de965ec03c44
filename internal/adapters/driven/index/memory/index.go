// Package memory provides an in-process persona index with exact
// brute-force cosine search. Persona documents are small enough that
// exact search over a few hundred vectors beats maintaining an ANN
// structure; rebuilds are cheap and publication is a pointer swap.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/custodia-labs/fabula/internal/core/domain"
	"github.com/custodia-labs/fabula/internal/core/ports/driven"
)

// Ensure the builder and index implement the interfaces.
var (
	_ driven.IndexBuilder = (*Builder)(nil)
	_ driven.PersonaIndex = (*Index)(nil)
)

// Builder constructs in-memory persona indexes.
type Builder struct{}

// NewBuilder creates an index builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Build creates an index over the given chunks. Every chunk must carry an
// embedding; dimensions must agree. An empty chunk slice yields a valid
// index that returns no results.
func (b *Builder) Build(
	_ context.Context, personaID, version, modelName string, chunks []domain.Chunk,
) (driven.PersonaIndex, error) {
	dims := 0
	for _, c := range chunks {
		if len(c.Embedding) == 0 {
			return nil, fmt.Errorf("%w: chunk %s has no embedding", domain.ErrInvalidInput, c.ID())
		}
		if dims == 0 {
			dims = len(c.Embedding)
		} else if len(c.Embedding) != dims {
			return nil, fmt.Errorf("%w: chunk %s has %d dims, expected %d",
				domain.ErrInvalidInput, c.ID(), len(c.Embedding), dims)
		}
	}

	owned := make([]domain.Chunk, len(chunks))
	copy(owned, chunks)
	domain.SortChunks(owned)

	norms := make([]float64, len(owned))
	for i, c := range owned {
		norms[i] = norm(c.Embedding)
	}

	return &Index{
		personaID: personaID,
		version:   version,
		modelName: modelName,
		dims:      dims,
		chunks:    owned,
		norms:     norms,
	}, nil
}

// Index is an immutable in-memory similarity index for one persona.
type Index struct {
	personaID string
	version   string
	modelName string
	dims      int
	chunks    []domain.Chunk
	norms     []float64

	mu     sync.RWMutex
	closed bool
}

// PersonaID returns the persona the index was built for.
func (i *Index) PersonaID() string {
	return i.personaID
}

// Version returns the document version the index covers.
func (i *Index) Version() string {
	return i.version
}

// ModelName returns the embedding model that produced the vectors.
func (i *Index) ModelName() string {
	return i.modelName
}

// Size returns the number of indexed chunks.
func (i *Index) Size() int {
	return len(i.chunks)
}

// Search finds the k most similar chunks to the query vector, ordered by
// descending similarity with ties broken by ascending chunk offset.
func (i *Index) Search(_ context.Context, query []float32, k int) ([]driven.IndexHit, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	if i.closed {
		return nil, domain.ErrIndexClosed
	}
	if k <= 0 || len(i.chunks) == 0 {
		return []driven.IndexHit{}, nil
	}
	if len(query) != i.dims {
		return nil, fmt.Errorf("%w: query has %d dims, index has %d",
			domain.ErrInvalidInput, len(query), i.dims)
	}

	qnorm := norm(query)

	hits := make([]driven.IndexHit, len(i.chunks))
	for idx, c := range i.chunks {
		hits[idx] = driven.IndexHit{
			Chunk:      c,
			Similarity: cosine(query, qnorm, c.Embedding, i.norms[idx]),
		}
	}

	sort.SliceStable(hits, func(a, b int) bool {
		if hits[a].Similarity != hits[b].Similarity {
			return hits[a].Similarity > hits[b].Similarity
		}
		return hits[a].Chunk.Offset < hits[b].Chunk.Offset
	})

	if k > len(hits) {
		k = len(hits)
	}
	return hits[:k], nil
}

// Close retires the index. Searches after Close fail with ErrIndexClosed.
func (i *Index) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.closed = true
	return nil
}

// norm computes the L2 norm of a vector.
func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// cosine computes cosine similarity given precomputed norms.
// Zero-norm vectors have similarity 0 to everything.
func cosine(a []float32, anorm float64, b []float32, bnorm float64) float64 {
	if anorm == 0 || bnorm == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (anorm * bnorm)
}
