package domain

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"
)

// Chunk is a bounded, overlap-preserving segment of a persona's reference
// document. Chunk sets are rebuilt wholesale when the document changes;
// individual chunks are never patched in place.
type Chunk struct {
	// PersonaID links to the owning Persona.
	PersonaID string

	// Offset is the rune offset of this chunk within the normalised
	// document. Windowing is character-based so multibyte text never
	// splits mid-rune. Offsets are stable across rebuilds of the same
	// document.
	Offset int

	// Text is the chunk's span of the document.
	Text string

	// Embedding is the vector representation for similarity search.
	// Nil until the indexer has embedded the chunk.
	Embedding []float32

	// EmbeddingModel names the model that produced Embedding. Persisted
	// vectors are reused only when the configured model matches.
	EmbeddingModel string
}

// ID returns the stable offset-based chunk identifier.
func (c Chunk) ID() string {
	return fmt.Sprintf("%s:%08d", c.PersonaID, c.Offset)
}

// End returns the rune offset one past the chunk's last rune.
func (c Chunk) End() int {
	return c.Offset + utf8.RuneCountInString(c.Text)
}

// SortChunks orders chunks by ascending offset in place.
func SortChunks(chunks []Chunk) {
	sort.Slice(chunks, func(i, j int) bool {
		return chunks[i].Offset < chunks[j].Offset
	})
}

// ReassembleDocument concatenates chunks in offset order with overlapping
// spans removed. For a lossless chunking the result reproduces the original
// document exactly; any gap between consecutive chunks is an error.
func ReassembleDocument(chunks []Chunk) (string, error) {
	if len(chunks) == 0 {
		return "", nil
	}

	ordered := make([]Chunk, len(chunks))
	copy(ordered, chunks)
	SortChunks(ordered)

	var b strings.Builder
	covered := 0
	for _, c := range ordered {
		if c.Offset > covered {
			return "", fmt.Errorf("%w: gap between rune %d and chunk at %d", ErrInvalidInput, covered, c.Offset)
		}
		if c.End() <= covered {
			continue // fully inside already-covered span
		}
		runes := []rune(c.Text)
		b.WriteString(string(runes[covered-c.Offset:]))
		covered = c.End()
	}
	return b.String(), nil
}
