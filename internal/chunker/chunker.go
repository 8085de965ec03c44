// Package chunker provides fixed-window persona document chunking.
package chunker

import (
	"github.com/custodia-labs/fabula/internal/core/domain"
)

// DefaultChunkSize is the default window length in runes.
const DefaultChunkSize = 700

// DefaultChunkOverlap is the default number of runes shared between
// consecutive chunks.
const DefaultChunkOverlap = 120

// Splitter cuts a document into fixed-size overlapping windows. Windows
// are measured in runes so multibyte text never splits mid-character.
// The chunk set always covers the whole document: concatenating the
// chunks with overlaps removed reproduces the input exactly.
type Splitter struct {
	chunkSize int
	overlap   int
}

// Option configures the splitter.
type Option func(*Splitter)

// WithChunkSize sets the window length in runes.
func WithChunkSize(size int) Option {
	return func(s *Splitter) {
		if size > 0 {
			s.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between windows in runes.
func WithOverlap(overlap int) Option {
	return func(s *Splitter) {
		if overlap >= 0 {
			s.overlap = overlap
		}
	}
}

// New creates a splitter with the given options.
func New(opts ...Option) *Splitter {
	s := &Splitter{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(s)
	}

	// Ensure overlap doesn't exceed chunk size
	if s.overlap >= s.chunkSize {
		s.overlap = s.chunkSize / 4
	}

	return s
}

// ChunkSize returns the configured window length.
func (s *Splitter) ChunkSize() int {
	return s.chunkSize
}

// Overlap returns the configured window overlap.
func (s *Splitter) Overlap() int {
	return s.overlap
}

// Split cuts content into chunks for the persona. Empty content yields
// no chunks, which is valid: an empty document produces an empty index.
func (s *Splitter) Split(personaID, content string) []domain.Chunk {
	if content == "" {
		return nil
	}

	runes := []rune(content)
	total := len(runes)
	step := s.chunkSize - s.overlap

	chunks := make([]domain.Chunk, 0, total/step+1)
	for start := 0; start < total; start += step {
		end := start + s.chunkSize
		if end > total {
			end = total
		}

		chunks = append(chunks, domain.Chunk{
			PersonaID: personaID,
			Offset:    start,
			Text:      string(runes[start:end]),
		})

		// The final window reaches the end of the document; a further
		// step would only produce a window contained in this one.
		if end == total {
			break
		}
	}

	return chunks
}
