package driven

import "context"

// Normaliser transforms a raw persona document file into plain reference
// text. Each normaliser handles specific file extensions (e.g., .md, .txt).
type Normaliser interface {
	// SupportedExtensions returns the file extensions this normaliser
	// handles, lower-case with the leading dot (".md").
	SupportedExtensions() []string

	// Priority returns the selection priority (higher = preferred).
	// Format-specific normalisers should return 50-89.
	// Fallback normalisers should return 1-9.
	Priority() int

	// Normalise converts file content into plain text suitable for
	// chunking and embedding.
	Normalise(ctx context.Context, filename string, data []byte) (string, error)
}
