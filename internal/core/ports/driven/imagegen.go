package driven

import (
	"context"

	"github.com/custodia-labs/fabula/internal/core/domain"
)

// ImageProvider generates an image from a prompt. Providers are arranged
// in a fixed priority chain; when one fails the next is tried, and only
// when every provider has failed does the operation fail.
//
// Implementations may include:
//   - Pollinations (flux)
//   - Placeholder (deterministic local SVG, never fails)
type ImageProvider interface {
	// Name returns the provider identifier used in provenance and errors.
	Name() string

	// Generate produces an image for the prompt.
	Generate(ctx context.Context, prompt string, opts domain.ImageOptions) (*domain.Image, error)
}
