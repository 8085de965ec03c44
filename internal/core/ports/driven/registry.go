package driven

import "context"

// NormaliserRegistry selects the appropriate normaliser for a persona
// document file. It maintains a priority-ordered list of normalisers and
// dispatches on file extension.
type NormaliserRegistry interface {
	// Normalise converts a file using the best matching normaliser.
	// Files with no matching normaliser fall through to the lowest
	// priority fallback.
	Normalise(ctx context.Context, filename string, data []byte) (string, error)

	// Register adds a normaliser to the registry.
	Register(normaliser Normaliser)

	// SupportedExtensions returns all file extensions that can be
	// normalised.
	SupportedExtensions() []string
}
