package driven

import (
	"context"

	"github.com/custodia-labs/fabula/internal/core/domain"
)

// PersonaSource reads persona definitions from a backing location.
// Each source type (filesystem directory, github repository) implements
// this interface.
type PersonaSource interface {
	// Type returns the source type identifier.
	Type() string

	// Capabilities returns what this source supports.
	Capabilities() SourceCapabilities

	// Validate checks the source is properly configured and reachable.
	// For filesystem sources this checks the directory exists; for API
	// sources it makes a test call.
	Validate(ctx context.Context) error

	// Scan reads all persona definitions from the source.
	Scan(ctx context.Context) ([]domain.PersonaDefinition, error)

	// Watch listens for definition changes. Only available when
	// SupportsWatch is true. The channel closes when ctx is cancelled
	// or the source is closed.
	Watch(ctx context.Context) (<-chan domain.PersonaEvent, error)

	// Close releases resources. Scans after Close fail with
	// ErrSourceClosed.
	Close() error
}

// SourceCapabilities describes what a persona source supports.
type SourceCapabilities struct {
	// SupportsWatch indicates the source can push change events.
	SupportsWatch bool

	// RequiresAuth indicates the source needs a credential.
	// False for local sources like the filesystem.
	RequiresAuth bool

	// SupportsRateLimiting indicates the source throttles its own API
	// calls internally.
	SupportsRateLimiting bool
}
