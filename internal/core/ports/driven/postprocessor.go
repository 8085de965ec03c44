package driven

import (
	"context"

	"github.com/custodia-labs/fabula/internal/core/domain"
)

// OutputProcessor refines raw model output into final result fields.
// Processors are chained in a pipeline (e.g., image-prompt extraction,
// whitespace cleanup) and mutate the result in place.
type OutputProcessor interface {
	// Name returns the processor name for logging and configuration.
	Name() string

	// Process refines the result. The first processor receives the raw
	// model text in result.Story; later processors see their
	// predecessors' output.
	Process(ctx context.Context, result *domain.GenerationResult) error
}

// OutputPipeline chains multiple OutputProcessors.
type OutputPipeline interface {
	// Process runs the raw model text through all processors in order
	// and returns the refined result fields.
	Process(ctx context.Context, raw string) (story, imagePrompt string, err error)
}
