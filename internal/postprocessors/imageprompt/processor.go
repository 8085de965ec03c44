// Package imageprompt provides a processor that splits the marked image
// prompt out of raw model output.
package imageprompt

import (
	"context"
	"strings"

	"github.com/custodia-labs/fabula/internal/core/domain"
)

// DefaultMarker is the line prefix the assembler instructs models to emit
// before the image prompt.
const DefaultMarker = domain.ImagePromptMarker

// Processor extracts the marked image prompt from the story text.
// It implements the OutputProcessor interface.
type Processor struct {
	marker string
}

// Option configures the image prompt processor.
type Option func(*Processor)

// WithMarker overrides the marker the processor splits on.
func WithMarker(marker string) Option {
	return func(p *Processor) {
		if strings.TrimSpace(marker) != "" {
			p.marker = marker
		}
	}
}

// New creates a new image prompt processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		marker: DefaultMarker,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "imageprompt"
}

// Process splits the story on the marker. Text before the marker stays the
// story; text after it becomes the image prompt, flattened to one line.
// Without the marker the story is left whole and the image prompt empty,
// so the generation client can derive one.
func (p *Processor) Process(_ context.Context, result *domain.GenerationResult) error {
	before, after, found := strings.Cut(result.Story, p.marker)
	if !found {
		return nil
	}

	result.Story = strings.TrimSpace(before)
	result.ImagePrompt = strings.Join(strings.Fields(after), " ")
	return nil
}
