// Package postprocessors provides model output refinement implementations.
package postprocessors

import (
	"context"
	"fmt"

	"github.com/custodia-labs/fabula/internal/core/domain"
	"github.com/custodia-labs/fabula/internal/core/ports/driven"
)

// Pipeline chains multiple OutputProcessors and runs them in order.
// It implements the OutputPipeline interface.
type Pipeline struct {
	processors []driven.OutputProcessor
}

// NewPipeline creates a new processing pipeline with the given processors.
// Processors are executed in the order provided.
func NewPipeline(processors ...driven.OutputProcessor) *Pipeline {
	return &Pipeline{
		processors: processors,
	}
}

// Process runs the raw model text through all processors in order.
// The first processor receives the raw text as the story; subsequent
// processors see their predecessors' output.
func (p *Pipeline) Process(ctx context.Context, raw string) (string, string, error) {
	result := &domain.GenerationResult{Story: raw}

	for _, processor := range p.processors {
		if err := processor.Process(ctx, result); err != nil {
			return "", "", fmt.Errorf("processor %s: %w", processor.Name(), err)
		}
	}

	return result.Story, result.ImagePrompt, nil
}

// Add appends a processor to the pipeline.
func (p *Pipeline) Add(processor driven.OutputProcessor) {
	p.processors = append(p.processors, processor)
}

// Len returns the number of processors in the pipeline.
func (p *Pipeline) Len() int {
	return len(p.processors)
}
