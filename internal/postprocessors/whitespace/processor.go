// Package whitespace provides a processor that normalises whitespace in
// generated output.
package whitespace

import (
	"context"
	"strings"

	"github.com/custodia-labs/fabula/internal/core/domain"
)

// DefaultMaxBlankLines is the default number of consecutive blank lines
// kept between paragraphs.
const DefaultMaxBlankLines = 1

// Processor cleans up story whitespace: line endings, trailing spaces and
// runs of blank lines. It implements the OutputProcessor interface.
type Processor struct {
	maxBlankLines int
}

// Option configures the whitespace processor.
type Option func(*Processor)

// WithMaxBlankLines sets how many consecutive blank lines survive.
func WithMaxBlankLines(n int) Option {
	return func(p *Processor) {
		if n >= 0 {
			p.maxBlankLines = n
		}
	}
}

// New creates a new whitespace processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		maxBlankLines: DefaultMaxBlankLines,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "whitespace"
}

// Process normalises the story text in place. The image prompt, when
// present, is flattened to a single line.
func (p *Processor) Process(_ context.Context, result *domain.GenerationResult) error {
	result.Story = p.cleanStory(result.Story)
	if result.ImagePrompt != "" {
		result.ImagePrompt = strings.Join(strings.Fields(result.ImagePrompt), " ")
	}
	return nil
}

// cleanStory normalises line endings, strips trailing spaces per line and
// collapses blank-line runs beyond the configured maximum.
func (p *Processor) cleanStory(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(text, "\n")

	cleaned := make([]string, 0, len(lines))
	blanks := 0
	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		if line == "" {
			blanks++
			if blanks > p.maxBlankLines {
				continue
			}
		} else {
			blanks = 0
		}
		cleaned = append(cleaned, line)
	}

	return strings.TrimSpace(strings.Join(cleaned, "\n"))
}
