package driven

import (
	"context"

	"github.com/custodia-labs/fabula/internal/core/domain"
)

// StoryModel generates narrative text from a fully assembled prompt.
//
// Implementations may include:
//   - Gemini (gemini-1.5-flash-latest)
//   - OpenAI (gpt-4o-mini)
//   - Anthropic (claude-3-5-sonnet-latest)
//   - Ollama (local models)
type StoryModel interface {
	// Generate produces text for the prompt. The returned output carries
	// token usage when the provider reported it; Usage is nil otherwise
	// and the caller estimates.
	Generate(ctx context.Context, prompt string, params domain.GenerationParams) (*ModelOutput, error)

	// ModelName returns the name of the generative model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// ModelOutput is the raw result of one generation call.
type ModelOutput struct {
	// Text is the generated completion.
	Text string

	// Usage is the provider-reported token accounting, nil when the
	// response carried none.
	Usage *domain.TokenUsage
}
