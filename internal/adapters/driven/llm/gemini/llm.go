// Package gemini provides a story model adapter using the Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/custodia-labs/fabula/internal/core/domain"
	"github.com/custodia-labs/fabula/internal/core/ports/driven"
)

// Ensure StoryModel implements the interface.
var _ driven.StoryModel = (*StoryModel)(nil)

// DefaultModel is the model used when none is configured.
const DefaultModel = "gemini-1.5-flash-latest"

// Config holds configuration for the Gemini story model.
type Config struct {
	// APIKey is the Gemini API key (required).
	APIKey string

	// Model is the generative model to use (default: gemini-1.5-flash-latest).
	Model string
}

// StoryModel generates narrative text using the Gemini API.
type StoryModel struct {
	client *genai.Client
	model  string
}

// NewStoryModel creates a new Gemini story model.
func NewStoryModel(ctx context.Context, cfg Config) (*StoryModel, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}

	return &StoryModel{
		client: client,
		model:  cfg.Model,
	}, nil
}

// Generate produces text for the prompt.
func (s *StoryModel) Generate(ctx context.Context, prompt string, params domain.GenerationParams) (*driven.ModelOutput, error) {
	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(params.Temperature)),
		TopP:            genai.Ptr(float32(params.TopP)),
		MaxOutputTokens: int32(params.MaxOutputTokens),
	}
	if params.TopK > 0 {
		config.TopK = genai.Ptr(float32(params.TopK))
	}
	if params.PresencePenalty != 0 {
		config.PresencePenalty = genai.Ptr(float32(params.PresencePenalty))
	}
	if params.FrequencyPenalty != 0 {
		config.FrequencyPenalty = genai.Ptr(float32(params.FrequencyPenalty))
	}

	resp, err := s.client.Models.GenerateContent(ctx, s.model, genai.Text(prompt), config)
	if err != nil {
		return nil, mapError(err)
	}

	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockedReasonUnspecified {
		return nil, &domain.ContentPolicyError{Term: string(resp.PromptFeedback.BlockReason)}
	}
	if len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("gemini: no candidates returned")
	}

	cand := resp.Candidates[0]
	switch cand.FinishReason {
	case genai.FinishReasonSafety, genai.FinishReasonProhibitedContent, genai.FinishReasonBlocklist:
		return nil, &domain.ContentPolicyError{Term: string(cand.FinishReason)}
	}
	if cand.Content == nil || len(cand.Content.Parts) == 0 {
		return nil, fmt.Errorf("gemini: candidate carried no content")
	}

	var text strings.Builder
	for _, part := range cand.Content.Parts {
		text.WriteString(part.Text)
	}

	out := &driven.ModelOutput{Text: text.String()}
	if resp.UsageMetadata != nil {
		out.Usage = &domain.TokenUsage{
			InputTokens:  int(resp.UsageMetadata.PromptTokenCount),
			OutputTokens: int(resp.UsageMetadata.CandidatesTokenCount),
		}
	}
	return out, nil
}

// ModelName returns the name of the generative model being used.
func (s *StoryModel) ModelName() string {
	return s.model
}

// Ping validates the service is reachable by counting tokens for a short
// text. This validates the API key and the model name without generating.
func (s *StoryModel) Ping(ctx context.Context) error {
	if _, err := s.client.Models.CountTokens(ctx, s.model, genai.Text("ping"), nil); err != nil {
		return fmt.Errorf("gemini: ping failed: %w", err)
	}
	return nil
}

// Close releases resources.
func (s *StoryModel) Close() error {
	// The genai client holds no connections that need explicit cleanup
	return nil
}

// mapError translates Gemini API failures into the domain error taxonomy.
func mapError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusTooManyRequests:
			return &domain.RateLimitError{Provider: "gemini"}
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: gemini rejected the API key: %s", domain.ErrInvalidConfig, apiErr.Message)
		case http.StatusNotFound:
			return fmt.Errorf("%w: %s", domain.ErrModelUnavailable, apiErr.Message)
		}
		return fmt.Errorf("gemini error (status %d): %s", apiErr.Code, apiErr.Message)
	}
	return fmt.Errorf("gemini: %w", err)
}
