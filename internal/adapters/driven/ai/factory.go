// Package ai provides factory functions for creating AI service adapters.
package ai

import (
	"context"
	"fmt"
	"time"

	memcache "github.com/custodia-labs/fabula/internal/adapters/driven/cache/memory"
	rediscache "github.com/custodia-labs/fabula/internal/adapters/driven/cache/redis"
	geminiembed "github.com/custodia-labs/fabula/internal/adapters/driven/embedding/gemini"
	ollamaembed "github.com/custodia-labs/fabula/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/fabula/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/fabula/internal/adapters/driven/image/placeholder"
	"github.com/custodia-labs/fabula/internal/adapters/driven/image/pollinations"
	anthropicllm "github.com/custodia-labs/fabula/internal/adapters/driven/llm/anthropic"
	geminillm "github.com/custodia-labs/fabula/internal/adapters/driven/llm/gemini"
	ollamallm "github.com/custodia-labs/fabula/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/fabula/internal/adapters/driven/llm/openai"
	cohererank "github.com/custodia-labs/fabula/internal/adapters/driven/rerank/cohere"
	"github.com/custodia-labs/fabula/internal/core/domain"
	"github.com/custodia-labs/fabula/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// InitResult contains the result of AI service initialisation.
type InitResult struct {
	EmbeddingService driven.EmbeddingService
	StoryModel       driven.StoryModel
	FallbackModel    driven.StoryModel
	RerankService    driven.RerankService
	ImageProviders   []driven.ImageProvider
	ResponseCache    driven.ResponseCache
	Warnings         []string // Non-fatal issues that caused degraded modes.
	FellBack         bool     // True if story generation is unavailable (persona management still works).
}

// Close releases all resources held by InitResult.
func (r *InitResult) Close() {
	if r.EmbeddingService != nil {
		r.EmbeddingService.Close()
	}
	if r.StoryModel != nil {
		r.StoryModel.Close()
	}
	if r.FallbackModel != nil {
		r.FallbackModel.Close()
	}
	if r.RerankService != nil {
		r.RerankService.Close()
	}
	if r.ResponseCache != nil {
		r.ResponseCache.Close()
	}
}

// InitServices builds every configured AI service from settings. Failures
// degrade rather than abort: an unreachable optional service becomes a
// warning and a nil slot, and FellBack is set when the services the story
// pipeline needs could not be brought up.
func InitServices(ctx context.Context, settings *domain.AppSettings) *InitResult {
	result := &InitResult{}

	embedding, err := CreateAndValidateEmbeddingService(ctx, &settings.Embedding)
	if err != nil {
		result.Warnings = append(result.Warnings, err.Error())
		result.FellBack = true
	}
	result.EmbeddingService = embedding

	primary, err := CreateAndValidateStoryModel(ctx, &settings.Generation.Primary)
	if err != nil {
		result.Warnings = append(result.Warnings, err.Error())
	}
	result.StoryModel = primary
	if primary == nil {
		result.FellBack = true
	}

	// The fallback model is best-effort: a broken fallback never blocks
	// the primary.
	fallback, err := CreateAndValidateStoryModel(ctx, &settings.Generation.Fallback)
	if err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("fallback model disabled: %v", err))
	}
	result.FallbackModel = fallback

	reranker, err := CreateAndValidateRerankService(&settings.Rerank)
	if err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("reranker disabled: %v", err))
	}
	result.RerankService = reranker

	providers, err := CreateImageProviders(&settings.Image)
	if err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("image providers: %v", err))
	}
	result.ImageProviders = providers

	cache, err := CreateResponseCache(&settings.Cache)
	if err != nil {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("%v (using in-memory response cache)", err))
		cache = memcache.New(
			memcache.WithTTL(settings.Cache.TTL),
			memcache.WithMaxEntries(settings.Cache.MaxEntries),
		)
	}
	result.ResponseCache = cache

	return result
}

// CreateAndValidateEmbeddingService creates an embedding service and validates connectivity.
// Returns the service if successful, or an error with guidance.
func CreateAndValidateEmbeddingService(
	ctx context.Context, settings *domain.EmbeddingSettings,
) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	svc, err := CreateEmbeddingService(ctx, settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. Run 'fabula settings' to fix",
			domain.ErrEmbeddingUnavailable, err)
	}

	if svc == nil {
		return nil, nil
	}

	// Validate connectivity.
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := svc.Ping(pingCtx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w). Run 'fabula settings' to fix",
			domain.ErrEmbeddingUnavailable, err)
	}

	return svc, nil
}

// CreateAndValidateStoryModel creates a story model and validates connectivity.
// Returns the service if successful, or an error with guidance.
func CreateAndValidateStoryModel(
	ctx context.Context, settings *domain.ModelSettings,
) (driven.StoryModel, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	svc, err := CreateStoryModel(ctx, settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. Run 'fabula settings' to fix",
			domain.ErrModelUnavailable, err)
	}

	if svc == nil {
		return nil, nil
	}

	// Validate connectivity.
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := svc.Ping(pingCtx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w). Run 'fabula settings' to fix",
			domain.ErrModelUnavailable, err)
	}

	return svc, nil
}

// CreateAndValidateRerankService creates a reranker and validates connectivity.
// Returns the service if successful, or an error with guidance.
func CreateAndValidateRerankService(settings *domain.RerankSettings) (driven.RerankService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	svc, err := CreateRerankService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrRerankUnavailable, err)
	}

	if svc == nil {
		return nil, nil
	}

	// Validate connectivity.
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w)", domain.ErrRerankUnavailable, err)
	}

	return svc, nil
}

// ValidateEmbeddingConfig validates an embedding configuration by creating a service and pinging it.
// This is intended for use in the settings commands to validate credentials on configuration.
func ValidateEmbeddingConfig(ctx context.Context, settings *domain.EmbeddingSettings) error {
	if settings == nil || !settings.IsConfigured() {
		return nil
	}

	svc, err := CreateEmbeddingService(ctx, settings)
	if err != nil {
		return err
	}
	if svc == nil {
		return nil
	}
	defer svc.Close()

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return svc.Ping(pingCtx)
}

// ValidateStoryModelConfig validates a model configuration by creating a service and pinging it.
// This is intended for use in the settings commands to validate credentials on configuration.
func ValidateStoryModelConfig(ctx context.Context, settings *domain.ModelSettings) error {
	if settings == nil || !settings.IsConfigured() {
		return nil
	}

	svc, err := CreateStoryModel(ctx, settings)
	if err != nil {
		return err
	}
	if svc == nil {
		return nil
	}
	defer svc.Close()

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return svc.Ping(pingCtx)
}

// ValidateRerankConfig validates a reranker configuration by creating a service and pinging it.
func ValidateRerankConfig(settings *domain.RerankSettings) error {
	if settings == nil || !settings.IsConfigured() {
		return nil
	}

	svc, err := CreateRerankService(settings)
	if err != nil {
		return err
	}
	if svc == nil {
		return nil
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return svc.Ping(ctx)
}

// CreateEmbeddingService creates the appropriate embedding service based on settings.
// Returns nil if the provider is not configured.
func CreateEmbeddingService(ctx context.Context, settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderGemini:
		return createGeminiEmbedding(ctx, settings)

	case domain.AIProviderOllama:
		return createOllamaEmbedding(settings), nil

	case domain.AIProviderOpenAI:
		return createOpenAIEmbedding(settings)

	case domain.AIProviderAnthropic:
		// Anthropic does not support embeddings.
		return nil, fmt.Errorf("anthropic does not support embeddings, use gemini, openai or ollama")

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", settings.Provider)
	}
}

// CreateStoryModel creates the appropriate generative model client based on settings.
// Returns nil if the provider is not configured.
func CreateStoryModel(ctx context.Context, settings *domain.ModelSettings) (driven.StoryModel, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderGemini:
		return createGeminiModel(ctx, settings)

	case domain.AIProviderOllama:
		return createOllamaModel(settings), nil

	case domain.AIProviderOpenAI:
		return createOpenAIModel(settings)

	case domain.AIProviderAnthropic:
		return createAnthropicModel(settings)

	default:
		return nil, fmt.Errorf("unsupported story model provider: %s", settings.Provider)
	}
}

// CreateRerankService creates the appropriate reranker based on settings.
// Returns nil if reranking is disabled or not configured.
func CreateRerankService(settings *domain.RerankSettings) (driven.RerankService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.RerankCohere:
		return cohererank.NewRerankService(cohererank.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	default:
		return nil, fmt.Errorf("unsupported rerank provider: %s", settings.Provider)
	}
}

// CreateImageProviders builds the priority-ordered image provider chain.
// Unknown provider names fail construction rather than silently vanish
// from the chain.
func CreateImageProviders(settings *domain.ImageSettings) ([]driven.ImageProvider, error) {
	if settings == nil {
		return nil, nil
	}

	providers := make([]driven.ImageProvider, 0, len(settings.Providers))
	for _, name := range settings.Providers {
		switch name {
		case "pollinations":
			providers = append(providers, pollinations.New(pollinations.Config{
				BaseURL: settings.BaseURL,
				Model:   settings.Model,
				Timeout: settings.Timeout,
			}))

		case "placeholder":
			providers = append(providers, placeholder.New())

		default:
			return nil, fmt.Errorf("unsupported image provider: %s", name)
		}
	}
	return providers, nil
}

// CreateResponseCache creates the configured response cache backend.
func CreateResponseCache(settings *domain.CacheSettings) (driven.ResponseCache, error) {
	if settings == nil {
		return memcache.New(), nil
	}

	switch settings.Backend {
	case domain.CacheRedis:
		cache, err := rediscache.New(settings.RedisURL, rediscache.WithTTL(settings.TTL))
		if err != nil {
			return nil, fmt.Errorf("redis response cache: %w", err)
		}
		return cache, nil

	case domain.CacheMemory, "":
		return memcache.New(
			memcache.WithTTL(settings.TTL),
			memcache.WithMaxEntries(settings.MaxEntries),
		), nil

	default:
		return nil, fmt.Errorf("unsupported cache backend: %s", settings.Backend)
	}
}

// createGeminiEmbedding creates a Gemini embedding service.
func createGeminiEmbedding(ctx context.Context, settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	dimensions := domain.EmbeddingDimensions()[settings.Model]

	return geminiembed.NewEmbeddingService(ctx, geminiembed.Config{
		APIKey:     settings.APIKey,
		Model:      settings.Model,
		Dimensions: dimensions,
	})
}

// createOllamaEmbedding creates an Ollama embedding service.
func createOllamaEmbedding(settings *domain.EmbeddingSettings) driven.EmbeddingService {
	dimensions := domain.EmbeddingDimensions()[settings.Model]
	if dimensions == 0 {
		dimensions = ollamaembed.DefaultDimensions
	}

	return ollamaembed.NewEmbeddingService(ollamaembed.Config{
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Dimensions: dimensions,
	})
}

// createOpenAIEmbedding creates an OpenAI embedding service.
func createOpenAIEmbedding(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	dimensions := domain.EmbeddingDimensions()[settings.Model]

	return openaiembed.NewEmbeddingService(openaiembed.Config{
		APIKey:     settings.APIKey,
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Dimensions: dimensions,
	})
}

// createGeminiModel creates a Gemini story model.
func createGeminiModel(ctx context.Context, settings *domain.ModelSettings) (driven.StoryModel, error) {
	return geminillm.NewStoryModel(ctx, geminillm.Config{
		APIKey: settings.APIKey,
		Model:  settings.Model,
	})
}

// createOllamaModel creates an Ollama story model.
func createOllamaModel(settings *domain.ModelSettings) driven.StoryModel {
	return ollamallm.NewStoryModel(ollamallm.Config{
		BaseURL: settings.BaseURL,
		Model:   settings.Model,
	})
}

// createOpenAIModel creates an OpenAI story model.
func createOpenAIModel(settings *domain.ModelSettings) (driven.StoryModel, error) {
	return openaillm.NewStoryModel(openaillm.Config{
		APIKey:  settings.APIKey,
		BaseURL: settings.BaseURL,
		Model:   settings.Model,
	})
}

// createAnthropicModel creates an Anthropic story model.
func createAnthropicModel(settings *domain.ModelSettings) (driven.StoryModel, error) {
	return anthropicllm.NewStoryModel(anthropicllm.Config{
		APIKey:  settings.APIKey,
		BaseURL: settings.BaseURL,
		Model:   settings.Model,
	})
}
