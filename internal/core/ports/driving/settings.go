package driving

import "github.com/custodia-labs/fabula/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get retrieves current application settings.
	Get() (*domain.AppSettings, error)

	// Save persists application settings.
	Save(settings *domain.AppSettings) error

	// SetEmbeddingProvider configures the embedding provider.
	SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error

	// SetStoryProvider configures the primary generative model provider.
	SetStoryProvider(provider domain.AIProvider, model, apiKey string) error

	// SetFallbackProvider configures the fallback generative model provider.
	SetFallbackProvider(provider domain.AIProvider, model, apiKey string) error

	// SetRerankProvider configures the reranker, RerankNone to disable.
	SetRerankProvider(provider domain.RerankProvider, model, apiKey string) error

	// SetCacheBackend configures the response cache backend.
	SetCacheBackend(backend domain.CacheBackend, redisURL string) error

	// Validate checks if current settings are valid.
	Validate() error

	// GetDefaults returns default settings.
	GetDefaults() domain.AppSettings

	// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
	ValidateEmbeddingConfig() error

	// ValidateStoryConfig validates the current generative model configuration by pinging the provider.
	ValidateStoryConfig() error
}
