package driven

import "github.com/custodia-labs/fabula/internal/core/domain"

// AIConfigValidator validates AI provider configurations.
// Implementations verify that configurations are valid by testing connectivity
// to the underlying AI services.
type AIConfigValidator interface {
	// ValidateEmbedding validates an embedding configuration by pinging the provider.
	// Returns nil if configuration is valid or not configured.
	ValidateEmbedding(config *domain.EmbeddingSettings) error

	// ValidateStoryModel validates a generative model configuration by pinging the provider.
	// Returns nil if configuration is valid or not configured.
	ValidateStoryModel(config *domain.ModelSettings) error

	// ValidateRerank validates a reranker configuration by pinging the provider.
	// Returns nil if configuration is valid or not configured.
	ValidateRerank(config *domain.RerankSettings) error
}
