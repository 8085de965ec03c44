package ai

import (
	"context"

	"github.com/custodia-labs/fabula/internal/core/domain"
	"github.com/custodia-labs/fabula/internal/core/ports/driven"
)

// Ensure ConfigValidator implements the interface.
var _ driven.AIConfigValidator = (*ConfigValidator)(nil)

// ConfigValidator validates AI provider configurations.
type ConfigValidator struct{}

// NewConfigValidator creates a new AI config validator.
func NewConfigValidator() *ConfigValidator {
	return &ConfigValidator{}
}

// ValidateEmbedding validates an embedding configuration by pinging the provider.
func (v *ConfigValidator) ValidateEmbedding(config *domain.EmbeddingSettings) error {
	return ValidateEmbeddingConfig(context.Background(), config)
}

// ValidateStoryModel validates a generative model configuration by pinging the provider.
func (v *ConfigValidator) ValidateStoryModel(config *domain.ModelSettings) error {
	return ValidateStoryModelConfig(context.Background(), config)
}

// ValidateRerank validates a reranker configuration by pinging the provider.
func (v *ConfigValidator) ValidateRerank(config *domain.RerankSettings) error {
	return ValidateRerankConfig(config)
}
