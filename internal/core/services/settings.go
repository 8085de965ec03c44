package services

import (
	"fmt"
	"time"

	"github.com/custodia-labs/fabula/internal/core/domain"
	"github.com/custodia-labs/fabula/internal/core/ports/driven"
	"github.com/custodia-labs/fabula/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyChunkSize         = "chunking.size"
	keyChunkOverlap      = "chunking.overlap"
	keyRetrievalTopK     = "retrieval.top_k"
	keyRetrievalFinalK   = "retrieval.final_k"
	keyRetrievalMinScore = "retrieval.threshold"
	keyEmbedProvider     = "embedding.provider"
	keyEmbedModel        = "embedding.model"
	keyEmbedBaseURL      = "embedding.base_url"
	keyEmbedAPIKey       = "embedding.api_key"
	keyRerankProvider    = "rerank.provider"
	keyRerankModel       = "rerank.model"
	keyRerankBaseURL     = "rerank.base_url"
	keyRerankAPIKey      = "rerank.api_key"
	keyPrimaryProvider   = "generation.primary.provider"
	keyPrimaryModel      = "generation.primary.model"
	keyPrimaryBaseURL    = "generation.primary.base_url"
	keyPrimaryAPIKey     = "generation.primary.api_key"
	keyFallbackProvider  = "generation.fallback.provider"
	keyFallbackModel     = "generation.fallback.model"
	keyFallbackBaseURL   = "generation.fallback.base_url"
	keyFallbackAPIKey    = "generation.fallback.api_key"
	keyGenTemperature    = "generation.params.temperature"
	keyGenTopP           = "generation.params.top_p"
	keyGenTopK           = "generation.params.top_k"
	keyGenMaxTokens      = "generation.params.max_output_tokens"
	keyGenPresence       = "generation.params.presence_penalty"
	keyGenFrequency      = "generation.params.frequency_penalty"
	keyGenMaxContext     = "generation.max_context_chars"
	keyGenBackoff        = "generation.backoff"
	keyGenCallTimeout    = "generation.call_timeout"
	keyGenOverallTimeout = "generation.overall_timeout"
	keyGenRPM            = "generation.requests_per_minute"
	keySafetyBlocked     = "safety.blocked"
	prefixSafetyKeywords = "safety.keywords."
	keyImageProviders    = "image.providers"
	keyImageModel        = "image.model"
	keyImageBaseURL      = "image.base_url"
	keyImageTimeout      = "image.timeout"
	keyCacheBackend      = "cache.backend"
	keyCacheTTL          = "cache.ttl"
	keyCacheMaxEntries   = "cache.max_entries"
	keyCacheRedisURL     = "cache.redis_url"
	keyPersonasDir       = "personas.dir"
	keyPersonasGitHub    = "personas.github_token"
)

// defaultOllamaURL is used when a local provider is selected without an
// explicit endpoint.
const defaultOllamaURL = "http://localhost:11434"

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
	}
}

// Get retrieves current application settings.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Chunking: domain.ChunkingSettings{
			Size:    s.getInt(keyChunkSize, defaults.Chunking.Size),
			Overlap: s.getInt(keyChunkOverlap, defaults.Chunking.Overlap),
		},
		Retrieval: domain.RetrievalSettings{
			TopK:      s.getInt(keyRetrievalTopK, defaults.Retrieval.TopK),
			FinalK:    s.getInt(keyRetrievalFinalK, defaults.Retrieval.FinalK),
			Threshold: s.getFloat(keyRetrievalMinScore, defaults.Retrieval.Threshold),
		},
		Embedding: domain.EmbeddingSettings{
			Provider: s.getProvider(keyEmbedProvider, defaults.Embedding.Provider),
			Model:    s.getString(keyEmbedModel, defaults.Embedding.Model),
			BaseURL:  s.configStore.GetString(keyEmbedBaseURL), // No default - empty is valid for cloud providers
			APIKey:   s.configStore.GetString(keyEmbedAPIKey),
		},
		Rerank: domain.RerankSettings{
			Provider: s.getRerankProvider(defaults.Rerank.Provider),
			Model:    s.getString(keyRerankModel, defaults.Rerank.Model),
			BaseURL:  s.configStore.GetString(keyRerankBaseURL),
			APIKey:   s.configStore.GetString(keyRerankAPIKey),
		},
		Generation: domain.GenerationSettings{
			Primary: domain.ModelSettings{
				Provider: s.getProvider(keyPrimaryProvider, defaults.Generation.Primary.Provider),
				Model:    s.getString(keyPrimaryModel, defaults.Generation.Primary.Model),
				BaseURL:  s.configStore.GetString(keyPrimaryBaseURL),
				APIKey:   s.configStore.GetString(keyPrimaryAPIKey),
			},
			Fallback: domain.ModelSettings{
				Provider: s.getProvider(keyFallbackProvider, defaults.Generation.Fallback.Provider),
				Model:    s.getString(keyFallbackModel, defaults.Generation.Fallback.Model),
				BaseURL:  s.configStore.GetString(keyFallbackBaseURL),
				APIKey:   s.configStore.GetString(keyFallbackAPIKey),
			},
			Params: domain.GenerationParams{
				Temperature:      s.getFloat(keyGenTemperature, defaults.Generation.Params.Temperature),
				TopP:             s.getFloat(keyGenTopP, defaults.Generation.Params.TopP),
				TopK:             s.getInt(keyGenTopK, defaults.Generation.Params.TopK),
				MaxOutputTokens:  s.getInt(keyGenMaxTokens, defaults.Generation.Params.MaxOutputTokens),
				PresencePenalty:  s.getFloat(keyGenPresence, defaults.Generation.Params.PresencePenalty),
				FrequencyPenalty: s.getFloat(keyGenFrequency, defaults.Generation.Params.FrequencyPenalty),
			},
			MaxContextChars:   s.getInt(keyGenMaxContext, defaults.Generation.MaxContextChars),
			Backoff:           s.getBackoff(defaults.Generation.Backoff),
			CallTimeout:       s.getDuration(keyGenCallTimeout, defaults.Generation.CallTimeout),
			OverallTimeout:    s.getDuration(keyGenOverallTimeout, defaults.Generation.OverallTimeout),
			RequestsPerMinute: s.getInt(keyGenRPM, defaults.Generation.RequestsPerMinute),
		},
		Safety: domain.SafetySettings{
			Blocked:       s.getBlockedCategories(defaults.Safety.Blocked),
			ExtraKeywords: s.getExtraKeywords(),
		},
		Image: domain.ImageSettings{
			Providers: s.getStringSlice(keyImageProviders, defaults.Image.Providers),
			Model:     s.getString(keyImageModel, defaults.Image.Model),
			BaseURL:   s.configStore.GetString(keyImageBaseURL),
			Timeout:   s.getDuration(keyImageTimeout, defaults.Image.Timeout),
		},
		Cache: domain.CacheSettings{
			Backend:    s.getCacheBackend(defaults.Cache.Backend),
			TTL:        s.getDuration(keyCacheTTL, defaults.Cache.TTL),
			MaxEntries: s.getInt(keyCacheMaxEntries, defaults.Cache.MaxEntries),
			RedisURL:   s.configStore.GetString(keyCacheRedisURL),
		},
		Personas: domain.PersonaSettings{
			Dir:         s.configStore.GetString(keyPersonasDir),
			GitHubToken: s.configStore.GetString(keyPersonasGitHub),
		},
	}

	return settings, nil
}

// Save persists application settings.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	// Save chunking settings
	if err := s.configStore.Set(keyChunkSize, settings.Chunking.Size); err != nil {
		return fmt.Errorf("save chunk size: %w", err)
	}
	if err := s.configStore.Set(keyChunkOverlap, settings.Chunking.Overlap); err != nil {
		return fmt.Errorf("save chunk overlap: %w", err)
	}

	// Save retrieval settings
	if err := s.configStore.Set(keyRetrievalTopK, settings.Retrieval.TopK); err != nil {
		return fmt.Errorf("save retrieval top_k: %w", err)
	}
	if err := s.configStore.Set(keyRetrievalFinalK, settings.Retrieval.FinalK); err != nil {
		return fmt.Errorf("save retrieval final_k: %w", err)
	}
	if err := s.configStore.Set(keyRetrievalMinScore, settings.Retrieval.Threshold); err != nil {
		return fmt.Errorf("save retrieval threshold: %w", err)
	}

	// Save embedding settings
	if err := s.configStore.Set(keyEmbedProvider, settings.Embedding.Provider.String()); err != nil {
		return fmt.Errorf("save embedding provider: %w", err)
	}
	if err := s.configStore.Set(keyEmbedModel, settings.Embedding.Model); err != nil {
		return fmt.Errorf("save embedding model: %w", err)
	}
	if err := s.configStore.Set(keyEmbedBaseURL, settings.Embedding.BaseURL); err != nil {
		return fmt.Errorf("save embedding base_url: %w", err)
	}
	if settings.Embedding.APIKey != "" {
		if err := s.configStore.Set(keyEmbedAPIKey, settings.Embedding.APIKey); err != nil {
			return fmt.Errorf("save embedding api_key: %w", err)
		}
	}

	// Save rerank settings
	if err := s.configStore.Set(keyRerankProvider, settings.Rerank.Provider.String()); err != nil {
		return fmt.Errorf("save rerank provider: %w", err)
	}
	if err := s.configStore.Set(keyRerankModel, settings.Rerank.Model); err != nil {
		return fmt.Errorf("save rerank model: %w", err)
	}
	if err := s.configStore.Set(keyRerankBaseURL, settings.Rerank.BaseURL); err != nil {
		return fmt.Errorf("save rerank base_url: %w", err)
	}
	if settings.Rerank.APIKey != "" {
		if err := s.configStore.Set(keyRerankAPIKey, settings.Rerank.APIKey); err != nil {
			return fmt.Errorf("save rerank api_key: %w", err)
		}
	}

	// Save story model settings
	if err := s.saveModel(keyPrimaryProvider, keyPrimaryModel, keyPrimaryBaseURL, keyPrimaryAPIKey, settings.Generation.Primary); err != nil {
		return err
	}
	if err := s.saveModel(keyFallbackProvider, keyFallbackModel, keyFallbackBaseURL, keyFallbackAPIKey, settings.Generation.Fallback); err != nil {
		return err
	}

	// Save generation parameters
	if err := s.configStore.Set(keyGenTemperature, settings.Generation.Params.Temperature); err != nil {
		return fmt.Errorf("save temperature: %w", err)
	}
	if err := s.configStore.Set(keyGenTopP, settings.Generation.Params.TopP); err != nil {
		return fmt.Errorf("save top_p: %w", err)
	}
	if err := s.configStore.Set(keyGenTopK, settings.Generation.Params.TopK); err != nil {
		return fmt.Errorf("save top_k: %w", err)
	}
	if err := s.configStore.Set(keyGenMaxTokens, settings.Generation.Params.MaxOutputTokens); err != nil {
		return fmt.Errorf("save max_output_tokens: %w", err)
	}
	if err := s.configStore.Set(keyGenPresence, settings.Generation.Params.PresencePenalty); err != nil {
		return fmt.Errorf("save presence_penalty: %w", err)
	}
	if err := s.configStore.Set(keyGenFrequency, settings.Generation.Params.FrequencyPenalty); err != nil {
		return fmt.Errorf("save frequency_penalty: %w", err)
	}
	if err := s.configStore.Set(keyGenMaxContext, settings.Generation.MaxContextChars); err != nil {
		return fmt.Errorf("save max_context_chars: %w", err)
	}
	if err := s.configStore.Set(keyGenBackoff, formatDurations(settings.Generation.Backoff)); err != nil {
		return fmt.Errorf("save backoff: %w", err)
	}
	if err := s.configStore.Set(keyGenCallTimeout, settings.Generation.CallTimeout.String()); err != nil {
		return fmt.Errorf("save call_timeout: %w", err)
	}
	if err := s.configStore.Set(keyGenOverallTimeout, settings.Generation.OverallTimeout.String()); err != nil {
		return fmt.Errorf("save overall_timeout: %w", err)
	}
	if err := s.configStore.Set(keyGenRPM, settings.Generation.RequestsPerMinute); err != nil {
		return fmt.Errorf("save requests_per_minute: %w", err)
	}

	// Save safety settings
	blocked := make([]string, 0, len(settings.Safety.Blocked))
	for _, cat := range settings.Safety.Blocked {
		blocked = append(blocked, cat.String())
	}
	if err := s.configStore.Set(keySafetyBlocked, blocked); err != nil {
		return fmt.Errorf("save blocked categories: %w", err)
	}
	for cat, words := range settings.Safety.ExtraKeywords {
		if err := s.configStore.Set(prefixSafetyKeywords+cat.String(), words); err != nil {
			return fmt.Errorf("save %s keywords: %w", cat, err)
		}
	}

	// Save image settings
	if err := s.configStore.Set(keyImageProviders, settings.Image.Providers); err != nil {
		return fmt.Errorf("save image providers: %w", err)
	}
	if err := s.configStore.Set(keyImageModel, settings.Image.Model); err != nil {
		return fmt.Errorf("save image model: %w", err)
	}
	if err := s.configStore.Set(keyImageBaseURL, settings.Image.BaseURL); err != nil {
		return fmt.Errorf("save image base_url: %w", err)
	}
	if err := s.configStore.Set(keyImageTimeout, settings.Image.Timeout.String()); err != nil {
		return fmt.Errorf("save image timeout: %w", err)
	}

	// Save cache settings
	if err := s.configStore.Set(keyCacheBackend, settings.Cache.Backend.String()); err != nil {
		return fmt.Errorf("save cache backend: %w", err)
	}
	if err := s.configStore.Set(keyCacheTTL, settings.Cache.TTL.String()); err != nil {
		return fmt.Errorf("save cache ttl: %w", err)
	}
	if err := s.configStore.Set(keyCacheMaxEntries, settings.Cache.MaxEntries); err != nil {
		return fmt.Errorf("save cache max_entries: %w", err)
	}
	if err := s.configStore.Set(keyCacheRedisURL, settings.Cache.RedisURL); err != nil {
		return fmt.Errorf("save cache redis_url: %w", err)
	}

	// Save persona source settings
	if err := s.configStore.Set(keyPersonasDir, settings.Personas.Dir); err != nil {
		return fmt.Errorf("save personas dir: %w", err)
	}
	if settings.Personas.GitHubToken != "" {
		if err := s.configStore.Set(keyPersonasGitHub, settings.Personas.GitHubToken); err != nil {
			return fmt.Errorf("save github token: %w", err)
		}
	}

	return nil
}

// saveModel persists one story model endpoint. The API key is written only
// when present so a blank value never clears a stored credential.
func (s *SettingsService) saveModel(providerKey, modelKey, baseURLKey, apiKeyKey string, m domain.ModelSettings) error {
	if err := s.configStore.Set(providerKey, m.Provider.String()); err != nil {
		return fmt.Errorf("save %s: %w", providerKey, err)
	}
	if err := s.configStore.Set(modelKey, m.Model); err != nil {
		return fmt.Errorf("save %s: %w", modelKey, err)
	}
	if err := s.configStore.Set(baseURLKey, m.BaseURL); err != nil {
		return fmt.Errorf("save %s: %w", baseURLKey, err)
	}
	if m.APIKey != "" {
		if err := s.configStore.Set(apiKeyKey, m.APIKey); err != nil {
			return fmt.Errorf("save %s: %w", apiKeyKey, err)
		}
	}
	return nil
}

// SetEmbeddingProvider configures the embedding provider.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid embedding provider: %s", provider)
	}

	// Validate provider supports embeddings
	validProviders := domain.AllEmbeddingProviders()
	valid := false
	for _, p := range validProviders {
		if p == provider {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("provider %s does not support embeddings", provider)
	}

	// Validate API key if required
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Embedding.Provider = provider

	// Set model - use provided or default
	if model != "" {
		settings.Embedding.Model = model
	} else {
		defaults := domain.DefaultEmbeddingModels()
		if defaultModel, ok := defaults[provider]; ok {
			settings.Embedding.Model = defaultModel
		}
	}

	// Set base URL based on provider type
	if provider.IsLocal() {
		// Local providers need a base URL
		if settings.Embedding.BaseURL == "" {
			settings.Embedding.BaseURL = defaultOllamaURL
		}
	} else {
		// Cloud providers don't need a custom base URL
		settings.Embedding.BaseURL = ""
	}

	// Set API key
	settings.Embedding.APIKey = apiKey

	return s.Save(settings)
}

// SetStoryProvider configures the primary story model.
func (s *SettingsService) SetStoryProvider(provider domain.AIProvider, model, apiKey string) error {
	return s.setStoryModel(provider, model, apiKey, false)
}

// SetFallbackProvider configures the fallback story model.
func (s *SettingsService) SetFallbackProvider(provider domain.AIProvider, model, apiKey string) error {
	return s.setStoryModel(provider, model, apiKey, true)
}

func (s *SettingsService) setStoryModel(provider domain.AIProvider, model, apiKey string, fallback bool) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid story provider: %s", provider)
	}

	// Validate API key if required
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	target := &settings.Generation.Primary
	if fallback {
		target = &settings.Generation.Fallback
	}

	target.Provider = provider

	// Set model - use provided or default
	if model != "" {
		target.Model = model
	} else {
		defaults := domain.DefaultStoryModels()
		if defaultModel, ok := defaults[provider]; ok {
			target.Model = defaultModel
		}
	}

	// Set base URL based on provider type
	if provider.IsLocal() {
		// Local providers need a base URL
		if target.BaseURL == "" {
			target.BaseURL = defaultOllamaURL
		}
	} else {
		// Cloud providers don't need a custom base URL
		target.BaseURL = ""
	}

	// Set API key
	target.APIKey = apiKey

	return s.Save(settings)
}

// SetRerankProvider configures the reranking provider. RerankNone disables
// reranking; the stored key is kept so re-enabling needs no re-entry.
func (s *SettingsService) SetRerankProvider(provider domain.RerankProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid rerank provider: %s", provider)
	}
	if provider != domain.RerankNone && apiKey == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Rerank.Provider = provider
	if provider != domain.RerankNone {
		if model != "" {
			settings.Rerank.Model = model
		}
		settings.Rerank.APIKey = apiKey
	}

	return s.Save(settings)
}

// SetCacheBackend configures the response cache backend.
func (s *SettingsService) SetCacheBackend(backend domain.CacheBackend, redisURL string) error {
	if !backend.IsValid() {
		return fmt.Errorf("invalid cache backend: %s", backend)
	}
	if backend == domain.CacheRedis && redisURL == "" {
		return fmt.Errorf("redis URL required for %s backend", backend)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Cache.Backend = backend
	if backend == domain.CacheRedis {
		settings.Cache.RedisURL = redisURL
	}

	return s.Save(settings)
}

// Validate checks if current settings are internally consistent.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return settings.Validate()
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
func (s *SettingsService) ValidateEmbeddingConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateEmbedding(&settings.Embedding)
}

// ValidateStoryConfig validates the current story model configuration by
// pinging the provider. The fallback is checked too when one is configured.
func (s *SettingsService) ValidateStoryConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	if err := s.aiValidator.ValidateStoryModel(&settings.Generation.Primary); err != nil {
		return err
	}
	if settings.Generation.Fallback.IsConfigured() {
		return s.aiValidator.ValidateStoryModel(&settings.Generation.Fallback)
	}
	return nil
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getInt falls back to the default only when the key is absent: zero is a
// meaningful stored value for overlap, top_k and requests_per_minute.
func (s *SettingsService) getInt(key string, defaultVal int) int {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	val, exists := s.configStore.Get(key)
	if !exists {
		return defaultVal
	}
	switch v := val.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return defaultVal
	}
}

func (s *SettingsService) getDuration(key string, defaultVal time.Duration) time.Duration {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil || d < 0 {
		return defaultVal
	}
	return d
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	provider := domain.AIProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

func (s *SettingsService) getRerankProvider(defaultVal domain.RerankProvider) domain.RerankProvider {
	val := s.configStore.GetString(keyRerankProvider)
	if val == "" {
		return defaultVal
	}
	provider := domain.RerankProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

func (s *SettingsService) getCacheBackend(defaultVal domain.CacheBackend) domain.CacheBackend {
	val := s.configStore.GetString(keyCacheBackend)
	if val == "" {
		return defaultVal
	}
	backend := domain.CacheBackend(val)
	if !backend.IsValid() {
		return defaultVal
	}
	return backend
}

// getStringSlice falls back to the default only when the key is absent: an
// explicitly empty list is a valid stored value.
func (s *SettingsService) getStringSlice(key string, defaultVal []string) []string {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetStringSlice(key)
}

// getBackoff reads the per-attempt delay table. A malformed entry discards
// the whole stored table: a partially applied one would silently change the
// attempt count.
func (s *SettingsService) getBackoff(defaultVal []time.Duration) []time.Duration {
	raw := s.configStore.GetStringSlice(keyGenBackoff)
	if len(raw) == 0 {
		return defaultVal
	}
	parsed := make([]time.Duration, 0, len(raw))
	for _, entry := range raw {
		d, err := time.ParseDuration(entry)
		if err != nil || d < 0 {
			return defaultVal
		}
		parsed = append(parsed, d)
	}
	return parsed
}

// getBlockedCategories reads the blocked category list. An explicitly empty
// list disables category screening; unknown names are dropped.
func (s *SettingsService) getBlockedCategories(defaultVal []domain.SafetyCategory) []domain.SafetyCategory {
	if _, exists := s.configStore.Get(keySafetyBlocked); !exists {
		return defaultVal
	}
	names := s.configStore.GetStringSlice(keySafetyBlocked)
	blocked := make([]domain.SafetyCategory, 0, len(names))
	for _, name := range names {
		cat := domain.SafetyCategory(name)
		if cat.IsValid() {
			blocked = append(blocked, cat)
		}
	}
	return blocked
}

func (s *SettingsService) getExtraKeywords() map[domain.SafetyCategory][]string {
	var extras map[domain.SafetyCategory][]string
	for _, cat := range domain.AllSafetyCategories() {
		words := s.configStore.GetStringSlice(prefixSafetyKeywords + cat.String())
		if len(words) == 0 {
			continue
		}
		if extras == nil {
			extras = make(map[domain.SafetyCategory][]string)
		}
		extras[cat] = words
	}
	return extras
}

func formatDurations(durations []time.Duration) []string {
	out := make([]string, 0, len(durations))
	for _, d := range durations {
		out = append(out, d.String())
	}
	return out
}
