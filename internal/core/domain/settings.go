package domain

import (
	"fmt"
	"time"
)

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or
// story-model generation.
type AIProvider string

// Available AI providers.
const (
	// AIProviderGemini is the Google Gemini API.
	AIProviderGemini AIProvider = "gemini"

	// AIProviderOpenAI is the OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is the Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"

	// AIProviderOllama is a local Ollama instance.
	AIProviderOllama AIProvider = "ollama"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderGemini, AIProviderOpenAI, AIProviderAnthropic, AIProviderOllama:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p != AIProviderOllama
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderGemini:
		return "Google Gemini (cloud)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	case AIProviderOllama:
		return "Ollama (local)"
	default:
		return unknownDescription
	}
}

// RerankProvider identifies a reranking service.
type RerankProvider string

// Available rerank providers.
const (
	// RerankNone disables reranking; retrieval order is used as-is.
	RerankNone RerankProvider = "none"

	// RerankCohere uses the Cohere rerank API.
	RerankCohere RerankProvider = "cohere"
)

// IsValid returns true if the rerank provider is recognised.
func (p RerankProvider) IsValid() bool {
	switch p {
	case RerankNone, RerankCohere:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (p RerankProvider) String() string {
	return string(p)
}

// CacheBackend identifies the response cache storage backend.
type CacheBackend string

// Available cache backends.
const (
	// CacheMemory is the in-process TTL+LRU cache.
	CacheMemory CacheBackend = "memory"

	// CacheRedis stores responses in Redis.
	CacheRedis CacheBackend = "redis"
)

// IsValid returns true if the cache backend is recognised.
func (b CacheBackend) IsValid() bool {
	switch b {
	case CacheMemory, CacheRedis:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (b CacheBackend) String() string {
	return string(b)
}

// ChunkingSettings holds document chunking configuration.
type ChunkingSettings struct {
	// Size is the window length in runes.
	Size int

	// Overlap is the number of runes shared between consecutive chunks.
	Overlap int
}

// RetrievalSettings holds retrieval and reranking configuration.
type RetrievalSettings struct {
	// TopK is the number of candidates fetched from the index.
	TopK int

	// FinalK is the number of chunks kept for prompt assembly.
	FinalK int

	// Threshold is the minimum score a chunk must reach to survive the
	// rerank filter (applied to similarity scores in degraded mode).
	Threshold float64
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key (for cloud providers).
	APIKey string
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// RerankSettings holds reranker configuration.
type RerankSettings struct {
	// Provider is the reranking service, RerankNone to disable.
	Provider RerankProvider

	// Model is the rerank model name.
	Model string

	// BaseURL is the API endpoint override.
	BaseURL string

	// APIKey is the API key.
	APIKey string
}

// IsConfigured returns true if a reranker is set up.
func (r RerankSettings) IsConfigured() bool {
	return r.Provider.IsValid() && r.Provider != RerankNone && r.APIKey != ""
}

// ModelSettings identifies one generative model endpoint.
type ModelSettings struct {
	// Provider is the model's service provider.
	Provider AIProvider

	// Model is the model name.
	Model string

	// BaseURL is the API endpoint (for Ollama or compatible gateways).
	BaseURL string

	// APIKey is the API key (for cloud providers).
	APIKey string
}

// IsConfigured returns true if the model endpoint is set up.
func (m ModelSettings) IsConfigured() bool {
	if !m.Provider.IsValid() || m.Model == "" {
		return false
	}
	if m.Provider.RequiresAPIKey() && m.APIKey == "" {
		return false
	}
	return true
}

// GenerationSettings holds story generation configuration.
type GenerationSettings struct {
	// Primary is the first-choice generative model.
	Primary ModelSettings

	// Fallback is substituted after the primary exhausts its attempts.
	// Unconfigured fallback means failures surface directly.
	Fallback ModelSettings

	// Params are the default generation parameters; personas may override.
	Params GenerationParams

	// MaxContextChars bounds the assembled retrieval context.
	MaxContextChars int

	// Backoff is the per-attempt delay table: len(Backoff) is the attempt
	// count per model, Backoff[i] the wait before retrying attempt i+1.
	Backoff []time.Duration

	// CallTimeout bounds each individual model call.
	CallTimeout time.Duration

	// OverallTimeout bounds a whole generate request across all stages.
	OverallTimeout time.Duration

	// RequestsPerMinute throttles model calls (0 = unthrottled).
	RequestsPerMinute int
}

// SafetySettings holds the content-policy configuration.
type SafetySettings struct {
	// Blocked lists the categories rejected by the assembler.
	Blocked []SafetyCategory

	// ExtraKeywords extends the built-in keyword lists per category.
	ExtraKeywords map[SafetyCategory][]string
}

// KeywordTable merges the built-in heuristic lists with configured extras.
func (s SafetySettings) KeywordTable() map[SafetyCategory][]string {
	table := DefaultSafetyKeywords()
	for cat, extra := range s.ExtraKeywords {
		table[cat] = append(table[cat], extra...)
	}
	return table
}

// ImageSettings holds image generation configuration.
type ImageSettings struct {
	// Providers is the priority-ordered provider chain.
	Providers []string

	// Model is the image model requested from remote providers.
	Model string

	// BaseURL overrides the primary provider endpoint.
	BaseURL string

	// Timeout bounds each provider attempt.
	Timeout time.Duration
}

// CacheSettings holds response cache configuration.
type CacheSettings struct {
	// Backend selects the cache implementation.
	Backend CacheBackend

	// TTL is how long entries stay valid.
	TTL time.Duration

	// MaxEntries caps the in-memory cache size (LRU beyond it).
	MaxEntries int

	// RedisURL is the connection URL for the redis backend.
	RedisURL string
}

// PersonaSettings holds persona source configuration.
type PersonaSettings struct {
	// Dir is the local personas directory.
	Dir string

	// GitHubToken authenticates persona-pack imports.
	GitHubToken string
}

// AppSettings holds all application settings.
type AppSettings struct {
	// Chunking holds document chunking settings.
	Chunking ChunkingSettings

	// Retrieval holds retrieval and rerank-threshold settings.
	Retrieval RetrievalSettings

	// Embedding holds embedding provider settings.
	Embedding EmbeddingSettings

	// Rerank holds reranker settings.
	Rerank RerankSettings

	// Generation holds story model settings.
	Generation GenerationSettings

	// Safety holds content-policy settings.
	Safety SafetySettings

	// Image holds image provider settings.
	Image ImageSettings

	// Cache holds response cache settings.
	Cache CacheSettings

	// Personas holds persona source settings.
	Personas PersonaSettings
}

// DefaultAppSettings returns settings with the platform's standard values.
// Cloud providers are left unconfigured; users supply keys via settings.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Chunking: ChunkingSettings{
			Size:    700,
			Overlap: 120,
		},
		Retrieval: RetrievalSettings{
			TopK:      7,
			FinalK:    3,
			Threshold: 0.20,
		},
		Embedding: EmbeddingSettings{
			Provider: AIProviderGemini,
			Model:    "text-embedding-004",
		},
		Rerank: RerankSettings{
			Provider: RerankNone,
			Model:    "rerank-v3.5",
		},
		Generation: GenerationSettings{
			Primary: ModelSettings{
				Provider: AIProviderGemini,
				Model:    "gemini-1.5-flash-latest",
			},
			Fallback: ModelSettings{
				Provider: AIProviderGemini,
				Model:    "gemini-1.5-flash-8b",
			},
			Params:          DefaultGenerationParams(),
			MaxContextChars: 6000,
			Backoff:         []time.Duration{time.Second, 3 * time.Second},
			CallTimeout:     60 * time.Second,
			OverallTimeout:  120 * time.Second,
		},
		Safety: SafetySettings{
			Blocked: []SafetyCategory{
				CategoryHarassment,
				CategoryHateSpeech,
				CategorySexuallyExplicit,
				CategoryDangerousContent,
			},
		},
		Image: ImageSettings{
			Providers: []string{"pollinations", "placeholder"},
			Model:     "flux",
			Timeout:   45 * time.Second,
		},
		Cache: CacheSettings{
			Backend:    CacheMemory,
			TTL:        15 * time.Minute,
			MaxEntries: 256,
		},
		Personas: PersonaSettings{},
	}
}

// Validate checks settings for configuration errors: values that would
// make an operation fail later in a non-retryable way fail fast here.
func (s *AppSettings) Validate() error {
	if s.Chunking.Size <= 0 {
		return fmt.Errorf("%w: chunk size must be positive", ErrInvalidConfig)
	}
	if s.Chunking.Overlap < 0 || s.Chunking.Overlap >= s.Chunking.Size {
		return fmt.Errorf("%w: chunk overlap must be in [0, size)", ErrInvalidConfig)
	}
	if s.Retrieval.TopK <= 0 || s.Retrieval.FinalK <= 0 {
		return fmt.Errorf("%w: retrieval top_k and final_k must be positive", ErrInvalidConfig)
	}
	if s.Retrieval.FinalK > s.Retrieval.TopK {
		return fmt.Errorf("%w: final_k cannot exceed top_k", ErrInvalidConfig)
	}
	if s.Embedding.Provider.RequiresAPIKey() && s.Embedding.APIKey == "" {
		return fmt.Errorf("%w: embedding provider %s needs an API key", ErrInvalidConfig, s.Embedding.Provider)
	}
	if s.Generation.Primary.Provider.RequiresAPIKey() && s.Generation.Primary.APIKey == "" {
		return fmt.Errorf("%w: generation provider %s needs an API key", ErrInvalidConfig, s.Generation.Primary.Provider)
	}
	if len(s.Generation.Backoff) == 0 {
		return fmt.Errorf("%w: generation backoff table is empty", ErrInvalidConfig)
	}
	for _, cat := range s.Safety.Blocked {
		if !cat.IsValid() {
			return fmt.Errorf("%w: unknown safety category %q", ErrInvalidConfig, cat)
		}
	}
	if !s.Cache.Backend.IsValid() {
		return fmt.Errorf("%w: unknown cache backend %q", ErrInvalidConfig, s.Cache.Backend)
	}
	if s.Cache.Backend == CacheRedis && s.Cache.RedisURL == "" {
		return fmt.Errorf("%w: redis cache backend needs cache.redis_url", ErrInvalidConfig)
	}
	return nil
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderGemini,
		AIProviderOpenAI,
		AIProviderOllama,
	}
}

// AllStoryProviders returns providers that support story generation.
func AllStoryProviders() []AIProvider {
	return []AIProvider{
		AIProviderGemini,
		AIProviderOpenAI,
		AIProviderAnthropic,
		AIProviderOllama,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderGemini: "text-embedding-004",
		AIProviderOpenAI: "text-embedding-3-small",
		AIProviderOllama: "nomic-embed-text",
	}
}

// DefaultStoryModels returns default models for each story provider.
func DefaultStoryModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderGemini:    "gemini-1.5-flash-latest",
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderAnthropic: "claude-3-5-sonnet-latest",
		AIProviderOllama:    "llama3.2",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Gemini models
		"text-embedding-004":   768,
		"gemini-embedding-001": 3072,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
	}
}
