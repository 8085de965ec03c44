package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/custodia-labs/fabula/internal/core/domain"
	"github.com/custodia-labs/fabula/internal/core/ports/driven"
	"github.com/custodia-labs/fabula/internal/core/ports/driving"
	"github.com/custodia-labs/fabula/internal/logger"
)

// Ensure AgentService implements the driving port.
var _ driving.StoryAgent = (*AgentService)(nil)

// AgentService runs the full story pipeline: persona load, retrieval,
// prompt assembly, generation, caching, and usage accounting. Sessions
// carry conversation state; everything else is shared across sessions.
type AgentService struct {
	store     driven.PersonaStore
	indexer   *IndexerService
	retriever *ContextService
	assembler *AssemblerService
	generator *GeneratorService
	cache     driven.ResponseCache

	defaults       domain.GenerationParams
	overallTimeout time.Duration

	flights singleflight.Group
}

// NewAgentService creates the agent. The cache may be nil, in which case
// every request runs the full pipeline.
func NewAgentService(
	store driven.PersonaStore,
	indexer *IndexerService,
	retriever *ContextService,
	assembler *AssemblerService,
	generator *GeneratorService,
	cache driven.ResponseCache,
	settings domain.GenerationSettings,
) *AgentService {
	defaults := settings.Params
	if defaults == (domain.GenerationParams{}) {
		defaults = domain.DefaultGenerationParams()
	}
	timeout := settings.OverallTimeout
	if timeout <= 0 {
		timeout = domain.DefaultAppSettings().Generation.OverallTimeout
	}

	return &AgentService{
		store:          store,
		indexer:        indexer,
		retriever:      retriever,
		assembler:      assembler,
		generator:      generator,
		cache:          cache,
		defaults:       defaults,
		overallTimeout: timeout,
	}
}

// NewSession opens an empty session with no persona loaded.
func (s *AgentService) NewSession() *domain.Session {
	session := domain.NewSession(uuid.NewString())
	logger.Debug("Session %s opened", session.ID)
	return session
}

// LoadPersona binds a persona to the session, building its index first
// when no current one is published.
func (s *AgentService) LoadPersona(ctx context.Context, session *domain.Session, personaID string) error {
	persona, err := s.store.GetPersona(ctx, personaID)
	if err != nil {
		return fmt.Errorf("load persona: %w", err)
	}

	index, err := s.indexer.EnsureIndex(ctx, persona)
	if err != nil {
		return fmt.Errorf("index persona %q: %w", personaID, err)
	}

	session.Load(persona, index.Version())
	logger.Info("Persona %q loaded into session %s", personaID, session.ID)
	return nil
}

// Generate produces a story for the idea. Repeated requests inside the
// cache window are served from cache without touching a model; identical
// concurrent requests are coalesced into a single pipeline run.
func (s *AgentService) Generate(
	ctx context.Context,
	session *domain.Session,
	idea string,
	opts driving.GenerateOptions,
) (*domain.GenerationResult, error) {
	persona, err := session.BeginGenerate()
	if err != nil {
		return nil, err
	}
	defer session.EndGenerate()

	if strings.TrimSpace(idea) == "" {
		return nil, domain.ErrEmptyIdea
	}

	logger.Section("Story Generation")

	params := s.resolveParams(persona, opts.Params)
	key := domain.CacheKey(persona.ID, idea, params)

	if s.cache != nil && !opts.SkipCache {
		cached, ok, err := s.cache.Get(ctx, key)
		switch {
		case err != nil:
			logger.Warn("Response cache read failed: %v (running pipeline)", err)
		case ok:
			cached.AddTag(domain.TagCacheHit)
			logger.Info("Cache hit for persona %q; no model call made", persona.ID)
			return cached, nil
		}
	}

	// Identical concurrent requests share one pipeline run. The run is
	// detached from the first caller's cancellation so a coalesced
	// follower is not failed by the leader giving up; the overall
	// timeout still bounds it.
	ch := s.flights.DoChan(key, func() (any, error) {
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.overallTimeout)
		defer cancel()
		return s.runPipeline(runCtx, persona, idea, params, key)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*domain.GenerationResult).Clone(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// GenerateImage renders an image for the prompt via the provider chain.
func (s *AgentService) GenerateImage(ctx context.Context, prompt string, opts domain.ImageOptions) (*domain.Image, error) {
	return s.generator.GenerateImage(ctx, prompt, opts)
}

// PersonaChanged discards the persona's published index and cached
// responses. Sessions that already hold the persona keep generating
// against their loaded snapshot until they reload.
func (s *AgentService) PersonaChanged(ctx context.Context, personaID string) error {
	s.indexer.Invalidate(personaID)
	if s.cache != nil {
		if err := s.cache.InvalidatePersona(ctx, personaID); err != nil {
			return fmt.Errorf("invalidate cached responses: %w", err)
		}
	}
	logger.Info("Persona %q invalidated: index and cached responses dropped", personaID)
	return nil
}

// Close releases the agent's indexes and cache.
func (s *AgentService) Close() error {
	var first error
	if err := s.indexer.Close(); err != nil {
		first = err
	}
	if s.cache != nil {
		if err := s.cache.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// runPipeline executes retrieve -> assemble -> generate and records the
// side effects of a successful run (usage counter, cache entry).
func (s *AgentService) runPipeline(
	ctx context.Context,
	persona *domain.Persona,
	idea string,
	params domain.GenerationParams,
	key string,
) (*domain.GenerationResult, error) {
	index, err := s.indexer.EnsureIndex(ctx, persona)
	if err != nil {
		return nil, fmt.Errorf("index persona %q: %w", persona.ID, err)
	}

	ranked, err := s.retriever.BuildContext(ctx, index, idea)
	if err != nil {
		return nil, err
	}

	req, err := s.assembler.Assemble(persona, idea, ranked, params)
	if err != nil {
		return nil, err
	}

	result, err := s.generator.GenerateText(ctx, req)
	if err != nil {
		return nil, err
	}

	if err := s.store.RecordUsage(ctx, persona.ID, time.Now()); err != nil {
		logger.Warn("Recording usage for %q failed: %v", persona.ID, err)
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, result); err != nil {
			logger.Warn("Response cache write failed: %v", err)
		}
	}
	return result, nil
}

// resolveParams picks the parameters for one request: explicit override,
// then the persona's own parameters, then the configured defaults.
func (s *AgentService) resolveParams(persona *domain.Persona, override *domain.GenerationParams) domain.GenerationParams {
	switch {
	case override != nil:
		return *override
	case persona.Params != nil:
		return *persona.Params
	default:
		return s.defaults
	}
}
