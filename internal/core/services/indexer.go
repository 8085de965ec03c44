package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodia-labs/fabula/internal/chunker"
	"github.com/custodia-labs/fabula/internal/core/domain"
	"github.com/custodia-labs/fabula/internal/core/ports/driven"
	"github.com/custodia-labs/fabula/internal/core/ports/driving"
	"github.com/custodia-labs/fabula/internal/logger"
)

// Ensure IndexerService implements the driving port.
var _ driving.IndexOrchestrator = (*IndexerService)(nil)

// IndexerService builds persona indexes and holds the published registry.
// Publication is a wholesale swap: readers either see the old index or the
// new one, never a partial build. Retired indexes stay usable for readers
// that still hold them.
type IndexerService struct {
	store     driven.PersonaStore
	embedding driven.EmbeddingService
	builder   driven.IndexBuilder
	splitter  *chunker.Splitter

	mu       sync.RWMutex
	indexes  map[string]driven.PersonaIndex
	building map[string]bool
}

// NewIndexerService creates an indexer.
func NewIndexerService(
	store driven.PersonaStore,
	embedding driven.EmbeddingService,
	builder driven.IndexBuilder,
	chunking domain.ChunkingSettings,
) *IndexerService {
	return &IndexerService{
		store:     store,
		embedding: embedding,
		builder:   builder,
		splitter: chunker.New(
			chunker.WithChunkSize(chunking.Size),
			chunker.WithOverlap(chunking.Overlap),
		),
		indexes:  make(map[string]driven.PersonaIndex),
		building: make(map[string]bool),
	}
}

// Index builds (or reuses) the index for one persona.
func (s *IndexerService) Index(ctx context.Context, personaID string) (*driving.IndexReport, error) {
	persona, err := s.store.GetPersona(ctx, personaID)
	if err != nil {
		return nil, fmt.Errorf("load persona: %w", err)
	}
	return s.build(ctx, persona)
}

// IndexAll indexes every stored persona. Per-persona failures are logged
// and skipped; the remaining personas still get indexed.
func (s *IndexerService) IndexAll(ctx context.Context) ([]driving.IndexReport, error) {
	personas, err := s.store.ListPersonas(ctx)
	if err != nil {
		return nil, fmt.Errorf("list personas: %w", err)
	}

	reports := make([]driving.IndexReport, 0, len(personas))
	for _, meta := range personas {
		report, err := s.Index(ctx, meta.ID)
		if err != nil {
			logger.Warn("Indexing %q failed: %v", meta.ID, err)
			continue
		}
		reports = append(reports, *report)
	}
	return reports, nil
}

// Status reports the indexing state of a persona.
func (s *IndexerService) Status(ctx context.Context, personaID string) (*driving.IndexStatus, error) {
	persona, err := s.store.GetPersona(ctx, personaID)
	if err != nil {
		return nil, fmt.Errorf("load persona: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	status := &driving.IndexStatus{
		PersonaID: personaID,
		Running:   s.building[personaID],
	}
	if idx, ok := s.indexes[personaID]; ok {
		status.Version = idx.Version()
		status.Chunks = idx.Size()
		status.Indexed = idx.Version() == persona.DocVersion
	}
	return status, nil
}

// EnsureIndex returns an index current for the persona's document version
// and the configured embedding model, building one when none is published.
func (s *IndexerService) EnsureIndex(ctx context.Context, persona *domain.Persona) (driven.PersonaIndex, error) {
	if idx := s.current(persona); idx != nil {
		return idx, nil
	}
	if _, err := s.build(ctx, persona); err != nil {
		return nil, err
	}
	if idx := s.current(persona); idx != nil {
		return idx, nil
	}
	return nil, fmt.Errorf("%w: index for %q not published", domain.ErrNotFound, persona.ID)
}

// Invalidate drops the published index for a persona. In-flight readers
// keep their reference; the next load rebuilds.
func (s *IndexerService) Invalidate(personaID string) {
	s.mu.Lock()
	delete(s.indexes, personaID)
	s.mu.Unlock()
}

// Close retires every published index.
func (s *IndexerService) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, idx := range s.indexes {
		if err := idx.Close(); err != nil {
			logger.Warn("Closing index for %q: %v", id, err)
		}
	}
	s.indexes = make(map[string]driven.PersonaIndex)
	return nil
}

// build runs one full index build and publishes the result. A build for a
// persona already being built fails with ErrIndexBuildInProgress rather
// than queueing.
func (s *IndexerService) build(ctx context.Context, persona *domain.Persona) (*driving.IndexReport, error) {
	if idx := s.current(persona); idx != nil {
		return &driving.IndexReport{
			PersonaID:      persona.ID,
			Version:        idx.Version(),
			Chunks:         idx.Size(),
			Reused:         true,
			EmbeddingModel: idx.ModelName(),
		}, nil
	}

	if s.embedding == nil {
		return nil, fmt.Errorf("%w: indexing needs an embedding service", domain.ErrEmbeddingUnavailable)
	}

	s.mu.Lock()
	if s.building[persona.ID] {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: persona %q", domain.ErrIndexBuildInProgress, persona.ID)
	}
	s.building[persona.ID] = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.building, persona.ID)
		s.mu.Unlock()
	}()

	logger.Section("Persona Indexing")
	logger.Info("Indexing %q (version %.8s)", persona.ID, persona.DocVersion)

	chunks := s.splitter.Split(persona.ID, persona.Document)
	logger.Debug("Document split into %d chunks", len(chunks))

	kept, dropped := s.embedChunks(ctx, persona, chunks)

	if len(kept) > 0 {
		if err := s.store.SaveChunks(ctx, persona.ID, persona.DocVersion, kept); err != nil {
			logger.Warn("Persisting chunk embeddings failed: %v (continuing)", err)
		}
	}

	idx, err := s.builder.Build(ctx, persona.ID, persona.DocVersion, s.embedding.ModelName(), kept)
	if err != nil {
		return nil, fmt.Errorf("build index: %w", err)
	}

	s.publish(persona.ID, idx)
	logger.Info("Published index for %q: %d chunks (%d dropped)", persona.ID, len(kept), dropped)

	return &driving.IndexReport{
		PersonaID:      persona.ID,
		Version:        persona.DocVersion,
		Chunks:         len(kept),
		Dropped:        dropped,
		EmbeddingModel: s.embedding.ModelName(),
	}, nil
}

// embedChunks attaches an embedding to every chunk, reusing persisted
// vectors for the same document version and embedding the rest. A chunk
// whose embedding fails twice is dropped and indexing continues.
func (s *IndexerService) embedChunks(ctx context.Context, persona *domain.Persona, chunks []domain.Chunk) (kept []domain.Chunk, dropped int) {
	if len(chunks) == 0 {
		return nil, 0
	}

	reused := s.reuseStored(ctx, persona, chunks)

	var missing []int
	for i := range chunks {
		if len(chunks[i].Embedding) == 0 {
			missing = append(missing, i)
		}
	}
	if reused > 0 {
		logger.Debug("Reused %d persisted embeddings; %d chunks to embed", reused, len(missing))
	}

	if len(missing) > 0 && !s.embedBatch(ctx, chunks, missing) {
		for _, i := range missing {
			vec, err := s.embedOne(ctx, chunks[i].Text)
			if err != nil {
				logger.Warn("Dropping chunk at offset %d: %v", chunks[i].Offset, err)
				continue
			}
			chunks[i].Embedding = vec
		}
	}

	kept = make([]domain.Chunk, 0, len(chunks))
	for _, c := range chunks {
		if len(c.Embedding) == 0 {
			dropped++
			continue
		}
		c.EmbeddingModel = s.embedding.ModelName()
		kept = append(kept, c)
	}
	return kept, dropped
}

// reuseStored fills embeddings from chunks persisted for the same
// document version. Matching is exact: offset and text must agree.
func (s *IndexerService) reuseStored(ctx context.Context, persona *domain.Persona, chunks []domain.Chunk) int {
	stored, err := s.store.GetChunks(ctx, persona.ID, persona.DocVersion)
	if err != nil || len(stored) == 0 {
		return 0
	}

	byOffset := make(map[int]domain.Chunk, len(stored))
	for _, c := range stored {
		byOffset[c.Offset] = c
	}

	reused := 0
	for i := range chunks {
		prev, ok := byOffset[chunks[i].Offset]
		if !ok || prev.Text != chunks[i].Text || len(prev.Embedding) == 0 {
			continue
		}
		if prev.EmbeddingModel != s.embedding.ModelName() {
			continue
		}
		chunks[i].Embedding = prev.Embedding
		reused++
	}
	return reused
}

// embedBatch fills the missing embeddings in one call. Returns false when
// the batch could not be used and per-chunk embedding should run instead.
func (s *IndexerService) embedBatch(ctx context.Context, chunks []domain.Chunk, missing []int) bool {
	texts := make([]string, len(missing))
	for j, i := range missing {
		texts[j] = chunks[i].Text
	}

	vecs, err := s.embedding.EmbedBatch(ctx, texts)
	if err != nil {
		logger.Warn("Batch embedding failed: %v (falling back to per-chunk)", err)
		return false
	}
	if len(vecs) != len(texts) {
		logger.Warn("Batch embedding returned %d vectors for %d chunks (falling back to per-chunk)", len(vecs), len(texts))
		return false
	}

	for j, i := range missing {
		chunks[i].Embedding = vecs[j]
	}
	return true
}

// embedOne embeds a single chunk, retrying once before giving up.
func (s *IndexerService) embedOne(ctx context.Context, text string) ([]float32, error) {
	vec, err := s.embedding.Embed(ctx, text)
	if err == nil {
		return vec, nil
	}
	logger.Debug("Chunk embedding failed: %v (retrying once)", err)

	vec, err = s.embedding.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed chunk: %w", err)
	}
	return vec, nil
}

// current returns the published index when it matches the persona's
// document version and the configured embedding model.
func (s *IndexerService) current(persona *domain.Persona) driven.PersonaIndex {
	if s.embedding == nil {
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, ok := s.indexes[persona.ID]
	if !ok || idx.Version() != persona.DocVersion || idx.ModelName() != s.embedding.ModelName() {
		return nil
	}
	return idx
}

// publish swaps in the new index. The old index is not closed: sessions
// may still be reading it, and it is reclaimed once they drop it.
func (s *IndexerService) publish(personaID string, idx driven.PersonaIndex) {
	s.mu.Lock()
	s.indexes[personaID] = idx
	s.mu.Unlock()
}
