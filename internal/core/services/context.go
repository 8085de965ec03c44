package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/custodia-labs/fabula/internal/core/domain"
	"github.com/custodia-labs/fabula/internal/core/ports/driven"
	"github.com/custodia-labs/fabula/internal/logger"
)

// ContextService runs the retrieval half of the pipeline: embed the story
// idea, search the persona index, rerank, filter, and select the final
// context for prompt assembly.
type ContextService struct {
	embedding driven.EmbeddingService
	reranker  driven.RerankService
	topK      int
	finalK    int
	threshold float64
}

// NewContextService creates a context service.
// The reranker parameter is optional (can be nil); contexts then keep the
// retriever's ordering and are marked unreranked.
func NewContextService(
	embedding driven.EmbeddingService,
	reranker driven.RerankService,
	retrieval domain.RetrievalSettings,
) *ContextService {
	def := domain.DefaultAppSettings().Retrieval
	if retrieval.TopK <= 0 {
		retrieval.TopK = def.TopK
	}
	if retrieval.FinalK <= 0 {
		retrieval.FinalK = def.FinalK
	}
	if retrieval.Threshold == 0 {
		retrieval.Threshold = def.Threshold
	}

	return &ContextService{
		embedding: embedding,
		reranker:  reranker,
		topK:      retrieval.TopK,
		finalK:    retrieval.FinalK,
		threshold: retrieval.Threshold,
	}
}

// BuildContext selects the persona context for a story idea. The returned
// context is ordered best-first; Reranked is false when the reranker was
// unavailable and the retriever's ordering survived unmodified.
func (s *ContextService) BuildContext(
	ctx context.Context, index driven.PersonaIndex, idea string,
) (domain.RankedContext, error) {
	logger.Section("Context Selection")

	idea = strings.TrimSpace(idea)
	if idea == "" {
		return domain.RankedContext{}, domain.ErrEmptyIdea
	}

	candidates, err := s.retrieve(ctx, index, idea)
	if err != nil {
		return domain.RankedContext{}, err
	}
	if len(candidates) == 0 {
		logger.Info("No candidates retrieved; continuing without context")
		return domain.RankedContext{Reranked: true}, nil
	}

	return s.rerank(ctx, idea, candidates), nil
}

// retrieve embeds the idea and fetches the top-K nearest chunks.
// An empty index yields no candidates, which is not an error.
func (s *ContextService) retrieve(
	ctx context.Context, index driven.PersonaIndex, idea string,
) ([]domain.Candidate, error) {
	if s.embedding == nil {
		return nil, fmt.Errorf("%w: no embedding service", domain.ErrEmbeddingUnavailable)
	}

	// Retrieval must embed the idea with the model the index was built
	// with; anything else silently compares incompatible vector spaces.
	if index.ModelName() != s.embedding.ModelName() {
		return nil, fmt.Errorf("%w: index for %q built with embedding model %q, configured model is %q",
			domain.ErrInvalidConfig, index.PersonaID(), index.ModelName(), s.embedding.ModelName())
	}

	if index.Size() == 0 {
		logger.Debug("Index for %q is empty", index.PersonaID())
		return nil, nil
	}

	logger.Debug("Embedding idea (%d chars)", len(idea))
	vec, err := s.embedding.Embed(ctx, idea)
	if err != nil {
		return nil, fmt.Errorf("embed idea: %w", err)
	}

	hits, err := index.Search(ctx, vec, s.topK)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}
	logger.Debug("Retrieved %d of top %d candidates", len(hits), s.topK)

	candidates := make([]domain.Candidate, len(hits))
	for i, hit := range hits {
		candidates[i] = domain.Candidate{
			Chunk:      hit.Chunk,
			Similarity: hit.Similarity,
			Rank:       i,
		}
	}
	return candidates, nil
}

// rerank scores the candidates against the idea and keeps the best. When
// the reranker is missing or fails, the retriever's ordering is kept and
// the context is marked unreranked; degraded retrieval beats none.
func (s *ContextService) rerank(
	ctx context.Context, idea string, candidates []domain.Candidate,
) domain.RankedContext {
	scores := make([]float64, len(candidates))
	reranked := false

	if s.reranker != nil {
		texts := make([]string, len(candidates))
		for i, c := range candidates {
			texts[i] = c.Chunk.Text
		}

		got, err := s.reranker.Rerank(ctx, idea, texts)
		switch {
		case err != nil:
			logger.Warn("Rerank failed: %v (keeping retrieval order)", err)
		case len(got) != len(texts):
			logger.Warn("Rerank returned %d scores for %d documents (keeping retrieval order)", len(got), len(texts))
		default:
			copy(scores, got)
			reranked = true
		}
	} else {
		logger.Debug("No reranker configured; keeping retrieval order")
	}

	if !reranked {
		for i, c := range candidates {
			scores[i] = c.Similarity
		}
	}

	// Threshold filter applies to whichever scores are in force.
	kept := make([]domain.RankedChunk, 0, len(candidates))
	for i, c := range candidates {
		if scores[i] < s.threshold {
			continue
		}
		kept = append(kept, domain.RankedChunk{
			Chunk: c.Chunk,
			Score: scores[i],
			Rank:  c.Rank, // retriever rank until final ordering below
		})
	}
	logger.Debug("Threshold %.2f kept %d of %d candidates", s.threshold, len(kept), len(candidates))

	// Order by score, best first. The sort is stable and the input is in
	// retriever order, so equal scores keep their retrieval ranking.
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Score > kept[j].Score
	})

	if len(kept) > s.finalK {
		kept = kept[:s.finalK]
	}
	for i := range kept {
		kept[i].Rank = i
	}

	logger.Info("Context: %d chunks, reranked=%t", len(kept), reranked)
	return domain.RankedContext{Chunks: kept, Reranked: reranked}
}
