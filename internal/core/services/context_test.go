package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	indexmem "github.com/custodia-labs/fabula/internal/adapters/driven/index/memory"
	"github.com/custodia-labs/fabula/internal/core/domain"
	"github.com/custodia-labs/fabula/internal/core/ports/driven"
)

// --- Mock implementations ---

// mockEmbeddingService implements driven.EmbeddingService for testing.
type mockEmbeddingService struct {
	embedding  []float32
	embedErr   error
	model      string
	embedCalls int
}

func (m *mockEmbeddingService) Embed(_ context.Context, _ string) ([]float32, error) {
	m.embedCalls++
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	return m.embedding, nil
}

func (m *mockEmbeddingService) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	result := make([][]float32, len(texts))
	for i := range texts {
		result[i] = m.embedding
	}
	return result, nil
}

func (m *mockEmbeddingService) Dimensions() int {
	return len(m.embedding)
}

func (m *mockEmbeddingService) ModelName() string {
	if m.model != "" {
		return m.model
	}
	return "mock-embed"
}

func (m *mockEmbeddingService) Ping(_ context.Context) error {
	return nil
}

func (m *mockEmbeddingService) Close() error {
	return nil
}

// mockReranker implements driven.RerankService for testing.
type mockReranker struct {
	scores    []float64
	rerankErr error
	lastQuery string
	lastDocs  []string
}

func (m *mockReranker) Rerank(_ context.Context, query string, documents []string) ([]float64, error) {
	m.lastQuery = query
	m.lastDocs = documents
	if m.rerankErr != nil {
		return nil, m.rerankErr
	}
	return m.scores, nil
}

func (m *mockReranker) ModelName() string {
	return "mock-rerank"
}

func (m *mockReranker) Ping(_ context.Context) error {
	return nil
}

func (m *mockReranker) Close() error {
	return nil
}

// --- Test fixtures ---

// Chunks at increasing angles from the test query vector [1, 0], so
// retrieval order is deterministic: walk, umbrella, streets, logic.
func contextTestChunks() []domain.Chunk {
	return []domain.Chunk{
		{PersonaID: "himu", Offset: 0, Text: "Himu walks barefoot in the rain, his yellow punjabi soaked through.", Embedding: []float32{1, 0}},
		{PersonaID: "himu", Offset: 580, Text: "He refuses umbrellas; rain is a message he is not allowed to block.", Embedding: []float32{1, 1}},
		{PersonaID: "himu", Offset: 1160, Text: "The city sleeps while Himu wanders the empty streets of Dhaka.", Embedding: []float32{1, 3}},
		{PersonaID: "himu", Offset: 1740, Text: "Every mystery yields to cold logic and patient observation.", Embedding: []float32{0, 1}},
	}
}

func buildTestIndex(t *testing.T, modelName string, chunks []domain.Chunk) driven.PersonaIndex {
	t.Helper()
	idx, err := indexmem.NewBuilder().Build(context.Background(), "himu", "v1", modelName, chunks)
	require.NoError(t, err)
	return idx
}

func newTestContextService(embedding driven.EmbeddingService, reranker driven.RerankService) *ContextService {
	return NewContextService(embedding, reranker, domain.RetrievalSettings{
		TopK:      7,
		FinalK:    3,
		Threshold: 0.20,
	})
}

// --- Tests ---

func TestNewContextService_Defaults(t *testing.T) {
	svc := NewContextService(&mockEmbeddingService{}, nil, domain.RetrievalSettings{})

	def := domain.DefaultAppSettings().Retrieval
	assert.Equal(t, def.TopK, svc.topK)
	assert.Equal(t, def.FinalK, svc.finalK)
	assert.Equal(t, def.Threshold, svc.threshold)
}

func TestContextService_BuildContext_EmptyIdea(t *testing.T) {
	svc := newTestContextService(&mockEmbeddingService{embedding: []float32{1, 0}}, nil)
	index := buildTestIndex(t, "mock-embed", contextTestChunks())

	for _, idea := range []string{"", "   ", "\n\t"} {
		_, err := svc.BuildContext(context.Background(), index, idea)
		assert.ErrorIs(t, err, domain.ErrEmptyIdea)
	}
}

func TestContextService_BuildContext_NoEmbeddingService(t *testing.T) {
	svc := newTestContextService(nil, nil)
	index := buildTestIndex(t, "mock-embed", contextTestChunks())

	_, err := svc.BuildContext(context.Background(), index, "a walk in the rain")
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestContextService_BuildContext_EmbeddingModelMismatch(t *testing.T) {
	embed := &mockEmbeddingService{embedding: []float32{1, 0}, model: "text-embedding-004"}
	svc := newTestContextService(embed, nil)
	index := buildTestIndex(t, "nomic-embed-text", contextTestChunks())

	_, err := svc.BuildContext(context.Background(), index, "a walk in the rain")
	require.ErrorIs(t, err, domain.ErrInvalidConfig)
	assert.Contains(t, err.Error(), "nomic-embed-text")
	assert.Contains(t, err.Error(), "text-embedding-004")
	assert.Equal(t, 0, embed.embedCalls, "mismatch must be caught before embedding")
}

func TestContextService_BuildContext_EmptyIndex(t *testing.T) {
	embed := &mockEmbeddingService{embedding: []float32{1, 0}}
	svc := newTestContextService(embed, nil)
	index := buildTestIndex(t, "mock-embed", nil)

	got, err := svc.BuildContext(context.Background(), index, "a walk in the rain")
	require.NoError(t, err)
	assert.Empty(t, got.Chunks)
	assert.True(t, got.Reranked, "empty context is not a rerank degradation")
	assert.Equal(t, 0, embed.embedCalls, "no point embedding against an empty index")
}

func TestContextService_BuildContext_EmbedError(t *testing.T) {
	embed := &mockEmbeddingService{embedErr: errors.New("quota exceeded")}
	svc := newTestContextService(embed, nil)
	index := buildTestIndex(t, "mock-embed", contextTestChunks())

	_, err := svc.BuildContext(context.Background(), index, "a walk in the rain")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "embed idea")
}

func TestContextService_BuildContext_RerankedOrdering(t *testing.T) {
	embed := &mockEmbeddingService{embedding: []float32{1, 0}}
	// Retrieval order: walk, umbrella, streets, logic. The reranker
	// promotes the streets chunk and demotes the walk chunk.
	reranker := &mockReranker{scores: []float64{0.30, 0.95, 0.60, 0.25}}
	svc := newTestContextService(embed, reranker)
	index := buildTestIndex(t, "mock-embed", contextTestChunks())

	got, err := svc.BuildContext(context.Background(), index, "a walk in the rain")
	require.NoError(t, err)
	assert.True(t, got.Reranked)
	require.Len(t, got.Chunks, 3)

	assert.Equal(t, 580, got.Chunks[0].Chunk.Offset)
	assert.Equal(t, 1160, got.Chunks[1].Chunk.Offset)
	assert.Equal(t, 0, got.Chunks[2].Chunk.Offset)

	assert.InDelta(t, 0.95, got.Chunks[0].Score, 1e-9)
	assert.InDelta(t, 0.60, got.Chunks[1].Score, 1e-9)
	assert.InDelta(t, 0.30, got.Chunks[2].Score, 1e-9)

	for i, c := range got.Chunks {
		assert.Equal(t, i, c.Rank)
	}

	assert.Equal(t, "a walk in the rain", reranker.lastQuery)
	assert.Len(t, reranker.lastDocs, 4, "reranker sees every retrieved candidate")
}

func TestContextService_BuildContext_ThresholdOnRerankScores(t *testing.T) {
	embed := &mockEmbeddingService{embedding: []float32{1, 0}}
	reranker := &mockReranker{scores: []float64{0.90, 0.05, 0.50, 0.10}}
	svc := newTestContextService(embed, reranker)
	index := buildTestIndex(t, "mock-embed", contextTestChunks())

	got, err := svc.BuildContext(context.Background(), index, "a walk in the rain")
	require.NoError(t, err)
	assert.True(t, got.Reranked)
	require.Len(t, got.Chunks, 2)
	assert.Equal(t, 0, got.Chunks[0].Chunk.Offset)
	assert.Equal(t, 1160, got.Chunks[1].Chunk.Offset)
}

func TestContextService_BuildContext_AllBelowThreshold(t *testing.T) {
	embed := &mockEmbeddingService{embedding: []float32{1, 0}}
	reranker := &mockReranker{scores: []float64{0.01, 0.02, 0.03, 0.04}}
	svc := newTestContextService(embed, reranker)
	index := buildTestIndex(t, "mock-embed", contextTestChunks())

	got, err := svc.BuildContext(context.Background(), index, "a walk in the rain")
	require.NoError(t, err)
	assert.Empty(t, got.Chunks)
	assert.True(t, got.Reranked, "the reranker did run; there was just nothing relevant")
}

func TestContextService_BuildContext_NoReranker(t *testing.T) {
	embed := &mockEmbeddingService{embedding: []float32{1, 0}}
	svc := newTestContextService(embed, nil)
	index := buildTestIndex(t, "mock-embed", contextTestChunks())

	got, err := svc.BuildContext(context.Background(), index, "a walk in the rain")
	require.NoError(t, err)
	assert.False(t, got.Reranked)

	// Retrieval order survives; the orthogonal logic chunk (similarity 0)
	// falls below the threshold.
	require.Len(t, got.Chunks, 3)
	assert.Equal(t, 0, got.Chunks[0].Chunk.Offset)
	assert.Equal(t, 580, got.Chunks[1].Chunk.Offset)
	assert.Equal(t, 1160, got.Chunks[2].Chunk.Offset)
	assert.InDelta(t, 1.0, got.Chunks[0].Score, 1e-6)
}

func TestContextService_BuildContext_RerankFailureKeepsRetrievalOrder(t *testing.T) {
	embed := &mockEmbeddingService{embedding: []float32{1, 0}}
	reranker := &mockReranker{rerankErr: errors.New("cohere unavailable")}
	svc := newTestContextService(embed, reranker)
	index := buildTestIndex(t, "mock-embed", contextTestChunks())

	got, err := svc.BuildContext(context.Background(), index, "a walk in the rain")
	require.NoError(t, err, "rerank failure degrades, it does not fail the request")
	assert.False(t, got.Reranked)
	require.Len(t, got.Chunks, 3)
	assert.Equal(t, 0, got.Chunks[0].Chunk.Offset)
	assert.Equal(t, 580, got.Chunks[1].Chunk.Offset)
}

func TestContextService_BuildContext_RerankLengthMismatch(t *testing.T) {
	embed := &mockEmbeddingService{embedding: []float32{1, 0}}
	reranker := &mockReranker{scores: []float64{0.9}} // 1 score for 4 documents
	svc := newTestContextService(embed, reranker)
	index := buildTestIndex(t, "mock-embed", contextTestChunks())

	got, err := svc.BuildContext(context.Background(), index, "a walk in the rain")
	require.NoError(t, err)
	assert.False(t, got.Reranked, "a partial score set cannot be trusted")
	require.Len(t, got.Chunks, 3)
	assert.Equal(t, 0, got.Chunks[0].Chunk.Offset)
}

func TestContextService_BuildContext_TopKLimitsCandidates(t *testing.T) {
	embed := &mockEmbeddingService{embedding: []float32{1, 0}}
	reranker := &mockReranker{scores: []float64{0.5, 0.6}}
	svc := NewContextService(embed, reranker, domain.RetrievalSettings{
		TopK:      2,
		FinalK:    2,
		Threshold: 0.20,
	})
	index := buildTestIndex(t, "mock-embed", contextTestChunks())

	got, err := svc.BuildContext(context.Background(), index, "a walk in the rain")
	require.NoError(t, err)
	assert.Len(t, reranker.lastDocs, 2, "only the top-K candidates reach the reranker")
	require.Len(t, got.Chunks, 2)
	assert.Equal(t, 580, got.Chunks[0].Chunk.Offset)
	assert.Equal(t, 0, got.Chunks[1].Chunk.Offset)
}

func TestContextService_BuildContext_FinalKCap(t *testing.T) {
	embed := &mockEmbeddingService{embedding: []float32{1, 0}}
	reranker := &mockReranker{scores: []float64{0.90, 0.80, 0.70, 0.60}}
	svc := NewContextService(embed, reranker, domain.RetrievalSettings{
		TopK:      7,
		FinalK:    2,
		Threshold: 0.20,
	})
	index := buildTestIndex(t, "mock-embed", contextTestChunks())

	got, err := svc.BuildContext(context.Background(), index, "a walk in the rain")
	require.NoError(t, err)
	require.Len(t, got.Chunks, 2)
	assert.Equal(t, 0, got.Chunks[0].Chunk.Offset)
	assert.Equal(t, 580, got.Chunks[1].Chunk.Offset)
	assert.Equal(t, 0, got.Chunks[0].Rank)
	assert.Equal(t, 1, got.Chunks[1].Rank)
}

func TestContextService_BuildContext_TieKeepsRetrievalOrder(t *testing.T) {
	embed := &mockEmbeddingService{embedding: []float32{1, 0}}
	reranker := &mockReranker{scores: []float64{0.5, 0.5, 0.5, 0.5}}
	svc := newTestContextService(embed, reranker)
	index := buildTestIndex(t, "mock-embed", contextTestChunks())

	got, err := svc.BuildContext(context.Background(), index, "a walk in the rain")
	require.NoError(t, err)
	require.Len(t, got.Chunks, 3)

	// Equal rerank scores: the stable sort keeps retrieval order.
	assert.Equal(t, 0, got.Chunks[0].Chunk.Offset)
	assert.Equal(t, 580, got.Chunks[1].Chunk.Offset)
	assert.Equal(t, 1160, got.Chunks[2].Chunk.Offset)
}
