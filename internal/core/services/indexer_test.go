package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	indexmem "github.com/custodia-labs/fabula/internal/adapters/driven/index/memory"
	storagemem "github.com/custodia-labs/fabula/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/fabula/internal/chunker"
	"github.com/custodia-labs/fabula/internal/core/domain"
	"github.com/custodia-labs/fabula/internal/core/ports/driven"
)

// --- Mock implementations ---

// mockBatchEmbedder implements driven.EmbeddingService with distinct
// per-text vectors and scriptable failures.
type mockBatchEmbedder struct {
	model      string
	batchErr   error
	batchShort bool           // EmbedBatch returns one vector too few
	failTexts  map[string]int // remaining Embed failures per text
	embedCalls int
	batchCalls int
}

func (m *mockBatchEmbedder) vector(text string) []float32 {
	vec := make([]float32, 4)
	for i, r := range text {
		vec[i%len(vec)] += float32(r%97) + 1
	}
	return vec
}

func (m *mockBatchEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	m.embedCalls++
	if m.failTexts[text] > 0 {
		m.failTexts[text]--
		return nil, errors.New("embedding backend unavailable")
	}
	return m.vector(text), nil
}

func (m *mockBatchEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.batchCalls++
	if m.batchErr != nil {
		return nil, m.batchErr
	}
	vecs := make([][]float32, 0, len(texts))
	for _, t := range texts {
		vecs = append(vecs, m.vector(t))
	}
	if m.batchShort && len(vecs) > 0 {
		vecs = vecs[:len(vecs)-1]
	}
	return vecs, nil
}

func (m *mockBatchEmbedder) Dimensions() int {
	return 4
}

func (m *mockBatchEmbedder) ModelName() string {
	if m.model != "" {
		return m.model
	}
	return "mock-embed"
}

func (m *mockBatchEmbedder) Ping(_ context.Context) error {
	return nil
}

func (m *mockBatchEmbedder) Close() error {
	return nil
}

// --- Test helpers ---

const indexerTestDoc = "Himu walks barefoot through the midnight streets of Dhaka in a pocketless yellow panjabi. Rain finds him wherever he goes, and he greets it like an old friend."

func indexerTestStore(t *testing.T, doc string) *storagemem.PersonaStore {
	t.Helper()
	store := storagemem.NewPersonaStore()
	persona := &domain.Persona{ID: "himu", DisplayName: "Himu"}
	persona.SetDocument(doc)
	require.NoError(t, store.SavePersona(context.Background(), persona))
	return store
}

func indexerTestChunking() domain.ChunkingSettings {
	return domain.ChunkingSettings{Size: 40, Overlap: 0}
}

// indexerTestChunks splits the document the same way the service under
// test does, so tests can script failures for specific chunk texts.
func indexerTestChunks(doc string) []domain.Chunk {
	return chunker.New(chunker.WithChunkSize(40), chunker.WithOverlap(0)).Split("himu", doc)
}

func newTestIndexer(store driven.PersonaStore, embedder driven.EmbeddingService) *IndexerService {
	return NewIndexerService(store, embedder, indexmem.NewBuilder(), indexerTestChunking())
}

// --- Tests ---

func TestIndexerService_Index_FreshBuild(t *testing.T) {
	store := indexerTestStore(t, indexerTestDoc)
	embedder := &mockBatchEmbedder{}
	svc := newTestIndexer(store, embedder)

	report, err := svc.Index(context.Background(), "himu")
	require.NoError(t, err)

	persona, err := store.GetPersona(context.Background(), "himu")
	require.NoError(t, err)

	assert.Equal(t, "himu", report.PersonaID)
	assert.Equal(t, persona.DocVersion, report.Version)
	assert.False(t, report.Reused)
	assert.Zero(t, report.Dropped)
	assert.Equal(t, len(indexerTestChunks(indexerTestDoc)), report.Chunks)
	assert.Equal(t, "mock-embed", report.EmbeddingModel)
	assert.Equal(t, 1, embedder.batchCalls)
	assert.Zero(t, embedder.embedCalls)
}

func TestIndexerService_Index_PersistsEmbeddings(t *testing.T) {
	store := indexerTestStore(t, indexerTestDoc)
	svc := newTestIndexer(store, &mockBatchEmbedder{})

	report, err := svc.Index(context.Background(), "himu")
	require.NoError(t, err)

	persona, err := store.GetPersona(context.Background(), "himu")
	require.NoError(t, err)
	stored, err := store.GetChunks(context.Background(), "himu", persona.DocVersion)
	require.NoError(t, err)

	require.Len(t, stored, report.Chunks)
	for _, c := range stored {
		assert.NotEmpty(t, c.Embedding)
		assert.Equal(t, "mock-embed", c.EmbeddingModel)
	}
}

func TestIndexerService_Index_ReusesCurrentIndex(t *testing.T) {
	store := indexerTestStore(t, indexerTestDoc)
	embedder := &mockBatchEmbedder{}
	svc := newTestIndexer(store, embedder)

	first, err := svc.Index(context.Background(), "himu")
	require.NoError(t, err)
	second, err := svc.Index(context.Background(), "himu")
	require.NoError(t, err)

	assert.False(t, first.Reused)
	assert.True(t, second.Reused)
	assert.Equal(t, first.Version, second.Version)
	assert.Equal(t, first.Chunks, second.Chunks)
	assert.Equal(t, 1, embedder.batchCalls)
}

func TestIndexerService_Index_ReusesPersistedEmbeddings(t *testing.T) {
	store := indexerTestStore(t, indexerTestDoc)
	svc := newTestIndexer(store, &mockBatchEmbedder{})
	_, err := svc.Index(context.Background(), "himu")
	require.NoError(t, err)

	// A fresh service starts with an empty registry: the build runs
	// again, but every vector comes from the store.
	embedder := &mockBatchEmbedder{}
	rebuilt := newTestIndexer(store, embedder)
	report, err := rebuilt.Index(context.Background(), "himu")
	require.NoError(t, err)

	assert.False(t, report.Reused)
	assert.Zero(t, report.Dropped)
	assert.Zero(t, embedder.batchCalls)
	assert.Zero(t, embedder.embedCalls)
}

func TestIndexerService_Index_IgnoresStaleStoredChunks(t *testing.T) {
	store := indexerTestStore(t, indexerTestDoc)
	persona, err := store.GetPersona(context.Background(), "himu")
	require.NoError(t, err)

	// Stored chunks whose text no longer matches the document must not
	// be reused.
	stale := []domain.Chunk{{
		PersonaID:      "himu",
		Offset:         0,
		Text:           "something entirely different",
		Embedding:      []float32{1, 2, 3, 4},
		EmbeddingModel: "mock-embed",
	}}
	require.NoError(t, store.SaveChunks(context.Background(), "himu", persona.DocVersion, stale))

	embedder := &mockBatchEmbedder{}
	svc := newTestIndexer(store, embedder)
	report, err := svc.Index(context.Background(), "himu")
	require.NoError(t, err)

	assert.Zero(t, report.Dropped)
	assert.Equal(t, 1, embedder.batchCalls)
}

func TestIndexerService_Index_ModelChangeIgnoresPersisted(t *testing.T) {
	store := indexerTestStore(t, indexerTestDoc)
	embedder := &mockBatchEmbedder{}
	svc := newTestIndexer(store, embedder)

	_, err := svc.Index(context.Background(), "himu")
	require.NoError(t, err)

	// Switching the embedding model invalidates both the published
	// index and the persisted vectors, even at equal dimensionality.
	embedder.model = "mock-embed-v2"
	report, err := svc.Index(context.Background(), "himu")
	require.NoError(t, err)

	assert.False(t, report.Reused)
	assert.Equal(t, "mock-embed-v2", report.EmbeddingModel)
	assert.Equal(t, 2, embedder.batchCalls)
}

func TestIndexerService_Index_BatchFailureFallsBackPerChunk(t *testing.T) {
	store := indexerTestStore(t, indexerTestDoc)
	embedder := &mockBatchEmbedder{batchErr: errors.New("batch endpoint down")}
	svc := newTestIndexer(store, embedder)

	report, err := svc.Index(context.Background(), "himu")
	require.NoError(t, err)

	assert.Zero(t, report.Dropped)
	assert.Equal(t, report.Chunks, embedder.embedCalls)
}

func TestIndexerService_Index_ShortBatchFallsBackPerChunk(t *testing.T) {
	store := indexerTestStore(t, indexerTestDoc)
	embedder := &mockBatchEmbedder{batchShort: true}
	svc := newTestIndexer(store, embedder)

	report, err := svc.Index(context.Background(), "himu")
	require.NoError(t, err)

	assert.Zero(t, report.Dropped)
	assert.Equal(t, report.Chunks, embedder.embedCalls)
}

func TestIndexerService_Index_DropsChunkAfterRetry(t *testing.T) {
	store := indexerTestStore(t, indexerTestDoc)
	chunks := indexerTestChunks(indexerTestDoc)
	require.GreaterOrEqual(t, len(chunks), 3)

	embedder := &mockBatchEmbedder{
		batchErr: errors.New("batch endpoint down"),
		failTexts: map[string]int{
			chunks[0].Text: 1, // transient: the retry succeeds
			chunks[1].Text: 2, // permanent: dropped after the retry
		},
	}
	svc := newTestIndexer(store, embedder)

	report, err := svc.Index(context.Background(), "himu")
	require.NoError(t, err)

	assert.Equal(t, 1, report.Dropped)
	assert.Equal(t, len(chunks)-1, report.Chunks)

	persona, err := store.GetPersona(context.Background(), "himu")
	require.NoError(t, err)
	stored, err := store.GetChunks(context.Background(), "himu", persona.DocVersion)
	require.NoError(t, err)
	assert.Len(t, stored, len(chunks)-1)
}

func TestIndexerService_Index_EmptyDocument(t *testing.T) {
	store := indexerTestStore(t, "")
	embedder := &mockBatchEmbedder{}
	svc := newTestIndexer(store, embedder)

	report, err := svc.Index(context.Background(), "himu")
	require.NoError(t, err)

	assert.Zero(t, report.Chunks)
	assert.Zero(t, report.Dropped)
	assert.Zero(t, embedder.batchCalls)

	persona, err := store.GetPersona(context.Background(), "himu")
	require.NoError(t, err)
	idx, err := svc.EnsureIndex(context.Background(), persona)
	require.NoError(t, err)
	assert.Zero(t, idx.Size())
}

func TestIndexerService_Index_NoEmbeddingService(t *testing.T) {
	store := indexerTestStore(t, indexerTestDoc)
	svc := newTestIndexer(store, nil)

	_, err := svc.Index(context.Background(), "himu")
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestIndexerService_Index_UnknownPersona(t *testing.T) {
	svc := newTestIndexer(storagemem.NewPersonaStore(), &mockBatchEmbedder{})

	_, err := svc.Index(context.Background(), "nobody")
	assert.ErrorIs(t, err, domain.ErrPersonaNotFound)
}

func TestIndexerService_Index_BuildInProgress(t *testing.T) {
	store := indexerTestStore(t, indexerTestDoc)
	svc := newTestIndexer(store, &mockBatchEmbedder{})

	svc.mu.Lock()
	svc.building["himu"] = true
	svc.mu.Unlock()

	_, err := svc.Index(context.Background(), "himu")
	assert.ErrorIs(t, err, domain.ErrIndexBuildInProgress)

	status, err := svc.Status(context.Background(), "himu")
	require.NoError(t, err)
	assert.True(t, status.Running)
}

func TestIndexerService_IndexAll(t *testing.T) {
	store := indexerTestStore(t, indexerTestDoc)
	second := &domain.Persona{ID: "misir-ali", DisplayName: "Misir Ali"}
	second.SetDocument("Misir Ali teaches parapsychology and distrusts everything he cannot verify.")
	require.NoError(t, store.SavePersona(context.Background(), second))

	svc := newTestIndexer(store, &mockBatchEmbedder{})
	reports, err := svc.IndexAll(context.Background())
	require.NoError(t, err)

	require.Len(t, reports, 2)
	assert.Equal(t, "himu", reports[0].PersonaID)
	assert.Equal(t, "misir-ali", reports[1].PersonaID)
}

func TestIndexerService_Status(t *testing.T) {
	store := indexerTestStore(t, indexerTestDoc)
	svc := newTestIndexer(store, &mockBatchEmbedder{})

	before, err := svc.Status(context.Background(), "himu")
	require.NoError(t, err)
	assert.False(t, before.Indexed)
	assert.False(t, before.Running)
	assert.Empty(t, before.Version)

	report, err := svc.Index(context.Background(), "himu")
	require.NoError(t, err)

	after, err := svc.Status(context.Background(), "himu")
	require.NoError(t, err)
	assert.True(t, after.Indexed)
	assert.Equal(t, report.Version, after.Version)
	assert.Equal(t, report.Chunks, after.Chunks)
}

func TestIndexerService_Status_UnknownPersona(t *testing.T) {
	svc := newTestIndexer(storagemem.NewPersonaStore(), &mockBatchEmbedder{})

	_, err := svc.Status(context.Background(), "nobody")
	assert.ErrorIs(t, err, domain.ErrPersonaNotFound)
}

func TestIndexerService_EnsureIndex_ReturnsPublishedIndex(t *testing.T) {
	store := indexerTestStore(t, indexerTestDoc)
	svc := newTestIndexer(store, &mockBatchEmbedder{})

	persona, err := store.GetPersona(context.Background(), "himu")
	require.NoError(t, err)

	first, err := svc.EnsureIndex(context.Background(), persona)
	require.NoError(t, err)
	second, err := svc.EnsureIndex(context.Background(), persona)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, persona.DocVersion, first.Version())
}

func TestIndexerService_DocumentEditRebuilds(t *testing.T) {
	store := indexerTestStore(t, indexerTestDoc)
	embedder := &mockBatchEmbedder{}
	svc := newTestIndexer(store, embedder)

	persona, err := store.GetPersona(context.Background(), "himu")
	require.NoError(t, err)
	old, err := svc.EnsureIndex(context.Background(), persona)
	require.NoError(t, err)

	persona.SetDocument(indexerTestDoc + " He refuses umbrellas on principle.")
	require.NoError(t, store.SavePersona(context.Background(), persona))

	report, err := svc.Index(context.Background(), "himu")
	require.NoError(t, err)

	assert.False(t, report.Reused)
	assert.Equal(t, persona.DocVersion, report.Version)
	assert.NotEqual(t, old.Version(), report.Version)

	// The retired index is not closed: a session that resolved it
	// before the edit finishes its retrieval against it.
	_, err = old.Search(context.Background(), embedder.vector("rain"), 1)
	assert.NoError(t, err)
}

func TestIndexerService_Invalidate(t *testing.T) {
	store := indexerTestStore(t, indexerTestDoc)
	embedder := &mockBatchEmbedder{}
	svc := newTestIndexer(store, embedder)

	_, err := svc.Index(context.Background(), "himu")
	require.NoError(t, err)

	svc.Invalidate("himu")

	status, err := svc.Status(context.Background(), "himu")
	require.NoError(t, err)
	assert.False(t, status.Indexed)
	assert.Empty(t, status.Version)

	// The rebuild reuses the persisted vectors, so no further
	// embedding calls are made.
	persona, err := store.GetPersona(context.Background(), "himu")
	require.NoError(t, err)
	_, err = svc.EnsureIndex(context.Background(), persona)
	require.NoError(t, err)
	assert.Equal(t, 1, embedder.batchCalls)
}

func TestIndexerService_Close(t *testing.T) {
	store := indexerTestStore(t, indexerTestDoc)
	embedder := &mockBatchEmbedder{}
	svc := newTestIndexer(store, embedder)

	persona, err := store.GetPersona(context.Background(), "himu")
	require.NoError(t, err)
	idx, err := svc.EnsureIndex(context.Background(), persona)
	require.NoError(t, err)

	require.NoError(t, svc.Close())

	_, err = idx.Search(context.Background(), embedder.vector("rain"), 1)
	assert.ErrorIs(t, err, domain.ErrIndexClosed)
}
