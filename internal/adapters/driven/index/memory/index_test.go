package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/fabula/internal/core/domain"
)

func chunk(offset int, text string, vec []float32) domain.Chunk {
	return domain.Chunk{PersonaID: "himu", Offset: offset, Text: text, Embedding: vec}
}

func TestBuilder_Build(t *testing.T) {
	b := NewBuilder()

	idx, err := b.Build(context.Background(), "himu", "v1", "mock-embed", []domain.Chunk{
		chunk(0, "one", []float32{1, 0, 0}),
		chunk(580, "two", []float32{0, 1, 0}),
	})

	require.NoError(t, err)
	assert.Equal(t, "himu", idx.PersonaID())
	assert.Equal(t, "v1", idx.Version())
	assert.Equal(t, "mock-embed", idx.ModelName())
	assert.Equal(t, 2, idx.Size())
}

func TestBuilder_Build_Empty(t *testing.T) {
	b := NewBuilder()

	idx, err := b.Build(context.Background(), "himu", "v1", "mock-embed", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, idx.Size())

	hits, err := idx.Search(context.Background(), []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestBuilder_Build_MissingEmbedding(t *testing.T) {
	b := NewBuilder()

	_, err := b.Build(context.Background(), "himu", "v1", "mock-embed", []domain.Chunk{
		chunk(0, "one", []float32{1, 0, 0}),
		chunk(580, "two", nil),
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestBuilder_Build_MixedDimensions(t *testing.T) {
	b := NewBuilder()

	_, err := b.Build(context.Background(), "himu", "v1", "mock-embed", []domain.Chunk{
		chunk(0, "one", []float32{1, 0, 0}),
		chunk(580, "two", []float32{0, 1}),
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestIndex_Search_Ordering(t *testing.T) {
	b := NewBuilder()
	idx, err := b.Build(context.Background(), "himu", "v1", "mock-embed", []domain.Chunk{
		chunk(0, "far", []float32{0, 1, 0}),
		chunk(580, "close", []float32{0.9, 0.1, 0}),
		chunk(1160, "exact", []float32{1, 0, 0}),
	})
	require.NoError(t, err)

	hits, err := idx.Search(context.Background(), []float32{1, 0, 0}, 3)
	require.NoError(t, err)
	require.Len(t, hits, 3)

	assert.Equal(t, "exact", hits[0].Chunk.Text)
	assert.Equal(t, "close", hits[1].Chunk.Text)
	assert.Equal(t, "far", hits[2].Chunk.Text)

	assert.InDelta(t, 1.0, hits[0].Similarity, 1e-6)
	assert.Greater(t, hits[1].Similarity, hits[2].Similarity)
}

func TestIndex_Search_TiesBreakByOffset(t *testing.T) {
	b := NewBuilder()

	// Identical vectors at different offsets, deliberately out of order.
	idx, err := b.Build(context.Background(), "himu", "v1", "mock-embed", []domain.Chunk{
		chunk(1160, "late", []float32{1, 0, 0}),
		chunk(0, "early", []float32{1, 0, 0}),
		chunk(580, "middle", []float32{1, 0, 0}),
	})
	require.NoError(t, err)

	hits, err := idx.Search(context.Background(), []float32{1, 0, 0}, 3)
	require.NoError(t, err)
	require.Len(t, hits, 3)

	assert.Equal(t, 0, hits[0].Chunk.Offset)
	assert.Equal(t, 580, hits[1].Chunk.Offset)
	assert.Equal(t, 1160, hits[2].Chunk.Offset)
}

func TestIndex_Search_KLargerThanIndex(t *testing.T) {
	b := NewBuilder()
	idx, err := b.Build(context.Background(), "himu", "v1", "mock-embed", []domain.Chunk{
		chunk(0, "only", []float32{1, 0, 0}),
	})
	require.NoError(t, err)

	hits, err := idx.Search(context.Background(), []float32{1, 0, 0}, 10)
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestIndex_Search_DimensionMismatch(t *testing.T) {
	b := NewBuilder()
	idx, err := b.Build(context.Background(), "himu", "v1", "mock-embed", []domain.Chunk{
		chunk(0, "one", []float32{1, 0, 0}),
	})
	require.NoError(t, err)

	_, err = idx.Search(context.Background(), []float32{1, 0}, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestIndex_Search_AfterClose(t *testing.T) {
	b := NewBuilder()
	idx, err := b.Build(context.Background(), "himu", "v1", "mock-embed", []domain.Chunk{
		chunk(0, "one", []float32{1, 0, 0}),
	})
	require.NoError(t, err)

	require.NoError(t, idx.Close())

	_, err = idx.Search(context.Background(), []float32{1, 0, 0}, 1)
	assert.ErrorIs(t, err, domain.ErrIndexClosed)
}

func TestIndex_Search_ZeroNormVector(t *testing.T) {
	b := NewBuilder()
	idx, err := b.Build(context.Background(), "himu", "v1", "mock-embed", []domain.Chunk{
		chunk(0, "zero", []float32{0, 0, 0}),
		chunk(580, "unit", []float32{1, 0, 0}),
	})
	require.NoError(t, err)

	hits, err := idx.Search(context.Background(), []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)

	assert.Equal(t, "unit", hits[0].Chunk.Text)
	assert.Equal(t, float64(0), hits[1].Similarity)
}
