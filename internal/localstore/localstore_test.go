package localstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wagadu/finsight/internal/models"
)

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	ix, err := Open("", "test_collection", true)
	require.NoError(t, err)
	return ix
}

func TestAddAndQuery(t *testing.T) {
	ix := newTestIndex(t)
	ctx := context.Background()

	skipped, err := ix.AddChunks(ctx, []models.Chunk{
		{DocumentID: "doc-1", ChunkIndex: 0, Content: "revenue grew 12 percent", PageNumber: 3, Embedding: []float32{1, 0, 0}},
		{DocumentID: "doc-1", ChunkIndex: 1, Content: "operating expenses were flat", PageNumber: 5, Embedding: []float32{0, 1, 0}},
		{DocumentID: "doc-1", ChunkIndex: 2, Content: "no embedding here"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, skipped)
	assert.Equal(t, 2, ix.Count())

	retrieved, err := ix.Query(ctx, []float32{1, 0, 0}, 1)
	require.NoError(t, err)
	require.Len(t, retrieved, 1)
	assert.Equal(t, "revenue grew 12 percent", retrieved[0].Content)
	assert.Equal(t, 3, retrieved[0].PageNumber)
	assert.Equal(t, 0, retrieved[0].ChunkIndex)
	assert.InDelta(t, 1.0, retrieved[0].Score, 0.001)
}

func TestQueryClampsTopK(t *testing.T) {
	ix := newTestIndex(t)
	ctx := context.Background()

	_, err := ix.AddChunks(ctx, []models.Chunk{
		{DocumentID: "doc-1", ChunkIndex: 0, Content: "only chunk", PageNumber: 1, Embedding: []float32{1, 0}},
	})
	require.NoError(t, err)

	retrieved, err := ix.Query(ctx, []float32{1, 0}, 10)
	require.NoError(t, err)
	assert.Len(t, retrieved, 1)
}

func TestQueryEmptyCollection(t *testing.T) {
	ix := newTestIndex(t)

	retrieved, err := ix.Query(context.Background(), []float32{1, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, retrieved)
}

func TestQueryRequiresEmbedding(t *testing.T) {
	ix := newTestIndex(t)

	_, err := ix.Query(context.Background(), nil, 5)
	assert.Error(t, err)
}
