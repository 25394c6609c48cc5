package chromemdb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jargon-translator/internal/index"
)

func unitVectors() ([]string, [][]float32) {
	return []string{"revenue", "costs", "margin", "revenue again"},
		[][]float32{
			{1, 0, 0},
			{0, 1, 0},
			{0, 0, 1},
			{1, 0, 0},
		}
}

func TestNewVectorDBManager(t *testing.T) {
	ctx := context.Background()

	_, err := NewVectorDBManager(ctx, nil, nil)
	assert.ErrorIs(t, err, index.ErrEmpty)

	_, err = NewVectorDBManager(ctx, []string{"a", "b"}, [][]float32{{1, 0}, {1}})
	assert.ErrorIs(t, err, index.ErrDimensionMismatch)

	_, err = NewVectorDBManager(ctx, []string{"a"}, [][]float32{{0, 0}})
	assert.ErrorIs(t, err, ErrZeroVector)

	_, err = NewVectorDBManager(ctx, []string{"a"}, [][]float32{{1, 0}, {0, 1}})
	assert.Error(t, err)

	contents, vectors := unitVectors()
	m, err := NewVectorDBManager(ctx, contents, vectors)
	require.NoError(t, err)
	assert.Equal(t, 4, m.Len())
	assert.Equal(t, 3, m.Dimension())
}

func TestSearch(t *testing.T) {
	ctx := context.Background()
	contents, vectors := unitVectors()
	m, err := NewVectorDBManager(ctx, contents, vectors)
	require.NoError(t, err)

	hits, err := m.Search(ctx, []float32{0, 0, 1}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, 2, hits[0].ChunkID)
	assert.InDelta(t, 0, hits[0].Distance, 1e-5)

	// k larger than the collection is clamped
	hits, err = m.Search(ctx, []float32{1, 0, 0}, 10)
	require.NoError(t, err)
	require.Len(t, hits, 4)
	assert.Equal(t, 0, hits[0].ChunkID)
	assert.Equal(t, 3, hits[1].ChunkID)
	for i := 1; i < len(hits); i++ {
		assert.LessOrEqual(t, hits[i-1].Distance, hits[i].Distance)
	}
	assert.InDelta(t, 2, hits[2].Distance, 1e-5)
}

func TestSearchErrors(t *testing.T) {
	ctx := context.Background()
	contents, vectors := unitVectors()
	m, err := NewVectorDBManager(ctx, contents, vectors)
	require.NoError(t, err)

	_, err = m.Search(ctx, []float32{1, 0, 0}, 0)
	assert.ErrorIs(t, err, index.ErrInvalidK)

	_, err = m.Search(ctx, []float32{1, 0}, 1)
	assert.ErrorIs(t, err, index.ErrDimensionMismatch)

	_, err = m.Search(ctx, []float32{0, 0, 0}, 1)
	assert.ErrorIs(t, err, ErrZeroVector)
}

func TestSearchTiesKeepInsertionOrder(t *testing.T) {
	ctx := context.Background()
	contents := make([]string, 8)
	vectors := make([][]float32, 8)
	for i := range vectors {
		contents[i] = "same"
		vectors[i] = []float32{1, 0}
	}
	m, err := NewVectorDBManager(ctx, contents, vectors)
	require.NoError(t, err)

	for range 5 {
		hits, err := m.Search(ctx, []float32{1, 0}, 2)
		require.NoError(t, err)
		assert.Equal(t, []index.Hit{{ChunkID: 0}, {ChunkID: 1}}, hits)
	}
}

func TestSearchMatchesFlatForNonUnitVectors(t *testing.T) {
	ctx := context.Background()
	vectors := [][]float32{{10, 0}, {1, 1}, {0, 3}}
	m, err := NewVectorDBManager(ctx, []string{"a", "b", "c"}, vectors)
	require.NoError(t, err)
	flat, err := index.Build(vectors)
	require.NoError(t, err)

	query := []float32{1, 0}
	for _, k := range []int{1, 2, 3} {
		want, err := flat.Search(ctx, query, k)
		require.NoError(t, err)
		got, err := m.Search(ctx, query, k)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	hits, err := m.Search(ctx, query, 1)
	require.NoError(t, err)
	assert.Equal(t, []index.Hit{{ChunkID: 1, Distance: 1}}, hits)

	// stored vectors are not normalised by the collection
	assert.Equal(t, []float32{10, 0}, vectors[0])
}
