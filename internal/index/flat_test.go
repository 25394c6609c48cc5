package index

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomVectors(n, dim int, seed int64) [][]float32 {
	r := rand.New(rand.NewSource(seed))
	out := make([][]float32, n)
	for i := range out {
		v := make([]float32, dim)
		for j := range v {
			v[j] = r.Float32()*2 - 1
		}
		out[i] = v
	}
	return out
}

func TestBuildErrors(t *testing.T) {
	_, err := Build(nil)
	assert.ErrorIs(t, err, ErrEmpty)

	_, err = Build([][]float32{{}})
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	_, err = Build([][]float32{{1, 2}, {1, 2, 3}})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestBuildCopiesInput(t *testing.T) {
	vectors := [][]float32{{1, 0}, {0, 1}}
	idx, err := Build(vectors)
	require.NoError(t, err)

	vectors[0][0] = 100

	hits, err := idx.Search(context.Background(), []float32{1, 0}, 1)
	require.NoError(t, err)
	assert.Equal(t, []Hit{{ChunkID: 0, Distance: 0}}, hits)
}

func TestSelfRetrieval(t *testing.T) {
	vectors := randomVectors(50, 16, 7)
	idx, err := Build(vectors)
	require.NoError(t, err)
	assert.Equal(t, 50, idx.Len())
	assert.Equal(t, 16, idx.Dimension())

	for i, v := range vectors {
		hits, err := idx.Search(context.Background(), v, 1)
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, i, hits[0].ChunkID)
		assert.Zero(t, hits[0].Distance)
	}
}

func TestSearchOrderAndLength(t *testing.T) {
	vectors := randomVectors(10, 8, 42)
	idx, err := Build(vectors)
	require.NoError(t, err)
	query := randomVectors(1, 8, 99)[0]

	for _, k := range []int{1, 3, 10, 25} {
		hits, err := idx.Search(context.Background(), query, k)
		require.NoError(t, err)
		assert.Len(t, hits, min(k, 10))
		for i := 1; i < len(hits); i++ {
			assert.LessOrEqual(t, hits[i-1].Distance, hits[i].Distance)
		}
	}
}

func TestSearchTiesKeepInsertionOrder(t *testing.T) {
	idx, err := Build([][]float32{{0, 1}, {1, 0}, {0, 1}, {-1, 0}})
	require.NoError(t, err)

	hits, err := idx.Search(context.Background(), []float32{0, 0}, 4)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 3}, chunkIDs(hits))

	hits, err = idx.Search(context.Background(), []float32{0, 1}, 2)
	require.NoError(t, err)
	assert.Equal(t, []Hit{{ChunkID: 0}, {ChunkID: 2}}, hits)
}

func TestSearchErrors(t *testing.T) {
	idx, err := Build([][]float32{{1, 2, 3}})
	require.NoError(t, err)

	_, err = idx.Search(context.Background(), []float32{1, 2}, 1)
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	_, err = idx.Search(context.Background(), []float32{1, 2, 3}, 0)
	assert.ErrorIs(t, err, ErrInvalidK)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = idx.Search(ctx, []float32{1, 2, 3}, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func chunkIDs(hits []Hit) []int {
	ids := make([]int, len(hits))
	for i, h := range hits {
		ids[i] = h.ChunkID
	}
	return ids
}
