// Package index holds embedding vectors for one document and answers exact
// nearest-neighbour queries under squared Euclidean distance.
package index

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
)

var (
	ErrEmpty             = errors.New("no vectors to index")
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	ErrInvalidK          = errors.New("k must be positive")
)

// Hit is one search result. ChunkID is the position the vector was built at.
type Hit struct {
	ChunkID  int
	Distance float32
}

// Flat is a brute-force index. It is immutable after Build.
type Flat struct {
	dim     int
	vectors [][]float32
}

// Build copies vectors into a new index. All vectors must share one non-zero dimension.
func Build(vectors [][]float32) (*Flat, error) {
	if len(vectors) == 0 {
		return nil, ErrEmpty
	}
	dim := len(vectors[0])
	if dim == 0 {
		return nil, fmt.Errorf("%w: vector 0 is empty", ErrDimensionMismatch)
	}
	stored := make([][]float32, len(vectors))
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("%w: vector %d has %d dimensions, want %d", ErrDimensionMismatch, i, len(v), dim)
		}
		stored[i] = slices.Clone(v)
	}
	return &Flat{dim: dim, vectors: stored}, nil
}

func (f *Flat) Len() int       { return len(f.vectors) }
func (f *Flat) Dimension() int { return f.dim }

// Search returns the k nearest vectors to query by ascending distance. Equal
// distances keep insertion order. k larger than the index returns everything.
func (f *Flat) Search(ctx context.Context, query []float32, k int) ([]Hit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if k <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidK, k)
	}
	if len(query) != f.dim {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d", ErrDimensionMismatch, len(query), f.dim)
	}

	hits := make([]Hit, len(f.vectors))
	for i, v := range f.vectors {
		hits[i] = Hit{ChunkID: i, Distance: SquaredL2(query, v)}
	}
	SortHits(hits)
	if k < len(hits) {
		hits = hits[:k]
	}
	return hits, nil
}

// SquaredL2 is the squared Euclidean distance between equal-length vectors.
func SquaredL2(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

// SortHits orders hits by distance, then by chunk id.
func SortHits(hits []Hit) {
	slices.SortFunc(hits, func(a, b Hit) int {
		if c := cmp.Compare(a.Distance, b.Distance); c != 0 {
			return c
		}
		return cmp.Compare(a.ChunkID, b.ChunkID)
	})
}
