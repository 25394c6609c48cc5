package chromemdb

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"

	"jargon-translator/internal/index"
)

const collectionName = "document"

var ErrZeroVector = errors.New("cannot rank a zero vector by cosine similarity")

// VectorDBManager keeps one document's chunk vectors in an in-memory chromem collection.
//
// chromem normalises what it stores and ranks by cosine similarity, so its
// results are only used as the candidate set. Hits are scored by squared
// Euclidean distance against the raw vectors, which keeps ranking and
// distances identical to index.Flat.
type VectorDBManager struct {
	collection *chromem.Collection
	vectors    [][]float32
	dim        int
}

// NewVectorDBManager creates a fresh collection holding contents[i] with vectors[i].
func NewVectorDBManager(ctx context.Context, contents []string, vectors [][]float32) (*VectorDBManager, error) {
	if len(vectors) == 0 {
		return nil, index.ErrEmpty
	}
	if len(contents) != len(vectors) {
		return nil, fmt.Errorf("got %d contents for %d vectors", len(contents), len(vectors))
	}

	dim := len(vectors[0])
	docs := make([]chromem.Document, len(vectors))
	raw := make([][]float32, len(vectors))
	for i, v := range vectors {
		if len(v) != dim || dim == 0 {
			return nil, fmt.Errorf("%w: vector %d has %d dimensions, want %d", index.ErrDimensionMismatch, i, len(v), dim)
		}
		if isZero(v) {
			return nil, fmt.Errorf("vector %d: %w", i, ErrZeroVector)
		}
		// chromem normalises in place
		raw[i] = slices.Clone(v)
		id := strconv.Itoa(i)
		docs[i] = chromem.Document{
			ID:        id,
			Content:   contents[i],
			Metadata:  map[string]string{"chunk_id": id},
			Embedding: slices.Clone(v),
		}
	}

	db := chromem.NewDB()
	// vectors are supplied, so the collection never calls an embedding func
	c, err := db.CreateCollection(collectionName, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create collection: %w", err)
	}
	if err := c.AddDocuments(ctx, docs, 1); err != nil {
		return nil, fmt.Errorf("failed to add documents: %w", err)
	}

	log.Debug().Int("documents", c.Count()).Int("dimension", dim).Msg("Built chromem collection")

	return &VectorDBManager{collection: c, vectors: raw, dim: dim}, nil
}

func (m *VectorDBManager) Len() int       { return m.collection.Count() }
func (m *VectorDBManager) Dimension() int { return m.dim }

// Search returns the k closest chunks by ascending distance, ties by chunk id.
func (m *VectorDBManager) Search(ctx context.Context, query []float32, k int) ([]index.Hit, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: %d", index.ErrInvalidK, k)
	}
	if len(query) != m.dim {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d", index.ErrDimensionMismatch, len(query), m.dim)
	}
	if isZero(query) {
		return nil, ErrZeroVector
	}

	// every document is a candidate so ties at the cutoff resolve by chunk id
	results, err := m.collection.QueryEmbedding(ctx, slices.Clone(query), m.collection.Count(), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %w", err)
	}

	hits := make([]index.Hit, 0, len(results))
	for _, r := range results {
		id, err := strconv.Atoi(r.ID)
		if err != nil || id < 0 || id >= len(m.vectors) {
			return nil, fmt.Errorf("unexpected document id %q", r.ID)
		}
		hits = append(hits, index.Hit{ChunkID: id, Distance: index.SquaredL2(query, m.vectors[id])})
	}
	index.SortHits(hits)
	if k < len(hits) {
		hits = hits[:k]
	}
	return hits, nil
}

func isZero(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
