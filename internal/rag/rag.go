package rag

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"

	"jargon-translator/internal/chromemdb"
	"jargon-translator/internal/chunker"
	"jargon-translator/internal/config"
	"jargon-translator/internal/embedding"
	"jargon-translator/internal/helper"
	"jargon-translator/internal/index"
	"jargon-translator/internal/models"
)

// ErrNoText is returned when a document yields no chunks to index.
var ErrNoText = errors.New("document has no text to index")

// Searcher ranks indexed chunk vectors by distance to a query vector.
type Searcher interface {
	Search(ctx context.Context, query []float32, k int) ([]index.Hit, error)
	Len() int
}

// Index is the retrieval state built from one document: its chunks, their
// vectors and the embedder the vectors came from.
type Index struct {
	chunks   []string
	searcher Searcher
	embedder embeddings.Embedder
}

func (i *Index) Chunks() []string { return i.chunks }
func (i *Index) Len() int         { return len(i.chunks) }

// Retrieve embeds query and returns the k closest chunks, closest first.
func (i *Index) Retrieve(ctx context.Context, query string, k int) ([]models.Passage, error) {
	q, err := i.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	hits, err := i.searcher.Search(ctx, q, k)
	if err != nil {
		return nil, fmt.Errorf("failed to search index: %w", err)
	}

	passages := make([]models.Passage, 0, len(hits))
	for _, h := range hits {
		passages = append(passages, models.Passage{
			ChunkID:  h.ChunkID,
			Content:  i.chunks[h.ChunkID],
			Distance: h.Distance,
		})
	}
	return passages, nil
}

// Build chunks text at width, embeds every chunk and indexes the vectors in
// the given backend.
func Build(ctx context.Context, text string, width int, backend string, embedder embeddings.Embedder) (*Index, error) {
	chunks := chunker.Collect(text, width)
	if len(chunks) == 0 {
		return nil, ErrNoText
	}

	vectors, err := embedder.EmbedDocuments(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("failed to embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}

	var searcher Searcher
	switch backend {
	case config.IndexChromem:
		searcher, err = chromemdb.NewVectorDBManager(ctx, chunks, vectors)
	case config.IndexFlat, "":
		searcher, err = index.Build(vectors)
	default:
		err = fmt.Errorf("unknown index backend %q", backend)
	}
	if err != nil {
		return nil, err
	}

	log.Debug().Int("chunks", len(chunks)).Str("backend", backend).Msg("Built document index")
	return &Index{chunks: chunks, searcher: searcher, embedder: embedder}, nil
}

// RAG builds indexes for uploaded documents. The index of the current
// document is memoised by content hash; indexing a different document drops
// it.
type RAG struct {
	cfg       config.RAGConfig
	embedders embedding.Factory
	cache     *Cache
	current   string
}

func NewRAG(cfg config.RAGConfig, embedders embedding.Factory) *RAG {
	return &RAG{cfg: cfg, embedders: embedders, cache: NewCache(cfg.CacheTTL)}
}

func (r *RAG) TopK() int { return r.cfg.TopK }

// Index returns the index for text, building it on a cache miss.
func (r *RAG) Index(ctx context.Context, text string) (*Index, error) {
	key := helper.HashContent(text)
	if idx, ok := r.cache.Get(key); ok {
		log.Debug().Str("hash", key[:12]).Msg("Reusing cached index")
		return idx, nil
	}
	if key != r.current {
		r.cache.Invalidate()
	}

	embedder, err := r.embedders()
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	idx, err := Build(ctx, text, r.cfg.ChunkSize, r.cfg.Index, embedder)
	if err != nil {
		return nil, err
	}
	r.cache.Set(key, idx)
	r.current = key
	return idx, nil
}

// Reset forgets every cached index.
func (r *RAG) Reset() {
	r.cache.Invalidate()
	r.current = ""
}
