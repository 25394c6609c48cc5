package embedding

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"jargon-translator/internal/config"
)

// Factory hands out the embedder used to index one document and to embed
// queries against it. Embedders that fit themselves to a corpus must come
// back fresh from every call.
type Factory func() (embeddings.Embedder, error)

// NewFactory builds the Factory for the configured provider.
func NewFactory(cfg config.EmbeddingConfig) (Factory, error) {
	log.Debug().Interface("config", map[string]any{
		"provider":   cfg.Provider,
		"base_url":   cfg.BaseURL,
		"model":      cfg.Model,
		"batch_size": cfg.BatchSize,
	}).Msg("Loaded embedding config")

	switch cfg.Provider {
	case config.ProviderTFIDF:
		return func() (embeddings.Embedder, error) { return NewTFIDF(), nil }, nil
	case config.ProviderOllama:
		e, err := NewOllamaEmbedder(cfg)
		if err != nil {
			return nil, err
		}
		return shared(e), nil
	case config.ProviderOpenAI:
		e, err := NewOpenAIEmbedder(cfg)
		if err != nil {
			return nil, err
		}
		return shared(e), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
}

func shared(e embeddings.Embedder) Factory {
	return func() (embeddings.Embedder, error) { return e, nil }
}

// NewOllamaEmbedder creates an embedder backed by a local ollama server.
func NewOllamaEmbedder(cfg config.EmbeddingConfig) (*embeddings.EmbedderImpl, error) {
	opts := []ollama.Option{ollama.WithModel(cfg.Model)}
	if cfg.BaseURL != "" {
		opts = append(opts, ollama.WithServerURL(cfg.BaseURL))
	}
	llm, err := ollama.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ollama: %w", err)
	}
	return newEmbedder(llm, cfg.BatchSize)
}

// NewOpenAIEmbedder creates an embedder for any OpenAI compatible endpoint.
func NewOpenAIEmbedder(cfg config.EmbeddingConfig) (*embeddings.EmbedderImpl, error) {
	opts := []openai.Option{
		openai.WithToken(strings.TrimPrefix(cfg.Key, "Bearer ")),
		openai.WithEmbeddingModel(cfg.Model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize openai: %w", err)
	}
	return newEmbedder(llm, cfg.BatchSize)
}

func newEmbedder(client embeddings.EmbedderClient, batchSize int) (*embeddings.EmbedderImpl, error) {
	var opts []embeddings.Option
	if batchSize > 0 {
		opts = append(opts, embeddings.WithBatchSize(batchSize))
	}
	e, err := embeddings.NewEmbedder(client, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	return e, nil
}
