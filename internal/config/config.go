package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"jargon-translator/internal/chunker"
)

const DefaultPath = "./configs/config.yaml"

const (
	IndexFlat    = "flat"
	IndexChromem = "chromem"

	ProviderOllama  = "ollama"
	ProviderOpenAI  = "openai"
	ProviderTFIDF   = "tfidf"
	ProviderWatsonx = "watsonx"
)

type Config struct {
	LogLevel   string           `yaml:"log_level" env:"JARGON_LOG_LEVEL" validate:"oneof=debug info warn error"`
	LogFile    string           `yaml:"log_file" env:"JARGON_LOG_FILE"`
	RAG        RAGConfig        `yaml:"rag"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Generation GenerationConfig `yaml:"generation"`
	Server     ServerConfig     `yaml:"server"`
}

type RAGConfig struct {
	ChunkSize int           `yaml:"chunk_size" validate:"gt=0"`
	TopK      int           `yaml:"top_k" validate:"gt=0"`
	Index     string        `yaml:"index" validate:"oneof=flat chromem"`
	CacheTTL  time.Duration `yaml:"cache_ttl" validate:"gte=0"`
}

// EmbeddingConfig selects the model that turns chunks and queries into vectors.
type EmbeddingConfig struct {
	Provider  string `yaml:"provider" validate:"oneof=ollama openai tfidf"`
	BaseURL   string `yaml:"base_url" validate:"omitempty,url"`
	Model     string `yaml:"model" validate:"required_unless=Provider tfidf"`
	Key       string `yaml:"key" env:"EMBEDDING_API_KEY"`
	BatchSize int    `yaml:"batch_size" validate:"gte=0"`
}

type GenerationConfig struct {
	Provider   string           `yaml:"provider" validate:"oneof=watsonx openai ollama"`
	Timeout    time.Duration    `yaml:"timeout" validate:"gte=0"`
	Watsonx    WatsonxConfig    `yaml:"watsonx"`
	OpenAI     OpenAIConfig     `yaml:"openai"`
	Ollama     LLMConfig        `yaml:"ollama"`
	Parameters ParametersConfig `yaml:"parameters"`
}

type WatsonxConfig struct {
	APIKey     string `yaml:"api_key" env:"IBM_API_KEY"`
	ProjectID  string `yaml:"project_id" env:"IBM_PROJECT_ID"`
	IAMURL     string `yaml:"iam_url" validate:"omitempty,url"`
	URL        string `yaml:"url" validate:"omitempty,url"`
	Version    string `yaml:"version"`
	ModelID    string `yaml:"model_id"`
	ReuseToken bool   `yaml:"reuse_token"`
}

// LLMConfig points at a langchaingo backed model server.
type LLMConfig struct {
	BaseURL string `yaml:"base_url" validate:"omitempty,url"`
	Key     string `yaml:"key"`
	Model   string `yaml:"model"`
}

type OpenAIConfig struct {
	BaseURL string `yaml:"base_url" validate:"omitempty,url"`
	Key     string `yaml:"key" env:"OPENAI_API_KEY"`
	Model   string `yaml:"model"`
}

func (c OpenAIConfig) LLM() LLMConfig {
	return LLMConfig{BaseURL: c.BaseURL, Key: c.Key, Model: c.Model}
}

type ParametersConfig struct {
	DecodingMethod    string   `yaml:"decoding_method" validate:"oneof=greedy sample"`
	MaxNewTokens      int      `yaml:"max_new_tokens" validate:"gt=0"`
	MinNewTokens      int      `yaml:"min_new_tokens" validate:"gte=0,ltefield=MaxNewTokens"`
	StopSequences     []string `yaml:"stop_sequences"`
	RepetitionPenalty float64  `yaml:"repetition_penalty" validate:"gte=1"`
}

type ServerConfig struct {
	Addr string `yaml:"addr" env:"JARGON_SERVER_ADDR" validate:"required"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		RAG: RAGConfig{
			ChunkSize: chunker.DefaultWidth,
			TopK:      3,
			Index:     IndexFlat,
			CacheTTL:  time.Hour,
		},
		Embedding: EmbeddingConfig{
			Provider:  ProviderOllama,
			BaseURL:   "http://localhost:11434",
			Model:     "all-minilm",
			BatchSize: 32,
		},
		Generation: GenerationConfig{
			Provider: ProviderWatsonx,
			Watsonx: WatsonxConfig{
				IAMURL:  "https://iam.cloud.ibm.com/identity/token",
				URL:     "https://us-south.ml.cloud.ibm.com",
				Version: "2024-05-29",
				ModelID: "ibm/granite-3-3-8b-instruct",
			},
			OpenAI: OpenAIConfig{BaseURL: "https://api.openai.com/v1", Model: "gpt-4o-mini"},
			Ollama: LLMConfig{BaseURL: "http://localhost:11434", Model: "granite3.3:8b"},
			Parameters: ParametersConfig{
				DecodingMethod:    "greedy",
				MaxNewTokens:      300,
				MinNewTokens:      50,
				StopSequences:     []string{"\n\n"},
				RepetitionPenalty: 1.1,
			},
		},
		Server: ServerConfig{Addr: ":8080"},
	}
}

// LoadConfig reads path over the defaults, loads .env, overlays the
// environment and validates the result. A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		log.Debug().Str("path", path).Msg("Config file not found, using defaults")
	case err != nil:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	// variables already set in the process win over .env
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn().Err(err).Msg("Could not load .env file")
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks field constraints and that watsonx credentials are present
// when watsonx is the generation provider.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterStructValidation(validateGeneration, GenerationConfig{})
	return v.Struct(c)
}

func validateGeneration(sl validator.StructLevel) {
	g := sl.Current().Interface().(GenerationConfig)
	if g.Provider != ProviderWatsonx {
		return
	}
	if g.Watsonx.APIKey == "" {
		sl.ReportError(g.Watsonx.APIKey, "Watsonx.APIKey", "APIKey", "required_if", "Provider watsonx")
	}
	if g.Watsonx.ProjectID == "" {
		sl.ReportError(g.Watsonx.ProjectID, "Watsonx.ProjectID", "ProjectID", "required_if", "Provider watsonx")
	}
	if g.Watsonx.URL == "" || g.Watsonx.IAMURL == "" || g.Watsonx.ModelID == "" || g.Watsonx.Version == "" {
		sl.ReportError(g.Watsonx, "Watsonx", "Watsonx", "required_if", "Provider watsonx")
	}
}
