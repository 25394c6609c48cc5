package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func setCredentials(t *testing.T) {
	t.Setenv("IBM_API_KEY", "test-key")
	t.Setenv("IBM_PROJECT_ID", "test-project")
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	setCredentials(t)

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 200, cfg.RAG.ChunkSize)
	assert.Equal(t, 3, cfg.RAG.TopK)
	assert.Equal(t, IndexFlat, cfg.RAG.Index)
	assert.Equal(t, ProviderWatsonx, cfg.Generation.Provider)
	assert.Equal(t, "ibm/granite-3-3-8b-instruct", cfg.Generation.Watsonx.ModelID)
	assert.Equal(t, "2024-05-29", cfg.Generation.Watsonx.Version)
	assert.False(t, cfg.Generation.Watsonx.ReuseToken)
	assert.Equal(t, time.Duration(0), cfg.Generation.Timeout)
	assert.Equal(t, []string{"\n\n"}, cfg.Generation.Parameters.StopSequences)
	assert.Equal(t, "test-key", cfg.Generation.Watsonx.APIKey)
	assert.Equal(t, "test-project", cfg.Generation.Watsonx.ProjectID)
}

func TestLoadConfigFileAndEnvOverlay(t *testing.T) {
	setCredentials(t)
	t.Setenv("JARGON_LOG_LEVEL", "debug")

	path := writeConfig(t, `
log_level: warn
rag:
  chunk_size: 20
  top_k: 1
  index: chromem
  cache_ttl: 5m
embedding:
  provider: tfidf
generation:
  timeout: 30s
  watsonx:
    api_key: from-file
    reuse_token: true
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 20, cfg.RAG.ChunkSize)
	assert.Equal(t, 1, cfg.RAG.TopK)
	assert.Equal(t, IndexChromem, cfg.RAG.Index)
	assert.Equal(t, 5*time.Minute, cfg.RAG.CacheTTL)
	assert.Equal(t, ProviderTFIDF, cfg.Embedding.Provider)
	assert.Equal(t, 30*time.Second, cfg.Generation.Timeout)
	assert.True(t, cfg.Generation.Watsonx.ReuseToken)
	// environment wins over the file
	assert.Equal(t, "test-key", cfg.Generation.Watsonx.APIKey)
	// untouched defaults survive a partial file
	assert.Equal(t, 300, cfg.Generation.Parameters.MaxNewTokens)
	assert.Equal(t, "https://us-south.ml.cloud.ibm.com", cfg.Generation.Watsonx.URL)
}

func TestLoadConfigMissingCredentials(t *testing.T) {
	t.Setenv("IBM_API_KEY", "")
	t.Setenv("IBM_PROJECT_ID", "")

	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "APIKey")
	assert.Contains(t, err.Error(), "ProjectID")
}

func TestLoadConfigCredentialsOnlyNeededForWatsonx(t *testing.T) {
	t.Setenv("IBM_API_KEY", "")
	t.Setenv("IBM_PROJECT_ID", "")

	path := writeConfig(t, `
generation:
  provider: ollama
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ProviderOllama, cfg.Generation.Provider)
}

func TestLoadConfigInvalidYAML(t *testing.T) {
	setCredentials(t)
	_, err := LoadConfig(writeConfig(t, "rag: [unterminated"))
	assert.ErrorContains(t, err, "parse config")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero chunk size", func(c *Config) { c.RAG.ChunkSize = 0 }},
		{"zero top k", func(c *Config) { c.RAG.TopK = 0 }},
		{"unknown index", func(c *Config) { c.RAG.Index = "faiss" }},
		{"unknown embedding provider", func(c *Config) { c.Embedding.Provider = "cohere" }},
		{"embedding model required", func(c *Config) { c.Embedding.Model = "" }},
		{"unknown log level", func(c *Config) { c.LogLevel = "trace" }},
		{"min tokens above max", func(c *Config) { c.Generation.Parameters.MinNewTokens = 400 }},
		{"missing watsonx url", func(c *Config) { c.Generation.Watsonx.URL = "" }},
		{"bad url", func(c *Config) { c.Generation.Watsonx.IAMURL = "not a url" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Generation.Watsonx.APIKey = "k"
			cfg.Generation.Watsonx.ProjectID = "p"
			require.NoError(t, cfg.Validate())

			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidateTFIDFNeedsNoModel(t *testing.T) {
	cfg := Default()
	cfg.Generation.Provider = ProviderOpenAI
	cfg.Embedding.Provider = ProviderTFIDF
	cfg.Embedding.Model = ""
	assert.NoError(t, cfg.Validate())
}
