package llmservice

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"jargon-translator/internal/config"
)

// Generator runs prompts through a langchaingo model with the same decoding
// settings the watsonx client sends.
type Generator struct {
	llm     llms.Model
	params  config.ParametersConfig
	timeout time.Duration
}

func NewGenerator(llm llms.Model, params config.ParametersConfig) *Generator {
	return &Generator{llm: llm, params: params}
}

// NewOpenAIGenerator targets any OpenAI compatible chat endpoint.
func NewOpenAIGenerator(llmConfig config.LLMConfig, params config.ParametersConfig) (*Generator, error) {
	log.Debug().Str("base_url", llmConfig.BaseURL).Str("model", llmConfig.Model).Msg("Creating openai generator")
	llm, err := openai.New(
		openai.WithBaseURL(llmConfig.BaseURL),
		openai.WithToken(strings.TrimPrefix(llmConfig.Key, "Bearer ")),
		openai.WithModel(llmConfig.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize openai: %w", err)
	}
	return NewGenerator(llm, params), nil
}

func NewOllamaGenerator(llmConfig config.LLMConfig, params config.ParametersConfig) (*Generator, error) {
	log.Debug().Str("base_url", llmConfig.BaseURL).Str("model", llmConfig.Model).Msg("Creating ollama generator")
	llm, err := ollama.New(
		ollama.WithServerURL(llmConfig.BaseURL),
		ollama.WithModel(llmConfig.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ollama: %w", err)
	}
	return NewGenerator(llm, params), nil
}

// WithTimeout bounds every Generate call. Zero means no limit.
func (g *Generator) WithTimeout(d time.Duration) *Generator {
	g.timeout = d
	return g
}

func (g *Generator) callOptions() []llms.CallOption {
	opts := []llms.CallOption{
		llms.WithMaxTokens(g.params.MaxNewTokens),
		llms.WithMinLength(g.params.MinNewTokens),
		llms.WithStopWords(g.params.StopSequences),
		llms.WithRepetitionPenalty(g.params.RepetitionPenalty),
	}
	if g.params.DecodingMethod == "greedy" {
		opts = append(opts, llms.WithTemperature(0))
	}
	return opts
}

// Generate returns the completion for prompt.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	text, err := llms.GenerateFromSinglePrompt(ctx, g.llm, prompt, g.callOptions()...)
	if err != nil {
		return "", fmt.Errorf("generation failed: %w", err)
	}
	return text, nil
}
