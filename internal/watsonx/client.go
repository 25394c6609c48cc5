package watsonx

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"jargon-translator/internal/config"
)

var ErrEmptyResult = errors.New("generation response has no results")

// Parameters are the decoding settings sent with every generation request.
type Parameters struct {
	DecodingMethod    string   `json:"decoding_method"`
	MaxNewTokens      int      `json:"max_new_tokens"`
	MinNewTokens      int      `json:"min_new_tokens"`
	StopSequences     []string `json:"stop_sequences"`
	RepetitionPenalty float64  `json:"repetition_penalty"`
}

type GenerationRequest struct {
	Input      string     `json:"input"`
	ModelID    string     `json:"model_id"`
	ProjectID  string     `json:"project_id"`
	Parameters Parameters `json:"parameters"`
}

type GenerationResult struct {
	GeneratedText       string `json:"generated_text"`
	GeneratedTokenCount int    `json:"generated_token_count"`
	InputTokenCount     int    `json:"input_token_count"`
	StopReason          string `json:"stop_reason"`
}

type GenerationResponse struct {
	ModelID   string             `json:"model_id"`
	CreatedAt string             `json:"created_at"`
	Results   []GenerationResult `json:"results"`
}

// Client submits prompts to the watsonx.ai text generation endpoint.
type Client struct {
	conn      *Connector
	tokens    *TokenSource
	endpoint  string
	projectID string
	modelID   string
	params    Parameters
}

// NewClient wires a Client from configuration. Extra options are applied to
// the shared HTTP client after the timeout and request logging.
func NewClient(cfg config.WatsonxConfig, params config.ParametersConfig, timeout time.Duration, opts ...HttpOpts) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.URL, "/") + "/ml/v1/text/generation")
	if err != nil {
		return nil, fmt.Errorf("invalid watsonx url: %w", err)
	}
	base.RawQuery = url.Values{"version": {cfg.Version}}.Encode()

	conn := NewConnector(append([]HttpOpts{WithTimeout(timeout), WithRequestLogging()}, opts...)...)
	return &Client{
		conn:      conn,
		tokens:    NewTokenSource(conn, cfg.IAMURL, cfg.APIKey, cfg.ReuseToken),
		endpoint:  base.String(),
		projectID: cfg.ProjectID,
		modelID:   cfg.ModelID,
		params: Parameters{
			DecodingMethod:    params.DecodingMethod,
			MaxNewTokens:      params.MaxNewTokens,
			MinNewTokens:      params.MinNewTokens,
			StopSequences:     params.StopSequences,
			RepetitionPenalty: params.RepetitionPenalty,
		},
	}, nil
}

// Generate obtains a token and returns the text generated for prompt.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	tok, err := c.tokens.Token(ctx)
	if err != nil {
		return "", err
	}

	req := GenerationRequest{
		Input:      prompt,
		ModelID:    c.modelID,
		ProjectID:  c.projectID,
		Parameters: c.params,
	}
	var resp GenerationResponse
	err = c.conn.DoJSON(ctx, http.MethodPost, c.endpoint, req, &resp,
		WithHeader("Authorization", tok.Type()+" "+tok.AccessToken))
	if err != nil {
		return "", fmt.Errorf("generation request failed: %w", err)
	}
	if len(resp.Results) == 0 {
		return "", ErrEmptyResult
	}

	r := resp.Results[0]
	log.Debug().
		Str("model_id", resp.ModelID).
		Int("generated_tokens", r.GeneratedTokenCount).
		Str("stop_reason", r.StopReason).
		Msg("Generation completed")
	return r.GeneratedText, nil
}
