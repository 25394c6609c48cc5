package watsonx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

type TransportFunc func(http.RoundTripper) http.RoundTripper

type HttpOpts func(*httpConfig)

type httpConfig struct {
	requestTimeout time.Duration
	transports     []TransportFunc
}

// WithTimeout bounds every request; zero means no limit.
func WithTimeout(d time.Duration) HttpOpts {
	return func(c *httpConfig) { c.requestTimeout = d }
}

func WithTransport(f TransportFunc) HttpOpts {
	return func(c *httpConfig) { c.transports = append(c.transports, f) }
}

func newClient(opts ...HttpOpts) *http.Client {
	cfg := &httpConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	transport := http.DefaultTransport
	for _, f := range cfg.transports {
		transport = f(transport)
	}
	return &http.Client{Timeout: cfg.requestTimeout, Transport: transport}
}

// Connector performs the JSON and form requests shared by the IAM and
// generation endpoints. Non-2xx answers become *APIError and transport
// failures *NetworkError.
type Connector struct {
	httpClient *http.Client
}

func NewConnector(options ...HttpOpts) *Connector {
	return &Connector{httpClient: newClient(options...)}
}

type RequestOpt func(*http.Request)

func WithHeader(key, value string) RequestOpt {
	return func(r *http.Request) { r.Header.Set(key, value) }
}

// DoJSON sends reqBody as JSON to endpoint and decodes the answer into respBody.
func (c *Connector) DoJSON(ctx context.Context, method, endpoint string, reqBody, respBody any, opts ...RequestOpt) error {
	var body io.Reader
	if reqBody != nil {
		data, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, respBody, opts...)
}

// DoForm posts form as application/x-www-form-urlencoded.
func (c *Connector) DoForm(ctx context.Context, endpoint string, form url.Values, respBody any, opts ...RequestOpt) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBufferString(form.Encode()))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req, respBody, opts...)
}

func (c *Connector) do(req *http.Request, respBody any, opts ...RequestOpt) error {
	req.Header.Set("Accept", "application/json")
	for _, opt := range opts {
		opt(req)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Body: string(data)}
	}

	if respBody != nil {
		if err := json.Unmarshal(data, respBody); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// APIError is a non-2xx answer, carried with its body verbatim.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// NetworkError represents a network-level error (connection, timeout, etc.)
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}
