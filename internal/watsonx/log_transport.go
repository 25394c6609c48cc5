package watsonx

import (
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// logTransport logs outbound requests. Headers and bodies are left out: they
// carry the api key and bearer token.
type logTransport struct {
	transport http.RoundTripper
}

func (t *logTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	u := *req.URL
	u.RawQuery = ""

	start := time.Now()
	resp, err := t.transport.RoundTrip(req)

	event := log.Debug().
		Str("method", req.Method).
		Str("url", u.String()).
		Int64("content_length", req.ContentLength).
		Dur("duration", time.Since(start))
	if err != nil {
		event.Err(err).Msg("HTTP outbound request failed")
		return resp, err
	}
	event.Int("status", resp.StatusCode).Msg("HTTP outbound request")
	return resp, nil
}

// WithRequestLogging wraps the HTTP transport with request logging.
func WithRequestLogging() HttpOpts {
	return WithTransport(func(rt http.RoundTripper) http.RoundTripper {
		return &logTransport{transport: rt}
	})
}
