package watsonx

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const (
	DefaultIAMURL = "https://iam.cloud.ibm.com/identity/token"
	apiKeyGrant   = "urn:ibm:params:oauth:grant-type:apikey"
)

var ErrNoAccessToken = errors.New("token response has no access_token")

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	Expiration   int64  `json:"expiration"`
}

func (r tokenResponse) token() *oauth2.Token {
	tok := &oauth2.Token{
		AccessToken:  r.AccessToken,
		TokenType:    r.TokenType,
		RefreshToken: r.RefreshToken,
	}
	switch {
	case r.Expiration > 0:
		tok.Expiry = time.Unix(r.Expiration, 0)
	case r.ExpiresIn > 0:
		tok.Expiry = time.Now().Add(time.Duration(r.ExpiresIn) * time.Second)
	}
	return tok
}

// TokenSource exchanges an IBM Cloud api key for a bearer token. Unless
// reuse is enabled every call performs a fresh exchange.
type TokenSource struct {
	conn   *Connector
	url    string
	apiKey string
	reuse  bool

	mu  sync.Mutex
	tok *oauth2.Token
}

func NewTokenSource(conn *Connector, iamURL, apiKey string, reuse bool) *TokenSource {
	if iamURL == "" {
		iamURL = DefaultIAMURL
	}
	return &TokenSource{conn: conn, url: iamURL, apiKey: apiKey, reuse: reuse}
}

// Token returns a bearer token for the next generation request.
func (s *TokenSource) Token(ctx context.Context) (*oauth2.Token, error) {
	if s.reuse {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.tok.Valid() {
			return s.tok, nil
		}
	}

	form := url.Values{
		"grant_type": {apiKeyGrant},
		"apikey":     {s.apiKey},
	}
	var resp tokenResponse
	if err := s.conn.DoForm(ctx, s.url, form, &resp); err != nil {
		return nil, fmt.Errorf("failed to get access token: %w", err)
	}
	if resp.AccessToken == "" {
		return nil, fmt.Errorf("failed to get access token: %w", ErrNoAccessToken)
	}

	tok := resp.token()
	log.Debug().Time("expiry", tok.Expiry).Bool("reuse", s.reuse).Msg("Obtained IAM token")
	if s.reuse {
		s.tok = tok
	}
	return tok, nil
}
