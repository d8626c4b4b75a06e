// Package oauth authenticates Messages API calls with OAuth bearer tokens
// instead of an API key.
//
// Access tokens are refreshed shortly before they expire. When the API
// still answers 401, the token is invalidated, refreshed once and the
// request is re-sent once.
//
//	client := oauth.New(oauth.Config{
//	    Tokens:          saved,
//	    ClientID:        clientID,
//	    RefreshEndpoint: oauth.DefaultRefreshEndpoint,
//	    OnRefresh:       func(t oauth.Tokens) { store(t) },
//	})
package oauth

import (
	"context"
	"io"
	"net/http"

	"github.com/petal-labs/anthropic-go/core"
	"github.com/petal-labs/anthropic-go/providers/anthropic"
)

// Beta is the beta flag required for OAuth authenticated calls.
const Beta = anthropic.BetaOAuth

// DefaultRefreshEndpoint is the Anthropic OAuth token endpoint.
const DefaultRefreshEndpoint = "https://console.anthropic.com/v1/oauth/token"

// Config configures an OAuth authenticated client.
type Config struct {
	Tokens          Tokens
	ClientID        string
	RefreshEndpoint string

	// HTTPClient is used for refresh calls. Defaults to http.DefaultClient.
	HTTPClient *http.Client

	// OnRefresh receives every new token pair, e.g. to persist it.
	OnRefresh func(Tokens)
}

// New returns a client that authenticates with cfg's tokens.
func New(cfg Config, opts ...anthropic.Option) *anthropic.Client {
	endpoint := cfg.RefreshEndpoint
	if endpoint == "" {
		endpoint = DefaultRefreshEndpoint
	}
	tm := NewTokenManager(cfg.Tokens, cfg.ClientID, endpoint, cfg.HTTPClient, cfg.OnRefresh)
	base := []anthropic.Option{
		anthropic.WithProvider("oauth"),
		anthropic.WithMiddleware(NewMiddleware(tm)),
	}
	return anthropic.New("", append(base, opts...)...)
}

// Middleware applies bearer authentication from a TokenManager.
type Middleware struct {
	tokens *TokenManager
}

// NewMiddleware returns a middleware using tm.
func NewMiddleware(tm *TokenManager) *Middleware {
	return &Middleware{tokens: tm}
}

func (m *Middleware) Name() string { return "oauth" }

func (m *Middleware) Handle(ctx context.Context, req *core.Request, next core.Handler) (*http.Response, error) {
	token, err := m.tokens.Token()
	if err != nil {
		return nil, err
	}
	resend := req.Clone()

	apply(req, token)
	resp, err := next(ctx, req)
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))
	resp.Body.Close()

	fresh, err := m.tokens.Renew(token)
	if err != nil {
		return nil, err
	}
	apply(resend, fresh)
	return next(ctx, resend)
}

// apply swaps the API key for the bearer token and adds the OAuth headers.
func apply(req *core.Request, token string) {
	req.Header.Del("x-api-key")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("anthropic-dangerous-direct-browser-access", "true")
	core.MergeBetas(req.Header, Beta)
}
