package oauth

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"github.com/petal-labs/anthropic-go/core"
	"github.com/petal-labs/anthropic-go/internal/json"
)

// ExpiryBuffer is how long before expiry a token is refreshed.
const ExpiryBuffer = 5 * time.Minute

var (
	// ErrRefreshRejected is returned when the refresh token is invalid or
	// revoked.
	ErrRefreshRejected = errors.New("oauth: refresh token invalid or revoked")

	// ErrNoRefreshToken is returned when a refresh is needed but the
	// manager has no refresh token.
	ErrNoRefreshToken = errors.New("oauth: no refresh token")
)

// Tokens is an access and refresh token pair. A zero ExpiresAt means the
// access token has no known expiry and is only replaced after a 401.
type Tokens struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// RefreshError reports a refresh endpoint failure other than rejection.
type RefreshError struct {
	Status int
	Err    error
}

func (e *RefreshError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("oauth: token refresh failed: %v", e.Err)
	}
	return fmt.Sprintf("oauth: token refresh failed with status %d", e.Status)
}

func (e *RefreshError) Unwrap() error { return e.Err }

// TokenManager hands out access tokens and refreshes them through the
// refresh endpoint. It is safe for concurrent use; concurrent refreshes are
// coalesced into one request.
type TokenManager struct {
	clientID   string
	endpoint   string
	httpClient *http.Client
	onRefresh  func(Tokens)

	mu      sync.Mutex
	refresh core.Secret
	source  oauth2.TokenSource
	group   singleflight.Group
}

// NewTokenManager starts from initial tokens.
func NewTokenManager(initial Tokens, clientID, endpoint string, httpClient *http.Client, onRefresh func(Tokens)) *TokenManager {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	m := &TokenManager{
		clientID:   clientID,
		endpoint:   endpoint,
		httpClient: httpClient,
		onRefresh:  onRefresh,
		refresh:    core.NewSecret(initial.RefreshToken),
	}
	var tok *oauth2.Token
	if initial.AccessToken != "" {
		tok = &oauth2.Token{AccessToken: initial.AccessToken, TokenType: "Bearer", Expiry: initial.ExpiresAt}
	}
	m.source = oauth2.ReuseTokenSourceWithExpiry(tok, refreshSource{m}, ExpiryBuffer)
	return m
}

// Token returns a valid access token, refreshing it first if it expires
// within ExpiryBuffer.
func (m *TokenManager) Token() (string, error) {
	m.mu.Lock()
	src := m.source
	m.mu.Unlock()
	v, err, _ := m.group.Do("token", func() (any, error) {
		tok, err := src.Token()
		if err != nil {
			return "", err
		}
		return tok.AccessToken, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Renew replaces stale with a freshly refreshed token. Callers that saw the
// same stale token share one refresh; a caller whose token was already
// replaced gets the current one.
func (m *TokenManager) Renew(stale string) (string, error) {
	v, err, _ := m.group.Do("renew:"+stale, func() (any, error) {
		current, err := m.Token()
		if err == nil && current != stale {
			return current, nil
		}
		m.Invalidate()
		return m.Token()
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Invalidate forces the next Token call to refresh.
func (m *TokenManager) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.source = oauth2.ReuseTokenSourceWithExpiry(nil, refreshSource{m}, ExpiryBuffer)
}

// refreshSource exchanges the current refresh token for new tokens.
type refreshSource struct {
	m *TokenManager
}

type refreshRequest struct {
	GrantType    string `json:"grant_type"`
	RefreshToken string `json:"refresh_token"`
	ClientID     string `json:"client_id"`
}

type refreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

func (s refreshSource) Token() (*oauth2.Token, error) {
	m := s.m
	m.mu.Lock()
	refresh := m.refresh
	m.mu.Unlock()
	if refresh.IsEmpty() {
		return nil, ErrNoRefreshToken
	}

	body, err := json.Marshal(refreshRequest{
		GrantType:    "refresh_token",
		RefreshToken: refresh.Expose(),
		ClientID:     m.clientID,
	})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, m.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, &RefreshError{Err: err}
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &RefreshError{Status: resp.StatusCode, Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return nil, ErrRefreshRejected
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, &RefreshError{Status: resp.StatusCode}
	}

	var parsed refreshResponse
	if err := json.Unmarshal(data, &parsed); err != nil || parsed.AccessToken == "" {
		return nil, &RefreshError{Status: resp.StatusCode, Err: errors.New("invalid refresh response")}
	}

	tokens := Tokens{AccessToken: parsed.AccessToken, RefreshToken: parsed.RefreshToken}
	if parsed.ExpiresIn > 0 {
		tokens.ExpiresAt = time.Now().Add(time.Duration(parsed.ExpiresIn) * time.Second)
	}
	if tokens.RefreshToken == "" {
		tokens.RefreshToken = refresh.Expose()
	}

	m.mu.Lock()
	m.refresh = core.NewSecret(tokens.RefreshToken)
	m.mu.Unlock()
	if m.onRefresh != nil {
		m.onRefresh(tokens)
	}
	return &oauth2.Token{AccessToken: tokens.AccessToken, TokenType: "Bearer", Expiry: tokens.ExpiresAt}, nil
}
