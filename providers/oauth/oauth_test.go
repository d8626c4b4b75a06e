package oauth

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tidwall/gjson"

	"github.com/petal-labs/anthropic-go/core"
	"github.com/petal-labs/anthropic-go/providers/anthropic"
)

// refreshServer issues access tokens "fresh-1", "fresh-2", ...
func refreshServer(t *testing.T, status int) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		body, _ := io.ReadAll(r.Body)
		if gjson.GetBytes(body, "grant_type").String() != "refresh_token" {
			t.Errorf("grant_type = %s", gjson.GetBytes(body, "grant_type").Raw)
		}
		if gjson.GetBytes(body, "client_id").String() != "client-1" {
			t.Errorf("client_id = %s", gjson.GetBytes(body, "client_id").Raw)
		}
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"access_token":"fresh-`+string(rune('0'+n))+`","refresh_token":"refresh-2","expires_in":3600}`)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestTokenStillValid(t *testing.T) {
	srv, calls := refreshServer(t, http.StatusOK)
	tm := NewTokenManager(Tokens{
		AccessToken:  "access",
		RefreshToken: "refresh",
		ExpiresAt:    time.Now().Add(ExpiryBuffer + time.Minute),
	}, "client-1", srv.URL, nil, nil)

	tok, err := tm.Token()
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if tok != "access" {
		t.Errorf("Token() = %q, want access", tok)
	}
	if calls.Load() != 0 {
		t.Errorf("refresh calls = %d, want 0", calls.Load())
	}
}

func TestTokenRefreshedWithinBuffer(t *testing.T) {
	srv, calls := refreshServer(t, http.StatusOK)
	var got []Tokens
	tm := NewTokenManager(Tokens{
		AccessToken:  "access",
		RefreshToken: "refresh",
		ExpiresAt:    time.Now().Add(ExpiryBuffer - time.Second),
	}, "client-1", srv.URL, nil, func(t Tokens) { got = append(got, t) })

	tok, err := tm.Token()
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if tok != "fresh-1" {
		t.Errorf("Token() = %q, want fresh-1", tok)
	}
	if len(got) != 1 || got[0].RefreshToken != "refresh-2" || got[0].ExpiresAt.IsZero() {
		t.Errorf("OnRefresh got %+v", got)
	}

	// The refreshed token is cached.
	if tok, _ := tm.Token(); tok != "fresh-1" || calls.Load() != 1 {
		t.Errorf("Token() = %q after %d refreshes, want fresh-1 after 1", tok, calls.Load())
	}
}

func TestTokenRefreshRejected(t *testing.T) {
	srv, _ := refreshServer(t, http.StatusUnauthorized)
	tm := NewTokenManager(Tokens{RefreshToken: "revoked"}, "client-1", srv.URL, nil, nil)
	if _, err := tm.Token(); !errors.Is(err, ErrRefreshRejected) {
		t.Errorf("Token() err = %v, want ErrRefreshRejected", err)
	}
}

func TestTokenRefreshServerError(t *testing.T) {
	srv, _ := refreshServer(t, http.StatusBadGateway)
	tm := NewTokenManager(Tokens{RefreshToken: "r"}, "client-1", srv.URL, nil, nil)
	_, err := tm.Token()
	var re *RefreshError
	if !errors.As(err, &re) || re.Status != http.StatusBadGateway {
		t.Errorf("Token() err = %v, want RefreshError with status 502", err)
	}
}

func TestInvalidateForcesRefresh(t *testing.T) {
	srv, calls := refreshServer(t, http.StatusOK)
	tm := NewTokenManager(Tokens{AccessToken: "access", RefreshToken: "refresh"}, "client-1", srv.URL, nil, nil)

	if tok, _ := tm.Token(); tok != "access" {
		t.Fatalf("Token() = %q, want access", tok)
	}
	tm.Invalidate()
	if tok, _ := tm.Token(); tok != "fresh-1" {
		t.Errorf("Token() = %q after Invalidate, want fresh-1", tok)
	}
	if calls.Load() != 1 {
		t.Errorf("refresh calls = %d, want 1", calls.Load())
	}
}

func TestRenewCoalesces(t *testing.T) {
	srv, calls := refreshServer(t, http.StatusOK)
	tm := NewTokenManager(Tokens{AccessToken: "stale", RefreshToken: "refresh"}, "client-1", srv.URL, nil, nil)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := tm.Renew("stale"); err != nil {
				t.Errorf("Renew: %v", err)
			}
		}()
	}
	wg.Wait()
	if calls.Load() != 1 {
		t.Errorf("refresh calls = %d, want 1", calls.Load())
	}
}

func TestClientRetriesOnceAfter401(t *testing.T) {
	refresh, _ := refreshServer(t, http.StatusOK)

	var auths []string
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auths = append(auths, r.Header.Get("Authorization"))
		if r.Header.Get("x-api-key") != "" {
			t.Errorf("x-api-key sent: %q", r.Header.Get("x-api-key"))
		}
		if r.Header.Get("anthropic-dangerous-direct-browser-access") != "true" {
			t.Error("browser access header missing")
		}
		if len(core.SplitBetas(r.Header)) != 1 || core.SplitBetas(r.Header)[0] != Beta {
			t.Errorf("betas = %v, want [%s]", core.SplitBetas(r.Header), Beta)
		}
		w.Header().Set("Content-Type", "application/json")
		if r.Header.Get("Authorization") == "Bearer expired" {
			w.WriteHeader(http.StatusUnauthorized)
			io.WriteString(w, `{"type":"error","error":{"type":"authentication_error","message":"expired"}}`)
			return
		}
		io.WriteString(w, `{"input_tokens":7}`)
	}))
	defer api.Close()

	client := New(Config{
		Tokens:          Tokens{AccessToken: "expired", RefreshToken: "refresh"},
		ClientID:        "client-1",
		RefreshEndpoint: refresh.URL,
	}, anthropic.WithBaseURL(api.URL))

	count, err := client.Messages.CountTokens(context.Background(), anthropic.CountTokensParams{
		Model:    "claude-sonnet-4-5",
		Messages: []anthropic.MessageParam{anthropic.UserText("Hi")},
	})
	if err != nil {
		t.Fatalf("CountTokens: %v", err)
	}
	if count.InputTokens != 7 {
		t.Errorf("InputTokens = %d, want 7", count.InputTokens)
	}
	want := []string{"Bearer expired", "Bearer fresh-1"}
	if len(auths) != 2 || auths[0] != want[0] || auths[1] != want[1] {
		t.Errorf("Authorization sequence = %v, want %v", auths, want)
	}
}

func TestClientRefreshFailureIsNotRetried(t *testing.T) {
	refresh, calls := refreshServer(t, http.StatusForbidden)
	var apiCalls atomic.Int32
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiCalls.Add(1)
	}))
	defer api.Close()

	client := New(Config{
		Tokens:          Tokens{RefreshToken: "revoked"},
		ClientID:        "client-1",
		RefreshEndpoint: refresh.URL,
	}, anthropic.WithBaseURL(api.URL))

	_, err := client.Models.List(context.Background(), anthropic.ListParams{})
	if !errors.Is(err, core.ErrMiddleware) || !errors.Is(err, ErrRefreshRejected) {
		t.Errorf("err = %v, want ErrMiddleware wrapping ErrRefreshRejected", err)
	}
	if calls.Load() != 1 || apiCalls.Load() != 0 {
		t.Errorf("refresh calls = %d, api calls = %d; want 1 and 0", calls.Load(), apiCalls.Load())
	}
}
