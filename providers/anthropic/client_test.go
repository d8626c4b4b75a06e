package anthropic

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tidwall/gjson"

	"github.com/petal-labs/anthropic-go/core"
)

const helloMessage = `{
	"id": "msg_1",
	"type": "message",
	"role": "assistant",
	"content": [{"type": "text", "text": "Hello!"}],
	"model": "claude-sonnet-4-5",
	"stop_reason": "end_turn",
	"stop_sequence": null,
	"usage": {"input_tokens": 10, "output_tokens": 3}
}`

// recorded captures the last request a test server received.
type recorded struct {
	header http.Header
	path   string
	query  string
	body   []byte
}

func newServer(t *testing.T, status int, contentType, body string) (*httptest.Server, *recorded) {
	t.Helper()
	rec := &recorded{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.header = r.Header.Clone()
		rec.path = r.URL.Path
		rec.query = r.URL.RawQuery
		rec.body, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(status)
		io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, rec
}

func noJitterRetries(n int) core.RetryPolicy {
	return core.NewRetryPolicy(core.RetryConfig{
		MaxRetries: n,
		Jitter:     func(time.Duration) time.Duration { return 0 },
	})
}

func TestMessagesCreate(t *testing.T) {
	srv, rec := newServer(t, http.StatusOK, "application/json", helloMessage)
	client := New("sk-test", WithBaseURL(srv.URL+"/"))

	msg, err := client.Messages.Create(context.Background(), MessageCreateParams{
		Model:     ModelClaudeSonnet4_5,
		MaxTokens: 64,
		Messages:  []MessageParam{UserText("Hi")},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if msg.Text() != "Hello!" {
		t.Errorf("Text() = %q, want %q", msg.Text(), "Hello!")
	}

	if rec.path != "/v1/messages" {
		t.Errorf("path = %q, want /v1/messages", rec.path)
	}
	if rec.query != "" {
		t.Errorf("query = %q, want empty", rec.query)
	}
	headers := map[string]string{
		"x-api-key":         "sk-test",
		"anthropic-version": DefaultVersion,
		"Content-Type":      "application/json",
		"Accept":            "application/json",
		"User-Agent":        DefaultUserAgent,
	}
	for k, want := range headers {
		if got := rec.header.Get(k); got != want {
			t.Errorf("header %s = %q, want %q", k, got, want)
		}
	}
	if rec.header.Get(core.BetaHeader) != "" {
		t.Errorf("unexpected beta header %q", rec.header.Get(core.BetaHeader))
	}
	stream := gjson.GetBytes(rec.body, "stream")
	if !stream.Exists() || stream.Bool() {
		t.Errorf("stream = %s, want false", stream.Raw)
	}
	if got := gjson.GetBytes(rec.body, "messages.0.content").String(); got != "Hi" {
		t.Errorf("messages.0.content = %q, want Hi", got)
	}
}

func TestMessagesCreateBetas(t *testing.T) {
	srv, rec := newServer(t, http.StatusOK, "application/json", helloMessage)
	client := New("sk-test", WithBaseURL(srv.URL), WithBetas(BetaPromptCaching))

	_, err := client.Messages.Create(context.Background(), MessageCreateParams{
		Model:     "sonnet[1m]",
		MaxTokens: 64,
		Messages:  []MessageParam{UserText("Hi")},
		Betas:     []string{BetaInterleavedThinking},
	}, core.WithBetas(BetaFilesAPI))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if got := gjson.GetBytes(rec.body, "model").String(); got != string(ModelClaudeSonnet4_6) {
		t.Errorf("model = %q, want %q", got, ModelClaudeSonnet4_6)
	}
	if rec.query != "beta=true" {
		t.Errorf("query = %q, want beta=true", rec.query)
	}
	got := core.SplitBetas(rec.header)
	for _, want := range []string{BetaPromptCaching, BetaInterleavedThinking, BetaFilesAPI, BetaContext1M} {
		found := false
		for _, b := range got {
			found = found || b == want
		}
		if !found {
			t.Errorf("betas = %v, missing %s", got, want)
		}
	}
	if len(rec.header.Values(core.BetaHeader)) != 1 {
		t.Errorf("beta header sent %d times, want 1", len(rec.header.Values(core.BetaHeader)))
	}
}

func TestMessagesCreateDropsThinking(t *testing.T) {
	tests := []struct {
		model Model
		want  bool
	}{
		{ModelClaude3Haiku20240307, false},
		{ModelClaudeSonnet4_5, true},
		{"claude-future-9", true},
	}
	for _, tt := range tests {
		t.Run(string(tt.model), func(t *testing.T) {
			srv, rec := newServer(t, http.StatusOK, "application/json", helloMessage)
			client := New("sk-test", WithBaseURL(srv.URL))
			_, err := client.Messages.Create(context.Background(), MessageCreateParams{
				Model:     tt.model,
				MaxTokens: 2048,
				Messages:  []MessageParam{UserText("Hi")},
				Thinking:  &ThinkingEnabled{BudgetTokens: 1024},
			})
			if err != nil {
				t.Fatalf("Create: %v", err)
			}
			if got := gjson.GetBytes(rec.body, "thinking").Exists(); got != tt.want {
				t.Errorf("thinking sent = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMessagesStream(t *testing.T) {
	srv, rec := newServer(t, http.StatusOK, "text/event-stream", helloStream)
	client := New("sk-test", WithBaseURL(srv.URL))

	stream, err := client.Messages.Stream(context.Background(), MessageCreateParams{
		Model:     ModelClaudeSonnet4_5,
		MaxTokens: 64,
		Messages:  []MessageParam{UserText("Hi")},
	})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	msg, err := stream.Message()
	if err != nil {
		t.Fatalf("Message: %v", err)
	}
	if msg.Text() != "Hi there" {
		t.Errorf("Text() = %q, want %q", msg.Text(), "Hi there")
	}
	if !gjson.GetBytes(rec.body, "stream").Bool() {
		t.Error("stream flag not set in body")
	}
	if got := rec.header.Get("Accept"); got != "text/event-stream" {
		t.Errorf("Accept = %q, want text/event-stream", got)
	}
}

func TestMessagesCountTokens(t *testing.T) {
	srv, rec := newServer(t, http.StatusOK, "application/json", `{"input_tokens": 42}`)
	client := New("sk-test", WithBaseURL(srv.URL))

	count, err := client.Messages.CountTokens(context.Background(), CountTokensParams{
		Model:    "haiku",
		Messages: []MessageParam{UserText("Hi")},
	})
	if err != nil {
		t.Fatalf("CountTokens: %v", err)
	}
	if count.InputTokens != 42 {
		t.Errorf("InputTokens = %d, want 42", count.InputTokens)
	}
	if rec.path != "/v1/messages/count_tokens" {
		t.Errorf("path = %q", rec.path)
	}
	if gjson.GetBytes(rec.body, "stream").Exists() {
		t.Error("count_tokens body carries a stream flag")
	}
}

func TestMessagesErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		retries  int
		attempts int32
		want     []error
	}{
		{
			name:     "rate limited until exhausted",
			status:   http.StatusTooManyRequests,
			body:     `{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`,
			retries:  2,
			attempts: 3,
			want:     []error{core.ErrRetriesExhausted, core.ErrRateLimited},
		},
		{
			name:     "overloaded",
			status:   529,
			body:     `{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`,
			retries:  1,
			attempts: 2,
			want:     []error{core.ErrRetriesExhausted, core.ErrOverloaded},
		},
		{
			name:     "bad request is not retried",
			status:   http.StatusBadRequest,
			body:     `{"type":"error","error":{"type":"invalid_request_error","message":"max_tokens: required"}}`,
			retries:  2,
			attempts: 1,
			want:     []error{core.ErrBadRequest},
		},
		{
			name:     "unauthorized",
			status:   http.StatusUnauthorized,
			body:     `{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`,
			retries:  2,
			attempts: 1,
			want:     []error{core.ErrUnauthorized},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			client := New("sk-test", WithBaseURL(srv.URL), WithRetryPolicy(noJitterRetries(tt.retries)))
			_, err := client.Messages.Create(context.Background(), MessageCreateParams{
				Model:     ModelClaudeSonnet4_5,
				MaxTokens: 1,
				Messages:  []MessageParam{UserText("Hi")},
			})
			for _, want := range tt.want {
				if !errors.Is(err, want) {
					t.Errorf("errors.Is(%v, %v) = false", err, want)
				}
			}
			var apiErr *core.APIError
			if !errors.As(err, &apiErr) || apiErr.Status != tt.status {
				t.Errorf("APIError = %+v, want status %d", apiErr, tt.status)
			}
			if got := calls.Load(); got != tt.attempts {
				t.Errorf("attempts = %d, want %d", got, tt.attempts)
			}
		})
	}
}

func TestClientMiddleware(t *testing.T) {
	srv, rec := newServer(t, http.StatusOK, "application/json", helloMessage)

	var order []string
	trace := func(name string) core.Middleware {
		return core.MiddlewareFunc(func(ctx context.Context, req *core.Request, next core.Handler) (*http.Response, error) {
			order = append(order, name+":"+req.Header.Get("x-api-key"))
			req.Header.Set("x-trace", strings.Join(order, ","))
			return next(ctx, req)
		})
	}
	client := New("sk-test",
		WithBaseURL(srv.URL),
		WithMiddleware(trace("a"), trace("b")),
		WithHeader("x-extra", "1"),
	)
	if _, err := client.Messages.Create(context.Background(), MessageCreateParams{
		Model:     ModelClaudeSonnet4_5,
		MaxTokens: 1,
		Messages:  []MessageParam{UserText("Hi")},
	}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if got := rec.header.Get("x-trace"); got != "a:sk-test,b:sk-test" {
		t.Errorf("x-trace = %q, want a:sk-test,b:sk-test", got)
	}
	if rec.header.Get("x-extra") != "1" {
		t.Errorf("x-extra = %q, want 1", rec.header.Get("x-extra"))
	}
}

func TestClientMiddlewareFailureNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	var runs int
	errSign := errors.New("sign failed")
	client := New("sk-test",
		WithBaseURL(srv.URL),
		WithRetryPolicy(noJitterRetries(2)),
		WithMiddleware(core.MiddlewareFunc(func(ctx context.Context, req *core.Request, next core.Handler) (*http.Response, error) {
			runs++
			return nil, errSign
		})),
	)
	_, err := client.Messages.Create(context.Background(), MessageCreateParams{
		Model:     ModelClaudeSonnet4_5,
		MaxTokens: 1,
		Messages:  []MessageParam{UserText("Hi")},
	})
	if !errors.Is(err, core.ErrMiddleware) || !errors.Is(err, errSign) {
		t.Errorf("err = %v, want ErrMiddleware wrapping errSign", err)
	}
	if runs != 1 {
		t.Errorf("middleware ran %d times, want 1", runs)
	}
	if calls.Load() != 0 {
		t.Errorf("server saw %d requests, want 0", calls.Load())
	}
}

func TestNewFromEnv(t *testing.T) {
	t.Setenv(DefaultAPIKeyEnvVar, "")
	if _, err := NewFromEnv(); !errors.Is(err, ErrAPIKeyNotFound) {
		t.Errorf("NewFromEnv() err = %v, want ErrAPIKeyNotFound", err)
	}

	t.Setenv(DefaultAPIKeyEnvVar, "sk-env")
	t.Setenv(DefaultBaseURLEnvVar, "https://proxy.example.com/")
	client, err := NewFromEnv()
	if err != nil {
		t.Fatalf("NewFromEnv: %v", err)
	}
	if client.BaseURL() != "https://proxy.example.com" {
		t.Errorf("BaseURL() = %q", client.BaseURL())
	}

	client, _ = NewFromEnv(WithBaseURL("https://override.example.com"))
	if client.BaseURL() != "https://override.example.com" {
		t.Errorf("BaseURL() = %q, want option to win", client.BaseURL())
	}
}
