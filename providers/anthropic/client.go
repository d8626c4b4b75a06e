package anthropic

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strings"

	"github.com/petal-labs/anthropic-go/core"
	"github.com/petal-labs/anthropic-go/internal/json"
)

// DefaultAPIKeyEnvVar is the environment variable name for the Anthropic API key.
const DefaultAPIKeyEnvVar = "ANTHROPIC_API_KEY"

// DefaultBaseURLEnvVar overrides the base URL when set.
const DefaultBaseURLEnvVar = "ANTHROPIC_BASE_URL"

// ErrAPIKeyNotFound is returned when the API key environment variable is not set.
var ErrAPIKeyNotFound = errors.New("anthropic: ANTHROPIC_API_KEY environment variable not set")

// NewFromEnv creates a client from ANTHROPIC_API_KEY and, if set,
// ANTHROPIC_BASE_URL:
//
//	client, err := anthropic.NewFromEnv()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Options are applied after the environment, so they win.
func NewFromEnv(opts ...Option) (*Client, error) {
	apiKey := os.Getenv(DefaultAPIKeyEnvVar)
	if apiKey == "" {
		return nil, ErrAPIKeyNotFound
	}
	if base := os.Getenv(DefaultBaseURLEnvVar); base != "" {
		opts = append([]Option{WithBaseURL(base)}, opts...)
	}
	return New(apiKey, opts...), nil
}

// Client is a typed client for the Anthropic Messages API.
// Client is safe for concurrent use.
type Client struct {
	config Config
	exec   *core.Client

	Messages *MessageService
	Models   *ModelService
	Batches  *BatchService
	Files    *FileService
}

// New creates a client with the given API key and options. An empty key is
// allowed for backends that authenticate through middleware.
func New(apiKey string, opts ...Option) *Client {
	cfg := Config{
		APIKey:       core.NewSecret(apiKey),
		BaseURL:      DefaultBaseURL,
		Version:      DefaultVersion,
		UserAgent:    DefaultUserAgent,
		Timeout:      core.DefaultTimeout,
		MaxRetries:   -1,
		FilesAPIBeta: DefaultFilesAPIBeta,
		Provider:     "anthropic",
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	policy := cfg.RetryPolicy
	if policy == nil && cfg.MaxRetries >= 0 {
		rc := core.DefaultRetryConfig()
		rc.MaxRetries = cfg.MaxRetries
		policy = core.NewRetryPolicy(rc)
	}

	mws := append([]core.Middleware{headersMiddleware{cfg: &cfg}}, cfg.Middleware...)
	exec := core.NewClient(
		core.WithHTTPClient(cfg.HTTPClient),
		core.WithProvider(cfg.Provider),
		core.WithRetryPolicy(policy),
		core.WithMiddleware(mws...),
		core.WithTimeout(cfg.Timeout),
		core.WithLogger(cfg.Logger),
		core.WithTelemetry(cfg.Telemetry),
	)

	c := &Client{config: cfg, exec: exec}
	c.Messages = &MessageService{client: c}
	c.Models = &ModelService{client: c}
	c.Batches = &BatchService{client: c}
	c.Files = &FileService{client: c}
	return c
}

// Provider returns the backend name.
func (c *Client) Provider() string {
	return c.config.Provider
}

// BaseURL returns the API base URL.
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}

// Executor returns the underlying request executor, for raw calls.
func (c *Client) Executor() *core.Client {
	return c.exec
}

// newRequest builds the envelope for path. body may be nil, a []byte of
// JSON, or any value to be marshaled.
func (c *Client) newRequest(method, path string, body any, opts []core.RequestOption) (*core.Request, error) {
	var data []byte
	switch b := body.(type) {
	case nil:
	case []byte:
		data = b
	default:
		var err error
		if data, err = json.Marshal(b); err != nil {
			return nil, &core.SerializationError{Context: "encode request", Err: err}
		}
	}
	req, err := core.NewRequest(method, c.config.BaseURL+path, data)
	if err != nil {
		return nil, &core.SerializationError{Context: "build request", Err: err}
	}
	for _, opt := range opts {
		opt(req)
	}
	return req, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any, opts []core.RequestOption) error {
	req, err := c.newRequest(method, path, body, opts)
	if err != nil {
		return err
	}
	return c.exec.Do(ctx, req, out)
}

// headersMiddleware sets the default headers. It is always the outermost
// middleware, so backend middleware sees and can rewrite them.
type headersMiddleware struct {
	cfg *Config
}

func (headersMiddleware) Name() string { return "headers" }

func (m headersMiddleware) Handle(ctx context.Context, req *core.Request, next core.Handler) (*http.Response, error) {
	h := req.Header
	if h.Get("anthropic-version") == "" {
		h.Set("anthropic-version", m.cfg.Version)
	}
	if req.Body != nil && h.Get("Content-Type") == "" {
		h.Set("Content-Type", "application/json")
	}
	if h.Get("Accept") == "" {
		if req.Stream {
			h.Set("Accept", "text/event-stream")
		} else {
			h.Set("Accept", "application/json")
		}
	}
	if m.cfg.UserAgent != "" {
		h.Set("User-Agent", m.cfg.UserAgent)
	}
	if !m.cfg.APIKey.IsEmpty() && h.Get("x-api-key") == "" {
		h.Set("x-api-key", m.cfg.APIKey.Expose())
	}
	for key, values := range m.cfg.Headers {
		h.Del(key)
		for _, v := range values {
			h.Add(key, v)
		}
	}
	core.MergeBetas(h, m.cfg.Betas...)
	return next(ctx, req)
}
