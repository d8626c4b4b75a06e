// Package vertex sends Messages API calls through Google Cloud Vertex AI.
//
// The backend is a middleware on a regular anthropic.Client: it authorizes
// each attempt with a Google access token, drops the API key and moves the
// model from the JSON body into the rawPredict path Vertex expects.
//
//	client, err := vertex.New(ctx, "us-east5", "my-project")
//	if err != nil {
//	    return err
//	}
//	msg, err := client.Messages.Create(ctx, params)
package vertex

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/petal-labs/anthropic-go/core"
	"github.com/petal-labs/anthropic-go/providers/anthropic"
)

// DefaultVersion is injected as anthropic_version when a body has none.
const DefaultVersion = "vertex-2023-10-16"

// Scope is the OAuth2 scope requested for Vertex AI.
const Scope = "https://www.googleapis.com/auth/cloud-platform"

// BaseURL returns the Vertex AI endpoint for region. The "global" region has
// no regional prefix.
func BaseURL(region string) string {
	if region == "global" {
		return "https://aiplatform.googleapis.com"
	}
	return fmt.Sprintf("https://%s-aiplatform.googleapis.com", region)
}

// New returns a client authorized with Application Default Credentials.
func New(ctx context.Context, region, projectID string, opts ...anthropic.Option) (*anthropic.Client, error) {
	ts, err := google.DefaultTokenSource(ctx, Scope)
	if err != nil {
		return nil, fmt.Errorf("vertex: default credentials: %w", err)
	}
	return NewWithTokenSource(region, projectID, ts, opts...), nil
}

// NewWithTokenSource returns a client that takes access tokens from ts.
// Tokens are cached until shortly before they expire.
func NewWithTokenSource(region, projectID string, ts oauth2.TokenSource, opts ...anthropic.Option) *anthropic.Client {
	base := []anthropic.Option{
		anthropic.WithBaseURL(BaseURL(region)),
		anthropic.WithProvider("vertex"),
		anthropic.WithMiddleware(&Middleware{
			Region:      region,
			ProjectID:   projectID,
			TokenSource: oauth2.ReuseTokenSource(nil, ts),
		}),
	}
	return anthropic.New("", append(base, opts...)...)
}

// Middleware rewrites Messages API requests for Vertex AI.
type Middleware struct {
	Region      string
	ProjectID   string
	TokenSource oauth2.TokenSource
}

func (m *Middleware) Name() string { return "vertex" }

func (m *Middleware) Handle(ctx context.Context, req *core.Request, next core.Handler) (*http.Response, error) {
	tok, err := m.TokenSource.Token()
	if err != nil {
		return nil, fmt.Errorf("vertex: access token: %w", err)
	}
	tok.SetAuthHeader(toHTTPRequest(req))
	req.Header.Del("x-api-key")

	if len(req.Body) > 0 && gjson.ValidBytes(req.Body) && gjson.ParseBytes(req.Body).IsObject() {
		if err := m.rewrite(req); err != nil {
			return nil, err
		}
	}
	return next(ctx, req)
}

// rewrite injects the Vertex version and moves the model into the path.
func (m *Middleware) rewrite(req *core.Request) error {
	body := req.Body
	var err error
	if !gjson.GetBytes(body, "anthropic_version").Exists() {
		if body, err = sjson.SetBytes(body, "anthropic_version", DefaultVersion); err != nil {
			return err
		}
	}

	prefix := fmt.Sprintf("/v1/projects/%s/locations/%s/publishers/anthropic/models/", m.ProjectID, m.Region)
	path := req.URL.Path
	switch {
	case req.Method != http.MethodPost:
	case strings.HasSuffix(path, "/messages/count_tokens"):
		req.URL.Path = prefix + "count-tokens:rawPredict"
	case strings.HasSuffix(path, "/messages"):
		model := gjson.GetBytes(body, "model").String()
		if body, err = sjson.DeleteBytes(body, "model"); err != nil {
			return err
		}
		specifier := "rawPredict"
		if gjson.GetBytes(body, "stream").Bool() {
			specifier = "streamRawPredict"
		}
		req.URL.Path = prefix + model + ":" + specifier
	}
	req.URL.RawPath = ""
	req.Body = body
	return nil
}

// toHTTPRequest adapts req so oauth2.Token.SetAuthHeader can write to its
// headers.
func toHTTPRequest(req *core.Request) *http.Request {
	return &http.Request{Header: req.Header}
}
