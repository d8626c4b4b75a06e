// Package bedrock sends Messages API calls through Amazon Bedrock.
//
// The backend is a middleware on a regular anthropic.Client. Before each
// attempt it moves the model into the invoke path, moves beta flags into the
// body and signs the request with SigV4. Streaming responses arrive as AWS
// eventstream frames and are bridged back into server-sent events, so
// MessageStream works unchanged.
//
//	client, err := bedrock.New("us-east-1")
//	if err != nil {
//	    return err
//	}
//	stream, err := client.Messages.Stream(ctx, anthropic.MessageCreateParams{
//	    Model: "anthropic.claude-sonnet-4-5-20250929-v1:0",
//	    ...
//	})
package bedrock

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	v4 "github.com/aws/aws-sdk-go/aws/signer/v4"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/petal-labs/anthropic-go/core"
	"github.com/petal-labs/anthropic-go/providers/anthropic"
)

// DefaultVersion is injected as anthropic_version when a body has none.
const DefaultVersion = "bedrock-2023-05-31"

// signingName is the SigV4 service name of the Bedrock runtime.
const signingName = "bedrock"

// BaseURL returns the Bedrock runtime endpoint for region.
func BaseURL(region string) string {
	return fmt.Sprintf("https://bedrock-runtime.%s.amazonaws.com", region)
}

// New returns a client that signs with the default AWS credential chain:
// environment, shared config files, then instance roles.
func New(region string, opts ...anthropic.Option) (*anthropic.Client, error) {
	sess, err := session.NewSessionWithOptions(session.Options{
		Config:            aws.Config{Region: aws.String(region)},
		SharedConfigState: session.SharedConfigEnable,
	})
	if err != nil {
		return nil, fmt.Errorf("bedrock: aws session: %w", err)
	}
	return NewWithCredentials(region, sess.Config.Credentials, opts...), nil
}

// NewWithCredentials returns a client that signs with creds.
func NewWithCredentials(region string, creds *credentials.Credentials, opts ...anthropic.Option) *anthropic.Client {
	base := []anthropic.Option{
		anthropic.WithBaseURL(BaseURL(region)),
		anthropic.WithProvider("bedrock"),
		anthropic.WithMiddleware(NewMiddleware(region, creds)),
	}
	return anthropic.New("", append(base, opts...)...)
}

// Middleware rewrites and signs Messages API requests for Bedrock. It must
// be the last middleware to touch the request: anything that changes
// headers or body after it invalidates the signature.
type Middleware struct {
	region string
	signer *v4.Signer
	now    func() time.Time
}

// NewMiddleware returns a middleware signing for region with creds.
func NewMiddleware(region string, creds *credentials.Credentials) *Middleware {
	return &Middleware{
		region: region,
		signer: v4.NewSigner(creds),
		now:    time.Now,
	}
}

func (m *Middleware) Name() string { return "bedrock" }

func (m *Middleware) Handle(ctx context.Context, req *core.Request, next core.Handler) (*http.Response, error) {
	req.Header.Del("x-api-key")
	if len(req.Body) > 0 && gjson.ValidBytes(req.Body) && gjson.ParseBytes(req.Body).IsObject() {
		if err := rewrite(req); err != nil {
			return nil, err
		}
	}
	if err := m.sign(ctx, req); err != nil {
		return nil, err
	}

	resp, err := next(ctx, req)
	if err != nil {
		return nil, err
	}
	if isEventStream(resp) {
		resp.Body = newSSEBridge(resp.Body)
		resp.Header.Set("Content-Type", "text/event-stream")
	}
	return resp, nil
}

// rewrite applies the Bedrock body conventions: anthropic_version in the
// body, the model and stream flag in the path, betas in anthropic_beta.
func rewrite(req *core.Request) error {
	body := req.Body
	var err error
	if !gjson.GetBytes(body, "anthropic_version").Exists() {
		if body, err = sjson.SetBytes(body, "anthropic_version", DefaultVersion); err != nil {
			return err
		}
	}

	path := req.URL.Path
	if req.Method == http.MethodPost && (strings.HasSuffix(path, "/messages") || strings.HasSuffix(path, "/complete")) {
		model := gjson.GetBytes(body, "model").String()
		stream := gjson.GetBytes(body, "stream").Bool()
		if body, err = sjson.DeleteBytes(body, "model"); err != nil {
			return err
		}
		if body, err = sjson.DeleteBytes(body, "stream"); err != nil {
			return err
		}
		action := "invoke"
		if stream {
			action = "invoke-with-response-stream"
		}
		req.URL.Path = "/model/" + model + "/" + action
		req.URL.RawPath = ""

		if betas := req.Betas(); len(betas) > 0 && !gjson.GetBytes(body, "anthropic_beta").Exists() {
			if body, err = sjson.SetBytes(body, "anthropic_beta", betas); err != nil {
				return err
			}
		}
		req.Header.Del(core.BetaHeader)
		q := req.URL.Query()
		q.Del("beta")
		req.URL.RawQuery = q.Encode()
	}
	req.Body = body
	return nil
}

// sign adds the SigV4 headers for the request as it will be sent.
func (m *Middleware) sign(ctx context.Context, req *core.Request) error {
	httpReq, err := req.HTTPRequest(ctx)
	if err != nil {
		return err
	}
	if _, err := m.signer.Sign(httpReq, bytes.NewReader(req.Body), signingName, m.region, m.now()); err != nil {
		return fmt.Errorf("bedrock: sigv4: %w", err)
	}
	req.Header = httpReq.Header
	return nil
}

func isEventStream(resp *http.Response) bool {
	return strings.HasPrefix(resp.Header.Get("Content-Type"), "application/vnd.amazon.eventstream")
}
