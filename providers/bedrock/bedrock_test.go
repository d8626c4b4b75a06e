package bedrock

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/private/protocol/eventstream"
	"github.com/tidwall/gjson"

	"github.com/petal-labs/anthropic-go/core"
	"github.com/petal-labs/anthropic-go/providers/anthropic"
)

func testCredentials() *credentials.Credentials {
	return credentials.NewStaticCredentials("AKIDEXAMPLE", "secret", "")
}

func testParams() anthropic.MessageCreateParams {
	return anthropic.MessageCreateParams{
		Model:     "anthropic.claude-sonnet-4-5-20250929-v1:0",
		MaxTokens: 32,
		Messages:  []anthropic.MessageParam{anthropic.UserText("Hi")},
	}
}

type captured struct {
	path   string
	query  string
	header http.Header
	body   []byte
}

func capture(c *captured, r *http.Request) {
	c.path = r.URL.Path
	c.query = r.URL.RawQuery
	c.header = r.Header.Clone()
	c.body, _ = io.ReadAll(r.Body)
}

func TestInvokeRewritesAndSigns(t *testing.T) {
	got := &captured{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capture(got, r)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"msg_1","type":"message","role":"assistant","content":[{"type":"text","text":"ok"}],"model":"claude","stop_reason":"end_turn","usage":{"input_tokens":1,"output_tokens":1}}`)
	}))
	defer srv.Close()

	client := NewWithCredentials("us-east-1", testCredentials(), anthropic.WithBaseURL(srv.URL))
	params := testParams()
	params.Betas = []string{anthropic.BetaContext1M}
	if _, err := client.Messages.Create(context.Background(), params); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if got.path != "/model/anthropic.claude-sonnet-4-5-20250929-v1:0/invoke" {
		t.Errorf("path = %q", got.path)
	}
	if got.query != "" {
		t.Errorf("query = %q, want beta query removed", got.query)
	}
	auth := got.header.Get("Authorization")
	if !strings.HasPrefix(auth, "AWS4-HMAC-SHA256 Credential=AKIDEXAMPLE/") ||
		!strings.Contains(auth, "/us-east-1/bedrock/aws4_request") {
		t.Errorf("Authorization = %q", auth)
	}
	if got.header.Get("X-Amz-Date") == "" {
		t.Error("X-Amz-Date missing")
	}
	if got.header.Get("x-api-key") != "" || got.header.Get(core.BetaHeader) != "" {
		t.Errorf("api key or beta header left on request: %v", got.header)
	}
	for _, field := range []string{"model", "stream"} {
		if gjson.GetBytes(got.body, field).Exists() {
			t.Errorf("%s left in body", field)
		}
	}
	if v := gjson.GetBytes(got.body, "anthropic_version").String(); v != DefaultVersion {
		t.Errorf("anthropic_version = %q, want %q", v, DefaultVersion)
	}
	if v := gjson.GetBytes(got.body, "anthropic_beta.0").String(); v != anthropic.BetaContext1M {
		t.Errorf("anthropic_beta = %s", gjson.GetBytes(got.body, "anthropic_beta").Raw)
	}
}

func TestSignatureIsStable(t *testing.T) {
	m := NewMiddleware("eu-west-1", testCredentials())
	m.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

	sign := func() string {
		req, _ := core.NewRequest(http.MethodPost, "https://bedrock-runtime.eu-west-1.amazonaws.com/v1/messages", []byte(`{"model":"m","max_tokens":1}`))
		var auth string
		m.Handle(context.Background(), req, func(_ context.Context, r *core.Request) (*http.Response, error) {
			auth = r.Header.Get("Authorization")
			return &http.Response{StatusCode: http.StatusOK, Header: http.Header{}, Body: http.NoBody}, nil
		})
		return auth
	}
	first, second := sign(), sign()
	if first == "" || first != second {
		t.Errorf("signatures differ or empty: %q vs %q", first, second)
	}
}

func encodeEvents(t *testing.T, msgs ...eventstream.Message) []byte {
	t.Helper()
	var buf bytes.Buffer
	enc := eventstream.NewEncoder(&buf)
	for _, m := range msgs {
		if err := enc.Encode(m); err != nil {
			t.Fatalf("Encode: %v", err)
		}
	}
	return buf.Bytes()
}

func chunk(event string) eventstream.Message {
	payload := `{"bytes":"` + base64.StdEncoding.EncodeToString([]byte(event)) + `"}`
	return eventstream.Message{
		Headers: eventstream.Headers{
			{Name: ":message-type", Value: eventstream.StringValue("event")},
			{Name: ":event-type", Value: eventstream.StringValue("chunk")},
			{Name: ":content-type", Value: eventstream.StringValue("application/json")},
		},
		Payload: []byte(payload),
	}
}

func exception(kind, message string) eventstream.Message {
	return eventstream.Message{
		Headers: eventstream.Headers{
			{Name: ":message-type", Value: eventstream.StringValue("exception")},
			{Name: ":exception-type", Value: eventstream.StringValue(kind)},
		},
		Payload: []byte(`{"message":"` + message + `"}`),
	}
}

func streamServer(t *testing.T, body []byte, got *captured) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capture(got, r)
		w.Header().Set("Content-Type", "application/vnd.amazon.eventstream")
		w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestStreamBridgesEventStream(t *testing.T) {
	body := encodeEvents(t,
		chunk(`{"type":"message_start","message":{"id":"msg_1","type":"message","role":"assistant","content":[],"model":"claude","stop_reason":null,"usage":{"input_tokens":3,"output_tokens":1}}}`),
		chunk(`{"type":"content_block_start","index":0,"content_block":{"type":"text","text":""}}`),
		chunk(`{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"Hi"}}`),
		chunk(`{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":" there"}}`),
		chunk(`{"type":"content_block_stop","index":0}`),
		chunk(`{"type":"message_delta","delta":{"stop_reason":"end_turn"},"usage":{"output_tokens":2}}`),
		chunk(`{"type":"message_stop","amazon-bedrock-invocationMetrics":{"inputTokenCount":3}}`),
	)
	got := &captured{}
	srv := streamServer(t, body, got)

	client := NewWithCredentials("us-west-2", testCredentials(), anthropic.WithBaseURL(srv.URL))
	stream, err := client.Messages.Stream(context.Background(), testParams())
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
	if got.path != "/model/anthropic.claude-sonnet-4-5-20250929-v1:0/invoke-with-response-stream" {
		t.Errorf("path = %q", got.path)
	}
}

func TestStreamException(t *testing.T) {
	body := encodeEvents(t,
		chunk(`{"type":"message_start","message":{"id":"msg_1","type":"message","role":"assistant","content":[],"model":"claude","usage":{"input_tokens":3,"output_tokens":1}}}`),
		exception("throttlingException", "Too many requests"),
	)
	srv := streamServer(t, body, &captured{})

	client := NewWithCredentials("us-west-2", testCredentials(), anthropic.WithBaseURL(srv.URL))
	stream, err := client.Messages.Stream(context.Background(), testParams())
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	_, err = stream.Message()
	if !errors.Is(err, core.ErrRateLimited) {
		t.Errorf("err = %v, want ErrRateLimited", err)
	}
	var apiErr *core.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "Too many requests" {
		t.Errorf("Message = %q", apiErr.Message)
	}
}

func TestBridgeTruncatedFrame(t *testing.T) {
	body := encodeEvents(t, chunk(`{"type":"ping"}`))
	bridge := newSSEBridge(io.NopCloser(bytes.NewReader(body[:len(body)-3])))
	if _, err := io.ReadAll(bridge); err == nil || errors.Is(err, io.EOF) {
		t.Errorf("ReadAll err = %v, want decode failure", err)
	}
}

func TestErrorType(t *testing.T) {
	tests := map[string]string{
		"throttlingException":         "rate_limit_error",
		"serviceUnavailableException": "overloaded_error",
		"validationException":         "invalid_request_error",
		"internalServerException":     "api_error",
	}
	for in, want := range tests {
		if got := errorType(in); got != want {
			t.Errorf("errorType(%q) = %q, want %q", in, got, want)
		}
	}
}
