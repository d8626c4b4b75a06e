package core

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/petal-labs/anthropic-go/internal/json"
)

// DefaultTimeout bounds a single attempt.
const DefaultTimeout = 10 * time.Minute

// maxErrorBody caps how much of an error response is buffered.
const maxErrorBody = 1 << 20

var errAttemptTimeout = errors.New("attempt timed out")

// Client executes requests: it runs the middleware chain, sends the HTTP
// request, classifies the outcome and applies the retry policy.
// Client is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	provider   string
	retry      RetryPolicy
	middleware []Middleware
	telemetry  TelemetryHook
	logger     *slog.Logger
	timeout    time.Duration

	handler Handler
	sleep   func(ctx context.Context, d time.Duration) error
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// NewClient creates a new Client with the given options.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{},
		provider:   "anthropic",
		retry:      DefaultRetryPolicy(),
		telemetry:  NoopTelemetryHook{},
		logger:     slog.New(slog.DiscardHandler),
		timeout:    DefaultTimeout,
		sleep:      sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.handler = Chain(c.send, c.middleware...)
	return c
}

// WithHTTPClient sets the HTTP client used for every attempt.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithProvider names the backend in errors and telemetry.
func WithProvider(name string) ClientOption {
	return func(c *Client) {
		if name != "" {
			c.provider = name
		}
	}
}

// WithTelemetry sets the telemetry hook for the client.
func WithTelemetry(h TelemetryHook) ClientOption {
	return func(c *Client) {
		if h != nil {
			c.telemetry = h
		}
	}
}

// WithRetryPolicy sets the retry policy for the client.
func WithRetryPolicy(r RetryPolicy) ClientOption {
	return func(c *Client) {
		if r != nil {
			c.retry = r
		}
	}
}

// WithMiddleware appends middleware. Earlier middleware wraps later ones.
func WithMiddleware(mws ...Middleware) ClientOption {
	return func(c *Client) {
		c.middleware = append(c.middleware, mws...)
	}
}

// WithLogger sets the structured logger. The default discards everything.
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithTimeout bounds each attempt. For streaming calls the bound covers the
// wait for the first body byte. Zero disables the per-attempt bound.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d >= 0 {
			c.timeout = d
		}
	}
}

// Provider returns the backend name.
func (c *Client) Provider() string {
	return c.provider
}

// Logger returns the client's logger.
func (c *Client) Logger() *slog.Logger {
	return c.logger
}

// Do executes req and decodes the JSON response body into out. A nil out
// discards the body.
func (c *Client) Do(ctx context.Context, req *Request, out any) error {
	call := c.begin(req)
	var status int
	var usage Usage

	attempts, err := c.retryLoop(ctx, req, call, func(resp *http.Response, t *attemptTimer) error {
		defer t.release()
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return t.classify(ctx, &TransportError{Op: "read body", Err: err})
		}
		status = resp.StatusCode
		usage = usageFrom(body)
		if out == nil {
			return nil
		}
		if err := json.Unmarshal(body, out); err != nil {
			return &SerializationError{Context: "decode response", Err: err}
		}
		return nil
	})

	c.end(call, attempts, status, usage, err)
	return err
}

// Stream executes req and returns the open response once a 2xx status and
// the first body byte have been received. Retries only happen before that
// point. The caller must close the body; later reads are bound by ctx only.
func (c *Client) Stream(ctx context.Context, req *Request) (*http.Response, error) {
	call := c.begin(req)
	var out *http.Response
	var body *streamBody

	attempts, err := c.retryLoop(ctx, req, call, func(resp *http.Response, t *attemptTimer) error {
		// Wait for the first byte under the attempt timeout so a stalled
		// stream is retried instead of failing inside the consumer.
		br := bufio.NewReader(resp.Body)
		if _, err := br.Peek(1); err != nil && err != io.EOF {
			resp.Body.Close()
			err = t.classify(ctx, &TransportError{Op: "read stream", Err: err})
			t.release()
			return err
		}
		t.disarm()
		body = &streamBody{
			body:   bufferedBody{Reader: br, Closer: resp.Body},
			timer:  t,
			parent: ctx,
		}
		resp.Body = body
		out = resp
		return nil
	})
	if err != nil {
		c.end(call, attempts, 0, Usage{}, err)
		return nil, err
	}

	status := out.StatusCode
	body.onClose = func(readErr error) {
		c.end(call, attempts, status, Usage{}, readErr)
	}
	return out, nil
}

type callInfo struct {
	start RequestStartEvent
}

func (c *Client) begin(req *Request) *callInfo {
	ev := RequestStartEvent{
		CallID:   uuid.NewString(),
		Provider: c.provider,
		Method:   req.Method,
		Path:     req.URL.Path,
		Model:    gjson.GetBytes(req.Body, "model").String(),
		Stream:   req.Stream,
		Start:    time.Now(),
	}
	c.telemetry.OnRequestStart(ev)
	return &callInfo{start: ev}
}

func (c *Client) end(call *callInfo, attempts, status int, usage Usage, err error) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		status = apiErr.Status
	}
	s := call.start
	c.telemetry.OnRequestEnd(RequestEndEvent{
		CallID:   s.CallID,
		Provider: s.Provider,
		Method:   s.Method,
		Path:     s.Path,
		Model:    s.Model,
		Stream:   s.Stream,
		Start:    s.Start,
		End:      time.Now(),
		Attempts: attempts,
		Status:   status,
		Usage:    usage,
		Err:      err,
	})
}

// retryLoop runs attempts until one is consumed successfully, the policy
// gives up, or ctx is done. It returns the number of attempts made.
func (c *Client) retryLoop(
	ctx context.Context,
	req *Request,
	call *callInfo,
	consume func(resp *http.Response, t *attemptTimer) error,
) (int, error) {
	for attempt := 0; ; attempt++ {
		c.logger.DebugContext(ctx, "sending request",
			"call_id", call.start.CallID,
			"method", req.Method,
			"path", req.URL.Path,
			"attempt", attempt+1,
		)

		resp, t, err := c.roundTrip(ctx, req)
		if err == nil {
			if err = consume(resp, t); err == nil {
				return attempt + 1, nil
			}
		}

		if ctx.Err() != nil {
			return attempt + 1, ctx.Err()
		}

		delay, ok := c.retry.NextDelay(attempt, err)
		if !ok {
			if IsRetryable(err) {
				return attempt + 1, &RetriesExhaustedError{Attempts: attempt + 1, Last: err}
			}
			return attempt + 1, err
		}

		status := 0
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			status = apiErr.Status
		}
		c.logger.WarnContext(ctx, "retrying request",
			"call_id", call.start.CallID,
			"attempt", attempt+1,
			"status", status,
			"delay", delay,
			"error", err,
		)
		c.telemetry.OnRetry(RetryEvent{
			CallID:  call.start.CallID,
			Attempt: attempt,
			Delay:   delay,
			Status:  status,
			Err:     err,
		})

		if err := c.sleep(ctx, delay); err != nil {
			return attempt + 1, err
		}
	}
}

// roundTrip runs one attempt through the middleware chain. A 2xx response
// is returned with its body open and the attempt timer still armed; any
// other status is read and turned into an *APIError.
func (c *Client) roundTrip(ctx context.Context, req *Request) (*http.Response, *attemptTimer, error) {
	t := newAttemptTimer(ctx, c.timeout)

	resp, err := c.handler(t.ctx, req.Clone())
	if err != nil {
		t.release()
		return nil, nil, t.classify(ctx, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		resp.Body.Close()
		t.release()
		if readErr != nil {
			return nil, nil, t.classify(ctx, &TransportError{Op: "read error body", Err: readErr})
		}
		return nil, nil, NewAPIError(c.provider, resp.StatusCode, resp.Header, body)
	}
	return resp, t, nil
}

// send is the innermost handler.
func (c *Client) send(ctx context.Context, req *Request) (*http.Response, error) {
	httpReq, err := req.HTTPRequest(ctx)
	if err != nil {
		return nil, &SerializationError{Context: "build request", Err: err}
	}
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &TransportError{Op: req.Method + " " + req.URL.Path, Err: err}
	}
	return resp, nil
}

type attemptTimer struct {
	ctx    context.Context
	cancel context.CancelCauseFunc
	timer  *time.Timer
}

func newAttemptTimer(parent context.Context, timeout time.Duration) *attemptTimer {
	ctx, cancel := context.WithCancelCause(parent)
	t := &attemptTimer{ctx: ctx, cancel: cancel}
	if timeout > 0 {
		t.timer = time.AfterFunc(timeout, func() { cancel(errAttemptTimeout) })
	}
	return t
}

// disarm stops the timeout without cancelling the attempt context.
func (t *attemptTimer) disarm() {
	if t.timer != nil {
		t.timer.Stop()
	}
}

func (t *attemptTimer) release() {
	t.disarm()
	t.cancel(nil)
}

// classify rewrites failures caused by the attempt timeout into a retryable
// TransportError. Cancellation of the caller's context wins over everything.
func (t *attemptTimer) classify(parent context.Context, err error) error {
	if parent.Err() != nil {
		return parent.Err()
	}
	if context.Cause(t.ctx) == errAttemptTimeout {
		op := "attempt"
		var te *TransportError
		if errors.As(err, &te) {
			op = te.Op
		}
		return &TransportError{Op: op, Timeout: true, Err: errAttemptTimeout}
	}
	return err
}

type bufferedBody struct {
	*bufio.Reader
	io.Closer
}

// streamBody classifies read failures and reports the end of the call when
// closed.
type streamBody struct {
	body    io.ReadCloser
	timer   *attemptTimer
	parent  context.Context
	err     error
	once    sync.Once
	onClose func(err error)
}

func (b *streamBody) Read(p []byte) (int, error) {
	n, err := b.body.Read(p)
	if err != nil && err != io.EOF {
		err = b.timer.classify(b.parent, &TransportError{Op: "read stream", Err: err})
		if b.err == nil {
			b.err = err
		}
	}
	return n, err
}

func (b *streamBody) Close() error {
	err := b.body.Close()
	b.once.Do(func() {
		b.timer.release()
		if b.onClose != nil {
			b.onClose(b.err)
		}
	})
	return err
}

func usageFrom(body []byte) Usage {
	u := gjson.GetBytes(body, "usage")
	if !u.Exists() {
		return Usage{}
	}
	return Usage{
		InputTokens:              int(u.Get("input_tokens").Int()),
		OutputTokens:             int(u.Get("output_tokens").Int()),
		CacheCreationInputTokens: int(u.Get("cache_creation_input_tokens").Int()),
		CacheReadInputTokens:     int(u.Get("cache_read_input_tokens").Int()),
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
