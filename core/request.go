package core

import (
	"bytes"
	"context"
	"net/http"
	"net/url"
	"slices"
	"strings"
)

// BetaHeader carries opt-in beta feature flags.
const BetaHeader = "anthropic-beta"

// Request is the transport-neutral envelope that flows through the
// middleware chain. The executor hands every attempt a fresh clone, so
// mutations made by middleware never leak into the next attempt.
type Request struct {
	Method string
	URL    *url.URL
	Header http.Header
	Body   []byte

	// Stream marks calls whose response body is consumed incrementally.
	Stream bool
}

// NewRequest builds a request for the given method and absolute URL.
func NewRequest(method, rawURL string, body []byte) (*Request, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	return &Request{
		Method: method,
		URL:    u,
		Header: make(http.Header),
		Body:   body,
	}, nil
}

// Clone returns a deep copy of the request.
func (r *Request) Clone() *Request {
	c := *r
	if r.URL != nil {
		u := *r.URL
		if r.URL.User != nil {
			user := *r.URL.User
			u.User = &user
		}
		c.URL = &u
	}
	c.Header = r.Header.Clone()
	if c.Header == nil {
		c.Header = make(http.Header)
	}
	c.Body = bytes.Clone(r.Body)
	return &c
}

// HTTPRequest converts the envelope into an *http.Request bound to ctx.
func (r *Request) HTTPRequest(ctx context.Context) (*http.Request, error) {
	var body *bytes.Reader
	if r.Body != nil {
		body = bytes.NewReader(r.Body)
	}
	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequestWithContext(ctx, r.Method, r.URL.String(), body)
	} else {
		req, err = http.NewRequestWithContext(ctx, r.Method, r.URL.String(), nil)
	}
	if err != nil {
		return nil, err
	}
	req.Header = r.Header.Clone()
	if req.Header == nil {
		req.Header = make(http.Header)
	}
	return req, nil
}

// Betas returns the beta flags currently set on the request.
func (r *Request) Betas() []string {
	return SplitBetas(r.Header)
}

// SplitBetas returns the comma separated values of the beta header.
func SplitBetas(h http.Header) []string {
	var out []string
	for _, v := range h.Values(BetaHeader) {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" && !slices.Contains(out, part) {
				out = append(out, part)
			}
		}
	}
	return out
}

// MergeBetas adds beta flags to h, keeping existing ones and dropping
// duplicates. The header is written as a single comma separated value.
func MergeBetas(h http.Header, betas ...string) {
	merged := SplitBetas(h)
	for _, b := range betas {
		if b = strings.TrimSpace(b); b != "" && !slices.Contains(merged, b) {
			merged = append(merged, b)
		}
	}
	if len(merged) == 0 {
		return
	}
	h.Set(BetaHeader, strings.Join(merged, ","))
}

// RequestOption adjusts a single call.
type RequestOption func(*Request)

// WithRequestHeader sets a header on one call.
func WithRequestHeader(key, value string) RequestOption {
	return func(r *Request) {
		r.Header.Set(key, value)
	}
}

// WithBetas enables beta features for one call.
func WithBetas(betas ...string) RequestOption {
	return func(r *Request) {
		MergeBetas(r.Header, betas...)
	}
}

// WithQuery sets a query parameter on one call.
func WithQuery(key, value string) RequestOption {
	return func(r *Request) {
		q := r.URL.Query()
		q.Set(key, value)
		r.URL.RawQuery = q.Encode()
	}
}
