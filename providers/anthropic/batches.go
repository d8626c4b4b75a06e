package anthropic

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"
	"net/url"
	"slices"

	"github.com/tidwall/gjson"

	"github.com/petal-labs/anthropic-go/core"
	"github.com/petal-labs/anthropic-go/internal/json"
)

const batchesPath = "/v1/messages/batches"

// ProcessingStatus is the lifecycle state of a batch. Values the SDK does
// not know decode and encode untouched.
type ProcessingStatus string

const (
	ProcessingInProgress ProcessingStatus = "in_progress"
	ProcessingCanceling  ProcessingStatus = "canceling"
	ProcessingEnded      ProcessingStatus = "ended"
)

// MessageBatch is a batch of message requests processed asynchronously.
type MessageBatch struct {
	ID                string            `json:"id"`
	Type              string            `json:"type"`
	ProcessingStatus  ProcessingStatus  `json:"processing_status"`
	RequestCounts     BatchRequestCount `json:"request_counts"`
	EndedAt           string            `json:"ended_at,omitempty"`
	CreatedAt         string            `json:"created_at"`
	ExpiresAt         string            `json:"expires_at,omitempty"`
	ArchivedAt        string            `json:"archived_at,omitempty"`
	CancelInitiatedAt string            `json:"cancel_initiated_at,omitempty"`
	ResultsURL        string            `json:"results_url,omitempty"`
}

// BatchRequestCount tallies the requests of a batch by state.
type BatchRequestCount struct {
	Processing int `json:"processing"`
	Succeeded  int `json:"succeeded"`
	Errored    int `json:"errored"`
	Canceled   int `json:"canceled"`
	Expired    int `json:"expired"`
}

// BatchRequest is one request of a batch.
type BatchRequest struct {
	CustomID string              `json:"custom_id"`
	Params   MessageCreateParams `json:"params"`
}

// BatchCreateParams lists the requests of a new batch.
type BatchCreateParams struct {
	Requests []BatchRequest `json:"requests"`
}

// DeletedMessageBatch confirms a batch deletion.
type DeletedMessageBatch struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// BatchResult is one line of a batch results file.
type BatchResult struct {
	CustomID string          `json:"custom_id"`
	Result   BatchResultBody `json:"result"`
}

func (r *BatchResult) UnmarshalJSON(data []byte) error {
	var aux struct {
		CustomID string          `json:"custom_id"`
		Result   json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	body, err := batchResultVariants.decode(aux.Result)
	if err != nil {
		return err
	}
	r.CustomID = aux.CustomID
	r.Result = body
	return nil
}

// BatchResultBody is the outcome of one batch request. Variants:
// *BatchSucceeded, *BatchErrored, *BatchCanceled, *BatchExpired and
// *UnknownBatchResult.
type BatchResultBody interface {
	resultType() string
}

// BatchSucceeded carries the message produced for a request.
type BatchSucceeded struct {
	Message Message `json:"message"`
}

// BatchErrored carries the error a request failed with.
type BatchErrored struct {
	Error ErrorDetail `json:"error"`
}

// BatchCanceled marks a request canceled before it ran.
type BatchCanceled struct{}

// BatchExpired marks a request that did not run before the batch expired.
type BatchExpired struct{}

// UnknownBatchResult holds a result type this SDK does not know.
type UnknownBatchResult struct {
	Type string
	Raw  json.RawMessage
}

func (*BatchSucceeded) resultType() string       { return "succeeded" }
func (*BatchErrored) resultType() string         { return "errored" }
func (*BatchCanceled) resultType() string        { return "canceled" }
func (*BatchExpired) resultType() string         { return "expired" }
func (r *UnknownBatchResult) resultType() string { return r.Type }

func (r BatchSucceeded) MarshalJSON() ([]byte, error) {
	type plain BatchSucceeded
	return marshalTagged("succeeded", plain(r))
}

func (r BatchErrored) MarshalJSON() ([]byte, error) {
	type plain BatchErrored
	return marshalTagged("errored", plain(r))
}

func (BatchCanceled) MarshalJSON() ([]byte, error) {
	return marshalTagged("canceled", struct{}{})
}

func (BatchExpired) MarshalJSON() ([]byte, error) {
	return marshalTagged("expired", struct{}{})
}

func (r UnknownBatchResult) MarshalJSON() ([]byte, error) {
	return marshalUnknown(r.Type, r.Raw)
}

// UnmarshalJSON accepts the error either bare or wrapped in an error
// response envelope ({"type":"error","error":{...}}).
func (r *BatchErrored) UnmarshalJSON(data []byte) error {
	detail := gjson.GetBytes(data, "error")
	if nested := detail.Get("error"); detail.Get("type").Str == "error" && nested.IsObject() {
		detail = nested
	}
	r.Error = ErrorDetail{
		Type:    detail.Get("type").Str,
		Message: detail.Get("message").Str,
	}
	return nil
}

var batchResultVariants = variantSet[BatchResultBody]{
	union: "batch result",
	known: map[string]func() BatchResultBody{
		"succeeded": func() BatchResultBody { return &BatchSucceeded{} },
		"errored":   func() BatchResultBody { return &BatchErrored{} },
		"canceled":  func() BatchResultBody { return &BatchCanceled{} },
		"expired":   func() BatchResultBody { return &BatchExpired{} },
	},
	unknown: func(tag string, raw json.RawMessage) BatchResultBody {
		return &UnknownBatchResult{Type: tag, Raw: raw}
	},
}

// BatchService manages message batches. Use Client.Batches.
type BatchService struct {
	client *Client
}

func batchPath(id string) string {
	return batchesPath + "/" + url.PathEscape(id)
}

// Create submits a batch.
func (s *BatchService) Create(ctx context.Context, params BatchCreateParams, opts ...core.RequestOption) (*MessageBatch, error) {
	params.Requests = slices.Clone(params.Requests)
	for i := range params.Requests {
		spec := ParseModelSpec(string(params.Requests[i].Params.Model))
		params.Requests[i].Params.Model = spec.Model
	}
	var out MessageBatch
	if err := s.client.do(ctx, http.MethodPost, batchesPath, params, &out, opts); err != nil {
		return nil, err
	}
	return &out, nil
}

// Get returns the current state of a batch.
func (s *BatchService) Get(ctx context.Context, id string, opts ...core.RequestOption) (*MessageBatch, error) {
	var out MessageBatch
	if err := s.client.do(ctx, http.MethodGet, batchPath(id), nil, &out, opts); err != nil {
		return nil, err
	}
	return &out, nil
}

// List returns one page of batches, newest first.
func (s *BatchService) List(ctx context.Context, params ListParams, opts ...core.RequestOption) (*Page[MessageBatch], error) {
	var out Page[MessageBatch]
	if err := s.client.do(ctx, http.MethodGet, batchesPath+params.query(), nil, &out, opts); err != nil {
		return nil, err
	}
	return &out, nil
}

// All iterates over every batch, fetching pages as needed.
func (s *BatchService) All(ctx context.Context, params ListParams, opts ...core.RequestOption) iter.Seq2[MessageBatch, error] {
	return paginate(params, func(p ListParams) (*Page[MessageBatch], error) {
		return s.List(ctx, p, opts...)
	})
}

// Cancel asks the server to stop processing a batch.
func (s *BatchService) Cancel(ctx context.Context, id string, opts ...core.RequestOption) (*MessageBatch, error) {
	var out MessageBatch
	if err := s.client.do(ctx, http.MethodPost, batchPath(id)+"/cancel", nil, &out, opts); err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete removes a batch that has finished processing.
func (s *BatchService) Delete(ctx context.Context, id string, opts ...core.RequestOption) (*DeletedMessageBatch, error) {
	var out DeletedMessageBatch
	if err := s.client.do(ctx, http.MethodDelete, batchPath(id), nil, &out, opts); err != nil {
		return nil, err
	}
	return &out, nil
}

// Results opens the JSONL results of an ended batch. Lines are decoded as
// they are read.
func (s *BatchService) Results(ctx context.Context, id string, opts ...core.RequestOption) (*BatchResultStream, error) {
	req, err := s.client.newRequest(http.MethodGet, batchPath(id)+"/results", nil, opts)
	if err != nil {
		return nil, err
	}
	req.Stream = true
	req.Header.Set("Accept", "application/binary")
	resp, err := s.client.exec.Stream(ctx, req)
	if err != nil {
		return nil, err
	}
	return NewBatchResultStream(resp.Body), nil
}

// BatchResultStream reads batch results one line at a time. A malformed
// line fails on its own; reading continues with the next line.
type BatchResultStream struct {
	body io.ReadCloser
	r    *bufio.Reader
	line int
}

// NewBatchResultStream reads results from a JSONL body and takes ownership
// of it.
func NewBatchResultStream(body io.ReadCloser) *BatchResultStream {
	return &BatchResultStream{body: body, r: bufio.NewReader(body)}
}

// Next returns the next result. It returns io.EOF at the end of the body.
// A *core.SerializationError reports a malformed line and Next may be
// called again; any other error ends the stream.
func (s *BatchResultStream) Next() (*BatchResult, error) {
	for {
		raw, err := s.r.ReadBytes('\n')
		if len(raw) == 0 && err != nil {
			return nil, err
		}
		s.line++
		raw = bytes.TrimSpace(raw)
		if len(raw) == 0 {
			if err != nil {
				return nil, err
			}
			continue
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
		var res BatchResult
		if err := json.Unmarshal(raw, &res); err != nil {
			return nil, &core.SerializationError{
				Context: fmt.Sprintf("batch result line %d", s.line),
				Err:     err,
			}
		}
		return &res, nil
	}
}

// All iterates over the results. Malformed lines are yielded as errors
// without ending iteration; the stream is closed when iteration stops.
func (s *BatchResultStream) All() iter.Seq2[*BatchResult, error] {
	return func(yield func(*BatchResult, error) bool) {
		defer s.Close()
		for {
			res, err := s.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			var serr *core.SerializationError
			if err != nil && !errors.As(err, &serr) {
				yield(nil, err)
				return
			}
			if !yield(res, err) {
				return
			}
		}
	}
}

// Close releases the connection.
func (s *BatchResultStream) Close() error {
	return s.body.Close()
}
