package anthropic

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/tidwall/gjson"

	"github.com/petal-labs/anthropic-go/core"
)

const batchResults = `{"custom_id":"a","result":{"type":"succeeded","message":{"id":"msg_a","type":"message","role":"assistant","content":[{"type":"text","text":"A"}],"model":"claude-sonnet-4-5","stop_reason":"end_turn","usage":{"input_tokens":1,"output_tokens":1}}}}
{"custom_id":"b","result":{"type":"errored","error":{"type":"error","error":{"type":"invalid_request_error","message":"bad"}}}}
{"custom_id":"c","result":
{"custom_id":"d","result":{"type":"canceled"}}

{"custom_id":"e","result":{"type":"expired"}}
{"custom_id":"f","result":{"type":"deferred","until":"later"}}`

func TestBatchResultStream(t *testing.T) {
	stream := NewBatchResultStream(io.NopCloser(strings.NewReader(batchResults)))

	var got []string
	var lineErrs []error
	for res, err := range stream.All() {
		if err != nil {
			lineErrs = append(lineErrs, err)
			continue
		}
		got = append(got, res.CustomID+":"+typeName(res.Result))
	}

	want := []string{
		"a:*anthropic.BatchSucceeded",
		"b:*anthropic.BatchErrored",
		"d:*anthropic.BatchCanceled",
		"e:*anthropic.BatchExpired",
		"f:*anthropic.UnknownBatchResult",
	}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("results = %v, want %v", got, want)
	}
	if len(lineErrs) != 1 {
		t.Fatalf("line errors = %v, want 1", lineErrs)
	}
	if !errors.Is(lineErrs[0], core.ErrSerialization) || !strings.Contains(lineErrs[0].Error(), "line 3") {
		t.Errorf("line error = %v, want serialization failure on line 3", lineErrs[0])
	}
}

func TestBatchResultBodies(t *testing.T) {
	stream := NewBatchResultStream(io.NopCloser(strings.NewReader(batchResults)))
	defer stream.Close()

	res, err := stream.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if msg := res.Result.(*BatchSucceeded).Message; msg.Text() != "A" {
		t.Errorf("Text() = %q, want A", msg.Text())
	}

	res, err = stream.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	errored := res.Result.(*BatchErrored)
	if errored.Error.Type != "invalid_request_error" || errored.Error.Message != "bad" {
		t.Errorf("Error = %+v", errored.Error)
	}
}

func TestBatchResultStreamEOF(t *testing.T) {
	stream := NewBatchResultStream(io.NopCloser(strings.NewReader("\n\n")))
	if _, err := stream.Next(); !errors.Is(err, io.EOF) {
		t.Errorf("Next() err = %v, want io.EOF", err)
	}
}

func TestBatchesCreate(t *testing.T) {
	srv, rec := newServer(t, http.StatusOK, "application/json",
		`{"id":"msgbatch_1","type":"message_batch","processing_status":"in_progress","request_counts":{"processing":1},"created_at":"2026-01-01T00:00:00Z"}`)
	client := New("sk-test", WithBaseURL(srv.URL))

	requests := []BatchRequest{{
		CustomID: "q1",
		Params: MessageCreateParams{
			Model:     "haiku",
			MaxTokens: 16,
			Messages:  []MessageParam{UserText("Hi")},
		},
	}}
	batch, err := client.Batches.Create(context.Background(), BatchCreateParams{Requests: requests})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if batch.ID != "msgbatch_1" || batch.ProcessingStatus != ProcessingInProgress {
		t.Errorf("batch = %+v", batch)
	}
	if got := gjson.GetBytes(rec.body, "requests.0.params.model").String(); got != string(ModelClaudeHaiku4_5) {
		t.Errorf("model = %q, want %q", got, ModelClaudeHaiku4_5)
	}
	if requests[0].Params.Model != "haiku" {
		t.Errorf("caller's params mutated to %q", requests[0].Params.Model)
	}
}

func TestBatchesResults(t *testing.T) {
	srv, rec := newServer(t, http.StatusOK, "application/binary", batchResults)
	client := New("sk-test", WithBaseURL(srv.URL))

	stream, err := client.Batches.Results(context.Background(), "msgbatch_1")
	if err != nil {
		t.Fatalf("Results: %v", err)
	}
	n := 0
	for _, err := range stream.All() {
		if err == nil {
			n++
		}
	}
	if n != 5 {
		t.Errorf("decoded %d results, want 5", n)
	}
	if rec.path != "/v1/messages/batches/msgbatch_1/results" {
		t.Errorf("path = %q", rec.path)
	}
}

func TestBatchesCancel(t *testing.T) {
	srv, rec := newServer(t, http.StatusOK, "application/json",
		`{"id":"msgbatch_1","type":"message_batch","processing_status":"canceling","request_counts":{}}`)
	client := New("sk-test", WithBaseURL(srv.URL))

	batch, err := client.Batches.Cancel(context.Background(), "msgbatch_1")
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if batch.ProcessingStatus != ProcessingCanceling {
		t.Errorf("ProcessingStatus = %q, want canceling", batch.ProcessingStatus)
	}
	if rec.path != "/v1/messages/batches/msgbatch_1/cancel" {
		t.Errorf("path = %q", rec.path)
	}
}
