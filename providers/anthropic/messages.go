package anthropic

import (
	"context"
	"net/http"
	"slices"

	"github.com/tidwall/sjson"

	"github.com/petal-labs/anthropic-go/core"
	"github.com/petal-labs/anthropic-go/internal/json"
)

const (
	messagesPath    = "/v1/messages"
	countTokensPath = "/v1/messages/count_tokens"
)

// MessageService sends messages. Use Client.Messages.
type MessageService struct {
	client *Client
}

// Create sends a message and waits for the complete response.
func (s *MessageService) Create(ctx context.Context, params MessageCreateParams, opts ...core.RequestOption) (*Message, error) {
	req, err := s.prepare(params, false, opts)
	if err != nil {
		return nil, err
	}
	var msg Message
	if err := s.client.exec.Do(ctx, req, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// Stream sends a message and returns its events as they arrive. Failures
// before the response starts are retried; once Stream returns, they are not.
func (s *MessageService) Stream(ctx context.Context, params MessageCreateParams, opts ...core.RequestOption) (*MessageStream, error) {
	req, err := s.prepare(params, true, opts)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.exec.Stream(ctx, req)
	if err != nil {
		return nil, err
	}
	stream := NewMessageStream(resp.Body, s.client.exec.Logger())
	stream.provider = s.client.config.Provider
	return stream, nil
}

// CountTokens counts the input tokens of a request without sending it to
// the model.
func (s *MessageService) CountTokens(ctx context.Context, params CountTokensParams, opts ...core.RequestOption) (*TokenCount, error) {
	spec := ParseModelSpec(string(params.Model))
	params.Model = spec.Model
	if params.Thinking != nil && !params.Model.SupportsExtendedThinking() {
		params.Thinking = nil
	}
	req, err := s.client.newRequest(http.MethodPost, countTokensPath, params, opts)
	if err != nil {
		return nil, err
	}
	s.applyBetas(req, slices.Concat(params.Betas, spec.Betas()))

	var out TokenCount
	if err := s.client.exec.Do(ctx, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// prepare resolves the model spec, drops a thinking config the model cannot
// take and encodes the body with an explicit stream flag.
func (s *MessageService) prepare(params MessageCreateParams, stream bool, opts []core.RequestOption) (*core.Request, error) {
	spec := ParseModelSpec(string(params.Model))
	params.Model = spec.Model
	if params.Thinking != nil && !params.Model.SupportsExtendedThinking() {
		s.client.exec.Logger().Debug("dropping thinking config",
			"model", params.Model,
		)
		params.Thinking = nil
	}

	body, err := json.Marshal(params)
	if err != nil {
		return nil, &core.SerializationError{Context: "encode message params", Err: err}
	}
	if body, err = sjson.SetBytes(body, "stream", stream); err != nil {
		return nil, &core.SerializationError{Context: "encode message params", Err: err}
	}

	req, err := s.client.newRequest(http.MethodPost, messagesPath, body, opts)
	if err != nil {
		return nil, err
	}
	req.Stream = stream
	s.applyBetas(req, slices.Concat(params.Betas, spec.Betas()))
	return req, nil
}

// applyBetas merges per-call betas and switches the request to the beta
// endpoint when any beta is active.
func (s *MessageService) applyBetas(req *core.Request, betas []string) {
	core.MergeBetas(req.Header, betas...)
	if len(req.Betas()) > 0 || len(s.client.config.Betas) > 0 {
		core.WithQuery("beta", "true")(req)
	}
}
