package anthropic

import (
	"errors"
	"log/slog"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/petal-labs/anthropic-go/core"
	"github.com/petal-labs/anthropic-go/internal/json"
	"github.com/petal-labs/anthropic-go/internal/sse"
)

// StreamEvent is one event of a streaming response. Variants:
// *MessageStartEvent, *ContentBlockStartEvent, *ContentBlockDeltaEvent,
// *ContentBlockStopEvent, *MessageDeltaEvent, *MessageStopEvent, *PingEvent,
// *ErrorEvent and *UnrecognizedEvent.
type StreamEvent interface {
	eventType() string
}

// MessageStartEvent opens a stream with the message shell: id, model and
// input usage, with empty content.
type MessageStartEvent struct {
	Message Message `json:"message"`
}

// ContentBlockStartEvent opens the content block at Index.
type ContentBlockStartEvent struct {
	Index        int          `json:"index"`
	ContentBlock ContentBlock `json:"content_block"`
}

// ContentBlockDeltaEvent updates the open content block at Index.
type ContentBlockDeltaEvent struct {
	Index int               `json:"index"`
	Delta ContentBlockDelta `json:"delta"`
}

// ContentBlockStopEvent closes the content block at Index.
type ContentBlockStopEvent struct {
	Index int `json:"index"`
}

// MessageDeltaEvent carries the stop reason and final output usage.
type MessageDeltaEvent struct {
	Delta MessageDelta      `json:"delta"`
	Usage MessageDeltaUsage `json:"usage"`
}

// MessageDelta carries the terminal fields of a message.
type MessageDelta struct {
	StopReason   *StopReason `json:"stop_reason"`
	StopSequence *string     `json:"stop_sequence"`
}

// MessageStopEvent ends a successful stream.
type MessageStopEvent struct{}

// PingEvent is a keep-alive.
type PingEvent struct{}

// ErrorEvent ends a stream with an API error.
type ErrorEvent struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail is the error object of an error event or an errored batch
// result.
type ErrorDetail struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// UnrecognizedEvent holds an event type this SDK does not know.
type UnrecognizedEvent struct {
	Type string
	Raw  json.RawMessage
}

func (*MessageStartEvent) eventType() string      { return "message_start" }
func (*ContentBlockStartEvent) eventType() string { return "content_block_start" }
func (*ContentBlockDeltaEvent) eventType() string { return "content_block_delta" }
func (*ContentBlockStopEvent) eventType() string  { return "content_block_stop" }
func (*MessageDeltaEvent) eventType() string      { return "message_delta" }
func (*MessageStopEvent) eventType() string       { return "message_stop" }
func (*PingEvent) eventType() string              { return "ping" }
func (*ErrorEvent) eventType() string             { return "error" }
func (e *UnrecognizedEvent) eventType() string    { return e.Type }

// EventType returns the discriminant of e.
func EventType(e StreamEvent) string { return e.eventType() }

func (e MessageStartEvent) MarshalJSON() ([]byte, error) {
	type plain MessageStartEvent
	return marshalTagged("message_start", plain(e))
}

func (e ContentBlockStartEvent) MarshalJSON() ([]byte, error) {
	type plain ContentBlockStartEvent
	return marshalTagged("content_block_start", plain(e))
}

func (e ContentBlockDeltaEvent) MarshalJSON() ([]byte, error) {
	type plain ContentBlockDeltaEvent
	return marshalTagged("content_block_delta", plain(e))
}

func (e ContentBlockStopEvent) MarshalJSON() ([]byte, error) {
	type plain ContentBlockStopEvent
	return marshalTagged("content_block_stop", plain(e))
}

func (e MessageDeltaEvent) MarshalJSON() ([]byte, error) {
	type plain MessageDeltaEvent
	return marshalTagged("message_delta", plain(e))
}

func (MessageStopEvent) MarshalJSON() ([]byte, error) {
	return marshalTagged("message_stop", struct{}{})
}

func (PingEvent) MarshalJSON() ([]byte, error) {
	return marshalTagged("ping", struct{}{})
}

func (e ErrorEvent) MarshalJSON() ([]byte, error) {
	type plain ErrorEvent
	return marshalTagged("error", plain(e))
}

func (e UnrecognizedEvent) MarshalJSON() ([]byte, error) {
	return marshalUnknown(e.Type, e.Raw)
}

func (e *ContentBlockStartEvent) UnmarshalJSON(data []byte) error {
	var aux struct {
		Index        int             `json:"index"`
		ContentBlock json.RawMessage `json:"content_block"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	block, err := blockVariants.decode(aux.ContentBlock)
	if err != nil {
		return err
	}
	e.Index = aux.Index
	e.ContentBlock = block
	return nil
}

func (e *ContentBlockDeltaEvent) UnmarshalJSON(data []byte) error {
	var aux struct {
		Index int             `json:"index"`
		Delta json.RawMessage `json:"delta"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	delta, err := deltaVariants.decode(aux.Delta)
	if err != nil {
		return err
	}
	e.Index = aux.Index
	e.Delta = delta
	return nil
}

var eventVariants = variantSet[StreamEvent]{
	union: "stream event",
	known: map[string]func() StreamEvent{
		"message_start":       func() StreamEvent { return &MessageStartEvent{} },
		"content_block_start": func() StreamEvent { return &ContentBlockStartEvent{} },
		"content_block_delta": func() StreamEvent { return &ContentBlockDeltaEvent{} },
		"content_block_stop":  func() StreamEvent { return &ContentBlockStopEvent{} },
		"message_delta":       func() StreamEvent { return &MessageDeltaEvent{} },
		"message_stop":        func() StreamEvent { return &MessageStopEvent{} },
		"ping":                func() StreamEvent { return &PingEvent{} },
		"error":               func() StreamEvent { return &ErrorEvent{} },
	},
	unknown: func(tag string, raw json.RawMessage) StreamEvent {
		return &UnrecognizedEvent{Type: tag, Raw: raw}
	},
}

// ContentBlockDelta is an incremental update to one content block.
// Variants: *TextDelta, *InputJSONDelta, *ThinkingDelta, *SignatureDelta,
// *CitationsDelta and *UnknownDelta.
type ContentBlockDelta interface {
	deltaType() string
}

// TextDelta appends to a text block.
type TextDelta struct {
	Text string `json:"text"`
}

// InputJSONDelta is a fragment of a tool input. Fragments are only valid
// JSON once concatenated.
type InputJSONDelta struct {
	PartialJSON string `json:"partial_json"`
}

// ThinkingDelta appends to a thinking block.
type ThinkingDelta struct {
	Thinking string `json:"thinking"`
}

// SignatureDelta appends to the signature of a thinking block.
type SignatureDelta struct {
	Signature string `json:"signature"`
}

// CitationsDelta adds one citation to a text block.
type CitationsDelta struct {
	Citation TextCitation `json:"citation"`
}

// UnknownDelta holds a delta type this SDK does not know. Raw is the
// original object.
type UnknownDelta struct {
	Type string
	Raw  json.RawMessage
}

func (*TextDelta) deltaType() string      { return "text_delta" }
func (*InputJSONDelta) deltaType() string { return "input_json_delta" }
func (*ThinkingDelta) deltaType() string  { return "thinking_delta" }
func (*SignatureDelta) deltaType() string { return "signature_delta" }
func (*CitationsDelta) deltaType() string { return "citations_delta" }
func (d *UnknownDelta) deltaType() string { return d.Type }

func (d TextDelta) MarshalJSON() ([]byte, error) {
	type plain TextDelta
	return marshalTagged("text_delta", plain(d))
}

func (d InputJSONDelta) MarshalJSON() ([]byte, error) {
	type plain InputJSONDelta
	return marshalTagged("input_json_delta", plain(d))
}

func (d ThinkingDelta) MarshalJSON() ([]byte, error) {
	type plain ThinkingDelta
	return marshalTagged("thinking_delta", plain(d))
}

func (d SignatureDelta) MarshalJSON() ([]byte, error) {
	type plain SignatureDelta
	return marshalTagged("signature_delta", plain(d))
}

func (d CitationsDelta) MarshalJSON() ([]byte, error) {
	type plain CitationsDelta
	return marshalTagged("citations_delta", plain(d))
}

func (d UnknownDelta) MarshalJSON() ([]byte, error) {
	return marshalUnknown(d.Type, d.Raw)
}

func (d *CitationsDelta) UnmarshalJSON(data []byte) error {
	var aux struct {
		Citation json.RawMessage `json:"citation"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	c, err := citationVariants.decode(aux.Citation)
	if err != nil {
		return err
	}
	d.Citation = c
	return nil
}

var deltaVariants = variantSet[ContentBlockDelta]{
	union: "content block delta",
	known: map[string]func() ContentBlockDelta{
		"text_delta":       func() ContentBlockDelta { return &TextDelta{} },
		"input_json_delta": func() ContentBlockDelta { return &InputJSONDelta{} },
		"thinking_delta":   func() ContentBlockDelta { return &ThinkingDelta{} },
		"signature_delta":  func() ContentBlockDelta { return &SignatureDelta{} },
		"citations_delta":  func() ContentBlockDelta { return &CitationsDelta{} },
	},
	unknown: func(tag string, raw json.RawMessage) ContentBlockDelta {
		return &UnknownDelta{Type: tag, Raw: raw}
	},
}

var errInvalidEventJSON = errors.New("payload is not valid JSON")

// decodeEvent turns one SSE frame into a typed event. It returns a nil event
// for heartbeat frames. The JSON "type" member decides the variant; the SSE
// event name is only used when the payload has no type of its own.
func decodeEvent(f sse.Frame, logger *slog.Logger) (StreamEvent, error) {
	if f.IsHeartbeat() {
		return nil, nil
	}
	data := []byte(f.Data)
	if len(data) == 0 {
		data = []byte("{}")
	}
	if !json.Valid(data) {
		return nil, &core.SerializationError{
			Context: "decode stream event " + f.Name(),
			Err:     errInvalidEventJSON,
		}
	}

	tag := gjson.GetBytes(data, "type")
	switch {
	case !tag.Exists() && gjson.ParseBytes(data).IsObject():
		var err error
		if data, err = sjson.SetBytes(data, "type", f.Name()); err != nil {
			return nil, &core.SerializationError{Context: "decode stream event " + f.Name(), Err: err}
		}
	case f.Event != "" && tag.Str != f.Event:
		logger.Debug("stream event name disagrees with payload type",
			"event", f.Event,
			"type", tag.Str,
		)
	}

	ev, err := eventVariants.decode(data)
	if err != nil {
		return nil, &core.SerializationError{Context: "decode stream event " + f.Name(), Err: err}
	}
	return ev, nil
}

// apiError converts an error event into the error the stream ends with.
func (e *ErrorEvent) apiError(provider string) *core.APIError {
	msg := e.Error.Message
	if msg == "" {
		msg = e.Error.Type
	}
	return &core.APIError{
		Provider: provider,
		Type:     e.Error.Type,
		Message:  msg,
		Err:      core.SentinelFor(0, e.Error.Type),
	}
}
