package bedrock

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go/private/protocol/eventstream"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// sseBridge converts an AWS eventstream body into text/event-stream bytes.
// Each "chunk" event carries one Messages API event, base64 encoded in
// {"bytes": "..."}. Exceptions become SSE error events so the stream ends
// with a typed API error.
type sseBridge struct {
	body    io.ReadCloser
	dec     *eventstream.Decoder
	payload []byte
	out     bytes.Buffer
	err     error
}

func newSSEBridge(body io.ReadCloser) *sseBridge {
	return &sseBridge{body: body, dec: eventstream.NewDecoder(body)}
}

func (b *sseBridge) Read(p []byte) (int, error) {
	for b.out.Len() == 0 {
		if b.err != nil {
			return 0, b.err
		}
		b.err = b.fill()
	}
	return b.out.Read(p)
}

func (b *sseBridge) Close() error {
	return b.body.Close()
}

// fill decodes one eventstream message into out.
func (b *sseBridge) fill() error {
	msg, err := b.dec.Decode(b.payload)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return io.EOF
		}
		return fmt.Errorf("bedrock: decode eventstream: %w", err)
	}
	b.payload = msg.Payload[:0]

	switch header(msg, ":message-type") {
	case "event":
		if header(msg, ":event-type") != "chunk" {
			return nil
		}
		encoded := gjson.GetBytes(msg.Payload, "bytes").String()
		data, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return fmt.Errorf("bedrock: decode chunk: %w", err)
		}
		b.writeEvent(gjson.GetBytes(data, "type").String(), data)
	case "exception":
		kind := header(msg, ":exception-type")
		b.writeError(kind, gjson.GetBytes(msg.Payload, "message").String())
	case "error":
		b.writeError(header(msg, ":error-code"), header(msg, ":error-message"))
	}
	return nil
}

func (b *sseBridge) writeEvent(name string, data []byte) {
	if name != "" {
		fmt.Fprintf(&b.out, "event: %s\n", name)
	}
	b.out.WriteString("data: ")
	b.out.Write(bytes.ReplaceAll(data, []byte("\n"), []byte("\ndata: ")))
	b.out.WriteString("\n\n")
}

func (b *sseBridge) writeError(kind, message string) {
	if message == "" {
		message = kind
	}
	data := []byte(`{"type":"error","error":{}}`)
	data, _ = sjson.SetBytes(data, "error.type", errorType(kind))
	data, _ = sjson.SetBytes(data, "error.message", message)
	b.writeEvent("error", data)
}

// errorType maps Bedrock exception names to API error types.
func errorType(exception string) string {
	switch exception {
	case "throttlingException", "ThrottlingException":
		return "rate_limit_error"
	case "serviceUnavailableException", "ServiceUnavailableException", "modelNotReadyException":
		return "overloaded_error"
	case "validationException", "ValidationException":
		return "invalid_request_error"
	case "accessDeniedException", "AccessDeniedException":
		return "permission_error"
	case "modelTimeoutException":
		return "timeout_error"
	default:
		return "api_error"
	}
}

func header(msg eventstream.Message, name string) string {
	v := msg.Headers.Get(name)
	if v == nil {
		return ""
	}
	return v.String()
}
