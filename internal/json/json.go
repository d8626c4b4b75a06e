// Package json is a drop-in replacement for encoding/json backed by
// bytedance/sonic. It uses sonic's standard-compatible configuration so
// custom marshalers, map key ordering and HTML escaping behave exactly like
// the standard library.
package json

import (
	stdjson "encoding/json"
	"io"

	"github.com/bytedance/sonic"
)

var api = sonic.ConfigStd

// Marshal returns the JSON encoding of v.
func Marshal(v any) ([]byte, error) {
	return api.Marshal(v)
}

// MarshalIndent returns the indented JSON encoding of v.
func MarshalIndent(v any, prefix, indent string) ([]byte, error) {
	return api.MarshalIndent(v, prefix, indent)
}

// Unmarshal parses the JSON-encoded data and stores the result in v.
func Unmarshal(data []byte, v any) error {
	return api.Unmarshal(data, v)
}

// Valid reports whether data is a valid JSON encoding.
func Valid(data []byte) bool {
	return api.Valid(data)
}

// Types shared with encoding/json so values stay interchangeable.
type (
	RawMessage         = stdjson.RawMessage
	Number             = stdjson.Number
	Marshaler          = stdjson.Marshaler
	Unmarshaler        = stdjson.Unmarshaler
	SyntaxError        = stdjson.SyntaxError
	UnmarshalTypeError = stdjson.UnmarshalTypeError
)

// Encoder writes JSON values to an output stream.
type Encoder struct {
	enc sonic.Encoder
}

// NewEncoder returns a new encoder that writes to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{enc: api.NewEncoder(w)}
}

// Encode writes the JSON encoding of v to the stream.
func (e *Encoder) Encode(v any) error {
	return e.enc.Encode(v)
}

// SetIndent instructs the encoder to format each subsequent encoded value.
func (e *Encoder) SetIndent(prefix, indent string) {
	e.enc.SetIndent(prefix, indent)
}

// SetEscapeHTML specifies whether problematic HTML characters should be escaped.
func (e *Encoder) SetEscapeHTML(on bool) {
	e.enc.SetEscapeHTML(on)
}

// Decoder reads and decodes JSON values from an input stream.
type Decoder struct {
	dec sonic.Decoder
}

// NewDecoder returns a new decoder that reads from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{dec: api.NewDecoder(r)}
}

// Decode reads the next JSON-encoded value from its input and stores it in v.
func (d *Decoder) Decode(v any) error {
	return d.dec.Decode(v)
}

// More reports whether there is another element in the current array or object.
func (d *Decoder) More() bool {
	return d.dec.More()
}

// UseNumber causes the Decoder to unmarshal a number into an any as a Number.
func (d *Decoder) UseNumber() {
	d.dec.UseNumber()
}
