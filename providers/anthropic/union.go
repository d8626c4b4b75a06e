package anthropic

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/petal-labs/anthropic-go/internal/json"
)

// Polymorphic payloads come in two shapes.
//
// Tagged unions carry a "type" discriminant. Decoding peeks at the tag and
// unmarshals into the registered variant; unknown tags decode into the
// union's Unknown variant, which keeps the original bytes and re-emits them
// untouched when encoded. Encoding always writes the tag first.
//
// Untagged unions have no discriminant. Decoding tries candidates in their
// declared order and keeps the first one whose shape matches, so specific
// variants are always declared before catch-all ones.

// variantSet decodes one tagged union.
type variantSet[T any] struct {
	union   string
	known   map[string]func() T
	unknown func(tag string, raw json.RawMessage) T
}

func (s variantSet[T]) decode(data []byte) (T, error) {
	var zero T
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return zero, fmt.Errorf("%s: expected object, got %.32q", s.union, data)
	}
	tag := gjson.GetBytes(data, "type")
	if tag.Type != gjson.String {
		return zero, fmt.Errorf("%s: missing type discriminant", s.union)
	}
	newVariant, ok := s.known[tag.Str]
	if !ok {
		if !json.Valid(data) {
			return zero, fmt.Errorf("%s: invalid JSON for type %q", s.union, tag.Str)
		}
		return s.unknown(tag.Str, bytes.Clone(data)), nil
	}
	v := newVariant()
	if err := json.Unmarshal(data, v); err != nil {
		return zero, fmt.Errorf("%s %q: %w", s.union, tag.Str, err)
	}
	return v, nil
}

func (s variantSet[T]) decodeList(data []byte) ([]T, error) {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil, nil
	}
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("%s list: %w", s.union, err)
	}
	out := make([]T, 0, len(raws))
	for i, raw := range raws {
		v, err := s.decode(raw)
		if err != nil {
			return nil, fmt.Errorf("index %d: %w", i, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// marshalTagged encodes v and writes the discriminant as the first member.
func marshalTagged(tag string, v any) ([]byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	body = bytes.TrimSpace(body)
	out := make([]byte, 0, len(body)+len(tag)+12)
	out = append(out, `{"type":`...)
	out = append(out, '"')
	out = append(out, tag...)
	out = append(out, '"')
	if len(body) > 2 {
		out = append(out, ',')
		out = append(out, body[1:]...)
	} else {
		out = append(out, '}')
	}
	return out, nil
}

// candidate is one variant of an untagged union.
type candidate[T any] struct {
	name   string
	match  func(v gjson.Result) bool
	decode func(data []byte) (T, error)
}

var errNoVariant = errors.New("no variant matched")

// decodeUntagged returns the first candidate, in order, whose shape matches
// and whose decoding succeeds.
func decodeUntagged[T any](union string, data []byte, candidates ...candidate[T]) (T, error) {
	var zero T
	if !json.Valid(data) {
		return zero, fmt.Errorf("%s: invalid JSON", union)
	}
	parsed := gjson.ParseBytes(data)
	var errs []error
	for _, c := range candidates {
		if c.match != nil && !c.match(parsed) {
			continue
		}
		v, err := c.decode(data)
		if err == nil {
			return v, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", c.name, err))
	}
	return zero, fmt.Errorf("%s: %w", union, errors.Join(append([]error{errNoVariant}, errs...)...))
}

func isString(v gjson.Result) bool { return v.Type == gjson.String }
func isArray(v gjson.Result) bool  { return v.IsArray() }
func isObject(v gjson.Result) bool { return v.IsObject() }

// hasType matches objects whose discriminant is one of tags.
func hasType(tags ...string) func(gjson.Result) bool {
	return func(v gjson.Result) bool {
		if !v.IsObject() {
			return false
		}
		t := v.Get("type")
		if t.Type != gjson.String {
			return false
		}
		for _, tag := range tags {
			if t.Str == tag {
				return true
			}
		}
		return false
	}
}

// hasFields matches objects that carry every named member.
func hasFields(names ...string) func(gjson.Result) bool {
	return func(v gjson.Result) bool {
		if !v.IsObject() {
			return false
		}
		for _, n := range names {
			if !v.Get(n).Exists() {
				return false
			}
		}
		return true
	}
}

// into returns a decoder that unmarshals into a fresh *V and converts it.
func into[V any, T any](convert func(*V) T) func([]byte) (T, error) {
	return func(data []byte) (T, error) {
		v := new(V)
		if err := json.Unmarshal(data, v); err != nil {
			var zero T
			return zero, err
		}
		return convert(v), nil
	}
}

// marshalUnknown re-emits the bytes an unknown variant was decoded from.
// A value built by hand with no bytes encodes as a bare tagged object.
func marshalUnknown(tag string, raw json.RawMessage) ([]byte, error) {
	if len(raw) == 0 {
		return marshalTagged(tag, struct{}{})
	}
	return raw, nil
}
