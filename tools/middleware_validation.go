package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/petal-labs/anthropic-go/internal/json"
)

// ErrInvalidArguments is returned when tool input fails validation.
var ErrInvalidArguments = errors.New("invalid tool arguments")

// SchemaValidator validates arguments against a JSON schema.
type SchemaValidator interface {
	Validate(schema json.RawMessage, data json.RawMessage) error
}

// JSONSchemaValidator validates with gojsonschema.
type JSONSchemaValidator struct{}

// Validate reports every schema violation in one error.
func (JSONSchemaValidator) Validate(schema json.RawMessage, data json.RawMessage) error {
	res, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(schema), gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArguments, err)
	}
	if res.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("%w: %s", ErrInvalidArguments, strings.Join(msgs, "; "))
}

// WithValidation validates arguments against the tool's input schema before
// calling it. Calls without a schema in their ToolContext pass through.
func WithValidation(validator SchemaValidator) Middleware {
	return func(next ToolCallFunc) ToolCallFunc {
		return func(ctx context.Context, args json.RawMessage) (any, error) {
			tc := ToolContextFromContext(ctx)
			if tc == nil || len(tc.Schema) == 0 {
				return next(ctx, args)
			}
			if err := validator.Validate(tc.Schema, args); err != nil {
				return nil, err
			}
			return next(ctx, args)
		}
	}
}

// WithBasicValidation rejects input that is not valid JSON.
func WithBasicValidation() Middleware {
	return func(next ToolCallFunc) ToolCallFunc {
		return func(ctx context.Context, args json.RawMessage) (any, error) {
			if !json.Valid(args) {
				return nil, fmt.Errorf("%w: malformed JSON", ErrInvalidArguments)
			}
			return next(ctx, args)
		}
	}
}
