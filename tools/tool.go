package tools

import (
	"context"
	"fmt"

	"github.com/petal-labs/anthropic-go/internal/json"
	"github.com/petal-labs/anthropic-go/providers/anthropic"
)

// Tool is a client-side tool the model can call.
type Tool interface {
	// Name returns the unique identifier for this tool.
	Name() string

	// Description tells the model what the tool does and when to use it.
	Description() string

	// Schema returns the JSON Schema of the tool's input.
	Schema() ToolSchema

	// Call executes the tool with the raw JSON input from a tool_use block.
	Call(ctx context.Context, args json.RawMessage) (any, error)
}

// ToolSchema describes the input a tool accepts.
type ToolSchema struct {
	// JSONSchema is a JSON Schema object, for example
	// {"type": "object", "properties": {"location": {"type": "string"}}}
	JSONSchema json.RawMessage `json:"json_schema"`
}

// Func returns a Tool that decodes its input into T before calling fn.
func Func[T any](name, description string, schema json.RawMessage, fn func(ctx context.Context, args T) (any, error)) Tool {
	return &funcTool[T]{name: name, description: description, schema: schema, fn: fn}
}

type funcTool[T any] struct {
	name        string
	description string
	schema      json.RawMessage
	fn          func(ctx context.Context, args T) (any, error)
}

func (f *funcTool[T]) Name() string        { return f.name }
func (f *funcTool[T]) Description() string { return f.description }
func (f *funcTool[T]) Schema() ToolSchema  { return ToolSchema{JSONSchema: f.schema} }

func (f *funcTool[T]) Call(ctx context.Context, args json.RawMessage) (any, error) {
	var in T
	if len(args) > 0 {
		if err := json.Unmarshal(args, &in); err != nil {
			return nil, fmt.Errorf("decode %s input: %w", f.name, err)
		}
	}
	return f.fn(ctx, in)
}

// Definition returns the custom tool definition that offers t to the model.
func Definition(t Tool) *anthropic.CustomTool {
	return &anthropic.CustomTool{
		Name:        t.Name(),
		Description: t.Description(),
		InputSchema: t.Schema().JSONSchema,
	}
}

// ParseArgs decodes the input of a tool_use block into T.
//
//	type WeatherArgs struct {
//	    Location string `json:"location"`
//	}
//
//	args, err := tools.ParseArgs[WeatherArgs](use)
func ParseArgs[T any](use *anthropic.ToolUseBlock) (*T, error) {
	var result T
	if err := json.Unmarshal(use.Input, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
