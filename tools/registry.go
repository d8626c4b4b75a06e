package tools

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/petal-labs/anthropic-go/internal/json"
	"github.com/petal-labs/anthropic-go/providers/anthropic"
)

// ErrDuplicateTool is returned when attempting to register a tool with a name
// that is already registered.
var ErrDuplicateTool = errors.New("tool already registered")

// ErrToolNotFound is returned when a tool_use block names an unregistered tool.
var ErrToolNotFound = errors.New("tool not found")

// Registry manages a collection of tools indexed by name.
// Registry is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates a registry holding the given tools. It panics on a
// duplicate name.
func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{
		tools: make(map[string]Tool),
	}
	for _, t := range tools {
		if err := r.Register(t); err != nil {
			panic(fmt.Sprintf("tools: %v: %s", err, t.Name()))
		}
	}
	return r
}

// Register adds a tool to the registry.
// Returns ErrDuplicateTool if a tool with the same name is already registered.
func (r *Registry) Register(t Tool) error {
	if t == nil {
		return errors.New("tool cannot be nil")
	}

	name := t.Name()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[name]; exists {
		return ErrDuplicateTool
	}

	r.tools[name] = t
	return nil
}

// Get retrieves a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tools[name]
	return t, ok
}

// List returns all registered tools sorted by name.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	result := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		result = append(result, t)
	}
	r.mu.RUnlock()

	slices.SortFunc(result, func(a, b Tool) int { return cmp.Compare(a.Name(), b.Name()) })
	return result
}

// Definitions returns the tool definitions to send in a request, sorted by
// name so that prompt caching sees a stable prefix.
func (r *Registry) Definitions() []anthropic.ToolDefinition {
	list := r.List()
	defs := make([]anthropic.ToolDefinition, 0, len(list))
	for _, t := range list {
		defs = append(defs, Definition(t))
	}
	return defs
}

// Execute finds a tool by name and calls it with the given arguments.
func (r *Registry) Execute(ctx context.Context, name string, args json.RawMessage) (any, error) {
	tool, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrToolNotFound, name)
	}
	return tool.Call(ctx, args)
}
