package anthropic

import (
	"fmt"

	"github.com/petal-labs/anthropic-go/internal/json"
)

// Server tool versions.
const (
	ToolBash20250124       = "bash_20250124"
	ToolTextEditor20250124 = "text_editor_20250124"
	ToolTextEditor20250429 = "text_editor_20250429"
	ToolTextEditor20250728 = "text_editor_20250728"
	ToolWebSearch20250305  = "web_search_20250305"
	ToolWebSearch20260209  = "web_search_20260209"
	ToolWebFetch20260209   = "web_fetch_20260209"
)

// ToolDefinition is a tool offered to the model. Variants: *BashTool,
// *TextEditorTool, *WebSearchTool, *WebFetchTool, *CustomTool and
// *UnknownTool.
//
// The union has no common discriminant: custom tools omit "type" or set it
// to "custom". Decoding tries, in order:
//
//  1. BashTool, TextEditorTool, WebSearchTool, WebFetchTool: a known
//     server tool "type" literal.
//  2. CustomTool: any object with "name" and "input_schema".
//  3. UnknownTool: any object with "name" and a string "type", kept raw.
//
// Server tools come first because a server tool payload that also carries an
// input_schema must not be mistaken for a custom tool.
type ToolDefinition interface {
	toolName() string
}

// BashTool is the server-defined bash tool.
type BashTool struct {
	Type         string        `json:"type"`
	Name         string        `json:"name"`
	CacheControl *CacheControl `json:"cache_control,omitempty"`
}

// NewBashTool returns the bash tool at its current version.
func NewBashTool() *BashTool {
	return &BashTool{Type: ToolBash20250124, Name: "bash"}
}

// TextEditorTool is the server-defined text editor tool. Type selects the
// version; the 20250728 version is named "str_replace_based_edit_tool" and
// supports MaxCharacters.
type TextEditorTool struct {
	Type          string        `json:"type"`
	Name          string        `json:"name"`
	MaxCharacters *int          `json:"max_characters,omitempty"`
	CacheControl  *CacheControl `json:"cache_control,omitempty"`
}

// NewTextEditorTool returns the text editor tool for version, which must be
// one of the ToolTextEditor constants.
func NewTextEditorTool(version string) *TextEditorTool {
	name := "str_replace_editor"
	if version == ToolTextEditor20250728 {
		name = "str_replace_based_edit_tool"
	}
	return &TextEditorTool{Type: version, Name: name}
}

// UserLocation localizes web search results.
type UserLocation struct {
	Type     string `json:"type"`
	City     string `json:"city,omitempty"`
	Region   string `json:"region,omitempty"`
	Country  string `json:"country,omitempty"`
	Timezone string `json:"timezone,omitempty"`
}

// ApproximateLocation returns an empty approximate user location.
func ApproximateLocation() UserLocation {
	return UserLocation{Type: "approximate"}
}

// WebSearchTool is the server-defined web search tool.
type WebSearchTool struct {
	Type           string        `json:"type"`
	Name           string        `json:"name"`
	MaxUses        *int          `json:"max_uses,omitempty"`
	AllowedDomains []string      `json:"allowed_domains,omitempty"`
	BlockedDomains []string      `json:"blocked_domains,omitempty"`
	UserLocation   *UserLocation `json:"user_location,omitempty"`
	CacheControl   *CacheControl `json:"cache_control,omitempty"`
	Strict         *bool         `json:"strict,omitempty"`
	AllowedCallers []string      `json:"allowed_callers,omitempty"`
	DeferLoading   *bool         `json:"defer_loading,omitempty"`
}

// NewWebSearchTool returns the web search tool at version.
func NewWebSearchTool(version string) *WebSearchTool {
	return &WebSearchTool{Type: version, Name: "web_search"}
}

// WebFetchTool is the server-defined web fetch tool.
type WebFetchTool struct {
	Type             string        `json:"type"`
	Name             string        `json:"name"`
	MaxContentTokens *int          `json:"max_content_tokens,omitempty"`
	MaxUses          *int          `json:"max_uses,omitempty"`
	AllowedDomains   []string      `json:"allowed_domains,omitempty"`
	BlockedDomains   []string      `json:"blocked_domains,omitempty"`
	AllowedCallers   []string      `json:"allowed_callers,omitempty"`
	DeferLoading     *bool         `json:"defer_loading,omitempty"`
	Strict           *bool         `json:"strict,omitempty"`
	CacheControl     *CacheControl `json:"cache_control,omitempty"`
}

// NewWebFetchTool returns the web fetch tool.
func NewWebFetchTool() *WebFetchTool {
	return &WebFetchTool{Type: ToolWebFetch20260209, Name: "web_fetch"}
}

// CustomTool is a client-side tool described by a JSON schema.
type CustomTool struct {
	Type                string          `json:"type,omitempty"`
	Name                string          `json:"name"`
	Description         string          `json:"description,omitempty"`
	InputSchema         json.RawMessage `json:"input_schema"`
	CacheControl        *CacheControl   `json:"cache_control,omitempty"`
	Strict              *bool           `json:"strict,omitempty"`
	EagerInputStreaming *bool           `json:"eager_input_streaming,omitempty"`
}

// UnknownTool holds a tool definition this SDK does not know, typically a
// newer server tool version.
type UnknownTool struct {
	Type string
	Name string
	Raw  json.RawMessage
}

func (t *BashTool) toolName() string       { return t.Name }
func (t *TextEditorTool) toolName() string { return t.Name }
func (t *WebSearchTool) toolName() string  { return t.Name }
func (t *WebFetchTool) toolName() string   { return t.Name }
func (t *CustomTool) toolName() string     { return t.Name }
func (t *UnknownTool) toolName() string    { return t.Name }

// ToolName returns the name the model uses to call t.
func ToolName(t ToolDefinition) string { return t.toolName() }

func (t UnknownTool) MarshalJSON() ([]byte, error) {
	if len(t.Raw) == 0 {
		return json.Marshal(map[string]string{"type": t.Type, "name": t.Name})
	}
	return t.Raw, nil
}

func (t CustomTool) MarshalJSON() ([]byte, error) {
	type plain CustomTool
	if len(t.InputSchema) == 0 {
		t.InputSchema = json.RawMessage(`{"type":"object"}`)
	}
	return json.Marshal(plain(t))
}

func decodeToolDefinition(data []byte) (ToolDefinition, error) {
	return decodeUntagged("tool definition", data,
		candidate[ToolDefinition]{
			name:   "bash",
			match:  hasType(ToolBash20250124),
			decode: into(func(t *BashTool) ToolDefinition { return t }),
		},
		candidate[ToolDefinition]{
			name:   "text editor",
			match:  hasType(ToolTextEditor20250124, ToolTextEditor20250429, ToolTextEditor20250728),
			decode: into(func(t *TextEditorTool) ToolDefinition { return t }),
		},
		candidate[ToolDefinition]{
			name:   "web search",
			match:  hasType(ToolWebSearch20250305, ToolWebSearch20260209),
			decode: into(func(t *WebSearchTool) ToolDefinition { return t }),
		},
		candidate[ToolDefinition]{
			name:   "web fetch",
			match:  hasType(ToolWebFetch20260209),
			decode: into(func(t *WebFetchTool) ToolDefinition { return t }),
		},
		candidate[ToolDefinition]{
			name:   "custom",
			match:  hasFields("name", "input_schema"),
			decode: into(func(t *CustomTool) ToolDefinition { return t }),
		},
		candidate[ToolDefinition]{
			name:  "unknown",
			match: hasFields("name", "type"),
			decode: func(data []byte) (ToolDefinition, error) {
				var head struct {
					Type string `json:"type"`
					Name string `json:"name"`
				}
				if err := json.Unmarshal(data, &head); err != nil {
					return nil, err
				}
				if head.Type == "" {
					return nil, fmt.Errorf("empty type")
				}
				return &UnknownTool{Type: head.Type, Name: head.Name, Raw: append(json.RawMessage(nil), data...)}, nil
			},
		},
	)
}

// ToolDefinitions is a list of tool definitions.
type ToolDefinitions []ToolDefinition

// UnmarshalJSON decodes each element in declared candidate order.
func (d *ToolDefinitions) UnmarshalJSON(data []byte) error {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return err
	}
	if raws == nil {
		*d = nil
		return nil
	}
	out := make(ToolDefinitions, 0, len(raws))
	for i, raw := range raws {
		t, err := decodeToolDefinition(raw)
		if err != nil {
			return fmt.Errorf("index %d: %w", i, err)
		}
		out = append(out, t)
	}
	*d = out
	return nil
}
