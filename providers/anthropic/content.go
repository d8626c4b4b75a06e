package anthropic

import "github.com/petal-labs/anthropic-go/internal/json"

// ContentBlock is one block of a response message. Variants: *TextBlock,
// *ThinkingBlock, *RedactedThinkingBlock, *ToolUseBlock, *ServerToolUseBlock,
// *WebSearchToolResultBlock and *UnknownBlock.
//
// Unknown block types are not errors. They decode into *UnknownBlock and
// encode back to the exact bytes received.
type ContentBlock interface {
	blockType() string
}

// TextBlock is model text, with citations when sources were provided.
type TextBlock struct {
	Text      string    `json:"text"`
	Citations Citations `json:"citations,omitempty"`
}

// ThinkingBlock is extended thinking output and its signature.
type ThinkingBlock struct {
	Thinking  string `json:"thinking"`
	Signature string `json:"signature"`
}

// RedactedThinkingBlock is thinking the API returns encrypted.
type RedactedThinkingBlock struct {
	Data string `json:"data"`
}

// ToolUseBlock asks the caller to run a client tool.
type ToolUseBlock struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input"`
}

// ServerToolUseBlock records a server tool call made by the API.
type ServerToolUseBlock struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input"`
}

// WebSearchToolResultBlock holds the outcome of a server web search.
type WebSearchToolResultBlock struct {
	ToolUseID string                     `json:"tool_use_id"`
	Content   WebSearchToolResultContent `json:"content"`
}

// UnknownBlock holds a block type this SDK does not know.
type UnknownBlock struct {
	Type string
	Raw  json.RawMessage
}

func (*TextBlock) blockType() string                { return "text" }
func (*ThinkingBlock) blockType() string            { return "thinking" }
func (*RedactedThinkingBlock) blockType() string    { return "redacted_thinking" }
func (*ToolUseBlock) blockType() string             { return "tool_use" }
func (*ServerToolUseBlock) blockType() string       { return "server_tool_use" }
func (*WebSearchToolResultBlock) blockType() string { return "web_search_tool_result" }
func (b *UnknownBlock) blockType() string           { return b.Type }

// BlockType returns the discriminant of b.
func BlockType(b ContentBlock) string {
	return b.blockType()
}

func (b TextBlock) MarshalJSON() ([]byte, error) {
	type plain TextBlock
	return marshalTagged("text", plain(b))
}

func (b ThinkingBlock) MarshalJSON() ([]byte, error) {
	type plain ThinkingBlock
	return marshalTagged("thinking", plain(b))
}

func (b RedactedThinkingBlock) MarshalJSON() ([]byte, error) {
	type plain RedactedThinkingBlock
	return marshalTagged("redacted_thinking", plain(b))
}

func (b ToolUseBlock) MarshalJSON() ([]byte, error) {
	type plain ToolUseBlock
	if len(b.Input) == 0 {
		b.Input = json.RawMessage("{}")
	}
	return marshalTagged("tool_use", plain(b))
}

func (b ServerToolUseBlock) MarshalJSON() ([]byte, error) {
	type plain ServerToolUseBlock
	if len(b.Input) == 0 {
		b.Input = json.RawMessage("{}")
	}
	return marshalTagged("server_tool_use", plain(b))
}

func (b WebSearchToolResultBlock) MarshalJSON() ([]byte, error) {
	type plain WebSearchToolResultBlock
	return marshalTagged("web_search_tool_result", plain(b))
}

func (b UnknownBlock) MarshalJSON() ([]byte, error) {
	return marshalUnknown(b.Type, b.Raw)
}

var blockVariants = variantSet[ContentBlock]{
	union: "content block",
	known: map[string]func() ContentBlock{
		"text":                   func() ContentBlock { return &TextBlock{} },
		"thinking":               func() ContentBlock { return &ThinkingBlock{} },
		"redacted_thinking":      func() ContentBlock { return &RedactedThinkingBlock{} },
		"tool_use":               func() ContentBlock { return &ToolUseBlock{} },
		"server_tool_use":        func() ContentBlock { return &ServerToolUseBlock{} },
		"web_search_tool_result": func() ContentBlock { return &WebSearchToolResultBlock{} },
	},
	unknown: func(tag string, raw json.RawMessage) ContentBlock {
		return &UnknownBlock{Type: tag, Raw: raw}
	},
}

// DecodeContentBlock decodes a single response block.
func DecodeContentBlock(data []byte) (ContentBlock, error) {
	return blockVariants.decode(data)
}

// ContentBlocks is the content of a response message.
type ContentBlocks []ContentBlock

// UnmarshalJSON decodes each element by its discriminant.
func (c *ContentBlocks) UnmarshalJSON(data []byte) error {
	list, err := blockVariants.decodeList(data)
	if err != nil {
		return err
	}
	*c = list
	return nil
}

// WebSearchResult is one hit returned by the web search server tool.
type WebSearchResult struct {
	Type             string  `json:"type"`
	URL              string  `json:"url"`
	Title            string  `json:"title"`
	EncryptedContent string  `json:"encrypted_content,omitempty"`
	PageAge          *string `json:"page_age,omitempty"`
}

// WebSearchToolError is returned by the web search tool instead of results.
type WebSearchToolError struct {
	Type      string `json:"type"`
	ErrorCode string `json:"error_code"`
	Message   string `json:"message,omitempty"`
}

// WebSearchToolResultContent is either a list of results or an error.
// Decoding tries, in order: results (array), then error (object with
// error_code).
type WebSearchToolResultContent struct {
	Results []WebSearchResult
	Error   *WebSearchToolError
}

func (c WebSearchToolResultContent) MarshalJSON() ([]byte, error) {
	if c.Error != nil {
		return json.Marshal(c.Error)
	}
	if c.Results == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(c.Results)
}

func (c *WebSearchToolResultContent) UnmarshalJSON(data []byte) error {
	v, err := decodeUntagged("web search tool result content", data,
		candidate[WebSearchToolResultContent]{
			name:  "results",
			match: isArray,
			decode: into(func(r *[]WebSearchResult) WebSearchToolResultContent {
				return WebSearchToolResultContent{Results: *r}
			}),
		},
		candidate[WebSearchToolResultContent]{
			name:  "error",
			match: hasFields("error_code"),
			decode: into(func(e *WebSearchToolError) WebSearchToolResultContent {
				return WebSearchToolResultContent{Error: e}
			}),
		},
	)
	if err != nil {
		return err
	}
	*c = v
	return nil
}
