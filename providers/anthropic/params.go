package anthropic

import (
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/petal-labs/anthropic-go/internal/json"
)

// CacheControl marks a prompt caching breakpoint.
type CacheControl struct {
	Type string `json:"type"`
	TTL  string `json:"ttl,omitempty"`
}

// Ephemeral returns the standard cache breakpoint.
func Ephemeral() *CacheControl {
	return &CacheControl{Type: "ephemeral"}
}

// ContentBlockParam is one block of a request message. Variants:
// *TextBlockParam, *ImageBlockParam, *DocumentBlockParam, *ToolUseBlockParam,
// *ToolResultBlockParam, *ThinkingBlockParam, *RedactedThinkingBlockParam,
// *SearchResultBlockParam, *ServerToolUseBlockParam,
// *WebSearchToolResultBlockParam and *UnknownBlockParam.
type ContentBlockParam interface {
	paramType() string
}

// TextBlockParam is request text.
type TextBlockParam struct {
	Text         string           `json:"text"`
	Citations    Citations        `json:"citations,omitempty"`
	CacheControl *CacheControl    `json:"cache_control,omitempty"`
}

// ImageBlockParam is an image input.
type ImageBlockParam struct {
	Source       Source        `json:"source"`
	CacheControl *CacheControl `json:"cache_control,omitempty"`
}

// DocumentBlockParam is a document input (PDF, plain text or content blocks).
type DocumentBlockParam struct {
	Source       Source           `json:"source"`
	Title        string           `json:"title,omitempty"`
	Context      string           `json:"context,omitempty"`
	Citations    *CitationsConfig `json:"citations,omitempty"`
	CacheControl *CacheControl    `json:"cache_control,omitempty"`
}

// ToolUseBlockParam replays a tool call from an earlier assistant turn.
type ToolUseBlockParam struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Input        json.RawMessage `json:"input"`
	CacheControl *CacheControl   `json:"cache_control,omitempty"`
}

// ToolResultBlockParam answers a tool_use block.
type ToolResultBlockParam struct {
	ToolUseID    string            `json:"tool_use_id"`
	Content      ToolResultContent `json:"content"`
	IsError      bool              `json:"is_error,omitempty"`
	CacheControl *CacheControl     `json:"cache_control,omitempty"`
}

// ThinkingBlockParam replays a thinking block with its signature.
type ThinkingBlockParam struct {
	Thinking  string `json:"thinking"`
	Signature string `json:"signature"`
}

// RedactedThinkingBlockParam replays a redacted thinking block.
type RedactedThinkingBlockParam struct {
	Data string `json:"data"`
}

// SearchResultBlockParam supplies a search result the model can cite.
type SearchResultBlockParam struct {
	Source       string           `json:"source"`
	Title        string           `json:"title"`
	Content      []TextBlockParam `json:"content"`
	Citations    *CitationsConfig `json:"citations,omitempty"`
	CacheControl *CacheControl    `json:"cache_control,omitempty"`
}

// ServerToolUseBlockParam replays a server tool call.
type ServerToolUseBlockParam struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input"`
}

// WebSearchToolResultBlockParam replays a web search result.
type WebSearchToolResultBlockParam struct {
	ToolUseID string                     `json:"tool_use_id"`
	Content   WebSearchToolResultContent `json:"content"`
}

// UnknownBlockParam carries a block type this SDK does not know, such as a
// response block echoed back in a later turn.
type UnknownBlockParam struct {
	Type string
	Raw  json.RawMessage
}

func (*TextBlockParam) paramType() string                { return "text" }
func (*ImageBlockParam) paramType() string               { return "image" }
func (*DocumentBlockParam) paramType() string            { return "document" }
func (*ToolUseBlockParam) paramType() string             { return "tool_use" }
func (*ToolResultBlockParam) paramType() string          { return "tool_result" }
func (*ThinkingBlockParam) paramType() string            { return "thinking" }
func (*RedactedThinkingBlockParam) paramType() string    { return "redacted_thinking" }
func (*SearchResultBlockParam) paramType() string        { return "search_result" }
func (*ServerToolUseBlockParam) paramType() string       { return "server_tool_use" }
func (*WebSearchToolResultBlockParam) paramType() string { return "web_search_tool_result" }
func (b *UnknownBlockParam) paramType() string           { return b.Type }

func (b TextBlockParam) MarshalJSON() ([]byte, error) {
	type plain TextBlockParam
	return marshalTagged("text", plain(b))
}

func (b ImageBlockParam) MarshalJSON() ([]byte, error) {
	type plain ImageBlockParam
	return marshalTagged("image", plain(b))
}

func (b DocumentBlockParam) MarshalJSON() ([]byte, error) {
	type plain DocumentBlockParam
	return marshalTagged("document", plain(b))
}

func (b ToolUseBlockParam) MarshalJSON() ([]byte, error) {
	type plain ToolUseBlockParam
	if len(b.Input) == 0 {
		b.Input = json.RawMessage("{}")
	}
	return marshalTagged("tool_use", plain(b))
}

func (b ToolResultBlockParam) MarshalJSON() ([]byte, error) {
	type plain ToolResultBlockParam
	return marshalTagged("tool_result", plain(b))
}

func (b ThinkingBlockParam) MarshalJSON() ([]byte, error) {
	type plain ThinkingBlockParam
	return marshalTagged("thinking", plain(b))
}

func (b RedactedThinkingBlockParam) MarshalJSON() ([]byte, error) {
	type plain RedactedThinkingBlockParam
	return marshalTagged("redacted_thinking", plain(b))
}

func (b SearchResultBlockParam) MarshalJSON() ([]byte, error) {
	type plain SearchResultBlockParam
	return marshalTagged("search_result", plain(b))
}

func (b ServerToolUseBlockParam) MarshalJSON() ([]byte, error) {
	type plain ServerToolUseBlockParam
	if len(b.Input) == 0 {
		b.Input = json.RawMessage("{}")
	}
	return marshalTagged("server_tool_use", plain(b))
}

func (b WebSearchToolResultBlockParam) MarshalJSON() ([]byte, error) {
	type plain WebSearchToolResultBlockParam
	return marshalTagged("web_search_tool_result", plain(b))
}

func (b UnknownBlockParam) MarshalJSON() ([]byte, error) {
	return marshalUnknown(b.Type, b.Raw)
}

var paramVariants = variantSet[ContentBlockParam]{
	union: "content block param",
	known: map[string]func() ContentBlockParam{
		"text":                   func() ContentBlockParam { return &TextBlockParam{} },
		"image":                  func() ContentBlockParam { return &ImageBlockParam{} },
		"document":               func() ContentBlockParam { return &DocumentBlockParam{} },
		"tool_use":               func() ContentBlockParam { return &ToolUseBlockParam{} },
		"tool_result":            func() ContentBlockParam { return &ToolResultBlockParam{} },
		"thinking":               func() ContentBlockParam { return &ThinkingBlockParam{} },
		"redacted_thinking":      func() ContentBlockParam { return &RedactedThinkingBlockParam{} },
		"search_result":          func() ContentBlockParam { return &SearchResultBlockParam{} },
		"server_tool_use":        func() ContentBlockParam { return &ServerToolUseBlockParam{} },
		"web_search_tool_result": func() ContentBlockParam { return &WebSearchToolResultBlockParam{} },
	},
	unknown: func(tag string, raw json.RawMessage) ContentBlockParam {
		return &UnknownBlockParam{Type: tag, Raw: raw}
	},
}

// ContentBlockParams is a list of request blocks.
type ContentBlockParams []ContentBlockParam

// UnmarshalJSON decodes each element by its discriminant.
func (c *ContentBlockParams) UnmarshalJSON(data []byte) error {
	list, err := paramVariants.decodeList(data)
	if err != nil {
		return err
	}
	*c = list
	return nil
}

// Text returns a text block.
func Text(s string) *TextBlockParam {
	return &TextBlockParam{Text: s}
}

// ToolResult returns a tool_result block carrying plain text.
func ToolResult(toolUseID, content string, isError bool) *ToolResultBlockParam {
	return &ToolResultBlockParam{
		ToolUseID: toolUseID,
		Content:   ToolResultContent{Text: content},
		IsError:   isError,
	}
}

// ToParam converts a response block into the block that echoes it in a
// later request. Unknown blocks carry their original bytes across.
func ToParam(b ContentBlock) ContentBlockParam {
	switch b := b.(type) {
	case *TextBlock:
		return &TextBlockParam{Text: b.Text, Citations: b.Citations}
	case *ThinkingBlock:
		return &ThinkingBlockParam{Thinking: b.Thinking, Signature: b.Signature}
	case *RedactedThinkingBlock:
		return &RedactedThinkingBlockParam{Data: b.Data}
	case *ToolUseBlock:
		return &ToolUseBlockParam{ID: b.ID, Name: b.Name, Input: b.Input}
	case *ServerToolUseBlock:
		return &ServerToolUseBlockParam{ID: b.ID, Name: b.Name, Input: b.Input}
	case *WebSearchToolResultBlock:
		return &WebSearchToolResultBlockParam{ToolUseID: b.ToolUseID, Content: b.Content}
	case *UnknownBlock:
		return &UnknownBlockParam{Type: b.Type, Raw: b.Raw}
	}
	panic(fmt.Sprintf("anthropic: unhandled content block %T", b))
}

// Source is where an image or document comes from. Variants:
// *Base64Source, *PlainTextSource, *URLSource, *FileSource,
// *ContentSource and *UnknownSource.
type Source interface {
	sourceType() string
}

// Base64Source is inline base64 data with its media type.
type Base64Source struct {
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type PlainTextSource struct {
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

// URLSource points at a publicly reachable URL.
type URLSource struct {
	URL string `json:"url"`
}

// FileSource refers to a file uploaded through the Files API.
type FileSource struct {
	FileID string `json:"file_id"`
}

type ContentSource struct {
	Content []TextBlockParam `json:"content"`
}

// UnknownSource holds a source type this SDK does not know.
type UnknownSource struct {
	Type string
	Raw  json.RawMessage
}

func (*Base64Source) sourceType() string    { return "base64" }
func (*PlainTextSource) sourceType() string { return "text" }
func (*URLSource) sourceType() string       { return "url" }
func (*FileSource) sourceType() string      { return "file" }
func (*ContentSource) sourceType() string   { return "content" }
func (s *UnknownSource) sourceType() string { return s.Type }

func (s Base64Source) MarshalJSON() ([]byte, error) {
	type plain Base64Source
	return marshalTagged("base64", plain(s))
}

func (s PlainTextSource) MarshalJSON() ([]byte, error) {
	type plain PlainTextSource
	return marshalTagged("text", plain(s))
}

func (s URLSource) MarshalJSON() ([]byte, error) {
	type plain URLSource
	return marshalTagged("url", plain(s))
}

func (s FileSource) MarshalJSON() ([]byte, error) {
	type plain FileSource
	return marshalTagged("file", plain(s))
}

func (s ContentSource) MarshalJSON() ([]byte, error) {
	type plain ContentSource
	return marshalTagged("content", plain(s))
}

func (s UnknownSource) MarshalJSON() ([]byte, error) {
	return marshalUnknown(s.Type, s.Raw)
}

var sourceVariants = variantSet[Source]{
	union: "source",
	known: map[string]func() Source{
		"base64":  func() Source { return &Base64Source{} },
		"text":    func() Source { return &PlainTextSource{} },
		"url":     func() Source { return &URLSource{} },
		"file":    func() Source { return &FileSource{} },
		"content": func() Source { return &ContentSource{} },
	},
	unknown: func(tag string, raw json.RawMessage) Source {
		return &UnknownSource{Type: tag, Raw: raw}
	},
}

func (b *ImageBlockParam) UnmarshalJSON(data []byte) error {
	type plain ImageBlockParam
	var aux struct {
		plain
		Source json.RawMessage `json:"source"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	src, err := sourceVariants.decode(aux.Source)
	if err != nil {
		return err
	}
	*b = ImageBlockParam(aux.plain)
	b.Source = src
	return nil
}

func (b *DocumentBlockParam) UnmarshalJSON(data []byte) error {
	type plain DocumentBlockParam
	var aux struct {
		plain
		Source json.RawMessage `json:"source"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	src, err := sourceVariants.decode(aux.Source)
	if err != nil {
		return err
	}
	*b = DocumentBlockParam(aux.plain)
	b.Source = src
	return nil
}

// ToolResultContent is the content of a tool_result block: plain text or a
// list of blocks. Decoding tries, in order: string, then block list.
type ToolResultContent struct {
	Text   string
	Blocks []ContentBlockParam
}

func (c ToolResultContent) MarshalJSON() ([]byte, error) {
	if c.Blocks != nil {
		return json.Marshal(c.Blocks)
	}
	return json.Marshal(c.Text)
}

func (c *ToolResultContent) UnmarshalJSON(data []byte) error {
	v, err := decodeUntagged("tool result content", data,
		candidate[ToolResultContent]{
			name:   "text",
			match:  isString,
			decode: into(func(s *string) ToolResultContent { return ToolResultContent{Text: *s} }),
		},
		candidate[ToolResultContent]{
			name:  "blocks",
			match: isArray,
			decode: func(data []byte) (ToolResultContent, error) {
				blocks, err := paramVariants.decodeList(data)
				return ToolResultContent{Blocks: blocks}, err
			},
		},
	)
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// MessageContent is the content of a request message: a plain string or a
// list of blocks. Decoding tries, in order: string, then block list.
type MessageContent struct {
	Text   string
	Blocks []ContentBlockParam
}

func (c MessageContent) MarshalJSON() ([]byte, error) {
	if c.Blocks != nil {
		return json.Marshal(c.Blocks)
	}
	return json.Marshal(c.Text)
}

func (c *MessageContent) UnmarshalJSON(data []byte) error {
	v, err := decodeUntagged("message content", data,
		candidate[MessageContent]{
			name:   "text",
			match:  isString,
			decode: into(func(s *string) MessageContent { return MessageContent{Text: *s} }),
		},
		candidate[MessageContent]{
			name:  "blocks",
			match: isArray,
			decode: func(data []byte) (MessageContent, error) {
				blocks, err := paramVariants.decodeList(data)
				return MessageContent{Blocks: blocks}, err
			},
		},
	)
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// SystemPrompt is the system instruction: a plain string or a list of text
// blocks (needed for cache breakpoints). Decoding tries, in order: string,
// then text block list.
type SystemPrompt struct {
	Text   string
	Blocks []TextBlockParam
}

// IsZero reports whether no system prompt is set.
func (s SystemPrompt) IsZero() bool {
	return s.Text == "" && s.Blocks == nil
}

func (s SystemPrompt) MarshalJSON() ([]byte, error) {
	if s.Blocks != nil {
		return json.Marshal(s.Blocks)
	}
	return json.Marshal(s.Text)
}

func (s *SystemPrompt) UnmarshalJSON(data []byte) error {
	v, err := decodeUntagged("system prompt", data,
		candidate[SystemPrompt]{
			name:   "text",
			match:  isString,
			decode: into(func(str *string) SystemPrompt { return SystemPrompt{Text: *str} }),
		},
		candidate[SystemPrompt]{
			name: "text blocks",
			match: func(v gjson.Result) bool {
				if !v.IsArray() {
					return false
				}
				ok := true
				v.ForEach(func(_, el gjson.Result) bool {
					ok = el.Get("type").Str == "text"
					return ok
				})
				return ok
			},
			decode: into(func(b *[]TextBlockParam) SystemPrompt { return SystemPrompt{Blocks: *b} }),
		},
	)
	if err != nil {
		return err
	}
	*s = v
	return nil
}
