package anthropic

import "github.com/petal-labs/anthropic-go/internal/json"

// Role is the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// StopReason explains why generation stopped. Values the SDK does not know
// decode and encode untouched.
type StopReason string

const (
	StopReasonEndTurn      StopReason = "end_turn"
	StopReasonMaxTokens    StopReason = "max_tokens"
	StopReasonStopSequence StopReason = "stop_sequence"
	StopReasonToolUse      StopReason = "tool_use"
	StopReasonRefusal      StopReason = "refusal"
	StopReasonPauseTurn    StopReason = "pause_turn"
)

// IsKnown reports whether r is one of the named stop reasons.
func (r StopReason) IsKnown() bool {
	switch r {
	case StopReasonEndTurn, StopReasonMaxTokens, StopReasonStopSequence,
		StopReasonToolUse, StopReasonRefusal, StopReasonPauseTurn:
		return true
	}
	return false
}

// Message is a model response.
type Message struct {
	ID           string        `json:"id"`
	Type         string        `json:"type"`
	Role         Role          `json:"role"`
	Content      ContentBlocks `json:"content"`
	Model        Model         `json:"model"`
	StopReason   *StopReason   `json:"stop_reason"`
	StopSequence *string       `json:"stop_sequence"`
	Usage        Usage         `json:"usage"`
}

// Text concatenates the text blocks of the message.
func (m *Message) Text() string {
	var n int
	for _, b := range m.Content {
		if t, ok := b.(*TextBlock); ok {
			n += len(t.Text)
		}
	}
	buf := make([]byte, 0, n)
	for _, b := range m.Content {
		if t, ok := b.(*TextBlock); ok {
			buf = append(buf, t.Text...)
		}
	}
	return string(buf)
}

// ToolUses returns the tool_use blocks of the message in order.
func (m *Message) ToolUses() []*ToolUseBlock {
	var out []*ToolUseBlock
	for _, b := range m.Content {
		if t, ok := b.(*ToolUseBlock); ok {
			out = append(out, t)
		}
	}
	return out
}

// ToParam turns the response into a message that can be sent back as
// conversation history.
func (m *Message) ToParam() MessageParam {
	blocks := make([]ContentBlockParam, 0, len(m.Content))
	for _, b := range m.Content {
		blocks = append(blocks, ToParam(b))
	}
	return MessageParam{Role: m.Role, Content: MessageContent{Blocks: blocks}}
}

// Usage is the token accounting of a message.
type Usage struct {
	InputTokens              int              `json:"input_tokens"`
	OutputTokens             int              `json:"output_tokens"`
	CacheCreationInputTokens *int             `json:"cache_creation_input_tokens,omitempty"`
	CacheReadInputTokens     *int             `json:"cache_read_input_tokens,omitempty"`
	ServerToolUse            *ServerToolUsage `json:"server_tool_use,omitempty"`
}

// ServerToolUsage counts server tool requests billed to a message.
type ServerToolUsage struct {
	WebSearchRequests int `json:"web_search_requests"`
}

// MessageDeltaUsage is the cumulative usage carried by a message_delta
// event. Fields the server omits are left nil.
type MessageDeltaUsage struct {
	OutputTokens             int              `json:"output_tokens"`
	InputTokens              *int             `json:"input_tokens,omitempty"`
	CacheCreationInputTokens *int             `json:"cache_creation_input_tokens,omitempty"`
	CacheReadInputTokens     *int             `json:"cache_read_input_tokens,omitempty"`
	ServerToolUse            *ServerToolUsage `json:"server_tool_use,omitempty"`
}

// MessageParam is one turn of the conversation sent to the API.
type MessageParam struct {
	Role    Role           `json:"role"`
	Content MessageContent `json:"content"`
}

// UserMessage returns a user turn with the given blocks.
func UserMessage(blocks ...ContentBlockParam) MessageParam {
	return MessageParam{Role: RoleUser, Content: MessageContent{Blocks: blocks}}
}

// UserText returns a user turn with plain text content.
func UserText(text string) MessageParam {
	return MessageParam{Role: RoleUser, Content: MessageContent{Text: text}}
}

// AssistantText returns an assistant turn with plain text content.
func AssistantText(text string) MessageParam {
	return MessageParam{Role: RoleAssistant, Content: MessageContent{Text: text}}
}

// ThinkingConfig controls extended thinking. Variants: *ThinkingEnabled,
// *ThinkingDisabled, *ThinkingAdaptive and *UnknownThinkingConfig.
type ThinkingConfig interface {
	thinkingType() string
}

// ThinkingEnabled turns on extended thinking with a token budget.
type ThinkingEnabled struct {
	BudgetTokens int `json:"budget_tokens"`
}

type ThinkingDisabled struct{}

type ThinkingAdaptive struct{}

// UnknownThinkingConfig holds a thinking config type this SDK does not know.
type UnknownThinkingConfig struct {
	Type string
	Raw  json.RawMessage
}

func (*ThinkingEnabled) thinkingType() string         { return "enabled" }
func (*ThinkingDisabled) thinkingType() string        { return "disabled" }
func (*ThinkingAdaptive) thinkingType() string        { return "adaptive" }
func (c *UnknownThinkingConfig) thinkingType() string { return c.Type }

func (c ThinkingEnabled) MarshalJSON() ([]byte, error) {
	type plain ThinkingEnabled
	return marshalTagged("enabled", plain(c))
}

func (ThinkingDisabled) MarshalJSON() ([]byte, error) {
	return marshalTagged("disabled", struct{}{})
}

func (ThinkingAdaptive) MarshalJSON() ([]byte, error) {
	return marshalTagged("adaptive", struct{}{})
}

func (c UnknownThinkingConfig) MarshalJSON() ([]byte, error) {
	return marshalUnknown(c.Type, c.Raw)
}

var thinkingVariants = variantSet[ThinkingConfig]{
	union: "thinking config",
	known: map[string]func() ThinkingConfig{
		"enabled":  func() ThinkingConfig { return &ThinkingEnabled{} },
		"disabled": func() ThinkingConfig { return &ThinkingDisabled{} },
		"adaptive": func() ThinkingConfig { return &ThinkingAdaptive{} },
	},
	unknown: func(tag string, raw json.RawMessage) ThinkingConfig {
		return &UnknownThinkingConfig{Type: tag, Raw: raw}
	},
}

// ToolChoice controls how the model picks tools. Variants: *ToolChoiceAuto,
// *ToolChoiceAny, *ToolChoiceTool, *ToolChoiceNone and *UnknownToolChoice.
type ToolChoice interface {
	toolChoiceType() string
}

// ToolChoiceAuto lets the model decide whether to use tools.
type ToolChoiceAuto struct {
	DisableParallelToolUse bool `json:"disable_parallel_tool_use,omitempty"`
}

// ToolChoiceAny requires some tool.
type ToolChoiceAny struct {
	DisableParallelToolUse bool `json:"disable_parallel_tool_use,omitempty"`
}

// ToolChoiceTool requires the named tool.
type ToolChoiceTool struct {
	Name                   string `json:"name"`
	DisableParallelToolUse bool   `json:"disable_parallel_tool_use,omitempty"`
}

// ToolChoiceNone forbids tool use.
type ToolChoiceNone struct{}

// UnknownToolChoice holds a tool choice type this SDK does not know.
type UnknownToolChoice struct {
	Type string
	Raw  json.RawMessage
}

func (*ToolChoiceAuto) toolChoiceType() string      { return "auto" }
func (*ToolChoiceAny) toolChoiceType() string       { return "any" }
func (*ToolChoiceTool) toolChoiceType() string      { return "tool" }
func (*ToolChoiceNone) toolChoiceType() string      { return "none" }
func (c *UnknownToolChoice) toolChoiceType() string { return c.Type }

func (c ToolChoiceAuto) MarshalJSON() ([]byte, error) {
	type plain ToolChoiceAuto
	return marshalTagged("auto", plain(c))
}

func (c ToolChoiceAny) MarshalJSON() ([]byte, error) {
	type plain ToolChoiceAny
	return marshalTagged("any", plain(c))
}

func (c ToolChoiceTool) MarshalJSON() ([]byte, error) {
	type plain ToolChoiceTool
	return marshalTagged("tool", plain(c))
}

func (ToolChoiceNone) MarshalJSON() ([]byte, error) {
	return marshalTagged("none", struct{}{})
}

func (c UnknownToolChoice) MarshalJSON() ([]byte, error) {
	return marshalUnknown(c.Type, c.Raw)
}

var toolChoiceVariants = variantSet[ToolChoice]{
	union: "tool choice",
	known: map[string]func() ToolChoice{
		"auto": func() ToolChoice { return &ToolChoiceAuto{} },
		"any":  func() ToolChoice { return &ToolChoiceAny{} },
		"tool": func() ToolChoice { return &ToolChoiceTool{} },
		"none": func() ToolChoice { return &ToolChoiceNone{} },
	},
	unknown: func(tag string, raw json.RawMessage) ToolChoice {
		return &UnknownToolChoice{Type: tag, Raw: raw}
	},
}

// Metadata describes the request for abuse detection.
type Metadata struct {
	UserID string `json:"user_id,omitempty"`
}

// ServiceTier selects priority or standard capacity.
type ServiceTier string

const (
	ServiceTierAuto         ServiceTier = "auto"
	ServiceTierStandardOnly ServiceTier = "standard_only"
)

// OutputConfig constrains the response format.
type OutputConfig struct {
	Format *OutputFormat `json:"format,omitempty"`
	Effort string        `json:"effort,omitempty"`
}

type OutputFormat struct {
	Type   string          `json:"type"`
	Schema json.RawMessage `json:"schema,omitempty"`
}

// MessageCreateParams is the body of a messages request.
type MessageCreateParams struct {
	Model         Model            `json:"model"`
	MaxTokens     int              `json:"max_tokens"`
	Messages      []MessageParam   `json:"messages"`
	System        *SystemPrompt    `json:"system,omitempty"`
	Temperature   *float64         `json:"temperature,omitempty"`
	TopP          *float64         `json:"top_p,omitempty"`
	TopK          *int             `json:"top_k,omitempty"`
	StopSequences []string         `json:"stop_sequences,omitempty"`
	Metadata      *Metadata        `json:"metadata,omitempty"`
	Thinking      ThinkingConfig   `json:"thinking,omitempty"`
	ToolChoice    ToolChoice       `json:"tool_choice,omitempty"`
	Tools         []ToolDefinition `json:"tools,omitempty"`
	ServiceTier   ServiceTier      `json:"service_tier,omitempty"`
	OutputConfig  *OutputConfig    `json:"output_config,omitempty"`

	// Betas are sent in the anthropic-beta header, not in the body.
	Betas []string `json:"-"`
}

// UnmarshalJSON decodes the union-typed fields through their variant sets.
func (p *MessageCreateParams) UnmarshalJSON(data []byte) error {
	type plain MessageCreateParams
	var aux struct {
		plain
		Thinking   json.RawMessage `json:"thinking"`
		ToolChoice json.RawMessage `json:"tool_choice"`
		Tools      ToolDefinitions `json:"tools"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*p = MessageCreateParams(aux.plain)
	p.Tools = aux.Tools
	var err error
	if p.Thinking, err = decodeOptional(thinkingVariants, aux.Thinking); err != nil {
		return err
	}
	if p.ToolChoice, err = decodeOptional(toolChoiceVariants, aux.ToolChoice); err != nil {
		return err
	}
	return nil
}

// CountTokensParams is the body of a count_tokens request.
type CountTokensParams struct {
	Model      Model            `json:"model"`
	Messages   []MessageParam   `json:"messages"`
	System     *SystemPrompt    `json:"system,omitempty"`
	Tools      []ToolDefinition `json:"tools,omitempty"`
	ToolChoice ToolChoice       `json:"tool_choice,omitempty"`
	Thinking   ThinkingConfig   `json:"thinking,omitempty"`

	Betas []string `json:"-"`
}

// TokenCount is the result of counting tokens.
type TokenCount struct {
	InputTokens int `json:"input_tokens"`
}

func decodeOptional[T any](s variantSet[T], raw json.RawMessage) (T, error) {
	var zero T
	if len(raw) == 0 || string(raw) == "null" {
		return zero, nil
	}
	return s.decode(raw)
}
