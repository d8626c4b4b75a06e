package anthropic

import (
	"fmt"
	"strings"

	"github.com/petal-labs/anthropic-go/core"
	"github.com/petal-labs/anthropic-go/internal/json"
)

type accState int

const (
	awaitingStart accState = iota
	receiving
	deltaReceived
	finished
)

// Accumulator folds the events of one stream into the final Message. It
// enforces event order:
//
//	message_start
//	(content_block_start(i) content_block_delta(i)* content_block_stop(i))*
//	message_delta*
//	message_stop
//
// where i is the position of the next block. Ping and unrecognized events
// are accepted anywhere. Anything else out of order is a
// *core.StreamProtocolError. An Accumulator is not safe for concurrent use.
type Accumulator struct {
	provider string
	state    accState
	msg      Message

	open     int
	text     strings.Builder
	sig      strings.Builder
	input    strings.Builder
	hasInput bool
}

// NewAccumulator returns an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{provider: "anthropic", open: -1}
}

// Done reports whether message_stop has been applied.
func (a *Accumulator) Done() bool {
	return a.state == finished
}

// Message returns the accumulated message. It fails unless message_stop has
// been applied.
func (a *Accumulator) Message() (*Message, error) {
	if a.state != finished {
		return nil, &core.StreamProtocolError{Reason: "stream ended before message_stop"}
	}
	msg := a.msg
	return &msg, nil
}

// Apply folds ev into the message.
func (a *Accumulator) Apply(ev StreamEvent) error {
	switch ev := ev.(type) {
	case *PingEvent, *UnrecognizedEvent:
		return nil
	case *ErrorEvent:
		return ev.apiError(a.provider)
	}

	if a.state == finished {
		return violation(ev, "event after message_stop")
	}
	if _, ok := ev.(*MessageStartEvent); !ok && a.state == awaitingStart {
		return violation(ev, "event before message_start")
	}

	switch ev := ev.(type) {
	case *MessageStartEvent:
		if a.state != awaitingStart {
			return violation(ev, "duplicate message_start")
		}
		a.msg = ev.Message
		a.msg.Content = append(ContentBlocks{}, ev.Message.Content...)
		a.state = receiving
		return nil

	case *ContentBlockStartEvent:
		if a.state == deltaReceived {
			return violation(ev, "content block after message_delta")
		}
		if a.open >= 0 {
			return violation(ev, fmt.Sprintf("block %d started while block %d is open", ev.Index, a.open))
		}
		if ev.Index != len(a.msg.Content) {
			return violation(ev, fmt.Sprintf("block %d started, expected %d", ev.Index, len(a.msg.Content)))
		}
		if ev.ContentBlock == nil {
			return violation(ev, "missing content block")
		}
		a.startBlock(cloneBlock(ev.ContentBlock))
		a.open = ev.Index
		return nil

	case *ContentBlockDeltaEvent:
		if a.open != ev.Index {
			return violation(ev, fmt.Sprintf("delta for block %d which is not open", ev.Index))
		}
		return a.applyDelta(ev)

	case *ContentBlockStopEvent:
		if a.open != ev.Index {
			return violation(ev, fmt.Sprintf("stop for block %d which is not open", ev.Index))
		}
		if err := a.finishBlock(); err != nil {
			return err
		}
		a.open = -1
		return nil

	case *MessageDeltaEvent:
		if a.open >= 0 {
			return violation(ev, fmt.Sprintf("block %d is still open", a.open))
		}
		a.msg.StopReason = ev.Delta.StopReason
		a.msg.StopSequence = ev.Delta.StopSequence
		u := ev.Usage
		a.msg.Usage.OutputTokens = u.OutputTokens
		if u.InputTokens != nil {
			a.msg.Usage.InputTokens = *u.InputTokens
		}
		if u.CacheCreationInputTokens != nil {
			a.msg.Usage.CacheCreationInputTokens = u.CacheCreationInputTokens
		}
		if u.CacheReadInputTokens != nil {
			a.msg.Usage.CacheReadInputTokens = u.CacheReadInputTokens
		}
		if u.ServerToolUse != nil {
			a.msg.Usage.ServerToolUse = u.ServerToolUse
		}
		a.state = deltaReceived
		return nil

	case *MessageStopEvent:
		if a.open >= 0 {
			return violation(ev, fmt.Sprintf("block %d is still open", a.open))
		}
		a.state = finished
		return nil
	}
	return violation(ev, fmt.Sprintf("unhandled event %T", ev))
}

func (a *Accumulator) startBlock(b ContentBlock) {
	a.text.Reset()
	a.sig.Reset()
	a.input.Reset()
	a.hasInput = false
	switch b := b.(type) {
	case *TextBlock:
		a.text.WriteString(b.Text)
	case *ThinkingBlock:
		a.text.WriteString(b.Thinking)
		a.sig.WriteString(b.Signature)
	}
	a.msg.Content = append(a.msg.Content, b)
}

func (a *Accumulator) applyDelta(ev *ContentBlockDeltaEvent) error {
	block := a.msg.Content[ev.Index]
	if _, ok := block.(*UnknownBlock); ok {
		return nil
	}
	switch d := ev.Delta.(type) {
	case *UnknownDelta:
		return nil
	case *TextDelta:
		if _, ok := block.(*TextBlock); ok {
			a.text.WriteString(d.Text)
			return nil
		}
	case *CitationsDelta:
		if t, ok := block.(*TextBlock); ok {
			t.Citations = append(t.Citations, d.Citation)
			return nil
		}
	case *InputJSONDelta:
		switch block.(type) {
		case *ToolUseBlock, *ServerToolUseBlock:
			a.input.WriteString(d.PartialJSON)
			a.hasInput = true
			return nil
		}
	case *ThinkingDelta:
		if _, ok := block.(*ThinkingBlock); ok {
			a.text.WriteString(d.Thinking)
			return nil
		}
	case *SignatureDelta:
		if _, ok := block.(*ThinkingBlock); ok {
			a.sig.WriteString(d.Signature)
			return nil
		}
	}
	return violation(ev, fmt.Sprintf("%s delta for %s block %d",
		ev.Delta.deltaType(), block.blockType(), ev.Index))
}

func (a *Accumulator) finishBlock() error {
	switch b := a.msg.Content[a.open].(type) {
	case *TextBlock:
		b.Text = a.text.String()
	case *ThinkingBlock:
		b.Thinking = a.text.String()
		b.Signature = a.sig.String()
	case *ToolUseBlock:
		input, err := a.toolInput(b.Input)
		if err != nil {
			return err
		}
		b.Input = input
	case *ServerToolUseBlock:
		input, err := a.toolInput(b.Input)
		if err != nil {
			return err
		}
		b.Input = input
	}
	return nil
}

// toolInput parses the concatenated input_json_delta fragments. A block that
// received no fragments keeps the input it started with.
func (a *Accumulator) toolInput(initial json.RawMessage) (json.RawMessage, error) {
	if !a.hasInput {
		if len(initial) == 0 {
			return json.RawMessage("{}"), nil
		}
		return initial, nil
	}
	raw := strings.TrimSpace(a.input.String())
	if raw == "" {
		return json.RawMessage("{}"), nil
	}
	if !json.Valid([]byte(raw)) {
		return nil, &core.SerializationError{
			Context: fmt.Sprintf("tool input of block %d", a.open),
			Err:     fmt.Errorf("invalid JSON %.64q", raw),
		}
	}
	return json.RawMessage(raw), nil
}

func cloneBlock(b ContentBlock) ContentBlock {
	switch b := b.(type) {
	case *TextBlock:
		c := *b
		c.Citations = append(Citations(nil), b.Citations...)
		return &c
	case *ThinkingBlock:
		c := *b
		return &c
	case *RedactedThinkingBlock:
		c := *b
		return &c
	case *ToolUseBlock:
		c := *b
		return &c
	case *ServerToolUseBlock:
		c := *b
		return &c
	case *WebSearchToolResultBlock:
		c := *b
		return &c
	case *UnknownBlock:
		c := *b
		return &c
	}
	return b
}

func violation(ev StreamEvent, reason string) error {
	return &core.StreamProtocolError{Event: ev.eventType(), Reason: reason}
}
