package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/petal-labs/anthropic-go/core"
	"github.com/petal-labs/anthropic-go/internal/json"
	"github.com/petal-labs/anthropic-go/providers/anthropic"
)

// DefaultMaxTurns bounds the number of model calls a Runner makes.
const DefaultMaxTurns = 10

// ErrMaxTurns is returned when the model still asks for tools after the last
// allowed turn. The accompanying result holds the conversation so far.
var ErrMaxTurns = errors.New("tool loop reached max turns")

// MessageCreator creates messages. *anthropic.MessageService satisfies it.
type MessageCreator interface {
	Create(ctx context.Context, params anthropic.MessageCreateParams, opts ...core.RequestOption) (*anthropic.Message, error)
}

// Runner answers tool_use blocks with the tools of a Registry until the model
// stops asking for them.
type Runner struct {
	messages    MessageCreator
	registry    *Registry
	maxTurns    int
	parallelism int
	middleware  []Middleware
	logger      *slog.Logger
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithMaxTurns bounds the number of model calls per Run.
func WithMaxTurns(n int) RunnerOption {
	return func(r *Runner) {
		if n > 0 {
			r.maxTurns = n
		}
	}
}

// WithParallelism bounds how many tool calls of one turn run concurrently.
func WithParallelism(n int) RunnerOption {
	return func(r *Runner) {
		if n > 0 {
			r.parallelism = n
		}
	}
}

// WithToolMiddleware wraps every tool call made by the runner.
func WithToolMiddleware(mws ...Middleware) RunnerOption {
	return func(r *Runner) {
		r.middleware = append(r.middleware, mws...)
	}
}

// WithRunnerLogger sets the runner's logger.
func WithRunnerLogger(l *slog.Logger) RunnerOption {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRunner returns a Runner that calls messages and executes tools from
// registry.
func NewRunner(messages MessageCreator, registry *Registry, opts ...RunnerOption) *Runner {
	r := &Runner{
		messages:    messages,
		registry:    registry,
		maxTurns:    DefaultMaxTurns,
		parallelism: 4,
		logger:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RunResult is the outcome of a tool loop.
type RunResult struct {
	// Message is the last model response.
	Message *anthropic.Message

	// Messages is the full conversation, including the final response.
	Messages []anthropic.MessageParam

	// Turns is the number of model calls made.
	Turns int
}

// Run sends params and keeps answering tool_use blocks until the stop reason
// is not tool_use. When params carries no tools, the registry's definitions
// are offered. The caller's params are not modified.
func (r *Runner) Run(ctx context.Context, params anthropic.MessageCreateParams, opts ...core.RequestOption) (*RunResult, error) {
	if len(params.Tools) == 0 {
		params.Tools = r.registry.Definitions()
	}
	params.Messages = slices.Clone(params.Messages)
	res := &RunResult{}

	for res.Turns < r.maxTurns {
		res.Turns++
		msg, err := r.messages.Create(ctx, params, opts...)
		if err != nil {
			return res, err
		}
		res.Message = msg
		params.Messages = append(params.Messages, msg.ToParam())

		uses := msg.ToolUses()
		if msg.StopReason == nil || *msg.StopReason != anthropic.StopReasonToolUse || len(uses) == 0 {
			res.Messages = params.Messages
			return res, nil
		}

		results, err := r.execute(ctx, res.Turns, uses)
		if err != nil {
			res.Messages = params.Messages
			return res, err
		}
		params.Messages = append(params.Messages, anthropic.UserMessage(results...))
	}

	res.Messages = params.Messages
	return res, fmt.Errorf("%w (%d)", ErrMaxTurns, r.maxTurns)
}

// execute runs every tool call of a turn and returns the tool_result blocks
// in the order of uses. Tool failures become is_error results; only context
// cancellation fails the turn.
func (r *Runner) execute(ctx context.Context, turn int, uses []*anthropic.ToolUseBlock) ([]anthropic.ContentBlockParam, error) {
	results := make([]anthropic.ContentBlockParam, len(uses))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.parallelism)

	for i, use := range uses {
		g.Go(func() error {
			content, err := r.call(gctx, turn, use)
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if err != nil {
				r.logger.WarnContext(ctx, "tool call failed",
					"tool", use.Name,
					"call_id", use.ID,
					"error", err,
				)
				results[i] = anthropic.ToolResult(use.ID, err.Error(), true)
				return nil
			}
			results[i] = anthropic.ToolResult(use.ID, content, false)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (r *Runner) call(ctx context.Context, turn int, use *anthropic.ToolUseBlock) (string, error) {
	tool, ok := r.registry.Get(use.Name)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrToolNotFound, use.Name)
	}
	ctx = ContextWithToolContext(ctx, &ToolContext{
		ToolName: use.Name,
		CallID:   use.ID,
		Turn:     turn,
		Schema:   tool.Schema().JSONSchema,
		Metadata: make(map[string]any),
	})

	args := use.Input
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}
	out, err := Chain(r.middleware...)(tool.Call)(ctx, args)
	if err != nil {
		return "", err
	}
	return FormatResult(out)
}

// FormatResult renders a tool's return value as tool_result text. Strings
// are used as is; everything else is encoded as JSON.
func FormatResult(v any) (string, error) {
	switch v := v.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case fmt.Stringer:
		return v.String(), nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode tool result: %w", err)
	}
	return string(b), nil
}
