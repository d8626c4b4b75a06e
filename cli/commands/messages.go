package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/petal-labs/anthropic-go/providers/anthropic"
)

// DefaultMaxTokens is used when neither --max-tokens nor --params sets one.
const DefaultMaxTokens = 1024

type messageFlags struct {
	system      string
	maxTokens   int
	temperature float64
	params      string
	betas       []string
}

func (a *App) newMessagesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "messages",
		Aliases: []string{"msg"},
		Short:   "Send messages and count tokens",
	}
	cmd.AddCommand(a.newMessagesCreateCommand())
	cmd.AddCommand(a.newCountTokensCommand())
	return cmd
}

func (a *App) newMessagesCreateCommand() *cobra.Command {
	var f messageFlags
	var stream bool

	cmd := &cobra.Command{
		Use:   "create [prompt]",
		Short: "Send a single-turn message",
		Long: `Send a message and print the reply.

The prompt is read from the arguments, or from stdin when none are given.
--params loads a full request body (JSON with comments allowed); flags
given explicitly override its fields.`,
		Example: `  anthropic messages create "Write a haiku about Go"
  echo "Summarize this" | anthropic messages create --stream
  anthropic messages create --params request.jsonc --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := a.buildParams(cmd, args, f)
			if err != nil {
				return err
			}
			if stream {
				return a.streamMessage(cmd, params)
			}
			return a.createMessage(cmd, params)
		},
	}

	a.addMessageFlags(cmd, &f)
	cmd.Flags().IntVar(&f.maxTokens, "max-tokens", DefaultMaxTokens, "maximum tokens to generate")
	cmd.Flags().Float64Var(&f.temperature, "temperature", 1, "sampling temperature")
	cmd.Flags().BoolVarP(&stream, "stream", "s", false, "stream the reply as it is generated")
	return cmd
}

func (a *App) newCountTokensCommand() *cobra.Command {
	var f messageFlags

	cmd := &cobra.Command{
		Use:   "count-tokens [prompt]",
		Short: "Count the input tokens of a message",
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := a.buildParams(cmd, args, f)
			if err != nil {
				return err
			}
			c, err := a.client(cmd.Context())
			if err != nil {
				return err
			}
			count, err := c.Messages.CountTokens(cmd.Context(), anthropic.CountTokensParams{
				Model:      params.Model,
				Messages:   params.Messages,
				System:     params.System,
				Tools:      params.Tools,
				ToolChoice: params.ToolChoice,
				Thinking:   params.Thinking,
				Betas:      params.Betas,
			})
			if err != nil {
				return err
			}
			if a.jsonOutput {
				return a.printJSON(count)
			}
			fmt.Fprintln(a.stdout, count.InputTokens)
			return nil
		},
	}

	a.addMessageFlags(cmd, &f)
	return cmd
}

func (a *App) addMessageFlags(cmd *cobra.Command, f *messageFlags) {
	cmd.Flags().StringVar(&f.system, "system", "", "system prompt")
	cmd.Flags().StringVar(&f.params, "params", "", "request body file (JSON, comments allowed)")
	cmd.Flags().StringSliceVar(&f.betas, "beta", nil, "beta feature to enable (repeatable)")
}

// buildParams merges --params, the prompt and explicit flags.
func (a *App) buildParams(cmd *cobra.Command, args []string, f messageFlags) (anthropic.MessageCreateParams, error) {
	var params anthropic.MessageCreateParams
	if f.params != "" {
		if err := readJSONC(f.params, &params); err != nil {
			return params, err
		}
	}

	if len(args) > 0 || len(params.Messages) == 0 {
		prompt, err := a.readInput(args)
		if err != nil {
			return params, err
		}
		params.Messages = append(params.Messages, anthropic.UserText(prompt))
	}

	_, p := a.activeProfile()
	if a.model != "" || params.Model == "" {
		params.Model = a.resolveModel(p)
	}

	flags := cmd.Flags()
	if flags.Changed("max-tokens") || params.MaxTokens == 0 {
		params.MaxTokens = f.maxTokens
	}
	if flags.Changed("temperature") {
		t := f.temperature
		params.Temperature = &t
	}
	if flags.Changed("system") {
		params.System = &anthropic.SystemPrompt{Text: f.system}
	}
	params.Betas = append(params.Betas, f.betas...)

	if params.MaxTokens <= 0 && cmd.Name() == "create" {
		return params, usageErrorf("--max-tokens must be positive")
	}
	return params, nil
}

func (a *App) createMessage(cmd *cobra.Command, params anthropic.MessageCreateParams) error {
	c, err := a.client(cmd.Context())
	if err != nil {
		return err
	}
	msg, err := c.Messages.Create(cmd.Context(), params)
	if err != nil {
		return err
	}
	if a.jsonOutput {
		return a.printJSON(msg)
	}
	fmt.Fprintln(a.stdout, msg.Text())
	a.logUsage(msg)
	return nil
}

// streamMessage prints text deltas as they arrive, or every event as a
// JSON line with --json.
func (a *App) streamMessage(cmd *cobra.Command, params anthropic.MessageCreateParams) error {
	c, err := a.client(cmd.Context())
	if err != nil {
		return err
	}
	stream, err := c.Messages.Stream(cmd.Context(), params)
	if err != nil {
		return err
	}

	msg, err := stream.Accumulate(func(ev anthropic.StreamEvent) error {
		if a.jsonOutput {
			return a.printLine(ev)
		}
		d, ok := ev.(*anthropic.ContentBlockDeltaEvent)
		if !ok {
			return nil
		}
		if t, ok := d.Delta.(*anthropic.TextDelta); ok {
			_, err := fmt.Fprint(a.stdout, t.Text)
			return err
		}
		return nil
	})
	if !a.jsonOutput {
		fmt.Fprintln(a.stdout)
	}
	if err != nil {
		return err
	}
	a.logUsage(msg)
	return nil
}

func (a *App) logUsage(msg *anthropic.Message) {
	stop := ""
	if msg.StopReason != nil {
		stop = string(*msg.StopReason)
	}
	a.logger.Debug("message complete",
		"id", msg.ID,
		"model", msg.Model,
		"stop_reason", stop,
		"input_tokens", msg.Usage.InputTokens,
		"output_tokens", msg.Usage.OutputTokens,
	)
}
