package commands

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/petal-labs/anthropic-go/core"
	"github.com/petal-labs/anthropic-go/internal/json"
	"github.com/petal-labs/anthropic-go/providers/anthropic"
)

func (a *App) newBatchesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batches",
		Short: "Create and manage message batches",
	}
	cmd.AddCommand(a.newBatchesCreateCommand())
	cmd.AddCommand(a.newBatchesListCommand())
	cmd.AddCommand(a.batchCommand("get <batch-id>", "Show a batch", func(c *anthropic.Client, cmd *cobra.Command, id string) (any, error) {
		return c.Batches.Get(cmd.Context(), id)
	}))
	cmd.AddCommand(a.batchCommand("cancel <batch-id>", "Cancel a batch that is still processing", func(c *anthropic.Client, cmd *cobra.Command, id string) (any, error) {
		return c.Batches.Cancel(cmd.Context(), id)
	}))
	cmd.AddCommand(a.batchCommand("delete <batch-id>", "Delete an ended batch", func(c *anthropic.Client, cmd *cobra.Command, id string) (any, error) {
		return c.Batches.Delete(cmd.Context(), id)
	}))
	cmd.AddCommand(a.newBatchesResultsCommand())
	return cmd
}

// batchLine is one line of a batch input file. Either params or prompt is
// set; custom_id defaults to a random UUID.
type batchLine struct {
	CustomID string                         `json:"custom_id"`
	Params   *anthropic.MessageCreateParams `json:"params"`
	Prompt   string                         `json:"prompt"`
}

func (a *App) newBatchesCreateCommand() *cobra.Command {
	var file string
	var maxTokens int

	cmd := &cobra.Command{
		Use:   "create --file requests.jsonl",
		Short: "Create a batch from a JSONL file",
		Long: `Create a batch from a JSONL file. Each line is either a full request

  {"custom_id": "q1", "params": {"model": "...", "max_tokens": 256, "messages": [...]}}

or a bare prompt

  {"custom_id": "q2", "prompt": "What is 2+2?"}

Missing custom ids are generated, and missing models and token limits are
taken from the active profile and --max-tokens.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, p := a.activeProfile()
			model := a.resolveModel(p)

			var reqs []anthropic.BatchRequest
			seen := make(map[string]int)
			err := readLines(file, func(n int, raw []byte) error {
				var line batchLine
				if err := json.Unmarshal(raw, &line); err != nil {
					return usageErrorf("%s:%d: %v", file, n, err)
				}
				req, err := line.request(model, maxTokens)
				if err != nil {
					return usageErrorf("%s:%d: %v", file, n, err)
				}
				if prev, dup := seen[req.CustomID]; dup {
					return usageErrorf("%s:%d: custom_id %q already used on line %d", file, n, req.CustomID, prev)
				}
				seen[req.CustomID] = n
				reqs = append(reqs, req)
				return nil
			})
			if err != nil {
				return err
			}
			if len(reqs) == 0 {
				return usageErrorf("%s: no requests", file)
			}

			c, err := a.client(cmd.Context())
			if err != nil {
				return err
			}
			batch, err := c.Batches.Create(cmd.Context(), anthropic.BatchCreateParams{Requests: reqs})
			if err != nil {
				return err
			}
			if a.jsonOutput {
				return a.printJSON(batch)
			}
			fmt.Fprintf(a.stdout, "%s\t%s\t%d requests\n", batch.ID, batch.ProcessingStatus, len(reqs))
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "JSONL file of requests")
	cmd.Flags().IntVar(&maxTokens, "max-tokens", DefaultMaxTokens, "max tokens for requests that do not set one")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func (l batchLine) request(model anthropic.Model, maxTokens int) (anthropic.BatchRequest, error) {
	req := anthropic.BatchRequest{CustomID: l.CustomID}
	switch {
	case l.Params != nil && l.Prompt != "":
		return req, errors.New("set either params or prompt, not both")
	case l.Params != nil:
		req.Params = *l.Params
	case l.Prompt != "":
		req.Params.Messages = []anthropic.MessageParam{anthropic.UserText(l.Prompt)}
	default:
		return req, errors.New("missing params or prompt")
	}
	if req.CustomID == "" {
		req.CustomID = uuid.NewString()
	}
	if req.Params.Model == "" {
		req.Params.Model = model
	}
	if req.Params.MaxTokens == 0 {
		req.Params.MaxTokens = maxTokens
	}
	return req, nil
}

func (a *App) newBatchesListCommand() *cobra.Command {
	var page pageFlags

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List batches, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client(cmd.Context())
			if err != nil {
				return err
			}

			var batches []anthropic.MessageBatch
			if page.all {
				for b, err := range c.Batches.All(cmd.Context(), page.params()) {
					if err != nil {
						return err
					}
					batches = append(batches, b)
				}
			} else {
				p, err := c.Batches.List(cmd.Context(), page.params())
				if err != nil {
					return err
				}
				batches = p.Data
			}

			if a.jsonOutput {
				return a.printJSON(batches)
			}
			w := a.table()
			fmt.Fprintln(w, "ID\tSTATUS\tSUCCEEDED\tERRORED\tPROCESSING\tCREATED")
			for _, b := range batches {
				n := b.RequestCounts
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%s\n",
					b.ID, b.ProcessingStatus, n.Succeeded, n.Errored, n.Processing, b.CreatedAt)
			}
			return w.Flush()
		},
	}
	page.register(cmd)
	return cmd
}

// batchCommand builds a command that calls fn with a batch id and prints
// the returned value.
func (a *App) batchCommand(use, short string, fn func(c *anthropic.Client, cmd *cobra.Command, id string) (any, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client(cmd.Context())
			if err != nil {
				return err
			}
			v, err := fn(c, cmd, args[0])
			if err != nil {
				return err
			}
			if b, ok := v.(*anthropic.MessageBatch); ok && !a.jsonOutput {
				n := b.RequestCounts
				fmt.Fprintf(a.stdout, "%s\t%s\tsucceeded=%d errored=%d canceled=%d expired=%d processing=%d\n",
					b.ID, b.ProcessingStatus, n.Succeeded, n.Errored, n.Canceled, n.Expired, n.Processing)
				return nil
			}
			return a.printJSON(v)
		},
	}
}

func (a *App) newBatchesResultsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "results <batch-id>",
		Short: "Stream the results of an ended batch",
		Long: `Stream the results of an ended batch, one line per request.

With --json every result is printed as a JSON line. Malformed result lines
are reported on stderr and skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client(cmd.Context())
			if err != nil {
				return err
			}
			results, err := c.Batches.Results(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			skipped := 0
			for res, err := range results.All() {
				var serr *core.SerializationError
				if errors.As(err, &serr) {
					skipped++
					a.logger.Warn("skipping batch result", "error", err)
					continue
				}
				if err != nil {
					return err
				}
				if err := a.printResult(res); err != nil {
					return err
				}
			}
			if skipped > 0 {
				return &ExitError{Code: ExitAPI, Err: fmt.Errorf("%d malformed result lines skipped", skipped)}
			}
			return nil
		},
	}
}

func (a *App) printResult(res *anthropic.BatchResult) error {
	if a.jsonOutput {
		return a.printLine(res)
	}
	var status, detail string
	switch r := res.Result.(type) {
	case *anthropic.BatchSucceeded:
		status, detail = "succeeded", r.Message.Text()
	case *anthropic.BatchErrored:
		status, detail = "errored", r.Error.Type+": "+r.Error.Message
	case *anthropic.BatchCanceled:
		status = "canceled"
	case *anthropic.BatchExpired:
		status = "expired"
	case *anthropic.UnknownBatchResult:
		status = r.Type
	}
	_, err := fmt.Fprintf(a.stdout, "%s\t%s\t%q\n", res.CustomID, status, detail)
	return err
}
