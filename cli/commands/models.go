package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/petal-labs/anthropic-go/providers/anthropic"
)

func (a *App) newModelsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List and inspect available models",
	}
	cmd.AddCommand(a.newModelsListCommand())
	cmd.AddCommand(a.newModelsGetCommand())
	return cmd
}

func (a *App) newModelsListCommand() *cobra.Command {
	var page pageFlags

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List models, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client(cmd.Context())
			if err != nil {
				return err
			}

			var models []anthropic.ModelInfo
			if page.all {
				for m, err := range c.Models.All(cmd.Context(), page.params()) {
					if err != nil {
						return err
					}
					models = append(models, m)
				}
			} else {
				p, err := c.Models.List(cmd.Context(), page.params())
				if err != nil {
					return err
				}
				models = p.Data
			}

			if a.jsonOutput {
				return a.printJSON(models)
			}
			w := a.table()
			fmt.Fprintln(w, "ID\tNAME\tCREATED")
			for _, m := range models {
				fmt.Fprintf(w, "%s\t%s\t%s\n", m.ID, m.DisplayName, m.CreatedAt)
			}
			return w.Flush()
		},
	}
	page.register(cmd)
	return cmd
}

func (a *App) newModelsGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get <model>",
		Short: "Show one model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client(cmd.Context())
			if err != nil {
				return err
			}
			m, err := c.Models.Get(cmd.Context(), string(anthropic.ResolveModel(args[0])))
			if err != nil {
				return err
			}
			if a.jsonOutput {
				return a.printJSON(m)
			}
			fmt.Fprintf(a.stdout, "%s\t%s\t%s\n", m.ID, m.DisplayName, m.CreatedAt)
			return nil
		},
	}
}

// pageFlags are the pagination flags shared by list commands.
type pageFlags struct {
	limit  int
	after  string
	before string
	all    bool
}

func (p *pageFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&p.limit, "limit", 20, "page size (1-1000)")
	cmd.Flags().StringVar(&p.after, "after", "", "return results after this ID")
	cmd.Flags().StringVar(&p.before, "before", "", "return results before this ID")
	cmd.Flags().BoolVar(&p.all, "all", false, "follow pages until the end")
	cmd.MarkFlagsMutuallyExclusive("after", "before")
}

func (p *pageFlags) params() anthropic.ListParams {
	return anthropic.ListParams{Limit: p.limit, AfterID: p.after, BeforeID: p.before}
}
