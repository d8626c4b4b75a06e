package commands

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/petal-labs/anthropic-go/cli/keystore"
)

func (a *App) newKeysCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage API keys",
		Long: `Manage API keys and OAuth tokens per profile. Keys are encrypted at rest;
set ` + keystore.PassphraseEnv + ` to derive the encryption key from a passphrase.`,
	}
	cmd.AddCommand(a.newKeysSetCommand())
	cmd.AddCommand(a.newKeysListCommand())
	cmd.AddCommand(a.newKeysDeleteCommand())
	return cmd
}

func (a *App) newKeysSetCommand() *cobra.Command {
	var refresh bool

	cmd := &cobra.Command{
		Use:   "set [profile]",
		Short: "Store the API key for a profile",
		Long: `Store the API key for a profile, the active one by default. The key is
prompted without echo. With --refresh-token the OAuth refresh token of an
oauth profile is stored instead.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := a.keyProfile(args)
			entry := apiKeyName(name)
			what := "API key"
			if refresh {
				entry = refreshTokenName(name)
				what = "refresh token"
			}

			fmt.Fprintf(a.stderr, "Enter %s for %s: ", what, name)
			secret, err := a.readSecret()
			if err != nil {
				return fmt.Errorf("read %s: %w", what, err)
			}
			if secret == "" {
				return usageErrorf("%s cannot be empty", what)
			}

			ks, err := a.newKeystore()
			if err != nil {
				return fmt.Errorf("open keystore: %w", err)
			}
			if err := ks.Set(entry, secret); err != nil {
				return fmt.Errorf("store %s: %w", what, err)
			}
			fmt.Fprintf(a.stdout, "%s for %s stored.\n", what, name)
			return nil
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh-token", false, "store an OAuth refresh token")
	return cmd
}

func (a *App) newKeysListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored keys",
		Long:  `List stored key names. Values are never shown.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ks, err := a.newKeystore()
			if err != nil {
				return fmt.Errorf("open keystore: %w", err)
			}
			names, err := ks.List()
			if err != nil {
				return fmt.Errorf("list keys: %w", err)
			}

			if a.jsonOutput {
				if names == nil {
					names = []string{}
				}
				return a.printJSON(names)
			}
			if len(names) == 0 {
				fmt.Fprintln(a.stdout, "No keys stored.")
				return nil
			}
			for _, name := range names {
				fmt.Fprintln(a.stdout, name)
			}
			return nil
		},
	}
}

func (a *App) newKeysDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [profile]",
		Short: "Delete the stored credentials of a profile",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := a.keyProfile(args)
			ks, err := a.newKeystore()
			if err != nil {
				return fmt.Errorf("open keystore: %w", err)
			}

			deleted := 0
			for _, entry := range []string{apiKeyName(name), refreshTokenName(name), expiresAtName(name)} {
				err := ks.Delete(entry)
				if keystore.IsNotFound(err) {
					continue
				}
				if err != nil {
					return fmt.Errorf("delete %s: %w", entry, err)
				}
				deleted++
			}
			if deleted == 0 {
				return usageErrorf("no key stored for %s", name)
			}
			fmt.Fprintf(a.stdout, "Keys for %s deleted.\n", name)
			return nil
		},
	}
}

func (a *App) keyProfile(args []string) string {
	if len(args) == 1 {
		return args[0]
	}
	name, _ := a.activeProfile()
	return name
}

// readSecret reads one line from stdin without echo when it is a terminal.
func (a *App) readSecret() (string, error) {
	if f, ok := a.stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(a.stderr)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}
	line, err := bufio.NewReader(a.stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
