package commands

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/petal-labs/anthropic-go/providers/anthropic"
)

// Version information set at build time via ldflags.
// Example: go build -ldflags "-X github.com/petal-labs/anthropic-go/cli/commands.Version=v1.0.0"
var (
	// Version is the semantic version of the CLI.
	Version = "dev"
	// Commit is the git commit hash.
	Commit = "unknown"
	// BuildDate is the date when the binary was built.
	BuildDate = "unknown"
)

type versionInfo struct {
	Version    string `json:"version"`
	Commit     string `json:"commit"`
	BuildDate  string `json:"buildDate"`
	SDKVersion string `json:"sdkVersion"`
	APIVersion string `json:"apiVersion"`
	GoVersion  string `json:"goVersion"`
	Platform   string `json:"platform"`
}

func currentVersion() versionInfo {
	return versionInfo{
		Version:    Version,
		Commit:     Commit,
		BuildDate:  BuildDate,
		SDKVersion: anthropic.Version,
		APIVersion: anthropic.DefaultVersion,
		GoVersion:  runtime.Version(),
		Platform:   runtime.GOOS + "/" + runtime.GOARCH,
	}
}

func (a *App) newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  `Print detailed version information including version, commit, build date, SDK and API versions, and Go runtime.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v := currentVersion()
			if a.jsonOutput {
				return a.printLine(v)
			}

			fmt.Fprintf(a.stdout, "anthropic %s\n", v.Version)
			fmt.Fprintf(a.stdout, "  commit:      %s\n", v.Commit)
			fmt.Fprintf(a.stdout, "  built:       %s\n", v.BuildDate)
			fmt.Fprintf(a.stdout, "  sdk:         %s\n", v.SDKVersion)
			fmt.Fprintf(a.stdout, "  api version: %s\n", v.APIVersion)
			fmt.Fprintf(a.stdout, "  go version:  %s\n", v.GoVersion)
			fmt.Fprintf(a.stdout, "  platform:    %s\n", v.Platform)
			return nil
		},
	}
}
