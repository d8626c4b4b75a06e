package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"text/template"

	"github.com/spf13/cobra"

	"github.com/petal-labs/anthropic-go/cli/config"
	"github.com/petal-labs/anthropic-go/providers"
)

type initFlags struct {
	profile     config.Profile
	makeDefault bool
	force       bool
	scaffold    string
}

func (a *App) newInitCommand() *cobra.Command {
	var f initFlags

	cmd := &cobra.Command{
		Use:   "init <profile>",
		Short: "Create a config profile",
		Long: `Create a profile in the config file, and optionally scaffold a starter
program that uses it. The global --model flag sets the profile's model.

Example:
  anthropic init work --model sonnet --default
  anthropic init aws --backend bedrock --region us-east-1
  anthropic init gcp --backend vertex --region us-east5 --project-id my-project
  anthropic init demo --scaffold ./demo`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runInit(args[0], f)
		},
	}

	cmd.Flags().StringVar(&f.profile.Backend, "backend", "anthropic", "backend: anthropic, vertex, bedrock or oauth")
	cmd.Flags().StringVar(&f.profile.BaseURL, "base-url", "", "API base URL override")
	cmd.Flags().StringVar(&f.profile.Region, "region", "", "cloud region (vertex, bedrock)")
	cmd.Flags().StringVar(&f.profile.ProjectID, "project-id", "", "Google Cloud project (vertex)")
	cmd.Flags().StringVar(&f.profile.ClientID, "client-id", "", "OAuth client id (oauth)")
	cmd.Flags().StringSliceVar(&f.profile.Betas, "beta", nil, "beta feature sent on every request")
	cmd.Flags().BoolVar(&f.makeDefault, "default", false, "make this the default profile")
	cmd.Flags().BoolVar(&f.force, "force", false, "overwrite an existing profile")
	cmd.Flags().StringVar(&f.scaffold, "scaffold", "", "directory to create a starter program in")
	return cmd
}

func (a *App) runInit(name string, f initFlags) error {
	if err := validateProfileName(name); err != nil {
		return err
	}
	p := f.profile
	p.Model = a.model
	if err := validateProfile(p); err != nil {
		return err
	}
	if _, exists := a.cfg.Profiles[name]; exists && !f.force {
		return usageErrorf("profile %q already exists (use --force to overwrite)", name)
	}

	if f.scaffold != "" {
		if err := scaffold(f.scaffold, name, p); err != nil {
			return err
		}
	}

	a.cfg.Profiles[name] = p
	if f.makeDefault || len(a.cfg.Profiles) == 1 {
		a.cfg.DefaultProfile = name
	}
	path := a.configPath()
	if err := a.cfg.Save(path); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	fmt.Fprintf(a.stdout, "Profile %q written to %s\n\n", name, path)
	fmt.Fprintln(a.stdout, "Next steps:")
	switch p.Backend {
	case "anthropic":
		fmt.Fprintf(a.stdout, "  anthropic keys set %s   (or export %s)\n", name, EnvAPIKey)
	case "oauth":
		fmt.Fprintf(a.stdout, "  anthropic keys set %s --refresh-token\n", name)
	}
	if f.scaffold != "" {
		fmt.Fprintf(a.stdout, "  cd %s && go run .\n", f.scaffold)
	} else {
		fmt.Fprintf(a.stdout, "  anthropic -p %s messages create \"Hello\"\n", name)
	}
	return nil
}

var validName = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_-]*$`)

func validateProfileName(name string) error {
	if name == "" {
		return usageErrorf("profile name cannot be empty")
	}
	if !validName.MatchString(name) {
		return usageErrorf("invalid profile name %q: must start with a letter and contain only letters, numbers, underscores, and hyphens", name)
	}
	return nil
}

func validateProfile(p config.Profile) error {
	if !providers.IsRegistered(p.Backend) {
		return usageErrorf("unknown backend %q (available: %v)", p.Backend, providers.List())
	}
	switch p.Backend {
	case "vertex":
		if p.Region == "" || p.ProjectID == "" {
			return usageErrorf("vertex profiles need --region and --project-id")
		}
	case "bedrock":
		if p.Region == "" {
			return usageErrorf("bedrock profiles need --region")
		}
	}
	return nil
}

type templateData struct {
	Profile   string
	Backend   string
	Model     string
	Region    string
	ProjectID string
}

func scaffold(dir, name string, p config.Profile) error {
	if _, err := os.Stat(dir); err == nil {
		return usageErrorf("directory %q already exists", dir)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}

	model := p.Model
	if model == "" {
		model = string(DefaultModel)
	}
	data := templateData{
		Profile:   name,
		Backend:   p.Backend,
		Model:     model,
		Region:    p.Region,
		ProjectID: p.ProjectID,
	}

	files := map[string]string{
		"main.go": mainGoTemplate,
		".env":    envTemplate,
	}
	for file, tmpl := range files {
		if err := generateFile(filepath.Join(dir, file), tmpl, data); err != nil {
			return fmt.Errorf("create %s: %w", file, err)
		}
	}
	return nil
}

func generateFile(path string, tmplContent string, data templateData) error {
	tmpl, err := template.New(filepath.Base(path)).Parse(tmplContent)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	return tmpl.Execute(f, data)
}

// Templates

var mainGoTemplate = `package main

import (
	"context"
	"fmt"
	"os"

	"github.com/petal-labs/anthropic-go/providers"
	"github.com/petal-labs/anthropic-go/providers/anthropic"
{{- if ne .Backend "anthropic"}}
	_ "github.com/petal-labs/anthropic-go/providers/{{.Backend}}"
{{- end}}
)

func main() {
	ctx := context.Background()

	client, err := providers.Create(ctx, "{{.Backend}}", providers.Settings{
		APIKey: os.Getenv("ANTHROPIC_API_KEY"),
{{- if .Region}}
		Region: "{{.Region}}",
{{- end}}
{{- if .ProjectID}}
		ProjectID: "{{.ProjectID}}",
{{- end}}
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}

	msg, err := client.Messages.Create(ctx, anthropic.MessageCreateParams{
		Model:     "{{.Model}}",
		MaxTokens: 1024,
		Messages:  []anthropic.MessageParam{anthropic.UserText("Hello, Claude!")},
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}

	fmt.Println(msg.Text())
}
`

var envTemplate = `# Profile: {{.Profile}}
# Store the key with 'anthropic keys set {{.Profile}}' or set it here.
ANTHROPIC_API_KEY=
`
