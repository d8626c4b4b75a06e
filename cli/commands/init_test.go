package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/petal-labs/anthropic-go/cli/config"
)

func TestValidateProfileName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid simple", "work", false},
		{"valid with numbers", "prod2", false},
		{"valid with underscore", "my_profile", false},
		{"valid with hyphen", "eu-west", false},
		{"empty", "", true},
		{"starts with number", "2prod", true},
		{"starts with hyphen", "-work", true},
		{"contains space", "my profile", true},
		{"contains dot", "my.profile", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateProfileName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateProfileName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateProfile(t *testing.T) {
	tests := []struct {
		name    string
		profile config.Profile
		wantErr bool
	}{
		{"anthropic", config.Profile{Backend: "anthropic"}, false},
		{"oauth", config.Profile{Backend: "oauth"}, false},
		{"bedrock", config.Profile{Backend: "bedrock", Region: "us-east-1"}, false},
		{"bedrock without region", config.Profile{Backend: "bedrock"}, true},
		{"vertex", config.Profile{Backend: "vertex", Region: "us-east5", ProjectID: "p"}, false},
		{"vertex without project", config.Profile{Backend: "vertex", Region: "us-east5"}, true},
		{"unknown backend", config.Profile{Backend: "openai"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateProfile(tt.profile)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateProfile(%+v) error = %v, wantErr %v", tt.profile, err, tt.wantErr)
			}
		})
	}
}

func runWithConfig(t *testing.T, path string, args ...string) (string, error) {
	t.Helper()
	var stdout bytes.Buffer
	app := NewApp(WithIO(strings.NewReader(""), &stdout, &bytes.Buffer{}))
	err := app.Run(context.Background(), append([]string{"--config", path}, args...)...)
	return stdout.String(), err
}

func TestInitWritesProfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "anthropic", "config.yaml")

	out, err := runWithConfig(t, path, "init", "aws", "--backend", "bedrock", "--region", "us-west-2", "--model", "haiku")
	if err != nil {
		t.Fatalf("init error = %v", err)
	}
	if !strings.Contains(out, `Profile "aws" written`) {
		t.Errorf("output = %q", out)
	}

	cfg, err := config.LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	p, ok := cfg.Profile("aws")
	if !ok {
		t.Fatal("profile aws not saved")
	}
	if p.Backend != "bedrock" || p.Region != "us-west-2" || p.Model != "haiku" {
		t.Errorf("profile = %+v", p)
	}
	if cfg.DefaultProfile != "aws" {
		t.Errorf("DefaultProfile = %q, want aws (first profile)", cfg.DefaultProfile)
	}

	// A second profile does not take over the default unless asked.
	if _, err := runWithConfig(t, path, "init", "work"); err != nil {
		t.Fatalf("init work error = %v", err)
	}
	cfg, _ = config.LoadConfig(path)
	if cfg.DefaultProfile != "aws" {
		t.Errorf("DefaultProfile = %q, want aws", cfg.DefaultProfile)
	}

	if _, err := runWithConfig(t, path, "init", "work", "--default", "--force"); err != nil {
		t.Fatalf("init --default error = %v", err)
	}
	cfg, _ = config.LoadConfig(path)
	if cfg.DefaultProfile != "work" {
		t.Errorf("DefaultProfile = %q, want work", cfg.DefaultProfile)
	}
}

func TestInitErrorOnExistingProfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	if _, err := runWithConfig(t, path, "init", "work"); err != nil {
		t.Fatalf("init error = %v", err)
	}
	_, err := runWithConfig(t, path, "init", "work")
	if err == nil {
		t.Fatal("init should fail for an existing profile")
	}
	if !strings.Contains(err.Error(), "already exists") {
		t.Errorf("Error message should mention 'already exists', got: %v", err)
	}
	if code := ExitCode(err); code != ExitValidation {
		t.Errorf("ExitCode = %d, want %d", code, ExitValidation)
	}
}

func TestInitScaffold(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.yaml")
	projectPath := filepath.Join(tmpDir, "demo")

	_, err := runWithConfig(t, path, "init", "gcp",
		"--backend", "vertex", "--region", "us-east5", "--project-id", "my-project",
		"--scaffold", projectPath)
	if err != nil {
		t.Fatalf("init error = %v", err)
	}

	mainContent, err := os.ReadFile(filepath.Join(projectPath, "main.go"))
	if err != nil {
		t.Fatalf("main.go not created: %v", err)
	}
	for _, want := range []string{
		"package main",
		`_ "github.com/petal-labs/anthropic-go/providers/vertex"`,
		`providers.Create(ctx, "vertex"`,
		`Region: "us-east5"`,
		`ProjectID: "my-project"`,
		`Model:     "` + string(DefaultModel) + `"`,
	} {
		if !strings.Contains(string(mainContent), want) {
			t.Errorf("main.go missing %q", want)
		}
	}

	envContent, err := os.ReadFile(filepath.Join(projectPath, ".env"))
	if err != nil {
		t.Fatalf(".env not created: %v", err)
	}
	if !strings.Contains(string(envContent), "anthropic keys set gcp") {
		t.Errorf(".env = %q", envContent)
	}

	// The directory must not exist yet.
	_, err = runWithConfig(t, path, "init", "gcp2", "--scaffold", projectPath)
	if err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Errorf("scaffold into existing dir error = %v", err)
	}
}

func TestInitScaffoldAnthropicImports(t *testing.T) {
	projectPath := filepath.Join(t.TempDir(), "demo")
	if err := scaffold(projectPath, "work", config.Profile{Backend: "anthropic", Model: "claude-opus-4-6"}); err != nil {
		t.Fatalf("scaffold() error = %v", err)
	}
	content, err := os.ReadFile(filepath.Join(projectPath, "main.go"))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(content), "_ \"github.com") {
		t.Error("anthropic backend needs no blank import")
	}
	if strings.Contains(string(content), "Region:") {
		t.Error("anthropic backend should not set a region")
	}
	if !strings.Contains(string(content), `"claude-opus-4-6"`) {
		t.Error("main.go missing profile model")
	}
}

func TestGenerateFileRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "main.go")
	if err := os.WriteFile(path, []byte("existing"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := generateFile(path, "{{.Profile}}", templateData{Profile: "x"}); err == nil {
		t.Error("generateFile() should not overwrite an existing file")
	}
	content, _ := os.ReadFile(path)
	if string(content) != "existing" {
		t.Errorf("content = %q, want unchanged", content)
	}
}
