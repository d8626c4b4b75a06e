package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfigPath(t *testing.T) {
	path := DefaultConfigPath()

	if filepath.Base(path) != "config.yaml" {
		t.Errorf("DefaultConfigPath() = %q, should end with config.yaml", path)
	}
	if os.Getenv("HOME") != "" && filepath.Base(filepath.Dir(path)) != ".anthropic" {
		t.Errorf("DefaultConfigPath() = %q, should be in .anthropic directory", path)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/path/config.yaml")
	if err != nil {
		t.Fatalf("LoadConfig() error = %v, want nil for missing file", err)
	}
	if cfg.Profiles == nil {
		t.Error("Profiles should be initialized")
	}
	if got := cfg.ProfileName(""); got != DefaultProfile {
		t.Errorf("ProfileName() = %q, want %q", got, DefaultProfile)
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `default_profile: work
profiles:
  work:
    backend: bedrock
    region: us-west-2
    model: claude-sonnet-4-5
    max_retries: 5
    timeout: 90s
    betas: [files-api-2025-04-14]
  personal:
    base_url: http://localhost:8080
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if got := cfg.ProfileName(""); got != "work" {
		t.Errorf("ProfileName(\"\") = %q, want work", got)
	}
	if got := cfg.ProfileName("personal"); got != "personal" {
		t.Errorf("ProfileName(personal) = %q, want personal", got)
	}

	work, ok := cfg.Profile("work")
	if !ok {
		t.Fatal("Profile(work) not found")
	}
	if work.Backend != "bedrock" || work.Region != "us-west-2" {
		t.Errorf("work = %+v", work)
	}
	if work.MaxRetries == nil || *work.MaxRetries != 5 {
		t.Errorf("MaxRetries = %v, want 5", work.MaxRetries)
	}
	if work.Timeout != 90*time.Second {
		t.Errorf("Timeout = %v, want 90s", work.Timeout)
	}
	if len(work.Betas) != 1 || work.Betas[0] != "files-api-2025-04-14" {
		t.Errorf("Betas = %v", work.Betas)
	}

	personal, _ := cfg.Profile("personal")
	if personal.Backend != "anthropic" {
		t.Errorf("default backend = %q, want anthropic", personal.Backend)
	}

	if _, ok := cfg.Profile("missing"); ok {
		t.Error("Profile(missing) reported ok")
	}
}

func TestLoadConfigInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("profiles: [unclosed"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Error("LoadConfig() should fail on invalid YAML")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	retries := 1
	cfg := &Config{
		DefaultProfile: "p",
		Profiles:       map[string]Profile{"p": {Backend: "vertex", Region: "global", ProjectID: "proj", MaxRetries: &retries}},
	}
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	p, _ := got.Profile("p")
	if p.Backend != "vertex" || p.ProjectID != "proj" || *p.MaxRetries != 1 {
		t.Errorf("loaded profile = %+v", p)
	}
	if info, err := os.Stat(path); err == nil && info.Mode().Perm() != 0600 {
		t.Errorf("mode = %v, want 0600", info.Mode().Perm())
	}
}
