// Package config handles CLI configuration loading and management.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultProfile is used when neither --profile nor default_profile is set.
const DefaultProfile = "default"

// Config represents the CLI configuration.
type Config struct {
	DefaultProfile string             `yaml:"default_profile"`
	Profiles       map[string]Profile `yaml:"profiles"`
}

// Profile selects a backend and its defaults.
type Profile struct {
	// Backend is a registered backend name: anthropic, vertex, bedrock or oauth.
	Backend    string        `yaml:"backend"`
	BaseURL    string        `yaml:"base_url,omitempty"`
	Model      string        `yaml:"model,omitempty"`
	MaxRetries *int          `yaml:"max_retries,omitempty"`
	Timeout    time.Duration `yaml:"timeout,omitempty"`
	Region     string        `yaml:"region,omitempty"`
	ProjectID  string        `yaml:"project_id,omitempty"`
	Betas      []string      `yaml:"betas,omitempty"`

	// ClientID and TokenURL configure OAuth refresh.
	ClientID string `yaml:"client_id,omitempty"`
	TokenURL string `yaml:"token_url,omitempty"`
}

// DefaultConfigPath returns the default configuration file path for the current platform.
// - macOS/Linux: ~/.anthropic/config.yaml
// - Windows: %USERPROFILE%\.anthropic\config.yaml
func DefaultConfigPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

// Dir returns the directory holding CLI state, or "." when no home
// directory is known.
func Dir() string {
	var homeDir string
	if runtime.GOOS == "windows" {
		homeDir = os.Getenv("USERPROFILE")
	} else {
		homeDir = os.Getenv("HOME")
	}
	if homeDir == "" {
		return "."
	}
	return filepath.Join(homeDir, ".anthropic")
}

// LoadConfig loads configuration from the specified path.
// A missing file yields an empty config.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{
		Profiles: make(map[string]Profile),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if cfg.Profiles == nil {
		cfg.Profiles = make(map[string]Profile)
	}
	return cfg, nil
}

// Save writes the configuration to path, creating its directory.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// ProfileName resolves the profile to use: the flag value, then
// default_profile, then DefaultProfile.
func (c *Config) ProfileName(flag string) string {
	switch {
	case flag != "":
		return flag
	case c.DefaultProfile != "":
		return c.DefaultProfile
	}
	return DefaultProfile
}

// Profile returns the named profile. An unknown name yields an anthropic
// profile with no overrides; ok reports whether it was configured.
func (c *Config) Profile(name string) (p Profile, ok bool) {
	p, ok = c.Profiles[name]
	if p.Backend == "" {
		p.Backend = "anthropic"
	}
	return p, ok
}
