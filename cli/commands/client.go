package commands

import (
	"context"
	"time"

	"github.com/petal-labs/anthropic-go/cli/config"
	"github.com/petal-labs/anthropic-go/cli/keystore"
	"github.com/petal-labs/anthropic-go/providers"
	"github.com/petal-labs/anthropic-go/providers/anthropic"

	// Cloud and OAuth backends register themselves with providers.
	_ "github.com/petal-labs/anthropic-go/providers/bedrock"
	_ "github.com/petal-labs/anthropic-go/providers/oauth"
	_ "github.com/petal-labs/anthropic-go/providers/vertex"
)

// Environment variables read by the CLI.
const (
	EnvAPIKey  = "ANTHROPIC_API_KEY"
	EnvBaseURL = "ANTHROPIC_BASE_URL"
)

// DefaultModel is used when neither --model nor the profile names one.
const DefaultModel = anthropic.ModelClaudeSonnet4_5

// Keystore entry names for a profile.
func apiKeyName(profile string) string       { return profile }
func refreshTokenName(profile string) string { return profile + ".refresh_token" }
func expiresAtName(profile string) string    { return profile + ".expires_at" }

// activeProfile resolves the profile selected by flags and config.
func (a *App) activeProfile() (string, config.Profile) {
	name := a.cfg.ProfileName(a.profile)
	p, _ := a.cfg.Profile(name)
	return name, p
}

// resolveModel picks the model: --model, then the profile, then
// DefaultModel.
func (a *App) resolveModel(p config.Profile) anthropic.Model {
	switch {
	case a.model != "":
		return anthropic.ResolveModel(a.model)
	case p.Model != "":
		return anthropic.ResolveModel(p.Model)
	}
	return DefaultModel
}

// client builds a client for the active profile.
func (a *App) client(ctx context.Context) (*anthropic.Client, error) {
	name, p := a.activeProfile()
	s, err := a.settings(name, p)
	if err != nil {
		return nil, err
	}
	c, err := a.newClient(ctx, p.Backend, s)
	if err != nil {
		return nil, usageErrorf("profile %q: %v", name, err)
	}
	a.logger.Debug("client ready", "profile", name, "backend", p.Backend)
	return c, nil
}

func (a *App) settings(name string, p config.Profile) (providers.Settings, error) {
	s := providers.Settings{
		BaseURL:   p.BaseURL,
		Region:    p.Region,
		ProjectID: p.ProjectID,
		ClientID:  p.ClientID,
		TokenURL:  p.TokenURL,
	}
	if s.BaseURL == "" {
		s.BaseURL = a.getenv(EnvBaseURL)
	}

	opts := []anthropic.Option{
		anthropic.WithLogger(a.logger),
		anthropic.WithUserAgent("anthropic-cli/" + Version),
	}
	if p.MaxRetries != nil {
		opts = append(opts, anthropic.WithMaxRetries(*p.MaxRetries))
	}
	if p.Timeout > 0 {
		opts = append(opts, anthropic.WithTimeout(p.Timeout))
	}
	if len(p.Betas) > 0 {
		opts = append(opts, anthropic.WithBetas(p.Betas...))
	}
	s.Options = opts

	switch p.Backend {
	case "anthropic":
		if key := a.getenv(EnvAPIKey); key != "" {
			s.APIKey = key
			return s, nil
		}
		ks, err := a.newKeystore()
		if err != nil {
			return s, usageErrorf("open keystore: %v", err)
		}
		key, err := ks.Get(apiKeyName(name))
		if keystore.IsNotFound(err) {
			return s, usageErrorf("no API key for profile %q: set %s or run 'anthropic keys set %s'", name, EnvAPIKey, name)
		}
		if err != nil {
			return s, usageErrorf("read keystore: %v", err)
		}
		s.APIKey = key
	case "oauth":
		ks, err := a.newKeystore()
		if err != nil {
			return s, usageErrorf("open keystore: %v", err)
		}
		if err := a.loadTokens(ks, name, &s); err != nil {
			return s, err
		}
	}
	return s, nil
}

// loadTokens reads stored OAuth tokens and persists refreshed ones.
func (a *App) loadTokens(ks keystore.Keystore, name string, s *providers.Settings) error {
	get := func(key string) (string, error) {
		v, err := ks.Get(key)
		if keystore.IsNotFound(err) {
			return "", nil
		}
		return v, err
	}

	var err error
	if s.APIKey, err = get(apiKeyName(name)); err != nil {
		return usageErrorf("read keystore: %v", err)
	}
	if s.RefreshToken, err = get(refreshTokenName(name)); err != nil {
		return usageErrorf("read keystore: %v", err)
	}
	exp, err := get(expiresAtName(name))
	if err != nil {
		return usageErrorf("read keystore: %v", err)
	}
	if exp != "" {
		if s.ExpiresAt, err = time.Parse(time.RFC3339, exp); err != nil {
			return usageErrorf("stored token expiry: %v", err)
		}
	}

	s.OnRefresh = func(access, refresh string, expiresAt time.Time) {
		entries := map[string]string{
			apiKeyName(name):       access,
			refreshTokenName(name): refresh,
		}
		if !expiresAt.IsZero() {
			entries[expiresAtName(name)] = expiresAt.UTC().Format(time.RFC3339)
		}
		for k, v := range entries {
			if v == "" {
				continue
			}
			if err := ks.Set(k, v); err != nil {
				a.logger.Warn("persist refreshed token", "profile", name, "error", err)
				return
			}
		}
	}
	return nil
}
