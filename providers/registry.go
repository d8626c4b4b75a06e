package providers

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/petal-labs/anthropic-go/providers/anthropic"
)

// Settings carries what a backend needs to build a client. Each backend
// reads the fields that apply to it.
type Settings struct {
	// APIKey is the API key, or the OAuth access token for "oauth".
	APIKey  string
	BaseURL string

	// Region and ProjectID select the cloud deployment for "vertex" and
	// "bedrock".
	Region    string
	ProjectID string

	// OAuth refresh settings.
	RefreshToken string
	ExpiresAt    time.Time
	ClientID     string
	TokenURL     string
	OnRefresh    func(accessToken, refreshToken string, expiresAt time.Time)

	// Options are applied after the backend's own options.
	Options []anthropic.Option
}

// Factory creates a client for one backend.
type Factory func(ctx context.Context, s Settings) (*anthropic.Client, error)

// registry holds registered backend factories.
var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

func init() {
	Register("anthropic", func(_ context.Context, s Settings) (*anthropic.Client, error) {
		opts := s.Options
		if s.BaseURL != "" {
			opts = append([]anthropic.Option{anthropic.WithBaseURL(s.BaseURL)}, opts...)
		}
		return anthropic.New(s.APIKey, opts...), nil
	})
}

// Register adds a backend factory to the registry.
// It is typically called from a backend's init() function.
// If a backend with the same name is already registered, it will be overwritten.
//
// Example usage in a backend package:
//
//	func init() {
//	    providers.Register("vertex", func(ctx context.Context, s providers.Settings) (*anthropic.Client, error) {
//	        return New(ctx, s.Region, s.ProjectID, s.Options...)
//	    })
//	}
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
}

// Get retrieves a backend factory by name.
// Returns nil if the backend is not registered.
func Get(name string) Factory {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return registry[name]
}

// Create builds a client for the named backend.
// Returns an error if the backend is not registered.
func Create(ctx context.Context, name string, s Settings) (*anthropic.Client, error) {
	factory := Get(name)
	if factory == nil {
		return nil, fmt.Errorf("unknown backend: %s (available: %v)", name, List())
	}
	return factory(ctx, s)
}

// List returns the names of all registered backends in sorted order.
func List() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRegistered returns true if a backend with the given name is registered.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[name]
	return ok
}
