package providers

import (
	"context"
	"testing"

	"github.com/petal-labs/anthropic-go/providers/anthropic"
)

func testFactory(provider string) Factory {
	return func(_ context.Context, s Settings) (*anthropic.Client, error) {
		return anthropic.New(s.APIKey, anthropic.WithProvider(provider)), nil
	}
}

func TestRegister(t *testing.T) {
	// Register a test backend
	Register("test-backend", testFactory("test-backend"))

	// Verify it's registered
	if !IsRegistered("test-backend") {
		t.Error("expected test-backend to be registered")
	}

	// Verify unregistered backend returns false
	if IsRegistered("nonexistent") {
		t.Error("expected nonexistent to not be registered")
	}
}

func TestGet(t *testing.T) {
	Register("get-test", testFactory("get-test"))

	factory := Get("get-test")
	if factory == nil {
		t.Fatal("expected factory to not be nil")
	}

	client, err := factory(context.Background(), Settings{APIKey: "test-key"})
	if err != nil {
		t.Fatalf("factory() error = %v", err)
	}
	if client.Provider() != "get-test" {
		t.Errorf("expected provider 'get-test', got %q", client.Provider())
	}

	if Get("nonexistent") != nil {
		t.Error("expected nil for nonexistent backend")
	}
}

func TestCreate(t *testing.T) {
	client, err := Create(context.Background(), "anthropic", Settings{
		APIKey:  "my-key",
		BaseURL: "https://proxy.example.com",
		Options: []anthropic.Option{anthropic.WithBaseURL("https://override.example.com")},
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if client.Provider() != "anthropic" {
		t.Errorf("expected provider 'anthropic', got %q", client.Provider())
	}
	if client.BaseURL() != "https://override.example.com" {
		t.Errorf("expected options to win over BaseURL, got %q", client.BaseURL())
	}

	// Create non-existent backend
	_, err = Create(context.Background(), "nonexistent", Settings{})
	if err == nil {
		t.Error("expected error for nonexistent backend")
	}
}

func TestList(t *testing.T) {
	Register("list-a", testFactory("list-a"))
	Register("list-b", testFactory("list-b"))

	list := List()

	found := make(map[string]bool)
	for _, name := range list {
		found[name] = true
	}
	for _, name := range []string{"anthropic", "list-a", "list-b"} {
		if !found[name] {
			t.Errorf("expected %q to be in list", name)
		}
	}

	for i := 1; i < len(list); i++ {
		if list[i-1] > list[i] {
			t.Errorf("list not sorted: %q > %q", list[i-1], list[i])
		}
	}
}
