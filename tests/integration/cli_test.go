//go:build integration

package integration

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCLI_MessagesCreate(t *testing.T) {
	key := getAnthropicKey(t)
	env := newCLIEnv(t, "ANTHROPIC_API_KEY="+key)

	result := env.run(t, "", "--model", "haiku", "messages", "create", "--max-tokens", "32",
		"What is 2+2? Answer with just the number.")
	if result.ExitCode != 0 {
		t.Fatalf("exit code = %d, stderr: %s", result.ExitCode, result.Stderr)
	}
	if !strings.Contains(result.Stdout, "4") {
		t.Errorf("Expected output to contain '4', got: %s", result.Stdout)
	}
}

func TestCLI_MessagesCreate_Stdin(t *testing.T) {
	key := getAnthropicKey(t)
	env := newCLIEnv(t, "ANTHROPIC_API_KEY="+key)

	result := env.run(t, "Reply with the word pong.", "--model", "haiku", "messages", "create", "--max-tokens", "16")
	if result.ExitCode != 0 {
		t.Fatalf("exit code = %d, stderr: %s", result.ExitCode, result.Stderr)
	}
	if !strings.Contains(strings.ToLower(result.Stdout), "pong") {
		t.Errorf("Expected output to contain 'pong', got: %s", result.Stdout)
	}
}

func TestCLI_MessagesCreate_Stream(t *testing.T) {
	key := getAnthropicKey(t)
	env := newCLIEnv(t, "ANTHROPIC_API_KEY="+key)

	result := env.run(t, "", "--model", "haiku", "messages", "create", "--stream", "--max-tokens", "64",
		"Count from 1 to 3.")
	if result.ExitCode != 0 {
		t.Fatalf("exit code = %d, stderr: %s", result.ExitCode, result.Stderr)
	}
	for _, n := range []string{"1", "2", "3"} {
		if !strings.Contains(result.Stdout, n) {
			t.Errorf("output missing %s: %s", n, result.Stdout)
		}
	}
}

func TestCLI_MessagesCreate_JSON(t *testing.T) {
	key := getAnthropicKey(t)
	env := newCLIEnv(t, "ANTHROPIC_API_KEY="+key)

	result := env.run(t, "", "--json", "--model", "haiku", "messages", "create", "--max-tokens", "16", "Say hi.")
	if result.ExitCode != 0 {
		t.Fatalf("exit code = %d, stderr: %s", result.ExitCode, result.Stderr)
	}

	var msg struct {
		ID    string `json:"id"`
		Type  string `json:"type"`
		Role  string `json:"role"`
		Model string `json:"model"`
		Usage struct {
			InputTokens int `json:"input_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal([]byte(result.Stdout), &msg); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, result.Stdout)
	}
	if msg.Type != "message" || msg.Role != "assistant" {
		t.Errorf("type/role = %s/%s, want message/assistant", msg.Type, msg.Role)
	}
	if msg.ID == "" || msg.Usage.InputTokens == 0 {
		t.Errorf("message = %+v", msg)
	}
}

func TestCLI_CountTokens(t *testing.T) {
	key := getAnthropicKey(t)
	env := newCLIEnv(t, "ANTHROPIC_API_KEY="+key)

	result := env.run(t, "", "--model", "haiku", "messages", "count-tokens", "Hello, world")
	if result.ExitCode != 0 {
		t.Fatalf("exit code = %d, stderr: %s", result.ExitCode, result.Stderr)
	}
	if strings.TrimSpace(result.Stdout) == "" {
		t.Error("no token count printed")
	}
}

func TestCLI_InvalidKey(t *testing.T) {
	getAnthropicKey(t)
	env := newCLIEnv(t, "ANTHROPIC_API_KEY=sk-ant-invalid")

	result := env.run(t, "", "--model", "haiku", "messages", "create", "Hi")
	if result.ExitCode != 2 {
		t.Errorf("exit code = %d, want 2 (API error)", result.ExitCode)
	}
	if !strings.Contains(result.Stderr, "error:") {
		t.Errorf("stderr = %q, want an error line", result.Stderr)
	}
}

func TestCLI_MissingKey(t *testing.T) {
	env := newCLIEnv(t, "ANTHROPIC_API_KEY=")

	result := env.run(t, "", "messages", "create", "Hello")
	if result.ExitCode != 1 {
		t.Errorf("exit code = %d, want 1", result.ExitCode)
	}
	if !strings.Contains(result.Stderr, "anthropic keys set") {
		t.Errorf("stderr should suggest 'anthropic keys set', got: %s", result.Stderr)
	}
}

func TestCLI_Keys(t *testing.T) {
	env := newCLIEnv(t, "ANTHROPIC_API_KEY=")

	result := env.run(t, "sk-ant-test-key\n", "keys", "set", "work")
	if result.ExitCode != 0 {
		t.Fatalf("keys set exit code = %d, stderr: %s", result.ExitCode, result.Stderr)
	}

	result = env.run(t, "", "keys", "list")
	if result.ExitCode != 0 {
		t.Fatalf("keys list exit code = %d, stderr: %s", result.ExitCode, result.Stderr)
	}
	if !strings.Contains(result.Stdout, "work") {
		t.Errorf("keys list = %q, want work", result.Stdout)
	}
	if strings.Contains(result.Stdout, "sk-ant-test-key") {
		t.Error("keys list must not print key values")
	}

	result = env.run(t, "", "keys", "delete", "work")
	if result.ExitCode != 0 {
		t.Fatalf("keys delete exit code = %d, stderr: %s", result.ExitCode, result.Stderr)
	}

	result = env.run(t, "", "keys", "list")
	if !strings.Contains(result.Stdout, "No keys stored.") {
		t.Errorf("keys list after delete = %q", result.Stdout)
	}
}

func TestCLI_KeystoreCredentials(t *testing.T) {
	key := getAnthropicKey(t)
	env := newCLIEnv(t, "ANTHROPIC_API_KEY=")

	if r := env.run(t, "", "init", "work", "--model", "haiku"); r.ExitCode != 0 {
		t.Fatalf("init exit code = %d, stderr: %s", r.ExitCode, r.Stderr)
	}
	if r := env.run(t, key+"\n", "keys", "set", "work"); r.ExitCode != 0 {
		t.Fatalf("keys set exit code = %d, stderr: %s", r.ExitCode, r.Stderr)
	}

	result := env.run(t, "", "-p", "work", "messages", "create", "--max-tokens", "16", "Reply with ok.")
	if result.ExitCode != 0 {
		t.Fatalf("exit code = %d, stderr: %s", result.ExitCode, result.Stderr)
	}
	if strings.TrimSpace(result.Stdout) == "" {
		t.Error("empty response")
	}
}

func TestCLI_Init(t *testing.T) {
	env := newCLIEnv(t)
	projectPath := filepath.Join(env.home, "demo")

	result := env.run(t, "", "init", "gcp", "--backend", "vertex",
		"--region", "us-east5", "--project-id", "my-project", "--scaffold", projectPath)
	if result.ExitCode != 0 {
		t.Fatalf("exit code = %d, stderr: %s", result.ExitCode, result.Stderr)
	}
	if !strings.Contains(result.Stdout, `Profile "gcp" written`) {
		t.Errorf("stdout = %q", result.Stdout)
	}

	for _, f := range []string{"main.go", ".env"} {
		if _, err := os.Stat(filepath.Join(projectPath, f)); err != nil {
			t.Errorf("%s not created: %v", f, err)
		}
	}

	// Same profile again without --force.
	result = env.run(t, "", "init", "gcp", "--backend", "vertex", "--region", "us-east5", "--project-id", "p")
	if result.ExitCode != 1 {
		t.Errorf("re-init exit code = %d, want 1", result.ExitCode)
	}
	if !strings.Contains(result.Stderr, "already exists") {
		t.Errorf("stderr = %q", result.Stderr)
	}
}

func TestCLI_Init_InvalidBackend(t *testing.T) {
	env := newCLIEnv(t)

	result := env.run(t, "", "init", "work", "--backend", "openai")
	if result.ExitCode != 1 {
		t.Errorf("exit code = %d, want 1", result.ExitCode)
	}
	if !strings.Contains(result.Stderr, "unknown backend") {
		t.Errorf("stderr = %q", result.Stderr)
	}
}

func TestCLI_Version(t *testing.T) {
	env := newCLIEnv(t)

	result := env.run(t, "", "version")
	if result.ExitCode != 0 {
		t.Fatalf("exit code = %d, stderr: %s", result.ExitCode, result.Stderr)
	}
	if !strings.HasPrefix(result.Stdout, "anthropic ") {
		t.Errorf("stdout = %q", result.Stdout)
	}
}

func TestCLI_Help(t *testing.T) {
	env := newCLIEnv(t)

	result := env.run(t, "", "--help")
	if result.ExitCode != 0 {
		t.Errorf("exit code = %d", result.ExitCode)
	}
	for _, cmd := range []string{"messages", "models", "batches", "keys", "init", "version"} {
		if !strings.Contains(result.Stdout, cmd) {
			t.Errorf("help missing %q", cmd)
		}
	}
}
