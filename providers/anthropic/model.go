package anthropic

import "strings"

// Model identifies a Claude model. Any string is a valid Model: values the
// SDK does not know about decode and encode untouched.
type Model string

// Known models.
const (
	ModelClaudeOpus4_6          Model = "claude-opus-4-6"
	ModelClaudeSonnet4_6        Model = "claude-sonnet-4-6"
	ModelClaudeOpus4_5          Model = "claude-opus-4-5"
	ModelClaudeOpus4_5_20251101 Model = "claude-opus-4-5-20251101"
	ModelClaudeOpus4_1_20250805 Model = "claude-opus-4-1-20250805"
	ModelClaudeOpus4_0          Model = "claude-opus-4-0"
	ModelClaudeOpus4_20250514   Model = "claude-opus-4-20250514"
	ModelClaude4Opus20250514    Model = "claude-4-opus-20250514"
	ModelClaudeSonnet4_5        Model = "claude-sonnet-4-5"
	ModelClaudeSonnet4_5_0929   Model = "claude-sonnet-4-5-20250929"
	ModelClaudeSonnet4_0        Model = "claude-sonnet-4-0"
	ModelClaudeSonnet4_20250514 Model = "claude-sonnet-4-20250514"
	ModelClaude4Sonnet20250514  Model = "claude-4-sonnet-20250514"
	ModelClaudeHaiku4_5         Model = "claude-haiku-4-5"
	ModelClaudeHaiku4_5_1001    Model = "claude-haiku-4-5-20251001"
	ModelClaude3_7SonnetLatest  Model = "claude-3-7-sonnet-latest"
	ModelClaude3_7Sonnet0219    Model = "claude-3-7-sonnet-20250219"
	ModelClaude3_5HaikuLatest   Model = "claude-3-5-haiku-latest"
	ModelClaude3_5Haiku1022     Model = "claude-3-5-haiku-20241022"
	ModelClaude3OpusLatest      Model = "claude-3-opus-latest"
	ModelClaude3Opus20240229    Model = "claude-3-opus-20240229"
	ModelClaude3Haiku20240307   Model = "claude-3-haiku-20240307"
)

// knownModels reports extended thinking support per known model.
var knownModels = map[Model]bool{
	ModelClaudeOpus4_6:          true,
	ModelClaudeSonnet4_6:        true,
	ModelClaudeOpus4_5:          true,
	ModelClaudeOpus4_5_20251101: true,
	ModelClaudeOpus4_1_20250805: true,
	ModelClaudeOpus4_0:          true,
	ModelClaudeOpus4_20250514:   true,
	ModelClaude4Opus20250514:    true,
	ModelClaudeSonnet4_5:        true,
	ModelClaudeSonnet4_5_0929:   true,
	ModelClaudeSonnet4_0:        true,
	ModelClaudeSonnet4_20250514: true,
	ModelClaude4Sonnet20250514:  true,
	ModelClaude3_7SonnetLatest:  true,
	ModelClaude3_7Sonnet0219:    true,
	ModelClaudeHaiku4_5:         false,
	ModelClaudeHaiku4_5_1001:    false,
	ModelClaude3_5HaikuLatest:   false,
	ModelClaude3_5Haiku1022:     false,
	ModelClaude3OpusLatest:      false,
	ModelClaude3Opus20240229:    false,
	ModelClaude3Haiku20240307:   false,
}

var modelAliases = map[string]Model{
	"opus":   ModelClaudeOpus4_6,
	"sonnet": ModelClaudeSonnet4_6,
	"haiku":  ModelClaudeHaiku4_5,
}

// IsKnown reports whether m is one of the named model constants.
func (m Model) IsKnown() bool {
	_, ok := knownModels[m]
	return ok
}

// String returns the model identifier.
func (m Model) String() string {
	return string(m)
}

// SupportsExtendedThinking reports whether the model accepts a thinking
// configuration. Unknown models are assumed to support it; the API rejects
// the request if they do not.
func (m Model) SupportsExtendedThinking() bool {
	thinking, ok := knownModels[m]
	return !ok || thinking
}

// ResolveModel expands the short aliases "opus", "sonnet" and "haiku" and
// returns any other string unchanged.
func ResolveModel(s string) Model {
	if m, ok := modelAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return m
	}
	return Model(strings.TrimSpace(s))
}

// extendedContextSuffix requests the 1M token context window.
const extendedContextSuffix = "[1m]"

// ModelSpec is a model selection as typed by a user, e.g. "sonnet[1m]".
type ModelSpec struct {
	Model           Model
	ExtendedContext bool
}

// ParseModelSpec resolves aliases and the "[1m]" extended context suffix.
func ParseModelSpec(s string) ModelSpec {
	s = strings.TrimSpace(s)
	var spec ModelSpec
	if len(s) >= len(extendedContextSuffix) &&
		strings.EqualFold(s[len(s)-len(extendedContextSuffix):], extendedContextSuffix) {
		spec.ExtendedContext = true
		s = s[:len(s)-len(extendedContextSuffix)]
	}
	spec.Model = ResolveModel(s)
	return spec
}

// Betas returns the beta flags the model spec needs.
func (s ModelSpec) Betas() []string {
	if s.ExtendedContext {
		return []string{BetaContext1M}
	}
	return nil
}

// String formats the model spec back into its user form.
func (s ModelSpec) String() string {
	if s.ExtendedContext {
		return string(s.Model) + extendedContextSuffix
	}
	return string(s.Model)
}
