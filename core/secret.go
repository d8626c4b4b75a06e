package core

import "log/slog"

// Secret holds a credential (API key, OAuth token, AWS secret) and keeps it
// out of fmt output, JSON, text encodings and slog records.
//
//	key := core.NewSecret("sk-ant-abc123")
//	fmt.Println(key)          // [REDACTED]
//	slog.Info("auth", "key", key) // key=[REDACTED]
//	req.Header.Set("x-api-key", key.Expose())
type Secret struct {
	value string
}

// NewSecret creates a new Secret from a string value.
func NewSecret(value string) Secret {
	return Secret{value: value}
}

// String implements fmt.Stringer.
func (s Secret) String() string {
	return "[REDACTED]"
}

// GoString implements fmt.GoStringer.
func (s Secret) GoString() string {
	return "core.Secret{[REDACTED]}"
}

// MarshalJSON returns a redacted JSON string.
func (s Secret) MarshalJSON() ([]byte, error) {
	return []byte(`"[REDACTED]"`), nil
}

// MarshalText implements encoding.TextMarshaler, which also covers YAML.
func (s Secret) MarshalText() ([]byte, error) {
	return []byte("[REDACTED]"), nil
}

// LogValue implements slog.LogValuer.
func (s Secret) LogValue() slog.Value {
	return slog.StringValue("[REDACTED]")
}

// Hint returns a short masked form such as "sk-a...c123" for listings.
// Values of 12 characters or fewer are fully masked.
func (s Secret) Hint() string {
	if len(s.value) <= 12 {
		return "****"
	}
	return s.value[:4] + "..." + s.value[len(s.value)-4:]
}

// Expose returns the actual secret value. Only call it where the raw value
// is sent on the wire.
func (s Secret) Expose() string {
	return s.value
}

// IsEmpty returns true if the secret value is empty.
func (s Secret) IsEmpty() bool {
	return s.value == ""
}
