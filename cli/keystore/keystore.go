// Package keystore stores API keys and OAuth tokens encrypted at rest.
package keystore

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/petal-labs/anthropic-go/cli/config"
)

// Keystore defines the interface for secure key storage.
type Keystore interface {
	// Set stores a key-value pair.
	Set(name, value string) error
	// Get retrieves a value by name. Returns *ErrKeyNotFound if absent.
	Get(name string) (string, error)
	// Delete removes a key by name.
	Delete(name string) error
	// List returns all stored key names, sorted.
	List() ([]string, error)
}

// ErrKeyNotFound is returned when a requested key does not exist.
type ErrKeyNotFound struct {
	Name string
}

func (e *ErrKeyNotFound) Error() string {
	return "key not found: " + e.Name
}

// IsNotFound reports whether err is an *ErrKeyNotFound.
func IsNotFound(err error) bool {
	var nf *ErrKeyNotFound
	return errors.As(err, &nf)
}

// PassphraseEnv names the environment variable holding the keystore
// passphrase.
const PassphraseEnv = "ANTHROPIC_KEYSTORE_PASSPHRASE"

// DefaultKeystorePath returns the default keystore file path.
// - macOS/Linux: ~/.anthropic/keys.enc
// - Windows: %USERPROFILE%\.anthropic\keys.enc
func DefaultKeystorePath() string {
	return filepath.Join(config.Dir(), "keys.enc")
}

// NewKeystore opens the default keystore. The master key comes from
// PassphraseEnv when set, otherwise from machine identity.
func NewKeystore() (Keystore, error) {
	var source MasterKeySource = MachineKey{}
	if p := os.Getenv(PassphraseEnv); p != "" {
		source = Passphrase(p)
	}
	return NewFileKeystore(DefaultKeystorePath(), source)
}
