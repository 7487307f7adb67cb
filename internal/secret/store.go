// Package secret keeps credentials such as the API bearer token and the
// storage password out of configuration files.
package secret

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// EnvPrefix starts the environment variables that override stored secrets.
const EnvPrefix = "ADSCONSOLE"

// SecretStore provides a pluggable interface for storing sensitive data.
type SecretStore interface {
	// Set stores a secret value under the given key.
	Set(key string, value []byte) error

	// Get retrieves the secret value for the given key.
	// Returns empty slice and nil error if key does not exist.
	Get(key string) ([]byte, error)

	// Delete removes the secret for the given key.
	Delete(key string) error
}

// Default returns the platform store: the macOS Keychain where available,
// otherwise a private file under dir. Environment variables override both.
func Default(dir string) SecretStore {
	var base SecretStore
	if runtime.GOOS == "darwin" {
		base = NewKeychainStore()
	} else {
		base = NewFileStore(filepath.Join(dir, "secrets.yaml"))
	}
	return WithEnv(base, EnvPrefix)
}

// EnvName maps a secret key to the variable consulted for it, for example
// "api-token" becomes ADSCONSOLE_API_TOKEN.
func EnvName(prefix, key string) string {
	return prefix + "_" + strings.ToUpper(strings.NewReplacer("-", "_", ".", "_").Replace(key))
}

type envOverride struct {
	SecretStore
	prefix string
}

// WithEnv consults environment variables before store on Get. Writes still
// go to store.
func WithEnv(store SecretStore, prefix string) SecretStore {
	return envOverride{SecretStore: store, prefix: prefix}
}

func (e envOverride) Get(key string) ([]byte, error) {
	if v, ok := os.LookupEnv(EnvName(e.prefix, key)); ok && v != "" {
		return []byte(v), nil
	}
	return e.SecretStore.Get(key)
}
