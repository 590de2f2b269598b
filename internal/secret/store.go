package secret

import (
	"path/filepath"
	"runtime"
)

// SecretStore holds sensitive values such as site API keys and publish
// passwords outside the main database.
type SecretStore interface {
	// Set stores a secret value under the given key.
	Set(key string, value []byte) error

	// Get retrieves the secret value for the given key.
	// Returns empty slice and nil error if key does not exist.
	Get(key string) ([]byte, error)

	// Delete removes the secret for the given key.
	Delete(key string) error
}

// New returns the macOS Keychain store on darwin and a file store under
// dataDir elsewhere.
func New(dataDir string) SecretStore {
	if runtime.GOOS == "darwin" {
		return NewKeychainStore()
	}
	return NewFileStore(filepath.Join(dataDir, "secrets.json"))
}

// APIKeyName is the secret key holding a configuration's API key.
func APIKeyName(configID string) string {
	return "apikey:" + configID
}

// PublishPasswordName is the secret key holding the publish target password.
const PublishPasswordName = "publish:password"
