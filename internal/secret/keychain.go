package secret

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

const keychainService = "sitebuilder"

// KeychainStore implements SecretStore using the macOS Keychain
// via the `security` CLI tool.
type KeychainStore struct{}

func NewKeychainStore() *KeychainStore {
	return &KeychainStore{}
}

// Set stores a secret in the Keychain, replacing any existing value.
func (k *KeychainStore) Set(key string, value []byte) error {
	k.Delete(key)

	cmd := exec.Command("security", "add-generic-password",
		"-a", key,
		"-s", keychainService,
		"-w", string(value),
		"-U",
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("keychain set: %s: %w", strings.TrimSpace(string(out)), err)
	}
	return nil
}

// Get retrieves a secret from the Keychain. A missing item is not an error.
func (k *KeychainStore) Get(key string) ([]byte, error) {
	out, err := exec.Command("security", "find-generic-password",
		"-a", key,
		"-s", keychainService,
		"-w",
	).Output()
	if err != nil {
		// exit code 44: item not found
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 44 {
			return nil, nil
		}
		return nil, fmt.Errorf("keychain get: %w", err)
	}
	return []byte(strings.TrimSpace(string(out))), nil
}

// Delete removes a secret from the Keychain.
func (k *KeychainStore) Delete(key string) error {
	exec.Command("security", "delete-generic-password",
		"-a", key,
		"-s", keychainService,
	).Run() // item may not exist
	return nil
}
