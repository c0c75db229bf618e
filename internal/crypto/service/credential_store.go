package service

import (
	"encoding/base64"
	"os"
	"path/filepath"

	"github.com/zalando/go-keyring"

	cryptodomain "github.com/havenhealth/securecore/internal/crypto/domain"
	apperrors "github.com/havenhealth/securecore/internal/errors"
)

// keyringService is the service name under which secrets are stored in the
// platform keyring.
const keyringService = "securecore"

// KeyringCredentialStore implements CredentialStore on the platform keyring
// (Keychain on macOS, Secret Service on Linux, Credential Manager on Windows).
type KeyringCredentialStore struct{}

// NewKeyringCredentialStore creates the platform keyring credential store.
func NewKeyringCredentialStore() *KeyringCredentialStore {
	return &KeyringCredentialStore{}
}

// Get retrieves a secret from the platform keyring.
func (s *KeyringCredentialStore) Get(key string) ([]byte, error) {
	value, err := keyring.Get(keyringService, key)
	if err != nil {
		if apperrors.Is(err, keyring.ErrNotFound) {
			return nil, apperrors.Wrap(apperrors.ErrNotFound, "credential "+key)
		}
		return nil, apperrors.Wrap(cryptodomain.ErrCredentialStoreUnavailable, err.Error())
	}

	decoded, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return nil, apperrors.Wrap(cryptodomain.ErrCredentialStoreUnavailable, "corrupt credential encoding")
	}
	return decoded, nil
}

// Set stores a secret in the platform keyring, base64-encoded.
func (s *KeyringCredentialStore) Set(key string, value []byte) error {
	encoded := base64.StdEncoding.EncodeToString(value)
	if err := keyring.Set(keyringService, key, encoded); err != nil {
		return apperrors.Wrap(cryptodomain.ErrCredentialStoreUnavailable, err.Error())
	}
	return nil
}

// Delete removes a secret from the platform keyring.
func (s *KeyringCredentialStore) Delete(key string) error {
	if err := keyring.Delete(keyringService, key); err != nil && !apperrors.Is(err, keyring.ErrNotFound) {
		return apperrors.Wrap(cryptodomain.ErrCredentialStoreUnavailable, err.Error())
	}
	return nil
}

// Available probes the platform keyring. A missing probe entry still means
// the keyring is reachable.
func (s *KeyringCredentialStore) Available() error {
	if _, err := keyring.Get(keyringService, "availability-probe"); err != nil && !apperrors.Is(err, keyring.ErrNotFound) {
		return apperrors.Wrap(cryptodomain.ErrCredentialStoreUnavailable, err.Error())
	}
	return nil
}

// Degraded reports false; the keyring is the full-strength store.
func (s *KeyringCredentialStore) Degraded() bool {
	return false
}

// FileCredentialStore is the degraded fallback used only in non-production
// builds when the platform keyring is unavailable. Secrets are stored
// base64-encoded in 0600 files under a 0700 directory. This is weaker than
// the keyring and every use is flagged by Degraded() so callers can log it.
type FileCredentialStore struct {
	dir string
}

// NewFileCredentialStore creates the degraded file-backed store rooted at dir.
func NewFileCredentialStore(dir string) (*FileCredentialStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, apperrors.Wrap(cryptodomain.ErrCredentialStoreUnavailable, err.Error())
	}
	return &FileCredentialStore{dir: dir}, nil
}

// Get retrieves a secret from its file.
func (s *FileCredentialStore) Get(key string) ([]byte, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.Wrap(apperrors.ErrNotFound, "credential "+key)
		}
		return nil, apperrors.Wrap(cryptodomain.ErrCredentialStoreUnavailable, err.Error())
	}

	decoded, err := base64.StdEncoding.DecodeString(string(data))
	if err != nil {
		return nil, apperrors.Wrap(cryptodomain.ErrCredentialStoreUnavailable, "corrupt credential encoding")
	}
	return decoded, nil
}

// Set stores a secret in a 0600 file.
func (s *FileCredentialStore) Set(key string, value []byte) error {
	encoded := base64.StdEncoding.EncodeToString(value)
	if err := os.WriteFile(s.path(key), []byte(encoded), 0o600); err != nil {
		return apperrors.Wrap(cryptodomain.ErrCredentialStoreUnavailable, err.Error())
	}
	return nil
}

// Delete removes the secret file.
func (s *FileCredentialStore) Delete(key string) error {
	if err := os.Remove(s.path(key)); err != nil && !os.IsNotExist(err) {
		return apperrors.Wrap(cryptodomain.ErrCredentialStoreUnavailable, err.Error())
	}
	return nil
}

// Degraded reports true; file storage is the weaker fallback.
func (s *FileCredentialStore) Degraded() bool {
	return true
}

func (s *FileCredentialStore) path(key string) string {
	return filepath.Join(s.dir, key)
}
