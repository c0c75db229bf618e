// Package service provides the cryptographic primitives behind the key
// hierarchy: AEAD ciphers (AES-256-GCM, ChaCha20-Poly1305), slow key
// derivation, and the platform credential-store boundary.
package service

import (
	cryptodomain "github.com/havenhealth/securecore/internal/crypto/domain"
)

// AEAD defines the interface for Authenticated Encryption with Associated Data.
type AEAD interface {
	// Encrypt encrypts plaintext with optional AAD and returns ciphertext and nonce.
	Encrypt(plaintext, aad []byte) (ciphertext, nonce []byte, err error)

	// Decrypt decrypts ciphertext using the provided nonce and AAD.
	Decrypt(ciphertext, nonce, aad []byte) ([]byte, error)
}

// AEADManager defines the interface for creating AEAD cipher instances.
type AEADManager interface {
	// CreateCipher creates an AEAD cipher instance for the specified algorithm.
	CreateCipher(key []byte, alg cryptodomain.Algorithm) (AEAD, error)
}

// KeyDeriver derives per-(domain, tier) keys from a master secret.
type KeyDeriver interface {
	// DeriveKey derives the key for (domain, tier) from the master secret.
	// Deterministic for a given (secret, domain, tier) triple.
	DeriveKey(secret *cryptodomain.MasterSecret, tier cryptodomain.Tier) (*cryptodomain.DerivedKey, error)
}

// CredentialStore is the external secure key-value store abstraction that owns
// master secrets. Implementations back onto the platform keyring or, in
// degraded non-production mode, an obfuscated local file.
type CredentialStore interface {
	// Get retrieves a stored secret by key. Returns
	// cryptodomain.ErrCredentialStoreUnavailable when the store cannot be read
	// and errors.ErrNotFound when the key does not exist.
	Get(key string) ([]byte, error)

	// Set stores a secret under key.
	Set(key string, value []byte) error

	// Delete removes a stored secret.
	Delete(key string) error

	// Degraded reports whether this store is the weaker non-production fallback.
	Degraded() bool
}
