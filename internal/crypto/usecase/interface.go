// Package usecase implements the tiered key hierarchy: master secret
// lifecycle, per-tier key derivation, envelope encryption, and rotation
// bookkeeping for both the primary and payment key domains.
package usecase

import (
	"context"

	cryptodomain "github.com/havenhealth/securecore/internal/crypto/domain"
)

// KeyHierarchy is the contract consumed by the coordinator, the payment
// domain, and the audit encryptor.
type KeyHierarchy interface {
	// Initialize loads or generates the master secret for every key domain
	// from the credential store and derives all tier keys. Fails with
	// ErrCredentialStoreUnavailable when the store cannot be used; in
	// production there is no fallback.
	Initialize(ctx context.Context) error

	// Encrypt produces an envelope for plaintext at the given tier within a
	// domain. SYSTEM tier is a passthrough with an empty nonce.
	Encrypt(domain cryptodomain.KeyDomain, tier cryptodomain.Tier, plaintext []byte) (*cryptodomain.EncryptedEnvelope, error)

	// Decrypt recovers plaintext from an envelope. Fails with
	// ErrIntegrityViolation on authentication failure and ErrKeyNotFound when
	// no key exists for the envelope's tier; callers must distinguish the two.
	Decrypt(domain cryptodomain.KeyDomain, envelope *cryptodomain.EncryptedEnvelope) ([]byte, error)

	// Rotate generates a new master secret for the domain and re-derives all
	// tier keys. The previous keys are retained for decryption until
	// CompleteRotation; bulk re-encryption is the caller's responsibility.
	Rotate(ctx context.Context, domain cryptodomain.KeyDomain) error

	// CompleteRotation wipes the retained previous keys after the caller has
	// re-encrypted all existing envelopes.
	CompleteRotation(domain cryptodomain.KeyDomain) error

	// DaysUntilRotation reports whole days until rotation is due for
	// (domain, tier). Never rotates by itself.
	DaysUntilRotation(ctx context.Context, domain cryptodomain.KeyDomain, tier cryptodomain.Tier) (int, error)

	// ValidateDomainIsolation verifies the key domains use disjoint
	// credential-store namespaces and share no derived key material.
	ValidateDomainIsolation() error

	// Initialized reports whether Initialize has completed successfully.
	Initialized() bool

	// Degraded reports whether the credential store is the weaker
	// non-production fallback.
	Degraded() bool
}

// RotationRepository persists rotation records and derived-key metadata.
type RotationRepository interface {
	GetRecord(ctx context.Context, domain cryptodomain.KeyDomain, tier cryptodomain.Tier) (*cryptodomain.KeyRotationRecord, error)
	SaveRecord(ctx context.Context, record *cryptodomain.KeyRotationRecord) error
	ListRecords(ctx context.Context, domain cryptodomain.KeyDomain) ([]*cryptodomain.KeyRotationRecord, error)
	GetKeyMetadata(ctx context.Context, domain cryptodomain.KeyDomain, tier cryptodomain.Tier) (*cryptodomain.DerivedKeyMetadata, error)
	SaveKeyMetadata(ctx context.Context, meta *cryptodomain.DerivedKeyMetadata) error
	ListKeyMetadata(ctx context.Context, domain cryptodomain.KeyDomain) ([]*cryptodomain.DerivedKeyMetadata, error)
}
