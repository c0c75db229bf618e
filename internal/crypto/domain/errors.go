package domain

import (
	"github.com/havenhealth/securecore/internal/errors"
)

// Cryptographic operation error definitions.
//
// The taxonomy deliberately separates unavailability from tampering:
// ErrEncryptionFailure and ErrKeyNotFound mean the operation could not run,
// while ErrIntegrityViolation means the data itself failed authentication.
// Callers must never conflate the two.
var (
	// ErrCredentialStoreUnavailable indicates the platform credential store
	// cannot be read or written. Fatal at startup in production; non-production
	// builds may fall back to a clearly flagged degraded store.
	ErrCredentialStoreUnavailable = errors.Wrap(errors.ErrUnavailable, "credential store unavailable")

	// ErrEncryptionFailure indicates key material or the crypto primitive was
	// unavailable during encryption. Retryable once the dependency recovers.
	ErrEncryptionFailure = errors.Wrap(errors.ErrUnavailable, "encryption failure")

	// ErrIntegrityViolation indicates ciphertext or its authentication tag
	// failed verification. The envelope has been tampered with or corrupted;
	// this is a structural failure, never retryable.
	ErrIntegrityViolation = errors.Wrap(errors.ErrInvalidInput, "integrity violation")

	// ErrKeyNotFound indicates no derived key exists for the requested
	// (domain, tier) pair. Distinct from ErrIntegrityViolation so callers can
	// tell unavailability apart from tampering.
	ErrKeyNotFound = errors.Wrap(errors.ErrNotFound, "derived key not found")

	// ErrMalformedEnvelope indicates an envelope could not be decoded from its
	// serialized form.
	ErrMalformedEnvelope = errors.Wrap(errors.ErrInvalidInput, "malformed envelope")

	// ErrInvalidTier indicates an unknown data sensitivity tier.
	ErrInvalidTier = errors.Wrap(errors.ErrInvalidInput, "invalid tier")

	// ErrInvalidKeySize indicates key material of the wrong length. All keys
	// are exactly 32 bytes (256 bits).
	ErrInvalidKeySize = errors.Wrap(errors.ErrInvalidInput, "invalid key size")

	// ErrUnsupportedAlgorithm indicates the requested AEAD algorithm is not
	// supported. Supported: AESGCM (AES-256-GCM), ChaCha20 (ChaCha20-Poly1305).
	ErrUnsupportedAlgorithm = errors.Wrap(errors.ErrInvalidInput, "unsupported algorithm")

	// ErrNotInitialized indicates the key hierarchy was used before Initialize.
	ErrNotInitialized = errors.Wrap(errors.ErrUnavailable, "key hierarchy not initialized")
)
