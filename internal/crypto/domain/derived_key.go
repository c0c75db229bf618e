package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// DerivedKeySize is the derived key length in bytes (256 bits).
const DerivedKeySize = 32

// DerivedKey is one per-(domain, tier) encryption key, deterministically
// derived from the domain's master secret plus a domain/tier salt via a slow
// KDF. Two tiers never share a derived key, and payment-domain keys never
// equal primary-domain keys.
//
// The Key field holds plaintext key material and must be wiped when the key
// is retired. Only the fingerprint is ever persisted.
type DerivedKey struct {
	Domain    KeyDomain
	Tier      Tier
	Key       []byte
	CreatedAt time.Time
}

// Fingerprint returns the hex-encoded SHA-256 of the key material. Safe to
// persist and compare; the key itself never leaves memory.
func (k *DerivedKey) Fingerprint() string {
	sum := sha256.Sum256(k.Key)
	return hex.EncodeToString(sum[:])
}

// Wipe clears the key material from memory.
func (k *DerivedKey) Wipe() {
	Zero(k.Key)
	k.Key = nil
}

// DerivedKeyMetadata is the persisted record of a derived key: its fingerprint
// and creation time, never the key material.
type DerivedKeyMetadata struct {
	Domain      KeyDomain `json:"domain"`
	Tier        Tier      `json:"tier"`
	Fingerprint string    `json:"fingerprint"`
	CreatedAt   time.Time `json:"created_at"`
}
