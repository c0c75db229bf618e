package service

import (
	"crypto/sha256"
	"time"

	"golang.org/x/crypto/pbkdf2"

	cryptodomain "github.com/havenhealth/securecore/internal/crypto/domain"
)

// MinKeyDerivationIterations is the floor for the slow KDF iteration count.
// Configurations below this are clamped up, never down.
const MinKeyDerivationIterations = 100000

// PBKDF2KeyDeriver implements KeyDeriver using PBKDF2-SHA256 with a
// domain/tier-specific salt. Derivation is a pure function of the master
// secret and the (domain, tier) pair: the same inputs always produce the same
// key, and no two (domain, tier) pairs can collide because the salt encodes
// both with a separator that cannot occur inside either label.
type PBKDF2KeyDeriver struct {
	iterations int
}

// NewPBKDF2KeyDeriver creates a key deriver with the given iteration count,
// clamped to MinKeyDerivationIterations.
func NewPBKDF2KeyDeriver(iterations int) *PBKDF2KeyDeriver {
	if iterations < MinKeyDerivationIterations {
		iterations = MinKeyDerivationIterations
	}
	return &PBKDF2KeyDeriver{iterations: iterations}
}

// DeriveKey derives the per-(domain, tier) key from the master secret.
// Returns ErrInvalidTier for unknown tiers and ErrInvalidKeySize when the
// master secret has the wrong length. The derived key is never logged.
func (d *PBKDF2KeyDeriver) DeriveKey(
	secret *cryptodomain.MasterSecret,
	tier cryptodomain.Tier,
) (*cryptodomain.DerivedKey, error) {
	if !tier.IsValid() {
		return nil, cryptodomain.ErrInvalidTier
	}
	if secret == nil || len(secret.Secret) != cryptodomain.MasterSecretSize {
		return nil, cryptodomain.ErrInvalidKeySize
	}

	salt := domainTierSalt(secret.Domain, tier)
	key := pbkdf2.Key(secret.Secret, salt, d.iterations, cryptodomain.DerivedKeySize, sha256.New)

	return &cryptodomain.DerivedKey{
		Domain:    secret.Domain,
		Tier:      tier,
		Key:       key,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// domainTierSalt builds the deterministic derivation salt for (domain, tier).
// The newline separator keeps "primary"+"crisis" distinct from any other
// concatenation of labels.
func domainTierSalt(domain cryptodomain.KeyDomain, tier cryptodomain.Tier) []byte {
	return []byte("securecore/v1\n" + string(domain) + "\n" + string(tier))
}
