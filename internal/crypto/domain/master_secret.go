package domain

import (
	"crypto/rand"
	"fmt"
	"time"
)

// MasterSecretSize is the required master secret length in bytes (256 bits).
const MasterSecretSize = 32

// MasterSecret is the root secret of a key domain's hierarchy. It exists for
// the lifetime of the installation, is regenerated on rotation, and is owned
// exclusively by the key hierarchy manager. It must never be persisted outside
// the platform credential store or logged.
type MasterSecret struct {
	Domain    KeyDomain
	Secret    []byte
	CreatedAt time.Time
}

// NewMasterSecret generates a fresh high-entropy master secret for the domain.
func NewMasterSecret(domain KeyDomain) (*MasterSecret, error) {
	secret := make([]byte, MasterSecretSize)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("failed to generate master secret: %w", err)
	}
	return &MasterSecret{
		Domain:    domain,
		Secret:    secret,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// Wipe clears the secret bytes from memory.
func (m *MasterSecret) Wipe() {
	Zero(m.Secret)
	m.Secret = nil
}
