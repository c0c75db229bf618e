package service

import (
	cryptodomain "github.com/havenhealth/securecore/internal/crypto/domain"
)

// AEADManagerService implements the AEADManager interface for creating AEAD cipher instances.
type AEADManagerService struct{}

// NewAEADManager creates a new AEADManagerService.
func NewAEADManager() *AEADManagerService {
	return &AEADManagerService{}
}

// CreateCipher creates an AEAD cipher instance for the specified algorithm.
// Returns ErrInvalidKeySize if key is not 32 bytes or ErrUnsupportedAlgorithm if algorithm is unknown.
func (am *AEADManagerService) CreateCipher(key []byte, alg cryptodomain.Algorithm) (AEAD, error) {
	// Validate key size
	if len(key) != 32 {
		return nil, cryptodomain.ErrInvalidKeySize
	}

	// Create cipher based on algorithm
	switch alg {
	case cryptodomain.AESGCM:
		return NewAESGCM(key)
	case cryptodomain.ChaCha20:
		return NewChaCha20Poly1305(key)
	default:
		return nil, cryptodomain.ErrUnsupportedAlgorithm
	}
}
