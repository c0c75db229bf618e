package service

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cryptodomain "github.com/havenhealth/securecore/internal/crypto/domain"
)

func randomKey(t *testing.T) []byte {
	t.Helper()
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	return key
}

func TestAEADManagerService_CreateCipher(t *testing.T) {
	manager := NewAEADManager()
	key := randomKey(t)

	t.Run("aes-gcm", func(t *testing.T) {
		cipher, err := manager.CreateCipher(key, cryptodomain.AESGCM)
		require.NoError(t, err)
		assert.IsType(t, &AESGCMCipher{}, cipher)
	})

	t.Run("chacha20-poly1305", func(t *testing.T) {
		cipher, err := manager.CreateCipher(key, cryptodomain.ChaCha20)
		require.NoError(t, err)
		assert.IsType(t, &ChaCha20Poly1305Cipher{}, cipher)
	})

	t.Run("invalid key size", func(t *testing.T) {
		_, err := manager.CreateCipher(make([]byte, 16), cryptodomain.AESGCM)
		assert.ErrorIs(t, err, cryptodomain.ErrInvalidKeySize)
	})

	t.Run("unsupported algorithm", func(t *testing.T) {
		_, err := manager.CreateCipher(key, cryptodomain.Algorithm("des"))
		assert.ErrorIs(t, err, cryptodomain.ErrUnsupportedAlgorithm)
	})
}

func TestAEADRoundTrip(t *testing.T) {
	manager := NewAEADManager()
	key := randomKey(t)
	plaintext := []byte("safety plan contents")
	aad := []byte("crisis")

	for _, alg := range []cryptodomain.Algorithm{cryptodomain.AESGCM, cryptodomain.ChaCha20} {
		t.Run(string(alg), func(t *testing.T) {
			cipher, err := manager.CreateCipher(key, alg)
			require.NoError(t, err)

			ciphertext, nonce, err := cipher.Encrypt(plaintext, aad)
			require.NoError(t, err)
			assert.Len(t, nonce, 12)
			// ciphertext carries the 16-byte auth tag
			assert.Len(t, ciphertext, len(plaintext)+16)

			decrypted, err := cipher.Decrypt(ciphertext, nonce, aad)
			require.NoError(t, err)
			assert.Equal(t, plaintext, decrypted)
		})
	}
}

func TestAEADTamperDetection(t *testing.T) {
	manager := NewAEADManager()
	key := randomKey(t)
	plaintext := []byte("tamper target")

	for _, alg := range []cryptodomain.Algorithm{cryptodomain.AESGCM, cryptodomain.ChaCha20} {
		t.Run(string(alg), func(t *testing.T) {
			cipher, err := manager.CreateCipher(key, alg)
			require.NoError(t, err)

			ciphertext, nonce, err := cipher.Encrypt(plaintext, nil)
			require.NoError(t, err)

			// Flipping any single bit must fail authentication.
			for _, pos := range []int{0, len(ciphertext) / 2, len(ciphertext) - 1} {
				corrupted := append([]byte(nil), ciphertext...)
				corrupted[pos] ^= 0x01
				_, err := cipher.Decrypt(corrupted, nonce, nil)
				assert.Error(t, err, "bit flip at %d", pos)
			}
		})
	}
}

func TestAEADWrongAAD(t *testing.T) {
	manager := NewAEADManager()
	cipher, err := manager.CreateCipher(randomKey(t), cryptodomain.AESGCM)
	require.NoError(t, err)

	ciphertext, nonce, err := cipher.Encrypt([]byte("data"), []byte("clinical"))
	require.NoError(t, err)

	_, err = cipher.Decrypt(ciphertext, nonce, []byte("personal"))
	assert.Error(t, err)
}

func TestAEADNonceUniqueness(t *testing.T) {
	cipher, err := NewAESGCM(randomKey(t))
	require.NoError(t, err)

	seen := make(map[string]bool)
	for range 100 {
		_, nonce, err := cipher.Encrypt([]byte("x"), nil)
		require.NoError(t, err)
		assert.False(t, seen[string(nonce)], "nonce reuse")
		seen[string(nonce)] = true
	}
}
