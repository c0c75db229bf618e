package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptedEnvelope_EncodeDecode(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		envelope := &EncryptedEnvelope{
			Tier:       TierClinical,
			Nonce:      []byte("twelve-bytes"),
			Ciphertext: []byte("ciphertext-with-tag-appended"),
			CreatedAt:  time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC),
		}

		decoded, err := DecodeEnvelope(envelope.Encode())
		require.NoError(t, err)

		assert.Equal(t, envelope.Tier, decoded.Tier)
		assert.Equal(t, envelope.Nonce, decoded.Nonce)
		assert.Equal(t, envelope.Ciphertext, decoded.Ciphertext)
		assert.Equal(t, envelope.CreatedAt, decoded.CreatedAt)
	})

	t.Run("passthrough envelope has empty nonce", func(t *testing.T) {
		envelope := &EncryptedEnvelope{
			Tier:       TierSystem,
			Ciphertext: []byte("plaintext"),
			CreatedAt:  time.Now().UTC().Truncate(time.Second),
		}
		assert.True(t, envelope.IsPassthrough())

		decoded, err := DecodeEnvelope(envelope.Encode())
		require.NoError(t, err)
		assert.True(t, decoded.IsPassthrough())
		assert.Empty(t, decoded.Nonce)
	})

	t.Run("truncated input", func(t *testing.T) {
		envelope := &EncryptedEnvelope{
			Tier:       TierPersonal,
			Nonce:      []byte("twelve-bytes"),
			Ciphertext: []byte("ciphertext"),
			CreatedAt:  time.Now().UTC(),
		}
		encoded := envelope.Encode()

		for _, cut := range []int{1, 2, 10, len(encoded) - 1} {
			_, err := DecodeEnvelope(encoded[:cut])
			assert.ErrorIs(t, err, ErrMalformedEnvelope, "cut at %d", cut)
		}
	})

	t.Run("unknown version", func(t *testing.T) {
		encoded := (&EncryptedEnvelope{Tier: TierPersonal, CreatedAt: time.Now()}).Encode()
		encoded[0] = 99
		_, err := DecodeEnvelope(encoded)
		assert.ErrorIs(t, err, ErrMalformedEnvelope)
	})

	t.Run("unknown tier", func(t *testing.T) {
		encoded := (&EncryptedEnvelope{Tier: Tier("bogus"), CreatedAt: time.Now()}).Encode()
		_, err := DecodeEnvelope(encoded)
		assert.ErrorIs(t, err, ErrMalformedEnvelope)
	})

	t.Run("trailing garbage", func(t *testing.T) {
		encoded := (&EncryptedEnvelope{Tier: TierPersonal, CreatedAt: time.Now()}).Encode()
		_, err := DecodeEnvelope(append(encoded, 0x00))
		assert.ErrorIs(t, err, ErrMalformedEnvelope)
	})
}

func TestKeyRotationRecord(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	t.Run("days until rotation", func(t *testing.T) {
		record := &KeyRotationRecord{
			Domain:           DomainPrimary,
			Tier:             TierCrisis,
			LastRotatedAt:    now.Add(-80 * 24 * time.Hour),
			RotationInterval: 90 * 24 * time.Hour,
		}
		assert.Equal(t, 10, record.DaysUntilRotation(now))
		assert.False(t, record.RotationDue(now))
	})

	t.Run("overdue", func(t *testing.T) {
		record := &KeyRotationRecord{
			Domain:           DomainPayment,
			Tier:             TierPersonal,
			LastRotatedAt:    now.Add(-40 * 24 * time.Hour),
			RotationInterval: 30 * 24 * time.Hour,
		}
		assert.Equal(t, -10, record.DaysUntilRotation(now))
		assert.True(t, record.RotationDue(now))
	})
}

func TestDerivedKey_Fingerprint(t *testing.T) {
	a := &DerivedKey{Domain: DomainPrimary, Tier: TierClinical, Key: []byte("0123456789abcdef0123456789abcdef")}
	b := &DerivedKey{Domain: DomainPrimary, Tier: TierClinical, Key: []byte("0123456789abcdef0123456789abcdeX")}

	assert.Len(t, a.Fingerprint(), 64)
	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())
}

func TestZero(t *testing.T) {
	key := []byte{1, 2, 3, 4}
	Zero(key)
	assert.Equal(t, []byte{0, 0, 0, 0}, key)
	Zero(nil) // must not panic
}
