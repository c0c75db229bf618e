package service

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auditdomain "github.com/havenhealth/securecore/internal/audit/domain"
	cryptodomain "github.com/havenhealth/securecore/internal/crypto/domain"
)

func testRecord() *auditdomain.EncryptedAuditRecord {
	return &auditdomain.EncryptedAuditRecord{
		ID:            uuid.Must(uuid.NewV7()),
		EventType:     "key_rotation",
		Tier:          cryptodomain.TierClinical,
		Timestamp:     time.Now().UTC(),
		Envelope:      []byte("encoded envelope bytes"),
		RetentionDays: auditdomain.RegulatoryRetentionDays,
	}
}

func TestHMACSealer(t *testing.T) {
	secret := []byte("0123456789abcdef0123456789abcdef")
	sealer, err := NewHMACSealer(secret)
	require.NoError(t, err)

	t.Run("seal and verify", func(t *testing.T) {
		record := testRecord()
		digest, err := sealer.Seal(record)
		require.NoError(t, err)
		assert.Len(t, digest, 32)

		record.TamperHash = digest
		ok, err := sealer.Verify(record)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("sealing is deterministic", func(t *testing.T) {
		record := testRecord()
		first, err := sealer.Seal(record)
		require.NoError(t, err)
		second, err := sealer.Seal(record)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("detects envelope tampering", func(t *testing.T) {
		record := testRecord()
		record.TamperHash, err = sealer.Seal(record)
		require.NoError(t, err)

		record.Envelope[0] ^= 0x01
		ok, err := sealer.Verify(record)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("detects metadata tampering", func(t *testing.T) {
		record := testRecord()
		record.TamperHash, err = sealer.Seal(record)
		require.NoError(t, err)

		record.EventType = "routine_cleanup"
		ok, err := sealer.Verify(record)
		require.NoError(t, err)
		assert.False(t, ok)

		record.EventType = "key_rotation"
		record.Timestamp = record.Timestamp.Add(time.Second)
		ok, err = sealer.Verify(record)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("different secrets produce different digests", func(t *testing.T) {
		other, err := NewHMACSealer([]byte("fedcba9876543210fedcba9876543210"))
		require.NoError(t, err)

		record := testRecord()
		first, err := sealer.Seal(record)
		require.NoError(t, err)
		second, err := other.Seal(record)
		require.NoError(t, err)
		assert.NotEqual(t, first, second)
	})
}

func TestGzipCompressor(t *testing.T) {
	compressor := NewGzipCompressor()

	t.Run("round trip", func(t *testing.T) {
		payload := []byte(`{"event_type":"emergency_access_check","actor":"coordinator"}`)
		compressed, err := compressor.Compress(payload)
		require.NoError(t, err)

		restored, err := compressor.Decompress(compressed)
		require.NoError(t, err)
		assert.Equal(t, payload, restored)
	})

	t.Run("rejects corrupt input", func(t *testing.T) {
		_, err := compressor.Decompress([]byte("not gzip"))
		assert.Error(t, err)
	})
}
