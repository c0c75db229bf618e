package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	auditdomain "github.com/havenhealth/securecore/internal/audit/domain"
	cryptodomain "github.com/havenhealth/securecore/internal/crypto/domain"
)

// hkdf info string, versioned so the digest scheme can change without
// invalidating existing records silently.
const sealingKeyInfo = "audit-event-sealing-v1"

type hmacSealer struct {
	sealingKey []byte
}

// NewHMACSealer creates a tamper sealer whose HMAC-SHA256 key is derived
// from the given secret with HKDF-SHA256. The secret is wiped by the caller;
// the derived key lives as long as the sealer.
func NewHMACSealer(secret []byte) (TamperSealer, error) {
	sealingKey := make([]byte, 32)
	reader := hkdf.New(sha256.New, secret, nil, []byte(sealingKeyInfo))
	if _, err := io.ReadFull(reader, sealingKey); err != nil {
		return nil, fmt.Errorf("failed to derive sealing key: %w", err)
	}
	return &hmacSealer{sealingKey: sealingKey}, nil
}

// canonicalize converts a record to its canonical byte representation.
// Format: id || event_type || timestamp || envelope, with variable-length
// fields length-prefixed to prevent ambiguity.
func (s *hmacSealer) canonicalize(record *auditdomain.EncryptedAuditRecord) []byte {
	buf := make([]byte, 0, 256+len(record.Envelope))

	buf = append(buf, record.ID[:]...)
	buf = appendLengthPrefixed(buf, []byte(record.EventType))

	timeBytes := make([]byte, 8)
	binary.BigEndian.PutUint64(timeBytes, uint64(record.Timestamp.UnixNano()))
	buf = append(buf, timeBytes...)

	buf = appendLengthPrefixed(buf, record.Envelope)
	return buf
}

// appendLengthPrefixed adds a 4-byte big-endian length prefix followed by data.
func appendLengthPrefixed(buf []byte, data []byte) []byte {
	length := make([]byte, 4)
	binary.BigEndian.PutUint32(length, uint32(len(data)))
	buf = append(buf, length...)
	return append(buf, data...)
}

// Seal generates the HMAC-SHA256 digest for the record.
func (s *hmacSealer) Seal(record *auditdomain.EncryptedAuditRecord) ([]byte, error) {
	mac := hmac.New(sha256.New, s.sealingKey)
	mac.Write(s.canonicalize(record))
	return mac.Sum(nil), nil
}

// Verify recomputes the digest and compares it in constant time against the
// record's stored one.
func (s *hmacSealer) Verify(record *auditdomain.EncryptedAuditRecord) (bool, error) {
	expected, err := s.Seal(record)
	if err != nil {
		return false, err
	}
	return hmac.Equal(record.TamperHash, expected), nil
}

// Wipe clears the derived sealing key. The sealer is unusable afterwards.
func (s *hmacSealer) Wipe() {
	cryptodomain.Zero(s.sealingKey)
}
