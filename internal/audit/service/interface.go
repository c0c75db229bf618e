// Package service provides the tamper sealer and payload compressor used by
// the audit encryptor.
package service

import (
	auditdomain "github.com/havenhealth/securecore/internal/audit/domain"
)

// TamperSealer computes and verifies the tamper-detection digest sealed into
// every encrypted audit record.
type TamperSealer interface {
	// Seal returns the digest over the record's envelope bytes, id,
	// timestamp, and event type.
	Seal(record *auditdomain.EncryptedAuditRecord) ([]byte, error)

	// Verify reports whether the record's stored digest matches a freshly
	// computed one. A mismatch is not an error; the caller flags it.
	Verify(record *auditdomain.EncryptedAuditRecord) (bool, error)
}

// Compressor shrinks audit payloads before encryption and restores them
// after decryption.
type Compressor interface {
	Compress(data []byte) ([]byte, error)
	Decompress(data []byte) ([]byte, error)
}
