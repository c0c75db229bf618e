// Package usecase implements the encrypted audit trail: tier-escalated
// envelope encryption, tamper sealing, justified decryption, retention
// cleanup, and full-trail verification.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	auditdomain "github.com/havenhealth/securecore/internal/audit/domain"
	cryptodomain "github.com/havenhealth/securecore/internal/crypto/domain"
)

// VerificationReport summarizes a full-trail tamper check.
type VerificationReport struct {
	Checked  int
	Tampered []uuid.UUID
}

// CleanupReport summarizes a retention sweep.
type CleanupReport struct {
	Examined int
	Deleted  int
}

// AuditEncryptor is the audit sink consumed by the coordinator and the
// payment domain, plus the read-side operations used by the CLI.
type AuditEncryptor interface {
	// Initialize loads or creates the sealing secret from the credential
	// store. Must be called after the key hierarchy is initialized.
	Initialize(ctx context.Context) error

	// Record encrypts, seals, and appends one event. The event's tier is
	// escalated to at least CLINICAL for storage.
	Record(ctx context.Context, event *auditdomain.AuditEvent) error

	// Decrypt returns the decrypted event for an id. A valid justification is
	// mandatory. Tamper digest mismatches set TamperDetected on the result
	// instead of failing.
	Decrypt(ctx context.Context, id uuid.UUID, justification auditdomain.AccessJustification) (*auditdomain.DecryptedAuditRecord, error)

	// Query returns encrypted records in [from, to] without decrypting them.
	// An empty tier matches all tiers.
	Query(ctx context.Context, from, to time.Time, tier cryptodomain.Tier) ([]*auditdomain.EncryptedAuditRecord, error)

	// Verify recomputes every record's tamper digest and reports mismatches.
	Verify(ctx context.Context) (*VerificationReport, error)

	// CleanupExpired deletes records past retention and appends a deletion
	// event describing the sweep.
	CleanupExpired(ctx context.Context) (*CleanupReport, error)

	// Active reports whether the sink can accept events.
	Active() bool
}

// AuditRepository persists encrypted audit records.
type AuditRepository interface {
	Append(ctx context.Context, record *auditdomain.EncryptedAuditRecord) error
	Get(ctx context.Context, id uuid.UUID) (*auditdomain.EncryptedAuditRecord, error)
	Query(ctx context.Context, from, to time.Time) ([]*auditdomain.EncryptedAuditRecord, error)
	ListExpired(ctx context.Context, now time.Time) ([]*auditdomain.EncryptedAuditRecord, error)
	Delete(ctx context.Context, ids []uuid.UUID) error
	Count(ctx context.Context) (int, error)
}
