package domain

import (
	"time"

	"github.com/google/uuid"

	cryptodomain "github.com/havenhealth/securecore/internal/crypto/domain"
)

// Retention defaults in days. Crisis and clinical events carry
// regulatory-grade retention.
const (
	DefaultRetentionDays    = 365
	RegulatoryRetentionDays = 2555 // 7 years
)

// ComplianceMarkers carries the retention and audit flags attached to an event.
type ComplianceMarkers struct {
	RetentionDays int  `json:"retention_days"`
	AuditRequired bool `json:"audit_required"`
}

// AuditEvent is one append-only audit record before encryption. Once
// encrypted it is sealed with a tamper-detection digest and never modified.
type AuditEvent struct {
	ID                uuid.UUID          `json:"id"`
	EventType         string             `json:"event_type"`
	Tier              cryptodomain.Tier  `json:"tier"`
	Actor             string             `json:"actor"`
	Timestamp         time.Time          `json:"timestamp"`
	OperationMetadata map[string]any     `json:"operation_metadata,omitempty"`
	Compliance        ComplianceMarkers  `json:"compliance"`
}

// NewAuditEvent creates an event with a time-ordered ID and tier-appropriate
// compliance markers.
func NewAuditEvent(eventType string, tier cryptodomain.Tier, actor string, metadata map[string]any) *AuditEvent {
	retention := DefaultRetentionDays
	if tier.RequiresAudit() {
		retention = RegulatoryRetentionDays
	}
	return &AuditEvent{
		ID:                uuid.Must(uuid.NewV7()),
		EventType:         eventType,
		Tier:              tier,
		Actor:             actor,
		Timestamp:         time.Now().UTC(),
		OperationMetadata: metadata,
		Compliance: ComplianceMarkers{
			RetentionDays: retention,
			AuditRequired: tier.RequiresAudit(),
		},
	}
}

// StorageTier returns the tier whose key encrypts this event. Crisis and
// clinical events never drop below the clinical key, whatever tier the
// triggering operation ran at.
func (e *AuditEvent) StorageTier() cryptodomain.Tier {
	return e.Tier.Escalate(cryptodomain.TierClinical)
}

// ExpiresAt returns the end of the event's retention window.
func (e *AuditEvent) ExpiresAt() time.Time {
	return e.Timestamp.AddDate(0, 0, e.Compliance.RetentionDays)
}

// EncryptedAuditRecord is the persisted form of an event: the encoded
// envelope plus the plaintext fields needed for querying and tamper
// verification. The digest covers (ciphertext, id, timestamp, event type).
type EncryptedAuditRecord struct {
	ID            uuid.UUID         `json:"id"`
	EventType     string            `json:"event_type"`
	Tier          cryptodomain.Tier `json:"tier"`
	Timestamp     time.Time         `json:"timestamp"`
	Envelope      []byte            `json:"envelope"`
	TamperHash    []byte            `json:"tamper_hash"`
	RetentionDays int               `json:"retention_days"`
}

// Expired reports whether the record is past its retention window.
func (r *EncryptedAuditRecord) Expired(now time.Time) bool {
	return now.After(r.Timestamp.AddDate(0, 0, r.RetentionDays))
}

// DecryptedAuditRecord is the result of decrypting a stored record. A tamper
// digest mismatch is flagged, never silently discarded.
type DecryptedAuditRecord struct {
	Event          *AuditEvent
	TamperDetected bool
}
