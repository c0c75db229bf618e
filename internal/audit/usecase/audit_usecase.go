package usecase

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	auditdomain "github.com/havenhealth/securecore/internal/audit/domain"
	auditservice "github.com/havenhealth/securecore/internal/audit/service"
	cryptodomain "github.com/havenhealth/securecore/internal/crypto/domain"
	cryptoservice "github.com/havenhealth/securecore/internal/crypto/service"
	cryptousecase "github.com/havenhealth/securecore/internal/crypto/usecase"
	apperrors "github.com/havenhealth/securecore/internal/errors"
)

// sealingSecretKey is the credential-store entry holding the tamper-sealing
// secret. Kept separate from the master secrets so rotating encryption keys
// does not invalidate digests on existing records.
const sealingSecretKey = "securecore-audit-seal"

// eventTypeRetentionCleanup marks the event appended after a retention sweep.
const eventTypeRetentionCleanup = "audit_retention_cleanup"

type auditUseCase struct {
	credentials cryptoservice.CredentialStore
	hierarchy   cryptousecase.KeyHierarchy
	compressor  auditservice.Compressor
	repo        AuditRepository
	logger      *slog.Logger

	mu     sync.RWMutex
	sealer auditservice.TamperSealer
}

// NewAuditUseCase creates the audit encryptor. Initialize must run before
// events are recorded.
func NewAuditUseCase(
	credentials cryptoservice.CredentialStore,
	hierarchy cryptousecase.KeyHierarchy,
	compressor auditservice.Compressor,
	repo AuditRepository,
	logger *slog.Logger,
) AuditEncryptor {
	return &auditUseCase{
		credentials: credentials,
		hierarchy:   hierarchy,
		compressor:  compressor,
		repo:        repo,
		logger:      logger,
	}
}

// Initialize loads the sealing secret from the credential store, creating it
// on first run, and derives the sealer's HMAC key from it.
func (u *auditUseCase) Initialize(_ context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.sealer != nil {
		return nil
	}

	secret, err := u.credentials.Get(sealingSecretKey)
	if err != nil {
		if !apperrors.Is(err, apperrors.ErrNotFound) {
			return apperrors.Wrap(cryptodomain.ErrCredentialStoreUnavailable, "load sealing secret")
		}
		fresh := make([]byte, cryptodomain.MasterSecretSize)
		if _, err := rand.Read(fresh); err != nil {
			return fmt.Errorf("failed to generate sealing secret: %w", err)
		}
		if err := u.credentials.Set(sealingSecretKey, fresh); err != nil {
			cryptodomain.Zero(fresh)
			return apperrors.Wrap(cryptodomain.ErrCredentialStoreUnavailable, "store sealing secret")
		}
		secret = fresh
	}
	defer cryptodomain.Zero(secret)

	sealer, err := auditservice.NewHMACSealer(secret)
	if err != nil {
		return fmt.Errorf("failed to create tamper sealer: %w", err)
	}
	u.sealer = sealer

	u.logger.Info("audit sink initialized")
	return nil
}

// Active reports whether the sink can accept events.
func (u *auditUseCase) Active() bool {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.sealer != nil
}

// Record encrypts, seals, and appends one event.
func (u *auditUseCase) Record(ctx context.Context, event *auditdomain.AuditEvent) error {
	u.mu.RLock()
	sealer := u.sealer
	u.mu.RUnlock()
	if sealer == nil {
		return auditdomain.ErrAuditUnavailable
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal audit event: %w", err)
	}
	compressed, err := u.compressor.Compress(payload)
	if err != nil {
		return err
	}

	envelope, err := u.hierarchy.Encrypt(cryptodomain.DomainPrimary, event.StorageTier(), compressed)
	if err != nil {
		return err
	}

	record := &auditdomain.EncryptedAuditRecord{
		ID:            event.ID,
		EventType:     event.EventType,
		Tier:          envelope.Tier,
		Timestamp:     event.Timestamp,
		Envelope:      envelope.Encode(),
		RetentionDays: event.Compliance.RetentionDays,
	}
	record.TamperHash, err = sealer.Seal(record)
	if err != nil {
		return fmt.Errorf("failed to seal audit record: %w", err)
	}

	if err := u.repo.Append(ctx, record); err != nil {
		return err
	}

	u.logger.Info("audit event recorded",
		slog.String("event_id", event.ID.String()),
		slog.String("event_type", event.EventType),
		slog.String("tier", string(envelope.Tier)),
	)
	return nil
}

// Decrypt returns the decrypted event for an id. Tamper mismatches are
// flagged on the result, never silently discarded.
func (u *auditUseCase) Decrypt(
	ctx context.Context,
	id uuid.UUID,
	justification auditdomain.AccessJustification,
) (*auditdomain.DecryptedAuditRecord, error) {
	u.mu.RLock()
	sealer := u.sealer
	u.mu.RUnlock()
	if sealer == nil {
		return nil, auditdomain.ErrAuditUnavailable
	}
	if !justification.IsValid() {
		return nil, auditdomain.ErrJustificationRequired
	}

	record, err := u.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	intact, err := sealer.Verify(record)
	if err != nil {
		return nil, err
	}
	if !intact {
		u.logger.Warn("audit record failed tamper verification",
			slog.String("event_id", id.String()),
			slog.String("justification", justification.String()),
		)
	}

	envelope, err := cryptodomain.DecodeEnvelope(record.Envelope)
	if err != nil {
		return nil, err
	}
	compressed, err := u.hierarchy.Decrypt(cryptodomain.DomainPrimary, envelope)
	if err != nil {
		return nil, err
	}
	payload, err := u.compressor.Decompress(compressed)
	if err != nil {
		return nil, err
	}

	event := &auditdomain.AuditEvent{}
	if err := json.Unmarshal(payload, event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal audit event: %w", err)
	}

	u.logger.Info("audit event decrypted",
		slog.String("event_id", id.String()),
		slog.String("justification", justification.String()),
	)
	return &auditdomain.DecryptedAuditRecord{Event: event, TamperDetected: !intact}, nil
}

// Query returns encrypted records in [from, to] without decrypting them. An
// empty tier matches all tiers; the filter applies to the record's storage
// tier, which is the event tier escalated to at least CLINICAL.
func (u *auditUseCase) Query(ctx context.Context, from, to time.Time, tier cryptodomain.Tier) ([]*auditdomain.EncryptedAuditRecord, error) {
	records, err := u.repo.Query(ctx, from, to)
	if err != nil || tier == "" {
		return records, err
	}
	filtered := make([]*auditdomain.EncryptedAuditRecord, 0, len(records))
	for _, record := range records {
		if record.Tier == tier {
			filtered = append(filtered, record)
		}
	}
	return filtered, nil
}

// Verify recomputes every record's digest and collects mismatches.
func (u *auditUseCase) Verify(ctx context.Context) (*VerificationReport, error) {
	u.mu.RLock()
	sealer := u.sealer
	u.mu.RUnlock()
	if sealer == nil {
		return nil, auditdomain.ErrAuditUnavailable
	}

	records, err := u.repo.Query(ctx, time.Time{}, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	report := &VerificationReport{}
	for _, record := range records {
		report.Checked++
		intact, err := sealer.Verify(record)
		if err != nil {
			return nil, err
		}
		if !intact {
			report.Tampered = append(report.Tampered, record.ID)
		}
	}
	return report, nil
}

// CleanupExpired deletes records past retention and records the sweep itself
// as an audit event.
func (u *auditUseCase) CleanupExpired(ctx context.Context) (*CleanupReport, error) {
	now := time.Now().UTC()
	expired, err := u.repo.ListExpired(ctx, now)
	if err != nil {
		return nil, err
	}

	report := &CleanupReport{Examined: len(expired)}
	if len(expired) == 0 {
		return report, nil
	}

	ids := make([]uuid.UUID, 0, len(expired))
	for _, record := range expired {
		ids = append(ids, record.ID)
	}
	if err := u.repo.Delete(ctx, ids); err != nil {
		return nil, err
	}
	report.Deleted = len(ids)

	sweep := auditdomain.NewAuditEvent(eventTypeRetentionCleanup, cryptodomain.TierClinical, "retention-sweep", map[string]any{
		"deleted_count": report.Deleted,
		"swept_at":      now.Format(time.RFC3339),
	})
	if err := u.Record(ctx, sweep); err != nil {
		return nil, err
	}

	u.logger.Info("audit retention sweep completed", slog.Int("deleted", report.Deleted))
	return report, nil
}
