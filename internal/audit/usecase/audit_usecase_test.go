package usecase

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auditdomain "github.com/havenhealth/securecore/internal/audit/domain"
	auditrepo "github.com/havenhealth/securecore/internal/audit/repository"
	auditservice "github.com/havenhealth/securecore/internal/audit/service"
	cryptodomain "github.com/havenhealth/securecore/internal/crypto/domain"
	cryptorepo "github.com/havenhealth/securecore/internal/crypto/repository"
	cryptoservice "github.com/havenhealth/securecore/internal/crypto/service"
	cryptousecase "github.com/havenhealth/securecore/internal/crypto/usecase"
	"github.com/havenhealth/securecore/internal/storage"
)

type auditFixture struct {
	encryptor AuditEncryptor
	repo      *auditrepo.BoltAuditRepository
}

func newAuditFixture(t *testing.T) *auditFixture {
	t.Helper()

	store, err := storage.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	credentials, err := cryptoservice.NewFileCredentialStore(t.TempDir())
	require.NoError(t, err)

	hierarchy := cryptousecase.NewKeyHierarchyUseCase(
		credentials,
		cryptoservice.NewPBKDF2KeyDeriver(cryptoservice.MinKeyDerivationIterations),
		cryptoservice.NewAEADManager(),
		cryptorepo.NewBoltRotationRepository(store),
		cryptousecase.RotationIntervals{
			Crisis:   90 * 24 * time.Hour,
			Personal: 180 * 24 * time.Hour,
			Payment:  30 * 24 * time.Hour,
		},
		slog.New(slog.DiscardHandler),
	)
	require.NoError(t, hierarchy.Initialize(context.Background()))

	repo := auditrepo.NewBoltAuditRepository(store)
	encryptor := NewAuditUseCase(
		credentials,
		hierarchy,
		auditservice.NewGzipCompressor(),
		repo,
		slog.New(slog.DiscardHandler),
	)
	require.NoError(t, encryptor.Initialize(context.Background()))

	return &auditFixture{encryptor: encryptor, repo: repo}
}

func TestAuditUseCase_RequiresInitialize(t *testing.T) {
	encryptor := NewAuditUseCase(nil, nil, auditservice.NewGzipCompressor(), nil, slog.New(slog.DiscardHandler))

	assert.False(t, encryptor.Active())
	event := auditdomain.NewAuditEvent("key_rotation", cryptodomain.TierClinical, "cli", nil)
	err := encryptor.Record(context.Background(), event)
	assert.ErrorIs(t, err, auditdomain.ErrAuditUnavailable)
}

func TestAuditUseCase_RecordAndDecrypt(t *testing.T) {
	fixture := newAuditFixture(t)
	ctx := context.Background()

	event := auditdomain.NewAuditEvent("emergency_access_check", cryptodomain.TierCrisis, "coordinator", map[string]any{
		"latency_ms": 12.0,
	})
	require.NoError(t, fixture.encryptor.Record(ctx, event))

	t.Run("decrypt with justification", func(t *testing.T) {
		result, err := fixture.encryptor.Decrypt(ctx, event.ID, auditdomain.JustificationComplianceAudit)
		require.NoError(t, err)
		assert.False(t, result.TamperDetected)
		assert.Equal(t, event.ID, result.Event.ID)
		assert.Equal(t, "emergency_access_check", result.Event.EventType)
		assert.Equal(t, cryptodomain.TierCrisis, result.Event.Tier)
		assert.Equal(t, 12.0, result.Event.OperationMetadata["latency_ms"])
	})

	t.Run("decrypt without justification is refused", func(t *testing.T) {
		_, err := fixture.encryptor.Decrypt(ctx, event.ID, auditdomain.AccessJustification(""))
		assert.ErrorIs(t, err, auditdomain.ErrJustificationRequired)

		_, err = fixture.encryptor.Decrypt(ctx, event.ID, auditdomain.AccessJustification("curiosity"))
		assert.ErrorIs(t, err, auditdomain.ErrJustificationRequired)
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := fixture.encryptor.Decrypt(ctx, uuid.Must(uuid.NewV7()), auditdomain.JustificationCrisisResponse)
		assert.ErrorIs(t, err, auditdomain.ErrEventNotFound)
	})
}

func TestAuditUseCase_TierEscalation(t *testing.T) {
	fixture := newAuditFixture(t)
	ctx := context.Background()

	t.Run("weak tiers stored at clinical", func(t *testing.T) {
		event := auditdomain.NewAuditEvent("token_created", cryptodomain.TierSystem, "payment", nil)
		require.NoError(t, fixture.encryptor.Record(ctx, event))

		record, err := fixture.repo.Get(ctx, event.ID)
		require.NoError(t, err)
		assert.Equal(t, cryptodomain.TierClinical, record.Tier)
	})

	t.Run("crisis tier is preserved", func(t *testing.T) {
		event := auditdomain.NewAuditEvent("crisis_access", cryptodomain.TierCrisis, "coordinator", nil)
		require.NoError(t, fixture.encryptor.Record(ctx, event))

		record, err := fixture.repo.Get(ctx, event.ID)
		require.NoError(t, err)
		assert.Equal(t, cryptodomain.TierCrisis, record.Tier)
	})
}

func TestAuditUseCase_TamperDetection(t *testing.T) {
	fixture := newAuditFixture(t)
	ctx := context.Background()

	event := auditdomain.NewAuditEvent("key_rotation", cryptodomain.TierClinical, "cli", nil)
	require.NoError(t, fixture.encryptor.Record(ctx, event))

	// Rewrite the stored record with an altered event type. Append shares the
	// id, so this overwrites in place the way on-disk tampering would.
	record, err := fixture.repo.Get(ctx, event.ID)
	require.NoError(t, err)
	record.EventType = "routine_cleanup"
	require.NoError(t, fixture.repo.Append(ctx, record))

	t.Run("decrypt flags tampering without discarding", func(t *testing.T) {
		result, err := fixture.encryptor.Decrypt(ctx, event.ID, auditdomain.JustificationSecurityInvestigation)
		require.NoError(t, err)
		assert.True(t, result.TamperDetected)
		assert.Equal(t, "key_rotation", result.Event.EventType)
	})

	t.Run("verify reports the tampered record", func(t *testing.T) {
		report, err := fixture.encryptor.Verify(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, report.Checked)
		assert.Equal(t, []uuid.UUID{event.ID}, report.Tampered)
	})
}

func TestAuditUseCase_Query(t *testing.T) {
	fixture := newAuditFixture(t)
	ctx := context.Background()

	first := auditdomain.NewAuditEvent("token_created", cryptodomain.TierPersonal, "payment", nil)
	first.Timestamp = time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	second := auditdomain.NewAuditEvent("key_rotation", cryptodomain.TierClinical, "cli", nil)
	second.Timestamp = time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	require.NoError(t, fixture.encryptor.Record(ctx, first))
	require.NoError(t, fixture.encryptor.Record(ctx, second))

	records, err := fixture.encryptor.Query(ctx,
		time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		"",
	)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, first.ID, records[0].ID)

	records, err = fixture.encryptor.Query(ctx, time.Time{}, time.Now().UTC(), "")
	require.NoError(t, err)
	assert.Len(t, records, 2)

	// Both events store at their escalated tiers, so a storage-tier filter
	// only matches the clinical records.
	records, err = fixture.encryptor.Query(ctx, time.Time{}, time.Now().UTC(), cryptodomain.TierClinical)
	require.NoError(t, err)
	assert.Len(t, records, 2)

	records, err = fixture.encryptor.Query(ctx, time.Time{}, time.Now().UTC(), cryptodomain.TierCrisis)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestAuditUseCase_CleanupExpired(t *testing.T) {
	fixture := newAuditFixture(t)
	ctx := context.Background()

	expired := auditdomain.NewAuditEvent("token_created", cryptodomain.TierPersonal, "payment", nil)
	expired.Timestamp = time.Now().UTC().AddDate(-2, 0, 0)
	expired.Compliance.RetentionDays = 365
	require.NoError(t, fixture.encryptor.Record(ctx, expired))

	retained := auditdomain.NewAuditEvent("crisis_access", cryptodomain.TierCrisis, "coordinator", nil)
	require.NoError(t, fixture.encryptor.Record(ctx, retained))

	report, err := fixture.encryptor.CleanupExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Examined)
	assert.Equal(t, 1, report.Deleted)

	_, err = fixture.repo.Get(ctx, expired.ID)
	assert.ErrorIs(t, err, auditdomain.ErrEventNotFound)

	// The sweep itself is on the record: retained event plus the cleanup event.
	count, err := fixture.repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	t.Run("idempotent when nothing is expired", func(t *testing.T) {
		report, err := fixture.encryptor.CleanupExpired(ctx)
		require.NoError(t, err)
		assert.Zero(t, report.Deleted)
	})
}
