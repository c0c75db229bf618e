package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auditdomain "github.com/havenhealth/securecore/internal/audit/domain"
	auditrepo "github.com/havenhealth/securecore/internal/audit/repository"
	auditservice "github.com/havenhealth/securecore/internal/audit/service"
	auditusecase "github.com/havenhealth/securecore/internal/audit/usecase"
	coordservice "github.com/havenhealth/securecore/internal/coordinator/service"
	coordusecase "github.com/havenhealth/securecore/internal/coordinator/usecase"
	cryptodomain "github.com/havenhealth/securecore/internal/crypto/domain"
	cryptorepo "github.com/havenhealth/securecore/internal/crypto/repository"
	cryptoservice "github.com/havenhealth/securecore/internal/crypto/service"
	cryptousecase "github.com/havenhealth/securecore/internal/crypto/usecase"
	"github.com/havenhealth/securecore/internal/storage"
)

type commandFixture struct {
	hierarchy   cryptousecase.KeyHierarchy
	audit       auditusecase.AuditEncryptor
	coordinator coordusecase.Coordinator
	logger      *slog.Logger
}

func newCommandFixture(t *testing.T) *commandFixture {
	t.Helper()

	store, err := storage.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	fallbackDir := t.TempDir()
	credentials, err := cryptoservice.NewFileCredentialStore(fallbackDir)
	require.NoError(t, err)

	logger := slog.New(slog.DiscardHandler)
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
		logger,
	)
	require.NoError(t, hierarchy.Initialize(context.Background()))

	audit := auditusecase.NewAuditUseCase(
		credentials,
		hierarchy,
		auditservice.NewGzipCompressor(),
		auditrepo.NewBoltAuditRepository(store),
		logger,
	)
	require.NoError(t, audit.Initialize(context.Background()))

	coordinator := coordusecase.NewCoordinatorUseCase(
		hierarchy,
		audit,
		coordservice.NewBoundaryValidator(hierarchy, audit, logger),
		coordservice.NewLockTable(),
		store,
		coordusecase.Timeouts{
			LockWait:        time.Second,
			Operation:       time.Second,
			EmergencyBudget: 200 * time.Millisecond,
		},
		fallbackDir,
		logger,
	)
	require.NoError(t, coordinator.Initialize(context.Background()))

	return &commandFixture{
		hierarchy:   hierarchy,
		audit:       audit,
		coordinator: coordinator,
		logger:      logger,
	}
}

func TestRunRotateKeys(t *testing.T) {
	fixture := newCommandFixture(t)
	ctx := context.Background()

	t.Run("rotate then complete", func(t *testing.T) {
		var buf bytes.Buffer
		err := RunRotateKeys(ctx, fixture.hierarchy, fixture.logger, &buf, "payment", false, "text")
		require.NoError(t, err)
		assert.Contains(t, buf.String(), "Rotation started for domain payment")

		buf.Reset()
		err = RunRotateKeys(ctx, fixture.hierarchy, fixture.logger, &buf, "payment", true, "text")
		require.NoError(t, err)
		assert.Contains(t, buf.String(), "previous keys wiped")
	})

	t.Run("json output", func(t *testing.T) {
		var buf bytes.Buffer
		err := RunRotateKeys(ctx, fixture.hierarchy, fixture.logger, &buf, "primary", false, "json")
		require.NoError(t, err)

		var result map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &result))
		assert.Equal(t, "primary", result["domain"])
		assert.Equal(t, "rotate", result["action"])
	})

	t.Run("unknown domain", func(t *testing.T) {
		var buf bytes.Buffer
		err := RunRotateKeys(ctx, fixture.hierarchy, fixture.logger, &buf, "billing", false, "text")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown key domain")
	})
}

func TestRunEmergencyCheck(t *testing.T) {
	fixture := newCommandFixture(t)

	var buf bytes.Buffer
	err := RunEmergencyCheck(context.Background(), fixture.coordinator, fixture.logger, &buf, "text")
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Accessible:      true")
}

func TestRunCleanAuditEvents(t *testing.T) {
	fixture := newCommandFixture(t)
	ctx := context.Background()

	var buf bytes.Buffer
	err := RunCleanAuditEvents(ctx, fixture.audit, fixture.logger, &buf, "json")
	require.NoError(t, err)

	var result map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &result))
	assert.Equal(t, float64(0), result["deleted"])
}

func TestRunVerifyAuditEvents(t *testing.T) {
	fixture := newCommandFixture(t)
	ctx := context.Background()

	event := auditdomain.NewAuditEvent("cli_test", cryptodomain.TierClinical, "tester", nil)
	require.NoError(t, fixture.audit.Record(ctx, event))

	var buf bytes.Buffer
	err := RunVerifyAuditEvents(ctx, fixture.audit, fixture.logger, &buf, "text")
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Status: PASSED")
}

func TestRunStatus(t *testing.T) {
	fixture := newCommandFixture(t)

	var buf bytes.Buffer
	err := RunStatus(context.Background(), fixture.coordinator, fixture.hierarchy, &buf, "text")
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "Emergency Access: true")
	assert.Contains(t, output, "Rotation Schedule")
	assert.Contains(t, output, "payment")
}
