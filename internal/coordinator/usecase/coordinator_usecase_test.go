package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	auditrepo "github.com/havenhealth/securecore/internal/audit/repository"
	auditservice "github.com/havenhealth/securecore/internal/audit/service"
	auditusecase "github.com/havenhealth/securecore/internal/audit/usecase"
	coorddomain "github.com/havenhealth/securecore/internal/coordinator/domain"
	coordservice "github.com/havenhealth/securecore/internal/coordinator/service"
	cryptorepo "github.com/havenhealth/securecore/internal/crypto/repository"
	cryptoservice "github.com/havenhealth/securecore/internal/crypto/service"
	cryptousecase "github.com/havenhealth/securecore/internal/crypto/usecase"
	"github.com/havenhealth/securecore/internal/storage"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// toggleSink wraps the real audit encryptor with a switchable Active flag so
// tests can break the audit boundary mid-operation.
type toggleSink struct {
	auditusecase.AuditEncryptor
	active atomic.Bool
}

func (s *toggleSink) Active() bool {
	return s.active.Load()
}

type coordinatorFixture struct {
	coordinator Coordinator
	store       *storage.Store
	sink        *toggleSink
	auditRepo   *auditrepo.BoltAuditRepository
}

func newCoordinatorFixture(t *testing.T, timeouts Timeouts) *coordinatorFixture {
	t.Helper()

	store, err := storage.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	fallbackDir := t.TempDir()
	credentials, err := cryptoservice.NewFileCredentialStore(fallbackDir)
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

	auditRepo := auditrepo.NewBoltAuditRepository(store)
	audit := auditusecase.NewAuditUseCase(
		credentials,
		hierarchy,
		auditservice.NewGzipCompressor(),
		auditRepo,
		slog.New(slog.DiscardHandler),
	)
	require.NoError(t, audit.Initialize(context.Background()))

	sink := &toggleSink{AuditEncryptor: audit}
	sink.active.Store(true)

	coordinator := NewCoordinatorUseCase(
		hierarchy,
		audit,
		coordservice.NewBoundaryValidator(hierarchy, sink, slog.New(slog.DiscardHandler)),
		coordservice.NewLockTable(),
		store,
		timeouts,
		fallbackDir,
		slog.New(slog.DiscardHandler),
	)
	require.NoError(t, coordinator.Initialize(context.Background()))

	return &coordinatorFixture{coordinator: coordinator, store: store, sink: sink, auditRepo: auditRepo}
}

func defaultTimeouts() Timeouts {
	return Timeouts{
		LockWait:        200 * time.Millisecond,
		Operation:       500 * time.Millisecond,
		EmergencyBudget: 200 * time.Millisecond,
	}
}

func TestCoordinator_Submit(t *testing.T) {
	fixture := newCoordinatorFixture(t, defaultTimeouts())
	ctx := context.Background()

	var executed atomic.Bool
	op := coorddomain.NewSecurityOperation(coorddomain.ClassTokenMaintenance, coorddomain.PriorityMedium)
	op.Execute = func(ctx context.Context) error {
		executed.Store(true)
		return nil
	}

	result, err := fixture.coordinator.Submit(ctx, op)
	require.NoError(t, err)
	assert.True(t, executed.Load())
	assert.Equal(t, coorddomain.StateReleased, result.State)
	assert.False(t, result.RolledBack)

	// The completion is on the audit trail.
	count, err := fixture.auditRepo.Count(ctx)
	require.NoError(t, err)
	assert.Positive(t, count)
}

func TestCoordinator_SubmitValidation(t *testing.T) {
	fixture := newCoordinatorFixture(t, defaultTimeouts())
	ctx := context.Background()

	t.Run("rejected by operation validator", func(t *testing.T) {
		op := coorddomain.NewSecurityOperation(coorddomain.ClassTokenMaintenance, coorddomain.PriorityMedium)
		op.Execute = func(ctx context.Context) error { return nil }
		op.Validate = func() error { return fmt.Errorf("precondition missing") }

		_, err := fixture.coordinator.Submit(ctx, op)
		assert.ErrorIs(t, err, coorddomain.ErrValidationRejected)
	})

	t.Run("unknown class", func(t *testing.T) {
		op := coorddomain.NewSecurityOperation(coorddomain.OperationClass("defrag"), coorddomain.PriorityMedium)
		op.Execute = func(ctx context.Context) error { return nil }

		_, err := fixture.coordinator.Submit(ctx, op)
		assert.ErrorIs(t, err, coorddomain.ErrValidationRejected)
	})

	t.Run("missing execute", func(t *testing.T) {
		op := coorddomain.NewSecurityOperation(coorddomain.ClassTokenMaintenance, coorddomain.PriorityMedium)
		_, err := fixture.coordinator.Submit(ctx, op)
		assert.ErrorIs(t, err, coorddomain.ErrValidationRejected)
	})
}

func TestCoordinator_LockTimeout(t *testing.T) {
	fixture := newCoordinatorFixture(t, defaultTimeouts())
	ctx := context.Background()

	holdRelease := make(chan struct{})
	holder := coorddomain.NewSecurityOperation(coorddomain.ClassBulkMigration, coorddomain.PriorityMedium)
	holder.Execute = func(ctx context.Context) error {
		select {
		case <-holdRelease:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	holderDone := make(chan struct{})
	go func() {
		defer close(holderDone)
		_, _ = fixture.coordinator.Submit(ctx, holder)
	}()
	time.Sleep(50 * time.Millisecond)

	contender := coorddomain.NewSecurityOperation(coorddomain.ClassCalendarSync, coorddomain.PriorityMedium)
	contender.Execute = func(ctx context.Context) error { return nil }

	_, err := fixture.coordinator.Submit(ctx, contender)
	assert.ErrorIs(t, err, coorddomain.ErrLockTimeout)

	close(holdRelease)
	<-holderDone
}

func TestCoordinator_OperationTimeoutRollsBack(t *testing.T) {
	fixture := newCoordinatorFixture(t, Timeouts{
		LockWait:        200 * time.Millisecond,
		Operation:       100 * time.Millisecond,
		EmergencyBudget: 200 * time.Millisecond,
	})
	ctx := context.Background()

	var rolledBack atomic.Bool
	op := coorddomain.NewSecurityOperation(coorddomain.ClassTokenMaintenance, coorddomain.PriorityMedium)
	op.Execute = func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}
	op.Rollback = func(ctx context.Context) error {
		rolledBack.Store(true)
		return nil
	}

	_, err := fixture.coordinator.Submit(ctx, op)
	assert.ErrorIs(t, err, coorddomain.ErrOperationTimedOut)
	assert.True(t, rolledBack.Load())
}

func TestCoordinator_ExecuteFailureRollsBack(t *testing.T) {
	fixture := newCoordinatorFixture(t, defaultTimeouts())
	ctx := context.Background()

	var rolledBack atomic.Bool
	op := coorddomain.NewSecurityOperation(coorddomain.ClassTokenMaintenance, coorddomain.PriorityMedium)
	op.Execute = func(ctx context.Context) error { return fmt.Errorf("write failed") }
	op.Rollback = func(ctx context.Context) error {
		rolledBack.Store(true)
		return nil
	}

	_, err := fixture.coordinator.Submit(ctx, op)
	assert.Error(t, err)
	assert.True(t, rolledBack.Load())
}

func TestCoordinator_BoundaryViolationRollsBack(t *testing.T) {
	fixture := newCoordinatorFixture(t, defaultTimeouts())
	ctx := context.Background()

	var rolledBack atomic.Bool
	op := coorddomain.NewSecurityOperation(coorddomain.ClassAuditMaintenance, coorddomain.PriorityMedium)
	op.Execute = func(ctx context.Context) error {
		// Simulate an operation that knocks out the audit sink.
		fixture.sink.active.Store(false)
		return nil
	}
	op.Rollback = func(ctx context.Context) error {
		rolledBack.Store(true)
		fixture.sink.active.Store(true)
		return nil
	}

	_, err := fixture.coordinator.Submit(ctx, op)
	assert.ErrorIs(t, err, coorddomain.ErrComplianceViolation)
	assert.True(t, rolledBack.Load())
}

func TestCoordinator_Cancel(t *testing.T) {
	fixture := newCoordinatorFixture(t, Timeouts{
		LockWait:        2 * time.Second,
		Operation:       500 * time.Millisecond,
		EmergencyBudget: 200 * time.Millisecond,
	})
	ctx := context.Background()

	t.Run("unknown operation", func(t *testing.T) {
		err := fixture.coordinator.Cancel(uuid.Must(uuid.NewV7()))
		assert.ErrorIs(t, err, coorddomain.ErrOperationNotFound)
	})

	t.Run("queued operation is cancellable", func(t *testing.T) {
		holdRelease := make(chan struct{})
		holder := coorddomain.NewSecurityOperation(coorddomain.ClassBulkMigration, coorddomain.PriorityMedium)
		holder.Execute = func(ctx context.Context) error {
			select {
			case <-holdRelease:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		holderDone := make(chan struct{})
		go func() {
			defer close(holderDone)
			_, _ = fixture.coordinator.Submit(ctx, holder)
		}()
		time.Sleep(50 * time.Millisecond)

		queued := coorddomain.NewSecurityOperation(coorddomain.ClassCalendarSync, coorddomain.PriorityMedium)
		queued.Execute = func(ctx context.Context) error { return nil }
		queuedErr := make(chan error, 1)
		go func() {
			_, err := fixture.coordinator.Submit(ctx, queued)
			queuedErr <- err
		}()
		time.Sleep(50 * time.Millisecond)

		require.NoError(t, fixture.coordinator.Cancel(queued.ID))
		assert.ErrorIs(t, <-queuedErr, context.Canceled)

		close(holdRelease)
		<-holderDone
	})
}

func TestCoordinator_Status(t *testing.T) {
	fixture := newCoordinatorFixture(t, defaultTimeouts())
	ctx := context.Background()

	status, err := fixture.coordinator.Status(ctx)
	require.NoError(t, err)
	assert.Empty(t, status.ActiveLocks)
	assert.Zero(t, status.QueuedOperations)
	assert.True(t, status.EmergencyAccessHealth)
}

func TestCoordinator_ValidateEmergencyAccess(t *testing.T) {
	// A long operation timeout keeps the exclusive lock held for the whole
	// budget loop below.
	fixture := newCoordinatorFixture(t, Timeouts{
		LockWait:        200 * time.Millisecond,
		Operation:       30 * time.Second,
		EmergencyBudget: 200 * time.Millisecond,
	})
	ctx := context.Background()

	t.Run("healthy path stays inside the budget", func(t *testing.T) {
		// The check never touches the lock queue, so a long-running exclusive
		// operation must not push it past the budget.
		release := make(chan struct{})
		holderDone := make(chan struct{})
		holder := coorddomain.NewSecurityOperation(coorddomain.ClassBulkMigration, coorddomain.PriorityLow)
		holder.Execute = func(ctx context.Context) error {
			select {
			case <-release:
			case <-ctx.Done():
			}
			return nil
		}
		go func() {
			defer close(holderDone)
			holderCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			_, _ = fixture.coordinator.Submit(holderCtx, holder)
		}()
		defer func() {
			close(release)
			<-holderDone
		}()

		const runs = 200
		withinBudget := 0
		for i := 0; i < runs; i++ {
			report, err := fixture.coordinator.ValidateEmergencyAccess(ctx)
			require.NoError(t, err)
			require.True(t, report.Accessible, "run %d: %s", i, report.ProbeFailure)
			if report.Latency <= 200*time.Millisecond {
				withinBudget++
			}
		}
		assert.GreaterOrEqual(t, withinBudget, runs*99/100)
	})

	t.Run("corrupt canary reports inaccessible with fallback", func(t *testing.T) {
		original, err := fixture.store.GetConfig(storage.ConfigCanary)
		require.NoError(t, err)
		require.NoError(t, fixture.store.SetConfig(storage.ConfigCanary, []byte("garbage")))
		defer func() {
			require.NoError(t, fixture.store.SetConfig(storage.ConfigCanary, original))
		}()

		report, err := fixture.coordinator.ValidateEmergencyAccess(ctx)
		require.NoError(t, err)
		assert.False(t, report.Accessible)
		assert.NotEmpty(t, report.ProbeFailure)
		assert.True(t, report.FallbackMechanismActive)
	})
}
