package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	auditdomain "github.com/havenhealth/securecore/internal/audit/domain"
	auditusecase "github.com/havenhealth/securecore/internal/audit/usecase"
	coorddomain "github.com/havenhealth/securecore/internal/coordinator/domain"
	coordservice "github.com/havenhealth/securecore/internal/coordinator/service"
	cryptodomain "github.com/havenhealth/securecore/internal/crypto/domain"
	cryptousecase "github.com/havenhealth/securecore/internal/crypto/usecase"
	"github.com/havenhealth/securecore/internal/storage"
)

// canaryPlaintext is the fixed probe value planted at initialization and
// decrypted on every emergency access check.
var canaryPlaintext = []byte("securecore emergency canary v1")

// Timeouts is the coordinator's timing configuration.
type Timeouts struct {
	LockWait        time.Duration
	Operation       time.Duration
	EmergencyBudget time.Duration
}

type trackedOperation struct {
	state  coorddomain.OperationState
	cancel context.CancelFunc
}

type coordinatorUseCase struct {
	hierarchy cryptousecase.KeyHierarchy
	audit     auditusecase.AuditEncryptor
	boundary     *coordservice.BoundaryValidator
	locks        *coordservice.LockTable
	store        *storage.Store
	timeouts     Timeouts
	fallbackPath string
	logger       *slog.Logger

	mu                 sync.Mutex
	tracked            map[uuid.UUID]*trackedOperation
	emergencyHealth    bool
	emergencyCheckedAt time.Time
}

// NewCoordinatorUseCase creates the coordinator.
func NewCoordinatorUseCase(
	hierarchy cryptousecase.KeyHierarchy,
	audit auditusecase.AuditEncryptor,
	boundary *coordservice.BoundaryValidator,
	locks *coordservice.LockTable,
	store *storage.Store,
	timeouts Timeouts,
	fallbackPath string,
	logger *slog.Logger,
) Coordinator {
	return &coordinatorUseCase{
		hierarchy:    hierarchy,
		audit:        audit,
		boundary:     boundary,
		locks:        locks,
		store:        store,
		timeouts:     timeouts,
		fallbackPath: fallbackPath,
		logger:       logger,
		tracked:      make(map[uuid.UUID]*trackedOperation),
	}
}

// Initialize plants the emergency canary and runs a first boundary check.
func (u *coordinatorUseCase) Initialize(ctx context.Context) error {
	if err := u.boundary.Validate(); err != nil {
		return err
	}

	existing, err := u.store.GetConfig(storage.ConfigCanary)
	if err != nil {
		return err
	}
	if existing == nil {
		envelope, err := u.hierarchy.Encrypt(cryptodomain.DomainPrimary, cryptodomain.TierCrisis, canaryPlaintext)
		if err != nil {
			return fmt.Errorf("failed to plant emergency canary: %w", err)
		}
		if err := u.store.SetConfig(storage.ConfigCanary, envelope.Encode()); err != nil {
			return err
		}
	}

	report, err := u.ValidateEmergencyAccess(ctx)
	if err != nil {
		return err
	}
	u.logger.Info("coordinator initialized",
		slog.Bool("emergency_accessible", report.Accessible),
		slog.Duration("emergency_latency", report.Latency),
	)
	return nil
}

func (u *coordinatorUseCase) setState(id uuid.UUID, state coorddomain.OperationState) {
	u.mu.Lock()
	if op, ok := u.tracked[id]; ok {
		op.state = state
	}
	u.mu.Unlock()
}

// Submit runs one operation to completion.
func (u *coordinatorUseCase) Submit(ctx context.Context, op *coorddomain.SecurityOperation) (*coorddomain.OperationResult, error) {
	if !op.Class.IsValid() || !op.Priority.IsValid() || op.Execute == nil {
		return nil, coorddomain.ErrValidationRejected
	}
	if op.Validate != nil {
		if err := op.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %s", coorddomain.ErrValidationRejected, err.Error())
		}
	}
	if err := u.boundary.Validate(); err != nil {
		return nil, err
	}
	if op.RequiresEmergencyAccessCheck {
		report, err := u.ValidateEmergencyAccess(ctx)
		if err != nil {
			return nil, err
		}
		if !report.Accessible && !report.FallbackMechanismActive {
			return nil, fmt.Errorf("%w: emergency access unavailable", coorddomain.ErrValidationRejected)
		}
	}

	result := &coorddomain.OperationResult{ID: op.ID, StartedAt: time.Now().UTC()}

	opCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	u.mu.Lock()
	u.tracked[op.ID] = &trackedOperation{state: coorddomain.StateLockRequested, cancel: cancel}
	u.mu.Unlock()
	defer func() {
		u.mu.Lock()
		delete(u.tracked, op.ID)
		u.mu.Unlock()
	}()

	release, err := u.acquireLock(opCtx, op)
	if err != nil {
		return nil, err
	}
	if release != nil {
		defer release()
	}
	u.setState(op.ID, coorddomain.StateLockHeld)

	u.setState(op.ID, coorddomain.StateExecuting)
	if err := u.execute(opCtx, op); err != nil {
		return nil, err
	}

	// Commit, then verify. A boundary broken by the operation is undone.
	if err := u.boundary.Validate(); err != nil {
		u.setState(op.ID, coorddomain.StateRollingBack)
		u.rollback(op)
		result.RolledBack = true
		u.recordLifecycleEvent(op, "operation_boundary_violation", map[string]any{"error": err.Error()})
		return nil, err
	}

	u.setState(op.ID, coorddomain.StateReleased)
	result.State = coorddomain.StateReleased
	result.FinishedAt = time.Now().UTC()
	u.recordLifecycleEvent(op, "operation_completed", map[string]any{
		"class":    string(op.Class),
		"priority": string(op.Priority),
	})
	return result, nil
}

func (u *coordinatorUseCase) acquireLock(ctx context.Context, op *coorddomain.SecurityOperation) (func(), error) {
	if !op.RequiresExclusiveLock {
		return nil, nil
	}
	lockCtx, cancel := context.WithTimeout(ctx, u.timeouts.LockWait)
	defer cancel()

	release, err := u.locks.Acquire(lockCtx, op.Class, op.Priority, op.ID)
	if err != nil {
		if ctx.Err() != nil {
			// Cancelled by the caller or Cancel, not by the lock wait.
			return nil, ctx.Err()
		}
		u.recordLifecycleEvent(op, "operation_lock_timeout", map[string]any{"class": string(op.Class)})
		return nil, coorddomain.ErrLockTimeout
	}
	return release, nil
}

func (u *coordinatorUseCase) execute(ctx context.Context, op *coorddomain.SecurityOperation) error {
	execCtx, cancel := context.WithTimeout(ctx, u.timeouts.Operation)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- op.Execute(execCtx)
	}()

	select {
	case err := <-done:
		if err != nil {
			u.setState(op.ID, coorddomain.StateRollingBack)
			u.rollback(op)
			return fmt.Errorf("operation %s failed: %w", op.ID, err)
		}
		return nil
	case <-execCtx.Done():
		u.setState(op.ID, coorddomain.StateRollingBack)
		u.rollback(op)
		u.recordLifecycleEvent(op, "operation_timeout", map[string]any{"class": string(op.Class)})
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return coorddomain.ErrOperationTimedOut
	}
}

// rollback undoes an operation with a fresh context; the operation's own
// context is already cancelled or expired by the time rollback runs.
func (u *coordinatorUseCase) rollback(op *coorddomain.SecurityOperation) {
	if op.Rollback == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), u.timeouts.Operation)
	defer cancel()
	if err := op.Rollback(ctx); err != nil {
		u.logger.Error("rollback failed",
			slog.String("operation_id", op.ID.String()),
			slog.String("class", string(op.Class)),
			slog.String("error", err.Error()),
		)
	}
}

// Cancel removes a queued operation by cancelling its lock wait.
func (u *coordinatorUseCase) Cancel(id uuid.UUID) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	op, ok := u.tracked[id]
	if !ok {
		return coorddomain.ErrOperationNotFound
	}
	if op.state != coorddomain.StateLockRequested {
		return coorddomain.ErrNotCancellable
	}
	op.cancel()
	return nil
}

// Status reports held locks, queue depth, and the emergency health from the
// most recent check. The health is refreshed when stale rather than on every
// status call, so status stays cheap enough for dashboards.
func (u *coordinatorUseCase) Status(ctx context.Context) (*coorddomain.CoordinationStatus, error) {
	u.mu.Lock()
	checkedAt := u.emergencyCheckedAt
	health := u.emergencyHealth
	u.mu.Unlock()

	if time.Since(checkedAt) > time.Minute {
		report, err := u.ValidateEmergencyAccess(ctx)
		if err != nil {
			return nil, err
		}
		health = report.Accessible || report.FallbackMechanismActive
	}

	return &coorddomain.CoordinationStatus{
		ActiveLocks:           u.locks.ActiveLocks(),
		QueuedOperations:      u.locks.QueuedCount(),
		EmergencyAccessHealth: health,
	}, nil
}

// recordLifecycleEvent appends an audit event for an operation transition.
// Critical-priority events are fire-and-forget so the crisis path never
// waits on the audit sink.
func (u *coordinatorUseCase) recordLifecycleEvent(op *coorddomain.SecurityOperation, eventType string, metadata map[string]any) {
	tier := cryptodomain.TierClinical
	if op.Priority == coorddomain.PriorityCritical {
		tier = cryptodomain.TierCrisis
	}
	metadata["operation_id"] = op.ID.String()
	event := auditdomain.NewAuditEvent(eventType, tier, "coordinator", metadata)

	record := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := u.audit.Record(ctx, event); err != nil {
			u.logger.Error("failed to record coordination event",
				slog.String("event_type", eventType),
				slog.String("error", err.Error()),
			)
		}
	}
	if op.Priority == coorddomain.PriorityCritical {
		go record()
		return
	}
	record()
}
