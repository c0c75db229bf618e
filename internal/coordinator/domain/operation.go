// Package domain defines security operations, their lock classes, priorities,
// and lifecycle states for the coordinator.
package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// OperationClass identifies what a security operation does; classes drive
// lock conflict decisions.
type OperationClass string

const (
	ClassKeyRotation      OperationClass = "key-rotation"
	ClassBulkMigration    OperationClass = "bulk-migration"
	ClassCalendarSync     OperationClass = "calendar-sync"
	ClassTokenMaintenance OperationClass = "token-maintenance"
	ClassAuditMaintenance OperationClass = "audit-maintenance"
)

// OperationClasses lists every known class.
var OperationClasses = []OperationClass{
	ClassKeyRotation,
	ClassBulkMigration,
	ClassCalendarSync,
	ClassTokenMaintenance,
	ClassAuditMaintenance,
}

// IsValid reports whether c is a known class.
func (c OperationClass) IsValid() bool {
	for _, known := range OperationClasses {
		if c == known {
			return true
		}
	}
	return false
}

// Conflicts reports whether two classes cannot hold locks concurrently.
// A class always conflicts with itself. Key rotation conflicts with
// everything because every other operation depends on stable keys. Bulk
// migration and calendar sync both walk the same record ranges.
func (c OperationClass) Conflicts(other OperationClass) bool {
	if c == other {
		return true
	}
	if c == ClassKeyRotation || other == ClassKeyRotation {
		return true
	}
	if (c == ClassBulkMigration && other == ClassCalendarSync) ||
		(c == ClassCalendarSync && other == ClassBulkMigration) {
		return true
	}
	return false
}

// Priority orders queued operations. Critical is reserved for crisis-path
// work and bypasses the queue entirely.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

var priorityRanks = map[Priority]int{
	PriorityCritical: 0,
	PriorityHigh:     1,
	PriorityMedium:   2,
	PriorityLow:      3,
}

// IsValid reports whether p is a known priority.
func (p Priority) IsValid() bool {
	_, ok := priorityRanks[p]
	return ok
}

// Rank returns the numeric precedence; lower runs first.
func (p Priority) Rank() int {
	return priorityRanks[p]
}

// OperationState tracks an operation through its lifecycle.
type OperationState string

const (
	StateIdle          OperationState = "idle"
	StateLockRequested OperationState = "lock-requested"
	StateLockHeld      OperationState = "lock-held"
	StateExecuting     OperationState = "executing"
	StateRollingBack   OperationState = "rolling-back"
	StateReleased      OperationState = "released"
)

// SecurityOperation is one unit of coordinated work. Execute performs the
// change, Rollback undoes it, and Validate runs before any lock is taken.
// Rollback may be nil for operations that cannot be undone.
type SecurityOperation struct {
	ID                           uuid.UUID
	Class                        OperationClass
	Priority                     Priority
	RequiresExclusiveLock        bool
	RequiresEmergencyAccessCheck bool
	Execute                      func(ctx context.Context) error
	Rollback                     func(ctx context.Context) error
	Validate                     func() error
}

// NewSecurityOperation creates an operation with a time-ordered id.
func NewSecurityOperation(class OperationClass, priority Priority) *SecurityOperation {
	return &SecurityOperation{
		ID:                    uuid.Must(uuid.NewV7()),
		Class:                 class,
		Priority:              priority,
		RequiresExclusiveLock: true,
	}
}

// OperationResult reports how an operation ended.
type OperationResult struct {
	ID         uuid.UUID
	State      OperationState
	StartedAt  time.Time
	FinishedAt time.Time
	RolledBack bool
}

// SecurityLock describes one held lock.
type SecurityLock struct {
	Class      OperationClass `json:"class"`
	HolderID   uuid.UUID      `json:"holder_id"`
	AcquiredAt time.Time      `json:"acquired_at"`
}

// CoordinationStatus is the coordinator's externally visible state.
type CoordinationStatus struct {
	ActiveLocks           []SecurityLock `json:"active_locks"`
	QueuedOperations      int            `json:"queued_operations"`
	EmergencyAccessHealth bool           `json:"emergency_access_health"`
}

// EmergencyAccessReport is the outcome of an emergency access check. The
// check reports inaccessibility instead of failing.
type EmergencyAccessReport struct {
	Accessible              bool          `json:"accessible"`
	FallbackMechanismActive bool          `json:"fallback_mechanism_active"`
	Latency                 time.Duration `json:"latency"`
	ProbeFailure            string        `json:"probe_failure,omitempty"`
}
