// Package usecase implements the security coordinator: operation submission
// with conflict locking, rollback on timeout or boundary violation, and the
// emergency access check.
package usecase

import (
	"context"

	"github.com/google/uuid"

	coorddomain "github.com/havenhealth/securecore/internal/coordinator/domain"
)

// Coordinator serializes security operations and guards crisis-path access.
type Coordinator interface {
	// Initialize plants the emergency canary and verifies boundaries. Must
	// run after the key hierarchy and audit sink are initialized.
	Initialize(ctx context.Context) error

	// Submit runs one operation to completion: pre-flight validation, lock
	// acquisition, execution under the operation timeout, and post-execution
	// boundary verification with rollback on violation. Blocks until the
	// operation finishes or fails.
	Submit(ctx context.Context, op *coorddomain.SecurityOperation) (*coorddomain.OperationResult, error)

	// Cancel removes a queued operation. Operations already executing cannot
	// be cancelled.
	Cancel(id uuid.UUID) error

	// ValidateEmergencyAccess probes the crisis decryption path within the
	// configured budget. Inaccessibility is reported, not returned as error.
	ValidateEmergencyAccess(ctx context.Context) (*coorddomain.EmergencyAccessReport, error)

	// Status reports held locks, queue depth, and the last emergency health
	// result.
	Status(ctx context.Context) (*coorddomain.CoordinationStatus, error)
}
