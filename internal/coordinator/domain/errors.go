package domain

import (
	apperrors "github.com/havenhealth/securecore/internal/errors"
)

var (
	// ErrValidationRejected is returned when an operation's pre-flight
	// validation fails before any lock is taken.
	ErrValidationRejected = apperrors.Wrap(apperrors.ErrInvalidInput, "operation validation rejected")

	// ErrLockTimeout is returned when a lock cannot be acquired within the
	// configured wait.
	ErrLockTimeout = apperrors.Wrap(apperrors.ErrTimeout, "lock acquisition timed out")

	// ErrOperationTimedOut is returned when execution exceeds the operation
	// timeout. The operation has been rolled back.
	ErrOperationTimedOut = apperrors.Wrap(apperrors.ErrTimeout, "operation timed out")

	// ErrComplianceViolation is returned when post-execution boundary
	// validation fails and the operation was undone.
	ErrComplianceViolation = apperrors.Wrap(apperrors.ErrForbidden, "security boundary violation")

	// ErrOperationNotFound is returned when no tracked operation matches an id.
	ErrOperationNotFound = apperrors.Wrap(apperrors.ErrNotFound, "operation not found")

	// ErrNotCancellable is returned when cancellation is requested for an
	// operation that is no longer queued.
	ErrNotCancellable = apperrors.Wrap(apperrors.ErrConflict, "operation is not queued")
)
