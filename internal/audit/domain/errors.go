package domain

import (
	apperrors "github.com/havenhealth/securecore/internal/errors"
)

var (
	// ErrJustificationRequired is returned when audit decryption is attempted
	// without a valid access justification.
	ErrJustificationRequired = apperrors.Wrap(apperrors.ErrForbidden, "access justification required")

	// ErrEventNotFound is returned when no audit record exists for an id.
	ErrEventNotFound = apperrors.Wrap(apperrors.ErrNotFound, "audit event not found")

	// ErrAuditUnavailable is returned when the audit sink cannot accept or
	// serve events.
	ErrAuditUnavailable = apperrors.Wrap(apperrors.ErrUnavailable, "audit sink unavailable")
)
