package service

import (
	"log/slog"

	coorddomain "github.com/havenhealth/securecore/internal/coordinator/domain"
	cryptousecase "github.com/havenhealth/securecore/internal/crypto/usecase"
	apperrors "github.com/havenhealth/securecore/internal/errors"
)

// AuditSink is the slice of the audit encryptor the validator needs.
type AuditSink interface {
	Active() bool
}

// BoundaryValidator checks the invariants every coordinated operation must
// leave intact: encryption initialized, key domains isolated, audit sink
// active. Violations abort; degraded-but-safe conditions only warn.
type BoundaryValidator struct {
	hierarchy cryptousecase.KeyHierarchy
	audit     AuditSink
	logger    *slog.Logger
}

// NewBoundaryValidator creates a validator over the key hierarchy and audit
// sink.
func NewBoundaryValidator(hierarchy cryptousecase.KeyHierarchy, audit AuditSink, logger *slog.Logger) *BoundaryValidator {
	return &BoundaryValidator{hierarchy: hierarchy, audit: audit, logger: logger}
}

// Validate returns ErrComplianceViolation when a security boundary is broken.
func (v *BoundaryValidator) Validate() error {
	if !v.hierarchy.Initialized() {
		return apperrors.Wrap(coorddomain.ErrComplianceViolation, "key hierarchy not initialized")
	}
	if err := v.hierarchy.ValidateDomainIsolation(); err != nil {
		return apperrors.Wrap(coorddomain.ErrComplianceViolation, "key domain isolation broken")
	}
	if !v.audit.Active() {
		return apperrors.Wrap(coorddomain.ErrComplianceViolation, "audit sink inactive")
	}
	if v.hierarchy.Degraded() {
		v.logger.Warn("credential store running in degraded fallback mode")
	}
	return nil
}
