package domain

import (
	apperrors "github.com/havenhealth/securecore/internal/errors"
)

var (
	// ErrTokenExpired is returned when a token is validated past its TTL.
	ErrTokenExpired = apperrors.Wrap(apperrors.ErrForbidden, "payment token expired")

	// ErrDeviceBindingMismatch is returned when a token is presented from a
	// device other than the one it was created on.
	ErrDeviceBindingMismatch = apperrors.Wrap(apperrors.ErrForbidden, "device binding mismatch")

	// ErrRateLimited is returned when tokenization attempts exceed the
	// per-subject limit and no exemption applies.
	ErrRateLimited = apperrors.Wrap(apperrors.ErrUnavailable, "tokenization rate limit exceeded")

	// ErrRiskBlocked is returned when the fraud gate blocks a tokenization
	// attempt outside crisis mode.
	ErrRiskBlocked = apperrors.Wrap(apperrors.ErrForbidden, "tokenization blocked by risk assessment")

	// ErrTokenNotFound is returned when no token exists for an id.
	ErrTokenNotFound = apperrors.Wrap(apperrors.ErrNotFound, "payment token not found")
)
