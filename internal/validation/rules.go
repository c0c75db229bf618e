// Package validation provides custom validation rules for the application.
package validation

import (
	"regexp"
	"strings"

	validation "github.com/jellydator/validation"

	apperrors "github.com/havenhealth/securecore/internal/errors"
)

var (
	// panRegex matches sequences that look like a full payment card number
	// (13-19 digits, optionally separated by spaces or dashes).
	panRegex = regexp.MustCompile(`(?:\d[ \-]?){13,19}`)

	// deviceFingerprintRegex matches the expected device fingerprint shape
	// (hex-encoded SHA-256).
	deviceFingerprintRegex = regexp.MustCompile(`^[a-f0-9]{64}$`)
)

// WrapValidationError wraps validation errors as domain ErrInvalidInput.
func WrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	return apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
}

// NotBlank validates that a string is not empty after trimming whitespace.
var NotBlank = validation.NewStringRuleWithError(
	func(s string) bool {
		return strings.TrimSpace(s) != ""
	},
	validation.NewError("validation_not_blank", "must not be blank"),
)

// NoWhitespace validates that string doesn't contain leading/trailing whitespace.
var NoWhitespace = validation.NewStringRuleWithError(
	func(s string) bool {
		return s == strings.TrimSpace(s)
	},
	validation.NewError("validation_no_whitespace", "must not contain leading or trailing whitespace"),
)

// NoFullCardNumber validates that a string does not contain anything shaped
// like a full payment card number. Applied to every field that is persisted
// or logged, so full instrument identifiers can never leave the tokenizer.
var NoFullCardNumber = validation.NewStringRuleWithError(
	func(s string) bool {
		return !ContainsCardNumber(s)
	},
	validation.NewError("validation_no_full_card_number", "must not contain a full card number"),
)

// DeviceFingerprint validates the hex-encoded SHA-256 device fingerprint shape.
var DeviceFingerprint = validation.NewStringRuleWithError(
	func(s string) bool {
		return deviceFingerprintRegex.MatchString(s)
	},
	validation.NewError("validation_device_fingerprint", "must be a hex-encoded sha-256 fingerprint"),
)

// ContainsCardNumber reports whether s contains a digit run shaped like a
// full payment card number.
func ContainsCardNumber(s string) bool {
	return panRegex.MatchString(s)
}
