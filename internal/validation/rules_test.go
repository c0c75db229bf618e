package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/havenhealth/securecore/internal/errors"
)

func TestNotBlank(t *testing.T) {
	assert.NoError(t, NotBlank.Validate("value"))
	assert.Error(t, NotBlank.Validate(""))
	assert.Error(t, NotBlank.Validate("   "))
}

func TestNoWhitespace(t *testing.T) {
	assert.NoError(t, NoWhitespace.Validate("value"))
	assert.Error(t, NoWhitespace.Validate(" value"))
	assert.Error(t, NoWhitespace.Validate("value "))
}

func TestNoFullCardNumber(t *testing.T) {
	assert.NoError(t, NoFullCardNumber.Validate("ending in 4242"))
	assert.NoError(t, NoFullCardNumber.Validate("visa ****4242"))
	assert.Error(t, NoFullCardNumber.Validate("4242424242424242"))
	assert.Error(t, NoFullCardNumber.Validate("4242 4242 4242 4242"))
	assert.Error(t, NoFullCardNumber.Validate("card 4242-4242-4242-4242 on file"))
}

func TestDeviceFingerprint(t *testing.T) {
	assert.NoError(t, DeviceFingerprint.Validate("a3f5c9e1b2d4f6a8c0e2b4d6f8a0c2e4a3f5c9e1b2d4f6a8c0e2b4d6f8a0c2e4"))
	assert.Error(t, DeviceFingerprint.Validate("not-a-fingerprint"))
	assert.Error(t, DeviceFingerprint.Validate("ABCDEF"))
}

func TestWrapValidationError(t *testing.T) {
	assert.Nil(t, WrapValidationError(nil))

	err := WrapValidationError(NotBlank.Validate(""))
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidInput))
}
