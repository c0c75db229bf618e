package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrap(t *testing.T) {
	t.Run("wraps error with context", func(t *testing.T) {
		wrapped := Wrap(ErrNotFound, "derived key")
		require.Error(t, wrapped)
		assert.Equal(t, "derived key: not found", wrapped.Error())
		assert.True(t, Is(wrapped, ErrNotFound))
	})

	t.Run("returns nil for nil error", func(t *testing.T) {
		assert.Nil(t, Wrap(nil, "context"))
	})

	t.Run("preserves chain through multiple wraps", func(t *testing.T) {
		inner := Wrap(ErrUnavailable, "credential store")
		outer := Wrap(inner, "initialize")
		assert.True(t, Is(outer, ErrUnavailable))
		assert.Equal(t, "initialize: credential store: unavailable", outer.Error())
	})
}

func TestSentinelsAreDistinct(t *testing.T) {
	sentinels := []error{ErrNotFound, ErrConflict, ErrInvalidInput, ErrUnavailable, ErrForbidden, ErrTimeout}
	for i, a := range sentinels {
		for j, b := range sentinels {
			if i == j {
				continue
			}
			assert.False(t, Is(a, b), "%v should not match %v", a, b)
		}
	}
}
