package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/havenhealth/securecore/internal/errors"
)

func TestFileCredentialStore(t *testing.T) {
	store, err := NewFileCredentialStore(t.TempDir())
	require.NoError(t, err)

	t.Run("is flagged degraded", func(t *testing.T) {
		assert.True(t, store.Degraded())
	})

	t.Run("set and get", func(t *testing.T) {
		secret := []byte{0x01, 0x02, 0xff, 0xfe}
		require.NoError(t, store.Set("securecore-master-primary", secret))

		got, err := store.Get("securecore-master-primary")
		require.NoError(t, err)
		assert.Equal(t, secret, got)
	})

	t.Run("get missing returns not found", func(t *testing.T) {
		_, err := store.Get("absent")
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, store.Set("to-delete", []byte("v")))
		require.NoError(t, store.Delete("to-delete"))

		_, err := store.Get("to-delete")
		assert.ErrorIs(t, err, apperrors.ErrNotFound)

		// Deleting a missing key is not an error.
		assert.NoError(t, store.Delete("to-delete"))
	})
}

func TestKeyringCredentialStore_Degraded(t *testing.T) {
	assert.False(t, NewKeyringCredentialStore().Degraded())
}
