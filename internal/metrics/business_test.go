package metrics

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProvider(t *testing.T) {
	provider, err := NewProvider("securecore")
	require.NoError(t, err)
	require.NotNil(t, provider.MeterProvider())
	require.NoError(t, provider.Shutdown(context.Background()))
}

func TestBusinessMetrics(t *testing.T) {
	provider, err := NewProvider("securecore")
	require.NoError(t, err)
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	bm, err := NewBusinessMetrics(provider.MeterProvider(), "securecore")
	require.NoError(t, err)

	ctx := context.Background()
	bm.RecordOperation(ctx, "coordinator", "emergency_access_check", "success")
	bm.RecordOperation(ctx, "payment", "token_create", "error")
	bm.RecordDuration(ctx, "coordinator", "emergency_access_check", 12*time.Millisecond, "success")

	t.Run("metrics appear in the exposition output", func(t *testing.T) {
		recorder := httptest.NewRecorder()
		request := httptest.NewRequest("GET", "/metrics", nil)
		provider.Handler().ServeHTTP(recorder, request)

		body, err := io.ReadAll(recorder.Result().Body)
		require.NoError(t, err)
		output := string(body)

		assert.Regexp(t, `securecore_operations_total\{[^}]*domain="coordinator"[^}]*\} 1`, output)
		assert.Regexp(t, `securecore_operations_total\{[^}]*domain="payment"[^}]*\} 1`, output)
		assert.Contains(t, output, "securecore_operation_duration_seconds")
	})
}

func TestNoOpBusinessMetrics(t *testing.T) {
	bm := NewNoOpBusinessMetrics()
	bm.RecordOperation(context.Background(), "audit", "record", "success")
	bm.RecordDuration(context.Background(), "audit", "record", time.Millisecond, "success")
}
