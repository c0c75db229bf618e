package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg := Load()

		assert.Equal(t, "development", cfg.Environment)
		assert.Equal(t, "info", cfg.LogLevel)
		assert.Equal(t, 210000, cfg.KeyDerivationIterations)
		assert.Equal(t, 90*24*time.Hour, cfg.CrisisRotationInterval)
		assert.Equal(t, 180*24*time.Hour, cfg.PersonalRotationInterval)
		assert.Equal(t, 30*24*time.Hour, cfg.PaymentRotationInterval)
		assert.Equal(t, 10*time.Second, cfg.LockWaitTimeout)
		assert.Equal(t, 30*time.Second, cfg.OperationTimeout)
		assert.Equal(t, 200*time.Millisecond, cfg.EmergencyAccessBudget)
		assert.Equal(t, 5, cfg.PaymentAttemptsPerMinute)
		assert.Equal(t, 5*time.Minute, cfg.PaymentCooldown)
		assert.Equal(t, 365, cfg.AuditRetentionDays)
		assert.Equal(t, 2555, cfg.AuditRegulatoryRetentionDays)
		assert.True(t, cfg.MetricsEnabled)
	})

	t.Run("environment overrides", func(t *testing.T) {
		t.Setenv("ENVIRONMENT", "production")
		t.Setenv("CRISIS_ROTATION_INTERVAL_DAYS", "30")
		t.Setenv("PAYMENT_ATTEMPTS_PER_MINUTE", "10")

		cfg := Load()

		assert.True(t, cfg.IsProduction())
		assert.Equal(t, 30*24*time.Hour, cfg.CrisisRotationInterval)
		assert.Equal(t, 10, cfg.PaymentAttemptsPerMinute)
	})
}
