// Package config provides application configuration through environment variables.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/allisson/go-env"
	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	// Environment is the deployment environment ("production", "staging", "development").
	// Production forbids the degraded credential-store fallback.
	Environment string

	// LogLevel is the logging level (e.g., "debug", "info", "warn", "error").
	LogLevel string

	// DatabasePath is the filesystem path of the local bbolt database.
	DatabasePath string

	// FallbackSecretPath is the directory used for the degraded credential-store
	// fallback in non-production environments.
	FallbackSecretPath string

	// KeyDerivationIterations is the PBKDF2 iteration count for tier key derivation.
	KeyDerivationIterations int

	// CrisisRotationInterval is the rotation cadence for CRISIS and CLINICAL tier keys.
	CrisisRotationInterval time.Duration
	// PersonalRotationInterval is the rotation cadence for PERSONAL and THERAPEUTIC tier keys.
	PersonalRotationInterval time.Duration
	// PaymentRotationInterval is the rotation cadence for the payment key domain.
	PaymentRotationInterval time.Duration

	// LockWaitTimeout is how long a submitted operation waits for a conflicting lock to clear.
	LockWaitTimeout time.Duration
	// OperationTimeout is the hard budget for a locked operation before it is
	// force-released and rolled back.
	OperationTimeout time.Duration
	// EmergencyAccessBudget is the hard response budget for emergency access validation.
	EmergencyAccessBudget time.Duration

	// PaymentAttemptsPerMinute is the normal-mode tokenization attempt threshold
	// per (subject, device) within the sliding window.
	PaymentAttemptsPerMinute int
	// PaymentCooldown is the block duration after the attempt threshold is exceeded.
	PaymentCooldown time.Duration
	// PaymentTokenTTL is the lifetime of issued payment tokens.
	PaymentTokenTTL time.Duration

	// AuditRetentionDays is the default audit event retention.
	AuditRetentionDays int
	// AuditRegulatoryRetentionDays is the retention for CRISIS/CLINICAL-tagged events.
	AuditRegulatoryRetentionDays int

	// MetricsEnabled indicates whether metrics collection is enabled.
	MetricsEnabled bool
	// MetricsNamespace is the namespace for the application metrics.
	MetricsNamespace string
	// MetricsPort is the port number for the metrics server.
	MetricsPort int
}

// Load loads configuration from environment variables and .env file.
func Load() *Config {
	// Try to load .env file recursively
	loadDotEnv()

	return &Config{
		Environment: env.GetString("ENVIRONMENT", "development"),
		LogLevel:    env.GetString("LOG_LEVEL", "info"),

		DatabasePath:       env.GetString("DATABASE_PATH", defaultDatabasePath()),
		FallbackSecretPath: env.GetString("FALLBACK_SECRET_PATH", defaultFallbackSecretPath()),

		KeyDerivationIterations: env.GetInt("KEY_DERIVATION_ITERATIONS", 210000),

		CrisisRotationInterval:   env.GetDuration("CRISIS_ROTATION_INTERVAL_DAYS", 90, 24*time.Hour),
		PersonalRotationInterval: env.GetDuration("PERSONAL_ROTATION_INTERVAL_DAYS", 180, 24*time.Hour),
		PaymentRotationInterval:  env.GetDuration("PAYMENT_ROTATION_INTERVAL_DAYS", 30, 24*time.Hour),

		LockWaitTimeout:       env.GetDuration("LOCK_WAIT_TIMEOUT_SECONDS", 10, time.Second),
		OperationTimeout:      env.GetDuration("OPERATION_TIMEOUT_SECONDS", 30, time.Second),
		EmergencyAccessBudget: env.GetDuration("EMERGENCY_ACCESS_BUDGET_MS", 200, time.Millisecond),

		PaymentAttemptsPerMinute: env.GetInt("PAYMENT_ATTEMPTS_PER_MINUTE", 5),
		PaymentCooldown:          env.GetDuration("PAYMENT_COOLDOWN_MINUTES", 5, time.Minute),
		PaymentTokenTTL:          env.GetDuration("PAYMENT_TOKEN_TTL_HOURS", 24, time.Hour),

		AuditRetentionDays:           env.GetInt("AUDIT_RETENTION_DAYS", 365),
		AuditRegulatoryRetentionDays: env.GetInt("AUDIT_REGULATORY_RETENTION_DAYS", 2555),

		MetricsEnabled:   env.GetBool("METRICS_ENABLED", true),
		MetricsNamespace: env.GetString("METRICS_NAMESPACE", "securecore"),
		MetricsPort:      env.GetInt("METRICS_PORT", 8081),
	}
}

// IsProduction reports whether the application runs in the production environment.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// defaultDatabasePath places the database under the user config directory,
// falling back to the working directory when it cannot be resolved.
func defaultDatabasePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "securecore.db"
	}
	return filepath.Join(dir, "securecore", "securecore.db")
}

func defaultFallbackSecretPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".securecore"
	}
	return filepath.Join(dir, "securecore", "secrets")
}

// loadDotEnv searches for a .env file recursively from the current directory
// up to the root directory and loads it if found.
func loadDotEnv() {
	// Get current working directory
	cwd, err := os.Getwd()
	if err != nil {
		return
	}

	// Search for .env file recursively up the directory tree
	dir := cwd
	for {
		envPath := filepath.Join(dir, ".env")
		if _, err := os.Stat(envPath); err == nil {
			// .env file found, load it
			_ = godotenv.Load(envPath)
			return
		}

		// Move to parent directory
		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root directory
			break
		}
		dir = parent
	}
}
