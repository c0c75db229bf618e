// Package app provides the dependency injection container assembling the
// security core components.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	auditrepo "github.com/havenhealth/securecore/internal/audit/repository"
	auditservice "github.com/havenhealth/securecore/internal/audit/service"
	auditusecase "github.com/havenhealth/securecore/internal/audit/usecase"
	coordservice "github.com/havenhealth/securecore/internal/coordinator/service"
	coordusecase "github.com/havenhealth/securecore/internal/coordinator/usecase"
	"github.com/havenhealth/securecore/internal/config"
	cryptorepo "github.com/havenhealth/securecore/internal/crypto/repository"
	cryptoservice "github.com/havenhealth/securecore/internal/crypto/service"
	cryptousecase "github.com/havenhealth/securecore/internal/crypto/usecase"
	"github.com/havenhealth/securecore/internal/metrics"
	paymentrepo "github.com/havenhealth/securecore/internal/payment/repository"
	paymentservice "github.com/havenhealth/securecore/internal/payment/service"
	paymentusecase "github.com/havenhealth/securecore/internal/payment/usecase"
	"github.com/havenhealth/securecore/internal/storage"
)

// Container holds all application dependencies with lazy initialization.
type Container struct {
	config *config.Config

	logger          *slog.Logger
	store           *storage.Store
	credentials     cryptoservice.CredentialStore
	metricsProvider *metrics.Provider
	businessMetrics metrics.BusinessMetrics

	keyHierarchy cryptousecase.KeyHierarchy
	audit        auditusecase.AuditEncryptor
	tokenVault   paymentusecase.TokenVault
	coordinator  coordusecase.Coordinator

	// lifecycleCtx bounds background goroutines such as the rate limiter's
	// stale-entry cleanup; Shutdown cancels it.
	lifecycleCtx    context.Context
	lifecycleCancel context.CancelFunc

	mu               sync.Mutex
	loggerInit       sync.Once
	storeInit        sync.Once
	credentialsInit  sync.Once
	metricsInit      sync.Once
	keyHierarchyInit sync.Once
	auditInit        sync.Once
	tokenVaultInit   sync.Once
	coordinatorInit  sync.Once
	initErrors       map[string]error
}

// NewContainer creates a container for the given configuration.
func NewContainer(cfg *config.Config) *Container {
	ctx, cancel := context.WithCancel(context.Background())
	return &Container{
		config:          cfg,
		lifecycleCtx:    ctx,
		lifecycleCancel: cancel,
		initErrors:      make(map[string]error),
	}
}

// Config returns the application configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the structured JSON logger.
func (c *Container) Logger() *slog.Logger {
	c.loggerInit.Do(func() {
		c.logger = c.initLogger()
	})
	return c.logger
}

// Store returns the local bbolt store.
func (c *Container) Store() (*storage.Store, error) {
	c.storeInit.Do(func() {
		store, err := storage.Open(c.config.DatabasePath)
		if err != nil {
			c.initErrors["store"] = err
			return
		}
		c.store = store
	})
	if err, exists := c.initErrors["store"]; exists {
		return nil, err
	}
	return c.store, nil
}

// CredentialStore returns the platform keyring store, or the degraded file
// fallback outside production.
func (c *Container) CredentialStore() (cryptoservice.CredentialStore, error) {
	c.credentialsInit.Do(func() {
		keyring := cryptoservice.NewKeyringCredentialStore()
		err := keyring.Available()
		if err == nil {
			c.credentials = keyring
			return
		}
		if c.config.IsProduction() {
			// No fallback in production.
			c.initErrors["credentials"] = err
			return
		}

		c.Logger().Warn("platform keyring unavailable, using degraded file fallback",
			slog.String("path", c.config.FallbackSecretPath))
		fallback, err := cryptoservice.NewFileCredentialStore(c.config.FallbackSecretPath)
		if err != nil {
			c.initErrors["credentials"] = err
			return
		}
		c.credentials = fallback
	})
	if err, exists := c.initErrors["credentials"]; exists {
		return nil, err
	}
	return c.credentials, nil
}

// BusinessMetrics returns the metrics recorder, or the no-op implementation
// when metrics are disabled.
func (c *Container) BusinessMetrics() (metrics.BusinessMetrics, error) {
	c.metricsInit.Do(func() {
		if !c.config.MetricsEnabled {
			c.businessMetrics = metrics.NewNoOpBusinessMetrics()
			return
		}
		provider, err := metrics.NewProvider(c.config.MetricsNamespace)
		if err != nil {
			c.initErrors["metrics"] = err
			return
		}
		business, err := metrics.NewBusinessMetrics(provider.MeterProvider(), c.config.MetricsNamespace)
		if err != nil {
			c.initErrors["metrics"] = err
			return
		}
		c.metricsProvider = provider
		c.businessMetrics = business
	})
	if err, exists := c.initErrors["metrics"]; exists {
		return nil, err
	}
	return c.businessMetrics, nil
}

// MetricsProvider returns the Prometheus-backed provider, or nil when
// metrics are disabled.
func (c *Container) MetricsProvider() (*metrics.Provider, error) {
	if _, err := c.BusinessMetrics(); err != nil {
		return nil, err
	}
	return c.metricsProvider, nil
}

// KeyHierarchy returns the tiered key hierarchy.
func (c *Container) KeyHierarchy() (cryptousecase.KeyHierarchy, error) {
	c.keyHierarchyInit.Do(func() {
		store, err := c.Store()
		if err != nil {
			c.initErrors["keyHierarchy"] = fmt.Errorf("failed to get store for key hierarchy: %w", err)
			return
		}
		credentials, err := c.CredentialStore()
		if err != nil {
			c.initErrors["keyHierarchy"] = fmt.Errorf("failed to get credential store for key hierarchy: %w", err)
			return
		}
		c.keyHierarchy = cryptousecase.NewKeyHierarchyUseCase(
			credentials,
			cryptoservice.NewPBKDF2KeyDeriver(c.config.KeyDerivationIterations),
			cryptoservice.NewAEADManager(),
			cryptorepo.NewBoltRotationRepository(store),
			cryptousecase.RotationIntervals{
				Crisis:   c.config.CrisisRotationInterval,
				Personal: c.config.PersonalRotationInterval,
				Payment:  c.config.PaymentRotationInterval,
			},
			c.Logger(),
		)
	})
	if err, exists := c.initErrors["keyHierarchy"]; exists {
		return nil, err
	}
	return c.keyHierarchy, nil
}

// AuditEncryptor returns the encrypted audit trail.
func (c *Container) AuditEncryptor() (auditusecase.AuditEncryptor, error) {
	c.auditInit.Do(func() {
		store, err := c.Store()
		if err != nil {
			c.initErrors["audit"] = fmt.Errorf("failed to get store for audit encryptor: %w", err)
			return
		}
		credentials, err := c.CredentialStore()
		if err != nil {
			c.initErrors["audit"] = fmt.Errorf("failed to get credential store for audit encryptor: %w", err)
			return
		}
		hierarchy, err := c.KeyHierarchy()
		if err != nil {
			c.initErrors["audit"] = fmt.Errorf("failed to get key hierarchy for audit encryptor: %w", err)
			return
		}
		c.audit = auditusecase.NewAuditUseCase(
			credentials,
			hierarchy,
			auditservice.NewGzipCompressor(),
			auditrepo.NewBoltAuditRepository(store),
			c.Logger(),
		)
	})
	if err, exists := c.initErrors["audit"]; exists {
		return nil, err
	}
	return c.audit, nil
}

// TokenVault returns the payment tokenization vault.
func (c *Container) TokenVault() (paymentusecase.TokenVault, error) {
	c.tokenVaultInit.Do(func() {
		store, err := c.Store()
		if err != nil {
			c.initErrors["tokenVault"] = fmt.Errorf("failed to get store for token vault: %w", err)
			return
		}
		hierarchy, err := c.KeyHierarchy()
		if err != nil {
			c.initErrors["tokenVault"] = fmt.Errorf("failed to get key hierarchy for token vault: %w", err)
			return
		}
		audit, err := c.AuditEncryptor()
		if err != nil {
			c.initErrors["tokenVault"] = fmt.Errorf("failed to get audit encryptor for token vault: %w", err)
			return
		}
		business, err := c.BusinessMetrics()
		if err != nil {
			c.initErrors["tokenVault"] = fmt.Errorf("failed to get metrics for token vault: %w", err)
			return
		}
		vault := paymentusecase.NewPaymentUseCase(
			hierarchy,
			paymentservice.NewFraudGate(),
			paymentservice.NewRateLimiter(c.lifecycleCtx, c.config.PaymentAttemptsPerMinute, c.config.PaymentCooldown),
			paymentrepo.NewBoltTokenRepository(store),
			audit,
			c.config.PaymentTokenTTL,
			c.Logger(),
		)
		c.tokenVault = paymentusecase.NewTokenVaultWithMetrics(vault, business)
	})
	if err, exists := c.initErrors["tokenVault"]; exists {
		return nil, err
	}
	return c.tokenVault, nil
}

// Coordinator returns the security operation coordinator.
func (c *Container) Coordinator() (coordusecase.Coordinator, error) {
	c.coordinatorInit.Do(func() {
		store, err := c.Store()
		if err != nil {
			c.initErrors["coordinator"] = fmt.Errorf("failed to get store for coordinator: %w", err)
			return
		}
		hierarchy, err := c.KeyHierarchy()
		if err != nil {
			c.initErrors["coordinator"] = fmt.Errorf("failed to get key hierarchy for coordinator: %w", err)
			return
		}
		audit, err := c.AuditEncryptor()
		if err != nil {
			c.initErrors["coordinator"] = fmt.Errorf("failed to get audit encryptor for coordinator: %w", err)
			return
		}
		business, err := c.BusinessMetrics()
		if err != nil {
			c.initErrors["coordinator"] = fmt.Errorf("failed to get metrics for coordinator: %w", err)
			return
		}
		coordinator := coordusecase.NewCoordinatorUseCase(
			hierarchy,
			audit,
			coordservice.NewBoundaryValidator(hierarchy, audit, c.Logger()),
			coordservice.NewLockTable(),
			store,
			coordusecase.Timeouts{
				LockWait:        c.config.LockWaitTimeout,
				Operation:       c.config.OperationTimeout,
				EmergencyBudget: c.config.EmergencyAccessBudget,
			},
			c.config.FallbackSecretPath,
			c.Logger(),
		)
		c.coordinator = coordusecase.NewCoordinatorWithMetrics(coordinator, business)
	})
	if err, exists := c.initErrors["coordinator"]; exists {
		return nil, err
	}
	return c.coordinator, nil
}

// InitializeCore brings up the full security core in dependency order: key
// hierarchy, audit sink, coordinator.
func (c *Container) InitializeCore(ctx context.Context) error {
	hierarchy, err := c.KeyHierarchy()
	if err != nil {
		return err
	}
	if err := hierarchy.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize key hierarchy: %w", err)
	}

	audit, err := c.AuditEncryptor()
	if err != nil {
		return err
	}
	if err := audit.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize audit sink: %w", err)
	}

	coordinator, err := c.Coordinator()
	if err != nil {
		return err
	}
	if err := coordinator.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize coordinator: %w", err)
	}
	return nil
}

// Shutdown releases all initialized resources.
func (c *Container) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lifecycleCancel()

	var shutdownErrors []error
	if c.metricsProvider != nil {
		if err := c.metricsProvider.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics shutdown: %w", err))
		}
	}
	if c.store != nil {
		if err := c.store.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("store close: %w", err))
		}
	}
	if len(shutdownErrors) > 0 {
		return fmt.Errorf("shutdown errors: %v", shutdownErrors)
	}
	return nil
}

// initLogger creates the JSON logger at the configured level.
func (c *Container) initLogger() *slog.Logger {
	var logLevel slog.Level
	switch c.config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})
	return slog.New(handler)
}
