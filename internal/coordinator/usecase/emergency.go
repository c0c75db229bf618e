package usecase

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	coorddomain "github.com/havenhealth/securecore/internal/coordinator/domain"
	cryptodomain "github.com/havenhealth/securecore/internal/crypto/domain"
	"github.com/havenhealth/securecore/internal/storage"
)

// ValidateEmergencyAccess probes the crisis decryption path and the offline
// fallback in parallel under the configured budget. The check degrades to an
// inaccessible report rather than failing: a crisis caller needs an answer,
// not an error.
func (u *coordinatorUseCase) ValidateEmergencyAccess(ctx context.Context) (*coorddomain.EmergencyAccessReport, error) {
	start := time.Now()
	budgetCtx, cancel := context.WithTimeout(ctx, u.timeouts.EmergencyBudget)
	defer cancel()

	var canaryErr error
	var fallbackActive bool

	g, _ := errgroup.WithContext(budgetCtx)
	g.Go(func() error {
		canaryErr = u.probeCanary()
		return nil
	})
	g.Go(func() error {
		fallbackActive = u.probeFallback()
		return nil
	})

	done := make(chan struct{})
	go func() {
		_ = g.Wait()
		close(done)
	}()

	report := &coorddomain.EmergencyAccessReport{}
	select {
	case <-done:
		report.Accessible = canaryErr == nil
		report.FallbackMechanismActive = fallbackActive
		if canaryErr != nil {
			report.ProbeFailure = canaryErr.Error()
		}
	case <-budgetCtx.Done():
		report.Accessible = false
		report.ProbeFailure = "emergency access budget exceeded"
	}
	report.Latency = time.Since(start)

	u.mu.Lock()
	u.emergencyHealth = report.Accessible || report.FallbackMechanismActive
	u.emergencyCheckedAt = time.Now()
	u.mu.Unlock()

	if !report.Accessible {
		u.logger.Error("emergency access check failed",
			slog.String("probe_failure", report.ProbeFailure),
			slog.Bool("fallback_active", report.FallbackMechanismActive),
		)
	}
	return report, nil
}

// probeCanary decrypts the planted crisis-tier canary end to end.
func (u *coordinatorUseCase) probeCanary() error {
	encoded, err := u.store.GetConfig(storage.ConfigCanary)
	if err != nil {
		return fmt.Errorf("canary read: %w", err)
	}
	if encoded == nil {
		return fmt.Errorf("emergency canary not planted")
	}
	envelope, err := cryptodomain.DecodeEnvelope(encoded)
	if err != nil {
		return fmt.Errorf("canary decode: %w", err)
	}
	plaintext, err := u.hierarchy.Decrypt(cryptodomain.DomainPrimary, envelope)
	if err != nil {
		return fmt.Errorf("canary decrypt: %w", err)
	}
	if !bytes.Equal(plaintext, canaryPlaintext) {
		return fmt.Errorf("canary plaintext mismatch")
	}
	return nil
}

// probeFallback reports whether the offline fallback secret is present.
func (u *coordinatorUseCase) probeFallback() bool {
	path := filepath.Join(u.fallbackPath, cryptodomain.DomainPrimary.CredentialKey())
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
