package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/havenhealth/securecore/internal/metrics"
	paymentdomain "github.com/havenhealth/securecore/internal/payment/domain"
)

// tokenVaultWithMetrics decorates TokenVault with metrics instrumentation.
type tokenVaultWithMetrics struct {
	next    TokenVault
	metrics metrics.BusinessMetrics
}

// NewTokenVaultWithMetrics wraps a TokenVault with metrics recording.
func NewTokenVaultWithMetrics(vault TokenVault, m metrics.BusinessMetrics) TokenVault {
	return &tokenVaultWithMetrics{
		next:    vault,
		metrics: m,
	}
}

func (t *tokenVaultWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	t.metrics.RecordOperation(ctx, "payment", operation, status)
	t.metrics.RecordDuration(ctx, "payment", operation, time.Since(start), status)
}

func (t *tokenVaultWithMetrics) CreateToken(ctx context.Context, input CreateTokenInput) (*paymentdomain.PaymentToken, error) {
	start := time.Now()
	token, err := t.next.CreateToken(ctx, input)
	t.record(ctx, "token_create", start, err)
	return token, err
}

func (t *tokenVaultWithMetrics) ValidateToken(
	ctx context.Context,
	id uuid.UUID,
	deviceFingerprint string,
	crisisMode bool,
) (*paymentdomain.PaymentToken, error) {
	start := time.Now()
	token, err := t.next.ValidateToken(ctx, id, deviceFingerprint, crisisMode)
	t.record(ctx, "token_validate", start, err)
	return token, err
}

func (t *tokenVaultWithMetrics) RevokeToken(ctx context.Context, id uuid.UUID) error {
	start := time.Now()
	err := t.next.RevokeToken(ctx, id)
	t.record(ctx, "token_revoke", start, err)
	return err
}

func (t *tokenVaultWithMetrics) CleanupExpiredTokens(ctx context.Context) (int, error) {
	start := time.Now()
	deleted, err := t.next.CleanupExpiredTokens(ctx)
	t.record(ctx, "token_cleanup", start, err)
	return deleted, err
}

func (t *tokenVaultWithMetrics) ValidateSeparateEncryption() error {
	start := time.Now()
	err := t.next.ValidateSeparateEncryption()
	t.record(context.Background(), "validate_separate_encryption", start, err)
	return err
}
