// Package usecase implements payment tokenization: minimized token records
// encrypted under the payment key domain, fraud gating, rate limiting with
// crisis exemptions, and device binding.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	paymentdomain "github.com/havenhealth/securecore/internal/payment/domain"
)

// CreateTokenInput carries everything needed to tokenize a payment method.
// InstrumentNumber is used transiently for brand and last-four extraction
// and never persisted.
type CreateTokenInput struct {
	Kind              paymentdomain.PaymentMethodKind
	InstrumentNumber  string
	Subject           string
	DeviceFingerprint string
	KnownDevice       bool
	SecondaryVerified bool
	CrisisMode        bool
}

// TokenVault is the payment tokenization contract.
type TokenVault interface {
	// CreateToken validates, risk-scores, rate-limits, and tokenizes a
	// payment method. Crisis mode bypasses rate limiting and risk blocking;
	// both bypasses are recorded, never silent.
	CreateToken(ctx context.Context, input CreateTokenInput) (*paymentdomain.PaymentToken, error)

	// ValidateToken decrypts and checks a token: TTL and device binding.
	// Device binding is not enforced in crisis mode.
	ValidateToken(ctx context.Context, id uuid.UUID, deviceFingerprint string, crisisMode bool) (*paymentdomain.PaymentToken, error)

	// RevokeToken removes a token.
	RevokeToken(ctx context.Context, id uuid.UUID) error

	// CleanupExpiredTokens deletes tokens past their TTL and reports how
	// many were removed.
	CleanupExpiredTokens(ctx context.Context) (int, error)

	// ValidateSeparateEncryption verifies payment material is cryptographically
	// isolated from the primary domain.
	ValidateSeparateEncryption() error
}

// TokenRepository persists encrypted tokens and rate-limit state.
type TokenRepository interface {
	Save(ctx context.Context, token *paymentdomain.EncryptedTokenRecord) error
	Get(ctx context.Context, id uuid.UUID) (*paymentdomain.EncryptedTokenRecord, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListExpired(ctx context.Context, now time.Time) ([]uuid.UUID, error)
	SaveRateState(ctx context.Context, state *paymentdomain.RateLimitState) error
	GetRateState(ctx context.Context, subjectKey string) (*paymentdomain.RateLimitState, error)
}
