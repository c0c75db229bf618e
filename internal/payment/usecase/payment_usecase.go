package usecase

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	validation "github.com/jellydator/validation"

	auditdomain "github.com/havenhealth/securecore/internal/audit/domain"
	auditusecase "github.com/havenhealth/securecore/internal/audit/usecase"
	cryptodomain "github.com/havenhealth/securecore/internal/crypto/domain"
	cryptousecase "github.com/havenhealth/securecore/internal/crypto/usecase"
	paymentdomain "github.com/havenhealth/securecore/internal/payment/domain"
	paymentservice "github.com/havenhealth/securecore/internal/payment/service"
	appvalidation "github.com/havenhealth/securecore/internal/validation"
)

type paymentUseCase struct {
	hierarchy   cryptousecase.KeyHierarchy
	fraudGate   paymentservice.FraudGate
	rateLimiter paymentservice.RateLimiter
	repo        TokenRepository
	audit       auditusecase.AuditEncryptor
	tokenTTL    time.Duration
	logger      *slog.Logger
}

// NewPaymentUseCase creates the token vault. Tokens are encrypted under the
// payment key domain and expire after tokenTTL.
func NewPaymentUseCase(
	hierarchy cryptousecase.KeyHierarchy,
	fraudGate paymentservice.FraudGate,
	rateLimiter paymentservice.RateLimiter,
	repo TokenRepository,
	audit auditusecase.AuditEncryptor,
	tokenTTL time.Duration,
	logger *slog.Logger,
) TokenVault {
	return &paymentUseCase{
		hierarchy:   hierarchy,
		fraudGate:   fraudGate,
		rateLimiter: rateLimiter,
		repo:        repo,
		audit:       audit,
		tokenTTL:    tokenTTL,
		logger:      logger,
	}
}

func (i CreateTokenInput) validate() error {
	return appvalidation.WrapValidationError(validation.ValidateStruct(&i,
		validation.Field(&i.Kind, validation.Required, validation.By(func(value interface{}) error {
			if !value.(paymentdomain.PaymentMethodKind).IsValid() {
				return fmt.Errorf("unknown payment method kind")
			}
			return nil
		})),
		validation.Field(&i.Subject, validation.Required, appvalidation.NotBlank, appvalidation.NoWhitespace, appvalidation.NoFullCardNumber),
		validation.Field(&i.DeviceFingerprint, validation.Required, appvalidation.DeviceFingerprint),
		validation.Field(&i.InstrumentNumber, validation.Required.When(i.Kind == paymentdomain.MethodCard)),
	))
}

func subjectKey(subject, deviceFingerprint string) string {
	return subject + "/" + deviceFingerprint
}

// CreateToken validates, rate-limits, risk-scores, and tokenizes a payment
// method. The instrument number is reduced to brand and last four before
// anything is persisted.
func (u *paymentUseCase) CreateToken(ctx context.Context, input CreateTokenInput) (*paymentdomain.PaymentToken, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	key := subjectKey(input.Subject, input.DeviceFingerprint)
	now := time.Now().UTC()

	velocityExceeded, err := u.enforceRateLimit(ctx, key, now, input.CrisisMode)
	if err != nil {
		return nil, err
	}

	assessment := u.fraudGate.Assess(paymentservice.AssessmentInput{
		KnownDevice:       input.KnownDevice,
		VelocityExceeded:  velocityExceeded,
		SecondaryVerified: input.SecondaryVerified,
		At:                now,
		CrisisMode:        input.CrisisMode,
	})
	if assessment.Decision == paymentdomain.DecisionBlock {
		u.recordEvent(ctx, "tokenization_blocked", cryptodomain.TierPersonal, input.Subject, map[string]any{
			"risk_score": assessment.Score,
			"factors":    assessment.Factors,
		}, false)
		return nil, paymentdomain.ErrRiskBlocked
	}

	token := &paymentdomain.PaymentToken{
		TokenID:        uuid.Must(uuid.NewV7()),
		Kind:           input.Kind,
		Subject:        input.Subject,
		DeviceBinding:  input.DeviceFingerprint,
		CreatedAt:      now,
		ExpiresAt:      now.Add(u.tokenTTL),
		RiskAssessment: assessment,
		CrisisOverride: input.CrisisMode,
	}
	if input.Kind == paymentdomain.MethodCard {
		token.Brand = paymentservice.DetectBrand(input.InstrumentNumber)
		token.Last4 = paymentservice.Last4(input.InstrumentNumber)
	}

	if err := u.persistToken(ctx, token); err != nil {
		return nil, err
	}

	tier := cryptodomain.TierPersonal
	if input.CrisisMode {
		tier = cryptodomain.TierCrisis
	}
	u.recordEvent(ctx, "token_created", tier, input.Subject, map[string]any{
		"token_id":        token.TokenID.String(),
		"kind":            string(token.Kind),
		"risk_score":      assessment.Score,
		"risk_decision":   string(assessment.Decision),
		"crisis_override": input.CrisisMode,
	}, input.CrisisMode)

	u.logger.Info("payment token created",
		slog.String("token_id", token.TokenID.String()),
		slog.Int("risk_score", assessment.Score),
		slog.Bool("crisis_override", input.CrisisMode),
	)
	return token, nil
}

// enforceRateLimit applies the per-subject limiter. In crisis mode a block
// is bypassed and the exemption persisted; the return value feeds the
// velocity factor of the risk assessment.
func (u *paymentUseCase) enforceRateLimit(ctx context.Context, key string, now time.Time, crisisMode bool) (bool, error) {
	result := u.rateLimiter.Check(key)
	if result.Allowed {
		// A block inside the last hour still counts as elevated velocity
		// even after the cooldown has lapsed.
		state, err := u.repo.GetRateState(ctx, key)
		if err != nil {
			return false, err
		}
		recentBlock := state != nil && state.ExemptionReason == "" && state.BlockedUntil.After(now.Add(-1*time.Hour))
		return recentBlock, nil
	}

	if crisisMode {
		state := &paymentdomain.RateLimitState{
			SubjectKey:      key,
			WindowStart:     now,
			BlockedUntil:    result.BlockedUntil,
			ExemptionReason: paymentdomain.ExemptionCrisis,
		}
		if err := u.repo.SaveRateState(ctx, state); err != nil {
			u.logger.Warn("failed to persist crisis rate exemption", slog.String("error", err.Error()))
		}
		u.logger.Warn("rate limit bypassed for crisis access", slog.String("subject_key", key))
		return true, nil
	}

	state := &paymentdomain.RateLimitState{
		SubjectKey:   key,
		WindowStart:  now,
		BlockedUntil: result.BlockedUntil,
	}
	if err := u.repo.SaveRateState(ctx, state); err != nil {
		u.logger.Warn("failed to persist rate state", slog.String("error", err.Error()))
	}
	return true, paymentdomain.ErrRateLimited
}

func (u *paymentUseCase) persistToken(ctx context.Context, token *paymentdomain.PaymentToken) error {
	plaintext, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}
	defer cryptodomain.Zero(plaintext)

	envelope, err := u.hierarchy.Encrypt(cryptodomain.DomainPayment, cryptodomain.TierPersonal, plaintext)
	if err != nil {
		return err
	}
	return u.repo.Save(ctx, &paymentdomain.EncryptedTokenRecord{
		TokenID:   token.TokenID,
		ExpiresAt: token.ExpiresAt,
		Envelope:  envelope.Encode(),
	})
}

// ValidateToken decrypts a token and checks the rate gate, TTL, and device
// binding. Crisis
// mode skips the binding check but the access is still audited.
func (u *paymentUseCase) ValidateToken(
	ctx context.Context,
	id uuid.UUID,
	deviceFingerprint string,
	crisisMode bool,
) (*paymentdomain.PaymentToken, error) {
	record, err := u.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	envelope, err := cryptodomain.DecodeEnvelope(record.Envelope)
	if err != nil {
		return nil, err
	}
	plaintext, err := u.hierarchy.Decrypt(cryptodomain.DomainPayment, envelope)
	if err != nil {
		return nil, err
	}
	defer cryptodomain.Zero(plaintext)

	token := &paymentdomain.PaymentToken{}
	if err := json.Unmarshal(plaintext, token); err != nil {
		return nil, fmt.Errorf("failed to unmarshal token: %w", err)
	}

	now := time.Now().UTC()
	if _, err := u.enforceRateLimit(ctx, subjectKey(token.Subject, deviceFingerprint), now, crisisMode); err != nil {
		return nil, err
	}

	if token.Expired(now) {
		return nil, paymentdomain.ErrTokenExpired
	}
	if !crisisMode && subtle.ConstantTimeCompare([]byte(token.DeviceBinding), []byte(deviceFingerprint)) != 1 {
		u.recordEvent(ctx, "device_binding_mismatch", cryptodomain.TierPersonal, token.Subject, map[string]any{
			"token_id": id.String(),
		}, false)
		return nil, paymentdomain.ErrDeviceBindingMismatch
	}
	return token, nil
}

// RevokeToken removes a token.
func (u *paymentUseCase) RevokeToken(ctx context.Context, id uuid.UUID) error {
	if err := u.repo.Delete(ctx, id); err != nil {
		return err
	}
	u.recordEvent(ctx, "token_revoked", cryptodomain.TierPersonal, "vault", map[string]any{
		"token_id": id.String(),
	}, false)
	return nil
}

// CleanupExpiredTokens deletes tokens past their TTL.
func (u *paymentUseCase) CleanupExpiredTokens(ctx context.Context) (int, error) {
	expired, err := u.repo.ListExpired(ctx, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	for _, id := range expired {
		if err := u.repo.Delete(ctx, id); err != nil {
			return 0, err
		}
	}
	if len(expired) > 0 {
		u.recordEvent(ctx, "token_expiry_sweep", cryptodomain.TierSystem, "vault", map[string]any{
			"deleted_count": len(expired),
		}, false)
	}
	return len(expired), nil
}

// ValidateSeparateEncryption verifies payment material cannot be read with
// primary-domain keys.
func (u *paymentUseCase) ValidateSeparateEncryption() error {
	if err := u.hierarchy.ValidateDomainIsolation(); err != nil {
		return err
	}

	// Probe: a payment-domain envelope must not decrypt in the primary domain.
	probe := []byte("domain isolation probe")
	envelope, err := u.hierarchy.Encrypt(cryptodomain.DomainPayment, cryptodomain.TierPersonal, probe)
	if err != nil {
		return err
	}
	if decrypted, err := u.hierarchy.Decrypt(cryptodomain.DomainPrimary, envelope); err == nil && bytes.Equal(decrypted, probe) {
		return fmt.Errorf("payment envelope decrypted with primary domain keys: %w", cryptodomain.ErrIntegrityViolation)
	}
	return nil
}

// recordEvent appends an audit event. Crisis-path events must not fail the
// caller, so errors are logged and swallowed there; elsewhere a failed
// append is surfaced in logs as well since token state has already changed.
func (u *paymentUseCase) recordEvent(ctx context.Context, eventType string, tier cryptodomain.Tier, actor string, metadata map[string]any, crisis bool) {
	event := auditdomain.NewAuditEvent(eventType, tier, actor, metadata)
	if err := u.audit.Record(ctx, event); err != nil {
		u.logger.Error("failed to record audit event",
			slog.String("event_type", eventType),
			slog.Bool("crisis", crisis),
			slog.String("error", err.Error()),
		)
	}
}
