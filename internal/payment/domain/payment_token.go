// Package domain defines payment tokenization types: minimized token
// records, risk assessments, and rate-limit state.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// PaymentMethodKind classifies the tokenized instrument.
type PaymentMethodKind string

const (
	MethodCard        PaymentMethodKind = "card"
	MethodBankAccount PaymentMethodKind = "bank-account"
	MethodWallet      PaymentMethodKind = "wallet"
)

// PaymentMethodKinds lists every accepted method kind.
var PaymentMethodKinds = []PaymentMethodKind{MethodCard, MethodBankAccount, MethodWallet}

// IsValid reports whether k is a known method kind.
func (k PaymentMethodKind) IsValid() bool {
	for _, known := range PaymentMethodKinds {
		if k == known {
			return true
		}
	}
	return false
}

// PaymentToken is the stored representation of a tokenized payment method.
// It deliberately holds only the last four digits and the brand; the full
// instrument number never survives tokenization.
type PaymentToken struct {
	TokenID        uuid.UUID         `json:"token_id"`
	Kind           PaymentMethodKind `json:"kind"`
	Brand          string            `json:"brand,omitempty"`
	Last4          string            `json:"last4,omitempty"`
	Subject        string            `json:"subject"`
	DeviceBinding  string            `json:"device_binding"`
	CreatedAt      time.Time         `json:"created_at"`
	ExpiresAt      time.Time         `json:"expires_at"`
	RiskAssessment RiskAssessment    `json:"risk_assessment"`
	CrisisOverride bool              `json:"crisis_override"`
}

// Expired reports whether the token is past its TTL.
func (t *PaymentToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// EncryptedTokenRecord is the persisted shape of a token: the payment-domain
// envelope plus the expiry needed for sweeps without decryption.
type EncryptedTokenRecord struct {
	TokenID   uuid.UUID `json:"token_id"`
	ExpiresAt time.Time `json:"expires_at"`
	Envelope  []byte    `json:"envelope"`
}

// RiskDecision is the fraud gate's verdict for a tokenization attempt.
type RiskDecision string

const (
	DecisionAllow     RiskDecision = "allow"
	DecisionChallenge RiskDecision = "challenge"
	DecisionBlock     RiskDecision = "block"
)

// RiskAssessment carries the computed fraud score and the factors behind it.
// When crisis mode overrides the gate, the score and factors are still
// recorded; only the decision changes.
type RiskAssessment struct {
	Score          int          `json:"score"`
	Decision       RiskDecision `json:"decision"`
	Factors        []string     `json:"factors,omitempty"`
	CrisisOverride bool         `json:"crisis_override"`
}
