// Package service provides the fraud gate and tokenization rate limiter.
package service

import (
	"time"

	paymentdomain "github.com/havenhealth/securecore/internal/payment/domain"
)

// Risk factor weights. Each factor contributes independently; the sum drives
// the decision thresholds below.
const (
	weightUnknownDevice = 30
	weightHighVelocity  = 25
	weightNoSecondary   = 20
	weightOffHours      = 15

	challengeThreshold = 40
	blockThreshold     = 70
)

// Off-hours window in the subject's local time.
const (
	offHoursStart = 22
	offHoursEnd   = 6
)

// AssessmentInput is the signal set the fraud gate scores.
type AssessmentInput struct {
	KnownDevice       bool
	VelocityExceeded  bool
	SecondaryVerified bool
	At                time.Time
	CrisisMode        bool
}

// FraudGate scores tokenization attempts.
type FraudGate interface {
	Assess(input AssessmentInput) paymentdomain.RiskAssessment
}

type weightedFraudGate struct{}

// NewFraudGate creates the weighted-factor fraud gate. In crisis mode the
// decision is forced to allow but the score and factors are still computed
// and recorded, so the override is auditable.
func NewFraudGate() FraudGate {
	return &weightedFraudGate{}
}

func (g *weightedFraudGate) Assess(input AssessmentInput) paymentdomain.RiskAssessment {
	var score int
	var factors []string

	if !input.KnownDevice {
		score += weightUnknownDevice
		factors = append(factors, "unknown_device")
	}
	if input.VelocityExceeded {
		score += weightHighVelocity
		factors = append(factors, "high_velocity")
	}
	if !input.SecondaryVerified {
		score += weightNoSecondary
		factors = append(factors, "no_secondary_verification")
	}
	if hour := input.At.Hour(); hour >= offHoursStart || hour < offHoursEnd {
		score += weightOffHours
		factors = append(factors, "off_hours")
	}

	decision := paymentdomain.DecisionAllow
	switch {
	case score >= blockThreshold:
		decision = paymentdomain.DecisionBlock
	case score >= challengeThreshold:
		decision = paymentdomain.DecisionChallenge
	}

	if input.CrisisMode {
		return paymentdomain.RiskAssessment{
			Score:          score,
			Decision:       paymentdomain.DecisionAllow,
			Factors:        factors,
			CrisisOverride: true,
		}
	}
	return paymentdomain.RiskAssessment{
		Score:    score,
		Decision: decision,
		Factors:  factors,
	}
}
