package domain

import (
	"time"
)

// ExemptionCrisis marks a rate-limit bypass granted to a crisis-mode
// tokenization attempt. Crisis access always overrides payment throttling.
const ExemptionCrisis = "crisis"

// RateLimitState records the throttling status of one (subject, device)
// pair. Persisted so blocks survive restarts and exemptions leave a trace.
type RateLimitState struct {
	SubjectKey   string    `json:"subject_key"`
	WindowStart  time.Time `json:"window_start"`
	AttemptCount int       `json:"attempt_count"`
	BlockedUntil time.Time `json:"blocked_until,omitempty"`

	// ExemptionReason is set when a block was bypassed rather than enforced.
	ExemptionReason string `json:"exemption_reason,omitempty"`
}

// Blocked reports whether the subject is inside a cooldown window.
func (s *RateLimitState) Blocked(now time.Time) bool {
	return now.Before(s.BlockedUntil)
}
