package domain

import (
	"math"
	"time"
)

// KeyRotationRecord tracks when a (domain, tier) key was last rotated and how
// often rotation is due. Rotation never destroys decryptability of existing
// envelopes: the previous derived key is retained until re-encryption
// completes, then wiped.
type KeyRotationRecord struct {
	Domain           KeyDomain     `json:"domain"`
	Tier             Tier          `json:"tier"`
	LastRotatedAt    time.Time     `json:"last_rotated_at"`
	RotationInterval time.Duration `json:"rotation_interval"`
}

// DaysUntilRotation returns the whole days remaining before rotation is due.
// Zero or negative means rotation is overdue. Used for compliance reporting
// only; rotation itself is always an explicit, audited operation.
func (r *KeyRotationRecord) DaysUntilRotation(now time.Time) int {
	due := r.LastRotatedAt.Add(r.RotationInterval)
	remaining := due.Sub(now)
	return int(math.Ceil(remaining.Hours() / 24))
}

// RotationDue reports whether the key is past its rotation interval.
func (r *KeyRotationRecord) RotationDue(now time.Time) bool {
	return !now.Before(r.LastRotatedAt.Add(r.RotationInterval))
}
