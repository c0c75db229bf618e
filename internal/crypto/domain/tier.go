package domain

// Tier classifies data sensitivity and drives key selection, rotation cadence,
// and audit requirements. Tiers are ordered by required protection strength;
// CRISIS demands the strictest handling, SYSTEM the loosest.
type Tier string

const (
	// TierCrisis covers safety-critical records that must stay reachable on the
	// emergency path. Mandates authenticated encryption, audit logging, and the
	// shortest rotation cadence.
	TierCrisis Tier = "crisis"

	// TierClinical covers clinical records. Same handling requirements as
	// TierCrisis.
	TierClinical Tier = "clinical"

	// TierPersonal covers personal user data. Authenticated encryption with a
	// longer rotation cadence.
	TierPersonal Tier = "personal"

	// TierTherapeutic covers therapeutic content such as journals and exercises.
	// Same handling as TierPersonal.
	TierTherapeutic Tier = "therapeutic"

	// TierSystem covers non-sensitive operational data. Encryption is a no-op
	// passthrough for this tier.
	TierSystem Tier = "system"
)

// Tiers lists all tiers in descending protection order.
var Tiers = []Tier{TierCrisis, TierClinical, TierPersonal, TierTherapeutic, TierSystem}

// tierRanks orders tiers by protection strength; lower rank means stronger.
var tierRanks = map[Tier]int{
	TierCrisis:      0,
	TierClinical:    1,
	TierPersonal:    2,
	TierTherapeutic: 3,
	TierSystem:      4,
}

// IsValid reports whether the tier is a known classification.
func (t Tier) IsValid() bool {
	_, ok := tierRanks[t]
	return ok
}

// RequiresEncryption reports whether data at this tier must be encrypted.
// Only TierSystem skips encryption.
func (t Tier) RequiresEncryption() bool {
	return t != TierSystem
}

// RequiresAudit reports whether operations at this tier mandate audit logging.
func (t Tier) RequiresAudit() bool {
	return t == TierCrisis || t == TierClinical
}

// StrongerThan reports whether t requires stronger protection than other.
func (t Tier) StrongerThan(other Tier) bool {
	return tierRanks[t] < tierRanks[other]
}

// Escalate returns the stronger of t and floor. Used by the audit encryptor,
// which never encrypts crisis or clinical events below TierClinical.
func (t Tier) Escalate(floor Tier) Tier {
	if floor.StrongerThan(t) {
		return floor
	}
	return t
}
