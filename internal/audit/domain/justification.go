package domain

// AccessJustification states why an encrypted audit record is being read.
// Decryption without one is refused.
type AccessJustification string

const (
	JustificationComplianceAudit       AccessJustification = "compliance-audit"
	JustificationSecurityInvestigation AccessJustification = "security-investigation"
	JustificationCrisisResponse        AccessJustification = "crisis-response"
	JustificationTherapeuticAccess     AccessJustification = "therapeutic-access"
)

// AccessJustifications lists every accepted justification.
var AccessJustifications = []AccessJustification{
	JustificationComplianceAudit,
	JustificationSecurityInvestigation,
	JustificationCrisisResponse,
	JustificationTherapeuticAccess,
}

// IsValid reports whether j is an accepted justification.
func (j AccessJustification) IsValid() bool {
	for _, known := range AccessJustifications {
		if j == known {
			return true
		}
	}
	return false
}

func (j AccessJustification) String() string {
	return string(j)
}
