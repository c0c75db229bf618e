package domain

// KeyDomain names an isolated key hierarchy. Each domain owns its own master
// secret under its own credential-store namespace; derived keys never cross
// domains.
type KeyDomain string

const (
	// DomainPrimary is the key domain for application data encryption.
	DomainPrimary KeyDomain = "primary"

	// DomainPayment is the fully isolated key domain for payment tokenization.
	// It never shares a master secret or credential-store namespace with
	// DomainPrimary.
	DomainPayment KeyDomain = "payment"
)

// KeyDomains lists all key domains.
var KeyDomains = []KeyDomain{DomainPrimary, DomainPayment}

// CredentialKey returns the credential-store entry name for the domain's
// master secret. Namespaces are disjoint by construction; startup verifies
// this with ValidateSeparateEncryption.
func (d KeyDomain) CredentialKey() string {
	return "securecore-master-" + string(d)
}

// IsValid reports whether the domain is known.
func (d KeyDomain) IsValid() bool {
	return d == DomainPrimary || d == DomainPayment
}
