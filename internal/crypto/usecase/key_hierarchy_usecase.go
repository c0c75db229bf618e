package usecase

import (
	"context"
	"log/slog"
	"sync"
	"time"

	cryptodomain "github.com/havenhealth/securecore/internal/crypto/domain"
	cryptoservice "github.com/havenhealth/securecore/internal/crypto/service"
	apperrors "github.com/havenhealth/securecore/internal/errors"
)

// RotationIntervals maps each (domain, tier) pair to its rotation cadence.
type RotationIntervals struct {
	// Crisis applies to CRISIS and CLINICAL tiers in the primary domain.
	Crisis time.Duration
	// Personal applies to PERSONAL, THERAPEUTIC, and SYSTEM tiers in the
	// primary domain.
	Personal time.Duration
	// Payment applies to every tier of the payment domain; shortest of all.
	Payment time.Duration
}

// IntervalFor returns the rotation interval for (domain, tier).
func (r RotationIntervals) IntervalFor(domain cryptodomain.KeyDomain, tier cryptodomain.Tier) time.Duration {
	if domain == cryptodomain.DomainPayment {
		return r.Payment
	}
	if tier.RequiresAudit() {
		return r.Crisis
	}
	return r.Personal
}

// keyHierarchyUseCase implements KeyHierarchy. All mutable key state is owned
// here and guarded by mu; callers never touch secrets or derived keys
// directly, and rotation is the only way key material changes.
type keyHierarchyUseCase struct {
	credentials cryptoservice.CredentialStore
	deriver     cryptoservice.KeyDeriver
	aeadManager cryptoservice.AEADManager
	repo        RotationRepository
	logger      *slog.Logger
	algorithm   cryptodomain.Algorithm
	intervals   RotationIntervals

	mu          sync.RWMutex
	initialized bool
	secrets     map[cryptodomain.KeyDomain]*cryptodomain.MasterSecret
	keys        map[cryptodomain.KeyDomain]map[cryptodomain.Tier]*cryptodomain.DerivedKey
	// previousKeys holds retired keys between Rotate and CompleteRotation so
	// envelopes written before rotation stay decryptable.
	previousKeys map[cryptodomain.KeyDomain]map[cryptodomain.Tier]*cryptodomain.DerivedKey
}

// NewKeyHierarchyUseCase creates the key hierarchy manager. Initialize must be
// called before any cryptographic operation.
func NewKeyHierarchyUseCase(
	credentials cryptoservice.CredentialStore,
	deriver cryptoservice.KeyDeriver,
	aeadManager cryptoservice.AEADManager,
	repo RotationRepository,
	intervals RotationIntervals,
	logger *slog.Logger,
) KeyHierarchy {
	return &keyHierarchyUseCase{
		credentials:  credentials,
		deriver:      deriver,
		aeadManager:  aeadManager,
		repo:         repo,
		logger:       logger,
		algorithm:    cryptodomain.ChaCha20,
		intervals:    intervals,
		secrets:      make(map[cryptodomain.KeyDomain]*cryptodomain.MasterSecret),
		keys:         make(map[cryptodomain.KeyDomain]map[cryptodomain.Tier]*cryptodomain.DerivedKey),
		previousKeys: make(map[cryptodomain.KeyDomain]map[cryptodomain.Tier]*cryptodomain.DerivedKey),
	}
}

// Initialize loads or generates master secrets for all key domains and
// derives the full tier key set for each.
func (u *keyHierarchyUseCase) Initialize(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.initialized {
		return nil
	}

	if u.credentials.Degraded() {
		u.logger.Warn("credential store running in degraded fallback mode; not acceptable in production")
	}

	for _, domain := range cryptodomain.KeyDomains {
		secret, err := u.loadOrCreateSecret(domain)
		if err != nil {
			return err
		}
		u.secrets[domain] = secret

		keys, err := u.deriveAllTiers(secret)
		if err != nil {
			return err
		}
		u.keys[domain] = keys

		if err := u.persistKeyState(ctx, domain, keys); err != nil {
			return err
		}
	}

	u.initialized = true
	u.logger.Info("key hierarchy initialized",
		slog.Int("domains", len(u.secrets)),
		slog.Bool("degraded", u.credentials.Degraded()))
	return nil
}

// loadOrCreateSecret reads the domain's master secret from the credential
// store, generating and persisting a fresh one on first run.
func (u *keyHierarchyUseCase) loadOrCreateSecret(domain cryptodomain.KeyDomain) (*cryptodomain.MasterSecret, error) {
	raw, err := u.credentials.Get(domain.CredentialKey())
	if err == nil {
		if len(raw) != cryptodomain.MasterSecretSize {
			return nil, cryptodomain.ErrInvalidKeySize
		}
		return &cryptodomain.MasterSecret{Domain: domain, Secret: raw, CreatedAt: time.Now().UTC()}, nil
	}
	if !apperrors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	secret, err := cryptodomain.NewMasterSecret(domain)
	if err != nil {
		return nil, apperrors.Wrap(cryptodomain.ErrEncryptionFailure, err.Error())
	}
	if err := u.credentials.Set(domain.CredentialKey(), secret.Secret); err != nil {
		secret.Wipe()
		return nil, err
	}
	return secret, nil
}

// deriveAllTiers derives the key for every tier of the secret's domain.
func (u *keyHierarchyUseCase) deriveAllTiers(
	secret *cryptodomain.MasterSecret,
) (map[cryptodomain.Tier]*cryptodomain.DerivedKey, error) {
	keys := make(map[cryptodomain.Tier]*cryptodomain.DerivedKey, len(cryptodomain.Tiers))
	for _, tier := range cryptodomain.Tiers {
		derived, err := u.deriver.DeriveKey(secret, tier)
		if err != nil {
			return nil, err
		}
		keys[tier] = derived
	}
	return keys, nil
}

// persistKeyState writes key metadata and seeds rotation records for tiers
// that have none yet.
func (u *keyHierarchyUseCase) persistKeyState(
	ctx context.Context,
	domain cryptodomain.KeyDomain,
	keys map[cryptodomain.Tier]*cryptodomain.DerivedKey,
) error {
	for tier, key := range keys {
		meta := &cryptodomain.DerivedKeyMetadata{
			Domain:      domain,
			Tier:        tier,
			Fingerprint: key.Fingerprint(),
			CreatedAt:   key.CreatedAt,
		}
		if err := u.repo.SaveKeyMetadata(ctx, meta); err != nil {
			return err
		}

		if _, err := u.repo.GetRecord(ctx, domain, tier); err != nil {
			if !apperrors.Is(err, apperrors.ErrNotFound) {
				return err
			}
			record := &cryptodomain.KeyRotationRecord{
				Domain:           domain,
				Tier:             tier,
				LastRotatedAt:    time.Now().UTC(),
				RotationInterval: u.intervals.IntervalFor(domain, tier),
			}
			if err := u.repo.SaveRecord(ctx, record); err != nil {
				return err
			}
		}
	}
	return nil
}

// Encrypt produces an envelope for plaintext at the given tier.
func (u *keyHierarchyUseCase) Encrypt(
	domain cryptodomain.KeyDomain,
	tier cryptodomain.Tier,
	plaintext []byte,
) (*cryptodomain.EncryptedEnvelope, error) {
	if !tier.IsValid() {
		return nil, cryptodomain.ErrInvalidTier
	}

	// SYSTEM tier is a deliberate passthrough: non-sensitive data is wrapped
	// with an empty nonce and no ciphertext protection.
	if !tier.RequiresEncryption() {
		return &cryptodomain.EncryptedEnvelope{
			Tier:       tier,
			Ciphertext: append([]byte(nil), plaintext...),
			CreatedAt:  time.Now().UTC(),
		}, nil
	}

	key, err := u.currentKey(domain, tier)
	if err != nil {
		return nil, err
	}

	cipher, err := u.aeadManager.CreateCipher(key.Key, u.algorithm)
	if err != nil {
		return nil, apperrors.Wrap(cryptodomain.ErrEncryptionFailure, err.Error())
	}

	ciphertext, nonce, err := cipher.Encrypt(plaintext, envelopeAAD(domain, tier))
	if err != nil {
		return nil, apperrors.Wrap(cryptodomain.ErrEncryptionFailure, err.Error())
	}

	return &cryptodomain.EncryptedEnvelope{
		Tier:       tier,
		Nonce:      nonce,
		Ciphertext: ciphertext,
		CreatedAt:  time.Now().UTC(),
	}, nil
}

// Decrypt recovers plaintext from an envelope, trying the current key first
// and falling back to the retained pre-rotation key. Authentication failure
// on all candidate keys is an integrity violation, not unavailability.
func (u *keyHierarchyUseCase) Decrypt(
	domain cryptodomain.KeyDomain,
	envelope *cryptodomain.EncryptedEnvelope,
) ([]byte, error) {
	if envelope == nil || !envelope.Tier.IsValid() {
		return nil, cryptodomain.ErrMalformedEnvelope
	}

	if envelope.IsPassthrough() {
		return append([]byte(nil), envelope.Ciphertext...), nil
	}

	current, err := u.currentKey(domain, envelope.Tier)
	if err != nil {
		return nil, err
	}

	aad := envelopeAAD(domain, envelope.Tier)
	plaintext, err := u.tryDecrypt(current, envelope, aad)
	if err == nil {
		return plaintext, nil
	}

	// Rotation in progress: envelopes written before Rotate still verify
	// against the retained previous key.
	if previous := u.retainedKey(domain, envelope.Tier); previous != nil {
		if plaintext, err := u.tryDecrypt(previous, envelope, aad); err == nil {
			return plaintext, nil
		}
	}

	return nil, cryptodomain.ErrIntegrityViolation
}

func (u *keyHierarchyUseCase) tryDecrypt(
	key *cryptodomain.DerivedKey,
	envelope *cryptodomain.EncryptedEnvelope,
	aad []byte,
) ([]byte, error) {
	cipher, err := u.aeadManager.CreateCipher(key.Key, u.algorithm)
	if err != nil {
		return nil, apperrors.Wrap(cryptodomain.ErrEncryptionFailure, err.Error())
	}
	return cipher.Decrypt(envelope.Ciphertext, envelope.Nonce, aad)
}

// Rotate generates a new master secret for the domain, re-derives all tier
// keys, and retains the previous keys until CompleteRotation. The caller
// re-encrypts existing envelopes between the two calls; the manager itself
// never does bulk re-encryption.
func (u *keyHierarchyUseCase) Rotate(ctx context.Context, domain cryptodomain.KeyDomain) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if !u.initialized {
		return cryptodomain.ErrNotInitialized
	}
	if !domain.IsValid() {
		return apperrors.Wrap(apperrors.ErrInvalidInput, "unknown key domain")
	}

	newSecret, err := cryptodomain.NewMasterSecret(domain)
	if err != nil {
		return apperrors.Wrap(cryptodomain.ErrEncryptionFailure, err.Error())
	}

	newKeys, err := u.deriveAllTiers(newSecret)
	if err != nil {
		return err
	}

	// Persist the new secret before swapping in-memory state so a crash here
	// cannot leave the store and memory disagreeing.
	if err := u.credentials.Set(domain.CredentialKey(), newSecret.Secret); err != nil {
		return err
	}

	oldSecret := u.secrets[domain]
	u.previousKeys[domain] = u.keys[domain]
	u.secrets[domain] = newSecret
	u.keys[domain] = newKeys
	if oldSecret != nil {
		oldSecret.Wipe()
	}

	now := time.Now().UTC()
	for tier := range newKeys {
		record := &cryptodomain.KeyRotationRecord{
			Domain:           domain,
			Tier:             tier,
			LastRotatedAt:    now,
			RotationInterval: u.intervals.IntervalFor(domain, tier),
		}
		if err := u.repo.SaveRecord(ctx, record); err != nil {
			return err
		}
	}
	if err := u.persistKeyState(ctx, domain, newKeys); err != nil {
		return err
	}

	u.logger.Info("key domain rotated", slog.String("domain", string(domain)))
	return nil
}

// CompleteRotation wipes the retained previous keys for the domain. Call only
// after every pre-rotation envelope has been re-encrypted.
func (u *keyHierarchyUseCase) CompleteRotation(domain cryptodomain.KeyDomain) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	previous, ok := u.previousKeys[domain]
	if !ok {
		return apperrors.Wrap(apperrors.ErrNotFound, "no rotation in progress")
	}
	for _, key := range previous {
		key.Wipe()
	}
	delete(u.previousKeys, domain)

	u.logger.Info("rotation completed, previous keys wiped", slog.String("domain", string(domain)))
	return nil
}

// DaysUntilRotation reports whole days until rotation is due.
func (u *keyHierarchyUseCase) DaysUntilRotation(
	ctx context.Context,
	domain cryptodomain.KeyDomain,
	tier cryptodomain.Tier,
) (int, error) {
	record, err := u.repo.GetRecord(ctx, domain, tier)
	if err != nil {
		return 0, err
	}
	return record.DaysUntilRotation(time.Now().UTC()), nil
}

// ValidateDomainIsolation verifies credential-store namespaces are disjoint
// and no derived key is shared between domains.
func (u *keyHierarchyUseCase) ValidateDomainIsolation() error {
	u.mu.RLock()
	defer u.mu.RUnlock()

	if !u.initialized {
		return cryptodomain.ErrNotInitialized
	}

	seen := make(map[string]cryptodomain.KeyDomain)
	for _, domain := range cryptodomain.KeyDomains {
		credKey := domain.CredentialKey()
		if other, dup := seen[credKey]; dup {
			return apperrors.Wrap(apperrors.ErrConflict,
				"credential namespace collision between "+string(other)+" and "+string(domain))
		}
		seen[credKey] = domain
	}

	fingerprints := make(map[string]cryptodomain.KeyDomain)
	for domain, keys := range u.keys {
		for _, key := range keys {
			fp := key.Fingerprint()
			if other, dup := fingerprints[fp]; dup && other != domain {
				return apperrors.Wrap(apperrors.ErrConflict,
					"derived key shared between "+string(other)+" and "+string(domain))
			}
			fingerprints[fp] = domain
		}
	}
	return nil
}

// Initialized reports whether Initialize has completed.
func (u *keyHierarchyUseCase) Initialized() bool {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.initialized
}

// Degraded reports whether the credential store is the weaker fallback.
func (u *keyHierarchyUseCase) Degraded() bool {
	return u.credentials.Degraded()
}

// currentKey returns the active derived key for (domain, tier).
func (u *keyHierarchyUseCase) currentKey(
	domain cryptodomain.KeyDomain,
	tier cryptodomain.Tier,
) (*cryptodomain.DerivedKey, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()

	if !u.initialized {
		return nil, cryptodomain.ErrNotInitialized
	}
	keys, ok := u.keys[domain]
	if !ok {
		return nil, cryptodomain.ErrKeyNotFound
	}
	key, ok := keys[tier]
	if !ok {
		return nil, cryptodomain.ErrKeyNotFound
	}
	return key, nil
}

// retainedKey returns the pre-rotation key for (domain, tier), or nil.
func (u *keyHierarchyUseCase) retainedKey(
	domain cryptodomain.KeyDomain,
	tier cryptodomain.Tier,
) *cryptodomain.DerivedKey {
	u.mu.RLock()
	defer u.mu.RUnlock()
	if keys, ok := u.previousKeys[domain]; ok {
		return keys[tier]
	}
	return nil
}

// envelopeAAD binds ciphertext to its (domain, tier) context so an envelope
// cannot be replayed under a different classification.
func envelopeAAD(domain cryptodomain.KeyDomain, tier cryptodomain.Tier) []byte {
	return []byte(string(domain) + "\n" + string(tier))
}
