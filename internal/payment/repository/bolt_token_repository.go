// Package repository persists encrypted payment tokens and rate-limit state
// in the local bbolt store.
package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	paymentdomain "github.com/havenhealth/securecore/internal/payment/domain"
	"github.com/havenhealth/securecore/internal/storage"
)

// BoltTokenRepository stores tokens keyed by token id and rate-limit state
// keyed by subject key.
type BoltTokenRepository struct {
	store *storage.Store
}

// NewBoltTokenRepository creates a token repository on the given store.
func NewBoltTokenRepository(store *storage.Store) *BoltTokenRepository {
	return &BoltTokenRepository{store: store}
}

// Save upserts a stored token.
func (r *BoltTokenRepository) Save(_ context.Context, token *paymentdomain.EncryptedTokenRecord) error {
	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}
	return r.store.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(storage.TokenBucket).Put(token.TokenID[:], data)
	})
}

// Get returns the stored token for an id, or ErrTokenNotFound.
func (r *BoltTokenRepository) Get(_ context.Context, id uuid.UUID) (*paymentdomain.EncryptedTokenRecord, error) {
	var token *paymentdomain.EncryptedTokenRecord
	err := r.store.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(storage.TokenBucket).Get(id[:])
		if data == nil {
			return paymentdomain.ErrTokenNotFound
		}
		token = &paymentdomain.EncryptedTokenRecord{}
		return json.Unmarshal(data, token)
	})
	if err != nil {
		return nil, err
	}
	return token, nil
}

// Delete removes a stored token. Deleting a missing token is not an error.
func (r *BoltTokenRepository) Delete(_ context.Context, id uuid.UUID) error {
	return r.store.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(storage.TokenBucket).Delete(id[:])
	})
}

// ListExpired returns ids of tokens past their TTL at the given time.
func (r *BoltTokenRepository) ListExpired(_ context.Context, now time.Time) ([]uuid.UUID, error) {
	var expired []uuid.UUID
	err := r.store.View(func(tx *bolt.Tx) error {
		return tx.Bucket(storage.TokenBucket).ForEach(func(_, v []byte) error {
			token := &paymentdomain.EncryptedTokenRecord{}
			if err := json.Unmarshal(v, token); err != nil {
				return fmt.Errorf("failed to unmarshal token: %w", err)
			}
			if now.After(token.ExpiresAt) {
				expired = append(expired, token.TokenID)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return expired, nil
}

// SaveRateState upserts the rate-limit state for a subject key.
func (r *BoltTokenRepository) SaveRateState(_ context.Context, state *paymentdomain.RateLimitState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal rate state: %w", err)
	}
	return r.store.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(storage.RateStateBucket).Put([]byte(state.SubjectKey), data)
	})
}

// GetRateState returns the rate-limit state for a subject key, or nil when
// none has been recorded.
func (r *BoltTokenRepository) GetRateState(_ context.Context, subjectKey string) (*paymentdomain.RateLimitState, error) {
	var state *paymentdomain.RateLimitState
	err := r.store.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(storage.RateStateBucket).Get([]byte(subjectKey))
		if data == nil {
			return nil
		}
		state = &paymentdomain.RateLimitState{}
		return json.Unmarshal(data, state)
	})
	if err != nil {
		return nil, err
	}
	return state, nil
}
