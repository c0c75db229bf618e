// Package repository persists rotation records and derived-key metadata in the
// local bbolt store. Key material itself is never written here.
package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	bolt "go.etcd.io/bbolt"

	cryptodomain "github.com/havenhealth/securecore/internal/crypto/domain"
	apperrors "github.com/havenhealth/securecore/internal/errors"
	"github.com/havenhealth/securecore/internal/storage"
)

// BoltRotationRepository stores KeyRotationRecord and DerivedKeyMetadata
// entries keyed by "domain/tier".
type BoltRotationRepository struct {
	store *storage.Store
}

// NewBoltRotationRepository creates a rotation repository on the given store.
func NewBoltRotationRepository(store *storage.Store) *BoltRotationRepository {
	return &BoltRotationRepository{store: store}
}

func recordKey(domain cryptodomain.KeyDomain, tier cryptodomain.Tier) []byte {
	return []byte(string(domain) + "/" + string(tier))
}

// GetRecord returns the rotation record for (domain, tier), or ErrNotFound.
func (r *BoltRotationRepository) GetRecord(
	_ context.Context,
	domain cryptodomain.KeyDomain,
	tier cryptodomain.Tier,
) (*cryptodomain.KeyRotationRecord, error) {
	var record *cryptodomain.KeyRotationRecord
	err := r.store.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(storage.RotationBucket).Get(recordKey(domain, tier))
		if data == nil {
			return apperrors.Wrap(apperrors.ErrNotFound, "rotation record")
		}
		record = &cryptodomain.KeyRotationRecord{}
		return json.Unmarshal(data, record)
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// SaveRecord upserts a rotation record.
func (r *BoltRotationRepository) SaveRecord(
	_ context.Context,
	record *cryptodomain.KeyRotationRecord,
) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal rotation record: %w", err)
	}
	return r.store.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(storage.RotationBucket).Put(recordKey(record.Domain, record.Tier), data)
	})
}

// ListRecords returns all rotation records for a domain.
func (r *BoltRotationRepository) ListRecords(
	_ context.Context,
	domain cryptodomain.KeyDomain,
) ([]*cryptodomain.KeyRotationRecord, error) {
	var records []*cryptodomain.KeyRotationRecord
	prefix := []byte(string(domain) + "/")
	err := r.store.View(func(tx *bolt.Tx) error {
		cursor := tx.Bucket(storage.RotationBucket).Cursor()
		for k, v := cursor.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = cursor.Next() {
			record := &cryptodomain.KeyRotationRecord{}
			if err := json.Unmarshal(v, record); err != nil {
				return fmt.Errorf("failed to unmarshal rotation record %s: %w", k, err)
			}
			records = append(records, record)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// GetKeyMetadata returns the derived-key metadata for (domain, tier), or ErrNotFound.
func (r *BoltRotationRepository) GetKeyMetadata(
	_ context.Context,
	domain cryptodomain.KeyDomain,
	tier cryptodomain.Tier,
) (*cryptodomain.DerivedKeyMetadata, error) {
	var meta *cryptodomain.DerivedKeyMetadata
	err := r.store.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(storage.KeyMetaBucket).Get(recordKey(domain, tier))
		if data == nil {
			return apperrors.Wrap(apperrors.ErrNotFound, "key metadata")
		}
		meta = &cryptodomain.DerivedKeyMetadata{}
		return json.Unmarshal(data, meta)
	})
	if err != nil {
		return nil, err
	}
	return meta, nil
}

// SaveKeyMetadata upserts derived-key metadata. Only fingerprints are stored.
func (r *BoltRotationRepository) SaveKeyMetadata(
	_ context.Context,
	meta *cryptodomain.DerivedKeyMetadata,
) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to marshal key metadata: %w", err)
	}
	return r.store.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(storage.KeyMetaBucket).Put(recordKey(meta.Domain, meta.Tier), data)
	})
}

// ListKeyMetadata returns all derived-key metadata for a domain.
func (r *BoltRotationRepository) ListKeyMetadata(
	_ context.Context,
	domain cryptodomain.KeyDomain,
) ([]*cryptodomain.DerivedKeyMetadata, error) {
	var metas []*cryptodomain.DerivedKeyMetadata
	prefix := []byte(string(domain) + "/")
	err := r.store.View(func(tx *bolt.Tx) error {
		cursor := tx.Bucket(storage.KeyMetaBucket).Cursor()
		for k, v := cursor.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = cursor.Next() {
			meta := &cryptodomain.DerivedKeyMetadata{}
			if err := json.Unmarshal(v, meta); err != nil {
				return fmt.Errorf("failed to unmarshal key metadata %s: %w", k, err)
			}
			metas = append(metas, meta)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return metas, nil
}
