// Package repository persists encrypted audit records in the local bbolt
// store with a timestamp index for range queries.
package repository

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	auditdomain "github.com/havenhealth/securecore/internal/audit/domain"
	"github.com/havenhealth/securecore/internal/storage"
)

// BoltAuditRepository stores records keyed by event id, with a secondary
// index keyed by (timestamp, id) for chronological scans.
type BoltAuditRepository struct {
	store *storage.Store
}

// NewBoltAuditRepository creates an audit repository on the given store.
func NewBoltAuditRepository(store *storage.Store) *BoltAuditRepository {
	return &BoltAuditRepository{store: store}
}

func indexKey(timestamp time.Time, id uuid.UUID) []byte {
	key := make([]byte, 8+16)
	binary.BigEndian.PutUint64(key[:8], uint64(timestamp.UnixNano()))
	copy(key[8:], id[:])
	return key
}

// Append persists a new record. Records are never updated in place.
func (r *BoltAuditRepository) Append(_ context.Context, record *auditdomain.EncryptedAuditRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal audit record: %w", err)
	}
	return r.store.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(storage.AuditBucket).Put(record.ID[:], data); err != nil {
			return err
		}
		return tx.Bucket(storage.AuditIdxBucket).Put(indexKey(record.Timestamp, record.ID), record.ID[:])
	})
}

// Get returns the record for an id, or ErrEventNotFound.
func (r *BoltAuditRepository) Get(_ context.Context, id uuid.UUID) (*auditdomain.EncryptedAuditRecord, error) {
	var record *auditdomain.EncryptedAuditRecord
	err := r.store.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(storage.AuditBucket).Get(id[:])
		if data == nil {
			return auditdomain.ErrEventNotFound
		}
		record = &auditdomain.EncryptedAuditRecord{}
		return json.Unmarshal(data, record)
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// Query returns records with timestamps in [from, to], oldest first.
func (r *BoltAuditRepository) Query(_ context.Context, from, to time.Time) ([]*auditdomain.EncryptedAuditRecord, error) {
	var records []*auditdomain.EncryptedAuditRecord
	start := make([]byte, 8)
	// Index keys are unsigned, so pre-epoch bounds clamp to zero.
	if ns := from.UnixNano(); ns > 0 {
		binary.BigEndian.PutUint64(start, uint64(ns))
	}
	end := make([]byte, 8)
	if ns := to.UnixNano(); ns > 0 {
		binary.BigEndian.PutUint64(end, uint64(ns))
	}

	err := r.store.View(func(tx *bolt.Tx) error {
		recordBucket := tx.Bucket(storage.AuditBucket)
		cursor := tx.Bucket(storage.AuditIdxBucket).Cursor()
		for k, id := cursor.Seek(start); k != nil && bytes.Compare(k[:8], end) <= 0; k, id = cursor.Next() {
			data := recordBucket.Get(id)
			if data == nil {
				continue
			}
			record := &auditdomain.EncryptedAuditRecord{}
			if err := json.Unmarshal(data, record); err != nil {
				return fmt.Errorf("failed to unmarshal audit record %x: %w", id, err)
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

// ListExpired returns records past their retention window at the given time.
func (r *BoltAuditRepository) ListExpired(_ context.Context, now time.Time) ([]*auditdomain.EncryptedAuditRecord, error) {
	var expired []*auditdomain.EncryptedAuditRecord
	err := r.store.View(func(tx *bolt.Tx) error {
		return tx.Bucket(storage.AuditBucket).ForEach(func(_, v []byte) error {
			record := &auditdomain.EncryptedAuditRecord{}
			if err := json.Unmarshal(v, record); err != nil {
				return fmt.Errorf("failed to unmarshal audit record: %w", err)
			}
			if record.Expired(now) {
				expired = append(expired, record)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return expired, nil
}

// Delete removes records and their index entries. Missing ids are skipped.
func (r *BoltAuditRepository) Delete(_ context.Context, ids []uuid.UUID) error {
	return r.store.Update(func(tx *bolt.Tx) error {
		recordBucket := tx.Bucket(storage.AuditBucket)
		indexBucket := tx.Bucket(storage.AuditIdxBucket)
		for _, id := range ids {
			data := recordBucket.Get(id[:])
			if data == nil {
				continue
			}
			record := &auditdomain.EncryptedAuditRecord{}
			if err := json.Unmarshal(data, record); err != nil {
				return fmt.Errorf("failed to unmarshal audit record %s: %w", id, err)
			}
			if err := indexBucket.Delete(indexKey(record.Timestamp, id)); err != nil {
				return err
			}
			if err := recordBucket.Delete(id[:]); err != nil {
				return err
			}
		}
		return nil
	})
}

// Count returns the total number of stored records.
func (r *BoltAuditRepository) Count(_ context.Context) (int, error) {
	var count int
	err := r.store.View(func(tx *bolt.Tx) error {
		count = tx.Bucket(storage.AuditBucket).Stats().KeyN
		return nil
	})
	return count, err
}
