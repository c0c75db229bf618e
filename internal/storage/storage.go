// Package storage provides the local bbolt database that backs all persisted
// state: rotation records, key metadata, payment tokens, rate-limit state, and
// encrypted audit events. Secrets themselves are never stored here; they live
// in the platform credential store.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Bucket names.
var (
	ConfigBucket    = []byte("config")     // schema version, canary envelope
	RotationBucket  = []byte("rotation")   // per-(domain,tier) rotation records
	KeyMetaBucket   = []byte("keymeta")    // derived-key fingerprints, never key material
	TokenBucket     = []byte("tokens")     // payment tokens by token ID
	RateStateBucket = []byte("ratestate")  // rate-limit state by subject key
	AuditBucket     = []byte("audit")      // encrypted audit events by event ID
	AuditIdxBucket  = []byte("audit_time") // time-ordered index into AuditBucket
)

// Config keys.
var (
	ConfigVersion = []byte("version")
	ConfigCreated = []byte("created")
	ConfigCanary  = []byte("canary")
)

const schemaVersion = "1"

// Store wraps a bbolt database with the bucket layout used by the repositories.
type Store struct {
	db *bolt.DB
}

// Open opens or creates the database at path, creating parent directories and
// the bucket structure as needed. The file is created with 0600 permissions.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.initialize(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying bbolt handle to repositories.
func (s *Store) DB() *bolt.DB {
	return s.db
}

// View executes a read-only transaction.
func (s *Store) View(fn func(tx *bolt.Tx) error) error {
	return s.db.View(fn)
}

// Update executes a read-write transaction.
func (s *Store) Update(fn func(tx *bolt.Tx) error) error {
	return s.db.Update(fn)
}

// initialize creates the bucket structure and stamps the schema version.
func (s *Store) initialize() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		buckets := [][]byte{
			ConfigBucket, RotationBucket, KeyMetaBucket,
			TokenBucket, RateStateBucket, AuditBucket, AuditIdxBucket,
		}
		for _, bucket := range buckets {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}

		config := tx.Bucket(ConfigBucket)
		if config.Get(ConfigVersion) != nil {
			return nil
		}
		if err := config.Put(ConfigVersion, []byte(schemaVersion)); err != nil {
			return err
		}
		created, err := time.Now().UTC().MarshalBinary()
		if err != nil {
			return err
		}
		return config.Put(ConfigCreated, created)
	})
}

// GetConfig reads a value from the config bucket. Returns nil when absent.
func (s *Store) GetConfig(key []byte) ([]byte, error) {
	var value []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(ConfigBucket).Get(key); v != nil {
			value = append([]byte(nil), v...)
		}
		return nil
	})
	return value, err
}

// SetConfig writes a value to the config bucket.
func (s *Store) SetConfig(key, value []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(ConfigBucket).Put(key, value)
	})
}
