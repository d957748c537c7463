package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

// discoveryBucket stores one DiscoveryRecord per sensor unique id.
const discoveryBucket = "discovery"

// BoltStore is a bbolt implementation of the Store interface.
type BoltStore struct {
	db *bbolt.DB
}

// NewBoltStore opens (or creates) the state database at path.
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{
		Timeout: 1 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(discoveryBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create discovery bucket: %w", err)
	}

	return &BoltStore{db: db}, nil
}

// RecordDiscovery implements Store.RecordDiscovery.
func (s *BoltStore) RecordDiscovery(uniqueID string, rec DiscoveryRecord) (bool, error) {
	changed := true
	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(discoveryBucket))
		if bucket == nil {
			return fmt.Errorf("discovery bucket not found")
		}

		if data := bucket.Get([]byte(uniqueID)); data != nil {
			var prev DiscoveryRecord
			if err := json.Unmarshal(data, &prev); err == nil {
				changed = prev.Checksum != rec.Checksum
			}
		}

		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to marshal discovery record: %w", err)
		}
		return bucket.Put([]byte(uniqueID), data)
	})
	return changed, err
}

// LastDiscovery implements Store.LastDiscovery.
func (s *BoltStore) LastDiscovery(uniqueID string) (*DiscoveryRecord, error) {
	var rec *DiscoveryRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(discoveryBucket))
		if bucket == nil {
			return fmt.Errorf("discovery bucket not found")
		}

		data := bucket.Get([]byte(uniqueID))
		if data == nil {
			return ErrNotFound
		}

		rec = &DiscoveryRecord{}
		return json.Unmarshal(data, rec)
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Close closes the underlying database.
func (s *BoltStore) Close() error {
	return s.db.Close()
}
