// Package storage persists discovery bookkeeping between daemon runs
package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a key is not found.
var ErrNotFound = errors.New("key not found")

// DiscoveryRecord captures the last discovery payload published for one
// sensor entity, so a restart can tell whether its configuration changed.
type DiscoveryRecord struct {
	Checksum    string    `json:"checksum"`
	Topic       string    `json:"topic"`
	PublishedAt time.Time `json:"published_at"`
}

// Store is the persistence interface for discovery bookkeeping.
type Store interface {
	// RecordDiscovery saves the record for uniqueID and reports whether the
	// payload checksum differs from the previously stored one.
	RecordDiscovery(uniqueID string, rec DiscoveryRecord) (changed bool, err error)

	// LastDiscovery returns the stored record for uniqueID, or ErrNotFound.
	LastDiscovery(uniqueID string) (*DiscoveryRecord, error)

	Close() error
}
