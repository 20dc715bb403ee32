package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

var boltBucket = []byte("quotesync")

// Bolt is a bbolt-backed store. All keys live in a single bucket and every
// Set is one read-write transaction, so a value is replaced atomically.
type Bolt struct {
	db *bolt.DB
}

// OpenBolt opens (or creates) the database file at path.
func OpenBolt(path string, timeout time.Duration) (*Bolt, error) {
	if path == "" {
		return nil, errors.New("bolt: path is required")
	}

	if err := ensureDir(path); err != nil {
		return nil, err
	}

	db, err := bolt.Open(path, filePerm, &bolt.Options{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("bolt open: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(boltBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bolt bucket: %w", err)
	}

	return &Bolt{db: db}, nil
}

// Get returns the value for key, or a NotFoundError.
func (b *Bolt) Get(ctx context.Context, key string) (string, error) {
	if err := checkContext(ctx); err != nil {
		return "", err
	}

	var (
		value string
		found bool
	)

	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(boltBucket)
		if bucket == nil {
			return nil
		}

		// Values are only valid inside the transaction.
		if v := bucket.Get([]byte(key)); v != nil {
			value = string(v)
			found = true
		}

		return nil
	})
	if err != nil {
		return "", unavailable(DriverBolt, err)
	}

	if !found {
		return "", keyNotFound(key)
	}

	return value, nil
}

// Set replaces the value for key.
func (b *Bolt) Set(ctx context.Context, key, value string) error {
	if err := checkContext(ctx); err != nil {
		return err
	}

	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists(boltBucket)
		if err != nil {
			return err
		}

		return bucket.Put([]byte(key), []byte(value))
	})
	if err != nil {
		return unavailable(DriverBolt, err)
	}

	return nil
}

// Name implements ports.HealthChecker.
func (b *Bolt) Name() string { return "storage" }

// Check verifies a read transaction can be opened.
func (b *Bolt) Check(ctx context.Context) error {
	if err := checkContext(ctx); err != nil {
		return err
	}

	return b.db.View(func(tx *bolt.Tx) error {
		if tx.Bucket(boltBucket) == nil {
			return errors.New("bolt: bucket missing")
		}

		return nil
	})
}

// Close releases the file lock.
func (b *Bolt) Close() error {
	return b.db.Close()
}
