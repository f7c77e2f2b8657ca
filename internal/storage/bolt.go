package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

var analyticsBucket = []byte("analytics")

// BoltKV is a durable KV backed by a single BoltDB file. The file stays
// open for the life of the process.
type BoltKV struct {
	db *bolt.DB
}

// OpenBolt opens or creates the BoltDB file at path.
func OpenBolt(path string) (*BoltKV, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create analytics directory: %w", err)
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open analytics store: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(analyticsBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create analytics bucket: %w", err)
	}

	return &BoltKV{db: db}, nil
}

// Get returns a copy of the stored value.
func (k *BoltKV) Get(key string) ([]byte, bool, error) {
	var out []byte
	err := k.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(analyticsBucket)
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(key)); v != nil {
			out = append([]byte{}, v...)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return out, out != nil, nil
}

// Set stores value under key.
func (k *BoltKV) Set(key string, value []byte) error {
	return k.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(analyticsBucket)
		if err != nil {
			return err
		}
		return b.Put([]byte(key), value)
	})
}

// Close closes the database file.
func (k *BoltKV) Close() error {
	return k.db.Close()
}
