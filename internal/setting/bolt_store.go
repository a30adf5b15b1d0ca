package setting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/boltdb/bolt"

	"github.com/dshills/appshell/internal/codec/json"
)

var bucketSettings = []byte("settings")

// BoltStore keeps settings in a BoltDB file, one JSON encoded value per key.
// Every Set is committed immediately.
type BoltStore struct {
	db *bolt.DB
}

// OpenBoltStore opens or creates the database at path.
func OpenBoltStore(path string) (*BoltStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketSettings); err != nil {
			return fmt.Errorf("failed to create bucket %q: %w", bucketSettings, err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &BoltStore{db: db}, nil
}

// Get returns the value stored under key.
func (s *BoltStore) Get(key string) (any, bool) {
	var (
		value any
		found bool
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketSettings).Get([]byte(key))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, &value)
	})
	if err != nil {
		return nil, false
	}
	return value, found
}

// Set stores value under key. A nil value deletes the key.
func (s *BoltStore) Set(key string, value any) error {
	if _, err := splitKey(key); err != nil {
		return err
	}
	if value == nil {
		return s.Delete(key)
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal setting %q: %w", key, err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSettings).Put([]byte(key), data)
	})
}

// Delete removes key.
func (s *BoltStore) Delete(key string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSettings).Delete([]byte(key))
	})
}

// Keys returns every stored key, sorted.
func (s *BoltStore) Keys() []string {
	var keys []string
	_ = s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSettings).ForEach(func(k, _ []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	})
	sort.Strings(keys)
	return keys
}

// Sync flushes the database file.
func (s *BoltStore) Sync() error {
	return s.db.Sync()
}

// Close closes the underlying BoltDB instance.
func (s *BoltStore) Close() error {
	return s.db.Close()
}
