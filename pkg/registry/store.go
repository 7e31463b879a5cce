package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

var bucketFiles = []byte("files") // path -> FileRecord JSON

// boltStore implements Store using BoltDB.
type boltStore struct {
	db *bolt.DB

	mu     sync.Mutex
	closed bool
}

// NewStore opens (creating if needed) a BoltDB-backed store at path.
func NewStore(path string) (Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		_, createErr := tx.CreateBucketIfNotExists(bucketFiles)
		return createErr
	}); err != nil {
		_ = db.Close() // nolint:errcheck
		return nil, fmt.Errorf("failed to create files bucket: %w", err)
	}

	return &boltStore{db: db}, nil
}

// Get implements Store.Get.
func (s *boltStore) Get(path string) (*FileRecord, error) {
	if err := s.check(); err != nil {
		return nil, err
	}

	var record *FileRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketFiles).Get([]byte(path))
		if data == nil {
			return nil
		}
		record = &FileRecord{}
		if unmarshalErr := json.Unmarshal(data, record); unmarshalErr != nil {
			return fmt.Errorf("failed to decode record for %s: %w", path, unmarshalErr)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// Put implements Store.Put.
func (s *boltStore) Put(record *FileRecord) error {
	if err := s.check(); err != nil {
		return err
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode record for %s: %w", record.Path, err)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketFiles).Put([]byte(record.Path), data)
	})
}

// Delete implements Store.Delete.
func (s *boltStore) Delete(path string) error {
	if err := s.check(); err != nil {
		return err
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketFiles).Delete([]byte(path))
	})
}

// Close implements Store.Close.
func (s *boltStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func (s *boltStore) check() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	return nil
}
