package repositories

import (
	"context"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

var cursorBucket = []byte("watcher_cursors")

// BoltCursorStore keeps watcher watermarks in a local bbolt file, for
// deployments where the watcher runs beside a read-only replica.
type BoltCursorStore struct {
	db *bolt.DB
}

func OpenBoltCursorStore(path string) (*BoltCursorStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open cursor file %s: %w", path, err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(cursorBucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &BoltCursorStore{db: db}, nil
}

func (s *BoltCursorStore) Load(_ context.Context, source string) (string, error) {
	var cursor string
	err := s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(cursorBucket).Get([]byte(source)); v != nil {
			cursor = string(v)
		}
		return nil
	})
	return cursor, err
}

func (s *BoltCursorStore) Save(_ context.Context, source, cursor string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(cursorBucket).Put([]byte(source), []byte(cursor))
	})
}

func (s *BoltCursorStore) Close() error {
	return s.db.Close()
}
