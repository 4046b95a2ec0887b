// Package history keeps a local record of past measurement runs in a bbolt
// database, so results survive across invocations without any external
// service.
package history

import (
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
	"golang.hedera.com/solo-peakwatch/internal/core"
)

var runsBucket = []byte("runs")

// Store is a bbolt-backed archive of run results. Keys are ordered by start
// time so iteration in reverse yields the most recent runs first.
type Store struct {
	db *bolt.DB
}

// Open opens (or creates) the history database at the given path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(runsBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create runs bucket: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the database file lock.
func (s *Store) Close() error {
	return s.db.Close()
}

// Put stores one run result.
func (s *Store) Put(run *core.RunResult) error {
	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to encode run result: %w", err)
	}

	key := []byte(fmt.Sprintf("%s|%s", run.StartedAt.UTC().Format(time.RFC3339Nano), run.RunID))

	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(runsBucket).Put(key, data)
	})
}

// List returns up to limit runs, newest first. A non-positive limit returns
// everything.
func (s *Store) List(limit int) ([]*core.RunResult, error) {
	var runs []*core.RunResult

	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(runsBucket).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if limit > 0 && len(runs) >= limit {
				return nil
			}

			var run core.RunResult
			if err := json.Unmarshal(v, &run); err != nil {
				return fmt.Errorf("corrupt run record %s: %w", k, err)
			}
			runs = append(runs, &run)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return runs, nil
}
