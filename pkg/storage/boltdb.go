package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/cuemby/fsbench/pkg/types"
	bolt "go.etcd.io/bbolt"
)

var (
	// Bucket names
	bucketRuns   = []byte("runs")
	bucketLatest = []byte("latest")
)

// DBFile is the ledger file name inside the state directory
const DBFile = "fsbench.db"

// BoltStore implements Store using BoltDB
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens or creates the ledger under dataDir
func NewBoltStore(dataDir string) (*BoltStore, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}
	dbPath := filepath.Join(dataDir, DBFile)

	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketRuns, bucketLatest} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

// Close closes the database
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// SaveRun upserts run and points its pair at it when it is the newest run
// for that pair
func (s *BoltStore) SaveRun(run *types.Run) error {
	data, err := json.Marshal(run)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(bucketRuns).Put([]byte(run.ID), data); err != nil {
			return err
		}

		latest := tx.Bucket(bucketLatest)
		key := []byte(run.Key())
		if id := latest.Get(key); id != nil && string(id) != run.ID {
			var current types.Run
			if raw := tx.Bucket(bucketRuns).Get(id); raw != nil {
				if err := json.Unmarshal(raw, &current); err == nil && current.Timestamp.After(run.Timestamp) {
					return nil
				}
			}
		}
		return latest.Put(key, []byte(run.ID))
	})
}

func (s *BoltStore) GetRun(id string) (*types.Run, error) {
	var run types.Run
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketRuns).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("run %s: %w", id, ErrNotFound)
		}
		return json.Unmarshal(data, &run)
	})
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// ListRuns returns every run ordered by timestamp
func (s *BoltStore) ListRuns() ([]*types.Run, error) {
	var runs []*types.Run
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketRuns).ForEach(func(k, v []byte) error {
			var run types.Run
			if err := json.Unmarshal(v, &run); err != nil {
				return fmt.Errorf("corrupt run %s: %w", k, err)
			}
			runs = append(runs, &run)
			return nil
		})
	})
	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].Timestamp.Before(runs[j].Timestamp)
	})
	return runs, err
}

func (s *BoltStore) LatestByPair(devicePath string, fs types.FilesystemKind) (*types.Run, error) {
	var id []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(bucketLatest).Get([]byte(types.PairKey(devicePath, fs))); v != nil {
			id = append(id, v...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if id == nil {
		return nil, fmt.Errorf("pair %s on %s: %w", fs, devicePath, ErrNotFound)
	}
	return s.GetRun(string(id))
}

func (s *BoltStore) DeleteRun(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		runs := tx.Bucket(bucketRuns)
		data := runs.Get([]byte(id))
		if data == nil {
			return nil
		}
		var run types.Run
		if err := json.Unmarshal(data, &run); err == nil {
			latest := tx.Bucket(bucketLatest)
			if v := latest.Get([]byte(run.Key())); string(v) == id {
				if err := latest.Delete([]byte(run.Key())); err != nil {
					return err
				}
			}
		}
		return runs.Delete([]byte(id))
	})
}
