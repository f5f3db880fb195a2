package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	bolt "go.etcd.io/bbolt"

	"shiptrack/internal/model"
)

var bucketHistory = []byte("history")

// Bolt is a single-file history store for the CLI and single-node servers.
type Bolt struct {
	db  *bolt.DB
	max int
}

// OpenBolt opens (or creates) the history database at path.
func OpenBolt(path string, max int) (*Bolt, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketHistory)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create bucket %s: %w", bucketHistory, err)
	}
	if max < 1 {
		max = DefaultHistoryMax
	}
	return &Bolt{db: db, max: max}, nil
}

func (s *Bolt) Close() error {
	return s.db.Close()
}

func (s *Bolt) Save(ctx context.Context, e model.HistoryEntry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketHistory)
		list, err := readAll(b)
		if err != nil {
			return err
		}
		_, dropped := prepend(list, e, s.max)
		for _, d := range dropped {
			if err := b.Delete([]byte(d.Key)); err != nil {
				return err
			}
		}
		return b.Put([]byte(e.Key), data)
	})
}

func (s *Bolt) List(ctx context.Context) ([]model.HistoryEntry, error) {
	var out []model.HistoryEntry
	err := s.db.View(func(tx *bolt.Tx) error {
		var err error
		out, err = readAll(tx.Bucket(bucketHistory))
		return err
	})
	if out == nil {
		out = []model.HistoryEntry{}
	}
	return out, err
}

func (s *Bolt) Get(ctx context.Context, key string) (model.HistoryEntry, error) {
	var e model.HistoryEntry
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketHistory).Get([]byte(key))
		if data == nil {
			return ErrNotFound
		}
		return json.Unmarshal(data, &e)
	})
	return e, err
}

func (s *Bolt) Remove(ctx context.Context, key string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketHistory)
		if b.Get([]byte(key)) == nil {
			return ErrNotFound
		}
		return b.Delete([]byte(key))
	})
}

func (s *Bolt) Clear(ctx context.Context) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(bucketHistory); err != nil {
			return err
		}
		_, err := tx.CreateBucket(bucketHistory)
		return err
	})
}

// readAll returns the bucket's entries newest first.
func readAll(b *bolt.Bucket) ([]model.HistoryEntry, error) {
	var list []model.HistoryEntry
	err := b.ForEach(func(k, v []byte) error {
		var e model.HistoryEntry
		if err := json.Unmarshal(v, &e); err != nil {
			return fmt.Errorf("history entry %s: %w", k, err)
		}
		list = append(list, e)
		return nil
	})
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].ViewedAt != list[j].ViewedAt {
			return list[i].ViewedAt > list[j].ViewedAt
		}
		return list[i].Key > list[j].Key
	})
	return list, err
}
