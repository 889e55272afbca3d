package buffer

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	bolt "go.etcd.io/bbolt"
)

// ErrFull is returned by Enqueue once the buffer holds MaxItems writes.
var ErrFull = errors.New("buffer: full")

type Options struct {
	Bucket   string
	MaxItems int
}

// Store persists directory writes in BoltDB while the primary store is unreachable.
// Keys sort by priority, then enqueue time, so a cursor walk is the replay order.
type Store struct {
	db       *bolt.DB
	bucket   []byte
	maxItems int
}

func Open(path string, opts Options) (*Store, error) {
	if opts.Bucket == "" {
		opts.Bucket = "buffer"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(opts.Bucket))
		return err
	}); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, bucket: []byte(opts.Bucket), maxItems: opts.MaxItems}, nil
}

// Enqueue stores item. A set or delete replaces every older buffered write
// to the same document path; patches accumulate.
func (s *Store) Enqueue(item Item) error {
	if s == nil || s.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	item.normalize()
	item.bucketKey = item.key()

	payload, err := json.Marshal(item)
	if err != nil {
		return err
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(s.bucket)
		var stale [][]byte
		total := 0
		scan(bucket, func(older Item) bool {
			total++
			if older.ID != item.ID && item.supersedes(&older) && !older.Timestamp.After(item.Timestamp) {
				stale = append(stale, older.bucketKey)
			}
			return true
		})
		if err := deleteKeys(bucket, stale); err != nil {
			return err
		}
		// Stats only sees committed pages, so count from the scan instead
		if s.maxItems > 0 && total-len(stale) >= s.maxItems {
			return ErrFull
		}
		return bucket.Put(item.bucketKey, payload)
	})
}

// ForPath returns the buffered writes targeting path, oldest first.
func (s *Store) ForPath(path string) ([]Item, error) {
	if s == nil || s.db == nil {
		return nil, bolt.ErrDatabaseNotOpen
	}
	var items []Item
	err := s.db.View(func(tx *bolt.Tx) error {
		scan(tx.Bucket(s.bucket), func(item Item) bool {
			if item.Path == path {
				items = append(items, item)
			}
			return true
		})
		return nil
	})
	sort.SliceStable(items, func(i, j int) bool { return items[i].Timestamp.Before(items[j].Timestamp) })
	return items, err
}

// GetBatch returns up to limit items in replay order without removing them.
func (s *Store) GetBatch(limit int) ([]Item, error) {
	if s == nil || s.db == nil {
		return nil, bolt.ErrDatabaseNotOpen
	}
	if limit <= 0 {
		limit = 50
	}
	var items []Item
	err := s.db.View(func(tx *bolt.Tx) error {
		scan(tx.Bucket(s.bucket), func(item Item) bool {
			items = append(items, item)
			return len(items) < limit
		})
		return nil
	})
	return items, err
}

func (s *Store) Remove(item Item) error {
	if s == nil || s.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	key := item.bucketKey
	if len(key) == 0 {
		key = item.key()
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).Delete(key)
	})
}

// Requeue rewrites the item under its existing key, keeping its place in the replay order.
func (s *Store) Requeue(item Item) error {
	if s == nil || s.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	key := item.bucketKey
	if len(key) == 0 {
		key = item.key()
	}
	payload, err := json.Marshal(item)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).Put(key, payload)
	})
}

func (s *Store) Size() (int, error) {
	if s == nil || s.db == nil {
		return 0, bolt.ErrDatabaseNotOpen
	}
	var count int
	err := s.db.View(func(tx *bolt.Tx) error {
		count = tx.Bucket(s.bucket).Stats().KeyN
		return nil
	})
	return count, err
}

// Cleanup drops items enqueued before olderThan and reports how many went.
func (s *Store) Cleanup(olderThan time.Time) (int, error) {
	if s == nil || s.db == nil {
		return 0, bolt.ErrDatabaseNotOpen
	}
	var removed int
	err := s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(s.bucket)
		var stale [][]byte
		scan(bucket, func(item Item) bool {
			if item.Timestamp.Before(olderThan) {
				stale = append(stale, item.bucketKey)
			}
			return true
		})
		removed = len(stale)
		return deleteKeys(bucket, stale)
	})
	return removed, err
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// scan decodes items in key order until fn returns false. Undecodable
// entries are skipped.
func scan(bucket *bolt.Bucket, fn func(Item) bool) {
	c := bucket.Cursor()
	for k, v := c.First(); k != nil; k, v = c.Next() {
		var item Item
		if err := json.Unmarshal(v, &item); err != nil {
			continue
		}
		item.bucketKey = append([]byte(nil), k...)
		if !fn(item) {
			return
		}
	}
}

// deleteKeys runs after iteration; bolt cursors skip entries deleted mid-walk.
func deleteKeys(bucket *bolt.Bucket, keys [][]byte) error {
	for _, k := range keys {
		if err := bucket.Delete(k); err != nil {
			return err
		}
	}
	return nil
}

func (i Item) key() []byte {
	return []byte(fmt.Sprintf("%d_%020d_%s", i.Priority, i.Timestamp.UnixNano(), i.ID))
}
