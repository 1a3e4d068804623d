package vault

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bastiangx/wordlink/pkg/entity"
	"github.com/vmihailenco/msgpack/v5"
	bolt "go.etcd.io/bbolt"
)

var bucketEntities = []byte("entities")

// Cache persists parsed entities between runs. Writes are transactional, a
// crash mid-write cannot corrupt previously committed entries.
type Cache struct {
	db *bolt.DB
}

// OpenCache opens (or creates) a cache file at path.
func OpenCache(path string) (*Cache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("cache dir: %w", err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("bbolt open: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketEntities)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("bbolt init: %w", err)
	}
	return &Cache{db: db}, nil
}

// Close closes the underlying database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Get returns the cached entity for id if it was stored for the same
// modification time.
func (c *Cache) Get(id string, mtime time.Time) (*entity.Entity, bool) {
	var e entity.Entity
	found := false
	err := c.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketEntities).Get([]byte(id))
		if v == nil {
			return nil
		}
		// Unmarshal copies, the slice is only valid inside the transaction.
		if err := msgpack.Unmarshal(v, &e); err != nil {
			return err
		}
		found = true
		return nil
	})
	if err != nil || !found || !e.ModTime.Equal(mtime) {
		return nil, false
	}
	return &e, true
}

// Put stores e under its ID.
func (c *Cache) Put(e *entity.Entity) error {
	data, err := msgpack.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", e.ID, err)
	}
	return c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketEntities).Put([]byte(e.ID), data)
	})
}

// Delete drops id from the cache.
func (c *Cache) Delete(id string) error {
	return c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketEntities).Delete([]byte(id))
	})
}

// Prune drops every entry whose ID is not in keep and returns how many went.
func (c *Cache) Prune(keep map[string]struct{}) (int, error) {
	removed := 0
	err := c.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketEntities)
		var stale [][]byte
		err := b.ForEach(func(k, _ []byte) error {
			if _, ok := keep[string(k)]; !ok {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		removed = len(stale)
		return nil
	})
	return removed, err
}

// Len returns the number of cached entities.
func (c *Cache) Len() (int, error) {
	n := 0
	err := c.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(bucketEntities).Stats().KeyN
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("cache len: %w", err)
	}
	return n, nil
}
