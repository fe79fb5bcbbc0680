package cache

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/pacwrap/pacwrap/pkg/perror"
)

var bucketDownloads = []byte("downloads")

// Entry describes one cached package artifact on disk, keyed by the tuple
// that uniquely identifies a package version for a given repository and
// architecture.
type Entry struct {
	Repo     string
	Package  string
	Version  string
	Arch     string
	Path     string
	Size     int64
	CachedAt time.Time
}

func (e Entry) key() []byte {
	return []byte(fmt.Sprintf("%s/%s/%s/%s", e.Repo, e.Package, e.Version, e.Arch))
}

// Store is the shared download cache index, one bbolt file under the
// distribution's cache root shared by every container on the host.
type Store struct {
	db *bolt.DB
}

// Open opens (creating if absent) the cache index at <cacheDir>/cache.db.
func Open(cacheDir string) (*Store, error) {
	dbPath := filepath.Join(cacheDir, "cache.db")

	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		if err == bolt.ErrTimeout {
			return nil, perror.New(perror.KindCacheLockHeld, "cache database is locked by another process")
		}
		return nil, fmt.Errorf("open cache database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketDownloads)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create downloads bucket: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the cache index.
func (s *Store) Close() error {
	return s.db.Close()
}

// Lookup returns the cached entry for a package, if present.
func (s *Store) Lookup(repo, pkg, version, arch string) (*Entry, bool, error) {
	key := Entry{Repo: repo, Package: pkg, Version: version, Arch: arch}.key()
	var entry Entry
	found := false
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketDownloads).Get(key)
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, &entry)
	})
	if err != nil {
		return nil, false, fmt.Errorf("lookup cache entry: %w", err)
	}
	if !found {
		return nil, false, nil
	}
	return &entry, true, nil
}

// Put records a freshly downloaded artifact in the cache index.
func (s *Store) Put(e Entry) error {
	if e.CachedAt.IsZero() {
		e.CachedAt = time.Now()
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal cache entry: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketDownloads).Put(e.key(), data)
	})
}

// Evict removes a cached entry, used when an artifact fails signature
// verification and must be re-fetched rather than reused.
func (s *Store) Evict(repo, pkg, version, arch string) error {
	key := Entry{Repo: repo, Package: pkg, Version: version, Arch: arch}.key()
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketDownloads).Delete(key)
	})
}

// HitCounter keeps in-memory running totals of cache hits and misses fed
// by the transaction engine; Ratio returns the fraction that were hits,
// for the cache-hit-ratio metric.
type HitCounter struct {
	Hits   int64
	Misses int64
}

func (c *HitCounter) Hit()  { c.Hits++ }
func (c *HitCounter) Miss() { c.Misses++ }

func (c HitCounter) Ratio() float64 {
	total := c.Hits + c.Misses
	if total == 0 {
		return 0
	}
	return float64(c.Hits) / float64(total)
}
