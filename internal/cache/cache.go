// Package cache persists resolved project descriptors between runs.
//
// Parsing a large solution touches every project file it declares. When the
// same request is made again in a later run, the cache can answer without
// re-parsing as long as none of those files changed:
//
//  1. The cache key is a SHA256 of the requested file's content plus the
//     platform, configuration, exclusion pattern and overrides
//  2. Each entry records the content hash of every file that was read
//  3. A lookup re-hashes those files and treats any difference as a miss
//  4. Entries are stored as JSON in BoltDB
package cache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/goccy/go-json"
	"go.etcd.io/bbolt"

	"github.com/Norgate-AV/vsmeta/internal/model"
)

const (
	// DefaultCacheDir is the default cache directory name
	DefaultCacheDir = ".vsmeta-cache"

	// bucketName is the BoltDB bucket name for cache entries
	bucketName = "descriptors"

	dbName = "cache.db"
)

// Cache stores resolved descriptors using BoltDB
type Cache struct {
	db   *bbolt.DB
	root string // Root directory for cache (.vsmeta-cache/)
}

// New creates a new cache instance
// If cacheDir is empty, uses DefaultCacheDir in current working directory
func New(cacheDir string) (*Cache, error) {
	if cacheDir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}

		cacheDir = filepath.Join(cwd, DefaultCacheDir)
	}

	// Ensure cache directory exists
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	// Open BoltDB
	dbPath := filepath.Join(cacheDir, dbName)
	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	// Create bucket if it doesn't exist
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create cache bucket: %w", err)
	}

	return &Cache{
		db:   db,
		root: cacheDir,
	}, nil
}

// Close closes the cache database
func (c *Cache) Close() error {
	if c.db != nil {
		return c.db.Close()
	}

	return nil
}

// Get retrieves the descriptors stored for q
// Returns nil if cache miss or if any recorded input changed
func (c *Cache) Get(q Query) ([]model.ProjectDescriptor, error) {
	entry, err := c.entry(q)
	if err != nil || entry == nil {
		return nil, err
	}

	for path, want := range entry.Inputs {
		got, err := HashFile(path)
		if err != nil || got != want {
			log.Debugf("cache entry for %s is stale: %s changed", q.File, path)
			return nil, nil
		}
	}

	return entry.Projects, nil
}

// entry loads the raw entry for q without checking its inputs
func (c *Cache) entry(q Query) (*Entry, error) {
	hash, err := HashSource(q)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil // Cache miss, the resolver reports the missing file
	}
	if err != nil {
		return nil, fmt.Errorf("failed to hash source: %w", err)
	}

	var entry Entry
	err = c.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))

		data := b.Get([]byte(hash))
		if data == nil {
			return nil // Cache miss
		}

		return json.Unmarshal(data, &entry)
	})
	if err != nil {
		return nil, err
	}

	if entry.Hash == "" {
		return nil, nil // Cache miss
	}

	return &entry, nil
}

// Store saves the descriptors resolved for q along with the hash of every
// file they were read from
func (c *Cache) Store(q Query, projects []model.ProjectDescriptor) error {
	hash, err := HashSource(q)
	if err != nil {
		return fmt.Errorf("failed to hash source: %w", err)
	}

	inputs := make(map[string]string, len(projects)+1)
	paths := []string{q.File}
	for _, p := range projects {
		paths = append(paths, p.Path)
	}

	for _, path := range paths {
		if _, ok := inputs[path]; ok {
			continue
		}

		sum, err := HashFile(path)
		if err != nil {
			return fmt.Errorf("failed to hash input %s: %w", path, err)
		}

		inputs[path] = sum
	}

	// Create cache entry
	entry := Entry{
		Hash:          hash,
		SourceFile:    q.File,
		Platform:      q.Platform,
		Configuration: q.Configuration,
		Timestamp:     time.Now(),
		Inputs:        inputs,
		Projects:      projects,
	}

	// Store metadata in BoltDB
	err = c.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))

		data, err := json.Marshal(entry)
		if err != nil {
			return err
		}

		return b.Put([]byte(hash), data)
	})
	if err != nil {
		return fmt.Errorf("failed to store cache entry: %w", err)
	}

	return nil
}

// Clear removes all cache entries
func (c *Cache) Clear() error {
	// Clear BoltDB
	err := c.db.Update(func(tx *bbolt.Tx) error {
		return tx.DeleteBucket([]byte(bucketName))
	})
	if err != nil {
		return err
	}

	// Recreate bucket
	err = c.db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucket([]byte(bucketName))
		return err
	})
	if err != nil {
		return err
	}

	return nil
}

// Stats returns the number of entries and the size of the database file
func (c *Cache) Stats() (int, int64, error) {
	var count int

	err := c.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))

		count = b.Stats().KeyN
		return nil
	})
	if err != nil {
		return 0, 0, err
	}

	info, err := os.Stat(filepath.Join(c.root, dbName))
	if err != nil {
		return count, 0, nil
	}

	return count, info.Size(), nil
}

// Root returns the cache directory
func (c *Cache) Root() string {
	return c.root
}
