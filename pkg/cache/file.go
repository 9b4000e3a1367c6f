package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

// lockName is the lock file shared by every process using a cache dir.
const lockName = ".lock"

// FileCache implements a file-based cache for CLI usage.
// Cache entries are stored as files in a directory with metadata (expiration).
//
// Writers hold an exclusive flock on the directory's lock file and replace
// entries by rename, so concurrent CLI runs never see partial entries.
type FileCache struct {
	dir  string
	mu   sync.Mutex // serializes writers within this process
	lock *flock.Flock
}

// NewFileCache creates a file-based cache in the given directory.
// The directory will be created if it doesn't exist.
func NewFileCache(dir string) (*FileCache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &FileCache{dir: dir, lock: flock.New(filepath.Join(dir, lockName))}, nil
}

// Dir returns the cache directory.
func (c *FileCache) Dir() string { return c.dir }

// cacheEntry wraps cached data with metadata.
type cacheEntry struct {
	Key       string    `json:"key"`
	Data      []byte    `json:"data"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Get retrieves a value from the cache.
func (c *FileCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	path := c.path(key)

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var entry cacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		// Invalid cache entry - treat as miss
		_ = os.Remove(path)
		return nil, false, nil
	}

	if !entry.ExpiresAt.IsZero() && time.Now().After(entry.ExpiresAt) {
		_ = os.Remove(path)
		return nil, false, nil
	}

	return entry.Data, true, nil
}

// Set stores a value in the cache.
func (c *FileCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	entry := cacheEntry{
		Key:  key,
		Data: data,
	}
	if ttl > 0 {
		entry.ExpiresAt = time.Now().Add(ttl)
	}

	entryData, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	if err := c.withLock(ctx); err != nil {
		return err
	}
	defer c.unlock()

	return atomicWrite(c.path(key), entryData)
}

// Delete removes a value from the cache.
func (c *FileCache) Delete(ctx context.Context, key string) error {
	if err := c.withLock(ctx); err != nil {
		return err
	}
	defer c.unlock()

	err := os.Remove(c.path(key))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Clear removes every entry and returns how many were removed.
func (c *FileCache) Clear(ctx context.Context) (int, error) {
	if err := c.withLock(ctx); err != nil {
		return 0, err
	}
	defer c.unlock()

	n := 0
	err := c.walk(func(path string, _ fs.FileInfo) error {
		if err := os.Remove(path); err != nil {
			return err
		}
		n++
		return nil
	})
	return n, err
}

// Info summarizes the cache directory.
type Info struct {
	Dir     string `json:"dir"`
	Entries int    `json:"entries"`
	Bytes   int64  `json:"bytes"`
}

// Info counts the entries and their total size.
func (c *FileCache) Info() (Info, error) {
	info := Info{Dir: c.dir}
	err := c.walk(func(_ string, fi fs.FileInfo) error {
		info.Entries++
		info.Bytes += fi.Size()
		return nil
	})
	return info, err
}

// Close releases the lock file handle.
func (c *FileCache) Close() error {
	return c.lock.Close()
}

// withLock blocks until the directory lock is held or ctx is done.
func (c *FileCache) withLock(ctx context.Context) error {
	c.mu.Lock()
	ok, err := c.lock.TryLockContext(ctx, 10*time.Millisecond)
	if err != nil {
		c.mu.Unlock()
		return fmt.Errorf("lock %s: %w", c.lock.Path(), err)
	}
	if !ok {
		c.mu.Unlock()
		return ErrLocked
	}
	return nil
}

func (c *FileCache) unlock() {
	_ = c.lock.Unlock()
	c.mu.Unlock()
}

// walk calls fn for every entry file.
func (c *FileCache) walk(fn func(path string, fi fs.FileInfo) error) error {
	return filepath.WalkDir(c.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".json") {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		return fn(path, fi)
	})
}

// path converts a cache key to a file path.
// Uses a simple hash-based directory structure to avoid too many files in one dir.
func (c *FileCache) path(key string) string {
	hash := Hash([]byte(key))
	subdir := hash[:2]
	filename := hash[2:] + ".json"
	return filepath.Join(c.dir, subdir, filename)
}

// atomicWrite writes data next to path and renames it into place.
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

var (
	_ Cache   = (*FileCache)(nil)
	_ Clearer = (*FileCache)(nil)
)
