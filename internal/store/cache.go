package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const defaultDirPerm = 0o755

var (
	// ErrBlobNotFound is returned when reading a key that was never written.
	ErrBlobNotFound = errors.New("blob not in cache")
	// ErrInvalidKey is returned for empty keys or keys containing path
	// separators.
	ErrInvalidKey = errors.New("invalid cache key")
)

func validateKey(key string) error {
	if key == "" || key == "." || key == ".." || strings.ContainsAny(key, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}

// DiskCache is a write-once blob cache keyed by filename under a single
// directory. There is no eviction, expiry or versioning.
type DiskCache struct {
	dir string
}

// NewDiskCache creates the cache directory if needed.
func NewDiskCache(dir string) (*DiskCache, error) {
	if dir == "" {
		return nil, errors.New("cache dir is empty")
	}
	if err := os.MkdirAll(dir, defaultDirPerm); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &DiskCache{dir: dir}, nil
}

// Dir returns the cache root.
func (c *DiskCache) Dir() string { return c.dir }

// Has reports whether key has been written.
func (c *DiskCache) Has(key string) bool {
	if validateKey(key) != nil {
		return false
	}
	info, err := os.Stat(filepath.Join(c.dir, key))
	return err == nil && info.Mode().IsRegular()
}

// Read returns the bytes stored under key.
func (c *DiskCache) Read(key string) ([]byte, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(c.dir, key)) //nolint:gosec // key is validated to a bare filename
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrBlobNotFound, key)
	}
	return data, err
}

// Write stores data under key. Existing keys are left untouched. Content is
// written to a temp file and renamed so readers never observe a partial
// blob.
func (c *DiskCache) Write(key string, data []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}
	path := filepath.Join(c.dir, key)
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	tmp, err := os.CreateTemp(c.dir, ".cache-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}

	if err := os.Rename(tmpPath, path); err != nil {
		if _, statErr := os.Stat(path); statErr == nil {
			_ = os.Remove(tmpPath)
			return nil
		}
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}

// MemoryCache is an in-process cache with the same write-once contract as
// DiskCache.
type MemoryCache struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemoryCache creates an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{blobs: make(map[string][]byte)}
}

func (c *MemoryCache) Has(key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.blobs[key]
	return ok
}

func (c *MemoryCache) Read(key string) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	data, ok := c.blobs[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBlobNotFound, key)
	}
	return append([]byte(nil), data...), nil
}

func (c *MemoryCache) Write(key string, data []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.blobs[key]; ok {
		return nil
	}
	c.blobs[key] = append([]byte(nil), data...)
	return nil
}
