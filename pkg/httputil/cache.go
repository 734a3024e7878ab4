package httputil

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"time"
)

// ErrExpired is returned by [Cache.Get] when an entry exists but has
// exceeded its TTL. The stale bytes are still returned so callers can fall
// back to them if a refresh fails.
var ErrExpired = errors.New("cache entry expired")

// Cache stores raw byte payloads as files named by the SHA-256 of their key.
//
// Entries expire by file modification time; a TTL of 0 disables expiry.
// Instances are not goroutine-safe, but several instances (or processes)
// may share a directory.
type Cache struct {
	dir    string
	ttl    time.Duration
	prefix string
}

// DefaultDir returns ~/.cache/memorial/http.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", "memorial", "http"), nil
}

// NewCache creates a Cache in dir with the given TTL. An empty dir selects
// [DefaultDir]. The directory is created if missing.
func NewCache(dir string, ttl time.Duration) (*Cache, error) {
	if dir == "" {
		d, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		dir = d
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Cache{dir: dir, ttl: ttl}, nil
}

// Dir returns the cache directory.
func (c *Cache) Dir() string { return c.dir }

// TTL returns the entry lifetime. Zero means entries never expire.
func (c *Cache) TTL() time.Duration { return c.ttl }

// Get returns the payload stored under key.
//
//   - (data, true, nil): fresh hit
//   - (nil, false, nil): miss
//   - (data, false, ErrExpired): stale entry
//   - (nil, false, err): I/O error
func (c *Cache) Get(key string) ([]byte, bool, error) {
	path := c.keyPath(c.prefix + key)
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false, err
	}
	if c.ttl > 0 && time.Since(info.ModTime()) > c.ttl {
		return data, false, ErrExpired
	}
	return data, true, nil
}

// Set stores data under key, refreshing its modification time.
func (c *Cache) Set(key string, data []byte) error {
	return os.WriteFile(c.keyPath(c.prefix+key), data, 0o644)
}

// Namespace returns a view of the cache that prefixes every key.
// Namespaces chain: c.Namespace("a:").Namespace("b:") uses "a:b:".
func (c *Cache) Namespace(prefix string) *Cache {
	return &Cache{
		dir:    c.dir,
		ttl:    c.ttl,
		prefix: c.prefix + prefix,
	}
}

// Clear removes every entry in the cache directory.
func (c *Cache) Clear() error {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(c.dir, e.Name())); err != nil {
			return err
		}
	}
	return nil
}

func (c *Cache) keyPath(key string) string {
	h := sha256.Sum256([]byte(key))
	return filepath.Join(c.dir, hex.EncodeToString(h[:]))
}
