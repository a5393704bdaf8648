// Package cache implements the on-disk, content-addressed advisory cache:
// four namespaces (batch, detail, nvd, ghsa) rooted at
// <outDir>/.cache/osv, each entry keyed by a SHA-256 hash and subject to a
// 24h TTL measured against file modification time.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// Namespace is one of the cache's four directories: the root itself for
// batch results, a sub-directory for each of the others.
type Namespace string

const (
	NamespaceBatch  Namespace = ""
	NamespaceDetail Namespace = "details"
	NamespaceNVD    Namespace = "nvd"
	NamespaceGHSA   Namespace = "ghsa"
)

const TTL = 24 * time.Hour

// Cache is the advisory cache rooted at <outDir>/.cache/osv.
type Cache struct {
	root         string
	refreshCache bool
}

func New(outDir string, refreshCache bool) *Cache {
	return &Cache{
		root:         filepath.Join(outDir, ".cache", "osv"),
		refreshCache: refreshCache,
	}
}

func (c *Cache) Root() string { return c.root }

// EnsureRoot creates the cache root and all four namespace directories.
func (c *Cache) EnsureRoot() error {
	for _, ns := range []Namespace{NamespaceBatch, NamespaceDetail, NamespaceNVD, NamespaceGHSA} {
		if err := os.MkdirAll(c.dir(ns), 0o755); err != nil {
			return err
		}
	}
	return nil
}

func (c *Cache) dir(ns Namespace) string {
	if ns == NamespaceBatch {
		return c.root
	}
	return filepath.Join(c.root, string(ns))
}

func hashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

func (c *Cache) path(ns Namespace, key string) string {
	return filepath.Join(c.dir(ns), hashKey(key)+".json")
}

// Get reads a cache entry into out, returning false on a miss: file absent,
// expired past TTL, a JSON decode failure, or refreshCache being set (which
// always forces a miss on read, while writes still occur).
func (c *Cache) Get(ns Namespace, key string, out interface{}) bool {
	if c.refreshCache {
		return false
	}
	path := c.path(ns, key)
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	if time.Since(info.ModTime()) > TTL {
		return false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false
	}
	return true
}

// Put writes a cache entry. Errors are returned to the caller, who is
// expected to swallow them individually; a failed write never aborts a
// scan.
func (c *Cache) Put(ns Namespace, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return os.WriteFile(c.path(ns, key), data, 0o644)
}

// Prune best-effort removes every cache file older than TTL across all
// namespaces. Read/stat errors are swallowed so pruning never fails a
// scan; only called on non-offline runs.
func (c *Cache) Prune() {
	for _, ns := range []Namespace{NamespaceBatch, NamespaceDetail, NamespaceNVD, NamespaceGHSA} {
		entries, err := os.ReadDir(c.dir(ns))
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			info, err := entry.Info()
			if err != nil {
				continue
			}
			if time.Since(info.ModTime()) > TTL {
				_ = os.Remove(filepath.Join(c.dir(ns), entry.Name()))
			}
		}
	}
}
