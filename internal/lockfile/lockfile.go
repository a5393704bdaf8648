// Package lockfile detects and parses the four npm-ecosystem lockfile
// dialects into a normalized models.ParsedLock.
package lockfile

import (
	"os"
	"path/filepath"

	"github.com/bardcheck/bardscan/internal/models"
)

// Dialect is one lockfile format's detector/parser pair. Implementations
// are tried in a fixed order by Resolve; the first whose Detect matches
// wins.
type Dialect interface {
	Name() string
	Detect(root string) (path string, ok bool)
	Parse(root, path string) (*models.ParsedLock, error)
}

// dialects is deliberately ordered: package-lock.json, pnpm-lock.yaml,
// yarn.lock, bun.lock/bun.lockb.
func dialects() []Dialect {
	return []Dialect{
		npmDialect{},
		pnpmDialect{},
		yarnDialect{},
		bunDialect{},
	}
}

// Resolve probes the project root for a supported lockfile and parses it.
// Returns NoLockfile if none is present, or LockfileCorrupt if the first
// matching dialect's file fails to parse.
func Resolve(root string) (*models.ParsedLock, error) {
	for _, d := range dialects() {
		path, ok := d.Detect(root)
		if !ok {
			continue
		}
		lock, err := d.Parse(root, path)
		if err != nil {
			return nil, models.WrapScanError(models.LockfileCorrupt, d.Name()+": "+path, err)
		}
		return lock, nil
	}
	return nil, models.NewScanError(models.NoLockfile, root)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func joinRoot(root, name string) string {
	return filepath.Join(root, name)
}
