// Package evidence greps source files for import/require specifiers and
// maps each referenced package name to the sorted, deduplicated list of
// files that reference it.
package evidence

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/bardcheck/bardscan/internal/models"
)

var indexedExtensions = map[string]bool{
	".ts": true, ".tsx": true, ".js": true, ".jsx": true,
	".mjs": true, ".cjs": true, ".vue": true,
}

var excludedDirs = map[string]bool{
	"node_modules": true, "dist": true, ".next": true,
}

var (
	staticSpecifier  = regexp.MustCompile(`(?:import\s[^'"]*?\sfrom\s*|require\(\s*)['"]([^'"]+)['"]`)
	dynamicSpecifier = regexp.MustCompile(`import\(\s*['"]([^'"]+)['"]\s*\)`)
)

const walkWorkers = 6

// Build walks root collecting evidence for every indexed source file,
// parallelized across a bounded worker pool. The returned index is
// deterministic regardless of worker completion order: per-file results
// are merged under a mutex, then deduplicated and sorted once all workers
// finish.
func Build(ctx context.Context, root string) (models.EvidenceIndex, error) {
	files, err := collectFiles(root)
	if err != nil {
		return models.EvidenceIndex{}, err
	}

	var mu sync.Mutex
	byPackage := make(map[string]map[string]bool)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(walkWorkers)

	for _, file := range files {
		file := file
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			specifiers, err := extractSpecifiers(file.abs)
			if err != nil {
				// Per-file read errors are swallowed, matching the
				// orchestrator's recoverable-and-silent error policy.
				return nil
			}
			mu.Lock()
			for _, spec := range specifiers {
				name := normalizeSpecifier(spec)
				if name == "" {
					continue
				}
				if byPackage[name] == nil {
					byPackage[name] = make(map[string]bool)
				}
				byPackage[name][file.rel] = true
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return models.EvidenceIndex{}, err
	}

	result := make(map[string][]string, len(byPackage))
	for name, set := range byPackage {
		paths := make([]string, 0, len(set))
		for p := range set {
			paths = append(paths, p)
		}
		sort.Strings(paths)
		result[name] = paths
	}

	return models.EvidenceIndex{ScannedFiles: len(files), ByPackage: result}, nil
}

type sourceFile struct {
	abs string
	rel string
}

func collectFiles(root string) ([]sourceFile, error) {
	var files []sourceFile
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			if excludedDirs[info.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if !indexedExtensions[filepath.Ext(path)] {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		files = append(files, sourceFile{abs: path, rel: filepath.ToSlash(rel)})
		return nil
	})
	return files, err
}

func extractSpecifiers(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	text := string(data)

	var specs []string
	for _, m := range staticSpecifier.FindAllStringSubmatch(text, -1) {
		specs = append(specs, m[1])
	}
	for _, m := range dynamicSpecifier.FindAllStringSubmatch(text, -1) {
		specs = append(specs, m[1])
	}
	return specs, nil
}

// normalizeSpecifier drops relative/absolute specifiers and reduces a
// bare or scoped specifier down to its package name.
func normalizeSpecifier(spec string) string {
	if strings.HasPrefix(spec, ".") || strings.HasPrefix(spec, "/") {
		return ""
	}
	segments := strings.Split(spec, "/")
	if strings.HasPrefix(spec, "@") {
		if len(segments) >= 2 {
			return segments[0] + "/" + segments[1]
		}
		return ""
	}
	return segments[0]
}
