package lockfile

import (
	"encoding/json"
	"os"
	"sort"
	"strings"

	"github.com/bardcheck/bardscan/internal/models"
)

type npmDialect struct{}

func (npmDialect) Name() string { return "npm" }

func (npmDialect) Detect(root string) (string, bool) {
	path := joinRoot(root, "package-lock.json")
	return path, fileExists(path)
}

// npmLockfile mirrors the fields of package-lock.json actually consulted:
// the v2+ flat "packages" tree and the legacy v1 recursive "dependencies"
// tree, grounded on the shape of npm's own lockfile schema.
type npmLockfile struct {
	LockfileVersion int                          `json:"lockfileVersion"`
	Packages        map[string]npmPackageEntry    `json:"packages"`
	Dependencies    map[string]npmDependencyEntry `json:"dependencies"`
}

type npmPackageEntry struct {
	Version string `json:"version"`
}

type npmDependencyEntry struct {
	Version      string                         `json:"version"`
	Dependencies map[string]npmDependencyEntry `json:"dependencies"`
}

func (npmDialect) Parse(root, path string) (*models.ParsedLock, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var lf npmLockfile
	if err := json.Unmarshal(data, &lf); err != nil {
		return nil, err
	}

	lock := models.NewParsedLock()

	if lf.LockfileVersion >= 2 && len(lf.Packages) > 0 {
		parseNpmPackagesTree(lf.Packages, lock)
		return lock, nil
	}

	parseNpmLegacyTree(lf.Dependencies, lock, true)
	return lock, nil
}

func parseNpmPackagesTree(packages map[string]npmPackageEntry, lock *models.ParsedLock) {
	for _, key := range sortedKeys(packages) {
		entry := packages[key]
		if key == "" {
			continue
		}
		idx := strings.LastIndex(key, "node_modules/")
		if idx == -1 {
			continue
		}
		rest := key[idx+len("node_modules/"):]
		name := npmPackageNameFromSegments(rest)
		if name == "" {
			continue
		}
		direct := key == "node_modules/"+name
		lock.Add(models.DependencyNode{
			Name:    name,
			Version: entry.Version,
			Direct:  direct,
		})
	}
}

// npmPackageNameFromSegments extracts a package name from the path
// segment(s) following the last "node_modules/": a scoped name consumes
// two segments ("@scope/name"), a bare name consumes one.
func npmPackageNameFromSegments(rest string) string {
	segments := strings.Split(rest, "/")
	if len(segments) == 0 || segments[0] == "" {
		return ""
	}
	if strings.HasPrefix(segments[0], "@") {
		if len(segments) >= 2 {
			return segments[0] + "/" + segments[1]
		}
		return ""
	}
	return segments[0]
}

func parseNpmLegacyTree(deps map[string]npmDependencyEntry, lock *models.ParsedLock, direct bool) {
	for _, name := range sortedKeys(deps) {
		entry := deps[name]
		lock.Add(models.DependencyNode{
			Name:    name,
			Version: entry.Version,
			Direct:  direct,
		})
		if len(entry.Dependencies) > 0 {
			parseNpmLegacyTree(entry.Dependencies, lock, false)
		}
	}
}

// sortedKeys keeps map-backed lockfile sections in a stable order so the
// emitted dependency set does not depend on Go's map iteration.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
