package lockfile

import (
	"path/filepath"
	"regexp"

	"github.com/bardcheck/bardscan/internal/models"
)

type bunDialect struct{}

func (bunDialect) Name() string { return "bun" }

func (bunDialect) Detect(root string) (string, bool) {
	if path := joinRoot(root, "bun.lock"); fileExists(path) {
		return path, true
	}
	if path := joinRoot(root, "bun.lockb"); fileExists(path) {
		return path, true
	}
	return "", false
}

var bunVersionPattern = regexp.MustCompile(`\d+\.\d+\.\d+(?:[-+][0-9A-Za-z.-]+)?`)

// Parse never reads the lockfile itself — bun.lockb is a binary format this
// tool does not parse (a documented fidelity loss). Instead it reads the
// manifest(s) and emits every declared dependency as direct, best-effort.
func (bunDialect) Parse(root, _ string) (*models.ParsedLock, error) {
	lock := models.NewParsedLock()

	rootManifest, err := readManifest(joinRoot(root, "package.json"))
	if err != nil {
		return nil, err
	}
	addBunManifestDeps(lock, rootManifest)

	for _, glob := range rootManifest.workspaceGlobs() {
		matches, _ := filepath.Glob(joinRoot(root, glob))
		for _, dir := range matches {
			manifestPath := filepath.Join(dir, "package.json")
			if !fileExists(manifestPath) {
				continue
			}
			wsManifest, err := readManifest(manifestPath)
			if err != nil {
				continue
			}
			addBunManifestDeps(lock, wsManifest)
		}
	}

	return lock, nil
}

func addBunManifestDeps(lock *models.ParsedLock, m packageManifest) {
	add := func(deps map[string]string) {
		for _, name := range sortedKeys(deps) {
			lock.Add(models.DependencyNode{
				Name:    name,
				Version: normalizeBunVersion(deps[name]),
				Direct:  true,
			})
		}
	}
	add(m.Dependencies)
	add(m.DevDependencies)
	add(m.OptionalDependencies)
}

func normalizeBunVersion(spec string) string {
	if match := bunVersionPattern.FindString(spec); match != "" {
		return match
	}
	return spec
}
