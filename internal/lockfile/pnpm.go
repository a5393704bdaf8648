package lockfile

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/bardcheck/bardscan/internal/models"
)

type pnpmDialect struct{}

func (pnpmDialect) Name() string { return "pnpm" }

func (pnpmDialect) Detect(root string) (string, bool) {
	path := joinRoot(root, "pnpm-lock.yaml")
	return path, fileExists(path)
}

type pnpmImporter struct {
	Dependencies         map[string]interface{} `yaml:"dependencies"`
	DevDependencies      map[string]interface{} `yaml:"devDependencies"`
	OptionalDependencies map[string]interface{} `yaml:"optionalDependencies"`
}

type pnpmLockfile struct {
	Importers map[string]pnpmImporter `yaml:"importers"`
	Packages  map[string]interface{}  `yaml:"packages"`
}

func (pnpmDialect) Parse(root, path string) (*models.ParsedLock, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var lf pnpmLockfile
	if err := yaml.Unmarshal(data, &lf); err != nil {
		return nil, err
	}

	direct := make(map[string]bool)
	for _, importer := range lf.Importers {
		for name := range importer.Dependencies {
			direct[name] = true
		}
		for name := range importer.DevDependencies {
			direct[name] = true
		}
		for name := range importer.OptionalDependencies {
			direct[name] = true
		}
	}

	lock := models.NewParsedLock()
	for _, key := range sortedKeys(lf.Packages) {
		name, version, ok := parsePnpmPackageKey(key)
		if !ok {
			continue
		}
		lock.Add(models.DependencyNode{
			Name:    name,
			Version: version,
			Direct:  direct[name],
		})
	}
	return lock, nil
}

// parsePnpmPackageKey parses a pnpm "packages" map key of the shape
// "/name@version(...peer...)" or "name@version(...peer...)" into
// (name, version). The leading slash and everything from the first "("
// onward are stripped first; name and version split at the LAST "@" to
// support scoped names.
func parsePnpmPackageKey(key string) (name, version string, ok bool) {
	key = strings.TrimPrefix(key, "/")
	if idx := strings.Index(key, "("); idx != -1 {
		key = key[:idx]
	}
	at := strings.LastIndex(key, "@")
	if at <= 0 {
		return "", "", false
	}
	return key[:at], key[at+1:], true
}
