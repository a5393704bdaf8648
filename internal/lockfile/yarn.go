package lockfile

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/bardcheck/bardscan/internal/models"
)

type yarnDialect struct{}

func (yarnDialect) Name() string { return "yarn" }

func (yarnDialect) Detect(root string) (string, bool) {
	path := joinRoot(root, "yarn.lock")
	return path, fileExists(path)
}

func (yarnDialect) Parse(root, path string) (*models.ParsedLock, error) {
	direct, err := collectYarnDirectNames(root)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	lock := models.NewParsedLock()

	var pendingSelectors []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !strings.HasPrefix(line, " ") && !strings.HasPrefix(line, "\t") {
			if strings.HasSuffix(strings.TrimSpace(line), ":") {
				pendingSelectors = parseYarnSelectorGroup(line)
			}
			continue
		}
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "version ") {
			version := strings.Trim(strings.TrimPrefix(trimmed, "version "), `" `)
			for _, sel := range pendingSelectors {
				name := extractYarnName(sel)
				if name == "" {
					continue
				}
				lock.Add(models.DependencyNode{
					Name:    name,
					Version: version,
					Direct:  direct[name],
				})
			}
			pendingSelectors = nil
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return lock, nil
}

// parseYarnSelectorGroup splits a selector-group header line (minus its
// trailing colon) on commas, trimming whitespace and surrounding quotes
// from each selector.
func parseYarnSelectorGroup(line string) []string {
	line = strings.TrimSpace(line)
	line = strings.TrimSuffix(line, ":")
	parts := strings.Split(line, ",")
	selectors := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		p = strings.Trim(p, `"`)
		if p != "" {
			selectors = append(selectors, p)
		}
	}
	return selectors
}

// extractYarnName pulls the package name out of a selector of the form
// "name@range" or "name@npm:range", respecting a leading "@scope/" so the
// separating "@" is the one found after the first "/".
func extractYarnName(selector string) string {
	if strings.HasPrefix(selector, "@") {
		slashIdx := strings.Index(selector, "/")
		if slashIdx == -1 {
			return ""
		}
		atIdx := strings.Index(selector[slashIdx:], "@")
		if atIdx == -1 {
			return ""
		}
		return selector[:slashIdx+atIdx]
	}
	atIdx := strings.Index(selector, "@")
	if atIdx == -1 {
		return selector
	}
	return selector[:atIdx]
}

type packageManifest struct {
	Dependencies         map[string]string `json:"dependencies"`
	DevDependencies      map[string]string `json:"devDependencies"`
	OptionalDependencies map[string]string `json:"optionalDependencies"`
	Workspaces           json.RawMessage    `json:"workspaces"`
}

func (m packageManifest) directNames() map[string]bool {
	names := make(map[string]bool)
	for name := range m.Dependencies {
		names[name] = true
	}
	for name := range m.DevDependencies {
		names[name] = true
	}
	for name := range m.OptionalDependencies {
		names[name] = true
	}
	return names
}

func (m packageManifest) workspaceGlobs() []string {
	if len(m.Workspaces) == 0 {
		return nil
	}
	var asList []string
	if err := json.Unmarshal(m.Workspaces, &asList); err == nil {
		return asList
	}
	var asObj struct {
		Packages []string `json:"packages"`
	}
	if err := json.Unmarshal(m.Workspaces, &asObj); err == nil {
		return asObj.Packages
	}
	return nil
}

func readManifest(path string) (packageManifest, error) {
	var m packageManifest
	data, err := os.ReadFile(path)
	if err != nil {
		return m, err
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return m, err
	}
	return m, nil
}

// collectYarnDirectNames unions direct dependency names from the root
// manifest and every workspace manifest it declares.
func collectYarnDirectNames(root string) (map[string]bool, error) {
	direct := make(map[string]bool)

	rootManifest, err := readManifest(joinRoot(root, "package.json"))
	if err != nil {
		return nil, err
	}
	for name := range rootManifest.directNames() {
		direct[name] = true
	}

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
			for name := range wsManifest.directNames() {
				direct[name] = true
			}
		}
	}

	return direct, nil
}
