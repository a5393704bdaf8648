package lockfile

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
}

func TestResolveNoLockfile(t *testing.T) {
	dir := t.TempDir()
	if _, err := Resolve(dir); err == nil {
		t.Fatal("expected an error when no lockfile is present")
	}
}

func TestNpmV2PackagesTree(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "package-lock.json", `{
		"lockfileVersion": 3,
		"packages": {
			"": {"name": "app"},
			"node_modules/lodash": {"version": "4.17.21"},
			"node_modules/chalk": {"version": "5.0.0"},
			"node_modules/chalk/node_modules/ansi-styles": {"version": "6.2.1"}
		}
	}`)

	lock, err := Resolve(dir)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if lock.Len() != 3 {
		t.Fatalf("expected 3 deps, got %d", lock.Len())
	}
	byName := map[string]bool{}
	for _, n := range lock.Nodes() {
		byName[n.Name] = n.Direct
		if n.Name == "lodash" && n.Version != "4.17.21" {
			t.Errorf("lodash version = %s, want 4.17.21", n.Version)
		}
	}
	if !byName["lodash"] || !byName["chalk"] {
		t.Errorf("expected lodash and chalk to be direct: %+v", byName)
	}
	if byName["ansi-styles"] {
		t.Errorf("expected ansi-styles to be transitive")
	}
}

func TestNpmScopedPackage(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "package-lock.json", `{
		"lockfileVersion": 3,
		"packages": {
			"": {},
			"node_modules/@scope/pkg": {"version": "1.0.0"},
			"node_modules/@scope/pkg/node_modules/@scope/dep": {"version": "2.0.0"}
		}
	}`)
	lock, err := Resolve(dir)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	nodes := lock.Nodes()
	found := map[string]bool{}
	for _, n := range nodes {
		found[n.Name] = n.Direct
	}
	if !found["@scope/pkg"] {
		t.Errorf("expected @scope/pkg to be direct")
	}
	if found["@scope/dep"] {
		t.Errorf("expected @scope/dep to be transitive")
	}
}

func TestNpmLegacyDependenciesTree(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "package-lock.json", `{
		"lockfileVersion": 1,
		"dependencies": {
			"lodash": {
				"version": "4.17.21",
				"dependencies": {
					"nested": {"version": "1.0.0"}
				}
			}
		}
	}`)
	lock, err := Resolve(dir)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	nodes := map[string]bool{}
	for _, n := range lock.Nodes() {
		nodes[n.Name] = n.Direct
	}
	if !nodes["lodash"] {
		t.Errorf("expected lodash to be direct")
	}
	if nodes["nested"] {
		t.Errorf("expected nested to be transitive")
	}
}

func TestPnpmDirectVsTransitive(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "pnpm-lock.yaml", `
importers:
  .:
    dependencies:
      lodash:
        specifier: ^4.17.21
        version: 4.17.21
packages:
  lodash@4.17.21: {}
  ansi-styles@6.2.1(peer-dep@1.0.0): {}
`)
	lock, err := Resolve(dir)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	nodes := map[string]string{}
	for _, n := range lock.Nodes() {
		if n.Direct {
			nodes[n.Name] = n.Version
		}
	}
	if nodes["lodash"] != "4.17.21" {
		t.Errorf("expected lodash direct at 4.17.21, got %+v", nodes)
	}
	for _, n := range lock.Nodes() {
		if n.Name == "ansi-styles" && n.Direct {
			t.Errorf("expected ansi-styles to be transitive")
		}
	}
}

func TestYarnSelectorGroupVersion(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "package.json", `{"dependencies": {"chalk": "^5.0.0"}}`)
	writeFile(t, dir, "yarn.lock", "# yarn lockfile v1\n\n"+
		"chalk@^5.0.0:\n  version \"5.0.0\"\n  resolved \"...\"\n\n"+
		"\"@babel/core@^7.0.0\", \"@babel/core@^7.12.3\":\n  version \"7.12.3\"\n")

	lock, err := Resolve(dir)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	versions := map[string]string{}
	direct := map[string]bool{}
	for _, n := range lock.Nodes() {
		versions[n.Name] = n.Version
		direct[n.Name] = n.Direct
	}
	if versions["chalk"] != "5.0.0" || !direct["chalk"] {
		t.Errorf("expected chalk direct at 5.0.0, got %+v direct=%v", versions, direct)
	}
	if versions["@babel/core"] != "7.12.3" {
		t.Errorf("expected @babel/core at 7.12.3, got %+v", versions)
	}
	if direct["@babel/core"] {
		t.Errorf("expected @babel/core to be transitive")
	}
}

func TestBunManifestBestEffort(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "package.json", `{"dependencies": {"lodash": "^4.17.21"}}`)
	writeFile(t, dir, "bun.lock", "")

	lock, err := Resolve(dir)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	nodes := lock.Nodes()
	if len(nodes) != 1 || nodes[0].Name != "lodash" || nodes[0].Version != "4.17.21" || !nodes[0].Direct {
		t.Errorf("unexpected bun nodes: %+v", nodes)
	}
}
