package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

type payload struct {
	Value string `json:"value"`
}

func TestPutGetRoundTrip(t *testing.T) {
	dir := t.TempDir()
	c := New(dir, false)
	if err := c.EnsureRoot(); err != nil {
		t.Fatalf("EnsureRoot: %v", err)
	}
	if err := c.Put(NamespaceBatch, "lodash@4.17.21", payload{Value: "hit"}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	var out payload
	if !c.Get(NamespaceBatch, "lodash@4.17.21", &out) {
		t.Fatal("expected cache hit")
	}
	if out.Value != "hit" {
		t.Errorf("Value = %q, want hit", out.Value)
	}
}

func TestGetMissOnExpiredTTL(t *testing.T) {
	dir := t.TempDir()
	c := New(dir, false)
	c.EnsureRoot()
	c.Put(NamespaceDetail, "GHSA-xxxx", payload{Value: "stale"})

	path := c.path(NamespaceDetail, "GHSA-xxxx")
	old := time.Now().Add(-25 * time.Hour)
	if err := os.Chtimes(path, old, old); err != nil {
		t.Fatalf("Chtimes: %v", err)
	}

	var out payload
	if c.Get(NamespaceDetail, "GHSA-xxxx", &out) {
		t.Fatal("expected cache miss past TTL")
	}
}

func TestRefreshCacheForcesMiss(t *testing.T) {
	dir := t.TempDir()
	c := New(dir, false)
	c.EnsureRoot()
	c.Put(NamespaceNVD, "CVE-2024-1", payload{Value: "fresh"})

	refreshing := New(dir, true)
	var out payload
	if refreshing.Get(NamespaceNVD, "CVE-2024-1", &out) {
		t.Fatal("expected refreshCache to force a miss")
	}
}

func TestPruneRemovesExpiredOnly(t *testing.T) {
	dir := t.TempDir()
	c := New(dir, false)
	c.EnsureRoot()
	c.Put(NamespaceGHSA, "GHSA-keep", payload{Value: "keep"})
	c.Put(NamespaceGHSA, "GHSA-drop", payload{Value: "drop"})

	oldPath := c.path(NamespaceGHSA, "GHSA-drop")
	old := time.Now().Add(-48 * time.Hour)
	os.Chtimes(oldPath, old, old)

	c.Prune()

	if _, err := os.Stat(oldPath); err == nil {
		t.Error("expected expired entry to be pruned")
	}
	keepPath := c.path(NamespaceGHSA, "GHSA-keep")
	if _, err := os.Stat(keepPath); err != nil {
		t.Error("expected fresh entry to survive prune")
	}
}

func TestNamespaceDirectories(t *testing.T) {
	dir := t.TempDir()
	c := New(dir, false)
	if err := c.EnsureRoot(); err != nil {
		t.Fatalf("EnsureRoot: %v", err)
	}
	for _, ns := range []Namespace{NamespaceDetail, NamespaceNVD, NamespaceGHSA} {
		if _, err := os.Stat(filepath.Join(dir, ".cache", "osv", string(ns))); err != nil {
			t.Errorf("expected namespace dir %s to exist: %v", ns, err)
		}
	}
}
