package reporter

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bardcheck/bardscan/internal/models"
)

func testReport() *models.ScanReport {
	reason := models.ReasonLookupFailed
	findings := []models.Finding{
		{
			PackageName:    "lodash",
			Version:        "4.17.21",
			Direct:         true,
			Severity:       models.SeverityCritical,
			SeveritySource: models.SourceOSVCVSS,
			Confidence:     models.ConfidenceHigh,
			Evidence:       []string{"src/index.ts"},
			Vulnerabilities: []models.Vulnerability{
				{
					ID:             "GHSA-aaaa-bbbb-cccc",
					Summary:        "Prototype pollution",
					Aliases:        []string{"CVE-2021-0001"},
					Severity:       models.SeverityCritical,
					SeveritySource: models.SourceOSVCVSS,
					References:     []string{"https://example.com/advisory", "https://example.com/patch"},
					FixedVersion:   "4.17.22",
				},
			},
			Source: models.SourceOSV,
		},
		{
			PackageName:    "ansi-styles",
			Version:        "6.2.1",
			Direct:         false,
			Severity:       models.SeverityUnknown,
			SeveritySource: models.SourceUnknownSev,
			UnknownReason:  &reason,
			Confidence:     models.ConfidenceUnknown,
			Evidence:       []string{},
			Vulnerabilities: []models.Vulnerability{},
			Source:         models.SourceUnknown,
		},
	}
	return &models.ScanReport{
		TargetPath:  "/tmp/test-project",
		GeneratedAt: "2026-01-02T03:04:05Z",
		FailOn:      models.SeverityHigh,
		Summary:     models.BuildSummary(3, 12, findings),
		Findings:    findings,
	}
}

func TestJSONReporter(t *testing.T) {
	dir := t.TempDir()
	r := NewJSONReporter(dir)

	if r.Name() != "json" {
		t.Errorf("Name() = %q, want %q", r.Name(), "json")
	}

	if err := r.Generate(context.Background(), testReport()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "report.json"))
	if err != nil {
		t.Fatalf("report file not created: %v", err)
	}

	content := string(data)
	for _, want := range []string{
		`"targetPath": "/tmp/test-project"`,
		`"packageName": "lodash"`,
		`"severitySource": "osv_cvss"`,
		`"unknownReason": "lookup_failed"`,
		`"findingsCount": 2`,
	} {
		if !strings.Contains(content, want) {
			t.Errorf("JSON report missing %q", want)
		}
	}
}

func TestJSONReporter_Deterministic(t *testing.T) {
	dir1, dir2 := t.TempDir(), t.TempDir()

	if err := NewJSONReporter(dir1).Generate(context.Background(), testReport()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := NewJSONReporter(dir2).Generate(context.Background(), testReport()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	a, _ := os.ReadFile(filepath.Join(dir1, "report.json"))
	b, _ := os.ReadFile(filepath.Join(dir2, "report.json"))
	if !bytes.Equal(a, b) {
		t.Error("identical inputs should produce byte-identical JSON output")
	}
}

func TestMarkdownReporter(t *testing.T) {
	dir := t.TempDir()
	r := NewMarkdownReporter(dir)

	if err := r.Generate(context.Background(), testReport()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "report.md"))
	if err != nil {
		t.Fatalf("report file not created: %v", err)
	}

	content := string(data)
	for _, want := range []string{
		"## lodash@4.17.21",
		"**critical** (osv_cvss)",
		"[GHSA-aaaa-bbbb-cccc](https://github.com/advisories/GHSA-aaaa-bbbb-cccc): Prototype pollution",
		"Fixed in: 4.17.22",
		"Evidence: src/index.ts",
		"## ansi-styles@6.2.1",
		"Unknown reason: lookup_failed",
	} {
		if !strings.Contains(content, want) {
			t.Errorf("Markdown report missing %q", want)
		}
	}
}

func TestMarkdownReporter_ReferenceCap(t *testing.T) {
	dir := t.TempDir()
	report := testReport()
	report.Findings[0].Vulnerabilities[0].References = []string{
		"https://ref.example/1", "https://ref.example/2",
		"https://ref.example/3", "https://ref.example/4",
	}

	if err := NewMarkdownReporter(dir).Generate(context.Background(), report); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, _ := os.ReadFile(filepath.Join(dir, "report.md"))
	if strings.Contains(string(data), "https://ref.example/4") {
		t.Error("Markdown should surface at most three references per advisory")
	}
	if !strings.Contains(string(data), "https://ref.example/3") {
		t.Error("Markdown should keep the first three references")
	}
}

func TestAdvisoryURL(t *testing.T) {
	tests := []struct {
		id   string
		want string
	}{
		{"GHSA-aaaa-bbbb-cccc", "https://github.com/advisories/GHSA-aaaa-bbbb-cccc"},
		{"CVE-2024-9999", "https://nvd.nist.gov/vuln/detail/CVE-2024-9999"},
		{"MAL-2024-1", "https://osv.dev/vulnerability/MAL-2024-1"},
	}
	for _, tt := range tests {
		if got := AdvisoryURL(tt.id); got != tt.want {
			t.Errorf("AdvisoryURL(%q) = %q, want %q", tt.id, got, tt.want)
		}
	}
}
