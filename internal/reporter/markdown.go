package reporter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bardcheck/bardscan/internal/models"
)

// maxMarkdownReferences caps how many reference URLs are surfaced per
// advisory in the Markdown output.
const maxMarkdownReferences = 3

// MarkdownReporter writes report.md: a human-readable rendering of the
// same sorted finding list the JSON report carries.
type MarkdownReporter struct {
	OutputDir string
}

func NewMarkdownReporter(outputDir string) *MarkdownReporter {
	if outputDir == "" {
		outputDir = "."
	}
	return &MarkdownReporter{OutputDir: outputDir}
}

func (r *MarkdownReporter) Name() string   { return "markdown" }
func (r *MarkdownReporter) Format() string { return "md" }

func (r *MarkdownReporter) Generate(_ context.Context, report *models.ScanReport) error {
	var b strings.Builder

	b.WriteString("# Dependency vulnerability report\n\n")
	fmt.Fprintf(&b, "- Target: `%s`\n", report.TargetPath)
	fmt.Fprintf(&b, "- Generated: %s\n", report.GeneratedAt)
	fmt.Fprintf(&b, "- Dependencies: %d\n", report.Summary.DependencyCount)
	fmt.Fprintf(&b, "- Findings: %d\n", report.Summary.FindingsCount)
	fmt.Fprintf(&b, "- Fail-on threshold: %s\n\n", report.FailOn)

	if len(report.Findings) == 0 {
		b.WriteString("No findings.\n")
	}

	for _, f := range report.Findings {
		fmt.Fprintf(&b, "## %s@%s\n\n", f.PackageName, f.Version)
		fmt.Fprintf(&b, "- Severity: **%s** (%s)\n", f.Severity, f.SeveritySource)
		fmt.Fprintf(&b, "- Confidence: %s\n", f.Confidence)
		fmt.Fprintf(&b, "- Direct dependency: %t\n", f.Direct)
		if f.UnknownReason != nil {
			fmt.Fprintf(&b, "- Unknown reason: %s\n", *f.UnknownReason)
		}
		b.WriteString("\n")

		for _, v := range f.Vulnerabilities {
			fmt.Fprintf(&b, "- [%s](%s)", v.ID, AdvisoryURL(v.ID))
			if v.Summary != "" {
				fmt.Fprintf(&b, ": %s", v.Summary)
			}
			b.WriteString("\n")
			if v.FixedVersion != "" {
				fmt.Fprintf(&b, "  - Fixed in: %s\n", v.FixedVersion)
			}
			for i, ref := range v.References {
				if i >= maxMarkdownReferences {
					break
				}
				fmt.Fprintf(&b, "  - %s\n", ref)
			}
		}
		if len(f.Vulnerabilities) > 0 {
			b.WriteString("\n")
		}

		if len(f.Evidence) > 0 {
			fmt.Fprintf(&b, "Evidence: %s\n\n", strings.Join(f.Evidence, ", "))
		}
	}

	outPath := filepath.Join(r.OutputDir, "report.md")
	if err := os.WriteFile(outPath, []byte(b.String()), 0644); err != nil {
		return models.WrapScanError(models.ReportWriteFailed, outPath, err)
	}
	return nil
}
