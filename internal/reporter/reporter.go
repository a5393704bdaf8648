// Package reporter emits the scan report in its three file formats: JSON
// (canonical), Markdown, and SARIF 2.1.0.
package reporter

import (
	"context"
	"strings"

	"github.com/bardcheck/bardscan/internal/models"
)

// Reporter generates one output format from a scan report.
type Reporter interface {
	Name() string
	Format() string // file extension
	Generate(ctx context.Context, report *models.ScanReport) error
}

// AdvisoryURL maps an advisory id to its canonical human-readable page:
// GitHub for GHSA ids, NVD for CVE ids, osv.dev for everything else.
func AdvisoryURL(id string) string {
	switch {
	case strings.HasPrefix(id, "GHSA-"):
		return "https://github.com/advisories/" + id
	case strings.HasPrefix(id, "CVE-"):
		return "https://nvd.nist.gov/vuln/detail/" + id
	default:
		return "https://osv.dev/vulnerability/" + id
	}
}
