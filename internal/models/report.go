package models

import (
	"fmt"
	"sort"
	"strings"
)

// Summary is the ScanReport's counted-findings section.
type Summary struct {
	DependencyCount int                `json:"dependencyCount"`
	ScannedFiles    int                `json:"scannedFiles"`
	FindingsCount   int                `json:"findingsCount"`
	BySeverity      map[Severity]int   `json:"bySeverity"`
	ByConfidence    map[Confidence]int `json:"byConfidence"`
}

// ScanReport is the final, deterministic aggregate result of a scan.
type ScanReport struct {
	TargetPath  string    `json:"targetPath"`
	GeneratedAt string    `json:"generatedAt"`
	FailOn      Severity  `json:"failOn"`
	Summary     Summary   `json:"summary"`
	Findings    []Finding `json:"findings"`
}

// SortFindings orders findings ascending by SortKey, with a stable
// tie-break on original index so sorting is a pure function of content.
func SortFindings(findings []Finding) []Finding {
	type indexed struct {
		f   Finding
		idx int
	}
	tmp := make([]indexed, len(findings))
	for i, f := range findings {
		tmp[i] = indexed{f: f, idx: i}
	}
	sort.SliceStable(tmp, func(i, j int) bool {
		ki, kj := tmp[i].f.SortKey(), tmp[j].f.SortKey()
		if ki != kj {
			return ki < kj
		}
		return tmp[i].idx < tmp[j].idx
	})
	out := make([]Finding, len(tmp))
	for i, t := range tmp {
		out[i] = t.f
	}
	return out
}

// BuildSummary derives the zero-filled severity/confidence histograms and
// the invariant-satisfying counts from a sorted finding list.
func BuildSummary(dependencyCount, scannedFiles int, findings []Finding) Summary {
	bySeverity := make(map[Severity]int, len(AllSeverities()))
	for _, s := range AllSeverities() {
		bySeverity[s] = 0
	}
	byConfidence := map[Confidence]int{
		ConfidenceHigh:    0,
		ConfidenceMedium:  0,
		ConfidenceLow:     0,
		ConfidenceUnknown: 0,
	}
	for _, f := range findings {
		bySeverity[f.Severity]++
		byConfidence[f.Confidence]++
	}
	return Summary{
		DependencyCount: dependencyCount,
		ScannedFiles:    scannedFiles,
		FindingsCount:   len(findings),
		BySeverity:      bySeverity,
		ByConfidence:    byConfidence,
	}
}

func joinSortKey(severityBucket int, name, version string, ids []string) string {
	return fmt.Sprintf("%d:%s:%s:%s", severityBucket, name, version, strings.Join(ids, ","))
}
