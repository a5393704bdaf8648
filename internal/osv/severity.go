package osv

import (
	"strconv"
	"strings"

	"github.com/bardcheck/bardscan/internal/models"
)

// normalizeSeverity applies the uniform OSV/OSV-detail severity rule:
// prefer a parsed CVSS numeric score, fall back to a database_specific
// label, else unknown with unknownReason=missing_score. context is the
// source-tag prefix ("osv", "osv_detail").
func normalizeSeverity(raw []rawSeverity, dbSpecific *rawDBSpecific, context string) (models.Severity, models.SeveritySource, *models.UnknownReason) {
	for _, s := range raw {
		if !strings.Contains(strings.ToLower(s.Type), "cvss") {
			continue
		}
		if score, ok := parseCVSSScore(s.Score); ok {
			return models.SeverityFromScore(score), models.SeveritySource(context + "_cvss"), nil
		}
	}

	if dbSpecific != nil {
		if sev, ok := severityFromLabel(dbSpecific.Severity); ok {
			return sev, models.SeveritySource(context + "_label"), nil
		}
	}

	reason := models.ReasonMissingScore
	return models.SeverityUnknown, models.SourceUnknownSev, &reason
}

// parseCVSSScore accepts either a bare float ("9.8") or a full vector
// string ("CVSS:3.1/AV:N/AC:L/.../C:H/I:H/A:H"), in which case the last
// "/"-separated token is taken as the numeric value.
func parseCVSSScore(raw string) (float64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	if score, err := strconv.ParseFloat(raw, 64); err == nil {
		return score, true
	}
	parts := strings.Split(raw, "/")
	last := parts[len(parts)-1]
	if score, err := strconv.ParseFloat(last, 64); err == nil {
		return score, true
	}
	return 0, false
}

func severityFromLabel(label string) (models.Severity, bool) {
	lower := strings.ToLower(label)
	switch {
	case strings.Contains(lower, "critical"):
		return models.SeverityCritical, true
	case strings.Contains(lower, "high"):
		return models.SeverityHigh, true
	case strings.Contains(lower, "medium"), strings.Contains(lower, "moderate"):
		return models.SeverityMedium, true
	case strings.Contains(lower, "low"):
		return models.SeverityLow, true
	default:
		return "", false
	}
}

// fixedVersion returns the lexicographically smallest "fixed" event
// across every affected range. Intentionally a string comparison, not
// semver: fixedVersion is advisory only.
func fixedVersion(affected []rawAffected) string {
	var min string
	for _, a := range affected {
		for _, r := range a.Ranges {
			for _, e := range r.Events {
				if e.Fixed == "" {
					continue
				}
				if min == "" || e.Fixed < min {
					min = e.Fixed
				}
			}
		}
	}
	return min
}

// dedupReferences deduplicates URLs, preserving first-seen order.
func dedupReferences(refs []rawReference) []string {
	seen := make(map[string]bool, len(refs))
	var out []string
	for _, r := range refs {
		if r.URL == "" || seen[r.URL] {
			continue
		}
		seen[r.URL] = true
		out = append(out, r.URL)
	}
	return out
}

func normalizeVuln(raw rawVuln, context string) models.Vulnerability {
	severity, source, unknownReason := normalizeSeverity(raw.Severity, raw.DatabaseSpecific, context)
	return models.Vulnerability{
		ID:             raw.ID,
		Summary:        raw.Summary,
		Aliases:        raw.Aliases,
		Severity:       severity,
		SeveritySource: source,
		UnknownReason:  unknownReason,
		Modified:       raw.Modified,
		References:     dedupReferences(raw.References),
		FixedVersion:   fixedVersion(raw.Affected),
	}
}
