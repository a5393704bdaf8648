package osv

import (
	"testing"

	"github.com/bardcheck/bardscan/internal/models"
)

func TestParseCVSSScorePlainFloat(t *testing.T) {
	score, ok := parseCVSSScore("9.8")
	if !ok || score != 9.8 {
		t.Fatalf("parseCVSSScore(9.8) = %v, %v", score, ok)
	}
}

func TestParseCVSSScoreVectorString(t *testing.T) {
	score, ok := parseCVSSScore("CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:H/I:H/A:H/7.5")
	if !ok || score != 7.5 {
		t.Fatalf("parseCVSSScore(vector) = %v, %v", score, ok)
	}
}

func TestNormalizeSeverityPrefersCVSS(t *testing.T) {
	raw := []rawSeverity{{Type: "CVSS_V3", Score: "9.8"}}
	sev, source, reason := normalizeSeverity(raw, nil, "osv")
	if sev != models.SeverityCritical {
		t.Errorf("severity = %v, want critical", sev)
	}
	if source != models.SourceOSVCVSS {
		t.Errorf("source = %v, want osv_cvss", source)
	}
	if reason != nil {
		t.Errorf("expected no unknownReason, got %v", *reason)
	}
}

func TestNormalizeSeverityFallsBackToLabel(t *testing.T) {
	sev, source, _ := normalizeSeverity(nil, &rawDBSpecific{Severity: "MODERATE"}, "osv")
	if sev != models.SeverityMedium {
		t.Errorf("severity = %v, want medium", sev)
	}
	if source != models.SourceOSVLabel {
		t.Errorf("source = %v, want osv_label", source)
	}
}

func TestNormalizeSeverityUnknownWhenNoData(t *testing.T) {
	sev, source, reason := normalizeSeverity(nil, nil, "osv")
	if sev != models.SeverityUnknown {
		t.Errorf("severity = %v, want unknown", sev)
	}
	if source != models.SourceUnknownSev {
		t.Errorf("source = %v, want unknown", source)
	}
	if reason == nil || *reason != models.ReasonMissingScore {
		t.Errorf("expected unknownReason=missing_score, got %v", reason)
	}
}

func TestFixedVersionLexicographicMinimum(t *testing.T) {
	affected := []rawAffected{
		{Ranges: []rawRange{{Events: []rawEvent{{Fixed: "2.0.0"}}}}},
		{Ranges: []rawRange{{Events: []rawEvent{{Fixed: "1.9.0"}, {Fixed: "3.0.0"}}}}},
	}
	if got := fixedVersion(affected); got != "1.9.0" {
		t.Errorf("fixedVersion = %q, want 1.9.0", got)
	}
}

func TestDedupReferencesPreservesOrder(t *testing.T) {
	refs := []rawReference{
		{URL: "https://a"}, {URL: "https://b"}, {URL: "https://a"}, {URL: ""},
	}
	got := dedupReferences(refs)
	want := []string{"https://a", "https://b"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("dedupReferences = %v, want %v", got, want)
	}
}
