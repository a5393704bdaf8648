package models

// Source describes where a Finding's lookup data came from: a live network
// batch response, a cache hit, or a lookup that never resolved.
type Source string

const (
	SourceOSV     Source = "osv"
	SourceCache   Source = "cache"
	SourceUnknown Source = "unknown"
)

// SeveritySource records which data point produced a finding's severity,
// for auditability. Invariant: severity == unknown iff severitySource is
// "unknown"; a finding re-classified by the unknown-as policy carries
// "policy_override" together with the policy's severity.
type SeveritySource string

const (
	SourceOSVCVSS        SeveritySource = "osv_cvss"
	SourceOSVLabel       SeveritySource = "osv_label"
	SourceOSVDetailCVSS  SeveritySource = "osv_detail_cvss"
	SourceOSVDetailLabel SeveritySource = "osv_detail_label"
	SourceAliasCVSS      SeveritySource = "alias_cvss"
	SourceGHSACVSS       SeveritySource = "ghsa_cvss"
	SourceGHSALabel      SeveritySource = "ghsa_label"
	SourcePolicyOverride SeveritySource = "policy_override"
	SourceUnknownSev     SeveritySource = "unknown"
)

// UnknownReason explains why a severity could not be resolved. It is
// present only while severity remains unknown at the OSV layer, and is
// preserved through policy overrides.
type UnknownReason string

const (
	ReasonMissingScore UnknownReason = "missing_score"
	ReasonLookupFailed UnknownReason = "lookup_failed"
)

// Confidence reflects how trustworthy a finding is, derived from
// (direct, hasEvidence).
type Confidence string

const (
	ConfidenceHigh    Confidence = "high"
	ConfidenceMedium  Confidence = "medium"
	ConfidenceLow     Confidence = "low"
	ConfidenceUnknown Confidence = "unknown"
)

// DeriveConfidence implements the fixed (direct, hasEvidence) table from
// the orchestrator's finding-synthesis step.
func DeriveConfidence(direct, hasEvidence bool) Confidence {
	switch {
	case direct && hasEvidence:
		return ConfidenceHigh
	case direct && !hasEvidence:
		return ConfidenceMedium
	case !direct && hasEvidence:
		return ConfidenceLow
	default:
		return ConfidenceUnknown
	}
}

// Vulnerability is a single advisory matched against a dependency.
type Vulnerability struct {
	ID             string         `json:"id"`
	Summary        string         `json:"summary,omitempty"`
	Aliases        []string       `json:"aliases,omitempty"`
	Severity       Severity       `json:"severity"`
	SeveritySource SeveritySource `json:"severitySource"`
	UnknownReason  *UnknownReason `json:"unknownReason,omitempty"`
	Modified       string         `json:"modified,omitempty"`
	References     []string       `json:"references,omitempty"`
	FixedVersion   string         `json:"fixedVersion,omitempty"`
}

// Finding is one dependency's aggregated vulnerability result.
type Finding struct {
	PackageName     string          `json:"packageName"`
	Version         string          `json:"version"`
	Direct          bool            `json:"direct"`
	Severity        Severity        `json:"severity"`
	SeveritySource  SeveritySource  `json:"severitySource"`
	UnknownReason   *UnknownReason  `json:"unknownReason,omitempty"`
	Confidence      Confidence      `json:"confidence"`
	Evidence        []string        `json:"evidence"`
	Vulnerabilities []Vulnerability `json:"vulnerabilities"`
	Source          Source          `json:"source"`
}

// SortKey builds the ordering key
// "<9-severityRank>:<name>:<version>:<comma-joined advisory ids>" so an
// ascending string sort yields highest severity first, then alphabetical
// by name, version, and advisory id sequence.
func (f Finding) SortKey() string {
	ids := make([]string, len(f.Vulnerabilities))
	for i, v := range f.Vulnerabilities {
		ids[i] = v.ID
	}
	return joinSortKey(9-f.Severity.Rank(), f.PackageName, f.Version, ids)
}
