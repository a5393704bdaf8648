package reporter

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bardcheck/bardscan/internal/models"
)

// SARIFReporter generates a SARIF 2.1.0 report for code-scanning
// integration: one run, one rule per unique advisory id, one result per
// (finding, vulnerability) pair.
type SARIFReporter struct {
	OutputDir string
	Version   string
}

func NewSARIFReporter(outputDir, version string) *SARIFReporter {
	if outputDir == "" {
		outputDir = "."
	}
	return &SARIFReporter{OutputDir: outputDir, Version: version}
}

func (r *SARIFReporter) Name() string   { return "sarif" }
func (r *SARIFReporter) Format() string { return "sarif" }

func (r *SARIFReporter) Generate(_ context.Context, report *models.ScanReport) error {
	ruleIndex := make(map[string]int)
	var rules []sarifRule

	for _, f := range report.Findings {
		for _, v := range f.Vulnerabilities {
			if _, exists := ruleIndex[v.ID]; exists {
				continue
			}
			ruleIndex[v.ID] = len(rules)
			rules = append(rules, sarifRule{
				ID:               v.ID,
				Name:             v.ID,
				ShortDescription: sarifMessage{Text: ruleDescription(v)},
				HelpURI:          AdvisoryURL(v.ID),
				DefaultConfiguration: sarifRuleConfig{
					Level: severityToSARIFLevel(v.Severity),
				},
			})
		}
	}

	results := make([]sarifResult, 0, len(report.Findings))
	for _, f := range report.Findings {
		for _, v := range f.Vulnerabilities {
			results = append(results, sarifResult{
				RuleID:    v.ID,
				RuleIndex: ruleIndex[v.ID],
				Level:     severityToSARIFLevel(f.Severity),
				Message: sarifMessage{
					Text: fmt.Sprintf("%s@%s is affected by %s", f.PackageName, f.Version, v.ID),
				},
				Locations: []sarifLocation{
					{
						PhysicalLocation: sarifPhysicalLocation{
							ArtifactLocation: sarifArtifactLocation{
								URI:       findingArtifact(f),
								URIBaseID: "%SRCROOT%",
							},
							Region: sarifRegion{StartLine: 1},
						},
					},
				},
			})
		}
	}

	sarifDoc := sarifDocument{
		Schema:  "https://raw.githubusercontent.com/oasis-tcs/sarif-spec/main/sarif-2.1/schema/sarif-schema-2.1.0.json",
		Version: "2.1.0",
		Runs: []sarifRun{
			{
				Tool: sarifTool{
					Driver: sarifDriver{
						Name:           "bardcheck/bardscan",
						InformationURI: "https://github.com/bardcheck/bardscan",
						Version:        r.Version,
						Rules:          rules,
					},
				},
				Results: results,
			},
		},
	}

	data, err := json.MarshalIndent(sarifDoc, "", "  ")
	if err != nil {
		return models.WrapScanError(models.ReportWriteFailed, "marshalling SARIF report", err)
	}

	outPath := filepath.Join(r.OutputDir, "report.sarif")
	if err := os.WriteFile(outPath, append(data, '\n'), 0644); err != nil {
		return models.WrapScanError(models.ReportWriteFailed, outPath, err)
	}
	return nil
}

func ruleDescription(v models.Vulnerability) string {
	if v.Summary != "" {
		return v.Summary
	}
	return v.ID
}

// findingArtifact anchors a result to the first evidence file when one
// exists; dependency findings without evidence point at package-lock.json
// under the source root, whichever lockfile dialect was scanned.
func findingArtifact(f models.Finding) string {
	if len(f.Evidence) > 0 {
		return f.Evidence[0]
	}
	return "package-lock.json"
}

func severityToSARIFLevel(s models.Severity) string {
	switch s {
	case models.SeverityCritical, models.SeverityHigh:
		return "error"
	case models.SeverityMedium, models.SeverityLow:
		return "warning"
	default:
		return "note"
	}
}

// SARIF 2.1.0 data structures

type sarifDocument struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name           string      `json:"name"`
	InformationURI string      `json:"informationUri"`
	Version        string      `json:"version,omitempty"`
	Rules          []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID                   string          `json:"id"`
	Name                 string          `json:"name"`
	ShortDescription     sarifMessage    `json:"shortDescription"`
	HelpURI              string          `json:"helpUri,omitempty"`
	DefaultConfiguration sarifRuleConfig `json:"defaultConfiguration"`
}

type sarifRuleConfig struct {
	Level string `json:"level"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifResult struct {
	RuleID    string          `json:"ruleId"`
	RuleIndex int             `json:"ruleIndex"`
	Level     string          `json:"level"`
	Message   sarifMessage    `json:"message"`
	Locations []sarifLocation `json:"locations"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
	Region           sarifRegion           `json:"region"`
}

type sarifArtifactLocation struct {
	URI       string `json:"uri"`
	URIBaseID string `json:"uriBaseId"`
}

type sarifRegion struct {
	StartLine int `json:"startLine"`
}
