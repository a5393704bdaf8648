package reporter

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/bardcheck/bardscan/internal/models"
)

// JSONReporter writes the canonical report.json: the ScanReport serialized
// with two-space indentation, keys in declaration order, byte-identical
// across runs on identical inputs.
type JSONReporter struct {
	OutputDir string
}

func NewJSONReporter(outputDir string) *JSONReporter {
	if outputDir == "" {
		outputDir = "."
	}
	return &JSONReporter{OutputDir: outputDir}
}

func (r *JSONReporter) Name() string   { return "json" }
func (r *JSONReporter) Format() string { return "json" }

func (r *JSONReporter) Generate(_ context.Context, report *models.ScanReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return models.WrapScanError(models.ReportWriteFailed, "marshalling report", err)
	}

	outPath := filepath.Join(r.OutputDir, "report.json")
	if err := os.WriteFile(outPath, append(data, '\n'), 0644); err != nil {
		return models.WrapScanError(models.ReportWriteFailed, outPath, err)
	}
	return nil
}
