package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bardcheck/bardscan/internal/config"
	"github.com/bardcheck/bardscan/internal/eventbus"
	"github.com/bardcheck/bardscan/internal/models"
	"github.com/bardcheck/bardscan/internal/orchestrator"
	"github.com/bardcheck/bardscan/internal/terminal"
)

var (
	scanFormat        string
	scanOutDir        string
	scanFailOn        string
	scanOffline       bool
	scanUnknownAs     string
	scanRefreshCache  bool
	scanListFindings  string
	scanFindingsJSON  string
	scanPrivacy       string
	scanFallbackCalls bool
	scanRedactPaths   bool
	scanEvidence      string
	scanFailOnUnknown bool
	scanOSVURL        string
)

var scanCmd = &cobra.Command{
	Use:   "scan [path]",
	Short: "Scan an npm project's lockfile for vulnerable dependencies",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return configConflict(err.Error())
		}

		opts, err := resolveScanOptions(cmd, cfg, args[0])
		if err != nil {
			return err
		}

		bus := eventbus.New()
		printer := terminal.NewPrinter(os.Stdout, noColor, verbose)
		printer.Attach(bus)

		orch := orchestrator.New(bus, opts, Version)
		report, err := orch.Run(context.Background())
		if err != nil {
			return err
		}

		thresholdHit, unknownHit := orchestrator.Verdict(report, opts)
		printer.Summary(report, thresholdHit, unknownHit)
		printer.ListFindings(report, opts.ListFindings)

		if opts.FindingsJSON != "" {
			if err := writeFindingsJSON(opts.FindingsJSON, report, opts.ListFindings); err != nil {
				return err
			}
		}

		if thresholdHit {
			return &thresholdError{msg: fmt.Sprintf("findings at or above --fail-on %s", opts.FailOn)}
		}
		if unknownHit && opts.FailOnUnknown {
			return &thresholdError{msg: "unresolved findings with --fail-on-unknown"}
		}
		return nil
	},
}

// resolveScanOptions layers the three configuration sources: config-file
// defaults, then the privacy preset bundle, then any flag the user passed
// explicitly.
func resolveScanOptions(cmd *cobra.Command, cfg *config.BardConfig, target string) (models.ScanOptions, error) {
	flags := cmd.Flags()

	privacy := cfg.Privacy
	if flags.Changed("privacy") {
		privacy = scanPrivacy
	}
	preset := models.PrivacyPreset(privacy)
	if preset != models.PrivacyStrict && preset != models.PrivacyStandard {
		return models.ScanOptions{}, configConflict(fmt.Sprintf("unknown privacy preset %q", privacy))
	}
	defaults := models.ResolvePrivacyDefaults(preset)

	opts := models.ScanOptions{
		TargetPath:    target,
		OutDir:        cfg.OutDir,
		Format:        cfg.Format,
		FailOn:        models.Severity(cfg.FailOn),
		Offline:       defaults.Offline,
		UnknownAs:     models.SeverityUnknown,
		RefreshCache:  cfg.Advisory.RefreshCache,
		ListFindings:  models.ListNone,
		Privacy:       preset,
		FallbackCalls: defaults.FallbackCalls,
		RedactPaths:   defaults.RedactPaths,
		Evidence:      defaults.Evidence,
		FailOnUnknown: cfg.Advisory.FailOnUnknown,
		OSVURL:        cfg.OSVURL,
	}

	if flags.Changed("format") {
		opts.Format = scanFormat
	}
	if flags.Changed("out-dir") {
		opts.OutDir = scanOutDir
	}
	if flags.Changed("fail-on") {
		opts.FailOn = models.Severity(scanFailOn)
	}
	if flags.Changed("offline") {
		if !scanOffline && preset == models.PrivacyStrict {
			return models.ScanOptions{}, configConflict("online scanning is not permitted under --privacy strict")
		}
		opts.Offline = scanOffline
	}
	if flags.Changed("unknown-as") {
		opts.UnknownAs = models.Severity(scanUnknownAs)
	}
	if flags.Changed("refresh-cache") {
		opts.RefreshCache = scanRefreshCache
	}
	if flags.Changed("list-findings") {
		opts.ListFindings = models.ListFindingsFilter(scanListFindings)
	}
	if flags.Changed("findings-json") {
		opts.FindingsJSON = scanFindingsJSON
	}
	if flags.Changed("fallback-calls") {
		opts.FallbackCalls = scanFallbackCalls
	}
	if flags.Changed("redact-paths") {
		opts.RedactPaths = scanRedactPaths
	}
	if flags.Changed("evidence") {
		opts.Evidence = models.EvidenceMode(scanEvidence)
	}
	if flags.Changed("fail-on-unknown") {
		opts.FailOnUnknown = scanFailOnUnknown
	}
	if flags.Changed("osv-url") {
		opts.OSVURL = scanOSVURL
	}

	return opts, validateScanOptions(opts)
}

func validateScanOptions(opts models.ScanOptions) error {
	switch opts.Format {
	case "json", "md", "sarif", "both":
	default:
		return configConflict(fmt.Sprintf("unknown format %q", opts.Format))
	}

	if opts.FailOn != "none" && !opts.FailOn.Valid() {
		return configConflict(fmt.Sprintf("unknown fail-on severity %q", opts.FailOn))
	}
	if opts.FailOn == models.SeverityUnknown {
		return configConflict("fail-on accepts critical, high, medium, low, or none")
	}
	if !opts.UnknownAs.Valid() {
		return configConflict(fmt.Sprintf("unknown unknown-as severity %q", opts.UnknownAs))
	}

	switch opts.Evidence {
	case models.EvidenceNone, models.EvidenceImports:
	default:
		return configConflict(fmt.Sprintf("unknown evidence mode %q", opts.Evidence))
	}

	switch opts.ListFindings {
	case models.ListNone, models.ListCriticalHigh, models.ListMediumUp, models.ListAll:
	default:
		return configConflict(fmt.Sprintf("unknown list-findings filter %q", opts.ListFindings))
	}

	return nil
}

// writeFindingsJSON writes the console-filtered findings list to path.
// With --list-findings none the full findings list is written.
func writeFindingsJSON(path string, report *models.ScanReport, filter models.ListFindingsFilter) error {
	findings := report.Findings
	if filter != models.ListNone {
		findings = terminal.FilterFindings(report.Findings, filter)
	}
	if findings == nil {
		findings = []models.Finding{}
	}

	data, err := json.MarshalIndent(findings, "", "  ")
	if err != nil {
		return models.WrapScanError(models.ReportWriteFailed, "marshalling findings", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return models.WrapScanError(models.ReportWriteFailed, path, err)
	}
	return nil
}

func init() {
	scanCmd.Flags().StringVar(&scanFormat, "format", "both", "report format: json, md, sarif, or both (json + md)")
	scanCmd.Flags().StringVar(&scanOutDir, "out-dir", "./.bardcheck", "report and cache directory")
	scanCmd.Flags().StringVar(&scanFailOn, "fail-on", "high", "exit 1 at or above this severity (critical, high, medium, low, none)")
	scanCmd.Flags().BoolVar(&scanOffline, "offline", false, "cache-only advisory lookup; misses become unknown")
	scanCmd.Flags().StringVar(&scanUnknownAs, "unknown-as", "unknown", "re-classify unresolved findings as this severity")
	scanCmd.Flags().BoolVar(&scanRefreshCache, "refresh-cache", false, "ignore cache reads (writes still occur)")
	scanCmd.Flags().StringVar(&scanListFindings, "list-findings", "none", "console listing filter: none, critical-high, medium-up, all")
	scanCmd.Flags().StringVar(&scanFindingsJSON, "findings-json", "", "write the filtered findings list as JSON to this path")
	scanCmd.Flags().StringVar(&scanPrivacy, "privacy", "strict", "privacy preset: strict or standard")
	scanCmd.Flags().BoolVar(&scanFallbackCalls, "fallback-calls", false, "enable the NVD/GHSA severity fallback chain")
	scanCmd.Flags().BoolVar(&scanRedactPaths, "redact-paths", false, "strip target and evidence paths from reports")
	scanCmd.Flags().StringVar(&scanEvidence, "evidence", "none", "evidence collection mode: none or imports")
	scanCmd.Flags().BoolVar(&scanFailOnUnknown, "fail-on-unknown", false, "also exit 1 if any finding is unresolved")
	scanCmd.Flags().StringVar(&scanOSVURL, "osv-url", "https://api.osv.dev", "advisory mirror base URL")
	rootCmd.AddCommand(scanCmd)
}
