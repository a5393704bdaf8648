// Package orchestrator composes the scan pipeline: lockfile resolution and
// evidence collection in parallel, one batched advisory lookup, finding
// synthesis with the unknown-as policy, a content-based stable sort, and
// report generation.
package orchestrator

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bardcheck/bardscan/internal/cache"
	"github.com/bardcheck/bardscan/internal/eventbus"
	"github.com/bardcheck/bardscan/internal/evidence"
	"github.com/bardcheck/bardscan/internal/lockfile"
	"github.com/bardcheck/bardscan/internal/models"
	"github.com/bardcheck/bardscan/internal/osv"
	"github.com/bardcheck/bardscan/internal/reporter"
)

// Orchestrator coordinates the full scan pipeline.
type Orchestrator struct {
	bus     *eventbus.EventBus
	opts    models.ScanOptions
	version string

	// HTTP injected so tests can supply a deterministic routing stub; Now
	// injected so generatedAt is reproducible under test.
	HTTP *http.Client
	Now  func() time.Time
}

// New creates an Orchestrator for one scan invocation.
func New(bus *eventbus.EventBus, opts models.ScanOptions, version string) *Orchestrator {
	return &Orchestrator{
		bus:     bus,
		opts:    opts,
		version: version,
		Now:     time.Now,
	}
}

// Run executes the scan and returns the finished report. Advisory
// availability problems never surface as errors; only configuration and
// local I/O failures do.
func (o *Orchestrator) Run(ctx context.Context) (*models.ScanReport, error) {
	o.bus.Publish(eventbus.NewEvent(eventbus.EventScanStarted, eventbus.ScanStartedData{
		TargetPath: o.opts.TargetPath,
		Offline:    o.opts.Offline,
	}))

	if err := os.MkdirAll(o.opts.OutDir, 0o755); err != nil {
		return nil, o.fail(models.WrapScanError(models.OutDirUnwritable, o.opts.OutDir, err))
	}

	// --- Stage 1: lockfile + evidence, in parallel ---
	var (
		lock *models.ParsedLock
		ev   models.EvidenceIndex
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		o.stageStart(eventbus.StageResolve)
		var err error
		lock, err = lockfile.Resolve(o.opts.TargetPath)
		if err != nil {
			return err
		}
		direct := 0
		for _, d := range lock.Nodes() {
			if d.Direct {
				direct++
			}
		}
		o.bus.Publish(eventbus.NewEvent(eventbus.EventDependenciesResolved, eventbus.DependenciesResolvedData{
			Count:  lock.Len(),
			Direct: direct,
		}))
		o.stageComplete(eventbus.StageResolve)
		return nil
	})
	g.Go(func() error {
		o.stageStart(eventbus.StageEvidence)
		if o.opts.Evidence == models.EvidenceNone {
			ev = models.EmptyEvidenceIndex()
		} else {
			var err error
			ev, err = evidence.Build(gctx, o.opts.TargetPath)
			if err != nil {
				// Evidence failures are recoverable: scan without it.
				o.log("warn", fmt.Sprintf("evidence collection failed: %v", err))
				ev = models.EmptyEvidenceIndex()
			}
		}
		o.bus.Publish(eventbus.NewEvent(eventbus.EventEvidenceCollected, eventbus.EvidenceCollectedData{
			ScannedFiles: ev.ScannedFiles,
			Packages:     len(ev.ByPackage),
		}))
		o.stageComplete(eventbus.StageEvidence)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, o.fail(err)
	}

	// --- Stage 2: advisory lookup ---
	o.stageStart(eventbus.StageAdvisory)

	store := cache.New(o.opts.OutDir, o.opts.RefreshCache)
	client := osv.NewClient(o.HTTP, store, o.opts.OSVURL, o.opts.Offline, o.opts.FallbackCalls)
	lookups, err := client.BatchQuery(ctx, lock.Nodes())
	if err != nil {
		return nil, o.fail(err)
	}

	o.stageComplete(eventbus.StageAdvisory)

	// --- Stage 3: finding synthesis ---
	o.stageStart(eventbus.StageSynthesis)

	var findings []models.Finding
	for _, dep := range lock.Nodes() {
		result := lookups[dep.Key()]
		paths := ev.Paths(dep.Name)
		if paths == nil {
			paths = []string{}
		}

		finding, ok := synthesize(dep, result, paths)
		if !ok {
			continue
		}
		o.bus.Publish(eventbus.NewEvent(eventbus.EventFindingDiscovered, eventbus.FindingDiscoveredData{
			Finding: finding,
		}))
		findings = append(findings, finding)
	}

	findings = applyUnknownAs(findings, o.opts.UnknownAs)
	findings = models.SortFindings(findings)
	if findings == nil {
		findings = []models.Finding{}
	}

	report := &models.ScanReport{
		TargetPath:  o.opts.TargetPath,
		GeneratedAt: o.Now().UTC().Format(time.RFC3339),
		FailOn:      o.opts.FailOn,
		Summary:     models.BuildSummary(lock.Len(), ev.ScannedFiles, findings),
		Findings:    findings,
	}
	if o.opts.RedactPaths {
		redact(report)
	}

	o.stageComplete(eventbus.StageSynthesis)

	// --- Stage 4: report generation ---
	o.stageStart(eventbus.StageReport)

	for _, rep := range o.buildReporters() {
		if err := rep.Generate(ctx, report); err != nil {
			return nil, o.fail(err)
		}
		o.log("info", fmt.Sprintf("report written to %s/report.%s", o.opts.OutDir, rep.Format()))
	}

	o.stageComplete(eventbus.StageReport)

	o.bus.Publish(eventbus.NewEvent(eventbus.EventScanCompleted, eventbus.ScanCompletedData{
		Report: report,
	}))
	return report, nil
}

// synthesize builds one dependency's finding. A dependency with zero
// matched vulnerabilities produces no finding unless its lookup state is
// unknown, in which case a single unknown finding stands in for it.
func synthesize(dep models.DependencyNode, result osv.LookupResult, paths []string) (models.Finding, bool) {
	if result.Source == models.SourceUnknown || result.Source == "" {
		reason := models.ReasonLookupFailed
		return models.Finding{
			PackageName:     dep.Name,
			Version:         dep.Version,
			Direct:          dep.Direct,
			Severity:        models.SeverityUnknown,
			SeveritySource:  models.SourceUnknownSev,
			UnknownReason:   &reason,
			Confidence:      models.ConfidenceUnknown,
			Evidence:        paths,
			Vulnerabilities: []models.Vulnerability{},
			Source:          models.SourceUnknown,
		}, true
	}

	if len(result.Vulnerabilities) == 0 {
		return models.Finding{}, false
	}

	top := result.Vulnerabilities[0]
	for _, v := range result.Vulnerabilities[1:] {
		if v.Severity.Rank() > top.Severity.Rank() {
			top = v
		}
	}

	return models.Finding{
		PackageName:     dep.Name,
		Version:         dep.Version,
		Direct:          dep.Direct,
		Severity:        top.Severity,
		SeveritySource:  top.SeveritySource,
		UnknownReason:   top.UnknownReason,
		Confidence:      models.DeriveConfidence(dep.Direct, len(paths) > 0),
		Evidence:        paths,
		Vulnerabilities: result.Vulnerabilities,
		Source:          result.Source,
	}, true
}

// applyUnknownAs re-classifies unresolved findings under the configured
// policy severity, stamping policy_override and keeping unknownReason so
// the original lookup state stays auditable.
func applyUnknownAs(findings []models.Finding, policy models.Severity) []models.Finding {
	if policy == "" || policy == models.SeverityUnknown {
		return findings
	}
	for i, f := range findings {
		if f.Severity != models.SeverityUnknown {
			continue
		}
		findings[i].Severity = policy
		findings[i].SeveritySource = models.SourcePolicyOverride
	}
	return findings
}

const redactedPlaceholder = "<redacted>"

// redact strips target and evidence paths from the report, leaving the
// placeholder where the target path was.
func redact(report *models.ScanReport) {
	report.TargetPath = redactedPlaceholder
	for i := range report.Findings {
		report.Findings[i].Evidence = []string{}
	}
}

// Verdict reports whether the finished scan trips the fail-on threshold
// and whether any finding remains unresolved at the lookup layer.
func Verdict(report *models.ScanReport, opts models.ScanOptions) (thresholdHit, unknownHit bool) {
	for _, f := range report.Findings {
		if f.UnknownReason != nil {
			unknownHit = true
		}
		if opts.FailOn != "" && opts.FailOn.Valid() && f.Severity != models.SeverityUnknown &&
			f.Severity.Rank() >= opts.FailOn.Rank() {
			thresholdHit = true
		}
	}
	return thresholdHit, unknownHit
}

func (o *Orchestrator) buildReporters() []reporter.Reporter {
	outDir := o.opts.OutDir
	switch o.opts.Format {
	case "json":
		return []reporter.Reporter{reporter.NewJSONReporter(outDir)}
	case "md":
		return []reporter.Reporter{reporter.NewMarkdownReporter(outDir)}
	case "sarif":
		return []reporter.Reporter{reporter.NewSARIFReporter(outDir, o.version)}
	default: // both
		return []reporter.Reporter{
			reporter.NewJSONReporter(outDir),
			reporter.NewMarkdownReporter(outDir),
		}
	}
}

func (o *Orchestrator) stageStart(stage eventbus.Stage) {
	o.bus.Publish(eventbus.NewEvent(eventbus.EventStageStarted, eventbus.StageStartedData{Stage: stage}))
}

func (o *Orchestrator) stageComplete(stage eventbus.Stage) {
	o.bus.Publish(eventbus.NewEvent(eventbus.EventStageCompleted, eventbus.StageCompletedData{Stage: stage}))
}

func (o *Orchestrator) log(level, message string) {
	o.bus.Publish(eventbus.NewEvent(eventbus.EventLogMessage, eventbus.LogMessageData{
		Level: level, Message: message,
	}))
}

func (o *Orchestrator) fail(err error) error {
	o.bus.Publish(eventbus.NewEvent(eventbus.EventScanFailed, eventbus.ScanFailedData{Error: err}))
	return err
}
