// Package terminal renders scan progress and the final severity/confidence
// summary on the console, with lipgloss styling gated on TTY detection.
package terminal

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/bardcheck/bardscan/internal/eventbus"
	"github.com/bardcheck/bardscan/internal/models"
)

// Printer writes colorized progress and summary lines to out.
type Printer struct {
	out     io.Writer
	color   bool
	verbose bool

	dim    lipgloss.Style
	accent lipgloss.Style
	sev    map[models.Severity]lipgloss.Style
}

// NewPrinter builds a Printer. Color is enabled only when requested and
// stdout is a terminal.
func NewPrinter(out io.Writer, noColor, verbose bool) *Printer {
	color := !noColor && term.IsTerminal(int(os.Stdout.Fd()))
	return &Printer{
		out:     out,
		color:   color,
		verbose: verbose,
		dim:     lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#757575", Dark: "#9E9E9E"}),
		accent:  lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#5E35B1", Dark: "#B388FF"}).Bold(true),
		sev: map[models.Severity]lipgloss.Style{
			models.SeverityCritical: lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5252")).Bold(true),
			models.SeverityHigh:     lipgloss.NewStyle().Foreground(lipgloss.Color("#FFB74D")).Bold(true),
			models.SeverityMedium:   lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD54F")),
			models.SeverityLow:      lipgloss.NewStyle().Foreground(lipgloss.Color("#81C784")),
			models.SeverityUnknown:  lipgloss.NewStyle().Foreground(lipgloss.Color("#64B5F6")),
		},
	}
}

func (p *Printer) render(style lipgloss.Style, s string) string {
	if !p.color {
		return s
	}
	return style.Render(s)
}

// Attach subscribes the printer to scan lifecycle events.
func (p *Printer) Attach(bus *eventbus.EventBus) {
	bus.Subscribe(eventbus.EventScanStarted, func(e eventbus.Event) {
		data := e.Data.(eventbus.ScanStartedData)
		mode := "online"
		if data.Offline {
			mode = "offline"
		}
		fmt.Fprintf(p.out, "  %s scanning %s (%s)\n", p.render(p.accent, "●"), data.TargetPath, mode)
	})

	bus.Subscribe(eventbus.EventDependenciesResolved, func(e eventbus.Event) {
		data := e.Data.(eventbus.DependenciesResolvedData)
		fmt.Fprintf(p.out, "  %s %d dependencies (%d direct)\n", p.render(p.dim, "✓"), data.Count, data.Direct)
	})

	bus.Subscribe(eventbus.EventEvidenceCollected, func(e eventbus.Event) {
		data := e.Data.(eventbus.EvidenceCollectedData)
		if data.ScannedFiles > 0 {
			fmt.Fprintf(p.out, "  %s %d source files indexed\n", p.render(p.dim, "✓"), data.ScannedFiles)
		}
	})

	if p.verbose {
		bus.Subscribe(eventbus.EventStageStarted, func(e eventbus.Event) {
			data := e.Data.(eventbus.StageStartedData)
			fmt.Fprintf(p.out, "  %s %s\n", p.render(p.accent, "●"), data.Stage)
		})
		bus.Subscribe(eventbus.EventLogMessage, func(e eventbus.Event) {
			data := e.Data.(eventbus.LogMessageData)
			fmt.Fprintf(p.out, "  %s %s\n", p.render(p.dim, "["+data.Level+"]"), data.Message)
		})
	}
}

// Summary prints the severity and confidence histograms plus the
// threshold/unknown verdict lines.
func (p *Printer) Summary(report *models.ScanReport, thresholdHit, unknownHit bool) {
	fmt.Fprintln(p.out)
	fmt.Fprintf(p.out, "  %s %d findings across %d dependencies\n",
		p.render(p.accent, "Done."), report.Summary.FindingsCount, report.Summary.DependencyCount)

	for _, sev := range models.AllSeverities() {
		if c := report.Summary.BySeverity[sev]; c > 0 {
			fmt.Fprintf(p.out, "    %s %d\n", p.render(p.sev[sev], fmt.Sprintf("%-10s", sev)), c)
		}
	}

	for _, conf := range []models.Confidence{
		models.ConfidenceHigh, models.ConfidenceMedium, models.ConfidenceLow, models.ConfidenceUnknown,
	} {
		if c := report.Summary.ByConfidence[conf]; c > 0 {
			fmt.Fprintf(p.out, "    %s %d\n", p.render(p.dim, fmt.Sprintf("conf:%-5s", conf)), c)
		}
	}

	fmt.Fprintf(p.out, "  threshold hit: %s\n", yesNo(thresholdHit))
	fmt.Fprintf(p.out, "  unknown hit: %s\n", yesNo(unknownHit))
}

// ListFindings prints the findings that pass the console listing filter.
func (p *Printer) ListFindings(report *models.ScanReport, filter models.ListFindingsFilter) {
	selected := FilterFindings(report.Findings, filter)
	if len(selected) == 0 {
		return
	}
	fmt.Fprintln(p.out)
	for _, f := range selected {
		fmt.Fprintf(p.out, "  %s %s@%s (%s, confidence %s)\n",
			p.render(p.sev[f.Severity], fmt.Sprintf("[%s]", f.Severity)),
			f.PackageName, f.Version, f.SeveritySource, f.Confidence)
	}
}

// FilterFindings applies the --list-findings severity filter over an
// already-sorted findings list.
func FilterFindings(findings []models.Finding, filter models.ListFindingsFilter) []models.Finding {
	var min int
	switch filter {
	case models.ListCriticalHigh:
		min = models.SeverityHigh.Rank()
	case models.ListMediumUp:
		min = models.SeverityMedium.Rank()
	case models.ListAll:
		min = models.SeverityUnknown.Rank()
	default:
		return nil
	}
	out := make([]models.Finding, 0, len(findings))
	for _, f := range findings {
		if f.Severity.Rank() >= min {
			out = append(out, f)
		}
	}
	return out
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
