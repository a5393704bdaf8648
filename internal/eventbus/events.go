package eventbus

import (
	"time"

	"github.com/bardcheck/bardscan/internal/models"
)

// EventType identifies the kind of event.
type EventType int

const (
	EventScanStarted EventType = iota
	EventScanCompleted
	EventScanFailed

	EventStageStarted
	EventStageCompleted

	EventDependenciesResolved
	EventEvidenceCollected
	EventFindingDiscovered

	EventLogMessage
)

func (t EventType) String() string {
	switch t {
	case EventScanStarted:
		return "scan.started"
	case EventScanCompleted:
		return "scan.completed"
	case EventScanFailed:
		return "scan.failed"
	case EventStageStarted:
		return "stage.started"
	case EventStageCompleted:
		return "stage.completed"
	case EventDependenciesResolved:
		return "dependencies.resolved"
	case EventEvidenceCollected:
		return "evidence.collected"
	case EventFindingDiscovered:
		return "finding.discovered"
	case EventLogMessage:
		return "log.message"
	default:
		return "unknown"
	}
}

// Stage names one of the scan pipeline's phases.
type Stage string

const (
	StageResolve   Stage = "resolve"
	StageEvidence  Stage = "evidence"
	StageAdvisory  Stage = "advisory"
	StageSynthesis Stage = "synthesis"
	StageReport    Stage = "report"
)

// Event is the universal event envelope.
type Event struct {
	Type      EventType
	Timestamp time.Time
	Data      interface{}
}

// NewEvent creates a timestamped event.
func NewEvent(t EventType, data interface{}) Event {
	return Event{Type: t, Timestamp: time.Now(), Data: data}
}

// --- Payload structs ---

type ScanStartedData struct {
	TargetPath string
	Offline    bool
}

type ScanCompletedData struct {
	Report *models.ScanReport
}

type ScanFailedData struct {
	Error error
}

type StageStartedData struct {
	Stage Stage
}

type StageCompletedData struct {
	Stage Stage
}

type DependenciesResolvedData struct {
	Count  int
	Direct int
}

type EvidenceCollectedData struct {
	ScannedFiles int
	Packages     int
}

type FindingDiscoveredData struct {
	Finding models.Finding
}

type LogMessageData struct {
	Level   string
	Message string
}
