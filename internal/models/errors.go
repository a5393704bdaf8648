package models

import "fmt"

// ErrorKind classifies the handful of failures that abort a scan outright.
// Every other failure mode is swallowed into a Finding's source/unknownReason
// instead of propagating here.
type ErrorKind string

const (
	NoLockfile        ErrorKind = "NoLockfile"
	LockfileCorrupt   ErrorKind = "LockfileCorrupt"
	OutDirUnwritable  ErrorKind = "OutDirUnwritable"
	ReportWriteFailed ErrorKind = "ReportWriteFailed"
	ConfigConflict    ErrorKind = "ConfigConflict"
)

// ScanError wraps an ErrorKind with a human-readable detail, matching the
// single-line stderr message required for exit code 2 cases.
type ScanError struct {
	Kind   ErrorKind
	Detail string
	Err    error
}

func (e *ScanError) Error() string {
	if e.Detail == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *ScanError) Unwrap() error {
	return e.Err
}

func NewScanError(kind ErrorKind, detail string) *ScanError {
	return &ScanError{Kind: kind, Detail: detail}
}

func WrapScanError(kind ErrorKind, detail string, err error) *ScanError {
	return &ScanError{Kind: kind, Detail: detail, Err: err}
}
