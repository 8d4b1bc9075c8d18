package audit

import (
	"errors"
	"fmt"
)

// Sentinel errors for the pipeline error taxonomy. Typed errors below match
// them through errors.Is.
var (
	ErrAuditEngine   = errors.New("audit engine failed")
	ErrInvalidReport = errors.New("invalid audit report")
	ErrSinkWrite     = errors.New("sink write failed")
	ErrLocalIO       = errors.New("local io failed")
)

// EngineError reports a failed engine invocation or malformed engine output.
type EngineError struct {
	URL    string
	Device string
	Err    error
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("audit %s (%s): %v", e.URL, e.Device, e.Err)
}

func (e *EngineError) Unwrap() error { return e.Err }

// Is matches ErrAuditEngine.
func (e *EngineError) Is(target error) bool { return target == ErrAuditEngine }

// InvalidReportError reports a structurally incomplete report.
type InvalidReportError struct {
	Reason string
}

func (e *InvalidReportError) Error() string {
	return "invalid report: " + e.Reason
}

// Is matches ErrInvalidReport.
func (e *InvalidReportError) Is(target error) bool { return target == ErrInvalidReport }

// SinkError reports a failed tabular append or blob upload.
type SinkError struct {
	Sink string
	Err  error
}

func (e *SinkError) Error() string {
	return fmt.Sprintf("%s sink: %v", e.Sink, e.Err)
}

func (e *SinkError) Unwrap() error { return e.Err }

// Is matches ErrSinkWrite.
func (e *SinkError) Is(target error) bool { return target == ErrSinkWrite }

// LocalIOError reports a failed working-file create or delete.
type LocalIOError struct {
	Op   string
	Path string
	Err  error
}

func (e *LocalIOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *LocalIOError) Unwrap() error { return e.Err }

// Is matches ErrLocalIO.
func (e *LocalIOError) Is(target error) bool { return target == ErrLocalIO }
