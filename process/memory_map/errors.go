package memory_map

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by ReadMemoryMap matches exactly one of these
// with errors.Is.
var (
	// ErrAccessDenied is returned when the caller lacks the privilege to inspect the target.
	ErrAccessDenied = errors.New("access denied")

	// ErrNotFound is returned when the target process does not exist.
	ErrNotFound = errors.New("process not found")

	// ErrIO is returned when a read or query fails for any other reason.
	ErrIO = errors.New("i/o failure")

	// ErrMalformedData is returned when the operating system hands back data that does
	// not match the expected format. The whole snapshot is discarded.
	ErrMalformedData = errors.New("malformed data")

	// ErrUnsupported is returned on platforms, or builds, without a backend.
	ErrUnsupported = errors.New("unsupported platform")
)

// MapsError describes a failed enumeration.
type MapsError struct {
	Op   string // operation that failed, e.g. "open", "task_for_pid"
	Pid  Pid
	Kind error // one of the Err* kinds above
	Err  error // underlying cause, may be nil
}

func (e *MapsError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("memory_map: %s pid %d: %v", e.Op, e.Pid, e.Kind)
	}
	return fmt.Sprintf("memory_map: %s pid %d: %v: %v", e.Op, e.Pid, e.Kind, e.Err)
}

func (e *MapsError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newMapsError(op string, pid Pid, kind, err error) error {
	return &MapsError{Op: op, Pid: pid, Kind: kind, Err: err}
}

// ParseError reports a line of a procfs listing that does not match the grammar.
type ParseError struct {
	Line int // 1-based line number, 0 when parsing a single line
	Text string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Line == 0 {
		return fmt.Sprintf("parse %q: %v", e.Text, e.Err)
	}
	return fmt.Sprintf("line %d: parse %q: %v", e.Line, e.Text, e.Err)
}

func (e *ParseError) Unwrap() []error {
	return []error{ErrMalformedData, e.Err}
}

// Kind returns the error kind of err (ErrAccessDenied, ErrNotFound, ...) or nil
// when err does not carry one.
func Kind(err error) error {
	for _, kind := range []error{ErrAccessDenied, ErrNotFound, ErrMalformedData, ErrUnsupported, ErrIO} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
