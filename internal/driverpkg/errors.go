package driverpkg

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means the requested package or device does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAccessDenied means the caller lacked rights to read or change something.
	ErrAccessDenied = errors.New("access denied")
	// ErrBackendUnavailable means a backend cannot run on this host.
	ErrBackendUnavailable = errors.New("backend unavailable")
	// ErrParseAmbiguous means tool output matched neither a success nor a failure pattern.
	ErrParseAmbiguous = errors.New("tool output not recognized")
)

// NativeCallError wraps a failing OS call and its error code.
type NativeCallError struct {
	Op   string
	Code uint32
}

func (e *NativeCallError) Error() string {
	return fmt.Sprintf("%s failed: 0x%08X", e.Op, e.Code)
}

// Is maps well-known codes onto the sentinel errors.
func (e *NativeCallError) Is(target error) bool {
	switch target {
	case ErrAccessDenied:
		return e.Code == 5 || e.Code == 0x80070005
	case ErrNotFound:
		return e.Code == 2 || e.Code == 0x80070002 || e.Code == 0xE000020B
	}
	return false
}

// ExternalProcessError reports a failed external tool run.
type ExternalProcessError struct {
	Tool     string
	ExitCode int
	Err      error
}

func (e *ExternalProcessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s failed (exit %d): %v", e.Tool, e.ExitCode, e.Err)
	}
	return fmt.Sprintf("%s failed (exit %d)", e.Tool, e.ExitCode)
}

func (e *ExternalProcessError) Unwrap() error { return e.Err }
