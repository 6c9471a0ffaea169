package binaries

import (
	"errors"
	"fmt"
)

// Kind classifies why an acquisition failed.
type Kind string

// Failure kinds. Each maps to one Err sentinel.
const (
	KindDirectory  Kind = "directory"
	KindNetwork    Kind = "network"
	KindArchive    Kind = "archive"
	KindToolAbsent Kind = "tool_absent"
	KindPermission Kind = "permission"
	KindFilesystem Kind = "filesystem"
)

// Sentinels matched by errors.Is against an *AcquisitionError.
var (
	ErrDirectoryResolution = errors.New("binaries: cannot resolve install directory")
	ErrNetwork             = errors.New("binaries: download failed")
	ErrArchive             = errors.New("binaries: invalid archive")
	ErrToolAbsent          = errors.New("binaries: tool not found in archive")
	ErrPermissionGrant     = errors.New("binaries: cannot grant execute permission")
	ErrFilesystem          = errors.New("binaries: cannot write tool")
)

var kindSentinels = map[Kind]error{
	KindDirectory:  ErrDirectoryResolution,
	KindNetwork:    ErrNetwork,
	KindArchive:    ErrArchive,
	KindToolAbsent: ErrToolAbsent,
	KindPermission: ErrPermissionGrant,
	KindFilesystem: ErrFilesystem,
}

// AcquisitionError reports a failed attempt to materialize a tool on disk.
type AcquisitionError struct {
	Tool Tool
	Kind Kind
	Op   string
	Err  error
}

// Error formats the tool, the failed step and the cause.
func (e *AcquisitionError) Error() string {
	if e == nil {
		return ""
	}
	msg := fmt.Sprintf("%s %s", e.Tool, e.Kind)
	if e.Op != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Op)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *AcquisitionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches the sentinel for the error's kind, so callers can write
// errors.Is(err, binaries.ErrNetwork).
func (e *AcquisitionError) Is(target error) bool {
	if e == nil {
		return false
	}
	sentinel, ok := kindSentinels[e.Kind]
	return ok && sentinel == target
}

func acquisitionErr(tool Tool, kind Kind, op string, err error) *AcquisitionError {
	return &AcquisitionError{Tool: tool, Kind: kind, Op: op, Err: err}
}
