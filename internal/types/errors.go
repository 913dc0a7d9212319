package types

import (
	"fmt"

	"github.com/simonhull/mediaprobe/internal/binary"
)

// OutOfBoundsError is returned when a header read runs past the available bytes.
type OutOfBoundsError = binary.OutOfBoundsError

// UnsupportedFormatError is returned when a backend cannot handle an input.
type UnsupportedFormatError struct {
	Path   string
	Reason string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("%s: unsupported format: %s", e.Path, e.Reason)
}

// CorruptedFileError is returned when a header is structurally invalid or truncated.
type CorruptedFileError struct {
	Path   string
	Reason string
	Offset int64
	Err    error
}

func (e *CorruptedFileError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: corrupted file at offset %d: %s: %v", e.Path, e.Offset, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: corrupted file at offset %d: %s", e.Path, e.Offset, e.Reason)
}

func (e *CorruptedFileError) Unwrap() error {
	return e.Err
}

// Warning represents a non-fatal issue encountered during parsing.
//
// Warnings are collected on the Descriptor and never fail a parse. Examples:
//   - a backend that timed out or is not installed
//   - an unknown codec reported by a subprocess
//   - an unparsable chapter timestamp
type Warning struct {
	// Stage where the warning occurred, e.g. "mediainfo", "ffmpeg", "thumbnail".
	Stage string `json:"stage"`

	Message string `json:"message"`

	// File offset where the issue occurred (0 if not applicable)
	Offset int64 `json:"offset,omitempty"`
}

// String returns a human-readable warning message.
func (w Warning) String() string {
	if w.Offset > 0 {
		return fmt.Sprintf("%s (at offset %d): %s", w.Stage, w.Offset, w.Message)
	}
	return fmt.Sprintf("%s: %s", w.Stage, w.Message)
}
