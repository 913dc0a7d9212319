package mediaprobe

import (
	"github.com/simonhull/mediaprobe/internal/types"
)

// OutOfBoundsError is returned by header readers that run past the
// available bytes.
type OutOfBoundsError = types.OutOfBoundsError

// UnsupportedFormatError is returned by a backend that cannot handle an input.
type UnsupportedFormatError = types.UnsupportedFormatError

// CorruptedFileError is returned for structurally invalid or truncated headers.
type CorruptedFileError = types.CorruptedFileError

// Warning is a non-fatal issue recorded on a Descriptor.
type Warning = types.Warning
