package mediaprobe

import (
	"github.com/simonhull/mediaprobe/internal/types"
)

// Descriptor is the result of parsing one item. Descriptors returned by a
// Coordinator are shared between callers and must not be modified; use
// Clone for a private copy.
type Descriptor = types.Descriptor

// ParseState tracks where an item is in its parse.
type ParseState = types.ParseState

const (
	StateNotStarted = types.StateNotStarted
	StateInProgress = types.StateInProgress
	StateDone       = types.StateDone
)
