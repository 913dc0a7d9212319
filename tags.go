package mediaprobe

import (
	"github.com/simonhull/mediaprobe/internal/types"
)

// AudioMetadata holds the tags of an audio file. Rating is on a 0-5 scale.
type AudioMetadata = types.AudioMetadata
