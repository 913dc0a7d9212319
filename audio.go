package mediaprobe

import (
	"github.com/simonhull/mediaprobe/internal/types"
)

type (
	VideoTrack    = types.VideoTrack
	AudioTrack    = types.AudioTrack
	SubtitleTrack = types.SubtitleTrack
)

// LangUnd is the language of tracks whose language is not known.
const LangUnd = types.LangUnd
