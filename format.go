package mediaprobe

import (
	"fmt"
	"io"
	"os"

	"github.com/simonhull/mediaprobe/internal/types"
)

// FormatID is a canonical container, codec or image format identifier.
type FormatID = types.FormatID

// Format identifiers the Coordinator treats specially as hints.
const (
	FormatNone  = types.FormatNone
	FormatUnd   = types.FormatUnd
	FormatRA    = types.FormatRA
	FormatRAW   = types.FormatRAW
	FormatISO   = types.FormatISO
	FormatADPCM = types.FormatADPCM
	FormatDFF   = types.FormatDFF
	FormatDSF   = types.FormatDSF
	FormatPNM   = types.FormatPNM
)

// MediaType classifies what kind of media an item holds.
type MediaType = types.MediaType

const (
	MediaUnknown = types.MediaUnknown
	MediaAudio   = types.MediaAudio
	MediaVideo   = types.MediaVideo
	MediaImage   = types.MediaImage
)

var audioHints = map[FormatID]bool{
	types.FormatRA: true, types.FormatDSF: true, types.FormatDFF: true, types.FormatADPCM: true,
	types.FormatFLAC: true, types.FormatMP3: true, types.FormatOGA: true, types.FormatOpus: true,
	types.FormatM4A: true, types.FormatMKA: true, types.FormatWMA: true, types.FormatWAV: true,
	types.FormatAIFF: true, types.FormatAPE: true, types.FormatMPC: true, types.FormatWavPack: true,
	types.FormatTTA: true, types.FormatAC3: true, types.FormatDTS: true, types.FormatAU: true,
}

var imageHints = map[FormatID]bool{
	types.FormatRAW: true, types.FormatPNM: true, types.FormatJPG: true, types.FormatPNG: true,
	types.FormatGIF: true, types.FormatBMP: true, types.FormatTIFF: true, types.FormatWebP: true,
}

// DetectHint derives a format hint from the leading bytes of r and, failing
// that, from the extension of path. r may be nil.
func DetectHint(path string, r io.ReaderAt, size int64) FormatID {
	return types.DetectHint(path, r, size)
}

// DetectFile opens path and derives its format hint.
func DetectFile(path string) (FormatID, error) {
	f, err := os.Open(path)
	if err != nil {
		return FormatNone, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return FormatNone, fmt.Errorf("stat file: %w", err)
	}
	return types.DetectHint(path, f, stat.Size()), nil
}

// GuessMediaType returns the media type a hint usually stands for. Ogg and
// unknown hints are treated as video, which lets every backend have a go.
func GuessMediaType(hint FormatID) MediaType {
	switch {
	case audioHints[hint]:
		return MediaAudio
	case imageHints[hint]:
		return MediaImage
	default:
		return MediaVideo
	}
}
