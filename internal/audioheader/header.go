// Package audioheader reads the technical stream parameters of audio files:
// codec, sample rate, channels, bit depth, bitrate and duration.
//
// Only headers are read. Tags and artwork are left to the tag reader; this
// package answers what the tag reader cannot, namely what the stream is.
//
// Supported layouts:
//
//   - FLAC: STREAMINFO block
//   - MPEG audio: first frame header, Xing/Info and VBRI headers
//   - Ogg: Vorbis, Opus and FLAC identification packets, last granule position
//   - MP4/M4A: mvhd duration, first audio sample entry and its esds
//   - RIFF/WAVE: fmt and data chunks
//   - AIFF/AIFC: COMM chunk
//   - DSF and DSDIFF
package audioheader

import (
	"errors"
	"fmt"
	"io"

	"github.com/simonhull/mediaprobe/internal/binary"
	"github.com/simonhull/mediaprobe/internal/types"
)

// ErrUnsupported is returned for layouts this package does not read.
var ErrUnsupported = errors.New("unsupported audio layout")

// Info describes an audio stream.
type Info struct {
	Codec      types.FormatID
	Container  types.FormatID
	SampleRate int
	Channels   int
	BitDepth   int
	BitRate    int     // bits per second
	Duration   float64 // seconds
	VBR        bool
	Lossless   bool
}

type reader func(sr *binary.SafeReader, info *Info) error

var readers = map[types.FormatID]reader{
	types.FormatFLAC:  readFLAC,
	types.FormatMP3:   readMPEG,
	types.FormatMPA:   readMPEG,
	types.FormatOGG:   readOgg,
	types.FormatOpus:  readOgg,
	types.FormatM4A:   readMP4,
	types.FormatMP4:   readMP4,
	types.FormatWAV:   readWave,
	types.FormatADPCM: readWave,
	types.FormatAIFF:  readAIFF,
	types.FormatDSF:   readDSF,
	types.FormatDFF:   readDFF,
}

// Read detects the layout of r and reads its stream parameters.
func Read(r io.ReaderAt, size int64, path string) (*Info, error) {
	return ReadHint(r, size, path, types.DetectHint(path, r, size))
}

// ReadHint reads r assuming the layout named by hint.
func ReadHint(r io.ReaderAt, size int64, path string, hint types.FormatID) (*Info, error) {
	read, ok := readers[hint]
	if !ok {
		return nil, fmt.Errorf("%s: %w: %q", path, ErrUnsupported, hint)
	}

	sr := binary.NewSafeReader(r, size, path)
	info := &Info{}
	if err := read(sr, info); err != nil {
		return nil, err
	}

	// Estimate the bitrate for streams whose headers carry none.
	if info.BitRate == 0 && info.Duration > 0 {
		info.BitRate = int(float64(size) * 8 / info.Duration)
	}
	return info, nil
}
