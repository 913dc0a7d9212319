// Package realaudio reads the header of RealAudio 1.0 and 2.0 files
// (".ra\xFD" signature, header versions 3, 4 and 5).
package realaudio

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/charmap"

	"github.com/simonhull/mediaprobe/internal/binary"
	"github.com/simonhull/mediaprobe/internal/types"
)

// ParserName identifies descriptors produced by this package.
const ParserName = "RealAudio"

// ErrNotRealAudio is returned when the input does not carry the RealAudio signature.
var ErrNotRealAudio = errors.New("not a RealAudio file")

var magic = []byte{0x2E, 0x72, 0x61, 0xFD}

// codecs maps the lower-cased codec FourCC of version 4 and 5 headers.
var codecs = map[string]types.FormatID{
	"lpcj": types.FormatRA144,
	"28_8": types.FormatRA288,
	"dnet": types.FormatAC3,
	"sipr": types.FormatSipro,
	"cook": types.FormatCook,
	"atrc": types.FormatATRAC,
	"ralf": types.FormatRALF,
	"raac": types.FormatAACLC,
	"racp": types.FormatHEAAC,
}

// Result is what a RealAudio header declares.
type Result struct {
	Codec      types.FormatID
	Title      string
	Artist     string
	Version    int
	Channels   int
	SampleRate int
	BitDepth   int
	// BitRate in bits per second, derived from the bytes per minute field.
	BitRate    int
	HeaderSize int
	DataSize   int64
	// Duration in seconds; 0 when the bitrate is unknown.
	Duration   float64
}

// Parse reads the RealAudio header of r. size is the total size of the
// input and is used to bound the reported data size.
func Parse(r io.ReaderAt, size int64, path string) (*Result, error) {
	sr := binary.NewSafeReader(r, size, path)

	sig := make([]byte, 4)
	if err := sr.ReadAt(sig, 0, "RealAudio signature"); err != nil {
		return nil, ErrNotRealAudio
	}
	if string(sig) != string(magic) {
		return nil, ErrNotRealAudio
	}

	version, err := binary.Read[uint16](sr, 4, "header version")
	if err != nil {
		return nil, corrupted(path, 4, "truncated header", err)
	}

	res := &Result{Version: int(version)}
	switch version {
	case 3:
		err = parseV3(sr, res)
	case 4, 5:
		err = parseV4(sr, res)
	default:
		return nil, &types.UnsupportedFormatError{
			Path:   path,
			Reason: fmt.Sprintf("unknown RealAudio header version %d", version),
		}
	}
	if err != nil {
		return nil, err
	}

	res.Duration = duration(res, size)
	return res, nil
}

// parseV3 reads a RealAudio 1.0 header: fixed 14.4 codec, mono, 8 kHz.
func parseV3(sr *binary.SafeReader, res *Result) error {
	headerSize, err := binary.Read[uint16](sr, 6, "header size")
	if err != nil {
		return corrupted(sr.Path(), 6, "truncated header", err)
	}
	res.HeaderSize = int(headerSize)
	res.Codec = types.FormatRA144
	res.Channels = 1
	res.SampleRate = 8000

	cr := window(sr, 8, int64(headerSize))
	cr.Skip(8, "reserved")
	bpm := binary.ReadChained[uint16](cr, "bytes per minute")
	res.DataSize = int64(int32(binary.ReadChained[uint32](cr, "data size")))
	res.Title = latin1(cr.PascalString("title", false))
	res.Artist = latin1(cr.PascalString("artist", false))
	if err := cr.Error(); err != nil {
		return corrupted(sr.Path(), 8, "truncated version 3 header", err)
	}

	res.BitRate = int(bpm) * 8 / 60
	return nil
}

// parseV4 reads a RealAudio 2.0 header, versions 4 and 5.
func parseV4(sr *binary.SafeReader, res *Result) error {
	const secondaryOffset = 6

	cr := binary.NewChainReader(binary.NewReader(sr, secondaryOffset))
	signature := cr.String(4, "secondary signature")
	dataSize := binary.ReadChained[uint32](cr, "data size")
	cr.Skip(2, "repeated version")
	headerSize := binary.ReadChained[uint32](cr, "header size")
	if err := cr.Error(); err != nil {
		return corrupted(sr.Path(), secondaryOffset, "truncated secondary header", err)
	}
	if signature != ".ra4" {
		return corrupted(sr.Path(), secondaryOffset, fmt.Sprintf("invalid RealAudio 2.0 signature %q", signature), nil)
	}
	res.DataSize = int64(int32(dataSize))
	res.HeaderSize = int(headerSize)

	start := cr.Offset()
	hr := window(sr, start, int64(headerSize))
	hr.Skip(2, "codec flavor")
	hr.Skip(4, "coded frame size")
	hr.Skip(4, "unknown")
	bpm := binary.ReadChained[uint32](hr, "bytes per minute")
	hr.Skip(4, "unknown")
	hr.Skip(8, "sub packet layout")
	if res.Version == 5 {
		hr.Skip(6, "unknown")
	}
	res.SampleRate = int(binary.ReadChained[uint16](hr, "sample rate"))
	hr.Skip(2, "unknown")
	res.BitDepth = int(binary.ReadChained[uint16](hr, "bit depth"))
	res.Channels = int(binary.ReadChained[uint16](hr, "channels"))

	var fourCC string
	if res.Version == 4 {
		hr.PascalString("interleaver id", false)
		fourCC = hr.PascalString("codec fourcc", false)
	} else {
		hr.Skip(4, "deinterleaver id")
		fourCC = hr.String(4, "codec fourcc")
	}
	if err := hr.Error(); err != nil {
		return corrupted(sr.Path(), start, fmt.Sprintf("truncated version %d header", res.Version), err)
	}

	codec, ok := codecs[strings.ToLower(fourCC)]
	if !ok {
		return &types.UnsupportedFormatError{
			Path:   sr.Path(),
			Reason: fmt.Sprintf("unknown RealAudio codec FourCC %q", fourCC),
		}
	}
	res.Codec = codec

	skip := int64(3)
	if res.Version == 5 {
		skip = 4
	}
	if hr.Remaining() > skip {
		hr.Skip(skip, "unknown")
		res.Title = latin1(hr.PascalString("title", true))
		if hr.Remaining() > 0 {
			res.Artist = latin1(hr.PascalString("artist", true))
		}
	}

	res.BitRate = int(int64(bpm) * 8 / 60)
	return nil
}

// window returns a chained cursor over the length bytes starting at off.
func window(sr *binary.SafeReader, off, length int64) *binary.ChainReader {
	return binary.NewChainReader(binary.NewReader(sr.Window(off, length), 0))
}

// duration estimates the play time from the data size and the bitrate.
func duration(res *Result, size int64) float64 {
	if res.BitRate <= 0 {
		return 0
	}
	data := res.DataSize
	if size > 0 && res.HeaderSize > 0 {
		full := int64(res.HeaderSize) + 16
		if res.Version == 3 {
			full = int64(res.HeaderSize) + 8
		}
		available := max(size-full, 0)
		if data > 0 {
			data = min(data, available)
		} else {
			data = available
		}
	}
	if data <= 0 {
		return 0
	}
	return float64(data) / float64(res.BitRate) * 8
}

func latin1(s string) string {
	if s == "" {
		return ""
	}
	out, err := charmap.ISO8859_1.NewDecoder().String(s)
	if err != nil {
		return s
	}
	return strings.TrimSpace(out)
}

func corrupted(path string, offset int64, reason string, err error) error {
	return &types.CorruptedFileError{Path: path, Offset: offset, Reason: reason, Err: err}
}

// Apply records the header on d: container, the single audio track,
// bitrate, duration and the title/artist tags.
func (r *Result) Apply(d *types.Descriptor, size int64) {
	d.Container = types.FormatRA
	d.ParserName = ParserName
	if size > 0 {
		d.SizeBytes = uint64(size)
	}
	d.AddAudioTrack(types.AudioTrack{
		Codec:      r.Codec,
		Title:      r.Title,
		Channels:   r.Channels,
		SampleRate: r.SampleRate,
		BitDepth:   r.BitDepth,
		BitRate:    r.BitRate,
	})
	if r.BitRate > 0 {
		d.BitRateBps = uint32(r.BitRate)
	}
	if r.Duration > 0 {
		d.SetDuration(r.Duration)
	}
	if r.Title != "" || r.Artist != "" {
		d.AudioMetadata = &types.AudioMetadata{Title: r.Title, Artist: r.Artist}
	}
}
