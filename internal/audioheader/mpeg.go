package audioheader

import (
	"fmt"

	"github.com/simonhull/mediaprobe/internal/binary"
	"github.com/simonhull/mediaprobe/internal/types"
)

const (
	mpeg25 = 0
	mpeg2  = 2
	mpeg1  = 3

	layer3 = 1
	layer2 = 2
	layer1 = 3

	// frameSearchWindow bounds the scan for the first frame after the ID3v2 tag.
	frameSearchWindow = 64 << 10
)

// Bitrates in kbps by [table][index].
var mpegBitrates = [5][16]int{
	{0, 32, 64, 96, 128, 160, 192, 224, 256, 288, 320, 352, 384, 416, 448, 0}, // MPEG1 layer I
	{0, 32, 48, 56, 64, 80, 96, 112, 128, 160, 192, 224, 256, 320, 384, 0},    // MPEG1 layer II
	{0, 32, 40, 48, 56, 64, 80, 96, 112, 128, 160, 192, 224, 256, 320, 0},     // MPEG1 layer III
	{0, 32, 48, 56, 64, 80, 96, 112, 128, 144, 160, 176, 192, 224, 256, 0},    // MPEG2/2.5 layer I
	{0, 8, 16, 24, 32, 40, 48, 56, 64, 80, 96, 112, 128, 144, 160, 0},         // MPEG2/2.5 layer II and III
}

var mpegSampleRates = map[uint32][3]int{
	mpeg1:  {44100, 48000, 32000},
	mpeg2:  {22050, 24000, 16000},
	mpeg25: {11025, 12000, 8000},
}

// frameHeader is a decoded MPEG audio frame header.
type frameHeader struct {
	version    uint32
	layer      uint32
	bitrate    int // bps
	sampleRate int
	channels   int
}

func decodeFrameHeader(h uint32) (frameHeader, bool) {
	if h&0xFFE00000 != 0xFFE00000 {
		return frameHeader{}, false
	}
	fh := frameHeader{
		version: (h >> 19) & 0x3,
		layer:   (h >> 17) & 0x3,
	}
	if fh.version == 1 || fh.layer == 0 {
		return frameHeader{}, false
	}

	bitrateIdx := (h >> 12) & 0xF
	rateIdx := (h >> 10) & 0x3
	if bitrateIdx == 0 || bitrateIdx == 15 || rateIdx == 3 {
		return frameHeader{}, false
	}

	var table int
	switch {
	case fh.version == mpeg1:
		table = int(3 - fh.layer) // layer I=3 -> 0, II=2 -> 1, III=1 -> 2
	case fh.layer == layer1:
		table = 3
	default:
		table = 4
	}
	fh.bitrate = mpegBitrates[table][bitrateIdx] * 1000
	fh.sampleRate = mpegSampleRates[fh.version][rateIdx]

	if (h>>6)&0x3 == 3 {
		fh.channels = 1
	} else {
		fh.channels = 2
	}
	return fh, true
}

func (fh frameHeader) samplesPerFrame() int {
	switch {
	case fh.layer == layer1:
		return 384
	case fh.layer == layer3 && fh.version != mpeg1:
		return 576
	default:
		return 1152
	}
}

// xingOffset is the distance from the frame start to a Xing/Info header.
func (fh frameHeader) xingOffset() int64 {
	switch {
	case fh.version == mpeg1 && fh.channels == 1:
		return 4 + 17
	case fh.version == mpeg1:
		return 4 + 32
	case fh.channels == 1:
		return 4 + 9
	default:
		return 4 + 17
	}
}

func (fh frameHeader) codec() types.FormatID {
	switch fh.layer {
	case layer3:
		return types.FormatMP3
	case layer2:
		return types.FormatMP2
	default:
		return types.FormatMPA
	}
}

// id3v2Size returns the size of a leading ID3v2 tag, 0 when there is none.
func id3v2Size(sr *binary.SafeReader) int64 {
	hdr := make([]byte, 10)
	if err := sr.ReadAt(hdr, 0, "ID3v2 header"); err != nil || string(hdr[:3]) != "ID3" {
		return 0
	}
	// syncsafe: 7 bits per byte
	size := int64(hdr[6]&0x7F)<<21 | int64(hdr[7]&0x7F)<<14 | int64(hdr[8]&0x7F)<<7 | int64(hdr[9]&0x7F)
	size += 10
	if hdr[5]&0x10 != 0 {
		size += 10 // footer
	}
	return size
}

// hasID3v1 reports whether the last 128 bytes hold an ID3v1 tag.
func hasID3v1(sr *binary.SafeReader) bool {
	if sr.Size() < 128 {
		return false
	}
	marker := make([]byte, 3)
	return sr.ReadAt(marker, sr.Size()-128, "ID3v1 marker") == nil && string(marker) == "TAG"
}

// readMPEG finds the first frame after any ID3v2 tag and derives the
// duration from a Xing/Info or VBRI header, or from the bitrate.
func readMPEG(sr *binary.SafeReader, info *Info) error {
	start := id3v2Size(sr)
	n := min(sr.Size()-start, frameSearchWindow)
	if n < 4 {
		return &types.CorruptedFileError{Path: sr.Path(), Offset: start, Reason: "no MPEG audio frame"}
	}
	buf := make([]byte, n)
	if err := sr.ReadAt(buf, start, "MPEG frame search"); err != nil {
		return err
	}

	for i := 0; i+4 <= len(buf); i++ {
		if buf[i] != 0xFF {
			continue
		}
		fh, ok := decodeFrameHeader(binary.Decode[uint32](buf[i:], binary.BigEndian))
		if !ok {
			continue
		}
		frameOffset := start + int64(i)
		applyFrame(sr, frameOffset, start, fh, info)
		return nil
	}

	return &types.CorruptedFileError{
		Path:   sr.Path(),
		Offset: start,
		Reason: fmt.Sprintf("no MPEG audio frame in the first %d bytes", n),
	}
}

func applyFrame(sr *binary.SafeReader, frameOffset, tagSize int64, fh frameHeader, info *Info) {
	info.Codec = fh.codec()
	info.Container = fh.codec()
	info.SampleRate = fh.sampleRate
	info.Channels = fh.channels
	info.BitRate = fh.bitrate

	if frames, bytes, vbr, ok := vbrHeader(sr, frameOffset, fh); ok && frames > 0 {
		info.Duration = float64(frames) * float64(fh.samplesPerFrame()) / float64(fh.sampleRate)
		info.VBR = vbr
		if bytes > 0 && info.Duration > 0 {
			info.BitRate = int(float64(bytes) * 8 / info.Duration)
		}
		return
	}

	audioSize := sr.Size() - tagSize
	if hasID3v1(sr) {
		audioSize -= 128
	}
	if fh.bitrate > 0 && audioSize > 0 {
		info.Duration = float64(audioSize) * 8 / float64(fh.bitrate)
	}
}

// vbrHeader reads the frame and byte counts of a Xing/Info or VBRI header.
// vbr is false for an Info header, which LAME writes for CBR streams.
func vbrHeader(sr *binary.SafeReader, frameOffset int64, fh frameHeader) (frames, bytes uint32, vbr, ok bool) {
	cr := binary.NewChainReader(binary.NewReader(sr, frameOffset+fh.xingOffset()))
	marker := cr.String(4, "Xing marker")
	if cr.Error() == nil && (marker == "Xing" || marker == "Info") {
		flags := binary.ReadChained[uint32](cr, "Xing flags")
		if flags&0x1 != 0 {
			frames = binary.ReadChained[uint32](cr, "Xing frames")
		}
		if flags&0x2 != 0 {
			bytes = binary.ReadChained[uint32](cr, "Xing bytes")
		}
		return frames, bytes, marker == "Xing", cr.Error() == nil
	}

	cr = binary.NewChainReader(binary.NewReader(sr, frameOffset+4+32))
	if cr.String(4, "VBRI marker") != "VBRI" {
		return 0, 0, false, false
	}
	cr.Skip(6, "VBRI version, delay and quality")
	bytes = binary.ReadChained[uint32](cr, "VBRI bytes")
	frames = binary.ReadChained[uint32](cr, "VBRI frames")
	return frames, bytes, true, cr.Error() == nil
}
