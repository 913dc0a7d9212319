package audioheader

import (
	"math"

	"github.com/simonhull/mediaprobe/internal/binary"
	"github.com/simonhull/mediaprobe/internal/types"
)

// waveCodecs maps RIFF/WAVE format tags.
var waveCodecs = map[uint16]types.FormatID{
	0x0001: types.FormatLPCM,
	0x0002: types.FormatADPCM,
	0x0003: types.FormatLPCM, // IEEE float
	0x0011: types.FormatADPCM,
	0x0055: types.FormatMP3,
	0x2000: types.FormatAC3,
	0x2001: types.FormatDTS,
	0xFFFE: types.FormatLPCM, // WAVE_FORMAT_EXTENSIBLE
}

// readWave reads the fmt chunk and the data chunk size of a RIFF/WAVE file.
func readWave(sr *binary.SafeReader, info *Info) error {
	hdr := make([]byte, 12)
	if err := sr.ReadAt(hdr, 0, "RIFF header"); err != nil {
		return err
	}
	if string(hdr[:4]) != "RIFF" || string(hdr[8:12]) != "WAVE" {
		return &types.CorruptedFileError{Path: sr.Path(), Reason: "invalid RIFF/WAVE header"}
	}
	info.Container = types.FormatWAV

	var byteRate uint32
	var dataSize int64
	haveFmt := false
	for offset := int64(12); offset+8 <= sr.Size(); {
		cr := binary.NewChainReader(binary.NewReader(sr, offset))
		id := cr.String(4, "chunk id")
		size := int64(binary.ReadEndianChained[uint32](cr, "chunk size", binary.LittleEndian))
		if err := cr.Error(); err != nil {
			return err
		}

		switch id {
		case "fmt ":
			fmtChunk := binary.NewChainReader(binary.NewReader(sr, offset+8))
			tag := binary.ReadEndianChained[uint16](fmtChunk, "format tag", binary.LittleEndian)
			channels := binary.ReadEndianChained[uint16](fmtChunk, "channels", binary.LittleEndian)
			rate := binary.ReadEndianChained[uint32](fmtChunk, "sample rate", binary.LittleEndian)
			byteRate = binary.ReadEndianChained[uint32](fmtChunk, "byte rate", binary.LittleEndian)
			fmtChunk.Skip(2, "block align")
			bits := binary.ReadEndianChained[uint16](fmtChunk, "bits per sample", binary.LittleEndian)
			if err := fmtChunk.Error(); err != nil {
				return err
			}
			codec, ok := waveCodecs[tag]
			if !ok {
				codec = types.FormatUnd
			}
			info.Codec = codec
			info.Channels = int(channels)
			info.SampleRate = int(rate)
			info.BitDepth = int(bits)
			info.BitRate = int(byteRate) * 8
			info.Lossless = codec == types.FormatLPCM
			haveFmt = true
		case "data":
			dataSize = min(size, sr.Size()-offset-8)
		}

		// chunks are padded to an even size
		offset += 8 + size + size&1
		if haveFmt && dataSize > 0 {
			break
		}
	}

	if !haveFmt {
		return &types.CorruptedFileError{Path: sr.Path(), Reason: "no fmt chunk"}
	}
	if byteRate > 0 && dataSize > 0 {
		info.Duration = float64(dataSize) / float64(byteRate)
	}
	return nil
}

// readAIFF reads the COMM chunk of an AIFF or AIFF-C file.
func readAIFF(sr *binary.SafeReader, info *Info) error {
	hdr := make([]byte, 12)
	if err := sr.ReadAt(hdr, 0, "FORM header"); err != nil {
		return err
	}
	form := string(hdr[8:12])
	if string(hdr[:4]) != "FORM" || (form != "AIFF" && form != "AIFC") {
		return &types.CorruptedFileError{Path: sr.Path(), Reason: "invalid FORM/AIFF header"}
	}
	info.Container = types.FormatAIFF

	for offset := int64(12); offset+8 <= sr.Size(); {
		cr := binary.NewChainReader(binary.NewReader(sr, offset))
		id := cr.String(4, "chunk id")
		size := int64(binary.ReadChained[uint32](cr, "chunk size"))
		if err := cr.Error(); err != nil {
			return err
		}
		if id != "COMM" {
			offset += 8 + size + size&1
			continue
		}

		channels := binary.ReadChained[uint16](cr, "channels")
		frames := binary.ReadChained[uint32](cr, "sample frames")
		bits := binary.ReadChained[uint16](cr, "sample size")
		rate := extended(cr.Bytes(10, "sample rate"))
		compression := "NONE"
		if form == "AIFC" {
			compression = cr.String(4, "compression type")
		}
		if err := cr.Error(); err != nil {
			return err
		}

		info.Channels = int(channels)
		info.BitDepth = int(bits)
		info.SampleRate = int(math.Round(rate))
		switch compression {
		case "NONE", "sowt", "twos", "fl32", "fl64":
			info.Codec = types.FormatLPCM
			info.Lossless = true
			info.BitRate = int(channels) * int(bits) * info.SampleRate
		default:
			info.Codec = types.FormatUnd
		}
		if rate > 0 {
			info.Duration = float64(frames) / rate
		}
		return nil
	}

	return &types.CorruptedFileError{Path: sr.Path(), Reason: "no COMM chunk"}
}

// extended decodes an 80-bit IEEE 754 extended precision number.
func extended(b []byte) float64 {
	if len(b) < 10 {
		return 0
	}
	exp := int(b[0]&0x7F)<<8 | int(b[1])
	mantissa := binary.Decode[uint64](b[2:], binary.BigEndian)
	if exp == 0 && mantissa == 0 {
		return 0
	}
	v := math.Ldexp(float64(mantissa), exp-16383-63)
	if b[0]&0x80 != 0 {
		v = -v
	}
	return v
}
