package audioheader

import (
	"github.com/simonhull/mediaprobe/internal/binary"
	"github.com/simonhull/mediaprobe/internal/types"
)

// readDSF reads the fmt chunk of a Sony DSD stream file.
func readDSF(sr *binary.SafeReader, info *Info) error {
	cr := binary.NewChainReader(binary.NewReader(sr, 0))
	if cr.String(4, "DSD chunk id") != "DSD " {
		return &types.CorruptedFileError{Path: sr.Path(), Reason: "invalid DSF header"}
	}
	cr.Skip(24, "DSD chunk")
	if cr.String(4, "fmt chunk id") != "fmt " {
		if err := cr.Error(); err != nil {
			return err
		}
		return &types.CorruptedFileError{Path: sr.Path(), Offset: 28, Reason: "missing DSF fmt chunk"}
	}
	le := binary.LittleEndian
	cr.Skip(8+4+4+4, "fmt size, version, format id and channel type")
	channels := binary.ReadEndianChained[uint32](cr, "channel count", le)
	rate := binary.ReadEndianChained[uint32](cr, "sampling frequency", le)
	bits := binary.ReadEndianChained[uint32](cr, "bits per sample", le)
	samples := binary.ReadEndianChained[uint64](cr, "sample count", le)
	if err := cr.Error(); err != nil {
		return err
	}

	setDSD(info, types.FormatDSF, int(channels), int(rate), int(bits))
	if rate > 0 {
		info.Duration = float64(samples) / float64(rate)
	}
	return nil
}

// readDFF reads the PROP and DSD chunks of a DSDIFF file.
func readDFF(sr *binary.SafeReader, info *Info) error {
	hdr := make([]byte, 16)
	if err := sr.ReadAt(hdr, 0, "FRM8 header"); err != nil {
		return err
	}
	if string(hdr[:4]) != "FRM8" || string(hdr[12:16]) != "DSD " {
		return &types.CorruptedFileError{Path: sr.Path(), Reason: "invalid DSDIFF header"}
	}

	var rate uint32
	var channels uint16
	var dataSize int64
	for offset := int64(16); offset+12 <= sr.Size(); {
		cr := binary.NewChainReader(binary.NewReader(sr, offset))
		id := cr.String(4, "chunk id")
		size := int64(binary.ReadChained[uint64](cr, "chunk size"))
		if err := cr.Error(); err != nil {
			return err
		}

		switch id {
		case "PROP":
			rate, channels = dffProperties(sr, offset+12, offset+12+size)
		case "DSD ":
			dataSize = min(size, sr.Size()-offset-12)
		}
		offset += 12 + size + size&1
	}

	if rate == 0 || channels == 0 {
		return &types.CorruptedFileError{Path: sr.Path(), Reason: "DSDIFF sample rate or channels missing"}
	}
	setDSD(info, types.FormatDFF, int(channels), int(rate), 1)
	if dataSize > 0 {
		info.Duration = float64(dataSize) * 8 / (float64(rate) * float64(channels))
	}
	return nil
}

// dffProperties reads FS and CHNL from the sub-chunks of a PROP chunk.
func dffProperties(sr *binary.SafeReader, start, end int64) (rate uint32, channels uint16) {
	kind := make([]byte, 4)
	if sr.ReadAt(kind, start, "PROP type") != nil || string(kind) != "SND " {
		return 0, 0
	}
	for offset := start + 4; offset+12 <= end; {
		cr := binary.NewChainReader(binary.NewReader(sr, offset))
		id := cr.String(4, "property id")
		size := int64(binary.ReadChained[uint64](cr, "property size"))
		switch id {
		case "FS  ":
			rate = binary.ReadChained[uint32](cr, "sample rate")
		case "CHNL":
			channels = binary.ReadChained[uint16](cr, "channel count")
		}
		if cr.Error() != nil {
			return rate, channels
		}
		offset += 12 + size + size&1
	}
	return rate, channels
}

func setDSD(info *Info, codec types.FormatID, channels, rate, bits int) {
	info.Codec = codec
	info.Container = codec
	info.Channels = channels
	info.SampleRate = rate
	info.BitDepth = bits
	info.BitRate = channels * rate * bits
	info.Lossless = true
}
