package audioheader

import (
	"github.com/simonhull/mediaprobe/internal/binary"
	"github.com/simonhull/mediaprobe/internal/types"
)

const (
	flacBlockStreamInfo = 0
	streamInfoSize      = 34
)

// readFLAC walks the metadata blocks up to STREAMINFO.
func readFLAC(sr *binary.SafeReader, info *Info) error {
	magic := make([]byte, 4)
	if err := sr.ReadAt(magic, 0, "FLAC magic bytes"); err != nil {
		return err
	}
	if string(magic) != "fLaC" {
		return &types.CorruptedFileError{Path: sr.Path(), Reason: "invalid FLAC magic bytes"}
	}

	offset := int64(4)
	for offset < sr.Size() {
		header, err := binary.Read[uint32](sr, offset, "metadata block header")
		if err != nil {
			return err
		}
		isLast := header>>31 == 1
		blockType := uint8((header >> 24) & 0x7F)
		blockLength := int64(header & 0x00FFFFFF)
		offset += 4

		if blockType == flacBlockStreamInfo {
			data := make([]byte, streamInfoSize)
			if err := sr.ReadAt(data, offset, "STREAMINFO block"); err != nil {
				return err
			}
			streamInfo(data, info)
			info.Container = types.FormatFLAC
			return nil
		}

		offset += blockLength
		if isLast {
			break
		}
	}

	return &types.CorruptedFileError{Path: sr.Path(), Offset: offset, Reason: "no STREAMINFO block"}
}

// streamInfo decodes a 34 byte STREAMINFO block.
func streamInfo(data []byte, info *Info) {
	// Bytes 10-17 pack sample rate (20 bits), channels-1 (3 bits),
	// bits per sample-1 (5 bits) and total samples (36 bits).
	packed := binary.Decode[uint64](data[10:18], binary.BigEndian)

	sampleRate := (packed >> 44) & 0xFFFFF
	channels := ((packed >> 41) & 0x7) + 1
	bitsPerSample := ((packed >> 36) & 0x1F) + 1
	totalSamples := packed & 0xFFFFFFFFF

	info.Codec = types.FormatFLAC
	info.SampleRate = int(sampleRate)
	info.Channels = int(channels)
	info.BitDepth = int(bitsPerSample)
	info.Lossless = true
	info.VBR = true
	if sampleRate > 0 {
		info.Duration = float64(totalSamples) / float64(sampleRate)
	}
}
