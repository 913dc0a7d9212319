package audioheader

import (
	"bytes"
	"fmt"

	"github.com/simonhull/mediaprobe/internal/binary"
	"github.com/simonhull/mediaprobe/internal/types"
)

// oggPageHeaderSize is the fixed part of a page header, before the segment table.
const oggPageHeaderSize = 27

// oggPage is one page of an Ogg bitstream.
type oggPage struct {
	headerType byte // 0x01 continued, 0x02 BOS, 0x04 EOS
	granule    uint64
	serial     uint32
	data       []byte
}

// readOggPage reads the page at offset and returns it with the offset of the next page.
func readOggPage(sr *binary.SafeReader, offset int64) (*oggPage, int64, error) {
	hdr := make([]byte, oggPageHeaderSize)
	if err := sr.ReadAt(hdr, offset, "Ogg page header"); err != nil {
		return nil, 0, err
	}
	if string(hdr[:4]) != "OggS" {
		return nil, 0, &types.CorruptedFileError{Path: sr.Path(), Offset: offset, Reason: "invalid Ogg page marker"}
	}
	if hdr[4] != 0 {
		return nil, 0, &types.CorruptedFileError{
			Path:   sr.Path(),
			Offset: offset,
			Reason: fmt.Sprintf("unsupported Ogg version %d", hdr[4]),
		}
	}

	segments := make([]byte, hdr[26])
	if err := sr.ReadAt(segments, offset+oggPageHeaderSize, "segment table"); err != nil {
		return nil, 0, err
	}
	dataSize := 0
	for _, seg := range segments {
		dataSize += int(seg)
	}

	dataOffset := offset + oggPageHeaderSize + int64(len(segments))
	data := make([]byte, dataSize)
	if err := sr.ReadAt(data, dataOffset, "page data"); err != nil {
		return nil, 0, err
	}

	return &oggPage{
		headerType: hdr[5],
		granule:    binary.Decode[uint64](hdr[6:14], binary.LittleEndian),
		serial:     binary.Decode[uint32](hdr[14:18], binary.LittleEndian),
		data:       data,
	}, dataOffset + int64(dataSize), nil
}

// lastGranule returns the granule position of the last page of the stream
// with the given serial number.
func lastGranule(sr *binary.SafeReader, serial uint32) (uint64, error) {
	start := max(sr.Size()-65536, 0)
	buf := make([]byte, sr.Size()-start)
	if err := sr.ReadAt(buf, start, "Ogg tail"); err != nil {
		return 0, err
	}

	for i := bytes.LastIndex(buf, []byte("OggS")); i >= 0; i = bytes.LastIndex(buf[:i], []byte("OggS")) {
		if i+18 > len(buf) {
			continue
		}
		if binary.Decode[uint32](buf[i+14:], binary.LittleEndian) != serial {
			continue
		}
		return binary.Decode[uint64](buf[i+6:], binary.LittleEndian), nil
	}
	return 0, fmt.Errorf("%s: no final Ogg page", sr.Path())
}

// readOgg identifies the first logical stream from its first packet.
func readOgg(sr *binary.SafeReader, info *Info) error {
	page, _, err := readOggPage(sr, 0)
	if err != nil {
		return err
	}
	packet := page.data
	info.Container = types.FormatOGG

	var preSkip uint64
	switch {
	case len(packet) >= 30 && packet[0] == 0x01 && string(packet[1:7]) == "vorbis":
		info.Codec = types.FormatVorbis
		info.Channels = int(packet[11])
		info.SampleRate = int(binary.Decode[uint32](packet[12:], binary.LittleEndian))
		info.BitRate = int(int32(binary.Decode[uint32](packet[20:], binary.LittleEndian)))
		info.VBR = true

	case len(packet) >= 19 && string(packet[:8]) == "OpusHead":
		if packet[8] != 1 {
			return &types.UnsupportedFormatError{Path: sr.Path(), Reason: fmt.Sprintf("Opus version %d", packet[8])}
		}
		info.Codec = types.FormatOpus
		info.Container = types.FormatOpus
		info.Channels = int(packet[9])
		info.SampleRate = 48000 // Opus always decodes at 48 kHz
		preSkip = uint64(binary.Decode[uint16](packet[10:], binary.LittleEndian))
		info.VBR = true

	case len(packet) >= 17+streamInfoSize && packet[0] == 0x7F && string(packet[1:5]) == "FLAC":
		streamInfo(packet[17:17+streamInfoSize], info)

	default:
		return &types.UnsupportedFormatError{Path: sr.Path(), Reason: "unknown Ogg codec"}
	}

	if info.BitRate < 0 {
		info.BitRate = 0
	}
	if info.SampleRate > 0 {
		if granule, err := lastGranule(sr, page.serial); err == nil && granule > preSkip {
			info.Duration = float64(granule-preSkip) / float64(info.SampleRate)
		}
	}
	return nil
}
