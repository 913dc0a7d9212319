package audioheader

import (
	"fmt"

	"github.com/simonhull/mediaprobe/internal/binary"
	"github.com/simonhull/mediaprobe/internal/types"
)

// atom is an MP4 box header.
type atom struct {
	size     uint64
	typ      string
	offset   int64
	extended bool
}

func (a atom) dataOffset() int64 {
	if a.extended {
		return a.offset + 16
	}
	return a.offset + 8
}

func (a atom) end() int64 {
	return a.offset + int64(a.size)
}

func readAtom(sr *binary.SafeReader, offset int64) (atom, error) {
	cr := binary.NewChainReader(binary.NewReader(sr, offset))
	size32 := binary.ReadChained[uint32](cr, "atom size")
	typ := cr.String(4, "atom type")
	a := atom{size: uint64(size32), typ: typ, offset: offset}
	switch size32 {
	case 1:
		a.size = binary.ReadChained[uint64](cr, "extended atom size")
		a.extended = true
	case 0:
		// extends to the end of the file
		a.size = uint64(sr.Size() - offset)
	}
	if err := cr.Error(); err != nil {
		return atom{}, err
	}
	if a.size < 8 {
		return atom{}, &types.CorruptedFileError{
			Path:   sr.Path(),
			Offset: offset,
			Reason: fmt.Sprintf("invalid atom size %d (minimum is 8)", a.size),
		}
	}
	return a, nil
}

// eachAtom calls fn for every atom between start and end until fn returns false.
func eachAtom(sr *binary.SafeReader, start, end int64, fn func(atom) bool) error {
	for offset := start; offset+8 <= end; {
		a, err := readAtom(sr, offset)
		if err != nil {
			return err
		}
		if !fn(a) {
			return nil
		}
		offset = a.end()
	}
	return nil
}

// findAtom descends through the given path of atom types starting in [start, end).
func findAtom(sr *binary.SafeReader, start, end int64, path ...string) (atom, error) {
	var found atom
	for _, typ := range path {
		ok := false
		err := eachAtom(sr, start, end, func(a atom) bool {
			if a.typ == typ {
				found, ok = a, true
				return false
			}
			return true
		})
		if err != nil {
			return atom{}, err
		}
		if !ok {
			return atom{}, fmt.Errorf("%s: atom %q not found", sr.Path(), typ)
		}
		start, end = found.dataOffset(), found.end()
	}
	return found, nil
}

// readMP4 reads the movie duration and the first sound track's sample entry.
func readMP4(sr *binary.SafeReader, info *Info) error {
	moov, err := findAtom(sr, 0, sr.Size(), "moov")
	if err != nil {
		return err
	}
	info.Container = types.FormatM4A

	if mvhd, err := findAtom(sr, moov.dataOffset(), moov.end(), "mvhd"); err == nil {
		info.Duration = movieDuration(sr, mvhd)
	}

	var trackErr error
	found := false
	err = eachAtom(sr, moov.dataOffset(), moov.end(), func(trak atom) bool {
		if trak.typ != "trak" {
			return true
		}
		if !isSoundTrack(sr, trak) {
			return true
		}
		stsd, err := findAtom(sr, trak.dataOffset(), trak.end(), "mdia", "minf", "stbl", "stsd")
		if err != nil {
			trackErr = err
			return false
		}
		trackErr = sampleEntry(sr, stsd, info)
		found = true
		return false
	})
	if err != nil {
		return err
	}
	if trackErr != nil {
		return trackErr
	}
	if !found {
		return &types.UnsupportedFormatError{Path: sr.Path(), Reason: "no sound track"}
	}
	return nil
}

func isSoundTrack(sr *binary.SafeReader, trak atom) bool {
	hdlr, err := findAtom(sr, trak.dataOffset(), trak.end(), "mdia", "hdlr")
	if err != nil {
		return false
	}
	handler := make([]byte, 4)
	// version/flags (4) and pre_defined (4) precede the handler type
	return sr.ReadAt(handler, hdlr.dataOffset()+8, "handler type") == nil && string(handler) == "soun"
}

func movieDuration(sr *binary.SafeReader, mvhd atom) float64 {
	cr := binary.NewChainReader(binary.NewReader(sr, mvhd.dataOffset()))
	version := binary.ReadChained[uint8](cr, "mvhd version")
	cr.Skip(3, "mvhd flags")

	var timescale uint32
	var duration uint64
	if version == 1 {
		cr.Skip(16, "creation and modification time")
		timescale = binary.ReadChained[uint32](cr, "mvhd timescale")
		duration = binary.ReadChained[uint64](cr, "mvhd duration")
	} else {
		cr.Skip(8, "creation and modification time")
		timescale = binary.ReadChained[uint32](cr, "mvhd timescale")
		duration = uint64(binary.ReadChained[uint32](cr, "mvhd duration"))
	}
	if cr.Error() != nil || timescale == 0 {
		return 0
	}
	return float64(duration) / float64(timescale)
}

var sampleEntryCodecs = map[string]types.FormatID{
	"alac": types.FormatALAC,
	"ac-3": types.FormatAC3,
	"ec-3": types.FormatEAC3,
	"Opus": types.FormatOpus,
	"fLaC": types.FormatFLAC,
	".mp3": types.FormatMP3,
	"samr": types.FormatAMR,
	"sawb": types.FormatAMR,
	"lpcm": types.FormatLPCM,
	"sowt": types.FormatLPCM,
	"twos": types.FormatLPCM,
}

// sampleEntry decodes the first entry of an audio stsd atom.
func sampleEntry(sr *binary.SafeReader, stsd atom, info *Info) error {
	entryOffset := stsd.dataOffset() + 8 // version/flags and entry count
	cr := binary.NewChainReader(binary.NewReader(sr, entryOffset))
	entrySize := binary.ReadChained[uint32](cr, "sample entry size")
	format := cr.String(4, "sample entry format")
	cr.Skip(6+2, "reserved and data reference index")
	version := binary.ReadChained[uint16](cr, "sound version")
	cr.Skip(6, "revision and vendor")
	channels := binary.ReadChained[uint16](cr, "channels")
	sampleSize := binary.ReadChained[uint16](cr, "sample size")
	cr.Skip(4, "compression id and packet size")
	rate := binary.ReadChained[uint32](cr, "sample rate")
	if err := cr.Error(); err != nil {
		return err
	}

	info.Channels = int(channels)
	info.SampleRate = int(rate >> 16) // 16.16 fixed point
	info.BitDepth = int(sampleSize)

	childStart := cr.Offset()
	switch version {
	case 1:
		childStart += 16
	case 2:
		childStart += 36
	}
	entryEnd := entryOffset + int64(entrySize)

	switch format {
	case "mp4a":
		info.Codec = types.FormatAACLC
		info.BitDepth = 0
		if esds, err := findAtom(sr, childStart, entryEnd, "esds"); err == nil {
			elementaryStream(sr, esds, info)
		}
	case "alac", "fLaC":
		info.Codec = sampleEntryCodecs[format]
		info.Lossless = true
	default:
		codec, ok := sampleEntryCodecs[format]
		if !ok {
			codec = types.FormatID(format)
		}
		info.Codec = codec
		if codec != types.FormatLPCM {
			info.BitDepth = 0
		}
	}
	return nil
}

// aacObjectTypes maps MPEG-4 audio object types.
var aacObjectTypes = map[int]types.FormatID{
	1:  types.FormatAACMain,
	2:  types.FormatAACLC,
	3:  types.FormatAACSSR,
	4:  types.FormatAACLTP,
	5:  types.FormatHEAAC,
	22: types.FormatERBSAC,
	29: types.FormatHEAAC,
}

// elementaryStream reads the decoder configuration of an esds atom:
// object type, average bitrate and the audio object type.
func elementaryStream(sr *binary.SafeReader, esds atom, info *Info) {
	n := esds.end() - esds.dataOffset()
	if n <= 4 || n > 1<<16 {
		return
	}
	data := make([]byte, n)
	if sr.ReadAt(data, esds.dataOffset(), "esds") != nil {
		return
	}
	d := descriptorReader{data: data, pos: 4} // version and flags

	if tag, _ := d.header(); tag != 0x03 {
		return
	}
	d.pos += 2 // ES_ID
	flags := d.next()
	if flags&0x80 != 0 {
		d.pos += 2
	}
	if flags&0x40 != 0 {
		d.pos += int(d.next())
	}
	if flags&0x20 != 0 {
		d.pos += 2
	}

	if tag, _ := d.header(); tag != 0x04 {
		return
	}
	objectType := d.next()
	d.pos += 1 + 3 + 4 // stream type, buffer size, max bitrate
	if d.pos+4 <= len(d.data) {
		if avg := binary.Decode[uint32](d.data[d.pos:], binary.BigEndian); avg > 0 {
			info.BitRate = int(avg)
		}
	}
	d.pos += 4

	switch objectType {
	case 0x69, 0x6B:
		info.Codec = types.FormatMP3
		return
	}

	if tag, size := d.header(); tag != 0x05 || size < 1 {
		return
	}
	b0 := d.next()
	aot := int(b0 >> 3)
	if aot == 31 {
		aot = 32 + (int(b0&0x7)<<3 | int(d.peek()>>5))
	}
	if codec, ok := aacObjectTypes[aot]; ok {
		info.Codec = codec
	}
}

// descriptorReader walks MPEG-4 descriptors. Reads past the end yield zero.
type descriptorReader struct {
	data []byte
	pos  int
}

func (d *descriptorReader) next() byte {
	if d.pos >= len(d.data) {
		d.pos++
		return 0
	}
	b := d.data[d.pos]
	d.pos++
	return b
}

func (d *descriptorReader) peek() byte {
	if d.pos >= len(d.data) {
		return 0
	}
	return d.data[d.pos]
}

// header reads a descriptor tag and its variable length size.
func (d *descriptorReader) header() (tag byte, size int) {
	tag = d.next()
	for range 4 {
		b := d.next()
		size = size<<7 | int(b&0x7F)
		if b&0x80 == 0 {
			break
		}
	}
	return tag, size
}
