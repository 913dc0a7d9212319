package types

import (
	"io"

	"github.com/simonhull/mediaprobe/internal/binary"
)

// rawExtensions lists camera raw formats. They share the TIFF signature,
// so they are recognised by extension before any magic is inspected.
var rawExtensions = map[string]bool{
	"arw": true, "cr2": true, "cr3": true, "crw": true, "dng": true,
	"nef": true, "nrw": true, "orf": true, "pef": true, "raf": true,
	"rw2": true, "srw": true, "x3f": true,
}

// extensionHints maps extensions to hints for inputs whose magic is not recognised.
var extensionHints = map[string]FormatID{
	"iso": FormatISO, "ra": FormatRA, "dsf": FormatDSF, "dff": FormatDFF,
	"pnm": FormatPNM, "pbm": FormatPNM, "pgm": FormatPNM, "ppm": FormatPNM,
	"flac": FormatFLAC, "mp3": FormatMP3, "ogg": FormatOGG, "oga": FormatOGA,
	"opus": FormatOpus, "m4a": FormatM4A, "m4b": FormatM4A, "mp4": FormatMP4,
	"m4v": FormatM4V, "mkv": FormatMKV, "mka": FormatMKA, "webm": FormatWebM,
	"avi": FormatAVI, "mov": FormatMOV, "wmv": FormatWMV, "wma": FormatWMA,
	"asf": FormatASF, "wav": FormatWAV, "aif": FormatAIFF, "aiff": FormatAIFF,
	"ts": FormatMPEGTS, "m2ts": FormatMPEGTS, "mpg": FormatMPEGPS, "mpeg": FormatMPEGPS,
	"jpg": FormatJPG, "jpeg": FormatJPG, "png": FormatPNG, "gif": FormatGIF,
	"bmp": FormatBMP, "tif": FormatTIFF, "tiff": FormatTIFF, "webp": FormatWebP,
	"ape": FormatAPE, "mpc": FormatMPC, "wv": FormatWavPack, "tta": FormatTTA,
	"ac3": FormatAC3, "dts": FormatDTS, "flv": FormatFLV, "3gp": Format3GP,
	"3g2": Format3G2, "rm": FormatRM, "rmvb": FormatRM, "au": FormatAU,
}

// DetectHint derives a format hint for an item from its leading bytes and,
// failing that, from its file extension. r may be nil for inputs that
// cannot be read ahead; FormatNone is returned when nothing matches.
func DetectHint(path string, r io.ReaderAt, size int64) FormatID {
	ext := string(FromExtension(path))
	if rawExtensions[ext] {
		return FormatRAW
	}

	if r != nil && size >= 4 {
		if f := detectMagic(binary.NewSafeReader(r, size, path)); f != FormatNone {
			return f
		}
	}

	return extensionHints[ext]
}

func detectMagic(sr *binary.SafeReader) FormatID { //nolint:gocyclo // signature checks are a flat list
	size := sr.Size()
	head := make([]byte, min(size, 16))
	if err := sr.ReadAt(head, 0, "file magic bytes"); err != nil {
		return FormatNone
	}
	magic := string(head[:4])

	switch {
	case magic == ".ra\xFD":
		return FormatRA
	case magic == "DSD ":
		return FormatDSF
	case magic == "FRM8" && len(head) >= 16 && string(head[12:16]) == "DSD ":
		return FormatDFF
	case magic == "fLaC":
		return FormatFLAC
	case magic == "OggS":
		return detectOgg(sr)
	case magic == "RIFF" && len(head) >= 12 && string(head[8:12]) == "WAVE":
		return detectWave(sr)
	case magic == "RIFF" && len(head) >= 12 && string(head[8:12]) == "WEBP":
		return FormatWebP
	case magic == "RIFF" && len(head) >= 12 && string(head[8:12]) == "AVI ":
		return FormatAVI
	case magic == "FORM" && len(head) >= 12 && (string(head[8:12]) == "AIFF" || string(head[8:12]) == "AIFC"):
		return FormatAIFF
	case magic == "\x1A\x45\xDF\xA3":
		return FormatMKV
	case magic == "\x89PNG":
		return FormatPNG
	case magic == "GIF8":
		return FormatGIF
	case head[0] == 0xFF && head[1] == 0xD8 && head[2] == 0xFF:
		return FormatJPG
	case head[0] == 'P' && head[1] >= '1' && head[1] <= '7' && isSpace(head[2]):
		return FormatPNM
	case magic[:3] == "ID3":
		return FormatMP3
	case head[0] == 0xFF && head[1]&0xE0 == 0xE0:
		return FormatMP3
	case len(head) >= 12 && string(head[4:8]) == "ftyp":
		if string(head[8:12]) == "M4A " || string(head[8:12]) == "M4B " {
			return FormatM4A
		}
		return FormatMP4
	}
	return FormatNone
}

// detectOgg looks at the first packet to tell Opus from other Ogg streams.
func detectOgg(sr *binary.SafeReader) FormatID {
	segCount, err := binary.Read[uint8](sr, 26, "segment count")
	if err != nil {
		return FormatOGG
	}
	codecMagic := make([]byte, 8)
	if err := sr.ReadAt(codecMagic, 27+int64(segCount), "codec magic"); err == nil && string(codecMagic) == "OpusHead" {
		return FormatOpus
	}
	return FormatOGG
}

// detectWave walks the RIFF chunks looking for the fmt chunk. ADPCM
// variants are reported separately since they need a different backend.
func detectWave(sr *binary.SafeReader) FormatID {
	off := int64(12)
	for i := 0; i < 64 && off+8 <= sr.Size(); i++ {
		id := make([]byte, 4)
		if err := sr.ReadAt(id, off, "chunk id"); err != nil {
			break
		}
		chunkSize, err := binary.ReadLE[uint32](sr, off+4, "chunk size")
		if err != nil {
			break
		}
		if string(id) == "fmt " {
			tag, err := binary.ReadLE[uint16](sr, off+8, "wave format tag")
			if err == nil && (tag == 0x0002 || tag == 0x0011) {
				return FormatADPCM
			}
			return FormatWAV
		}
		off += 8 + int64(chunkSize) + int64(chunkSize&1)
	}
	return FormatWAV
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\n' || b == '\r' || b == '\t'
}

// String returns the identifier text.
func (f FormatID) String() string {
	return string(f)
}
