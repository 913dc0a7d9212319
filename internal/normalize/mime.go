package normalize

import (
	"strings"

	"github.com/simonhull/mediaprobe/internal/types"
)

var containerMIME = map[types.FormatID]string{
	types.FormatAVI:     "video/avi",
	types.FormatASF:     "video/x-ms-asf",
	types.FormatFLV:     "video/x-flv",
	types.FormatM4V:     "video/x-m4v",
	types.FormatMP4:     "video/mp4",
	types.FormatMPEGPS:  "video/mpeg",
	types.FormatMPEGTS:  "video/vnd.dlna.mpeg-tts",
	types.FormatHLS:     "application/x-mpegURL",
	types.FormatWMV:     "video/x-ms-wmv",
	types.FormatMOV:     "video/quicktime",
	types.FormatADPCM:   "audio/x-adpcm",
	types.FormatADTS:    "audio/vnd.dlna.adts",
	types.FormatM4A:     "audio/x-m4a",
	types.FormatAC3:     "audio/vnd.dolby.dd-raw",
	types.FormatAU:      "audio/basic",
	types.FormatDFF:     "audio/x-dff",
	types.FormatDSF:     "audio/x-dsf",
	types.FormatEAC3:    "audio/eac3",
	types.FormatMPA:     "audio/mpeg",
	types.FormatMP2:     "audio/mpeg",
	types.FormatAIFF:    "audio/aiff",
	types.FormatATRAC:   "audio/x-sony-oma",
	types.FormatMKA:     "audio/x-matroska",
	types.FormatMLP:     "audio/vnd.dolby.mlp",
	types.FormatAPE:     "audio/x-ape",
	types.FormatMPC:     "audio/x-musepack",
	types.FormatOGG:     "video/ogg",
	types.FormatOGA:     "audio/ogg",
	types.FormatRA:      "audio/vnd.rn-realaudio",
	types.FormatRM:      "application/vnd.rn-realmedia",
	types.FormatSHN:     "audio/x-shn",
	types.Format3GA:     "audio/3gpp",
	types.FormatTrueHD:  "audio/vnd.dolby.mlp",
	types.FormatTTA:     "audio/x-tta",
	types.FormatWavPack: "audio/x-wavpack",
	types.FormatWEBA:    "audio/webm",
	types.FormatWebP:    "image/webp",
	types.FormatWMA:     "audio/x-ms-wma",
	types.FormatWMA10:   "audio/x-ms-wma",
	types.FormatBMP:     "image/bmp",
	types.FormatGIF:     "image/gif",
	types.FormatJPEG:    "image/jpeg",
	types.FormatJPG:     "image/jpeg",
	types.FormatPNG:     "image/png",
	types.FormatTIFF:    "image/tiff",
}

// MIMEType derives the MIME type of a parsed descriptor: by container
// first, then from the video codec, then from the audio codec, and
// finally the default for mediaType.
func MIMEType(d *types.Descriptor, mediaType types.MediaType) string {
	if m, ok := containerMIME[d.Container]; ok {
		return m
	}

	container := string(d.Container)
	vc := string(d.VideoCodec())
	ac := string(d.AudioCodec())

	if vc != "" && vc != string(types.FormatUnd) {
		switch {
		case container == "matroska" || container == "mkv":
			return "video/x-matroska"
		case container == "3gp":
			return "video/3gpp"
		case container == "3g2":
			return "video/3gpp2"
		case container == "webm":
			return "video/webm"
		case strings.HasPrefix(container, "flash"):
			return "video/x-flv"
		case strings.HasPrefix(vc, "h264") || vc == "h263" || vc == "mpeg4" || vc == "mp4":
			return "video/mp4"
		case strings.Contains(vc, "mpeg") || strings.Contains(vc, "mpg"):
			return "video/mpeg"
		}
	} else if ac != "" {
		switch {
		case container == "ogg" || container == "oga":
			return "audio/ogg"
		case container == "3gp":
			return "audio/3gpp"
		case container == "3g2":
			return "audio/3gpp2"
		case container == "adts":
			return "audio/vnd.dlna.adts"
		case container == "matroska" || container == "mkv":
			return "audio/x-matroska"
		case container == "webm":
			return "audio/webm"
		case strings.Contains(ac, "mp3") || ac == string(types.FormatMPA) || ac == string(types.FormatMP2):
			return "audio/mpeg"
		case strings.Contains(ac, "flac"):
			return "audio/x-flac"
		case strings.Contains(ac, "vorbis"):
			return "audio/ogg"
		case strings.Contains(ac, "asf") || strings.HasPrefix(ac, "wm"):
			return "audio/x-ms-wma"
		case strings.Contains(ac, "pcm") || strings.Contains(ac, "wav") || strings.Contains(ac, "dts"):
			return "audio/wav"
		case ac == string(types.FormatTrueHD):
			return "audio/vnd.dolby.mlp"
		case ac == string(types.FormatEAC3):
			return "audio/eac3"
		case ac == string(types.FormatDFF):
			return "audio/x-dff"
		case ac == string(types.FormatDSF):
			return "audio/x-dsf"
		}
	}

	return DefaultMIMEType(mediaType)
}

// DefaultMIMEType is the fallback MIME type for a media type.
func DefaultMIMEType(mediaType types.MediaType) string {
	switch mediaType {
	case types.MediaAudio:
		return "audio/mpeg"
	case types.MediaImage:
		return "image/jpeg"
	default:
		return "video/mpeg"
	}
}
