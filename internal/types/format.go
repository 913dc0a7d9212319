package types

import (
	"path/filepath"
	"strings"
)

// FormatID is a canonical container, codec or image format identifier.
//
// The zero value means "not determined yet". After a parse is published,
// absent codecs are reported as FormatUnd instead.
type FormatID string

// Canonical format identifiers.
const (
	FormatNone FormatID = ""
	FormatUnd  FormatID = "und"

	Format3G2         FormatID = "3g2"
	Format3GA         FormatID = "3ga"
	Format3GP         FormatID = "3gp"
	FormatAACLC       FormatID = "aac-lc"
	FormatAACLTP      FormatID = "aac-ltp"
	FormatAACMain     FormatID = "aac-main"
	FormatAACSSR      FormatID = "aac-ssr"
	FormatAC3         FormatID = "ac3"
	FormatACELP       FormatID = "acelp"
	FormatADPCM       FormatID = "adpcm"
	FormatADTS        FormatID = "adts"
	FormatAIFF        FormatID = "aiff"
	FormatALAC        FormatID = "alac"
	FormatALS         FormatID = "als"
	FormatAMR         FormatID = "amr"
	FormatAPE         FormatID = "ape"
	FormatASF         FormatID = "asf"
	FormatATMOS       FormatID = "atmos"
	FormatATRAC       FormatID = "atrac"
	FormatAU          FormatID = "au"
	FormatAV1         FormatID = "av1"
	FormatAVI         FormatID = "avi"
	FormatBMP         FormatID = "bmp"
	FormatCAF         FormatID = "caf"
	FormatCELP        FormatID = "celp"
	FormatCinepak     FormatID = "cvid"
	FormatCook        FormatID = "cook"
	FormatDFF         FormatID = "dff"
	FormatDivX        FormatID = "divx"
	FormatDolbyE      FormatID = "dolbye"
	FormatDSF         FormatID = "dsf"
	FormatDTS         FormatID = "dts"
	FormatDTSHD       FormatID = "dtshd"
	FormatDV          FormatID = "dv"
	FormatEAC3        FormatID = "eac3"
	FormatERBSAC      FormatID = "erbsac"
	FormatFFV1        FormatID = "ffv1"
	FormatFLAC        FormatID = "flac"
	FormatFLV         FormatID = "flv"
	FormatG729        FormatID = "g729"
	FormatGIF         FormatID = "gif"
	FormatH261        FormatID = "h261"
	FormatH263        FormatID = "h263"
	FormatH264        FormatID = "h264"
	FormatH265        FormatID = "h265"
	FormatHEAAC       FormatID = "he-aac"
	FormatHLS         FormatID = "hls"
	FormatIndeo       FormatID = "indeo"
	FormatISO         FormatID = "iso"
	FormatJPEG        FormatID = "jpeg"
	FormatJPG         FormatID = "jpg"
	FormatLPCM        FormatID = "lpcm"
	FormatM4A         FormatID = "m4a"
	FormatM4V         FormatID = "m4v"
	FormatMACE3       FormatID = "mace3"
	FormatMACE6       FormatID = "mace6"
	FormatMJPEG       FormatID = "mjpeg"
	FormatMKA         FormatID = "mka"
	FormatMKV         FormatID = "mkv"
	FormatMLP         FormatID = "mlp"
	FormatMOV         FormatID = "mov"
	FormatMP2         FormatID = "mp2"
	FormatMP3         FormatID = "mp3"
	FormatMP4         FormatID = "mp4"
	FormatMPA         FormatID = "mpa"
	FormatMPC         FormatID = "mpc"
	FormatMPEG1       FormatID = "mpeg1"
	FormatMPEG2       FormatID = "mpeg2"
	FormatMPEGPS      FormatID = "mpegps"
	FormatMPEGTS      FormatID = "mpegts"
	FormatNellymoser  FormatID = "nellymoser"
	FormatOGA         FormatID = "oga"
	FormatOGG         FormatID = "ogg"
	FormatOpus        FormatID = "opus"
	FormatPNG         FormatID = "png"
	FormatPNM         FormatID = "pnm"
	FormatQCELP       FormatID = "qcelp"
	FormatQDMC        FormatID = "qdmc"
	FormatRA          FormatID = "ra"
	FormatRA144       FormatID = "ra14.4"
	FormatRA288       FormatID = "ra28.8"
	FormatRALF        FormatID = "ralf"
	FormatRAW         FormatID = "raw"
	FormatRGB         FormatID = "rgb"
	FormatRLE         FormatID = "rle"
	FormatRM          FormatID = "rm"
	FormatSHN         FormatID = "shn"
	FormatSipro       FormatID = "sipro"
	FormatSLS         FormatID = "sls"
	FormatSorenson    FormatID = "sor"
	FormatTGA         FormatID = "tga"
	FormatTheora      FormatID = "theora"
	FormatTIFF        FormatID = "tiff"
	FormatTrueHD      FormatID = "truehd"
	FormatTTA         FormatID = "tta"
	FormatVC1         FormatID = "vc1"
	FormatVorbis      FormatID = "vorbis"
	FormatVP6         FormatID = "vp6"
	FormatVP7         FormatID = "vp7"
	FormatVP8         FormatID = "vp8"
	FormatVP9         FormatID = "vp9"
	FormatWAV         FormatID = "wav"
	FormatWavPack     FormatID = "wavpack"
	FormatWEBA        FormatID = "weba"
	FormatWebM        FormatID = "webm"
	FormatWebP        FormatID = "webp"
	FormatWMA         FormatID = "wma"
	FormatWMA10       FormatID = "wma10"
	FormatWMALossless FormatID = "wmalossless"
	FormatWMAPro      FormatID = "wmapro"
	FormatWMAVoice    FormatID = "wmavoice"
	FormatWMV         FormatID = "wmv"
	FormatYUV         FormatID = "yuv"
)

// Subtitle codec identifiers.
const (
	SubtitleSubRip   FormatID = "subrip"
	SubtitleASS      FormatID = "ass"
	SubtitleVobSub   FormatID = "vobsub"
	SubtitlePGS      FormatID = "pgs"
	SubtitleTX3G     FormatID = "tx3g"
	SubtitleWebVTT   FormatID = "webvtt"
	SubtitleMicroDVD FormatID = "microdvd"
	SubtitleSAMI     FormatID = "sami"
	SubtitleDVB      FormatID = "dvbsub"
	SubtitleEIA608   FormatID = "eia608"
	SubtitleText     FormatID = "text"
	SubtitleDivX     FormatID = "xsub"
)

// IsEmpty reports whether no format has been determined.
func (f FormatID) IsEmpty() bool {
	return f == FormatNone
}

// Known reports whether f carries an actual identification, i.e. it is
// neither empty nor the undetermined sentinel.
func (f FormatID) Known() bool {
	return f != FormatNone && f != FormatUnd
}

// OrUnd returns f, or FormatUnd when f is empty.
func (f FormatID) OrUnd() FormatID {
	if f == FormatNone {
		return FormatUnd
	}
	return f
}

// FromExtension derives a container identifier from a file name.
// The extension is lower-cased and returned as is; "" when there is none.
func FromExtension(path string) FormatID {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	return FormatID(strings.ToLower(ext))
}

// MediaType classifies what kind of media an item holds.
type MediaType int

const (
	MediaUnknown MediaType = iota
	MediaAudio
	MediaVideo
	MediaImage
)

func (m MediaType) String() string {
	switch m {
	case MediaAudio:
		return "audio"
	case MediaVideo:
		return "video"
	case MediaImage:
		return "image"
	default:
		return "unknown"
	}
}
