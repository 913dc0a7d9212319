package types

import (
	"fmt"
	"strings"
)

// LangUnd is the ISO 639-2 code for an undetermined language.
const LangUnd = "und"

// VideoTrack describes one video stream.
type VideoTrack struct {
	Codec         FormatID `json:"codec"`
	Lang          string   `json:"lang"`
	Title         string   `json:"title,omitempty"`
	FormatProfile string   `json:"format_profile,omitempty"`
	AvcLevel      string   `json:"avc_level,omitempty"`
	AspectRatio   string   `json:"aspect_ratio,omitempty"`
	FrameRate     float64  `json:"frame_rate,omitempty"`
	ID            uint32   `json:"id"`
	StreamOrder   int      `json:"stream_order"`
	Width         int      `json:"width,omitempty"`
	Height        int      `json:"height,omitempty"`
	BitDepth      int      `json:"bit_depth,omitempty"`
	Default       bool     `json:"default,omitempty"`
	Forced        bool     `json:"forced,omitempty"`
}

// Resolution returns "WxH", or "" when unknown.
func (v VideoTrack) Resolution() string {
	if v.Width == 0 || v.Height == 0 {
		return ""
	}
	return fmt.Sprintf("%dx%d", v.Width, v.Height)
}

// AudioTrack describes one audio stream.
//
// ID is dense per descriptor. StreamID keeps a container-specific stream
// identifier (for example 0x80 in an MPEG transport stream) when one is known.
type AudioTrack struct {
	Codec       FormatID `json:"codec"`
	Lang        string   `json:"lang"`
	Title       string   `json:"title,omitempty"`
	ID          uint32   `json:"id"`
	StreamID    int      `json:"stream_id"`
	StreamOrder int      `json:"stream_order"`
	Channels    int      `json:"channels"`
	SampleRate  int      `json:"sample_rate,omitempty"`
	BitDepth    int      `json:"bit_depth,omitempty"`
	BitRate     int      `json:"bitrate,omitempty"`
	Default     bool     `json:"default,omitempty"`
	Forced      bool     `json:"forced,omitempty"`
}

// String returns a short description such as "flac 44.1kHz 16-bit stereo".
func (a AudioTrack) String() string {
	parts := []string{string(a.Codec)}
	if a.SampleRate > 0 {
		parts = append(parts, fmt.Sprintf("%.1fkHz", float64(a.SampleRate)/1000))
	}
	if a.BitDepth > 0 {
		parts = append(parts, fmt.Sprintf("%d-bit", a.BitDepth))
	}
	parts = append(parts, channelDescription(a.Channels))
	if a.BitRate > 0 {
		parts = append(parts, fmt.Sprintf("%dkbps", a.BitRate/1000))
	}
	return join(parts, " ")
}

// SubtitleTrack describes one subtitle stream.
type SubtitleTrack struct {
	Codec       FormatID `json:"codec"`
	Lang        string   `json:"lang"`
	Title       string   `json:"title,omitempty"`
	ID          uint32   `json:"id"`
	StreamID    int      `json:"stream_id"`
	StreamOrder int      `json:"stream_order"`
	Default     bool     `json:"default,omitempty"`
	Forced      bool     `json:"forced,omitempty"`
}

func channelDescription(channels int) string {
	switch channels {
	case 0:
		return ""
	case 1:
		return "mono"
	case 2:
		return "stereo"
	case 4:
		return "quad"
	case 6:
		return "5.1"
	case 8:
		return "7.1"
	default:
		return fmt.Sprintf("%dch", channels)
	}
}

// join concatenates strings with a separator, skipping empty strings.
func join(parts []string, sep string) string {
	out := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, sep)
}
