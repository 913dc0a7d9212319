package types

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/google/uuid"
)

// ParseState tracks the lifecycle of a descriptor. It only ever moves forward.
type ParseState int

const (
	StateNotStarted ParseState = iota
	StateInProgress
	StateDone
)

func (s ParseState) String() string {
	switch s {
	case StateNotStarted:
		return fmt.Sprintf("NOT_STARTED[%d]", int(s))
	case StateInProgress:
		return fmt.Sprintf("IN_PROGRESS[%d]", int(s))
	case StateDone:
		return fmt.Sprintf("DONE[%d]", int(s))
	default:
		return fmt.Sprintf("UNKNOWN[%d]", int(s))
	}
}

// ThumbnailSource records where a descriptor's thumbnail came from.
type ThumbnailSource int

const (
	ThumbnailNone ThumbnailSource = iota
	ThumbnailEmbedded
	ThumbnailRemoteProvider
	ThumbnailSeekExtraction
)

func (s ThumbnailSource) String() string {
	switch s {
	case ThumbnailEmbedded:
		return "EMBEDDED"
	case ThumbnailRemoteProvider:
		return "REMOTE_PROVIDER"
	case ThumbnailSeekExtraction:
		return "SEEK_EXTRACTION"
	default:
		return "NONE"
	}
}

// MarshalText renders the source by name in JSON output.
func (s ThumbnailSource) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// MarshalText renders the state by name in JSON output.
func (s ParseState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Descriptor is the aggregate result of parsing one media item.
//
// A descriptor is written by a single parse and published once it reaches
// StateDone. Published descriptors must be treated as read-only; use Clone
// to derive a modified copy.
type Descriptor struct {
	DurationSeconds *float64       `json:"duration_seconds,omitempty"`
	Image           *ImageInfo     `json:"image,omitempty"`
	ThumbnailRef    *uuid.UUID     `json:"thumbnail_ref,omitempty"`
	AudioMetadata   *AudioMetadata `json:"audio_metadata,omitempty"`

	Container  FormatID `json:"container"`
	MIMEType   string   `json:"mime_type,omitempty"`
	Title      string   `json:"title,omitempty"`
	ParserName string   `json:"parser,omitempty"`

	VideoTracks    []VideoTrack    `json:"video_tracks,omitempty"`
	AudioTracks    []AudioTrack    `json:"audio_tracks,omitempty"`
	SubtitleTracks []SubtitleTrack `json:"subtitle_tracks,omitempty"`
	Chapters       []Chapter       `json:"chapters,omitempty"`
	Warnings       []Warning       `json:"warnings,omitempty"`

	SizeBytes       uint64          `json:"size_bytes"`
	BitRateBps      uint32          `json:"bitrate_bps,omitempty"`
	ThumbnailSource ThumbnailSource `json:"thumbnail_source"`
	State           ParseState      `json:"state"`
}

// AddVideoTrack appends t, assigning the next dense video track id.
func (d *Descriptor) AddVideoTrack(t VideoTrack) *VideoTrack {
	t.ID = uint32(len(d.VideoTracks))
	d.VideoTracks = append(d.VideoTracks, t)
	return &d.VideoTracks[len(d.VideoTracks)-1]
}

// AddAudioTrack appends t, assigning the next dense audio track id.
func (d *Descriptor) AddAudioTrack(t AudioTrack) *AudioTrack {
	t.ID = uint32(len(d.AudioTracks))
	d.AudioTracks = append(d.AudioTracks, t)
	return &d.AudioTracks[len(d.AudioTracks)-1]
}

// AddSubtitleTrack appends t, assigning the next dense subtitle track id.
func (d *Descriptor) AddSubtitleTrack(t SubtitleTrack) *SubtitleTrack {
	t.ID = uint32(len(d.SubtitleTracks))
	d.SubtitleTracks = append(d.SubtitleTracks, t)
	return &d.SubtitleTracks[len(d.SubtitleTracks)-1]
}

// Warn records a non-fatal issue.
func (d *Descriptor) Warn(stage, format string, args ...any) {
	d.Warnings = append(d.Warnings, Warning{Stage: stage, Message: fmt.Sprintf(format, args...)})
}

// SetDuration stores seconds as the descriptor duration.
func (d *Descriptor) SetDuration(seconds float64) {
	d.DurationSeconds = &seconds
}

// Duration returns the duration in seconds, or 0 when unknown.
func (d *Descriptor) Duration() float64 {
	if d.DurationSeconds == nil {
		return 0
	}
	return *d.DurationSeconds
}

// AudioOnly reports whether the descriptor has audio but no video tracks.
func (d *Descriptor) AudioOnly() bool {
	return len(d.AudioTracks) > 0 && len(d.VideoTracks) == 0
}

// VideoCodec returns the codec of the first video track.
func (d *Descriptor) VideoCodec() FormatID {
	if len(d.VideoTracks) == 0 {
		return FormatNone
	}
	return d.VideoTracks[0].Codec
}

// AudioCodec returns the codec of the first audio track.
func (d *Descriptor) AudioCodec() FormatID {
	if len(d.AudioTracks) == 0 {
		return FormatNone
	}
	return d.AudioTracks[0].Codec
}

// FillDefaults replaces absent codecs and languages with the undetermined sentinel.
func (d *Descriptor) FillDefaults() {
	for i := range d.VideoTracks {
		d.VideoTracks[i].Codec = d.VideoTracks[i].Codec.OrUnd()
		if d.VideoTracks[i].Lang == "" {
			d.VideoTracks[i].Lang = LangUnd
		}
	}
	for i := range d.AudioTracks {
		d.AudioTracks[i].Codec = d.AudioTracks[i].Codec.OrUnd()
		if d.AudioTracks[i].Lang == "" {
			d.AudioTracks[i].Lang = LangUnd
		}
	}
	for i := range d.SubtitleTracks {
		d.SubtitleTracks[i].Codec = d.SubtitleTracks[i].Codec.OrUnd()
		if d.SubtitleTracks[i].Lang == "" {
			d.SubtitleTracks[i].Lang = LangUnd
		}
	}
}

// Clone returns a deep copy of d.
func (d *Descriptor) Clone() *Descriptor {
	if d == nil {
		return nil
	}
	c := *d
	if d.DurationSeconds != nil {
		v := *d.DurationSeconds
		c.DurationSeconds = &v
	}
	if d.Image != nil {
		v := *d.Image
		c.Image = &v
	}
	if d.ThumbnailRef != nil {
		v := *d.ThumbnailRef
		c.ThumbnailRef = &v
	}
	if d.AudioMetadata != nil {
		v := *d.AudioMetadata
		c.AudioMetadata = &v
	}
	c.VideoTracks = slices.Clone(d.VideoTracks)
	c.AudioTracks = slices.Clone(d.AudioTracks)
	c.SubtitleTracks = slices.Clone(d.SubtitleTracks)
	c.Chapters = slices.Clone(d.Chapters)
	c.Warnings = slices.Clone(d.Warnings)
	return &c
}

// ImageInfo describes a still image.
type ImageInfo struct {
	Format FormatID `json:"format"`
	Width  int      `json:"width"`
	Height int      `json:"height"`
}

// Chapter is a chapter marker. The end of a chapter is the start of the
// next one; the last chapter ends at the total duration.
type Chapter struct {
	Title        string  `json:"title,omitempty"`
	Lang         string  `json:"lang,omitempty"`
	ID           int     `json:"id"`
	StartSeconds float64 `json:"start_seconds"`
	EndSeconds   float64 `json:"end_seconds"`
}

var defaultChapterTitle = regexp.MustCompile(`(?i)^(chapter\s*\d+|\d{1,2}:\d{2}:\d{2}(\.\d+)?)$`)

// IsDefaultChapterTitle reports whether title is a generated placeholder
// such as "Chapter 01" or "00:05:00.000" rather than a real name.
func IsDefaultChapterTitle(title string) bool {
	return defaultChapterTitle.MatchString(strings.TrimSpace(title))
}

// AudioMetadata holds the tag fields of an audio file.
type AudioMetadata struct {
	Title              string `json:"title,omitempty"`
	Artist             string `json:"artist,omitempty"`
	Album              string `json:"album,omitempty"`
	AlbumArtist        string `json:"album_artist,omitempty"`
	Composer           string `json:"composer,omitempty"`
	Genre              string `json:"genre,omitempty"`
	MusicBrainzRelease string `json:"mbid_release,omitempty"`
	MusicBrainzTrack   string `json:"mbid_track,omitempty"`
	Year               int    `json:"year,omitempty"`
	Track              int    `json:"track,omitempty"`
	Disc               int    `json:"disc,omitempty"`
	Rating             int    `json:"rating,omitempty"`
}
