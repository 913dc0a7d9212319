package mediaprobe

import (
	"context"
	"io"
	"time"

	"github.com/simonhull/mediaprobe/internal/tagaudio"
	"github.com/simonhull/mediaprobe/internal/thumbnail"
)

// DefaultWaitTimeout bounds how long a caller waits for another caller's
// parse of the same item.
const DefaultWaitTimeout = 5 * time.Second

// MediaInfoBackend reads files through MediaInfo. An empty Version means
// MediaInfo is not usable.
type MediaInfoBackend interface {
	Version() string
	Parse(ctx context.Context, path string, mediaType MediaType, d *Descriptor) (*Artwork, error)
}

// AudioBackend reads audio headers and tags.
type AudioBackend interface {
	Parse(ctx context.Context, path string, hint FormatID, d *Descriptor) (*Artwork, error)
}

// FFmpegBackend identifies files and streams from ffmpeg's report and
// extracts frames from them.
type FFmpegBackend interface {
	Parse(ctx context.Context, input string, stdin io.Reader, d *Descriptor) error
	Frame(ctx context.Context, input string, stdin io.Reader, seek float64) ([]byte, error)
}

// RawBackend reads camera raw images.
type RawBackend interface {
	Dimensions(ctx context.Context, path string) (width, height int, err error)
	Thumbnail(ctx context.Context, path string) ([]byte, error)
}

// DVDBackend reads the titles of DVD images.
type DVDBackend interface {
	ParseDVDTitle(ctx context.Context, path string, title int, d *Descriptor) error
}

// Option configures a Coordinator.
//
// Options use the functional options pattern:
//
//	c := mediaprobe.New(
//	    mediaprobe.WithMediaInfo(adapter),
//	    mediaprobe.WithWaitTimeout(2*time.Second),
//	)
type Option func(*options)

type options struct {
	mediaInfo  MediaInfoBackend
	tags       AudioBackend
	ffmpeg     FFmpegBackend
	dcraw      RawBackend
	mplayer    DVDBackend
	dvdTitle   int
	thumbnails *thumbnail.Resolver

	waitTimeout time.Duration
	closers     []io.Closer
}

func defaultOptions() *options {
	return &options{
		tags:        tagaudio.New(),
		dvdTitle:    1,
		waitTimeout: DefaultWaitTimeout,
	}
}

// WithMediaInfo enables the MediaInfo backend.
func WithMediaInfo(b MediaInfoBackend) Option {
	return func(o *options) {
		o.mediaInfo = b
	}
}

// WithTagReader replaces the audio tag backend. By default audio files are
// read with the built-in tag reader; nil disables the backend.
func WithTagReader(b AudioBackend) Option {
	return func(o *options) {
		o.tags = b
	}
}

// WithFFmpeg enables the ffmpeg backend, used for video, images other
// backends cannot read, and streams.
func WithFFmpeg(b FFmpegBackend) Option {
	return func(o *options) {
		o.ffmpeg = b
	}
}

// WithDCRaw enables the camera raw backend.
func WithDCRaw(b RawBackend) Option {
	return func(o *options) {
		o.dcraw = b
	}
}

// WithMPlayer enables DVD image parsing. title is the DVD title to read;
// values below 1 select the first title.
//
// Example:
//
//	c := mediaprobe.New(mediaprobe.WithMPlayer(dvd, 2))
func WithMPlayer(b DVDBackend, title int) Option {
	return func(o *options) {
		o.mplayer = b
		o.dvdTitle = max(title, 1)
	}
}

// WithThumbnails resolves a thumbnail for every parsed item.
func WithThumbnails(r *thumbnail.Resolver) Option {
	return func(o *options) {
		o.thumbnails = r
	}
}

// WithWaitTimeout sets how long a caller waits for another caller's parse
// of the same item before giving up with a placeholder descriptor.
//
// Default is DefaultWaitTimeout.
func WithWaitTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.waitTimeout = d
		}
	}
}

// withCloser registers a resource released by Coordinator.Close.
func withCloser(c io.Closer) Option {
	return func(o *options) {
		o.closers = append(o.closers, c)
	}
}
