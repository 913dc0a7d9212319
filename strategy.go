package mediaprobe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"time"

	"github.com/simonhull/mediaprobe/internal/imaging"
	"github.com/simonhull/mediaprobe/internal/logger"
	"github.com/simonhull/mediaprobe/internal/mediainfo"
	"github.com/simonhull/mediaprobe/internal/metrics"
	"github.com/simonhull/mediaprobe/internal/probe"
	"github.com/simonhull/mediaprobe/internal/realaudio"
	"github.com/simonhull/mediaprobe/internal/tagaudio"
)

const (
	dcrawParserName = "DCRaw"
	imageParserName = "Image"
)

// mediaInfoIncompatible lists hints MediaInfo is known to misread.
//
// TODO: re-check these against current MediaInfo releases and drop the
// formats it now reads correctly.
var mediaInfoIncompatible = []FormatID{FormatADPCM, FormatDFF, FormatDSF, FormatPNM}

var errPanic = errors.New("backend panicked")

// strategy is one backend attempt. run fills a fresh descriptor and returns
// any embedded artwork it found.
type strategy struct {
	name string
	run  func(ctx context.Context, d *Descriptor) (*Artwork, error)
}

// fileStrategies returns the backends to try for a file, in order. Only
// the RealAudio, camera raw and DVD backends fall through on failure; once
// MediaInfo or the tag reader is chosen it is the last attempt.
func (c *Coordinator) fileStrategies(path string, hint FormatID, mediaType MediaType) []strategy {
	var s []strategy
	if hint == FormatRA {
		s = append(s, strategy{realaudio.ParserName, parseRealAudio(path)})
	}
	if hint == FormatRAW && c.opts.dcraw != nil {
		s = append(s, strategy{dcrawParserName, c.parseRaw(path, mediaType)})
	}
	if hint == FormatISO && c.opts.mplayer != nil {
		s = append(s, strategy{probe.MPlayerParserName, func(ctx context.Context, d *Descriptor) (*Artwork, error) {
			return nil, c.opts.mplayer.ParseDVDTitle(ctx, path, c.opts.dvdTitle, d)
		}})
	}
	if c.mediaInfoAvailable() && !slices.Contains(mediaInfoIncompatible, hint) {
		return append(s, strategy{mediainfo.ParserName, func(ctx context.Context, d *Descriptor) (*Artwork, error) {
			return c.opts.mediaInfo.Parse(ctx, path, mediaType, d)
		}})
	}
	if mediaType == MediaAudio && c.opts.tags != nil {
		return append(s, strategy{tagaudio.ParserName, func(ctx context.Context, d *Descriptor) (*Artwork, error) {
			return c.opts.tags.Parse(ctx, path, hint, d)
		}})
	}
	if mediaType == MediaImage {
		s = append(s, strategy{imageParserName, parseImage(path)})
	}
	if c.opts.ffmpeg != nil {
		s = append(s, strategy{probe.FFmpegParserName, func(ctx context.Context, d *Descriptor) (*Artwork, error) {
			return nil, c.opts.ffmpeg.Parse(ctx, path, nil, d)
		}})
	}
	return s
}

// streamStrategies returns the backends to try for a stream. Only ffmpeg
// reads from a pipe.
func (c *Coordinator) streamStrategies(r io.Reader) []strategy {
	if c.opts.ffmpeg == nil || r == nil {
		return nil
	}
	return []strategy{{probe.FFmpegParserName, func(ctx context.Context, d *Descriptor) (*Artwork, error) {
		return nil, c.opts.ffmpeg.Parse(ctx, "", r, d)
	}}}
}

func (c *Coordinator) mediaInfoAvailable() bool {
	return c.opts.mediaInfo != nil && c.opts.mediaInfo.Version() != ""
}

// run tries strategies in order and returns the descriptor of the first
// that succeeds. Failures are recorded as warnings on the result; an empty
// descriptor is returned when every strategy failed.
func (c *Coordinator) run(ctx context.Context, key string, strategies []strategy) (*Descriptor, *Artwork) {
	var warnings []Warning
	for _, s := range strategies {
		d := &Descriptor{}
		var art *Artwork

		start := time.Now()
		err := guard(func() error {
			var err error
			art, err = s.run(ctx, d)
			return err
		})
		metrics.ParseDuration.WithLabelValues(s.name).Observe(time.Since(start).Seconds())

		if err == nil {
			d.Warnings = append(warnings, d.Warnings...)
			return d, art
		}

		reason := failureReason(err)
		if reason == "mismatch" {
			continue
		}
		metrics.BackendFailuresTotal.WithLabelValues(s.name, reason).Inc()
		log.Emit(logger.DEBUG, "%s could not parse %q: %v\n", s.name, key, err)
		warnings = append(warnings, Warning{Stage: s.name, Message: err.Error()})
	}

	if len(strategies) > 0 {
		log.Emit(logger.VERBOSE, "No backend could parse %q\n", key)
	}
	return &Descriptor{Warnings: warnings}, nil
}

// guard runs fn, turning a panic into an error.
func guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", errPanic, r)
		}
	}()
	return fn()
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, realaudio.ErrNotRealAudio):
		return "mismatch"
	case errors.Is(err, errPanic):
		return "panic"
	case errors.Is(err, probe.ErrTimeout):
		return "timeout"
	case errors.Is(err, probe.ErrNotFound), errors.Is(err, mediainfo.ErrUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}

func parseRealAudio(path string) func(context.Context, *Descriptor) (*Artwork, error) {
	return func(_ context.Context, d *Descriptor) (*Artwork, error) {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open file: %w", err)
		}
		defer f.Close()

		stat, err := f.Stat()
		if err != nil {
			return nil, fmt.Errorf("stat file: %w", err)
		}
		res, err := realaudio.Parse(f, stat.Size(), path)
		if err != nil {
			return nil, err
		}
		res.Apply(d, stat.Size())
		return nil, nil
	}
}

// parseRaw reads the developed size of a camera raw image with dcraw and
// takes the remaining fields from MediaInfo when it is available. The
// embedded preview becomes the artwork.
func (c *Coordinator) parseRaw(path string, mediaType MediaType) func(context.Context, *Descriptor) (*Artwork, error) {
	return func(ctx context.Context, d *Descriptor) (*Artwork, error) {
		width, height, err := c.opts.dcraw.Dimensions(ctx, path)
		if err != nil {
			return nil, err
		}

		if c.mediaInfoAvailable() {
			if _, err := c.opts.mediaInfo.Parse(ctx, path, mediaType, d); err != nil {
				log.Emit(logger.DEBUG, "MediaInfo could not read the raw image %q: %v\n", path, err)
				d.Warn(mediainfo.ParserName, "%v", err)
			}
		}
		d.Container = FormatRAW
		d.Image = &ImageInfo{Format: FormatRAW, Width: width, Height: height}
		d.ParserName = dcrawParserName

		preview, err := c.opts.dcraw.Thumbnail(ctx, path)
		if err != nil {
			log.Emit(logger.DEBUG, "No preview in %q: %v\n", path, err)
			return nil, nil
		}
		return &Artwork{Description: "dcraw preview", Data: preview}, nil
	}
}

// parseImage reads an image header with the in-process decoders.
func parseImage(path string) func(context.Context, *Descriptor) (*Artwork, error) {
	return func(_ context.Context, d *Descriptor) (*Artwork, error) {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open file: %w", err)
		}
		defer f.Close()

		info, err := imaging.Probe(f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		d.Image = &info
		d.Container = info.Format
		d.ParserName = imageParserName
		return nil, nil
	}
}
