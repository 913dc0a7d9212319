// Package thumbnail attaches a thumbnail to parsed descriptors.
//
// Sources are tried in order and the first that yields an image wins:
// embedded artwork, a remote cover for tagged audio, then a frame extracted
// from video. Every source is best-effort; failing to find a thumbnail
// never fails a parse.
package thumbnail

import (
	"context"
	"io"
	"os"

	"github.com/simonhull/mediaprobe/internal/imaging"
	"github.com/simonhull/mediaprobe/internal/logger"
	"github.com/simonhull/mediaprobe/internal/metrics"
	"github.com/simonhull/mediaprobe/internal/types"
)

var log = logger.Get("Thumbnail")

// FrameSource extracts a single encoded frame at seek seconds.
type FrameSource interface {
	Frame(ctx context.Context, input string, stdin io.Reader, seek float64) ([]byte, error)
}

// CoverSource looks up cover art for tagged audio. A nil result with a nil
// error means there is none.
type CoverSource interface {
	Cover(ctx context.Context, md *types.AudioMetadata) ([]byte, error)
}

// Resolver picks and stores thumbnails. Covers and Frames may be nil to
// disable those sources.
type Resolver struct {
	Store       Store
	Covers      CoverSource
	Frames      FrameSource
	SeekSeconds float64
}

// Request describes the item a thumbnail is resolved for.
type Request struct {
	// Path is empty for streamed items, which only get embedded artwork.
	Path      string
	MediaType types.MediaType

	// Embedded is artwork found while parsing, if any.
	Embedded *types.Artwork
}

// Resolve stores the first available thumbnail and records its id and
// source in d.
func (r *Resolver) Resolve(ctx context.Context, req Request, d *types.Descriptor) {
	if r == nil || r.Store == nil {
		return
	}

	embedded := req.Embedded
	if (embedded == nil || len(embedded.Data) == 0) && req.MediaType == types.MediaImage && req.Path != "" {
		data, err := os.ReadFile(req.Path)
		if err != nil {
			log.Emit(logger.DEBUG, "Could not read image %q for its thumbnail: %v\n", req.Path, err)
		} else {
			embedded = &types.Artwork{Data: data}
		}
	}
	if embedded != nil && len(embedded.Data) > 0 {
		if r.store(ctx, req, embedded.Data, types.ThumbnailEmbedded, d) {
			return
		}
	}

	if r.Covers != nil && d.AudioMetadata != nil && len(d.VideoTracks) == 0 {
		cover, err := r.Covers.Cover(ctx, d.AudioMetadata)
		switch {
		case err != nil:
			log.Emit(logger.DEBUG, "Cover lookup for %q failed: %v\n", req.Path, err)
		case len(cover) > 0:
			if r.store(ctx, req, cover, types.ThumbnailRemoteProvider, d) {
				return
			}
		}
	}

	if r.Frames != nil && req.Path != "" && len(d.VideoTracks) > 0 {
		seek := SeekPosition(r.SeekSeconds, d.Duration())
		frame, err := r.Frames.Frame(ctx, req.Path, nil, seek)
		if err != nil {
			log.Emit(logger.DEBUG, "Could not extract a frame of %q at %.1fs: %v\n", req.Path, seek, err)
			return
		}
		r.store(ctx, req, frame, types.ThumbnailSeekExtraction, d)
	}
}

func (r *Resolver) store(ctx context.Context, req Request, data []byte, source types.ThumbnailSource, d *types.Descriptor) bool {
	maxW, maxH := imaging.VideoMaxWidth, imaging.VideoMaxHeight
	if req.MediaType == types.MediaImage {
		maxW, maxH = imaging.ImageMaxWidth, imaging.ImageMaxHeight
	}

	art, err := imaging.Bound(data, maxW, maxH)
	if err != nil {
		log.Emit(logger.DEBUG, "Discarding %s thumbnail of %q: %v\n", source, req.Path, err)
		return false
	}
	id, err := r.Store.Put(ctx, art)
	if err != nil {
		log.Emit(logger.WARNING, "Could not store thumbnail of %q: %v\n", req.Path, err)
		return false
	}

	d.ThumbnailRef = &id
	d.ThumbnailSource = source
	metrics.ThumbnailsTotal.WithLabelValues(source.String()).Inc()
	return true
}

// SeekPosition returns where to extract a frame: seek, or the middle of
// the item when seek lies past its end.
func SeekPosition(seek, duration float64) float64 {
	if duration > 0 && seek > duration {
		return duration / 2
	}
	return max(seek, 0)
}
