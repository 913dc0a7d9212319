package mediaprobe

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/simonhull/mediaprobe/internal/logger"
	"github.com/simonhull/mediaprobe/internal/metrics"
	"github.com/simonhull/mediaprobe/internal/normalize"
	"github.com/simonhull/mediaprobe/internal/syncmap"
	"github.com/simonhull/mediaprobe/internal/thumbnail"
)

var log = logger.Get("Coordinator")

// Coordinator parses items through the backend chain, at most once per
// item. It is safe for concurrent use.
//
//	c := mediaprobe.New(mediaprobe.WithMediaInfo(adapter))
//	d := c.Parse(ctx, mediaprobe.FileItem("movie.mkv"), mediaprobe.FormatNone, mediaprobe.MediaVideo)
type Coordinator struct {
	opts  *options
	items syncmap.Map[string, *entry]
}

// entry is the parse state of one item. done is closed when desc is
// published.
type entry struct {
	mu    sync.Mutex
	state ParseState
	desc  *Descriptor
	done  chan struct{}
}

// finalize is replaced in tests.
var finalize = normalize.Finalize

// New returns a Coordinator configured by opts. Without options it uses the
// built-in tag reader and in-process image decoding only.
func New(opts ...Option) *Coordinator {
	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}
	return &Coordinator{opts: options}
}

// Close releases the resources the Coordinator was built with.
func (c *Coordinator) Close() error {
	var errs []error
	for _, closer := range c.opts.closers {
		if err := closer.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Parse returns the descriptor of item, parsing it on first use. hint is a
// format hint such as DetectHint returns, or FormatNone.
//
// A caller arriving while another caller parses the same item waits for
// that parse. If it does not finish within the wait timeout, or ctx ends
// first, the caller gets a placeholder in StateInProgress that holds only
// the size.
//
// The parse itself is not cancelled with ctx: it always runs to completion
// so that the published descriptor is never cut short. Subprocesses are
// still bounded by their own timeouts.
func (c *Coordinator) Parse(ctx context.Context, item Item, hint FormatID, mediaType MediaType) *Descriptor {
	key := item.Key()
	if key == "" {
		d := c.parse(context.WithoutCancel(ctx), item, hint, mediaType)
		d.State = StateDone
		return d
	}

	e, _ := c.items.LoadOrStore(key, &entry{done: make(chan struct{})})
	e.mu.Lock()
	switch e.state {
	case StateDone:
		d := e.desc
		e.mu.Unlock()
		return d
	case StateInProgress:
		e.mu.Unlock()
		return c.wait(ctx, item, e)
	}
	e.state = StateInProgress
	e.mu.Unlock()

	d := c.parse(context.WithoutCancel(ctx), item, hint, mediaType)
	c.publish(e, d)
	return d
}

// ParseFile parses the file at path with a hint derived from its content.
func (c *Coordinator) ParseFile(ctx context.Context, path string, mediaType MediaType) *Descriptor {
	hint, err := DetectFile(path)
	if err != nil {
		log.Emit(logger.DEBUG, "Could not detect the format of %q: %v\n", path, err)
	}
	return c.Parse(ctx, FileItem(path), hint, mediaType)
}

// State returns the parse state of item.
func (c *Coordinator) State(item Item) ParseState {
	e, ok := c.items.Load(item.Key())
	if !ok {
		return StateNotStarted
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (c *Coordinator) publish(e *entry, d *Descriptor) {
	d.State = StateDone
	e.mu.Lock()
	e.desc = d
	e.state = StateDone
	close(e.done)
	e.mu.Unlock()
}

func (c *Coordinator) wait(ctx context.Context, item Item, e *entry) *Descriptor {
	timer := time.NewTimer(c.opts.waitTimeout)
	defer timer.Stop()

	select {
	case <-e.done:
		e.mu.Lock()
		defer e.mu.Unlock()
		return e.desc
	case <-timer.C:
		log.Emit(logger.DEBUG, "Gave up waiting %s for the parse of %q\n", c.opts.waitTimeout, item.Key())
	case <-ctx.Done():
		log.Emit(logger.DEBUG, "Stopped waiting for the parse of %q: %v\n", item.Key(), ctx.Err())
	}
	metrics.WaitTimeoutsTotal.Inc()
	return &Descriptor{State: StateInProgress, SizeBytes: item.size()}
}

// parse runs the backend chain and the post-parse fixes for item.
func (c *Coordinator) parse(ctx context.Context, item Item, hint FormatID, mediaType MediaType) *Descriptor {
	metrics.InFlightParses.Inc()
	defer metrics.InFlightParses.Dec()

	var strategies []strategy
	if item.Path == "" {
		strategies = c.streamStrategies(item.Stream)
	} else {
		strategies = c.fileStrategies(item.Path, hint, mediaType)
	}

	d, art := c.run(ctx, item.Key(), strategies)
	if d.SizeBytes == 0 {
		d.SizeBytes = item.size()
	}
	if err := guard(func() error {
		finalize(d, item.Path, mediaType)
		return nil
	}); err != nil {
		log.Emit(logger.WARNING, "Post-processing %q failed: %v\n", item.Key(), err)
		d.Warnings = append(d.Warnings, Warning{Stage: "finalize", Message: err.Error()})
	}

	parser := d.ParserName
	if parser == "" {
		parser = "none"
	}
	metrics.ParsesTotal.WithLabelValues(parser).Inc()

	if c.opts.thumbnails != nil {
		req := thumbnail.Request{Path: item.Path, MediaType: mediaType, Embedded: art}
		if err := guard(func() error {
			c.opts.thumbnails.Resolve(ctx, req, d)
			return nil
		}); err != nil {
			log.Emit(logger.WARNING, "Resolving the thumbnail of %q failed: %v\n", item.Key(), err)
		}
	}
	return d
}

// ResolveThumbnail resolves the thumbnail of a parsed item again and
// publishes the result as a new descriptor. A non-nil seek overrides the
// configured frame position. The previous thumbnail is kept when nothing
// new is found.
//
// It returns nil when item has not been parsed yet.
func (c *Coordinator) ResolveThumbnail(ctx context.Context, item Item, seek *float64) *Descriptor {
	e, ok := c.items.Load(item.Key())
	if !ok {
		return nil
	}
	e.mu.Lock()
	state, prev := e.state, e.desc
	e.mu.Unlock()
	if state != StateDone {
		return nil
	}
	if c.opts.thumbnails == nil {
		return prev
	}

	r := *c.opts.thumbnails
	if seek != nil {
		r.SeekSeconds = *seek
	}
	d := prev.Clone()
	d.ThumbnailRef, d.ThumbnailSource = nil, ThumbnailNone
	r.Resolve(ctx, thumbnail.Request{Path: item.Path, MediaType: mediaTypeOf(d)}, d)
	if d.ThumbnailRef == nil {
		d.ThumbnailRef, d.ThumbnailSource = prev.ThumbnailRef, prev.ThumbnailSource
	}

	e.mu.Lock()
	e.desc = d
	e.mu.Unlock()
	return d
}

// Thumbnail returns the stored thumbnail d refers to, or nil when d has
// none or thumbnails are disabled.
func (c *Coordinator) Thumbnail(ctx context.Context, d *Descriptor) (*Artwork, error) {
	if d == nil || d.ThumbnailRef == nil || c.opts.thumbnails == nil || c.opts.thumbnails.Store == nil {
		return nil, nil
	}
	art, err := c.opts.thumbnails.Store.Get(ctx, *d.ThumbnailRef)
	if err != nil {
		return nil, fmt.Errorf("get thumbnail %s: %w", d.ThumbnailRef, err)
	}
	return art, nil
}

// mediaTypeOf guesses the media type of a parsed item.
func mediaTypeOf(d *Descriptor) MediaType {
	switch {
	case d.Image != nil:
		return MediaImage
	case len(d.VideoTracks) > 0:
		return MediaVideo
	case len(d.AudioTracks) > 0:
		return MediaAudio
	default:
		return MediaUnknown
	}
}

// Request is one item of a ParseMany call.
type Request struct {
	Item      Item
	Hint      FormatID
	MediaType MediaType
}

// ParseMany parses items concurrently, up to runtime.NumCPU() at a time.
// Results are in request order. When ctx ends, requests not started yet
// are skipped and the context error is returned with the partial results.
//
// Example:
//
//	ds, err := c.ParseMany(ctx,
//	    mediaprobe.Request{Item: mediaprobe.FileItem("a.flac"), MediaType: mediaprobe.MediaAudio},
//	    mediaprobe.Request{Item: mediaprobe.FileItem("b.mkv"), MediaType: mediaprobe.MediaVideo},
//	)
func (c *Coordinator) ParseMany(ctx context.Context, reqs ...Request) ([]*Descriptor, error) {
	if len(reqs) == 0 {
		return nil, nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())

	results := make([]*Descriptor, len(reqs))
	for i, req := range reqs {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			results[i] = c.Parse(ctx, req.Item, req.Hint, req.MediaType)
			return nil
		})
	}

	return results, g.Wait()
}
