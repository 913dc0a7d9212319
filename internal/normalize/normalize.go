// Package normalize maps the vendor strings reported by media backends to
// canonical format identifiers.
//
// Values are looked up in an ordered rule table (see Rules). Some rules
// depend on what is already known about the item, e.g. "layer 3" only means
// MP3 when the audio codec is MPEG audio, and some rewrite that knowledge,
// e.g. the same rule corrects an "mpa" container to "mp3". Both happen
// through a Context the caller threads through successive lookups.
package normalize

import (
	"strings"

	"github.com/simonhull/mediaprobe/internal/types"
)

// StreamKind tells which part of an item a raw value describes.
type StreamKind int

const (
	General StreamKind = iota
	Video
	Audio
	Image
)

func (k StreamKind) String() string {
	switch k {
	case Video:
		return "video"
	case Audio:
		return "audio"
	case Image:
		return "image"
	default:
		return "general"
	}
}

// Context is what is known about an item while its values are normalized.
// Rules read it and may update it.
type Context struct {
	Container   types.FormatID
	VideoCodec  types.FormatID
	AudioCodec  types.FormatID
	ImageFormat types.FormatID
	AvcLevel    string
	AvcProfile  string
}

// Normalize looks raw up in the rule table. It returns the canonical
// identifier and true, or false when no rule yields a format. ctx may be
// updated by the matching rule even when no format is returned.
func Normalize(kind StreamKind, raw string, ctx *Context) (types.FormatID, bool) {
	_, f := lookup(kind, raw, ctx)
	return f, f != types.FormatNone
}

// lookup returns the index of the rule that claimed raw (-1 when none did)
// and what it resolved to.
func lookup(kind StreamKind, raw string, ctx *Context) (int, types.FormatID) {
	if ctx == nil {
		ctx = &Context{}
	}
	v := strings.ToLower(strings.TrimSpace(raw))
	if v == "" {
		return -1, types.FormatNone
	}
	for i, r := range Rules {
		if r.Match(v, kind, ctx) {
			return i, r.Resolve(v, kind, ctx)
		}
	}
	return -1, types.FormatNone
}

// Apply normalizes raw and stores the result in the ctx field matching
// kind. For General values that match nothing while the container is still
// unknown, the container is taken from the extension of path.
// It reports whether a format was assigned.
func Apply(kind StreamKind, raw string, ctx *Context, path string) bool {
	if strings.TrimSpace(raw) == "" {
		return false
	}
	f, ok := Normalize(kind, raw, ctx)
	if !ok {
		if kind == General && ctx.Container.IsEmpty() {
			ctx.Container = types.FromExtension(path)
		}
		return false
	}

	switch kind {
	case General:
		ctx.Container = f
	case Video:
		ctx.VideoCodec = f
	case Audio:
		ctx.AudioCodec = f
	case Image:
		ctx.ImageFormat = f
	}
	return true
}
