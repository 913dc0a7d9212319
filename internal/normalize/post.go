package normalize

import (
	"slices"

	"github.com/simonhull/mediaprobe/internal/types"
)

// audioVariants maps audio/video containers to the identifier used when
// the file carries audio only.
var audioVariants = map[types.FormatID]types.FormatID{
	types.FormatMP4:   types.FormatM4A,
	types.FormatMKV:   types.FormatMKA,
	types.FormatOGG:   types.FormatOGA,
	types.FormatRM:    types.FormatRA,
	types.FormatMPEG1: types.FormatMPA,
	types.FormatMPEG2: types.FormatMPA,
	types.Format3GP:   types.Format3GA,
	types.Format3G2:   types.Format3GA,
	types.FormatWebM:  types.FormatWEBA,
	types.FormatWMV:   types.FormatWMA,
}

// AudioVariant returns the audio-only identifier for container.
func AudioVariant(container types.FormatID) (types.FormatID, bool) {
	f, ok := audioVariants[container]
	return f, ok
}

// ApplyAudioVariant rewrites the container of an audio-only descriptor to
// its audio variant.
func ApplyAudioVariant(d *types.Descriptor) {
	if !d.AudioOnly() {
		return
	}
	if f, ok := AudioVariant(d.Container); ok {
		d.Container = f
	}
}

var (
	wmvVideoCodecs = []types.FormatID{types.FormatWMV, types.FormatVC1}
	wmaAudioCodecs = []types.FormatID{
		types.FormatWMA, types.FormatWMAPro, types.FormatWMALossless,
		types.FormatWMAVoice, types.FormatWMA10, types.FormatMP3,
	}
)

// SplitASF downgrades a WMV container to ASF when its streams are not the
// ones a WMV file may carry.
func SplitASF(d *types.Descriptor) {
	if d.Container != types.FormatWMV {
		return
	}
	if vc := d.VideoCodec(); vc.Known() && !slices.Contains(wmvVideoCodecs, vc) {
		d.Container = types.FormatASF
		return
	}
	for _, a := range d.AudioTracks {
		if a.Codec.Known() && !slices.Contains(wmaAudioCodecs, a.Codec) {
			d.Container = types.FormatASF
			return
		}
	}
}

// Finalize applies the post-parse fixes shared by every backend: container
// from the extension of path when still unknown, "und" defaults, and the
// MIME type.
func Finalize(d *types.Descriptor, path string, mediaType types.MediaType) {
	if d.Container.IsEmpty() && path != "" {
		d.Container = types.FromExtension(path)
	}
	d.FillDefaults()
	if d.MIMEType == "" {
		d.MIMEType = MIMEType(d, mediaType)
	}
}
