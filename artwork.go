package mediaprobe

import (
	"github.com/simonhull/mediaprobe/internal/types"
)

// Artwork is an image found while parsing or a stored thumbnail.
type Artwork = types.Artwork

// ImageInfo describes a still image.
type ImageInfo = types.ImageInfo

// ThumbnailSource records where a descriptor's thumbnail came from.
type ThumbnailSource = types.ThumbnailSource

const (
	ThumbnailNone           = types.ThumbnailNone
	ThumbnailEmbedded       = types.ThumbnailEmbedded
	ThumbnailRemoteProvider = types.ThumbnailRemoteProvider
	ThumbnailSeekExtraction = types.ThumbnailSeekExtraction
)
