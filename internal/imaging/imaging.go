// Package imaging probes image headers and scales thumbnails.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/simonhull/mediaprobe/internal/types"
)

// Bounds for stored thumbnails.
const (
	ImageMaxWidth  = 320
	ImageMaxHeight = 320
	VideoMaxWidth  = 640
	VideoMaxHeight = 480
)

const jpegQuality = 85

// ErrUnknownFormat is returned for data no registered decoder recognises.
var ErrUnknownFormat = errors.New("unknown image format")

var formats = map[string]types.FormatID{
	"jpeg": types.FormatJPG,
	"png":  types.FormatPNG,
	"gif":  types.FormatGIF,
	"bmp":  types.FormatBMP,
	"tiff": types.FormatTIFF,
	"webp": types.FormatWebP,
}

var mimeTypes = map[string]string{
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"bmp":  "image/bmp",
	"tiff": "image/tiff",
	"webp": "image/webp",
}

// Probe reads the format and dimensions of an image without decoding it.
func Probe(r io.Reader) (types.ImageInfo, error) {
	cfg, name, err := image.DecodeConfig(r)
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return types.ImageInfo{}, ErrUnknownFormat
		}
		return types.ImageInfo{}, fmt.Errorf("read image header: %w", err)
	}
	return types.ImageInfo{Format: formats[name], Width: cfg.Width, Height: cfg.Height}, nil
}

// Bound decodes data and returns it as artwork no larger than maxWidth by
// maxHeight, keeping the aspect ratio. JPEG and PNG images that already fit
// are returned unchanged; everything else is re-encoded as JPEG.
func Bound(data []byte, maxWidth, maxHeight int) (*types.Artwork, error) {
	cfg, name, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return nil, ErrUnknownFormat
		}
		return nil, fmt.Errorf("read image header: %w", err)
	}

	w, h := Fit(cfg.Width, cfg.Height, maxWidth, maxHeight)
	if w == cfg.Width && h == cfg.Height && (name == "jpeg" || name == "png") {
		return &types.Artwork{MIMEType: mimeTypes[name], Data: data, Width: w, Height: h}, nil
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode %s image: %w", name, err)
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}
	return &types.Artwork{MIMEType: "image/jpeg", Data: buf.Bytes(), Width: w, Height: h}, nil
}

// Fit scales width x height down to fit within maxWidth x maxHeight. Sizes
// that already fit, and non-positive bounds, are returned unchanged.
func Fit(width, height, maxWidth, maxHeight int) (int, int) {
	if width <= 0 || height <= 0 || maxWidth <= 0 || maxHeight <= 0 {
		return width, height
	}
	if width <= maxWidth && height <= maxHeight {
		return width, height
	}
	if width*maxHeight > height*maxWidth {
		return maxWidth, max(1, height*maxWidth/width)
	}
	return max(1, width*maxHeight/height), maxHeight
}
