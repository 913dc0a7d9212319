package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simonhull/mediaprobe/internal/types"
)

func solid(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 40, B: 40, A: 255})
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestProbe(t *testing.T) {
	info, err := Probe(bytes.NewReader(encodePNG(t, solid(40, 30))))
	require.NoError(t, err)
	assert.Equal(t, types.ImageInfo{Format: types.FormatPNG, Width: 40, Height: 30}, info)

	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, solid(16, 8), nil))
	info, err = Probe(&buf)
	require.NoError(t, err)
	assert.Equal(t, types.ImageInfo{Format: types.FormatJPG, Width: 16, Height: 8}, info)
}

func TestProbe_Unknown(t *testing.T) {
	_, err := Probe(strings.NewReader("definitely not an image"))
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestBound_KeepsSmallImages(t *testing.T) {
	data := encodePNG(t, solid(100, 50))
	art, err := Bound(data, ImageMaxWidth, ImageMaxHeight)
	require.NoError(t, err)
	assert.Equal(t, "image/png", art.MIMEType)
	assert.Equal(t, data, art.Data)
	assert.Equal(t, 100, art.Width)
	assert.Equal(t, 50, art.Height)
}

func TestBound_Scales(t *testing.T) {
	art, err := Bound(encodePNG(t, solid(1280, 720)), VideoMaxWidth, VideoMaxHeight)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", art.MIMEType)
	assert.Equal(t, 640, art.Width)
	assert.Equal(t, 360, art.Height)

	cfg, err := jpeg.DecodeConfig(bytes.NewReader(art.Data))
	require.NoError(t, err)
	assert.Equal(t, 640, cfg.Width)
	assert.Equal(t, 360, cfg.Height)
}

func TestBound_ReencodesGIF(t *testing.T) {
	pal := image.NewPaletted(image.Rect(0, 0, 10, 10), color.Palette{color.Black, color.White})
	var buf bytes.Buffer
	require.NoError(t, gif.Encode(&buf, pal, nil))

	art, err := Bound(buf.Bytes(), ImageMaxWidth, ImageMaxHeight)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", art.MIMEType)
	assert.Equal(t, 10, art.Width)
}

func TestFit(t *testing.T) {
	tests := []struct {
		name         string
		w, h         int
		maxW, maxH   int
		wantW, wantH int
	}{
		{"fits", 300, 200, 320, 320, 300, 200},
		{"landscape", 1920, 1080, 640, 480, 640, 360},
		{"portrait", 1080, 1920, 640, 480, 270, 480},
		{"square", 1000, 1000, 320, 320, 320, 320},
		{"sliver", 10000, 1, 320, 320, 320, 1},
		{"unknown size", 0, 0, 320, 320, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := Fit(tt.w, tt.h, tt.maxW, tt.maxH)
			assert.Equal(t, tt.wantW, w)
			assert.Equal(t, tt.wantH, h)
		})
	}
}
