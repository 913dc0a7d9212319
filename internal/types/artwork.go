package types

import "fmt"

// Artwork is an embedded image found while parsing: a tag picture, MediaInfo
// cover data, a camera raw preview, or the image file itself.
type Artwork struct {
	// MIME type of the image data, e.g. "image/jpeg". May be empty.
	MIMEType string

	Description string

	Data []byte

	// Dimensions if known, otherwise 0.
	Width  int
	Height int
}

// String returns a human-readable description of the artwork.
//
// Example output: "1200x1200 JPEG, 245KB"
func (a Artwork) String() string {
	dims := ""
	if a.Width > 0 && a.Height > 0 {
		dims = fmt.Sprintf("%dx%d ", a.Width, a.Height)
	}
	return fmt.Sprintf("%s%s, %s", dims, mimeToFormat(a.MIMEType), formatSize(len(a.Data)))
}

// formatSize formats byte size in human-readable form.
func formatSize(bytes int) string {
	const (
		KB = 1024
		MB = 1024 * KB
	)

	switch {
	case bytes >= MB:
		return fmt.Sprintf("%.1fMB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%dKB", bytes/KB)
	default:
		return fmt.Sprintf("%dB", bytes)
	}
}

func mimeToFormat(mime string) string {
	switch mime {
	case "image/jpeg":
		return "JPEG"
	case "image/png":
		return "PNG"
	case "image/gif":
		return "GIF"
	case "image/bmp":
		return "BMP"
	case "image/tiff":
		return "TIFF"
	case "image/webp":
		return "WebP"
	default:
		return "Image"
	}
}
