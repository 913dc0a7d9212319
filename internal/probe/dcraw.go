package probe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/simonhull/mediaprobe/internal/logger"
)

// ErrNoThumbnail is returned when a raw file carries no embedded preview.
var ErrNoThumbnail = errors.New("no embedded thumbnail")

// DCRaw reads camera raw files.
type DCRaw struct {
	Path   string
	Runner Runner
}

func NewDCRaw(path string, timeout time.Duration) *DCRaw {
	if strings.TrimSpace(path) == "" {
		path = "dcraw"
	}
	return &DCRaw{Path: path, Runner: Runner{Timeout: timeout}}
}

// Dimensions returns the size of the image dcraw would develop from path.
func (c *DCRaw) Dimensions(ctx context.Context, path string) (width, height int, err error) {
	res, err := c.Runner.Run(ctx, c.Path, nil, "-i", "-v", path)
	if err != nil {
		return 0, 0, err
	}
	width, height, ok := ParseOutputSize(res.Lines())
	if !ok {
		return 0, 0, fmt.Errorf("dcraw reported no output size for %s", path)
	}
	return width, height, nil
}

// ParseOutputSize finds "Output size: W x H" in dcraw's verbose identification.
func ParseOutputSize(lines []string) (width, height int, ok bool) {
	for _, line := range lines {
		_, size, found := strings.Cut(line, "Output size:")
		if !found {
			continue
		}
		w, h, _ := strings.Cut(size, "x")
		var errW, errH error
		width, errW = strconv.Atoi(strings.TrimSpace(w))
		height, errH = strconv.Atoi(strings.TrimSpace(h))
		if errW != nil || errH != nil {
			log.Emit(logger.DEBUG, "Could not parse dcraw output size %q\n", line)
			continue
		}
		return width, height, true
	}
	return 0, 0, false
}

// Thumbnail extracts the preview image embedded in a raw file.
func (c *DCRaw) Thumbnail(ctx context.Context, path string) ([]byte, error) {
	res, err := c.Runner.Run(ctx, c.Path, nil, "-e", "-c", "-M", "-w", path)
	if err != nil {
		return nil, err
	}
	if len(res.Stdout) == 0 || bytes.Contains(res.Stderr, []byte("has no thumbnail")) {
		return nil, fmt.Errorf("%s: %w", path, ErrNoThumbnail)
	}
	return res.Stdout, nil
}
