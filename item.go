package mediaprobe

import (
	"io"
	"os"
	"path/filepath"
)

// Item is something to parse: a local file, or a stream that is read once.
type Item struct {
	// ID keys the item in the Coordinator. It defaults to the cleaned Path
	// and must be set for streams that should be parsed only once.
	ID string

	Path string

	// Stream is read when Path is empty. Its size is not known upfront.
	Stream io.Reader
}

// FileItem returns the item for the file at path.
func FileItem(path string) Item {
	return Item{Path: path}
}

// StreamItem returns an item reading r, keyed by id.
func StreamItem(id string, r io.Reader) Item {
	return Item{ID: id, Stream: r}
}

// Key identifies the item in the Coordinator. Items with an empty key are
// parsed on every call.
func (i Item) Key() string {
	if i.ID != "" {
		return i.ID
	}
	if i.Path == "" {
		return ""
	}
	return filepath.Clean(i.Path)
}

// size returns the size of the item's file, or 0 when unknown.
func (i Item) size() uint64 {
	if i.Path == "" {
		return 0
	}
	fi, err := os.Stat(i.Path)
	if err != nil || fi.IsDir() {
		return 0
	}
	return uint64(fi.Size())
}
