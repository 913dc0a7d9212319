package mediaprobe

import (
	"github.com/simonhull/mediaprobe/internal/types"
)

// Chapter is an alias to types.Chapter. A chapter ends where the next one
// starts; the last one ends with the item.
type Chapter = types.Chapter
