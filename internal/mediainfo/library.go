// Package mediainfo reads media through MediaInfo.
//
// Library is the narrow surface of MediaInfoLib the adapter needs; CLI
// implements it on top of the mediainfo command line tool. Adapter turns
// the fields of an opened file into a descriptor.
package mediainfo

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"strings"
)

// ErrUnavailable is returned when MediaInfo cannot be used at all.
var ErrUnavailable = errors.New("mediainfo unavailable")

// StreamKind selects a group of streams in an opened file.
type StreamKind int

const (
	General StreamKind = iota
	Video
	Audio
	Text
	Other
	Image
	Menu
)

var streamKindNames = [...]string{"General", "Video", "Audio", "Text", "Other", "Image", "Menu"}

func (k StreamKind) String() string {
	if int(k) < len(streamKindNames) {
		return streamKindNames[k]
	}
	return "StreamKind(" + strconv.Itoa(int(k)) + ")"
}

// streamKindFromName maps a report section title such as "Audio #2" to its kind.
func streamKindFromName(name string) (StreamKind, bool) {
	name, _, _ = strings.Cut(name, " #")
	for i, n := range streamKindNames {
		if strings.EqualFold(n, strings.TrimSpace(name)) {
			return StreamKind(i), true
		}
	}
	return 0, false
}

// InfoKind selects what GetAt returns for a field position.
type InfoKind int

const (
	InfoName InfoKind = iota
	InfoText
)

// Library is an opened-file view of MediaInfo. Implementations are not
// safe for concurrent use.
type Library interface {
	// Open reads path. Fields of a previously opened file are discarded.
	Open(ctx context.Context, path string) error

	// Option sets a library option and returns the library's answer.
	// Info_Version returns the version banner.
	Option(name, value string) string

	// Count returns the number of streams of kind.
	Count(kind StreamKind) int

	// Get returns the value of field in stream index of kind, or "".
	Get(kind StreamKind, index int, field string) string

	// GetAt returns the name or the value of the field at position pos.
	GetAt(kind StreamKind, index, pos int, info InfoKind) string

	Close() error
}

var versionBanner = regexp.MustCompile(`(?i)MediaInfoLib - v(\S+)`)

// ParseVersion extracts the version number from an Info_Version banner.
func ParseVersion(banner string) string {
	if m := versionBanner.FindStringSubmatch(banner); m != nil {
		return m[1]
	}
	return ""
}

// VersionGreater reports whether dotted version a is newer than b.
// Components compare numerically, so "18.5" is newer than "18.03".
func VersionGreater(a, b string) bool {
	pa, pb := strings.Split(a, "."), strings.Split(b, ".")
	for i := 0; i < max(len(pa), len(pb)); i++ {
		var x, y int
		if i < len(pa) {
			x, _ = strconv.Atoi(pa[i])
		}
		if i < len(pb) {
			y, _ = strconv.Atoi(pb[i])
		}
		if x != y {
			return x > y
		}
	}
	return false
}

// Options returns the options applied before the first file is opened,
// in order, for a library of the given version.
func Options(version string) [][2]string {
	opts := [][2]string{
		{"Internet", "No"},
		{"Complete", "1"},
		{"Language", "en"},
		{"File_TestContinuousFileNames", "0"},
	}
	if version == "" {
		return opts
	}
	if VersionGreater(version, "18.03") {
		opts = append(opts, [2]string{"Language", "raw"}, [2]string{"Cover_Data", "base64"})
	}
	if VersionGreater(version, "18.5") {
		opts = append(opts,
			[2]string{"LegacyStreamDisplay", "1"},
			[2]string{"File_HighestFormat", "0"},
			[2]string{"File_ChannelLayout", "1"},
			[2]string{"Legacy", "1"},
		)
	}
	return opts
}
