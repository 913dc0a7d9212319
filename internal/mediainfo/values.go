package mediainfo

import (
	"strconv"
	"strings"
	"time"

	"github.com/simonhull/mediaprobe/internal/logger"
)

// firstValue returns the part of a multi-value field before the first " / ".
func firstValue(v string) string {
	if i := strings.IndexByte(v, '/'); i >= 0 {
		v = v[:i]
	}
	return strings.TrimSpace(v)
}

// pixels parses widths and heights such as "1920", "1 920 pixels" or "512 / 512".
func pixels(v string) int {
	if i := strings.Index(v, "pixel"); i >= 0 {
		v = v[:i]
	}
	v = strings.ReplaceAll(firstValue(v), " ", "")
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Emit(logger.DEBUG, "Could not parse pixels %q: %v\n", v, err)
		return 0
	}
	return n
}

// bitrate parses a bit rate in bits per second, keeping the first of
// several values.
func bitrate(v string) int {
	v = firstValue(v)
	if v == "" {
		return 0
	}
	if i := strings.IndexByte(v, '.'); i > 0 {
		v = v[:i]
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Emit(logger.VERBOSE, "Could not parse bitrate %q: %v\n", v, err)
		return 0
	}
	return n
}

// sampleRate parses "48000", "48000 / 48000 / 24000" or "44.1 khz".
func sampleRate(v string) int {
	v = strings.ToLower(firstValue(v))
	khz := false
	if i := strings.Index(v, "khz"); i >= 0 {
		v, khz = strings.TrimSpace(v[:i]), true
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0
	}
	if khz {
		f *= 1000
	}
	return int(f)
}

// frameRate parses "23.976" or "25.000 fps".
func frameRate(v string) float64 {
	if i := strings.Index(v, "fps"); i >= 0 {
		v = v[:i]
	}
	f, err := strconv.ParseFloat(firstValue(v), 64)
	if err != nil {
		return 0
	}
	return f
}

// leadingInt parses the number at the start of v, as in "6", "2 / 1" or "0-1".
func leadingInt(v string) int {
	v = strings.TrimSpace(v)
	end := 0
	for end < len(v) && v[end] >= '0' && v[end] <= '9' {
		end++
	}
	n, _ := strconv.Atoi(v[:end])
	return n
}

// durationSeconds parses a duration in milliseconds. Of several values the
// last one wins.
func durationSeconds(v string) (float64, bool) {
	if strings.TrimSpace(v) == "" {
		return 0, false
	}
	parts := strings.Split(v, "/")
	v = strings.TrimSpace(parts[len(parts)-1])
	if i := strings.IndexByte(v, '.'); i > 0 {
		v = v[:i]
	}
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		log.Emit(logger.WARNING, "Could not parse duration from %q\n", v)
		return 0, false
	}
	return float64(ms) / 1000, true
}

// specificID reads the stream id of an "ID/String" value. For
// "streamID-substreamID" forms such as "189 (0xBD)-32 (0x80)" the
// substream id is used.
func specificID(v string) (int, bool) {
	end := strings.LastIndex(v, "(0x")
	if end < 0 {
		return 0, false
	}
	start := strings.LastIndexByte(v, '-') + 1
	if start > end {
		start = 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(v[start:end]))
	if err != nil {
		return 0, false
	}
	return n, true
}

// language strips qualifiers from "English (United States)" or "en / eng".
func language(v string) string {
	if i := strings.IndexByte(v, '('); i >= 0 {
		v = v[:i]
	}
	return firstValue(v)
}

// chapterStart parses a chapter entry name in HH:mm:ss.SSS form.
func chapterStart(name string) (float64, bool) {
	t, err := time.Parse("15:04:05.000", name)
	if err != nil {
		return 0, false
	}
	return float64(t.Hour()*3600+t.Minute()*60+t.Second()) + float64(t.Nanosecond())/1e9, true
}

// splitChapterTitle separates the language prefix of a chapter title, as in
// "en:Opening". A bare leading colon means no language.
func splitChapterTitle(title string) (lang, rest string) {
	if strings.HasPrefix(title, ":") {
		return "", title[1:]
	}
	// long titles shaped like a HH:MM:SS timestamp carry no prefix
	if len(title) > 2 && title[2] == ':' && (len(title) < 15 || title[5] != ':' || title[8] == ':') {
		return title[:2], title[3:]
	}
	return "", title
}
