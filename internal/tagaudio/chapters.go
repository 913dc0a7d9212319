package tagaudio

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/simonhull/mediaprobe/internal/logger"
	"github.com/simonhull/mediaprobe/internal/types"
)

// commentChapters extracts chapters from Vorbis CHAPTER comments, as found
// in FLAC and Ogg files:
//
//	CHAPTER001=00:00:00.000
//	CHAPTER001NAME=Introduction
//	CHAPTER002=00:05:23.500
//
// Chapters are ordered by number. Each ends where the next one starts and
// the last one at duration, when known. Chapters with an unreadable start
// are dropped.
func commentChapters(raw map[string]any, duration float64) []types.Chapter {
	type marker struct {
		number int
		start  float64
		title  string
		hasPos bool
	}
	byNumber := make(map[int]*marker)
	get := func(n int) *marker {
		if byNumber[n] == nil {
			byNumber[n] = &marker{number: n}
		}
		return byNumber[n]
	}

	for name, v := range raw {
		value, ok := v.(string)
		if !ok {
			continue
		}
		key := strings.ToUpper(strings.TrimSpace(name))
		if !strings.HasPrefix(key, "CHAPTER") {
			continue
		}
		value = strings.TrimSpace(value)

		if num, ok := strings.CutSuffix(strings.TrimPrefix(key, "CHAPTER"), "NAME"); ok {
			n, err := strconv.Atoi(num)
			if err != nil {
				continue
			}
			get(n).title = value
			continue
		}

		n, err := strconv.Atoi(strings.TrimPrefix(key, "CHAPTER"))
		if err != nil {
			continue
		}
		start, err := chapterTimestamp(value)
		if err != nil {
			log.Emit(logger.VERBOSE, "Ignoring chapter %d: %v\n", n, err)
			continue
		}
		m := get(n)
		m.start, m.hasPos = start, true
	}

	var markers []*marker
	for _, m := range byNumber {
		if m.hasPos {
			markers = append(markers, m)
		}
	}
	if len(markers) == 0 {
		return nil
	}
	slices.SortFunc(markers, func(a, b *marker) int {
		return cmp.Compare(a.number, b.number)
	})

	chapters := make([]types.Chapter, len(markers))
	for i, m := range markers {
		end := duration
		if i < len(markers)-1 {
			end = markers[i+1].start
		}
		title := m.title
		if types.IsDefaultChapterTitle(title) {
			title = ""
		}
		chapters[i] = types.Chapter{
			ID:           i,
			Title:        title,
			StartSeconds: m.start,
			EndSeconds:   max(end, m.start),
		}
	}
	return chapters
}

// chapterTimestamp parses HH:MM:SS.mmm, MM:SS.mmm or SS.mmm into seconds.
func chapterTimestamp(ts string) (float64, error) {
	parts := strings.Split(ts, ":")
	if len(parts) > 3 {
		return 0, fmt.Errorf("invalid timestamp %q", ts)
	}

	seconds, err := strconv.ParseFloat(parts[len(parts)-1], 64)
	if err != nil || seconds < 0 || seconds >= 60 {
		return 0, fmt.Errorf("invalid seconds in timestamp %q", ts)
	}

	var hours, minutes int
	if len(parts) >= 2 {
		minutes, err = strconv.Atoi(parts[len(parts)-2])
		if err != nil || minutes < 0 || minutes >= 60 {
			return 0, fmt.Errorf("invalid minutes in timestamp %q", ts)
		}
	}
	if len(parts) == 3 {
		hours, err = strconv.Atoi(parts[0])
		if err != nil || hours < 0 {
			return 0, fmt.Errorf("invalid hours in timestamp %q", ts)
		}
	}
	return float64(hours*3600+minutes*60) + seconds, nil
}
