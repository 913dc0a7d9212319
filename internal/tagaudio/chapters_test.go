package tagaudio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simonhull/mediaprobe/internal/types"
)

func TestCommentChapters(t *testing.T) {
	raw := map[string]any{
		"chapter010":     "01:02:03.250",
		"chapter002":     "05:00",
		"chapter002name": "Chapter 2",
		"chapter001":     "0",
		"chapter001name": "Opening",
		"chapter003name": "No start",
		"chapter004":     "99:99",
		"chapterx":       "00:00:01",
		"title":          "Book",
		"picture":        []byte{1, 2},
	}

	chapters := commentChapters(raw, 4000)
	require.Len(t, chapters, 3)
	assert.Equal(t, types.Chapter{ID: 0, Title: "Opening", StartSeconds: 0, EndSeconds: 300}, chapters[0])
	assert.Equal(t, types.Chapter{ID: 1, StartSeconds: 300, EndSeconds: 3723.25}, chapters[1])
	assert.Equal(t, types.Chapter{ID: 2, StartSeconds: 3723.25, EndSeconds: 4000}, chapters[2])
}

func TestCommentChapters_UnknownDuration(t *testing.T) {
	chapters := commentChapters(map[string]any{"chapter001": "00:01:00"}, 0)
	require.Len(t, chapters, 1)
	assert.Equal(t, 60.0, chapters[0].EndSeconds)

	assert.Nil(t, commentChapters(map[string]any{"chapter001name": "Only a name"}, 10))
}

func TestChapterTimestamp(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{"00:00:00.000", 0, false},
		{"01:30:15.5", 5415.5, false},
		{"02:03", 123, false},
		{"7.25", 7.25, false},
		{"00:60:00", 0, true},
		{"00:00:60", 0, true},
		{"1:2:3:4", 0, true},
		{"abc", 0, true},
		{"-1", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := chapterTimestamp(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}
