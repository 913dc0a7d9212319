package mediainfo

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simonhull/mediaprobe/internal/probe"
	"github.com/simonhull/mediaprobe/internal/types"
)

const movieReport = `General
Count                                    : 331
StreamKind                               : General
Format                                   : Matroska
Duration                                 : 5400500
Title                                    :
Cover_Data                               : SlBFRw==

Video
StreamOrder                              : 0
Format                                   : AVC
Width                                    : 1920
Height                                   : 1080

Audio #1
Format/String                            : AC-3
Language/String                          : English
Channel(s)                               : 6

Audio #2
Format/String                            : DTS

Bogus
Format                                   : ignored

Menu
Chapters_Pos_Begin                       : 103
Chapters_Pos_End                         : 105
00:00:00.000                             : en:Opening
00:05:00.000                             : en:Middle
`

func fakeTool(t *testing.T, name, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not executable on windows")
	}
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755))
	return path
}

// fakeMediaInfo answers --Version with a banner and prints movieReport for
// anything else, recording the arguments next to the script.
func fakeMediaInfo(t *testing.T) string {
	t.Helper()
	return fakeTool(t, "mediainfo", `if [ "$1" = "--Version" ]; then
  echo "MediaInfo Command line,"
  echo "MediaInfoLib - v23.04"
  exit 0
fi
echo "$@" > "$0.args"
cat <<'EOF'
`+movieReport+`EOF
`)
}

func TestParseReport(t *testing.T) {
	streams := parseReport([]byte(movieReport))

	require.Len(t, streams[General], 1)
	require.Len(t, streams[Video], 1)
	require.Len(t, streams[Audio], 2)
	require.Len(t, streams[Menu], 1)

	g := streams[General][0]
	assert.Equal(t, "Matroska", g.get("Format"))
	assert.Equal(t, "", g.get("Title"))
	assert.Equal(t, "SlBFRw==", g.get("Cover_Data"))
	assert.Equal(t, "DTS", streams[Audio][1].get("Format/String"))

	m := streams[Menu][0]
	assert.Equal(t, "2", m.get("Chapters_Pos_Begin"))
	assert.Equal(t, "3", m.get("Chapters_Pos_End"))
	assert.Equal(t, "00:05:00.000", m.fields[3].name)
	assert.Equal(t, "en:Middle", m.fields[3].value)
}

func TestParseReport_CRLF(t *testing.T) {
	streams := parseReport([]byte("General\r\nFormat : MPEG-4\r\n\r\nAudio\r\nFormat : AAC\r\n"))
	require.Len(t, streams[General], 1)
	assert.Equal(t, "MPEG-4", streams[General][0].get("Format"))
	assert.Equal(t, "AAC", streams[Audio][0].get("Format"))
}

func TestCLI_OptionsAndOpen(t *testing.T) {
	bin := fakeMediaInfo(t)
	c := NewCLI(bin, 0)

	assert.Equal(t, "MediaInfoLib - v23.04", c.Option("Info_Version", ""))
	c.Option("Language", "en")
	c.Option("Complete", "1")
	c.Option("Language", "raw")

	require.NoError(t, c.Open(context.Background(), "/media/movie.mkv"))
	args, err := os.ReadFile(bin + ".args")
	require.NoError(t, err)
	assert.Equal(t, "--Full --Language=raw --Complete=1 /media/movie.mkv", strings.TrimSpace(string(args)))

	assert.Equal(t, 2, c.Count(Audio))
	assert.Equal(t, 0, c.Count(Text))
	assert.Equal(t, "English", c.Get(Audio, 0, "Language/String"))
	assert.Equal(t, "", c.Get(Audio, 5, "Format"))
	assert.Equal(t, "00:00:00.000", c.GetAt(Menu, 0, 2, InfoName))
	assert.Equal(t, "en:Opening", c.GetAt(Menu, 0, 2, InfoText))
	assert.Equal(t, "", c.GetAt(Menu, 0, 99, InfoText))

	require.NoError(t, c.Close())
	assert.Equal(t, 0, c.Count(General))
}

func TestCLI_OpenFailure(t *testing.T) {
	bin := fakeTool(t, "mediainfo", "echo 'no such file' >&2\nexit 1\n")
	err := NewCLI(bin, 0).Open(context.Background(), "/missing.mkv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no such file")
}

func TestCLI_NotInstalled(t *testing.T) {
	err := NewCLI(filepath.Join(t.TempDir(), "mediainfo"), 0).Open(context.Background(), "/media/movie.mkv")
	require.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, err, probe.ErrNotFound)
}

func TestCLI_EmptyReport(t *testing.T) {
	bin := fakeTool(t, "mediainfo", "exit 0\n")
	require.Error(t, NewCLI(bin, 0).Open(context.Background(), "/media/empty.bin"))
}

func TestAdapter_OverCLI(t *testing.T) {
	a := NewAdapter(NewCLI(fakeMediaInfo(t), 0), nil)
	assert.Equal(t, "23.04", a.Version())

	d := &types.Descriptor{}
	art, err := a.Parse(context.Background(), "/media/movie.mkv", types.MediaVideo, d)
	require.NoError(t, err)

	require.NotNil(t, art)
	assert.Equal(t, []byte("JPEG"), art.Data)
	assert.Equal(t, types.FormatMKV, d.Container)
	assert.Empty(t, d.Title)

	require.Len(t, d.VideoTracks, 1)
	assert.Equal(t, types.FormatH264, d.VideoTracks[0].Codec)
	assert.Equal(t, "1920x1080", d.VideoTracks[0].Resolution())

	require.Len(t, d.AudioTracks, 2)
	assert.Equal(t, types.FormatAC3, d.AudioTracks[0].Codec)
	assert.Equal(t, "eng", d.AudioTracks[0].Lang)
	assert.Equal(t, 6, d.AudioTracks[0].Channels)
	assert.Equal(t, types.FormatDTS, d.AudioTracks[1].Codec)

	require.Len(t, d.Chapters, 2)
	assert.Equal(t, types.Chapter{ID: 1, Title: "Middle", Lang: "eng", StartSeconds: 300, EndSeconds: 5400.5}, d.Chapters[1])
}
