package mediaprobe

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simonhull/mediaprobe/internal/types"
)

// waveHeader creates a RIFF/WAVE header whose fmt chunk carries formatTag.
func waveHeader(formatTag uint16) []byte {
	buf := &bytes.Buffer{}
	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, uint32(36))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(buf, binary.LittleEndian, uint32(16))
	binary.Write(buf, binary.LittleEndian, formatTag)
	buf.Write(make([]byte, 14))
	return buf.Bytes()
}

func TestDetectHint(t *testing.T) {
	tests := []struct {
		name string
		path string
		data []byte
		want FormatID
	}{
		{"realaudio magic", "song.bin", []byte(".ra\xFD\x00\x03"), FormatRA},
		{"adpcm wave", "voice.wav", waveHeader(0x0011), FormatADPCM},
		{"pcm wave", "voice.wav", waveHeader(0x0001), types.FormatWAV},
		{"dsf magic", "a.bin", []byte("DSD \x1c\x00\x00\x00"), FormatDSF},
		{"png magic beats extension", "cover.jpg", []byte("\x89PNG\r\n\x1a\n"), types.FormatPNG},
		{"pnm magic", "scan.bin", []byte("P6\n2 2\n255\n"), FormatPNM},
		{"camera raw by extension", "IMG_1.NEF", []byte("MM\x00*"), FormatRAW},
		{"iso by extension", "disc.iso", []byte("\x00\x00\x00\x00"), FormatISO},
		{"unknown", "notes.txt", []byte("hello world"), FormatNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetectHint(tt.path, bytes.NewReader(tt.data), int64(len(tt.data)))
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("nil reader uses extension", func(t *testing.T) {
		assert.Equal(t, FormatDFF, DetectHint("album.dff", nil, 0))
	})
}

func TestDetectFile(t *testing.T) {
	path := writeFile(t, "track", realAudioV3("Song", "Band", 16))
	hint, err := DetectFile(path)
	require.NoError(t, err)
	assert.Equal(t, FormatRA, hint)

	_, err = DetectFile(path + ".missing")
	assert.Error(t, err)
}

func TestGuessMediaType(t *testing.T) {
	tests := []struct {
		hint FormatID
		want MediaType
	}{
		{FormatRA, MediaAudio},
		{FormatDSF, MediaAudio},
		{types.FormatFLAC, MediaAudio},
		{FormatRAW, MediaImage},
		{FormatPNM, MediaImage},
		{types.FormatPNG, MediaImage},
		{types.FormatMKV, MediaVideo},
		{types.FormatOGG, MediaVideo},
		{FormatISO, MediaVideo},
		{FormatNone, MediaVideo},
	}

	for _, tt := range tests {
		t.Run(string(tt.hint), func(t *testing.T) {
			assert.Equal(t, tt.want, GuessMediaType(tt.hint))
		})
	}
}
