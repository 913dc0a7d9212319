package tagaudio

import (
	"bytes"
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simonhull/mediaprobe/internal/types"
)

func put(buf *bytes.Buffer, order binary.ByteOrder, values ...any) {
	for _, v := range values {
		_ = binary.Write(buf, order, v)
	}
}

func blockHeader(buf *bytes.Buffer, last bool, typ byte, size int) {
	h := uint32(typ)<<24 | uint32(size)
	if last {
		h |= 1 << 31
	}
	put(buf, binary.BigEndian, h)
}

func vorbisComments(comments ...string) []byte {
	var b bytes.Buffer
	vendor := "reference libFLAC 1.4.3"
	put(&b, binary.LittleEndian, uint32(len(vendor)))
	b.WriteString(vendor)
	put(&b, binary.LittleEndian, uint32(len(comments)))
	for _, c := range comments {
		put(&b, binary.LittleEndian, uint32(len(c)))
		b.WriteString(c)
	}
	return b.Bytes()
}

func pictureBlock(mime string, data []byte) []byte {
	var b bytes.Buffer
	put(&b, binary.BigEndian, uint32(3), uint32(len(mime)))
	b.WriteString(mime)
	desc := "front"
	put(&b, binary.BigEndian, uint32(len(desc)))
	b.WriteString(desc)
	put(&b, binary.BigEndian, uint32(500), uint32(500), uint32(24), uint32(0), uint32(len(data)))
	b.Write(data)
	return b.Bytes()
}

// flacFile builds a FLAC stream of 10 seconds at 44.1 kHz, 16-bit stereo,
// followed by the given Vorbis comments and an optional picture.
func flacFile(picture []byte, comments ...string) []byte {
	var buf bytes.Buffer
	buf.WriteString("fLaC")

	blockHeader(&buf, false, 0, 34)
	info := make([]byte, 34)
	packed := uint64(44100)<<44 | uint64(1)<<41 | uint64(15)<<36 | 441000
	binary.BigEndian.PutUint64(info[10:], packed)
	buf.Write(info)

	vc := vorbisComments(comments...)
	blockHeader(&buf, picture == nil, 4, len(vc))
	buf.Write(vc)

	if picture != nil {
		blockHeader(&buf, true, 6, len(picture))
		buf.Write(picture)
	}
	return buf.Bytes()
}

func id3Frame(buf *bytes.Buffer, id string, payload []byte) {
	buf.WriteString(id)
	put(buf, binary.BigEndian, uint32(len(payload)), uint16(0))
	buf.Write(payload)
}

// id3File builds an ID3v2.3 tag with no audio after it.
func id3File(rating byte) []byte {
	var frames bytes.Buffer
	id3Frame(&frames, "TIT2", append([]byte{0}, "Blue in Green"...))
	id3Frame(&frames, "TPE1", append([]byte{0}, "Miles Davis"...))
	id3Frame(&frames, "TXXX", append([]byte{0}, "MusicBrainz Album Id\x00b1a9c0e9-d987-4042-ae91-78d6a3267d69"...))
	id3Frame(&frames, "UFID", []byte("http://musicbrainz.org\x0016eba2e2-8a1d-4a8f-9a8e-1f1d1c7a5b43"))
	id3Frame(&frames, "POPM", append([]byte("rater@example.com\x00"), rating, 0, 0, 0, 1))

	var buf bytes.Buffer
	buf.WriteString("ID3")
	buf.Write([]byte{3, 0, 0})
	size := frames.Len()
	buf.Write([]byte{byte(size >> 21 & 0x7f), byte(size >> 14 & 0x7f), byte(size >> 7 & 0x7f), byte(size & 0x7f)})
	buf.Write(frames.Bytes())
	return buf.Bytes()
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestParse_FLAC(t *testing.T) {
	cover := []byte("\x89PNG fake cover")
	path := writeFile(t, "track.flac", flacFile(pictureBlock("image/png", cover),
		"TITLE=So What",
		"ARTIST=Miles Davis",
		"ALBUM=Kind of Blue",
		"ALBUMARTIST=Miles Davis",
		"COMPOSER=Miles Davis",
		"GENRE=Jazz",
		"DATE=1959-08-17",
		"TRACKNUMBER=1",
		"DISCNUMBER=1",
		"MUSICBRAINZ_ALBUMID=b1a9c0e9-d987-4042-ae91-78d6a3267d69",
		"MUSICBRAINZ_TRACKID=16eba2e2-8a1d-4a8f-9a8e-1f1d1c7a5b43",
		"RATING=80",
	))

	d := &types.Descriptor{}
	art, err := New().Parse(context.Background(), path, types.FormatFLAC, d)
	require.NoError(t, err)

	assert.Equal(t, ParserName, d.ParserName)
	assert.Equal(t, types.FormatFLAC, d.Container)
	assert.Empty(t, d.Warnings)
	require.NotNil(t, d.DurationSeconds)
	assert.InDelta(t, 10.0, *d.DurationSeconds, 1e-9)
	assert.Positive(t, d.BitRateBps)

	require.Len(t, d.AudioTracks, 1)
	a := d.AudioTracks[0]
	assert.Equal(t, types.FormatFLAC, a.Codec)
	assert.Equal(t, 44100, a.SampleRate)
	assert.Equal(t, 2, a.Channels)
	assert.Equal(t, 16, a.BitDepth)

	assert.Equal(t, &types.AudioMetadata{
		Title:              "So What",
		Artist:             "Miles Davis",
		Album:              "Kind of Blue",
		AlbumArtist:        "Miles Davis",
		Composer:           "Miles Davis",
		Genre:              "Jazz",
		Year:               1959,
		Track:              1,
		Disc:               1,
		Rating:             4,
		MusicBrainzRelease: "b1a9c0e9-d987-4042-ae91-78d6a3267d69",
		MusicBrainzTrack:   "16eba2e2-8a1d-4a8f-9a8e-1f1d1c7a5b43",
	}, d.AudioMetadata)

	require.NotNil(t, art)
	assert.Equal(t, "image/png", art.MIMEType)
	assert.Equal(t, "front", art.Description)
	assert.Equal(t, cover, art.Data)
}

func TestParse_DefaultsWithoutTags(t *testing.T) {
	path := writeFile(t, "Untitled.flac", flacFile(nil))

	d := &types.Descriptor{}
	art, err := New().Parse(context.Background(), path, types.FormatFLAC, d)
	require.NoError(t, err)
	assert.Nil(t, art)
	assert.Equal(t, "Untitled.flac", d.AudioMetadata.Title)
	assert.Equal(t, 1, d.AudioMetadata.Track)
	assert.Equal(t, 1, d.AudioMetadata.Disc)
}

func TestParse_UnreadableHeaderKeepsTags(t *testing.T) {
	path := writeFile(t, "song.mp3", id3File(196))

	d := &types.Descriptor{}
	_, err := New().Parse(context.Background(), path, types.FormatMP3, d)
	require.NoError(t, err)

	require.Len(t, d.Warnings, 1)
	assert.Equal(t, "header", d.Warnings[0].Stage)
	require.Len(t, d.AudioTracks, 1)
	assert.Equal(t, 2, d.AudioTracks[0].Channels)
	assert.Equal(t, "Blue in Green", d.AudioMetadata.Title)
	assert.Equal(t, "Miles Davis", d.AudioMetadata.Artist)
	assert.Equal(t, 4, d.AudioMetadata.Rating)
}

func TestParse_HintSetsCodec(t *testing.T) {
	path := writeFile(t, "noise.dff", []byte("FRM8 but not really"))

	d := &types.Descriptor{}
	_, err := New().Parse(context.Background(), path, types.FormatDFF, d)
	require.NoError(t, err)
	assert.Equal(t, types.FormatDFF, d.AudioTracks[0].Codec)
	assert.Equal(t, types.FormatDFF, d.Container)
}

func TestParse_MissingFile(t *testing.T) {
	_, err := New().Parse(context.Background(), filepath.Join(t.TempDir(), "gone.mp3"), types.FormatMP3, &types.Descriptor{})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestReadExtras_ID3(t *testing.T) {
	path := writeFile(t, "song.mp3", id3File(128))

	md := &types.AudioMetadata{}
	require.NoError(t, New().ReadExtras(path, md))
	assert.Equal(t, 3, md.Rating)
	assert.Equal(t, "b1a9c0e9-d987-4042-ae91-78d6a3267d69", md.MusicBrainzRelease)
	assert.Equal(t, "16eba2e2-8a1d-4a8f-9a8e-1f1d1c7a5b43", md.MusicBrainzTrack)
}

func TestReadExtras_NoTags(t *testing.T) {
	path := writeFile(t, "blank.bin", make([]byte, 32))
	assert.Error(t, New().ReadExtras(path, &types.AudioMetadata{}))
}

func TestStars(t *testing.T) {
	tests := []struct {
		in          int
		id3, vorbis int
	}{
		{0, 0, 0},
		{1, 1, 1},
		{20, 1, 1},
		{21, 1, 2},
		{31, 1, 2},
		{32, 2, 2},
		{41, 2, 3},
		{61, 2, 4},
		{81, 2, 5},
		{95, 2, 5},
		{96, 3, 5},
		{159, 3, 5},
		{160, 4, 5},
		{223, 4, 5},
		{224, 5, 5},
		{255, 5, 5},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.id3, ID3Stars(tt.in), "id3 %d", tt.in)
		assert.Equal(t, tt.vorbis, VorbisStars(tt.in), "vorbis %d", tt.in)
	}
}

func TestParse_FLACChapters(t *testing.T) {
	path := writeFile(t, "book.flac", flacFile(nil,
		"TITLE=Part One",
		"CHAPTER001=00:00:00.000",
		"CHAPTER001NAME=Introduction",
		"CHAPTER002=00:00:04.500",
	))

	d := &types.Descriptor{}
	_, err := New().Parse(context.Background(), path, types.FormatFLAC, d)
	require.NoError(t, err)

	assert.Equal(t, []types.Chapter{
		{ID: 0, Title: "Introduction", StartSeconds: 0, EndSeconds: 4.5},
		{ID: 1, StartSeconds: 4.5, EndSeconds: 10},
	}, d.Chapters)
}
