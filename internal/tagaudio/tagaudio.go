// Package tagaudio reads audio files through their tags and stream headers.
//
// Stream parameters come from internal/audioheader. Tags, ratings and the
// embedded picture come from github.com/dhowden/tag, which understands ID3,
// MP4 atoms and Vorbis comments.
package tagaudio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dhowden/tag"

	"github.com/simonhull/mediaprobe/internal/audioheader"
	"github.com/simonhull/mediaprobe/internal/logger"
	"github.com/simonhull/mediaprobe/internal/types"
)

const ParserName = "TagAudio"

const musicBrainzProvider = "http://musicbrainz.org"

var log = logger.Get("TagAudio")

// Reader parses audio files. It holds no state and is safe for concurrent use.
type Reader struct{}

func New() *Reader {
	return &Reader{}
}

// Parse fills d with the stream parameters and tags of the audio file at
// path. hint is the detected format and may be empty. The returned artwork
// is the first embedded picture, if any.
//
// Unreadable headers or tags are not fatal: whatever could be read is kept
// and the descriptor gets a warning.
func (r *Reader) Parse(ctx context.Context, path string, hint types.FormatID, d *types.Descriptor) (*types.Artwork, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("tagaudio: %w", err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("tagaudio: %w", err)
	}
	d.SizeBytes = uint64(fi.Size())

	track := types.AudioTrack{Lang: types.LangUnd, Channels: 2}
	info, err := readHeader(f, fi.Size(), path, hint)
	if err != nil {
		log.Emit(logger.DEBUG, "Could not read audio header of %q: %v\n", path, err)
		d.Warn("header", "%v", err)
	} else {
		track.Codec = info.Codec
		track.SampleRate = info.SampleRate
		track.BitDepth = info.BitDepth
		track.BitRate = info.BitRate
		if info.Channels > 0 {
			track.Channels = info.Channels
		}
		if info.Duration > 0 {
			d.SetDuration(info.Duration)
		}
		d.BitRateBps = uint32(info.BitRate)
	}

	// formats the header readers may not identify
	if track.Codec.IsEmpty() {
		switch hint {
		case types.FormatADPCM, types.FormatDSF, types.FormatDFF:
			track.Codec = hint
		}
	}

	md := &types.AudioMetadata{}
	var art *types.Artwork
	if m, err := readTags(f); err != nil {
		if errors.Is(err, tag.ErrNoTagsFound) {
			log.Emit(logger.DEBUG, "No audio tag support for %q\n", filepath.Base(path))
		} else {
			log.Emit(logger.DEBUG, "Error parsing audio tags of %q: %v\n", path, err)
			d.Warn("tags", "%v", err)
		}
	} else {
		fillMetadata(m, md)
		art = artwork(m)
		if m.Format() == tag.VORBIS {
			d.Chapters = commentChapters(m.Raw(), d.Duration())
		}
	}
	if md.Title == "" {
		md.Title = filepath.Base(path)
	}
	d.AudioMetadata = md
	d.AddAudioTrack(track)

	if d.Container.IsEmpty() {
		if info != nil && !info.Container.IsEmpty() {
			d.Container = info.Container
		} else {
			d.Container = track.Codec
		}
	}
	d.ParserName = ParserName
	return art, nil
}

// ReadExtras fills the rating and the MusicBrainz ids of md from the tags
// of the file at path.
func (r *Reader) ReadExtras(path string, md *types.AudioMetadata) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	m, err := readTags(f)
	if err != nil {
		return err
	}
	extras(m, md)
	return nil
}

// readHeader reads stream parameters, trusting hint when a reader exists
// for it. MPEG-1 layer II files share the layer III frame layout.
func readHeader(f *os.File, size int64, path string, hint types.FormatID) (*audioheader.Info, error) {
	if hint == types.FormatMP2 {
		hint = types.FormatMP3
	}
	info, err := audioheader.ReadHint(f, size, path, hint)
	if !errors.Is(err, audioheader.ErrUnsupported) {
		return info, err
	}
	return audioheader.Read(f, size, path)
}

func readTags(f io.ReadSeeker) (tag.Metadata, error) {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	return tag.ReadFrom(f)
}

func fillMetadata(m tag.Metadata, md *types.AudioMetadata) {
	md.Title = strings.TrimSpace(m.Title())
	md.Artist = strings.TrimSpace(m.Artist())
	md.Album = strings.TrimSpace(m.Album())
	md.AlbumArtist = strings.TrimSpace(m.AlbumArtist())
	md.Composer = strings.TrimSpace(m.Composer())
	md.Genre = strings.TrimSpace(m.Genre())
	md.Year = m.Year()

	md.Track, _ = m.Track()
	if md.Track == 0 {
		md.Track = 1
	}
	md.Disc, _ = m.Disc()
	if md.Disc == 0 {
		md.Disc = 1
	}
	extras(m, md)
}

func artwork(m tag.Metadata) *types.Artwork {
	p := m.Picture()
	if p == nil || len(p.Data) == 0 {
		return nil
	}
	return &types.Artwork{MIMEType: p.MIMEType, Description: p.Description, Data: p.Data}
}

// extras reads the MusicBrainz ids and the rating. Field names differ per
// tag format ("musicbrainz_albumid" in Vorbis comments, a "MusicBrainz
// Album Id" TXXX frame or freeform atom elsewhere), so raw names are
// compared with case, spaces and underscores dropped.
func extras(m tag.Metadata, md *types.AudioMetadata) {
	id3 := isID3(m.Format())
	for name, v := range m.Raw() {
		switch x := v.(type) {
		case *tag.UFID:
			if x.Provider == musicBrainzProvider && len(x.Identifier) > 0 {
				md.MusicBrainzTrack = string(x.Identifier)
			}
			continue
		case []byte:
			if strings.HasPrefix(name, "POPM") {
				if stars, ok := popularimeter(x); ok {
					md.Rating = stars
				}
			}
			continue
		}

		key, value := rawField(name, v)
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		switch squash(key) {
		case "musicbrainzalbumid":
			md.MusicBrainzRelease = value
		case "musicbrainztrackid":
			md.MusicBrainzTrack = value
		case "rating":
			n, err := strconv.Atoi(value)
			if err != nil {
				log.Emit(logger.VERBOSE, "Ignoring rating %q\n", value)
				continue
			}
			if id3 {
				md.Rating = ID3Stars(n)
			} else {
				md.Rating = VorbisStars(n)
			}
		}
	}
}

func rawField(name string, v any) (string, string) {
	switch x := v.(type) {
	case string:
		return name, x
	case *tag.Comm:
		return x.Description, x.Text
	case int:
		return name, strconv.Itoa(x)
	}
	return name, ""
}

func squash(key string) string {
	return strings.Map(func(r rune) rune {
		if r == ' ' || r == '_' {
			return -1
		}
		return r
	}, strings.ToLower(key))
}

// popularimeter reads the rating byte of a POPM frame: an email address,
// a NUL, the rating and a play counter.
func popularimeter(b []byte) (int, bool) {
	i := strings.IndexByte(string(b), 0)
	if i < 0 || i+1 >= len(b) {
		return 0, false
	}
	return ID3Stars(int(b[i+1])), true
}

func isID3(f tag.Format) bool {
	switch f {
	case tag.ID3v1, tag.ID3v2_2, tag.ID3v2_3, tag.ID3v2_4:
		return true
	}
	return false
}

// ID3Stars converts a 0-255 ID3 rating to 0-5 stars.
func ID3Stars(n int) int {
	switch {
	case n <= 0:
		return 0
	case n < 32:
		return 1
	case n < 96:
		return 2
	case n < 160:
		return 3
	case n < 224:
		return 4
	default:
		return 5
	}
}

// VorbisStars converts a 0-100 rating to 0-5 stars.
func VorbisStars(n int) int {
	switch {
	case n <= 0:
		return 0
	case n < 21:
		return 1
	case n < 41:
		return 2
	case n < 61:
		return 3
	case n < 81:
		return 4
	default:
		return 5
	}
}
