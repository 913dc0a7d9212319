package mediainfo

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/simonhull/mediaprobe/internal/imaging"
	"github.com/simonhull/mediaprobe/internal/logger"
	"github.com/simonhull/mediaprobe/internal/normalize"
	"github.com/simonhull/mediaprobe/internal/types"
)

const ParserName = "MediaInfo"

var yearPattern = regexp.MustCompile(`(\d{4})`)

// TagReader supplies the tag fields MediaInfo does not report: the rating
// and the MusicBrainz ids.
type TagReader interface {
	ReadExtras(path string, md *types.AudioMetadata) error
}

// Adapter fills descriptors from a Library. Calls are serialized because
// a Library holds one opened file at a time.
type Adapter struct {
	mu      sync.Mutex
	lib     Library
	tags    TagReader
	version string
	ready   atomic.Bool // version is set
}

// NewAdapter returns an adapter reading through lib. tags may be nil.
func NewAdapter(lib Library, tags TagReader) *Adapter {
	return &Adapter{lib: lib, tags: tags}
}

// configure applies the library options once. Caller holds a.mu.
func (a *Adapter) configure() {
	if a.ready.Load() {
		return
	}
	a.version = ParseVersion(a.lib.Option("Info_Version", ""))
	for _, opt := range Options(a.version) {
		a.lib.Option(opt[0], opt[1])
	}
	a.ready.Store(true)
	if a.version == "" {
		log.Emit(logger.WARNING, "MediaInfo version unknown, using legacy options\n")
	} else {
		log.Emit(logger.DEBUG, "Using MediaInfoLib %s\n", a.version)
	}
}

// Version returns the library version, or "" when unknown. Only the first
// call waits for a parse in progress.
func (a *Adapter) Version() string {
	if a.ready.Load() {
		return a.version
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.configure()
	return a.version
}

// parse holds the state of one Parse call.
type parse struct {
	lib       Library
	path      string
	d         *types.Descriptor
	norm      normalize.Context
	mediaType types.MediaType
}

func (p *parse) get(kind StreamKind, index int, name string) string {
	return p.lib.Get(kind, index, name)
}

func (p *parse) apply(kind normalize.StreamKind, raw string) {
	normalize.Apply(kind, raw, &p.norm, p.path)
}

// Parse fills d with what MediaInfo reports for path. The returned artwork
// is the embedded cover, if any.
func (a *Adapter) Parse(ctx context.Context, path string, mediaType types.MediaType, d *types.Descriptor) (*types.Artwork, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.configure()

	if err := a.lib.Open(ctx, path); err != nil {
		return nil, fmt.Errorf("mediainfo: open %s: %w", path, err)
	}
	defer func() {
		if err := a.lib.Close(); err != nil {
			log.Emit(logger.DEBUG, "Closing %s: %v\n", path, err)
		}
	}()

	if fi, err := os.Stat(path); err == nil {
		d.SizeBytes = uint64(fi.Size())
	}

	p := &parse{lib: a.lib, path: path, d: d, mediaType: mediaType}
	p.general()
	art := p.cover()
	p.chapters()
	p.videoTracks()
	p.audioTracks()
	if d.AudioOnly() {
		p.audioMetadata(a.tags)
	}
	p.image()
	p.textTracks()

	d.Container = p.norm.Container
	normalize.ApplyAudioVariant(d)
	normalize.SplitASF(d)
	if d.Container.IsEmpty() {
		d.Container = types.FormatUnd
	}
	d.ParserName = ParserName
	return art, nil
}

func (p *parse) general() {
	p.apply(normalize.General, p.get(General, 0, "Format"))
	p.apply(normalize.General, strings.TrimSpace(p.get(General, 0, "CodecID")))
	if seconds, ok := durationSeconds(p.get(General, 0, "Duration")); ok {
		p.d.SetDuration(seconds)
	}
	p.d.BitRateBps = uint32(bitrate(p.get(General, 0, "OverallBitRate")))
	if title := strings.TrimSpace(p.get(General, 0, "Title")); title != "" {
		p.d.Title = title
	}
}

// cover decodes the base64 Cover_Data of the general stream.
func (p *parse) cover() *types.Artwork {
	value := p.get(General, 0, "Cover_Data")
	if value == "" {
		return nil
	}
	value, _, _ = strings.Cut(value, " / ")
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(value))
	if err != nil {
		log.Emit(logger.DEBUG, "Could not decode cover of %q: %v\n", p.path, err)
		return nil
	}
	return &types.Artwork{Description: "Cover_Data", Data: data}
}

func (p *parse) chapters() {
	if p.lib.Count(Menu) == 0 {
		return
	}
	begin, errB := strconv.Atoi(p.get(Menu, 0, "Chapters_Pos_Begin"))
	end, errE := strconv.Atoi(p.get(Menu, 0, "Chapters_Pos_End"))
	if errB != nil || errE != nil {
		return
	}

	var chapters []types.Chapter
	for i := begin; i <= end; i++ {
		name := p.lib.GetAt(Menu, 0, i, InfoName)
		if name == "" {
			continue
		}
		start, ok := chapterStart(name)
		if !ok {
			log.Emit(logger.DEBUG, "Skipping chapter with unparseable time %q\n", name)
			continue
		}
		c := types.Chapter{ID: len(chapters), StartSeconds: start}
		if len(chapters) > 0 {
			chapters[len(chapters)-1].EndSeconds = start
		}

		if title := p.lib.GetAt(Menu, 0, i, InfoText); title != "" {
			c.Lang = types.LangUnd
			lang, title := splitChapterTitle(title)
			if !types.IsDefaultChapterTitle(title) {
				if lang != "" {
					c.Lang = normalize.Language(lang)
				}
				c.Title = title
			}
		}
		chapters = append(chapters, c)
	}
	if len(chapters) > 0 {
		chapters[len(chapters)-1].EndSeconds = p.d.Duration()
	}
	p.d.Chapters = chapters
}

// subtitleType identifies a subtitle from its format, preferring the codec
// id when it is recognised.
func (p *parse) subtitleType(kind StreamKind, i int) types.FormatID {
	if st := normalize.Subtitle(p.get(kind, i, "CodecID")); !st.IsEmpty() {
		return st
	}
	return normalize.Subtitle(p.get(kind, i, "Format"))
}

// trackLanguage resolves the language of a track, falling back to a
// language named in its title.
func (p *parse) trackLanguage(kind StreamKind, i int, title string) string {
	if v := p.get(kind, i, "Language/String"); strings.TrimSpace(v) != "" {
		if lang := normalize.Language(language(v)); lang != types.LangUnd {
			return lang
		}
	}
	if title != "" {
		if lang := normalize.LanguageFromTitle(title); lang != "" {
			return lang
		}
	}
	return types.LangUnd
}

// streamID returns the container stream id from "ID/String", or the
// dense position next when the id is not container specific.
func (p *parse) streamID(kind StreamKind, i, next int) int {
	v := p.get(kind, i, "ID/String")
	if strings.Contains(v, "(0x") && p.norm.Container != types.FormatOGG {
		if id, ok := specificID(v); ok {
			return id
		}
	}
	return next
}

func (p *parse) flag(kind StreamKind, i int, name string) bool {
	return p.get(kind, i, name) == "Yes"
}

func (p *parse) videoTracks() {
	for i := 0; i < p.lib.Count(Video); i++ {
		title := strings.TrimSpace(p.get(Video, i, "Title"))

		// DXSA and DXSB subtitles are muxed as video streams
		if strings.HasPrefix(title, "Subtitle") {
			if st := p.subtitleType(Video, i); !st.IsEmpty() {
				p.d.AddSubtitleTrack(types.SubtitleTrack{Codec: st, Lang: types.LangUnd})
			}
			continue
		}

		p.norm.VideoCodec = types.FormatNone
		p.apply(normalize.Video, p.get(Video, i, "Format"))
		p.apply(normalize.Video, p.get(Video, i, "Format_Version"))
		p.apply(normalize.Video, p.get(Video, i, "CodecID"))

		v := types.VideoTrack{
			Codec:       p.norm.VideoCodec,
			Title:       title,
			StreamOrder: leadingInt(p.get(Video, i, "StreamOrder")),
			Width:       pixels(p.get(Video, i, "Width")),
			Height:      pixels(p.get(Video, i, "Height")),
			FrameRate:   frameRate(p.get(Video, i, "FrameRate")),
			AspectRatio: p.get(Video, i, "DisplayAspectRatio/String"),
			Default:     p.flag(Video, i, "Default/String"),
			Forced:      p.flag(Video, i, "Forced/String"),
			Lang:        p.trackLanguage(Video, i, ""),
		}
		if bits := p.get(Video, i, "BitDepth"); bits != "" {
			if n, err := strconv.Atoi(bits); err == nil {
				v.BitDepth = n
			} else {
				log.Emit(logger.DEBUG, "Could not parse bit depth %q\n", bits)
			}
		}
		if profile := strings.ToLower(p.get(Video, i, "Format_Profile")); profile != "" {
			v.FormatProfile, _, _ = strings.Cut(profile, "@l")
			if at := strings.LastIndex(profile, "@l"); at >= 0 && v.Codec == types.FormatH264 {
				v.AvcLevel = profile[at+2:]
			}
		}
		p.d.AddVideoTrack(v)
	}
}

func (p *parse) audioTracks() {
	for i := 0; i < p.lib.Count(Audio); i++ {
		p.norm.AudioCodec = types.FormatNone
		p.apply(normalize.Audio, p.get(Audio, i, "Format/String"))
		p.apply(normalize.Audio, p.get(Audio, i, "Format_Version"))
		p.apply(normalize.Audio, p.get(Audio, i, "Format_Profile"))
		p.apply(normalize.Audio, p.get(Audio, i, "CodecID"))
		if strings.HasPrefix(p.get(Audio, i, "CodecID_Description"), "Windows Media Audio 10") {
			p.norm.AudioCodec = types.FormatWMA10
		}

		title := strings.TrimSpace(p.get(Audio, i, "Title"))
		a := types.AudioTrack{
			Codec:       p.norm.AudioCodec,
			Title:       title,
			Lang:        p.trackLanguage(Audio, i, title),
			StreamOrder: leadingInt(p.get(Audio, i, "StreamOrder")),
			StreamID:    p.streamID(Audio, i, len(p.d.AudioTracks)),
			Channels:    leadingInt(p.get(Audio, i, "Channel(s)")),
			SampleRate:  sampleRate(p.get(Audio, i, "SamplingRate")),
			BitRate:     bitrate(p.get(Audio, i, "BitRate")),
			Default:     p.flag(Audio, i, "Default/String"),
			Forced:      p.flag(Audio, i, "Forced/String"),
		}
		if bits := p.get(Audio, i, "BitDepth"); bits != "" {
			if n, err := strconv.Atoi(firstValue(bits)); err == nil {
				a.BitDepth = n
			} else {
				log.Emit(logger.DEBUG, "Could not parse bits per sample %q\n", bits)
			}
		}
		p.d.AddAudioTrack(a)
	}
}

// audioMetadata copies the tags of the general stream.
func (p *parse) audioMetadata(tags TagReader) {
	md := &types.AudioMetadata{
		Title:       p.get(General, 0, "Track"),
		Album:       p.get(General, 0, "Album"),
		AlbumArtist: p.get(General, 0, "Album/Performer"),
		Artist:      p.get(General, 0, "ARTISTS"),
		Genre:       p.get(General, 0, "Genre"),
		Composer:    p.get(General, 0, "Composer"),
	}
	if strings.TrimSpace(md.Artist) == "" {
		md.Artist = p.get(General, 0, "Performer")
	}
	if v := p.get(General, 0, "Track/Position"); v != "" {
		md.Track = leadingInt(v)
	}
	if v := p.get(General, 0, "Part"); v != "" {
		md.Disc = leadingInt(v)
	}
	if m := yearPattern.FindStringSubmatch(p.get(General, 0, "Recorded_Date")); m != nil {
		md.Year, _ = strconv.Atoi(m[1])
	}

	if tags != nil {
		if err := tags.ReadExtras(p.path, md); err != nil {
			log.Emit(logger.DEBUG, "Could not read rating and MusicBrainz ids of %q: %v\n", p.path, err)
		}
	}
	p.d.AudioMetadata = md
}

// image reads image dimensions with the in-process decoders, falling back
// to what MediaInfo reports.
func (p *parse) image() {
	count := p.lib.Count(Image)
	if count == 0 && p.mediaType != types.MediaImage {
		return
	}

	info, err := probeImageFile(p.path)
	if err == nil {
		p.d.Image = &info
		return
	}

	if count > 0 {
		log.Emit(logger.DEBUG, "Error parsing image %q, switching to MediaInfo: %v\n", p.path, err)
		p.apply(normalize.Image, p.get(Image, 0, "Format"))
		p.d.Image = &types.ImageInfo{
			Format: p.norm.ImageFormat,
			Width:  pixels(p.get(Image, 0, "Width")),
			Height: pixels(p.get(Image, 0, "Height")),
		}
		return
	}
	log.Emit(logger.WARNING, "Image parsing for %q failed both with MediaInfo and internally: %v\n", p.path, err)
	p.d.Warn("image", "unreadable image: %v", err)
	p.d.Image = &types.ImageInfo{}
}

func probeImageFile(path string) (types.ImageInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return types.ImageInfo{}, err
	}
	defer f.Close()
	return imaging.Probe(f)
}

func (p *parse) textTracks() {
	for i := 0; i < p.lib.Count(Text); i++ {
		st := p.subtitleType(Text, i)
		if st.IsEmpty() {
			log.Emit(logger.DEBUG, "Skipping unsupported subtitle %q in %q\n", p.get(Text, i, "Format"), p.path)
			continue
		}
		title := strings.TrimSpace(p.get(Text, i, "Title"))
		p.d.AddSubtitleTrack(types.SubtitleTrack{
			Codec:       st,
			Title:       title,
			Lang:        p.trackLanguage(Text, i, title),
			StreamOrder: leadingInt(p.get(Text, i, "StreamOrder")),
			StreamID:    p.streamID(Text, i, len(p.d.SubtitleTracks)),
			Default:     p.flag(Text, i, "Default/String"),
			Forced:      p.flag(Text, i, "Forced/String"),
		})
	}
}
