package probe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/simonhull/mediaprobe/internal/logger"
	"github.com/simonhull/mediaprobe/internal/normalize"
	"github.com/simonhull/mediaprobe/internal/types"
)

const FFmpegParserName = "FFmpeg"

// ErrNoFrame is returned when ffmpeg produced no image for a seek position.
var ErrNoFrame = errors.New("no frame extracted")

// ErrNotIdentified is returned when ffmpeg printed no matching Input section.
var ErrNotIdentified = errors.New("input not identified")

// ffmpegContainers maps ffmpeg demuxer names that differ from the canonical ids.
var ffmpegContainers = map[string]types.FormatID{
	"matroska": types.FormatMKV,
	"mpeg":     types.FormatMPEGPS,
	"mpegts":   types.FormatMPEGTS,
	"asf":      types.FormatWMV,
	"rm":       types.FormatRM,
	"flv":      types.FormatFLV,
	"aiff":     types.FormatAIFF,
}

// ffmpegCodecs maps ffmpeg decoder names that differ from the canonical ids.
var ffmpegCodecs = map[string]types.FormatID{
	"h264":        types.FormatH264,
	"hevc":        types.FormatH265,
	"mpeg4":       types.FormatMP4,
	"mpeg1video":  types.FormatMPEG1,
	"mpeg2video":  types.FormatMPEG2,
	"vc1":         types.FormatVC1,
	"wmv1":        types.FormatWMV,
	"wmv2":        types.FormatWMV,
	"wmv3":        types.FormatVC1,
	"msmpeg4v3":   types.FormatDivX,
	"flv1":        types.FormatSorenson,
	"theora":      types.FormatTheora,
	"mjpeg":       types.FormatMJPEG,
	"av1":         types.FormatAV1,
	"mp3":         types.FormatMP3,
	"mp3float":    types.FormatMP3,
	"mp2":         types.FormatMP2,
	"ac3":         types.FormatAC3,
	"eac3":        types.FormatEAC3,
	"dts":         types.FormatDTS,
	"truehd":      types.FormatTrueHD,
	"flac":        types.FormatFLAC,
	"alac":        types.FormatALAC,
	"vorbis":      types.FormatVorbis,
	"opus":        types.FormatOpus,
	"wmav1":       types.FormatWMA,
	"wmav2":       types.FormatWMA,
	"wmapro":      types.FormatWMAPro,
	"wmalossless": types.FormatWMALossless,
	"wmavoice":    types.FormatWMAVoice,
	"cook":        types.FormatCook,
	"ape":         types.FormatAPE,
	"tta":         types.FormatTTA,
	"wavpack":     types.FormatWavPack,
	"amr_nb":      types.FormatAMR,
	"amr_wb":      types.FormatAMR,
	"png":         types.FormatPNG,
	"gif":         types.FormatGIF,
	"bmp":         types.FormatBMP,
	"tiff":        types.FormatTIFF,
	"webp":        types.FormatWebP,
}

var channelLayouts = map[string]int{
	"mono":   1,
	"stereo": 2,
	"2.1":    3,
	"quad":   4,
	"4.0":    4,
	"4.1":    5,
	"5.0":    5,
	"5:1":    6,
	"5.1":    6,
	"6.1":    7,
	"7.1":    8,
}

var sampleFormatDepths = map[string]int{
	"s16": 16, "s16p": 16,
	"s24": 24, "s24p": 24,
	"s32": 32, "s32p": 32,
}

// FFmpeg identifies inputs from what ffmpeg prints about them and extracts
// single frames for thumbnails.
type FFmpeg struct {
	Path      string
	Probe     Runner
	Thumbnail Runner
}

func NewFFmpeg(path string, probeTimeout, thumbnailTimeout time.Duration) *FFmpeg {
	if strings.TrimSpace(path) == "" {
		path = "ffmpeg"
	}
	return &FFmpeg{
		Path:      path,
		Probe:     Runner{Timeout: probeTimeout},
		Thumbnail: Runner{Timeout: thumbnailTimeout},
	}
}

// inputArg is the -i argument for input, reading stdin when input is empty.
func inputArg(input string) string {
	if input == "" {
		return "-"
	}
	return input
}

// Parse runs ffmpeg on input, or on stdin when input is empty, and fills d
// from its report.
func (f *FFmpeg) Parse(ctx context.Context, input string, stdin io.Reader, d *types.Descriptor) error {
	arg := inputArg(input)
	res, err := f.Probe.Run(ctx, f.Path, stdin, "-hide_banner", "-i", arg, "-vn", "-an", "-dn", "-sn")
	if err != nil {
		return err
	}
	if !ParseInfo(res.Lines(), arg, d) {
		return fmt.Errorf("%s: %w", arg, ErrNotIdentified)
	}
	return nil
}

// Frame returns one JPEG frame at seek seconds, scaled to 320 pixels wide.
func (f *FFmpeg) Frame(ctx context.Context, input string, stdin io.Reader, seek float64) ([]byte, error) {
	arg := inputArg(input)
	res, err := f.Thumbnail.Run(ctx, f.Path, stdin,
		"-ss", strconv.Itoa(int(seek)),
		"-i", arg,
		"-an", "-dn", "-sn",
		"-vf", "scale=320:-2",
		"-vframes", "1",
		"-f", "image2",
		"pipe:",
	)
	if err != nil {
		return nil, err
	}
	if len(res.Stdout) == 0 {
		return nil, fmt.Errorf("%s at %.0fs: %w", arg, seek, ErrNoFrame)
	}
	return res.Stdout, nil
}

// ParseInfo fills d from the report ffmpeg prints for input (ffmpeg's -i
// argument). Lines outside the matching Input section are ignored. It
// reports whether the input was found.
func ParseInfo(lines []string, input string, d *types.Descriptor) bool {
	if input == "-" {
		input = "pipe:"
	}

	identified, matches, sawDuration := false, false, false
	for i := 0; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		switch {
		case strings.HasPrefix(line, "Output"):
			matches = false
		case strings.HasPrefix(line, "Input"):
			matches = strings.Contains(line, input)
			if matches {
				identified = true
				d.Container = inputContainer(line)
			}
		case !matches:
		case line == "Metadata:":
			// stream blocks were read with their stream line
			if title := metadataTitle(lines, i); title != "" && !sawDuration {
				d.Title = title
			}
			i = skipBlock(lines, i) - 1
		case strings.Contains(line, "Duration"):
			sawDuration = true
			parseDurationLine(line, d)
		case strings.Contains(line, "Audio:"):
			a := parseAudioStream(line)
			a.Title = metadataTitle(lines, i+1)
			d.AddAudioTrack(a)
		case strings.Contains(line, "Video:"):
			v := parseVideoStream(line)
			v.Title = metadataTitle(lines, i+1)
			d.AddVideoTrack(v)
		case strings.Contains(line, "Subtitle:"):
			s := parseSubtitleStream(line)
			s.Title = metadataTitle(lines, i+1)
			d.AddSubtitleTrack(s)
		case strings.Contains(line, "Chapters:"):
			var next int
			d.Chapters, next = parseChapters(lines, i+1)
			i = next - 1
		}
	}

	d.ParserName = FFmpegParserName
	return identified
}

// inputContainer reads the demuxer name from "Input #0, <fmt>, from '<name>':".
func inputContainer(line string) types.FormatID {
	_, rest, _ := strings.Cut(line, ", ")
	name, _, _ := strings.Cut(rest, ",")
	name = strings.TrimSpace(name)

	// The mov demuxer reports "mov,mp4,m4a,3gp,3g2,mj2" for all of those;
	// the file extension tells them apart.
	if name == "mov" {
		dot, quote := strings.LastIndex(line, "."), strings.LastIndex(line, "'")
		if dot >= 0 && quote > dot+1 {
			return types.FormatID(strings.ToLower(strings.TrimSpace(line[dot+1 : quote])))
		}
	}
	if f, ok := ffmpegContainers[name]; ok {
		return f
	}
	return types.FormatID(strings.ToLower(name))
}

func parseDurationLine(line string, d *types.Descriptor) {
	for _, token := range strings.Split(line, ",") {
		token = strings.TrimSpace(token)
		switch {
		case strings.HasPrefix(token, "Duration: "):
			if seconds, ok := parseClock(strings.TrimPrefix(token, "Duration: ")); ok {
				d.SetDuration(seconds)
			}
		case strings.HasPrefix(token, "bitrate: "):
			value, unit, ok := strings.Cut(strings.TrimPrefix(token, "bitrate: "), " ")
			bitrate, err := strconv.Atoi(value)
			if !ok || err != nil {
				continue
			}
			switch unit {
			case "kb/s":
				bitrate *= 1024
			case "mb/s":
				bitrate *= 1048576
			}
			d.BitRateBps = uint32(bitrate)
		}
	}
}

// parseClock parses HH:MM:SS.ss into seconds.
func parseClock(s string) (float64, bool) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 3 {
		return 0, false
	}
	h, err1 := strconv.Atoi(parts[0])
	m, err2 := strconv.Atoi(parts[1])
	sec, err3 := strconv.ParseFloat(parts[2], 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return 0, false
	}
	return float64(h*3600+m*60) + sec, true
}

// streamOrder reads N from "#0:N", ignoring language and id suffixes.
func streamOrder(line string) int {
	_, id, ok := strings.Cut(line, "#")
	if !ok {
		return 0
	}
	if i := strings.IndexAny(id, " (["); i >= 0 {
		id = id[:i]
	}
	parts := strings.Split(strings.TrimSuffix(id, ":"), ":")
	n, err := strconv.Atoi(parts[min(1, len(parts)-1)])
	if err != nil {
		log.Emit(logger.DEBUG, "Error parsing stream index from the line: %s\n", line)
		return 0
	}
	return n
}

// streamHeader returns the "#0:1[0x1100](eng)" part of a stream line.
func streamHeader(line string) string {
	_, id, _ := strings.Cut(line, "#")
	id, _, _ = strings.Cut(id, ": ")
	return id
}

// streamLanguage reads the "(eng)" part of "Stream #0:1(eng):".
func streamLanguage(line string) string {
	header := streamHeader(line)
	a, b := strings.Index(header, "("), strings.LastIndex(header, ")")
	if a < 0 || b <= a {
		return types.LangUnd
	}
	return normalize.Language(header[a+1 : b])
}

// streamID reads the hexadecimal id of "Stream #0:1[0x1100]".
func streamID(line string) int {
	line = streamHeader(line)
	a := strings.Index(line, "[0x")
	if a < 0 {
		return 0
	}
	b := strings.Index(line[a:], "]")
	if b <= 3 {
		return 0
	}
	id, err := strconv.ParseInt(line[a+3:a+b], 16, 32)
	if err != nil {
		log.Emit(logger.DEBUG, "Error parsing stream id %q\n", line[a+3:a+b])
		return 0
	}
	return int(id)
}

func codecID(raw string, kind normalize.StreamKind) types.FormatID {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if f, ok := ffmpegCodecs[raw]; ok {
		return f
	}
	switch {
	case strings.HasPrefix(raw, "pcm_"):
		return types.FormatLPCM
	case strings.HasPrefix(raw, "adpcm_"):
		return types.FormatADPCM
	}
	if f, ok := normalize.Normalize(kind, raw, nil); ok {
		return f
	}
	return types.FormatID(raw)
}

func audioCodec(token string) types.FormatID {
	_, rest, _ := strings.Cut(token, "Audio: ")
	codec, details, hasDetails := strings.Cut(rest, " ")
	if codec != "aac" {
		return codecID(codec, normalize.Audio)
	}
	switch {
	case !hasDetails, strings.Contains(details, "(LC)"):
		return types.FormatAACLC
	case strings.Contains(details, "HE-AAC"):
		return types.FormatHEAAC
	case strings.Contains(details, "(Main)"):
		return types.FormatAACMain
	case strings.Contains(details, "(LTP)"):
		return types.FormatAACLTP
	case strings.Contains(details, "(SSR)"):
		return types.FormatAACSSR
	default:
		return types.FormatAACLC
	}
}

func parseAudioStream(line string) types.AudioTrack {
	a := types.AudioTrack{
		StreamOrder: streamOrder(line),
		StreamID:    streamID(line),
		Lang:        streamLanguage(line),
		Default:     strings.Contains(line, "(default)"),
		Forced:      strings.Contains(line, "(forced)"),
	}

	for _, token := range strings.Split(line, ",") {
		token = strings.TrimSpace(token)
		layout, _, _ := strings.Cut(token, "(")
		switch {
		case strings.HasPrefix(token, "Stream"):
			a.Codec = audioCodec(token)
		case strings.HasSuffix(token, "Hz"):
			rate, err := strconv.Atoi(strings.TrimSpace(strings.TrimSuffix(token, "Hz")))
			if err != nil {
				log.Emit(logger.DEBUG, "Could not parse sample rate %q\n", token)
				continue
			}
			a.SampleRate = rate
		case channelLayouts[layout] > 0:
			a.Channels = channelLayouts[layout]
		case strings.HasSuffix(token, " channels"):
			if n, err := strconv.Atoi(strings.TrimSuffix(token, " channels")); err == nil {
				a.Channels = n
			}
		case sampleFormatDepths[token] > 0:
			a.BitDepth = sampleFormatDepths[token]
		case strings.Contains(token, " kb/s"):
			value, _, _ := strings.Cut(token, " kb/s")
			if n, err := strconv.Atoi(value); err == nil {
				a.BitRate = n * 1000
			}
		}
	}
	return a
}

func parseVideoStream(line string) types.VideoTrack {
	v := types.VideoTrack{
		StreamOrder: streamOrder(line),
		Lang:        streamLanguage(line),
		Default:     strings.Contains(line, "(default)"),
		Forced:      strings.Contains(line, "(forced)"),
	}

	for _, token := range strings.Split(line, ",") {
		token = strings.TrimSpace(token)
		switch {
		case strings.HasPrefix(token, "Stream"):
			_, codec, _ := strings.Cut(token, "Video: ")
			if i := strings.Index(codec, " ("); i >= 0 {
				v.FormatProfile = formatProfile(codec)
				codec = codec[:i]
			}
			v.Codec = codecID(codec, normalize.Video)
		case strings.Contains(token, "tbc") || strings.Contains(token, "tb(c)"):
			// tbc is reported at twice the frame rate
			if rate, ok := leadingFloat(token, "tb"); ok && rate != v.FrameRate {
				v.FrameRate = rate / 2
			}
		case (strings.Contains(token, "tbr") || strings.Contains(token, "tb(r)")) && v.FrameRate == 0:
			if rate, ok := leadingFloat(token, "tb"); ok {
				v.FrameRate = rate
			}
		case strings.Contains(token, "fps") && v.FrameRate == 0:
			if rate, ok := leadingFloat(token, "fps"); ok {
				v.FrameRate = rate
			}
		case strings.Contains(token, "x") && !strings.Contains(token, "max"):
			resolution, _, _ := strings.Cut(token, " [")
			w, h, _ := strings.Cut(resolution, "x")
			if width, err := strconv.Atoi(w); err == nil {
				v.Width = width
			}
			if height, err := strconv.Atoi(h); err == nil {
				v.Height = height
			}
		}
	}
	return v
}

// leadingFloat parses the number in token before marker, as in "23.98 fps".
func leadingFloat(token, marker string) (float64, bool) {
	i := strings.Index(token, marker)
	if i < 0 {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(token[:i]), 64)
	if err != nil {
		log.Emit(logger.DEBUG, "Could not parse frame rate %q\n", token)
		return 0, false
	}
	return f, true
}

// formatProfile returns the lower-cased text of the first parenthesis, as
// in "h264 (High) (avc1 / 0x31637661)".
func formatProfile(codec string) string {
	a, b := strings.Index(codec, "("), strings.Index(codec, ")")
	if a < 0 || b <= a {
		return ""
	}
	return strings.ToLower(codec[a+1 : b])
}

// subtitleCodec recognises the ffmpeg subtitle codec named on a stream line.
// Order matters: " text" must not claim mov_text or dvb_teletext.
func subtitleCodec(line string) types.FormatID {
	switch {
	case strings.Contains(line, "srt"), strings.Contains(line, "subrip"):
		return types.SubtitleSubRip
	case strings.Contains(line, " text"):
		return types.SubtitleText
	case strings.Contains(line, "microdvd"):
		return types.SubtitleMicroDVD
	case strings.Contains(line, "sami"):
		return types.SubtitleSAMI
	case strings.Contains(line, "ass"), strings.Contains(line, "ssa"):
		return types.SubtitleASS
	case strings.Contains(line, "dvd_subtitle"):
		return types.SubtitleVobSub
	case strings.Contains(line, "xsub"):
		return types.SubtitleDivX
	case strings.Contains(line, "mov_text"):
		return types.SubtitleTX3G
	case strings.Contains(line, "webvtt"):
		return types.SubtitleWebVTT
	case strings.Contains(line, "eia_608"):
		return types.SubtitleEIA608
	case strings.Contains(line, "dvb_subtitle"):
		return types.SubtitleDVB
	case strings.Contains(line, "hdmv_pgs_subtitle"):
		return types.SubtitlePGS
	default:
		return types.FormatUnd
	}
}

func parseSubtitleStream(line string) types.SubtitleTrack {
	return types.SubtitleTrack{
		Codec:       subtitleCodec(line),
		StreamOrder: streamOrder(line),
		StreamID:    streamID(line),
		Lang:        streamLanguage(line),
		Default:     strings.Contains(line, "(default)"),
		Forced:      strings.Contains(line, "(forced)"),
	}
}

// parseChapters reads consecutive "Chapter #0:N: start S, end E" lines with
// their Metadata blocks from lines[i:]. It returns the index of the first
// line after them.
func parseChapters(lines []string, i int) ([]types.Chapter, int) {
	var chapters []types.Chapter
	for i < len(lines) && strings.Contains(lines[i], "Chapter #") {
		line := lines[i]
		c := types.Chapter{ID: streamOrder(line)}
		if lang := streamLanguage(line); lang != types.LangUnd {
			c.Lang = lang
		}
		if _, start, ok := strings.Cut(line, "start "); ok {
			start, _, _ = strings.Cut(start, " ")
			if v, err := strconv.ParseFloat(strings.TrimSuffix(start, ","), 64); err == nil {
				c.StartSeconds = v
			}
		}
		if _, end, ok := strings.Cut(line, " end "); ok {
			end, _, _ = strings.Cut(end, " ")
			if v, err := strconv.ParseFloat(end, 64); err == nil {
				c.EndSeconds = v
			}
		}

		i++
		if i < len(lines) && strings.TrimSpace(lines[i]) == "Metadata:" {
			if title := metadataTitle(lines, i); !types.IsDefaultChapterTitle(title) {
				c.Title = title
			}
			i = skipBlock(lines, i)
		}
		chapters = append(chapters, c)
	}
	return chapters, i
}

// metadataTitle returns the title entry of the Metadata block starting at
// lines[i], or "" when lines[i] does not open one.
func metadataTitle(lines []string, i int) string {
	if i >= len(lines) || strings.TrimSpace(lines[i]) != "Metadata:" {
		return ""
	}
	for _, line := range lines[i+1 : skipBlock(lines, i)] {
		key, value, ok := strings.Cut(line, ":")
		if ok && strings.EqualFold(strings.TrimSpace(key), "title") {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

// skipBlock returns the index of the first line after the block opened at
// lines[i], i.e. the first line not indented deeper than lines[i].
func skipBlock(lines []string, i int) int {
	depth := indent(lines[i])
	j := i + 1
	for j < len(lines) && indent(lines[j]) > depth {
		j++
	}
	return j
}

func indent(line string) int {
	return len(line) - len(strings.TrimLeft(line, " \t"))
}
