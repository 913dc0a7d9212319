package probe

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/simonhull/mediaprobe/internal/logger"
	"github.com/simonhull/mediaprobe/internal/normalize"
	"github.com/simonhull/mediaprobe/internal/types"
)

const MPlayerParserName = "MPLAYER"

// dvdSectorSize is the size of one DVD sector in bytes.
const dvdSectorSize = 2048

var (
	dvdAudioStream    = regexp.MustCompile(`^audio stream: (\d+) format: (\S+) \((\S+)\) language: (\w*) aid: (\d+)\.$`)
	dvdSubtitleStream = regexp.MustCompile(`^subtitle \( sid \): (\d+) language: (\w*)$`)
)

var dvdAudioCodecs = map[string]types.FormatID{
	"ac3":   types.FormatAC3,
	"dts":   types.FormatDTS,
	"lpcm":  types.FormatLPCM,
	"mpeg1": types.FormatMP2,
	"mpeg2": types.FormatMP2,
	"mp2":   types.FormatMP2,
}

var dvdChannels = map[string]int{
	"mono":   1,
	"stereo": 2,
	"2.1":    3,
	"4.0":    4,
	"4.1":    5,
	"5.0":    5,
	"5.1":    6,
	"6.1":    7,
	"7.1":    8,
}

var dvdVideoFormats = map[string]types.FormatID{
	"0x31435657": types.FormatVC1,
	"0x10000001": types.FormatMPEG1,
	"0x10000002": types.FormatMPEG2,
}

// MPlayer identifies DVD titles.
type MPlayer struct {
	Path   string
	Runner Runner
}

func NewMPlayer(path string, timeout time.Duration) *MPlayer {
	if strings.TrimSpace(path) == "" {
		path = "mplayer"
	}
	return &MPlayer{Path: path, Runner: Runner{Timeout: timeout}}
}

// ParseDVDTitle fills d with the streams of one title of the DVD at path,
// which may be an image file or a VIDEO_TS directory.
func (m *MPlayer) ParseDVDTitle(ctx context.Context, path string, title int, d *types.Descriptor) error {
	res, err := m.Runner.Run(ctx, m.Path, nil,
		"-identify", "-endpos", "0", "-v",
		"-ao", "null", "-vc", "null", "-vo", "null",
		"-dvd-device", path, fmt.Sprintf("dvd://%d", title),
	)
	if err != nil {
		return err
	}
	ParseDVDTitleInfo(res.Lines(), d)
	if len(d.VideoTracks) == 0 && len(d.AudioTracks) == 0 {
		return fmt.Errorf("mplayer found no streams in title %d of %s", title, path)
	}
	return nil
}

// ParseDVDTitleInfo fills d from mplayer's identification output.
func ParseDVDTitleInfo(lines []string, d *types.Descriptor) {
	video := types.VideoTrack{Codec: types.FormatMPEG2, Lang: types.LangUnd}
	haveVideo := false

	for _, line := range lines {
		line = strings.TrimSpace(line)
		key, value, isID := strings.Cut(line, "=")
		if isID && strings.HasPrefix(key, "ID_") {
			haveVideo = dvdIdentify(key, value, &video, d) || haveVideo
			continue
		}

		switch {
		case strings.HasPrefix(line, "DVD start="):
			sectors, err := strconv.ParseUint(strings.TrimPrefix(line, "DVD start="), 10, 64)
			if err != nil {
				log.Emit(logger.DEBUG, "Could not parse DVD size %q\n", line)
				continue
			}
			d.SizeBytes = sectors * dvdSectorSize
		case strings.HasPrefix(line, "audio stream:"):
			if m := dvdAudioStream.FindStringSubmatch(line); m != nil {
				d.AddAudioTrack(dvdAudioTrack(m, d))
			} else {
				log.Emit(logger.DEBUG, "Could not parse DVD audio stream %q\n", line)
			}
		case strings.HasPrefix(line, "subtitle ("):
			if m := dvdSubtitleStream.FindStringSubmatch(line); m != nil {
				order, _ := strconv.Atoi(m[1])
				d.AddSubtitleTrack(types.SubtitleTrack{
					Codec:       types.SubtitleVobSub,
					StreamOrder: order,
					Lang:        normalize.Language(m[2]),
				})
			}
		}
	}

	if haveVideo {
		d.AddVideoTrack(video)
	}
	d.Container = types.FormatISO
	d.ParserName = MPlayerParserName
}

// dvdIdentify applies one ID_KEY=value line. It reports whether the line
// described the video stream.
func dvdIdentify(key, value string, video *types.VideoTrack, d *types.Descriptor) bool {
	switch key {
	case "ID_VIDEO_WIDTH":
		video.Width, _ = strconv.Atoi(value)
	case "ID_VIDEO_HEIGHT":
		video.Height, _ = strconv.Atoi(value)
	case "ID_VIDEO_FPS":
		video.FrameRate, _ = strconv.ParseFloat(value, 64)
	case "ID_VIDEO_ASPECT":
		if aspect, err := strconv.ParseFloat(value, 64); err == nil && aspect > 0 {
			video.AspectRatio = strconv.FormatFloat(aspect, 'f', -1, 64)
		}
	case "ID_VIDEO_FORMAT":
		if f, ok := dvdVideoFormats[strings.ToLower(value)]; ok {
			video.Codec = f
		}
	case "ID_LENGTH":
		if seconds, err := strconv.ParseFloat(value, 64); err == nil {
			d.SetDuration(seconds)
		}
		return false
	default:
		return false
	}
	return true
}

func dvdAudioTrack(m []string, d *types.Descriptor) types.AudioTrack {
	order, _ := strconv.Atoi(m[1])
	aid, _ := strconv.Atoi(m[5])
	a := types.AudioTrack{
		StreamOrder: order,
		StreamID:    aid,
		Lang:        normalize.Language(m[4]),
		Channels:    dvdChannels[m[3]],
	}

	codec, ok := dvdAudioCodecs[m[2]]
	if !ok {
		d.Warn("mplayer", "unknown DVD audio format %q", m[2])
		codec = types.FormatUnd
	} else {
		a.SampleRate = 48000
	}
	a.Codec = codec

	// DVD audio ids are allocated by codec
	var expected types.FormatID
	switch {
	case aid >= 160:
		expected = types.FormatLPCM
	case aid >= 136:
		expected = types.FormatDTS
	case aid >= 128:
		expected = types.FormatAC3
	default:
		expected = types.FormatMP2
	}
	if ok && expected != codec {
		d.Warn("mplayer", "audio stream %d is %s but aid %d belongs to %s", order, codec, aid, expected)
	}
	return a
}
