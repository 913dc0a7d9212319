package normalize

import (
	"strings"

	"github.com/simonhull/mediaprobe/internal/types"
)

var subtitleCodecs = map[string]types.FormatID{
	"s_text/utf8":   types.SubtitleSubRip,
	"subrip":        types.SubtitleSubRip,
	"srt":           types.SubtitleSubRip,
	"utf-8":         types.SubtitleSubRip,
	"s_text/ass":    types.SubtitleASS,
	"s_text/ssa":    types.SubtitleASS,
	"s_ass":         types.SubtitleASS,
	"s_ssa":         types.SubtitleASS,
	"ass":           types.SubtitleASS,
	"ssa":           types.SubtitleASS,
	"s_vobsub":      types.SubtitleVobSub,
	"vobsub":        types.SubtitleVobSub,
	"rle":           types.SubtitleVobSub,
	"subp":          types.SubtitleVobSub,
	"s_hdmv/pgs":    types.SubtitlePGS,
	"pgs":           types.SubtitlePGS,
	"144":           types.SubtitlePGS,
	"tx3g":          types.SubtitleTX3G,
	"timed text":    types.SubtitleTX3G,
	"mov_text":      types.SubtitleTX3G,
	"s_text/webvtt": types.SubtitleWebVTT,
	"webvtt":        types.SubtitleWebVTT,
	"wvtt":          types.SubtitleWebVTT,
	"microdvd":      types.SubtitleMicroDVD,
	"sami":          types.SubtitleSAMI,
	"dvb subtitle":  types.SubtitleDVB,
	"dvb_subtitle":  types.SubtitleDVB,
	"eia-608":       types.SubtitleEIA608,
	"cea-608":       types.SubtitleEIA608,
	"c608":          types.SubtitleEIA608,
	"dxsa":          types.SubtitleDivX,
	"dxsb":          types.SubtitleDivX,
	"xsub":          types.SubtitleDivX,
	"s_text/ascii":  types.SubtitleText,
	"s_text/usf":    types.SubtitleText,
	"text":          types.SubtitleText,
}

// Subtitle maps a subtitle format or codec id to its canonical identifier.
// Unsupported types yield FormatNone.
func Subtitle(raw string) types.FormatID {
	return subtitleCodecs[strings.ToLower(strings.TrimSpace(raw))]
}
