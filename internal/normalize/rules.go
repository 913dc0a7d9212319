package normalize

import (
	"regexp"
	"slices"
	"strings"

	"github.com/simonhull/mediaprobe/internal/types"
)

// Rule is one entry of the ordered normalization table. Match decides
// whether the rule claims the value; once a rule matches, evaluation stops
// even if Resolve yields no format. Resolve may update the context.
type Rule struct {
	Name    string
	Match   func(v string, kind StreamKind, ctx *Context) bool
	Resolve func(v string, kind StreamKind, ctx *Context) types.FormatID
}

func eq(values ...string) func(string, StreamKind, *Context) bool {
	return func(v string, _ StreamKind, _ *Context) bool {
		return slices.Contains(values, v)
	}
}

func prefix(values ...string) func(string, StreamKind, *Context) bool {
	return func(v string, _ StreamKind, _ *Context) bool {
		for _, p := range values {
			if strings.HasPrefix(v, p) {
				return true
			}
		}
		return false
	}
}

func contains(values ...string) func(string, StreamKind, *Context) bool {
	return func(v string, _ StreamKind, _ *Context) bool {
		for _, s := range values {
			if strings.Contains(v, s) {
				return true
			}
		}
		return false
	}
}

func either(preds ...func(string, StreamKind, *Context) bool) func(string, StreamKind, *Context) bool {
	return func(v string, k StreamKind, c *Context) bool {
		for _, p := range preds {
			if p(v, k, c) {
				return true
			}
		}
		return false
	}
}

// kindIs restricts a predicate to one stream kind.
func kindIs(kind StreamKind, pred func(string, StreamKind, *Context) bool) func(string, StreamKind, *Context) bool {
	return func(v string, k StreamKind, c *Context) bool {
		return k == kind && pred(v, k, c)
	}
}

func fixed(f types.FormatID) func(string, StreamKind, *Context) types.FormatID {
	return func(string, StreamKind, *Context) types.FormatID {
		return f
	}
}

func rule(name string, match func(string, StreamKind, *Context) bool, f types.FormatID) Rule {
	return Rule{Name: name, Match: match, Resolve: fixed(f)}
}

var dvPattern = regexp.MustCompile(`^(?:(dv)|(cdv.?)|(dc25)|(dcap)|(dvc.?)|(dvs.?)|(dvrs)|(dv25)|(dv50)|(dvan)|(dvh.?)|(dvis)|(dvl.?)|(dvnm)|(dvp.?)|(mdvf)|(pdvc)|(r411)|(r420)|(sdcc)|(sl25)|(sl50)|(sldv))$`)

// aacMatroska maps the Matroska A_AAC codec ids. Unlisted A_AAC variants are AAC Main.
var aacMatroska = map[string]types.FormatID{
	"a_aac/mpeg2/main":      types.FormatAACMain,
	"a_aac/mpeg2/lc":        types.FormatAACLC,
	"a_aac-2":               types.FormatAACLC,
	"a_aac/mpeg2/lc/sbr":    types.FormatHEAAC,
	"a_aac/mpeg2/ssr":       types.FormatAACSSR,
	"a_aac/mpeg4/main":      types.FormatAACMain,
	"a_aac/mpeg4/lc":        types.FormatAACLC,
	"a_aac/mpeg4/lc/sbr":    types.FormatHEAAC,
	"a_aac/mpeg4/lc/sbr/ps": types.FormatHEAAC,
	"a_aac/mpeg4/ssr":       types.FormatAACSSR,
	"a_aac/mpeg4/ltp":       types.FormatAACLTP,
}

// wmaProfiles maps the audio values seen inside ASF/WMV containers.
var wmaProfiles = map[string]types.FormatID{
	"160":   types.FormatWMA,
	"161":   types.FormatWMA,
	"162":   types.FormatWMAPro,
	"163":   types.FormatWMALossless,
	"a":     types.FormatWMAVoice,
	"wma10": types.FormatWMA10,
}

// Rules is the ordered normalization table.
var Rules = []Rule{
	// containers
	rule("3g2", prefix("3g2"), types.Format3G2),
	rule("3gp", prefix("3gp"), types.Format3GP),
	rule("matroska", prefix("matroska"), types.FormatMKV),
	rule("avi", eq("avi", "opendml"), types.FormatAVI),
	rule("cinepak", prefix("cinepa"), types.FormatCinepak),
	rule("flash", prefix("flash"), types.FormatFLV),
	rule("webm", eq("webm"), types.FormatWebM),
	rule("quicktime", eq("qt", "quicktime"), types.FormatMOV),
	rule("mp4", func(v string, k StreamKind, _ *Context) bool {
		return strings.Contains(v, "isom") ||
			(k != Audio && strings.HasPrefix(v, "mp4") && !strings.HasPrefix(v, "mp4a")) ||
			v == "20" || v == "isml" ||
			(strings.HasPrefix(v, "m4a") && !strings.HasPrefix(v, "m4ae")) ||
			strings.HasPrefix(v, "m4v") ||
			v == "mpeg-4 visual"
	}, types.FormatMP4),
	rule("mpeg-ps", contains("mpeg-ps"), types.FormatMPEGPS),
	rule("mpeg-ts", either(contains("mpeg-ts"), eq("bdav")), types.FormatMPEGTS),
	rule("caf", eq("caf"), types.FormatCAF),
	rule("aiff", contains("aiff"), types.FormatAIFF),
	rule("atmos", either(prefix("atmos"), eq("131")), types.FormatATMOS),
	rule("ogg", contains("ogg"), types.FormatOGG),
	rule("opus", contains("opus"), types.FormatOpus),
	rule("realmedia", either(contains("realmedia"), prefix("rv")), types.FormatRM),
	rule("theora", prefix("theora"), types.FormatTheora),
	rule("windows media", either(prefix("windows media"), eq("wmv1", "wmv2")), types.FormatWMV),

	// video codecs
	rule("mjpeg", kindIs(Video, either(contains("mjpg", "mjpeg"), eq("mjpa", "mjpb", "jpeg", "jpeg2000"))), types.FormatMJPEG),
	rule("h261", eq("h261"), types.FormatH261),
	rule("h263", eq("h263", "s263", "u263"), types.FormatH263),
	rule("h264", kindIs(Video, prefix("avc", "h264")), types.FormatH264),
	rule("hevc", prefix("hevc"), types.FormatH265),
	rule("sorenson", prefix("sorenson"), types.FormatSorenson),
	rule("vp6", prefix("vp6"), types.FormatVP6),
	rule("vp7", prefix("vp7"), types.FormatVP7),
	rule("vp8", prefix("vp8"), types.FormatVP8),
	rule("vp9", prefix("vp9"), types.FormatVP9),
	rule("divx", either(prefix("div", "xvid"), eq("dx50", "dvx1")), types.FormatDivX),
	rule("indeo", prefix("indeo"), types.FormatIndeo),
	rule("yuv", kindIs(Video, eq("yuv")), types.FormatYUV),
	rule("rgb", kindIs(Video, eq("rgb", "rgba")), types.FormatRGB),
	rule("rle", kindIs(Video, eq("rle")), types.FormatRLE),
	rule("mace3", eq("mac3"), types.FormatMACE3),
	rule("mace6", eq("mac6"), types.FormatMACE6),
	rule("tga", kindIs(Video, prefix("tga")), types.FormatTGA),
	rule("ffv1", eq("ffv1"), types.FormatFFV1),
	rule("celp", eq("celp"), types.FormatCELP),
	rule("qcelp", eq("qcelp"), types.FormatQCELP),
	rule("dv", func(v string, _ StreamKind, _ *Context) bool {
		return dvPattern.MatchString(v) && !strings.Contains(v, "dvhe")
	}, types.FormatDV),
	rule("mpeg video", contains("mpeg video"), types.FormatMPEG2),
	{
		Name:  "mpeg1",
		Match: prefix("version 1"),
		Resolve: func(_ string, _ StreamKind, c *Context) types.FormatID {
			if c.VideoCodec == types.FormatMPEG2 && c.AudioCodec.IsEmpty() {
				return types.FormatMPEG1
			}
			return types.FormatNone
		},
	},
	rule("vc1", eq("vc-1", "wvc1", "wmv3", "wmvp", "wmva"), types.FormatVC1),
	rule("au", eq("au", "ulaw/au audio file"), types.FormatAU),
	rule("av1", either(eq("av01"), contains("av1")), types.FormatAV1),

	// audio codecs
	{
		Name:  "layer 3",
		Match: eq("layer 3"),
		Resolve: func(_ string, _ StreamKind, c *Context) types.FormatID {
			if c.AudioCodec != types.FormatMPA {
				return types.FormatNone
			}
			if c.Container == types.FormatMPA {
				c.Container = types.FormatMP3
			}
			return types.FormatMP3
		},
	},
	{
		Name: "layer 2",
		Match: func(v string, _ StreamKind, c *Context) bool {
			return v == "layer 2" && c.AudioCodec == types.FormatMPA && c.Container == types.FormatMPA
		},
		Resolve: func(_ string, _ StreamKind, c *Context) types.FormatID {
			c.Container = types.FormatMP2
			return types.FormatMP2
		},
	},
	{
		Name:  "dts-hd",
		Match: eq("ma", "ma / core", "x / ma / core", "imax / x / ma / core", "134"),
		Resolve: func(_ string, _ StreamKind, c *Context) types.FormatID {
			if c.AudioCodec == types.FormatDTS {
				return types.FormatDTSHD
			}
			return types.FormatNone
		},
	},
	rule("vorbis", eq("vorbis", "a_vorbis"), types.FormatVorbis),
	rule("adts", eq("adts"), types.FormatADTS),
	rule("amr", prefix("amr"), types.FormatAMR),
	rule("dolby e", eq("dolby e"), types.FormatDolbyE),
	rule("ac3", eq("ac-3", "a_ac3", "2000"), types.FormatAC3),
	rule("cook", prefix("cook"), types.FormatCook),
	rule("qdesign", prefix("qdesign"), types.FormatQDMC),
	rule("realaudio lossless", eq("realaudio lossless"), types.FormatRALF),
	rule("eac3", eq("e-ac-3"), types.FormatEAC3),
	rule("truehd", contains("truehd"), types.FormatTrueHD),
	rule("tta", eq("tta"), types.FormatTTA),
	rule("mp3", eq("55", "a_mpeg/l3"), types.FormatMP3),
	rule("aac-lc", func(v string, _ StreamKind, c *Context) bool {
		switch v {
		case "lc", "aac lc", "mp4a-40-2", "00001000-0000-ff00-8000-00aa00389b71":
			return true
		}
		return v == "aac" && c.Container == types.FormatAVI
	}, types.FormatAACLC),
	rule("aac lc sbr", eq("aac lc sbr"), types.FormatHEAAC),
	rule("aac-ltp", eq("ltp"), types.FormatAACLTP),
	rule("he-aac", contains("he-aac"), types.FormatHEAAC),
	rule("aac-main", eq("main"), types.FormatAACMain),
	rule("aac-ssr", eq("ssr"), types.FormatAACSSR),
	{
		Name:  "a_aac",
		Match: prefix("a_aac"),
		Resolve: func(v string, _ StreamKind, _ *Context) types.FormatID {
			if f, ok := aacMatroska[v]; ok {
				return f
			}
			return types.FormatAACMain
		},
	},
	rule("erbsac", eq("er bsac", "mp4a-40-22"), types.FormatERBSAC),
	rule("adpcm", prefix("adpcm"), types.FormatADPCM),
	rule("lpcm", func(v string, _ StreamKind, c *Context) bool {
		return v == "pcm" || (v == "1" && c.AudioCodec != types.FormatDTS)
	}, types.FormatLPCM),
	rule("alac", eq("alac"), types.FormatALAC),
	rule("als", eq("als"), types.FormatALS),
	rule("wav", eq("wave"), types.FormatWAV),
	rule("shorten", eq("shorten"), types.FormatSHN),
	rule("sls", eq("sls", "sls non-core"), types.FormatSLS),
	rule("acelp", eq("acelp"), types.FormatACELP),
	rule("g729", eq("g.729", "g.729a"), types.FormatG729),
	rule("ra14.4", eq("vselp"), types.FormatRA144),
	rule("ra28.8", eq("g.728"), types.FormatRA288),
	rule("sipro", eq("a_real/sipr", "kevin"), types.FormatSipro),
	rule("dts", func(v string, _ StreamKind, c *Context) bool {
		return (v == "dts" || v == "a_dts" || v == "8") && c.AudioCodec != types.FormatDTSHD
	}, types.FormatDTS),
	rule("mpeg audio", eq("mpeg audio"), types.FormatMPA),
	{
		Name:  "wma",
		Match: eq("wma"),
		Resolve: func(_ string, _ StreamKind, c *Context) types.FormatID {
			if c.VideoCodec.IsEmpty() {
				c.Container = types.FormatWMA
			}
			return types.FormatWMA
		},
	},
	{
		Name: "asf audio",
		Match: func(_ string, k StreamKind, c *Context) bool {
			return k == Audio && (c.Container == types.FormatWMA || c.Container == types.FormatWMV)
		},
		Resolve: func(v string, _ StreamKind, _ *Context) types.FormatID {
			return wmaProfiles[v]
		},
	},
	rule("flac", eq("flac", "19d"), types.FormatFLAC),
	rule("monkey's audio", eq("monkey's audio"), types.FormatAPE),
	rule("musepack", contains("musepack"), types.FormatMPC),
	rule("wavpack", contains("wavpack"), types.FormatWavPack),
	rule("mlp", contains("mlp"), types.FormatMLP),
	rule("openmg", eq("openmg"), types.FormatATRAC),
	{
		Name: "atrac",
		Match: func(v string, _ StreamKind, _ *Context) bool {
			return strings.HasPrefix(v, "atrac") ||
				strings.HasSuffix(v, "-a119-fffa01e4ce62") ||
				strings.HasSuffix(v, "-88fc-61654f8c836c")
		},
		Resolve: func(_ string, k StreamKind, c *Context) types.FormatID {
			if k == Audio && c.Container != types.FormatATRAC {
				c.Container = types.FormatATRAC
			}
			return types.FormatATRAC
		},
	},
	rule("nellymoser", eq("nellymoser"), types.FormatNellymoser),

	// images
	rule("jpeg", eq("jpeg"), types.FormatJPG),
	rule("png", eq("png"), types.FormatPNG),
	rule("gif", eq("gif"), types.FormatGIF),
	rule("bitmap", eq("bitmap"), types.FormatBMP),
	rule("tiff", eq("tiff"), types.FormatTIFF),

	// profile@level strings carry no format but fill the AVC fields
	{
		Name:  "avc profile",
		Match: kindIs(Video, contains("@l")),
		Resolve: func(v string, _ StreamKind, c *Context) types.FormatID {
			i := strings.LastIndex(v, "@l")
			c.AvcLevel = v[i+2:]
			c.AvcProfile = v[:strings.Index(v, "@l")]
			return types.FormatNone
		},
	},
}
