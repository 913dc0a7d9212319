package normalize

import (
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"github.com/simonhull/mediaprobe/internal/types"
)

// titleLanguages are the ISO 639-1 codes whose English names are
// recognised inside track titles.
var titleLanguages = []string{
	"af", "ar", "bg", "bn", "bs", "ca", "cs", "cy", "da", "de", "el", "en",
	"es", "et", "eu", "fa", "fi", "fr", "ga", "gl", "he", "hi", "hr", "hu",
	"hy", "id", "is", "it", "ja", "ka", "kk", "ko", "lt", "lv", "mk", "ml",
	"mn", "ms", "mt", "nb", "nl", "nn", "no", "pl", "pt", "ro", "ru", "sk",
	"sl", "sq", "sr", "sv", "sw", "ta", "te", "th", "tl", "tr", "uk", "ur",
	"uz", "vi", "zh",
}

// bibliographic maps ISO 639-2/B codes to their terminologic form.
// language.ParseBase accepts them but keeps the B code.
var bibliographic = map[string]string{
	"alb": "sqi", "arm": "hye", "baq": "eus", "bur": "mya", "chi": "zho",
	"cze": "ces", "dut": "nld", "fre": "fra", "geo": "kat", "ger": "deu",
	"gre": "ell", "ice": "isl", "mac": "mkd", "mao": "mri", "may": "msa",
	"per": "fas", "rum": "ron", "slo": "slk", "tib": "bod", "wel": "cym",
}

var (
	namesOnce sync.Once
	names     map[string]string
)

// languageNames returns the lower-cased English language names mapped to
// their ISO 639-2 code.
func languageNames() map[string]string {
	namesOnce.Do(func() {
		namer := display.English.Languages()
		names = make(map[string]string, len(titleLanguages))
		for _, code := range titleLanguages {
			base := language.MustParseBase(code)
			if name := strings.ToLower(namer.Name(base)); name != "" {
				names[name] = base.ISO3()
			}
		}
	})
	return names
}

// Language normalizes a language code or English language name to an
// ISO 639-2 code. Bibliographic codes map to their terminologic form
// ("ger" becomes "deu"). Unknown values yield "und".
func Language(raw string) string {
	v := strings.ToLower(strings.TrimSpace(raw))
	if v == "" {
		return types.LangUnd
	}
	if t, ok := bibliographic[v]; ok {
		return t
	}
	if len(v) == 2 || len(v) == 3 {
		if base, err := language.ParseBase(v); err == nil {
			if iso3 := base.ISO3(); iso3 != "" {
				return iso3
			}
		}
	}
	if strings.ContainsAny(v, "-_") {
		if tag, err := language.Parse(strings.ReplaceAll(v, "_", "-")); err == nil {
			if base, conf := tag.Base(); conf != language.No {
				if t, ok := bibliographic[base.ISO3()]; ok {
					return t
				}
				return base.ISO3()
			}
		}
	}
	if iso3, ok := languageNames()[v]; ok {
		return iso3
	}
	// "English (United States)" and similar
	if i := strings.IndexAny(v, " (/"); i > 0 {
		if iso3, ok := languageNames()[v[:i]]; ok {
			return iso3
		}
	}
	return types.LangUnd
}

// LanguageFromTitle returns the ISO 639-2 code of the first English
// language name found in title, or "" when there is none.
func LanguageFromTitle(title string) string {
	words := strings.FieldsFunc(strings.ToLower(title), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	idx := languageNames()
	for i, w := range words {
		if i+1 < len(words) {
			if iso3, ok := idx[w+" "+words[i+1]]; ok {
				return iso3
			}
		}
		if iso3, ok := idx[w]; ok {
			return iso3
		}
	}
	return ""
}
