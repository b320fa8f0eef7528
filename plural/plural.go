// Package plural provides the CLDR cardinal plural categories for a
// language, used as variant keys when building pluralized messages.
// Locale variants are resolved via normalization and base-language
// fallback (pt-BR → pt); unknown languages fall back to ("other").
package plural

import "strings"

// Category group slices shared by the registry. Order follows CLDR:
// zero, one, two, few, many, other.
var (
	other            = []string{"other"}
	oneOther         = []string{"one", "other"}
	oneFewOther      = []string{"one", "few", "other"}
	oneTwoFewOther   = []string{"one", "two", "few", "other"}
	oneFewManyOther  = []string{"one", "few", "many", "other"}
	oneTwoManyOther  = []string{"one", "two", "many", "other"}
	zeroOneOther     = []string{"zero", "one", "other"}
	fullSet          = []string{"zero", "one", "two", "few", "many", "other"}
	oneTwoFewManyOth = []string{"one", "two", "few", "many", "other"}
)

// registry maps base language code to its ordered category list.
var registry = map[string][]string{
	"af": oneOther, "am": oneOther, "ar": fullSet, "az": oneOther,
	"be": oneFewManyOther, "bg": oneOther, "bn": oneOther,
	"bs": oneFewOther, "ca": oneOther, "cs": oneFewManyOther,
	"cy": fullSet, "da": oneOther, "de": oneOther, "el": oneOther,
	"en": oneOther, "es": oneOther, "et": oneOther, "eu": oneOther,
	"fa": oneOther, "fi": oneOther, "fr": oneOther, "ga": oneTwoFewManyOth,
	"gl": oneOther, "gu": oneOther, "he": oneTwoManyOther, "hi": oneOther,
	"hr": oneFewOther, "hu": oneOther, "hy": oneOther, "id": other,
	"is": oneOther, "it": oneOther, "ja": other, "ka": oneOther,
	"kk": oneOther, "km": other, "ko": other, "lo": other,
	"lt": oneFewManyOther, "lv": zeroOneOther, "mk": oneOther,
	"ml": oneOther, "mn": oneOther, "mr": oneOther, "ms": other,
	"mt": oneFewManyOther, "my": other, "nb": oneOther, "ne": oneOther,
	"nl": oneOther, "nn": oneOther, "no": oneOther, "pa": oneOther,
	"pl": oneFewManyOther, "ps": oneOther, "pt": oneOther,
	"ro": oneFewOther, "ru": oneFewManyOther, "si": oneOther,
	"sk": oneFewManyOther, "sl": oneTwoFewOther, "sq": oneOther,
	"sr": oneFewOther, "sv": oneOther, "sw": oneOther, "ta": oneOther,
	"te": oneOther, "th": other, "tr": oneOther, "uk": oneFewManyOther,
	"ur": oneOther, "uz": oneOther, "vi": other, "xh": oneOther,
	"yo": other, "zh": other, "zu": oneOther,
}

// Categories returns the ordered plural category names for a language
// code, supporting variants like pt_BR, pt-BR, and locale fallbacks.
// The returned slice is a copy the caller may keep.
func Categories(lang string) []string {
	cats, ok := registry[lang]
	if !ok {
		normalized := canonicalize(lang)
		if cats, ok = registry[normalized]; !ok {
			if base, _, found := strings.Cut(normalized, "-"); found {
				cats, ok = registry[base]
			}
		}
	}
	if !ok {
		cats = other
	}
	out := make([]string, len(cats))
	copy(out, cats)
	return out
}

func canonicalize(lang string) string {
	normalized := strings.ReplaceAll(strings.TrimSpace(lang), "_", "-")
	if normalized == "" {
		return ""
	}
	parts := strings.Split(normalized, "-")
	parts[0] = strings.ToLower(parts[0])
	if len(parts) >= 2 {
		parts[1] = strings.ToUpper(parts[1])
	}
	return strings.Join(parts, "-")
}
