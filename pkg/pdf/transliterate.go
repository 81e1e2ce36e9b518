package pdf

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// polishFold covers the letters that do not decompose under NFD (ł, Ł) together
// with the rest of the Polish alphabet so the mapping stays explicit.
var polishFold = map[rune]rune{
	'ą': 'a', 'ć': 'c', 'ę': 'e', 'ł': 'l', 'ń': 'n', 'ó': 'o', 'ś': 's', 'ź': 'z', 'ż': 'z',
	'Ą': 'A', 'Ć': 'C', 'Ę': 'E', 'Ł': 'L', 'Ń': 'N', 'Ó': 'O', 'Ś': 'S', 'Ź': 'Z', 'Ż': 'Z',
}

func foldRune(r rune) rune {
	if a, ok := polishFold[r]; ok {
		return a
	}
	return r
}

// Transliterate replaces Polish letters using a fixed table and strips
// combining diacritics from other Latin letters. Only Latin diacritics are
// folded: letters without a decomposition (ß, Ø, đ) and non-Latin scripts
// pass through unchanged, so the result is not guaranteed to be ASCII.
func Transliterate(text string) string {
	if isASCII(text) {
		return text
	}
	t := transform.Chain(
		runes.Map(foldRune),
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		norm.NFC,
	)
	out, _, err := transform.String(t, text)
	if err != nil {
		// the chain only fails on malformed input; fall back to the table alone
		return strings.Map(foldRune, text)
	}
	return out
}

// Normalize returns the NFC form of text
func Normalize(text string) string {
	return norm.NFC.String(text)
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}
