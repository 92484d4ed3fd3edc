package shared

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripped is the punctuation set removed during normalization, in addition to whitespace.
const stripped = `.,'":_-!?`

// foldMarks decomposes to NFD, drops combining marks, and recomposes, so
// "Señorita" and "Senorita" fold to the same string.
var foldMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize lowercases s, removes diacritics, and strips punctuation and
// whitespace for fuzzy comparison. Titles and artist names go through the
// same function so comparisons stay symmetric. Idempotent.
func Normalize(s string) string {
	folded, _, err := transform.String(foldMarks, s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range strings.ToLower(folded) {
		if unicode.IsSpace(r) || strings.ContainsRune(stripped, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// NormalizeTrackKey builds a comparison key from a track's title and artist.
func NormalizeTrackKey(title, artist string) string {
	return Normalize(title) + "|" + Normalize(artist)
}

// SanitizeForPlatform folds s to ASCII, strips quote characters, and caps the
// result at max bytes. Platform metadata fields reject characters and lengths
// the catalog happily stores.
func SanitizeForPlatform(s string, max int) string {
	folded, _, err := transform.String(foldMarks, s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if r == '"' || r == '\'' || r > unicode.MaxASCII {
			continue
		}
		b.WriteRune(r)
	}

	out := strings.TrimSpace(b.String())
	if max > 0 && len(out) > max {
		out = strings.TrimSpace(out[:max])
	}
	return out
}
