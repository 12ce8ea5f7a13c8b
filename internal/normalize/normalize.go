// Package normalize canonicalizes product identifiers and free-text labels.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize trims surrounding whitespace and uppercases the identifier.
// Interior characters, including leading zeros, are preserved.
func Normalize(id string) string {
	return cases.Upper(language.Und).String(strings.TrimSpace(id))
}

// StripLeadingZeros removes leading '0' characters from a normalized identifier.
// An identifier made only of zeros becomes "0". Use only as a secondary key.
func StripLeadingZeros(id string) string {
	stripped := strings.TrimLeft(id, "0")
	if stripped == "" {
		return "0"
	}
	return stripped
}

// Key returns both lookup keys for a raw identifier.
func Key(id string) (normalized, zeroStripped string) {
	normalized = Normalize(id)
	return normalized, StripLeadingZeros(normalized)
}

// Label folds free text for keyword matching: accents are removed and the
// result is uppercased, so "Σύρμα" and "ΣΥΡΜΑ" compare equal.
func Label(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return cases.Upper(language.Und).String(folded)
}
