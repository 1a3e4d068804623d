package utils

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// IsWordBoundary reports whether r separates words.
// Anything that is not a letter counts: spaces, punctuation, digits and symbols.
func IsWordBoundary(r rune) bool {
	return !unicode.IsLetter(r)
}

// FoldRune returns the lowercase variant of r.
func FoldRune(r rune) rune {
	if r < utf8.RuneSelf {
		if 'A' <= r && r <= 'Z' {
			return r + 'a' - 'A'
		}
		return r
	}
	return unicode.ToLower(r)
}

// UpperRatio returns the share of runes in s that are uppercase letters.
// Empty strings have a ratio of 0.
func UpperRatio(s string) float64 {
	total, upper := 0, 0
	for _, r := range s {
		total++
		if unicode.IsUpper(r) {
			upper++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(upper) / float64(total)
}

// TrimTag strips the leading '#' of an inline tag and surrounding spaces.
func TrimTag(tag string) string {
	return strings.TrimPrefix(strings.TrimSpace(tag), "#")
}

// IsBlank reports whether s has no visible characters.
func IsBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
