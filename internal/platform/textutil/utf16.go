// Package textutil provides text measurement for Telegram messages.
//
// Telegram counts message length and entity offsets in UTF-16 code units, not
// Unicode code points. Characters outside the BMP (emoji, etc.) require surrogate
// pairs and count as 2 units. Every length and cut in this module goes through
// these helpers so that offsets stay consistent with the entities the server sent.
package textutil

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Len returns the number of UTF-16 code units needed to encode the string.
func Len(s string) int {
	n := 0

	for _, r := range s {
		n += runeUnits(r)
	}

	return n
}

// Slice returns the part of s between UTF-16 offsets start and end.
// Offsets falling inside a surrogate pair are moved to the start of that rune.
func Slice(s string, start, end int) string {
	if start < 0 {
		start = 0
	}

	if end < start {
		return ""
	}

	from := byteOffset(s, start)
	to := byteOffset(s, end)

	return s[from:to]
}

// Prefix returns the longest prefix of s that fits within maxUnits UTF-16 code units.
func Prefix(s string, maxUnits int) string {
	return s[:byteOffset(s, maxUnits)]
}

// Cut returns the UTF-16 offset at which a chunk starting at start and at most
// limit units long must end so that no surrogate pair is split.
func Cut(s string, start, limit int) int {
	end := start + limit
	total := Len(s)

	if end >= total {
		return total
	}

	units := 0

	for _, r := range s {
		w := runeUnits(r)
		if units+w > end {
			break
		}

		units += w
	}

	if units <= start {
		// A single rune wider than limit; keep progress.
		return start + limit
	}

	return units
}

// TrimRight trims trailing whitespace and returns the result with its UTF-16 length.
func TrimRight(s string) (string, int) {
	trimmed := strings.TrimRightFunc(s, unicode.IsSpace)

	return trimmed, Len(trimmed)
}

func runeUnits(r rune) int {
	if r >= 0x10000 && r <= utf8.MaxRune {
		return 2
	}

	return 1
}

func byteOffset(s string, units int) int {
	if units <= 0 {
		return 0
	}

	count := 0

	for i, r := range s {
		w := runeUnits(r)
		if count+w > units {
			return i
		}

		count += w
	}

	return len(s)
}
