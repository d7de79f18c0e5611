package textutil

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// Truncate shortens a string to maxLen runes, appending "..." if truncated.
func Truncate(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	r := []rune(s)
	return string(r[:maxLen]) + "..."
}

// NormalizeID trims whitespace and collapses integral float spellings
// ("42.0") to their integer form so that ids exported by spreadsheet tools
// match the ids of the source dataset.
func NormalizeID(s string) string {
	s = strings.TrimSpace(s)
	if !strings.Contains(s, ".") {
		return s
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != float64(int64(f)) {
		return s
	}
	return strconv.FormatInt(int64(f), 10)
}
