package helpers

import "unicode/utf8"

// TruncateRunes bounds s to max characters, cutting on a rune boundary so
// multibyte text is never left with a partial encoding.
func TruncateRunes(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}

// LastRunes keeps the trailing max characters of s, also on a rune boundary.
func LastRunes(s string, max int) string {
	if max <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[len(r)-max:])
}
