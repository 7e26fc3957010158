package tui

import "unicode/utf8"

// truncate shortens a string to max runes with an ellipsis
func truncate(s string, max int) string {
	if max <= 3 || utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max-3]) + "..."
}
