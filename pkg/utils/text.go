package utils

import "strings"

// Truncate cuts text to at most limit runes. When a space falls in the last
// fifth of the window the cut happens there so words stay whole.
func Truncate(text string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}

	cut := runes[:limit]
	if i := strings.LastIndex(string(cut), " "); i >= 0 {
		head := []rune(string(cut)[:i])
		if len(head) >= limit-limit/5 {
			return strings.TrimSpace(string(head))
		}
	}
	return string(cut)
}
