package notes

import (
	"strings"
	"unicode/utf8"
)

// Preview flattens content to one line and cuts it to maxRunes, appending
// "..." when anything was dropped.
func Preview(content string, maxRunes int) string {
	flat := strings.Join(strings.Fields(content), " ")
	if maxRunes <= 0 || utf8.RuneCountInString(flat) <= maxRunes {
		return flat
	}
	runes := []rune(flat)
	return strings.TrimRight(string(runes[:maxRunes]), " ") + "..."
}

// CountLines returns the number of lines in content. An empty string has 0
// lines.
func CountLines(content string) int {
	if content == "" {
		return 0
	}
	return strings.Count(content, "\n") + 1
}
