package search

import (
	"strings"
	"unicode"
)

const snippetMaxLen = 150

// Highlight markers are Private Use Area code points so rendering layers can
// substitute markup without ever confusing them with user content.
const (
	HighlightStart = ""
	HighlightEnd   = ""
)

const ellipsis = "…"

// Snippet builds a safe excerpt of text around the first occurrence of q.
// The output is plain text with the match wrapped in highlight markers,
// control characters stripped and whitespace collapsed. maxLen <= 0 uses the
// default of 150.
func Snippet(text, q string, maxLen int) string {
	if maxLen <= 0 {
		maxLen = snippetMaxLen
	}

	text = collapseWhitespace(stripControl(text))
	if text == "" {
		return ""
	}

	runes := []rune(text)

	matchStart, matchLen := findFold(runes, q)
	if matchStart < 0 {
		if tokens := strings.Fields(q); len(tokens) > 1 {
			matchStart, matchLen = findFold(runes, tokens[0])
		}
	}

	if matchStart < 0 {
		if len(runes) <= maxLen {
			return text
		}
		return string(runes[:maxLen]) + ellipsis
	}

	windowStart := matchStart + matchLen/2 - maxLen/2
	windowStart = min(max(windowStart, 0), max(len(runes)-maxLen, 0))
	windowEnd := min(windowStart+maxLen, len(runes))

	// The whole match is always highlighted, even when longer than the window.
	windowStart = min(windowStart, matchStart)
	windowEnd = max(windowEnd, matchStart+matchLen)

	var builder strings.Builder
	if windowStart > 0 {
		builder.WriteString(ellipsis)
	}
	builder.WriteString(string(runes[windowStart:matchStart]))
	builder.WriteString(HighlightStart)
	builder.WriteString(string(runes[matchStart : matchStart+matchLen]))
	builder.WriteString(HighlightEnd)
	if matchStart+matchLen < windowEnd {
		builder.WriteString(string(runes[matchStart+matchLen : windowEnd]))
	}
	if windowEnd < len(runes) {
		builder.WriteString(ellipsis)
	}

	return builder.String()
}

// findFold locates the first case-insensitive occurrence of needle in runes,
// returning its start index and length in runes, or (-1, 0).
func findFold(runes []rune, needle string) (int, int) {
	needleRunes := []rune(strings.TrimSpace(needle))
	if len(needleRunes) == 0 || len(needleRunes) > len(runes) {
		return -1, 0
	}

	for i := 0; i+len(needleRunes) <= len(runes); i++ {
		matched := true
		for j, needleRune := range needleRunes {
			if unicode.ToLower(runes[i+j]) != unicode.ToLower(needleRune) {
				matched = false
				break
			}
		}
		if matched {
			return i, len(needleRunes)
		}
	}

	return -1, 0
}
