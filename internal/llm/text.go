package llm

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// an opening fence with an optional language tag, or a closing fence
var fence = regexp.MustCompile("```[A-Za-z]*[ \t]*\r?\n?")

// CleanJSON strips markdown code fences from a model reply.
func CleanJSON(s string) string {
	return strings.TrimSpace(fence.ReplaceAllString(strings.TrimSpace(s), ""))
}

// escapes JSON accepts after a backslash
const jsonEscapes = `"\/bfnrtu`

// FixInvalidEscapes doubles the backslash of escapes JSON does not know,
// such as the \N line break of ASS subtitles.
func FixInvalidEscapes(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}

	var b strings.Builder
	b.Grow(len(s) + 8)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i == len(s)-1 {
			b.WriteByte(c)
			continue
		}
		next := s[i+1]
		if strings.IndexByte(jsonEscapes, next) < 0 {
			b.WriteByte('\\')
		}
		b.WriteByte(c)
		b.WriteByte(next)
		i++
	}
	return b.String()
}

// Truncate shortens s to at most maxLen bytes plus an ellipsis, never
// splitting a UTF-8 sequence.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
