package course

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

const (
	maxTitleLen   = 100
	maxTitleWords = 10
)

// TitleFromInput derives a course title from free-form input: the first
// sentence when it is at most 100 characters, otherwise the first ten
// words followed by "...".
func TitleFromInput(input string) string {
	input = norm.NFC.String(strings.TrimSpace(input))

	first := input
	if i := strings.IndexAny(input, ".!?"); i >= 0 {
		first = input[:i]
	}
	first = strings.TrimSpace(first)
	if first != "" && utf8.RuneCountInString(first) <= maxTitleLen {
		return first
	}

	words := strings.Fields(input)
	if len(words) >= maxTitleWords {
		return strings.Join(words[:maxTitleWords], " ") + "..."
	}
	return strings.Join(words, " ")
}
