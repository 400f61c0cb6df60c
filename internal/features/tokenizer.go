package features

import (
	"iter"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Tokens yields the lowercase word tokens of text: maximal runs of letters,
// digits and underscores. The sequence is lazy and can be ranged over again.
func Tokens(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		start := -1
		for i, r := range text {
			if isWordRune(r) {
				if start < 0 {
					start = i
				}
				continue
			}
			if start >= 0 {
				if !yield(strings.ToLower(text[start:i])) {
					return
				}
				start = -1
			}
		}
		if start >= 0 {
			yield(strings.ToLower(text[start:]))
		}
	}
}

// TokenList materializes Tokens(text).
func TokenList(text string) []string {
	tokens := make([]string, 0, len(text)/4)
	for tok := range Tokens(text) {
		tokens = append(tokens, tok)
	}
	return tokens
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// truncateRunes cuts s to at most n runes.
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
