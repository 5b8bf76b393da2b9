package extract

import (
	"strings"
	"unicode"
)

// SplitSentences splits transcript text on . ! and ? runs that are followed
// by whitespace or end of text, so decimals like "1.1" stay intact
func SplitSentences(text string) []string {
	text = strings.Join(strings.Fields(text), " ")

	var sentences []string
	var current strings.Builder

	runes := []rune(text)
	for i, r := range runes {
		current.WriteRune(r)

		if !isTerminator(r) {
			continue
		}
		if i+1 < len(runes) && isTerminator(runes[i+1]) {
			continue
		}
		if i+1 == len(runes) || unicode.IsSpace(runes[i+1]) {
			if s := strings.TrimSpace(current.String()); s != "" {
				sentences = append(sentences, s)
			}
			current.Reset()
		}
	}

	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}

	return sentences
}

// CheckableSentences keeps sentences longer than minLen characters in
// order. Repeats are kept: a claim made twice is checked twice.
func CheckableSentences(text string, minLen int) []string {
	var out []string
	for _, s := range SplitSentences(text) {
		if len([]rune(s)) > minLen {
			out = append(out, s)
		}
	}
	return out
}

func isTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}
