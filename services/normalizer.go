package services

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// MinTextLength is the shortest text, in characters, that survives CleanText.
const MinTextLength = 10

// CleanText turns raw text into its canonical embeddable form: non-printable
// characters are dropped, every whitespace run becomes a single space and the
// ends are trimmed. It reports false when fewer than MinTextLength characters
// remain. CleanText is idempotent.
func CleanText(text string) (string, bool) {
	if text == "" {
		return "", false
	}

	// Whitespace is kept here even when unprintable (NBSP, line separators) so
	// that Fields below turns it into a word boundary instead of gluing words.
	printable := strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) || unicode.IsSpace(r) {
			return r
		}
		return -1
	}, text)

	cleaned := strings.Join(strings.Fields(printable), " ")
	if utf8.RuneCountInString(cleaned) < MinTextLength {
		return "", false
	}
	return cleaned, true
}
