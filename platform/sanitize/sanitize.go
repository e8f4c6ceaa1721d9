// Package sanitize cleans customer-supplied text before it is echoed back in
// outbound chat messages.
package sanitize

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	htmlTagRegex    = regexp.MustCompile(`<[^>]*>`)
	whitespaceRegex = regexp.MustCompile(`\s+`)
)

// chatMarkup is the set of characters WhatsApp treats as inline formatting.
const chatMarkup = "*_~`"

// StripHTML removes HTML tags, including tags hidden behind common entities.
func StripHTML(s string) string {
	result := htmlTagRegex.ReplaceAllString(s, "")
	result = strings.NewReplacer(
		"&lt;", "<",
		"&gt;", ">",
		"&amp;", "&",
		"&quot;", "\"",
		"&#39;", "'",
	).Replace(result)
	result = htmlTagRegex.ReplaceAllString(result, "")
	return strings.TrimSpace(result)
}

// ChatText returns s as a single line without markup, cut to maxRunes.
// maxRunes <= 0 disables the cut.
func ChatText(s string, maxRunes int) string {
	result := StripHTML(s)
	result = strings.Map(func(r rune) rune {
		if strings.ContainsRune(chatMarkup, r) {
			return -1
		}
		return r
	}, result)
	result = strings.TrimSpace(whitespaceRegex.ReplaceAllString(result, " "))

	if maxRunes > 0 && utf8.RuneCountInString(result) > maxRunes {
		runes := []rune(result)
		result = strings.TrimSpace(string(runes[:maxRunes]))
	}
	return result
}
