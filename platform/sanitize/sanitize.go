// Package sanitize provides text sanitization utilities to prevent XSS attacks.
package sanitize

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	htmlTagRegex    = regexp.MustCompile(`<[^>]*>`)
	whitespaceRegex = regexp.MustCompile(`[ \t]+`)
)

// MaxNotesLength caps free-text fields such as contractor notes and feedback comments.
const MaxNotesLength = 4000

// StripHTML removes all HTML tags from a string, making it safe for text-only display.
func StripHTML(s string) string {
	result := htmlTagRegex.ReplaceAllString(s, "")
	result = strings.NewReplacer(
		"&lt;", "<",
		"&gt;", ">",
		"&amp;", "&",
		"&quot;", "\"",
		"&#39;", "'",
	).Replace(result)
	// Entities may have hidden a tag.
	result = htmlTagRegex.ReplaceAllString(result, "")
	return strings.TrimSpace(result)
}

// Text strips HTML, collapses runs of spaces and truncates to MaxNotesLength runes.
func Text(s string) string {
	result := whitespaceRegex.ReplaceAllString(StripHTML(s), " ")
	if utf8.RuneCountInString(result) > MaxNotesLength {
		result = string([]rune(result)[:MaxNotesLength])
	}
	return result
}

// TextPtr is a helper for optional string pointers
func TextPtr(s *string) *string {
	if s == nil {
		return nil
	}
	result := Text(*s)
	return &result
}
