// Package sanitizer cleans untrusted text. Field handles values submitted
// through the contact form; HTMLSanitizer filters the HTML we send out.
package sanitizer

import (
	"strings"
	"unicode/utf8"
)

// MaxFieldLength is the rune limit applied to every free-text field
const MaxFieldLength = 2000

var angleBrackets = strings.NewReplacer("<", "", ">", "")

// Field strips angle brackets, truncates to MaxFieldLength runes and trims
// surrounding whitespace. Field(Field(s)) == Field(s) for every s.
func Field(s string) string {
	return FieldN(s, MaxFieldLength)
}

// FieldN is Field with a custom rune limit
func FieldN(s string, max int) string {
	s = angleBrackets.Replace(s)
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "")
	}
	if max > 0 && utf8.RuneCountInString(s) > max {
		s = string([]rune(s)[:max])
	}
	return strings.TrimSpace(s)
}
