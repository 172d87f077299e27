// Package pii provides best-effort masking of personally identifying text.
//
// The detection is intentionally approximate: two fixed regular expressions
// covering email-shaped and NANP phone-shaped substrings. It is a scrubbing
// pass, not a PII guarantee.
package pii

import "regexp"

// Sentinel tokens substituted for detected PII. These are part of the
// response contract; downstream consumers match on them.
const (
	MaskedEmail = "__MASKED_EMAIL__"
	MaskedPhone = "__MASKED_PHONE__"
)

var (
	// Local-part @ domain, where the domain ends in a dot-separated label of
	// two or more letters.
	emailPattern = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)

	// US 10-digit patterns: optional +1, optional parenthesized area code,
	// separators "-", "." or space. Matches (123) 456-7890, 123-456-7890,
	// 1234567890.
	phonePattern = regexp.MustCompile(`\b(?:\+?1[-. ]?)?\(?[0-9]{3}\)?[-. ]?[0-9]{3}[-. ]?[0-9]{4}\b`)
)

// Mask replaces email- and phone-shaped substrings in s with sentinel tokens.
// It is pure and total: malformed or binary input simply yields zero matches.
// The second return value reports whether anything was replaced.
func Mask(s string) (string, bool) {
	masked := emailPattern.ReplaceAllString(s, MaskedEmail)
	masked = phonePattern.ReplaceAllString(masked, MaskedPhone)
	return masked, masked != s
}
