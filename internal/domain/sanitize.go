package domain

import (
	"fmt"
	"html"
	"strings"
	"unicode/utf8"
)

// Sanitize strips NUL bytes and escapes the five markup-significant
// characters (& < > " ') to their entity forms so stored content can never
// execute as markup when rendered. Existing entities are decoded first, which
// keeps the function idempotent: content that comes back through the edit
// round trip is not double-escaped.
func Sanitize(raw string) string {
	s := strings.ReplaceAll(raw, "\x00", "")
	return html.EscapeString(html.UnescapeString(s))
}

// ValidateContent checks that content is present and that its trimmed length
// in runes falls within [min, max].
func ValidateContent(content string, min, max int) error {
	if content == "" {
		return ErrInvalidContent
	}
	n := utf8.RuneCountInString(strings.TrimSpace(content))
	if n < min {
		return fmt.Errorf("%w: %d runes, minimum %d", ErrContentTooShort, n, min)
	}
	if n > max {
		return fmt.Errorf("%w: %d runes, maximum %d", ErrContentTooLong, n, max)
	}
	return nil
}
