package importer

import (
	"errors"
	"strings"
)

// ErrUnsafeContent marks a field value that tripped the content filter.
var ErrUnsafeContent = errors.New("unsafe content")

// unsafeSubstrings are rejected wherever they appear in a field value,
// case-insensitively. The upstream data sources feed attacker-controllable
// header names and values, so the filter applies to every extracted text
// field, dates and thumbprints included, before any further parsing.
var unsafeSubstrings = []string{"__proto__", "constructor", "prototype"}

// SanitizeText trims the raw value and rejects it if it contains any of the
// blocked substrings.
func SanitizeText(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	lower := strings.ToLower(s)
	for _, bad := range unsafeSubstrings {
		if strings.Contains(lower, bad) {
			return "", ErrUnsafeContent
		}
	}
	return s, nil
}

// emailSentinel marks an explicitly absent email in source spreadsheets.
const emailSentinel = "EMPTY"

// isEmailSentinel reports whether the sanitized value means "no email".
func isEmailSentinel(s string) bool {
	return strings.EqualFold(s, emailSentinel)
}
