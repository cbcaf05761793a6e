package utils

import (
	"strings"
	"unicode"
)

// SanitizeText strips control characters and collapses whitespace in
// user-supplied free text.
func SanitizeText(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsControl(r) && r != '\n' {
			continue
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}

// SanitizePhoneNumber normalizes Nigerian phone numbers to the international
// +234 format. Returns "" when the input cannot be a valid number.
func SanitizePhoneNumber(phone string) string {
	var digits strings.Builder
	for _, r := range phone {
		if unicode.IsDigit(r) {
			digits.WriteRune(r)
		}
	}
	d := digits.String()

	switch {
	case len(d) == 13 && strings.HasPrefix(d, "234"):
		return "+" + d
	case len(d) == 11 && strings.HasPrefix(d, "0"):
		return "+234" + d[1:]
	case len(d) == 10:
		return "+234" + d
	}
	return ""
}

// TruncateForPreview shortens text for notification bodies. The cut falls
// on a rune boundary so multi-byte characters survive intact.
func TruncateForPreview(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
