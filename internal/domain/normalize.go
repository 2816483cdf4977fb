package domain

import (
	"strings"
	"unicode"
)

// NormalizeCardLast4 strips every non-digit and keeps at most the last four
// digits, so "XX0655", "**** 0655" and "0655" all normalize the same way.
func NormalizeCardLast4(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) > 4 {
		digits = digits[len(digits)-4:]
	}
	return digits
}

// NormalizeCurrency uppercases a currency code and rejects anything that is
// not exactly three letters.
func NormalizeCurrency(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	if len(s) != 3 {
		return ""
	}
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return ""
		}
	}
	return s
}

// ContainsAny reports whether text contains any of the given substrings,
// case-insensitively.
func ContainsAny(text string, subs []string) bool {
	upper := strings.ToUpper(text)
	for _, s := range subs {
		if strings.Contains(upper, strings.ToUpper(s)) {
			return true
		}
	}
	return false
}
