package validate

import (
	"strings"

	"golang.org/x/text/width"
)

const (
	phoneLength       = 10
	taxIDLength       = 13
	usernameMaxLength = 20
)

// Sanitizer normalizes raw keystroke input before it is stored.
// Every sanitizer must satisfy s(s(x)) == s(x).
type Sanitizer func(string) string

// Digits keeps ASCII digits only. Full-width and Thai digits are folded
// to their ASCII form first so pasted values keep their numbers.
func Digits(s string) string {
	if s == "" {
		return s
	}
	folded := width.Fold.String(s)

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= '๐' && r <= '๙':
			b.WriteRune('0' + (r - '๐'))
		}
	}
	return b.String()
}

// Phone keeps digits and caps the value at the length of a Thai phone number.
func Phone(s string) string {
	return truncate(Digits(s), phoneLength)
}

// TaxID keeps digits and caps the value at 13 characters.
func TaxID(s string) string {
	return truncate(Digits(s), taxIDLength)
}

// Username keeps the characters a username may contain.
func Username(s string) string {
	if s == "" {
		return s
	}
	folded := width.Fold.String(s)

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if isUsernameRune(r) {
			b.WriteRune(r)
		}
	}
	return truncate(b.String(), usernameMaxLength)
}

func isUsernameRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '.', r == '_', r == '-':
		return true
	}
	return false
}

// truncate cuts s to n bytes. Callers only pass ASCII.
func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
