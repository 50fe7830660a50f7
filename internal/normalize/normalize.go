// Package normalize canonicalizes contact fields for identity matching.
// All functions are pure and total: invalid input yields the empty
// sentinel, never an error.
package normalize

import (
	"strings"
	"unicode"
)

// minPhoneDigits is the fewest digits a usable phone number can carry.
const minPhoneDigits = 10

var multiSpace = strings.NewReplacer("\t", " ", "\n", " ", "\r", " ")

// Phone strips all non-digits, keeps the last ten digits, and prefixes the
// country code, yielding a canonical E.164-like string ("+15551234567").
// Inputs with fewer than ten digits normalize to "" (no usable phone).
// Idempotent: Phone(cc, Phone(cc, raw)) == Phone(cc, raw).
func Phone(countryCode, raw string) string {
	var digits []rune
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			digits = append(digits, r)
		}
	}
	if len(digits) < minPhoneDigits {
		return ""
	}
	return "+" + countryCode + string(digits[len(digits)-minPhoneDigits:])
}

// Email lowercases and trims. Empty or whitespace-only input yields "".
func Email(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// Text trims a free-text field, folds internal whitespace runs to single
// spaces, and drops non-printable runes.
func Text(raw string) string {
	raw = multiSpace.Replace(raw)
	var b strings.Builder
	b.Grow(len(raw))
	lastSpace := false
	for _, r := range raw {
		if r == ' ' {
			if !lastSpace {
				b.WriteRune(' ')
			}
			lastSpace = true
			continue
		}
		if !unicode.IsPrint(r) {
			continue
		}
		b.WriteRune(r)
		lastSpace = false
	}
	return strings.TrimSpace(b.String())
}
