package leadcapture

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

const phoneDigits = 11

var (
	phonePattern = regexp.MustCompile(`^[\d\s().-]+$`)
	emailPattern = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)
	namePattern  = regexp.MustCompile(`^\p{L}+(?: \p{L}+)*$`)
)

// IsValidPhone accepts a Brazilian mobile number written with any mix of
// parentheses, spaces, dots and dashes, and returns its 11 digits.
func IsValidPhone(text string) (string, bool) {
	t := strings.TrimSpace(text)
	if t == "" || !phonePattern.MatchString(t) {
		return "", false
	}
	digits := onlyDigits(t)
	if len(digits) != phoneDigits {
		return "", false
	}
	return digits, true
}

// IsValidEmail reports whether text is a single local@domain.tld address.
func IsValidEmail(text string) bool {
	return emailPattern.MatchString(strings.TrimSpace(text))
}

// IsValidName accepts letters (accented included) separated by spaces,
// with at least two letters in total. A single word is a valid name.
func IsValidName(text string) bool {
	name := CleanName(text)
	if !namePattern.MatchString(name) {
		return false
	}
	return utf8.RuneCountInString(strings.ReplaceAll(name, " ", "")) >= 2
}

// CleanName trims, collapses inner whitespace and composes accents (NFC).
func CleanName(text string) string {
	return norm.NFC.String(strings.Join(strings.Fields(text), " "))
}

func onlyDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func containsDigit(s string) bool {
	return strings.IndexFunc(s, unicode.IsDigit) >= 0
}
