package identity

import (
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	maxUsernameLen = 32
	maxEmailLen    = 254
	maxBioLen      = 500
)

var usernameRe = regexp.MustCompile(`^[a-zA-Z0-9_.-]{3,32}$`)

// NormalizeUsername performs case-insensitive canonicalization.
// For now only trim + lower-case.
func NormalizeUsername(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizeEmail performs case-insensitive canonicalization.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func validUsername(s string) bool {
	return utf8.RuneCountInString(s) <= maxUsernameLen && usernameRe.MatchString(s)
}

func validEmail(s string) bool {
	if s == "" || len(s) > maxEmailLen {
		return false
	}
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}
