package httpapi

import (
	"regexp"
	"unicode/utf8"
)

const (
	minPasswordLen    = 8
	minDisplayNameLen = 1
	maxDisplayNameLen = 40
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]{3,20}$`)

func validUsername(s string) bool {
	return usernamePattern.MatchString(s)
}

func validPassword(s string) bool {
	return len(s) >= minPasswordLen
}

func validDisplayName(s string) bool {
	n := utf8.RuneCountInString(s)
	return utf8.ValidString(s) && n >= minDisplayNameLen && n <= maxDisplayNameLen
}
