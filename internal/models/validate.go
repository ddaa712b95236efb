package models

import "regexp"

var (
	emailRe    = regexp.MustCompile(`^[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}$`)
	usernameRe = regexp.MustCompile(`^[A-Za-z0-9_]{3,20}$`)
	letterRe   = regexp.MustCompile(`[A-Za-z]`)
	digitRe    = regexp.MustCompile(`[0-9]`)
)

// ValidEmail reports whether s looks like an email address.
func ValidEmail(s string) bool {
	return emailRe.MatchString(s)
}

// ValidUsername reports whether s is 3–20 characters of letters, digits or
// underscores.
func ValidUsername(s string) bool {
	return usernameRe.MatchString(s)
}

// ValidPassword reports whether s is at least 8 characters and contains at
// least one letter and one digit.
func ValidPassword(s string) bool {
	return len(s) >= 8 && letterRe.MatchString(s) && digitRe.MatchString(s)
}
