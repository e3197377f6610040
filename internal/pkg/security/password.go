package security

import "strings"

const passwordSpecialChars = "@$!%*?&"

// PasswordStrength reports every violated rule so the caller can render
// all unmet requirements at once.
type PasswordStrength struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// ValidatePasswordStrength enforces the signup password policy: minimum
// length 8 plus lowercase, uppercase, digit and one special character.
func ValidatePasswordStrength(password string) PasswordStrength {
	var errs []string

	if len(password) < 8 {
		errs = append(errs, "password must be at least 8 characters long")
	}
	if !strings.ContainsFunc(password, func(r rune) bool { return r >= 'a' && r <= 'z' }) {
		errs = append(errs, "password must contain a lowercase letter")
	}
	if !strings.ContainsFunc(password, func(r rune) bool { return r >= 'A' && r <= 'Z' }) {
		errs = append(errs, "password must contain an uppercase letter")
	}
	if !strings.ContainsFunc(password, func(r rune) bool { return r >= '0' && r <= '9' }) {
		errs = append(errs, "password must contain a digit")
	}
	if !strings.ContainsAny(password, passwordSpecialChars) {
		errs = append(errs, "password must contain one of "+passwordSpecialChars)
	}

	return PasswordStrength{Valid: len(errs) == 0, Errors: errs}
}
