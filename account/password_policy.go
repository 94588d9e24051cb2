package account

import (
	"strings"
	"unicode/utf8"
)

const (
	// PasswordMinLength and PasswordMaxLength bound accepted passwords.
	PasswordMinLength = 10
	PasswordMaxLength = 64

	passwordSymbols = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"
)

// PasswordChecks is the per-rule result of evaluating a password against
// the strength policy.
type PasswordChecks struct {
	MinLength    bool `json:"minLength"`
	MaxLength    bool `json:"maxLength"`
	HasUppercase bool `json:"hasUppercase"`
	HasLowercase bool `json:"hasLowercase"`
	HasDigit     bool `json:"hasDigit"`
	HasSymbol    bool `json:"hasSymbol"`
}

// EvaluatePassword runs the strength rules. Pure; never logs the password.
func EvaluatePassword(password string) PasswordChecks {
	// Length rules count runes, not bytes, so multibyte passwords are
	// measured the way users perceive them.
	length := utf8.RuneCountInString(password)
	checks := PasswordChecks{
		MinLength: length >= PasswordMinLength,
		MaxLength: length <= PasswordMaxLength,
	}

	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			checks.HasUppercase = true
		case r >= 'a' && r <= 'z':
			checks.HasLowercase = true
		case r >= '0' && r <= '9':
			checks.HasDigit = true
		case strings.ContainsRune(passwordSymbols, r):
			checks.HasSymbol = true
		}
	}

	return checks
}

// Acceptable is the logical AND of every rule.
func (c PasswordChecks) Acceptable() bool {
	return c.MinLength && c.MaxLength &&
		c.HasUppercase && c.HasLowercase &&
		c.HasDigit && c.HasSymbol
}

// Map renders the checks for error metadata and JSON responses.
func (c PasswordChecks) Map() map[string]bool {
	return map[string]bool{
		"minLength":    c.MinLength,
		"maxLength":    c.MaxLength,
		"hasUppercase": c.HasUppercase,
		"hasLowercase": c.HasLowercase,
		"hasDigit":     c.HasDigit,
		"hasSymbol":    c.HasSymbol,
	}
}
