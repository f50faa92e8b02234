package password

import "strings"

const specialChars = " !\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

// MinLength is the hard minimum for passwords protecting a private key.
const MinLength = 8

// Strength messages, ordered from hard failure to advisory warnings.
const (
	msgTooShort = "passwords must be at least 8 characters long"
	msgShort    = "passwords should be at least 20 characters long"
	msgLower    = "passwords should have 2 or more lowercase letters (a-z)"
	msgUpper    = "passwords should have 2 or more uppercase letters (A-Z)"
	msgDigits   = "passwords should have 2 or more digits (0-9)"
	msgSpecial  = "passwords should have 2 or more special characters"
)

// Result reports the outcome of a strength check.
type Result struct {
	// OK is false only when the password fails the hard minimum length.
	OK bool

	// Strong is true when no criteria produced a warning.
	Strong bool

	// Warning holds the first advisory message, empty when Strong.
	Warning string
}

// Check evaluates a password against the strength criteria. A password
// shorter than MinLength is rejected outright; everything else is accepted,
// with the first unmet recommendation reported as a warning.
func Check(pw string) Result {
	if len(pw) < MinLength {
		return Result{OK: false, Warning: msgTooShort}
	}

	var lower, upper, digits, special int
	for _, r := range pw {
		switch {
		case r >= 'a' && r <= 'z':
			lower++
		case r >= 'A' && r <= 'Z':
			upper++
		case r >= '0' && r <= '9':
			digits++
		case strings.ContainsRune(specialChars, r):
			special++
		}
	}

	switch {
	case len(pw) < 20:
		return Result{OK: true, Warning: msgShort}
	case lower < 2:
		return Result{OK: true, Warning: msgLower}
	case upper < 2:
		return Result{OK: true, Warning: msgUpper}
	case digits < 2:
		return Result{OK: true, Warning: msgDigits}
	case special < 2:
		return Result{OK: true, Warning: msgSpecial}
	}

	return Result{OK: true, Strong: true}
}
