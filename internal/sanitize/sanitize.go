// =============================================================================
// SEPA Export - Sanitizers
// =============================================================================
//
// Pure normalization functions for the raw identifiers that end up inside
// the generated message: account numbers (IBAN-like values) and free-form
// strings that must be reduced to their digits (company VAT numbers).
//
// None of these functions have side effects, and Digits never fails: a
// string without digits simply normalizes to the empty string.
//
// =============================================================================

package sanitize

import (
	"fmt"
	"strings"
	"unicode"
)

// InvalidAccountNumberError reports an account number that cannot be
// normalized into the character set the message format accepts.
type InvalidAccountNumberError struct {
	Value  string
	Reason string
}

func (e *InvalidAccountNumberError) Error() string {
	return fmt.Sprintf("invalid account number %q: %s", e.Value, e.Reason)
}

// AccountNumber strips formatting characters (spaces, hyphens, dots) from a
// raw account number and upper-cases it into the canonical representation.
//
// The result may only contain ASCII letters and digits; anything else in the
// input besides the stripped formatting characters is an error, as is an
// input that strips down to nothing.
func AccountNumber(raw string) (string, error) {
	var b strings.Builder
	for _, r := range raw {
		switch {
		case r == ' ' || r == '-' || r == '.' || r == '\t':
			// formatting only, dropped
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= 'a' && r <= 'z':
			b.WriteRune(unicode.ToUpper(r))
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r)
		default:
			return "", &InvalidAccountNumberError{Value: raw, Reason: fmt.Sprintf("unexpected character %q", r)}
		}
	}
	if b.Len() == 0 {
		return "", &InvalidAccountNumberError{Value: raw, Reason: "empty after normalization"}
	}
	return b.String(), nil
}

// Digits returns only the numeric characters of s, preserving order.
//
// This is a lossy normalization for strictly numeric message fields (the
// initiating party's organisation id is built from the company VAT this
// way). An input without digits yields "", never an error. Applying Digits
// to its own output is a no-op.
func Digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
