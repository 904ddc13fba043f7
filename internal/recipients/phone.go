package recipients

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	// ErrInvalidIdentifier is returned when a contact cell cannot be read as a phone number.
	ErrInvalidIdentifier = errors.New("recipients: invalid phone identifier")

	phoneSeparators = strings.NewReplacer(" ", "", " ", "", "-", "", "(", "", ")", "", ".", "")
	phoneShapeRe    = regexp.MustCompile(`^\+?\d+$`)
	// Spreadsheet cells sometimes surface integers as floats ("919555611880.0").
	floatCellRe = regexp.MustCompile(`^(\+?\d+)\.0+$`)
)

const (
	minPhoneDigits = 10
	maxPhoneDigits = 15
)

// NormalizeE164 strips separators and returns "+<digits>".
// The value must hold 10 to 15 digits, optionally prefixed by a single +.
func NormalizeE164(value string) (string, error) {
	value = strings.TrimSpace(value)
	if m := floatCellRe.FindStringSubmatch(value); m != nil {
		value = m[1]
	}
	clean := phoneSeparators.Replace(value)
	if !phoneShapeRe.MatchString(clean) {
		return "", fmt.Errorf("%w: %q", ErrInvalidIdentifier, value)
	}
	digits := strings.TrimPrefix(clean, "+")
	if len(digits) < minPhoneDigits || len(digits) > maxPhoneDigits {
		return "", fmt.Errorf("%w: %q has %d digits, want %d-%d", ErrInvalidIdentifier, value, len(digits), minPhoneDigits, maxPhoneDigits)
	}
	return "+" + digits, nil
}

// Digits returns the identifier without its leading +.
func Digits(identifier string) string {
	return strings.TrimPrefix(identifier, "+")
}

// LooksLikePhone reports whether a cell is phone-shaped. Used to detect header rows.
func LooksLikePhone(value string) bool {
	value = strings.TrimSpace(value)
	if m := floatCellRe.FindStringSubmatch(value); m != nil {
		value = m[1]
	}
	clean := phoneSeparators.Replace(value)
	return clean != "" && phoneShapeRe.MatchString(clean)
}
