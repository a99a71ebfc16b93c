package errors

import (
	"strings"
	"unicode"
)

// ValidateName validates an element name coming from a scenario file.
// Names are used as lookup keys, so the rules are strict:
//   - No empty names
//   - No control characters
//   - No leading or trailing whitespace
//   - Maximum length of 256 characters
func ValidateName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidInput, "element name cannot be empty")
	}

	if len(name) > 256 {
		return New(ErrCodeInvalidInput, "element name too long (max 256 characters)")
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "element name contains invalid control characters")
		}
	}

	if strings.TrimSpace(name) != name {
		return New(ErrCodeInvalidInput, "element name %q has surrounding whitespace", name)
	}

	return nil
}

// ValidateLabel validates a version label. Empty labels are allowed; the
// version manager substitutes a default derived from the version number.
func ValidateLabel(label string) error {
	if len(label) > 64 {
		return New(ErrCodeInvalidInput, "version label too long (max 64 characters)")
	}
	for _, r := range label {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "version label contains invalid control characters")
		}
	}
	return nil
}

// ValidateBounds validates a multiplicity. An upper bound of -1 means
// unbounded.
func ValidateBounds(lower, upper int) error {
	if lower < 0 {
		return New(ErrCodeInvalidInput, "lower bound must not be negative (got %d)", lower)
	}
	if upper != -1 && upper < lower {
		return New(ErrCodeInvalidInput, "upper bound %d is below lower bound %d", upper, lower)
	}
	return nil
}
