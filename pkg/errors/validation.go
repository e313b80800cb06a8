package errors

import (
	"slices"
	"strings"
	"unicode"
)

// MaxInputs bounds the length of an input vector accepted from outside the
// process (CLI flags, input files, HTTP requests).
const MaxInputs = 1 << 20

// ValidateFormat checks that format is one of allowed. The comparison is
// case-insensitive.
func ValidateFormat(format string, allowed ...string) error {
	if format == "" {
		return New(ErrCodeInvalidFormat, "format cannot be empty")
	}
	if !slices.Contains(allowed, strings.ToLower(format)) {
		return New(ErrCodeInvalidFormat, "unsupported format %q (want one of %s)", format, strings.Join(allowed, ", "))
	}
	return nil
}

// ValidateRange checks that lo <= n <= hi. name is used in the message.
func ValidateRange(name string, n, lo, hi int) error {
	if n < lo || n > hi {
		return New(ErrCodeInvalidInput, "%s must be between %d and %d, got %d", name, lo, hi, n)
	}
	return nil
}

// ValidateInputs checks an input vector supplied from outside the process.
// NaN and infinite entries are legal graph inputs and are not rejected.
func ValidateInputs(inputs []float64) error {
	if len(inputs) > MaxInputs {
		return New(ErrCodeInvalidInput, "too many inputs (max %d)", MaxInputs)
	}
	return nil
}

// ValidateNodeID checks an interchange node identifier. Any non-empty string
// without whitespace or control characters is accepted; writers emit "_N".
func ValidateNodeID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidGraph, "node id cannot be empty")
	}
	for _, r := range id {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return New(ErrCodeInvalidGraph, "node id %q contains invalid characters", id)
		}
	}
	return nil
}
