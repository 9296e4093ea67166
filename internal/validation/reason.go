// Package validation provides input validation utilities
package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// MinReasonLength is the minimum meaningful reason length after trimming.
const MinReasonLength = 3

// MaxReasonLength caps free-text justification size.
const MaxReasonLength = 500

// ValidateReason checks the free-text justification on a pass application.
// Returns the trimmed reason on success.
func ValidateReason(reason string) (string, error) {
	trimmed := strings.TrimSpace(reason)
	if utf8.RuneCountInString(trimmed) < MinReasonLength {
		return "", fmt.Errorf("reason must be at least %d characters", MinReasonLength)
	}
	if utf8.RuneCountInString(trimmed) > MaxReasonLength {
		return "", fmt.Errorf("reason must not exceed %d characters", MaxReasonLength)
	}
	return trimmed, nil
}
