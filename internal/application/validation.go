package application

import (
	"fmt"
	"strconv"
	"strings"

	"linkcal/internal/domain"
)

// ValidateRequired checks if a string field is non-empty (after trimming whitespace).
// Returns a ValidationError if the field is empty.
func ValidateRequired(fieldName, value string) error {
	if strings.TrimSpace(value) == "" {
		return &ValidationError{
			Field:   fieldName,
			Message: fmt.Sprintf("%s is required", formatFieldName(fieldName)),
		}
	}
	return nil
}

// formatFieldName converts camelCase field names to space-separated words
// for more readable error messages (e.g., "blockID" -> "block ID")
func formatFieldName(fieldName string) string {
	replacements := map[string]string{
		"blockID":        "block ID",
		"notePath":       "note path",
		"carrierPath":    "carrier path",
		"firstDayOfWeek": "first day of week",
	}

	if formatted, ok := replacements[fieldName]; ok {
		return formatted
	}
	return fieldName
}

// ValidatePeriodToken rejects tokens that would silently fall back to the default
func ValidatePeriodToken(fieldName, token string) error {
	if !domain.IsPeriodToken(token) {
		return &ValidationError{
			Field:   fieldName,
			Message: fmt.Sprintf("unknown period %q (try %s)", token, strings.Join(domain.PeriodTokens(), ", ")),
		}
	}
	return nil
}

// ValidateComponentKind checks the fence kind of a block
func ValidateComponentKind(fieldName, kind string) (domain.ComponentKind, error) {
	k, ok := domain.ParseComponentKind(kind)
	if !ok {
		return "", &ValidationError{
			Field:   fieldName,
			Message: fmt.Sprintf("unknown component kind: %s", kind),
		}
	}
	return k, nil
}

// ValidateYear checks a year is inside the navigable range
func ValidateYear(fieldName string, year int) error {
	if year < domain.MinBoundsYear || year > 9999 {
		return &ValidationError{
			Field:   fieldName,
			Message: "year must be between " + strconv.Itoa(domain.MinBoundsYear) + " and 9999",
		}
	}
	return nil
}
