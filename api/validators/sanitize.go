package validators

import "strings"

// SanitizeString trims input and caps it at maxLen bytes.
func SanitizeString(input string, maxLen int) string {
	trimmed := strings.TrimSpace(input)
	if maxLen > 0 && len(trimmed) > maxLen {
		return trimmed[:maxLen]
	}
	return trimmed
}

// OptionalString returns nil for blank input.
func OptionalString(input string, maxLen int) *string {
	value := SanitizeString(input, maxLen)
	if value == "" {
		return nil
	}
	return &value
}
