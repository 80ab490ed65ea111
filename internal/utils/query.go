package utils

import "strconv"

// Atoi parses a query parameter as an int, falling back to a default on
// empty or malformed input.
func Atoi(s string, fallback int) int {
	if s == "" {
		return fallback
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}

// ParseBool parses an optional boolean query parameter. Empty or
// malformed input yields nil.
func ParseBool(s string) *bool {
	if s == "" {
		return nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return nil
	}
	return &b
}
