package http

import (
	"strings"
	"unicode/utf8"
)

// Input validation constants
const (
	MaxKeywordLength     = 128
	MaxNameLength        = 255
	MaxReplacementLength = 512
	MaxPreviewLength     = 10000
)

// ValidKeyword checks a filter keyword: non-empty after trimming, bounded.
func ValidKeyword(s string) bool {
	if s == "" || len(s) > MaxKeywordLength {
		return false
	}
	return strings.TrimSpace(s) != ""
}

// SanitizeString removes null bytes and invalid UTF-8
func SanitizeString(s string) string {
	// Remove null bytes
	s = strings.ReplaceAll(s, "\x00", "")

	// Keep only valid UTF-8
	if !utf8.ValidString(s) {
		v := make([]rune, 0, len(s))
		for _, r := range s {
			if r != utf8.RuneError {
				v = append(v, r)
			}
		}
		s = string(v)
	}
	return s
}

// TruncateString safely truncates a string to max length
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}

// ValidateLength checks if string is within bounds
func ValidateLength(s string, min, max int) bool {
	l := len(s)
	return l >= min && l <= max
}
