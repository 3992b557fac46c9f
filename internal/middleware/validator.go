package middleware

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Input validation and sanitization utilities

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// SanitizeString removes null bytes and control characters, keeping tabs and
// newlines so markdown-ish input survives.
func SanitizeString(input string) string {
	input = strings.ReplaceAll(input, "\x00", "")

	var result strings.Builder
	result.Grow(len(input))
	for _, r := range input {
		if r >= 32 || r == '\t' || r == '\n' {
			result.WriteRune(r)
		}
	}

	return strings.TrimSpace(result.String())
}

// ValidateAnalysisID validates analysis ID format (uuid)
func ValidateAnalysisID(id string) error {
	if id == "" {
		return fmt.Errorf("analysis ID cannot be empty")
	}
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("invalid analysis ID format")
	}
	return nil
}

// ValidatePage clamps page to >= 1
func ValidatePage(page int) int {
	if page <= 0 {
		return 1
	}
	return page
}

// ValidatePageSize validates pagination size
func ValidatePageSize(size int) int {
	if size <= 0 {
		return defaultPageSize
	}
	if size > maxPageSize {
		return maxPageSize
	}
	return size
}

// ValidateTextLength rejects text longer than max runes; max <= 0 disables the check.
func ValidateTextLength(text string, max int) error {
	if max <= 0 {
		return nil
	}
	if n := len([]rune(text)); n > max {
		return fmt.Errorf("text is too long (%d characters, max %d)", n, max)
	}
	return nil
}
