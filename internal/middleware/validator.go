package middleware

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Input validation and sanitization utilities

// ValidateBucket checks an S3 bucket name (3-63 chars, lowercase, digits, dot, dash).
func ValidateBucket(bucket string) error {
	if len(bucket) < 3 || len(bucket) > 63 {
		return fmt.Errorf("invalid bucket name %q: length must be 3-63", bucket)
	}
	for i, r := range bucket {
		ok := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '.' || r == '-'
		if !ok {
			return fmt.Errorf("invalid bucket name %q: character %q", bucket, r)
		}
		if (i == 0 || i == len(bucket)-1) && (r == '.' || r == '-') {
			return fmt.Errorf("invalid bucket name %q: must start and end with a letter or digit", bucket)
		}
	}
	return nil
}

// ValidateObjectKey checks a decoded object key.
func ValidateObjectKey(key string) error {
	if key == "" {
		return fmt.Errorf("object key cannot be empty")
	}
	if len(key) > 1024 {
		return fmt.Errorf("object key longer than 1024 bytes")
	}
	if !utf8.ValidString(key) {
		return fmt.Errorf("object key is not valid UTF-8")
	}
	if strings.ContainsRune(key, 0) {
		return fmt.Errorf("object key contains a NUL byte")
	}
	return nil
}

// ValidateClassificationID requires a UUID.
func ValidateClassificationID(id string) error {
	if id == "" {
		return fmt.Errorf("classification ID cannot be empty")
	}
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("invalid classification ID format")
	}
	return nil
}

// SanitizeString removes dangerous characters from strings
func SanitizeString(input string) string {
	input = strings.ReplaceAll(input, "\x00", "")

	var result strings.Builder
	for _, r := range input {
		if r >= 32 || r == '\t' || r == '\n' {
			result.WriteRune(r)
		}
	}
	return strings.TrimSpace(result.String())
}

// ValidateLimit validates pagination limit
func ValidateLimit(limit int) int {
	if limit <= 0 {
		return 20 // default
	}
	if limit > 100 {
		return 100 // max limit
	}
	return limit
}

// ValidateDays validates days parameter
func ValidateDays(days int) int {
	if days <= 0 {
		return 7 // default
	}
	if days > 365 {
		return 365 // max 1 year
	}
	return days
}
