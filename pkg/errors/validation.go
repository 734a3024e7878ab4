package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// designIDRegex matches identifiers accepted by the design stores.
var designIDRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*$`)

// ValidateDesignID validates a persisted design identifier.
// IDs become file names in the file store, so the rules are conservative:
//   - No empty IDs
//   - Maximum length of 128 characters
//   - Only letters, digits, dash and underscore, starting alphanumeric
func ValidateDesignID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidInput, "design id cannot be empty")
	}
	if len(id) > 128 {
		return New(ErrCodeInvalidInput, "design id too long (max 128 characters)")
	}
	if !designIDRegex.MatchString(id) {
		return New(ErrCodeInvalidInput, "invalid design id: %q", id)
	}
	return nil
}

// ValidateAssetPath validates a relative asset path before it reaches a
// directory or HTTP source. It prevents path traversal attacks.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
//   - No absolute paths (must be relative)
//   - No path traversal sequences (..)
//   - No backslashes (Windows-style paths)
func ValidateAssetPath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	if strings.HasPrefix(path, "/") {
		return New(ErrCodeInvalidPath, "path must be relative (cannot start with /)")
	}

	if strings.Contains(path, "..") {
		return New(ErrCodeInvalidPath, "path cannot contain path traversal sequences (..)")
	}

	if strings.Contains(path, "\\") {
		return New(ErrCodeInvalidPath, "path cannot contain backslashes")
	}

	return nil
}

// ValidateURL validates a URL string for safety.
// It ensures the URL has a safe scheme (http or https).
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}

	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return New(ErrCodeInvalidInput, "URL must use http or https scheme")
	}

	return nil
}
