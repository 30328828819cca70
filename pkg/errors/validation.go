package errors

import (
	"path/filepath"
	"strings"
	"unicode"
)

// SourceExtensions lists the file extensions accepted for summarization uploads.
var SourceExtensions = []string{".py", ".txt"}

// ValidateSourceFilename validates the name of an uploaded source file.
// It ensures the filename is a simple basename with an accepted extension.
func ValidateSourceFilename(filename string) error {
	if filename == "" {
		return New(ErrCodeInvalidPath, "source filename cannot be empty")
	}

	base := filepath.Base(filename)
	for _, r := range base {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "source filename contains invalid control characters")
		}
	}

	ext := strings.ToLower(filepath.Ext(base))
	for _, ok := range SourceExtensions {
		if ext == ok {
			return nil
		}
	}
	return New(ErrCodeInvalidInput, "unsupported source file %q (expected %s)", base, strings.Join(SourceExtensions, " or "))
}

// ValidatePath validates a local input path for safety.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 4096 characters
//   - No null bytes or control characters
//
// The special path "-" (standard input) is always valid.
func ValidatePath(path string) error {
	if path == "-" {
		return nil
	}
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 4096
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}
	return nil
}

// ValidateURL validates a URL string for safety.
// It ensures the URL has a safe scheme (http or https).
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}

	// Simple scheme validation without full URL parsing
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return New(ErrCodeInvalidInput, "URL must use http or https scheme")
	}

	return nil
}
