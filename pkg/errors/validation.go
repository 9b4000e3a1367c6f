package errors

import (
	"path/filepath"
	"strings"
	"unicode"
)

// maxIDLength bounds object, node and constraint identifiers.
const maxIDLength = 128

// ValidateID validates an object or node identifier.
//
// The validation rules are intentionally conservative:
//   - No empty identifiers
//   - No control characters or null bytes
//   - No surrounding whitespace
//   - Maximum length of 128 characters
func ValidateID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidInput, "id cannot be empty")
	}

	if len(id) > maxIDLength {
		return New(ErrCodeInvalidInput, "id too long (max %d characters)", maxIDLength)
	}

	for _, r := range id {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "id %q contains invalid control characters", id)
		}
	}

	if strings.TrimSpace(id) != id {
		return New(ErrCodeInvalidInput, "id %q has surrounding whitespace", id)
	}

	return nil
}

// ValidateDomain validates a domain tag such as "mechanics" or "optics".
// Domain tags are lowercase words joined by underscores; an empty tag is
// allowed and treated as an unknown domain.
func ValidateDomain(domain string) error {
	for _, r := range domain {
		if !(unicode.IsLower(r) || unicode.IsDigit(r) || r == '_') {
			return New(ErrCodeInvalidInput, "invalid domain %q (lowercase letters, digits and _ only)", domain)
		}
	}
	return nil
}

// specExtensions lists the file extensions accepted for problem specs and graphs.
var specExtensions = map[string]bool{
	".json": true,
	".yaml": true,
	".yml":  true,
	".toml": true,
}

// ValidateSpecPath validates the path of a problem spec or property graph file.
//
// Validation rules:
//   - Path cannot be empty
//   - No null bytes or control characters
//   - Extension must be .json, .yaml, .yml or .toml
func ValidateSpecPath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	ext := strings.ToLower(filepath.Ext(path))
	if !specExtensions[ext] {
		return New(ErrCodeInvalidFormat, "unsupported file extension %q (must be .json, .yaml, .yml or .toml)", ext)
	}

	return nil
}

// ValidateURL validates a service URL for safety.
// It ensures the URL uses one of the allowed schemes.
func ValidateURL(rawURL string, schemes ...string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}

	for _, s := range schemes {
		if strings.HasPrefix(rawURL, s+"://") {
			return nil
		}
	}

	return New(ErrCodeInvalidInput, "URL %q must use one of the schemes: %s", rawURL, strings.Join(schemes, ", "))
}
