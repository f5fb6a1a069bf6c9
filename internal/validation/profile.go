// Package validation holds local pre-flight checks that block submission
// before any network call is made.
package validation

import (
	"regexp"
	"strings"

	"socio/internal/models"
)

var usernameRegex = regexp.MustCompile(`^[a-z0-9_]{3,20}$`)

var reservedUsernames = map[string]struct{}{
	"admin":   {},
	"api":     {},
	"chat":    {},
	"explore": {},
	"profile": {},
	"search":  {},
	"socio":   {},
	"whoami":  {},
}

// ValidateUsername checks format and reserved names. Usernames double as
// participant ids inside conversation keys, so the key separator is excluded
// by the character class.
func ValidateUsername(username string) error {
	if !usernameRegex.MatchString(username) {
		return models.NewValidationError("username must be 3-20 characters and contain only lowercase letters, numbers, and underscores")
	}
	if _, exists := reservedUsernames[username]; exists {
		return models.NewValidationError("username is reserved")
	}
	return nil
}

// ValidateDisplayName checks the display name length.
func ValidateDisplayName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return models.NewValidationError("display name is required")
	}
	if len(trimmed) > 50 {
		return models.NewValidationError("display name must be at most 50 characters")
	}
	return nil
}

// ValidateUpload checks that a required binary upload is present.
func ValidateUpload(payload []byte) error {
	if len(payload) == 0 {
		return models.NewValidationError("an image upload is required")
	}
	return nil
}
