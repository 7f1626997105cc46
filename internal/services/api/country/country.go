// Package country defines trading countries referenced by tariffs.
package country

import (
	"strings"
	"unicode/utf8"

	apperrors "github.com/tariffdesk/tariffdesk/internal/platform/errors"
)

const maxNameLength = 100

// Country is a trading country identified by a short code.
type Country struct {
	Code string
	Name string
}

// NormalizeCode trims and upper-cases a country code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidateCode reports whether code is 2-3 ASCII letters or digits.
func ValidateCode(code string) error {
	if code == "" {
		return apperrors.Invalid("code", "country code is required")
	}
	if len(code) < 2 || len(code) > 3 {
		return apperrors.Invalid("code", "country code must be 2-3 letters or digits")
	}
	for _, r := range code {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return apperrors.Invalid("code", "country code must be 2-3 letters or digits")
		}
	}
	return nil
}

// Normalize trims and validates a country record.
func Normalize(c Country) (Country, error) {
	c.Code = NormalizeCode(c.Code)
	c.Name = strings.TrimSpace(c.Name)

	fields := apperrors.FieldErrors{}
	if err := ValidateCode(c.Code); err != nil {
		fields.Add("code", err.Error())
	}
	if err := ValidateName(c.Name); err != nil {
		fields.Add("name", err.Error())
	}
	if err := fields.Err(); err != nil {
		return Country{}, err
	}
	return c, nil
}

// ValidateName checks the display-name length.
func ValidateName(name string) error {
	if name == "" {
		return apperrors.Invalid("name", "country name is required")
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return apperrors.Invalid("name", "country name must be at most 100 characters")
	}
	return nil
}
