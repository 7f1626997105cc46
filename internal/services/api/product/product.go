// Package product defines goods classified by Harmonized Tariff Schedule code.
package product

import (
	"strings"
	"unicode/utf8"

	apperrors "github.com/tariffdesk/tariffdesk/internal/platform/errors"
)

const (
	maxNameLength        = 100
	maxDescriptionLength = 255
)

// Product is a good identified by its HTS code.
type Product struct {
	HTSCode     string
	Name        string
	Description string
	Enabled     bool
}

// NormalizeHTSCode strips whitespace and dots and validates 4-12 digits.
func NormalizeHTSCode(code string) (string, error) {
	code = strings.ReplaceAll(strings.TrimSpace(code), ".", "")
	if code == "" {
		return "", apperrors.Invalid("htsCode", "HTS code is required")
	}
	if len(code) < 4 || len(code) > 12 {
		return "", apperrors.Invalid("htsCode", "HTS code must be 4-12 digits")
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return "", apperrors.Invalid("htsCode", "HTS code must be 4-12 digits")
		}
	}
	return code, nil
}

// Normalize trims and validates a product record.
func Normalize(p Product) (Product, error) {
	fields := apperrors.FieldErrors{}
	code, err := NormalizeHTSCode(p.HTSCode)
	if err != nil {
		fields.Add("htsCode", err.Error())
	}
	p.HTSCode = code
	p.Name = strings.TrimSpace(p.Name)
	p.Description = strings.TrimSpace(p.Description)
	switch {
	case p.Name == "":
		fields.Add("name", "product name is required")
	case utf8.RuneCountInString(p.Name) > maxNameLength:
		fields.Add("name", "product name must be at most 100 characters")
	}
	if utf8.RuneCountInString(p.Description) > maxDescriptionLength {
		fields.Add("description", "description must be at most 255 characters")
	}
	if err := fields.Err(); err != nil {
		return Product{}, err
	}
	return p, nil
}
