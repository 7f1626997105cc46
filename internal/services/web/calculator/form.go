// Package calculator validates the duty calculator form.
package calculator

import (
	"math"
	"strconv"
	"strings"
	"unicode"

	apperrors "github.com/tariffdesk/tariffdesk/internal/platform/errors"
	"github.com/tariffdesk/tariffdesk/internal/services/web/apiclient"
)

// Form is the raw calculator input.
type Form struct {
	Product   string
	Origin    string
	Dest      string
	Quantity  string
	UnitPrice string
}

// Request validates f. Field errors are keyed by form field name.
func (f Form) Request() (apiclient.CalculationRequest, error) {
	fields := apperrors.FieldErrors{}
	req := apiclient.CalculationRequest{
		Product:       strings.TrimSpace(f.Product),
		OriginCountry: strings.TrimSpace(f.Origin),
		DestCountry:   strings.TrimSpace(f.Dest),
	}
	if req.Product == "" {
		fields.Add("product", "choose a product")
	}
	if req.OriginCountry == "" {
		fields.Add("origin", "choose an export country")
	}
	if req.DestCountry == "" {
		fields.Add("dest", "choose an import country")
	}
	var err error
	if req.Quantity, err = ParseAmount(f.Quantity); err != nil {
		fields.Add("quantity", "quantity "+err.Error())
	}
	if req.UnitPrice, err = ParseAmount(f.UnitPrice); err != nil {
		fields.Add("unit_price", "unit price "+err.Error())
	}
	if err := fields.Err(); err != nil {
		return apiclient.CalculationRequest{}, err
	}
	return req, nil
}

type amountError string

func (e amountError) Error() string { return string(e) }

const (
	errAmountRequired = amountError("is required")
	errAmountInvalid  = amountError("must be a number")
	errAmountNegative = amountError("cannot be negative")
)

// ParseAmount reads a user-typed number, ignoring whitespace, thousands
// separators and currency symbols.
func ParseAmount(raw string) (float64, error) {
	cleaned := strings.Map(func(r rune) rune {
		if r == ',' || r == '_' || unicode.IsSpace(r) || unicode.Is(unicode.Sc, r) {
			return -1
		}
		return r
	}, raw)
	if cleaned == "" {
		return 0, errAmountRequired
	}
	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, errAmountInvalid
	}
	if value < 0 {
		return 0, errAmountNegative
	}
	return value, nil
}
